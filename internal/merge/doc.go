// Package merge reconciles incoming partial subtrees into stored document
// trees.
//
// Every level of the tree (case, defendant, offence, court application,
// defence counsel) is merged the same way:
//
//	result = existing, in existing order, with matched elements merged in place
//	       ++ new elements, in incoming order, each identity appended once
//
// Existing elements the incoming payload does not mention are kept verbatim,
// so a delta that names one case never disturbs a sibling case.
//
// Matched offences are never replaced: their presence in the payload only
// drives result reconciliation (package results) and scalar updates.
// Scalar fields are overwritten only by non-empty incoming values.
//
// ReplaceSubset additionally prunes explicitly named chains before the
// additive merge; see Removal.
package merge
