// Package match partitions sibling lists by identity.
//
// Partition is the building block of every merge: it classifies incoming
// elements against existing ones in time linear in |existing|+|incoming| by
// indexing both sides by identity.
package match

import "github.com/hmcts/cpp-context-progression-sub010/internal/model"

// Pair is an existing element and the incoming element sharing its identity.
type Pair[T any] struct {
	// Index is the position of Existing in the existing list. Merges write
	// the merged element back at this position so sibling order is kept.
	Index    int
	Existing T
	Incoming T
}

// Result holds the three partitions of an identity match.
type Result[T any] struct {
	// UnmatchedExisting are existing elements whose identity is absent from
	// the incoming list, in existing order.
	UnmatchedExisting []T

	// Matched are (existing, incoming) pairs in existing order. If the
	// incoming list repeats an identity, the first occurrence wins.
	Matched []Pair[T]

	// New are incoming elements whose identity is absent from the existing
	// list, deduplicated by identity (first occurrence wins), in incoming
	// order.
	New []T
}

// Partition classifies incoming against existing using id.
//
// An incoming element with an empty identity makes the delta unusable and
// returns a malformed-delta error naming kind. Existing elements with an
// empty identity can never be matched and are reported as unmatched.
func Partition[T any](existing, incoming []T, id func(T) string, kind string) (Result[T], error) {
	firstIncoming := make(map[string]int, len(incoming))
	for i, in := range incoming {
		key := id(in)
		if key == "" {
			return Result[T]{}, model.MissingIdentity(kind, "")
		}
		if _, seen := firstIncoming[key]; !seen {
			firstIncoming[key] = i
		}
	}

	var res Result[T]
	existingIDs := make(map[string]struct{}, len(existing))
	for i, ex := range existing {
		key := id(ex)
		if key != "" {
			existingIDs[key] = struct{}{}
		}
		j, ok := firstIncoming[key]
		if !ok || key == "" {
			res.UnmatchedExisting = append(res.UnmatchedExisting, ex)
			continue
		}
		res.Matched = append(res.Matched, Pair[T]{Index: i, Existing: ex, Incoming: incoming[j]})
	}

	added := make(map[string]struct{})
	for _, in := range incoming {
		key := id(in)
		if _, ok := existingIDs[key]; ok {
			continue
		}
		if _, ok := added[key]; ok {
			continue
		}
		added[key] = struct{}{}
		res.New = append(res.New, in)
	}

	return res, nil
}

// IDs returns the identity set of list.
func IDs[T any](list []T, id func(T) string) map[string]struct{} {
	set := make(map[string]struct{}, len(list))
	for _, el := range list {
		set[id(el)] = struct{}{}
	}
	return set
}

// Identity extractors for the document tree.

func CaseID(c model.ProsecutionCase) string         { return c.ID }
func DefendantID(d model.Defendant) string          { return d.ID }
func OffenceID(o model.Offence) string              { return o.ID }
func ResultID(r model.JudicialResult) string        { return r.ID }
func ApplicationID(a model.CourtApplication) string { return a.ID }
func CounselID(c model.DefenceCounsel) string       { return c.ID }
