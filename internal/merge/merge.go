package merge

import (
	"fmt"

	"github.com/hmcts/cpp-context-progression-sub010/internal/match"
	"github.com/hmcts/cpp-context-progression-sub010/internal/model"
	"github.com/hmcts/cpp-context-progression-sub010/internal/results"
)

// Options controls how matched scopes are reconciled.
type Options struct {
	// Results selects the result supersession rule. Nil means Wholesale.
	Results results.Mode

	// Sharing marks a result-sharing merge. In a sharing merge every
	// mentioned scope is reconciled even when it carries no results (which
	// deletes that day's results) and every touched defendant has its
	// ProceedingsConcluded marker cleared. Outside sharing, a scope with no
	// incoming results keeps its stored results untouched. An absent
	// judicialResults list counts as an empty one.
	Sharing bool
}

// Additive merges incoming cases into existing ones. Used by events that only
// add or update (hearing extension, defendant linkage, result sharing).
func Additive(existing, incoming []model.ProsecutionCase, opts Options) ([]model.ProsecutionCase, error) {
	return mergeList(existing, incoming, match.CaseID, "prosecutionCase", opts, Case)
}

// Case merges one incoming case node into the stored node with the same id.
func Case(existing, incoming model.ProsecutionCase, opts Options) (model.ProsecutionCase, error) {
	out := existing
	overwrite(&out.CaseStatus, incoming.CaseStatus)
	overwrite(&out.CPSOrganisation, incoming.CPSOrganisation)
	overwrite(&out.TrialReceiptType, incoming.TrialReceiptType)

	defs, err := Defendants(existing.Defendants, incoming.Defendants, opts)
	if err != nil {
		return model.ProsecutionCase{}, fmt.Errorf("case %s: %w", existing.ID, err)
	}
	out.Defendants = defs
	return out, nil
}

// Defendants merges a defendant list.
func Defendants(existing, incoming []model.Defendant, opts Options) ([]model.Defendant, error) {
	return mergeList(existing, incoming, match.DefendantID, "defendant", opts, Defendant)
}

// Defendant merges one defendant node.
func Defendant(existing, incoming model.Defendant, opts Options) (model.Defendant, error) {
	out := existing
	overwrite(&out.MasterDefendantID, incoming.MasterDefendantID)
	overwrite(&out.LegalAidStatus, incoming.LegalAidStatus)
	if opts.Sharing {
		out.ProceedingsConcluded = false
	} else {
		out.ProceedingsConcluded = existing.ProceedingsConcluded || incoming.ProceedingsConcluded
	}
	out.JudicialResults = reconcileScope(opts, existing.JudicialResults, incoming.JudicialResults)

	offs, err := Offences(existing.Offences, incoming.Offences, opts)
	if err != nil {
		return model.Defendant{}, fmt.Errorf("defendant %s: %w", existing.ID, err)
	}
	out.Offences = offs
	return out, nil
}

// Offences merges an offence list.
func Offences(existing, incoming []model.Offence, opts Options) ([]model.Offence, error) {
	return mergeList(existing, incoming, match.OffenceID, "offence", opts, Offence)
}

// Offence merges one offence node. The stored node is kept; only its wording
// and results change.
func Offence(existing, incoming model.Offence, opts Options) (model.Offence, error) {
	out := existing
	overwrite(&out.Wording, incoming.Wording)
	out.JudicialResults = reconcileScope(opts, existing.JudicialResults, incoming.JudicialResults)
	return out, nil
}

// Applications merges court applications on a hearing.
func Applications(existing, incoming []model.CourtApplication, opts Options) ([]model.CourtApplication, error) {
	return mergeList(existing, incoming, match.ApplicationID, "courtApplication", opts, application)
}

func application(existing, incoming model.CourtApplication, opts Options) (model.CourtApplication, error) {
	out := existing
	overwrite(&out.ApplicationStatus, incoming.ApplicationStatus)
	out.JudicialResults = reconcileScope(opts, existing.JudicialResults, incoming.JudicialResults)
	return out, nil
}

// Counsels merges defence counsel nodes and then drops removed ids.
// Represented defendants are unioned, keeping first-seen order.
func Counsels(existing, incoming []model.DefenceCounsel, removed []string) ([]model.DefenceCounsel, error) {
	merged, err := mergeList(existing, incoming, match.CounselID, "defenceCounsel", Options{}, counsel)
	if err != nil {
		return nil, err
	}
	if len(removed) == 0 {
		return merged, nil
	}
	drop := make(map[string]struct{}, len(removed))
	for _, id := range removed {
		drop[id] = struct{}{}
	}
	var out []model.DefenceCounsel
	for _, c := range merged {
		if _, ok := drop[c.ID]; !ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func counsel(existing, incoming model.DefenceCounsel, _ Options) (model.DefenceCounsel, error) {
	out := existing
	overwrite(&out.Name, incoming.Name)
	seen := make(map[string]struct{}, len(existing.DefendantIDs))
	out.DefendantIDs = nil
	for _, id := range append(append([]string(nil), existing.DefendantIDs...), incoming.DefendantIDs...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out.DefendantIDs = append(out.DefendantIDs, id)
	}
	return out, nil
}

// mergeList is the one merge shape shared by every level. New elements are
// merged against an empty node of their own identity so that their nested
// lists are normalized (deduplicated, filtered) the same way as matched ones.
func mergeList[T any](
	existing, incoming []T,
	id func(T) string,
	kind string,
	opts Options,
	mergeOne func(existing, incoming T, opts Options) (T, error),
) ([]T, error) {
	if len(incoming) == 0 {
		return existing, nil
	}

	part, err := match.Partition(existing, incoming, id, kind)
	if err != nil {
		return nil, err
	}

	out := make([]T, len(existing), len(existing)+len(part.New))
	copy(out, existing)
	for _, p := range part.Matched {
		merged, err := mergeOne(p.Existing, p.Incoming, opts)
		if err != nil {
			return nil, err
		}
		out[p.Index] = merged
	}
	for _, in := range part.New {
		var empty T
		fresh, err := mergeOne(withID(empty, in, id), in, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, fresh)
	}
	return out, nil
}

// withID returns the zero node carrying in's identity. Only the identity
// survives from in; every other field is produced by the merge.
func withID[T any](zero, in T, id func(T) string) T {
	switch z := any(&zero).(type) {
	case *model.ProsecutionCase:
		z.ID = id(in)
	case *model.Defendant:
		z.ID = id(in)
	case *model.Offence:
		z.ID = id(in)
	case *model.CourtApplication:
		z.ID = id(in)
	case *model.DefenceCounsel:
		z.ID = id(in)
	}
	return zero
}

func reconcileScope(opts Options, existing, incoming []model.JudicialResult) []model.JudicialResult {
	if !opts.Sharing && len(incoming) == 0 {
		return existing
	}
	mode := opts.Results
	if mode == nil {
		mode = results.Wholesale{}
	}
	return results.Reconcile(mode, existing, incoming)
}

func overwrite(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
