package merge

import (
	"fmt"

	"github.com/hmcts/cpp-context-progression-sub010/internal/model"
)

// Removal names one chain to prune. The deepest set field is the leaf:
//
//	{CaseID}                         removes the case
//	{CaseID, DefendantID}            removes the defendant from the case
//	{CaseID, DefendantID, OffenceID} removes the offence from the defendant
//
// A node emptied by pruning its named children is removed as well, walking
// up the named chain only. Siblings that are not named are never touched.
type Removal struct {
	CaseID      string `json:"caseId"`
	DefendantID string `json:"defendantId,omitempty"`
	OffenceID   string `json:"offenceId,omitempty"`
}

func (r Removal) validate() error {
	if r.CaseID == "" {
		return model.MissingIdentity("prosecutionCase", "removal")
	}
	if r.OffenceID != "" && r.DefendantID == "" {
		return model.MissingIdentity("defendant", fmt.Sprintf("removal of offence %s", r.OffenceID))
	}
	return nil
}

// ReplaceSubset prunes the named chains and then merges incoming additively.
// Used by partial-allocation reallocation, where one event both moves some
// offences away and lists others.
func ReplaceSubset(existing, incoming []model.ProsecutionCase, removals []Removal, opts Options) ([]model.ProsecutionCase, error) {
	pruned, err := Prune(existing, removals)
	if err != nil {
		return nil, err
	}
	return Additive(pruned, incoming, opts)
}

type defendantCut struct {
	whole    bool
	offences map[string]struct{}
}

type caseCut struct {
	whole      bool
	defendants map[string]*defendantCut
}

// Prune removes the named chains from cases. The input is not mutated.
func Prune(cases []model.ProsecutionCase, removals []Removal) ([]model.ProsecutionCase, error) {
	if len(removals) == 0 {
		return cases, nil
	}

	cuts := make(map[string]*caseCut, len(removals))
	for _, r := range removals {
		if err := r.validate(); err != nil {
			return nil, err
		}
		cc, ok := cuts[r.CaseID]
		if !ok {
			cc = &caseCut{defendants: map[string]*defendantCut{}}
			cuts[r.CaseID] = cc
		}
		if r.DefendantID == "" {
			cc.whole = true
			continue
		}
		dc, ok := cc.defendants[r.DefendantID]
		if !ok {
			dc = &defendantCut{offences: map[string]struct{}{}}
			cc.defendants[r.DefendantID] = dc
		}
		if r.OffenceID == "" {
			dc.whole = true
			continue
		}
		dc.offences[r.OffenceID] = struct{}{}
	}

	out := make([]model.ProsecutionCase, 0, len(cases))
	for _, c := range cases {
		cc, named := cuts[c.ID]
		if !named {
			out = append(out, c)
			continue
		}
		if cc.whole {
			continue
		}
		defs, removedAny := pruneDefendants(c.Defendants, cc.defendants)
		if removedAny && len(defs) == 0 {
			continue
		}
		c.Defendants = defs
		out = append(out, c)
	}
	return out, nil
}

func pruneDefendants(defs []model.Defendant, cuts map[string]*defendantCut) ([]model.Defendant, bool) {
	var out []model.Defendant
	removedAny := false
	for _, d := range defs {
		dc, named := cuts[d.ID]
		if !named {
			out = append(out, d)
			continue
		}
		if dc.whole {
			removedAny = true
			continue
		}
		var offs []model.Offence
		removedOffence := false
		for _, o := range d.Offences {
			if _, ok := dc.offences[o.ID]; ok {
				removedOffence = true
				continue
			}
			offs = append(offs, o)
		}
		if removedOffence && len(offs) == 0 {
			removedAny = true
			continue
		}
		d.Offences = offs
		out = append(out, d)
	}
	return out, removedAny
}
