// Package master resolves the canonical identity of a defendant matched as a
// duplicate across cases.
//
// Resolution is pure: it picks the winning master defendant id and lists the
// (case, defendant) pairs that must carry it. Fetching and saving the owning
// documents is the orchestrator's job.
package master

import (
	"github.com/hmcts/cpp-context-progression-sub010/internal/model"
)

// Proposal is one "same real-world person" candidate gathered from another
// owning case.
type Proposal struct {
	CaseID            string `json:"caseId"`
	DefendantID       string `json:"defendantId"`
	MasterDefendantID string `json:"masterDefendantId,omitempty"`

	// ProceedingsInitiated is the day proceedings started on the proposal's
	// case. Unset when unknown.
	ProceedingsInitiated model.Day `json:"courtProceedingsInitiated,omitempty"`
}

// master returns the proposed master id, defaulting to the defendant id.
func (p Proposal) master() string {
	if p.MasterDefendantID != "" {
		return p.MasterDefendantID
	}
	return p.DefendantID
}

// Resolution is the outcome of Resolve.
type Resolution struct {
	// MasterDefendantID is the winning canonical identity.
	MasterDefendantID string

	// Winner is the proposal that won, or nil when the focal defendant's own
	// id won by fallback.
	Winner *Proposal

	// Targets are the pairs to update: the focal pair first, then each
	// proposal pair in input order, each pair exactly once.
	Targets []model.CaseDefendant
}

// Resolve picks the canonical master id for focal.
//
// Candidates are every proposal plus an implicit self-candidate (master =
// focal defendant id, no date). The candidate with the latest
// ProceedingsInitiated day wins. When no candidate carries a day the
// self-candidate wins. Ties on the latest day go to the lowest master id,
// then the lowest defendant id, then the lowest case id, so the outcome does
// not depend on proposal order.
func Resolve(focal model.CaseDefendant, proposals []Proposal) (Resolution, error) {
	if focal.CaseID == "" {
		return Resolution{}, model.MissingIdentity("prosecutionCase", "matched defendant focal pair")
	}
	if focal.DefendantID == "" {
		return Resolution{}, model.MissingIdentity("defendant", "matched defendant focal pair")
	}

	res := Resolution{MasterDefendantID: focal.DefendantID}
	seen := map[model.CaseDefendant]struct{}{focal: {}}
	res.Targets = append(res.Targets, focal)

	for i := range proposals {
		p := proposals[i]
		if p.CaseID == "" {
			return Resolution{}, model.MissingIdentity("prosecutionCase", "matched defendant proposal")
		}
		if p.DefendantID == "" {
			return Resolution{}, model.MissingIdentity("defendant", "matched defendant proposal")
		}

		pair := model.CaseDefendant{CaseID: p.CaseID, DefendantID: p.DefendantID}
		if _, dup := seen[pair]; !dup {
			seen[pair] = struct{}{}
			res.Targets = append(res.Targets, pair)
		}

		if p.ProceedingsInitiated.IsZero() {
			continue
		}
		if res.Winner == nil || beats(p, *res.Winner) {
			res.Winner = &proposals[i]
		}
	}

	if res.Winner != nil {
		res.MasterDefendantID = res.Winner.master()
	}
	return res, nil
}

// beats reports whether a outranks b. Both carry a day.
func beats(a, b Proposal) bool {
	if c := a.ProceedingsInitiated.Compare(b.ProceedingsInitiated); c != 0 {
		return c > 0
	}
	if a.master() != b.master() {
		return a.master() < b.master()
	}
	if a.DefendantID != b.DefendantID {
		return a.DefendantID < b.DefendantID
	}
	return a.CaseID < b.CaseID
}
