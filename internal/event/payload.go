package event

import (
	"github.com/hmcts/cpp-context-progression-sub010/internal/master"
	"github.com/hmcts/cpp-context-progression-sub010/internal/merge"
	"github.com/hmcts/cpp-context-progression-sub010/internal/model"
)

// HearingResulted shares results for a hearing.
type HearingResulted struct {
	HearingID string `json:"hearingId"`

	// HearingDay selects day-scoped supersession. Events raised before
	// day-scoped sharing existed leave it empty and replace results
	// wholesale.
	HearingDay model.Day `json:"hearingDay,omitempty"`

	ProsecutionCases         []model.ProsecutionCase         `json:"prosecutionCases,omitempty"`
	DefendantJudicialResults []model.DefendantJudicialResult `json:"defendantJudicialResults,omitempty"`
	CourtApplications        []model.CourtApplication        `json:"courtApplications,omitempty"`
}

func (*HearingResulted) Kind() Kind    { return KindHearingResulted }
func (e *HearingResulted) Key() string { return e.HearingID }

func (e *HearingResulted) Validate() []ValidationError {
	var c checker
	c.require("hearingId", e.HearingID)
	c.day("hearingDay", e.HearingDay)
	c.cases("prosecutionCases", e.ProsecutionCases)
	c.defendantResults("defendantJudicialResults", e.DefendantJudicialResults)
	c.applications("courtApplications", e.CourtApplications)
	return c.errs
}

// ProsecutionCaseResulted shares results for one case across every hearing
// it is listed on.
type ProsecutionCaseResulted struct {
	CaseID     string            `json:"caseId"`
	CaseStatus string            `json:"caseStatus,omitempty"`
	HearingIDs []string          `json:"hearingIds,omitempty"`
	HearingDay model.Day         `json:"hearingDay,omitempty"`
	Defendants []model.Defendant `json:"defendants,omitempty"`
}

func (*ProsecutionCaseResulted) Kind() Kind    { return KindProsecutionCaseResulted }
func (e *ProsecutionCaseResulted) Key() string { return e.CaseID }

func (e *ProsecutionCaseResulted) Validate() []ValidationError {
	var c checker
	c.require("caseId", e.CaseID)
	c.ids("hearingIds", e.HearingIDs)
	c.day("hearingDay", e.HearingDay)
	c.defendants("defendants", e.Defendants)
	return c.errs
}

// Case returns the case delta carried by the event.
func (e *ProsecutionCaseResulted) Case() model.ProsecutionCase {
	return model.ProsecutionCase{ID: e.CaseID, CaseStatus: e.CaseStatus, Defendants: e.Defendants}
}

// HearingExtended adds cases to a hearing, possibly moving them from a prior
// hearing.
type HearingExtended struct {
	HearingID             string                  `json:"hearingId"`
	ExtendedFromHearingID string                  `json:"extendedFromHearingId,omitempty"`
	ProsecutionCases      []model.ProsecutionCase `json:"prosecutionCases,omitempty"`

	// IsAdjourned and IsPartiallyAllocated describe the prior hearing. When
	// either is set the moved pairs stay active on the prior hearing.
	IsAdjourned          bool `json:"isAdjourned,omitempty"`
	IsPartiallyAllocated bool `json:"isPartiallyAllocated,omitempty"`
}

func (*HearingExtended) Kind() Kind    { return KindHearingExtended }
func (e *HearingExtended) Key() string { return e.HearingID }

func (e *HearingExtended) Validate() []ValidationError {
	var c checker
	c.require("hearingId", e.HearingID)
	c.cases("prosecutionCases", e.ProsecutionCases)
	return c.errs
}

// HearingReallocated moves part of a hearing's cases elsewhere: the removals
// are pruned and the remaining delta merged additively.
type HearingReallocated struct {
	HearingID        string                  `json:"hearingId"`
	ProsecutionCases []model.ProsecutionCase `json:"prosecutionCases,omitempty"`
	Removals         []merge.Removal         `json:"removals,omitempty"`
}

func (*HearingReallocated) Kind() Kind    { return KindHearingReallocated }
func (e *HearingReallocated) Key() string { return e.HearingID }

func (e *HearingReallocated) Validate() []ValidationError {
	var c checker
	c.require("hearingId", e.HearingID)
	c.cases("prosecutionCases", e.ProsecutionCases)
	c.removals("removals", e.Removals)
	return c.errs
}

// DefendantsAdded links new defendants to a case and to the hearings the
// case is listed on.
type DefendantsAdded struct {
	CaseID     string            `json:"caseId"`
	Defendants []model.Defendant `json:"defendants"`
	HearingIDs []string          `json:"hearingIds,omitempty"`
}

func (*DefendantsAdded) Kind() Kind    { return KindDefendantsAdded }
func (e *DefendantsAdded) Key() string { return e.CaseID }

func (e *DefendantsAdded) Validate() []ValidationError {
	var c checker
	c.require("caseId", e.CaseID)
	c.ids("hearingIds", e.HearingIDs)
	c.defendants("defendants", e.Defendants)
	return c.errs
}

// DefendantsMatched declares defendants on other cases to be the same person
// as the focal defendant.
type DefendantsMatched struct {
	CaseID      string `json:"caseId"`
	DefendantID string `json:"defendantId"`

	// ProcessInactiveCase allows updating cases that are inactive or closed.
	ProcessInactiveCase bool `json:"processInactiveCase,omitempty"`

	MatchedDefendants []master.Proposal `json:"matchedDefendants,omitempty"`
}

func (*DefendantsMatched) Kind() Kind    { return KindDefendantsMatched }
func (e *DefendantsMatched) Key() string { return e.CaseID }

func (e *DefendantsMatched) Validate() []ValidationError {
	var c checker
	c.require("caseId", e.CaseID)
	c.require("defendantId", e.DefendantID)
	c.proposals("matchedDefendants", e.MatchedDefendants)
	return c.errs
}

// Focal returns the focal (case, defendant) pair.
func (e *DefendantsMatched) Focal() model.CaseDefendant {
	return model.CaseDefendant{CaseID: e.CaseID, DefendantID: e.DefendantID}
}

// DefenceCounselChanged adds, updates and removes defence counsel on a
// hearing.
type DefenceCounselChanged struct {
	HearingID  string                 `json:"hearingId"`
	Added      []model.DefenceCounsel `json:"added,omitempty"`
	RemovedIDs []string               `json:"removedIds,omitempty"`
}

func (*DefenceCounselChanged) Kind() Kind    { return KindDefenceCounselChanged }
func (e *DefenceCounselChanged) Key() string { return e.HearingID }

func (e *DefenceCounselChanged) Validate() []ValidationError {
	var c checker
	c.require("hearingId", e.HearingID)
	c.ids("removedIds", e.RemovedIDs)
	for i, dc := range e.Added {
		c.require(at("added", i, "id"), dc.ID)
	}
	return c.errs
}

// ListingStatusChanged proposes a new listing status for a hearing.
type ListingStatusChanged struct {
	HearingID     string              `json:"hearingId"`
	ListingStatus model.ListingStatus `json:"listingStatus"`
}

func (*ListingStatusChanged) Kind() Kind    { return KindListingStatusChanged }
func (e *ListingStatusChanged) Key() string { return e.HearingID }

func (e *ListingStatusChanged) Validate() []ValidationError {
	var c checker
	c.require("hearingId", e.HearingID)
	c.require("listingStatus", string(e.ListingStatus))
	return c.errs
}
