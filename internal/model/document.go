package model

// Hearing is the root aggregate for one scheduled sitting.
//
// A Hearing is owned by the reconciler: it is created by an external insert
// and afterwards only mutated by reconciliation. It is never deleted here.
type Hearing struct {
	ID                       string                    `json:"id"`
	ListingStatus            ListingStatus             `json:"listingStatus,omitempty"`
	ProsecutionCases         []ProsecutionCase         `json:"prosecutionCases,omitempty"`
	CourtApplications        []CourtApplication        `json:"courtApplications,omitempty"`
	DefendantJudicialResults []DefendantJudicialResult `json:"defendantJudicialResults,omitempty"`
	DefenceCounsels          []DefenceCounsel          `json:"defenceCounsels,omitempty"`
}

// ProsecutionCase is embedded in a Hearing and is also persisted standalone
// as the ProsecutionCase document.
type ProsecutionCase struct {
	ID               string      `json:"id"`
	CaseStatus       string      `json:"caseStatus,omitempty"`
	CPSOrganisation  string      `json:"cpsOrganisation,omitempty"`
	TrialReceiptType string      `json:"trialReceiptType,omitempty"`
	Defendants       []Defendant `json:"defendants,omitempty"`
}

// Inactive reports whether the case is in a closed state. Inactive cases are
// only touched by master-identity propagation when explicitly requested.
func (c *ProsecutionCase) Inactive() bool {
	switch c.CaseStatus {
	case CaseStatusInactive, CaseStatusClosed:
		return true
	}
	return false
}

// Case status values with reconciliation meaning. Other values are carried
// verbatim.
const (
	CaseStatusActive   = "ACTIVE"
	CaseStatusInactive = "INACTIVE"
	CaseStatusClosed   = "CLOSED"
)

// Defendant is a defendant within one case.
type Defendant struct {
	ID                string `json:"id"`
	MasterDefendantID string `json:"masterDefendantId,omitempty"`
	LegalAidStatus    string `json:"legalAidStatus,omitempty"`

	// ProceedingsConcluded is a transient marker set by upstream case
	// processing. Any result-sharing merge that touches this defendant clears
	// it; additive merges leave it alone.
	ProceedingsConcluded bool `json:"proceedingsConcluded,omitempty"`

	JudicialResults []JudicialResult `json:"judicialResults,omitempty"`
	Offences        []Offence        `json:"offences,omitempty"`
}

// Offence is one charge against a defendant.
type Offence struct {
	ID              string           `json:"id"`
	Wording         string           `json:"wording,omitempty"`
	JudicialResults []JudicialResult `json:"judicialResults,omitempty"`
}

// JudicialResult is one result pronounced by the court.
type JudicialResult struct {
	ID             string `json:"id"`
	Label          string `json:"label,omitempty"`
	OrderedDate    Day    `json:"orderedDate,omitempty"`
	IsNewAmendment bool   `json:"isNewAmendment,omitempty"`

	// PublishedForNows marks a result destined for notice generation. Such
	// results are never stored in a document.
	PublishedForNows bool `json:"publishedForNows,omitempty"`
}

// DefendantJudicialResult is a hearing-level result not tied to an offence.
type DefendantJudicialResult struct {
	MasterDefendantID string         `json:"masterDefendantId,omitempty"`
	DefendantID       string         `json:"defendantId"`
	JudicialResult    JudicialResult `json:"judicialResult"`
}

// CourtApplication is an application heard alongside the cases.
type CourtApplication struct {
	ID                string           `json:"id"`
	ApplicationStatus string           `json:"applicationStatus,omitempty"`
	JudicialResults   []JudicialResult `json:"judicialResults,omitempty"`
}

// DefenceCounsel is counsel attending the hearing.
type DefenceCounsel struct {
	ID           string   `json:"id"`
	Name         string   `json:"name,omitempty"`
	DefendantIDs []string `json:"defendantIds,omitempty"`
}

// CaseDefendant identifies a defendant within a case. It is the unit of
// secondary indexing and of master-identity propagation.
type CaseDefendant struct {
	CaseID      string `json:"caseId"`
	DefendantID string `json:"defendantId"`
}

// Pairs returns every (case, defendant) pair present in the hearing, in
// document order.
func (h *Hearing) Pairs() []CaseDefendant {
	var pairs []CaseDefendant
	for _, c := range h.ProsecutionCases {
		for _, d := range c.Defendants {
			pairs = append(pairs, CaseDefendant{CaseID: c.ID, DefendantID: d.ID})
		}
	}
	return pairs
}

// Case returns a pointer to the embedded case with the given id, or nil.
func (h *Hearing) Case(id string) *ProsecutionCase {
	for i := range h.ProsecutionCases {
		if h.ProsecutionCases[i].ID == id {
			return &h.ProsecutionCases[i]
		}
	}
	return nil
}

// Defendant returns a pointer to the defendant with the given id, or nil.
func (c *ProsecutionCase) Defendant(id string) *Defendant {
	for i := range c.Defendants {
		if c.Defendants[i].ID == id {
			return &c.Defendants[i]
		}
	}
	return nil
}
