package model

// IndexKind distinguishes the two secondary-index row shapes.
type IndexKind string

const (
	// IndexCaseDefendantHearing maps a (case, defendant) pair to each
	// hearing whose document contains it.
	IndexCaseDefendantHearing IndexKind = "CASE_DEFENDANT_HEARING"

	// IndexMatchDefendantCaseHearing records the resolved master identity of
	// a (case, defendant) pair per hearing. HearingID is empty when the pair
	// is not listed on any hearing; such a row carries no hearing membership
	// and is replaced once the pair is listed.
	IndexMatchDefendantCaseHearing IndexKind = "MATCH_DEFENDANT_CASE_HEARING"
)

// IndexRow is a denormalized pointer record.
type IndexRow struct {
	Kind              IndexKind `json:"kind"`
	CaseID            string    `json:"caseId"`
	DefendantID       string    `json:"defendantId"`
	HearingID         string    `json:"hearingId"`
	MasterDefendantID string    `json:"masterDefendantId,omitempty"`
}

// Key returns the composite identity of the row.
func (r IndexRow) Key() IndexKey {
	return IndexKey{Kind: r.Kind, CaseID: r.CaseID, DefendantID: r.DefendantID, HearingID: r.HearingID}
}

// Pair returns the (case, defendant) part of the key.
func (r IndexRow) Pair() CaseDefendant {
	return CaseDefendant{CaseID: r.CaseID, DefendantID: r.DefendantID}
}

// IndexKey is the composite key (kind, case, defendant, hearing).
type IndexKey struct {
	Kind        IndexKind
	CaseID      string
	DefendantID string
	HearingID   string
}

// IndexOpType is the mutation applied to an index row.
type IndexOpType string

const (
	IndexInsert IndexOpType = "insert"
	IndexUpdate IndexOpType = "update"
	IndexDelete IndexOpType = "delete"
)

// IndexOp is one index mutation to persist.
type IndexOp struct {
	Op  IndexOpType `json:"op"`
	Row IndexRow    `json:"row"`
}
