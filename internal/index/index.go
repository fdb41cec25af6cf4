// Package index keeps the secondary-index rows consistent with document
// membership.
//
// Every function derives the desired row set from the current documents and
// diffs it against the stored rows: missing rows are inserted, rows whose
// cached master id changed are updated, rows no document supports any more
// are deleted, and identical rows produce no operation.
package index

import (
	"github.com/hmcts/cpp-context-progression-sub010/internal/model"
)

// HearingRows returns one CaseDefendantHearing row per (case, defendant)
// pair in the hearing, in document order.
func HearingRows(h *model.Hearing) []model.IndexRow {
	var rows []model.IndexRow
	seen := make(map[model.IndexKey]struct{})
	for _, c := range h.ProsecutionCases {
		for _, d := range c.Defendants {
			row := model.IndexRow{
				Kind:              model.IndexCaseDefendantHearing,
				CaseID:            c.ID,
				DefendantID:       d.ID,
				HearingID:         h.ID,
				MasterDefendantID: d.MasterDefendantID,
			}
			if _, dup := seen[row.Key()]; dup {
				continue
			}
			seen[row.Key()] = struct{}{}
			rows = append(rows, row)
		}
	}
	return rows
}

// Diff returns the operations that turn stored into desired. Stored rows
// for which retain returns true are never deleted; retain may be nil.
//
// Inserts and updates come first in desired order, then deletes in stored
// order.
func Diff(desired, stored []model.IndexRow, retain func(model.IndexRow) bool) []model.IndexOp {
	have := make(map[model.IndexKey]model.IndexRow, len(stored))
	for _, r := range stored {
		have[r.Key()] = r
	}

	var ops []model.IndexOp
	want := make(map[model.IndexKey]struct{}, len(desired))
	for _, r := range desired {
		if _, dup := want[r.Key()]; dup {
			continue
		}
		want[r.Key()] = struct{}{}

		cur, ok := have[r.Key()]
		switch {
		case !ok:
			ops = append(ops, model.IndexOp{Op: model.IndexInsert, Row: r})
		case cur.MasterDefendantID != r.MasterDefendantID:
			ops = append(ops, model.IndexOp{Op: model.IndexUpdate, Row: r})
		}
	}

	deleted := make(map[model.IndexKey]struct{})
	for _, r := range stored {
		if _, ok := want[r.Key()]; ok {
			continue
		}
		if _, done := deleted[r.Key()]; done {
			continue
		}
		if retain != nil && retain(r) {
			continue
		}
		deleted[r.Key()] = struct{}{}
		ops = append(ops, model.IndexOp{Op: model.IndexDelete, Row: r})
	}
	return ops
}

// SyncHearing diffs the CaseDefendantHearing rows of one hearing. stored
// must hold the rows currently stored for h.ID; rows of other hearings or
// kinds are ignored.
func SyncHearing(h *model.Hearing, stored []model.IndexRow) []model.IndexOp {
	return Diff(HearingRows(h), only(stored, model.IndexCaseDefendantHearing, h.ID), nil)
}

// Extension describes a hearing extended from a prior hearing.
type Extension struct {
	// Target is the extended hearing after merge.
	Target *model.Hearing

	// PriorHearingID is the hearing the cases moved from. Empty when the
	// extension has no origin.
	PriorHearingID string

	// Moved are the (case, defendant) pairs carried by the extension.
	Moved []model.CaseDefendant

	// RetainPrior keeps the prior hearing's rows; set when the prior
	// hearing was adjourned or partially allocated, because the pair is
	// still active there.
	RetainPrior bool
}

// SyncExtension returns the index operations for a hearing extension:
// the target hearing's rows are synced and the prior hearing's rows for the
// moved pairs are deleted unless RetainPrior is set.
func SyncExtension(ext Extension, storedTarget, storedPrior []model.IndexRow) []model.IndexOp {
	ops := SyncHearing(ext.Target, storedTarget)
	if ext.PriorHearingID == "" || ext.RetainPrior || ext.PriorHearingID == ext.Target.ID {
		return ops
	}

	moved := make(map[model.CaseDefendant]struct{}, len(ext.Moved))
	for _, p := range ext.Moved {
		moved[p] = struct{}{}
	}
	for _, r := range only(storedPrior, model.IndexCaseDefendantHearing, ext.PriorHearingID) {
		if _, ok := moved[r.Pair()]; ok {
			ops = append(ops, model.IndexOp{Op: model.IndexDelete, Row: r})
		}
	}
	return ops
}

// MatchRows returns the desired MatchDefendantCaseHearing rows for pair:
// one per hearing holding the pair, or a single row without hearing when the
// pair is not listed anywhere.
func MatchRows(pair model.CaseDefendant, masterID string, hearingIDs []string) []model.IndexRow {
	row := model.IndexRow{
		Kind:              model.IndexMatchDefendantCaseHearing,
		CaseID:            pair.CaseID,
		DefendantID:       pair.DefendantID,
		MasterDefendantID: masterID,
	}
	if len(hearingIDs) == 0 {
		return []model.IndexRow{row}
	}
	rows := make([]model.IndexRow, 0, len(hearingIDs))
	seen := make(map[string]struct{}, len(hearingIDs))
	for _, id := range hearingIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		r := row
		r.HearingID = id
		rows = append(rows, r)
	}
	return rows
}

// SyncMatch diffs the MatchDefendantCaseHearing rows of one pair. Rows left
// over from an earlier master id are updated in place or deleted.
func SyncMatch(pair model.CaseDefendant, masterID string, hearingIDs []string, stored []model.IndexRow) []model.IndexOp {
	var mine []model.IndexRow
	for _, r := range stored {
		if r.Kind == model.IndexMatchDefendantCaseHearing && r.Pair() == pair {
			mine = append(mine, r)
		}
	}
	return Diff(MatchRows(pair, masterID, hearingIDs), mine, nil)
}

// Repoint returns update operations moving the cached master id of every
// stored CaseDefendantHearing row of pair to masterID.
func Repoint(pair model.CaseDefendant, masterID string, stored []model.IndexRow) []model.IndexOp {
	var ops []model.IndexOp
	for _, r := range stored {
		if r.Kind != model.IndexCaseDefendantHearing || r.Pair() != pair || r.MasterDefendantID == masterID {
			continue
		}
		r.MasterDefendantID = masterID
		ops = append(ops, model.IndexOp{Op: model.IndexUpdate, Row: r})
	}
	return ops
}

// HearingIDs returns the distinct hearing ids of rows, in row order.
func HearingIDs(rows []model.IndexRow) []string {
	var ids []string
	seen := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		if r.HearingID == "" {
			continue
		}
		if _, ok := seen[r.HearingID]; ok {
			continue
		}
		seen[r.HearingID] = struct{}{}
		ids = append(ids, r.HearingID)
	}
	return ids
}

func only(rows []model.IndexRow, kind model.IndexKind, hearingID string) []model.IndexRow {
	var out []model.IndexRow
	for _, r := range rows {
		if r.Kind == kind && r.HearingID == hearingID {
			out = append(out, r)
		}
	}
	return out
}
