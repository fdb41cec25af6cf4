package reconcile

import (
	"context"
	"io"
	"log/slog"

	"github.com/hmcts/cpp-context-progression-sub010/internal/model"
)

type fakeDocs struct {
	hearings map[string]*model.Hearing
	cases    map[string]*model.ProsecutionCase
}

func newFakeDocs() *fakeDocs {
	return &fakeDocs{
		hearings: make(map[string]*model.Hearing),
		cases:    make(map[string]*model.ProsecutionCase),
	}
}

func (f *fakeDocs) addHearing(h *model.Hearing)      { f.hearings[h.ID] = h }
func (f *fakeDocs) addCase(c *model.ProsecutionCase) { f.cases[c.ID] = c }

func (f *fakeDocs) Hearing(_ context.Context, id string) (*model.Hearing, error) {
	h, ok := f.hearings[id]
	if !ok {
		return nil, model.NotFound("hearing", id)
	}
	return h, nil
}

func (f *fakeDocs) ProsecutionCase(_ context.Context, id string) (*model.ProsecutionCase, error) {
	c, ok := f.cases[id]
	if !ok {
		return nil, model.NotFound("prosecutionCase", id)
	}
	return c, nil
}

type fakeIndex struct {
	rows []model.IndexRow
}

func (f *fakeIndex) RowsByHearing(_ context.Context, kind model.IndexKind, hearingID string) ([]model.IndexRow, error) {
	var out []model.IndexRow
	for _, r := range f.rows {
		if r.Kind == kind && r.HearingID == hearingID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeIndex) RowsByPair(_ context.Context, kind model.IndexKind, pair model.CaseDefendant) ([]model.IndexRow, error) {
	var out []model.IndexRow
	for _, r := range f.rows {
		if r.Kind == kind && r.Pair() == pair {
			out = append(out, r)
		}
	}
	return out, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestReconciler(docs *fakeDocs, idx *fakeIndex) *Reconciler {
	return New(docs, idx, WithLogger(quietLogger()))
}

func cdhRow(caseID, defID, hearingID string) model.IndexRow {
	return model.IndexRow{Kind: model.IndexCaseDefendantHearing, CaseID: caseID, DefendantID: defID, HearingID: hearingID}
}

func mdchRow(caseID, defID, hearingID, masterID string) model.IndexRow {
	return model.IndexRow{Kind: model.IndexMatchDefendantCaseHearing, CaseID: caseID, DefendantID: defID, HearingID: hearingID, MasterDefendantID: masterID}
}

func ofKind(rows []model.IndexRow, kind model.IndexKind) []model.IndexRow {
	var out []model.IndexRow
	for _, r := range rows {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

func opsOf(ops []model.IndexOp, typ model.IndexOpType) []model.IndexRow {
	var out []model.IndexRow
	for _, op := range ops {
		if op.Op == typ {
			out = append(out, op.Row)
		}
	}
	return out
}

func hearingIDs(hs []*model.Hearing) []string {
	var ids []string
	for _, h := range hs {
		ids = append(ids, h.ID)
	}
	return ids
}

func caseIDs(cs []*model.ProsecutionCase) []string {
	var ids []string
	for _, c := range cs {
		ids = append(ids, c.ID)
	}
	return ids
}

func find(hs []*model.Hearing, id string) *model.Hearing {
	for _, h := range hs {
		if h.ID == id {
			return h
		}
	}
	return nil
}

func result(id, day string) model.JudicialResult {
	return model.JudicialResult{ID: id, Label: id, OrderedDate: model.Day(day)}
}

func resultIDs(rs []model.JudicialResult) []string {
	var ids []string
	for _, r := range rs {
		ids = append(ids, r.ID)
	}
	return ids
}
