package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmcts/cpp-context-progression-sub010/internal/model"
)

func TestApplyIndexOps(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	err := s.ApplyIndexOps(ctx, []model.IndexOp{
		{Op: model.IndexInsert, Row: cdh("C1", "D1", "H1", "")},
		{Op: model.IndexInsert, Row: cdh("C1", "D1", "H2", "")},
		{Op: model.IndexInsert, Row: cdh("C2", "D2", "H1", "")},
	})
	require.NoError(t, err)

	rows, err := s.RowsByHearing(ctx, model.IndexCaseDefendantHearing, "H1")
	require.NoError(t, err)
	assert.Equal(t, []model.IndexRow{cdh("C1", "D1", "H1", ""), cdh("C2", "D2", "H1", "")}, rows)

	rows, err = s.RowsByPair(ctx, model.IndexCaseDefendantHearing, model.CaseDefendant{CaseID: "C1", DefendantID: "D1"})
	require.NoError(t, err)
	assert.Equal(t, []model.IndexRow{cdh("C1", "D1", "H1", ""), cdh("C1", "D1", "H2", "")}, rows)

	err = s.ApplyIndexOps(ctx, []model.IndexOp{
		{Op: model.IndexUpdate, Row: cdh("C1", "D1", "H1", "M1")},
		{Op: model.IndexDelete, Row: cdh("C1", "D1", "H2", "")},
	})
	require.NoError(t, err)

	rows, err = s.Rows(ctx, model.IndexCaseDefendantHearing)
	require.NoError(t, err)
	assert.Equal(t, []model.IndexRow{cdh("C1", "D1", "H1", "M1"), cdh("C2", "D2", "H1", "")}, rows)

	rows, err = s.RowsByMaster(ctx, model.IndexCaseDefendantHearing, "M1")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestApplyIndexOps_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	ops := []model.IndexOp{
		{Op: model.IndexInsert, Row: cdh("C1", "D1", "H1", "M")},
		{Op: model.IndexDelete, Row: cdh("C9", "D9", "H9", "")},
	}

	require.NoError(t, s.ApplyIndexOps(ctx, ops))
	require.NoError(t, s.ApplyIndexOps(ctx, ops), "re-applying inserts and deletes is safe")

	rows, err := s.Rows(ctx, model.IndexCaseDefendantHearing)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestIndexRows_MatchRowWithoutHearing(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	row := model.IndexRow{Kind: model.IndexMatchDefendantCaseHearing, CaseID: "C1", DefendantID: "D1", MasterDefendantID: "M"}

	require.NoError(t, s.ApplyIndexOps(ctx, []model.IndexOp{{Op: model.IndexInsert, Row: row}}))

	rows, err := s.RowsByPair(ctx, model.IndexMatchDefendantCaseHearing, row.Pair())
	require.NoError(t, err)
	assert.Equal(t, []model.IndexRow{row}, rows)

	none, err := s.RowsByPair(ctx, model.IndexCaseDefendantHearing, row.Pair())
	require.NoError(t, err)
	assert.Empty(t, none, "kinds are separate")
}

func TestApplyIndexOps_UnknownOpRollsBack(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	err := s.ApplyIndexOps(ctx, []model.IndexOp{
		{Op: model.IndexInsert, Row: cdh("C1", "D1", "H1", "")},
		{Op: "upsert", Row: cdh("C2", "D2", "H1", "")},
	})
	require.Error(t, err)

	rows, err := s.Rows(ctx, model.IndexCaseDefendantHearing)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
