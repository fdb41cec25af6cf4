package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmcts/cpp-context-progression-sub010/internal/model"
)

func TestHearing_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.Hearing(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, model.IsNotFound(err))
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = s.ProsecutionCase(context.Background(), "missing")
	assert.True(t, model.IsNotFound(err))
}

func TestSaveHearing_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	h := testHearing("H1", "C1", "D1")
	h.ProsecutionCases[0].Defendants[0].Offences = []model.Offence{{
		ID:              "O1",
		Wording:         "Théft <of> goods",
		JudicialResults: []model.JudicialResult{{ID: "R1", Label: "Fine", OrderedDate: "2021-04-05"}},
	}}

	changed, err := s.SaveHearing(ctx, h)
	require.NoError(t, err)
	assert.True(t, changed)

	got, err := s.Hearing(ctx, "H1")
	require.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestSaveHearing_SkipsUnchanged(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	h := testHearing("H1", "C1", "D1")

	changed, err := s.SaveHearing(ctx, h)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = s.SaveHearing(ctx, h)
	require.NoError(t, err)
	assert.False(t, changed, "identical content is not rewritten")

	h.ListingStatus = model.StatusHearingResulted
	changed, err = s.SaveHearing(ctx, h)
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestSaveProsecutionCase_HashMatchesContent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	c := &model.ProsecutionCase{ID: "C1", CaseStatus: model.CaseStatusActive}

	_, err := s.SaveProsecutionCase(ctx, c)
	require.NoError(t, err)

	want, err := model.ContentHash(model.DomainProsecutionCase, c)
	require.NoError(t, err)
	got, seq, err := s.documentHash(ctx, "prosecution_cases", "C1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, int64(0), seq)
}

func TestSave_RequiresIdentity(t *testing.T) {
	s := createTestStore(t)

	_, err := s.SaveHearing(context.Background(), &model.Hearing{})
	assert.True(t, model.IsMalformed(err))

	_, err = s.SaveProsecutionCase(context.Background(), &model.ProsecutionCase{})
	assert.True(t, model.IsMalformed(err))
}

func TestListings_OrderedByID(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"H2", "H10", "H1"} {
		_, err := s.SaveHearing(ctx, &model.Hearing{ID: id})
		require.NoError(t, err)
		_, err = s.SaveProsecutionCase(ctx, &model.ProsecutionCase{ID: "C-" + id})
		require.NoError(t, err)
	}

	hearings, err := s.Hearings(ctx)
	require.NoError(t, err)
	var ids []string
	for _, h := range hearings {
		ids = append(ids, h.ID)
	}
	assert.Equal(t, []string{"H1", "H10", "H2"}, ids)

	cases, err := s.ProsecutionCases(ctx)
	require.NoError(t, err)
	assert.Len(t, cases, 3)
	assert.Equal(t, "C-H1", cases[0].ID)
}
