package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hmcts/cpp-context-progression-sub010/internal/model"
	"github.com/hmcts/cpp-context-progression-sub010/internal/store"
)

// OpenStore opens a store in a temp dir, closed when the test ends.
func OpenStore(t testing.TB) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// SeedDB writes hearings into a fresh database file and returns its path.
// The store is closed again so commands under test can open it.
func SeedDB(t testing.TB, hearings ...*model.Hearing) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "progression.db")
	s, err := store.Open(path)
	require.NoError(t, err)
	for _, h := range hearings {
		_, err := s.SaveHearing(context.Background(), h)
		require.NoError(t, err)
	}
	require.NoError(t, s.Close())
	return path
}

// Hearing builds a HEARING_INITIALISED hearing holding one defendant per
// pair.
func Hearing(id string, pairs ...model.CaseDefendant) *model.Hearing {
	h := &model.Hearing{ID: id, ListingStatus: model.StatusHearingInitialised}
	for _, p := range pairs {
		c := h.Case(p.CaseID)
		if c == nil {
			h.ProsecutionCases = append(h.ProsecutionCases, model.ProsecutionCase{
				ID:         p.CaseID,
				CaseStatus: model.CaseStatusActive,
			})
			c = &h.ProsecutionCases[len(h.ProsecutionCases)-1]
		}
		c.Defendants = append(c.Defendants, model.Defendant{ID: p.DefendantID})
	}
	return h
}
