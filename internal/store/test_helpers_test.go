package store

import (
	"path/filepath"
	"testing"

	"github.com/hmcts/cpp-context-progression-sub010/internal/event"
	"github.com/hmcts/cpp-context-progression-sub010/internal/model"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// testHearing creates a hearing with one case and one defendant.
func testHearing(id, caseID, defendantID string) *model.Hearing {
	return &model.Hearing{
		ID:            id,
		ListingStatus: model.StatusHearingInitialised,
		ProsecutionCases: []model.ProsecutionCase{{
			ID:         caseID,
			CaseStatus: model.CaseStatusActive,
			Defendants: []model.Defendant{{ID: defendantID}},
		}},
	}
}

// testEnvelope creates an envelope with a fixed id.
func testEnvelope(t *testing.T, id string, p event.Payload) event.Envelope {
	t.Helper()
	env, err := event.New(p)
	if err != nil {
		t.Fatalf("event.New() failed: %v", err)
	}
	env.ID = id
	return env
}

func cdh(caseID, defID, hearingID, masterID string) model.IndexRow {
	return model.IndexRow{
		Kind:              model.IndexCaseDefendantHearing,
		CaseID:            caseID,
		DefendantID:       defID,
		HearingID:         hearingID,
		MasterDefendantID: masterID,
	}
}
