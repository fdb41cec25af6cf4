package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmcts/cpp-context-progression-sub010/internal/model"
)

func allocated() []model.ProsecutionCase {
	return []model.ProsecutionCase{
		prosecutionCase("C1",
			defendant("D1", offence("O1"), offence("O2")),
			defendant("D2", offence("O3")),
		),
		prosecutionCase("C2", defendant("D3", offence("O4"))),
	}
}

func TestPrune_Offence(t *testing.T) {
	got, err := Prune(allocated(), []Removal{{CaseID: "C1", DefendantID: "D1", OffenceID: "O1"}})
	require.NoError(t, err)

	require.Len(t, got, 2)
	require.Len(t, got[0].Defendants, 2)
	require.Len(t, got[0].Defendants[0].Offences, 1)
	assert.Equal(t, "O2", got[0].Defendants[0].Offences[0].ID)
}

func TestPrune_LastOffenceCascadesUpNamedChain(t *testing.T) {
	got, err := Prune(allocated(), []Removal{{CaseID: "C1", DefendantID: "D2", OffenceID: "O3"}})
	require.NoError(t, err)
	require.Len(t, got[0].Defendants, 1)
	assert.Equal(t, "D1", got[0].Defendants[0].ID)

	got, err = Prune(allocated(), []Removal{{CaseID: "C2", DefendantID: "D3", OffenceID: "O4"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"C1"}, caseIDs(got))
}

func TestPrune_DefendantAndCase(t *testing.T) {
	got, err := Prune(allocated(), []Removal{{CaseID: "C1", DefendantID: "D1"}, {CaseID: "C2"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"C1"}, caseIDs(got))
	require.Len(t, got[0].Defendants, 1)
	assert.Equal(t, "D2", got[0].Defendants[0].ID)
}

func TestPrune_UnknownIdentitiesAreNoOps(t *testing.T) {
	before := canonical(t, allocated())
	got, err := Prune(allocated(), []Removal{
		{CaseID: "C9"},
		{CaseID: "C1", DefendantID: "D9"},
		{CaseID: "C1", DefendantID: "D1", OffenceID: "O9"},
	})
	require.NoError(t, err)
	assert.Equal(t, before, canonical(t, got))
}

func TestPrune_InvalidRemoval(t *testing.T) {
	_, err := Prune(allocated(), []Removal{{DefendantID: "D1"}})
	assert.True(t, model.IsMalformed(err))

	_, err = Prune(allocated(), []Removal{{CaseID: "C1", OffenceID: "O1"}})
	assert.True(t, model.IsMalformed(err))
}

func TestReplaceSubset_PrunesThenMerges(t *testing.T) {
	incoming := []model.ProsecutionCase{
		{ID: "C1", Defendants: []model.Defendant{{ID: "D1", Offences: []model.Offence{{ID: "O5"}}}}},
		{ID: "C3", Defendants: []model.Defendant{{ID: "D4", Offences: []model.Offence{{ID: "O6"}}}}},
	}
	got, err := ReplaceSubset(allocated(), incoming, []Removal{
		{CaseID: "C1", DefendantID: "D1", OffenceID: "O1"},
		{CaseID: "C2"},
	}, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"C1", "C3"}, caseIDs(got))
	offs := got[0].Defendants[0].Offences
	require.Len(t, offs, 2)
	assert.Equal(t, "O2", offs[0].ID)
	assert.Equal(t, "O5", offs[1].ID)
}
