package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDay(t *testing.T) {
	d, err := ParseDay("2021-04-05")
	require.NoError(t, err)
	assert.Equal(t, Day("2021-04-05"), d)

	_, err = ParseDay("05/04/2021")
	assert.Error(t, err)
}

func TestDayOrdering(t *testing.T) {
	assert.True(t, MustDay("2021-04-06").After(MustDay("2021-04-05")))
	assert.False(t, MustDay("2021-04-05").After(MustDay("2021-04-05")))
	assert.True(t, MustDay("2019-01-01").After(Day("")), "set day is after unset day")
	assert.Equal(t, -1, MustDay("2020-12-31").Compare(MustDay("2021-01-01")))
	assert.Equal(t, 0, MustDay("2021-01-01").Compare(MustDay("2021-01-01")))
}

func TestMarshalCanonical_SortsKeysAndOmitsEmpty(t *testing.T) {
	h := Hearing{
		ID:            "H1",
		ListingStatus: StatusHearingInitialised,
		ProsecutionCases: []ProsecutionCase{
			{ID: "C1", Defendants: []Defendant{{ID: "D1"}}},
		},
	}

	got, err := MarshalCanonical(h)
	require.NoError(t, err)
	assert.Equal(t,
		`{"id":"H1","listingStatus":"HEARING_INITIALISED","prosecutionCases":[{"defendants":[{"id":"D1"}],"id":"C1"}]}`,
		string(got))
}

func TestMarshalCanonical_NoHTMLEscape(t *testing.T) {
	got, err := MarshalCanonical(Offence{ID: "O1", Wording: "a < b & c"})
	require.NoError(t, err)
	assert.Equal(t, `{"id":"O1","wording":"a < b & c"}`, string(got))
}

func TestContentHash_StableAcrossCopies(t *testing.T) {
	c := ProsecutionCase{ID: "C1", CaseStatus: CaseStatusActive}
	h1, err := ContentHash(DomainProsecutionCase, c)
	require.NoError(t, err)
	h2, err := ContentHash(DomainProsecutionCase, Clone(c))
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)

	other, err := ContentHash(DomainHearing, c)
	require.NoError(t, err)
	assert.NotEqual(t, h1, other, "domain separates hashes")
}

func TestClone_IsDeep(t *testing.T) {
	orig := ProsecutionCase{ID: "C1", Defendants: []Defendant{{ID: "D1"}}}
	cp := Clone(orig)
	cp.Defendants[0].MasterDefendantID = "M1"
	assert.Empty(t, orig.Defendants[0].MasterDefendantID)
}

func TestHearingPairsAndLookup(t *testing.T) {
	h := Hearing{ID: "H1", ProsecutionCases: []ProsecutionCase{
		{ID: "C1", Defendants: []Defendant{{ID: "D1"}, {ID: "D2"}}},
		{ID: "C2", Defendants: []Defendant{{ID: "D3"}}},
	}}

	assert.Equal(t, []CaseDefendant{
		{CaseID: "C1", DefendantID: "D1"},
		{CaseID: "C1", DefendantID: "D2"},
		{CaseID: "C2", DefendantID: "D3"},
	}, h.Pairs())

	require.NotNil(t, h.Case("C2"))
	assert.Nil(t, h.Case("C9"))
	require.NotNil(t, h.Case("C1").Defendant("D2"))
	assert.Nil(t, h.Case("C1").Defendant("D9"))
}

func TestErrors(t *testing.T) {
	err := fmt.Errorf("fetch: %w", NotFound("hearing", "H1"))
	assert.True(t, IsNotFound(err))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, IsMalformed(err))
	assert.Equal(t, "fetch: NOT_FOUND: not found (hearing=H1)", err.Error())

	mal := MissingIdentity("offence", "defendant D1")
	assert.True(t, IsMalformed(mal))
	assert.True(t, errors.Is(mal, ErrMalformedDelta))
	assert.False(t, errors.Is(mal, ErrNotFound))
}

func TestCaseInactive(t *testing.T) {
	assert.True(t, (&ProsecutionCase{CaseStatus: CaseStatusInactive}).Inactive())
	assert.True(t, (&ProsecutionCase{CaseStatus: CaseStatusClosed}).Inactive())
	assert.False(t, (&ProsecutionCase{CaseStatus: CaseStatusActive}).Inactive())
	assert.False(t, (&ProsecutionCase{}).Inactive())
}
