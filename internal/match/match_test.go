package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmcts/cpp-context-progression-sub010/internal/model"
)

type item struct {
	id  string
	tag string
}

func itemID(i item) string { return i.id }

func ids(list []item) []string {
	out := make([]string, len(list))
	for i, el := range list {
		out[i] = el.id
	}
	return out
}

func TestPartition_ThreeWaySplit(t *testing.T) {
	existing := []item{{"a", "old"}, {"b", "old"}, {"c", "old"}}
	incoming := []item{{"d", "new"}, {"b", "new"}, {"e", "new"}}

	res, err := Partition(existing, incoming, itemID, "item")
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "c"}, ids(res.UnmatchedExisting))
	require.Len(t, res.Matched, 1)
	assert.Equal(t, 1, res.Matched[0].Index)
	assert.Equal(t, "old", res.Matched[0].Existing.tag)
	assert.Equal(t, "new", res.Matched[0].Incoming.tag)
	assert.Equal(t, []string{"d", "e"}, ids(res.New))
}

func TestPartition_DuplicateIncomingFirstWins(t *testing.T) {
	existing := []item{{"a", "old"}}
	incoming := []item{{"a", "first"}, {"x", "first"}, {"a", "second"}, {"x", "second"}}

	res, err := Partition(existing, incoming, itemID, "item")
	require.NoError(t, err)

	require.Len(t, res.Matched, 1)
	assert.Equal(t, "first", res.Matched[0].Incoming.tag)
	require.Len(t, res.New, 1)
	assert.Equal(t, "first", res.New[0].tag)
}

func TestPartition_EmptyInputs(t *testing.T) {
	res, err := Partition[item](nil, nil, itemID, "item")
	require.NoError(t, err)
	assert.Empty(t, res.UnmatchedExisting)
	assert.Empty(t, res.Matched)
	assert.Empty(t, res.New)

	res, err = Partition([]item{{"a", ""}}, nil, itemID, "item")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(res.UnmatchedExisting))
}

func TestPartition_MissingIncomingIdentity(t *testing.T) {
	_, err := Partition([]item{{"a", ""}}, []item{{"", "x"}}, itemID, "offence")
	require.Error(t, err)
	assert.True(t, model.IsMalformed(err))
	assert.Contains(t, err.Error(), "offence")
}

func TestPartition_ExistingWithoutIdentityIsKept(t *testing.T) {
	res, err := Partition([]item{{"", "legacy"}}, []item{{"a", "new"}}, itemID, "item")
	require.NoError(t, err)
	assert.Len(t, res.UnmatchedExisting, 1)
	assert.Equal(t, []string{"a"}, ids(res.New))
}

func TestPartition_LargeListsAreIndexed(t *testing.T) {
	const n = 5000
	existing := make([]item, n)
	incoming := make([]item, n)
	for i := 0; i < n; i++ {
		existing[i] = item{id: string(rune('a'+i%26)) + string(rune(i))}
		incoming[n-1-i] = existing[i]
	}

	res, err := Partition(existing, incoming, itemID, "item")
	require.NoError(t, err)
	assert.Len(t, res.Matched, n)
	assert.Empty(t, res.New)
	assert.Empty(t, res.UnmatchedExisting)
}

func TestIDs(t *testing.T) {
	set := IDs([]model.Offence{{ID: "O1"}, {ID: "O2"}}, OffenceID)
	assert.Len(t, set, 2)
	assert.Contains(t, set, "O2")
}
