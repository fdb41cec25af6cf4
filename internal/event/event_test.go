package event

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmcts/cpp-context-progression-sub010/internal/model"
)

func envelope(kind Kind, payload string) Envelope {
	return Envelope{ID: "ev-1", Kind: kind, Payload: json.RawMessage(payload)}
}

func TestDecodeHearingResulted(t *testing.T) {
	env := envelope(KindHearingResulted, `{
		"hearingId": "H1",
		"hearingDay": "2021-04-05",
		"prosecutionCases": [{
			"id": "C1",
			"caseStatus": "ACTIVE",
			"defendants": [{
				"id": "D1",
				"offences": [{
					"id": "O1",
					"judicialResults": [{"id": "R3", "label": "R3", "orderedDate": "2021-04-05"}]
				}]
			}]
		}],
		"someFutureField": true
	}`)

	p, err := Decode(env)
	require.NoError(t, err)

	hr, ok := p.(*HearingResulted)
	require.True(t, ok)
	assert.Equal(t, "H1", hr.Key())
	assert.Equal(t, model.MustDay("2021-04-05"), hr.HearingDay)
	require.Len(t, hr.ProsecutionCases, 1)
	assert.Equal(t, "R3", hr.ProsecutionCases[0].Defendants[0].Offences[0].JudicialResults[0].Label)
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name    string
		kind    Kind
		payload string
		want    string
	}{
		{
			name:    "missing offence identity",
			kind:    KindHearingResulted,
			payload: `{"hearingId":"H1","prosecutionCases":[{"id":"C1","defendants":[{"id":"D1","offences":[{"wording":"theft"}]}]}]}`,
			want:    "prosecutionCases[0].defendants[0].offences[0].id: is required",
		},
		{
			name:    "missing case identity",
			kind:    KindHearingExtended,
			payload: `{"hearingId":"H1","prosecutionCases":[{"caseStatus":"ACTIVE"}]}`,
			want:    "prosecutionCases[0].id: is required",
		},
		{
			name:    "empty routing identity",
			kind:    KindDefendantsMatched,
			payload: `{"caseId":"","defendantId":"D1"}`,
			want:    "caseId: is required",
		},
		{
			name:    "proposal without defendant",
			kind:    KindDefendantsMatched,
			payload: `{"caseId":"C1","defendantId":"D1","matchedDefendants":[{"caseId":"C2"}]}`,
			want:    "matchedDefendants[0].defendantId: is required",
		},
		{
			name:    "offence removal without defendant",
			kind:    KindHearingReallocated,
			payload: `{"hearingId":"H1","removals":[{"caseId":"C1","offenceId":"O1"}]}`,
			want:    "removals[0].defendantId",
		},
		{
			name:    "missing hearing id",
			kind:    KindHearingResulted,
			payload: `{"prosecutionCases":[]}`,
		},
		{
			name:    "bad day format",
			kind:    KindHearingResulted,
			payload: `{"hearingId":"H1","hearingDay":"5 April 2021"}`,
		},
		{
			name:    "wrong flag type",
			kind:    KindHearingExtended,
			payload: `{"hearingId":"H1","isAdjourned":"yes"}`,
		},
		{
			name:    "unknown listing status",
			kind:    KindListingStatusChanged,
			payload: `{"hearingId":"H1","listingStatus":"VACATED"}`,
		},
		{
			name:    "unknown kind",
			kind:    Kind("hearing-vacated"),
			payload: `{"hearingId":"H1"}`,
			want:    "unknown event kind",
		},
		{
			name:    "empty payload",
			kind:    KindHearingResulted,
			payload: ``,
			want:    "payload is empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(envelope(tt.kind, tt.payload))
			require.Error(t, err)
			assert.True(t, model.IsMalformed(err), "got %v", err)
			if tt.want != "" {
				assert.Contains(t, err.Error(), tt.want)
			}
		})
	}
}

func TestDecodeCollectsEveryError(t *testing.T) {
	_, err := Decode(envelope(KindDefendantsAdded, `{"caseId":"C1","defendants":[{"id":""},{"offences":[{"id":""}]}]}`))
	require.Error(t, err)
	assert.Equal(t, 3, strings.Count(err.Error(), "is required"))
}

func TestNewAssignsV7IDAndKey(t *testing.T) {
	env, err := New(&ListingStatusChanged{HearingID: "H1", ListingStatus: model.StatusSentForListing})
	require.NoError(t, err)

	id, err := uuid.Parse(env.ID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
	assert.Equal(t, KindListingStatusChanged, env.Kind)
	assert.Equal(t, "H1", env.Key)

	p, err := Decode(env)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSentForListing, p.(*ListingStatusChanged).ListingStatus)
}

func TestReadArrayAndLines(t *testing.T) {
	array := `[
		{"id":"e1","kind":"listing-status-changed","payload":{"hearingId":"H1","listingStatus":"SENT_FOR_LISTING"}},
		{"kind":"defendants-added","payload":{"caseId":"C9","defendants":[{"id":"D1"}]}}
	]`
	lines := `{"id":"e1","kind":"listing-status-changed","payload":{"hearingId":"H1","listingStatus":"SENT_FOR_LISTING"}}
{"kind":"defendants-added","payload":{"caseId":"C9","defendants":[{"id":"D1"}]}}
`

	for name, input := range map[string]string{"array": array, "lines": lines} {
		t.Run(name, func(t *testing.T) {
			envs, err := Read(strings.NewReader(input))
			require.NoError(t, err)
			require.Len(t, envs, 2)

			assert.Equal(t, "e1", envs[0].ID)
			assert.Equal(t, "H1", envs[0].Key)
			assert.NotEmpty(t, envs[1].ID, "missing id is generated")
			assert.Equal(t, "C9", envs[1].Key, "key comes from the payload")
		})
	}
}

func TestReadEmpty(t *testing.T) {
	envs, err := Read(strings.NewReader("  \n"))
	require.NoError(t, err)
	assert.Empty(t, envs)
}

func TestReadRejectsUnknownKind(t *testing.T) {
	_, err := Read(strings.NewReader(`{"kind":"nope","payload":{}}`))
	require.Error(t, err)
	assert.True(t, model.IsMalformed(err))
}

func TestSchemaCoversEveryKind(t *testing.T) {
	for _, k := range Kinds() {
		_, ok := definitions[k]
		assert.True(t, ok, "kind %s has no schema definition", k)
	}
}
