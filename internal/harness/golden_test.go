package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_Scenarios(t *testing.T) {
	for _, name := range []string{
		"scenario_a_day_scoped_sharing",
		"scenario_b_case_fan_out",
		"scenario_c_extension_moves_pair",
		"scenario_d_master_defendant",
	} {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
			require.NoError(t, err)
			require.Equal(t, name, scenario.Name, "golden file is named after the scenario")

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestSnapshot_Canonical(t *testing.T) {
	result := NewResult()
	result.Trace = append(result.Trace,
		TraceEvent{Seq: 1, ID: "evt-1", Kind: "listing-status-changed", Status: "applied", Hearings: []string{"H1"}},
		TraceEvent{Seq: 2, ID: "evt-2", Kind: "hearing-resulted", Status: "failed", Error: "DECODE_FAILED: decode event"},
	)

	got, err := Snapshot("snap", result)
	require.NoError(t, err)
	assert.Equal(t,
		`{"scenario_name":"snap","trace":[`+
			`{"hearings":["H1"],"id":"evt-1","indexOps":0,"kind":"listing-status-changed","seq":1,"status":"applied"},`+
			`{"error":"DECODE_FAILED: decode event","id":"evt-2","indexOps":0,"kind":"hearing-resulted","seq":2,"status":"failed"}]}`,
		string(got))
}

func TestSnapshot_Deterministic(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "scenario_d_master_defendant.yaml"))
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := Snapshot(scenario.Name, first)
	require.NoError(t, err)
	b, err := Snapshot(scenario.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}
