package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/missionsim/internal/ir"
)

func TestRunWithGolden_PeelThenBite(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/peel_then_bite.yaml")
	require.NoError(t, err)
	require.NoError(t, RunWithGolden(t, s))
}

func TestTraceSnapshot_OmitsEmptyFields(t *testing.T) {
	snap := TraceSnapshot{
		ScenarioName: "s",
		Trace: []TraceEvent{
			{At: 0, Kind: KindResource, Name: "peel", Value: ir.IRInt(0)},
			{At: ir.Second, Kind: KindActivityStart, Name: "a", Type: "PeelBanana"},
			{At: ir.Second, Kind: KindActivityEnd, Name: "a"},
		},
	}
	out, err := snap.Canonical()
	require.NoError(t, err)
	assert.Equal(t,
		`{"scenario_name":"s","trace":[`+
			`{"at":0,"kind":"resource","name":"peel","value":0},`+
			`{"at":1000000,"kind":"activity_start","name":"a","type":"PeelBanana"},`+
			`{"at":1000000,"kind":"activity_end","name":"a"}]}`,
		string(out))
}
