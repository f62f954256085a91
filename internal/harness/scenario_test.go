package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/missionsim/internal/ir"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_Inline(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/peel_then_bite.yaml")
	require.NoError(t, err)

	assert.Equal(t, "peel-then-bite", s.Name)
	assert.Equal(t, "banananation", s.Model, "model defaults to banananation")
	assert.Equal(t, ModeBoth, s.Mode)
	require.NotNil(t, s.Duration)
	assert.Equal(t, 3*ir.Second, *s.Duration)

	require.Len(t, s.Activities, 2)
	assert.Equal(t, "peel", s.Activities[0].ID)
	assert.Equal(t, ir.Second, s.Activities[0].Start)
	assert.Equal(t, "fromTip", s.Activities[0].Args["peelDirection"])

	require.Len(t, s.Assertions, 6)
	require.NotNil(t, s.Assertions[0].At)
	assert.Equal(t, 1500*ir.Millisecond, *s.Assertions[0].At)
}

func TestLoadScenario_PlanPathIsRelativeToFile(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/from_plan.yaml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("testdata", "plans", "morning.cue"), s.Plan)
	assert.Equal(t, ModeBatch, s.Mode)
}

func TestLoadScenario_StartTime(t *testing.T) {
	path := writeScenario(t, `
name: t
description: d
start_time: "2031-05-06T07:08:09Z"
duration: 1s
assertions:
  - type: activity_count
    count: 0
`)
	s, err := LoadScenario(path)
	require.NoError(t, err)
	require.NotNil(t, s.StartTime)
	assert.Equal(t, 2031, s.StartTime.Year())
	assert.Equal(t, 9, s.StartTime.Second())
}

func TestLoadScenario_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "unknown field",
			content: "name: t\ndescription: d\nduration: 1s\nassertion: []\n",
			wantErr: "field assertion not found",
		},
		{
			name:    "missing name",
			content: "description: d\nduration: 1s\nassertions: [{type: activity_count, count: 0}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			content: "name: t\nduration: 1s\nassertions: [{type: activity_count, count: 0}]\n",
			wantErr: "description is required",
		},
		{
			name:    "missing duration",
			content: "name: t\ndescription: d\nassertions: [{type: activity_count, count: 0}]\n",
			wantErr: "duration is required",
		},
		{
			name:    "bad duration",
			content: "name: t\ndescription: d\nduration: soon\nassertions: [{type: activity_count, count: 0}]\n",
			wantErr: "parse duration",
		},
		{
			name:    "unknown mode",
			content: "name: t\ndescription: d\nduration: 1s\nmode: replay\nassertions: [{type: activity_count, count: 0}]\n",
			wantErr: `unknown mode "replay"`,
		},
		{
			name:    "no assertions",
			content: "name: t\ndescription: d\nduration: 1s\n",
			wantErr: "assertions list is required",
		},
		{
			name: "duplicate activity id",
			content: `name: t
description: d
duration: 1s
activities:
  - {id: a, type: PeelBanana, start: 0s}
  - {id: a, type: BiteBanana, start: 0s}
assertions: [{type: activity_count, count: 0}]
`,
			wantErr: `duplicate id "a"`,
		},
		{
			name:    "missing plan file",
			content: "name: t\ndescription: d\nplan: nowhere.cue\nassertions: [{type: activity_count, count: 0}]\n",
			wantErr: "plan file not found",
		},
		{
			name:    "unknown assertion",
			content: "name: t\ndescription: d\nduration: 1s\nassertions: [{type: final_state}]\n",
			wantErr: `unknown assertion type "final_state"`,
		},
		{
			name:    "resource_at without at",
			content: "name: t\ndescription: d\nduration: 1s\nassertions: [{type: resource_at, resource: fruit}]\n",
			wantErr: "resource and at are required",
		},
		{
			name:    "unfinished with duration",
			content: "name: t\ndescription: d\nduration: 1s\nassertions: [{type: activity, activity: a, unfinished: true, duration: 1s}]\n",
			wantErr: "unfinished activity has no duration",
		},
		{
			name:    "negative count",
			content: "name: t\ndescription: d\nduration: 1s\nassertions: [{type: activity_count, count: -1}]\n",
			wantErr: "non-negative count",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_ExpectErrorNeedsNoAssertions(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/producer_conflict.yaml")
	require.NoError(t, err)
	assert.Empty(t, s.Assertions)
	assert.Equal(t, "NON_COMMUTATIVE_EFFECT", s.ExpectError)
}

func TestLoadDir(t *testing.T) {
	scenarios, err := LoadDir("testdata/scenarios")
	require.NoError(t, err)

	names := make([]string, len(scenarios))
	for i, s := range scenarios {
		names[i] = s.Name
	}
	// Sorted by file name, not scenario name.
	assert.Equal(t, []string{
		"from-plan",
		"grow-linear",
		"parent-children",
		"peel-then-bite",
		"producer-conflict",
		"wait-for-flag",
	}, names)
}

func TestLoadDir_ReportsFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: [\n"), 0o644))

	_, err := LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.yaml")
}
