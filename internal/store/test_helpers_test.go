package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/missionsim/internal/driver"
	"github.com/roach88/missionsim/internal/engine"
	"github.com/roach88/missionsim/internal/ir"
	"github.com/roach88/missionsim/internal/missionmodel/banananation"
	"github.com/roach88/missionsim/internal/plan"
)

// createTestStore creates a new store in a temporary directory.
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

// loadBreakfast compiles the shared example plan.
func loadBreakfast(t *testing.T) *plan.Plan {
	t.Helper()
	p, err := plan.LoadFile(filepath.Join("..", "plan", "testdata", "breakfast.cue"))
	require.NoError(t, err)
	return p
}

// simulatePlan runs a plan against the banananation model up to until.
func simulatePlan(t *testing.T, p *plan.Plan, until ir.Duration) engine.SimulationResults {
	t.Helper()
	r, err := driver.Simulate(context.Background(), banananation.New().MissionModel,
		p.Activities, p.StartTime, until)
	require.NoError(t, err)
	return r
}
