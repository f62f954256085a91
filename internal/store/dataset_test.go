package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/missionsim/internal/ir"
)

func TestWritePlan_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	p := loadBreakfast(t)

	revision, err := s.WritePlan(ctx, p)
	require.NoError(t, err)
	want, err := p.Revision()
	require.NoError(t, err)
	assert.Equal(t, want, revision)

	got, gotRevision, err := s.ReadPlan(ctx, "breakfast")
	require.NoError(t, err)
	assert.Equal(t, revision, gotRevision)

	gotRev, err := got.Revision()
	require.NoError(t, err)
	assert.Equal(t, revision, gotRev, "stored plan must hash to its revision")
	assert.Equal(t, p.StartTime, got.StartTime)
	require.Len(t, got.Activities, len(p.Activities))
	for i := range p.Activities {
		assert.Equal(t, p.Activities[i].ID, got.Activities[i].ID, "activity order must survive")
	}
}

func TestWritePlan_NewRevisionReplacesActivities(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	p := loadBreakfast(t)

	first, err := s.WritePlan(ctx, p)
	require.NoError(t, err)
	again, err := s.WritePlan(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	p.Activities = p.Activities[:1]
	second, err := s.WritePlan(ctx, p)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	got, rev, err := s.ReadPlan(ctx, p.Name)
	require.NoError(t, err)
	assert.Equal(t, second, rev)
	assert.Len(t, got.Activities, 1)

	plans, err := s.ListPlans(ctx)
	require.NoError(t, err)
	assert.Equal(t, []PlanSummary{{ID: "breakfast", Revision: second, Model: "banananation", Activities: 1}}, plans)
}

func TestReadPlan_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, _, err := s.ReadPlan(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWriteDataset_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	p := loadBreakfast(t)
	revision, err := s.WritePlan(ctx, p)
	require.NoError(t, err)

	results := simulatePlan(t, p, p.Duration)
	id, inserted, err := s.WriteDataset(ctx, Dataset{ID: "ds-1", PlanID: p.Name, PlanRevision: revision, Results: results})
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, "ds-1", id)

	ds, err := s.ReadDataset(ctx, "ds-1")
	require.NoError(t, err)
	assert.Equal(t, ir.EngineVersion, ds.EngineVersion)
	assert.Equal(t, ir.IRVersion, ds.IRVersion)

	want, err := results.Canonical()
	require.NoError(t, err)
	got, err := ds.Results.Canonical()
	require.NoError(t, err)
	if diff := cmp.Diff(string(want), string(got)); diff != "" {
		t.Errorf("rebuilt results differ (-want +got):\n%s", diff)
	}
	assert.Equal(t, results.ResourceOrder, ds.Results.ResourceOrder)
	assert.Contains(t, ds.Results.SimulatedActivities, ir.ActivityInstanceID("parent"))

	found, err := s.FindDataset(ctx, p.Name, revision)
	require.NoError(t, err)
	assert.Equal(t, "ds-1", found.ID)
}

func TestWriteDataset_UnfinishedActivities(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	p := loadBreakfast(t)

	results := simulatePlan(t, p, 80*ir.Minute+ir.Second)
	require.Contains(t, results.UnfinishedActivities, ir.ActivityInstanceID("parent"))

	_, _, err := s.WriteDataset(ctx, Dataset{ID: "ds-1", PlanID: p.Name, PlanRevision: "r1", Results: results})
	require.NoError(t, err)

	ds, err := s.ReadDataset(ctx, "ds-1")
	require.NoError(t, err)
	assert.Contains(t, ds.Results.UnfinishedActivities, ir.ActivityInstanceID("parent"))
	assert.NotContains(t, ds.Results.SimulatedActivities, ir.ActivityInstanceID("parent"))
}

func TestWriteDataset_OnePerRevision(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	p := loadBreakfast(t)
	results := simulatePlan(t, p, ir.Hour)

	_, inserted, err := s.WriteDataset(ctx, Dataset{ID: "ds-1", PlanID: p.Name, PlanRevision: "r1", Results: results})
	require.NoError(t, err)
	require.True(t, inserted)

	id, inserted, err := s.WriteDataset(ctx, Dataset{ID: "ds-2", PlanID: p.Name, PlanRevision: "r1", Results: results})
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, "ds-1", id, "existing dataset id is returned")

	_, err = s.ReadDataset(ctx, "ds-2")
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = s.WriteDataset(ctx, Dataset{ID: "ds-3", PlanID: p.Name, PlanRevision: "r2", Results: results})
	require.NoError(t, err)
	list, err := s.ListDatasets(ctx, p.Name)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "ds-1", list[0].ID)
	assert.Equal(t, "ds-3", list[1].ID)
	assert.Equal(t, ir.Hour, list[0].Duration)
}

func TestReadDataset_DetectsTampering(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	p := loadBreakfast(t)
	results := simulatePlan(t, p, p.Duration)

	_, _, err := s.WriteDataset(ctx, Dataset{ID: "ds-1", PlanID: p.Name, PlanRevision: "r1", Results: results})
	require.NoError(t, err)

	_, err = s.DB().Exec(`UPDATE resource_samples SET value = '123' WHERE dataset_id = 'ds-1' AND resource = 'peel'`)
	require.NoError(t, err)

	_, err = s.ReadDataset(ctx, "ds-1")
	assert.ErrorIs(t, err, ErrDigestMismatch)
}

func TestDeleteDataset_Cascades(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	p := loadBreakfast(t)
	results := simulatePlan(t, p, p.Duration)

	_, _, err := s.WriteDataset(ctx, Dataset{ID: "ds-1", PlanID: p.Name, PlanRevision: "r1", Results: results})
	require.NoError(t, err)
	require.NoError(t, s.DeleteDataset(ctx, "ds-1"))

	for _, table := range []string{"resource_samples", "resource_profiles", "simulated_activities"} {
		var count int
		require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM "+table).Scan(&count))
		assert.Zero(t, count, table)
	}

	assert.ErrorIs(t, s.DeleteDataset(ctx, "ds-1"), ErrNotFound)
	_, err = s.FindDataset(ctx, p.Name, "r1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, isTransient(sqlite3.Error{Code: sqlite3.ErrBusy}))
	assert.True(t, isTransient(errors.Join(errors.New("ctx"), sqlite3.Error{Code: sqlite3.ErrLocked})))
	assert.False(t, isTransient(sqlite3.Error{Code: sqlite3.ErrConstraint}))
	assert.False(t, isTransient(errors.New("database is locked")))
	assert.False(t, isTransient(nil))
}

func TestInTx_RetriesTransientErrors(t *testing.T) {
	s := createTestStore(t)
	WithRetries(3, time.Millisecond)(s)

	calls := 0
	err := s.inTx(context.Background(), "test", func(tx *sql.Tx) error {
		calls++
		if calls < 3 {
			return sqlite3.Error{Code: sqlite3.ErrBusy}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = s.inTx(context.Background(), "test", func(tx *sql.Tx) error {
		calls++
		return sqlite3.Error{Code: sqlite3.ErrLocked}
	})
	require.Error(t, err)
	assert.Equal(t, 4, calls, "one attempt plus three retries")
	assert.True(t, isTransient(err))

	calls = 0
	err = s.inTx(context.Background(), "test", func(tx *sql.Tx) error {
		calls++
		return errors.New("permanent")
	})
	require.EqualError(t, err, "permanent")
	assert.Equal(t, 1, calls)
}
