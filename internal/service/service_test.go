package service

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/roach88/missionsim/internal/driver"
	"github.com/roach88/missionsim/internal/ir"
	"github.com/roach88/missionsim/internal/missionmodel/banananation"
	"github.com/roach88/missionsim/internal/plan"
	"github.com/roach88/missionsim/internal/store"
	"github.com/roach88/missionsim/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func loadBreakfast(t *testing.T) *plan.Plan {
	t.Helper()
	p, err := plan.LoadFile(filepath.Join("..", "plan", "testdata", "breakfast.cue"))
	require.NoError(t, err)
	return p
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestSimulate_CachesPerRevision(t *testing.T) {
	ids := testutil.NewSequentialIDGenerator("ds")
	svc := New(WithIDGenerator(ids))
	ctx := context.Background()
	p := loadBreakfast(t)

	first, err := svc.Simulate(ctx, p)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, "ds-0001", first.DatasetID)
	assert.Equal(t, "breakfast", first.PlanID)
	assert.Contains(t, first.Results.SimulatedActivities, ir.ActivityInstanceID("bite"))

	second, err := svc.Simulate(ctx, p)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.DatasetID, second.DatasetID)
	assert.Equal(t, 1, ids.Count())

	p.Activities[2].Start += ir.Minute
	third, err := svc.Simulate(ctx, p)
	require.NoError(t, err)
	assert.False(t, third.Cached, "an edited plan is a new revision")
	assert.NotEqual(t, first.Revision, third.Revision)
	assert.Equal(t, "ds-0002", third.DatasetID)
	assert.Equal(t, 2, svc.CachedRevisions())

	assert.Equal(t, 2, svc.Forget("breakfast"))
	assert.Equal(t, 0, svc.CachedRevisions())
}

func TestSimulate_ConcurrentCallersShareOneRun(t *testing.T) {
	var loads atomic.Int32
	ids := testutil.NewSequentialIDGenerator("ds")
	svc := New(
		WithIDGenerator(ids),
		WithModels(func(string) (*driver.MissionModel, error) {
			loads.Add(1)
			return banananation.New().MissionModel, nil
		}),
	)
	p := loadBreakfast(t)

	var wg sync.WaitGroup
	results := make([]Result, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := svc.Simulate(context.Background(), p)
			assert.NoError(t, err)
			results[i] = r
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load())
	assert.Equal(t, 1, ids.Count())
	fresh := 0
	for _, r := range results {
		assert.Equal(t, "ds-0001", r.DatasetID)
		if !r.Cached {
			fresh++
		}
	}
	assert.Equal(t, 1, fresh, "exactly one caller ran the simulation")
}

func TestSimulate_InvalidPlanIsNotCached(t *testing.T) {
	var loads atomic.Int32
	svc := New(WithModels(func(string) (*driver.MissionModel, error) {
		loads.Add(1)
		return banananation.New().MissionModel, nil
	}))
	p := loadBreakfast(t)
	p.Activities[0].Activity.Type = "Juggle"

	_, err := svc.Simulate(context.Background(), p)
	require.ErrorIs(t, err, ErrInvalidPlan)
	assert.Contains(t, err.Error(), "[E110]")
	assert.Equal(t, 0, svc.CachedRevisions())

	_, err = svc.Simulate(context.Background(), p)
	require.ErrorIs(t, err, ErrInvalidPlan)
	assert.Equal(t, int32(2), loads.Load(), "failures are retried, not served from cache")
}

func TestSimulate_UnknownModel(t *testing.T) {
	svc := New()
	p := loadBreakfast(t)
	p.Model = "apple"

	_, err := svc.Simulate(context.Background(), p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown mission model "apple"`)
}

func TestSimulate_ServesStoredDatasets(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	p := loadBreakfast(t)

	writer := New(WithStore(st), WithIDGenerator(testutil.NewSequentialIDGenerator("ds")))
	first, err := writer.Simulate(ctx, p)
	require.NoError(t, err)
	require.False(t, first.Cached)

	ids := testutil.NewSequentialIDGenerator("other")
	reader := New(WithStore(st), WithIDGenerator(ids))
	again, err := reader.Simulate(ctx, p)
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Equal(t, first.DatasetID, again.DatasetID)
	assert.Zero(t, ids.Count(), "no new dataset id is drawn for a stored revision")

	want, err := first.Results.Digest()
	require.NoError(t, err)
	got, err := again.Results.Digest()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	ds, err := reader.Dataset(ctx, first.DatasetID)
	require.NoError(t, err)
	assert.Equal(t, first.Revision, ds.PlanRevision)
}

func TestVerify(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	p := loadBreakfast(t)

	svc := New(WithStore(st))
	res, err := svc.Simulate(ctx, p)
	require.NoError(t, err)
	_, err = uuid.Parse(res.DatasetID)
	require.NoError(t, err, "production ids are UUIDs")

	require.NoError(t, svc.Verify(ctx, res.DatasetID))

	drifted := New(WithStore(st), WithModels(func(string) (*driver.MissionModel, error) {
		return banananation.New(banananation.WithInitialFruit(10)).MissionModel, nil
	}))
	assert.ErrorIs(t, drifted.Verify(ctx, res.DatasetID), ErrNotReproducible)

	p.Duration += ir.Minute
	_, err = st.WritePlan(ctx, p)
	require.NoError(t, err)
	assert.ErrorIs(t, svc.Verify(ctx, res.DatasetID), store.ErrNotFound)
}

func TestDataset_WithoutStore(t *testing.T) {
	_, err := New().Dataset(context.Background(), "ds-0001")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUUIDv7Generator(t *testing.T) {
	gen := UUIDv7Generator{}
	a, b := gen.Generate(), gen.Generate()

	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 36)
}
