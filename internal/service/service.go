package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/roach88/missionsim/internal/driver"
	"github.com/roach88/missionsim/internal/engine"
	"github.com/roach88/missionsim/internal/missionmodel"
	"github.com/roach88/missionsim/internal/plan"
	"github.com/roach88/missionsim/internal/store"
)

// ErrInvalidPlan wraps validation failures reported by Simulate.
var ErrInvalidPlan = errors.New("invalid plan")

// Result is the outcome of simulating one plan revision.
type Result struct {
	DatasetID string
	PlanID    string
	Revision  string
	Results   engine.SimulationResults

	// Cached is true when no simulation ran for this call.
	Cached bool
}

type cacheKey struct {
	planID   string
	revision string
}

type entry struct {
	once   sync.Once
	result Result
	err    error
}

// Service simulates plans and caches results per plan revision.
//
// Thread-safety: safe for concurrent use.
type Service struct {
	store      *store.Store
	models     func(name string) (*driver.MissionModel, error)
	ids        IDGenerator
	engineOpts []engine.EngineOption
	cache      *xsync.MapOf[cacheKey, *entry]
}

// Option configures a Service.
type Option func(*Service)

// WithStore persists datasets and serves previously stored ones.
func WithStore(st *store.Store) Option {
	return func(s *Service) { s.store = st }
}

// WithIDGenerator overrides the dataset id generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Service) { s.ids = g }
}

// WithModels overrides how mission models are looked up by name.
func WithModels(load func(name string) (*driver.MissionModel, error)) Option {
	return func(s *Service) { s.models = load }
}

// WithEngineOptions passes options to every engine the service starts.
func WithEngineOptions(opts ...engine.EngineOption) Option {
	return func(s *Service) { s.engineOpts = append(s.engineOpts, opts...) }
}

// New creates a Service. Without a store, results live only in memory.
func New(opts ...Option) *Service {
	s := &Service{
		models: missionmodel.Load,
		ids:    UUIDv7Generator{},
		cache:  xsync.NewMapOf[cacheKey, *entry](),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Simulate returns the results of a plan's current revision, simulating
// it over [0, plan duration] if no dataset exists yet.
func (s *Service) Simulate(ctx context.Context, p *plan.Plan) (Result, error) {
	revision, err := p.Revision()
	if err != nil {
		return Result{}, err
	}
	key := cacheKey{planID: p.Name, revision: revision}

	e, _ := s.cache.LoadOrStore(key, &entry{})
	ran := false
	e.once.Do(func() {
		ran = true
		e.result, e.err = s.resolve(ctx, p, revision)
	})
	if e.err != nil {
		// Let the next caller try again.
		s.cache.Compute(key, func(cur *entry, ok bool) (*entry, bool) {
			return cur, !ok || cur == e
		})
		return Result{}, e.err
	}

	res := e.result
	if !ran {
		res.Cached = true
	}
	return res, nil
}

// resolve loads a stored dataset for the revision or simulates the plan.
func (s *Service) resolve(ctx context.Context, p *plan.Plan, revision string) (Result, error) {
	if s.store != nil {
		ds, err := s.store.FindDataset(ctx, p.Name, revision)
		switch {
		case err == nil:
			slog.Debug("dataset found in store", "plan", p.Name, "revision", revision, "dataset", ds.ID)
			return Result{
				DatasetID: ds.ID,
				PlanID:    p.Name,
				Revision:  revision,
				Results:   ds.Results,
				Cached:    true,
			}, nil
		case !errors.Is(err, store.ErrNotFound):
			return Result{}, fmt.Errorf("lookup dataset: %w", err)
		}
	}

	results, err := s.run(ctx, p)
	if err != nil {
		return Result{}, err
	}
	id := s.ids.Generate()

	if s.store != nil {
		if _, err := s.store.WritePlan(ctx, p); err != nil {
			return Result{}, err
		}
		stored, _, err := s.store.WriteDataset(ctx, store.Dataset{
			ID:           id,
			PlanID:       p.Name,
			PlanRevision: revision,
			Results:      results,
		})
		if err != nil {
			return Result{}, err
		}
		id = stored
	}

	slog.Info("plan simulated",
		"plan", p.Name,
		"revision", revision,
		"dataset", id,
		"activities", len(results.SimulatedActivities),
		"unfinished", len(results.UnfinishedActivities),
	)
	return Result{DatasetID: id, PlanID: p.Name, Revision: revision, Results: results}, nil
}

func (s *Service) run(ctx context.Context, p *plan.Plan) (engine.SimulationResults, error) {
	model, err := s.models(p.Model)
	if err != nil {
		return engine.SimulationResults{}, err
	}
	if err := plan.Check(p, model); err != nil {
		return engine.SimulationResults{}, fmt.Errorf("%w %q: %w", ErrInvalidPlan, p.Name, err)
	}
	return driver.Simulate(ctx, model, p.Activities, p.StartTime, p.Duration,
		driver.WithEngineOptions(s.engineOpts...))
}

// Dataset reads a stored dataset by id.
func (s *Service) Dataset(ctx context.Context, id string) (store.Dataset, error) {
	if s.store == nil {
		return store.Dataset{}, fmt.Errorf("dataset %s: %w", id, store.ErrNotFound)
	}
	return s.store.ReadDataset(ctx, id)
}

// ErrNotReproducible is returned by Verify when re-simulating a plan
// revision yields different results than the stored dataset.
var ErrNotReproducible = errors.New("results not reproducible")

// Verify re-simulates the plan revision behind a stored dataset and checks
// that the run reproduces the stored results digest.
func (s *Service) Verify(ctx context.Context, datasetID string) error {
	ds, err := s.Dataset(ctx, datasetID)
	if err != nil {
		return err
	}
	p, revision, err := s.store.ReadPlan(ctx, ds.PlanID)
	if err != nil {
		return err
	}
	if revision != ds.PlanRevision {
		return fmt.Errorf("dataset %s: plan %q is at revision %s, dataset was simulated from %s: %w",
			datasetID, ds.PlanID, revision, ds.PlanRevision, store.ErrNotFound)
	}

	results, err := s.run(ctx, p)
	if err != nil {
		return err
	}
	digest, err := results.Digest()
	if err != nil {
		return err
	}
	if digest != ds.ResultsHash {
		return fmt.Errorf("dataset %s: %w: stored %s, replayed %s",
			datasetID, ErrNotReproducible, ds.ResultsHash, digest)
	}
	slog.Debug("dataset verified", "dataset", datasetID, "digest", digest)
	return nil
}

// Forget drops every cached result of a plan. Stored datasets are kept.
func (s *Service) Forget(planID string) int {
	n := 0
	s.cache.Range(func(k cacheKey, _ *entry) bool {
		if k.planID == planID {
			s.cache.Delete(k)
			n++
		}
		return true
	})
	return n
}

// CachedRevisions returns how many plan revisions are held in memory.
func (s *Service) CachedRevisions() int {
	return s.cache.Size()
}
