package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/missionsim/internal/engine"
	"github.com/roach88/missionsim/internal/ir"
	"github.com/roach88/missionsim/internal/plan"
	"github.com/roach88/missionsim/internal/resource"
)

// ErrDigestMismatch is returned when stored rows no longer reproduce the
// results digest recorded with the dataset.
var ErrDigestMismatch = errors.New("results digest mismatch")

// PlanSummary describes a stored plan.
type PlanSummary struct {
	ID         string `json:"id"`
	Revision   string `json:"revision"`
	Model      string `json:"model"`
	Activities int    `json:"activities"`
}

// DatasetSummary describes a stored dataset without its rows.
type DatasetSummary struct {
	ID           string      `json:"id"`
	PlanID       string      `json:"plan_id"`
	PlanRevision string      `json:"plan_revision"`
	ResultsHash  string      `json:"results_hash"`
	Duration     ir.Duration `json:"duration"`
}

// ReadPlan returns the latest stored revision of a plan.
// Returns ErrNotFound if no plan has that name.
func (s *Store) ReadPlan(ctx context.Context, id string) (*plan.Plan, string, error) {
	var (
		p         = &plan.Plan{Name: id}
		revision  string
		startTime string
		duration  int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT revision, model, start_time, duration FROM plans WHERE id = ?
	`, id).Scan(&revision, &p.Model, &startTime, &duration)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", fmt.Errorf("plan %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, "", fmt.Errorf("read plan %q: %w", id, err)
	}
	if p.StartTime, err = parseTime(startTime); err != nil {
		return nil, "", fmt.Errorf("read plan %q: %w", id, err)
	}
	p.Duration = ir.Duration(duration)

	rows, err := s.db.QueryContext(ctx, `
		SELECT activity_id, start, type, arguments
		FROM plan_activities
		WHERE plan_id = ?
		ORDER BY seq ASC
	`, id)
	if err != nil {
		return nil, "", fmt.Errorf("query plan activities: %w", err)
	}
	defer rows.Close()

	p.Activities = []ir.Directive{}
	for rows.Next() {
		var (
			d     ir.Directive
			aid   string
			start int64
			args  string
		)
		if err := rows.Scan(&aid, &start, &d.Activity.Type, &args); err != nil {
			return nil, "", fmt.Errorf("scan plan activity: %w", err)
		}
		d.ID = ir.ActivityInstanceID(aid)
		d.Start = ir.Duration(start)
		if d.Activity.Arguments, err = unmarshalArgs(args); err != nil {
			return nil, "", fmt.Errorf("plan activity %q: %w", aid, err)
		}
		p.Activities = append(p.Activities, d)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("iterate plan activities: %w", err)
	}

	return p, revision, nil
}

// ListPlans returns all stored plans ordered by id.
func (s *Store) ListPlans(ctx context.Context) ([]PlanSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.revision, p.model, COUNT(a.activity_id)
		FROM plans p
		LEFT JOIN plan_activities a ON a.plan_id = p.id
		GROUP BY p.id
		ORDER BY p.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query plans: %w", err)
	}
	defer rows.Close()

	plans := []PlanSummary{}
	for rows.Next() {
		var ps PlanSummary
		if err := rows.Scan(&ps.ID, &ps.Revision, &ps.Model, &ps.Activities); err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		plans = append(plans, ps)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plans: %w", err)
	}
	return plans, nil
}

// ListDatasets returns the datasets of a plan, oldest first. Dataset ids
// are time ordered, so id order is creation order.
func (s *Store) ListDatasets(ctx context.Context, planID string) ([]DatasetSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, plan_id, plan_revision, results_hash, duration
		FROM simulation_datasets
		WHERE plan_id = ?
		ORDER BY id COLLATE BINARY ASC
	`, planID)
	if err != nil {
		return nil, fmt.Errorf("query datasets: %w", err)
	}
	defer rows.Close()

	out := []DatasetSummary{}
	for rows.Next() {
		var (
			ds       DatasetSummary
			duration int64
		)
		if err := rows.Scan(&ds.ID, &ds.PlanID, &ds.PlanRevision, &ds.ResultsHash, &duration); err != nil {
			return nil, fmt.Errorf("scan dataset: %w", err)
		}
		ds.Duration = ir.Duration(duration)
		out = append(out, ds)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate datasets: %w", err)
	}
	return out, nil
}

// FindDataset returns the dataset simulated for a plan revision.
// Returns ErrNotFound if that revision has not been simulated.
func (s *Store) FindDataset(ctx context.Context, planID, revision string) (Dataset, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM simulation_datasets WHERE plan_id = ? AND plan_revision = ?
	`, planID, revision).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return Dataset{}, fmt.Errorf("dataset for plan %q revision %s: %w", planID, revision, ErrNotFound)
	}
	if err != nil {
		return Dataset{}, fmt.Errorf("find dataset: %w", err)
	}
	return s.ReadDataset(ctx, id)
}

// ReadDataset loads a dataset and rebuilds its results. The rebuilt
// results must hash to the recorded digest, otherwise ErrDigestMismatch is
// returned.
func (s *Store) ReadDataset(ctx context.Context, id string) (Dataset, error) {
	ds := Dataset{ID: id}
	var (
		startTime string
		duration  int64
		order     string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT plan_id, plan_revision, results_hash, start_time, duration, resource_order, engine_version, ir_version
		FROM simulation_datasets
		WHERE id = ?
	`, id).Scan(&ds.PlanID, &ds.PlanRevision, &ds.ResultsHash, &startTime, &duration, &order,
		&ds.EngineVersion, &ds.IRVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return Dataset{}, fmt.Errorf("dataset %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Dataset{}, fmt.Errorf("read dataset %s: %w", id, err)
	}

	r := engine.SimulationResults{
		Duration:             ir.Duration(duration),
		ResourceSamples:      map[string][]engine.Sample{},
		ResourceProfiles:     map[string][]resource.Piece{},
		SimulatedActivities:  map[ir.ActivityInstanceID]engine.SimulatedActivity{},
		UnfinishedActivities: map[ir.ActivityInstanceID]engine.UnfinishedActivity{},
	}
	if r.StartTime, err = parseTime(startTime); err != nil {
		return Dataset{}, fmt.Errorf("read dataset %s: %w", id, err)
	}
	if r.ResourceOrder, err = unmarshalNames(order); err != nil {
		return Dataset{}, fmt.Errorf("read dataset %s: %w", id, err)
	}
	for _, name := range r.ResourceOrder {
		r.ResourceSamples[name] = []engine.Sample{}
		r.ResourceProfiles[name] = []resource.Piece{}
	}

	if err := s.readSamples(ctx, id, &r); err != nil {
		return Dataset{}, fmt.Errorf("read dataset %s: %w", id, err)
	}
	if err := s.readProfiles(ctx, id, &r); err != nil {
		return Dataset{}, fmt.Errorf("read dataset %s: %w", id, err)
	}
	if err := s.readActivities(ctx, id, &r); err != nil {
		return Dataset{}, fmt.Errorf("read dataset %s: %w", id, err)
	}

	digest, err := r.Digest()
	if err != nil {
		return Dataset{}, fmt.Errorf("read dataset %s: %w", id, err)
	}
	if digest != ds.ResultsHash {
		return Dataset{}, fmt.Errorf("dataset %s: %w: stored %s, rebuilt %s",
			id, ErrDigestMismatch, ds.ResultsHash, digest)
	}

	ds.Results = r
	return ds, nil
}

func (s *Store) readSamples(ctx context.Context, id string, r *engine.SimulationResults) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT resource, elapsed, value
		FROM resource_samples
		WHERE dataset_id = ?
		ORDER BY resource COLLATE BINARY ASC, seq ASC
	`, id)
	if err != nil {
		return fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			name    string
			elapsed int64
			value   string
		)
		if err := rows.Scan(&name, &elapsed, &value); err != nil {
			return fmt.Errorf("scan sample: %w", err)
		}
		v, err := unmarshalValue(value)
		if err != nil {
			return fmt.Errorf("sample %s: %w", name, err)
		}
		r.ResourceSamples[name] = append(r.ResourceSamples[name], engine.Sample{Elapsed: ir.Duration(elapsed), Value: v})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate samples: %w", err)
	}
	return nil
}

func (s *Store) readProfiles(ctx context.Context, id string, r *engine.SimulationResults) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT resource, window_start, window_end, value, linear
		FROM resource_profiles
		WHERE dataset_id = ?
		ORDER BY resource COLLATE BINARY ASC, seq ASC
	`, id)
	if err != nil {
		return fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			name       string
			start, end int64
			value      string
			linear     bool
		)
		if err := rows.Scan(&name, &start, &end, &value, &linear); err != nil {
			return fmt.Errorf("scan piece: %w", err)
		}
		v, err := unmarshalValue(value)
		if err != nil {
			return fmt.Errorf("piece %s: %w", name, err)
		}
		r.ResourceProfiles[name] = append(r.ResourceProfiles[name], resource.Piece{
			Window: resource.Window{Start: ir.Duration(start), End: ir.Duration(end)},
			Value:  v,
			Linear: linear,
		})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate profiles: %w", err)
	}
	return nil
}

func (s *Store) readActivities(ctx context.Context, id string, r *engine.SimulationResults) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT activity_id, type, arguments, start_time, start_offset, duration, parent, children
		FROM simulated_activities
		WHERE dataset_id = ?
		ORDER BY activity_id COLLATE BINARY ASC
	`, id)
	if err != nil {
		return fmt.Errorf("query activities: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			aid, typ, args, start, parent, children string
			offset                                  int64
			duration                                sql.NullInt64
		)
		if err := rows.Scan(&aid, &typ, &args, &start, &offset, &duration, &parent, &children); err != nil {
			return fmt.Errorf("scan activity: %w", err)
		}
		arguments, err := unmarshalArgs(args)
		if err != nil {
			return fmt.Errorf("activity %q: %w", aid, err)
		}
		startTime, err := parseTime(start)
		if err != nil {
			return fmt.Errorf("activity %q: %w", aid, err)
		}
		kids, err := unmarshalIDs(children)
		if err != nil {
			return fmt.Errorf("activity %q: %w", aid, err)
		}

		key := ir.ActivityInstanceID(aid)
		if duration.Valid {
			r.SimulatedActivities[key] = engine.SimulatedActivity{
				Type:      typ,
				Arguments: arguments,
				Start:     startTime,
				Offset:    ir.Duration(offset),
				Duration:  ir.Duration(duration.Int64),
				Parent:    ir.ActivityInstanceID(parent),
				Children:  kids,
			}
		} else {
			r.UnfinishedActivities[key] = engine.UnfinishedActivity{
				Type:      typ,
				Arguments: arguments,
				Start:     startTime,
				Offset:    ir.Duration(offset),
				Parent:    ir.ActivityInstanceID(parent),
				Children:  kids,
			}
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate activities: %w", err)
	}
	return nil
}
