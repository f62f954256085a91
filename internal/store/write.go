package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/roach88/missionsim/internal/engine"
	"github.com/roach88/missionsim/internal/ir"
	"github.com/roach88/missionsim/internal/plan"
)

// Dataset is a persisted simulation results dataset.
type Dataset struct {
	ID            string
	PlanID        string
	PlanRevision  string
	ResultsHash   string
	EngineVersion string
	IRVersion     string
	Results       engine.SimulationResults
}

// WritePlan stores a plan as the latest revision under its name and
// returns the revision. Writing the same revision again is a no-op.
func (s *Store) WritePlan(ctx context.Context, p *plan.Plan) (string, error) {
	canonical, err := p.Canonical()
	if err != nil {
		return "", fmt.Errorf("write plan: %w", err)
	}
	revision := ir.PlanRevisionHash(canonical)

	err = s.inTx(ctx, "write plan", func(tx *sql.Tx) error {
		var existing string
		err := tx.QueryRowContext(ctx, `SELECT revision FROM plans WHERE id = ?`, p.Name).Scan(&existing)
		switch {
		case err == nil && existing == revision:
			return nil
		case err != nil && !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("select revision: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO plans (id, revision, model, start_time, duration, canonical)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				revision = excluded.revision,
				model = excluded.model,
				start_time = excluded.start_time,
				duration = excluded.duration,
				canonical = excluded.canonical
		`, p.Name, revision, p.Model, formatTime(p.StartTime), int64(p.Duration), string(canonical))
		if err != nil {
			return fmt.Errorf("upsert plan: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM plan_activities WHERE plan_id = ?`, p.Name); err != nil {
			return fmt.Errorf("clear activities: %w", err)
		}
		for i, d := range p.Activities {
			args, err := marshalArgs(d.Activity.Arguments)
			if err != nil {
				return err
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO plan_activities (plan_id, seq, activity_id, start, type, arguments)
				VALUES (?, ?, ?, ?, ?, ?)
			`, p.Name, i, string(d.ID), int64(d.Start), d.Activity.Type, args)
			if err != nil {
				return fmt.Errorf("insert activity %q: %w", d.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("write plan %q: %w", p.Name, err)
	}
	return revision, nil
}

// WriteDataset stores a results dataset.
// Uses ON CONFLICT(plan_id, plan_revision) DO NOTHING: a plan revision has
// exactly one dataset. Returns the id of the stored dataset (new or
// existing) and whether a new dataset was inserted.
//
// ResultsHash, EngineVersion and IRVersion are filled in when empty.
func (s *Store) WriteDataset(ctx context.Context, ds Dataset) (id string, inserted bool, err error) {
	if ds.ResultsHash == "" {
		if ds.ResultsHash, err = ds.Results.Digest(); err != nil {
			return "", false, fmt.Errorf("write dataset: %w", err)
		}
	}
	if ds.EngineVersion == "" {
		ds.EngineVersion = ir.EngineVersion
	}
	if ds.IRVersion == "" {
		ds.IRVersion = ir.IRVersion
	}
	order, err := marshalNames(ds.Results.ResourceOrder)
	if err != nil {
		return "", false, fmt.Errorf("write dataset: %w", err)
	}

	err = s.inTx(ctx, "write dataset", func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO simulation_datasets
			(id, plan_id, plan_revision, results_hash, start_time, duration, resource_order, engine_version, ir_version)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(plan_id, plan_revision) DO NOTHING
		`,
			ds.ID, ds.PlanID, ds.PlanRevision, ds.ResultsHash,
			formatTime(ds.Results.StartTime), int64(ds.Results.Duration), order,
			ds.EngineVersion, ds.IRVersion,
		)
		if err != nil {
			return fmt.Errorf("insert dataset: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if rowsAffected == 0 {
			inserted = false
			return tx.QueryRowContext(ctx, `
				SELECT id FROM simulation_datasets WHERE plan_id = ? AND plan_revision = ?
			`, ds.PlanID, ds.PlanRevision).Scan(&id)
		}

		id, inserted = ds.ID, true
		if err := writeSamples(ctx, tx, ds.ID, ds.Results); err != nil {
			return err
		}
		if err := writeProfiles(ctx, tx, ds.ID, ds.Results); err != nil {
			return err
		}
		return writeActivities(ctx, tx, ds.ID, ds.Results)
	})
	if err != nil {
		return "", false, fmt.Errorf("write dataset %s: %w", ds.ID, err)
	}
	return id, inserted, nil
}

func writeSamples(ctx context.Context, tx *sql.Tx, datasetID string, r engine.SimulationResults) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO resource_samples (dataset_id, resource, seq, elapsed, value)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare samples: %w", err)
	}
	defer stmt.Close()

	for _, name := range sortedKeys(r.ResourceSamples) {
		for i, sample := range r.ResourceSamples[name] {
			value, err := marshalValue(sample.Value)
			if err != nil {
				return fmt.Errorf("sample %s[%d]: %w", name, i, err)
			}
			if _, err := stmt.ExecContext(ctx, datasetID, name, i, int64(sample.Elapsed), value); err != nil {
				return fmt.Errorf("insert sample %s[%d]: %w", name, i, err)
			}
		}
	}
	return nil
}

func writeProfiles(ctx context.Context, tx *sql.Tx, datasetID string, r engine.SimulationResults) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO resource_profiles (dataset_id, resource, seq, window_start, window_end, value, linear)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare profiles: %w", err)
	}
	defer stmt.Close()

	for _, name := range sortedKeys(r.ResourceProfiles) {
		for i, piece := range r.ResourceProfiles[name] {
			value, err := marshalValue(piece.Value)
			if err != nil {
				return fmt.Errorf("piece %s[%d]: %w", name, i, err)
			}
			_, err = stmt.ExecContext(ctx, datasetID, name, i,
				int64(piece.Window.Start), int64(piece.Window.End), value, piece.Linear)
			if err != nil {
				return fmt.Errorf("insert piece %s[%d]: %w", name, i, err)
			}
		}
	}
	return nil
}

func writeActivities(ctx context.Context, tx *sql.Tx, datasetID string, r engine.SimulationResults) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO simulated_activities
		(dataset_id, activity_id, type, arguments, start_time, start_offset, duration, parent, children)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare activities: %w", err)
	}
	defer stmt.Close()

	insert := func(id ir.ActivityInstanceID, typ string, args ir.IRObject, a activityTimes, parent ir.ActivityInstanceID, children []ir.ActivityInstanceID) error {
		argsJSON, err := marshalArgs(args)
		if err != nil {
			return fmt.Errorf("activity %q: %w", id, err)
		}
		kids, err := marshalIDs(children)
		if err != nil {
			return fmt.Errorf("activity %q: %w", id, err)
		}
		_, err = stmt.ExecContext(ctx, datasetID, string(id), typ, argsJSON,
			formatTime(a.start), int64(a.offset), a.duration, string(parent), kids)
		if err != nil {
			return fmt.Errorf("insert activity %q: %w", id, err)
		}
		return nil
	}

	for _, id := range sortedKeys(r.SimulatedActivities) {
		a := r.SimulatedActivities[id]
		d := int64(a.Duration)
		if err := insert(id, a.Type, a.Arguments, activityTimes{a.Start, a.Offset, &d}, a.Parent, a.Children); err != nil {
			return err
		}
	}
	for _, id := range sortedKeys(r.UnfinishedActivities) {
		a := r.UnfinishedActivities[id]
		if err := insert(id, a.Type, a.Arguments, activityTimes{a.Start, a.Offset, nil}, a.Parent, a.Children); err != nil {
			return err
		}
	}
	return nil
}

// activityTimes carries the timing columns of an activity row. A nil
// duration marks the activity unfinished.
type activityTimes struct {
	start    time.Time
	offset   ir.Duration
	duration *int64
}

// DeleteDataset removes a dataset and all of its rows.
// Returns ErrNotFound if the dataset does not exist.
func (s *Store) DeleteDataset(ctx context.Context, id string) error {
	err := s.inTx(ctx, "delete dataset", func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM simulation_datasets WHERE id = ?`, id)
		if err != nil {
			return err
		}
		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete dataset %s: %w", id, err)
	}
	return nil
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
