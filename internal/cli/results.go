package cli

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/missionsim/internal/engine"
	"github.com/roach88/missionsim/internal/harness"
	"github.com/roach88/missionsim/internal/ir"
	"github.com/roach88/missionsim/internal/service"
	"github.com/roach88/missionsim/internal/store"
)

// ResultsOptions holds flags for the results command.
type ResultsOptions struct {
	*RootOptions
	Verify bool // re-simulate and compare digests
	Trace  bool // print the event trace
	Delete bool // delete the dataset
}

// ResultsOutput is the JSON payload of the results command.
type ResultsOutput struct {
	DatasetID     string               `json:"dataset_id"`
	Plan          string               `json:"plan"`
	Revision      string               `json:"revision"`
	ResultsHash   string               `json:"results_hash"`
	EngineVersion string               `json:"engine_version"`
	Results       json.RawMessage      `json:"results,omitempty"`
	Trace         []harness.TraceEvent `json:"trace,omitempty"`
	Verified      *bool                `json:"verified,omitempty"`
	Deleted       bool                 `json:"deleted,omitempty"`
}

// NewResultsCommand creates the results command.
func NewResultsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResultsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "results <dataset-id>",
		Short: "Show a stored results dataset",
		Long: `Show a results dataset from the database.

The stored rows are checked against the dataset's digest on every read.
With --verify the plan revision is simulated again and must reproduce the
stored digest exactly.

Exit codes:
  0 - Success
  1 - Results are not reproducible (--verify)
  2 - Command error (unknown dataset, corrupted rows, database unavailable)

Examples:
  missionsim results 01935a4e-...
  missionsim results 01935a4e-... --trace
  missionsim results 01935a4e-... --verify --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResults(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Verify, "verify", false, "re-simulate the plan revision and compare digests")
	cmd.Flags().BoolVar(&opts.Trace, "trace", false, "print resource changes and activity boundaries")
	cmd.Flags().BoolVar(&opts.Delete, "delete", false, "delete the dataset")
	cmd.MarkFlagsMutuallyExclusive("delete", "verify")
	cmd.MarkFlagsMutuallyExclusive("delete", "trace")
	return cmd
}

func runResults(opts *ResultsOptions, id string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()

	cfg, err := opts.resolveConfig(cmd)
	if err != nil {
		return err
	}
	st, err := opts.openStore(cmd)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
	}
	defer st.Close()

	if opts.Delete {
		if err := st.DeleteDataset(ctx, id); err != nil {
			return formatter.Fail(ExitCommandError, storeErrorCode(err), err)
		}
		if formatter.Format == "json" {
			return formatter.Success(ResultsOutput{DatasetID: id, Deleted: true})
		}
		fmt.Fprintf(formatter.Writer, "✓ Deleted dataset %s\n", id)
		return nil
	}

	svc := service.New(service.WithStore(st), service.WithEngineOptions(cfg.EngineOptions()...))
	ds, err := svc.Dataset(ctx, id)
	if err != nil {
		return formatter.Fail(ExitCommandError, storeErrorCode(err), err)
	}

	out := ResultsOutput{
		DatasetID:     ds.ID,
		Plan:          ds.PlanID,
		Revision:      ds.PlanRevision,
		ResultsHash:   ds.ResultsHash,
		EngineVersion: ds.EngineVersion,
	}
	if opts.Trace {
		out.Trace = harness.BuildTrace(ds.Results)
	}

	var verifyErr error
	if opts.Verify {
		verifyErr = svc.Verify(ctx, id)
		switch {
		case verifyErr == nil || errors.Is(verifyErr, service.ErrNotReproducible):
			verified := verifyErr == nil
			out.Verified = &verified
		default:
			return formatter.Fail(ExitCommandError, storeErrorCode(verifyErr), verifyErr)
		}
	}

	if formatter.Format == "json" {
		if out.Results, err = ds.Results.Canonical(); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
		}
		if err := formatter.Success(out); err != nil {
			return err
		}
	} else {
		printResults(formatter, ds, out)
	}

	if verifyErr != nil {
		return reported(WrapExitError(ExitFailure, ErrCodeNotVerified, verifyErr))
	}
	return nil
}

func printResults(f *OutputFormatter, ds store.Dataset, out ResultsOutput) {
	w := f.Writer
	r := ds.Results

	fmt.Fprintf(w, "Dataset %s\n", ds.ID)
	fmt.Fprintf(w, "  plan:     %s (revision %s)\n", ds.PlanID, shortHash(ds.PlanRevision))
	fmt.Fprintf(w, "  start:    %s\n", r.StartTime.Format("2006-01-02T15:04:05Z07:00"))
	fmt.Fprintf(w, "  duration: %s\n", r.Duration)
	fmt.Fprintf(w, "  results:  %s\n", shortHash(ds.ResultsHash))

	fmt.Fprintln(w, "\nResources (final value):")
	for _, name := range r.ResourceOrder {
		samples := r.ResourceSamples[name]
		if len(samples) == 0 {
			continue
		}
		fmt.Fprintf(w, "  %-12s %s\n", name, renderValue(samples[len(samples)-1].Value))
	}

	fmt.Fprintln(w, "\nActivities:")
	for _, row := range activityRows(r) {
		fmt.Fprintf(w, "  %-16s %-16s %10s  %s\n", row.id, row.typ, row.start, row.duration)
	}

	if out.Trace != nil {
		fmt.Fprintln(w, "\nTrace:")
		for _, e := range out.Trace {
			switch e.Kind {
			case harness.KindResource:
				fmt.Fprintf(w, "  %10s  %s = %s\n", e.At, e.Name, renderValue(e.Value))
			case harness.KindActivityStart:
				fmt.Fprintf(w, "  %10s  start %s (%s)\n", e.At, e.Name, e.Type)
			case harness.KindActivityEnd:
				fmt.Fprintf(w, "  %10s  end   %s\n", e.At, e.Name)
			}
		}
	}

	if out.Verified != nil {
		if *out.Verified {
			fmt.Fprintln(w, "\n✓ Re-simulation reproduced the stored digest")
		} else {
			fmt.Fprintln(w, "\n✗ Re-simulation did not reproduce the stored digest")
		}
	}
}

type activityRow struct {
	id, typ, start, duration string
	offset                   ir.Duration
}

// activityRows lists finished and unfinished activities by start offset,
// then id.
func activityRows(r engine.SimulationResults) []activityRow {
	var rows []activityRow
	for id, a := range r.SimulatedActivities {
		rows = append(rows, activityRow{
			id: string(id), typ: a.Type, offset: a.Offset,
			start: "+" + a.Offset.String(), duration: a.Duration.String(),
		})
	}
	for id, a := range r.UnfinishedActivities {
		rows = append(rows, activityRow{
			id: string(id), typ: a.Type, offset: a.Offset,
			start: "+" + a.Offset.String(), duration: "(unfinished)",
		})
	}
	slices.SortFunc(rows, func(a, b activityRow) int {
		if c := cmp.Compare(a.offset, b.offset); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})
	return rows
}

func renderValue(v ir.IRValue) string {
	b, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// storeErrorCode maps a store error to a CLI error code.
func storeErrorCode(err error) string {
	if errors.Is(err, store.ErrNotFound) {
		return ErrCodeNotFound
	}
	return ErrCodeGeneric
}
