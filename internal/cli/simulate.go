package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/missionsim/internal/service"
)

// SimulateOptions holds flags for the simulate command.
type SimulateOptions struct {
	*RootOptions
	NoStore bool // simulate without reading or writing the database
}

// SimulateResult is the summary of one simulate call.
type SimulateResult struct {
	DatasetID   string `json:"dataset_id"`
	Plan        string `json:"plan"`
	Revision    string `json:"revision"`
	ResultsHash string `json:"results_hash"`
	Finished    int    `json:"finished"`
	Unfinished  int    `json:"unfinished"`
	Cached      bool   `json:"cached"`
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SimulateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "simulate <plan.cue>",
		Short: "Simulate a plan and store its results",
		Long: `Simulate a CUE plan over [0, duration] and store the results dataset.

A plan revision is simulated once: if the database already holds a
dataset for the plan's current content, that dataset is reported instead.

Exit codes:
  0 - Simulation completed (or was already stored)
  1 - Plan is invalid or the simulation aborted
  2 - Command error (file not found, database unavailable)

Examples:
  missionsim simulate plans/breakfast.cue
  missionsim simulate plans/breakfast.cue --db results.db --format json
  missionsim simulate plans/breakfast.cue --no-store`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.NoStore, "no-store", false, "simulate without the results database")
	return cmd
}

func runSimulate(opts *SimulateOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	p, err := loadPlan(formatter, path)
	if err != nil {
		return err
	}
	if errs := checkPlan(p); len(errs) > 0 {
		return outputValidationErrors(formatter, p, errs)
	}

	cfg, err := opts.resolveConfig(cmd)
	if err != nil {
		return err
	}
	svcOpts := []service.Option{service.WithEngineOptions(cfg.EngineOptions()...)}
	if !opts.NoStore {
		st, err := opts.openStore(cmd)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
		}
		defer st.Close()
		svcOpts = append(svcOpts, service.WithStore(st))
		formatter.VerboseLog("Using database %s", cfg.Database.Path)
	}

	res, err := service.New(svcOpts...).Simulate(cmd.Context(), p)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeSimulation, err)
	}

	hash, err := res.Results.Digest()
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeGeneric, err)
	}
	summary := SimulateResult{
		DatasetID:   res.DatasetID,
		Plan:        res.PlanID,
		Revision:    res.Revision,
		ResultsHash: hash,
		Finished:    len(res.Results.SimulatedActivities),
		Unfinished:  len(res.Results.UnfinishedActivities),
		Cached:      res.Cached,
	}
	if formatter.Format == "json" {
		return formatter.Success(summary)
	}

	w := formatter.Writer
	verb := "Simulated"
	if summary.Cached {
		verb = "Found stored results for"
	}
	fmt.Fprintf(w, "✓ %s plan %q\n", verb, summary.Plan)
	fmt.Fprintf(w, "  dataset:    %s\n", summary.DatasetID)
	fmt.Fprintf(w, "  revision:   %s\n", shortHash(summary.Revision))
	fmt.Fprintf(w, "  results:    %s\n", shortHash(summary.ResultsHash))
	fmt.Fprintf(w, "  activities: %d finished, %d unfinished\n", summary.Finished, summary.Unfinished)
	return nil
}

// shortHash abbreviates a hex digest for text output.
func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
