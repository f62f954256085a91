package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/missionsim/internal/store"
)

// PlanListing is the JSON payload of the plans command.
type PlanListing struct {
	Plans    []store.PlanSummary    `json:"plans,omitempty"`
	Datasets []store.DatasetSummary `json:"datasets,omitempty"`
}

// NewPlansCommand creates the plans command.
func NewPlansCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plans [plan-id]",
		Short: "List stored plans, or the datasets of one plan",
		Long: `List the plans in the database with their current revision.

Given a plan id, list the datasets simulated from that plan, oldest first.
A dataset whose revision differs from the plan's current revision was
simulated from an earlier version of the plan.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlans(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runPlans(opts *RootOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()

	st, err := opts.openStore(cmd)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
	}
	defer st.Close()

	if len(args) == 0 {
		plans, err := st.ListPlans(ctx)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
		}
		if formatter.Format == "json" {
			return formatter.Success(PlanListing{Plans: plans})
		}
		if len(plans) == 0 {
			fmt.Fprintln(formatter.Writer, "No plans stored.")
			return nil
		}
		for _, p := range plans {
			fmt.Fprintf(formatter.Writer, "%-20s %s  %-14s %d activities\n",
				p.ID, shortHash(p.Revision), p.Model, p.Activities)
		}
		return nil
	}

	planID := args[0]
	_, current, err := st.ReadPlan(ctx, planID)
	if err != nil {
		return formatter.Fail(ExitCommandError, storeErrorCode(err), err)
	}
	datasets, err := st.ListDatasets(ctx, planID)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
	}
	if formatter.Format == "json" {
		return formatter.Success(PlanListing{Datasets: datasets})
	}

	fmt.Fprintf(formatter.Writer, "Plan %s (revision %s)\n", planID, shortHash(current))
	if len(datasets) == 0 {
		fmt.Fprintln(formatter.Writer, "  no datasets")
		return nil
	}
	for _, ds := range datasets {
		marker := " "
		if ds.PlanRevision == current {
			marker = "*"
		}
		fmt.Fprintf(formatter.Writer, "%s %s  revision %s  results %s  %s\n",
			marker, ds.ID, shortHash(ds.PlanRevision), shortHash(ds.ResultsHash), ds.Duration)
	}
	return nil
}
