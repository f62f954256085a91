package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/missionsim/internal/missionmodel"
	"github.com/roach88/missionsim/internal/plan"
)

// PlanError is one problem found in a plan file.
type PlanError struct {
	Code    string `json:"code"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid      bool        `json:"valid"`
	Plan       string      `json:"plan,omitempty"`
	Model      string      `json:"model,omitempty"`
	Activities int         `json:"activities"`
	Errors     []PlanError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <plan.cue>",
		Short: "Validate a plan without simulating it",
		Long: `Validate a CUE plan file against its mission model.

Checks the plan schema, then every activity: its type must be declared by
the model, its arguments must be accepted, its id must be unique and it
must start within the plan duration.

Exit codes:
  0 - Plan is valid
  1 - Plan has validation errors
  2 - Command error (file not found, invalid CUE)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	p, err := loadPlan(formatter, path)
	if err != nil {
		return err
	}
	formatter.VerboseLog("Loaded plan %q with %d activities", p.Name, len(p.Activities))

	if errs := checkPlan(p); len(errs) > 0 {
		return outputValidationErrors(formatter, p, errs)
	}

	result := ValidationResult{Valid: true, Plan: p.Name, Model: p.Model, Activities: len(p.Activities)}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Plan %q is valid (%d activities, model %s)\n", p.Name, len(p.Activities), p.Model)
	return nil
}

// loadPlan compiles a plan file. Compile errors are reported with their
// source line and mapped to ExitCommandError.
func loadPlan(formatter *OutputFormatter, path string) (*plan.Plan, error) {
	p, err := plan.LoadFile(path)
	if err == nil {
		return p, nil
	}

	var cErr *plan.CompileError
	if errors.As(err, &cErr) && cErr.Pos.IsValid() {
		_ = formatter.Error(ErrCodeLoad, err.Error(), PlanError{
			Code:    ErrCodeLoad,
			Field:   cErr.Field,
			Message: cErr.Message,
			Line:    cErr.Pos.Line(),
		})
		return nil, reported(WrapExitError(ExitCommandError, "failed to load plan", err))
	}
	return nil, formatter.Fail(ExitCommandError, ErrCodeLoad, err)
}

// checkPlan validates a plan against its registered model.
func checkPlan(p *plan.Plan) []PlanError {
	model, err := missionmodel.Load(p.Model)
	if err != nil {
		return []PlanError{{Code: plan.ErrModelMismatch, Field: "model", Message: err.Error()}}
	}

	var errs []PlanError
	for _, v := range plan.Validate(p, model) {
		errs = append(errs, PlanError{Code: v.Code, Field: v.Field, Message: v.Message})
	}
	return errs
}

// outputValidationErrors outputs every validation error and returns the
// ExitFailure error.
func outputValidationErrors(formatter *OutputFormatter, p *plan.Plan, errs []PlanError) error {
	exitErr := reported(NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs))))

	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data: ValidationResult{
				Valid:      false,
				Plan:       p.Name,
				Model:      p.Model,
				Activities: len(p.Activities),
				Errors:     errs,
			},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}
		if err := formatter.encode(response); err != nil {
			return err
		}
		return exitErr
	}

	fmt.Fprintf(formatter.Writer, "✗ Plan %q is invalid\n\n", p.Name)
	for _, e := range errs {
		fmt.Fprintf(formatter.Writer, "  %s %s: %s\n", e.Code, e.Field, e.Message)
	}
	return exitErr
}
