package plan

import (
	"errors"
	"fmt"

	"github.com/roach88/missionsim/internal/driver"
	"github.com/roach88/missionsim/internal/ir"
)

// Validation error codes (E100-E199)
const (
	// Plan errors (E101-E104)
	ErrModelMismatch     = "E101" // plan names a different mission model
	ErrDuplicateID       = "E102" // activity id used twice
	ErrStartPastHorizon  = "E103" // activity starts after the plan ends
	ErrEmptyPlanDuration = "E104" // plan duration is zero

	// Activity errors (E110-E119)
	ErrUnknownActivityType = "E110" // type not declared by the model
	ErrInvalidArguments    = "E111" // arguments rejected by the activity type
)

// ValidationError represents a plan validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled plan against a mission model.
// Returns all errors found (does not fail-fast).
func Validate(p *Plan, model *driver.MissionModel) []ValidationError {
	var errs []ValidationError

	if model != nil && p.Model != model.Name {
		errs = append(errs, ValidationError{
			Field:   "model",
			Message: fmt.Sprintf("plan targets %q but model is %q", p.Model, model.Name),
			Code:    ErrModelMismatch,
		})
	}
	if p.Duration == 0 {
		errs = append(errs, ValidationError{
			Field:   "duration",
			Message: "duration must be positive",
			Code:    ErrEmptyPlanDuration,
		})
	}

	seen := make(map[ir.ActivityInstanceID]int, len(p.Activities))
	for i, d := range p.Activities {
		field := fmt.Sprintf("activities[%d]", i)

		if first, dup := seen[d.ID]; dup {
			errs = append(errs, ValidationError{
				Field:   field + ".id",
				Message: fmt.Sprintf("duplicate id %q (first used by activities[%d])", d.ID, first),
				Code:    ErrDuplicateID,
			})
		} else {
			seen[d.ID] = i
		}

		if d.Start > p.Duration {
			errs = append(errs, ValidationError{
				Field:   field + ".start",
				Message: fmt.Sprintf("starts at %s after the plan ends at %s", d.Start, p.Duration),
				Code:    ErrStartPastHorizon,
			})
		}

		if model == nil {
			continue
		}
		if _, err := model.Instantiate(d.Activity); err != nil {
			switch {
			case errors.Is(err, driver.ErrUnknownActivityType):
				errs = append(errs, ValidationError{
					Field:   field + ".type",
					Message: fmt.Sprintf("unknown activity type %q", d.Activity.Type),
					Code:    ErrUnknownActivityType,
				})
			default:
				errs = append(errs, ValidationError{
					Field:   field + ".arguments",
					Message: err.Error(),
					Code:    ErrInvalidArguments,
				})
			}
		}
	}

	return errs
}

// Check joins the validation errors of a plan into a single error, or
// returns nil when the plan is valid.
func Check(p *Plan, model *driver.MissionModel) error {
	verrs := Validate(p, model)
	if len(verrs) == 0 {
		return nil
	}
	joined := make([]error, len(verrs))
	for i, v := range verrs {
		joined[i] = v
	}
	return errors.Join(joined...)
}
