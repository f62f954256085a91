package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/missionsim/internal/ir"
)

// RuntimeError represents an error detected during a simulation run.
//
// Runtime errors include:
//   - Task failure: user task code returned an error (run aborted)
//   - Non-commutative effect: an instant's events cannot be merged (run aborted)
//   - Task incomplete: a completed-only query on a running task (usage error)
//   - Instant quota: an instant ran more batches than allowed (run aborted)
//
// RuntimeError includes structured fields for diagnostics.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// TaskID identifies the affected task, if any.
	TaskID TaskID

	// At is the simulated time at which the error was detected.
	At ir.Duration

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeTaskFailed indicates user task code returned an error.
	ErrCodeTaskFailed RuntimeErrorCode = "TASK_FAILED"

	// ErrCodeNonCommutative indicates two concurrent effects could not be merged.
	ErrCodeNonCommutative RuntimeErrorCode = "NON_COMMUTATIVE_EFFECT"

	// ErrCodeTaskIncomplete indicates a query that requires a completed task.
	ErrCodeTaskIncomplete RuntimeErrorCode = "TASK_INCOMPLETE"

	// ErrCodeInstantQuota indicates too many batches at one simulated instant.
	ErrCodeInstantQuota RuntimeErrorCode = "INSTANT_QUOTA_EXCEEDED"

	// ErrCodeInvalidSchedule indicates a job scheduled before the current time
	// or against an unknown task.
	ErrCodeInvalidSchedule RuntimeErrorCode = "INVALID_SCHEDULE"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.TaskID != "" {
		msg = fmt.Sprintf("%s (task=%s, at=%s)", msg, e.TaskID, e.At)
	} else {
		msg = fmt.Sprintf("%s (at=%s)", msg, e.At)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the underlying cause to errors.Is and errors.As.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsTaskFailed returns true if the run was aborted by a failing task.
// Uses errors.As to handle wrapped errors.
func IsTaskFailed(err error) bool {
	return hasCode(err, ErrCodeTaskFailed)
}

// IsNonCommutativeError returns true if the run was aborted by a merge
// conflict between concurrent effects.
func IsNonCommutativeError(err error) bool {
	return hasCode(err, ErrCodeNonCommutative)
}

// IsTaskIncomplete returns true if a query required a completed task.
func IsTaskIncomplete(err error) bool {
	return hasCode(err, ErrCodeTaskIncomplete)
}

// IsQuotaError returns true if an instant exceeded its batch quota.
func IsQuotaError(err error) bool {
	return hasCode(err, ErrCodeInstantQuota)
}

// NewTaskFailedError creates a RuntimeError for a failing task.
func NewTaskFailedError(id TaskID, at ir.Duration, cause error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeTaskFailed,
		Message: "task returned an error",
		TaskID:  id,
		At:      at,
		Err:     cause,
	}
}

// NewNonCommutativeError creates a RuntimeError for a rejected commit.
func NewNonCommutativeError(at ir.Duration, jobs int, cause error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeNonCommutative,
		Message: "concurrent effects in one instant cannot be ordered",
		At:      at,
		Details: map[string]string{
			"jobs": fmt.Sprintf("%d", jobs),
		},
		Err: cause,
	}
}

// NewTaskIncompleteError creates a RuntimeError for a premature query.
func NewTaskIncompleteError(id TaskID, at ir.Duration, state TaskState) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeTaskIncomplete,
		Message: "task has not completed",
		TaskID:  id,
		At:      at,
		Details: map[string]string{
			"state": string(state),
		},
	}
}

// NewQuotaError creates a RuntimeError for an exceeded instant quota.
func NewQuotaError(at ir.Duration, batches, limit int) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeInstantQuota,
		Message: fmt.Sprintf("instant exceeded max batches (%d > %d)", batches, limit),
		At:      at,
		Details: map[string]string{
			"batches":     fmt.Sprintf("%d", batches),
			"max_batches": fmt.Sprintf("%d", limit),
		},
	}
}

// newScheduleError creates a RuntimeError for an invalid scheduling request.
func newScheduleError(id TaskID, at ir.Duration, msg string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeInvalidSchedule,
		Message: msg,
		TaskID:  id,
		At:      at,
	}
}
