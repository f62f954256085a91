package engine

import "github.com/roach88/missionsim/internal/ir"

// DefaultMaxBatchesPerInstant is the default number of batches allowed at
// a single simulated instant before the run is aborted.
const DefaultMaxBatchesPerInstant = 10000

// QuotaEnforcer counts the batches executed at one simulated instant and
// enforces a maximum.
//
// Time only advances when every job at the current instant has run. A task
// that keeps delaying by zero, or two tasks that keep waking each other,
// would otherwise spin forever without time moving. The quota turns such a
// loop into an error.
//
// The counter resets whenever time advances.
type QuotaEnforcer struct {
	maxBatches int
	instant    ir.Duration
	current    int
}

// NewQuotaEnforcer creates a new quota enforcer with the given limit.
// Typical default: DefaultMaxBatchesPerInstant (configurable via
// engine.WithMaxBatchesPerInstant()).
func NewQuotaEnforcer(maxBatches int) *QuotaEnforcer {
	return &QuotaEnforcer{maxBatches: maxBatches, instant: -1}
}

// Check records a batch at instant and validates against the limit.
// Returns a RuntimeError with ErrCodeInstantQuota if the quota is exceeded.
func (q *QuotaEnforcer) Check(instant ir.Duration) error {
	if instant != q.instant {
		q.instant = instant
		q.current = 0
	}
	q.current++
	if q.current > q.maxBatches {
		return NewQuotaError(instant, q.current, q.maxBatches)
	}
	return nil
}

// Current returns the batch count at the current instant.
func (q *QuotaEnforcer) Current() int {
	return q.current
}

// MaxBatches returns the limit.
func (q *QuotaEnforcer) MaxBatches() int {
	return q.maxBatches
}
