package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/missionsim/internal/ir"
)

func TestQuotaEnforcer_PerInstant(t *testing.T) {
	q := NewQuotaEnforcer(2)

	require.NoError(t, q.Check(0))
	require.NoError(t, q.Check(0))
	err := q.Check(0)
	require.Error(t, err)
	assert.True(t, IsQuotaError(err))

	var re *RuntimeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "3", re.Details["batches"])
	assert.Equal(t, "2", re.Details["max_batches"])

	// Advancing time resets the count.
	require.NoError(t, q.Check(ir.Second))
	assert.Equal(t, 1, q.Current())
	assert.Equal(t, 2, q.MaxBatches())
}

func TestEngine_ZeroDelayLoopHitsQuota(t *testing.T) {
	m := newTestModel()
	e := New(m.layout, WithMaxBatchesPerInstant(10))

	var spin Task
	spin = TaskFunc(func(ctx Context) (Status, error) {
		return Delay(0, spin)
	})
	_, err := e.ScheduleTask(0, spin)
	require.NoError(t, err)

	err = e.RunUntil(t.Context(), ir.MaxDuration)
	require.Error(t, err)
	assert.True(t, IsQuotaError(err))
}
