package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/roach88/missionsim/internal/cell"
	"github.com/roach88/missionsim/internal/ir"
	"github.com/roach88/missionsim/internal/resource"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// testModel is a small set of cells shared by the engine tests.
type testModel struct {
	layout  *cell.Layout
	counter cell.Ref[int64, cell.Add]
	flag    cell.Ref[string, cell.Set[string]]
	tank    cell.Ref[cell.Linear, cell.LinearEffect]

	flagResource resource.Discrete[string]
	volume       resource.Real
}

func newTestModel() *testModel {
	layout := cell.NewLayout()
	m := &testModel{
		layout:  layout,
		counter: cell.Allocate(layout, "counter", int64(0), cell.Counter{}),
		flag:    cell.Allocate(layout, "flag", "A", cell.Register[string]{}),
		tank:    cell.Allocate(layout, "tank", cell.Linear{}, cell.LinearIntegration{}),
	}
	m.flagResource = resource.RegisterOf(m.flag, resource.SerializeString)
	m.volume = resource.VolumeOf(m.tank)
	return m
}

// emitTask emits effects through fn and completes.
func emitTask(fn func(ctx Context)) Task {
	return TaskFunc(func(ctx Context) (Status, error) {
		fn(ctx)
		return Complete()
	})
}

// setFlagAt returns a task that sets the flag after a delay.
func setFlagAfter(m *testModel, d ir.Duration, value string) Task {
	return TaskFunc(func(ctx Context) (Status, error) {
		return Delay(d, emitTask(func(ctx Context) {
			m.flag.Emit(ctx, cell.SetTo(value))
		}))
	})
}

func runAll(t *testing.T, e *Engine) {
	t.Helper()
	require.NoError(t, e.RunUntil(context.Background(), ir.MaxDuration))
}

func activity(typ string) ir.SerializedActivity {
	return ir.SerializedActivity{Type: typ, Arguments: ir.IRObject{}}
}
