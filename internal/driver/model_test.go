package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/missionsim/internal/cell"
	"github.com/roach88/missionsim/internal/engine"
	"github.com/roach88/missionsim/internal/ir"
	"github.com/roach88/missionsim/internal/resource"
)

// testModel is a small mission model: a counter, a flag and a tank.
type testModel struct {
	*MissionModel
	count cell.Ref[int64, cell.Add]
	flag  cell.Ref[string, cell.Set[string]]
	tank  cell.Ref[cell.Linear, cell.LinearEffect]
}

func newTestModel() *testModel {
	layout := cell.NewLayout()
	m := &testModel{
		count: cell.Allocate(layout, "count", int64(0), cell.Counter{}),
		flag:  cell.Allocate(layout, "flag", "A", cell.Register[string]{}),
		tank:  cell.Allocate(layout, "tank", cell.Linear{}, cell.LinearIntegration{}),
	}
	flag := resource.RegisterOf(m.flag, resource.SerializeString)

	complete := func(fn func(ctx engine.Context)) engine.Task {
		return engine.TaskFunc(func(ctx engine.Context) (engine.Status, error) {
			fn(ctx)
			return engine.Complete()
		})
	}

	m.MissionModel = &MissionModel{
		Name:   "test",
		Layout: layout,
		Resources: []NamedResource{
			{Name: "count", Resource: resource.CounterOf(m.count)},
			{Name: "flag", Resource: flag},
			{Name: "tank", Resource: resource.VolumeOf(m.tank)},
		},
		Activities: map[string]ActivityType{
			"Add": ActivityTypeFunc(func(args ir.IRObject) (engine.Task, error) {
				a := NewArgs(args)
				amount := a.Int("amount", 1)
				d := a.Duration("duration", ir.Second)
				if err := a.Err(); err != nil {
					return nil, err
				}
				return engine.TaskFunc(func(ctx engine.Context) (engine.Status, error) {
					m.count.Emit(ctx, cell.Add(amount))
					return engine.Delay(d, engine.Done)
				}), nil
			}),
			"Fill": ActivityTypeFunc(func(args ir.IRObject) (engine.Task, error) {
				a := NewArgs(args)
				rate := a.Real("rate", 1)
				d := a.Duration("duration", 2*ir.Second)
				if err := a.Err(); err != nil {
					return nil, err
				}
				return engine.TaskFunc(func(ctx engine.Context) (engine.Status, error) {
					m.tank.Emit(ctx, cell.AddRate(rate))
					return engine.Delay(d, complete(func(ctx engine.Context) {
						m.tank.Emit(ctx, cell.AddRate(-rate))
					}))
				}), nil
			}),
			"SetFlag": ActivityTypeFunc(func(args ir.IRObject) (engine.Task, error) {
				a := NewArgs(args)
				value := a.OneOf("value", "A", "A", "B", "C")
				if err := a.Err(); err != nil {
					return nil, err
				}
				return complete(func(ctx engine.Context) {
					m.flag.Emit(ctx, cell.SetTo(value))
				}), nil
			}),
			"WaitFlag": ActivityTypeFunc(func(args ir.IRObject) (engine.Task, error) {
				a := NewArgs(args)
				value := a.OneOf("value", "B", "A", "B", "C")
				if err := a.Err(); err != nil {
					return nil, err
				}
				return engine.TaskFunc(func(ctx engine.Context) (engine.Status, error) {
					return engine.WaitUntil(resource.ValueIn(flag, value), engine.Done)
				}), nil
			}),
			"Parent": ActivityTypeFunc(func(args ir.IRObject) (engine.Task, error) {
				if err := NewArgs(args).Err(); err != nil {
					return nil, err
				}
				helper := engine.TaskFunc(func(ctx engine.Context) (engine.Status, error) {
					m.count.Emit(ctx, cell.Add(1))
					return engine.Delay(ir.Second, engine.Done)
				})
				return engine.TaskFunc(func(ctx engine.Context) (engine.Status, error) {
					return engine.Call(helper, engine.Done)
				}), nil
			}),
		},
		Daemon: func() engine.Task {
			return complete(func(ctx engine.Context) {
				m.count.Emit(ctx, cell.Add(100))
			})
		},
	}
	return m
}

func act(typ string, pairs ...ir.IRPair) ir.SerializedActivity {
	return ir.SerializedActivity{Type: typ, Arguments: ir.NewIRObjectFromPairs(pairs...)}
}

func directive(id string, start ir.Duration, activity ir.SerializedActivity) ir.Directive {
	return ir.Directive{ID: ir.ActivityInstanceID(id), Start: start, Activity: activity}
}

func TestMissionModel_Instantiate(t *testing.T) {
	m := newTestModel()

	_, err := m.Instantiate(act("Add", ir.O("amount", ir.IRInt(3))))
	require.NoError(t, err)

	_, err = m.Instantiate(act("Missing"))
	assert.ErrorIs(t, err, ErrUnknownActivityType)

	_, err = m.Instantiate(act("Add", ir.O("amount", ir.IRString("three"))))
	assert.ErrorIs(t, err, ErrInvalidArguments)
	assert.Contains(t, err.Error(), "amount: expected int")

	_, err = m.Instantiate(act("Add", ir.O("amunt", ir.IRInt(3))))
	assert.ErrorIs(t, err, ErrInvalidArguments)
	assert.Contains(t, err.Error(), "amunt: unknown argument")

	_, err = m.Instantiate(act("SetFlag", ir.O("value", ir.IRString("Z"))))
	assert.ErrorIs(t, err, ErrInvalidArguments)
}

func TestMissionModel_Validate(t *testing.T) {
	m := newTestModel()
	require.NoError(t, m.Validate())
	assert.Equal(t, []string{"Add", "Fill", "Parent", "SetFlag", "WaitFlag"}, m.ActivityTypes())

	m.Resources = append(m.Resources, NamedResource{Name: "count", Resource: resource.CounterOf(m.count)})
	assert.ErrorContains(t, m.Validate(), "duplicate resource")

	assert.Error(t, (&MissionModel{Name: "empty"}).Validate())
}

func TestArgs_Decoding(t *testing.T) {
	a := NewArgs(ir.NewIRObjectFromPairs(
		ir.O("real", ir.IRInt(2)),
		ir.O("int", ir.IRReal(3)),
		ir.O("name", ir.IRString("x")),
		ir.O("on", ir.IRBool(true)),
		ir.O("wait", ir.IRString("90s")),
		ir.O("micros", ir.IRInt(1500)),
		ir.O("nothing", ir.IRNull{}),
	))

	assert.Equal(t, 2.0, a.Real("real", 0))
	assert.Equal(t, int64(3), a.Int("int", 0))
	assert.Equal(t, "x", a.String("name", ""))
	assert.True(t, a.Bool("on", false))
	assert.Equal(t, 90*ir.Second, a.Duration("wait", 0))
	assert.Equal(t, 1500*ir.Microsecond, a.Duration("micros", 0))
	assert.Equal(t, "fallback", a.String("nothing", "fallback"), "null selects the default")
	assert.Equal(t, 7.5, a.Real("absent", 7.5))
	assert.NoError(t, a.Err())

	bad := NewArgs(ir.NewIRObjectFromPairs(ir.O("int", ir.IRReal(1.5))))
	bad.Int("int", 0)
	bad.Check(false, "custom rule violated")
	err := bad.Err()
	require.ErrorIs(t, err, ErrInvalidArguments)
	assert.Contains(t, err.Error(), "int: expected int")
	assert.Contains(t, err.Error(), "custom rule violated")
}
