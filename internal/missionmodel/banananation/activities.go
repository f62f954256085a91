package banananation

import (
	"github.com/roach88/missionsim/internal/cell"
	"github.com/roach88/missionsim/internal/driver"
	"github.com/roach88/missionsim/internal/engine"
	"github.com/roach88/missionsim/internal/ir"
	"github.com/roach88/missionsim/internal/resource"
)

// Activity type names.
const (
	BiteBanana     = "BiteBanana"
	PeelBanana     = "PeelBanana"
	GrowBanana     = "GrowBanana"
	ChangeProducer = "ChangeProducer"
	ParentActivity = "ParentActivity"
	ChildActivity  = "ChildActivity"
	WaitForFlag    = "WaitForFlag"
)

// Peel directions.
const (
	FromStem = "fromStem"
	FromTip  = "fromTip"
)

// mashedByTipPeel is how much fruit peeling from the tip wastes.
const mashedByTipPeel = 0.5

func (m *Model) activityTypes() map[string]driver.ActivityType {
	return map[string]driver.ActivityType{
		BiteBanana:     driver.ActivityTypeFunc(m.biteBanana),
		PeelBanana:     driver.ActivityTypeFunc(m.peelBanana),
		GrowBanana:     driver.ActivityTypeFunc(m.growBanana),
		ChangeProducer: driver.ActivityTypeFunc(m.changeProducer),
		ParentActivity: driver.ActivityTypeFunc(m.parentActivity),
		ChildActivity:  driver.ActivityTypeFunc(m.childActivity),
		WaitForFlag:    driver.ActivityTypeFunc(m.waitForFlag),
	}
}

// instant wraps an effect-only step as a task that completes at once.
func instant(fn func(ctx engine.Context)) engine.Task {
	return engine.TaskFunc(func(ctx engine.Context) (engine.Status, error) {
		fn(ctx)
		return engine.Complete()
	})
}

// biteBanana eats biteSize bananas. The flag turns B when the bite
// overdraws the supply.
func (m *Model) biteBanana(args ir.IRObject) (engine.Task, error) {
	a := driver.NewArgs(args)
	bite := a.Real("biteSize", 1.0)
	a.Check(bite > 0, "biteSize: must be positive, got %g", bite)
	if err := a.Err(); err != nil {
		return nil, err
	}

	return instant(func(ctx engine.Context) {
		flag := FlagA
		if m.Fruit.Get(ctx).Volume-bite < 0 {
			flag = FlagB
		}
		m.Flag.Emit(ctx, cell.SetTo(flag))
		m.Fruit.Emit(ctx, cell.AddVolume(-bite))
	}), nil
}

// peelBanana produces a peel. Peeling from the tip mashes some fruit.
func (m *Model) peelBanana(args ir.IRObject) (engine.Task, error) {
	a := driver.NewArgs(args)
	direction := a.OneOf("peelDirection", FromStem, FromStem, FromTip)
	if err := a.Err(); err != nil {
		return nil, err
	}

	return instant(func(ctx engine.Context) {
		if direction == FromTip {
			m.Fruit.Emit(ctx, cell.AddVolume(-mashedByTipPeel))
		}
		m.Peel.Emit(ctx, cell.Add(1))
	}), nil
}

// growBanana adds quantity bananas spread evenly over growingDuration.
func (m *Model) growBanana(args ir.IRObject) (engine.Task, error) {
	a := driver.NewArgs(args)
	quantity := a.Real("quantity", 1)
	d := a.Duration("growingDuration", ir.Hour)
	a.Check(quantity > 0, "quantity: must be positive, got %g", quantity)
	a.Check(d > 0, "growingDuration: must be positive, got %s", d)
	if err := a.Err(); err != nil {
		return nil, err
	}

	rate := quantity / d.Seconds()
	return engine.TaskFunc(func(ctx engine.Context) (engine.Status, error) {
		m.Fruit.Emit(ctx, cell.AddRate(rate))
		return engine.Delay(d, instant(func(ctx engine.Context) {
			m.Fruit.Emit(ctx, cell.AddRate(-rate))
		}))
	}), nil
}

func (m *Model) changeProducer(args ir.IRObject) (engine.Task, error) {
	a := driver.NewArgs(args)
	producer := a.String("producer", "Dole")
	a.Check(producer != "", "producer: must not be empty")
	if err := a.Err(); err != nil {
		return nil, err
	}

	return instant(func(ctx engine.Context) {
		m.Producer.Emit(ctx, cell.SetTo(producer))
	}), nil
}

// parentActivity decomposes into two ChildActivity instances, spawned two
// seconds apart by an anonymous helper. The parent completes with the
// helper, not with its children.
func (m *Model) parentActivity(args ir.IRObject) (engine.Task, error) {
	a := driver.NewArgs(args)
	a.String("label", "unlabeled")
	if err := a.Err(); err != nil {
		return nil, err
	}

	first, err := m.childTask(1)
	if err != nil {
		return nil, err
	}
	second, err := m.childTask(2)
	if err != nil {
		return nil, err
	}

	helper := engine.TaskFunc(func(ctx engine.Context) (engine.Status, error) {
		ctx.SpawnActivity(childDirective(1), first)
		return engine.Delay(2*ir.Second, engine.TaskFunc(func(ctx engine.Context) (engine.Status, error) {
			ctx.SpawnActivity(childDirective(2), second)
			return engine.Complete()
		}))
	})
	return engine.TaskFunc(func(ctx engine.Context) (engine.Status, error) {
		return engine.Call(helper, engine.Done)
	}), nil
}

func childDirective(counter int64) ir.SerializedActivity {
	return ir.SerializedActivity{
		Type:      ChildActivity,
		Arguments: ir.NewIRObjectFromPairs(ir.O("counter", ir.IRInt(counter))),
	}
}

func (m *Model) childTask(counter int64) (engine.Task, error) {
	return m.childActivity(childDirective(counter).Arguments)
}

// childActivity peels counter bananas over one second.
func (m *Model) childActivity(args ir.IRObject) (engine.Task, error) {
	a := driver.NewArgs(args)
	counter := a.Int("counter", 0)
	a.Check(counter >= 0, "counter: must not be negative, got %d", counter)
	if err := a.Err(); err != nil {
		return nil, err
	}

	return engine.TaskFunc(func(ctx engine.Context) (engine.Status, error) {
		m.Peel.Emit(ctx, cell.Add(counter))
		return engine.Delay(ir.Second, engine.Done)
	}), nil
}

// waitForFlag completes once the flag takes the given value.
func (m *Model) waitForFlag(args ir.IRObject) (engine.Task, error) {
	a := driver.NewArgs(args)
	value := a.OneOf("value", FlagB, FlagA, FlagB)
	if err := a.Err(); err != nil {
		return nil, err
	}

	return engine.TaskFunc(func(ctx engine.Context) (engine.Status, error) {
		return engine.WaitUntil(resource.ValueIn(m.flag, value), engine.Done)
	}), nil
}
