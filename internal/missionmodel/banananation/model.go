package banananation

import (
	"github.com/roach88/missionsim/internal/cell"
	"github.com/roach88/missionsim/internal/driver"
	"github.com/roach88/missionsim/internal/resource"
)

// Name is the model's registered name.
const Name = "banananation"

// Flag values.
const (
	FlagA = "A"
	FlagB = "B"
)

// Defaults for a fresh model.
const (
	DefaultFruit    = 4.0
	DefaultProducer = "Chiquita"
)

// Resource names, in recording order.
const (
	ResourceFruit      = "fruit"
	ResourceGrowthRate = "growthRate"
	ResourcePeel       = "peel"
	ResourceFlag       = "flag"
	ResourceProducer   = "producer"
)

// Model is the banananation mission model with typed access to its cells.
type Model struct {
	*driver.MissionModel

	Fruit    cell.Ref[cell.Linear, cell.LinearEffect]
	Peel     cell.Ref[int64, cell.Add]
	Flag     cell.Ref[string, cell.Set[string]]
	Producer cell.Ref[string, cell.Set[string]]

	flag resource.Discrete[string]
}

// Option configures the model's initial state.
type Option func(*settings)

type settings struct {
	fruit    float64
	producer string
}

// WithInitialFruit sets how many bananas the run starts with.
func WithInitialFruit(n float64) Option {
	return func(s *settings) { s.fruit = n }
}

// WithProducer sets the initial producer.
func WithProducer(p string) Option {
	return func(s *settings) { s.producer = p }
}

// New builds the model.
func New(opts ...Option) *Model {
	s := settings{fruit: DefaultFruit, producer: DefaultProducer}
	for _, opt := range opts {
		opt(&s)
	}

	layout := cell.NewLayout()
	m := &Model{
		Fruit:    cell.Allocate(layout, "fruit", cell.Linear{Volume: s.fruit}, cell.LinearIntegration{}),
		Peel:     cell.Allocate(layout, "peel", int64(0), cell.Counter{}),
		Flag:     cell.Allocate(layout, "flag", FlagA, cell.Register[string]{}),
		Producer: cell.Allocate(layout, "producer", s.producer, cell.Register[string]{}),
	}
	m.flag = resource.RegisterOf(m.Flag, resource.SerializeString)

	m.MissionModel = &driver.MissionModel{
		Name:   Name,
		Layout: layout,
		Resources: []driver.NamedResource{
			{Name: ResourceFruit, Resource: resource.VolumeOf(m.Fruit)},
			{Name: ResourceGrowthRate, Resource: resource.RateOf(m.Fruit)},
			{Name: ResourcePeel, Resource: resource.CounterOf(m.Peel)},
			{Name: ResourceFlag, Resource: m.flag},
			{Name: ResourceProducer, Resource: resource.RegisterOf(m.Producer, resource.SerializeString)},
		},
	}
	m.Activities = m.activityTypes()
	return m
}
