package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/missionsim/internal/ir"
	"github.com/roach88/missionsim/internal/missionmodel/banananation"
)

// Scenario defines a simulation test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. Also names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Model is the registered mission model name.
	// Defaults to banananation.
	Model string `yaml:"model,omitempty"`

	// Plan is an optional path to a CUE plan file, relative to the
	// scenario file. Mutually exclusive with Activities.
	Plan string `yaml:"plan,omitempty"`

	// StartTime is the absolute time of offset zero.
	StartTime *time.Time `yaml:"start_time,omitempty"`

	// Duration is how far the scenario simulates.
	Duration *ir.Duration `yaml:"duration,omitempty"`

	// Mode selects the driver: batch, incremental or both.
	Mode string `yaml:"mode,omitempty"`

	// Activities is the inline schedule.
	Activities []ActivityStep `yaml:"activities,omitempty"`

	// ExpectError makes the scenario pass only if simulation fails with an
	// error containing this text.
	ExpectError string `yaml:"expect_error,omitempty"`

	// Assertions validate the results.
	// Supported types: resource_at, resource_samples, activity,
	// activity_count, trace_order
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// ActivityStep places one activity in the inline schedule.
type ActivityStep struct {
	ID    string         `yaml:"id"`
	Type  string         `yaml:"type"`
	Start ir.Duration    `yaml:"start"`
	Args  map[string]any `yaml:"args,omitempty"`
}

// Assertion validates simulation results.
type Assertion struct {
	// Type specifies the assertion type:
	// - "resource_at": value of Resource at time At equals Equals
	// - "resource_samples": Resource has exactly Samples
	// - "activity": Activity finished, with optional Duration, Parent and
	//   Children checks, or is Unfinished
	// - "activity_count": Count activities finished
	// - "trace_order": Activities started in this order
	Type string `yaml:"type"`

	Resource string       `yaml:"resource,omitempty"`
	At       *ir.Duration `yaml:"at,omitempty"`
	Equals   any          `yaml:"equals,omitempty"`
	Samples  []SampleSpec `yaml:"samples,omitempty"`

	Activity   string       `yaml:"activity,omitempty"`
	Duration   *ir.Duration `yaml:"duration,omitempty"`
	Parent     *string      `yaml:"parent,omitempty"`
	Children   []string     `yaml:"children,omitempty"`
	Unfinished bool         `yaml:"unfinished,omitempty"`

	Count      *int     `yaml:"count,omitempty"`
	Activities []string `yaml:"activities,omitempty"`
}

// SampleSpec is one expected resource sample.
type SampleSpec struct {
	At    ir.Duration `yaml:"at"`
	Value any         `yaml:"value"`
}

// Assertion type constants.
const (
	AssertResourceAt      = "resource_at"
	AssertResourceSamples = "resource_samples"
	AssertActivity        = "activity"
	AssertActivityCount   = "activity_count"
	AssertTraceOrder      = "trace_order"
)

// Mode constants.
const (
	ModeBatch       = "batch"
	ModeIncremental = "incremental"
	ModeBoth        = "both"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A referenced plan path is resolved relative to the file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Plan != "" && !filepath.IsAbs(scenario.Plan) {
		scenario.Plan = filepath.Join(filepath.Dir(path), scenario.Plan)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadDir loads every *.yaml and *.yml scenario in dir, sorted by file
// name. Subdirectories are not searched.
func LoadDir(dir string) ([]*Scenario, error) {
	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("glob scenarios: %w", err)
		}
		files = append(files, matches...)
	}
	slices.Sort(files)

	scenarios := make([]*Scenario, 0, len(files))
	for _, f := range files {
		s, err := LoadScenario(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(f), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// applyDefaults fills optional fields.
func (s *Scenario) applyDefaults() {
	if s.Model == "" {
		s.Model = banananation.Name
	}
	if s.Mode == "" {
		s.Mode = ModeBatch
	}
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	s.applyDefaults()

	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch s.Mode {
	case ModeBatch, ModeIncremental, ModeBoth:
	default:
		return fmt.Errorf("unknown mode %q (want batch, incremental or both)", s.Mode)
	}

	if s.Plan != "" && len(s.Activities) > 0 {
		return fmt.Errorf("plan and activities are mutually exclusive")
	}
	if s.Plan != "" {
		if _, err := os.Stat(s.Plan); os.IsNotExist(err) {
			return fmt.Errorf("plan file not found: %s", s.Plan)
		}
	} else if s.Duration == nil {
		return fmt.Errorf("duration is required without a plan")
	}

	seen := make(map[string]bool, len(s.Activities))
	for i, a := range s.Activities {
		if a.ID == "" {
			return fmt.Errorf("activities[%d]: id is required", i)
		}
		if a.Type == "" {
			return fmt.Errorf("activities[%d]: type is required", i)
		}
		if seen[a.ID] {
			return fmt.Errorf("activities[%d]: duplicate id %q", i, a.ID)
		}
		seen[a.ID] = true
	}

	if s.ExpectError == "" && len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required unless expect_error is set")
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertResourceAt:
		if a.Resource == "" || a.At == nil {
			return fmt.Errorf("assertions[%d]: resource and at are required for resource_at", index)
		}
	case AssertResourceSamples:
		if a.Resource == "" {
			return fmt.Errorf("assertions[%d]: resource is required for resource_samples", index)
		}
	case AssertActivity:
		if a.Activity == "" {
			return fmt.Errorf("assertions[%d]: activity is required for activity", index)
		}
		if a.Unfinished && a.Duration != nil {
			return fmt.Errorf("assertions[%d]: an unfinished activity has no duration", index)
		}
	case AssertActivityCount:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for activity_count", index)
		}
	case AssertTraceOrder:
		if len(a.Activities) == 0 {
			return fmt.Errorf("assertions[%d]: activities list is required for trace_order", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
