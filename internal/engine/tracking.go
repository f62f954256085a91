package engine

import (
	"fmt"

	"github.com/roach88/missionsim/internal/resource"
	"github.com/roach88/missionsim/internal/timeline"
)

// trackedResource records a resource's dynamics over the run.
type trackedResource struct {
	name     string
	resource resource.Resource
	profile  resource.Profile
	topics   []timeline.Topic
}

// TrackResource starts recording a resource's profile from the current
// time. The resource is re-sampled after every commit that touches a cell
// it read. Names must be unique; results list resources in tracking order.
func (e *Engine) TrackResource(name string, r resource.Resource) error {
	for _, tr := range e.resources {
		if tr.name == name {
			return fmt.Errorf("resource %q already tracked", name)
		}
	}
	tr := &trackedResource{name: name, resource: r}
	if err := e.sampleResource(tr); err != nil {
		return err
	}
	e.resources = append(e.resources, tr)
	return nil
}

// Profile returns the recorded profile of a tracked resource.
func (e *Engine) Profile(name string) (*resource.Profile, bool) {
	for _, tr := range e.resources {
		if tr.name == name {
			return &tr.profile, true
		}
	}
	return nil, false
}

// ResourceNames returns tracked resource names in tracking order.
func (e *Engine) ResourceNames() []string {
	names := make([]string, len(e.resources))
	for i, tr := range e.resources {
		names[i] = tr.name
	}
	return names
}

func (e *Engine) refreshResources(touched []timeline.Topic) error {
	for _, tr := range e.resources {
		if !intersects(tr.topics, touched) {
			continue
		}
		if err := e.sampleResource(tr); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) sampleResource(tr *trackedResource) error {
	q := &recordingQuerier{engine: e}
	dynamics := tr.resource.Dynamics(q)
	if q.err != nil {
		return fmt.Errorf("sample resource %q: %w", tr.name, q.err)
	}
	tr.topics = q.topics
	if err := tr.profile.Set(e.Now(), dynamics); err != nil {
		return fmt.Errorf("sample resource %q: %w", tr.name, err)
	}
	return nil
}
