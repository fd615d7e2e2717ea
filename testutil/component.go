package testutil

import (
	"context"
	"sync"

	"github.com/kbukum/marathon/component"
)

// Recorder collects lifecycle calls from several StubComponents in the order
// they happened.
type Recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *Recorder) record(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of the recorded events, e.g. "start:redis".
func (r *Recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	copy(out, r.events)
	return out
}

// StubComponent is a scripted component.Component.
type StubComponent struct {
	ComponentName string
	StartErr      error
	StopErr       error
	Status        component.HealthStatus
	Recorder      *Recorder
	// OnStart runs before StartErr is returned; it may inspect other components.
	OnStart func(ctx context.Context) error
}

var _ component.Component = (*StubComponent)(nil)

// NewStub returns a healthy stub named name that records into rec.
func NewStub(name string, rec *Recorder) *StubComponent {
	return &StubComponent{ComponentName: name, Status: component.StatusHealthy, Recorder: rec}
}

func (s *StubComponent) Name() string { return s.ComponentName }

func (s *StubComponent) Start(ctx context.Context) error {
	if s.Recorder != nil {
		s.Recorder.record("start:" + s.ComponentName)
	}
	if s.OnStart != nil {
		if err := s.OnStart(ctx); err != nil {
			return err
		}
	}
	return s.StartErr
}

func (s *StubComponent) Stop(context.Context) error {
	if s.Recorder != nil {
		s.Recorder.record("stop:" + s.ComponentName)
	}
	return s.StopErr
}

func (s *StubComponent) Health(context.Context) component.Health {
	return component.Health{Name: s.ComponentName, Status: s.Status}
}
