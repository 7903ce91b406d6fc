package poller

import (
	"context"
	"fmt"

	"github.com/gophertribe/softsense"
)

// Registry is the explicit pool of active sensor handles. It replaces the
// ambient global list a firmware scheduler would keep: construct one, hand
// it to the scheduling loop, and mutate it only from that loop's context.
type Registry struct {
	sensors []*Sensor
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a handle to the scheduling pool. Registering a handle that
// is already present leaves the pool unchanged and reports
// softsense.ErrAlreadyRegistered.
func (r *Registry) Register(s *Sensor) error {
	if s == nil {
		return fmt.Errorf("registry: nil sensor: %w", softsense.ErrInvalidParameter)
	}
	for _, registered := range r.sensors {
		if registered == s {
			return softsense.ErrAlreadyRegistered
		}
	}
	r.sensors = append(r.sensors, s)
	return nil
}

// Unregister removes a handle from the pool. Removing an absent handle is a
// no-op.
func (r *Registry) Unregister(s *Sensor) {
	for i, registered := range r.sensors {
		if registered == s {
			r.sensors = append(r.sensors[:i], r.sensors[i+1:]...)
			return
		}
	}
}

// Len reports the number of registered handles.
func (r *Registry) Len() int {
	return len(r.sensors)
}

// AdvanceAll is the single scheduling entry point: it advances every
// registered handle's automaton exactly once, in registration order.
// Intended to be invoked at a fixed cadence from one timer tick or
// main-loop iteration.
func (r *Registry) AdvanceAll(ctx context.Context) {
	for _, s := range r.sensors {
		s.advance(ctx)
	}
}
