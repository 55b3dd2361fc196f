// Package notify delivers alert events to the user and to observers.
package notify

import (
	"context"
	"errors"
	"sync"

	"github.com/ayusman/handsoff/internal/escalation"
)

// Title is the heading shown with every alert.
const Title = "Warning"

// Notifier delivers one alert event. Implementations must be safe for
// concurrent use.
type Notifier interface {
	Deliver(ctx context.Context, ev escalation.AlertEvent) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, ev escalation.AlertEvent) error

// Deliver calls f.
func (f NotifierFunc) Deliver(ctx context.Context, ev escalation.AlertEvent) error {
	return f(ctx, ev)
}

// Nop discards every alert.
type Nop struct{}

// Deliver implements Notifier.
func (Nop) Deliver(context.Context, escalation.AlertEvent) error { return nil }

// Multi fans an alert out to several notifiers. Every notifier is called
// even if an earlier one fails; failures are joined.
type Multi []Notifier

// Deliver implements Notifier.
func (m Multi) Deliver(ctx context.Context, ev escalation.AlertEvent) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Deliver(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps every delivered alert in memory.
type Recorder struct {
	mu     sync.Mutex
	events []escalation.AlertEvent
	err    error
}

// Deliver implements Notifier.
func (r *Recorder) Deliver(_ context.Context, ev escalation.AlertEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

// Events returns a copy of the delivered alerts in order.
func (r *Recorder) Events() []escalation.AlertEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]escalation.AlertEvent, len(r.events))
	copy(out, r.events)
	return out
}

// SetError makes subsequent deliveries return err after recording.
func (r *Recorder) SetError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}
