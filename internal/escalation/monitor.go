package escalation

import (
	"sync"
	"time"
)

// Monitor owns the State for a single frame loop.
// Step is meant to be called from that loop only; the lock exists so status
// readers (tray, HTTP) can take snapshots concurrently.
type Monitor struct {
	policy Policy
	mu     sync.Mutex
	state  State
	alerts int
	last   *AlertEvent
}

// Snapshot is a point-in-time view of a Monitor.
type Snapshot struct {
	State  State
	Alerts int
	Last   *AlertEvent
}

// NewMonitor creates an idle Monitor for the given policy.
func NewMonitor(policy Policy) *Monitor {
	return &Monitor{policy: policy}
}

// Policy returns the monitor's policy.
func (m *Monitor) Policy() Policy {
	return m.policy
}

// Step feeds one frame's contact observation and returns the alert to deliver, if any.
func (m *Monitor) Step(contact bool, now time.Time) *AlertEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, ev := m.policy.Step(m.state, contact, now)
	m.state = next
	if ev != nil {
		m.alerts++
		evCopy := *ev
		m.last = &evCopy
	}
	return ev
}

// State returns the current state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Reset drops any run in progress, including a pending re-arm delay.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = State{}
}

// Snapshot returns the current state along with alert counters.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{State: m.state, Alerts: m.alerts}
	if m.last != nil {
		last := *m.last
		snap.Last = &last
	}
	return snap
}

// RunStarted reports whether a step from prev to next began a contact run.
func RunStarted(prev, next State) bool {
	return !prev.Running() && next.Running()
}

// RunEnded reports whether a step from prev to next ended a contact run,
// either by losing contact or by firing the terminal stage.
func RunEnded(prev, next State) bool {
	return prev.Running() && !next.Running()
}
