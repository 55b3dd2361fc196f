// Package escalation implements the contact-run timer that turns per-frame
// contact observations into alerts of increasing severity.
//
// The state machine is a pure function over an explicit State value:
//
//	idle    + no contact -> idle
//	idle    + contact    -> running (run starts now, stage 0)
//	running + no contact -> idle
//	running + contact    -> fire the next unfired stage once its threshold has elapsed;
//	                        after the last stage fires the run resets to idle
//
// At most one alert is produced per step. Stages crossed between two steps are
// not back-filled on the same step; the next unfired stage fires on each
// subsequent step until the run ends.
package escalation

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// Severity is the escalation level of an alert.
type Severity int

const (
	SeverityMild Severity = iota
	SeverityAngry
	SeverityTerminal
)

var severityNames = [...]string{
	SeverityMild:     "mild",
	SeverityAngry:    "angry",
	SeverityTerminal: "terminal",
}

// String returns the lowercase severity name.
func (s Severity) String() string {
	if s < 0 || int(s) >= len(severityNames) {
		return fmt.Sprintf("severity(%d)", int(s))
	}
	return severityNames[s]
}

// ParseSeverity parses a severity name.
func ParseSeverity(name string) (Severity, error) {
	for i, n := range severityNames {
		if n == name {
			return Severity(i), nil
		}
	}
	return 0, fmt.Errorf("unknown severity %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Stage is one escalation step: once a run has lasted After, alert at Severity.
type Stage struct {
	After    time.Duration
	Severity Severity
}

// Catalog holds the alert messages available for each severity.
type Catalog map[Severity][]string

// Rand is the randomness used to pick messages. *rand.Rand satisfies it.
type Rand interface {
	IntN(n int) int
}

// Phase is whether a contact run is in progress.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRunning
)

// String returns "idle" or "running".
func (p Phase) String() string {
	if p == PhaseRunning {
		return "running"
	}
	return "idle"
}

// State is the escalation state for one monitor. The zero value is idle.
type State struct {
	Phase    Phase
	RunStart time.Time
	// Stage is the index of the next unfired stage in the current run.
	Stage int
	// RearmAt holds the machine idle after a terminal alert until this instant.
	RearmAt time.Time
}

// Running reports whether a contact run is in progress.
func (s State) Running() bool {
	return s.Phase == PhaseRunning
}

// AlertEvent is a single alert to hand to a delivery collaborator.
type AlertEvent struct {
	Severity Severity      `json:"severity"`
	Message  string        `json:"message"`
	Stage    int           `json:"stage"`
	Elapsed  time.Duration `json:"elapsed"`
	At       time.Time     `json:"at"`
	Terminal bool          `json:"terminal"`
}

// Policy configures the state machine.
type Policy struct {
	// Stages must be ordered by strictly increasing After.
	Stages  []Stage
	Catalog Catalog
	// RearmDelay keeps the machine idle this long after a terminal alert.
	RearmDelay time.Duration
	// Rand picks messages; nil uses the process-wide generator.
	Rand Rand
}

// Validation errors.
var (
	ErrNoStages      = errors.New("escalation: no stages configured")
	ErrStageOrder    = errors.New("escalation: stage thresholds must be strictly increasing")
	ErrEmptyCatalog  = errors.New("escalation: empty message catalog")
	ErrBadSeverity   = errors.New("escalation: unknown severity")
	ErrNegativeDelay = errors.New("escalation: negative duration")
)

// Validate checks that the policy can drive the state machine.
func (p Policy) Validate() error {
	if len(p.Stages) == 0 {
		return ErrNoStages
	}
	if p.RearmDelay < 0 {
		return ErrNegativeDelay
	}
	for i, st := range p.Stages {
		if st.After < 0 {
			return fmt.Errorf("stage %d: %w", i, ErrNegativeDelay)
		}
		if i > 0 && st.After <= p.Stages[i-1].After {
			return fmt.Errorf("stage %d after %s: %w", i, st.After, ErrStageOrder)
		}
		if st.Severity < SeverityMild || st.Severity > SeverityTerminal {
			return fmt.Errorf("stage %d: %w", i, ErrBadSeverity)
		}
		if len(p.Catalog[st.Severity]) == 0 {
			return fmt.Errorf("stage %d (%s): %w", i, st.Severity, ErrEmptyCatalog)
		}
	}
	return nil
}

// Step advances the state machine by one frame. It never fails; now must not
// go backwards within a run.
func (p Policy) Step(s State, contact bool, now time.Time) (State, *AlertEvent) {
	if !contact {
		if s.Running() {
			return State{}, nil
		}
		return s, nil
	}

	if !s.Running() {
		if now.Before(s.RearmAt) {
			return s, nil
		}
		return State{Phase: PhaseRunning, RunStart: now}, nil
	}

	if s.Stage >= len(p.Stages) {
		return s, nil
	}

	elapsed := now.Sub(s.RunStart)
	stage := p.Stages[s.Stage]
	if elapsed < stage.After {
		return s, nil
	}

	terminal := s.Stage == len(p.Stages)-1
	ev := &AlertEvent{
		Severity: stage.Severity,
		Message:  p.pick(stage.Severity),
		Stage:    s.Stage,
		Elapsed:  elapsed,
		At:       now,
		Terminal: terminal,
	}

	if terminal {
		next := State{}
		if p.RearmDelay > 0 {
			next.RearmAt = now.Add(p.RearmDelay)
		}
		return next, ev
	}

	s.Stage++
	return s, ev
}

func (p Policy) pick(sev Severity) string {
	messages := p.Catalog[sev]
	switch len(messages) {
	case 0:
		return ""
	case 1:
		return messages[0]
	}
	if p.Rand != nil {
		return messages[p.Rand.IntN(len(messages))]
	}
	return messages[rand.IntN(len(messages))]
}

// NewRand returns a seeded PCG generator for reproducible message picks.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
