package escalation

import (
	"errors"
	"testing"
	"time"
)

// fixedRand always picks the same catalog slot.
type fixedRand int

func (f fixedRand) IntN(n int) int { return int(f) % n }

var t0 = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

func at(seconds float64) time.Time {
	return t0.Add(time.Duration(seconds * float64(time.Second)))
}

func testPolicy() Policy {
	p := DefaultPolicy()
	p.Rand = fixedRand(0)
	return p
}

func TestStep_IdleWithoutContact(t *testing.T) {
	p := testPolicy()
	var s State

	for i := 0; i < 100; i++ {
		var ev *AlertEvent
		s, ev = p.Step(s, false, at(float64(i)))
		if ev != nil {
			t.Fatalf("step %d: unexpected event %+v", i, ev)
		}
		if s.Running() {
			t.Fatalf("step %d: state should stay idle", i)
		}
	}
}

func TestStep_EscalationOrder(t *testing.T) {
	p := testPolicy()
	var s State

	steps := []struct {
		at   float64
		want *Severity
	}{
		{at: 0, want: nil},
		{at: 3.5, want: sevPtr(SeverityMild)},
		{at: 6.5, want: sevPtr(SeverityAngry)},
		{at: 10.5, want: sevPtr(SeverityTerminal)},
	}

	for _, step := range steps {
		var ev *AlertEvent
		s, ev = p.Step(s, true, at(step.at))

		switch {
		case step.want == nil && ev != nil:
			t.Fatalf("t=%.1f: unexpected event %s", step.at, ev.Severity)
		case step.want != nil && ev == nil:
			t.Fatalf("t=%.1f: expected %s event, got none", step.at, *step.want)
		case step.want != nil && ev.Severity != *step.want:
			t.Fatalf("t=%.1f: severity = %s, want %s", step.at, ev.Severity, *step.want)
		}
	}

	if s.Running() {
		t.Error("run should reset to idle immediately after the terminal event")
	}
	if s.Stage != 0 {
		t.Errorf("stage = %d after terminal, want 0", s.Stage)
	}
}

func TestStep_EventFields(t *testing.T) {
	p := testPolicy()
	s, _ := p.Step(State{}, true, at(0))

	_, ev := p.Step(s, true, at(3.25))
	if ev == nil {
		t.Fatal("expected mild event")
	}
	if ev.Stage != 0 {
		t.Errorf("Stage = %d, want 0", ev.Stage)
	}
	if ev.Elapsed != 3250*time.Millisecond {
		t.Errorf("Elapsed = %s, want 3.25s", ev.Elapsed)
	}
	if !ev.At.Equal(at(3.25)) {
		t.Errorf("At = %s, want %s", ev.At, at(3.25))
	}
	if ev.Terminal {
		t.Error("mild event should not be terminal")
	}
	if ev.Message != DefaultCatalog()[SeverityMild][0] {
		t.Errorf("Message = %q, want first mild message", ev.Message)
	}
}

func TestStep_InterruptionRestartsTimer(t *testing.T) {
	p := testPolicy()
	var s State
	var ev *AlertEvent

	s, _ = p.Step(s, true, at(0))
	s, ev = p.Step(s, true, at(2.5))
	if ev != nil {
		t.Fatal("no event expected before the first threshold")
	}

	s, _ = p.Step(s, false, at(2.6))
	if s.Running() {
		t.Fatal("contact loss should end the run")
	}

	s, _ = p.Step(s, true, at(2.7))
	if !s.RunStart.Equal(at(2.7)) {
		t.Errorf("RunStart = %s, want %s", s.RunStart, at(2.7))
	}

	// 3.5s after the first run started, but only 0.8s into the second.
	s, ev = p.Step(s, true, at(3.5))
	if ev != nil {
		t.Fatalf("elapsed must restart from 0, got %s event", ev.Severity)
	}

	_, ev = p.Step(s, true, at(5.7))
	if ev == nil || ev.Severity != SeverityMild {
		t.Fatalf("expected mild event 3s into the new run, got %+v", ev)
	}
}

func TestStep_NoBackfill(t *testing.T) {
	p := testPolicy()
	s, _ := p.Step(State{}, true, at(0))

	s, ev := p.Step(s, true, at(12))
	if ev == nil || ev.Severity != SeverityMild {
		t.Fatalf("expected only the mild event, got %+v", ev)
	}
	if s.Stage != 1 {
		t.Errorf("stage = %d, want 1", s.Stage)
	}

	// The next unfired stage fires on the following step.
	s, ev = p.Step(s, true, at(12.1))
	if ev == nil || ev.Severity != SeverityAngry {
		t.Fatalf("expected angry on the following step, got %+v", ev)
	}

	s, ev = p.Step(s, true, at(12.2))
	if ev == nil || ev.Severity != SeverityTerminal {
		t.Fatalf("expected terminal on the third step, got %+v", ev)
	}
	if s.Running() {
		t.Error("expected idle after terminal")
	}
}

func TestStep_Scenario(t *testing.T) {
	p := testPolicy()
	var s State
	var ev *AlertEvent

	s, ev = p.Step(s, true, at(0))
	if ev != nil || !s.Running() || s.Stage != 0 {
		t.Fatalf("step(true, 0): ev=%v state=%+v", ev, s)
	}

	s, ev = p.Step(s, true, at(3))
	if ev == nil || ev.Severity != SeverityMild || s.Stage != 1 {
		t.Fatalf("step(true, 3): ev=%v state=%+v", ev, s)
	}

	s, ev = p.Step(s, false, at(4))
	if ev != nil || s.Running() || s.Stage != 0 {
		t.Fatalf("step(false, 4): ev=%v state=%+v", ev, s)
	}

	s, ev = p.Step(s, true, at(4))
	if ev != nil || !s.Running() {
		t.Fatalf("step(true, 4): ev=%v state=%+v", ev, s)
	}

	s, ev = p.Step(s, true, at(7))
	if ev == nil || ev.Severity != SeverityMild {
		t.Fatalf("step(true, 7): ev=%v state=%+v", ev, s)
	}
	if ev.Elapsed != 3*time.Second {
		t.Errorf("elapsed = %s, want 3s", ev.Elapsed)
	}
}

func TestStep_RunStartSetOnce(t *testing.T) {
	p := testPolicy()
	s, _ := p.Step(State{}, true, at(1))

	for _, sec := range []float64{1.5, 2, 4, 5, 7} {
		s, _ = p.Step(s, true, at(sec))
		if !s.RunStart.Equal(at(1)) {
			t.Fatalf("t=%.1f: RunStart moved to %s", sec, s.RunStart)
		}
	}
}

func TestStep_NewRunAfterTerminal(t *testing.T) {
	p := testPolicy()
	var s State
	for _, sec := range []float64{0, 3, 6, 10} {
		s, _ = p.Step(s, true, at(sec))
	}
	if s.Running() {
		t.Fatal("expected idle after terminal")
	}

	s, ev := p.Step(s, true, at(10.1))
	if ev != nil {
		t.Fatalf("new run must not alert on its first frame, got %s", ev.Severity)
	}
	if !s.Running() || !s.RunStart.Equal(at(10.1)) {
		t.Fatalf("expected new run at 10.1s, got %+v", s)
	}
}

func TestStep_RearmDelay(t *testing.T) {
	p := testPolicy()
	p.RearmDelay = 5 * time.Second

	var s State
	for _, sec := range []float64{0, 3, 6, 10} {
		s, _ = p.Step(s, true, at(sec))
	}

	s, _ = p.Step(s, true, at(12))
	if s.Running() {
		t.Fatal("contact during re-arm delay must not start a run")
	}

	s, _ = p.Step(s, false, at(13))
	s, _ = p.Step(s, true, at(15))
	if !s.Running() {
		t.Fatal("run should start once the re-arm delay has passed")
	}
}

func TestStep_SingleStagePolicy(t *testing.T) {
	p := Policy{
		Stages:  []Stage{{After: time.Second, Severity: SeverityTerminal}},
		Catalog: Catalog{SeverityTerminal: {"stop"}},
	}

	s, _ := p.Step(State{}, true, at(0))
	s, ev := p.Step(s, true, at(1))
	if ev == nil || !ev.Terminal || ev.Message != "stop" {
		t.Fatalf("expected terminal 'stop', got %+v", ev)
	}
	if s.Running() {
		t.Error("single stage is terminal; expected idle")
	}
}

func TestPick_UsesRand(t *testing.T) {
	p := DefaultPolicy()
	catalog := p.Catalog[SeverityAngry]

	for i := range catalog {
		p.Rand = fixedRand(i)
		if got := p.pick(SeverityAngry); got != catalog[i] {
			t.Errorf("pick with rand %d = %q, want %q", i, got, catalog[i])
		}
	}
}

func TestPick_SeededIsReproducible(t *testing.T) {
	a := DefaultPolicy()
	a.Rand = NewRand(42)
	b := DefaultPolicy()
	b.Rand = NewRand(42)

	for i := 0; i < 20; i++ {
		if x, y := a.pick(SeverityMild), b.pick(SeverityMild); x != y {
			t.Fatalf("pick %d differs: %q vs %q", i, x, y)
		}
	}
}

func TestPick_AlwaysFromCatalog(t *testing.T) {
	p := DefaultPolicy()
	p.Rand = NewRand(7)

	allowed := make(map[string]bool)
	for _, m := range p.Catalog[SeverityTerminal] {
		allowed[m] = true
	}
	for i := 0; i < 200; i++ {
		if msg := p.pick(SeverityTerminal); !allowed[msg] {
			t.Fatalf("pick returned %q, not in catalog", msg)
		}
	}
}

func TestPolicy_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *Policy)
		wantErr error
	}{
		{name: "default is valid", mutate: func(p *Policy) {}},
		{name: "no stages", mutate: func(p *Policy) { p.Stages = nil }, wantErr: ErrNoStages},
		{
			name:    "unordered stages",
			mutate:  func(p *Policy) { p.Stages[1].After = p.Stages[0].After },
			wantErr: ErrStageOrder,
		},
		{
			name:    "empty catalog",
			mutate:  func(p *Policy) { p.Catalog[SeverityAngry] = nil },
			wantErr: ErrEmptyCatalog,
		},
		{
			name:    "unknown severity",
			mutate:  func(p *Policy) { p.Stages[2].Severity = Severity(9) },
			wantErr: ErrBadSeverity,
		},
		{
			name:    "negative rearm",
			mutate:  func(p *Policy) { p.RearmDelay = -time.Second },
			wantErr: ErrNegativeDelay,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPolicy()
			tt.mutate(&p)

			err := p.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSeverity_String(t *testing.T) {
	for _, name := range []string{"mild", "angry", "terminal"} {
		sev, err := ParseSeverity(name)
		if err != nil {
			t.Fatalf("ParseSeverity(%q): %v", name, err)
		}
		if sev.String() != name {
			t.Errorf("String() = %q, want %q", sev.String(), name)
		}
	}
	if _, err := ParseSeverity("furious"); err == nil {
		t.Error("expected error for unknown severity")
	}
	if got := Severity(7).String(); got != "severity(7)" {
		t.Errorf("String() = %q", got)
	}
}

func sevPtr(s Severity) *Severity { return &s }
