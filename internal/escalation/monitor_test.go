package escalation

import (
	"sync"
	"testing"
)

func TestMonitor_Step(t *testing.T) {
	m := NewMonitor(testPolicy())

	if ev := m.Step(true, at(0)); ev != nil {
		t.Fatalf("unexpected event on first contact frame: %+v", ev)
	}
	if !m.State().Running() {
		t.Fatal("expected running state")
	}

	ev := m.Step(true, at(3))
	if ev == nil || ev.Severity != SeverityMild {
		t.Fatalf("expected mild event, got %+v", ev)
	}

	snap := m.Snapshot()
	if snap.Alerts != 1 {
		t.Errorf("Alerts = %d, want 1", snap.Alerts)
	}
	if snap.Last == nil || snap.Last.Severity != SeverityMild {
		t.Errorf("Last = %+v, want mild", snap.Last)
	}
	if snap.State.Stage != 1 {
		t.Errorf("Stage = %d, want 1", snap.State.Stage)
	}
}

func TestMonitor_Reset(t *testing.T) {
	m := NewMonitor(testPolicy())
	m.Step(true, at(0))
	m.Step(true, at(3))

	m.Reset()

	if m.State().Running() {
		t.Error("expected idle after Reset")
	}
	if m.Snapshot().Alerts != 1 {
		t.Error("Reset should keep the alert counter")
	}
}

func TestMonitor_IndependentInstances(t *testing.T) {
	a := NewMonitor(testPolicy())
	b := NewMonitor(testPolicy())

	a.Step(true, at(0))
	b.Step(false, at(0))

	if !a.State().Running() || b.State().Running() {
		t.Error("monitors must not share state")
	}
}

func TestMonitor_SnapshotIsCopy(t *testing.T) {
	m := NewMonitor(testPolicy())
	m.Step(true, at(0))
	m.Step(true, at(3))

	snap := m.Snapshot()
	snap.Last.Message = "changed"

	if m.Snapshot().Last.Message == "changed" {
		t.Error("Snapshot must not expose internal state")
	}
}

func TestMonitor_ConcurrentSnapshots(t *testing.T) {
	m := NewMonitor(testPolicy())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			_ = m.Snapshot()
		}
	}()

	for i := 0; i < 1000; i++ {
		m.Step(i%50 != 0, at(float64(i)*0.1))
	}
	wg.Wait()
}

func TestRunTransitions(t *testing.T) {
	idle := State{}
	running := State{Phase: PhaseRunning, RunStart: at(0)}

	if !RunStarted(idle, running) || RunStarted(running, running) || RunStarted(idle, idle) {
		t.Error("RunStarted mismatch")
	}
	if !RunEnded(running, idle) || RunEnded(idle, idle) || RunEnded(running, running) {
		t.Error("RunEnded mismatch")
	}
}
