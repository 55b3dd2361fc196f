package app

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ayusman/handsoff/internal/escalation"
	"github.com/ayusman/handsoff/internal/store"
)

// journal records contact runs and their alerts in the store.
// Write failures are logged; they never interrupt the frame loop.
type journal struct {
	store *store.Store

	mu    sync.Mutex
	runID string
	peak  escalation.Severity
	fired bool
}

func newJournal(s *store.Store) *journal {
	return &journal{store: s}
}

func (j *journal) startRun(at time.Time) {
	if j.store == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	run := &store.Run{StartedAt: at}
	if err := j.store.Runs().Start(run); err != nil {
		log.Error().Err(err).Msg("journal run start")
		j.runID = ""
		return
	}
	j.runID = run.ID
	j.fired = false
}

func (j *journal) recordAlert(ev escalation.AlertEvent) {
	if j.store == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.fired || ev.Severity > j.peak {
		j.peak = ev.Severity
	}
	j.fired = true

	err := j.store.Alerts().Create(&store.Alert{
		RunID:     j.runID,
		Severity:  ev.Severity.String(),
		Stage:     ev.Stage,
		Message:   ev.Message,
		Elapsed:   ev.Elapsed,
		CreatedAt: ev.At,
	})
	if err != nil {
		log.Error().Err(err).Msg("journal alert")
	}
}

func (j *journal) endRun(at time.Time) {
	if j.store == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.runID == "" {
		return
	}
	peak := ""
	if j.fired {
		peak = j.peak.String()
	}
	if err := j.store.Runs().End(j.runID, at, peak); err != nil {
		log.Error().Err(err).Str("run", j.runID).Msg("journal run end")
	}
	j.runID = ""
	j.fired = false
}

// currentRun returns the open run ID, if any.
func (j *journal) currentRun() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.runID
}
