// Package app wires capture, landmark detection, proximity classification,
// escalation and alert delivery into the Hands Off frame loop.
package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ayusman/handsoff/internal/capture"
	"github.com/ayusman/handsoff/internal/detector"
	"github.com/ayusman/handsoff/internal/escalation"
	"github.com/ayusman/handsoff/internal/notify"
	"github.com/ayusman/handsoff/internal/proximity"
	"github.com/ayusman/handsoff/internal/store"
)

// DefaultNotifyTimeout bounds a single alert delivery.
const DefaultNotifyTimeout = 5 * time.Second

// ErrAlreadyRunning is returned by Start when the pipeline is running.
var ErrAlreadyRunning = errors.New("pipeline already running")

// Config holds configuration options for the application.
type Config struct {
	// Store journals runs and alerts; nil disables journaling.
	Store      *store.Store
	Camera     capture.Config
	Gate       capture.GateConfig
	Detector   detector.Config
	Classifier proximity.Config
	Policy     escalation.Policy
	// Notifier receives every alert; nil discards them.
	Notifier      notify.Notifier
	NotifyTimeout time.Duration
	// Clock returns the current time; nil uses time.Now.
	Clock func() time.Time
}

// Status is a point-in-time view of the application for the tray and API.
type Status struct {
	Enabled   bool                   `json:"enabled"`
	Running   bool                   `json:"running"`
	Mode      string                 `json:"mode"`
	Phase     string                 `json:"phase"`
	Stage     int                    `json:"stage"`
	RunStart  *time.Time             `json:"run_start,omitempty"`
	Alerts    int                    `json:"alerts"`
	LastAlert *escalation.AlertEvent `json:"last_alert,omitempty"`
}

// App is the main application that turns camera frames into alerts.
type App struct {
	config     Config
	camera     capture.Camera
	gate       *capture.Gate
	detector   detector.Detector
	classifier *proximity.Classifier
	monitor    *escalation.Monitor
	notifier   notify.Notifier
	journal    *journal
	log        zerolog.Logger

	mu      sync.RWMutex
	enabled bool
	mode    capture.Mode
	stopCh  chan struct{}
	doneCh  chan struct{}

	// frameMu serialises monitor steps with resets from SetEnabled.
	frameMu     sync.Mutex
	lastContact bool
}

// New creates an App. The MediaPipe detector is used when available;
// otherwise a mock detector that never sees anyone is installed.
func New(config Config) *App {
	if config.NotifyTimeout <= 0 {
		config.NotifyTimeout = DefaultNotifyTimeout
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}
	if config.Notifier == nil {
		config.Notifier = notify.Nop{}
	}
	if len(config.Policy.Stages) == 0 {
		config.Policy = escalation.DefaultPolicy()
	}

	a := &App{
		config:     config,
		camera:     capture.NewCamera(config.Camera),
		gate:       capture.NewGate(config.Gate),
		classifier: proximity.NewClassifier(config.Classifier),
		monitor:    escalation.NewMonitor(config.Policy),
		notifier:   config.Notifier,
		journal:    newJournal(config.Store),
		log:        log.With().Str("component", "app").Logger(),
		enabled:    true,
	}
	a.mode = a.gate.Mode()

	if mp, err := detector.NewMediaPipeDetector(config.Detector); err == nil {
		a.detector = mp
		a.log.Info().Msg("using MediaPipe landmark detection")
	} else {
		a.log.Error().Err(err).Msg("MediaPipe not available, no hands or faces will be detected")
		a.detector = detector.NewMockDetector()
	}

	return a
}

// SetEnabled pauses or resumes monitoring. Pausing drops any contact run in
// progress so no stale alert fires on resume.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	changed := a.enabled != enabled
	a.enabled = enabled
	a.mu.Unlock()

	if !changed {
		return
	}
	if !enabled {
		a.frameMu.Lock()
		prev := a.monitor.State()
		a.monitor.Reset()
		a.lastContact = false
		if prev.Running() {
			a.journal.endRun(a.config.Clock())
		}
		a.frameMu.Unlock()
	}
	a.log.Info().Bool("enabled", enabled).Msg("monitoring toggled")
}

// IsEnabled returns whether monitoring is enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetDetector replaces the landmark detector.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// Detector returns the landmark detector.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

// SetCamera replaces the frame source. It must be called before Start.
func (a *App) SetCamera(c capture.Camera) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.camera = c
}

// Camera returns the frame source.
func (a *App) Camera() capture.Camera {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.camera
}

// Monitor returns the escalation monitor.
func (a *App) Monitor() *escalation.Monitor {
	return a.monitor
}

// Classifier returns the proximity classifier.
func (a *App) Classifier() *proximity.Classifier {
	return a.classifier
}

// Status returns the current application status.
func (a *App) Status() Status {
	snap := a.monitor.Snapshot()

	a.mu.RLock()
	st := Status{
		Enabled: a.enabled,
		Running: a.stopCh != nil,
		Mode:    a.mode.String(),
	}
	a.mu.RUnlock()

	st.Phase = snap.State.Phase.String()
	st.Stage = snap.State.Stage
	st.Alerts = snap.Alerts
	st.LastAlert = snap.Last
	if snap.State.Running() {
		start := snap.State.RunStart
		st.RunStart = &start
	}
	return st
}

// ProcessFrame classifies one frame's landmarks observed at now and advances
// the escalation. The returned alert, if any, has already been journaled and
// delivered.
func (a *App) ProcessFrame(det detector.Detection, now time.Time) *escalation.AlertEvent {
	return a.Observe(a.classifier.Contact(det), now)
}

// Observe advances the escalation with a contact observation taken at now.
// Observations made while monitoring is paused are dropped.
func (a *App) Observe(contact bool, now time.Time) *escalation.AlertEvent {
	a.frameMu.Lock()
	// SetEnabled flips the flag before taking frameMu to reset, so a frame
	// that passed the loop's check before a pause is caught here.
	if !a.IsEnabled() {
		a.frameMu.Unlock()
		return nil
	}
	prev := a.monitor.State()
	ev := a.monitor.Step(contact, now)
	next := a.monitor.State()
	a.lastContact = contact

	if escalation.RunStarted(prev, next) {
		a.journal.startRun(now)
		a.log.Debug().Time("at", now).Msg("contact run started")
	}
	if ev != nil {
		a.journal.recordAlert(*ev)
	}
	if escalation.RunEnded(prev, next) {
		a.journal.endRun(now)
		a.log.Debug().Dur("elapsed", now.Sub(prev.RunStart)).Msg("contact run ended")
	}
	a.frameMu.Unlock()

	if ev != nil {
		a.deliver(*ev)
	}
	return ev
}

// deliver hands ev to the notifier. Failures are logged and never returned.
func (a *App) deliver(ev escalation.AlertEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), a.config.NotifyTimeout)
	defer cancel()

	if err := a.notifier.Deliver(ctx, ev); err != nil {
		a.log.Error().Err(err).
			Str("severity", ev.Severity.String()).
			Msg("alert delivery failed")
	}
}

// Start opens the camera and begins the frame loop.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return ErrAlreadyRunning
	}

	if err := a.camera.Open(); err != nil {
		return err
	}
	a.camera.SetFPS(a.gate.FPS())

	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.runPipeline(a.stopCh, a.doneCh)

	a.log.Info().Int("fps", a.gate.FPS()).Msg("detection pipeline started")
	return nil
}

// Stop halts the frame loop, waits for it to exit and releases resources.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, doneCh := a.stopCh, a.doneCh
	a.stopCh, a.doneCh = nil, nil
	a.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		<-doneCh
	}

	if err := a.Camera().Close(); err != nil {
		a.log.Warn().Err(err).Msg("error closing camera")
	}
	a.gate.Close()

	if d := a.Detector(); d != nil {
		if err := d.Close(); err != nil {
			a.log.Warn().Err(err).Msg("error closing detector")
		}
	}

	a.frameMu.Lock()
	if a.monitor.State().Running() {
		a.journal.endRun(a.config.Clock())
	}
	a.monitor.Reset()
	a.frameMu.Unlock()

	a.log.Info().Msg("detection pipeline stopped")
}

func (a *App) setMode(m capture.Mode) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.mode = m
}
