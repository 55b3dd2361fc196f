// Package tray provides the macOS menu bar interface for Hands Off.
package tray

import (
	"fmt"
	"sync"
	"time"

	"github.com/getlantern/systray"

	"github.com/ayusman/handsoff/internal/app"
	"github.com/ayusman/handsoff/internal/escalation"
)

// DefaultRefresh is how often the menu polls the application status.
const DefaultRefresh = time.Second

// Tray represents the menu bar application.
type Tray struct {
	onToggle func(enabled bool)
	onOpen   func()
	onQuit   func()
	status   func() app.Status
	refresh  time.Duration
	enabled  bool
	mu       sync.RWMutex

	menuToggle    *systray.MenuItem
	menuState     *systray.MenuItem
	menuAlerts    *systray.MenuItem
	menuLastAlert *systray.MenuItem
}

// New creates a Tray with monitoring shown as enabled.
func New() *Tray {
	return &Tray{
		enabled: true,
		refresh: DefaultRefresh,
	}
}

// OnToggle sets the callback invoked when monitoring is switched on or off.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnOpen sets the callback for the "Open Status..." item. Without one the
// item is hidden.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback invoked before the tray exits.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Watch polls fn every interval and mirrors the result in the menu.
func (t *Tray) Watch(fn func() app.Status, interval time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = fn
	if interval > 0 {
		t.refresh = interval
	}
}

// Run starts the menu bar application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the menu bar application.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("✋")
	systray.SetTooltip("Hands Off")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle face-touch monitoring")
	systray.AddSeparator()

	t.menuState = systray.AddMenuItem("Hands clear", "Current contact state")
	t.menuState.Disable()
	t.menuAlerts = systray.AddMenuItem(alertsTitle(0), "Alerts this session")
	t.menuAlerts.Disable()
	t.menuLastAlert = systray.AddMenuItem("Last: none", "Last alert")
	t.menuLastAlert.Disable()
	systray.AddSeparator()

	menuOpen := systray.AddMenuItem("Open Status...", "Open the status API in a browser")
	if t.onOpen == nil {
		menuOpen.Hide()
	}
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Hands Off")
	statusFn, refresh := t.status, t.refresh
	t.mu.Unlock()

	stop := make(chan struct{})
	if statusFn != nil {
		go t.poll(statusFn, refresh, stop)
	}

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuOpen.ClickedCh:
				t.handleOpen()
			case <-menuQuit.ClickedCh:
				close(stop)
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

func (t *Tray) poll(fn func() app.Status, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		t.SetStatus(fn())
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
	}
}

func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	t.menuToggle.SetTitle(toggleTitle(enabled))
	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) handleOpen() {
	t.mu.RLock()
	callback := t.onOpen
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetStatus updates the menu from an application status.
func (t *Tray) SetStatus(st app.Status) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.enabled != st.Enabled {
		t.enabled = st.Enabled
		if t.menuToggle != nil {
			t.menuToggle.SetTitle(toggleTitle(st.Enabled))
		}
	}
	if t.menuState == nil {
		return
	}
	t.menuState.SetTitle(stateTitle(st, time.Now()))
	t.menuAlerts.SetTitle(alertsTitle(st.Alerts))
	t.menuLastAlert.SetTitle(lastAlertTitle(st.LastAlert))
}

// IsEnabled returns the enabled state shown in the menu.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Monitoring"
	}
	return "○ Paused"
}

func stateTitle(st app.Status, now time.Time) string {
	switch {
	case !st.Enabled:
		return "Paused"
	case st.RunStart != nil:
		return fmt.Sprintf("Hand near face for %s", now.Sub(*st.RunStart).Round(100*time.Millisecond))
	case st.Mode == "idle":
		return "Hands clear (idle)"
	default:
		return "Hands clear"
	}
}

func alertsTitle(n int) string {
	if n == 1 {
		return "1 alert this session"
	}
	return fmt.Sprintf("%d alerts this session", n)
}

func lastAlertTitle(ev *escalation.AlertEvent) string {
	if ev == nil {
		return "Last: none"
	}
	return fmt.Sprintf("Last: %s at %s", ev.Severity, ev.At.Format("15:04:05"))
}
