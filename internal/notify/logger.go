package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ayusman/handsoff/internal/escalation"
)

// Logger writes one structured log line per alert.
type Logger struct {
	log zerolog.Logger
}

// NewLogger returns a Logger writing to l.
func NewLogger(l zerolog.Logger) *Logger {
	return &Logger{log: l.With().Str("component", "alert").Logger()}
}

// Deliver implements Notifier.
func (l *Logger) Deliver(_ context.Context, ev escalation.AlertEvent) error {
	e := l.log.Warn()
	if ev.Terminal {
		e = l.log.Error()
	}
	e.Str("severity", ev.Severity.String()).
		Int("stage", ev.Stage).
		Dur("elapsed", ev.Elapsed).
		Bool("terminal", ev.Terminal).
		Msg(ev.Message)
	return nil
}
