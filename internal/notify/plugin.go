package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/ayusman/handsoff/internal/escalation"
	"github.com/ayusman/handsoff/internal/plugin"
)

// Plugin delivers alerts through an external notifier plugin.
type Plugin struct {
	plugin   *plugin.Plugin
	executor *plugin.Executor
}

// NewPlugin returns a notifier running p with executor.
func NewPlugin(p *plugin.Plugin, executor *plugin.Executor) *Plugin {
	return &Plugin{plugin: p, executor: executor}
}

// FromManager builds one Plugin notifier per named plugin. Names not found
// by the manager are reported together.
func FromManager(mgr *plugin.Manager, executor *plugin.Executor, names ...string) ([]Notifier, error) {
	var out []Notifier
	var errs []error
	for _, name := range names {
		p, err := mgr.Get(name)
		if err != nil {
			errs = append(errs, fmt.Errorf("plugin %q in %s: %w", name, mgr.PluginDir(), err))
			continue
		}
		out = append(out, NewPlugin(p, executor))
	}
	return out, errors.Join(errs...)
}

// Name returns the plugin name.
func (p *Plugin) Name() string {
	return p.plugin.Manifest.Name
}

// Deliver implements Notifier. Severities the plugin does not handle are
// skipped.
func (p *Plugin) Deliver(ctx context.Context, ev escalation.AlertEvent) error {
	sev := ev.Severity.String()
	if !p.plugin.Manifest.Handles(sev) {
		return nil
	}

	resp, err := p.executor.Execute(ctx, p.plugin, &plugin.Request{
		Title:     Title,
		Severity:  sev,
		Message:   ev.Message,
		Stage:     ev.Stage,
		ElapsedMs: ev.Elapsed.Milliseconds(),
		Terminal:  ev.Terminal,
	})
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("plugin %s: %s", p.Name(), resp.Error)
	}
	return nil
}
