package plugin

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/rs/zerolog/log"
)

// ManifestFile is the manifest name looked up in each plugin directory.
const ManifestFile = "plugin.json"

var (
	// ErrPluginNotFound is returned when a requested plugin cannot be found.
	ErrPluginNotFound = errors.New("plugin not found")
	// ErrInvalidManifest wraps every manifest validation failure.
	ErrInvalidManifest = errors.New("invalid plugin manifest")
)

var knownSeverities = []string{"mild", "angry", "terminal"}

// Validate checks the fields discovery relies on.
func (m Manifest) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidManifest)
	}
	if m.Executable == "" {
		return fmt.Errorf("%w: %s has no executable", ErrInvalidManifest, m.Name)
	}
	for _, s := range m.Severities {
		if !slices.Contains(knownSeverities, s) {
			return fmt.Errorf("%w: %s lists unknown severity %q", ErrInvalidManifest, m.Name, s)
		}
	}
	return nil
}

// Manager keeps the notifier plugins found under one directory.
type Manager struct {
	pluginDir string
	plugins   map[string]*Plugin
	mu        sync.RWMutex
}

// NewManager creates a Manager rooted at pluginDir. Nothing is read until
// Discover is called.
func NewManager(pluginDir string) *Manager {
	return &Manager{
		pluginDir: pluginDir,
		plugins:   make(map[string]*Plugin),
	}
}

// Discover rescans the plugin directory, replacing anything found earlier.
// A missing directory yields no plugins. Broken plugins are logged and
// skipped so one bad manifest does not hide the rest.
func (m *Manager) Discover() error {
	entries, err := os.ReadDir(m.pluginDir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		entries = nil
	case err != nil && isNotDir(m.pluginDir):
		entries = nil
	case err != nil:
		return fmt.Errorf("read plugin dir: %w", err)
	}

	found := make(map[string]*Plugin, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		p, err := loadPlugin(filepath.Join(m.pluginDir, entry.Name()))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			log.Warn().Err(err).Str("dir", entry.Name()).Msg("skipping plugin")
			continue
		}
		if prev, dup := found[p.Manifest.Name]; dup {
			log.Warn().Str("plugin", p.Manifest.Name).Str("kept", prev.Path).Msg("duplicate plugin name")
			continue
		}
		found[p.Manifest.Name] = p
		log.Debug().Str("plugin", p.Manifest.Name).Str("version", p.Manifest.Version).Msg("discovered plugin")
	}

	m.mu.Lock()
	m.plugins = found
	m.mu.Unlock()
	return nil
}

func isNotDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// loadPlugin reads and validates dir's manifest. It returns an
// fs.ErrNotExist error when dir holds no manifest.
func loadPlugin(dir string) (*Plugin, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if err := manifest.Validate(); err != nil {
		return nil, err
	}

	return &Plugin{
		Manifest:   manifest,
		Path:       dir,
		Executable: filepath.Join(dir, manifest.Executable),
	}, nil
}

// Get returns a plugin by name, or ErrPluginNotFound.
func (m *Manager) Get(name string) (*Plugin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if p, ok := m.plugins[name]; ok {
		return p, nil
	}
	return nil, ErrPluginNotFound
}

// List returns all discovered plugins sorted by name.
func (m *Manager) List() []*Plugin {
	m.mu.RLock()
	out := make([]*Plugin, 0, len(m.plugins))
	for _, p := range m.plugins {
		out = append(out, p)
	}
	m.mu.RUnlock()

	slices.SortFunc(out, func(a, b *Plugin) int {
		if a.Manifest.Name < b.Manifest.Name {
			return -1
		}
		if a.Manifest.Name > b.Manifest.Name {
			return 1
		}
		return 0
	})
	return out
}

// ForSeverity returns the discovered plugins that handle the given severity.
func (m *Manager) ForSeverity(severity string) []*Plugin {
	var out []*Plugin
	for _, p := range m.List() {
		if p.Manifest.Handles(severity) {
			out = append(out, p)
		}
	}
	return out
}

// PluginDir returns the plugin directory path.
func (m *Manager) PluginDir() string {
	return m.pluginDir
}
