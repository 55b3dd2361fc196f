// Package plugin discovers and runs external notifier plugins for Hands Off.
//
// A plugin is a directory holding a plugin.json manifest and an executable.
// The executable receives one Request as JSON on stdin and must print one
// Response as JSON on stdout.
package plugin

import (
	"encoding/json"
	"slices"
)

// Manifest describes a plugin's metadata and capabilities.
type Manifest struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
	Executable  string `json:"executable"`
	// Severities lists the alert severities the plugin handles; empty means all.
	Severities []string        `json:"severities,omitempty"`
	Config     json.RawMessage `json:"config,omitempty"`
}

// Handles reports whether the plugin wants alerts of the given severity.
func (m Manifest) Handles(severity string) bool {
	return len(m.Severities) == 0 || slices.Contains(m.Severities, severity)
}

// Request represents an alert sent to a plugin for delivery.
type Request struct {
	Title     string          `json:"title"`
	Severity  string          `json:"severity"`
	Message   string          `json:"message"`
	Stage     int             `json:"stage"`
	ElapsedMs int64           `json:"elapsed_ms"`
	Terminal  bool            `json:"terminal"`
	Config    json.RawMessage `json:"config,omitempty"`
}

// Response represents the response from a plugin execution.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
