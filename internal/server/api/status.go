package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ayusman/handsoff/internal/app"
)

// Controller is the part of the application the status API drives.
type Controller interface {
	Status() app.Status
	SetEnabled(enabled bool)
}

// StatusHandler reports and toggles monitoring.
type StatusHandler struct {
	ctl Controller
}

// NewStatusHandler creates a new StatusHandler for ctl.
func NewStatusHandler(ctl Controller) *StatusHandler {
	return &StatusHandler{ctl: ctl}
}

type setEnabledRequest struct {
	Enabled *bool `json:"enabled"`
}

// ServeHTTP handles GET /api/status and PUT /api/status/enabled.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/status"), "/") {
	case "":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, h.ctl.Status())
	case "enabled":
		if r.Method != http.MethodPut && r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.setEnabled(w, r)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

func (h *StatusHandler) setEnabled(w http.ResponseWriter, r *http.Request) {
	var req setEnabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "enabled is required")
		return
	}

	h.ctl.SetEnabled(*req.Enabled)
	writeJSON(w, http.StatusOK, h.ctl.Status())
}
