package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/handsoff/internal/store"
)

// RunHandler serves journaled contact runs.
type RunHandler struct {
	store *store.Store
}

// NewRunHandler creates a new RunHandler with the given store.
func NewRunHandler(s *store.Store) *RunHandler {
	return &RunHandler{store: s}
}

type runResponse struct {
	store.Run
	DurationMs int64         `json:"duration_ms"`
	AlertList  []store.Alert `json:"alert_list,omitempty"`
}

type listRunsResponse struct {
	Runs []runResponse `json:"runs"`
}

// ServeHTTP routes /api/runs and /api/runs/{id}.
func (h *RunHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/runs"), "/")
	if id == "" {
		h.list(w, r)
		return
	}
	h.get(w, id)
}

func toRunResponse(run store.Run) runResponse {
	return runResponse{Run: run, DurationMs: run.Duration().Milliseconds()}
}

// list handles GET /api/runs?limit=N.
func (h *RunHandler) list(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid limit")
		return
	}

	runs, err := h.store.Runs().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}

	resp := listRunsResponse{Runs: make([]runResponse, 0, len(runs))}
	for _, run := range runs {
		resp.Runs = append(resp.Runs, toRunResponse(run))
	}
	writeJSON(w, http.StatusOK, resp)
}

// get handles GET /api/runs/{id} including the run's alerts.
func (h *RunHandler) get(w http.ResponseWriter, id string) {
	run, err := h.store.Runs().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Run not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get run")
		return
	}

	alerts, err := h.store.Alerts().ListByRun(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list run alerts")
		return
	}

	resp := toRunResponse(*run)
	resp.AlertList = alerts
	writeJSON(w, http.StatusOK, resp)
}
