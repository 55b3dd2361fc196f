package api

import (
	"net/http"
	"strings"

	"github.com/ayusman/handsoff/internal/store"
)

// AlertHandler serves the alert journal.
type AlertHandler struct {
	store *store.Store
}

// NewAlertHandler creates a new AlertHandler with the given store.
func NewAlertHandler(s *store.Store) *AlertHandler {
	return &AlertHandler{store: s}
}

type listAlertsResponse struct {
	Alerts []store.Alert `json:"alerts"`
}

type alertStatsResponse struct {
	BySeverity map[string]int `json:"by_severity"`
	Total      int            `json:"total"`
}

// ServeHTTP routes /api/alerts and /api/alerts/stats.
func (h *AlertHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/alerts"), "/") {
	case "":
		h.list(w, r)
	case "stats":
		h.stats(w)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// list handles GET /api/alerts?limit=N, newest first.
func (h *AlertHandler) list(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid limit")
		return
	}

	alerts, err := h.store.Alerts().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list alerts")
		return
	}
	if alerts == nil {
		alerts = []store.Alert{}
	}

	writeJSON(w, http.StatusOK, listAlertsResponse{Alerts: alerts})
}

// stats handles GET /api/alerts/stats.
func (h *AlertHandler) stats(w http.ResponseWriter) {
	counts, err := h.store.Alerts().CountBySeverity()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count alerts")
		return
	}

	resp := alertStatsResponse{BySeverity: counts}
	for _, n := range counts {
		resp.Total += n
	}
	writeJSON(w, http.StatusOK, resp)
}
