package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/handsoff/internal/app"
	"github.com/ayusman/handsoff/internal/escalation"
	"github.com/ayusman/handsoff/internal/store"
)

// fakeController records enable toggles.
type fakeController struct {
	mu      sync.Mutex
	enabled bool
}

func (f *fakeController) Status() app.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return app.Status{Enabled: f.enabled, Phase: "idle", Mode: "idle", Alerts: 2}
}

func (f *fakeController) SetEnabled(enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabled = enabled
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.NewMemory()
	if err != nil {
		t.Fatalf("store.NewMemory() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestServer_Health(t *testing.T) {
	s := New(Config{})

	t.Run("returns 200 with JSON response", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected Content-Type application/json, got %s", ct)
		}

		var response map[string]any
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response["status"] != "ok" {
			t.Errorf("expected status 'ok', got %v", response["status"])
		}
		if _, exists := response["uptime"]; !exists {
			t.Error("expected 'uptime' field in response")
		}
	})

	t.Run("only allows GET method", func(t *testing.T) {
		for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
			req := httptest.NewRequest(method, "/api/health", nil)
			rec := httptest.NewRecorder()

			s.ServeHTTP(rec, req)

			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("method %s: expected status %d, got %d", method, http.StatusMethodNotAllowed, rec.Code)
			}
		}
	})
}

func TestServer_RoutesDisabledWithoutDeps(t *testing.T) {
	s := New(Config{})

	for _, path := range []string{"/api/status", "/api/alerts", "/api/runs", "/api/nonexistent"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected status %d, got %d", path, http.StatusNotFound, rec.Code)
		}
	}
}

func TestServer_Status(t *testing.T) {
	ctl := &fakeController{enabled: true}
	s := New(Config{App: ctl})

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/status = %d", rec.Code)
	}
	var status app.Status
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !status.Enabled || status.Alerts != 2 {
		t.Errorf("status = %+v", status)
	}

	req = httptest.NewRequest(http.MethodPut, "/api/status/enabled", strings.NewReader(`{"enabled": false}`))
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("PUT /api/status/enabled = %d", rec.Code)
	}
	if ctl.Status().Enabled {
		t.Error("expected monitoring to be disabled")
	}
}

func TestServer_Status_BadRequests(t *testing.T) {
	s := New(Config{App: &fakeController{}})

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"invalid json", http.MethodPut, "/api/status/enabled", "nope", http.StatusBadRequest},
		{"missing field", http.MethodPut, "/api/status/enabled", `{}`, http.StatusBadRequest},
		{"wrong method", http.MethodGet, "/api/status/enabled", "", http.StatusMethodNotAllowed},
		{"post status", http.MethodPost, "/api/status", "", http.StatusMethodNotAllowed},
		{"unknown sub path", http.MethodGet, "/api/status/other", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func seedJournal(t *testing.T, s *store.Store) *store.Run {
	t.Helper()
	start := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	run := &store.Run{StartedAt: start}
	if err := s.Runs().Start(run); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	for i, sev := range []string{"mild", "angry"} {
		err := s.Alerts().Create(&store.Alert{
			RunID:     run.ID,
			Severity:  sev,
			Stage:     i,
			Message:   "Hands off!",
			Elapsed:   time.Duration(3*(i+1)) * time.Second,
			CreatedAt: start.Add(time.Duration(3*(i+1)) * time.Second),
		})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	if err := s.Runs().End(run.ID, start.Add(7*time.Second), "angry"); err != nil {
		t.Fatalf("End() error = %v", err)
	}
	return run
}

func TestServer_Alerts(t *testing.T) {
	st := newTestStore(t)
	seedJournal(t, st)
	s := New(Config{Store: st})

	req := httptest.NewRequest(http.MethodGet, "/api/alerts?limit=1", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/alerts = %d", rec.Code)
	}
	var listed struct {
		Alerts []store.Alert `json:"alerts"`
	}
	json.NewDecoder(rec.Body).Decode(&listed)
	if len(listed.Alerts) != 1 || listed.Alerts[0].Severity != "angry" {
		t.Errorf("alerts = %+v, want the newest (angry) only", listed.Alerts)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/alerts/stats", nil)
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	var stats struct {
		BySeverity map[string]int `json:"by_severity"`
		Total      int            `json:"total"`
	}
	json.NewDecoder(rec.Body).Decode(&stats)
	if stats.Total != 2 || stats.BySeverity["mild"] != 1 {
		t.Errorf("stats = %+v", stats)
	}

	for _, bad := range []string{"0", "-3", "ten"} {
		req = httptest.NewRequest(http.MethodGet, "/api/alerts?limit="+bad, nil)
		rec = httptest.NewRecorder()
		s.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: status = %d, want 400", bad, rec.Code)
		}
	}
}

func TestServer_Alerts_EmptyJournal(t *testing.T) {
	s := New(Config{Store: newTestStore(t)})

	req := httptest.NewRequest(http.MethodGet, "/api/alerts", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if body := strings.TrimSpace(rec.Body.String()); body != `{"alerts":[]}` {
		t.Errorf("body = %s, want an empty list", body)
	}
}

func TestServer_Runs(t *testing.T) {
	st := newTestStore(t)
	run := seedJournal(t, st)
	ts := httptest.NewServer(New(Config{Store: st}))
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/api/runs")
	if err != nil {
		t.Fatalf("GET /api/runs error = %v", err)
	}
	var listed struct {
		Runs []struct {
			ID           string `json:"id"`
			PeakSeverity string `json:"peak_severity"`
			Alerts       int    `json:"alerts"`
			DurationMs   int64  `json:"duration_ms"`
		} `json:"runs"`
	}
	json.NewDecoder(resp.Body).Decode(&listed)
	resp.Body.Close()

	if len(listed.Runs) != 1 {
		t.Fatalf("len(runs) = %d, want 1", len(listed.Runs))
	}
	got := listed.Runs[0]
	if got.ID != run.ID || got.PeakSeverity != "angry" || got.Alerts != 2 || got.DurationMs != 7000 {
		t.Errorf("run = %+v", got)
	}

	resp, _ = ts.Client().Get(ts.URL + "/api/runs/" + run.ID)
	var detail struct {
		AlertList []store.Alert `json:"alert_list"`
	}
	json.NewDecoder(resp.Body).Decode(&detail)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || len(detail.AlertList) != 2 {
		t.Errorf("GET run: status %d, %d alerts", resp.StatusCode, len(detail.AlertList))
	}

	resp, _ = ts.Client().Get(ts.URL + "/api/runs/does-not-exist")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET missing run status = %d, want 404", resp.StatusCode)
	}
}

func TestHub_StreamsAlerts(t *testing.T) {
	hub := NewHub()
	ts := httptest.NewServer(New(Config{Hub: hub}))
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/alerts/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.Clients() != 1 {
		t.Fatalf("Clients() = %d, want 1", hub.Clients())
	}

	ev := escalation.AlertEvent{
		Severity: escalation.SeverityAngry,
		Message:  "Seriously, stop touching your face!",
		Stage:    1,
		Elapsed:  6 * time.Second,
	}
	if err := hub.Deliver(context.Background(), ev); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}

	var got struct {
		Severity string `json:"severity"`
		Message  string `json:"message"`
		Stage    int    `json:"stage"`
	}
	if err := json.Unmarshal(msg, &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got.Severity != "angry" || got.Message != ev.Message || got.Stage != 1 {
		t.Errorf("received %+v", got)
	}

	conn.Close()
	deadline = time.Now().Add(2 * time.Second)
	for hub.Clients() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.Clients() != 0 {
		t.Error("client should be removed after disconnect")
	}
}

func TestHub_DeliverWithoutClients(t *testing.T) {
	if err := NewHub().Deliver(context.Background(), escalation.AlertEvent{}); err != nil {
		t.Errorf("Deliver() with no clients = %v", err)
	}
}

func TestServer_Run_Shutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- New(Config{}).Run(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Run() = %v, want nil after cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}
