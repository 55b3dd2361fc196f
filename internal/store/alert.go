package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Alert is a delivered alert event.
type Alert struct {
	ID        string        `json:"id"`
	RunID     string        `json:"run_id,omitempty"`
	Severity  string        `json:"severity"`
	Stage     int           `json:"stage"`
	Message   string        `json:"message"`
	Elapsed   time.Duration `json:"elapsed"`
	CreatedAt time.Time     `json:"created_at"`
}

// AlertRepository provides access to the alert journal.
type AlertRepository struct {
	db *sql.DB
}

// Alerts returns the alert repository for this store.
func (s *Store) Alerts() *AlertRepository {
	return &AlertRepository{db: s.db}
}

// Create inserts an alert. A missing ID is generated.
func (r *AlertRepository) Create(a *Alert) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}

	var runID sql.NullString
	if a.RunID != "" {
		runID = sql.NullString{String: a.RunID, Valid: true}
	}

	_, err := r.db.Exec(
		`INSERT INTO alerts (id, run_id, severity, stage, message, elapsed_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, runID, a.Severity, a.Stage, a.Message, a.Elapsed.Milliseconds(), a.CreatedAt,
	)
	return err
}

// List returns the most recent alerts first, at most limit rows.
func (r *AlertRepository) List(limit int) ([]Alert, error) {
	return r.query(
		`SELECT id, run_id, severity, stage, message, elapsed_ms, created_at
		 FROM alerts ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
}

// ListByRun returns a run's alerts in the order they fired.
func (r *AlertRepository) ListByRun(runID string) ([]Alert, error) {
	return r.query(
		`SELECT id, run_id, severity, stage, message, elapsed_ms, created_at
		 FROM alerts WHERE run_id = ? ORDER BY stage`,
		runID,
	)
}

// CountBySeverity returns how many alerts of each severity were recorded.
func (r *AlertRepository) CountBySeverity() (map[string]int, error) {
	rows, err := r.db.Query(`SELECT severity, COUNT(*) FROM alerts GROUP BY severity`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var sev string
		var n int
		if err := rows.Scan(&sev, &n); err != nil {
			return nil, err
		}
		counts[sev] = n
	}
	return counts, rows.Err()
}

func (r *AlertRepository) query(q string, args ...any) ([]Alert, error) {
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []Alert
	for rows.Next() {
		var a Alert
		var runID sql.NullString
		var elapsedMs int64
		if err := rows.Scan(&a.ID, &runID, &a.Severity, &a.Stage, &a.Message, &elapsedMs, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.RunID = runID.String
		a.Elapsed = time.Duration(elapsedMs) * time.Millisecond
		alerts = append(alerts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return alerts, nil
}
