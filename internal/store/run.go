package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Run is one continuous contact episode.
type Run struct {
	ID           string     `json:"id"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	PeakSeverity string     `json:"peak_severity,omitempty"`
	Alerts       int        `json:"alerts"`
}

// Duration returns how long the run lasted, or 0 if it is still open.
func (r *Run) Duration() time.Duration {
	if r.EndedAt == nil {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}

// RunRepository provides access to contact runs.
type RunRepository struct {
	db *sql.DB
}

// Runs returns the run repository for this store.
func (s *Store) Runs() *RunRepository {
	return &RunRepository{db: s.db}
}

// Start inserts an open run. A missing ID is generated.
func (r *RunRepository) Start(run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	_, err := r.db.Exec(
		`INSERT INTO contact_runs (id, started_at) VALUES (?, ?)`,
		run.ID, run.StartedAt,
	)
	return err
}

// End closes a run, recording its end time and highest severity reached.
// An empty peakSeverity means the run ended without alerting.
func (r *RunRepository) End(id string, endedAt time.Time, peakSeverity string) error {
	var peak sql.NullString
	if peakSeverity != "" {
		peak = sql.NullString{String: peakSeverity, Valid: true}
	}

	result, err := r.db.Exec(
		`UPDATE contact_runs
		 SET ended_at = ?, peak_severity = ?,
		     alerts = (SELECT COUNT(*) FROM alerts WHERE run_id = ?)
		 WHERE id = ?`,
		endedAt, peak, id, id,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID retrieves a run by its ID.
func (r *RunRepository) GetByID(id string) (*Run, error) {
	row := r.db.QueryRow(
		`SELECT id, started_at, ended_at, peak_severity, alerts
		 FROM contact_runs WHERE id = ?`,
		id,
	)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return run, err
}

// List returns the most recent runs first, at most limit rows.
func (r *RunRepository) List(limit int) ([]Run, error) {
	rows, err := r.db.Query(
		`SELECT id, started_at, ended_at, peak_severity, alerts
		 FROM contact_runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var run Run
	var ended sql.NullTime
	var peak sql.NullString
	if err := row.Scan(&run.ID, &run.StartedAt, &ended, &peak, &run.Alerts); err != nil {
		return nil, err
	}
	if ended.Valid {
		t := ended.Time
		run.EndedAt = &t
	}
	run.PeakSeverity = peak.String
	return &run, nil
}
