package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Contact runs - one row per continuous hand-near-face episode
		`CREATE TABLE IF NOT EXISTS contact_runs (
			id TEXT PRIMARY KEY,
			started_at DATETIME NOT NULL,
			ended_at DATETIME,
			peak_severity TEXT CHECK(peak_severity IN ('mild', 'angry', 'terminal')),
			alerts INTEGER NOT NULL DEFAULT 0
		)`,

		// Alerts - every alert event delivered during the session
		`CREATE TABLE IF NOT EXISTS alerts (
			id TEXT PRIMARY KEY,
			run_id TEXT REFERENCES contact_runs(id) ON DELETE CASCADE,
			severity TEXT NOT NULL CHECK(severity IN ('mild', 'angry', 'terminal')),
			stage INTEGER NOT NULL,
			message TEXT NOT NULL,
			elapsed_ms INTEGER NOT NULL,
			created_at DATETIME NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_alerts_run_id ON alerts(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_created_at ON alerts(created_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
