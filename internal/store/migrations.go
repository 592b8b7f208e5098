package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Gesture settings table - per-type overrides of the built-in definitions
		`CREATE TABLE IF NOT EXISTS gesture_settings (
			type TEXT PRIMARY KEY,
			enabled INTEGER NOT NULL DEFAULT 1,
			window_size INTEGER NOT NULL DEFAULT 0,
			max_pause_count INTEGER NOT NULL DEFAULT 0,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Actions table - plugin actions to run when a gesture is recognized
		`CREATE TABLE IF NOT EXISTS actions (
			id TEXT PRIMARY KEY,
			gesture_type TEXT NOT NULL,
			plugin_name TEXT NOT NULL,
			action_name TEXT NOT NULL,
			config TEXT NOT NULL DEFAULT '{}',
			enabled INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Recognitions table - history of completed gestures
		`CREATE TABLE IF NOT EXISTS recognitions (
			id TEXT PRIMARY KEY,
			gesture_type TEXT NOT NULL,
			tracking_id INTEGER NOT NULL,
			tick INTEGER NOT NULL,
			recognized_at DATETIME NOT NULL
		)`,

		// Settings table - stores application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		// Indexes for better query performance
		`CREATE INDEX IF NOT EXISTS idx_actions_gesture_type ON actions(gesture_type)`,
		`CREATE INDEX IF NOT EXISTS idx_recognitions_recognized_at ON recognitions(recognized_at)`,
		`CREATE INDEX IF NOT EXISTS idx_recognitions_gesture_type ON recognitions(gesture_type)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
