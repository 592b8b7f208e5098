package store

import (
	"database/sql"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// GestureSetting holds the stored overrides for one built-in gesture type.
// Zero limits keep the built-in values.
type GestureSetting struct {
	Type          string
	Enabled       bool
	WindowSize    int
	MaxPauseCount int
	UpdatedAt     time.Time
}

// GestureRepository provides access to gesture settings.
type GestureRepository struct {
	db *sql.DB
}

// Gestures returns the gesture settings repository for this store.
func (s *Store) Gestures() *GestureRepository {
	return &GestureRepository{db: s.db}
}

// Get retrieves the settings of a gesture type.
func (r *GestureRepository) Get(gestureType string) (*GestureSetting, error) {
	g := &GestureSetting{}
	var enabled int

	err := r.db.QueryRow(
		`SELECT type, enabled, window_size, max_pause_count, updated_at
		 FROM gesture_settings WHERE type = ?`,
		gestureType,
	).Scan(&g.Type, &enabled, &g.WindowSize, &g.MaxPauseCount, &g.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	g.Enabled = enabled != 0
	return g, nil
}

// List retrieves every stored gesture setting ordered by type.
func (r *GestureRepository) List() ([]*GestureSetting, error) {
	rows, err := r.db.Query(
		`SELECT type, enabled, window_size, max_pause_count, updated_at
		 FROM gesture_settings ORDER BY type`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var settings []*GestureSetting
	for rows.Next() {
		g := &GestureSetting{}
		var enabled int

		if err := rows.Scan(&g.Type, &enabled, &g.WindowSize, &g.MaxPauseCount, &g.UpdatedAt); err != nil {
			return nil, err
		}

		g.Enabled = enabled != 0
		settings = append(settings, g)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return settings, nil
}

// Upsert inserts or replaces the settings of a gesture type.
func (r *GestureRepository) Upsert(g *GestureSetting) error {
	g.UpdatedAt = time.Now()

	enabled := 0
	if g.Enabled {
		enabled = 1
	}

	_, err := r.db.Exec(
		`INSERT INTO gesture_settings (type, enabled, window_size, max_pause_count, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(type) DO UPDATE SET
			enabled = excluded.enabled,
			window_size = excluded.window_size,
			max_pause_count = excluded.max_pause_count,
			updated_at = excluded.updated_at`,
		g.Type, enabled, g.WindowSize, g.MaxPauseCount, g.UpdatedAt,
	)
	return err
}

// Delete removes the settings of a gesture type, restoring its built-in values.
func (r *GestureRepository) Delete(gestureType string) error {
	result, err := r.db.Exec(`DELETE FROM gesture_settings WHERE type = ?`, gestureType)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
