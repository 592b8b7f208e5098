package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Recognition is one completed gesture in the history.
type Recognition struct {
	ID           string
	GestureType  string
	TrackingID   uint64
	Tick         uint64
	RecognizedAt time.Time
}

// RecognitionRepository records and queries the recognition history.
type RecognitionRepository struct {
	db *sql.DB
}

// Recognitions returns the recognition history repository for this store.
func (s *Store) Recognitions() *RecognitionRepository {
	return &RecognitionRepository{db: s.db}
}

// Create inserts a recognition. An empty ID is filled with a new UUID and a
// zero RecognizedAt with the current time.
func (r *RecognitionRepository) Create(rec *Recognition) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.RecognizedAt.IsZero() {
		rec.RecognizedAt = time.Now()
	}

	// Tracking IDs are stored bit-for-bit in SQLite's signed INTEGER. Times
	// are stored in UTC so that they order as text.
	_, err := r.db.Exec(
		`INSERT INTO recognitions (id, gesture_type, tracking_id, tick, recognized_at)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.GestureType, int64(rec.TrackingID), int64(rec.Tick), rec.RecognizedAt.UTC(),
	)
	return err
}

// ListRecent retrieves up to limit recognitions, newest first.
func (r *RecognitionRepository) ListRecent(limit int) ([]*Recognition, error) {
	rows, err := r.db.Query(
		`SELECT id, gesture_type, tracking_id, tick, recognized_at
		 FROM recognitions ORDER BY recognized_at DESC, tick DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recs := []*Recognition{}
	for rows.Next() {
		rec := &Recognition{}
		var trackingID, tick int64

		if err := rows.Scan(&rec.ID, &rec.GestureType, &trackingID, &tick, &rec.RecognizedAt); err != nil {
			return nil, err
		}

		rec.TrackingID = uint64(trackingID)
		rec.Tick = uint64(tick)
		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return recs, nil
}

// CountByType returns the number of recognitions per gesture type.
func (r *RecognitionRepository) CountByType() (map[string]int, error) {
	rows, err := r.db.Query(`SELECT gesture_type, COUNT(*) FROM recognitions GROUP BY gesture_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var gestureType string
		var n int
		if err := rows.Scan(&gestureType, &n); err != nil {
			return nil, err
		}
		counts[gestureType] = n
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return counts, nil
}

// DeleteBefore removes recognitions older than t and returns how many were
// removed.
func (r *RecognitionRepository) DeleteBefore(t time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM recognitions WHERE recognized_at < ?`, t.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
