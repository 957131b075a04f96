package database

import (
	"database/sql"
	"fmt"
	"time"
)

var _ MarkerRepository = (*markerRepository)(nil)

type markerRepository struct {
	db *DB
}

func NewMarkerRepository(db *DB) MarkerRepository {
	return &markerRepository{db: db}
}

// UpsertMarker registers a freshly normalized marker, resetting any previous
// qualification outcome.
func (r *markerRepository) UpsertMarker(file, markerID, category string, exampleCount int, repaired bool) error {
	now := time.Now().UTC()

	_, err := r.db.Exec(`
		INSERT INTO markers (file, marker_id, category, status, quality_score, quality_rating,
		                     example_count, repaired, created_at, updated_at)
		VALUES (?, ?, ?, ?, NULL, '', ?, ?, ?, ?)
		ON CONFLICT (file) DO UPDATE SET
			marker_id = excluded.marker_id,
			category = excluded.category,
			status = excluded.status,
			quality_score = NULL,
			quality_rating = '',
			example_count = excluded.example_count,
			repaired = excluded.repaired,
			updated_at = excluded.updated_at
	`, file, markerID, category, MarkerStatusNormalized, exampleCount, repaired, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert marker: %w", err)
	}

	return nil
}

func (r *markerRepository) UpdateQualification(file string, score float64, rating string) error {
	_, err := r.db.Exec(`
		UPDATE markers
		SET status = ?, quality_score = ?, quality_rating = ?, updated_at = ?
		WHERE file = ?
	`, MarkerStatusQualified, score, rating, time.Now().UTC(), file)
	if err != nil {
		return fmt.Errorf("failed to update qualification: %w", err)
	}
	return nil
}

func (r *markerRepository) MarkQuarantined(file string) error {
	_, err := r.db.Exec(`
		UPDATE markers
		SET status = ?, quality_score = NULL, quality_rating = '', updated_at = ?
		WHERE file = ?
	`, MarkerStatusQuarantined, time.Now().UTC(), file)
	if err != nil {
		return fmt.Errorf("failed to mark marker quarantined: %w", err)
	}
	return nil
}

func (r *markerRepository) GetMarker(markerID string) (*Marker, error) {
	return r.getOne(`WHERE marker_id = ?`, markerID)
}

func (r *markerRepository) GetMarkerByFile(file string) (*Marker, error) {
	return r.getOne(`WHERE file = ?`, file)
}

func (r *markerRepository) getOne(where string, arg any) (*Marker, error) {
	row := r.db.QueryRow(`
		SELECT file, marker_id, category, status, quality_score, quality_rating,
		       example_count, repaired, created_at, updated_at
		FROM markers `+where+` LIMIT 1
	`, arg)

	marker, err := scanMarker(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get marker: %w", err)
	}
	return marker, nil
}

func (r *markerRepository) ListMarkers() ([]Marker, error) {
	return r.list(`
		SELECT file, marker_id, category, status, quality_score, quality_rating,
		       example_count, repaired, created_at, updated_at
		FROM markers ORDER BY file
	`)
}

func (r *markerRepository) ListMarkersByStatus(status string) ([]Marker, error) {
	return r.list(`
		SELECT file, marker_id, category, status, quality_score, quality_rating,
		       example_count, repaired, created_at, updated_at
		FROM markers WHERE status = ? ORDER BY file
	`, status)
}

func (r *markerRepository) list(query string, args ...any) ([]Marker, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list markers: %w", err)
	}
	defer rows.Close()

	var markers []Marker
	for rows.Next() {
		marker, err := scanMarker(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan marker: %w", err)
		}
		markers = append(markers, *marker)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate markers: %w", err)
	}

	return markers, nil
}

func (r *markerRepository) GetMarkerCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM markers`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count markers: %w", err)
	}
	return count, nil
}

func (r *markerRepository) GetStatusCounts() (map[string]int, error) {
	rows, err := r.db.Query(`SELECT status, COUNT(*) FROM markers GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count markers by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate status counts: %w", err)
	}

	return counts, nil
}

func scanMarker(scan func(dest ...any) error) (*Marker, error) {
	var m Marker
	var score sql.NullFloat64

	err := scan(&m.File, &m.MarkerID, &m.Category, &m.Status, &score, &m.QualityRating,
		&m.ExampleCount, &m.Repaired, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if score.Valid {
		m.QualityScore = &score.Float64
	}
	return &m, nil
}
