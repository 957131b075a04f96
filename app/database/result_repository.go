package database

import (
	"fmt"
	"time"
)

var _ ResultRepository = (*resultRepository)(nil)

type resultRepository struct {
	db *DB
}

func NewResultRepository(db *DB) ResultRepository {
	return &resultRepository{db: db}
}

func (r *resultRepository) Record(file, status, stage, errorTag, details string) error {
	_, err := r.db.Exec(`
		INSERT INTO results (file, status, stage, error, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, file, status, stage, errorTag, details, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record result: %w", err)
	}
	return nil
}

func (r *resultRepository) List(limit int) ([]Result, error) {
	return r.list(`
		SELECT id, file, status, stage, error, details, created_at
		FROM results ORDER BY created_at DESC, id DESC LIMIT ?
	`, limit)
}

func (r *resultRepository) ListAll() ([]Result, error) {
	return r.list(`
		SELECT id, file, status, stage, error, details, created_at
		FROM results ORDER BY created_at, id
	`)
}

func (r *resultRepository) list(query string, args ...any) ([]Result, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var result Result
		err := rows.Scan(&result.ID, &result.File, &result.Status, &result.Stage,
			&result.Error, &result.Details, &result.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate results: %w", err)
	}

	return results, nil
}

func (r *resultRepository) GetResultCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM results`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count results: %w", err)
	}
	return count, nil
}
