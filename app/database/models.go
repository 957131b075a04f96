package database

import (
	"time"
)

// Marker lifecycle states as tracked in the registry.
const (
	MarkerStatusNormalized  = "normalized"
	MarkerStatusQualified   = "qualified"
	MarkerStatusQuarantined = "quarantined"
)

// Marker represents a processed marker in the registry.
type Marker struct {
	File          string // source file name, primary key
	MarkerID      string // canonical marker identifier
	Category      string
	Status        string // normalized, qualified, quarantined
	QualityScore  *float64
	QualityRating string
	ExampleCount  int
	Repaired      bool // true when the recovering parser needed repairs
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Result is one diagnostic report row. Rows are append-only; every pipeline
// stage records one row per document it touched.
type Result struct {
	ID        int64
	File      string
	Status    string // SUCCESS, QUALIFIED, QUARANTINED, FAILED, ERROR
	Stage     string // recovery, normalization, qualification
	Error     string // error-category tag, e.g. YAML_ERROR, VALIDATION_ERROR
	Details   string
	CreatedAt time.Time
}
