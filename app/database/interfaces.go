package database

// MarkerRepository tracks the lifecycle of every processed marker.
type MarkerRepository interface {
	UpsertMarker(file, markerID, category string, exampleCount int, repaired bool) error
	UpdateQualification(file string, score float64, rating string) error
	MarkQuarantined(file string) error

	GetMarker(markerID string) (*Marker, error)
	GetMarkerByFile(file string) (*Marker, error)
	ListMarkers() ([]Marker, error)
	ListMarkersByStatus(status string) ([]Marker, error)
	GetMarkerCount() (int, error)
	GetStatusCounts() (map[string]int, error)
}

// ResultRepository accumulates diagnostic report rows. Append-only.
type ResultRepository interface {
	Record(file, status, stage, errorTag, details string) error
	List(limit int) ([]Result, error)
	ListAll() ([]Result, error)
	GetResultCount() (int, error)
}
