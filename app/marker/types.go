package marker

// Marker processing types

// Category groups markers by the kind of pattern they describe. It drives
// frame template selection during normalization.
type Category string

const (
	CategoryEntity       Category = "ENTITY"
	CategoryAttachment   Category = "ATTACHMENT"
	CategoryEmotion      Category = "EMOTION"
	CategoryConversation Category = "CONVERSATION"
	CategoryMeta         Category = "META"
)

// Frame is the four-part semantic description attached to every marker.
type Frame struct {
	Signal     string `yaml:"signal"`
	Concept    string `yaml:"concept"`
	Pragmatics string `yaml:"pragmatics"`
	Narrative  string `yaml:"narrative"`
}

// Component is a single entry of a composed_of descriptor.
type Component struct {
	Type      string   `yaml:"type"`
	MarkerIDs []string `yaml:"marker_ids"`
}

// Metadata carries provenance information for a normalized marker.
type Metadata struct {
	Created string   `yaml:"created"`
	Author  string   `yaml:"author"`
	Version string   `yaml:"version"`
	Tags    []string `yaml:"tags"`
}

// Marker is the canonical Lean Deep 3.11 record. Field order matters for
// serialization: id, frame, examples, descriptor, metadata, optional fields.
type Marker struct {
	ID          string      `yaml:"id"`
	Frame       Frame       `yaml:"frame"`
	Examples    []string    `yaml:"examples"`
	Pattern     string      `yaml:"pattern,omitempty"`
	ComposedOf  []Component `yaml:"composed_of,omitempty"`
	DetectClass any         `yaml:"detect_class,omitempty"`
	Metadata    *Metadata   `yaml:"metadata,omitempty"`

	Category            string `yaml:"category,omitempty"`
	SemanticID          string `yaml:"semantic_id,omitempty"`
	OriginalDescription string `yaml:"original_description,omitempty"`
}

// ValidationResult is the outcome of a single validation call. Errors are
// disqualifying, warnings are advisory.
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// Status is the terminal qualification state of a marker.
type Status string

const (
	StatusQualified Status = "QUALIFIED"
	StatusFailed    Status = "FAILED"
	StatusError     Status = "ERROR"
)

// Rating is the categorical quality rating derived from the score.
type Rating string

const (
	RatingExcellent        Rating = "Excellent"
	RatingGood             Rating = "Good"
	RatingAcceptable       Rating = "Acceptable"
	RatingNeedsImprovement Rating = "Needs Improvement"
	RatingPoor             Rating = "Poor"
)

// QualificationRecord is produced once per marker per run and feeds the
// diagnostic report.
type QualificationRecord struct {
	Status   Status
	Score    float64
	Rating   Rating
	Errors   []string
	Warnings []string
}

// Stage tags identify which pipeline stage quarantined a document.
const (
	StageRecovery      = "recovery"
	StageNormalization = "normalization"
	StageQualification = "qualification"
)
