package marker

import "fmt"

// Qualifier runs the structural validator and, for valid markers, computes
// a numeric quality score and categorical rating. It is pure: routing a
// failed marker to quarantine is the caller's job.
type Qualifier struct {
	validator   *Validator
	minExamples int
}

func NewQualifier(validator *Validator, minExamples int) *Qualifier {
	return &Qualifier{validator: validator, minExamples: minExamples}
}

// Run qualifies a single marker document. Unexpected panics while scoring
// (e.g. malformed structures slipping past validation) are reported as
// StatusError rather than propagated.
func (q *Qualifier) Run(doc map[string]any) (record QualificationRecord) {
	defer func() {
		if r := recover(); r != nil {
			record = QualificationRecord{
				Status: StatusError,
				Errors: []string{fmt.Sprintf("Processing error: %v", r)},
			}
		}
	}()

	res := q.validator.Run(doc)

	if !res.Valid {
		return QualificationRecord{
			Status:   StatusFailed,
			Errors:   res.Errors,
			Warnings: res.Warnings,
		}
	}

	score := q.calculateScore(doc, res.Warnings)

	return QualificationRecord{
		Status:   StatusQualified,
		Score:    score,
		Rating:   ratingFor(score),
		Errors:   res.Errors,
		Warnings: res.Warnings,
	}
}

// calculateScore starts at 100 and applies warning deductions and quality
// bonuses, clamped to [0, 100].
func (q *Qualifier) calculateScore(doc map[string]any, warnings []string) float64 {
	score := 100.0

	score -= float64(len(warnings)) * 5

	if metadata, ok := doc["metadata"].(map[string]any); ok {
		complete := true
		for _, field := range recommendedMetadataFields {
			if _, ok := metadata[field]; !ok {
				complete = false
				break
			}
		}
		if complete {
			score += 10
		}
	}

	if examples, ok := doc["examples"].([]any); ok && len(examples) > q.minExamples {
		score += 5
	}

	if frame, ok := doc["frame"].(map[string]any); ok {
		total := 0
		for _, field := range frameFields {
			if value, ok := frame[field].(string); ok {
				total += len(value)
			}
		}
		if float64(total)/float64(len(frameFields)) > 50 {
			score += 5
		}
	}

	return min(100, max(0, score))
}

func ratingFor(score float64) Rating {
	switch {
	case score >= 90:
		return RatingExcellent
	case score >= 80:
		return RatingGood
	case score >= 70:
		return RatingAcceptable
	case score >= 60:
		return RatingNeedsImprovement
	default:
		return RatingPoor
	}
}
