package marker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newQualifier(minExamples int) *Qualifier {
	return NewQualifier(NewValidator(minExamples), minExamples)
}

// A freshly normalized entity marker qualifies with a perfect score.
func TestQualifier_Run_NormalizedMarkerScoresPerfect(t *testing.T) {
	qualifier := newQualifier(5)

	doc := validDoc()
	doc["metadata"] = map[string]any{
		"created": "2024-01-15T10:00:00Z",
		"author":  toolAuthor,
		"version": "1.0",
		"tags":    []any{"normalized", "ld3.11"},
	}

	record := qualifier.Run(doc)

	assert.Equal(t, StatusQualified, record.Status)
	assert.Equal(t, 100.0, record.Score)
	assert.Equal(t, RatingExcellent, record.Rating)
	assert.Empty(t, record.Errors)
	assert.Empty(t, record.Warnings)
}

func TestQualifier_Run_WarningDeductions(t *testing.T) {
	qualifier := newQualifier(5)

	// Five identical examples produce four duplicate warnings: 100 - 20 = 80.
	doc := validDoc()
	doc["examples"] = []any{"gleich", "gleich", "gleich", "gleich", "gleich"}

	record := qualifier.Run(doc)

	assert.Equal(t, StatusQualified, record.Status)
	require.Len(t, record.Warnings, 4)
	assert.Equal(t, 80.0, record.Score)
	assert.Equal(t, RatingGood, record.Rating)
}

func TestQualifier_Run_Bonuses(t *testing.T) {
	t.Run("complete metadata adds ten", func(t *testing.T) {
		qualifier := newQualifier(5)
		doc := validDoc()
		doc["metadata"] = map[string]any{
			"created": "x", "author": "x", "version": "x", "tags": []any{"a"},
		}

		record := qualifier.Run(doc)

		// 100 + 10, clamped back to 100.
		assert.Equal(t, 100.0, record.Score)
	})

	t.Run("examples above minimum add five", func(t *testing.T) {
		qualifier := newQualifier(5)
		doc := validDoc()
		doc["examples"] = []any{"a", "b", "c", "d", "e", "f"}
		// One empty frame field to pull the base below 100.
		doc["frame"].(map[string]any)["narrative"] = " "

		record := qualifier.Run(doc)

		// 100 - 5 (warning) + 5 (rich examples) = 100.
		assert.Equal(t, 100.0, record.Score)
		assert.Len(t, record.Warnings, 1)
	})

	t.Run("detailed frame adds five", func(t *testing.T) {
		qualifier := newQualifier(5)
		doc := validDoc()
		long := "Eine sehr ausführliche Beschreibung dieses Rahmenfeldes mit vielen Details"
		doc["frame"] = map[string]any{
			"signal": long, "concept": long, "pragmatics": long, "narrative": long,
		}
		doc["frame"].(map[string]any)["signal"] = " " // warning: -5

		record := qualifier.Run(doc)

		// 100 - 5 + 5 (avg frame length > 50 across the other three fields
		// still clears the threshold) = 100.
		assert.Equal(t, 100.0, record.Score)
	})
}

func TestQualifier_Run_ScoreIsClampedLow(t *testing.T) {
	qualifier := newQualifier(5)

	doc := validDoc()
	// Pile up warnings: 21 duplicates plus empty frame fields.
	examples := make([]any, 22)
	for i := range examples {
		examples[i] = "gleich"
	}
	doc["examples"] = examples
	doc["frame"].(map[string]any)["narrative"] = " "
	doc["frame"].(map[string]any)["pragmatics"] = " "

	record := qualifier.Run(doc)

	assert.Equal(t, StatusQualified, record.Status)
	assert.GreaterOrEqual(t, record.Score, 0.0)
	assert.Equal(t, RatingPoor, record.Rating)
}

func TestQualifier_Run_InvalidMarkerFails(t *testing.T) {
	qualifier := newQualifier(5)

	doc := validDoc()
	delete(doc, "examples")

	record := qualifier.Run(doc)

	assert.Equal(t, StatusFailed, record.Status)
	assert.Equal(t, 0.0, record.Score)
	require.NotEmpty(t, record.Errors)
	assert.Equal(t, "Missing required fields: {examples}", record.Errors[0])
}

func TestRatingThresholds(t *testing.T) {
	tests := []struct {
		score float64
		want  Rating
	}{
		{score: 100, want: RatingExcellent},
		{score: 90, want: RatingExcellent},
		{score: 89.9, want: RatingGood},
		{score: 80, want: RatingGood},
		{score: 75, want: RatingAcceptable},
		{score: 70, want: RatingAcceptable},
		{score: 65, want: RatingNeedsImprovement},
		{score: 60, want: RatingNeedsImprovement},
		{score: 59.9, want: RatingPoor},
		{score: 0, want: RatingPoor},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ratingFor(tt.score), "score %.1f", tt.score)
	}
}
