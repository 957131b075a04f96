package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leandeep/marker-comb/app/database"
	"github.com/leandeep/marker-comb/app/marker"
	"github.com/leandeep/marker-comb/app/store"
)

// QualifyMarkerTask runs the second pipeline pass for one normalized marker:
// load it from the accepted store, validate and score it. Disqualified
// markers leave the accepted set and route to quarantine.
type QualifyMarkerTask struct {
	Task
	qualifier  *marker.Qualifier
	accepted   *store.AcceptedStore
	quarantine *store.QuarantineStore
	markerRepo database.MarkerRepository
	resultRepo database.ResultRepository
}

func NewQualifyMarkerTask(fileName string, qualifier *marker.Qualifier, accepted *store.AcceptedStore,
	quarantine *store.QuarantineStore, markerRepo database.MarkerRepository,
	resultRepo database.ResultRepository) *QualifyMarkerTask {
	return &QualifyMarkerTask{
		Task:       NewTask(TaskTypeQualifyMarker, fileName),
		qualifier:  qualifier,
		accepted:   accepted,
		quarantine: quarantine,
		markerRepo: markerRepo,
		resultRepo: resultRepo,
	}
}

func (t *QualifyMarkerTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	doc, err := t.accepted.Load(t.FileName)
	if err != nil {
		return t.failUnloadable(err)
	}

	record := t.qualifier.Run(doc)

	if record.Status != marker.StatusQualified {
		return t.disqualify(record)
	}

	if err := t.markerRepo.UpdateQualification(t.FileName, record.Score, string(record.Rating)); err != nil {
		return fmt.Errorf("failed to update qualification: %w", err)
	}

	details := fmt.Sprintf("Score: %.1f (%s)", record.Score, record.Rating)
	if len(record.Warnings) > 0 {
		details = fmt.Sprintf("%s, %d warnings", details, len(record.Warnings))
	}
	if err := t.resultRepo.Record(t.FileName, string(record.Status), marker.StageQualification, "", details); err != nil {
		return fmt.Errorf("failed to record result: %w", err)
	}

	slog.Info("Task completed",
		"type", "QualifyMarker",
		"file", t.FileName,
		"duration", t.GetDuration(),
		"score", record.Score,
		"rating", string(record.Rating),
		"warnings", len(record.Warnings))

	return nil
}

// failUnloadable handles a marker whose accepted file cannot be loaded (empty
// or invalid YAML). Like any other qualification failure this is a terminal
// per-document outcome, not a retryable task error.
func (t *QualifyMarkerTask) failUnloadable(loadErr error) error {
	if raw, err := t.accepted.ReadRaw(t.FileName); err == nil {
		payload := store.ErrorPayload{
			Error: loadErr.Error(),
			Stage: marker.StageQualification,
		}
		if err := t.quarantine.Quarantine(t.FileName, raw, payload); err != nil {
			return fmt.Errorf("failed to quarantine marker: %w", err)
		}
	}

	if err := t.accepted.Remove(t.FileName); err != nil {
		return fmt.Errorf("failed to remove unloadable marker: %w", err)
	}

	if err := t.markerRepo.MarkQuarantined(t.FileName); err != nil {
		return fmt.Errorf("failed to mark marker quarantined: %w", err)
	}

	if err := t.resultRepo.Record(t.FileName, string(marker.StatusFailed), marker.StageQualification,
		"YAML_ERROR", loadErr.Error()); err != nil {
		return fmt.Errorf("failed to record result: %w", err)
	}

	slog.Warn("Marker could not be loaded for qualification",
		"file", t.FileName,
		"error", loadErr)

	return nil
}

func (t *QualifyMarkerTask) disqualify(record marker.QualificationRecord) error {
	raw, err := t.accepted.ReadRaw(t.FileName)
	if err != nil {
		return fmt.Errorf("failed to read marker for quarantine: %w", err)
	}

	payload := store.ErrorPayload{
		ValidationErrors: record.Errors,
		Stage:            marker.StageQualification,
	}
	if err := t.quarantine.Quarantine(t.FileName, raw, payload); err != nil {
		return fmt.Errorf("failed to quarantine marker: %w", err)
	}

	if err := t.accepted.Remove(t.FileName); err != nil {
		return fmt.Errorf("failed to remove disqualified marker: %w", err)
	}

	if err := t.markerRepo.MarkQuarantined(t.FileName); err != nil {
		return fmt.Errorf("failed to mark marker quarantined: %w", err)
	}

	errorTag := "VALIDATION_ERROR"
	if record.Status == marker.StatusError {
		errorTag = "PROCESSING_ERROR"
	}

	// The diagnostic row carries only the leading errors; the full list is in
	// the quarantine payload.
	leading := record.Errors
	if len(leading) > 2 {
		leading = leading[:2]
	}
	if err := t.resultRepo.Record(t.FileName, string(record.Status), marker.StageQualification,
		errorTag, strings.Join(leading, "; ")); err != nil {
		return fmt.Errorf("failed to record result: %w", err)
	}

	slog.Warn("Marker disqualified",
		"file", t.FileName,
		"status", string(record.Status),
		"errors", len(record.Errors))

	return nil
}
