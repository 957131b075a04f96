package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leandeep/marker-comb/app/database"
	"github.com/leandeep/marker-comb/app/marker"
	"github.com/leandeep/marker-comb/app/store"
)

// ProcessMarkerTask runs the first pipeline pass for a single source
// document: recover-parse, normalize, persist to the accepted store.
// Unparseable documents route to quarantine; that is a terminal outcome,
// not a task failure.
type ProcessMarkerTask struct {
	Task
	Source     marker.Source
	scanner    *marker.SourceScanner
	parser     *marker.Parser
	normalizer *marker.Normalizer
	accepted   *store.AcceptedStore
	quarantine *store.QuarantineStore
	markerRepo database.MarkerRepository
	resultRepo database.ResultRepository
}

func NewProcessMarkerTask(source marker.Source, scanner *marker.SourceScanner, parser *marker.Parser,
	normalizer *marker.Normalizer, accepted *store.AcceptedStore, quarantine *store.QuarantineStore,
	markerRepo database.MarkerRepository, resultRepo database.ResultRepository) *ProcessMarkerTask {
	return &ProcessMarkerTask{
		Task:       NewTask(TaskTypeProcessMarker, source.Name),
		Source:     source,
		scanner:    scanner,
		parser:     parser,
		normalizer: normalizer,
		accepted:   accepted,
		quarantine: quarantine,
		markerRepo: markerRepo,
		resultRepo: resultRepo,
	}
}

func (t *ProcessMarkerTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	raw, err := t.scanner.Read(t.Source)
	if err != nil {
		return fmt.Errorf("failed to read source document: %w", err)
	}

	data, strategy, err := t.parser.Run(raw)
	if err != nil {
		return t.quarantineDocument(raw, marker.StageRecovery, err.Error())
	}

	m, normErr := t.normalize(data)
	if normErr != nil {
		return t.quarantineDocument(raw, marker.StageNormalization, normErr.Error())
	}

	if err := t.accepted.Write(t.FileName, m); err != nil {
		return fmt.Errorf("failed to write normalized marker: %w", err)
	}

	// The registry records the detected category when the source document
	// carried none of its own.
	category := m.Category
	if category == "" {
		category = string(t.normalizer.DetectCategory(data))
	}

	repaired := strategy != marker.StrategyDirect
	if err := t.markerRepo.UpsertMarker(t.FileName, m.ID, category, len(m.Examples), repaired); err != nil {
		return fmt.Errorf("failed to register marker: %w", err)
	}

	details := fmt.Sprintf("Normalized with %d examples", len(m.Examples))
	if repaired {
		details = fmt.Sprintf("Normalized with %d examples (strategy: %s)", len(m.Examples), strategy)
	}
	if err := t.resultRepo.Record(t.FileName, "SUCCESS", marker.StageNormalization, "", details); err != nil {
		return fmt.Errorf("failed to record result: %w", err)
	}

	slog.Info("Task completed",
		"type", "ProcessMarker",
		"file", t.FileName,
		"duration", t.GetDuration(),
		"marker_id", m.ID,
		"strategy", string(strategy),
		"examples", len(m.Examples))

	return nil
}

// normalize converts normalizer panics on malformed documents into errors so
// a broken document quarantines instead of killing the worker.
func (t *ProcessMarkerTask) normalize(data map[string]any) (m *marker.Marker, err error) {
	defer func() {
		if r := recover(); r != nil {
			m = nil
			err = fmt.Errorf("normalization failed: %v", r)
		}
	}()

	return t.normalizer.Run(data, t.Source.Name), nil
}

func (t *ProcessMarkerTask) quarantineDocument(raw []byte, stage, reason string) error {
	payload := store.ErrorPayload{
		Error:             reason,
		Stage:             stage,
		RecoveryAttempted: stage == marker.StageRecovery,
	}
	if err := t.quarantine.Quarantine(t.FileName, raw, payload); err != nil {
		return fmt.Errorf("failed to quarantine document: %w", err)
	}

	if err := t.markerRepo.MarkQuarantined(t.FileName); err != nil {
		return fmt.Errorf("failed to mark marker quarantined: %w", err)
	}

	errorTag := "YAML_ERROR"
	if stage == marker.StageNormalization {
		errorTag = "NORMALIZATION_ERROR"
	}
	if err := t.resultRepo.Record(t.FileName, "QUARANTINED", stage, errorTag, reason); err != nil {
		return fmt.Errorf("failed to record result: %w", err)
	}

	slog.Warn("Document quarantined", "file", t.FileName, "stage", stage, "reason", reason)

	return nil
}
