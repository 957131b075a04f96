package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leandeep/marker-comb/app/database"
	"github.com/leandeep/marker-comb/app/report"
)

// ExportReportTask flushes the accumulated diagnostic rows to the TSV report.
type ExportReportTask struct {
	Task
	resultRepo database.ResultRepository
	writer     *report.Writer
}

func NewExportReportTask(resultRepo database.ResultRepository, writer *report.Writer) *ExportReportTask {
	return &ExportReportTask{
		Task:       NewTask(TaskTypeExportReport, ""),
		resultRepo: resultRepo,
		writer:     writer,
	}
}

func (t *ExportReportTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	results, err := t.resultRepo.ListAll()
	if err != nil {
		return fmt.Errorf("failed to load results: %w", err)
	}

	if err := t.writer.Write(results); err != nil {
		return fmt.Errorf("failed to export report: %w", err)
	}

	slog.Info("Task completed",
		"type", "ExportReport",
		"duration", t.GetDuration(),
		"rows", len(results))

	return nil
}
