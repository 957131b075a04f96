package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/leandeep/marker-comb/app/cfg"
	"github.com/leandeep/marker-comb/app/database"
	"github.com/leandeep/marker-comb/app/marker"
	"github.com/leandeep/marker-comb/app/report"
	"github.com/leandeep/marker-comb/app/store"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type Scheduler struct {
	scanner      *marker.SourceScanner
	parser       *marker.Parser
	normalizer   *marker.Normalizer
	qualifier    *marker.Qualifier
	accepted     *store.AcceptedStore
	quarantine   *store.QuarantineStore
	reportWriter *report.Writer
	markerRepo   database.MarkerRepository
	resultRepo   database.ResultRepository
	interval     time.Duration
	workerCount  int
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	taskQueue    chan TaskInterface

	// mod times of sources already enqueued, owned by the ticker goroutine
	seen map[string]time.Time
}

func NewScheduler(scanner *marker.SourceScanner, parser *marker.Parser, normalizer *marker.Normalizer,
	qualifier *marker.Qualifier, accepted *store.AcceptedStore, quarantine *store.QuarantineStore,
	reportWriter *report.Writer, markerRepo database.MarkerRepository,
	resultRepo database.ResultRepository) TaskSchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Scheduler{
		scanner:      scanner,
		parser:       parser,
		normalizer:   normalizer,
		qualifier:    qualifier,
		accepted:     accepted,
		quarantine:   quarantine,
		reportWriter: reportWriter,
		markerRepo:   markerRepo,
		resultRepo:   resultRepo,
		interval:     time.Duration(cfg.SchedulerInterval) * time.Second,
		workerCount:  cfg.WorkerCount,
		ctx:          ctx,
		cancel:       cancel,
		taskQueue:    make(chan TaskInterface, 300),
		seen:         make(map[string]time.Time),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTasks()
			}
		}
	}()

}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

// enqueueTasks runs one scheduler tick: new or changed source documents get a
// ProcessMarkerTask, markers normalized on a previous tick get a
// QualifyMarkerTask, then the diagnostic report is exported. Qualification of
// a document enqueued this tick happens on the next tick, which keeps the two
// passes ordered.
func (s *Scheduler) enqueueTasks() {
	sources, err := s.scanner.Scan()
	if err != nil {
		slog.Error("Failed to scan marker directory", "error", err)
		return
	}

	slog.Debug("Scanning marker directory", "dir", s.scanner.Dir(), "count", len(sources))

	for _, source := range sources {
		if modTime, ok := s.seen[source.Name]; ok && !source.ModTime.After(modTime) {
			continue
		}

		processTask := NewProcessMarkerTask(source, s.scanner, s.parser, s.normalizer,
			s.accepted, s.quarantine, s.markerRepo, s.resultRepo)
		if err := s.EnqueueTask(processTask); err != nil {
			slog.Warn("Failed to enqueue ProcessMarkerTask", "file", source.Name, "error", err)
			continue
		}
		s.seen[source.Name] = source.ModTime
	}

	normalized, err := s.markerRepo.ListMarkersByStatus(database.MarkerStatusNormalized)
	if err != nil {
		slog.Error("Failed to list normalized markers", "error", err)
		return
	}

	for _, m := range normalized {
		qualifyTask := NewQualifyMarkerTask(m.File, s.qualifier, s.accepted, s.quarantine,
			s.markerRepo, s.resultRepo)
		if err := s.EnqueueTask(qualifyTask); err != nil {
			slog.Warn("Failed to enqueue QualifyMarkerTask", "file", m.File, "error", err)
		}
	}

	exportTask := NewExportReportTask(s.resultRepo, s.reportWriter)
	if err := s.EnqueueTask(exportTask); err != nil {
		slog.Warn("Failed to enqueue ExportReportTask", "error", err)
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "file", task.GetFileName(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			go func() {
				time.Sleep(retryDelay)
				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				default:
					if retryErr := s.EnqueueTask(task); retryErr != nil {
						slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
					}
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
