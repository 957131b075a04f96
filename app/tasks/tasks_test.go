package tasks

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leandeep/marker-comb/app/database"
	"github.com/leandeep/marker-comb/app/marker"
	"github.com/leandeep/marker-comb/app/store"
)

// MockMarkerRepository implements a simple mock for testing
type MockMarkerRepository struct {
	upserted     []string
	qualified    map[string]float64
	quarantined  []string
	byStatus     []database.Marker
	byStatusErr  error
	statusCounts map[string]int
}

func (m *MockMarkerRepository) UpsertMarker(file, markerID, category string, exampleCount int, repaired bool) error {
	m.upserted = append(m.upserted, file)
	return nil
}

func (m *MockMarkerRepository) UpdateQualification(file string, score float64, rating string) error {
	if m.qualified == nil {
		m.qualified = make(map[string]float64)
	}
	m.qualified[file] = score
	return nil
}

func (m *MockMarkerRepository) MarkQuarantined(file string) error {
	m.quarantined = append(m.quarantined, file)
	return nil
}

func (m *MockMarkerRepository) GetMarker(markerID string) (*database.Marker, error) {
	return nil, nil
}

func (m *MockMarkerRepository) GetMarkerByFile(file string) (*database.Marker, error) {
	return nil, nil
}

func (m *MockMarkerRepository) ListMarkers() ([]database.Marker, error) {
	return nil, nil
}

func (m *MockMarkerRepository) ListMarkersByStatus(status string) ([]database.Marker, error) {
	if m.byStatusErr != nil {
		return nil, m.byStatusErr
	}
	return m.byStatus, nil
}

func (m *MockMarkerRepository) GetMarkerCount() (int, error) {
	return len(m.upserted), nil
}

func (m *MockMarkerRepository) GetStatusCounts() (map[string]int, error) {
	return m.statusCounts, nil
}

// MockResultRepository records diagnostic rows in memory
type MockResultRepository struct {
	results []database.Result
}

func (m *MockResultRepository) Record(file, status, stage, errorTag, details string) error {
	m.results = append(m.results, database.Result{
		ID:      int64(len(m.results) + 1),
		File:    file,
		Status:  status,
		Stage:   stage,
		Error:   errorTag,
		Details: details,
	})
	return nil
}

func (m *MockResultRepository) List(limit int) ([]database.Result, error) {
	if limit > len(m.results) {
		limit = len(m.results)
	}
	return m.results[:limit], nil
}

func (m *MockResultRepository) ListAll() ([]database.Result, error) {
	return m.results, nil
}

func (m *MockResultRepository) GetResultCount() (int, error) {
	return len(m.results), nil
}

type taskEnv struct {
	sourceDir  string
	scanner    *marker.SourceScanner
	accepted   *store.AcceptedStore
	quarantine *store.QuarantineStore
	markerRepo *MockMarkerRepository
	resultRepo *MockResultRepository
}

func newTaskEnv(t *testing.T) *taskEnv {
	t.Helper()
	base := t.TempDir()

	sourceDir := filepath.Join(base, "marker")
	acceptedDir := filepath.Join(base, "final_marker_set")
	quarantineDir := filepath.Join(base, "quarantine")
	for _, dir := range []string{sourceDir, acceptedDir, quarantineDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("Failed to create %s: %v", dir, err)
		}
	}

	return &taskEnv{
		sourceDir:  sourceDir,
		scanner:    marker.NewSourceScanner(sourceDir),
		accepted:   store.NewAcceptedStore(acceptedDir),
		quarantine: store.NewQuarantineStore(quarantineDir),
		markerRepo: &MockMarkerRepository{},
		resultRepo: &MockResultRepository{},
	}
}

func (e *taskEnv) writeSource(t *testing.T, name, content string) marker.Source {
	t.Helper()
	path := filepath.Join(e.sourceDir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write source file: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Failed to stat source file: %v", err)
	}
	return marker.Source{Name: name, Path: path, ModTime: info.ModTime()}
}

func TestProcessMarkerTaskSuccess(t *testing.T) {
	env := newTaskEnv(t)
	source := env.writeSource(t, "greeting.yaml", "marker_name: GREETING_MARKER\nbeispiele:\n  - \"Hallo!\"\n  - \"Guten Tag\"\n")

	task := NewProcessMarkerTask(source, env.scanner, marker.NewParser(), marker.NewNormalizer(5),
		env.accepted, env.quarantine, env.markerRepo, env.resultRepo)

	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	doc, err := env.accepted.Load("greeting.yaml")
	if err != nil {
		t.Fatalf("Expected normalized marker in accepted store, got %v", err)
	}
	if doc["id"] != "GREETING_MARKER" {
		t.Errorf("Expected id GREETING_MARKER, got %v", doc["id"])
	}

	if len(env.markerRepo.upserted) != 1 || env.markerRepo.upserted[0] != "greeting.yaml" {
		t.Errorf("Expected marker registered in database, got %v", env.markerRepo.upserted)
	}

	if len(env.resultRepo.results) != 1 {
		t.Fatalf("Expected 1 result row, got %d", len(env.resultRepo.results))
	}
	result := env.resultRepo.results[0]
	if result.Status != "SUCCESS" {
		t.Errorf("Expected SUCCESS status, got %s", result.Status)
	}
	if !strings.Contains(result.Details, "Normalized with 5 examples") {
		t.Errorf("Unexpected details: %s", result.Details)
	}
}

func TestProcessMarkerTaskQuarantinesUnparseable(t *testing.T) {
	env := newTaskEnv(t)
	source := env.writeSource(t, "broken.yaml", "\t\t::: not yaml {{{\n\t]]]\n")

	task := NewProcessMarkerTask(source, env.scanner, marker.NewParser(), marker.NewNormalizer(5),
		env.accepted, env.quarantine, env.markerRepo, env.resultRepo)

	// Quarantining is a terminal outcome, not a task failure.
	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if _, err := os.Stat(filepath.Join(env.quarantine.Dir(), "broken.yaml")); err != nil {
		t.Errorf("Expected original document in quarantine: %v", err)
	}
	if _, err := os.Stat(filepath.Join(env.quarantine.Dir(), "broken.errors.json")); err != nil {
		t.Errorf("Expected error payload in quarantine: %v", err)
	}

	if len(env.markerRepo.upserted) != 0 {
		t.Errorf("Expected no marker registration, got %v", env.markerRepo.upserted)
	}

	if len(env.resultRepo.results) != 1 {
		t.Fatalf("Expected 1 result row, got %d", len(env.resultRepo.results))
	}
	result := env.resultRepo.results[0]
	if result.Status != "QUARANTINED" || result.Error != "YAML_ERROR" {
		t.Errorf("Expected QUARANTINED/YAML_ERROR, got %s/%s", result.Status, result.Error)
	}
	if result.Stage != "recovery" {
		t.Errorf("Expected recovery stage, got %s", result.Stage)
	}
}

func TestQualifyMarkerTaskQualified(t *testing.T) {
	env := newTaskEnv(t)
	source := env.writeSource(t, "greeting.yaml", "marker_name: GREETING_MARKER\nbeispiele:\n  - \"Hallo!\"\n")

	processTask := NewProcessMarkerTask(source, env.scanner, marker.NewParser(), marker.NewNormalizer(5),
		env.accepted, env.quarantine, env.markerRepo, env.resultRepo)
	if err := processTask.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	qualifier := marker.NewQualifier(marker.NewValidator(5), 5)
	qualifyTask := NewQualifyMarkerTask("greeting.yaml", qualifier, env.accepted, env.quarantine,
		env.markerRepo, env.resultRepo)
	if err := qualifyTask.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	score, ok := env.markerRepo.qualified["greeting.yaml"]
	if !ok {
		t.Fatal("Expected qualification recorded in database")
	}
	if score <= 0 {
		t.Errorf("Expected positive score, got %.1f", score)
	}

	// Qualified markers stay in the accepted store.
	if _, err := env.accepted.Load("greeting.yaml"); err != nil {
		t.Errorf("Expected marker to remain in accepted store: %v", err)
	}

	last := env.resultRepo.results[len(env.resultRepo.results)-1]
	if last.Status != "QUALIFIED" {
		t.Errorf("Expected QUALIFIED status, got %s", last.Status)
	}
	if !strings.Contains(last.Details, "Score:") {
		t.Errorf("Unexpected details: %s", last.Details)
	}
}

func TestQualifyMarkerTaskDisqualifies(t *testing.T) {
	env := newTaskEnv(t)

	// A hand-edited marker in the accepted store missing required fields.
	path := filepath.Join(env.accepted.Dir(), "edited.yaml")
	if err := os.WriteFile(path, []byte("id: EDITED_MARKER\npattern: \"Pattern for EDITED_MARKER\"\n"), 0o644); err != nil {
		t.Fatalf("Failed to write marker: %v", err)
	}

	qualifier := marker.NewQualifier(marker.NewValidator(5), 5)
	task := NewQualifyMarkerTask("edited.yaml", qualifier, env.accepted, env.quarantine,
		env.markerRepo, env.resultRepo)
	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Expected disqualified marker removed from accepted store")
	}
	if _, err := os.Stat(filepath.Join(env.quarantine.Dir(), "edited.yaml")); err != nil {
		t.Errorf("Expected marker in quarantine: %v", err)
	}

	if len(env.markerRepo.quarantined) != 1 || env.markerRepo.quarantined[0] != "edited.yaml" {
		t.Errorf("Expected marker marked quarantined, got %v", env.markerRepo.quarantined)
	}

	last := env.resultRepo.results[len(env.resultRepo.results)-1]
	if last.Status != "FAILED" || last.Error != "VALIDATION_ERROR" {
		t.Errorf("Expected FAILED/VALIDATION_ERROR, got %s/%s", last.Status, last.Error)
	}
	if last.Stage != "qualification" {
		t.Errorf("Expected qualification stage, got %s", last.Stage)
	}
}

func TestQualifyMarkerTaskFailsUnloadableMarker(t *testing.T) {
	env := newTaskEnv(t)

	// An accepted file that parses to nothing cannot be qualified. That is a
	// terminal failure for the document, not a retryable task error.
	path := filepath.Join(env.accepted.Dir(), "empty.yaml")
	if err := os.WriteFile(path, []byte(""), 0o644); err != nil {
		t.Fatalf("Failed to write marker: %v", err)
	}

	qualifier := marker.NewQualifier(marker.NewValidator(5), 5)
	task := NewQualifyMarkerTask("empty.yaml", qualifier, env.accepted, env.quarantine,
		env.markerRepo, env.resultRepo)
	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Expected unloadable marker removed from accepted store")
	}
	if _, err := os.Stat(filepath.Join(env.quarantine.Dir(), "empty.errors.json")); err != nil {
		t.Errorf("Expected error payload in quarantine: %v", err)
	}

	// Marking the row quarantined keeps the scheduler from re-enqueueing it.
	if len(env.markerRepo.quarantined) != 1 || env.markerRepo.quarantined[0] != "empty.yaml" {
		t.Errorf("Expected marker marked quarantined, got %v", env.markerRepo.quarantined)
	}

	if len(env.resultRepo.results) != 1 {
		t.Fatalf("Expected 1 result row, got %d", len(env.resultRepo.results))
	}
	result := env.resultRepo.results[0]
	if result.Status != "FAILED" || result.Error != "YAML_ERROR" {
		t.Errorf("Expected FAILED/YAML_ERROR, got %s/%s", result.Status, result.Error)
	}
	if !strings.Contains(result.Details, "empty or invalid YAML file") {
		t.Errorf("Unexpected details: %s", result.Details)
	}
}

func TestQualifyMarkerTaskRecordsLeadingErrorsOnly(t *testing.T) {
	env := newTaskEnv(t)

	// Three hard errors: non-string id, non-string pattern, non-mapping
	// metadata. The diagnostic row keeps only the first two.
	content := "id: 42\n" +
		"frame:\n" +
		"  signal: a\n" +
		"  concept: b\n" +
		"  pragmatics: c\n" +
		"  narrative: d\n" +
		"examples:\n" +
		"  - eins\n" +
		"  - zwei\n" +
		"  - drei\n" +
		"  - vier\n" +
		"  - fünf\n" +
		"pattern: 7\n" +
		"metadata: nope\n"
	path := filepath.Join(env.accepted.Dir(), "edited.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write marker: %v", err)
	}

	qualifier := marker.NewQualifier(marker.NewValidator(5), 5)
	task := NewQualifyMarkerTask("edited.yaml", qualifier, env.accepted, env.quarantine,
		env.markerRepo, env.resultRepo)
	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	last := env.resultRepo.results[len(env.resultRepo.results)-1]
	if last.Status != "FAILED" {
		t.Fatalf("Expected FAILED status, got %s", last.Status)
	}
	want := "id must be a non-empty string; Pattern must be a string, got int"
	if last.Details != want {
		t.Errorf("Expected details %q, got %q", want, last.Details)
	}
}

func TestTaskRetryBookkeeping(t *testing.T) {
	task := NewTask(TaskTypeProcessMarker, "a.yaml")

	if !task.CanRetry() {
		t.Error("Expected fresh task to allow retries")
	}
	for task.CanRetry() {
		task.IncrementRetryCount()
	}
	if task.GetRetryCount() != DefaultMaxRetries {
		t.Errorf("Expected %d retries, got %d", DefaultMaxRetries, task.GetRetryCount())
	}
}
