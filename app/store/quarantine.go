package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrorPayload is the structured error record written alongside every
// quarantined document.
type ErrorPayload struct {
	File              string   `json:"file"`
	Error             string   `json:"error,omitempty"`
	ValidationErrors  []string `json:"validation_errors,omitempty"`
	Timestamp         string   `json:"timestamp"`
	Stage             string   `json:"stage"`
	RecoveryAttempted bool     `json:"recovery_attempted,omitempty"`
}

// QuarantineStore is the terminal location for documents that failed any
// pipeline stage. Each quarantined document keeps its original body plus a
// JSON error payload.
type QuarantineStore struct {
	dir string
}

func NewQuarantineStore(dir string) *QuarantineStore {
	return &QuarantineStore{dir: dir}
}

func (s *QuarantineStore) Dir() string {
	return s.dir
}

// Quarantine writes the original document body and its error payload. The
// payload timestamp is filled in when the caller left it empty.
func (s *QuarantineStore) Quarantine(fileName string, original []byte, payload ErrorPayload) error {
	fileName = filepath.Base(fileName)

	if payload.File == "" {
		payload.File = fileName
	}
	if payload.Timestamp == "" {
		payload.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	if err := os.WriteFile(filepath.Join(s.dir, fileName), original, 0o644); err != nil {
		return fmt.Errorf("failed to copy document to quarantine: %w", err)
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize error payload: %w", err)
	}

	errorFile := stem(fileName) + ".errors.json"
	if err := os.WriteFile(filepath.Join(s.dir, errorFile), data, 0o644); err != nil {
		return fmt.Errorf("failed to write error payload: %w", err)
	}

	return nil
}

func stem(fileName string) string {
	return strings.TrimSuffix(fileName, filepath.Ext(fileName))
}
