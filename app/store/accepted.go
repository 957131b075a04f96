package store

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/leandeep/marker-comb/app/marker"
)

// AcceptedStore holds normalized markers that passed (or are awaiting)
// qualification, serialized in the canonical schema.
type AcceptedStore struct {
	dir string
}

func NewAcceptedStore(dir string) *AcceptedStore {
	return &AcceptedStore{dir: dir}
}

func (s *AcceptedStore) Dir() string {
	return s.dir
}

// Write serializes a normalized marker into the accepted directory. The
// struct field order of marker.Marker defines the canonical field order.
func (s *AcceptedStore) Write(fileName string, m *marker.Marker) error {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(m); err != nil {
		return fmt.Errorf("failed to serialize marker: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("failed to serialize marker: %w", err)
	}

	if err := os.WriteFile(s.path(fileName), buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write marker file: %w", err)
	}
	return nil
}

// Load reads a stored marker back in document form for validation.
func (s *AcceptedStore) Load(fileName string) (map[string]any, error) {
	data, err := os.ReadFile(s.path(fileName))
	if err != nil {
		return nil, fmt.Errorf("failed to read marker file: %w", err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse marker file: %w", err)
	}
	if len(doc) == 0 {
		return nil, fmt.Errorf("empty or invalid YAML file")
	}
	return doc, nil
}

// ReadRaw returns the stored marker bytes, e.g. for serving or quarantining.
func (s *AcceptedStore) ReadRaw(fileName string) ([]byte, error) {
	data, err := os.ReadFile(s.path(fileName))
	if err != nil {
		return nil, fmt.Errorf("failed to read marker file: %w", err)
	}
	return data, nil
}

// Remove deletes a marker from the accepted set, e.g. when qualification
// routes it to quarantine. Removing a missing file is not an error.
func (s *AcceptedStore) Remove(fileName string) error {
	err := os.Remove(s.path(fileName))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove marker file: %w", err)
	}
	return nil
}

// List returns the file names of all stored markers.
func (s *AcceptedStore) List() ([]string, error) {
	files, err := filepath.Glob(filepath.Join(s.dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list marker files: %w", err)
	}
	ymlFiles, err := filepath.Glob(filepath.Join(s.dir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list marker files: %w", err)
	}
	files = append(files, ymlFiles...)

	names := make([]string, 0, len(files))
	for _, file := range files {
		names = append(names, filepath.Base(file))
	}
	return names, nil
}

func (s *AcceptedStore) path(fileName string) string {
	return filepath.Join(s.dir, filepath.Base(fileName))
}
