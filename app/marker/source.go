package marker

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Source identifies one raw marker document in the source directory.
type Source struct {
	Name    string // file name, used to derive the marker id when absent
	Path    string
	ModTime time.Time
}

// SourceScanner enumerates raw marker documents in the configured directory.
type SourceScanner struct {
	dir string
}

func NewSourceScanner(dir string) *SourceScanner {
	return &SourceScanner{dir: dir}
}

func (s *SourceScanner) Dir() string {
	return s.dir
}

// Scan returns all YAML documents currently in the source directory.
func (s *SourceScanner) Scan() ([]Source, error) {
	if _, err := os.Stat(s.dir); err != nil {
		return nil, fmt.Errorf("marker directory %q is not accessible: %w", s.dir, err)
	}

	files, err := filepath.Glob(filepath.Join(s.dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YAML files: %w", err)
	}

	ymlFiles, err := filepath.Glob(filepath.Join(s.dir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YML files: %w", err)
	}
	files = append(files, ymlFiles...)

	sources := make([]Source, 0, len(files))
	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil {
			continue
		}
		sources = append(sources, Source{
			Name:    filepath.Base(file),
			Path:    file,
			ModTime: info.ModTime(),
		})
	}

	return sources, nil
}

// Read returns the raw document body.
func (s *SourceScanner) Read(src Source) ([]byte, error) {
	data, err := os.ReadFile(src.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}
