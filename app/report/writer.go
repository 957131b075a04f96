// Package report writes per-document diagnostic rows as a tab-separated file.
package report

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/leandeep/marker-comb/app/database"
)

const header = "File\tStatus\tError\tDetails"

type Writer struct {
	path   string
	append bool

	mu          sync.Mutex
	lastID      int64 // highest result row already appended
	initialized bool
}

func NewWriter(path string, appendMode bool) *Writer {
	return &Writer{path: path, append: appendMode}
}

// Write flushes the given diagnostic rows to the report file. In append mode
// only rows not yet written are appended and the header is only written when
// the file is new or empty; in overwrite mode the file is a full snapshot.
func (w *Writer) Write(results []database.Result) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.append {
		// Rows already present in the report from a previous run count as
		// written. Rows arrive in insertion order, so the Nth report line
		// corresponds to the Nth row of the full result set.
		if !w.initialized {
			existing, err := countReportRows(w.path)
			if err != nil {
				return fmt.Errorf("failed to read existing report: %w", err)
			}
			if existing > len(results) {
				existing = len(results)
			}
			if existing > 0 {
				w.lastID = results[existing-1].ID
			}
			w.initialized = true
		}

		unwritten := make([]database.Result, 0, len(results))
		for _, result := range results {
			if result.ID > w.lastID {
				unwritten = append(unwritten, result)
			}
		}
		results = unwritten
		if len(results) == 0 {
			return nil
		}
	}

	flags := os.O_CREATE | os.O_WRONLY
	if w.append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	file, err := os.OpenFile(w.path, flags, 0644)
	if err != nil {
		return fmt.Errorf("failed to open report file: %w", err)
	}
	defer file.Close()

	needHeader := true
	if w.append {
		info, err := file.Stat()
		if err != nil {
			return fmt.Errorf("failed to stat report file: %w", err)
		}
		needHeader = info.Size() == 0
	}

	var sb strings.Builder
	if needHeader {
		sb.WriteString(header)
		sb.WriteByte('\n')
	}
	for _, result := range results {
		sb.WriteString(sanitize(result.File))
		sb.WriteByte('\t')
		sb.WriteString(sanitize(result.Status))
		sb.WriteByte('\t')
		sb.WriteString(sanitize(result.Error))
		sb.WriteByte('\t')
		sb.WriteString(sanitize(result.Details))
		sb.WriteByte('\n')
	}

	if _, err := file.WriteString(sb.String()); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if w.append {
		for _, result := range results {
			if result.ID > w.lastID {
				w.lastID = result.ID
			}
		}
	}

	return nil
}

// countReportRows returns the number of data rows in an existing report file.
// A missing file counts as empty.
func countReportRows(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	content := strings.TrimRight(string(data), "\n")
	if content == "" {
		return 0, nil
	}
	lines := strings.Split(content, "\n")
	if lines[0] == header {
		lines = lines[1:]
	}
	return len(lines), nil
}

// sanitize keeps embedded tabs and newlines from breaking the column layout.
func sanitize(s string) string {
	s = strings.ReplaceAll(s, "\t", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
