package mapper

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jonesrussell/grantpull/internal/domain"
)

// Reject pairs a raw record with the reason it failed canonicalization.
type Reject struct {
	Reason string           `json:"reason"`
	Raw    domain.RawRecord `json:"raw"`
}

// RejectsWriter appends rejected records to a JSONL side file so schema
// drift can be diagnosed without rerunning the pipeline.
type RejectsWriter struct {
	path string
	file *os.File
	enc  *json.Encoder
	n    int
}

// NewRejectsWriter creates a writer targeting the given path. The file is
// opened lazily on first write.
func NewRejectsWriter(path string) *RejectsWriter {
	return &RejectsWriter{path: path}
}

// Write appends one reject.
func (w *RejectsWriter) Write(raw domain.RawRecord, reason string) error {
	if w.file == nil {
		if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
			return fmt.Errorf("failed to create rejects directory: %w", err)
		}
		file, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open rejects file: %w", err)
		}
		w.file = file
		w.enc = json.NewEncoder(file)
	}

	if err := w.enc.Encode(Reject{Reason: reason, Raw: raw}); err != nil {
		return fmt.Errorf("failed to write reject: %w", err)
	}
	w.n++
	return nil
}

// Count returns the number of rejects written.
func (w *RejectsWriter) Count() int { return w.n }

// Close closes the underlying file if one was opened.
func (w *RejectsWriter) Close() error {
	if w.file == nil {
		return nil
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close rejects file: %w", err)
	}
	w.file = nil
	return nil
}
