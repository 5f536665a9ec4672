// Package checkpoint persists the incremental-sync checkpoint to disk.
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jonesrussell/grantpull/internal/domain"
	"github.com/jonesrussell/grantpull/internal/logger"
)

// FileStore reads and writes the checkpoint as a small JSON file. Writes go
// through a temp file in the same directory followed by rename, so a crash
// mid-write never corrupts the next read.
type FileStore struct {
	path string
	log  logger.Interface
}

// NewFileStore creates a checkpoint store at the given path.
func NewFileStore(path string, log logger.Interface) *FileStore {
	return &FileStore{path: path, log: log}
}

// Read returns the stored checkpoint, or (nil, nil) when none exists.
// Absence means the next pull performs a full backfill.
func (s *FileStore) Read() (*domain.Checkpoint, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	var cp domain.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to parse checkpoint: %w", err)
	}

	return &cp, nil
}

// Write atomically replaces the stored checkpoint. Callers must treat a
// write failure as fatal for the run: claiming success here would make the
// next run skip records incorrectly.
func (s *FileStore) Write(cp *domain.Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "checkpoint-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp checkpoint: %w", err)
	}
	tmpName := tmp.Name()

	if _, writeErr := tmp.Write(data); writeErr != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp checkpoint: %w", writeErr)
	}
	if syncErr := tmp.Sync(); syncErr != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync temp checkpoint: %w", syncErr)
	}
	if closeErr := tmp.Close(); closeErr != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp checkpoint: %w", closeErr)
	}

	if renameErr := os.Rename(tmpName, s.path); renameErr != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace checkpoint: %w", renameErr)
	}

	s.log.Debug("Checkpoint advanced", "last_successful_run", cp.LastSuccessfulRun)
	return nil
}
