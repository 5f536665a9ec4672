package checkpoint_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonesrussell/grantpull/internal/checkpoint"
	"github.com/jonesrussell/grantpull/internal/domain"
	"github.com/jonesrussell/grantpull/internal/logger"
)

func TestReadMissingCheckpointMeansBackfill(t *testing.T) {
	store := checkpoint.NewFileStore(filepath.Join(t.TempDir(), "checkpoint.json"), logger.NewNoop())

	cp, err := store.Read()
	if err != nil {
		t.Fatalf("Read() unexpected error: %v", err)
	}
	if cp != nil {
		t.Errorf("Read() = %+v, want nil for a missing file", cp)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "checkpoint.json")
	store := checkpoint.NewFileStore(path, logger.NewNoop())

	stamp := time.Date(2025, 10, 1, 6, 0, 0, 0, time.UTC)
	if err := store.Write(&domain.Checkpoint{LastSuccessfulRun: stamp}); err != nil {
		t.Fatalf("Write() unexpected error: %v", err)
	}

	cp, err := store.Read()
	if err != nil {
		t.Fatalf("Read() unexpected error: %v", err)
	}
	if cp == nil || !cp.LastSuccessfulRun.Equal(stamp) {
		t.Errorf("Read() = %+v, want last run %s", cp, stamp)
	}
}

func TestWriteReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checkpoint.json")
	store := checkpoint.NewFileStore(path, logger.NewNoop())

	first := time.Date(2025, 10, 1, 6, 0, 0, 0, time.UTC)
	second := first.Add(24 * time.Hour)
	if err := store.Write(&domain.Checkpoint{LastSuccessfulRun: first}); err != nil {
		t.Fatalf("Write() unexpected error: %v", err)
	}
	if err := store.Write(&domain.Checkpoint{LastSuccessfulRun: second}); err != nil {
		t.Fatalf("Write() unexpected error: %v", err)
	}

	cp, err := store.Read()
	if err != nil {
		t.Fatalf("Read() unexpected error: %v", err)
	}
	if !cp.LastSuccessfulRun.Equal(second) {
		t.Errorf("Read() = %s, want the second write %s", cp.LastSuccessfulRun, second)
	}

	// No temp files may survive a successful write.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() unexpected error: %v", err)
	}
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".tmp") {
			t.Errorf("leftover temp file %s after write", entry.Name())
		}
	}
}
