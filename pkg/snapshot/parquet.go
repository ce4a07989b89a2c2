package snapshot

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
)

// WriteFile writes rows to dir/name.parquet atomically: the file is written under a
// temporary name in the same directory, synced, then renamed over the previous snapshot.
// Readers therefore see either the old or the new file, never a partial one.
func WriteFile[T any](dir, name string, rows []T) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	final := filepath.Join(dir, name+".parquet")
	tmp, err := os.CreateTemp(dir, "."+name+"-*.parquet.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op once the rename succeeded
		_ = os.Remove(tmpName)
	}()

	writer := parquet.NewGenericWriter[T](tmp)
	if len(rows) > 0 {
		if _, err := writer.Write(rows); err != nil {
			_ = tmp.Close()
			return "", fmt.Errorf("write %s rows: %w", name, err)
		}
	}
	if err := writer.Close(); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("close %s writer: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("sync %s snapshot: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s snapshot: %w", name, err)
	}
	if err := os.Rename(tmpName, final); err != nil {
		return "", fmt.Errorf("publish %s snapshot: %w", name, err)
	}

	return final, nil
}

// ReadFile loads every row of a snapshot file.
func ReadFile[T any](path string) ([]T, error) {
	return parquet.ReadFile[T](path)
}
