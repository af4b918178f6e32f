// Package util provides common utility functions for gophish-backup.
package util

import (
	"fmt"
	"os"
	"path/filepath"
)

// AtomicFile is a file that becomes visible at its final path only when
// Commit succeeds. Writes go to a temporary file in the same directory which
// is synced and renamed over the target on Commit, so a crash mid-write never
// leaves a truncated file behind.
//
// The atomic rename operation is guaranteed by POSIX on the same filesystem.
type AtomicFile struct {
	*os.File
	path string
	perm os.FileMode
	done bool
}

// CreateAtomic opens a temporary file next to path. Call Commit to publish it
// or Abort to discard it.
func CreateAtomic(path string, perm os.FileMode) (*AtomicFile, error) {
	dir := filepath.Dir(path)

	// Ensure directory exists
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	// Create temp file in same directory (required for atomic rename)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}

	return &AtomicFile{File: tmpFile, path: path, perm: perm}, nil
}

// Path returns the final path the file is published to.
func (f *AtomicFile) Path() string {
	return f.path
}

// Commit syncs the temporary file and renames it over the target path.
func (f *AtomicFile) Commit() error {
	if f.done {
		return fmt.Errorf("atomic file %s already closed", f.path)
	}
	f.done = true
	tmpPath := f.File.Name()

	// Clean up temp file on any error
	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	// Sync to disk before rename
	if err := f.File.Sync(); err != nil {
		_ = f.File.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}

	if err := f.File.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Chmod(tmpPath, f.perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, f.path); err != nil {
		return fmt.Errorf("rename temp to final: %w", err)
	}

	success = true
	return nil
}

// Abort discards the temporary file. Calling Abort after Commit is a no-op.
func (f *AtomicFile) Abort() error {
	if f.done {
		return nil
	}
	f.done = true
	_ = f.File.Close()
	if err := os.Remove(f.File.Name()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove temp file: %w", err)
	}
	return nil
}
