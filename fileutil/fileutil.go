// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package fileutil

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jongio/azd-odata/security"
)

// File permissions
const (
	// DirPermission is the default permission for creating directories (rwxr-x---)
	DirPermission = 0750
	// FilePermission is the default permission for creating files (rw-r--r--)
	FilePermission = 0644
	// SecretFilePermission is used for files holding credentials (rw-------)
	SecretFilePermission = 0600
)

// AtomicWriteJSON writes data as indented JSON to a file atomically with FilePermission.
func AtomicWriteJSON(path string, data interface{}) error {
	return AtomicWriteJSONPerm(path, data, FilePermission)
}

// AtomicWriteJSONPerm writes data as indented JSON to a file atomically with the given permissions.
func AtomicWriteJSONPerm(path string, data interface{}, perm os.FileMode) error {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return AtomicWriteFile(path, jsonData, perm)
}

// AtomicWriteFile writes raw bytes to a file atomically.
// It writes to a unique temporary file in the same directory, syncs it, applies
// perm and renames it over the target, so the file is never left half written.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() { _ = tmpFile.Close() }()

	fail := func(msg string, err error) error {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%s: %w", msg, err)
	}

	if _, err := tmpFile.Write(data); err != nil {
		return fail("failed to write temp file", err)
	}

	// Flush before rename; some CI macOS runners show delayed writes otherwise.
	if err := tmpFile.Sync(); err != nil {
		return fail("failed to sync temp file", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fail("failed to close temp file", err)
	}

	if err := os.Chmod(tmpPath, perm); err != nil {
		return fail("failed to set file permissions", err)
	}

	if err := renameWithRetry(tmpPath, path); err != nil {
		return fail("failed to rename temp file", err)
	}

	return nil
}

// renameWithRetry retries transient rename failures (Windows file locks, AV scanners)
// with a short linear backoff: 20ms, 40ms, 60ms, 80ms.
func renameWithRetry(from, to string) error {
	var err error
	for attempt := 0; attempt < 5; attempt++ {
		if err = os.Rename(from, to); err == nil {
			return nil
		}
		if attempt < 4 {
			time.Sleep(time.Duration(20*(attempt+1)) * time.Millisecond)
		}
	}
	return err
}

// ReadJSON reads JSON from a file into the target interface.
// Returns nil error if file doesn't exist (target unchanged).
func ReadJSON(path string, target interface{}) error {
	// #nosec G304 -- callers pass configuration paths they own
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read file: %w", err)
	}

	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}

	return nil
}

// EnsureDir creates a directory if it doesn't exist.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, DirPermission); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return nil
}

// CreateTemp creates a new uniquely named file in dir (os.TempDir() when empty)
// after validating the directory path. The caller owns the returned file and must
// close and eventually remove it.
func CreateTemp(dir, pattern string) (*os.File, error) {
	if dir == "" {
		dir = os.TempDir()
	} else {
		if err := security.ValidatePath(dir); err != nil {
			return nil, err
		}
		if err := EnsureDir(dir); err != nil {
			return nil, err
		}
	}

	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	return f, nil
}

// RemoveIfExists deletes path, treating a missing file as success.
func RemoveIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", filepath.Base(path), err)
	}
	return nil
}

// FileExists reports whether path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
