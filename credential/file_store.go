package credential

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/jongio/azd-odata/fileutil"
	"github.com/jongio/azd-odata/logutil"
	"github.com/jongio/azd-odata/security"
)

// FileStore persists credentials to a JSON file readable only by the owner.
type FileStore struct {
	path string
	mu   sync.RWMutex
	log  *logutil.ComponentLogger
}

type fileRecord struct {
	Username string `json:"username"`
	Secret   string `json:"secret"`
}

// NewFileStore creates a store backed by the file at path.
func NewFileStore(path string) (*FileStore, error) {
	if err := security.ValidatePath(path); err != nil {
		return nil, fmt.Errorf("invalid credential file path: %w", err)
	}
	return &FileStore{path: path, log: logutil.NewLogger("credential")}, nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Get returns the entry for host or ErrNotFound.
func (s *FileStore) Get(ctx context.Context, host string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}

	rec, ok := records[normalizeHost(host)]
	if !ok {
		return nil, ErrNotFound
	}
	return &Entry{Username: rec.Username, Secret: NewSecret(rec.Secret)}, nil
}

// Save writes entry for host, replacing any previous one.
func (s *FileStore) Save(ctx context.Context, host string, entry *Entry) error {
	if entry == nil {
		return errors.New("entry is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}

	records[normalizeHost(host)] = fileRecord{Username: entry.Username, Secret: entry.Secret.Reveal()}
	if err := s.persist(records); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}

// Remove deletes the entry for host. A missing entry is not an error.
func (s *FileStore) Remove(ctx context.Context, host string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}

	key := normalizeHost(host)
	if _, ok := records[key]; !ok {
		return nil
	}
	delete(records, key)

	if err := s.persist(records); err != nil {
		return fmt.Errorf("failed to remove credentials: %w", err)
	}
	return nil
}

// persist writes records with owner-only permissions; caller holds mu.
func (s *FileStore) persist(records map[string]fileRecord) error {
	if err := fileutil.EnsureDir(filepath.Dir(s.path)); err != nil {
		return err
	}
	return fileutil.AtomicWriteJSONPerm(s.path, records, fileutil.SecretFilePermission)
}

// load reads the file; caller holds mu.
func (s *FileStore) load() (map[string]fileRecord, error) {
	if fileutil.FileExists(s.path) {
		if err := security.ValidateFilePermissions(s.path); err != nil {
			s.log.Warn("credential file is writable by group or others", "path", s.path)
		}
	}

	records := make(map[string]fileRecord)
	if err := fileutil.ReadJSON(s.path, &records); err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	return records, nil
}
