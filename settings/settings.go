// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

// Package settings persists per-user tool settings, currently the list of
// most recently used service endpoints.
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jongio/azd-odata/fileutil"
)

// Defaults.
const (
	// MaxEndpoints is how many endpoints the MRU list keeps.
	MaxEndpoints = 10
	// FormatVersion is written into every settings file. Files with a
	// different version are ignored on load.
	FormatVersion = "1"
	fileName      = "settings.json"
)

// Settings is the persisted user state.
type Settings struct {
	MRUEndpoints []string `json:"mruEndpoints"`
}

// envelope is the on-disk format wrapping settings with metadata.
type envelope struct {
	Version   string    `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
	Data      Settings  `json:"data"`
}

// Manager loads and stores settings in a directory. It is safe for
// concurrent use.
type Manager struct {
	dir string
	mu  sync.Mutex
}

// NewManager creates a manager rooted at dir.
func NewManager(dir string) *Manager {
	return &Manager{dir: dir}
}

// DefaultDir returns the per-user settings directory.
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return filepath.Join(base, "azd-odata"), nil
}

// Path returns the settings file path.
func (m *Manager) Path() string {
	return filepath.Join(m.dir, fileName)
}

// Load returns the stored settings. A missing file, or one written with a
// different format version, yields empty settings.
func (m *Manager) Load() (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load()
}

// Endpoints returns the MRU endpoint list, most recent first.
func (m *Manager) Endpoints() ([]string, error) {
	s, err := m.Load()
	if err != nil {
		return nil, err
	}
	return s.MRUEndpoints, nil
}

// AddEndpoint moves endpoint to the front of the MRU list, dropping any
// case-insensitive duplicate and trimming the list to MaxEndpoints.
func (m *Manager) AddEndpoint(endpoint string) error {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.load()
	if err != nil {
		return err
	}
	s.MRUEndpoints = pushFront(s.MRUEndpoints, endpoint)
	return m.save(s)
}

// RemoveEndpoint drops endpoint (case-insensitive) from the MRU list.
func (m *Manager) RemoveEndpoint(endpoint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.load()
	if err != nil {
		return err
	}
	kept := s.MRUEndpoints[:0]
	for _, e := range s.MRUEndpoints {
		if !strings.EqualFold(e, endpoint) {
			kept = append(kept, e)
		}
	}
	s.MRUEndpoints = kept
	return m.save(s)
}

// Clear removes the settings file.
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := fileutil.RemoveIfExists(m.Path()); err != nil {
		return fmt.Errorf("failed to remove settings: %w", err)
	}
	return nil
}

func (m *Manager) load() (Settings, error) {
	var env envelope
	if err := fileutil.ReadJSON(m.Path(), &env); err != nil {
		return Settings{}, fmt.Errorf("failed to read settings: %w", err)
	}
	if env.Version != FormatVersion {
		return Settings{}, nil
	}
	return env.Data, nil
}

func (m *Manager) save(s Settings) error {
	if err := fileutil.EnsureDir(m.dir); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	if s.MRUEndpoints == nil {
		s.MRUEndpoints = []string{}
	}
	env := envelope{
		Version:   FormatVersion,
		UpdatedAt: time.Now().UTC(),
		Data:      s,
	}
	return fileutil.AtomicWriteJSON(m.Path(), env)
}

func pushFront(list []string, endpoint string) []string {
	out := make([]string, 0, MaxEndpoints)
	out = append(out, endpoint)
	for _, e := range list {
		if len(out) == MaxEndpoints {
			break
		}
		if strings.EqualFold(e, endpoint) {
			continue
		}
		out = append(out, e)
	}
	return out
}

