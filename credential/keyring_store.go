package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// DefaultKeyringService is the keyring service name entries are filed under.
const DefaultKeyringService = "azd-odata"

// KeyringStore keeps credentials in the operating system keyring.
type KeyringStore struct {
	service string
}

// NewKeyringStore creates a store using service as the keyring service name.
// An empty service uses DefaultKeyringService.
func NewKeyringStore(service string) *KeyringStore {
	if service == "" {
		service = DefaultKeyringService
	}
	return &KeyringStore{service: service}
}

type keyringRecord struct {
	Username string `json:"username"`
	Secret   string `json:"secret"`
}

// Get returns the entry for host or ErrNotFound.
func (s *KeyringStore) Get(ctx context.Context, host string) (*Entry, error) {
	raw, err := keyring.Get(s.service, normalizeHost(host))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read keyring: %w", err)
	}

	var rec keyringRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("failed to decode keyring entry: %w", err)
	}
	return &Entry{Username: rec.Username, Secret: NewSecret(rec.Secret)}, nil
}

// Save stores entry for host.
func (s *KeyringStore) Save(ctx context.Context, host string, entry *Entry) error {
	if entry == nil {
		return errors.New("entry is nil")
	}

	data, err := json.Marshal(keyringRecord{Username: entry.Username, Secret: entry.Secret.Reveal()})
	if err != nil {
		return fmt.Errorf("failed to encode keyring entry: %w", err)
	}

	if err := keyring.Set(s.service, normalizeHost(host), string(data)); err != nil {
		return fmt.Errorf("failed to write keyring: %w", err)
	}
	return nil
}

// Remove deletes the entry for host. A missing entry is not an error.
func (s *KeyringStore) Remove(ctx context.Context, host string) error {
	if err := keyring.Delete(s.service, normalizeHost(host)); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete keyring entry: %w", err)
	}
	return nil
}
