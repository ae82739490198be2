package keyvault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	"github.com/jongio/azd-odata/credential"
)

// DefaultSecretPrefix prefixes the secret names Store writes.
const DefaultSecretPrefix = "odata-cred-"

const credentialContentType = "application/vnd.azd-odata.credential+json"

// Store keeps endpoint credentials as Key Vault secrets, one per host.
// It satisfies credential.Store. Vaults with purge protection keep a removed
// host's secret in the deleted state, so saving that host again fails until the
// deleted secret is recovered or purged.
type Store struct {
	client SecretClient
	prefix string
}

// NewStore creates a store for the vault at vaultURL using DefaultAzureCredential.
func NewStore(vaultURL string) (*Store, error) {
	if err := validateVaultURL(strings.TrimRight(vaultURL, "/")); err != nil {
		return nil, err
	}
	factory, err := DefaultClientFactory()
	if err != nil {
		return nil, err
	}
	client, err := factory(strings.TrimRight(vaultURL, "/"))
	if err != nil {
		return nil, err
	}
	return NewStoreWithClient(client, ""), nil
}

// NewStoreWithClient creates a store over an existing client. An empty prefix uses
// DefaultSecretPrefix.
func NewStoreWithClient(client SecretClient, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultSecretPrefix
	}
	return &Store{client: client, prefix: prefix}
}

type storedCredential struct {
	Username string `json:"username"`
	Secret   string `json:"secret"`
}

// Get returns the credentials for host or credential.ErrNotFound.
func (s *Store) Get(ctx context.Context, host string) (*credential.Entry, error) {
	name, err := s.SecretName(host)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.GetSecret(ctx, name, "", nil)
	if err != nil {
		if IsNotFound(err) {
			return nil, credential.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get secret from Key Vault: %w", err)
	}
	if resp.Value == nil {
		return nil, credential.ErrNotFound
	}

	var stored storedCredential
	if err := json.Unmarshal([]byte(*resp.Value), &stored); err != nil {
		return nil, fmt.Errorf("failed to decode stored credential: %w", err)
	}
	return &credential.Entry{Username: stored.Username, Secret: credential.NewSecret(stored.Secret)}, nil
}

// Save writes the credentials for host as a new secret version.
func (s *Store) Save(ctx context.Context, host string, entry *credential.Entry) error {
	if entry == nil {
		return errors.New("entry is nil")
	}
	name, err := s.SecretName(host)
	if err != nil {
		return err
	}

	data, err := json.Marshal(storedCredential{Username: entry.Username, Secret: entry.Secret.Reveal()})
	if err != nil {
		return fmt.Errorf("failed to encode credential: %w", err)
	}
	value := string(data)
	contentType := credentialContentType
	hostTag := strings.ToLower(host)

	_, err = s.client.SetSecret(ctx, name, azsecrets.SetSecretParameters{
		Value:       &value,
		ContentType: &contentType,
		Tags:        map[string]*string{"host": &hostTag},
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to save secret to Key Vault: %w", err)
	}
	return nil
}

// Remove deletes the secret for host. A missing secret is not an error.
func (s *Store) Remove(ctx context.Context, host string) error {
	name, err := s.SecretName(host)
	if err != nil {
		return err
	}

	if _, err := s.client.DeleteSecret(ctx, name, nil); err != nil && !IsNotFound(err) {
		return fmt.Errorf("failed to delete secret from Key Vault: %w", err)
	}
	return nil
}

// SecretName maps a host to a Key Vault secret name. Secret names allow only
// letters, digits and dashes.
func (s *Store) SecretName(host string) (string, error) {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return "", errors.New("host is required")
	}

	var b strings.Builder
	b.WriteString(s.prefix)
	for _, ch := range host {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= '0' && ch <= '9', ch == '-':
			b.WriteRune(ch)
		default:
			b.WriteRune('-')
		}
	}

	name := b.String()
	if len(name) > maxSecretNameLength {
		return "", fmt.Errorf("secret name for host exceeds %d characters", maxSecretNameLength)
	}
	return name, nil
}
