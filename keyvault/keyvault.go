// Package keyvault connects credential handling to Azure Key Vault: a Resolver that
// expands Key Vault secret references and a Store that keeps endpoint credentials
// as vault secrets.
package keyvault

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
)

const (
	// Azure Key Vault naming constraints
	minVaultNameLength  = 3
	maxVaultNameLength  = 24
	maxSecretNameLength = 127
)

var (
	kvRefSecretURIPattern = regexp.MustCompile(`^@Microsoft\.KeyVault\(SecretUri=(.+)\)$`)
	kvRefVaultNamePattern = regexp.MustCompile(`^@Microsoft\.KeyVault\(VaultName=([^;]+);SecretName=([^;)]+)(?:;SecretVersion=([^;)]+))?\)$`)
	kvRefAkvsPattern      = regexp.MustCompile(`^akvs://([^/]+)/([^/]+)/([^/]+)(?:/([^/]+))?$`)
)

// SecretClient is the subset of *azsecrets.Client used here.
type SecretClient interface {
	GetSecret(ctx context.Context, name, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error)
	SetSecret(ctx context.Context, name string, parameters azsecrets.SetSecretParameters, options *azsecrets.SetSecretOptions) (azsecrets.SetSecretResponse, error)
	DeleteSecret(ctx context.Context, name string, options *azsecrets.DeleteSecretOptions) (azsecrets.DeleteSecretResponse, error)
}

// ClientFactory creates a SecretClient for a vault URL.
type ClientFactory func(vaultURL string) (SecretClient, error)

// DefaultClientFactory authenticates with DefaultAzureCredential.
func DefaultClientFactory() (ClientFactory, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create DefaultAzureCredential: %w", err)
	}
	return func(vaultURL string) (SecretClient, error) {
		client, err := azsecrets.NewClient(vaultURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create Key Vault client: %w", err)
		}
		return client, nil
	}, nil
}

// clientCache hands out one client per vault URL.
type clientCache struct {
	factory ClientFactory
	clients map[string]SecretClient
	mu      sync.RWMutex
}

func newClientCache(factory ClientFactory) *clientCache {
	return &clientCache{factory: factory, clients: make(map[string]SecretClient)}
}

func (c *clientCache) get(vaultURL string) (SecretClient, error) {
	c.mu.RLock()
	if client, ok := c.clients[vaultURL]; ok {
		c.mu.RUnlock()
		return client, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if client, ok := c.clients[vaultURL]; ok {
		return client, nil
	}

	client, err := c.factory(vaultURL)
	if err != nil {
		return nil, err
	}
	c.clients[vaultURL] = client
	return client, nil
}

// Resolver expands Key Vault references. It satisfies credential.ReferenceResolver.
type Resolver struct {
	clients *clientCache
}

// NewResolver builds a resolver using DefaultAzureCredential.
func NewResolver() (*Resolver, error) {
	factory, err := DefaultClientFactory()
	if err != nil {
		return nil, err
	}
	return NewResolverWithFactory(factory), nil
}

// NewResolverWithFactory builds a resolver with a custom client factory.
func NewResolverWithFactory(factory ClientFactory) *Resolver {
	return &Resolver{clients: newClientCache(factory)}
}

// IsReference reports whether value matches a supported reference format:
//
//	@Microsoft.KeyVault(SecretUri=https://<vault>.vault.azure.net/secrets/<name>[/<version>])
//	@Microsoft.KeyVault(VaultName=<vault>;SecretName=<name>[;SecretVersion=<version>])
//	akvs://<subscription>/<vault>/<name>[/<version>]
//
// Surrounding whitespace and matching quotes are ignored.
func (r *Resolver) IsReference(value string) bool {
	return IsReference(value)
}

// IsReference is the package-level form of Resolver.IsReference.
func IsReference(value string) bool {
	normalized := normalizeReference(value)
	return kvRefSecretURIPattern.MatchString(normalized) ||
		kvRefVaultNamePattern.MatchString(normalized) ||
		kvRefAkvsPattern.MatchString(normalized)
}

// Resolve returns the secret value a reference points at.
func (r *Resolver) Resolve(ctx context.Context, reference string) (string, error) {
	reference = normalizeReference(reference)

	if matches := kvRefSecretURIPattern.FindStringSubmatch(reference); matches != nil {
		vaultURL, name, version, err := splitSecretURI(strings.TrimSpace(matches[1]))
		if err != nil {
			return "", err
		}
		return r.get(ctx, vaultURL, name, version)
	}

	if matches := kvRefVaultNamePattern.FindStringSubmatch(reference); matches != nil {
		if err := validateVaultName(matches[1]); err != nil {
			return "", err
		}
		return r.get(ctx, VaultURL(matches[1]), matches[2], matches[3])
	}

	if matches := kvRefAkvsPattern.FindStringSubmatch(reference); matches != nil {
		if err := validateVaultName(matches[2]); err != nil {
			return "", err
		}
		return r.get(ctx, VaultURL(matches[2]), matches[3], matches[4])
	}

	return "", fmt.Errorf("invalid Key Vault reference format")
}

func (r *Resolver) get(ctx context.Context, vaultURL, name, version string) (string, error) {
	client, err := r.clients.get(vaultURL)
	if err != nil {
		return "", err
	}

	resp, err := client.GetSecret(ctx, name, version, nil)
	if err != nil {
		// Vault and secret names stay out of the message; it may end up in logs.
		return "", fmt.Errorf("failed to get secret from Key Vault: %w", err)
	}
	if resp.Value == nil {
		return "", fmt.Errorf("secret has no value")
	}
	return *resp.Value, nil
}

// VaultURL returns the public-cloud URL for a vault name.
func VaultURL(vaultName string) string {
	return fmt.Sprintf("https://%s.vault.azure.net", vaultName)
}

// IsNotFound reports whether err is a Key Vault 404.
func IsNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == 404
}

func splitSecretURI(secretURI string) (vaultURL, name, version string, err error) {
	parts := strings.Split(secretURI, "/secrets/")
	if len(parts) != 2 {
		return "", "", "", fmt.Errorf("invalid secret URI format")
	}

	vaultURL = parts[0]
	if err := validateVaultURL(vaultURL); err != nil {
		return "", "", "", err
	}

	secretParts := strings.Split(strings.Trim(parts[1], "/"), "/")
	name = secretParts[0]
	if name == "" {
		return "", "", "", fmt.Errorf("invalid secret URI format")
	}
	if len(secretParts) > 1 {
		version = secretParts[1]
	}
	return vaultURL, name, version, nil
}

func normalizeReference(value string) string {
	normalized := strings.TrimSpace(value)
	if len(normalized) < 2 {
		return normalized
	}

	first := normalized[0]
	last := normalized[len(normalized)-1]

	if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
		normalized = strings.TrimSpace(normalized[1 : len(normalized)-1])
	}

	return normalized
}

func validateVaultURL(vaultURL string) error {
	if !strings.HasPrefix(vaultURL, "https://") {
		return fmt.Errorf("vault URI must use https scheme")
	}

	if !strings.HasSuffix(vaultURL, ".vault.azure.net") {
		return fmt.Errorf("vault URI must be in *.vault.azure.net domain")
	}

	vaultName := strings.TrimPrefix(vaultURL, "https://")
	vaultName = strings.TrimSuffix(vaultName, ".vault.azure.net")

	return validateVaultName(vaultName)
}

func validateVaultName(vaultName string) error {
	if len(vaultName) < minVaultNameLength || len(vaultName) > maxVaultNameLength {
		return fmt.Errorf("vault name must be %d-%d characters, got %d", minVaultNameLength, maxVaultNameLength, len(vaultName))
	}

	for i, ch := range vaultName {
		if (ch < 'a' || ch > 'z') && (ch < 'A' || ch > 'Z') && (ch < '0' || ch > '9') && ch != '-' {
			return fmt.Errorf("vault name contains invalid character: %c", ch)
		}
		if i == 0 && ch >= '0' && ch <= '9' {
			return fmt.Errorf("vault name cannot start with a number")
		}
	}

	return nil
}
