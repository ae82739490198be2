package keyvault

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jongio/azd-odata/credential"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ credential.ReferenceResolver = (*Resolver)(nil)

func TestIsReference(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{"SecretUri with version", "@Microsoft.KeyVault(SecretUri=https://myvault.vault.azure.net/secrets/my-secret/abc123)", true},
		{"SecretUri without version", "@Microsoft.KeyVault(SecretUri=https://myvault.vault.azure.net/secrets/my-secret)", true},
		{"VaultName with version", "@Microsoft.KeyVault(VaultName=myvault;SecretName=my-secret;SecretVersion=abc123)", true},
		{"VaultName without version", "@Microsoft.KeyVault(VaultName=myvault;SecretName=my-secret)", true},
		{"akvs with version", "akvs://12345678-1234-1234-1234-123456789abc/myvault/my-secret/abc123", true},
		{"akvs without version", "akvs://12345678-1234-1234-1234-123456789abc/myvault/my-secret", true},
		{"plain password", "just a regular value", false},
		{"empty", "", false},
		{"missing closing paren", "@Microsoft.KeyVault(SecretUri=https://myvault.vault.azure.net/secrets/my-secret", false},
		{"akvs missing parts", "akvs://guid/vault", false},
		{"double quoted", "\"@Microsoft.KeyVault(SecretUri=https://myvault.vault.azure.net/secrets/my-secret)\"", true},
		{"single quoted", "'@Microsoft.KeyVault(SecretUri=https://myvault.vault.azure.net/secrets/my-secret)'", true},
		{"surrounding whitespace", "  @Microsoft.KeyVault(VaultName=myvault;SecretName=my-secret)  ", true},
	}

	r := NewResolverWithFactory(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.IsReference(tt.value))
		})
	}
}

func TestNormalizeReference(t *testing.T) {
	tests := []struct {
		value string
		want  string
	}{
		{"\"@Microsoft.KeyVault(VaultName=v;SecretName=s)\"", "@Microsoft.KeyVault(VaultName=v;SecretName=s)"},
		{"  '@Microsoft.KeyVault(VaultName=v;SecretName=s)'  ", "@Microsoft.KeyVault(VaultName=v;SecretName=s)"},
		{"\"mismatched'", "\"mismatched'"},
		{"a", "a"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeReference(tt.value))
	}
}

func TestResolver_Resolve(t *testing.T) {
	client := newFakeClient()
	client.put("sp-password", "from-vault")

	var vaults []string
	var mu sync.Mutex
	r := NewResolverWithFactory(func(vaultURL string) (SecretClient, error) {
		mu.Lock()
		vaults = append(vaults, vaultURL)
		mu.Unlock()
		return client, nil
	})

	refs := []string{
		"@Microsoft.KeyVault(SecretUri=https://myvault.vault.azure.net/secrets/sp-password)",
		"@Microsoft.KeyVault(SecretUri=https://myvault.vault.azure.net/secrets/sp-password/v1)",
		"@Microsoft.KeyVault(VaultName=myvault;SecretName=sp-password)",
		"akvs://sub/myvault/sp-password",
	}
	for _, ref := range refs {
		value, err := r.Resolve(context.Background(), ref)
		require.NoError(t, err, ref)
		assert.Equal(t, "from-vault", value)
	}

	assert.Equal(t, []string{"https://myvault.vault.azure.net"}, vaults, "client should be created once per vault")
	assert.Equal(t, getCall{name: "sp-password", version: "v1"}, client.gets[1])
}

func TestResolver_ResolveErrors(t *testing.T) {
	client := newFakeClient()
	r := NewResolverWithFactory(func(string) (SecretClient, error) { return client, nil })

	tests := []struct {
		name string
		ref  string
	}{
		{"not a reference", "plain"},
		{"http vault", "@Microsoft.KeyVault(SecretUri=http://myvault.vault.azure.net/secrets/x)"},
		{"foreign domain", "@Microsoft.KeyVault(SecretUri=https://myvault.example.com/secrets/x)"},
		{"no secrets segment", "@Microsoft.KeyVault(SecretUri=https://myvault.vault.azure.net/keys/x)"},
		{"vault name too short", "@Microsoft.KeyVault(VaultName=ab;SecretName=x)"},
		{"vault name starts with digit", "akvs://sub/1vault/x"},
		{"missing secret", "@Microsoft.KeyVault(VaultName=myvault;SecretName=missing)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Resolve(context.Background(), tt.ref)
			assert.Error(t, err)
		})
	}
}

func TestResolver_FactoryError(t *testing.T) {
	r := NewResolverWithFactory(func(string) (SecretClient, error) { return nil, errors.New("no identity") })

	_, err := r.Resolve(context.Background(), "@Microsoft.KeyVault(VaultName=myvault;SecretName=x)")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no identity")
}

func TestValidateVaultName(t *testing.T) {
	assert.NoError(t, validateVaultName("my-vault"))
	assert.Error(t, validateVaultName("ab"))
	assert.Error(t, validateVaultName("this-name-is-way-too-long-for-a-vault"))
	assert.Error(t, validateVaultName("my_vault"))
	assert.Error(t, validateVaultName("9vault"))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(notFound()))
	assert.False(t, IsNotFound(errors.New("boom")))
	assert.False(t, IsNotFound(nil))
}
