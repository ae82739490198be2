package credential

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerminalPrompter(t *testing.T) {
	t.Run("reads username and password", func(t *testing.T) {
		var out bytes.Buffer
		p := &TerminalPrompter{In: strings.NewReader("alice\nhunter2\n"), Out: &out}

		entry, err := p.Prompt(context.Background(), "example.com", "Sign in to continue")
		require.NoError(t, err)
		assert.Equal(t, "alice", entry.Username)
		assert.Equal(t, "hunter2", entry.Secret.Reveal())
		assert.Contains(t, out.String(), "Sign in to continue")
		assert.Contains(t, out.String(), "example.com")
		assert.NotContains(t, out.String(), "hunter2")
	})

	t.Run("password without trailing newline", func(t *testing.T) {
		p := &TerminalPrompter{In: strings.NewReader("alice\r\nhunter2"), Out: &bytes.Buffer{}}

		entry, err := p.Prompt(context.Background(), "example.com", "")
		require.NoError(t, err)
		assert.Equal(t, "hunter2", entry.Secret.Reveal())
	})

	t.Run("empty username declines", func(t *testing.T) {
		p := &TerminalPrompter{In: strings.NewReader("\n"), Out: &bytes.Buffer{}}

		_, err := p.Prompt(context.Background(), "example.com", "")
		assert.ErrorIs(t, err, ErrDeclined)
	})

	t.Run("end of input declines", func(t *testing.T) {
		p := &TerminalPrompter{In: strings.NewReader(""), Out: &bytes.Buffer{}}

		_, err := p.Prompt(context.Background(), "example.com", "")
		assert.ErrorIs(t, err, ErrDeclined)
	})

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		p := &TerminalPrompter{In: strings.NewReader("alice\npw\n"), Out: &bytes.Buffer{}}

		_, err := p.Prompt(ctx, "example.com", "")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

type fakeResolver struct {
	values map[string]string
	err    error
}

func (f *fakeResolver) IsReference(value string) bool {
	return strings.HasPrefix(value, "@Microsoft.KeyVault(")
}

func (f *fakeResolver) Resolve(ctx context.Context, reference string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.values[reference], nil
}

func TestEnvPrompter(t *testing.T) {
	env := func(vals map[string]string) func(string) string {
		return func(k string) string { return vals[k] }
	}

	t.Run("plain values", func(t *testing.T) {
		p := &EnvPrompter{Getenv: env(map[string]string{EnvUsername: "alice", EnvPassword: "pw"})}

		entry, err := p.Prompt(context.Background(), "example.com", "")
		require.NoError(t, err)
		assert.Equal(t, "alice", entry.Username)
		assert.Equal(t, "pw", entry.Secret.Reveal())
	})

	t.Run("custom variable names", func(t *testing.T) {
		p := &EnvPrompter{
			UsernameVar: "SP_USER",
			PasswordVar: "SP_PASS",
			Getenv:      env(map[string]string{"SP_USER": "bob", "SP_PASS": "x"}),
		}

		entry, err := p.Prompt(context.Background(), "example.com", "")
		require.NoError(t, err)
		assert.Equal(t, "bob", entry.Username)
	})

	t.Run("missing username declines", func(t *testing.T) {
		p := &EnvPrompter{Getenv: env(map[string]string{EnvPassword: "pw"})}

		_, err := p.Prompt(context.Background(), "example.com", "")
		assert.ErrorIs(t, err, ErrDeclined)
	})

	t.Run("resolves references", func(t *testing.T) {
		ref := "@Microsoft.KeyVault(SecretUri=https://v.vault.azure.net/secrets/sp)"
		p := &EnvPrompter{
			Getenv:   env(map[string]string{EnvUsername: "alice", EnvPassword: ref}),
			Resolver: &fakeResolver{values: map[string]string{ref: "from-vault"}},
		}

		entry, err := p.Prompt(context.Background(), "example.com", "")
		require.NoError(t, err)
		assert.Equal(t, "from-vault", entry.Secret.Reveal())
	})

	t.Run("reference resolution failure", func(t *testing.T) {
		p := &EnvPrompter{
			Getenv:   env(map[string]string{EnvUsername: "alice", EnvPassword: "@Microsoft.KeyVault(VaultName=v;SecretName=s)"}),
			Resolver: &fakeResolver{err: errors.New("forbidden")},
		}

		_, err := p.Prompt(context.Background(), "example.com", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), EnvPassword)
	})
}

func TestNoPrompt(t *testing.T) {
	_, err := NoPrompt{}.Prompt(context.Background(), "example.com", "")
	assert.ErrorIs(t, err, ErrDeclined)
}
