// Package credential models the credentials used to reach a metadata endpoint and
// the collaborators that produce them: a host-keyed Store, an interactive or
// non-interactive Prompter, and the Acquirer that combines both.
package credential

import (
	"log/slog"
	"strings"

	"github.com/jongio/azd-odata/urlutil"
)

// CloudHostSuffix identifies SharePoint Online hosts, which need cookie-based sign-in.
const CloudHostSuffix = ".sharepoint.com"

// Kind tags the credential variant.
type Kind int

const (
	// KindNone means the request is sent anonymously.
	KindNone Kind = iota
	// KindGenericNetwork is a username/secret pair sent with HTTP Basic authentication.
	KindGenericNetwork
	// KindCloudAuthenticated is a username/secret pair exchanged for SharePoint Online cookies.
	KindCloudAuthenticated
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindGenericNetwork:
		return "generic-network"
	case KindCloudAuthenticated:
		return "cloud-authenticated"
	default:
		return "unknown"
	}
}

// KindForHost returns the credential variant used for host when credentials exist.
func KindForHost(host string) Kind {
	if urlutil.HostHasSuffix(host, CloudHostSuffix) {
		return KindCloudAuthenticated
	}
	return KindGenericNetwork
}

// Secret holds sensitive bytes that can be wiped with Destroy.
// Its String and LogValue methods never reveal the content.
type Secret struct {
	b []byte
}

// NewSecret copies s into a new Secret.
func NewSecret(s string) *Secret {
	return &Secret{b: []byte(s)}
}

// NewSecretBytes takes ownership of b.
func NewSecretBytes(b []byte) *Secret {
	return &Secret{b: b}
}

// Reveal returns the plaintext.
func (s *Secret) Reveal() string {
	if s == nil {
		return ""
	}
	return string(s.b)
}

// Len returns the number of secret bytes.
func (s *Secret) Len() int {
	if s == nil {
		return 0
	}
	return len(s.b)
}

// Clone returns an independent copy.
func (s *Secret) Clone() *Secret {
	if s == nil {
		return nil
	}
	b := make([]byte, len(s.b))
	copy(b, s.b)
	return &Secret{b: b}
}

// Destroy zeroes the buffer. The Secret is empty afterwards.
func (s *Secret) Destroy() {
	if s == nil {
		return
	}
	for i := range s.b {
		s.b[i] = 0
	}
	s.b = nil
}

func (s *Secret) String() string {
	return "[REDACTED]"
}

// LogValue implements slog.LogValuer.
func (s *Secret) LogValue() slog.Value {
	return slog.StringValue("[REDACTED]")
}

// Entry is what a Store keeps and a Prompter returns for a host.
type Entry struct {
	Username string
	Secret   *Secret
}

// Clone returns an Entry with an independent secret buffer.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	return &Entry{Username: e.Username, Secret: e.Secret.Clone()}
}

// Credential is the resolved credential for a single retrieval.
type Credential struct {
	Kind     Kind
	Username string
	Secret   *Secret
}

// None returns the anonymous credential.
func None() Credential {
	return Credential{Kind: KindNone}
}

// IsNone reports whether the credential is anonymous.
func (c Credential) IsNone() bool {
	return c.Kind == KindNone
}

// Destroy wipes the secret.
func (c Credential) Destroy() {
	c.Secret.Destroy()
}

// LogValue implements slog.LogValuer.
func (c Credential) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("kind", c.Kind.String()),
		slog.String("username", c.Username),
	)
}

func normalizeHost(host string) string {
	return strings.ToLower(strings.TrimSpace(host))
}
