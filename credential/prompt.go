package credential

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrDeclined is returned by a Prompter when the user supplies no credentials.
// Acquirer treats it as a request to continue anonymously.
var ErrDeclined = errors.New("credential prompt declined")

// Environment variables read by EnvPrompter.
const (
	EnvUsername = "ODATA_USERNAME"
	EnvPassword = "ODATA_PASSWORD"
)

// Prompter obtains credentials for host from a user or the environment.
type Prompter interface {
	Prompt(ctx context.Context, host, message string) (*Entry, error)
}

// PromptFunc adapts a function to Prompter.
type PromptFunc func(ctx context.Context, host, message string) (*Entry, error)

// Prompt calls f.
func (f PromptFunc) Prompt(ctx context.Context, host, message string) (*Entry, error) {
	return f(ctx, host, message)
}

// NoPrompt never supplies credentials.
type NoPrompt struct{}

// Prompt always returns ErrDeclined.
func (NoPrompt) Prompt(ctx context.Context, host, message string) (*Entry, error) {
	return nil, ErrDeclined
}

// TerminalPrompter asks for a username and password on a terminal.
// The password is read without echo when In is a terminal.
type TerminalPrompter struct {
	In  io.Reader
	Out io.Writer
}

// NewTerminalPrompter prompts on stdin/stderr.
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{In: os.Stdin, Out: os.Stderr}
}

// Prompt asks for credentials. An empty username declines.
func (p *TerminalPrompter) Prompt(ctx context.Context, host, message string) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	in := p.In
	if in == nil {
		in = os.Stdin
	}
	out := p.Out
	if out == nil {
		out = os.Stderr
	}
	reader := bufio.NewReader(in)

	if message != "" {
		_, _ = fmt.Fprintln(out, message)
	}
	_, _ = fmt.Fprintf(out, "Username for %s (leave empty to continue without credentials): ", host)

	username, err := readLine(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read username: %w", err)
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrDeclined
	}

	_, _ = fmt.Fprint(out, "Password: ")
	secret, err := p.readSecret(reader, in)
	_, _ = fmt.Fprintln(out)
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}

	return &Entry{Username: username, Secret: secret}, nil
}

func (p *TerminalPrompter) readSecret(reader *bufio.Reader, in io.Reader) (*Secret, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return nil, err
		}
		return NewSecretBytes(b), nil
	}

	line, err := readLine(reader)
	if err != nil {
		return nil, err
	}
	return NewSecret(line), nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// ReferenceResolver expands secret references such as Azure Key Vault URIs.
type ReferenceResolver interface {
	IsReference(value string) bool
	Resolve(ctx context.Context, reference string) (string, error)
}

// EnvPrompter reads credentials from environment variables, expanding secret
// references through Resolver when one is set.
type EnvPrompter struct {
	UsernameVar string
	PasswordVar string
	Resolver    ReferenceResolver
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

// Prompt returns the environment credentials or ErrDeclined when the username is unset.
func (p *EnvPrompter) Prompt(ctx context.Context, host, message string) (*Entry, error) {
	getenv := p.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	userVar := p.UsernameVar
	if userVar == "" {
		userVar = EnvUsername
	}
	passVar := p.PasswordVar
	if passVar == "" {
		passVar = EnvPassword
	}

	username := strings.TrimSpace(getenv(userVar))
	if username == "" {
		return nil, ErrDeclined
	}

	password := getenv(passVar)
	if p.Resolver != nil && p.Resolver.IsReference(password) {
		resolved, err := p.Resolver.Resolve(ctx, password)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", passVar, err)
		}
		password = resolved
	}

	return &Entry{Username: username, Secret: NewSecret(password)}, nil
}
