package credential

import (
	"context"
	"errors"
	"fmt"

	"github.com/jongio/azd-odata/logutil"
	"github.com/jongio/azd-odata/urlutil"
)

// AcquireOptions controls a single credential acquisition.
type AcquireOptions struct {
	// Needed is false when the endpoint is known to allow anonymous access.
	Needed bool
	// Reset evicts any cached entry for the host before lookup.
	Reset bool
	// Save stores prompted credentials for reuse.
	Save bool
	// Message is shown by interactive prompters.
	Message string
}

// Acquirer resolves the credential for an endpoint from a Store, falling back to a Prompter.
type Acquirer struct {
	store    Store
	prompter Prompter
	log      *logutil.ComponentLogger
}

// NewAcquirer creates an Acquirer. A nil store uses a fresh MemoryStore and a nil
// prompter uses NoPrompt.
func NewAcquirer(store Store, prompter Prompter, log *logutil.ComponentLogger) *Acquirer {
	if store == nil {
		store = NewMemoryStore()
	}
	if prompter == nil {
		prompter = NoPrompt{}
	}
	if log == nil {
		log = logutil.NewLogger("credential")
	}
	return &Acquirer{store: store, prompter: prompter, log: log}
}

// Acquire returns the credential to use for endpoint. The returned secret is a
// private copy the caller must Destroy when done.
func (a *Acquirer) Acquire(ctx context.Context, endpoint string, opts AcquireOptions) (Credential, error) {
	if !opts.Needed || !urlutil.IsHTTPEndpoint(endpoint) {
		return None(), nil
	}

	host, err := urlutil.Hostname(endpoint)
	if err != nil {
		return None(), fmt.Errorf("cannot determine host for credentials: %w", err)
	}
	log := a.log.WithFields("host", host)

	if opts.Reset {
		if err := a.store.Remove(ctx, host); err != nil {
			return None(), fmt.Errorf("failed to reset credentials for %s: %w", host, err)
		}
		log.Debug("cached credentials removed")
	}

	entry, err := a.store.Get(ctx, host)
	switch {
	case err == nil:
		log.Debug("using cached credentials")
	case errors.Is(err, ErrNotFound):
		entry, err = a.prompt(ctx, host, opts)
		if err != nil {
			return None(), err
		}
	default:
		log.Warn("credential store lookup failed, prompting instead", "error", err)
		entry, err = a.prompt(ctx, host, opts)
		if err != nil {
			return None(), err
		}
	}

	if entry == nil {
		log.Debug("no credentials supplied, continuing anonymously")
		return None(), nil
	}

	kind := KindForHost(host)
	log.Debug("credentials resolved", "kind", kind.String())
	return Credential{Kind: kind, Username: entry.Username, Secret: entry.Secret}, nil
}

// prompt asks the Prompter and saves the result when requested. A declined prompt
// yields a nil entry.
func (a *Acquirer) prompt(ctx context.Context, host string, opts AcquireOptions) (*Entry, error) {
	entry, err := a.prompter.Prompt(ctx, host, opts.Message)
	if errors.Is(err, ErrDeclined) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain credentials for %s: %w", host, err)
	}
	if entry == nil {
		return nil, nil
	}

	if opts.Save {
		if err := a.store.Save(ctx, host, entry); err != nil {
			a.log.Warn("failed to save credentials", "host", host, "error", err)
		}
	}
	return entry, nil
}

// Forget removes any stored credentials for the endpoint's host.
func (a *Acquirer) Forget(ctx context.Context, endpoint string) error {
	host, err := urlutil.Hostname(endpoint)
	if err != nil {
		return err
	}
	return a.store.Remove(ctx, host)
}
