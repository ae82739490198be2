package metadata

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jongio/azd-odata/credential"
	"github.com/jongio/azd-odata/fileutil"
	"github.com/jongio/azd-odata/httpclient"
	"github.com/jongio/azd-odata/logutil"
	"github.com/jongio/azd-odata/sharepoint"
	"github.com/jongio/azd-odata/urlutil"
)

// DefaultTimeout caps connecting and copying for one retrieval.
const DefaultTimeout = 100 * time.Second

// stagingPattern names staged documents.
const stagingPattern = "odata-metadata-*.xml"

// ResolveEndpoint normalizes user input to the address of a metadata document.
// Empty input is an InvalidArgumentError; see urlutil.ResolveMetadataEndpoint for
// the rules applied to everything else.
func ResolveEndpoint(raw string) (string, error) {
	endpoint, err := urlutil.ResolveMetadataEndpoint(raw)
	if err != nil {
		return "", NewInvalidArgumentError("endpoint", "must not be empty")
	}
	return endpoint, nil
}

// Options configures a Fetcher. Every field is optional.
type Options struct {
	// Timeout caps connecting and copying. Zero uses DefaultTimeout; negative disables it.
	Timeout time.Duration
	// Retry is the number of extra attempts for transient network failures.
	Retry int
	// StagingDir receives staged documents. Empty uses the system temp directory.
	StagingDir string
	// Client is shared by the resolvers.
	Client *httpclient.Client
	// Cookies signs in to SharePoint Online. Defaults to a sharepoint.CookieIssuer over Client.
	Cookies CookieSource
	Logger  *logutil.ComponentLogger
	Metrics *Metrics
	// OnState observes every state transition.
	OnState func(Transition)
}

// Document is a staged metadata document. The caller owns the file and removes it
// with Remove once the generator is done with it.
type Document struct {
	Path      string
	Version   Version
	Namespace string
	// RootElement is the local name of the first element, normally "Edmx".
	RootElement string
	Endpoint    string
	AttemptID   string
	Size        int64
}

// Remove deletes the staged file.
func (d *Document) Remove() error {
	if d == nil || d.Path == "" {
		return nil
	}
	return fileutil.RemoveIfExists(d.Path)
}

// Fetcher retrieves metadata documents and stages them locally. It holds no
// per-retrieval state and is safe for concurrent use.
type Fetcher struct {
	opts    Options
	client  *httpclient.Client
	cookies CookieSource
	log     *logutil.ComponentLogger
}

// NewFetcher creates a Fetcher.
func NewFetcher(opts Options) *Fetcher {
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}

	client := opts.Client
	if client == nil {
		client = httpclient.NewClientWithOptions(nil, httpclient.Options{Debug: logutil.IsDebugEnabled()})
	}

	log := opts.Logger
	if log == nil {
		log = logutil.NewLogger("metadata")
	}

	cookies := opts.Cookies
	if cookies == nil {
		cookies = sharepoint.NewCookieIssuer(client, sharepoint.WithLogger(log))
	}

	return &Fetcher{opts: opts, client: client, cookies: cookies, log: log}
}

// Retrieve runs a complete attempt: normalize raw, acquire credentials through
// acquirer (nil means anonymous), then Fetch.
func (f *Fetcher) Retrieve(ctx context.Context, raw string, acquirer *credential.Acquirer, acquireOpts credential.AcquireOptions) (*Document, error) {
	a := f.newAttempt()

	a.to(StateNormalizing)
	endpoint, err := ResolveEndpoint(raw)
	if err != nil {
		return nil, a.fail(err)
	}
	a.log = a.log.WithEndpoint(endpoint)

	a.to(StateAcquiringCredentials)
	cred := credential.None()
	if acquirer != nil {
		cred, err = acquirer.Acquire(ctx, endpoint, acquireOpts)
		if err != nil {
			return nil, a.fail(NewAccessError(endpoint, err))
		}
	}

	return f.fetch(ctx, a, endpoint, cred)
}

// Fetch retrieves the document at an already normalized endpoint using cred and
// stages it. Fetch takes ownership of cred and destroys its secret before returning.
func (f *Fetcher) Fetch(ctx context.Context, endpoint string, cred credential.Credential) (*Document, error) {
	a := f.newAttempt()
	a.log = a.log.WithEndpoint(endpoint)
	return f.fetch(ctx, a, endpoint, cred)
}

func (f *Fetcher) fetch(ctx context.Context, a *attempt, endpoint string, cred credential.Credential) (*Document, error) {
	defer cred.Destroy()
	a.credential = cred.Kind.String()

	if endpoint == "" {
		return nil, a.fail(NewInvalidArgumentError("endpoint", "must not be empty"))
	}

	if f.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.opts.Timeout)
		defer cancel()
	}

	a.to(StateConnecting)
	body, err := f.resolverFor(cred).Resolve(ctx, endpoint)
	if err != nil {
		return nil, a.fail(NewAccessError(endpoint, err))
	}
	defer func() { _ = body.Close() }()

	file, err := fileutil.CreateTemp(f.opts.StagingDir, stagingPattern)
	if err != nil {
		return nil, a.fail(NewAccessError(endpoint, &stagingError{err: err}))
	}
	path := file.Name()
	keep := false
	defer func() {
		_ = file.Close()
		if !keep {
			_ = os.Remove(path)
		}
	}()

	a.to(StateValidatingFirstElement)
	var version Version
	result, err := copyRoot(body, file, file.Truncate, func(root rootElement) {
		version = LookupDialect(root.Namespace)
		a.log.Debug("first element read", "namespace", root.Namespace, "element", root.Local, "version", version.String())
		if !version.Known() {
			a.log.Warn("unrecognized EDMX namespace, dialect version unknown", "namespace", root.Namespace, "element", root.Local)
		}
		a.to(StateCopying)
	})
	if err != nil {
		return nil, a.fail(classify(endpoint, err))
	}

	if err := file.Close(); err != nil {
		return nil, a.fail(NewAccessError(endpoint, &stagingError{err: err}))
	}
	keep = true

	doc := &Document{
		Path:        path,
		Version:     version,
		Namespace:   result.Root.Namespace,
		RootElement: result.Root.Local,
		Endpoint:    endpoint,
		AttemptID:   a.id,
		Size:        result.Bytes,
	}
	a.complete(doc)
	return doc, nil
}

// resolverFor picks the transport for the credential variant.
func (f *Fetcher) resolverFor(cred credential.Credential) Resolver {
	switch cred.Kind {
	case credential.KindCloudAuthenticated:
		return &CookieResolver{
			Client:   f.client,
			Cookies:  f.cookies,
			Username: cred.Username,
			Secret:   cred.Secret,
			Retry:    f.opts.Retry,
		}
	case credential.KindGenericNetwork:
		return &NetworkResolver{
			Client: f.client,
			Auth:   httpclient.BasicAuth(cred.Username, cred.Secret.Reveal),
			Retry:  f.opts.Retry,
		}
	default:
		return &NetworkResolver{Client: f.client, Retry: f.opts.Retry}
	}
}

// classify maps a copy failure onto the error kinds.
func classify(endpoint string, err error) error {
	if errors.Is(err, errNoElement) {
		return NewEmptyDocumentError(endpoint)
	}

	var syntaxErr *xml.SyntaxError
	if errors.As(err, &syntaxErr) {
		return NewMalformedXMLError(endpoint, syntaxErr.Line, errors.New(syntaxErr.Msg))
	}

	return NewAccessError(endpoint, err)
}

// attempt tracks the state of one retrieval.
type attempt struct {
	f          *Fetcher
	id         string
	state      State
	started    time.Time
	credential string
	log        *logutil.ComponentLogger
}

func (f *Fetcher) newAttempt() *attempt {
	id := uuid.NewString()
	return &attempt{
		f:          f,
		id:         id,
		state:      StateIdle,
		started:    time.Now(),
		credential: credential.KindNone.String(),
		log:        f.log.WithOperation("fetch").WithFields("attempt", id),
	}
}

func (a *attempt) to(next State) {
	a.transition(next, nil)
}

func (a *attempt) transition(next State, err error) {
	prev := a.state
	a.state = next

	if err != nil {
		a.log.Debug("state transition", "from", prev.String(), "to", next.String(), "error", err)
	} else {
		a.log.Debug("state transition", "from", prev.String(), "to", next.String())
	}

	a.f.opts.Metrics.observeState(next)
	if a.f.opts.OnState != nil {
		a.f.opts.OnState(Transition{AttemptID: a.id, From: prev, To: next, Err: err})
	}
}

func (a *attempt) fail(err error) error {
	a.transition(StateFailed, err)
	a.f.opts.Metrics.observeAttempt(KindOf(err).String(), VersionUnknown, a.credential, time.Since(a.started))
	return err
}

func (a *attempt) complete(doc *Document) {
	a.transition(StateComplete, nil)
	a.f.opts.Metrics.observeAttempt("success", doc.Version, a.credential, time.Since(a.started))
	a.f.opts.Metrics.observeStaged(doc.Size)
	a.log.Debug("metadata staged", "path", doc.Path, "version", doc.Version.String(), "bytes", doc.Size,
		"duration", time.Since(a.started))
}

// String implements fmt.Stringer for log output.
func (d *Document) String() string {
	return fmt.Sprintf("%s (EDMX %s, %d bytes)", d.Path, d.Version, d.Size)
}
