package metadata

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/jongio/azd-odata/credential"
	"github.com/jongio/azd-odata/httpclient"
	"github.com/jongio/azd-odata/urlutil"
)

// Resolver opens the document at uri. The caller closes the returned stream.
type Resolver interface {
	Resolve(ctx context.Context, uri string) (io.ReadCloser, error)
}

// CookieSource issues a Cookie header value that authenticates requests to uri.
type CookieSource interface {
	CookieFor(ctx context.Context, uri, username string, password *credential.Secret) (string, error)
}

// NetworkResolver retrieves http(s) documents anonymously or with an
// Authenticator, and opens anything else from the local file system.
type NetworkResolver struct {
	Client *httpclient.Client
	// Auth is applied to http(s) requests; nil sends them anonymously.
	Auth  httpclient.Authenticator
	Retry int
}

// Resolve implements Resolver.
func (r *NetworkResolver) Resolve(ctx context.Context, uri string) (io.ReadCloser, error) {
	if !urlutil.IsHTTPEndpoint(uri) {
		return openLocal(uri)
	}

	opts := httpclient.RequestOptions{URL: uri, Retry: r.Retry, Auth: r.Auth}
	if r.Auth == nil {
		opts.SkipAuth = true
	}

	resp, err := r.Client.Stream(ctx, opts)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// CookieResolver retrieves documents from SharePoint Online. Every resolution
// obtains a fresh cookie for the exact uri and sends it as the only header.
type CookieResolver struct {
	Client   *httpclient.Client
	Cookies  CookieSource
	Username string
	Secret   *credential.Secret
	Retry    int
}

// Resolve implements Resolver.
func (r *CookieResolver) Resolve(ctx context.Context, uri string) (io.ReadCloser, error) {
	if !urlutil.IsHTTPEndpoint(uri) {
		return openLocal(uri)
	}

	cookie, err := r.Cookies.CookieFor(ctx, uri, r.Username, r.Secret)
	if err != nil {
		return nil, err
	}

	resp, err := r.Client.Stream(ctx, httpclient.RequestOptions{
		URL:          uri,
		Retry:        r.Retry,
		SkipAuth:     true,
		ClearHeaders: true,
		Headers:      map[string]string{"Cookie": cookie},
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// openLocal opens a plain path or a file:// URI.
func openLocal(uri string) (io.ReadCloser, error) {
	path := uri
	if strings.HasPrefix(strings.ToLower(uri), "file:") {
		u, err := url.Parse(uri)
		if err != nil {
			return nil, fmt.Errorf("invalid file URI: %w", err)
		}
		path = u.Path
		if u.Host != "" && u.Host != "localhost" {
			path = "//" + u.Host + u.Path
		}
	}

	// #nosec G304 -- the user names the metadata document to read
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return f, nil
}
