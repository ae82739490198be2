package httpclient

import (
	"context"
	"net/http"
)

// BasicAuth returns an Authenticator that sets HTTP Basic credentials.
// The password is read through the callback at request time so callers can keep it
// in a zeroable buffer until then.
func BasicAuth(username string, password func() string) Authenticator {
	return AuthenticatorFunc(func(ctx context.Context, req *http.Request) error {
		req.SetBasicAuth(username, password())
		return nil
	})
}

// CookieHeader returns an Authenticator that sets the Cookie header to value.
func CookieHeader(value string) Authenticator {
	return AuthenticatorFunc(func(ctx context.Context, req *http.Request) error {
		req.Header.Set("Cookie", value)
		return nil
	})
}
