// Package sharepoint signs in to SharePoint Online with a username and password
// and returns the authentication cookies for a site.
//
// Sign-in follows the claims flow used by SharePoint Online clients: a SAML
// security token is requested from the Microsoft Online security token service,
// then posted to the site's sign-in form, which answers with the FedAuth and
// rtFa cookies.
package sharepoint

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/jongio/azd-odata/credential"
	"github.com/jongio/azd-odata/httpclient"
	"github.com/jongio/azd-odata/logutil"
)

// DefaultSTSURL is the Microsoft Online security token service endpoint.
const DefaultSTSURL = "https://login.microsoftonline.com/extSTS.srf"

const signInPath = "/_forms/default.aspx?wa=wsignin1.0"

// Authentication cookie names.
const (
	FedAuthCookie = "FedAuth"
	RtFaCookie    = "rtFa"
)

// ErrSignInFailed is wrapped by every sign-in failure.
var ErrSignInFailed = errors.New("SharePoint Online sign-in failed")

// CookieIssuer obtains SharePoint Online authentication cookies.
type CookieIssuer struct {
	client *httpclient.Client
	stsURL string
	log    *logutil.ComponentLogger
}

// Option configures a CookieIssuer.
type Option func(*CookieIssuer)

// WithSTSURL overrides the security token service endpoint.
func WithSTSURL(u string) Option {
	return func(i *CookieIssuer) { i.stsURL = u }
}

// WithLogger sets the logger.
func WithLogger(l *logutil.ComponentLogger) Option {
	return func(i *CookieIssuer) { i.log = l }
}

// NewCookieIssuer creates an issuer that sends its requests through client.
func NewCookieIssuer(client *httpclient.Client, opts ...Option) *CookieIssuer {
	i := &CookieIssuer{
		client: client,
		stsURL: DefaultSTSURL,
		log:    logutil.NewLogger("sharepoint"),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// CookieFor signs in for the site hosting uri and returns a Cookie header value
// carrying the FedAuth and rtFa cookies.
func (i *CookieIssuer) CookieFor(ctx context.Context, uri, username string, password *credential.Secret) (string, error) {
	site, err := siteRoot(uri)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSignInFailed, err)
	}
	log := i.log.WithFields("site", site)

	token, err := i.requestToken(ctx, site, username, password)
	if err != nil {
		return "", err
	}
	log.Debug("security token issued")

	cookie, err := i.exchangeToken(ctx, site, token)
	if err != nil {
		return "", err
	}
	log.Debug("authentication cookies issued")
	return cookie, nil
}

func (i *CookieIssuer) requestToken(ctx context.Context, site, username string, password *credential.Secret) (string, error) {
	envelope, err := tokenRequest(i.stsURL, site, username, password.Reveal())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSignInFailed, err)
	}

	resp, err := i.client.Execute(ctx, httpclient.RequestOptions{
		Method:   http.MethodPost,
		URL:      i.stsURL,
		Body:     envelope,
		SkipAuth: true,
		Headers:  map[string]string{"Content-Type": "application/soap+xml; charset=utf-8"},
	})
	if err != nil {
		return "", fmt.Errorf("%w: security token request: %w", ErrSignInFailed, err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: security token service returned HTTP %d", ErrSignInFailed, resp.StatusCode)
	}

	return parseTokenResponse(resp.Body)
}

func (i *CookieIssuer) exchangeToken(ctx context.Context, site, token string) (string, error) {
	resp, err := i.client.Execute(ctx, httpclient.RequestOptions{
		Method:     http.MethodPost,
		URL:        site + signInPath,
		Body:       []byte(token),
		SkipAuth:   true,
		NoRedirect: true,
		Headers:    map[string]string{"Content-Type": "application/x-www-form-urlencoded"},
	})
	if err != nil {
		return "", fmt.Errorf("%w: sign-in request: %w", ErrSignInFailed, err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("%w: sign-in page returned HTTP %d", ErrSignInFailed, resp.StatusCode)
	}

	var fedAuth, rtFa string
	for _, c := range resp.Cookies {
		switch c.Name {
		case FedAuthCookie:
			fedAuth = c.Value
		case RtFaCookie:
			rtFa = c.Value
		}
	}
	if fedAuth == "" || rtFa == "" {
		return "", fmt.Errorf("%w: authentication cookies missing from sign-in response", ErrSignInFailed)
	}

	return FedAuthCookie + "=" + fedAuth + "; " + RtFaCookie + "=" + rtFa, nil
}

// siteRoot returns scheme://host of uri.
func siteRoot(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("invalid site URI: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("invalid site URI %q", uri)
	}
	return u.Scheme + "://" + u.Host, nil
}

const tokenRequestTemplate = `<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope" xmlns:a="http://www.w3.org/2005/08/addressing" xmlns:u="http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-utility-1.0.xsd">
  <s:Header>
    <a:Action s:mustUnderstand="1">http://schemas.xmlsoap.org/ws/2005/02/trust/RST/Issue</a:Action>
    <a:ReplyTo><a:Address>http://www.w3.org/2005/08/addressing/anonymous</a:Address></a:ReplyTo>
    <a:To s:mustUnderstand="1">%s</a:To>
    <o:Security s:mustUnderstand="1" xmlns:o="http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-secext-1.0.xsd">
      <o:UsernameToken>
        <o:Username>%s</o:Username>
        <o:Password>%s</o:Password>
      </o:UsernameToken>
    </o:Security>
  </s:Header>
  <s:Body>
    <t:RequestSecurityToken xmlns:t="http://schemas.xmlsoap.org/ws/2005/02/trust">
      <wsp:AppliesTo xmlns:wsp="http://schemas.xmlsoap.org/ws/2004/09/policy">
        <a:EndpointReference><a:Address>%s</a:Address></a:EndpointReference>
      </wsp:AppliesTo>
      <t:KeyType>http://schemas.xmlsoap.org/ws/2005/05/identity/NoProofKey</t:KeyType>
      <t:RequestType>http://schemas.xmlsoap.org/ws/2005/02/trust/Issue</t:RequestType>
      <t:TokenType>urn:oasis:names:tc:SAML:1.0:assertion</t:TokenType>
    </t:RequestSecurityToken>
  </s:Body>
</s:Envelope>`

func tokenRequest(stsURL, site, username, password string) ([]byte, error) {
	fields := make([]string, 0, 4)
	for _, v := range []string{stsURL, username, password, site} {
		var b bytes.Buffer
		if err := xml.EscapeText(&b, []byte(v)); err != nil {
			return nil, err
		}
		fields = append(fields, b.String())
	}
	return []byte(fmt.Sprintf(tokenRequestTemplate, fields[0], fields[1], fields[2], fields[3])), nil
}

// parseTokenResponse extracts the BinarySecurityToken or the fault text.
func parseTokenResponse(body []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	var fault []string

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: unreadable security token response: %v", ErrSignInFailed, err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch start.Name.Local {
		case "BinarySecurityToken":
			var token string
			if err := dec.DecodeElement(&token, &start); err != nil {
				return "", fmt.Errorf("%w: unreadable security token: %v", ErrSignInFailed, err)
			}
			if token = strings.TrimSpace(token); token != "" {
				return token, nil
			}
		case "Text", "text":
			var text string
			if err := dec.DecodeElement(&text, &start); err == nil && strings.TrimSpace(text) != "" {
				fault = append(fault, strings.TrimSpace(text))
			}
		}
	}

	if len(fault) > 0 {
		return "", fmt.Errorf("%w: %s", ErrSignInFailed, strings.Join(fault, "; "))
	}
	return "", fmt.Errorf("%w: no security token in response", ErrSignInFailed)
}
