package urlutil

import (
	"errors"
	"fmt"
	neturl "net/url"
	"strings"
)

const (
	// MaxURLLength is the RFC 2616 practical limit for URL length
	MaxURLLength = 2048

	// MetadataSuffix is the path segment that addresses an OData service's metadata document.
	MetadataSuffix = "$metadata"
)

// ErrEmptyEndpoint is returned when no endpoint was supplied.
var ErrEmptyEndpoint = errors.New("endpoint cannot be empty")

// IsHTTPEndpoint reports whether the endpoint uses an http or https scheme.
// The comparison is ordinal and case-sensitive, so "HTTP://host" is treated
// as an opaque source and left untouched by ResolveMetadataEndpoint.
func IsHTTPEndpoint(endpoint string) bool {
	return strings.HasPrefix(endpoint, "http:") || strings.HasPrefix(endpoint, "https:")
}

// ResolveMetadataEndpoint turns a user-entered service address into the address of
// its metadata document.
//
// HTTP(S) endpoints that do not already end in "$metadata" have every trailing "/"
// stripped and "/$metadata" appended. Anything else (local file paths, file:// or
// other URIs) is returned unchanged. The function is idempotent.
//
// Example:
//
//	ResolveMetadataEndpoint("https://example.com/odata/")
//	// Returns: "https://example.com/odata/$metadata"
func ResolveMetadataEndpoint(raw string) (string, error) {
	if raw == "" {
		return "", ErrEmptyEndpoint
	}

	if !IsHTTPEndpoint(raw) || strings.HasSuffix(raw, MetadataSuffix) {
		return raw, nil
	}

	return strings.TrimRight(raw, "/") + "/" + MetadataSuffix, nil
}

// Hostname extracts the host name (without port) from an http or https endpoint.
func Hostname(endpoint string) (string, error) {
	parsed, err := Parse(endpoint)
	if err != nil {
		return "", err
	}
	return parsed.Hostname(), nil
}

// HostHasSuffix reports whether host ends with the given domain suffix, ignoring case.
// The suffix should include its leading dot (".sharepoint.com") so that look-alike
// hosts such as "evilsharepoint.com" do not match.
func HostHasSuffix(host, suffix string) bool {
	return strings.HasSuffix(strings.ToLower(host), strings.ToLower(suffix))
}

// Validate performs HTTP/HTTPS URL validation using net/url.Parse.
// It validates that the URL:
//   - Is not empty or only whitespace
//   - Uses http:// or https:// protocol
//   - Has a valid host/domain
//   - Does not exceed MaxURLLength (2048 characters)
//
// Returns an error with context if validation fails.
func Validate(rawURL string) error {
	rawURL = strings.TrimSpace(rawURL)

	if rawURL == "" {
		return fmt.Errorf("url cannot be empty")
	}

	if len(rawURL) > MaxURLLength {
		return fmt.Errorf("url exceeds maximum length of %d characters", MaxURLLength)
	}

	parsed, err := neturl.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		if parsed.Scheme == "" {
			return fmt.Errorf("url must use http:// or https://")
		}
		return fmt.Errorf("url must use http:// or https://, got: %s", parsed.Scheme)
	}

	if parsed.Host == "" {
		return fmt.Errorf("url missing host/domain")
	}

	return nil
}

// Parse validates and parses an http or https URL.
func Parse(rawURL string) (*neturl.URL, error) {
	if err := Validate(rawURL); err != nil {
		return nil, err
	}
	return neturl.Parse(strings.TrimSpace(rawURL))
}
