// Package urlutil provides endpoint normalization and URL validation helpers.
//
// ResolveMetadataEndpoint is the single place where a user-entered OData service
// address becomes the address of its metadata document:
//
//	endpoint, err := urlutil.ResolveMetadataEndpoint("https://example.com/odata")
//	// endpoint == "https://example.com/odata/$metadata"
//
// Only inputs beginning with "http:" or "https:" are rewritten; local paths and other
// URI schemes pass through so they can still be used as metadata sources.
//
// Validate, Parse and Hostname apply stricter RFC 3986 checks (http/https only, host
// present, at most MaxURLLength characters) and are used where a network address is
// required, such as deriving the credential target host.
package urlutil
