// Package metadata retrieves OData service metadata (EDMX) documents and stages
// them on disk for a code generator.
//
// A retrieval normalizes the endpoint, resolves credentials, opens the document
// through a Resolver chosen by credential kind, checks that it contains at least
// one element, detects the EDMX version from the root namespace and copies the
// root element byte for byte into a staging file behind a UTF-8 XML declaration.
//
// Failures are reported as one of four error kinds:
//
//	InvalidArgumentError  empty endpoint
//	AccessError           network, HTTP status, timeout or staging file failure
//	EmptyDocumentError    the stream ended before any element
//	MalformedXMLError     the document is not well-formed
//
// Usage:
//
//	f := metadata.NewFetcher(metadata.Options{})
//	doc, err := f.Retrieve(ctx, "https://services.odata.org/V4/TripPinService", acquirer,
//	    credential.AcquireOptions{Needed: true})
//	if err != nil {
//	    fmt.Println(metadata.UserMessage(err))
//	    return
//	}
//	defer doc.Remove()
package metadata
