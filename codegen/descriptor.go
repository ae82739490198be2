package codegen

import (
	"fmt"

	"github.com/jongio/azd-odata/metadata"
)

// Descriptor names the client library generated code depends on for a
// family of metadata versions.
type Descriptor struct {
	// Template is the generator template selected for the version.
	Template      string
	ClientPackage string
	DocsURI       string
	// V4Options reports whether the naming alias and unexpected element
	// options apply.
	V4Options bool
}

var (
	legacyDescriptor = Descriptor{
		Template:      "v3",
		ClientPackage: "Microsoft.Data.Services.Client",
		DocsURI:       "https://www.odata.org/documentation/odata-version-3-0/",
	}
	v4Descriptor = Descriptor{
		Template:      "v4",
		ClientPackage: "Microsoft.OData.Client",
		DocsURI:       "https://learn.microsoft.com/odata/client/getting-started",
		V4Options:     true,
	}
)

// DescriptorFor returns the descriptor for v. Versions 1.0 through 3.0 share
// the legacy client.
func DescriptorFor(v metadata.Version) (Descriptor, error) {
	switch v {
	case metadata.V1, metadata.V2, metadata.V3:
		return legacyDescriptor, nil
	case metadata.V4:
		return v4Descriptor, nil
	default:
		return Descriptor{}, fmt.Errorf("%w: %s", ErrUnsupportedVersion, v)
	}
}
