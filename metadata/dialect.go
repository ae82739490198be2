package metadata

import (
	"fmt"
	"strings"
)

// Version is the EDMX dialect of a metadata document.
type Version int

const (
	VersionUnknown Version = iota
	V1
	V2
	V3
	V4
)

func (v Version) String() string {
	switch v {
	case V1:
		return "1.0"
	case V2:
		return "2.0"
	case V3:
		return "3.0"
	case V4:
		return "4.0"
	default:
		return "unknown"
	}
}

// Known reports whether the version was recognized.
func (v Version) Known() bool {
	return v >= V1 && v <= V4
}

// MarshalText implements encoding.TextMarshaler.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := ParseVersion(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// SupportedDialects maps EDMX root namespace URIs to their version.
var SupportedDialects = map[string]Version{
	"http://schemas.microsoft.com/ado/2007/06/edmx": V1,
	"http://schemas.microsoft.com/ado/2008/10/edmx": V2,
	"http://schemas.microsoft.com/ado/2009/11/edmx": V3,
	"http://docs.oasis-open.org/odata/ns/edmx":      V4,
}

// LookupDialect returns the version for a root namespace URI, or VersionUnknown.
// The comparison is exact.
func LookupDialect(namespace string) Version {
	return SupportedDialects[namespace]
}

// ParseVersion accepts "4", "4.0", "v4" and "unknown" (or empty).
func ParseVersion(s string) (Version, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "v") {
	case "", "unknown":
		return VersionUnknown, nil
	case "1", "1.0":
		return V1, nil
	case "2", "2.0":
		return V2, nil
	case "3", "3.0":
		return V3, nil
	case "4", "4.0", "4.01":
		return V4, nil
	default:
		return VersionUnknown, fmt.Errorf("unsupported EDMX version %q", s)
	}
}
