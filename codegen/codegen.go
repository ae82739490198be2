// Package codegen defines the contract with the external client code
// generator and provides a generator that shells out to an executable.
package codegen

import (
	"context"
	"errors"
	"fmt"

	"github.com/jongio/azd-odata/metadata"
)

// ErrUnsupportedVersion is returned for metadata whose dialect has no generator.
var ErrUnsupportedVersion = errors.New("unsupported metadata version")

// Request describes one generation run over a staged metadata document.
type Request struct {
	StagingPath          string
	Version              metadata.Version
	NamespacePrefix      string
	UseCollectionWrapper bool

	// V4 only.
	EnableNamingAlias        bool
	IgnoreUnexpectedElements bool
}

// Result is the generated client source plus any warnings the generator reported.
type Result struct {
	Source   []byte
	Warnings []string
}

// Generator turns a staged metadata document into client source.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Result, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, req Request) (*Result, error)

// Generate calls f(ctx, req).
func (f GeneratorFunc) Generate(ctx context.Context, req Request) (*Result, error) {
	return f(ctx, req)
}

// FromDocument builds a Request for a fetched document.
func FromDocument(doc *metadata.Document) Request {
	return Request{StagingPath: doc.Path, Version: doc.Version}
}

func (r Request) validate() error {
	if r.StagingPath == "" {
		return errors.New("staging path is required")
	}
	if !r.Version.Known() {
		return fmt.Errorf("%w: %s", ErrUnsupportedVersion, r.Version)
	}
	return nil
}
