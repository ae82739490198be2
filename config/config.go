// Package config holds the persisted configuration of a connected OData
// service: where its metadata lives and how client code is generated for it.
//
// Configurations are stored as YAML (.yaml, .yml) or JSON (anything else).
// Credentials are never part of a configuration; see the credential package.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jongio/azd-odata/codegen"
	"github.com/jongio/azd-odata/fileutil"
	"github.com/jongio/azd-odata/metadata"
	"github.com/jongio/azd-odata/security"
	"gopkg.in/yaml.v3"
)

// Defaults for a new configuration.
const (
	DefaultServiceName             = "OData Service"
	DefaultGeneratedFileNamePrefix = "Reference"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid service configuration")

// ServiceConfiguration describes one connected service.
type ServiceConfiguration struct {
	ServiceName              string           `json:"serviceName" yaml:"serviceName"`
	Endpoint                 string           `json:"endpoint" yaml:"endpoint"`
	EdmxVersion              metadata.Version `json:"edmxVersion,omitempty" yaml:"edmxVersion,omitempty"`
	GeneratedFileNamePrefix  string           `json:"generatedFileNamePrefix" yaml:"generatedFileNamePrefix"`
	UseNamespacePrefix       bool             `json:"useNamespacePrefix,omitempty" yaml:"useNamespacePrefix,omitempty"`
	NamespacePrefix          string           `json:"namespacePrefix,omitempty" yaml:"namespacePrefix,omitempty"`
	UseDataServiceCollection bool             `json:"useDataServiceCollection,omitempty" yaml:"useDataServiceCollection,omitempty"`
	V4                       *V4Options       `json:"v4,omitempty" yaml:"v4,omitempty"`
}

// V4Options are only meaningful for 4.0 metadata.
type V4Options struct {
	EnableNamingAlias                     bool `json:"enableNamingAlias,omitempty" yaml:"enableNamingAlias,omitempty"`
	IgnoreUnexpectedElementsAndAttributes bool `json:"ignoreUnexpectedElementsAndAttributes,omitempty" yaml:"ignoreUnexpectedElementsAndAttributes,omitempty"`
	IncludeT4File                         bool `json:"includeT4File,omitempty" yaml:"includeT4File,omitempty"`
}

// Default returns a configuration with default names and no endpoint.
func Default() *ServiceConfiguration {
	return &ServiceConfiguration{
		ServiceName:             DefaultServiceName,
		GeneratedFileNamePrefix: DefaultGeneratedFileNamePrefix,
	}
}

// Validate checks the configuration.
func (c *ServiceConfiguration) Validate() error {
	if err := security.ValidateServiceName(c.ServiceName); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if strings.TrimSpace(c.Endpoint) == "" {
		return fmt.Errorf("%w: endpoint is required", ErrInvalidConfig)
	}
	if c.GeneratedFileNamePrefix == "" {
		return fmt.Errorf("%w: generated file name prefix is required", ErrInvalidConfig)
	}
	if strings.ContainsAny(c.GeneratedFileNamePrefix, `/\`) || strings.Contains(c.GeneratedFileNamePrefix, "..") {
		return fmt.Errorf("%w: generated file name prefix contains invalid path characters", ErrInvalidConfig)
	}
	if c.UseNamespacePrefix {
		if c.NamespacePrefix == "" {
			return fmt.Errorf("%w: namespace prefix is required when useNamespacePrefix is set", ErrInvalidConfig)
		}
		if err := security.ValidateNamespacePrefix(c.NamespacePrefix); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	if c.V4 != nil && c.EdmxVersion.Known() && c.EdmxVersion != metadata.V4 {
		return fmt.Errorf("%w: v4 options set for %s metadata", ErrInvalidConfig, c.EdmxVersion)
	}
	return nil
}

// ApplyDocument records what a fetch learned about the service.
func (c *ServiceConfiguration) ApplyDocument(doc *metadata.Document) {
	c.Endpoint = doc.Endpoint
	c.EdmxVersion = doc.Version
	if doc.Version != metadata.V4 {
		c.V4 = nil
	}
}

// Request builds the generator request for a staged document.
func (c *ServiceConfiguration) Request(doc *metadata.Document) codegen.Request {
	req := codegen.FromDocument(doc)
	if c.UseNamespacePrefix {
		req.NamespacePrefix = c.NamespacePrefix
	}
	req.UseCollectionWrapper = c.UseDataServiceCollection
	if c.V4 != nil {
		req.EnableNamingAlias = c.V4.EnableNamingAlias
		req.IgnoreUnexpectedElements = c.V4.IgnoreUnexpectedElementsAndAttributes
	}
	return req
}

// GeneratedFilePath returns where generated source with extension ext goes
// under root.
func (c *ServiceConfiguration) GeneratedFilePath(root, ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return filepath.Join(root, c.ServiceName, c.GeneratedFileNamePrefix+ext)
}

// Load reads and validates a configuration file.
func Load(path string) (*ServiceConfiguration, error) {
	if err := security.ValidatePath(path); err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	// #nosec G304 -- Path validated by security.ValidatePath
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := &ServiceConfiguration{}
	if isYAML(path) {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	} else {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save validates cfg and writes it atomically.
func Save(path string, cfg *ServiceConfiguration) error {
	if err := security.ValidatePath(path); err != nil {
		return fmt.Errorf("invalid config path: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := fileutil.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if !isYAML(path) {
		return fileutil.AtomicWriteJSON(path, cfg)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return fileutil.AtomicWriteFile(path, data, fileutil.FilePermission)
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
