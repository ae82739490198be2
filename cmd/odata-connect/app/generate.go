package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jongio/azd-odata/browser"
	"github.com/jongio/azd-odata/cliout"
	"github.com/jongio/azd-odata/codegen"
	"github.com/jongio/azd-odata/config"
	"github.com/jongio/azd-odata/fileutil"
	"github.com/jongio/azd-odata/httpclient"
	"github.com/jongio/azd-odata/logutil"
	"github.com/jongio/azd-odata/metadata"
	"github.com/jongio/azd-odata/notify"
	"github.com/jongio/azd-odata/security"
	"github.com/spf13/cobra"
)

type generateFlags struct {
	creds             credentialFlags
	serviceConfig     string
	saveConfig        string
	serviceName       string
	fileNamePrefix    string
	namespacePrefix   string
	collectionWrapper bool
	namingAlias       bool
	ignoreUnexpected  bool
	includeMetadata   bool
	outputDir         string
	ext               string
	openDocs          bool
	notify            bool
}

type generateOutput struct {
	Service       string   `json:"service"`
	Endpoint      string   `json:"endpoint"`
	Version       string   `json:"version"`
	Output        string   `json:"output"`
	MetadataCopy  string   `json:"metadataCopy,omitempty"`
	ClientPackage string   `json:"clientPackage"`
	DocsURI       string   `json:"docsUri"`
	Warnings      []string `json:"warnings"`
}

func (a *app) generateCmd() *cobra.Command {
	var f generateFlags
	cmd := &cobra.Command{
		Use:   "generate [endpoint]",
		Short: "Fetch metadata and generate a client for the service",
		Long: `Fetch the service's metadata and run the client code generator on it.

Settings come from --service-config when given and are overridden by flags.
The generated file is written to <output-dir>/<service-name>/<prefix><ext>.`,
		Example: `  odata-connect generate https://services.odata.org/TripPinRESTierService --service-name TripPin
  odata-connect generate --service-config ./odata/TripPin.yaml --notify`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runGenerate(cmd, args, &f)
		},
	}

	f.creds.register(cmd)
	flags := cmd.Flags()
	flags.StringVar(&f.serviceConfig, "service-config", "", "Load the service configuration from this file (YAML or JSON)")
	flags.StringVar(&f.saveConfig, "save-config", "", "Save the resulting service configuration to this file")
	flags.StringVar(&f.serviceName, "service-name", "", "Service name, used as the output folder")
	flags.StringVar(&f.fileNamePrefix, "file-prefix", "", "Generated file name prefix")
	flags.StringVar(&f.namespacePrefix, "namespace-prefix", "", "Namespace prefix for generated types")
	flags.BoolVar(&f.collectionWrapper, "collection-wrapper", false, "Wrap collections in observable collection types")
	flags.BoolVar(&f.namingAlias, "naming-alias", false, "Apply naming aliases (4.0 only)")
	flags.BoolVar(&f.ignoreUnexpected, "ignore-unexpected", false, "Ignore unexpected elements and attributes (4.0 only)")
	flags.BoolVar(&f.includeMetadata, "include-metadata", false, "Write the metadata document next to the generated file (4.0 only)")
	flags.StringVar(&f.outputDir, "output-dir", ".", "Root directory for generated files")
	flags.StringVar(&f.ext, "ext", ".cs", "Extension of the generated file")
	flags.BoolVar(&f.openDocs, "open-docs", false, "Open the client library documentation when done")
	flags.BoolVar(&f.notify, "notify", false, "Show a desktop notification when done")
	return cmd
}

func (a *app) runGenerate(cmd *cobra.Command, args []string, f *generateFlags) error {
	ctx := cmd.Context()

	cfg, err := a.serviceConfiguration(cmd, args, f)
	if err != nil {
		return err
	}
	if cfg.Endpoint == "" {
		return metadata.NewInvalidArgumentError("endpoint", "an endpoint argument or --service-config is required")
	}

	doc, err := a.retrieve(ctx, cfg.Endpoint, f.creds, httpclient.Options{})
	if err != nil {
		return err
	}
	defer func() {
		if err := doc.Remove(); err != nil {
			logutil.Warn("failed to remove staged document", "error", err)
		}
	}()

	cfg.ApplyDocument(doc)
	if err := cfg.Validate(); err != nil {
		return err
	}

	result, err := a.generate(ctx, cfg, doc, f)
	if f.notify {
		warnings := 0
		if result != nil {
			warnings = len(result.Warnings)
		}
		sendNotification(ctx, notify.GenerationFinished(cfg.ServiceName, warnings, err))
	}
	if err != nil {
		return err
	}

	if f.saveConfig != "" {
		if err := config.Save(f.saveConfig, cfg); err != nil {
			return fmt.Errorf("failed to save service configuration: %w", err)
		}
	}

	if f.openDocs {
		if err := browser.Launch(browser.LaunchOptions{URL: result.DocsURI, Target: browser.TargetDefault}); err != nil {
			logutil.Warn("cannot open documentation", "error", err)
		}
	}

	return cliout.Print(result, func() {
		cliout.Success("Generated %s client", cfg.ServiceName)
		cliout.Label("Output", result.Output)
		cliout.Label("Version", result.Version)
		cliout.Label("Client", result.ClientPackage)
		for _, w := range result.Warnings {
			cliout.Warning("%s", w)
		}
		cliout.Hint("Docs: " + cliout.URL(result.DocsURI))
	})
}

// serviceConfiguration loads --service-config (or defaults) and applies flag overrides.
func (a *app) serviceConfiguration(cmd *cobra.Command, args []string, f *generateFlags) (*config.ServiceConfiguration, error) {
	cfg := config.Default()
	if f.serviceConfig != "" {
		loaded, err := config.Load(f.serviceConfig)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if len(args) == 1 {
		cfg.Endpoint = args[0]
	}
	flags := cmd.Flags()
	if flags.Changed("service-name") {
		cfg.ServiceName = f.serviceName
	}
	if flags.Changed("file-prefix") {
		cfg.GeneratedFileNamePrefix = f.fileNamePrefix
	}
	if flags.Changed("namespace-prefix") {
		cfg.NamespacePrefix = f.namespacePrefix
		cfg.UseNamespacePrefix = f.namespacePrefix != ""
	}
	if flags.Changed("collection-wrapper") {
		cfg.UseDataServiceCollection = f.collectionWrapper
	}
	if flags.Changed("naming-alias") || flags.Changed("ignore-unexpected") || flags.Changed("include-metadata") {
		if cfg.V4 == nil {
			cfg.V4 = &config.V4Options{}
		}
		if flags.Changed("naming-alias") {
			cfg.V4.EnableNamingAlias = f.namingAlias
		}
		if flags.Changed("ignore-unexpected") {
			cfg.V4.IgnoreUnexpectedElementsAndAttributes = f.ignoreUnexpected
		}
		if flags.Changed("include-metadata") {
			cfg.V4.IncludeT4File = f.includeMetadata
		}
	}
	return cfg, nil
}

func (a *app) generate(ctx context.Context, cfg *config.ServiceConfiguration, doc *metadata.Document, f *generateFlags) (*generateOutput, error) {
	desc, err := codegen.DescriptorFor(doc.Version)
	if err != nil {
		return nil, fmt.Errorf("cannot generate a client for %s: %w", doc.Endpoint, err)
	}

	opts := []codegen.Option{codegen.WithLogger(logutil.NewLogger("codegen"))}
	if a.v.GetBool(keyDebug) {
		opts = append(opts, codegen.WithEcho(a.stderr))
	}
	gen := codegen.NewCommandGenerator(a.v.GetString(keyGenerator), opts...)

	res, err := gen.Generate(ctx, cfg.Request(doc))
	if err != nil {
		return nil, err
	}
	if len(res.Source) == 0 {
		return nil, errors.New("code generator produced no output")
	}

	out := &generateOutput{
		Service:       cfg.ServiceName,
		Endpoint:      cfg.Endpoint,
		Version:       doc.Version.String(),
		Output:        cfg.GeneratedFilePath(f.outputDir, f.ext),
		ClientPackage: desc.ClientPackage,
		DocsURI:       desc.DocsURI,
		Warnings:      res.Warnings,
	}
	if out.Warnings == nil {
		out.Warnings = []string{}
	}

	if _, err := security.ValidatePathWithinBases(out.Output, f.outputDir); err != nil {
		return nil, fmt.Errorf("invalid output path: %w", err)
	}
	if err := fileutil.EnsureDir(filepath.Dir(out.Output)); err != nil {
		return nil, err
	}
	if err := fileutil.AtomicWriteFile(out.Output, res.Source, fileutil.FilePermission); err != nil {
		return nil, fmt.Errorf("failed to write generated client: %w", err)
	}

	if cfg.V4 != nil && cfg.V4.IncludeT4File {
		out.MetadataCopy = cfg.GeneratedFilePath(f.outputDir, ".edmx")
		// #nosec G304 -- staged file created by the fetcher
		data, err := os.ReadFile(doc.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read staged document: %w", err)
		}
		if err := fileutil.AtomicWriteFile(out.MetadataCopy, data, fileutil.FilePermission); err != nil {
			return nil, fmt.Errorf("failed to copy metadata: %w", err)
		}
	}
	return out, nil
}

func sendNotification(ctx context.Context, n notify.Notification) {
	if err := notify.New(notify.DefaultConfig()).Send(ctx, n); err != nil {
		logutil.Debug("notification not shown", "error", err)
	}
}
