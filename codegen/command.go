package codegen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jongio/azd-odata/cmdutil"
	"github.com/jongio/azd-odata/logutil"
)

// DefaultExecutable is the generator looked up on PATH when none is configured.
const DefaultExecutable = "odata-codegen"

const warningPrefix = "warning:"

// CommandGenerator runs an external generator executable. The executable
// reads the staged document named by --metadata, writes source to stdout
// and reports warnings on stderr as lines starting with "warning:".
type CommandGenerator struct {
	executable string
	extraArgs  []string
	dir        string
	timeout    time.Duration
	echo       io.Writer
	log        *logutil.ComponentLogger
}

// Option configures a CommandGenerator.
type Option func(*CommandGenerator)

// WithArgs adds arguments placed before the generated ones.
func WithArgs(args ...string) Option {
	return func(g *CommandGenerator) { g.extraArgs = append(g.extraArgs, args...) }
}

// WithDir sets the working directory.
func WithDir(dir string) Option {
	return func(g *CommandGenerator) { g.dir = dir }
}

// WithTimeout caps each run. See cmdutil.Command.Timeout.
func WithTimeout(d time.Duration) Option {
	return func(g *CommandGenerator) { g.timeout = d }
}

// WithEcho copies the generator's stderr to w as it runs.
func WithEcho(w io.Writer) Option {
	return func(g *CommandGenerator) { g.echo = w }
}

// WithLogger sets the logger warnings are reported to.
func WithLogger(log *logutil.ComponentLogger) Option {
	return func(g *CommandGenerator) { g.log = log }
}

// NewCommandGenerator returns a generator backed by executable, or
// DefaultExecutable when it is empty.
func NewCommandGenerator(executable string, opts ...Option) *CommandGenerator {
	if executable == "" {
		executable = DefaultExecutable
	}
	g := &CommandGenerator{executable: executable}
	for _, opt := range opts {
		opt(g)
	}
	if g.log == nil {
		g.log = logutil.NewLogger("codegen")
	}
	return g
}

// Executable returns the configured executable name or path.
func (g *CommandGenerator) Executable() string {
	return g.executable
}

// Args returns the command line for req, excluding the executable.
func (g *CommandGenerator) Args(req Request) ([]string, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	desc, err := DescriptorFor(req.Version)
	if err != nil {
		return nil, err
	}

	args := append([]string(nil), g.extraArgs...)
	args = append(args,
		"--metadata", req.StagingPath,
		"--edmx-version", req.Version.String(),
		"--template", desc.Template,
	)
	if req.NamespacePrefix != "" {
		args = append(args, "--namespace-prefix", req.NamespacePrefix)
	}
	if req.UseCollectionWrapper {
		args = append(args, "--use-collection-wrapper")
	}
	if desc.V4Options {
		if req.EnableNamingAlias {
			args = append(args, "--enable-naming-alias")
		}
		if req.IgnoreUnexpectedElements {
			args = append(args, "--ignore-unexpected-elements")
		}
	}
	return args, nil
}

// Generate runs the executable for req.
func (g *CommandGenerator) Generate(ctx context.Context, req Request) (*Result, error) {
	args, err := g.Args(req)
	if err != nil {
		return nil, err
	}
	log := g.log.WithOperation("generate").WithFields("version", req.Version.String())

	result := &Result{}
	out, err := cmdutil.Run(ctx, cmdutil.Command{
		Name:    g.executable,
		Args:    args,
		Dir:     g.dir,
		Timeout: g.timeout,
		Echo:    g.echo,
		OnStderrLine: func(line string) {
			if w, ok := parseWarning(line); ok {
				result.Warnings = append(result.Warnings, w)
				log.Warn("generator warning", "message", w)
			}
		},
	})
	if err != nil {
		var exitErr *cmdutil.ExitError
		if errors.As(err, &exitErr) {
			log.Error("generator failed", "exit_code", exitErr.ExitCode)
		}
		return nil, fmt.Errorf("code generation failed: %w", err)
	}

	result.Source = out.Stdout
	log.Debug("generated client", "bytes", len(result.Source), "warnings", len(result.Warnings))
	return result, nil
}

// Version asks the executable for its version string.
func (g *CommandGenerator) Version(ctx context.Context) (string, error) {
	return cmdutil.RunCommandWithOutput(ctx, g.executable, []string{"--version"}, g.dir)
}

func parseWarning(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if len(trimmed) < len(warningPrefix) || !strings.EqualFold(trimmed[:len(warningPrefix)], warningPrefix) {
		return "", false
	}
	return strings.TrimSpace(trimmed[len(warningPrefix):]), true
}
