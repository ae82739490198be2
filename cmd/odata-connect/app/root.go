// Package app wires the odata-connect commands.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jongio/azd-odata/cliout"
	"github.com/jongio/azd-odata/codegen"
	"github.com/jongio/azd-odata/credential"
	"github.com/jongio/azd-odata/logutil"
	"github.com/jongio/azd-odata/metadata"
	"github.com/jongio/azd-odata/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

// EnvPrefix is the prefix of environment variables that override flags,
// e.g. ODATA_STORE=keyring.
const EnvPrefix = "ODATA"

const binaryName = "odata-connect"

// Flag keys shared between cobra and viper.
const (
	keyDebug          = "debug"
	keyLogFormat      = "log-format"
	keyOutput         = "output"
	keyNoColor        = "no-color"
	keyConfig         = "config"
	keyStore          = "store"
	keyStorePath      = "store-path"
	keyKeyringService = "keyring-service"
	keyVaultURL       = "vault-url"
	keyPrompt         = "prompt"
	keySettingsDir    = "settings-dir"
	keyStagingDir     = "staging-dir"
	keyTimeout        = "timeout"
	keyRetry          = "retry"
	keyMetricsFile    = "metrics-file"
	keyGenerator      = "generator"
)

// app holds the state shared by all commands of one invocation.
type app struct {
	v      *viper.Viper
	stdin  io.Reader
	stderr io.Writer
	// prompter overrides the --prompt selection when set.
	prompter credential.Prompter
}

func newApp() *app {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return &app{v: v, stdin: os.Stdin, stderr: os.Stderr}
}

// NewRootCmd creates the odata-connect root command.
func NewRootCmd() *cobra.Command {
	return newApp().rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   binaryName,
		Short: "Fetch OData service metadata and generate client code",
		Long: `odata-connect downloads an OData service's $metadata document, validates it,
detects its EDMX version and hands it to a client code generator.

SharePoint Online hosts (*.sharepoint.com) are accessed with FedAuth cookies;
other hosts use HTTP Basic authentication when credentials are requested.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
	}

	flags := root.PersistentFlags()
	flags.Bool(keyDebug, false, "Enable debug logging")
	flags.String(keyLogFormat, "text", "Log format (text, json)")
	flags.StringP(keyOutput, "o", "default", "Output format (default, json)")
	flags.Bool(keyNoColor, false, "Disable colored output")
	flags.String(keyConfig, "", "Path to a config file providing flag defaults (YAML, JSON or TOML)")
	flags.String(keyStore, storeFile, "Credential store (memory, file, keyring, keyvault)")
	flags.String(keyStorePath, "", "Credential file for --store=file (default: <settings-dir>/credentials.json)")
	flags.String(keyKeyringService, credential.DefaultKeyringService, "OS keyring service name for --store=keyring")
	flags.String(keyVaultURL, "", "Key Vault URL for --store=keyvault")
	flags.String(keyPrompt, promptAuto, "How to ask for credentials (auto, terminal, env, none)")
	flags.String(keySettingsDir, "", "Directory for user settings (default: user config dir)")
	flags.String(keyStagingDir, "", "Directory for staged metadata files (default: system temp dir)")
	flags.Duration(keyTimeout, metadata.DefaultTimeout, "Timeout for connecting and copying metadata; 0 uses the default, negative disables")
	flags.Int(keyRetry, 0, "Retries on 5xx responses and transient network errors")
	flags.String(keyMetricsFile, "", "Write Prometheus metrics in text format to this file on exit")
	flags.String(keyGenerator, codegen.DefaultExecutable, "Client code generator executable")

	if err := a.bindFlags(flags); err != nil {
		logutil.Error("failed to bind flags", "error", err)
	}

	root.AddCommand(
		a.fetchCmd(),
		a.generateCmd(),
		a.credentialsCmd(),
		a.endpointsCmd(),
		a.mcpCmd(),
		version.NewCommand(version.New(binaryName), a.probeGenerator),
	)
	return root
}

func (a *app) bindFlags(flags *pflag.FlagSet) error {
	var bindErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if err := a.v.BindPFlag(f.Name, f); err != nil && bindErr == nil {
			bindErr = fmt.Errorf("binding --%s: %w", f.Name, err)
		}
	})
	return bindErr
}

// setup reads the optional config file and configures logging and output.
func (a *app) setup() error {
	if path := a.v.GetString(keyConfig); path != "" {
		a.v.SetConfigFile(path)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	debug := a.v.GetBool(keyDebug)
	switch format := a.v.GetString(keyLogFormat); format {
	case "text", "":
		logutil.SetupLogger(debug, false)
	case "json":
		logutil.SetupLogger(debug, true)
	default:
		return fmt.Errorf("invalid log format: %s (valid options: text, json)", format)
	}

	if err := cliout.SetFormat(a.v.GetString(keyOutput)); err != nil {
		return err
	}
	if a.v.GetBool(keyNoColor) || !term.IsTerminal(int(os.Stdout.Fd())) {
		cliout.NoColor()
	}
	return nil
}

func (a *app) probeGenerator(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return codegen.NewCommandGenerator(a.v.GetString(keyGenerator)).Version(ctx)
}

// ReportError prints err the way the failed command's output format expects.
func ReportError(err error) {
	msg := metadata.UserMessage(err)
	if cliout.IsJSON() {
		_ = cliout.PrintJSON(map[string]string{
			"error": msg,
			"kind":  metadata.KindOf(err).String(),
		})
		return
	}
	cliout.Error("%s", msg)
	if metadata.IsAccessError(err) {
		logutil.Debug("access failure", "cause", err)
	}
}
