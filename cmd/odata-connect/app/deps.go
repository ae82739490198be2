package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jongio/azd-odata/credential"
	"github.com/jongio/azd-odata/httpclient"
	"github.com/jongio/azd-odata/keyvault"
	"github.com/jongio/azd-odata/logutil"
	"github.com/jongio/azd-odata/metadata"
	"github.com/jongio/azd-odata/security"
	"github.com/jongio/azd-odata/settings"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/term"
)

// Credential store kinds.
const (
	storeMemory   = "memory"
	storeFile     = "file"
	storeKeyring  = "keyring"
	storeKeyVault = "keyvault"
)

// Prompt modes.
const (
	promptAuto     = "auto"
	promptTerminal = "terminal"
	promptEnv      = "env"
	promptNone     = "none"
)

func (a *app) settingsDir() (string, error) {
	if dir := a.v.GetString(keySettingsDir); dir != "" {
		return dir, nil
	}
	return settings.DefaultDir()
}

func (a *app) settings() (*settings.Manager, error) {
	dir, err := a.settingsDir()
	if err != nil {
		return nil, err
	}
	return settings.NewManager(dir), nil
}

func (a *app) store() (credential.Store, error) {
	switch kind := a.v.GetString(keyStore); kind {
	case storeMemory:
		return credential.NewMemoryStore(), nil
	case storeFile, "":
		return a.fileStore()
	case storeKeyring:
		if security.IsContainerEnvironment() {
			logutil.Warn("no OS keyring in containers, using the file credential store")
			return a.fileStore()
		}
		return credential.NewKeyringStore(a.v.GetString(keyKeyringService)), nil
	case storeKeyVault:
		vaultURL := a.v.GetString(keyVaultURL)
		if vaultURL == "" {
			return nil, fmt.Errorf("--%s is required for --%s=%s", keyVaultURL, keyStore, storeKeyVault)
		}
		return keyvault.NewStore(vaultURL)
	default:
		return nil, fmt.Errorf("invalid credential store: %s (valid options: %s, %s, %s, %s)",
			kind, storeMemory, storeFile, storeKeyring, storeKeyVault)
	}
}

func (a *app) fileStore() (credential.Store, error) {
	path := a.v.GetString(keyStorePath)
	if path == "" {
		dir, err := a.settingsDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "credentials.json")
	}
	return credential.NewFileStore(path)
}

func (a *app) prompt(interactive bool) (credential.Prompter, error) {
	if a.prompter != nil {
		return a.prompter, nil
	}

	mode := a.v.GetString(keyPrompt)
	if !interactive {
		mode = promptNone
	}
	if mode == promptAuto {
		mode = promptEnv
		if f, ok := a.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			mode = promptTerminal
		}
	}

	switch mode {
	case promptTerminal:
		return &credential.TerminalPrompter{In: a.stdin, Out: a.stderr}, nil
	case promptEnv:
		p := &credential.EnvPrompter{}
		if resolver, err := keyvault.NewResolver(); err == nil {
			p.Resolver = resolver
		} else {
			logutil.Debug("key vault references disabled", "error", err)
		}
		return p, nil
	case promptNone:
		return credential.NoPrompt{}, nil
	default:
		return nil, fmt.Errorf("invalid prompt mode: %s (valid options: %s, %s, %s, %s)",
			mode, promptAuto, promptTerminal, promptEnv, promptNone)
	}
}

func (a *app) acquirer(interactive bool) (*credential.Acquirer, error) {
	store, err := a.store()
	if err != nil {
		return nil, err
	}
	prompter, err := a.prompt(interactive)
	if err != nil {
		return nil, err
	}
	return credential.NewAcquirer(store, prompter, logutil.NewLogger("credential")), nil
}

// fetcher builds a Fetcher whose metrics are registered on reg.
func (a *app) fetcher(reg prometheus.Registerer, clientOpts httpclient.Options) *metadata.Fetcher {
	clientOpts.Debug = a.v.GetBool(keyDebug)
	client := httpclient.NewClientWithOptions(nil, clientOpts)
	return metadata.NewFetcher(metadata.Options{
		Timeout:    a.v.GetDuration(keyTimeout),
		Retry:      a.v.GetInt(keyRetry),
		StagingDir: a.v.GetString(keyStagingDir),
		Client:     client,
		Logger:     logutil.NewLogger("metadata"),
		Metrics:    metadata.NewMetrics(reg),
	})
}

// writeMetrics writes reg to --metrics-file when one is set.
func (a *app) writeMetrics(reg *prometheus.Registry) {
	path := a.v.GetString(keyMetricsFile)
	if path == "" {
		return
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		logutil.Warn("failed to write metrics", "path", path, "error", err)
	}
}
