package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jongio/azd-odata/cliout"
	"github.com/jongio/azd-odata/credential"
	"github.com/jongio/azd-odata/fileutil"
	"github.com/jongio/azd-odata/httpclient"
	"github.com/jongio/azd-odata/logutil"
	"github.com/jongio/azd-odata/metadata"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// credentialFlags are the per-command credential switches.
type credentialFlags struct {
	needed bool
	reset  bool
	save   bool
}

func (f *credentialFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&f.needed, "credentials", "c", false, "The service requires credentials")
	cmd.Flags().BoolVar(&f.reset, "reset-credentials", false, "Forget saved credentials for the host before fetching")
	cmd.Flags().BoolVar(&f.save, "save-credentials", false, "Save the credentials used for the host")
}

func (f *credentialFlags) options() credential.AcquireOptions {
	return credential.AcquireOptions{Needed: f.needed, Reset: f.reset, Save: f.save}
}

type fetchOutput struct {
	Endpoint    string `json:"endpoint"`
	Path        string `json:"path"`
	Version     string `json:"version"`
	Namespace   string `json:"namespace"`
	RootElement string `json:"rootElement"`
	Size        int64  `json:"size"`
	AttemptID   string `json:"attemptId"`
}

func (a *app) fetchCmd() *cobra.Command {
	var (
		creds credentialFlags
		out   string
	)
	cmd := &cobra.Command{
		Use:   "fetch <endpoint>",
		Short: "Download and validate a service's metadata document",
		Long: `Download the $metadata document of an OData service, validate it and stage it
locally. The endpoint may be a service root (/$metadata is appended), a
$metadata URL, a local file path or a file:// URI.`,
		Example: `  odata-connect fetch https://services.odata.org/TripPinRESTierService
  odata-connect fetch https://contoso.sharepoint.com/_vti_bin/listdata.svc -c --save-credentials
  odata-connect fetch ./metadata.xml --out ./staged.xml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.retrieve(cmd.Context(), args[0], creds, httpclient.Options{})
			if err != nil {
				return err
			}

			if out != "" {
				if err := moveDocument(doc, out); err != nil {
					_ = doc.Remove()
					return err
				}
			}

			result := fetchOutput{
				Endpoint:    doc.Endpoint,
				Path:        doc.Path,
				Version:     doc.Version.String(),
				Namespace:   doc.Namespace,
				RootElement: doc.RootElement,
				Size:        doc.Size,
				AttemptID:   doc.AttemptID,
			}
			return cliout.Print(result, func() {
				cliout.Success("Metadata staged")
				cliout.Label("Endpoint", result.Endpoint)
				cliout.Label("File", result.Path)
				cliout.Label("Version", result.Version)
				cliout.Label("Size", fmt.Sprintf("%d bytes", result.Size))
				if !doc.Version.Known() {
					cliout.Warning("Unrecognized EDMX namespace %q", result.Namespace)
				}
			})
		},
	}
	creds.register(cmd)
	cmd.Flags().StringVar(&out, "out", "", "Move the staged document to this path")
	return cmd
}

// retrieve records the endpoint in the MRU list and fetches it. Metrics are
// written when the attempt ends.
func (a *app) retrieve(ctx context.Context, raw string, creds credentialFlags, clientOpts httpclient.Options) (*metadata.Document, error) {
	if mgr, err := a.settings(); err != nil {
		logutil.Warn("settings unavailable", "error", err)
	} else if err := mgr.AddEndpoint(raw); err != nil {
		logutil.Warn("failed to record endpoint", "error", err)
	}

	reg := prometheus.NewRegistry()
	defer a.writeMetrics(reg)
	fetcher := a.fetcher(reg, clientOpts)

	var acquirer *credential.Acquirer
	if creds.needed {
		var err error
		if acquirer, err = a.acquirer(true); err != nil {
			return nil, err
		}
	}
	return fetcher.Retrieve(ctx, raw, acquirer, creds.options())
}

// moveDocument relocates a staged document and updates its path.
func moveDocument(doc *metadata.Document, dest string) error {
	if err := fileutil.EnsureDir(filepath.Dir(dest)); err != nil {
		return err
	}
	if err := os.Rename(doc.Path, dest); err == nil {
		doc.Path = dest
		return nil
	}

	// #nosec G304 -- staged file created by the fetcher
	data, err := os.ReadFile(doc.Path)
	if err != nil {
		return fmt.Errorf("failed to read staged document: %w", err)
	}
	if err := fileutil.AtomicWriteFile(dest, data, fileutil.FilePermission); err != nil {
		return err
	}
	if err := doc.Remove(); err != nil {
		logutil.Warn("failed to remove staged document", "path", doc.Path, "error", err)
	}
	doc.Path = dest
	return nil
}
