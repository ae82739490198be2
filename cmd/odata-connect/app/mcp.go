package app

import (
	"github.com/jongio/azd-odata/httpclient"
	"github.com/jongio/azd-odata/logutil"
	"github.com/jongio/azd-odata/mcptool"
	"github.com/jongio/azd-odata/version"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// Per-host protection for the long-running tool server.
const (
	mcpBreakerFailures = 5
	mcpHostRateLimit   = 5
)

func (a *app) mcpCmd() *cobra.Command {
	var allowDirs []string
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the fetch_odata_metadata tool over MCP (stdio)",
		Long: `Serve a Model Context Protocol tool server on stdin/stdout.

The tool only uses credentials already saved in the configured store; it never
prompts. Only http and https endpoints are served unless --allow-dir names
directories whose metadata files may be read. Logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			acquirer, err := a.acquirer(false)
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			defer a.writeMetrics(reg)
			fetcher := a.fetcher(reg, httpclient.Options{
				BreakerFailures: mcpBreakerFailures,
				RateLimit:       mcpHostRateLimit,
			})

			server := mcptool.New(fetcher, acquirer,
				mcptool.WithAllowedDirs(allowDirs...),
				mcptool.WithLogger(logutil.NewLogger("mcp")),
			)
			return server.ServeStdio(binaryName, version.Version)
		},
	}
	cmd.Flags().StringSliceVar(&allowDirs, "allow-dir", nil, "Directory the tool may read local metadata files from (repeatable)")
	return cmd
}
