package version

import (
	"context"
	"fmt"

	"github.com/jongio/azd-odata/cliout"
	"github.com/spf13/cobra"
)

// GeneratorProbe reports the version of the external code generator.
type GeneratorProbe func(ctx context.Context) (string, error)

// NewCommand creates the version command. probe may be nil; a failing probe
// is reported as "unavailable" rather than failing the command.
func NewCommand(info *Info, probe GeneratorProbe) *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: fmt.Sprintf("Display %s version information", info.Name),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if quiet {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), info.Version)
				return err
			}

			if probe != nil {
				v, err := probe(cmd.Context())
				if err != nil {
					v = "unavailable"
				}
				info.Generator = v
			}

			return cliout.Print(info, func() {
				cliout.Header(fmt.Sprintf("%s Version", info.Name))
				cliout.Label("Version", info.Version)
				cliout.Label("Build Date", info.BuildDate)
				cliout.Label("Git Commit", info.GitCommit)
				cliout.Label("Platform", info.Platform)
				if info.Generator != "" {
					cliout.Label("Generator", info.Generator)
				}
			})
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only print version number")
	return cmd
}
