package app

import (
	"github.com/jongio/azd-odata/cliout"
	"github.com/jongio/azd-odata/urlutil"
	"github.com/spf13/cobra"
)

func (a *app) credentialsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage saved service credentials",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <endpoint>",
		Short: "Forget the credentials saved for an endpoint's host",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			host, err := urlutil.Hostname(args[0])
			if err != nil {
				return err
			}
			acquirer, err := a.acquirer(false)
			if err != nil {
				return err
			}
			if err := acquirer.Forget(cmd.Context(), args[0]); err != nil {
				return err
			}
			return cliout.Print(map[string]string{"removed": host}, func() {
				cliout.Success("Removed saved credentials for %s", host)
			})
		},
	})
	return cmd
}
