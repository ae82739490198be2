package app

import (
	"github.com/jongio/azd-odata/cliout"
	"github.com/spf13/cobra"
)

func (a *app) endpointsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "endpoints",
		Short: "List recently used endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr, err := a.settings()
			if err != nil {
				return err
			}
			endpoints, err := mgr.Endpoints()
			if err != nil {
				return err
			}
			if endpoints == nil {
				endpoints = []string{}
			}
			return cliout.Print(endpoints, func() {
				if len(endpoints) == 0 {
					cliout.Info("No recent endpoints")
					return
				}
				for _, e := range endpoints {
					cliout.Bullet("%s", e)
				}
			})
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "remove <endpoint>",
			Short: "Remove an endpoint from the recent list",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				mgr, err := a.settings()
				if err != nil {
					return err
				}
				if err := mgr.RemoveEndpoint(args[0]); err != nil {
					return err
				}
				return cliout.Print(map[string]string{"removed": args[0]}, func() {
					cliout.Success("Removed %s", args[0])
				})
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Clear the recent endpoint list",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				mgr, err := a.settings()
				if err != nil {
					return err
				}
				if err := mgr.Clear(); err != nil {
					return err
				}
				return cliout.Print(map[string]bool{"cleared": true}, func() {
					cliout.Success("Cleared recent endpoints")
				})
			},
		},
	)
	return cmd
}
