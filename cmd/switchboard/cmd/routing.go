package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jmcleod/switchboard/console"
	"github.com/jmcleod/switchboard/routing"
)

var routingCmd = &cobra.Command{
	Use:   "routing [MODEL]",
	Short: "Preview which provider each logical model routes to",
	Long: `Preview which provider each logical model (smart, fast, cheap, any) routes
to given the keys currently enabled. The first provider in a model's priority
list that has an active key is selected.`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"smart", "fast", "cheap", "any"},
	RunE: func(cmd *cobra.Command, args []string) error {
		var model routing.Model
		if len(args) == 1 {
			m, err := routing.ParseModel(args[0])
			if err != nil {
				return err
			}
			model = m
		}
		return withSession(cmd.Context(), func(ctx context.Context, c *console.Console) error {
			if model == "" {
				routes := c.Routes(ctx)
				if err := c.Vault().Err(); err != nil {
					return userFacing(err)
				}
				return printRoutes(cmd.OutOrStdout(), routes)
			}
			creds := c.Vault().List(ctx)
			if err := c.Vault().Err(); err != nil {
				return userFacing(err)
			}
			route, err := routing.Preview(model, creds)
			if err != nil {
				return err
			}
			return printRoutes(cmd.OutOrStdout(), []routing.Route{route})
		})
	},
}

func init() {
	routingCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print JSON instead of a table")
	rootCmd.AddCommand(routingCmd)
}
