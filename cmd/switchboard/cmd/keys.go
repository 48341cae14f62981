package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jmcleod/switchboard/console"
	"github.com/jmcleod/switchboard/internal/util"
	"github.com/jmcleod/switchboard/vault"
)

var (
	keysFilter   string
	keyName      string
	keyProvider  string
	keyFromStdin bool
	deleteYes    bool
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage provider API keys",
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List provider API keys",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), func(ctx context.Context, c *console.Console) error {
			v := c.Vault()
			creds := v.List(ctx)
			if err := v.Err(); err != nil {
				return userFacing(err)
			}
			if keysFilter != "" {
				creds = v.Filter(keysFilter)
			}
			return printCredentials(cmd.OutOrStdout(), creds)
		})
	},
}

var keysAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a provider API key",
	Long: `Add a provider API key. The key is read from a hidden prompt, or from
standard input with --key-stdin, and is never written to disk.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, err := vault.ParseProvider(keyProvider)
		if err != nil {
			return fmt.Errorf("%w (run \"switchboard keys providers\")", err)
		}
		p := newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
		secret, err := readSecret(p, keyFromStdin, provider)
		if err != nil {
			return err
		}
		defer util.WipeBytes(secret)

		return withSession(cmd.Context(), func(ctx context.Context, c *console.Console) error {
			cred, err := c.Vault().Create(ctx, vault.CreateInput{
				Name:     keyName,
				Provider: provider,
				Secret:   secret,
			})
			if err != nil {
				return userFacing(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s key %q (id %s)\n", provider.Info().Label, cred.Name, cred.ID)
			return printCredentials(cmd.OutOrStdout(), c.Vault().Credentials())
		})
	},
}

func setActiveCmd(use, short string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, c *console.Console) error {
				if err := c.Vault().SetActive(ctx, args[0], active); err != nil {
					return userFacing(err)
				}
				return printCredentials(cmd.OutOrStdout(), c.Vault().Credentials())
			})
		},
	}
}

var keysDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a provider API key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		return withSession(cmd.Context(), func(ctx context.Context, c *console.Console) error {
			v := c.Vault()
			v.List(ctx)
			label := id
			if err := v.Select(id); err == nil {
				cred, _ := v.Selected()
				label = fmt.Sprintf("%q (%s, %s)", cred.Name, cred.Provider.Info().Label, cred.KeyPrefix)
				v.Deselect()
			}

			if err := v.RequestDelete(id); err != nil {
				return err
			}
			if !deleteYes {
				p := newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
				ok, err := p.confirm("Delete API key " + label + "? This cannot be undone.")
				if err != nil || !ok {
					v.CancelDelete()
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
					return err
				}
			}
			deleted, err := v.ConfirmDelete(ctx)
			if err != nil {
				return userFacing(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted key %s\n", deleted)
			return nil
		})
	},
}

var keysProvidersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List supported providers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		infos := make([]vault.ProviderInfo, 0)
		for _, p := range vault.Providers() {
			infos = append(infos, p.Info())
		}
		if jsonOutput {
			return writeJSONOutput(cmd.OutOrStdout(), infos)
		}
		tw := newTable(cmd.OutOrStdout())
		fmt.Fprintln(tw, "VALUE\tPROVIDER\tKEY FORMAT")
		for _, info := range infos {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", info.Value, info.Label, info.Placeholder)
		}
		return tw.Flush()
	},
}

func readSecret(p *prompter, fromStdin bool, provider vault.Provider) ([]byte, error) {
	if !fromStdin {
		return p.secret(fmt.Sprintf("%s key (%s): ", provider.Info().Label, provider.Info().Placeholder))
	}
	b, err := io.ReadAll(p.r)
	if err != nil {
		return nil, fmt.Errorf("reading key from stdin: %w", err)
	}
	trimmed := bytes.Clone(bytes.TrimSpace(b))
	util.WipeBytes(b)
	return trimmed, nil
}

func init() {
	keysListCmd.Flags().StringVarP(&keysFilter, "filter", "q", "", "Only show keys whose name or provider contains this text")
	keysAddCmd.Flags().StringVar(&keyName, "name", "", "Display name (default \""+vault.DefaultKeyName+"\")")
	keysAddCmd.Flags().StringVar(&keyProvider, "provider", "", "Provider, e.g. openai or anthropic")
	keysAddCmd.MarkFlagRequired("provider")
	keysAddCmd.Flags().BoolVar(&keyFromStdin, "key-stdin", false, "Read the key from standard input")
	keysDeleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Do not ask for confirmation")

	keysCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print JSON instead of a table")
	keysCmd.AddCommand(
		keysListCmd,
		keysAddCmd,
		setActiveCmd("enable", "Enable a provider API key", true),
		setActiveCmd("disable", "Disable a provider API key", false),
		keysDeleteCmd,
		keysProvidersCmd,
	)
	rootCmd.AddCommand(keysCmd)
}
