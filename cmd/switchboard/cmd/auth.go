package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jmcleod/switchboard/console"
	"github.com/jmcleod/switchboard/gateway"
	"github.com/jmcleod/switchboard/internal/util"
)

var (
	loginUsername      string
	loginPasswordStdin bool

	registerUsername string
	registerEmail    string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the gateway and save the session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p := newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
		username := loginUsername
		if username == "" {
			var err error
			if username, err = p.line("Username: "); err != nil {
				return err
			}
		}
		password, err := readPassword(p, loginPasswordStdin, "Password: ")
		if err != nil {
			return err
		}
		defer util.WipeBytes(password)

		c, release, err := openConsole()
		if err != nil {
			return err
		}
		defer release()
		c.Init(cmd.Context())

		if err := c.SignIn(cmd.Context(), username, string(password)); err != nil {
			return userFacing(err)
		}
		u, _ := c.Session().User()
		fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", u.Username, u.Role)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the saved session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, release, err := openConsole()
		if err != nil {
			return err
		}
		defer release()
		c.SignOut()
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the identity behind the saved session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), func(ctx context.Context, c *console.Console) error {
			u, _ := c.Session().User()
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", u.Username, u.Role)
			return nil
		})
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an operator account on the gateway",
	Long: `Create an operator account on the gateway. The first account registered
becomes the administrator. Registering does not sign in.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p := newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
		username := registerUsername
		if username == "" {
			var err error
			if username, err = p.line("Username: "); err != nil {
				return err
			}
		}
		password, err := p.secret("Password: ")
		if err != nil {
			return err
		}
		defer util.WipeBytes(password)
		again, err := p.secret("Repeat password: ")
		if err != nil {
			return err
		}
		defer util.WipeBytes(again)
		if string(password) != string(again) {
			return errors.New("passwords do not match")
		}

		c, release, err := openConsole()
		if err != nil {
			return err
		}
		defer release()

		u, err := c.Register(cmd.Context(), console.RegisterInput{
			Username: username,
			Email:    registerEmail,
			Password: string(password),
		})
		if err != nil {
			return userFacing(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Registered %s (%s). Run \"switchboard login\" to sign in.\n", u.Username, u.Role)
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "Username (prompted when omitted)")
	loginCmd.Flags().BoolVar(&loginPasswordStdin, "password-stdin", false, "Read the password from standard input")
	registerCmd.Flags().StringVarP(&registerUsername, "username", "u", "", "Username (prompted when omitted)")
	registerCmd.Flags().StringVar(&registerEmail, "email", "", "Contact email address")

	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd, registerCmd)
}

// readPassword takes the rest of the input when fromStdin is set, otherwise
// prompts.
func readPassword(p *prompter, fromStdin bool, label string) ([]byte, error) {
	if !fromStdin {
		return p.secret(label)
	}
	b, err := io.ReadAll(p.r)
	if err != nil {
		return nil, fmt.Errorf("reading password from stdin: %w", err)
	}
	trimmed := bytes.Clone(bytes.TrimRight(b, "\r\n"))
	util.WipeBytes(b)
	return trimmed, nil
}

// userFacing replaces the text of gateway errors with the message the gateway
// gave, the text an operator would see in the web console. The original error
// stays reachable through errors.Unwrap.
func userFacing(err error) error {
	var gwErr *gateway.Error
	if errors.As(err, &gwErr) || errors.Is(err, gateway.ErrUnreachable) {
		return &messageError{msg: gateway.Message(err), err: err}
	}
	return err
}

type messageError struct {
	msg string
	err error
}

func (e *messageError) Error() string { return e.msg }
func (e *messageError) Unwrap() error { return e.err }
