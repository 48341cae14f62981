package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.etcd.io/bbolt"
	bberrors "go.etcd.io/bbolt/errors"

	"github.com/jmcleod/switchboard/console"
	"github.com/jmcleod/switchboard/guard"
	"github.com/jmcleod/switchboard/internal/config"
	"github.com/jmcleod/switchboard/session"
	"github.com/jmcleod/switchboard/storage"
	bboltstorage "github.com/jmcleod/switchboard/storage/bbolt"
)

// Version is stamped at build time with -ldflags "-X ...cmd.Version=...".
var Version = "dev"

// dbLockTimeout bounds the wait for the console database, which a running
// "switchboard serve" holds open.
const dbLockTimeout = 2 * time.Second

var (
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "switchboard",
	Short: "Switchboard is the admin console for an LLM gateway",
	Long: `Manage the provider API keys an LLM gateway routes requests to, follow its
request log and preview which provider each logical model resolves to.

Run "switchboard serve" for the web console, or use the subcommands directly.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(config.Overrides{
			APIURL:    flagOverride(cmd, "api-url"),
			Home:      flagOverride(cmd, "home"),
			Addr:      flagOverride(cmd, "addr"),
			LogLevel:  flagOverride(cmd, "log-level"),
			LogFormat: flagOverride(cmd, "log-format"),
		})
		if err != nil {
			return err
		}
		cfg = c
		logger = newLogger(cmd.ErrOrStderr(), c)
		slog.SetDefault(logger)
		return nil
	},
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("api-url", "", "Gateway API base URL (env "+config.EnvAPIURL+", default "+config.DefaultAPIURL+")")
	pf.String("home", "", "Directory for local console state (env "+config.EnvHome+", default ~/.switchboard)")
	pf.String("log-level", "", "Log level: debug, info, warn or error (env "+config.EnvLogLevel+")")
	pf.String("log-format", "", "Log format: text or json (env "+config.EnvLogFormat+")")
}

// flagOverride returns the value of the named flag when it was given on the
// command line, nil otherwise.
func flagOverride(cmd *cobra.Command, name string) *string {
	f := cmd.Flags().Lookup(name)
	if f == nil || !f.Changed {
		return nil
	}
	v := f.Value.String()
	return &v
}

func newLogger(w io.Writer, c *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.Level()}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// openConsole opens the durable session state under the console home and
// builds a Console on it. release closes the database without touching the
// saved session.
func openConsole() (c *console.Console, release func(), err error) {
	db, err := bboltstorage.NewRepositoryFromFile(cfg.DBPath, &bbolt.Options{Timeout: dbLockTimeout})
	if err != nil {
		if errors.Is(err, bberrors.ErrTimeout) {
			return nil, nil, fmt.Errorf("console database %s is in use (is \"switchboard serve\" running?)", cfg.DBPath)
		}
		return nil, nil, fmt.Errorf("failed to open console storage: %w", err)
	}
	key, err := storage.LoadOrCreateKey(cfg.KeyPath)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to load console key: %w", err)
	}
	tokens, err := session.NewSealedTokenStore(db, key)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	c = console.New(console.Config{APIURL: cfg.APIURL}, tokens, console.WithLogger(logger))
	return c, func() {
		tokens.Close()
		db.Close()
	}, nil
}

// withSession restores the saved session and runs fn only when it is still
// valid.
func withSession(ctx context.Context, fn func(ctx context.Context, c *console.Console) error) error {
	c, closeConsole, err := openConsole()
	if err != nil {
		return err
	}
	defer closeConsole()

	c.Init(ctx)
	if err := guard.Require(c.Session()); err != nil {
		return fmt.Errorf("%w: run \"switchboard login\" first", err)
	}
	return fn(ctx, c)
}
