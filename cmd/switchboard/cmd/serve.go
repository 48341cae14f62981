package cmd

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/jmcleod/switchboard/api"
	"github.com/jmcleod/switchboard/console"
	"github.com/jmcleod/switchboard/guard"
	"github.com/jmcleod/switchboard/web"
)

var (
	tlsCert            string
	tlsKey             string
	alertWebhookURL    string
	alertWebhookHeader string
	loginThrottle      bool
)

// consoleViews are the shell pages that need a signed-in operator.
var consoleViews = []string{"/dashboard", "/keys", "/logs", "/routing", "/chat"}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web console",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, release, err := openConsole()
		if err != nil {
			return err
		}
		defer release()

		opts := []api.Option{api.WithLogger(logger), api.WithAlertHandler(logAlert)}
		if loginThrottle {
			opts = append(opts, api.WithLoginThrottle())
		}
		if alertWebhookURL != "" {
			wh, err := api.NewAlertWebhook(alertWebhookURL, alertWebhookHeader, logger)
			if err != nil {
				return err
			}
			defer wh.Close()
			opts = append(opts, api.WithAlertHandler(func(e api.AlertEvent) {
				logAlert(e)
				wh.Notify(e)
			}))
		}

		handler, err := newServerHandler(c, opts...)
		if err != nil {
			return err
		}

		var tlsConfig *tls.Config
		if tlsCert != "" || tlsKey != "" {
			cert, err := tls.LoadX509KeyPair(tlsCert, tlsKey)
			if err != nil {
				return fmt.Errorf("failed to load TLS key pair: %w", err)
			}
			tlsConfig = &tls.Config{
				Certificates: []tls.Certificate{cert},
				MinVersion:   tls.VersionTLS12,
			}
		}

		server := &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			TLSConfig:         tlsConfig,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		go c.Init(ctx)

		done := make(chan error, 1)
		go func() {
			var err error
			if tlsConfig != nil {
				err = server.ListenAndServeTLS("", "")
			} else {
				err = server.ListenAndServe()
			}
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				done <- fmt.Errorf("server failed: %w", err)
				return
			}
			done <- nil
		}()

		printBanner(cmd.OutOrStdout())
		scheme := "http"
		if tlsConfig != nil {
			scheme = "https"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Console listening on %s://%s (gateway: %s)\n", scheme, cfg.Addr, cfg.APIURL)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			fmt.Fprintf(cmd.OutOrStdout(), "\nReceived %s, shutting down...\n", sig)
			cancel()
			shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
			defer stop()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			return nil
		case err := <-done:
			return err
		}
	},
}

// newServerHandler assembles the console server: the API under /api, a
// health check, and the embedded shell with its pages guarded.
func newServerHandler(c *console.Console, opts ...api.Option) (http.Handler, error) {
	a := api.New(c, opts...)
	shell, err := web.Handler(api.DefaultBasePath)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Mount(api.DefaultBasePath, a.Router())

	r.Group(func(r chi.Router) {
		r.Use(api.SecurityHeaders)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/dashboard", http.StatusFound)
		})
		r.Group(func(r chi.Router) {
			r.Use(guard.Middleware(c.Session(), api.LoginPath))
			for _, view := range consoleViews {
				r.Handle(view, shell)
			}
		})
		r.Group(func(r chi.Router) {
			r.Use(guard.RedirectAuthenticated(c.Session(), "/dashboard"))
			r.Handle(api.LoginPath, shell)
			r.Handle("/register", shell)
		})
		r.Handle("/*", shell)
	})
	return r, nil
}

func logAlert(e api.AlertEvent) {
	logger.Warn("security alert", "type", e.Type, "message", e.Message, "count", e.Count, "threshold", e.Threshold)
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (env SWITCHBOARD_ADDR, default 127.0.0.1:3000)")
	serveCmd.Flags().StringVar(&tlsCert, "tls-cert", "", "Path to TLS certificate file")
	serveCmd.Flags().StringVar(&tlsKey, "tls-key", "", "Path to TLS key file")
	serveCmd.Flags().StringVar(&alertWebhookURL, "alert-webhook", "", "URL that receives security alerts as JSON")
	serveCmd.Flags().StringVar(&alertWebhookHeader, "alert-webhook-header", "", `Extra header for alert webhook requests, "Name: value"`)
	serveCmd.Flags().BoolVar(&loginThrottle, "login-throttle", false, "Lock a username out for a while after repeated failed sign-ins")
	rootCmd.AddCommand(serveCmd)
}
