package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hashpad-dev/hashpad/internal/config"
	"github.com/hashpad-dev/hashpad/internal/errors"
	"github.com/hashpad-dev/hashpad/pkg/metrics"
	"github.com/hashpad-dev/hashpad/pkg/middleware"
	"github.com/hashpad-dev/hashpad/pkg/server"
)

func serveCmd(a *app) *cobra.Command {
	var (
		port      int
		host      string
		noMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the live pad",
		Long: `Serve the browser pad.

The page opens a WebSocket back to the server, which decodes the link,
debounces edits and rewrites the URL as you type. The text itself never
leaves the link: nothing is stored.

Examples:
  hashpad serve
  hashpad serve --port=8080
  hashpad serve --host=0.0.0.0 --no-metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if host != "" {
				cfg.Server.Host = host
			}
			if noMetrics {
				cfg.Metrics.Enabled = false
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, cmd, a, cfg)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from hashpad.yaml)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from hashpad.yaml)")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "Disable the Prometheus endpoint")

	return cmd
}

// serverConfig maps the file configuration onto the server's.
func serverConfig(cfg *config.Config, m *metrics.Metrics, a *app) *server.Config {
	sc := server.DefaultConfig()
	sc.Address = cfg.Address()
	sc.ShutdownTimeout = cfg.Server.ShutdownTimeout.Std()
	sc.Logger = a.logger
	sc.Session = &server.SessionConfig{
		ReadTimeout:       cfg.Server.ReadTimeout.Std(),
		WriteTimeout:      cfg.Server.WriteTimeout.Std(),
		HeartbeatInterval: cfg.Server.HeartbeatInterval.Std(),
		MaxMessageSize:    int64(cfg.Server.MaxMessageSize),
		MaxEventQueue:     cfg.Server.MaxEventQueue,
		Debounce:          cfg.Debounce.Std(),
		LinkWarnLength:    cfg.LinkWarnLength,
		Codec:             cfg.NewCodec(),
	}
	sc.Session.Middleware = []middleware.Middleware{
		middleware.Recover(),
		middleware.OpenTelemetry(middleware.WithTracerName("hashpad")),
	}
	if m != nil {
		sc.Metrics = m
		sc.MetricsPath = cfg.Metrics.Path
		sc.Session.Middleware = append(sc.Session.Middleware, middleware.Prometheus())
	}
	return sc
}

func runServe(ctx context.Context, cmd *cobra.Command, a *app, cfg *config.Config) error {
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}
	srv := server.New(serverConfig(cfg, m, a))

	ln, err := net.Listen("tcp", cfg.Address())
	if err != nil {
		return errors.Newf(errors.CategoryCLI, "cannot listen on %s", cfg.Address()).Wrap(err)
	}

	out := cmd.OutOrStdout()
	printBanner(out)
	fmt.Fprintln(out)
	success(out, "Serving on http://%s/", ln.Addr())
	if cfg.Metrics.Enabled {
		info(out, "Metrics:  http://%s%s", ln.Addr(), cfg.Metrics.Path)
	}
	info(out, "Press Ctrl+C to stop")
	fmt.Fprintln(out)

	if err := srv.Serve(ctx, ln); err != nil {
		return err
	}
	success(out, "Server stopped")
	return nil
}
