package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/intheflow"
	"github.com/aretw0/intheflow/internal/presentation/tui"
	httpAdapter "github.com/aretw0/intheflow/pkg/adapters/http"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Starts the canvas HTTP API with server-sent change streams, and a separate
Prometheus metrics listener.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		cfg := app.Config
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}
		if addr, _ := cmd.Flags().GetString("metrics-addr"); cmd.Flags().Changed("metrics-addr") {
			cfg.Server.MetricsAddr = addr
		}

		if tui.IsTerminal(os.Stdout) {
			tui.PrintBanner(os.Stdout, intheflow.Version)
		}

		api := httpAdapter.NewHandler(app.Sessions, app.Content,
			httpAdapter.WithLogger(app.Logger),
			httpAdapter.WithCORSOrigins(cfg.Server.CORSOrigins...),
		)
		servers := []*http.Server{{Addr: cfg.Server.Addr, Handler: api}}
		if cfg.Server.MetricsAddr != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", app.Metrics.Handler())
			servers = append(servers, &http.Server{Addr: cfg.Server.MetricsAddr, Handler: mux})
		}

		stopCheckpoints, err := app.StartCheckpoints()
		if err != nil {
			app.Close(cmd.Context())
			return err
		}

		// Channel to listen for errors coming from the listeners.
		serverErrors := make(chan error, len(servers))
		for _, srv := range servers {
			go func() {
				app.Logger.Info("Listening", "addr", srv.Addr)
				serverErrors <- srv.ListenAndServe()
			}()
		}

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		var runErr error
		select {
		case err := <-serverErrors:
			runErr = fmt.Errorf("server error: %w", err)
		case sig := <-shutdown:
			app.Logger.Info("Start shutdown", "signal", sig)
		}

		stopCheckpoints()

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		for _, srv := range servers {
			if err := srv.Shutdown(ctx); err != nil {
				app.Logger.Warn("Graceful shutdown did not complete", "addr", srv.Addr, "err", err)
				_ = srv.Close()
			}
		}
		if err := app.Shutdown(ctx); err != nil {
			app.Logger.Error("Failed to checkpoint canvases", "err", err)
			runErr = errors.Join(runErr, err)
		}
		app.Logger.Info("Server stopped")
		return runErr
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Address to listen on (overrides server.addr)")
	serveCmd.Flags().String("metrics-addr", "", "Metrics address; empty disables the listener (overrides server.metrics_addr)")
}
