package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/utopium/chatflow"
	"github.com/utopium/chatflow/internal/logging"
	httpAdapter "github.com/utopium/chatflow/pkg/adapters/http"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat widget API over HTTP",
		Long: `Starts the HTTP server used by the chat widget: sessions, messages, file
uploads and a Server-Sent Events stream of state changes. Prometheus metrics are
exposed at /metrics.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().String("addr", "", "Address to listen on; overrides UTOPIUM_ADDR")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, os.Stderr, logging.FormatJSON)
	if err != nil {
		return err
	}
	defer a.Close()

	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		a.cfg.Addr = addr
	}

	streams := httpAdapter.NewStreamManager(httpAdapter.WithStreamLogger(a.logger))
	engine, err := a.engine(chatflow.WithChangeListener(streams.Listen))
	if err != nil {
		return err
	}

	handler, err := httpAdapter.NewHandler(engine,
		httpAdapter.WithStreams(streams),
		httpAdapter.WithLogger(a.logger),
		httpAdapter.WithMaxInputSize(a.cfg.MaxInputSize),
		httpAdapter.WithMaxFileSize(a.cfg.MaxFileSize),
		httpAdapter.WithMetrics(a.metrics.Handler()),
	)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErrors := make(chan error, 1)
	go func() {
		a.logger.Info("starting server", "addr", srv.Addr, "store", a.cfg.Store, "version", chatflow.Version)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
			return srv.Close()
		}
		a.logger.Info("server stopped gracefully")
		return nil
	}
}
