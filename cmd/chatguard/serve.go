package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/chatguard/config"
	"github.com/jonwraymond/chatguard/guard"
	"github.com/jonwraymond/chatguard/observe"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP decision service",
		Long: `Serves POST /v1/check and POST /v1/sanitize, the health endpoints
(/healthz, /readyz, /health) and, with the prometheus metrics exporter,
/metrics. The config file is reloaded when it changes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := opts.load(ctx)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			return serve(ctx, cfg, opts.path(),
				guard.WithObserverOptions(observe.WithLogWriter(cmd.ErrOrStderr())))
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, path string, opts ...guard.Option) error {
	c, err := guard.New(ctx, cfg, opts...)
	if err != nil {
		return err
	}
	logger := c.Observer().Logger().WithComponent("serve")

	mux := http.NewServeMux()
	guard.RegisterHandlers(mux, c)
	if cfg.Observe.Metrics.Enabled && cfg.Observe.Metrics.Exporter == "prometheus" {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.Start(gctx) })
	if path != "" {
		w := config.NewWatcher(path, c.Reload, config.WithLogger(c.Observer().Logger()))
		g.Go(func() error { return w.Run(gctx) })
	}
	g.Go(func() error {
		logger.Info(gctx, "listening", observe.F("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		logger.Info(shutdownCtx, "shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()

	closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return errors.Join(err, c.Close(closeCtx))
}
