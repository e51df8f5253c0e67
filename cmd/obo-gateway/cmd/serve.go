package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/chatgate/obo-identity/internal/config"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway HTTP server",
		Long: `Run the gateway HTTP server.

Configuration is read from --config, then .env, then the environment.

Examples:
  obo-gateway serve
  ENABLE_HEADER_AUTH=true TRUSTED_PROXIES=10.0.0.0/8 obo-gateway serve
  obo-gateway serve -c gateway.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			log, err := newLogger(cfg.Log, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			gw, err := buildGateway(ctx, cfg, log, reg)
			if err != nil {
				return err
			}
			defer gw.Close()

			srv := &http.Server{
				Addr:              cfg.Server.ListenAddr,
				Handler:           gw.handler,
				ReadHeaderTimeout: cfg.Server.ReadTimeout,
			}

			errCh := make(chan error, 1)
			go func() {
				log.WithField("addr", cfg.Server.ListenAddr).
					WithField("static_mode", cfg.Auth.EnablePasswordAuth).
					WithField("session_store", cfg.Session.Store).
					Info("gateway listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown failed: %w", err)
			}
			return nil
		},
	}
}
