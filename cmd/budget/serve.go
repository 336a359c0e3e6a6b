package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/the-budget-must-balance/internal/api"
	"github.com/Veraticus/the-budget-must-balance/internal/certs"
	"github.com/Veraticus/the-budget-must-balance/internal/common"
	"github.com/Veraticus/the-budget-must-balance/internal/config"
)

const shutdownTimeout = 30 * time.Second

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the ledger over HTTP",
		Long: `Start an HTTP server exposing the ledger to a UI layer.

Endpoints:
  GET    /summary
  GET    /incomes, POST /incomes, PATCH|DELETE /incomes/{id}
  GET    /expenses, POST /expenses, PATCH|DELETE /expenses/{id}
  POST   /voice        multipart audio in the "audio" field
  POST   /utterances   {"text": "..."}
  GET    /voice/state
  POST   /voice/cancel`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().String("addr", "", "listen address (default 127.0.0.1:8787)")
	cmd.Flags().Bool("tls", false, "serve HTTPS with a self-signed localhost certificate")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("server.tls", cmd.Flags().Lookup("tls"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	level, err := common.ParseLevel(viper.GetString("logging.level"))
	if err != nil {
		return err
	}
	if level > slog.LevelInfo {
		level = slog.LevelInfo
	}
	logger, err := common.NewLogger(cmd.ErrOrStderr(), level, viper.GetString("logging.format"))
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close(cmd.Context())

	addr := config.ServerAddr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewServer(a.ledger, a.session, logger.With("component", "api")).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Minute,
		IdleTimeout:       time.Minute,
	}

	useTLS := viper.GetBool("server.tls")
	if useTLS {
		certDir := filepath.Join(config.Dir(), "certs")
		tlsConfig, err := certs.NewFileManager(certDir).TLSConfig()
		if err != nil {
			return fmt.Errorf("failed to prepare TLS certificate: %w", err)
		}
		srv.TLSConfig = tlsConfig
		logger.Info("Using self-signed certificate", "dir", certDir)
	}

	g, ctx := errgroup.WithContext(cmd.Context())

	g.Go(func() error {
		logger.Info("Starting budget server", "addr", addr, "tls", useTLS, "version", version)
		var err error
		if useTLS {
			err = srv.ListenAndServeTLS("", "")
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down budget server")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		a.session.Cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}
