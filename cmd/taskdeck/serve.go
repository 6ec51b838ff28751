package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskdeck/internal/devserver"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		port   string
		memory bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a local task service for development",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port != "" {
				a.cfg.Server.Port = port
			}
			if memory {
				a.cfg.Server.DatabaseURL = ""
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (overrides PORT)")
	cmd.Flags().BoolVar(&memory, "memory", false, "use the in-memory store even if DATABASE_URL is set")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	logger := a.logger

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	if len(a.cfg.Server.Tokens) == 0 {
		logger.Warn("No tokens configured, authentication is disabled")
	}
	h := devserver.NewTaskHandler(store, logger, a.cfg.Server.Tokens)

	srv := &http.Server{
		Addr:         ":" + a.cfg.Server.Port,
		Handler:      devserver.NewRouter(h, logger),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server started", zap.String("addr", srv.Addr))
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

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("Server stopped successfully")
	return nil
}

func (a *app) openStore(ctx context.Context) (devserver.Store, func(), error) {
	if a.cfg.Server.DatabaseURL == "" {
		a.logger.Info("Using in-memory store")
		return devserver.NewMemoryStore(), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, a.cfg.Server.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}
	a.logger.Info("Successfully connected to the database")

	store := devserver.NewPGStore(pool)
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return store, pool.Close, nil
}
