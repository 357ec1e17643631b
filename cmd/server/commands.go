package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"lite-drive/internal/api"
	"lite-drive/internal/auth"
	"lite-drive/internal/cache"
	"lite-drive/internal/config"
	"lite-drive/internal/database"
	"lite-drive/internal/files"
	"lite-drive/internal/jobs"
	"lite-drive/internal/logging"
	"lite-drive/internal/preview"
	"lite-drive/internal/quota"
	"lite-drive/internal/storage"
	"lite-drive/internal/websocket"
)

const shutdownTimeout = 15 * time.Second

func newServeCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func newMigrateCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger := logging.Setup(cfg.Log)

			if err := database.Migrate(cfg.DB.Source); err != nil {
				return err
			}
			logger.Info("migrations applied")
			return nil
		},
	}
}

func newGrantAdminCommand(opts *Options) *cobra.Command {
	var revoke bool
	cmd := &cobra.Command{
		Use:   "grant-admin <email>",
		Short: "Give an existing account administrator rights",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger := logging.Setup(cfg.Log)

			ctx := cmd.Context()
			pool, err := database.NewPool(ctx, cfg.DB)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer pool.Close()

			email := strings.ToLower(strings.TrimSpace(args[0]))
			found, err := database.NewStore(pool).SetAdmin(ctx, email, !revoke)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("no account with email %s; the user has to log in once first", email)
			}
			logger.Info("admin flag updated", "email", email, "is_admin", !revoke)
			return nil
		},
	}
	cmd.Flags().BoolVar(&revoke, "revoke", false, "remove administrator rights instead")
	return cmd
}

func runServe(ctx context.Context, opts *Options) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.Setup(cfg.Log)

	pool, err := database.NewPool(ctx, cfg.DB)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	logger.Info("connected to database")

	if err := database.Migrate(cfg.DB.Source); err != nil {
		return err
	}

	localStorage, err := storage.NewLocalStorage(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("init local storage: %w", err)
	}
	logger.Info("files will be stored under", "path", localStorage.BasePath())

	store := database.NewStore(pool)
	ledger := quota.NewLedger(store)

	generator := preview.NewGenerator(cfg.Preview, localStorage)
	defer generator.Close()

	wsHub := websocket.NewHub(logger)
	go wsHub.Run(ctx)

	fileOpts := []files.Option{
		files.WithLogger(logger),
		files.WithNotifier(files.NewJournalNotifier(store, wsHub, logger)),
	}
	if cfg.Redis.Addr != "" {
		client, err := cache.NewClient(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer client.Close()
		fileOpts = append(fileOpts, files.WithCache(cache.NewFileLists(client, cfg.Redis.TTL, logger)))
		logger.Info("file list cache enabled", "addr", cfg.Redis.Addr)
	}

	fileService, err := files.NewService(store, ledger, localStorage, generator, fileOpts...)
	if err != nil {
		return err
	}

	identity, err := auth.NewProvider(cfg.OAuth)
	if err != nil {
		return err
	}

	reconciler := jobs.NewReconciler(store, logger)
	if err := reconciler.Schedule(cfg.Jobs.ReconcileSchedule); err != nil {
		return err
	}
	reconciler.Start()
	defer reconciler.Stop()

	server := api.NewServer(cfg, store, fileService, ledger, identity, wsHub, logger)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.NewRouter(server),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve http: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		return err
	}
	return nil
}
