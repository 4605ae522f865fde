package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	_ "github.com/redmonkez12/accounts-api/docs" // Swagger docs (generated)
	"github.com/redmonkez12/accounts-api/internal/account"
	"github.com/redmonkez12/accounts-api/internal/auth"
	"github.com/redmonkez12/accounts-api/internal/config"
	httpServer "github.com/redmonkez12/accounts-api/internal/http"
	"github.com/redmonkez12/accounts-api/internal/logging"
	"github.com/redmonkez12/accounts-api/internal/telemetry"
)

// @title           Accounts API
// @version         1.0
// @description     User registration, login, listing and self-update with bearer token authentication.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:5000
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "accounts-api",
		Short:        "User accounts REST API",
		Long:         "Serves signup, login, user listing and self-update over HTTP/JSON.",
		SilenceUsage: true,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE:  runServe,
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations (postgres) or create indexes (mongo)",
		RunE:  runMigrate,
	}

	rootCmd.AddCommand(serveCmd, migrateCmd)

	// Allow running without subcommand (default to serve)
	rootCmd.RunE = serveCmd.RunE

	return rootCmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
		"store", cfg.Database.Driver,
		"tokens", cfg.Auth.TokenStrategy,
	)

	// Initialize tracing
	tracing, err := telemetry.New(ctx, cfg.Telemetry, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := tracing.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	// Initialize user store
	store, closeStore, err := initStore(ctx, cfg, logger, cfg.Database.AutoMigrate)
	if err != nil {
		return fmt.Errorf("failed to initialize user store: %w", err)
	}
	defer closeStore()

	hasher := newPasswordHasher(cfg.Auth)

	tokens, err := newTokenService(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}

	images, uploadsDir, err := newImageStore(ctx, cfg.Uploads)
	if err != nil {
		return fmt.Errorf("failed to initialize image storage: %w", err)
	}

	service := account.NewService(
		store,
		hasher,
		tokens,
		images,
		logger,
		tracing.Tracer(),
		cfg.Auth.TokenDuration,
	)

	// Initialize HTTP handlers
	accountHandler := account.NewHandler(service, cfg.Uploads.MaxBytes)
	authMiddleware := auth.NewMiddleware(tokens)

	router := httpServer.NewRouter(cfg, accountHandler, authMiddleware, uploadsDir, logger)

	server := httpServer.NewServer(
		":"+cfg.Server.Port,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		logger,
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	// Wait for interrupt signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-shutdown:
		logger.Info("received signal", "signal", sig.String())

		// Graceful shutdown with timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(cfg.Server.IsDevelopment())

	_, closeStore, err := initStore(ctx, cfg, logger, true)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	closeStore()

	logger.Info("migrations applied", "store", cfg.Database.Driver)
	return nil
}
