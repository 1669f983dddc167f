package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/RichardoC/lovegpt/internal/api"
	"github.com/RichardoC/lovegpt/internal/config"
	"github.com/RichardoC/lovegpt/internal/db"
	"github.com/RichardoC/lovegpt/internal/llm"
	"github.com/RichardoC/lovegpt/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "server",
		Short:         "LoveGPT chat backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newMigrateCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Apply migrations and serve the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger, err := logging.New(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer logger.Sync()

			database, err := openDatabase(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			return database.Close()
		},
	}
}

func openDatabase(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*db.Database, error) {
	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to initialize database", zap.Error(err))
		return nil, err
	}

	version, err := database.Migrate()
	if err != nil {
		database.Close()
		logger.Error("failed to migrate database", zap.Error(err))
		return nil, err
	}
	logger.Info("migrations applied", zap.Uint("version", version))
	return database, nil
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	database, err := openDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer database.Close()

	model, err := llm.NewModel(cfg.LLMBackend, cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel)
	if err != nil {
		logger.Error("failed to initialize LLM service", zap.Error(err))
		return err
	}
	llmService := llm.New(model, cfg.LLMTimeout)

	handler := api.NewHandler(database, llmService, logger)
	server := api.NewServer(handler, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting server",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("llm_backend", cfg.LLMBackend),
			zap.String("model", cfg.OpenAIModel))
		if err := server.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("start server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		return err
	}
	logger.Info("Server stopped")
	return nil
}
