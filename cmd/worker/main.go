package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"studio/internal/app"
	"studio/internal/infra"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg).With().Str("component", "worker").Logger()
	if err := cfg.RequireDatabase(); err != nil {
		logger.Fatal().Err(err).Msg("worker: configuration invalid")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	services, err := app.Build(ctx, cfg, &logger, pool)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to build services")
	}
	if err := services.Jobs.EnsureSchema(ctx); err != nil {
		logger.Fatal().Err(err).Msg("worker: schema setup failed")
	}

	logger.Info().
		Int("concurrency", cfg.BatchConcurrency).
		Bool("synthetic", services.GenAI.Synthetic()).
		Msg("worker: polling generation_jobs")
	if err := services.QueueWorker().Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}
