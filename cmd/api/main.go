package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"studio/internal/app"
	"studio/internal/http/handlers"
	httpapi "studio/internal/http/httpapi"
	"studio/internal/infra"
	"studio/internal/infra/geoip"
	"studio/internal/middleware"
)

const (
	conversationTTL = 6 * time.Hour
	jobTTL          = 24 * time.Hour
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The queue endpoints need Postgres; everything else runs in memory.
	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pool, err = infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer pool.Close()
	}

	services, err := app.Build(ctx, cfg, &logger, pool)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build services")
	}
	if services.Jobs != nil {
		if err := services.Jobs.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("schema setup failed")
		}
	}

	var lookup middleware.CountryLookup
	resolver, err := geoip.Open(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	} else if resolver != nil {
		defer resolver.Close()
		lookup = resolver.CountryCode
	}

	router := httpapi.NewRouter(handlers.NewApp(services), httpapi.Options{
		Logger:          logger,
		DefaultLocale:   cfg.DefaultLocale,
		CountryLookup:   lookup,
		CORSOrigins:     cfg.CORSOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		StaticDir:       services.Files.BasePath(),
	})
	server := infra.NewHTTPServer(cfg, router, logger)

	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := services.Agents.Prune(conversationTTL); n > 0 {
					logger.Info().Int("pruned", n).Msg("idle conversations dropped")
				}
				if n := services.Tracker.Prune(jobTTL); n > 0 {
					logger.Info().Int("pruned", n).Msg("finished jobs dropped")
				}
			}
		}
	}()

	if err := server.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("http server failed")
	}
}
