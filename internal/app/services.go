// Package app assembles the provider clients, canvas and runners shared by
// the api, worker and studioctl binaries.
package app

import (
	"context"
	"net/http"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"

	"studio/internal/adapter/repo"
	"studio/internal/agent"
	"studio/internal/authsignal"
	"studio/internal/batch"
	"studio/internal/canvas"
	"studio/internal/domain"
	"studio/internal/imagegen"
	"studio/internal/infra"
	"studio/internal/infra/credentials"
	"studio/internal/presets"
	"studio/internal/providers/chat"
	"studio/internal/providers/genai"
	"studio/internal/providers/image"
	"studio/internal/providers/prompt"
	"studio/internal/storage"
)

// Services is the wired object graph. Jobs and SQL are nil without a
// database.
type Services struct {
	Config      *infra.Config
	Logger      *infra.Logger
	Signal      *authsignal.Signal
	Catalog     *presets.Catalog
	Composer    *imagegen.Composer
	GenAI       *genai.Client
	Synthesizer *image.SynthesisClient
	Chat        *chat.Provider
	Enhancer    prompt.Enhancer
	Files       *storage.FileStore
	Canvas      *canvas.Store
	Runner      *batch.Runner
	Tracker     *batch.Tracker
	Agents      *agent.Registry
	SQL         infra.SQLExecutor
	Jobs        *repo.JobRepositoryPG
}

// Build wires every component from cfg. pool may be nil.
func Build(ctx context.Context, cfg *infra.Config, logger *infra.Logger, pool *pgxpool.Pool) (*Services, error) {
	s := &Services{Config: cfg, Logger: logger, Signal: authsignal.New()}

	if pool != nil {
		runner := infra.NewSQLRunner(pool, *logger)
		s.SQL = runner
		s.Jobs = repo.NewJobRepository(runner)
	}

	apiKey := cfg.GeminiAPIKey
	if s.SQL != nil {
		key, err := credentials.NewStore(s.SQL).ResolveGeminiAPIKey(ctx, apiKey)
		if err != nil {
			logger.Warn().Err(err).Msg("app: failed to load gemini api key from store")
		} else {
			apiKey = key
		}
	}

	client, err := genai.NewClient(genai.Options{
		APIKey:     apiKey,
		BaseURL:    cfg.GeminiBaseURL,
		HTTPClient: &http.Client{Timeout: cfg.GenAITimeout},
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}
	s.GenAI = client
	if client.Synthetic() {
		logger.Warn().Msg("app: gemini api key missing, using synthetic image generation")
	}

	catalog, err := presets.Default()
	if err != nil {
		return nil, err
	}
	s.Catalog = catalog
	s.Composer = imagegen.NewComposer(catalog, cfg.NegativePromptBaseline)

	s.Synthesizer = image.NewSynthesisClient(client, image.Models{
		Primary:  cfg.GeminiImageModel,
		Fallback: cfg.GeminiImageFallbackModel,
	}, s.Signal, logger)

	s.Chat = chat.NewProvider(client, chat.Models{
		Primary:  cfg.GeminiChatModel,
		Fallback: cfg.GeminiChatFallbackModel,
	}, logger)

	enhancer, err := prompt.NewGeminiEnhancer(prompt.GeminiOptions{
		Client:     client,
		Model:      cfg.GeminiChatFallbackModel,
		AuthSignal: s.Signal,
		OnFallback: func(reason string, err error) {
			logger.Warn().Err(err).Str("reason", reason).Msg("app: prompt enhancement fell back")
		},
	})
	if err != nil {
		return nil, err
	}
	s.Enhancer = enhancer

	storagePath := cfg.StoragePath
	if !filepath.IsAbs(storagePath) {
		if abs, err := filepath.Abs(storagePath); err == nil {
			storagePath = abs
		}
	}
	files, err := storage.NewFileStore(storagePath)
	if err != nil {
		return nil, err
	}
	s.Files = files

	s.Canvas = canvas.NewStore(domain.CanvasSize{
		Width:  float64(cfg.CanvasWidth),
		Height: float64(cfg.CanvasHeight),
	})
	s.Runner = batch.NewRunner(batch.RunnerOptions{
		Composer:         s.Composer,
		Synthesizer:      s.Synthesizer,
		Ingester:         canvas.NewIngester(s.Canvas, files, cfg.StorageBaseURL, logger),
		Scheduler:        batch.NewScheduler(cfg.BatchConcurrency, logger),
		ConfirmThreshold: cfg.BatchConfirmThreshold,
		Logger:           logger,
	})
	s.Tracker = batch.NewTracker(s.Runner)

	s.Agents = agent.NewRegistry(agent.Options{
		Opener:     s.Chat,
		Store:      s.Canvas,
		Tools:      agent.NewDispatcher(s.Canvas, s.Synthesizer, s.Composer, logger),
		Signal:     s.Signal,
		UsePrimary: cfg.AgentUsePrimary,
		MaxLoops:   cfg.AgentMaxLoops,
		Locale:     cfg.DefaultLocale,
		Logger:     logger,
	})
	return s, nil
}

// QueueWorker builds the database-backed worker. It requires Jobs.
func (s *Services) QueueWorker() *batch.QueueWorker {
	return batch.NewQueueWorker(batch.QueueOptions{
		Repo:             s.Jobs,
		Composer:         s.Composer,
		Synthesizer:      s.Synthesizer,
		Files:            s.Files,
		BaseURL:          s.Config.StorageBaseURL,
		Concurrency:      s.Config.BatchConcurrency,
		ConfirmThreshold: s.Config.BatchConfirmThreshold,
		Logger:           s.Logger,
	})
}
