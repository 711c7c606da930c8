package batch

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/rs/zerolog"

	"studio/internal/canvas"
	"studio/internal/domain"
	"studio/internal/imagegen"
	"studio/internal/infra"
	"studio/internal/providers/image"
)

const (
	defaultPollInterval   = 2 * time.Second
	defaultCancelInterval = 2 * time.Second
)

// QueueOptions configures a QueueWorker.
type QueueOptions struct {
	Repo             domain.JobRepository
	Composer         *imagegen.Composer
	Synthesizer      image.Synthesizer
	Files            canvas.AssetWriter
	BaseURL          string
	Concurrency      int
	ConfirmThreshold int
	PollInterval     time.Duration
	CancelInterval   time.Duration
	Logger           *infra.Logger
}

// QueueWorker drains persisted jobs one at a time. Each job gets its own
// canvas so layer placement starts from the grid origin.
type QueueWorker struct {
	opts   QueueOptions
	logger *infra.Logger
}

func NewQueueWorker(opts QueueOptions) *QueueWorker {
	if opts.Logger == nil {
		l := infra.Logger(zerolog.New(io.Discard))
		opts.Logger = &l
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.CancelInterval <= 0 {
		opts.CancelInterval = defaultCancelInterval
	}
	if opts.Composer == nil {
		opts.Composer = imagegen.NewComposer(nil, "")
	}
	return &QueueWorker{opts: opts, logger: opts.Logger}
}

// Run claims and processes jobs until ctx ends.
func (w *QueueWorker) Run(ctx context.Context) error {
	w.logger.Info().Msg("worker: started")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		processed, err := w.ProcessNext(ctx)
		if err != nil {
			w.logger.Error().Err(err).Msg("worker: failed to claim job")
		}
		if processed && err == nil {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.opts.PollInterval):
		}
	}
}

// ProcessNext handles one queued job. It reports false when the queue was
// empty.
func (w *QueueWorker) ProcessNext(ctx context.Context) (bool, error) {
	rec, err := w.opts.Repo.Claim(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	w.process(ctx, rec)
	return true, nil
}

func (w *QueueWorker) process(ctx context.Context, rec domain.JobRecord) {
	log := w.logger.With().Str("job_id", rec.ID).Str("mode", string(rec.Job.Mode)).Logger()
	log.Info().Msg("worker: picked job")

	store := canvas.NewStore(domain.CanvasSize{})
	runner := NewRunner(RunnerOptions{
		Composer:         w.opts.Composer,
		Synthesizer:      w.opts.Synthesizer,
		Ingester:         canvas.NewIngester(store, w.opts.Files, w.opts.BaseURL, &log),
		Scheduler:        NewScheduler(w.opts.Concurrency, &log),
		ConfirmThreshold: w.opts.ConfirmThreshold,
		Logger:           &log,
	})

	rec.Job.ID = rec.ID
	plan, err := runner.Plan(rec.Job)
	if err != nil {
		log.Error().Err(err).Msg("worker: invalid job")
		w.finish(ctx, rec.ID, domain.JobStatusFailed, domain.BatchProgress{}, &log)
		return
	}
	// Shutdown stops new chunks through the token; tasks already in flight
	// are still ingested and recorded.
	work := context.WithoutCancel(ctx)
	_ = w.opts.Repo.UpdateProgress(work, rec.ID, domain.BatchProgress{Total: len(plan.Tasks)})

	token := &domain.CancelToken{}
	stopShutdown := context.AfterFunc(ctx, token.Cancel)
	defer stopShutdown()
	watchCtx, stopWatch := context.WithCancel(ctx)
	go w.watchCancel(watchCtx, rec.ID, token)

	report, err := runner.Run(work, plan, token, func(p domain.BatchProgress) {
		if err := w.opts.Repo.UpdateProgress(work, rec.ID, p); err != nil {
			log.Warn().Err(err).Msg("worker: update progress failed")
		}
	})
	stopWatch()
	if err != nil {
		log.Error().Err(err).Msg("worker: job failed")
		w.finish(work, rec.ID, domain.JobStatusFailed, domain.BatchProgress{Total: len(plan.Tasks)}, &log)
		return
	}
	if report.Cancelled && ctx.Err() != nil {
		log.Warn().Int("completed", report.Progress.Completed).Msg("worker: job interrupted by shutdown")
	}

	keys := storageKeys(work, store)
	for _, o := range report.Outcomes {
		if err := w.opts.Repo.RecordOutcome(work, rec.ID, o, keys[o.LayerID]); err != nil {
			log.Error().Err(err).Int("task_index", o.Index).Msg("worker: record outcome failed")
		}
	}
	w.finish(work, rec.ID, report.Status(), report.Progress, &log)
}

func (w *QueueWorker) watchCancel(ctx context.Context, id string, token *domain.CancelToken) {
	ticker := time.NewTicker(w.opts.CancelInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			requested, err := w.opts.Repo.CancelRequested(ctx, id)
			if err == nil && requested {
				token.Cancel()
				return
			}
		}
	}
}

func (w *QueueWorker) finish(ctx context.Context, id string, status domain.JobStatus, p domain.BatchProgress, log *zerolog.Logger) {
	if err := w.opts.Repo.Finish(context.WithoutCancel(ctx), id, status, p); err != nil {
		log.Error().Err(err).Msg("worker: update status failed")
		return
	}
	log.Info().Str("status", string(status)).Int("completed", p.Completed).Int("failed", p.Failed).Msg("worker: job finished")
}

func storageKeys(ctx context.Context, store domain.LayerStore) map[string]string {
	layers, _ := store.Layers(ctx)
	keys := make(map[string]string, len(layers))
	for _, l := range layers {
		keys[l.ID] = l.StorageKey
	}
	return keys
}
