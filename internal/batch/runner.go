package batch

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"studio/internal/domain"
	"studio/internal/imagegen"
	"studio/internal/infra"
	"studio/internal/providers/image"
)

// DefaultConfirmThreshold is the largest plan that runs without confirmation.
const DefaultConfirmThreshold = 50

// Ingester places a generated asset and returns the new layer id.
type Ingester interface {
	Ingest(ctx context.Context, task domain.Task, asset domain.AssetRef) (string, error)
}

// Plan is a validated job with its expanded tasks.
type Plan struct {
	Job               domain.Job
	Tasks             []domain.Task
	Threshold         int
	NeedsConfirmation bool
}

type RunnerOptions struct {
	Composer         *imagegen.Composer
	Synthesizer      image.Synthesizer
	Ingester         Ingester
	Scheduler        *Scheduler
	ConfirmThreshold int
	Logger           *infra.Logger
}

// Runner turns jobs into scheduled synthesis tasks.
type Runner struct {
	composer  *imagegen.Composer
	synth     image.Synthesizer
	ingester  Ingester
	scheduler *Scheduler
	threshold int
	logger    *infra.Logger
}

func NewRunner(opts RunnerOptions) *Runner {
	logger := opts.Logger
	if logger == nil {
		l := infra.Logger(zerolog.New(io.Discard))
		logger = &l
	}
	composer := opts.Composer
	if composer == nil {
		composer = imagegen.NewComposer(nil, "")
	}
	scheduler := opts.Scheduler
	if scheduler == nil {
		scheduler = NewScheduler(3, logger)
	}
	threshold := opts.ConfirmThreshold
	if threshold <= 0 {
		threshold = DefaultConfirmThreshold
	}
	return &Runner{
		composer:  composer,
		synth:     opts.Synthesizer,
		ingester:  opts.Ingester,
		scheduler: scheduler,
		threshold: threshold,
		logger:    logger,
	}
}

// Plan validates the job and expands it. It never enforces the threshold.
func (r *Runner) Plan(job domain.Job) (Plan, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if strings.TrimSpace(job.AspectRatio) == "" {
		job.AspectRatio = "1:1"
	}
	if job.ImageSize == "" {
		job.ImageSize = domain.Size1K
	}
	axes, err := r.composer.Axes(job)
	if err != nil {
		return Plan{}, err
	}
	combos := Expand(axes)
	tasks := make([]domain.Task, 0, len(combos))
	for _, combo := range combos {
		comp, err := r.composer.Compose(job, combo)
		if err != nil {
			return Plan{}, err
		}
		tasks = append(tasks, domain.Task{
			JobID:          job.ID,
			Index:          combo.Ordinal,
			Prompt:         comp.Prompt,
			NegativePrompt: comp.Negative,
			References:     comp.References,
			AspectRatio:    job.AspectRatio,
			ImageSize:      job.ImageSize,
			LayerName:      comp.LayerName,
		})
	}
	return Plan{
		Job:               job,
		Tasks:             tasks,
		Threshold:         r.threshold,
		NeedsConfirmation: len(tasks) > r.threshold,
	}, nil
}

// Run executes a plan. Plans over the threshold need Job.Confirmed. The
// token must be fresh or Reset for this job.
func (r *Runner) Run(ctx context.Context, plan Plan, token *domain.CancelToken, onProgress ProgressFunc) (Report, error) {
	if plan.NeedsConfirmation && !plan.Job.Confirmed {
		return Report{}, fmt.Errorf("batch: %d tasks exceed %d: %w", len(plan.Tasks), plan.Threshold, domain.ErrConfirmationRequired)
	}
	if r.synth == nil {
		return Report{}, fmt.Errorf("batch: synthesizer not configured: %w", domain.ErrProviderUnavailable)
	}

	log := r.logger.With().Str("job_id", plan.Job.ID).Str("mode", string(plan.Job.Mode)).Logger()
	log.Info().Int("tasks", len(plan.Tasks)).Int("concurrency", r.scheduler.Concurrency).Msg("batch: job started")

	report := r.scheduler.Run(ctx, plan.Tasks, r.execute, token, onProgress)

	log.Info().
		Int("completed", report.Progress.Completed).
		Int("failed", report.Progress.Failed).
		Bool("cancelled", report.Cancelled).
		Str("status", string(report.Status())).
		Msg("batch: job finished")
	return report, nil
}

func (r *Runner) execute(ctx context.Context, task domain.Task) domain.TaskOutcome {
	asset, err := r.synth.Synthesize(ctx, image.SynthesisRequest{
		Prompt:      task.Prompt,
		Negative:    task.NegativePrompt,
		References:  task.References,
		AspectRatio: task.AspectRatio,
		ImageSize:   task.ImageSize,
	})
	if err != nil {
		return domain.Failed(task, err)
	}
	var layerID string
	if r.ingester != nil {
		layerID, err = r.ingester.Ingest(ctx, task, asset)
		if err != nil {
			return domain.Failed(task, fmt.Errorf("batch: ingest: %w", err))
		}
	}
	return domain.Succeeded(task, asset, layerID)
}
