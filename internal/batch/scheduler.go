package batch

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"studio/internal/domain"
	"studio/internal/infra"
)

// TaskFunc executes one task. It should report failures in the outcome, but
// a panic is also contained.
type TaskFunc func(ctx context.Context, task domain.Task) domain.TaskOutcome

// ProgressFunc observes progress after every resolved task.
type ProgressFunc func(domain.BatchProgress)

// Report is the result of one scheduler run. Outcomes hold only the tasks
// that ran, ordered by task position.
type Report struct {
	Outcomes  []domain.TaskOutcome
	Progress  domain.BatchProgress
	Cancelled bool
}

// Succeeded counts successful outcomes.
func (r Report) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.OK() {
			n++
		}
	}
	return n
}

// Status folds the report into a terminal job status.
func (r Report) Status() domain.JobStatus {
	ok := r.Succeeded()
	switch {
	case r.Cancelled:
		return domain.JobStatusCancelled
	case ok == r.Progress.Total && ok > 0:
		return domain.JobStatusSucceeded
	case ok > 0:
		return domain.JobStatusPartial
	default:
		return domain.JobStatusFailed
	}
}

// Scheduler runs tasks in chunks of at most Concurrency. A chunk is awaited
// fully before the next starts; cancellation is observed only between chunks.
type Scheduler struct {
	Concurrency int
	Logger      *infra.Logger
}

func NewScheduler(concurrency int, logger *infra.Logger) *Scheduler {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		l := infra.Logger(zerolog.New(io.Discard))
		logger = &l
	}
	return &Scheduler{Concurrency: concurrency, Logger: logger}
}

func (s *Scheduler) Run(ctx context.Context, tasks []domain.Task, fn TaskFunc, token *domain.CancelToken, onProgress ProgressFunc) Report {
	k := s.Concurrency
	if k < 1 {
		k = 1
	}
	var (
		mu       sync.Mutex
		progress = domain.BatchProgress{Total: len(tasks)}
		outcomes = make([]domain.TaskOutcome, len(tasks))
		ran      = make([]bool, len(tasks))
	)
	cancelled := false

	for start := 0; start < len(tasks); start += k {
		if token.Cancelled() || ctx.Err() != nil {
			cancelled = true
			s.Logger.Info().
				Int("resolved", progress.Completed).
				Int("total", progress.Total).
				Msg("batch: cancellation observed; no further chunks")
			break
		}
		end := min(start+k, len(tasks))

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				outcome := s.execute(ctx, tasks[i], fn)

				mu.Lock()
				outcomes[i] = outcome
				ran[i] = true
				progress.Completed++
				if !outcome.OK() {
					progress.Failed++
				}
				snapshot := progress
				if onProgress != nil {
					onProgress(snapshot)
				}
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
	}

	report := Report{Progress: progress, Cancelled: cancelled}
	for i, o := range outcomes {
		if ran[i] {
			report.Outcomes = append(report.Outcomes, o)
		}
	}
	return report
}

func (s *Scheduler) execute(ctx context.Context, task domain.Task, fn TaskFunc) (outcome domain.TaskOutcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = domain.Failed(task, fmt.Errorf("batch: task panicked: %v", r))
		}
		if !outcome.OK() {
			if outcome.Err == nil {
				outcome = domain.Failed(task, fmt.Errorf("batch: task returned no asset: %w", domain.ErrTransient))
			}
			s.Logger.Warn().
				Err(outcome.Err).
				Str("job_id", task.JobID).
				Int("task_index", task.Index).
				Msg("batch: task failed")
		}
	}()
	return fn(ctx, task)
}
