package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"studio/internal/domain"
)

// OutcomeView is the client-facing form of a TaskOutcome.
type OutcomeView struct {
	Index     int         `json:"index"`
	LayerName string      `json:"layer_name"`
	LayerID   string      `json:"layer_id,omitempty"`
	Model     string      `json:"model,omitempty"`
	Tier      domain.Tier `json:"tier,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// Snapshot is a point-in-time view of a tracked job.
type Snapshot struct {
	ID        string               `json:"id"`
	Mode      domain.WorkflowMode  `json:"mode"`
	Status    domain.JobStatus     `json:"status"`
	Progress  domain.BatchProgress `json:"progress"`
	Outcomes  []OutcomeView        `json:"outcomes,omitempty"`
	Error     string               `json:"error,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// NewOutcomeView converts an outcome.
func NewOutcomeView(o domain.TaskOutcome) OutcomeView {
	v := OutcomeView{Index: o.Index, LayerName: o.LayerName, LayerID: o.LayerID, Error: o.Reason()}
	if o.Asset != nil {
		v.Model = o.Asset.Model
		v.Tier = o.Asset.Tier
	}
	return v
}

type trackedJob struct {
	snap  Snapshot
	token *domain.CancelToken
	done  chan struct{}
}

// Tracker runs plans in the background for the HTTP API and keeps their
// progress in memory.
type Tracker struct {
	runner *Runner
	mu     sync.RWMutex
	jobs   map[string]*trackedJob
	now    func() time.Time
}

func NewTracker(runner *Runner) *Tracker {
	return &Tracker{runner: runner, jobs: map[string]*trackedJob{}, now: time.Now}
}

// Submit starts plan in the background. Unconfirmed large plans are refused.
func (t *Tracker) Submit(plan Plan) (Snapshot, error) {
	if plan.NeedsConfirmation && !plan.Job.Confirmed {
		return Snapshot{}, fmt.Errorf("batch: %d tasks: %w", len(plan.Tasks), domain.ErrConfirmationRequired)
	}
	now := t.now().UTC()
	job := &trackedJob{
		snap: Snapshot{
			ID:        plan.Job.ID,
			Mode:      plan.Job.Mode,
			Status:    domain.JobStatusRunning,
			Progress:  domain.BatchProgress{Total: len(plan.Tasks)},
			CreatedAt: now,
			UpdatedAt: now,
		},
		token: &domain.CancelToken{},
		done:  make(chan struct{}),
	}

	t.mu.Lock()
	if _, exists := t.jobs[plan.Job.ID]; exists {
		t.mu.Unlock()
		return Snapshot{}, fmt.Errorf("batch: job %s already submitted: %w", plan.Job.ID, domain.ErrBusy)
	}
	t.jobs[plan.Job.ID] = job
	snap := job.snap
	t.mu.Unlock()

	go t.run(plan, job)
	return snap, nil
}

func (t *Tracker) run(plan Plan, job *trackedJob) {
	defer close(job.done)
	report, err := t.runner.Run(context.Background(), plan, job.token, func(p domain.BatchProgress) {
		t.mu.Lock()
		job.snap.Progress = p
		job.snap.UpdatedAt = t.now().UTC()
		t.mu.Unlock()
	})

	t.mu.Lock()
	defer t.mu.Unlock()
	job.snap.UpdatedAt = t.now().UTC()
	if err != nil {
		job.snap.Status = domain.JobStatusFailed
		job.snap.Error = err.Error()
		return
	}
	job.snap.Progress = report.Progress
	job.snap.Status = report.Status()
	job.snap.Outcomes = make([]OutcomeView, len(report.Outcomes))
	for i, o := range report.Outcomes {
		job.snap.Outcomes[i] = NewOutcomeView(o)
	}
}

func (t *Tracker) Get(id string) (Snapshot, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	job, ok := t.jobs[id]
	if !ok {
		return Snapshot{}, fmt.Errorf("batch: job %s: %w", id, domain.ErrNotFound)
	}
	return job.snap, nil
}

// Cancel requests a stop; the running chunk still finishes.
func (t *Tracker) Cancel(id string) (Snapshot, error) {
	t.mu.RLock()
	job, ok := t.jobs[id]
	t.mu.RUnlock()
	if !ok {
		return Snapshot{}, fmt.Errorf("batch: job %s: %w", id, domain.ErrNotFound)
	}
	job.token.Cancel()
	return t.Get(id)
}

// Prune drops finished jobs last updated more than ttl ago. Running jobs are
// kept.
func (t *Tracker) Prune(ttl time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().UTC().Add(-ttl)
	n := 0
	for id, job := range t.jobs {
		select {
		case <-job.done:
		default:
			continue
		}
		if job.snap.UpdatedAt.Before(cutoff) {
			delete(t.jobs, id)
			n++
		}
	}
	return n
}

// Wait blocks until the job finishes or ctx ends.
func (t *Tracker) Wait(ctx context.Context, id string) (Snapshot, error) {
	t.mu.RLock()
	job, ok := t.jobs[id]
	t.mu.RUnlock()
	if !ok {
		return Snapshot{}, fmt.Errorf("batch: job %s: %w", id, domain.ErrNotFound)
	}
	select {
	case <-job.done:
		return t.Get(id)
	case <-ctx.Done():
		return Snapshot{}, errors.Join(ctx.Err(), domain.ErrCancelled)
	}
}
