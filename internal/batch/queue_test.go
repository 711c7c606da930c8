package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"studio/internal/domain"
	"studio/internal/providers/image"
)

type fakeJobRepo struct {
	mu        sync.Mutex
	queue     []domain.JobRecord
	progress  []domain.BatchProgress
	outcomes  map[int]string
	status    domain.JobStatus
	final     domain.BatchProgress
	cancelled bool
	// honorCtx makes writes fail on a done context, like a pgx pool does.
	honorCtx bool
}

func (f *fakeJobRepo) Enqueue(ctx context.Context, job domain.Job) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := fmt.Sprintf("job-%d", len(f.queue)+1)
	f.queue = append(f.queue, domain.JobRecord{ID: id, Status: domain.JobStatusQueued, Job: job})
	return id, nil
}

func (f *fakeJobRepo) Claim(ctx context.Context) (domain.JobRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queue) == 0 {
		return domain.JobRecord{}, domain.ErrNotFound
	}
	rec := f.queue[0]
	f.queue = f.queue[1:]
	rec.Status = domain.JobStatusRunning
	return rec, nil
}

func (f *fakeJobRepo) Get(ctx context.Context, id string) (domain.JobRecord, error) {
	return domain.JobRecord{}, domain.ErrNotFound
}

func (f *fakeJobRepo) UpdateProgress(ctx context.Context, id string, p domain.BatchProgress) error {
	if f.honorCtx && ctx.Err() != nil {
		return ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progress = append(f.progress, p)
	return nil
}

func (f *fakeJobRepo) RecordOutcome(ctx context.Context, jobID string, o domain.TaskOutcome, storageKey string) error {
	if f.honorCtx && ctx.Err() != nil {
		return ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.outcomes == nil {
		f.outcomes = map[int]string{}
	}
	if o.OK() {
		f.outcomes[o.Index] = storageKey
	} else {
		f.outcomes[o.Index] = "error: " + o.Reason()
	}
	return nil
}

func (f *fakeJobRepo) Outcomes(ctx context.Context, jobID string) ([]domain.OutcomeRecord, error) {
	return nil, nil
}

func (f *fakeJobRepo) Finish(ctx context.Context, id string, status domain.JobStatus, p domain.BatchProgress) error {
	if f.honorCtx && ctx.Err() != nil {
		return ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
	f.final = p
	return nil
}

func (f *fakeJobRepo) RequestCancel(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = true
	return nil
}

func (f *fakeJobRepo) CancelRequested(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancelled, nil
}

type memWriter struct {
	mu   sync.Mutex
	keys []string
}

func (m *memWriter) Write(ctx context.Context, key string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, key)
	return key, nil
}

func TestQueueWorkerEmptyQueue(t *testing.T) {
	w := NewQueueWorker(QueueOptions{Repo: &fakeJobRepo{}, Synthesizer: &stubSynth{}})
	processed, err := w.ProcessNext(context.Background())
	if err != nil || processed {
		t.Fatalf("ProcessNext = %v, %v, want false, nil", processed, err)
	}
}

func TestQueueWorkerProcessesJob(t *testing.T) {
	repo := &fakeJobRepo{}
	id, _ := repo.Enqueue(context.Background(), domain.Job{Mode: domain.ModeCreative, Prompt: "linen dress", Quantity: 3})
	files := &memWriter{}
	w := NewQueueWorker(QueueOptions{Repo: repo, Synthesizer: &stubSynth{}, Files: files, Concurrency: 2})

	processed, err := w.ProcessNext(context.Background())
	if err != nil || !processed {
		t.Fatalf("ProcessNext = %v, %v", processed, err)
	}
	if repo.status != domain.JobStatusSucceeded {
		t.Fatalf("status = %q, want SUCCEEDED", repo.status)
	}
	if repo.final.Completed != 3 || repo.final.Total != 3 || repo.final.Failed != 0 {
		t.Fatalf("final progress = %+v", repo.final)
	}
	if len(repo.progress) != 4 || repo.progress[0].Total != 3 || repo.progress[0].Completed != 0 {
		t.Fatalf("progress updates = %+v", repo.progress)
	}
	if len(repo.outcomes) != 3 || len(files.keys) != 3 {
		t.Fatalf("outcomes = %v, files = %v", repo.outcomes, files.keys)
	}
	for i, key := range repo.outcomes {
		if !strings.HasPrefix(key, "generated/"+id+"/") {
			t.Fatalf("outcome %d storage key = %q", i, key)
		}
	}
}

func TestQueueWorkerPartialFailure(t *testing.T) {
	repo := &fakeJobRepo{}
	repo.Enqueue(context.Background(), domain.Job{Mode: domain.ModeCreative, Prompt: "linen dress", Quantity: 2})
	var calls atomic.Int32
	synth := &stubSynth{fail: func(req image.SynthesisRequest) error {
		if calls.Add(1) == 2 {
			return domain.ErrProviderUnavailable
		}
		return nil
	}}
	w := NewQueueWorker(QueueOptions{Repo: repo, Synthesizer: synth})
	if _, err := w.ProcessNext(context.Background()); err != nil {
		t.Fatalf("ProcessNext error: %v", err)
	}
	if repo.final.Completed != 2 || repo.final.Failed != 1 {
		t.Fatalf("final progress = %+v", repo.final)
	}
	if repo.status != domain.JobStatusPartial {
		t.Fatalf("status = %q, want PARTIAL", repo.status)
	}
}

func TestQueueWorkerInvalidJobFails(t *testing.T) {
	repo := &fakeJobRepo{}
	repo.Enqueue(context.Background(), domain.Job{Mode: domain.ModePlanting, Prompt: "x"})
	synth := &stubSynth{}
	w := NewQueueWorker(QueueOptions{Repo: repo, Synthesizer: synth})
	if _, err := w.ProcessNext(context.Background()); err != nil {
		t.Fatalf("ProcessNext error: %v", err)
	}
	if repo.status != domain.JobStatusFailed {
		t.Fatalf("status = %q, want FAILED", repo.status)
	}
	if len(synth.requests) != 0 {
		t.Fatalf("synthesizer called %d times for an invalid job", len(synth.requests))
	}
}

func TestQueueWorkerRunStopsOnContext(t *testing.T) {
	w := NewQueueWorker(QueueOptions{Repo: &fakeJobRepo{}, Synthesizer: &stubSynth{}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
}

func TestQueueWorkerShutdownKeepsInFlightResults(t *testing.T) {
	repo := &fakeJobRepo{honorCtx: true}
	repo.Enqueue(context.Background(), domain.Job{Mode: domain.ModeCreative, Prompt: "linen dress", Quantity: 4})
	files := &memWriter{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var calls atomic.Int32
	synth := &stubSynth{fail: func(req image.SynthesisRequest) error {
		if calls.Add(1) == 1 {
			cancel()
		}
		return nil
	}}
	w := NewQueueWorker(QueueOptions{Repo: repo, Synthesizer: synth, Files: files, Concurrency: 2})

	if _, err := w.ProcessNext(ctx); err != nil {
		t.Fatalf("ProcessNext error: %v", err)
	}
	if repo.status == domain.JobStatusFailed || repo.status == "" {
		t.Fatalf("status = %q, want CANCELLED or SUCCEEDED", repo.status)
	}
	if repo.final.Completed < 2 || repo.final.Failed != 0 {
		t.Fatalf("final progress = %+v", repo.final)
	}
	if repo.status == domain.JobStatusCancelled && repo.final.Completed == repo.final.Total {
		t.Fatalf("cancelled job resolved every task: %+v", repo.final)
	}
	if len(repo.outcomes) != repo.final.Completed || len(files.keys) != repo.final.Completed {
		t.Fatalf("outcomes = %v, files = %v, completed = %d", repo.outcomes, files.keys, repo.final.Completed)
	}
	for i, key := range repo.outcomes {
		if key == "" || strings.HasPrefix(key, "error: ") {
			t.Fatalf("outcome %d = %q, want a storage key", i, key)
		}
	}
	if len(repo.progress) < 2 {
		t.Fatalf("progress updates dropped after shutdown: %+v", repo.progress)
	}
}
