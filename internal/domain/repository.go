package domain

import "context"

// OutcomeRecord is the persisted form of a TaskOutcome.
type OutcomeRecord struct {
	Index      int    `json:"index"`
	LayerName  string `json:"layer_name"`
	Succeeded  bool   `json:"succeeded"`
	StorageKey string `json:"storage_key,omitempty"`
	Model      string `json:"model,omitempty"`
	Tier       Tier   `json:"tier,omitempty"`
	Error      string `json:"error,omitempty"`
}

// JobRepository persists queued jobs and their per-task outcomes.
type JobRepository interface {
	Enqueue(ctx context.Context, job Job) (string, error)
	Claim(ctx context.Context) (JobRecord, error)
	Get(ctx context.Context, id string) (JobRecord, error)
	UpdateProgress(ctx context.Context, id string, progress BatchProgress) error
	RecordOutcome(ctx context.Context, jobID string, outcome TaskOutcome, storageKey string) error
	Outcomes(ctx context.Context, jobID string) ([]OutcomeRecord, error)
	Finish(ctx context.Context, id string, status JobStatus, progress BatchProgress) error
	RequestCancel(ctx context.Context, id string) error
	CancelRequested(ctx context.Context, id string) (bool, error)
}
