package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/sqlinline"
)

// JobRepositoryPG implements domain.JobRepository.
type JobRepositoryPG struct {
	db infra.SQLExecutor
}

// NewJobRepository creates a job repository over a marker-checked executor.
func NewJobRepository(db infra.SQLExecutor) *JobRepositoryPG {
	return &JobRepositoryPG{db: db}
}

// EnsureSchema creates the generation tables when missing.
func (r *JobRepositoryPG) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, sqlinline.QEnsureGenerationSchema)
	return err
}

// Enqueue stores job as QUEUED. An empty id is assigned.
func (r *JobRepositoryPG) Enqueue(ctx context.Context, job domain.Job) (string, error) {
	if strings.TrimSpace(job.ID) == "" {
		job.ID = uuid.NewString()
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("repo: encode job: %w", err)
	}
	var id string
	if err := r.db.QueryRow(ctx, sqlinline.QEnqueueGenerationJob, job.ID, string(job.Mode), payload).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

// Claim locks the oldest queued job and marks it RUNNING. Returns
// domain.ErrNotFound when the queue is empty.
func (r *JobRepositoryPG) Claim(ctx context.Context) (domain.JobRecord, error) {
	return r.scanRecord(r.db.QueryRow(ctx, sqlinline.QClaimGenerationJob))
}

func (r *JobRepositoryPG) Get(ctx context.Context, id string) (domain.JobRecord, error) {
	return r.scanRecord(r.db.QueryRow(ctx, sqlinline.QGetGenerationJob, id))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *JobRepositoryPG) scanRecord(row rowScanner) (domain.JobRecord, error) {
	var (
		rec     domain.JobRecord
		status  string
		payload []byte
	)
	if err := row.Scan(
		&rec.ID,
		&status,
		&payload,
		&rec.Progress.Total,
		&rec.Progress.Completed,
		&rec.Progress.Failed,
		&rec.CancelRequested,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		if infra.IsNoRows(err) {
			return domain.JobRecord{}, domain.ErrNotFound
		}
		return domain.JobRecord{}, err
	}
	rec.Status = domain.JobStatus(status)
	if err := json.Unmarshal(payload, &rec.Job); err != nil {
		return domain.JobRecord{}, fmt.Errorf("repo: decode job %s: %w", rec.ID, err)
	}
	rec.Job.ID = rec.ID
	return rec, nil
}

func (r *JobRepositoryPG) UpdateProgress(ctx context.Context, id string, p domain.BatchProgress) error {
	_, err := r.db.Exec(ctx, sqlinline.QUpdateGenerationProgress, id, p.Total, p.Completed, p.Failed)
	return err
}

// RecordOutcome upserts one task result keyed by submission index.
func (r *JobRepositoryPG) RecordOutcome(ctx context.Context, jobID string, o domain.TaskOutcome, storageKey string) error {
	var model, tier string
	if o.Asset != nil {
		model = o.Asset.Model
		tier = string(o.Asset.Tier)
	}
	_, err := r.db.Exec(ctx, sqlinline.QRecordTaskOutcome,
		jobID,
		o.Index,
		o.LayerName,
		o.OK(),
		storageKey,
		model,
		tier,
		o.Reason(),
	)
	return err
}

func (r *JobRepositoryPG) Outcomes(ctx context.Context, jobID string) ([]domain.OutcomeRecord, error) {
	rows, err := r.db.Query(ctx, sqlinline.QListTaskOutcomes, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.OutcomeRecord
	for rows.Next() {
		var (
			rec  domain.OutcomeRecord
			tier string
		)
		if err := rows.Scan(&rec.Index, &rec.LayerName, &rec.Succeeded, &rec.StorageKey, &rec.Model, &tier, &rec.Error); err != nil {
			return nil, err
		}
		rec.Tier = domain.Tier(tier)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *JobRepositoryPG) Finish(ctx context.Context, id string, status domain.JobStatus, p domain.BatchProgress) error {
	_, err := r.db.Exec(ctx, sqlinline.QFinishGenerationJob, id, string(status), p.Total, p.Completed, p.Failed)
	return err
}

// RequestCancel flags a job; a job still QUEUED becomes CANCELLED directly.
func (r *JobRepositoryPG) RequestCancel(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, sqlinline.QRequestGenerationCancel, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *JobRepositoryPG) CancelRequested(ctx context.Context, id string) (bool, error) {
	var requested bool
	if err := r.db.QueryRow(ctx, sqlinline.QGenerationCancelRequested, id).Scan(&requested); err != nil {
		if infra.IsNoRows(err) {
			return false, domain.ErrNotFound
		}
		return false, err
	}
	return requested, nil
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)
