package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"studio/internal/domain"
	"studio/internal/middleware"
)

type queuedJobResponse struct {
	ID        string                 `json:"id"`
	Mode      domain.WorkflowMode    `json:"mode"`
	Status    domain.JobStatus       `json:"status"`
	Progress  domain.BatchProgress   `json:"progress"`
	Cancel    bool                   `json:"cancel_requested"`
	Outcomes  []domain.OutcomeRecord `json:"outcomes"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

func (a *App) queueAvailable(w http.ResponseWriter) bool {
	if a.Jobs == nil {
		a.error(w, http.StatusServiceUnavailable, "queue_unavailable", "job queue requires DATABASE_URL")
		return false
	}
	return true
}

// QueueEnqueue validates a job and persists it for the worker.
func (a *App) QueueEnqueue(w http.ResponseWriter, r *http.Request) {
	if !a.queueAvailable(w) {
		return
	}
	plan, ok := a.planJob(w, r)
	if !ok {
		return
	}
	if plan.NeedsConfirmation && !plan.Job.Confirmed {
		a.json(w, http.StatusConflict, newPlanResponse(plan, middleware.LocaleFromContext(r.Context())))
		return
	}
	id, err := a.Jobs.Enqueue(r.Context(), plan.Job)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusAccepted, map[string]any{
		"job_id": id,
		"status": domain.JobStatusQueued,
		"tasks":  len(plan.Tasks),
	})
}

func (a *App) QueueStatus(w http.ResponseWriter, r *http.Request) {
	if !a.queueAvailable(w) {
		return
	}
	id := chi.URLParam(r, "job_id")
	rec, err := a.Jobs.Get(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	outcomes, err := a.Jobs.Outcomes(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, queuedJobResponse{
		ID:        rec.ID,
		Mode:      rec.Job.Mode,
		Status:    rec.Status,
		Progress:  rec.Progress,
		Cancel:    rec.CancelRequested,
		Outcomes:  outcomes,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	})
}

// QueueCancel marks a job for cancellation. Queued jobs never start; running
// jobs stop at the next chunk boundary.
func (a *App) QueueCancel(w http.ResponseWriter, r *http.Request) {
	if !a.queueAvailable(w) {
		return
	}
	if err := a.Jobs.RequestCancel(r.Context(), chi.URLParam(r, "job_id")); err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusAccepted, map[string]string{"status": "cancel_requested"})
}
