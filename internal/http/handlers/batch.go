package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"studio/internal/batch"
	"studio/internal/domain"
	"studio/internal/i18n"
	"studio/internal/middleware"
)

type planResponse struct {
	JobID             string              `json:"job_id"`
	Mode              domain.WorkflowMode `json:"mode"`
	Tasks             int                 `json:"tasks"`
	Threshold         int                 `json:"threshold"`
	NeedsConfirmation bool                `json:"needs_confirmation"`
	Message           string              `json:"message,omitempty"`
	LayerNames        []string            `json:"layer_names"`
}

func (a *App) planJob(w http.ResponseWriter, r *http.Request) (batch.Plan, bool) {
	var job domain.Job
	if !a.decode(w, r, &job) {
		return batch.Plan{}, false
	}
	if mode, ok := domain.ParseWorkflowMode(string(job.Mode)); ok {
		job.Mode = mode
	}
	plan, err := a.Runner.Plan(job)
	if err != nil {
		a.fail(w, r, err)
		return batch.Plan{}, false
	}
	return plan, true
}

func newPlanResponse(plan batch.Plan, locale string) planResponse {
	resp := planResponse{
		JobID:             plan.Job.ID,
		Mode:              plan.Job.Mode,
		Tasks:             len(plan.Tasks),
		Threshold:         plan.Threshold,
		NeedsConfirmation: plan.NeedsConfirmation,
		LayerNames:        make([]string, len(plan.Tasks)),
	}
	for i, t := range plan.Tasks {
		resp.LayerNames[i] = t.LayerName
	}
	if plan.NeedsConfirmation {
		resp.Message = i18n.T(locale, "batch.confirm", len(plan.Tasks))
	}
	return resp
}

// BatchPlan expands a job without running it.
func (a *App) BatchPlan(w http.ResponseWriter, r *http.Request) {
	plan, ok := a.planJob(w, r)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, newPlanResponse(plan, middleware.LocaleFromContext(r.Context())))
}

// BatchSubmit starts a job on the shared canvas. Oversized plans are refused
// with 409 until resubmitted with confirmed=true.
func (a *App) BatchSubmit(w http.ResponseWriter, r *http.Request) {
	plan, ok := a.planJob(w, r)
	if !ok {
		return
	}
	snap, err := a.Tracker.Submit(plan)
	if err != nil {
		if errors.Is(err, domain.ErrConfirmationRequired) {
			a.json(w, http.StatusConflict, newPlanResponse(plan, middleware.LocaleFromContext(r.Context())))
			return
		}
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusAccepted, snap)
}

func (a *App) BatchStatus(w http.ResponseWriter, r *http.Request) {
	snap, err := a.Tracker.Get(chi.URLParam(r, "job_id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, snap)
}

// BatchCancel stops a job after its running chunk.
func (a *App) BatchCancel(w http.ResponseWriter, r *http.Request) {
	snap, err := a.Tracker.Cancel(chi.URLParam(r, "job_id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusAccepted, snap)
}
