package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"studio/internal/agent"
	"studio/internal/domain"
	"studio/internal/middleware"
)

type agentMessageRequest struct {
	Text  string           `json:"text"`
	Image *domain.ImageRef `json:"image,omitempty"`
	// Wait runs the turn inside the request instead of in the background.
	Wait bool `json:"wait,omitempty"`
}

// AgentOpen creates a conversation bound to the request locale.
func (a *App) AgentOpen(w http.ResponseWriter, r *http.Request) {
	conv := a.Agents.Open("", middleware.LocaleFromContext(r.Context()))
	a.json(w, http.StatusCreated, conv.Snapshot())
}

func (a *App) conversation(w http.ResponseWriter, r *http.Request) (*agent.Conversation, bool) {
	conv, err := a.Agents.Get(chi.URLParam(r, "conversation_id"))
	if err != nil {
		a.fail(w, r, err)
		return nil, false
	}
	return conv, true
}

// AgentSend submits one user message. The turn outlives the request unless
// wait is set.
func (a *App) AgentSend(w http.ResponseWriter, r *http.Request) {
	conv, ok := a.conversation(w, r)
	if !ok {
		return
	}
	var req agentMessageRequest
	if !a.decode(w, r, &req) {
		return
	}
	sub := agent.Submission{Text: req.Text, Image: req.Image}
	if req.Wait {
		if _, err := conv.Submit(r.Context(), sub); err != nil {
			a.fail(w, r, err)
			return
		}
		a.json(w, http.StatusOK, conv.Snapshot())
		return
	}
	if err := conv.Start(context.WithoutCancel(r.Context()), sub); err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusAccepted, conv.Snapshot())
}

func (a *App) AgentGet(w http.ResponseWriter, r *http.Request) {
	conv, ok := a.conversation(w, r)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, conv.Snapshot())
}

// AgentCancel halts the running turn before its next tool call.
func (a *App) AgentCancel(w http.ResponseWriter, r *http.Request) {
	conv, ok := a.conversation(w, r)
	if !ok {
		return
	}
	conv.Cancel()
	a.json(w, http.StatusAccepted, conv.Snapshot())
}

// AgentReset clears history and returns the conversation to its configured
// tier.
func (a *App) AgentReset(w http.ResponseWriter, r *http.Request) {
	conv, ok := a.conversation(w, r)
	if !ok {
		return
	}
	if err := conv.Reset(); err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, conv.Snapshot())
}

func (a *App) AgentDelete(w http.ResponseWriter, r *http.Request) {
	if err := a.Agents.Delete(chi.URLParam(r, "conversation_id")); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
