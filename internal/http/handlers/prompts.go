package handlers

import (
	"net/http"

	"studio/internal/domain"
	"studio/internal/middleware"
	"studio/internal/providers/prompt"
)

type promptEnhanceRequest struct {
	Prompt string `json:"prompt"`
}

type promptEnhanceResponse struct {
	Prompt   string            `json:"prompt"`
	Provider string            `json:"provider"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// PromptEnhance expands a short idea. Provider failures return the input
// unchanged, so only validation errors surface.
func (a *App) PromptEnhance(w http.ResponseWriter, r *http.Request) {
	var req promptEnhanceRequest
	if !a.decode(w, r, &req) {
		return
	}
	res, err := a.Enhancer.Enhance(r.Context(), prompt.EnhanceRequest{
		Prompt: req.Prompt,
		Locale: middleware.LocaleFromContext(r.Context()),
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, promptEnhanceResponse{Prompt: res.Prompt, Provider: res.Provider, Metadata: res.Metadata})
}

type analyzeRequest struct {
	Image domain.ImageRef `json:"image"`
}

// ImageAnalyze describes a reference image as {description, tags}.
func (a *App) ImageAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !a.decode(w, r, &req) {
		return
	}
	res, err := a.Enhancer.Analyze(r.Context(), req.Image)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, res)
}
