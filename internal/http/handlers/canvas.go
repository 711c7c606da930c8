package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"studio/internal/canvas"
	"studio/internal/domain"
)

type canvasResponse struct {
	Size     domain.CanvasSize `json:"size"`
	Layers   []domain.Layer    `json:"layers"`
	Selected []string          `json:"selected"`
}

func (a *App) CanvasGet(w http.ResponseWriter, r *http.Request) {
	layers, err := a.Canvas.Layers(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, canvasResponse{Size: a.Canvas.CanvasSize(), Layers: layers, Selected: a.Canvas.Selected()})
}

type selectRequest struct {
	IDs []string `json:"ids"`
}

func (a *App) CanvasSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if !a.decode(w, r, &req) {
		return
	}
	if err := a.Canvas.SelectLayers(r.Context(), req.IDs); err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"selected": a.Canvas.Selected()})
}

func (a *App) CanvasRemoveLayer(w http.ResponseWriter, r *http.Request) {
	if err := a.Canvas.Remove(r.Context(), chi.URLParam(r, "layer_id")); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) CanvasClear(w http.ResponseWriter, r *http.Request) {
	a.Canvas.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// CanvasExport streams a zip of the image layers. ?ids=a,b limits the set.
func (a *App) CanvasExport(w http.ResponseWriter, r *http.Request) {
	var ids []string
	if raw := strings.TrimSpace(r.URL.Query().Get("ids")); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	archive, n, err := canvas.Export(r.Context(), a.Canvas, a.Files, ids)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=canvas-%s.zip", time.Now().UTC().Format("20060102-150405")))
	w.Header().Set("X-Asset-Count", strconv.Itoa(n))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}
