package handlers

import "net/http"

// Presets returns the preset catalog the workflow modes resolve ids against.
func (a *App) Presets(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, a.Catalog)
}
