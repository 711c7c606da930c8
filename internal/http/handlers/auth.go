package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
)

func (a *App) AuthSignalState(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, a.Signal.State())
}

// AuthSignalClear acknowledges that the user selected a new key.
func (a *App) AuthSignalClear(w http.ResponseWriter, r *http.Request) {
	a.Signal.Clear()
	a.json(w, http.StatusOK, a.Signal.State())
}

// AuthSignalStream pushes the current state and every transition as
// server-sent events until the client disconnects.
func (a *App) AuthSignalStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		a.error(w, http.StatusInternalServerError, "internal", "streaming unsupported")
		return
	}
	ch, cancel := a.Signal.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	send := func(v any) bool {
		data, err := json.Marshal(v)
		if err != nil {
			return false
		}
		if _, err := fmt.Fprintf(w, "event: auth\ndata: %s\n\n", data); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}
	if !send(a.Signal.State()) {
		return
	}
	for {
		select {
		case <-r.Context().Done():
			return
		case state, open := <-ch:
			if !open || !send(state) {
				return
			}
		}
	}
}
