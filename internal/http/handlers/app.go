package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"studio/internal/agent"
	"studio/internal/app"
	"studio/internal/authsignal"
	"studio/internal/batch"
	"studio/internal/canvas"
	"studio/internal/domain"
	"studio/internal/i18n"
	"studio/internal/infra"
	"studio/internal/middleware"
	"studio/internal/presets"
	"studio/internal/providers/prompt"
)

// App holds the collaborators every handler reaches. Jobs is nil when the
// API runs without a database.
type App struct {
	Runner   *batch.Runner
	Tracker  *batch.Tracker
	Agents   *agent.Registry
	Canvas   *canvas.Store
	Files    canvas.AssetReader
	Enhancer prompt.Enhancer
	Signal   *authsignal.Signal
	Catalog  *presets.Catalog
	Jobs     domain.JobRepository
	Logger   *infra.Logger
}

func NewApp(s *app.Services) *App {
	a := &App{
		Runner:   s.Runner,
		Tracker:  s.Tracker,
		Agents:   s.Agents,
		Canvas:   s.Canvas,
		Files:    s.Files,
		Enhancer: s.Enhancer,
		Signal:   s.Signal,
		Catalog:  s.Catalog,
		Logger:   s.Logger,
	}
	if s.Jobs != nil {
		a.Jobs = s.Jobs
	}
	return a
}

func (a *App) logger() *infra.Logger {
	if a.Logger == nil {
		a.Logger = infra.NopLogger()
	}
	return a.Logger
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, errorResponse{Error: errCode, Message: message})
}

func (a *App) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return false
	}
	return true
}

// fail maps a domain error to a status code and a localized message.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	locale := middleware.LocaleFromContext(r.Context())
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		msg := i18n.T(locale, verr.Key)
		if msg == verr.Key {
			msg = verr.Message
		}
		a.error(w, http.StatusBadRequest, "invalid", msg)
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", i18n.T(locale, "error.not_found"))
	case errors.Is(err, domain.ErrConfirmationRequired):
		a.error(w, http.StatusConflict, "confirmation_required", err.Error())
	case errors.Is(err, domain.ErrBusy):
		a.error(w, http.StatusConflict, "busy", i18n.T(locale, "agent.busy"))
	case errors.Is(err, domain.ErrAuthDenied):
		a.error(w, http.StatusUnauthorized, "auth_required", i18n.T(locale, "alert.auth_required"))
	case errors.Is(err, domain.ErrRateLimited):
		a.error(w, http.StatusTooManyRequests, "rate_limited", i18n.T(locale, "error.rate_limited"))
	case errors.Is(err, domain.ErrProviderUnavailable):
		a.error(w, http.StatusServiceUnavailable, "unavailable", i18n.T(locale, "error.unavailable"))
	default:
		log := zerolog.Ctx(r.Context())
		if log.GetLevel() == zerolog.Disabled {
			log = a.logger()
		}
		log.Error().Err(err).Str("path", r.URL.Path).Msg("http: request failed")
		a.error(w, http.StatusInternalServerError, "internal", i18n.T(locale, "error.internal"))
	}
}
