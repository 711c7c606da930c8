package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"studio/internal/http/handlers"
	"studio/internal/infra"
	"studio/internal/middleware"
)

// Options configures the router's middleware.
type Options struct {
	Logger          infra.Logger
	DefaultLocale   string
	CountryLookup   middleware.CountryLookup
	CORSOrigins     []string
	RateLimitPerMin int
	// StaticDir is served under /static when set.
	StaticDir string
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.CORSOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
	)

	limit := func(next http.Handler) http.Handler { return next }
	if opts.RateLimitPerMin > 0 {
		limit = middleware.RateLimit(opts.RateLimitPerMin, time.Minute)
	}

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/openapi.json", app.OpenAPIJSON)
	r.Get("/v1/docs", app.OpenAPIDocs)
	r.Get("/v1/presets", app.Presets)

	r.Route("/v1/batch", func(r chi.Router) {
		r.Post("/plan", app.BatchPlan)
		r.With(limit).Post("/", app.BatchSubmit)
		r.Get("/{job_id}", app.BatchStatus)
		r.Post("/{job_id}/cancel", app.BatchCancel)
	})

	r.Route("/v1/queue", func(r chi.Router) {
		r.With(limit).Post("/", app.QueueEnqueue)
		r.Get("/{job_id}", app.QueueStatus)
		r.Post("/{job_id}/cancel", app.QueueCancel)
	})

	r.Route("/v1/agent/conversations", func(r chi.Router) {
		r.Post("/", app.AgentOpen)
		r.Get("/{conversation_id}", app.AgentGet)
		r.Delete("/{conversation_id}", app.AgentDelete)
		r.With(limit).Post("/{conversation_id}/messages", app.AgentSend)
		r.Post("/{conversation_id}/cancel", app.AgentCancel)
		r.Post("/{conversation_id}/reset", app.AgentReset)
	})

	r.Route("/v1/canvas", func(r chi.Router) {
		r.Get("/", app.CanvasGet)
		r.Delete("/", app.CanvasClear)
		r.Post("/selection", app.CanvasSelect)
		r.Delete("/layers/{layer_id}", app.CanvasRemoveLayer)
		r.Get("/export", app.CanvasExport)
	})

	r.With(limit).Post("/v1/prompts/enhance", app.PromptEnhance)
	r.With(limit).Post("/v1/images/analyze", app.ImageAnalyze)

	r.Route("/v1/auth/signal", func(r chi.Router) {
		r.Get("/", app.AuthSignalState)
		r.Delete("/", app.AuthSignalClear)
		r.Get("/stream", app.AuthSignalStream)
	})

	if dir := strings.TrimSpace(opts.StaticDir); dir != "" {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(dir))))
	}
	return r
}
