package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"creativeagent/internal/http/handlers"
	"creativeagent/internal/infra"
	mw "creativeagent/internal/middleware"
)

// Options tunes the outer HTTP surface.
type Options struct {
	Logger          infra.Logger
	AllowedOrigins  []string
	GenerateLimit   int
	GenerateLimitIn time.Duration
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		mw.Logger(opts.Logger),
	)
	if len(opts.AllowedOrigins) > 0 {
		r.Use(mw.CORS(opts.AllowedOrigins))
	}

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/generations/{id}", app.GetGeneration)

	r.Group(func(r chi.Router) {
		if opts.GenerateLimit > 0 {
			per := opts.GenerateLimitIn
			if per <= 0 {
				per = time.Minute
			}
			r.Use(mw.RateLimit(opts.GenerateLimit, per))
		}
		r.Post("/v1/generate", app.Generate)
	})

	return r
}
