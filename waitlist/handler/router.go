package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/hlog"
)

type RouterOptions struct {
	// AllowedOrigins vazio libera qualquer origem.
	AllowedOrigins []string
	// Middlewares rodam depois de Recover/RequestID/CORS e antes das rotas
	// (guarda global, limite de concorrência).
	Middlewares []func(http.Handler) http.Handler
	// Metrics expõe /metrics.
	Metrics bool
}

func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(Recover(h.log))
	r.Use(middleware.RequestID)
	r.Use(hlog.NewHandler(h.log))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
		hlog.FromRequest(r).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", middleware.GetReqID(r.Context())).
			Int("status", status).
			Int("size", size).
			Dur("duration", d).
			Msg("request")
	}))

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		MaxAge:         300,
	}))

	r.NotFound(notFound)
	r.MethodNotAllowed(methodNotAllowed)

	if opts.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Group(func(r chi.Router) {
		for _, mw := range opts.Middlewares {
			r.Use(mw)
		}
		r.Post("/api/waitlist", h.Signup)
		r.Get("/api/waitlist", h.Health)
	})

	return r
}
