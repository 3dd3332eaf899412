package ratelimit

import (
	"net/http"
	"time"

	"waitlist-gateway/middleware/ratelimit/application"
	"waitlist-gateway/middleware/ratelimit/domain"

	"github.com/rs/zerolog"
)

// RejectFunc escreve a resposta de bloqueio. Os headers de rate limit já
// foram definidos quando AddRateLimitHeaders está ligado.
type RejectFunc func(w http.ResponseWriter, r *http.Request, dec domain.Decision)

type Options struct {
	Store               domain.LimiterStore
	Stats               domain.StatsStore
	Scope               string
	KeyFn               KeyFunc
	KeyHeader           string
	TrustXForwardedFor  bool
	RejectStatus        int
	Reject              RejectFunc
	RetryAfter          time.Duration
	AddRateLimitHeaders bool
	Logger              zerolog.Logger
}

func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.Store == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusTooManyRequests
	}
	if opts.RetryAfter == 0 {
		opts.RetryAfter = 1 * time.Second
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.KeyHeader, opts.TrustXForwardedFor)
	}
	if opts.Scope == "" {
		opts.Scope = "guard"
	}
	if opts.Reject == nil {
		status := opts.RejectStatus
		opts.Reject = func(w http.ResponseWriter, _ *http.Request, _ domain.Decision) {
			http.Error(w, http.StatusText(status), status)
		}
	}

	svc := application.Service{
		Store:      opts.Store,
		RetryAfter: opts.RetryAfter,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := domain.Key(opts.KeyFn(r))

			dec, err := svc.Decide(r.Context(), key)
			if err != nil {
				opts.Logger.Warn().Err(err).Str("scope", opts.Scope).Msg("rate limit store failed, allowing request")
			}
			Record(r, opts.Stats, opts.Logger, domain.StatsEvent{Key: key, Scope: opts.Scope, Allowed: dec.Allowed})

			if opts.AddRateLimitHeaders {
				SetHeaders(w, dec)
			}
			if !dec.Allowed {
				SetRetryAfter(w, dec)
				opts.Reject(w, r, dec)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Record grava o evento na StatsStore em best-effort, completando método,
// rota e horário a partir da requisição.
func Record(r *http.Request, stats domain.StatsStore, log zerolog.Logger, ev domain.StatsEvent) {
	if stats == nil {
		return
	}
	ev.Method = r.Method
	ev.Path = r.URL.Path
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	if err := stats.Record(r.Context(), ev); err != nil {
		log.Debug().Err(err).Str("scope", ev.Scope).Msg("rate limit stats not recorded")
	}
}
