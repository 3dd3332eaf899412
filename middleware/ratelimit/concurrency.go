package ratelimit

import (
	"errors"
	"net/http"
	"time"

	"waitlist-gateway/middleware/ratelimit/application"
	"waitlist-gateway/middleware/ratelimit/domain"
	"waitlist-gateway/middleware/ratelimit/infra"

	"github.com/rs/zerolog"
)

type ConcurrencyOptions struct {
	// Max <= 0 desliga o limite (a menos que Pool venha pronto).
	Max            int
	Pool           domain.SlotPool
	AcquireTimeout time.Duration
	RejectStatus   int
	// Reject substitui a resposta padrão (texto simples com RejectStatus).
	Reject http.HandlerFunc
	// OnChange recebe o número de vagas ocupadas a cada entrada e saída.
	OnChange func(inUse int)
	Logger   zerolog.Logger
}

func ConcurrencyMiddleware(opts ConcurrencyOptions) func(next http.Handler) http.Handler {
	if opts.Pool == nil {
		if opts.Max <= 0 {
			return func(next http.Handler) http.Handler { return next }
		}
		opts.Pool = infra.NewSlots(opts.Max)
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusServiceUnavailable
	}
	if opts.Reject == nil {
		status := opts.RejectStatus
		opts.Reject = func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, http.StatusText(status), status)
		}
	}

	svc := application.ConcurrencyService{
		Pool:           opts.Pool,
		AcquireTimeout: opts.AcquireTimeout,
	}
	changed := func() {
		if opts.OnChange != nil {
			opts.OnChange(opts.Pool.InUse())
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			release, err := svc.Acquire(r.Context())
			if err != nil {
				// cliente foi embora: não há para quem responder
				if !errors.Is(err, domain.ErrNoSlot) {
					return
				}
				opts.Logger.Warn().Err(err).Str("path", r.URL.Path).Msg("concurrency limit reached")
				opts.Reject(w, r)
				return
			}
			changed()
			defer func() {
				release()
				changed()
			}()

			next.ServeHTTP(w, r)
		})
	}
}
