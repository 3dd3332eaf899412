package application

import (
	"context"
	"time"

	"waitlist-gateway/middleware/ratelimit/domain"
)

// Service concentra a regra de aplicação do rate limit.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão.
type Service struct {
	Store      domain.LimiterStore
	RetryAfter time.Duration

	// Now é injetável para testes.
	Now func() time.Time
}

// Decide consome uma unidade da cota de key.
//
// Se a store falhar a decisão é "permitido" (fail open) e o erro volta para o
// chamador registrar; um Redis fora do ar não pode derrubar as inscrições.
func (s Service) Decide(ctx context.Context, key domain.Key) (domain.Decision, error) {
	if s.Store == nil {
		return domain.Decision{Allowed: true}, nil
	}
	if s.RetryAfter <= 0 {
		s.RetryAfter = 1 * time.Second
	}
	if s.Now == nil {
		s.Now = time.Now
	}
	if key == "" {
		key = domain.Unknown
	}

	dec, err := s.Store.Take(ctx, key)
	if err != nil {
		return domain.Decision{Allowed: true}, err
	}
	if dec.Allowed {
		dec.RetryAfter = 0
		return dec, nil
	}

	// bloqueado: Retry-After aponta para o fim da janela quando a store sabe
	dec.Remaining = 0
	dec.RetryAfter = s.RetryAfter
	if !dec.ResetAt.IsZero() {
		if d := dec.ResetAt.Sub(s.Now()); d > 0 {
			dec.RetryAfter = d
		}
	}
	return dec, nil
}
