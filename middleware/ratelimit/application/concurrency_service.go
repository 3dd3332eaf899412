package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"waitlist-gateway/middleware/ratelimit/domain"
)

// ConcurrencyService aplica o prazo de espera por vaga.
//
// AcquireTimeout <= 0 espera enquanto o ctx da requisição viver.
type ConcurrencyService struct {
	Pool           domain.SlotPool
	AcquireTimeout time.Duration
}

// Acquire devolve release e nil quando conseguiu vaga. Prazo esgotado volta
// domain.ErrNoSlot; cancelamento do chamador volta o erro do ctx.
func (s ConcurrencyService) Acquire(ctx context.Context) (func(), error) {
	if s.Pool == nil {
		return func() {}, nil
	}

	acqCtx := ctx
	if s.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		acqCtx, cancel = context.WithTimeout(ctx, s.AcquireTimeout)
		defer cancel()
	}

	release, err := s.Pool.Acquire(acqCtx)
	if err == nil {
		return release, nil
	}
	if ctx.Err() != nil {
		return func() {}, ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return func() {}, fmt.Errorf("%w: waited %s with %d/%d in use", domain.ErrNoSlot, s.AcquireTimeout, s.Pool.InUse(), s.Pool.Cap())
	}
	return func() {}, err
}
