package infra

import (
	"context"
	"sync"
	"time"

	"waitlist-gateway/middleware/ratelimit/domain"

	"golang.org/x/time/rate"
)

// BucketStore é um token bucket (x/time/rate) por chave, com limpeza periódica
// de chaves inativas. Serve de guarda contra rajadas na frente de todas as rotas.
type BucketStore struct {
	mu           sync.Mutex
	entries      map[string]*bucketEntry
	rps          rate.Limit
	burst        int
	idleTTL      time.Duration
	cleanupEvery time.Duration
}

type bucketEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

type BucketOption func(*BucketStore)

func WithIdleTTL(d time.Duration) BucketOption {
	return func(s *BucketStore) { s.idleTTL = d }
}

func WithCleanupEvery(d time.Duration) BucketOption {
	return func(s *BucketStore) { s.cleanupEvery = d }
}

func NewBucketStore(rps float64, burst int, opts ...BucketOption) *BucketStore {
	s := &BucketStore{
		entries:      make(map[string]*bucketEntry),
		rps:          rate.Limit(rps),
		burst:        burst,
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *BucketStore) RPS() float64 { return float64(s.rps) }
func (s *BucketStore) Burst() int   { return s.burst }

// Take implementa domain.LimiterStore.
func (s *BucketStore) Take(_ context.Context, key domain.Key) (domain.Decision, error) {
	now := time.Now()
	lim := s.limiter(string(key), now)

	allowed := lim.AllowN(now, 1)
	tokens := lim.TokensAt(now)

	dec := domain.Decision{Allowed: allowed, Limit: s.burst}
	if tokens > 0 {
		dec.Remaining = int(tokens)
	}
	if !allowed && s.rps > 0 && s.rps != rate.Inf {
		// tempo até acumular um token inteiro
		wait := time.Duration((1 - tokens) / float64(s.rps) * float64(time.Second))
		dec.ResetAt = now.Add(wait)
	}
	return dec, nil
}

func (s *BucketStore) limiter(key string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ent, ok := s.entries[key]; ok {
		ent.lastSeen = now
		return ent.lim
	}

	lim := rate.NewLimiter(s.rps, s.burst)
	s.entries[key] = &bucketEntry{lim: lim, lastSeen: now}
	return lim
}

func (s *BucketStore) Cleanup() {
	cutoff := time.Now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, ent := range s.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(s.entries, k)
		}
	}
}

func (s *BucketStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// StartJanitor inicia uma goroutine que limpa chaves inativas periodicamente.
// Pare cancelando o contexto.
func (s *BucketStore) StartJanitor(ctx context.Context) {
	if s.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Cleanup()
			}
		}
	}()
}
