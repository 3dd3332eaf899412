package infra

import (
	"context"
	"sync"
	"time"

	"waitlist-gateway/middleware/ratelimit/domain"
)

// Limite padrão das inscrições na waitlist: 5 requisições a cada 15 minutos por IP.
const (
	DefaultWindowLimit = 5
	DefaultWindow      = 15 * time.Minute
)

// WindowStore implementa janela fixa em memória.
//
// Não há goroutine de limpeza: registros expirados só são descartados quando a
// mesma chave volta a ser consultada. Com muitos IPs distintos o mapa cresce
// sem limite, então não é indicada para produção com vários processos; nesse
// caso use RedisWindowStore.
type WindowStore struct {
	mu      sync.Mutex
	entries map[string]*windowRecord
	limit   int
	window  time.Duration
	now     func() time.Time
}

type windowRecord struct {
	count   int
	resetAt time.Time
}

type WindowOption func(*WindowStore)

// WithClock troca o relógio (testes).
func WithClock(now func() time.Time) WindowOption {
	return func(s *WindowStore) { s.now = now }
}

func NewWindowStore(limit int, window time.Duration, opts ...WindowOption) *WindowStore {
	if limit <= 0 {
		limit = DefaultWindowLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	s := &WindowStore{
		entries: make(map[string]*windowRecord),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *WindowStore) Limit() int             { return s.limit }
func (s *WindowStore) Window() time.Duration { return s.window }

// Take implementa domain.LimiterStore.
func (s *WindowStore) Take(_ context.Context, key domain.Key) (domain.Decision, error) {
	now := s.now()
	k := string(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.entries[k]
	if ok && now.After(rec.resetAt) {
		delete(s.entries, k)
		ok = false
	}

	if !ok {
		rec = &windowRecord{count: 1, resetAt: now.Add(s.window)}
		s.entries[k] = rec
		return domain.Decision{Allowed: true, Limit: s.limit, Remaining: s.limit - 1, ResetAt: rec.resetAt}, nil
	}

	if rec.count >= s.limit {
		return domain.Decision{Allowed: false, Limit: s.limit, Remaining: 0, ResetAt: rec.resetAt}, nil
	}

	rec.count++
	return domain.Decision{Allowed: true, Limit: s.limit, Remaining: s.limit - rec.count, ResetAt: rec.resetAt}, nil
}

// Len devolve quantas chaves estão no mapa, incluindo as já expiradas que
// ainda não foram consultadas de novo.
func (s *WindowStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
