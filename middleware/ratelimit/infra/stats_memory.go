package infra

import (
	"context"
	"maps"
	"sync"

	"waitlist-gateway/middleware/ratelimit/domain"
)

// MemoryStatsStore conta decisões no processo. Sem expiração; serve para
// desenvolvimento e para o resumo impresso no desligamento do serve.
type MemoryStatsStore struct {
	mu      sync.Mutex
	total   domain.Counters
	byScope map[string]domain.Counters
	byRoute map[string]domain.Counters
	byKey   map[string]domain.Counters

	trackKeys bool
}

type MemoryStatsOption func(*MemoryStatsStore)

func WithTrackKeys(track bool) MemoryStatsOption {
	return func(s *MemoryStatsStore) { s.trackKeys = track }
}

func NewMemoryStatsStore(opts ...MemoryStatsOption) *MemoryStatsStore {
	s := &MemoryStatsStore{
		byScope: make(map[string]domain.Counters),
		byRoute: make(map[string]domain.Counters),
		byKey:   make(map[string]domain.Counters),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total.Add(ev.Allowed)
	if ev.Scope != "" {
		bump(s.byScope, ev.Scope, ev.Allowed)
	}
	if route := routeOf(ev); route != "" {
		bump(s.byRoute, route, ev.Allowed)
	}
	if s.trackKeys && ev.Key != "" {
		bump(s.byKey, string(ev.Key), ev.Allowed)
	}
	return nil
}

func (s *MemoryStatsStore) Summary(context.Context) (domain.StatsSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.StatsSummary{
		Total:   s.total,
		ByScope: maps.Clone(s.byScope),
		ByRoute: maps.Clone(s.byRoute),
	}, nil
}

// Key devolve os contadores de um IP (vazio sem WithTrackKeys).
func (s *MemoryStatsStore) Key(k domain.Key) domain.Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byKey[string(k)]
}

func bump(m map[string]domain.Counters, k string, allowed bool) {
	c := m[k]
	c.Add(allowed)
	m[k] = c
}
