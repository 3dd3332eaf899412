package domain

import (
	"context"
	"time"
)

// StatsEvent é uma decisão de rate limit já tomada.
//
// Scope separa o guarda global ("guard") da janela de inscrições ("signup").
// Key é o IP do visitante; só é contado por chave quando a store pede.
type StatsEvent struct {
	Key     Key
	Scope   string
	Allowed bool

	Method string
	Path   string

	At time.Time
}

type Counters struct {
	Allowed int64
	Denied  int64
}

func (c *Counters) Add(allowed bool) {
	if allowed {
		c.Allowed++
		return
	}
	c.Denied++
}

// DenyRate é a fração de decisões negadas (0 sem decisões).
func (c Counters) DenyRate() float64 {
	n := c.Allowed + c.Denied
	if n == 0 {
		return 0
	}
	return float64(c.Denied) / float64(n)
}

// StatsSummary é a visão agregada das decisões. Route usa "<método> <path>".
type StatsSummary struct {
	Total   Counters
	ByScope map[string]Counters
	ByRoute map[string]Counters
}

// StatsStore grava decisões. O chamador trata erro como best-effort: estatística
// nunca derruba uma inscrição.
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}

// StatsReader lê o agregado gravado por uma StatsStore.
type StatsReader interface {
	Summary(ctx context.Context) (StatsSummary, error)
}
