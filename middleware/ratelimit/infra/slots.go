package infra

import (
	"context"
	"sync"
	"sync/atomic"
)

// Slots é um semáforo sobre channel com contagem de vagas ocupadas.
type Slots struct {
	sem   chan struct{}
	inUse atomic.Int64
}

func NewSlots(max int) *Slots {
	if max < 1 {
		max = 1
	}
	return &Slots{sem: make(chan struct{}, max)}
}

func (s *Slots) Acquire(ctx context.Context) (func(), error) {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return func() {}, ctx.Err()
	}
	s.inUse.Add(1)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.inUse.Add(-1)
			<-s.sem
		})
	}, nil
}

func (s *Slots) InUse() int { return int(s.inUse.Load()) }
func (s *Slots) Cap() int   { return cap(s.sem) }
