package infra

import (
	"context"
	"sync"
	"testing"
	"time"

	"waitlist-gateway/middleware/ratelimit/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func TestWindowStore_SixthRequestIsRejected(t *testing.T) {
	clk := newClock()
	s := NewWindowStore(5, 15*time.Minute, WithClock(clk.Now))
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		dec, err := s.Take(ctx, "1.2.3.4")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !dec.Allowed {
			t.Fatalf("request %d: expected allowed", i)
		}
		if dec.Remaining != 5-i {
			t.Fatalf("request %d: expected remaining=%d, got %d", i, 5-i, dec.Remaining)
		}
		if dec.Limit != 5 {
			t.Fatalf("expected limit=5, got %d", dec.Limit)
		}
	}

	dec, _ := s.Take(ctx, "1.2.3.4")
	if dec.Allowed {
		t.Fatalf("expected 6th request to be rejected")
	}
	if dec.Remaining != 0 {
		t.Fatalf("expected remaining=0, got %d", dec.Remaining)
	}
	if want := clk.Now().Add(15 * time.Minute); !dec.ResetAt.Equal(want) {
		t.Fatalf("expected resetAt=%s, got %s", want, dec.ResetAt)
	}
}

func TestWindowStore_RejectedRequestDoesNotMoveWindow(t *testing.T) {
	clk := newClock()
	s := NewWindowStore(1, time.Minute, WithClock(clk.Now))
	ctx := context.Background()

	first, _ := s.Take(ctx, "k")
	clk.Advance(30 * time.Second)
	blocked, _ := s.Take(ctx, "k")

	if blocked.Allowed {
		t.Fatalf("expected blocked")
	}
	if !blocked.ResetAt.Equal(first.ResetAt) {
		t.Fatalf("expected resetAt to stay %s, got %s", first.ResetAt, blocked.ResetAt)
	}
}

func TestWindowStore_RestartsCountAfterReset(t *testing.T) {
	clk := newClock()
	s := NewWindowStore(5, 15*time.Minute, WithClock(clk.Now))
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		_, _ = s.Take(ctx, "k")
	}

	// exatamente no reset ainda vale a janela antiga (now > resetAt é estrito)
	clk.Advance(15 * time.Minute)
	if dec, _ := s.Take(ctx, "k"); dec.Allowed {
		t.Fatalf("expected still blocked exactly at resetAt")
	}

	clk.Advance(time.Millisecond)
	dec, _ := s.Take(ctx, "k")
	if !dec.Allowed {
		t.Fatalf("expected allowed after reset")
	}
	if dec.Remaining != 4 {
		t.Fatalf("expected count to restart at 1 (remaining=4), got remaining=%d", dec.Remaining)
	}
}

func TestWindowStore_KeysAreIndependent(t *testing.T) {
	s := NewWindowStore(1, time.Minute)
	ctx := context.Background()

	if dec, _ := s.Take(ctx, "a"); !dec.Allowed {
		t.Fatalf("expected a allowed")
	}
	if dec, _ := s.Take(ctx, "b"); !dec.Allowed {
		t.Fatalf("expected b allowed")
	}
	if dec, _ := s.Take(ctx, domain.Unknown); !dec.Allowed {
		t.Fatalf("expected unknown allowed")
	}
	if s.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", s.Len())
	}
}

func TestWindowStore_ExpiredEntriesAreReapedOnlyOnAccess(t *testing.T) {
	clk := newClock()
	s := NewWindowStore(5, time.Minute, WithClock(clk.Now))
	ctx := context.Background()

	_, _ = s.Take(ctx, "a")
	_, _ = s.Take(ctx, "b")
	clk.Advance(2 * time.Minute)

	if s.Len() != 2 {
		t.Fatalf("expected expired entries to stay until accessed, got %d", s.Len())
	}
	_, _ = s.Take(ctx, "a")
	if s.Len() != 2 {
		t.Fatalf("expected a to be replaced, got %d entries", s.Len())
	}
}

func TestWindowStore_ConcurrentTakesNeverExceedLimit(t *testing.T) {
	s := NewWindowStore(5, time.Minute)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dec, _ := s.Take(ctx, "same")
			if dec.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 5 {
		t.Fatalf("expected exactly 5 allowed, got %d", allowed)
	}
}

func TestNewWindowStore_Defaults(t *testing.T) {
	s := NewWindowStore(0, 0)
	if s.Limit() != DefaultWindowLimit || s.Window() != DefaultWindow {
		t.Fatalf("expected defaults, got limit=%d window=%s", s.Limit(), s.Window())
	}
}
