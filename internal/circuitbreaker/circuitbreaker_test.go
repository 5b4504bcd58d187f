package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

var errBackend = errors.New("backend down")

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestBreaker(cfg Config) (*Breaker, *fakeClock) {
	clk := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	b := New("test", cfg)
	b.now = clk.Now
	return b, clk
}

func TestClosedPassesThrough(t *testing.T) {
	b, _ := newTestBreaker(Config{})

	called := false
	if err := b.Execute(func() error { called = true; return nil }); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !called {
		t.Fatal("wrapped call was not invoked")
	}
	if b.State() != StateClosed {
		t.Fatalf("state = %s, want closed", b.State())
	}
}

func TestOpensAfterConsecutiveFailures(t *testing.T) {
	b, _ := newTestBreaker(Config{FailureThreshold: 3, Cooldown: 10 * time.Second})

	for i := 0; i < 2; i++ {
		b.Execute(func() error { return errBackend })
	}
	if b.State() != StateClosed {
		t.Fatalf("state after 2 failures = %s, want closed", b.State())
	}

	b.Execute(func() error { return errBackend })
	if b.State() != StateOpen {
		t.Fatalf("state after 3 failures = %s, want open", b.State())
	}

	called := false
	err := b.Execute(func() error { called = true; return nil })
	if !errors.Is(err, ErrOpen) {
		t.Fatalf("Execute while open = %v, want ErrOpen", err)
	}
	if called {
		t.Fatal("wrapped call invoked while open")
	}
}

func TestSuccessResetsFailureStreak(t *testing.T) {
	b, _ := newTestBreaker(Config{FailureThreshold: 3})

	b.Execute(func() error { return errBackend })
	b.Execute(func() error { return errBackend })
	b.Execute(func() error { return nil })
	b.Execute(func() error { return errBackend })
	b.Execute(func() error { return errBackend })

	if b.State() != StateClosed {
		t.Fatalf("state = %s, want closed after streak reset", b.State())
	}
}

func TestProbesAfterCooldown(t *testing.T) {
	b, clk := newTestBreaker(Config{FailureThreshold: 1, Cooldown: 10 * time.Second, ProbeSuccesses: 2})

	b.Execute(func() error { return errBackend })
	if b.State() != StateOpen {
		t.Fatalf("state = %s, want open", b.State())
	}

	clk.Advance(11 * time.Second)

	// First probe goes through and succeeds; one more and it closes.
	called := false
	if err := b.Execute(func() error { called = true; return nil }); err != nil {
		t.Fatalf("probe Execute: %v", err)
	}
	if !called {
		t.Fatal("probe not invoked after cooldown")
	}
	if b.State() != StateHalfOpen {
		t.Fatalf("state after 1 probe success = %s, want half-open", b.State())
	}

	b.Execute(func() error { return nil })
	if b.State() != StateClosed {
		t.Fatalf("state after 2 probe successes = %s, want closed", b.State())
	}
}

func TestProbeFailureReopens(t *testing.T) {
	b, clk := newTestBreaker(Config{FailureThreshold: 1, Cooldown: 10 * time.Second, ProbeSuccesses: 2})

	b.Execute(func() error { return errBackend })
	clk.Advance(11 * time.Second)

	b.Execute(func() error { return errBackend })
	if b.State() != StateOpen {
		t.Fatalf("state after probe failure = %s, want open", b.State())
	}
	if err := b.Execute(func() error { return nil }); !errors.Is(err, ErrOpen) {
		t.Fatalf("Execute after reopen = %v, want ErrOpen", err)
	}
}

func TestContextErrorsDoNotCount(t *testing.T) {
	b, _ := newTestBreaker(Config{FailureThreshold: 2})

	for i := 0; i < 10; i++ {
		b.Execute(func() error { return context.DeadlineExceeded })
	}
	if b.State() != StateClosed {
		t.Fatalf("state = %s, want closed; cancellations must not trip the breaker", b.State())
	}

	if err := b.Execute(func() error { return context.Canceled }); !errors.Is(err, context.Canceled) {
		t.Fatalf("Execute = %v, want context.Canceled passed through", err)
	}
}

func TestResetForceCloses(t *testing.T) {
	b, _ := newTestBreaker(Config{FailureThreshold: 1})

	b.Execute(func() error { return errBackend })
	if b.State() != StateOpen {
		t.Fatalf("state = %s, want open", b.State())
	}

	b.Reset()
	if b.State() != StateClosed {
		t.Fatalf("state after reset = %s, want closed", b.State())
	}
	called := false
	b.Execute(func() error { called = true; return nil })
	if !called {
		t.Fatal("wrapped call not invoked after reset")
	}
}

func TestConcurrentExecute(t *testing.T) {
	b, _ := newTestBreaker(Config{FailureThreshold: 1000})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b.Execute(func() error {
					if j%4 == 0 {
						return errBackend
					}
					return nil
				})
			}
		}(i)
	}
	wg.Wait()

	if s := b.State(); s != StateClosed && s != StateOpen && s != StateHalfOpen {
		t.Fatalf("invalid state after concurrent use: %s", s)
	}
}
