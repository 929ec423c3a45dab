package ratelimit

import (
	"testing"
	"time"
)

// fakeClock lets tests advance time manually.
type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestLimiter(rate int, window time.Duration) (*Limiter, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	l := New(rate, window)
	l.now = clock.now
	return l, clock
}

func TestLimiter_AllowUpToRate(t *testing.T) {
	l, _ := newTestLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !l.Allow("10.0.0.1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if l.Allow("10.0.0.1") {
		t.Fatal("request over the rate should be rejected")
	}
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(1, time.Minute)

	if !l.Allow("10.0.0.1") {
		t.Fatal("first key should be allowed")
	}
	if l.Allow("10.0.0.1") {
		t.Fatal("first key should now be exhausted")
	}
	if !l.Allow("10.0.0.2") {
		t.Fatal("second key should have its own bucket")
	}
}

func TestLimiter_RefillOverTime(t *testing.T) {
	l, clock := newTestLimiter(2, time.Minute)

	l.Allow("k")
	l.Allow("k")
	if l.Allow("k") {
		t.Fatal("bucket should be empty")
	}

	// Half the window refills half the bucket: one token.
	clock.advance(30 * time.Second)
	if !l.Allow("k") {
		t.Fatal("expected one token after partial refill")
	}
	if l.Allow("k") {
		t.Fatal("only one token should have refilled")
	}
}

func TestLimiter_RefillCapsAtRate(t *testing.T) {
	l, clock := newTestLimiter(2, time.Minute)

	l.Allow("k")
	clock.advance(10 * time.Minute)

	// A long idle period must not bank extra tokens.
	for i := 0; i < 2; i++ {
		if !l.Allow("k") {
			t.Fatalf("request %d should be allowed after full refill", i+1)
		}
	}
	if l.Allow("k") {
		t.Fatal("tokens must cap at the configured rate")
	}
}

func TestLimiter_Status(t *testing.T) {
	l, clock := newTestLimiter(5, time.Minute)

	limit, remaining, resetAt := l.Status("k")
	if limit != 5 {
		t.Errorf("expected limit 5, got %d", limit)
	}
	if remaining != 5 {
		t.Errorf("expected remaining 5, got %d", remaining)
	}
	if !resetAt.Equal(clock.t) {
		t.Errorf("full bucket should reset now, got %v", resetAt)
	}

	l.Allow("k")
	l.Allow("k")

	_, remaining, resetAt = l.Status("k")
	if remaining != 3 {
		t.Errorf("expected remaining 3, got %d", remaining)
	}
	if !resetAt.After(clock.t) {
		t.Error("depleted bucket should reset in the future")
	}
}
