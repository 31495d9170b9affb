package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestIntervalFirstRequestPasses(t *testing.T) {
	iv := NewInterval(time.Hour)
	if !iv.Allow() {
		t.Fatal("expected first request to pass")
	}
	if iv.Allow() {
		t.Error("expected second request inside the gap to be refused")
	}
	iv.Reset()
	if !iv.Allow() {
		t.Error("expected request after reset to pass")
	}
}

func TestIntervalWaitUsesClock(t *testing.T) {
	base := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	now := base
	iv := NewInterval(2 * time.Second)
	iv.now = func() time.Time { return now }

	if !iv.Allow() {
		t.Fatal("expected first request to pass")
	}
	now = base.Add(1500 * time.Millisecond)
	if iv.Allow() {
		t.Error("expected refusal at 1.5s")
	}
	now = base.Add(2 * time.Second)
	if err := iv.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestIntervalWaitCancelled(t *testing.T) {
	iv := NewInterval(time.Hour)
	iv.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := iv.Wait(ctx); err != context.DeadlineExceeded {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestSlidingWindow(t *testing.T) {
	sw := NewSlidingWindow(3, 200*time.Millisecond)

	for i := 0; i < 3; i++ {
		if !sw.Allow() {
			t.Errorf("expected request %d to be allowed", i+1)
		}
	}
	if sw.Allow() {
		t.Error("expected fourth request to be refused")
	}

	start := time.Now()
	if err := sw.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if waited := time.Since(start); waited < 100*time.Millisecond {
		t.Errorf("expected to wait for the window to slide, waited %v", waited)
	}

	sw.Reset()
	if !sw.Allow() {
		t.Error("expected request after reset to be allowed")
	}
}

func TestNew(t *testing.T) {
	if _, ok := New(0, 0).(Unlimited); !ok {
		t.Error("expected Unlimited when nothing is configured")
	}
	if _, ok := New(time.Second, 0).(*Interval); !ok {
		t.Error("expected a bare Interval")
	}
	if _, ok := New(0, 10).(*SlidingWindow); !ok {
		t.Error("expected a bare SlidingWindow")
	}
	c, ok := New(time.Second, 10).(Chain)
	if !ok || len(c) != 2 {
		t.Fatalf("expected a two-part chain, got %T", New(time.Second, 10))
	}
	if !c.Allow() {
		t.Error("expected first chained request to pass")
	}
	if c.Allow() {
		t.Error("expected interval to refuse the second request")
	}
}

func TestUnlimitedRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := (Unlimited{}).Wait(ctx); err != context.Canceled {
		t.Errorf("expected canceled, got %v", err)
	}
}
