package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter paces outgoing requests.
type Limiter interface {
	// Allow takes a slot if one is free right now.
	Allow() bool
	// Wait blocks until a slot is free or ctx is done.
	Wait(ctx context.Context) error
	Reset()
}

// New returns the limiter used between downloads: a fixed minimum gap of
// delay plus a cap of perMinute requests in any sliding minute. Either part
// is skipped when its value is not positive.
func New(delay time.Duration, perMinute int) Limiter {
	var parts []Limiter
	if delay > 0 {
		parts = append(parts, NewInterval(delay))
	}
	if perMinute > 0 {
		parts = append(parts, NewSlidingWindow(perMinute, time.Minute))
	}
	switch len(parts) {
	case 0:
		return Unlimited{}
	case 1:
		return parts[0]
	}
	return Chain(parts)
}

// Interval enforces a minimum gap between consecutive requests. The first
// request passes immediately.
type Interval struct {
	gap  time.Duration
	last time.Time
	mu   sync.Mutex
	now  func() time.Time
}

func NewInterval(gap time.Duration) *Interval {
	return &Interval{gap: gap, now: time.Now}
}

func (iv *Interval) Allow() bool {
	iv.mu.Lock()
	defer iv.mu.Unlock()

	now := iv.now()
	if !iv.last.IsZero() && now.Sub(iv.last) < iv.gap {
		return false
	}
	iv.last = now
	return true
}

func (iv *Interval) Wait(ctx context.Context) error {
	for {
		if iv.Allow() {
			return nil
		}
		iv.mu.Lock()
		remaining := iv.gap - iv.now().Sub(iv.last)
		iv.mu.Unlock()

		if err := sleep(ctx, remaining); err != nil {
			return err
		}
	}
}

func (iv *Interval) Reset() {
	iv.mu.Lock()
	defer iv.mu.Unlock()
	iv.last = time.Time{}
}

// SlidingWindow allows at most maxRequests in any window of windowSize.
type SlidingWindow struct {
	windowSize  time.Duration
	maxRequests int
	requests    []time.Time
	mu          sync.Mutex
}

func NewSlidingWindow(maxRequests int, windowSize time.Duration) *SlidingWindow {
	return &SlidingWindow{
		windowSize:  windowSize,
		maxRequests: maxRequests,
		requests:    make([]time.Time, 0, maxRequests),
	}
}

func (sw *SlidingWindow) Allow() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := time.Now()
	sw.evict(now)
	if len(sw.requests) < sw.maxRequests {
		sw.requests = append(sw.requests, now)
		return true
	}
	return false
}

func (sw *SlidingWindow) Wait(ctx context.Context) error {
	for !sw.Allow() {
		sw.mu.Lock()
		wait := 100 * time.Millisecond
		if len(sw.requests) > 0 {
			wait = sw.windowSize - time.Since(sw.requests[0])
		}
		sw.mu.Unlock()

		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
	return nil
}

func (sw *SlidingWindow) Reset() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.requests = sw.requests[:0]
}

// evict drops timestamps that fell out of the window. Caller holds mu.
func (sw *SlidingWindow) evict(now time.Time) {
	cutoff := now.Add(-sw.windowSize)
	i := 0
	for i < len(sw.requests) && !sw.requests[i].After(cutoff) {
		i++
	}
	if i > 0 {
		sw.requests = append(sw.requests[:0], sw.requests[i:]...)
	}
}

// Chain waits on every limiter in order.
type Chain []Limiter

func (c Chain) Allow() bool {
	for _, l := range c {
		if !l.Allow() {
			return false
		}
	}
	return true
}

func (c Chain) Wait(ctx context.Context) error {
	for _, l := range c {
		if err := l.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (c Chain) Reset() {
	for _, l := range c {
		l.Reset()
	}
}

// Unlimited never blocks.
type Unlimited struct{}

func (Unlimited) Allow() bool                    { return true }
func (Unlimited) Wait(ctx context.Context) error { return ctx.Err() }
func (Unlimited) Reset()                         {}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		d = time.Millisecond
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
