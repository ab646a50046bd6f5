package processor

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Backoff paces reconnect attempts using a token bucket whose refill
// interval doubles after every wait, up to max
type Backoff struct {
	limiter *rate.Limiter
	initial time.Duration
	max     time.Duration
	current time.Duration
	mu      sync.Mutex
}

// NewBackoff creates a backoff whose first wait lasts initial
func NewBackoff(initial, max time.Duration) *Backoff {
	if initial <= 0 {
		initial = time.Second
	}
	if max < initial {
		max = initial
	}

	limiter := rate.NewLimiter(rate.Every(initial), 1)
	// drain the burst token so the first attempt waits a full interval
	limiter.Allow()

	return &Backoff{
		limiter: limiter,
		initial: initial,
		max:     max,
		current: initial,
	}
}

// Wait blocks until the next attempt is allowed. It fails immediately if
// ctx would expire before then.
func (b *Backoff) Wait(ctx context.Context) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	next := b.current * 2
	if next > b.max {
		next = b.max
	}
	b.current = next
	b.limiter.SetLimit(rate.Every(next))
	return nil
}

// Current returns the interval the next wait is paced at
func (b *Backoff) Current() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.current
}

// Reset restores the initial interval
func (b *Backoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.current = b.initial
	b.limiter.SetLimit(rate.Every(b.initial))
}
