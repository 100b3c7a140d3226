package embedding

import (
	"context"
	"sync"
	"time"
)

const DefaultPacingInterval = 50 * time.Millisecond

// Pacer enforces a minimum gap between the end of one call and the start of
// the next. Calls through one Pacer are serialized; share a single instance
// among all workers that hit the same upstream.
type Pacer struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewPacer(interval time.Duration) *Pacer {
	if interval < 0 {
		interval = 0
	}
	return &Pacer{
		interval: interval,
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

func (p *Pacer) Interval() time.Duration {
	return p.interval
}

// Do waits out the remaining interval, runs fn, and records its end time.
// The wait aborts when ctx is cancelled; fn is then not called.
func (p *Pacer) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.last.IsZero() {
		if wait := p.interval - p.now().Sub(p.last); wait > 0 {
			if err := p.sleep(ctx, wait); err != nil {
				return err
			}
		}
	}

	err := fn(ctx)
	p.last = p.now()
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
