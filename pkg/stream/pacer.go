package stream

import (
	"context"
	"time"
)

// Pacer throttles the loop toward a fixed interval between iteration starts.
// It never sleeps a negative amount and never tries to catch up.
type Pacer struct {
	Interval time.Duration

	// Now and Sleep default to the wall clock.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

func NewPacer(interval time.Duration) *Pacer {
	return &Pacer{Interval: interval}
}

func (p *Pacer) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// Remaining is how long to wait before the next iteration that began at start.
func (p *Pacer) Remaining(start time.Time) time.Duration {
	d := p.Interval - p.now().Sub(start)
	if d < 0 {
		return 0
	}
	return d
}

// Wait blocks for the remainder of the interval, or until ctx is done.
func (p *Pacer) Wait(ctx context.Context, start time.Time) error {
	d := p.Remaining(start)
	if d == 0 {
		return ctx.Err()
	}
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	return sleepContext(ctx, d)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
