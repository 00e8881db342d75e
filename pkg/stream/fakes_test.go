package stream

import (
	"context"
	"errors"
	"sync"
	"time"
)

type fakeFrame struct {
	data   []byte
	err    error
	closed *int
}

func (f *fakeFrame) JPEG(quality int) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.data, nil
}

func (f *fakeFrame) Close() {
	if f.closed != nil {
		*f.closed++
	}
}

// fakeDevice yields frames until failAfter reads have been served, then
// returns an error. failAfter < 0 never fails.
type fakeDevice struct {
	failAfter    int
	encodeErrAt  int
	readDelay    time.Duration
	clock        *fakeClock
	reads        int
	closes       int
	framesClosed int
	readTimes    []time.Time
	onRead       func(n int)
}

func (d *fakeDevice) Read() (Frame, error) {
	if d.closes > 0 {
		return nil, errors.New("read after close")
	}
	if d.failAfter >= 0 && d.reads >= d.failAfter {
		return nil, errors.New("no frame")
	}
	d.reads++
	if d.clock != nil {
		d.readTimes = append(d.readTimes, d.clock.Now())
		d.clock.Advance(d.readDelay)
	}
	if d.onRead != nil {
		d.onRead(d.reads)
	}

	f := &fakeFrame{data: []byte{0xff, 0xd8, 0xff, 0xe0, byte(d.reads)}, closed: &d.framesClosed}
	if d.encodeErrAt == d.reads {
		f.err = errors.New("encode failed")
	}
	return f, nil
}

func (d *fakeDevice) Close() error {
	d.closes++
	return nil
}

func (d *fakeDevice) opener() OpenFunc {
	return func(index, width, height int) (Device, error) {
		return d, nil
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// pacer returns a Pacer whose sleeps advance the fake clock and are recorded.
func (c *fakeClock) pacer(interval time.Duration, sleeps *[]time.Duration) *Pacer {
	return &Pacer{
		Interval: interval,
		Now:      c.Now,
		Sleep: func(ctx context.Context, d time.Duration) error {
			if sleeps != nil {
				*sleeps = append(*sleeps, d)
			}
			c.Advance(d)
			return ctx.Err()
		},
	}
}

type fakeSender struct {
	errs     []error
	payloads []*Payload
}

func (s *fakeSender) Upload(ctx context.Context, p *Payload) error {
	s.payloads = append(s.payloads, p)
	i := len(s.payloads) - 1
	if i < len(s.errs) {
		return s.errs[i]
	}
	return nil
}

type fakeReporter struct {
	streaming []bool
	uplink    []bool
}

func (r *fakeReporter) SetStreaming(running bool) { r.streaming = append(r.streaming, running) }
func (r *fakeReporter) SetUplink(ok bool)         { r.uplink = append(r.uplink, ok) }
