package engine

import (
	"context"
	"sync"
	"time"
)

// Driver schedules ticks. The engine requests exactly one tick at a time
// and asks for the next one only after the current tick has finished.
type Driver interface {
	RequestTick(fn func(now time.Time))
}

// TickerDriver runs ticks on wall-clock time, one interval apart.
type TickerDriver struct {
	ctx      context.Context
	interval time.Duration

	mu   sync.Mutex
	last time.Time
}

// NewTickerDriver creates a driver that stops scheduling when ctx is done.
func NewTickerDriver(ctx context.Context, interval time.Duration) *TickerDriver {
	return &TickerDriver{ctx: ctx, interval: interval}
}

// RequestTick schedules fn one interval after the previous tick started.
func (d *TickerDriver) RequestTick(fn func(now time.Time)) {
	if d.ctx.Err() != nil {
		return
	}

	d.mu.Lock()
	delay := d.interval
	if !d.last.IsZero() {
		delay -= time.Since(d.last)
	}
	d.mu.Unlock()
	if delay < 0 {
		delay = 0
	}

	time.AfterFunc(delay, func() {
		if d.ctx.Err() != nil {
			return
		}
		now := time.Now()
		d.mu.Lock()
		d.last = now
		d.mu.Unlock()
		fn(now)
	})
}

// ManualDriver queues tick requests until the caller steps it.
type ManualDriver struct {
	mu      sync.Mutex
	pending []func(time.Time)
}

// NewManualDriver creates an empty ManualDriver.
func NewManualDriver() *ManualDriver {
	return &ManualDriver{}
}

// RequestTick implements Driver.
func (d *ManualDriver) RequestTick(fn func(now time.Time)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = append(d.pending, fn)
}

// Step runs the queued requests with now and reports whether any ran.
// Requests made while stepping wait for the next Step.
func (d *ManualDriver) Step(now time.Time) bool {
	d.mu.Lock()
	pending := d.pending
	d.pending = nil
	d.mu.Unlock()

	for _, fn := range pending {
		fn(now)
	}
	return len(pending) > 0
}

// Pending returns the number of queued requests.
func (d *ManualDriver) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
