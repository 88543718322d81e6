package timectrl

import (
	"context"
	"fmt"
	"time"
)

// Mode describes how the FramePacer advances simulation frames.
type Mode int

const (
	// RealTime paces frames against wall-clock time at the configured fps.
	RealTime Mode = iota
	// Accelerated runs frames as quickly as the loop can execute them.
	Accelerated
)

// FramePacer drives a frame-stepped simulation loop and notifies registered
// listeners after each frame. The step callback owns the per-frame work; the
// pacer owns timing and cancellation.
type FramePacer struct {
	interval  time.Duration
	mode      Mode
	listeners []func(int)
}

// NewFramePacer constructs a pacer for the given frame rate.
func NewFramePacer(fps int, mode Mode) (*FramePacer, error) {
	if fps <= 0 {
		return nil, fmt.Errorf("frame pacer: fps must be positive, got %d", fps)
	}
	return &FramePacer{
		interval: time.Second / time.Duration(fps),
		mode:     mode,
	}, nil
}

// Interval returns the wall-clock duration of one frame in real-time mode.
func (p *FramePacer) Interval() time.Duration {
	return p.interval
}

// AddListener registers a callback invoked with the frame index after every
// completed frame.
func (p *FramePacer) AddListener(fn func(frame int)) {
	p.listeners = append(p.listeners, fn)
}

// Run executes up to maxFrames frames, calling step for each one. The loop
// stops early when step returns false or an error, or when ctx is cancelled.
// A maxFrames of zero or less means no frame limit.
func (p *FramePacer) Run(ctx context.Context, maxFrames int, step func(frame int) (bool, error)) error {
	var ticker *time.Ticker
	if p.mode == RealTime {
		ticker = time.NewTicker(p.interval)
		defer ticker.Stop()
	}

	for frame := 0; maxFrames <= 0 || frame < maxFrames; frame++ {
		if ticker != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		cont, err := step(frame)
		if err != nil {
			return fmt.Errorf("frame %d: %w", frame, err)
		}
		for _, fn := range p.listeners {
			fn(frame)
		}
		if !cont {
			return nil
		}
	}
	return nil
}
