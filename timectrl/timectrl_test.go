package timectrl

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewFramePacer_InvalidFPS(t *testing.T) {
	if _, err := NewFramePacer(0, Accelerated); err == nil {
		t.Fatal("expected error for fps=0")
	}
}

func TestFramePacer_RunsRequestedFrames(t *testing.T) {
	p, err := NewFramePacer(30, Accelerated)
	if err != nil {
		t.Fatalf("NewFramePacer: %v", err)
	}

	var frames []int
	p.AddListener(func(frame int) { frames = append(frames, frame) })

	steps := 0
	err = p.Run(context.Background(), 5, func(frame int) (bool, error) {
		if frame != steps {
			t.Fatalf("step saw frame %d, want %d", frame, steps)
		}
		steps++
		return true, nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if steps != 5 || len(frames) != 5 {
		t.Fatalf("ran %d steps, notified %d listeners, want 5 each", steps, len(frames))
	}
}

func TestFramePacer_StepCanStopEarly(t *testing.T) {
	p, err := NewFramePacer(30, Accelerated)
	if err != nil {
		t.Fatalf("NewFramePacer: %v", err)
	}
	steps := 0
	err = p.Run(context.Background(), 100, func(frame int) (bool, error) {
		steps++
		return frame < 2, nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if steps != 3 {
		t.Fatalf("ran %d steps, want 3", steps)
	}
}

func TestFramePacer_StepErrorStopsRun(t *testing.T) {
	p, err := NewFramePacer(30, Accelerated)
	if err != nil {
		t.Fatalf("NewFramePacer: %v", err)
	}
	boom := errors.New("boom")
	err = p.Run(context.Background(), 10, func(frame int) (bool, error) {
		if frame == 1 {
			return false, boom
		}
		return true, nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Run error = %v, want wrapped boom", err)
	}
}

func TestFramePacer_RealTimePacing(t *testing.T) {
	p, err := NewFramePacer(100, RealTime)
	if err != nil {
		t.Fatalf("NewFramePacer: %v", err)
	}
	if p.Interval() != 10*time.Millisecond {
		t.Fatalf("interval = %v, want 10ms", p.Interval())
	}

	start := time.Now()
	err = p.Run(context.Background(), 3, func(frame int) (bool, error) { return true, nil })
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Fatalf("3 frames at 100fps finished in %v, want >= 25ms", elapsed)
	}
}

func TestFramePacer_ContextCancellation(t *testing.T) {
	p, err := NewFramePacer(10, RealTime)
	if err != nil {
		t.Fatalf("NewFramePacer: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = p.Run(ctx, 0, func(frame int) (bool, error) { return true, nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
}
