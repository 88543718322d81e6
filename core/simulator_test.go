package core

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func newTestSimulator(t *testing.T) *Simulator {
	t.Helper()
	sim, err := NewSimulator(image.Point{X: 200, Y: 112}, image.Point{X: 40, Y: 24}, 50, 30)
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}
	return sim
}

func TestSimulator_StepBeforeResetFails(t *testing.T) {
	sim := newTestSimulator(t)
	frame := uniformFrame(200, 112, color.RGBA{A: 255})
	if _, err := sim.Step(0, 0, 0, 0, frame); err != ErrNotReset {
		t.Fatalf("expected ErrNotReset, got %v", err)
	}
}

func TestSimulator_StepReturnsViewCornersAndPose(t *testing.T) {
	sim := newTestSimulator(t)
	frame := uniformFrame(200, 112, color.RGBA{R: 120, G: 80, B: 40, A: 255})
	sim.Reset(0, 0, 25, 0)

	res, err := sim.Step(0, 0, 0, 0, frame)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if got := res.View.Bounds().Size(); got != (image.Point{X: 40, Y: 24}) {
		t.Fatalf("view size = %v, want 40x24", got)
	}
	if math.Abs(res.Pose.Position.Z-25) > 0.1 {
		t.Fatalf("pose z = %g, want ~25", res.Pose.Position.Z)
	}
	if res.HeadingDeg != 0 {
		t.Fatalf("heading = %g, want 0", res.HeadingDeg)
	}
	// Hovering at half the reference altitude: the footprint spans half the
	// frame, centred.
	if res.Corners[0] != (image.Point{X: 50, Y: 28}) {
		t.Fatalf("top-left corner = %v, want (50, 28)", res.Corners[0])
	}
}

// The projector sees the negated heading. A positive yaw therefore rotates
// the returned footprint corners clockwise in source pixel coordinates,
// opposite the body's yaw direction.
func TestSimulator_ProjectionUsesNegatedHeading(t *testing.T) {
	sim := newTestSimulator(t)
	frame := uniformFrame(200, 112, color.RGBA{A: 255})

	sim.Reset(0, 0, 25, 0)
	// One step at +30°/s yaw rate: body heading +1°, camera angle −1°.
	res, err := sim.Step(0, 0, 30, 0, frame)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if math.Abs(res.HeadingDeg-1) > 1e-9 {
		t.Fatalf("heading = %g, want 1", res.HeadingDeg)
	}

	// At −1° the top-left corner (50, 28) lands at (49, 28); a +1° camera
	// angle would give (50, 27) instead.
	if res.Corners[0] != (image.Point{X: 49, Y: 28}) {
		t.Fatalf("top-left corner = %v, want (49, 28)", res.Corners[0])
	}
}

func TestSimulator_ResetRestartsTickListeners(t *testing.T) {
	sim := newTestSimulator(t)
	frame := uniformFrame(200, 112, color.RGBA{A: 255})

	var ticks []int
	sim.RegisterTickListener(func(tick int) { ticks = append(ticks, tick) })

	sim.Reset(0, 0, 25, 0)
	for i := 0; i < 3; i++ {
		if _, err := sim.Step(0, 0, 0, 0, frame); err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
	}
	sim.Reset(0, 0, 25, 0)
	if _, err := sim.Step(0, 0, 0, 0, frame); err != nil {
		t.Fatalf("Step after reset: %v", err)
	}

	want := []int{0, 1, 2, 0}
	if len(ticks) != len(want) {
		t.Fatalf("listener saw %v, want %v", ticks, want)
	}
	for i := range want {
		if ticks[i] != want[i] {
			t.Fatalf("listener saw %v, want %v", ticks, want)
		}
	}
}

func TestSimulator_InvalidConfiguration(t *testing.T) {
	if _, err := NewSimulator(image.Point{X: 200, Y: 112}, image.Point{X: 40, Y: 24}, -1, 30); err == nil {
		t.Fatal("expected error for negative reference altitude")
	}
	if _, err := NewSimulator(image.Point{X: 200, Y: 112}, image.Point{X: 40, Y: 24}, 50, 0); err == nil {
		t.Fatal("expected error for zero fps")
	}
}
