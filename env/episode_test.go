package env

import (
	"context"
	"image"
	"math"
	"testing"

	"github.com/aeroviewlabs/droneview-simulator/core"
)

func newTestKit(t *testing.T) (*core.Simulator, FrameSource) {
	t.Helper()
	frameSize := image.Point{X: 192, Y: 108}
	sim, err := core.NewSimulator(frameSize, image.Point{X: 48, Y: 27}, 50, 30)
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}
	source, err := NewSyntheticSource(frameSize, 16)
	if err != nil {
		t.Fatalf("NewSyntheticSource: %v", err)
	}
	return sim, source
}

func TestNewEpisode_Validation(t *testing.T) {
	sim, source := newTestKit(t)

	if _, err := NewEpisode(nil, source); err == nil {
		t.Fatal("expected error for nil simulator")
	}
	if _, err := NewEpisode(sim, nil); err == nil {
		t.Fatal("expected error for nil frame source")
	}

	mismatched, err := NewSyntheticSource(image.Point{X: 64, Y: 64}, 8)
	if err != nil {
		t.Fatalf("NewSyntheticSource: %v", err)
	}
	if _, err := NewEpisode(sim, mismatched); err == nil {
		t.Fatal("expected error for frame size mismatch")
	}
}

func TestEpisode_ResetReturnsFirstObservation(t *testing.T) {
	sim, source := newTestKit(t)
	ep, err := NewEpisode(sim, source)
	if err != nil {
		t.Fatalf("NewEpisode: %v", err)
	}

	res, err := ep.Reset(context.Background(), Fixed(0, 0, 30, 0))
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if got := res.View.Bounds().Size(); got != (image.Point{X: 48, Y: 27}) {
		t.Fatalf("observation size = %v, want 48x27", got)
	}
	if math.Abs(res.Pose.Position.Z-30) > 0.1 {
		t.Fatalf("initial z = %g, want ~30", res.Pose.Position.Z)
	}
	if ep.Steps() != 0 {
		t.Fatalf("Steps after Reset = %d, want 0", ep.Steps())
	}
}

func TestEpisode_HoverRunsWithoutTermination(t *testing.T) {
	sim, source := newTestKit(t)
	ep, err := NewEpisode(sim, source)
	if err != nil {
		t.Fatalf("NewEpisode: %v", err)
	}
	if _, err := ep.Reset(context.Background(), Fixed(0, 0, 30, 0)); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	for i := 0; i < 60; i++ {
		_, terminated, err := ep.Step(context.Background(), Action{})
		if err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
		if terminated {
			t.Fatalf("hover terminated at step %d", i)
		}
	}
	if ep.Steps() != 60 {
		t.Fatalf("Steps = %d, want 60", ep.Steps())
	}
}

func TestEpisode_TerminatesBelowFloor(t *testing.T) {
	sim, source := newTestKit(t)
	ep, err := NewEpisode(sim, source)
	if err != nil {
		t.Fatalf("NewEpisode: %v", err)
	}
	if _, err := ep.Reset(context.Background(), Fixed(0, 0, 3, 0)); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	terminated := false
	for i := 0; i < 120 && !terminated; i++ {
		// Half-throttle descent.
		_, terminated, err = ep.Step(context.Background(), Action{Thrust: -0.5})
		if err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
	}
	if !terminated {
		t.Fatal("descent never terminated")
	}
	if _, _, err := ep.Step(context.Background(), Action{}); err == nil {
		t.Fatal("expected error stepping a terminated episode")
	}
}

func TestEpisode_TerminatesOnStepBudget(t *testing.T) {
	sim, source := newTestKit(t)
	ep, err := NewEpisode(sim, source, WithMaxSteps(5))
	if err != nil {
		t.Fatalf("NewEpisode: %v", err)
	}
	if _, err := ep.Reset(context.Background(), Fixed(0, 0, 30, 0)); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	for i := 0; i < 4; i++ {
		if _, terminated, err := ep.Step(context.Background(), Action{}); err != nil || terminated {
			t.Fatalf("Step %d: terminated=%v err=%v", i, terminated, err)
		}
	}
	if _, terminated, err := ep.Step(context.Background(), Action{}); err != nil || !terminated {
		t.Fatalf("final step: terminated=%v err=%v, want termination", terminated, err)
	}
}

func TestEpisode_SeededSpawnIsDeterministicAndInBounds(t *testing.T) {
	limX, limY := FootprintLimits(50)

	spawnOnce := func(seed int64) core.PoseState {
		sim, source := newTestKit(t)
		ep, err := NewEpisode(sim, source, WithSeed(seed))
		if err != nil {
			t.Fatalf("NewEpisode: %v", err)
		}
		res, err := ep.Reset(context.Background(), Spawn{})
		if err != nil {
			t.Fatalf("Reset: %v", err)
		}
		return res.Pose
	}

	first := spawnOnce(7)
	second := spawnOnce(7)
	if first.Position != second.Position {
		t.Fatalf("same seed spawned %+v and %+v", first.Position, second.Position)
	}

	for seed := int64(0); seed < 20; seed++ {
		pose := spawnOnce(seed)
		if math.Abs(pose.Position.X) > limX || math.Abs(pose.Position.Y) > limY {
			t.Fatalf("seed %d spawned out of bounds: %+v (limits %g, %g)", seed, pose.Position, limX, limY)
		}
		if pose.Position.Z < 19 || pose.Position.Z > 50 {
			t.Fatalf("seed %d spawned at altitude %g", seed, pose.Position.Z)
		}
	}
}
