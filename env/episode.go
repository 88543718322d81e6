// Package env wraps the simulation kernel in an episode environment: it
// scales normalised control actions into physical inputs, places the drone at
// episode start, supplies source frames, and decides termination against the
// visible-footprint bounds. The kernel itself stays policy-free.
package env

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/aeroviewlabs/droneview-simulator/core"
	"github.com/aeroviewlabs/droneview-simulator/internal/logging"
)

// Control scaling applied to normalised [-1, 1] actions.
const (
	LinearFactorDeg     = 15.0 // roll/pitch range in degrees
	AngularFactorDegS   = 30.0 // yaw rate range in degrees per second
	DefaultMaxSteps     = 3600 // two minutes at 30 fps
	minSpawnAltitude    = 20.0
	maxSpawnAltitude    = 60.0
	floorAltitudeMeters = 2.0
)

// Action is one normalised control input. Each component is expected in
// [-1, 1]; Roll and Pitch scale to degrees of tilt, YawRate to degrees per
// second, and Thrust to newtons around the equilibrium thrust.
type Action struct {
	Roll    float64
	Pitch   float64
	YawRate float64
	Thrust  float64
}

// Episode drives one flight over a frame source, from spawn to termination.
type Episode struct {
	sim      *core.Simulator
	source   FrameSource
	log      logging.Logger
	rng      *rand.Rand
	maxSteps int

	step       int
	terminated bool
}

// EpisodeOption customises an Episode at construction.
type EpisodeOption func(*Episode)

// WithLogger attaches a structured logger; the default drops all logs.
func WithLogger(log logging.Logger) EpisodeOption {
	return func(e *Episode) { e.log = log }
}

// WithMaxSteps overrides the step budget before the episode terminates.
func WithMaxSteps(n int) EpisodeOption {
	return func(e *Episode) { e.maxSteps = n }
}

// WithSeed makes spawn randomisation deterministic.
func WithSeed(seed int64) EpisodeOption {
	return func(e *Episode) { e.rng = rand.New(rand.NewSource(seed)) }
}

// NewEpisode wraps a simulator and a frame source into an episode. The frame
// source must produce frames matching the simulator's configured frame size.
func NewEpisode(sim *core.Simulator, source FrameSource, opts ...EpisodeOption) (*Episode, error) {
	if sim == nil {
		return nil, fmt.Errorf("episode: simulator is nil")
	}
	if source == nil {
		return nil, fmt.Errorf("episode: frame source is nil")
	}
	if got, want := source.Size(), sim.Projector().FrameSize(); got != want {
		return nil, fmt.Errorf("episode: frame source size %v does not match simulator frame size %v", got, want)
	}
	e := &Episode{
		sim:      sim,
		source:   source,
		log:      logging.Noop(),
		maxSteps: DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return e, nil
}

// Spawn pins parts of the episode start state; nil fields are randomised.
type Spawn struct {
	X, Y, Z    *float64
	HeadingDeg *float64
}

// Fixed returns a Spawn with every component pinned.
func Fixed(x, y, z, headingDeg float64) Spawn {
	return Spawn{X: &x, Y: &y, Z: &z, HeadingDeg: &headingDeg}
}

// Reset starts a new episode. Unpinned spawn components are drawn so the
// initial camera footprint lies fully inside the source frame: altitude
// between 20 m and one metre under the reference altitude (capped at 60 m),
// heading uniform in [0, 360), and position inside the reference footprint
// shrunk by the spawned view's own rotated extent. It returns the first
// observation, produced by one zero-action step.
func (e *Episode) Reset(ctx context.Context, spawn Spawn) (core.StepResult, error) {
	refAlt := e.sim.Projector().ReferenceAltitude()

	z := e.spawnAltitude(spawn.Z, refAlt)
	heading := 0.0
	if spawn.HeadingDeg != nil {
		heading = *spawn.HeadingDeg
	} else {
		heading = e.rng.Float64() * 360
	}

	x, y := e.spawnPosition(spawn, z, heading, refAlt)

	e.sim.Reset(x, y, z, heading)
	e.step = 0
	e.terminated = false

	e.log.Info(ctx, "episode reset",
		logging.Float64("x", x),
		logging.Float64("y", y),
		logging.Float64("z", z),
		logging.Float64("heading_deg", heading),
	)

	res, err := e.sim.Step(0, 0, 0, 0, e.source.Frame())
	if err != nil {
		return core.StepResult{}, fmt.Errorf("episode: initial observation: %w", err)
	}
	return res, nil
}

// Step scales the action into physical control inputs and advances one tick.
// The returned flag reports episode termination: either the step budget ran
// out or the drone left the simulation bounds.
func (e *Episode) Step(ctx context.Context, action Action) (core.StepResult, bool, error) {
	if e.terminated {
		return core.StepResult{}, true, fmt.Errorf("episode: step after termination")
	}

	res, err := e.sim.Step(
		action.Roll*LinearFactorDeg,
		action.Pitch*LinearFactorDeg,
		action.YawRate*AngularFactorDegS,
		action.Thrust*e.sim.Dynamics().HoverThrust(),
		e.source.Frame(),
	)
	if err != nil {
		return core.StepResult{}, false, err
	}

	e.step++
	reason := e.terminationReason(res.Pose)
	if reason != "" {
		e.terminated = true
		e.log.Info(ctx, "episode terminated",
			logging.String("reason", reason),
			logging.Int("steps", e.step),
			logging.Float64("z", res.Pose.Position.Z),
		)
	}
	return res, e.terminated, nil
}

// Steps returns the number of steps taken since the last Reset.
func (e *Episode) Steps() int { return e.step }

func (e *Episode) spawnAltitude(pinned *float64, refAlt float64) float64 {
	if pinned != nil {
		return *pinned
	}
	hi := math.Min(maxSpawnAltitude, refAlt-1)
	if hi <= minSpawnAltitude {
		return minSpawnAltitude
	}
	return minSpawnAltitude + e.rng.Float64()*(hi-minSpawnAltitude)
}

// spawnPosition draws x and y so the rotated view footprint at altitude z
// stays inside the reference footprint.
func (e *Episode) spawnPosition(spawn Spawn, z, headingDeg, refAlt float64) (float64, float64) {
	limX, limY := FootprintLimits(refAlt)

	viewHalfY := math.Tan(radians(core.DefaultHalfFOVDegrees)) * z
	viewHalfX := viewHalfY * 9 / 16

	sin, cos := math.Sincos(radians(headingDeg))
	boundingHalfX := viewHalfX*math.Abs(cos) + viewHalfY*math.Abs(sin)
	boundingHalfY := viewHalfX*math.Abs(sin) + viewHalfY*math.Abs(cos)

	maxAbsX := limX - boundingHalfX
	maxAbsY := limY - boundingHalfY

	x := 0.0
	if spawn.X != nil {
		x = *spawn.X
	} else if maxAbsX > 1 {
		x = -maxAbsX + 1 + e.rng.Float64()*2*(maxAbsX-1)
	}
	y := 0.0
	if spawn.Y != nil {
		y = *spawn.Y
	} else if maxAbsY > 1 {
		y = -maxAbsY + 1 + e.rng.Float64()*2*(maxAbsY-1)
	}
	return x, y
}

func (e *Episode) terminationReason(pose core.PoseState) string {
	if e.step >= e.maxSteps {
		return "step budget exhausted"
	}
	refAlt := e.sim.Projector().ReferenceAltitude()
	limX, limY := FootprintLimits(refAlt)
	switch {
	case math.Abs(pose.Position.X) > limX:
		return "out of bounds x"
	case math.Abs(pose.Position.Y) > limY:
		return "out of bounds y"
	case pose.Position.Z >= refAlt:
		return "above reference altitude"
	case pose.Position.Z <= floorAltitudeMeters:
		return "below floor altitude"
	}
	return ""
}

// FootprintLimits returns the half-extent of the ground area visible at the
// reference altitude: the lateral limit from the horizontal half-FOV, and the
// longitudinal limit from the 16:9-derived vertical half-FOV.
func FootprintLimits(referenceAltitude float64) (limX, limY float64) {
	limY = math.Tan(radians(core.DefaultHalfFOVDegrees)) * referenceAltitude
	limX = limY * 9 / 16
	return limX, limY
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
