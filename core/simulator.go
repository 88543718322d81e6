package core

import "image"

// StepResult is the per-tick output of the simulator: the warped camera view,
// the four source-frame corner points of the projected footprint for overlay
// and diagnostics, and the pose the view was rendered from.
type StepResult struct {
	View       *image.RGBA
	Corners    [4]image.Point
	Pose       PoseState
	HeadingDeg float64
}

// Simulator composes the flight dynamics and the camera projector into one
// per-tick operation. Like the dynamics it wraps, a Simulator represents a
// single episode and must not be stepped concurrently.
type Simulator struct {
	dynamics      *FlightDynamics
	projector     *CameraProjector
	tickListeners []func(int)
	tick          int
}

// NewSimulator constructs a simulator for source frames of frameSize and
// warped views of viewSize, with dynamics stepping at 1/fps.
func NewSimulator(frameSize, viewSize image.Point, referenceAltitude float64, fps int, opts ...DynamicsOption) (*Simulator, error) {
	dynamics, err := NewFlightDynamics(fps, opts...)
	if err != nil {
		return nil, err
	}
	projector, err := NewCameraProjector(frameSize, viewSize, referenceAltitude)
	if err != nil {
		return nil, err
	}
	return &Simulator{
		dynamics:  dynamics,
		projector: projector,
	}, nil
}

// RegisterTickListener adds a callback invoked with the tick index after
// every successful Step.
func (s *Simulator) RegisterTickListener(fn func(int)) {
	s.tickListeners = append(s.tickListeners, fn)
}

// Reset places the drone at the given position and heading and restarts the
// tick count.
func (s *Simulator) Reset(x, y, z, headingDeg float64) {
	s.dynamics.Reset(x, y, z, headingDeg)
	s.tick = 0
}

// Step advances the dynamics by one tick under the given controls, then
// projects the camera view from the updated pose. The projector sees the
// negated heading: the camera's angular convention runs opposite the body's
// yaw convention.
func (s *Simulator) Step(rollDeg, pitchDeg, yawRateDegPerSec, thrustDelta float64, frame *image.RGBA) (StepResult, error) {
	if err := s.dynamics.Move(rollDeg, pitchDeg, yawRateDegPerSec, thrustDelta); err != nil {
		return StepResult{}, err
	}

	pose := s.dynamics.Pose()
	view, corners, err := s.projector.Project(frame, pose, -s.dynamics.Heading())
	if err != nil {
		return StepResult{}, err
	}

	for _, fn := range s.tickListeners {
		fn(s.tick)
	}
	s.tick++

	return StepResult{
		View:       view,
		Corners:    corners,
		Pose:       pose,
		HeadingDeg: s.dynamics.Heading(),
	}, nil
}

// Dynamics exposes the underlying flight dynamics, mainly so the surrounding
// environment can read the timestep and equilibrium thrust.
func (s *Simulator) Dynamics() *FlightDynamics { return s.dynamics }

// Projector exposes the underlying camera projector.
func (s *Simulator) Projector() *CameraProjector { return s.projector }
