package core

import (
	"errors"
	"fmt"
	"math"
)

// ErrNotReset is returned by Move when the dynamics have not been primed with
// an initial pose via Reset.
var ErrNotReset = errors.New("flight dynamics: Move called before Reset")

// Default airframe constants, matching a small consumer quadrotor.
const (
	DefaultMassKg    = 0.468
	DefaultGravity   = 9.81
	DefaultDragCoeff = 0.15
)

// FlightDynamics integrates thrust, drag, gravity and yaw-rate control into a
// pose trajectory. Integration is displacement-only (Verlet): the new position
// comes from the two previous positions plus the current acceleration, and
// velocity is re-derived from position differences instead of being carried as
// an independent state variable.
//
// A FlightDynamics instance represents one in-flight episode and is not safe
// for concurrent use; concurrent episodes need separate instances.
type FlightDynamics struct {
	massKg       float64
	gravity      float64
	dragCoeff    float64
	hoverThrust  float64 // equilibrium thrust, mass * gravity
	dt           float64
	perturbation Vector3

	// Fixed three-slot position history. Between steps prev1 mirrors the
	// current pose; prev2 holds the pose one step older. Move reads prev1
	// and prev2 and rotates the slots afterwards.
	current PoseState
	prev1   PoseState
	prev2   PoseState

	headingDeg float64
	ready      bool
}

// DynamicsOption customises a FlightDynamics at construction.
type DynamicsOption func(*FlightDynamics)

// WithPerturbation applies a constant per-axis external force, in newtons,
// added to the net force on every step. Useful for modelling wind.
func WithPerturbation(force Vector3) DynamicsOption {
	return func(d *FlightDynamics) { d.perturbation = force }
}

// WithAirframe overrides the default mass, gravitational acceleration and
// linear drag coefficient.
func WithAirframe(massKg, gravity, dragCoeff float64) DynamicsOption {
	return func(d *FlightDynamics) {
		d.massKg = massKg
		d.gravity = gravity
		d.dragCoeff = dragCoeff
	}
}

// NewFlightDynamics constructs dynamics stepping at a fixed dt of 1/fps.
func NewFlightDynamics(fps int, opts ...DynamicsOption) (*FlightDynamics, error) {
	if fps <= 0 {
		return nil, fmt.Errorf("flight dynamics: fps must be positive, got %d", fps)
	}
	d := &FlightDynamics{
		massKg:    DefaultMassKg,
		gravity:   DefaultGravity,
		dragCoeff: DefaultDragCoeff,
		dt:        1.0 / float64(fps),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.massKg <= 0 {
		return nil, fmt.Errorf("flight dynamics: mass must be positive, got %g", d.massKg)
	}
	d.hoverThrust = d.massKg * d.gravity
	return d, nil
}

// Reset collapses the position history to the given point with zero velocity
// and sets the heading. It must be called before the first Move.
func (d *FlightDynamics) Reset(x, y, z, headingDeg float64) {
	pose := PoseState{Position: Vector3{X: x, Y: y, Z: z}}
	d.current = pose
	d.prev1 = pose
	d.prev2 = pose
	d.headingDeg = wrapDegrees(headingDeg)
	d.ready = true
}

// Move advances the trajectory by exactly one timestep under the given
// control inputs. Roll and pitch tilt the thrust vector, yawRate turns the
// heading, and thrustDelta is added to the equilibrium thrust (newtons).
//
// Inputs are not sanitised: non-finite values propagate into the state.
func (d *FlightDynamics) Move(rollDeg, pitchDeg, yawRateDegPerSec, thrustDelta float64) error {
	if !d.ready {
		return ErrNotReset
	}

	d.headingDeg = wrapDegrees(d.headingDeg + yawRateDegPerSec*d.dt)

	sinRoll, cosRoll := math.Sincos(radians(rollDeg))
	sinPitch, cosPitch := math.Sincos(radians(pitchDeg))
	sinHead, cosHead := math.Sincos(radians(d.headingDeg))

	// World-frame unit direction of the thrust vector.
	unit := [3]float64{
		cosRoll*sinPitch*cosHead + sinRoll*sinHead,
		cosRoll*sinPitch*sinHead - sinRoll*cosHead,
		cosRoll * cosPitch,
	}

	var next PoseState
	for axis := 0; axis < 3; axis++ {
		p1 := d.prev1.Position.Axis(axis)
		p2 := d.prev2.Position.Axis(axis)

		velocity := (p1 - p2) / d.dt
		thrust := unit[axis] * (d.hoverThrust + thrustDelta)
		drag := -d.dragCoeff * velocity
		gravity := 0.0
		if axis == 2 {
			gravity = -d.massKg * d.gravity
		}
		net := thrust + drag + gravity + d.perturbation.Axis(axis)
		accel := net / d.massKg

		pos := 2*p1 - p2 + accel*d.dt*d.dt
		next.Position.setAxis(axis, pos)
		next.velocity.setAxis(axis, (pos-p1)/d.dt)
	}

	d.current = next
	d.prev2 = d.prev1
	d.prev1 = next
	return nil
}

// Pose returns the most recent pose snapshot.
func (d *FlightDynamics) Pose() PoseState {
	return d.current
}

// Heading returns the current heading in degrees, wrapped to [0, 360).
func (d *FlightDynamics) Heading() float64 {
	return d.headingDeg
}

// Dt returns the fixed integration timestep in seconds.
func (d *FlightDynamics) Dt() float64 {
	return d.dt
}

// HoverThrust returns the equilibrium thrust force in newtons (mass times
// gravitational acceleration).
func (d *FlightDynamics) HoverThrust() float64 {
	return d.hoverThrust
}

// wrapDegrees maps an angle onto [0, 360).
func wrapDegrees(deg float64) float64 {
	wrapped := math.Mod(deg, 360)
	if wrapped < 0 {
		wrapped += 360
	}
	return wrapped
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
