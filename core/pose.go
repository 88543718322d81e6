package core

// PoseState is a snapshot of the drone's position together with the velocity
// derived from it. Velocity is never an independent integration variable: the
// dynamics recompute it from consecutive positions on every step, so the field
// is kept unexported and exposed read-only through Velocity().
type PoseState struct {
	Position Vector3
	velocity Vector3
}

// Velocity returns the finite-difference velocity associated with this pose.
// It is zero immediately after a reset, when the position history is still
// collapsed to a single point.
func (p PoseState) Velocity() Vector3 {
	return p.velocity
}
