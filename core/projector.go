package core

import (
	"fmt"
	"image"
	"image/color"
	"math"
)

// DefaultHalfFOVDegrees is the horizontal half field-of-view of the modelled
// gimbal camera. The vertical half-angle follows from a 16:9 sensor aspect.
const DefaultHalfFOVDegrees = 41.05

// altitudeEpsilon floors the footprint scale when the pose altitude is not
// positive. A non-positive altitude is a precondition violation by the
// caller; it is clamped rather than reported so Project stays total, and the
// environment is expected to catch the excursion through its pose bounds.
const altitudeEpsilon = 1e-8

const verticalAspect = 9.0 / 16.0

// CameraProjector maps a pose and heading onto a perspective view of a
// pre-recorded aerial frame, modelling a gimbaled downward-facing camera. The
// projected footprint is a heading-rotated rectangle of the source frame,
// sized by the ratio of the current altitude to the altitude at which the
// source imagery was captured.
//
// All configuration is fixed at construction and Project keeps no cross-call
// state, so a single projector may be shared between episodes.
type CameraProjector struct {
	frameSize  image.Point
	viewSize   image.Point
	refAlt     float64
	halfFOVDeg float64
	fill       color.RGBA
}

// ProjectorOption customises a CameraProjector at construction.
type ProjectorOption func(*CameraProjector)

// WithFillColor overrides the sentinel colour painted where the projected
// footprint leaves the source frame. The default is opaque blue, which makes
// out-of-frame excursions easy to spot in the warped view.
func WithFillColor(c color.RGBA) ProjectorOption {
	return func(p *CameraProjector) { p.fill = c }
}

// WithHalfFOV overrides the horizontal half field-of-view in degrees.
func WithHalfFOV(deg float64) ProjectorOption {
	return func(p *CameraProjector) { p.halfFOVDeg = deg }
}

// NewCameraProjector constructs a projector for source frames of frameSize,
// producing warped views of viewSize. referenceAltitude is the altitude in
// metres at which the source imagery was captured.
func NewCameraProjector(frameSize, viewSize image.Point, referenceAltitude float64, opts ...ProjectorOption) (*CameraProjector, error) {
	if referenceAltitude <= 0 {
		return nil, fmt.Errorf("camera projector: reference altitude must be positive, got %g", referenceAltitude)
	}
	if viewSize.X <= 0 || viewSize.Y <= 0 {
		return nil, fmt.Errorf("camera projector: view size must be positive, got %dx%d", viewSize.X, viewSize.Y)
	}
	if frameSize.X <= 0 || frameSize.Y <= 0 {
		return nil, fmt.Errorf("camera projector: frame size must be positive, got %dx%d", frameSize.X, frameSize.Y)
	}
	p := &CameraProjector{
		frameSize:  frameSize,
		viewSize:   viewSize,
		refAlt:     referenceAltitude,
		halfFOVDeg: DefaultHalfFOVDegrees,
		fill:       color.RGBA{B: 255, A: 255},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// FrameSize returns the expected source frame dimensions.
func (p *CameraProjector) FrameSize() image.Point { return p.frameSize }

// ViewSize returns the warped output dimensions.
func (p *CameraProjector) ViewSize() image.Point { return p.viewSize }

// ReferenceAltitude returns the capture altitude of the source imagery.
func (p *CameraProjector) ReferenceAltitude() float64 { return p.refAlt }

// Project computes the camera view for the given pose and heading. It returns
// the warped view and the four corners of the projected source rectangle in
// source pixel coordinates, ordered top-left, top-right, bottom-right,
// bottom-left. It is a pure function of its arguments; the frame is never
// retained past the call.
func (p *CameraProjector) Project(frame *image.RGBA, pose PoseState, headingDeg float64) (*image.RGBA, [4]image.Point, error) {
	scale := math.Max(altitudeEpsilon, pose.Position.Z/p.refAlt)
	dx, dy := p.pixelOffset(pose)

	dims := image.Point{
		X: int(float64(p.frameSize.X) * scale),
		Y: int(float64(p.frameSize.Y) * scale),
	}
	origin := image.Point{
		X: int(float64(p.frameSize.X-dims.X)/2 + dx*scale),
		Y: int(float64(p.frameSize.Y-dims.Y)/2 + dy*scale),
	}
	center := origin.Add(dims.Div(2))

	corners := [4]image.Point{
		rotatePoint(origin.X, origin.Y, center, headingDeg),
		rotatePoint(origin.X+dims.X, origin.Y, center, headingDeg),
		rotatePoint(origin.X+dims.X, origin.Y+dims.Y, center, headingDeg),
		rotatePoint(origin.X, origin.Y+dims.Y, center, headingDeg),
	}

	var src, dst [4][2]float64
	for i, c := range corners {
		src[i] = [2]float64{float64(c.X), float64(c.Y)}
	}
	dst = [4][2]float64{
		{0, 0},
		{float64(p.viewSize.X - 1), 0},
		{float64(p.viewSize.X - 1), float64(p.viewSize.Y - 1)},
		{0, float64(p.viewSize.Y - 1)},
	}

	// The warp samples through the reverse mapping, output pixel to source
	// pixel, which is the transform from dst corners back onto src corners.
	inv, err := PerspectiveTransform(dst, src)
	if err != nil {
		return nil, corners, fmt.Errorf("camera projector: %w", err)
	}

	view := warpPerspective(frame, inv, p.viewSize.X, p.viewSize.Y, p.fill)
	return view, corners, nil
}

// pixelOffset converts the drone's lateral and longitudinal displacement into
// a pinhole image-plane offset from the frame centre, in source pixels, X
// right across the frame and Y down it.
func (p *CameraProjector) pixelOffset(pose PoseState) (dx, dy float64) {
	tanHalf := math.Tan(radians(p.halfFOVDeg))

	// Lateral: focal length from the horizontal half-FOV over the frame width.
	fy := float64(p.frameSize.X) / (2 * tanHalf)
	vp := fy * pose.Position.Y / pose.Position.Z

	// Longitudinal: vertical half-FOV derived from the 16:9 aspect.
	fx := float64(p.frameSize.Y) / (2 * tanHalf * verticalAspect)
	up := fx * pose.Position.X / pose.Position.Z

	return -vp, -up
}

// rotatePoint rotates (x, y) about center by angleDeg and truncates the
// result to integer pixel coordinates.
func rotatePoint(x, y int, center image.Point, angleDeg float64) image.Point {
	sin, cos := math.Sincos(radians(angleDeg))
	rx := float64(x - center.X)
	ry := float64(y - center.Y)
	return image.Point{
		X: int(cos*rx - sin*ry + float64(center.X)),
		Y: int(sin*rx + cos*ry + float64(center.Y)),
	}
}
