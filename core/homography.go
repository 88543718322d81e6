package core

import (
	"fmt"
	"math"
)

// Homography is a 3x3 planar projective transform in row-major order, acting
// on homogeneous pixel coordinates (x, y, 1).
type Homography [3][3]float64

// Apply maps the point (x, y) through h and dehomogenises the result.
func (h Homography) Apply(x, y float64) (float64, float64) {
	w := h[2][0]*x + h[2][1]*y + h[2][2]
	return (h[0][0]*x + h[0][1]*y + h[0][2]) / w,
		(h[1][0]*x + h[1][1]*y + h[1][2]) / w
}

// Invert returns the inverse transform, computed from the adjugate. It fails
// when h is singular.
func (h Homography) Invert() (Homography, error) {
	adj := Homography{
		{
			h[1][1]*h[2][2] - h[1][2]*h[2][1],
			h[0][2]*h[2][1] - h[0][1]*h[2][2],
			h[0][1]*h[1][2] - h[0][2]*h[1][1],
		},
		{
			h[1][2]*h[2][0] - h[1][0]*h[2][2],
			h[0][0]*h[2][2] - h[0][2]*h[2][0],
			h[0][2]*h[1][0] - h[0][0]*h[1][2],
		},
		{
			h[1][0]*h[2][1] - h[1][1]*h[2][0],
			h[0][1]*h[2][0] - h[0][0]*h[2][1],
			h[0][0]*h[1][1] - h[0][1]*h[1][0],
		},
	}
	det := h[0][0]*adj[0][0] + h[0][1]*adj[1][0] + h[0][2]*adj[2][0]
	if det == 0 || math.IsNaN(det) {
		return Homography{}, fmt.Errorf("homography: matrix is singular")
	}
	var inv Homography
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			inv[r][c] = adj[r][c] / det
		}
	}
	return inv, nil
}

// PerspectiveTransform solves for the homography that maps the four src
// corners onto the four dst corners, with h33 fixed to 1. The corners must be
// in consistent order on both sides and no three of them collinear; a
// degenerate quadrilateral yields an error.
func PerspectiveTransform(src, dst [4][2]float64) (Homography, error) {
	// Two equations per point correspondence, eight unknowns h11..h32.
	var m [8][9]float64
	for i := 0; i < 4; i++ {
		sx, sy := src[i][0], src[i][1]
		dx, dy := dst[i][0], dst[i][1]
		m[2*i] = [9]float64{sx, sy, 1, 0, 0, 0, -sx * dx, -sy * dx, dx}
		m[2*i+1] = [9]float64{0, 0, 0, sx, sy, 1, -sx * dy, -sy * dy, dy}
	}

	// Gaussian elimination with partial pivoting.
	for col := 0; col < 8; col++ {
		pivot := col
		for row := col + 1; row < 8; row++ {
			if math.Abs(m[row][col]) > math.Abs(m[pivot][col]) {
				pivot = row
			}
		}
		if math.Abs(m[pivot][col]) < 1e-12 {
			return Homography{}, fmt.Errorf("homography: degenerate corner configuration")
		}
		m[col], m[pivot] = m[pivot], m[col]

		for row := col + 1; row < 8; row++ {
			factor := m[row][col] / m[col][col]
			for k := col; k < 9; k++ {
				m[row][k] -= factor * m[col][k]
			}
		}
	}

	var coeff [8]float64
	for row := 7; row >= 0; row-- {
		sum := m[row][8]
		for k := row + 1; k < 8; k++ {
			sum -= m[row][k] * coeff[k]
		}
		coeff[row] = sum / m[row][row]
	}

	return Homography{
		{coeff[0], coeff[1], coeff[2]},
		{coeff[3], coeff[4], coeff[5]},
		{coeff[6], coeff[7], 1},
	}, nil
}
