package env

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"

	_ "image/jpeg"
	_ "image/png"
)

// FrameSource supplies the aerial source frame for each simulation tick. The
// returned buffer may be reused across calls; the kernel never retains it
// past a step.
type FrameSource interface {
	Frame() *image.RGBA
	Size() image.Point
}

// SyntheticSource serves a generated checkerboard with grid lines, giving the
// warped view visible structure without any recorded footage. Useful for
// tests and for exercising navigation code before real imagery is available.
type SyntheticSource struct {
	frame *image.RGBA
}

// NewSyntheticSource builds a checkerboard frame of the given size with
// square cells of cellPx pixels.
func NewSyntheticSource(size image.Point, cellPx int) (*SyntheticSource, error) {
	if size.X <= 0 || size.Y <= 0 {
		return nil, fmt.Errorf("synthetic source: frame size must be positive, got %dx%d", size.X, size.Y)
	}
	if cellPx <= 0 {
		return nil, fmt.Errorf("synthetic source: cell size must be positive, got %d", cellPx)
	}

	light := color.RGBA{R: 120, G: 160, B: 90, A: 255}
	dark := color.RGBA{R: 80, G: 120, B: 60, A: 255}
	line := color.RGBA{R: 210, G: 210, B: 200, A: 255}

	frame := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	for y := 0; y < size.Y; y++ {
		for x := 0; x < size.X; x++ {
			switch {
			case x%cellPx == 0 || y%cellPx == 0:
				frame.SetRGBA(x, y, line)
			case (x/cellPx+y/cellPx)%2 == 0:
				frame.SetRGBA(x, y, light)
			default:
				frame.SetRGBA(x, y, dark)
			}
		}
	}
	return &SyntheticSource{frame: frame}, nil
}

func (s *SyntheticSource) Frame() *image.RGBA { return s.frame }

func (s *SyntheticSource) Size() image.Point { return s.frame.Bounds().Size() }

// StillSource serves a single decoded PNG or JPEG still on every tick,
// matching the fixed-background mode of the simulator. The still is scaled to
// the expected frame size on load if its resolution differs.
type StillSource struct {
	frame *image.RGBA
}

// NewStillSource decodes the image at path and prepares it as a frame of the
// given size.
func NewStillSource(path string, size image.Point) (*StillSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("still source: %w", err)
	}
	defer f.Close()

	decoded, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("still source: decode %s: %w", path, err)
	}
	return &StillSource{frame: toSizedRGBA(decoded, size)}, nil
}

func (s *StillSource) Frame() *image.RGBA { return s.frame }

func (s *StillSource) Size() image.Point { return s.frame.Bounds().Size() }

// toSizedRGBA converts src to RGBA at exactly size, using nearest-neighbour
// scaling when the resolutions differ.
func toSizedRGBA(src image.Image, size image.Point) *image.RGBA {
	bounds := src.Bounds()
	if bounds.Dx() == size.X && bounds.Dy() == size.Y {
		out := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
		draw.Draw(out, out.Bounds(), src, bounds.Min, draw.Src)
		return out
	}

	out := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	for y := 0; y < size.Y; y++ {
		sy := bounds.Min.Y + y*bounds.Dy()/size.Y
		for x := 0; x < size.X; x++ {
			sx := bounds.Min.X + x*bounds.Dx()/size.X
			out.Set(x, y, src.At(sx, sy))
		}
	}
	return out
}
