package env

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestNewSyntheticSource_Validation(t *testing.T) {
	if _, err := NewSyntheticSource(image.Point{}, 16); err == nil {
		t.Fatal("expected error for zero frame size")
	}
	if _, err := NewSyntheticSource(image.Point{X: 64, Y: 64}, 0); err == nil {
		t.Fatal("expected error for zero cell size")
	}
}

func TestSyntheticSource_FrameIsStable(t *testing.T) {
	source, err := NewSyntheticSource(image.Point{X: 64, Y: 32}, 8)
	if err != nil {
		t.Fatalf("NewSyntheticSource: %v", err)
	}
	if got := source.Size(); got != (image.Point{X: 64, Y: 32}) {
		t.Fatalf("size = %v, want 64x32", got)
	}
	if source.Frame() != source.Frame() {
		t.Fatal("expected the same reusable frame buffer on every call")
	}
	// Grid lines land on cell boundaries.
	line := color.RGBA{R: 210, G: 210, B: 200, A: 255}
	if got := source.Frame().RGBAAt(8, 3); got != line {
		t.Fatalf("pixel on cell boundary = %v, want grid line %v", got, line)
	}
}

func TestNewStillSource_LoadsAndScales(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 10, 10))
	fill := color.RGBA{R: 44, G: 88, B: 132, A: 255}
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			src.SetRGBA(x, y, fill)
		}
	}

	path := filepath.Join(t.TempDir(), "still.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := png.Encode(f, src); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Load at a different size: nearest-neighbour scaling of a uniform image
	// stays uniform.
	source, err := NewStillSource(path, image.Point{X: 20, Y: 16})
	if err != nil {
		t.Fatalf("NewStillSource: %v", err)
	}
	if got := source.Size(); got != (image.Point{X: 20, Y: 16}) {
		t.Fatalf("size = %v, want 20x16", got)
	}
	if got := source.Frame().RGBAAt(19, 15); got != fill {
		t.Fatalf("scaled pixel = %v, want %v", got, fill)
	}
}

func TestNewStillSource_MissingFile(t *testing.T) {
	if _, err := NewStillSource(filepath.Join(t.TempDir(), "missing.png"), image.Point{X: 8, Y: 8}); err == nil {
		t.Fatal("expected error for missing file")
	}
}
