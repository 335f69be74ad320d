package render

import (
	"errors"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/taigrr/scanline/pkg/math3d"
)

func TestColorFromVec3(t *testing.T) {
	tests := []struct {
		name string
		in   math3d.Vec3
		want color.RGBA
	}{
		{"black", math3d.V3(0, 0, 0), RGB(0, 0, 0)},
		{"white", math3d.V3(1, 1, 1), RGB(255, 255, 255)},
		{"half", math3d.V3(0.5, 0.5, 0.5), RGB(128, 128, 128)},
		{"clamped", math3d.V3(-1, 2, 0.2), RGB(0, 255, 51)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ColorFromVec3(tc.in); got != tc.want {
				t.Errorf("ColorFromVec3(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestFramebufferPixels(t *testing.T) {
	fb := NewFramebuffer(4, 3)
	fb.Clear(RGB(10, 20, 30))
	fb.SetPixel(2, 1, RGB(255, 0, 0))
	fb.SetPixel(-1, 0, RGB(1, 1, 1)) // ignored

	if got := fb.GetPixel(2, 1); got != RGB(255, 0, 0) {
		t.Errorf("GetPixel(2,1) = %v", got)
	}
	if got := fb.Pixels[2+1*4]; got != RGB(255, 0, 0) {
		t.Errorf("pixel index x+y*width = %v", got)
	}
	if got := fb.GetPixel(3, 2); got != RGB(10, 20, 30) {
		t.Errorf("cleared pixel = %v", got)
	}
	if got := fb.GetPixel(4, 0); got != (color.RGBA{}) {
		t.Errorf("out of bounds = %v, want transparent", got)
	}
}

func TestWrapFramebuffer(t *testing.T) {
	if _, err := WrapFramebuffer(make([]color.RGBA, 5), 2, 3); !errors.Is(err, ErrSurfaceSize) {
		t.Errorf("WrapFramebuffer = %v, want ErrSurfaceSize", err)
	}
	pixels := make([]color.RGBA, 6)
	fb, err := WrapFramebuffer(pixels, 2, 3)
	if err != nil {
		t.Fatal(err)
	}
	fb.SetPixel(1, 2, RGB(9, 9, 9))
	if pixels[5] != RGB(9, 9, 9) {
		t.Error("wrapped framebuffer does not share the caller's pixels")
	}
}

func TestScaledImage(t *testing.T) {
	fb := NewFramebuffer(2, 2)
	fb.SetPixel(0, 0, RGB(255, 0, 0))
	fb.SetPixel(1, 1, RGB(0, 0, 255))

	img := fb.ScaledImage(3)
	if b := img.Bounds(); b.Dx() != 6 || b.Dy() != 6 {
		t.Fatalf("bounds = %v, want 6x6", b)
	}
	if got := img.RGBAAt(2, 2); got != RGB(255, 0, 0) {
		t.Errorf("scaled (2,2) = %v, want red", got)
	}
	if got := img.RGBAAt(5, 3); got != RGB(0, 0, 255) {
		t.Errorf("scaled (5,3) = %v, want blue", got)
	}
}

func TestSavePNG(t *testing.T) {
	fb := NewFramebuffer(3, 2)
	fb.Clear(RGB(0, 128, 255))
	path := filepath.Join(t.TempDir(), "frame.png")

	if err := fb.SavePNG(path, 2); err != nil {
		t.Fatalf("SavePNG: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 6 || b.Dy() != 4 {
		t.Errorf("bounds = %v, want 6x4", b)
	}
}
