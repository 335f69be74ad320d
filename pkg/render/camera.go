package render

import (
	"math"

	"github.com/taigrr/scanline/pkg/math3d"
)

// Camera is the per-frame viewing configuration. It is a plain value: the
// pipeline copies it at the start of each frame.
type Camera struct {
	Position math3d.Vec3 // Eye position in world space
	ViewDir  math3d.Vec3 // Direction the eye looks along
	Up       math3d.Vec3 // Approximate up vector
	Light    math3d.Vec3 // Light position (carried for shaders, unused by normal shading)

	FOV  float64 // Vertical field of view in radians
	Near float64 // Near clipping plane
	Far  float64 // Far clipping plane
}

// DefaultCamera returns the fixed camera the pipeline uses unless one is
// supplied: eye at z=3 looking down -Z, 45° vertical field of view.
func DefaultCamera() Camera {
	return Camera{
		Position: math3d.V3(0, 0, 3),
		ViewDir:  math3d.V3(0, 0, -1),
		Up:       math3d.V3(0, 1, 0),
		Light:    math3d.V3(0, 10, 10),
		FOV:      math.Pi / 4,
		Near:     0.1,
		Far:      100,
	}
}

// ViewMatrix returns the world-to-view transform.
func (c Camera) ViewMatrix() math3d.Mat4 {
	return math3d.LookDir(c.Position, c.ViewDir, c.Up)
}

// ProjectionMatrix returns the perspective projection for the given aspect ratio.
func (c Camera) ProjectionMatrix(aspect float64) math3d.Mat4 {
	return math3d.Perspective(c.FOV, aspect, c.Near, c.Far)
}

// ViewProjection returns projection * view.
func (c Camera) ViewProjection(aspect float64) math3d.Mat4 {
	return c.ProjectionMatrix(aspect).Mul(c.ViewMatrix())
}

// WorldToPixel projects a world point to integer pixel coordinates using the
// same NDC-to-pixel mapping as the rasterizer. ok is false when the point is
// behind the eye or outside the viewport.
func (c Camera) WorldToPixel(p math3d.Vec3, width, height int) (x, y int, ok bool) {
	clip := c.ViewProjection(float64(width)/float64(height)).MulPoint(p)
	if clip.W <= 0 {
		return 0, 0, false
	}
	ndc := clip.PerspectiveDivide()
	if math.Abs(ndc.X) > 1 || math.Abs(ndc.Y) > 1 {
		return 0, 0, false
	}
	x, y = ndcToPixel(ndc.X, ndc.Y, width, height)
	if x < 0 || x >= width || y < 0 || y >= height {
		return 0, 0, false
	}
	return x, y, true
}
