package render

import (
	"math"

	"github.com/taigrr/scanline/pkg/math3d"
)

// DrawWireframe outlines assembled triangles on top of a composed frame.
// It is an output overlay: the fragment store is not touched.
func DrawWireframe(fb *Framebuffer, tris []Triangle, c Color) {
	for i := range tris {
		p := &tris[i].Position
		if !p[0].IsFinite() || !p[1].IsFinite() || !p[2].IsFinite() {
			continue
		}
		for j := range 3 {
			drawNDCLine(fb, p[j], p[(j+1)%3], c)
		}
	}
}

// DrawBox draws the 12 edges of box transformed by mvp. Edges with an
// endpoint behind the eye are skipped.
func DrawBox(fb *Framebuffer, box AABB, mvp math3d.Mat4, c Color) {
	lo, hi := box.Min, box.Max
	corners := [8]math3d.Vec3{
		{X: lo.X, Y: lo.Y, Z: lo.Z}, // 0: bottom-left-back
		{X: hi.X, Y: lo.Y, Z: lo.Z}, // 1: bottom-right-back
		{X: hi.X, Y: hi.Y, Z: lo.Z}, // 2: top-right-back
		{X: lo.X, Y: hi.Y, Z: lo.Z}, // 3: top-left-back
		{X: lo.X, Y: lo.Y, Z: hi.Z}, // 4: bottom-left-front
		{X: hi.X, Y: lo.Y, Z: hi.Z}, // 5: bottom-right-front
		{X: hi.X, Y: hi.Y, Z: hi.Z}, // 6: top-right-front
		{X: lo.X, Y: hi.Y, Z: hi.Z}, // 7: top-left-front
	}
	edges := [12][2]int{
		// Back face
		{0, 1}, {1, 2}, {2, 3}, {3, 0},
		// Front face
		{4, 5}, {5, 6}, {6, 7}, {7, 4},
		// Connecting edges
		{0, 4}, {1, 5}, {2, 6}, {3, 7},
	}

	var ndc [8]math3d.Vec3
	var visible [8]bool
	for i, p := range corners {
		clip := mvp.MulPoint(p)
		visible[i] = clip.W > 0
		ndc[i] = clip.PerspectiveDivide()
	}
	for _, e := range edges {
		if visible[e[0]] && visible[e[1]] {
			drawNDCLine(fb, ndc[e[0]], ndc[e[1]], c)
		}
	}
}

// maxLineNDC bounds line endpoints so pixel conversion cannot overflow.
const maxLineNDC = 64

func drawNDCLine(fb *Framebuffer, a, b math3d.Vec3, c Color) {
	if math.Abs(a.X) > maxLineNDC || math.Abs(a.Y) > maxLineNDC ||
		math.Abs(b.X) > maxLineNDC || math.Abs(b.Y) > maxLineNDC {
		return
	}
	x0, y0 := ndcToPixel(a.X, a.Y, fb.Width, fb.Height)
	x1, y1 := ndcToPixel(b.X, b.Y, fb.Width, fb.Height)
	fb.DrawLine(x0, y0, x1, y1, c)
}

// DrawLine draws a line from (x0, y0) to (x1, y1) using Bresenham's algorithm.
func (fb *Framebuffer) DrawLine(x0, y0, x1, y1 int, c Color) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx := 1
	if x0 > x1 {
		sx = -1
	}
	sy := 1
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy

	for {
		fb.SetPixel(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
