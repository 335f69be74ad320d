package render

import (
	"fmt"
	"math"

	"github.com/taigrr/scanline/pkg/math3d"
)

// ShadeMode selects the color written for a covered pixel.
type ShadeMode int

const (
	// ShadeNormal writes the interpolated vertex normal as RGB.
	ShadeNormal ShadeMode = iota

	// ShadeVertexColor writes the interpolated vertex color.
	ShadeVertexColor
)

func (m ShadeMode) String() string {
	switch m {
	case ShadeNormal:
		return "normal"
	case ShadeVertexColor:
		return "color"
	default:
		return fmt.Sprintf("ShadeMode(%d)", int(m))
	}
}

// ParseShadeMode is the inverse of ShadeMode.String.
func ParseShadeMode(s string) (ShadeMode, error) {
	switch s {
	case "normal", "":
		return ShadeNormal, nil
	case "color":
		return ShadeVertexColor, nil
	}
	return 0, fmt.Errorf("unknown shade mode %q (want normal or color)", s)
}

// degenerateEpsilon is the squared sine of the smallest corner angle a
// triangle may have before it is treated as a line or point.
const degenerateEpsilon = 1e-12

// Rasterizer tests pixel-center candidates against assembled triangles and
// resolves coverage into a FragmentStore.
//
// A Rasterizer holds no per-frame state besides the store, so one value can
// be shared by every worker of a frame.
type Rasterizer struct {
	store  *FragmentStore
	width  int
	height int
	stepX  float64 // Candidate spacing in NDC
	stepY  float64

	Depth DepthMode
	Shade ShadeMode
}

// NewRasterizer creates a rasterizer that writes into store.
func NewRasterizer(store *FragmentStore) *Rasterizer {
	return &Rasterizer{
		store:  store,
		width:  store.Width(),
		height: store.Height(),
		stepX:  2 / float64(store.Width()),
		stepY:  2 / float64(store.Height()),
	}
}

// Store returns the fragment store the rasterizer writes into.
func (r *Rasterizer) Store() *FragmentStore {
	return r.store
}

// RasterStats counts the work done for one or more triangles.
type RasterStats struct {
	Candidates int // Pixel centers tested
	Covered    int // Candidates inside a triangle
	Shaded     int // Fragments written to the store
}

// Add accumulates o into s.
func (s *RasterStats) Add(o RasterStats) {
	s.Candidates += o.Candidates
	s.Covered += o.Covered
	s.Shaded += o.Shaded
}

// DepthPass claims every pixel covered by tri whose key beats the current
// owner. It must finish for all triangles of a frame before any ShadePass.
func (r *Rasterizer) DepthPass(tri *Triangle) RasterStats {
	var stats RasterStats
	stats.Candidates = r.cover(tri, func(idx int, _ math3d.Vec3, z float64) {
		stats.Covered++
		r.store.TryClaim(idx, fragmentKey(r.Depth, z, tri.Index))
	})
	return stats
}

// ShadePass writes the fragment of every pixel tri won in the depth pass.
func (r *Rasterizer) ShadePass(tri *Triangle) RasterStats {
	var stats RasterStats
	r.cover(tri, func(idx int, bc math3d.Vec3, z float64) {
		if !r.store.Owns(idx, fragmentKey(r.Depth, z, tri.Index)) {
			return
		}
		r.store.Write(idx, Fragment{
			Depth:    z,
			Color:    r.shade(tri, bc),
			Triangle: tri.Index,
		})
		stats.Shaded++
	})
	return stats
}

// DrawTriangle runs both passes for a single triangle. Calling it for each
// triangle in turn from one goroutine behaves like a classic z-buffer.
func (r *Rasterizer) DrawTriangle(tri *Triangle) RasterStats {
	stats := r.DepthPass(tri)
	stats.Shaded = r.ShadePass(tri).Shaded
	return stats
}

func (r *Rasterizer) shade(tri *Triangle, bc math3d.Vec3) math3d.Vec3 {
	attr := &tri.Normal
	if r.Shade == ShadeVertexColor {
		attr = &tri.Color
	}
	return math3d.Weighted(attr[0], attr[1], attr[2], bc.X, bc.Y, bc.Z)
}

// cover calls visit for every pixel whose center lies inside tri, with the
// pixel index, barycentric weights and interpolated depth. It returns the
// number of candidates tested.
//
// Candidates are walked on integer pixel indices rather than by accumulating
// NDC steps, so every pixel is visited at most once per triangle.
func (r *Rasterizer) cover(tri *Triangle, visit func(idx int, bc math3d.Vec3, z float64)) int {
	p0, p1, p2 := tri.Position[0], tri.Position[1], tri.Position[2]
	if !p0.IsFinite() || !p1.IsFinite() || !p2.IsFinite() {
		return 0
	}

	minX, maxX := min3(p0.X, p1.X, p2.X), max3(p0.X, p1.X, p2.X)
	minY, maxY := min3(p0.Y, p1.Y, p2.Y), max3(p0.Y, p1.Y, p2.Y)

	// Bounding box snapped outward to the candidate grid and clamped to the viewport
	col0, col1 := gridRange((minX+1)/r.stepX-0.5, (maxX+1)/r.stepX-0.5, r.width)
	row0, row1 := gridRange((1-maxY)/r.stepY-0.5, (1-minY)/r.stepY-0.5, r.height)

	tested := 0
	for row := row0; row <= row1; row++ {
		for col := col0; col <= col1; col++ {
			px, py := pixelCenterNDC(col, row, r.width, r.height)
			tested++

			bc, ok := barycentric(p0.X, p0.Y, p1.X, p1.Y, p2.X, p2.Y, px, py)
			if !ok || !inside(bc) {
				continue
			}
			z := bc.X*p0.Z + bc.Y*p1.Z + bc.Z*p2.Z
			visit(col+row*r.width, bc, z)
		}
	}
	return tested
}

// gridRange converts a span in candidate units to an inclusive index range
// clamped to [0, n). first > last when the span misses the viewport.
func gridRange(lo, hi float64, n int) (first, last int) {
	f := math.Max(math.Floor(lo), 0)
	l := math.Min(math.Ceil(hi), float64(n-1))
	if f > l {
		return 0, -1
	}
	return int(f), int(l)
}

// barycentric computes the weights of (px, py) relative to the triangle
// (x0,y0), (x1,y1), (x2,y2). The weights map to the vertices in order.
// ok is false for degenerate triangles.
func barycentric(x0, y0, x1, y1, x2, y2, px, py float64) (math3d.Vec3, bool) {
	v0x, v0y := x2-x0, y2-y0
	v1x, v1y := x1-x0, y1-y0
	v2x, v2y := px-x0, py-y0

	dot00 := v0x*v0x + v0y*v0y
	dot01 := v0x*v1x + v0y*v1y
	dot02 := v0x*v2x + v0y*v2y
	dot11 := v1x*v1x + v1y*v1y
	dot12 := v1x*v2x + v1y*v2y

	denom := dot00*dot11 - dot01*dot01
	if denom <= degenerateEpsilon*dot00*dot11 {
		return math3d.Vec3{}, false
	}
	invDenom := 1.0 / denom
	u := (dot11*dot02 - dot01*dot12) * invDenom
	v := (dot00*dot12 - dot01*dot02) * invDenom

	return math3d.V3(1-u-v, v, u), true
}

func inside(bc math3d.Vec3) bool {
	return bc.X >= 0 && bc.Y >= 0 && bc.Z >= 0 &&
		bc.X <= 1 && bc.Y <= 1 && bc.Z <= 1
}

// ndcToPixel maps NDC x/y to integer pixel coordinates. NDC y=+1 is row 0.
func ndcToPixel(x, y float64, width, height int) (px, py int) {
	px = int(math.Floor((x + 1) * 0.5 * float64(width)))
	py = int(math.Floor((1 - y) * 0.5 * float64(height)))
	return px, py
}

// pixelCenterNDC returns the NDC coordinates of the center of pixel (px, py).
func pixelCenterNDC(px, py, width, height int) (x, y float64) {
	x = -1 + (float64(px)+0.5)*2/float64(width)
	y = 1 - (float64(py)+0.5)*2/float64(height)
	return x, y
}

func min3(a, b, c float64) float64 {
	return math.Min(a, math.Min(b, c))
}

func max3(a, b, c float64) float64 {
	return math.Max(a, math.Max(b, c))
}
