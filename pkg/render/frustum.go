package render

import (
	"github.com/taigrr/scanline/pkg/math3d"
)

// Plane represents a plane in 3D space using the equation: Ax + By + Cz + D = 0
// where (A, B, C) is the normal and D is the distance from origin.
type Plane struct {
	Normal math3d.Vec3
	D      float64
}

// Normalize normalizes the plane equation so the normal has unit length.
func (p *Plane) Normalize() {
	l := p.Normal.Len()
	if l == 0 {
		return
	}
	p.Normal = p.Normal.Scale(1.0 / l)
	p.D /= l
}

// DistanceToPoint returns the signed distance from the plane to a point.
// Positive = in front (same side as normal), negative = behind.
func (p Plane) DistanceToPoint(point math3d.Vec3) float64 {
	return p.Normal.Dot(point) + p.D
}

// Frustum holds the planes that bound what a model-view-projection matrix
// can put on screen. Planes are ordered: Left, Right, Bottom, Top, Eye.
// Each plane's normal points inward.
//
// There is no near or far plane: the rasterizer does not clip on depth, so
// culling on it would drop fragments that would otherwise be drawn. The eye
// plane (w = 0) is not a culling plane either. Vertices with w <= 0 are
// divided through unclipped and can land anywhere on screen, so a box
// only culls when it lies entirely in front of the eye.
type Frustum struct {
	Planes [5]Plane
}

// Frustum plane indices.
const (
	FrustumLeft = iota
	FrustumRight
	FrustumBottom
	FrustumTop
	FrustumEye
)

// NewFrustumFromMatrix extracts frustum planes from a model-view-projection
// matrix with the Gribb/Hartmann method. Planes are in the matrix's input
// space, so an MVP gives model-space planes.
func NewFrustumFromMatrix(m math3d.Mat4) Frustum {
	var f Frustum

	// For column-major m, row i element j is at m[i + j*4].
	row := func(i int) (math3d.Vec3, float64) {
		return math3d.V3(m[i], m[i+4], m[i+8]), m[i+12]
	}
	r0, d0 := row(0)
	r1, d1 := row(1)
	r3, d3 := row(3)

	f.Planes[FrustumLeft] = Plane{Normal: r3.Add(r0), D: d3 + d0}
	f.Planes[FrustumRight] = Plane{Normal: r3.Sub(r0), D: d3 - d0}
	f.Planes[FrustumBottom] = Plane{Normal: r3.Add(r1), D: d3 + d1}
	f.Planes[FrustumTop] = Plane{Normal: r3.Sub(r1), D: d3 - d1}
	f.Planes[FrustumEye] = Plane{Normal: r3, D: d3}

	for i := range f.Planes {
		f.Planes[i].Normalize()
	}
	return f
}

// AABB represents an axis-aligned bounding box.
type AABB struct {
	Min math3d.Vec3
	Max math3d.Vec3
}

// Center returns the center of the AABB.
func (b AABB) Center() math3d.Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Size returns the dimensions of the AABB.
func (b AABB) Size() math3d.Vec3 {
	return b.Max.Sub(b.Min)
}

// ContainsPoint returns true if the point is inside the AABB.
func (b AABB) ContainsPoint(p math3d.Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// IntersectAABB reports whether geometry inside the box can produce
// fragments. A box reaching the eye plane always can. A box entirely in
// front of it can only when no side plane has every corner outside.
func (f Frustum) IntersectAABB(box AABB) bool {
	eye := f.Planes[FrustumEye]
	if eye.DistanceToPoint(boxCorner(box, eye.Normal, false)) <= 0 {
		return true
	}
	for _, plane := range f.Planes[:FrustumEye] {
		// The corner furthest along the plane normal is the last to leave.
		if plane.DistanceToPoint(boxCorner(box, plane.Normal, true)) < 0 {
			return false
		}
	}
	return true
}

// boxCorner returns the corner of box furthest along n, or furthest against
// it when positive is false.
func boxCorner(box AABB, n math3d.Vec3, positive bool) math3d.Vec3 {
	return math3d.V3(
		selectComponent((n.X >= 0) == positive, box.Max.X, box.Min.X),
		selectComponent((n.Y >= 0) == positive, box.Max.Y, box.Min.Y),
		selectComponent((n.Z >= 0) == positive, box.Max.Z, box.Min.Z),
	)
}

// ContainsPoint tests if a point is inside the frustum.
func (f Frustum) ContainsPoint(p math3d.Vec3) bool {
	for i := range f.Planes {
		if f.Planes[i].DistanceToPoint(p) < 0 {
			return false
		}
	}
	return true
}

func selectComponent(cond bool, a, b float64) float64 {
	if cond {
		return a
	}
	return b
}
