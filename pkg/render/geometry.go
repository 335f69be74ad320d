// Package render implements the scanline pipeline: vertex transform,
// primitive assembly, barycentric rasterization into a shared fragment store,
// and composition into a framebuffer.
package render

import (
	"fmt"
	"math"

	"github.com/taigrr/scanline/pkg/math3d"
)

// Vertex is one input vertex in model space.
type Vertex struct {
	Position math3d.Vec3
	Normal   math3d.Vec3
	Color    math3d.Vec3 // RGB in [0,1]
}

// Geometry holds the immutable per-frame input: vertex attributes and a
// triangle index list. A Geometry is never modified after NewGeometry returns,
// so it can be shared by frames without copying.
type Geometry struct {
	indices  []uint32
	vertices []Vertex
	bounds   AABB
}

// NewGeometry validates and packs flat attribute arrays.
//
// positions, normals and colors hold 3 floats (x,y,z or r,g,b) per vertex and
// must have the same length. len(indices) must be a multiple of 3 and every
// index must be below the vertex count. Malformed input is rejected rather
// than truncated.
func NewGeometry(indices []uint32, positions, normals, colors []float32) (*Geometry, error) {
	if len(indices)%3 != 0 {
		return nil, fmt.Errorf("%w: index count %d is not a multiple of 3", ErrInvalidGeometry, len(indices))
	}
	if len(positions)%3 != 0 {
		return nil, fmt.Errorf("%w: position array length %d is not a multiple of 3", ErrInvalidGeometry, len(positions))
	}
	if len(normals) != len(positions) {
		return nil, fmt.Errorf("%w: %d normal floats for %d position floats", ErrInvalidGeometry, len(normals), len(positions))
	}
	if len(colors) != len(positions) {
		return nil, fmt.Errorf("%w: %d color floats for %d position floats", ErrInvalidGeometry, len(colors), len(positions))
	}
	// Triangle indices are packed into 32 bits of the fragment key
	if len(indices)/3 >= math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d triangles exceeds the per-frame limit", ErrInvalidGeometry, len(indices)/3)
	}

	vertexCount := len(positions) / 3
	for i, idx := range indices {
		if int64(idx) >= int64(vertexCount) {
			return nil, fmt.Errorf("index %d at position %d (vertex count %d): %w", idx, i, vertexCount, ErrIndexOutOfRange)
		}
	}

	g := &Geometry{
		indices:  make([]uint32, len(indices)),
		vertices: make([]Vertex, vertexCount),
	}
	copy(g.indices, indices)
	for i := range g.vertices {
		g.vertices[i] = Vertex{
			Position: vec3At(positions, i),
			Normal:   vec3At(normals, i),
			Color:    vec3At(colors, i),
		}
		if i == 0 {
			g.bounds = AABB{Min: g.vertices[0].Position, Max: g.vertices[0].Position}
			continue
		}
		g.bounds.Min = g.bounds.Min.Min(g.vertices[i].Position)
		g.bounds.Max = g.bounds.Max.Max(g.vertices[i].Position)
	}
	return g, nil
}

func vec3At(data []float32, i int) math3d.Vec3 {
	return math3d.V3(float64(data[3*i]), float64(data[3*i+1]), float64(data[3*i+2]))
}

// IndexCount returns the number of indices.
func (g *Geometry) IndexCount() int {
	if g == nil {
		return 0
	}
	return len(g.indices)
}

// VertexCount returns the number of vertices.
func (g *Geometry) VertexCount() int {
	if g == nil {
		return 0
	}
	return len(g.vertices)
}

// TriangleCount returns the number of triangles.
func (g *Geometry) TriangleCount() int {
	return g.IndexCount() / 3
}

// Bounds returns the model-space box around every vertex.
func (g *Geometry) Bounds() AABB {
	if g == nil {
		return AABB{}
	}
	return g.bounds
}

// Vertex returns vertex i.
func (g *Geometry) Vertex(i int) Vertex {
	return g.vertices[i]
}

// Indices returns a copy of the index list.
func (g *Geometry) Indices() []uint32 {
	if g == nil {
		return nil
	}
	out := make([]uint32, len(g.indices))
	copy(out, g.indices)
	return out
}
