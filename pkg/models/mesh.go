// Package models provides the meshes fed to the scanline pipeline: built-in
// shapes and glTF loading.
package models

import (
	"fmt"
	"math"

	"github.com/taigrr/scanline/pkg/math3d"
	"github.com/taigrr/scanline/pkg/render"
)

// Mesh represents a 3D mesh with vertices, faces, and materials.
type Mesh struct {
	Name      string
	Vertices  []MeshVertex
	Faces     []Face
	Materials []Material

	// Bounding box (calculated on load)
	BoundsMin math3d.Vec3
	BoundsMax math3d.Vec3
}

// MeshVertex holds all vertex attributes.
type MeshVertex struct {
	Position math3d.Vec3
	Normal   math3d.Vec3
	Color    math3d.Vec3 // RGB in 0-1 range
}

// Face represents a triangle face with vertex indices and material reference.
type Face struct {
	V        [3]int // Indices into Mesh.Vertices
	Material int    // Index into Mesh.Materials (-1 for no material)
}

// Material is the flat base color of a group of faces.
type Material struct {
	Name      string
	BaseColor [4]float64 // RGBA in 0-1 range
}

// DefaultColor is used for vertices with neither a color nor a material.
var DefaultColor = math3d.V3(0.8, 0.8, 0.8)

// NewMesh creates an empty mesh.
func NewMesh(name string) *Mesh {
	return &Mesh{
		Name:     name,
		Vertices: make([]MeshVertex, 0),
		Faces:    make([]Face, 0),
	}
}

// AddVertex appends a vertex and returns its index.
func (m *Mesh) AddVertex(pos, normal, color math3d.Vec3) int {
	m.Vertices = append(m.Vertices, MeshVertex{Position: pos, Normal: normal, Color: color})
	return len(m.Vertices) - 1
}

// AddFace appends a triangle with no material.
func (m *Mesh) AddFace(a, b, c int) {
	m.Faces = append(m.Faces, Face{V: [3]int{a, b, c}, Material: -1})
}

// CalculateBounds computes the axis-aligned bounding box.
func (m *Mesh) CalculateBounds() {
	if len(m.Vertices) == 0 {
		return
	}

	m.BoundsMin = m.Vertices[0].Position
	m.BoundsMax = m.Vertices[0].Position

	for _, v := range m.Vertices[1:] {
		m.BoundsMin = m.BoundsMin.Min(v.Position)
		m.BoundsMax = m.BoundsMax.Max(v.Position)
	}
}

// Center returns the center of the bounding box.
func (m *Mesh) Center() math3d.Vec3 {
	return m.BoundsMin.Add(m.BoundsMax).Scale(0.5)
}

// Size returns the dimensions of the bounding box.
func (m *Mesh) Size() math3d.Vec3 {
	return m.BoundsMax.Sub(m.BoundsMin)
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Faces)
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

// CalculateNormals computes face normals and assigns them to vertices.
// This is a simple flat-shading approach; for smooth shading, normals
// should be averaged per-vertex.
func (m *Mesh) CalculateNormals() {
	for i := range m.Faces {
		f := &m.Faces[i]
		v0 := m.Vertices[f.V[0]].Position
		v1 := m.Vertices[f.V[1]].Position
		v2 := m.Vertices[f.V[2]].Position

		normal := v1.Sub(v0).Cross(v2.Sub(v0)).Normalize()

		// Assign to vertices (flat shading - each face has its own normal)
		m.Vertices[f.V[0]].Normal = normal
		m.Vertices[f.V[1]].Normal = normal
		m.Vertices[f.V[2]].Normal = normal
	}
}

// CalculateSmoothNormals computes averaged normals for smooth shading.
func (m *Mesh) CalculateSmoothNormals() {
	for i := range m.Vertices {
		m.Vertices[i].Normal = math3d.Vec3{}
	}

	// Accumulate area-weighted face normals per vertex
	for _, f := range m.Faces {
		v0 := m.Vertices[f.V[0]].Position
		v1 := m.Vertices[f.V[1]].Position
		v2 := m.Vertices[f.V[2]].Position

		normal := v1.Sub(v0).Cross(v2.Sub(v0)) // Don't normalize yet

		m.Vertices[f.V[0]].Normal = m.Vertices[f.V[0]].Normal.Add(normal)
		m.Vertices[f.V[1]].Normal = m.Vertices[f.V[1]].Normal.Add(normal)
		m.Vertices[f.V[2]].Normal = m.Vertices[f.V[2]].Normal.Add(normal)
	}

	for i := range m.Vertices {
		m.Vertices[i].Normal = m.Vertices[i].Normal.Normalize()
	}
}

// Transform applies a transformation matrix to all vertices.
func (m *Mesh) Transform(mat math3d.Mat4) {
	for i := range m.Vertices {
		v := &m.Vertices[i]
		v.Position = mat.MulPoint(v.Position).Vec3()
		// Rotation part only; non-uniform scale skews normals
		v.Normal = mat.MulVec4(math3d.V4FromV3(v.Normal, 0)).Vec3().Normalize()
	}
	m.CalculateBounds()
}

// FitUnit recenters the mesh at the origin and scales it so its largest
// dimension is 2, which fills the default camera view.
func (m *Mesh) FitUnit() {
	m.CalculateBounds()
	size := m.Size()
	extent := math.Max(size.X, math.Max(size.Y, size.Z))
	if extent == 0 {
		return
	}
	center := m.Center()
	s := 2 / extent
	m.Transform(math3d.Scale(math3d.Splat3(s)).Mul(math3d.Translate(center.Scale(-1))))
}

// Clone creates a deep copy of the mesh.
func (m *Mesh) Clone() *Mesh {
	clone := &Mesh{
		Name:      m.Name,
		Vertices:  make([]MeshVertex, len(m.Vertices)),
		Faces:     make([]Face, len(m.Faces)),
		Materials: make([]Material, len(m.Materials)),
		BoundsMin: m.BoundsMin,
		BoundsMax: m.BoundsMax,
	}
	copy(clone.Vertices, m.Vertices)
	copy(clone.Faces, m.Faces)
	copy(clone.Materials, m.Materials)
	return clone
}

// GetMaterial returns the material at index i.
// Returns nil if index is out of bounds or -1.
func (m *Mesh) GetMaterial(i int) *Material {
	if i < 0 || i >= len(m.Materials) {
		return nil
	}
	return &m.Materials[i]
}

// MaterialCount returns the number of materials.
func (m *Mesh) MaterialCount() int {
	return len(m.Materials)
}

// GetFaceMaterial returns the material index of face i, or -1.
func (m *Mesh) GetFaceMaterial(i int) int {
	if i < 0 || i >= len(m.Faces) {
		return -1
	}
	return m.Faces[i].Material
}

// ApplyMaterialColors copies each face's material base color onto its
// vertices. Faces without a material are left alone.
func (m *Mesh) ApplyMaterialColors() {
	for _, f := range m.Faces {
		mat := m.GetMaterial(f.Material)
		if mat == nil {
			continue
		}
		c := math3d.V3(mat.BaseColor[0], mat.BaseColor[1], mat.BaseColor[2])
		for _, vi := range f.V {
			m.Vertices[vi].Color = c
		}
	}
}

// Buffers flattens the mesh into the arrays Pipeline.SetBuffers takes.
func (m *Mesh) Buffers() (indices []uint32, positions, normals, colors []float32) {
	indices = make([]uint32, 0, 3*len(m.Faces))
	for _, f := range m.Faces {
		indices = append(indices, uint32(f.V[0]), uint32(f.V[1]), uint32(f.V[2]))
	}

	positions = make([]float32, 0, 3*len(m.Vertices))
	normals = make([]float32, 0, 3*len(m.Vertices))
	colors = make([]float32, 0, 3*len(m.Vertices))
	for _, v := range m.Vertices {
		positions = appendVec3(positions, v.Position)
		normals = appendVec3(normals, v.Normal)
		colors = appendVec3(colors, v.Color)
	}
	return indices, positions, normals, colors
}

// Geometry validates the mesh and packs it for the pipeline.
func (m *Mesh) Geometry() (*render.Geometry, error) {
	for i, f := range m.Faces {
		for _, vi := range f.V {
			if vi < 0 || int64(vi) > math.MaxUint32 {
				return nil, fmt.Errorf("face %d: %w", i, render.ErrIndexOutOfRange)
			}
		}
	}
	g, err := render.NewGeometry(m.Buffers())
	if err != nil {
		return nil, fmt.Errorf("mesh %q: %w", m.Name, err)
	}
	return g, nil
}

func appendVec3(dst []float32, v math3d.Vec3) []float32 {
	return append(dst, float32(v.X), float32(v.Y), float32(v.Z))
}
