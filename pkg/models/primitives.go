package models

import (
	"fmt"
	"slices"
	"strings"

	"github.com/taigrr/scanline/pkg/math3d"
)

var (
	red   = math3d.V3(1, 0, 0)
	green = math3d.V3(0, 1, 0)
	blue  = math3d.V3(0, 0, 1)
)

// builtins maps names accepted by Builtin to constructors.
var builtins = map[string]func() *Mesh{
	"triangle":   Triangle,
	"quad":       Quad,
	"cube":       Cube,
	"fullscreen": FullscreenTriangle,
}

// BuiltinNames returns the names accepted by Builtin, sorted.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Builtin returns a fresh copy of the named built-in mesh.
func Builtin(name string) (*Mesh, error) {
	ctor, ok := builtins[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown built-in mesh %q (have %s)", name, strings.Join(BuiltinNames(), ", "))
	}
	return ctor(), nil
}

// Triangle returns a single triangle in the z=0 plane facing +Z with red,
// green and blue corners.
func Triangle() *Mesh {
	m := NewMesh("triangle")
	n := math3d.V3(0, 0, 1)
	a := m.AddVertex(math3d.V3(-1, -1, 0), n, red)
	b := m.AddVertex(math3d.V3(1, -1, 0), n, green)
	c := m.AddVertex(math3d.V3(0, 1, 0), n, blue)
	m.AddFace(a, b, c)
	m.CalculateBounds()
	return m
}

// Quad returns a 2x2 square in the z=0 plane made of two triangles.
func Quad() *Mesh {
	m := NewMesh("quad")
	n := math3d.V3(0, 0, 1)
	a := m.AddVertex(math3d.V3(-1, -1, 0), n, red)
	b := m.AddVertex(math3d.V3(1, -1, 0), n, green)
	c := m.AddVertex(math3d.V3(1, 1, 0), n, blue)
	d := m.AddVertex(math3d.V3(-1, 1, 0), n, math3d.V3(1, 1, 0))
	m.AddFace(a, b, c)
	m.AddFace(a, c, d)
	m.CalculateBounds()
	return m
}

// cubeFaces lists each cube face as its outward normal plus two in-plane
// axes, with the face color.
var cubeFaces = []struct {
	normal, u, v, color math3d.Vec3
}{
	{math3d.V3(0, 0, 1), math3d.V3(1, 0, 0), math3d.V3(0, 1, 0), red},
	{math3d.V3(0, 0, -1), math3d.V3(-1, 0, 0), math3d.V3(0, 1, 0), math3d.V3(0, 1, 1)},
	{math3d.V3(1, 0, 0), math3d.V3(0, 0, -1), math3d.V3(0, 1, 0), green},
	{math3d.V3(-1, 0, 0), math3d.V3(0, 0, 1), math3d.V3(0, 1, 0), math3d.V3(1, 0, 1)},
	{math3d.V3(0, 1, 0), math3d.V3(1, 0, 0), math3d.V3(0, 0, -1), blue},
	{math3d.V3(0, -1, 0), math3d.V3(1, 0, 0), math3d.V3(0, 0, 1), math3d.V3(1, 1, 0)},
}

// Cube returns a 2x2x2 cube centered at the origin. Each face has its own
// four vertices so normals and colors stay flat per face.
func Cube() *Mesh {
	m := NewMesh("cube")
	for _, f := range cubeFaces {
		corner := func(su, sv float64) int {
			p := f.normal.Add(f.u.Scale(su)).Add(f.v.Scale(sv))
			return m.AddVertex(p, f.normal, f.color)
		}
		a := corner(-1, -1)
		b := corner(1, -1)
		c := corner(1, 1)
		d := corner(-1, 1)
		m.AddFace(a, b, c)
		m.AddFace(a, c, d)
	}
	m.CalculateBounds()
	return m
}

// FullscreenTriangle returns one triangle that covers the whole NDC square
// when rendered with an identity transform.
func FullscreenTriangle() *Mesh {
	m := NewMesh("fullscreen")
	n := math3d.V3(0, 0, 1)
	a := m.AddVertex(math3d.V3(-1, -1, 0), n, red)
	b := m.AddVertex(math3d.V3(3, -1, 0), n, green)
	c := m.AddVertex(math3d.V3(-1, 3, 0), n, blue)
	m.AddFace(a, b, c)
	m.CalculateBounds()
	return m
}
