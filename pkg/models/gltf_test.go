package models

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/taigrr/scanline/pkg/math3d"
)

func TestLoadGLBInvalidPath(t *testing.T) {
	_, err := LoadGLB("/nonexistent/path.glb")
	if err == nil {
		t.Error("Expected error for nonexistent file")
	}
}

func TestGLTFLoaderCreation(t *testing.T) {
	loader := NewGLTFLoader()
	if loader == nil {
		t.Error("NewGLTFLoader returned nil")
		return
	}
	if !loader.CalculateNormals {
		t.Error("CalculateNormals should default to true")
	}
	if !loader.SmoothNormals {
		t.Error("SmoothNormals should default to true")
	}
}

// docBuilder packs accessors into a single embedded buffer.
type docBuilder struct {
	doc  *gltf.Document
	data []byte
}

func newDocBuilder() *docBuilder {
	return &docBuilder{doc: &gltf.Document{}}
}

func (b *docBuilder) view(raw []byte) int {
	for len(b.data)%4 != 0 {
		b.data = append(b.data, 0)
	}
	b.doc.BufferViews = append(b.doc.BufferViews, &gltf.BufferView{
		ByteOffset: len(b.data),
		ByteLength: len(raw),
	})
	b.data = append(b.data, raw...)
	return len(b.doc.BufferViews) - 1
}

func (b *docBuilder) accessor(raw []byte, count int, typ gltf.AccessorType, ct gltf.ComponentType) int {
	b.doc.Accessors = append(b.doc.Accessors, &gltf.Accessor{
		BufferView:    gltf.Index(b.view(raw)),
		ComponentType: ct,
		Count:         count,
		Type:          typ,
	})
	return len(b.doc.Accessors) - 1
}

func (b *docBuilder) vec3(vs ...math3d.Vec3) int {
	var raw []byte
	for _, v := range vs {
		for _, f := range [3]float64{v.X, v.Y, v.Z} {
			raw = binary.LittleEndian.AppendUint32(raw, math.Float32bits(float32(f)))
		}
	}
	return b.accessor(raw, len(vs), gltf.AccessorVec3, gltf.ComponentFloat)
}

func (b *docBuilder) rgba8(cs ...[4]uint8) int {
	var raw []byte
	for _, c := range cs {
		raw = append(raw, c[:]...)
	}
	return b.accessor(raw, len(cs), gltf.AccessorVec4, gltf.ComponentUbyte)
}

func (b *docBuilder) indices16(idx ...uint16) int {
	var raw []byte
	for _, i := range idx {
		raw = binary.LittleEndian.AppendUint16(raw, i)
	}
	return b.accessor(raw, len(idx), gltf.AccessorScalar, gltf.ComponentUshort)
}

func (b *docBuilder) primitive(p *gltf.Primitive) {
	if len(b.doc.Meshes) == 0 {
		b.doc.Meshes = append(b.doc.Meshes, &gltf.Mesh{Name: "mesh"})
	}
	m := b.doc.Meshes[0]
	m.Primitives = append(m.Primitives, p)
}

func (b *docBuilder) build() *gltf.Document {
	b.doc.Buffers = []*gltf.Buffer{{ByteLength: len(b.data), Data: b.data}}
	return b.doc
}

var unitTriangle = []math3d.Vec3{
	math3d.V3(0, 0, 0),
	math3d.V3(1, 0, 0),
	math3d.V3(0, 1, 0),
}

func TestFromDocumentIndexed(t *testing.T) {
	b := newDocBuilder()
	pos := b.vec3(unitTriangle...)
	nrm := b.vec3(math3d.V3(0, 0, 1), math3d.V3(0, 0, 1), math3d.V3(0, 0, 1))
	col := b.rgba8([4]uint8{255, 0, 0, 255}, [4]uint8{0, 255, 0, 255}, [4]uint8{0, 0, 255, 255})
	idx := b.indices16(0, 2, 1)
	b.primitive(&gltf.Primitive{
		Attributes: map[string]int{gltf.POSITION: pos, gltf.NORMAL: nrm, gltf.COLOR_0: col},
		Indices:    gltf.Index(idx),
	})

	mesh, err := NewGLTFLoader().FromDocument(b.build(), "tri.glb")
	if err != nil {
		t.Fatalf("FromDocument() error = %v", err)
	}

	if mesh.Name != "tri.glb" {
		t.Errorf("Name = %q", mesh.Name)
	}
	if mesh.VertexCount() != 3 || mesh.TriangleCount() != 1 {
		t.Fatalf("got %d vertices, %d faces; want 3, 1", mesh.VertexCount(), mesh.TriangleCount())
	}
	// Winding is kept as authored
	if got := mesh.Faces[0].V; got != [3]int{0, 2, 1} {
		t.Errorf("face = %v, want [0 2 1]", got)
	}
	if got := mesh.Vertices[1].Position; got != math3d.V3(1, 0, 0) {
		t.Errorf("vertex 1 position = %v", got)
	}
	if got := mesh.Vertices[2].Color; got != math3d.V3(0, 0, 1) {
		t.Errorf("vertex 2 color = %v, want blue", got)
	}
	if got := mesh.Vertices[0].Normal; got != math3d.V3(0, 0, 1) {
		t.Errorf("vertex 0 normal = %v", got)
	}
	if mesh.BoundsMax != math3d.V3(1, 1, 0) {
		t.Errorf("BoundsMax = %v", mesh.BoundsMax)
	}
}

func TestFromDocumentMaterialColor(t *testing.T) {
	b := newDocBuilder()
	pos := b.vec3(unitTriangle...)
	b.doc.Materials = []*gltf.Material{{
		Name: "orange",
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &[4]float64{1, 0.5, 0, 1},
		},
	}}
	b.primitive(&gltf.Primitive{
		Attributes: map[string]int{gltf.POSITION: pos},
		Material:   gltf.Index(0),
	})

	mesh, err := NewGLTFLoader().FromDocument(b.build(), "mat")
	if err != nil {
		t.Fatalf("FromDocument() error = %v", err)
	}

	if mesh.MaterialCount() != 1 || mesh.Materials[0].Name != "orange" {
		t.Fatalf("materials = %+v", mesh.Materials)
	}
	if mesh.GetFaceMaterial(0) != 0 {
		t.Errorf("face material = %d, want 0", mesh.GetFaceMaterial(0))
	}
	for i, v := range mesh.Vertices {
		if v.Color != math3d.V3(1, 0.5, 0) {
			t.Errorf("vertex %d color = %v, want material color", i, v.Color)
		}
	}
}

func TestFromDocumentDefaults(t *testing.T) {
	b := newDocBuilder()
	pos := b.vec3(unitTriangle...)
	b.primitive(&gltf.Primitive{Attributes: map[string]int{gltf.POSITION: pos}})

	mesh, err := NewGLTFLoader().FromDocument(b.build(), "bare")
	if err != nil {
		t.Fatalf("FromDocument() error = %v", err)
	}

	if got := mesh.Faces[0].V; got != [3]int{0, 1, 2} {
		t.Errorf("non-indexed face = %v, want sequential", got)
	}
	for i, v := range mesh.Vertices {
		if v.Color != DefaultColor {
			t.Errorf("vertex %d color = %v, want DefaultColor", i, v.Color)
		}
		// Counter-clockwise in the XY plane faces +Z
		if v.Normal.Sub(math3d.V3(0, 0, 1)).Len() > 1e-9 {
			t.Errorf("vertex %d normal = %v, want computed +Z", i, v.Normal)
		}
	}
}

func TestFromDocumentMultiplePrimitives(t *testing.T) {
	b := newDocBuilder()
	first := b.vec3(unitTriangle...)
	second := b.vec3(math3d.V3(0, 0, 1), math3d.V3(1, 0, 1), math3d.V3(0, 1, 1))
	b.primitive(&gltf.Primitive{Attributes: map[string]int{gltf.POSITION: first}})
	b.primitive(&gltf.Primitive{Attributes: map[string]int{gltf.POSITION: second}})
	b.primitive(&gltf.Primitive{Attributes: map[string]int{gltf.POSITION: second}, Mode: gltf.PrimitiveLines})

	mesh, err := NewGLTFLoader().FromDocument(b.build(), "two")
	if err != nil {
		t.Fatalf("FromDocument() error = %v", err)
	}

	if mesh.TriangleCount() != 2 {
		t.Fatalf("TriangleCount() = %d, want 2 (line primitive skipped)", mesh.TriangleCount())
	}
	if got := mesh.Faces[1].V; got != [3]int{3, 4, 5} {
		t.Errorf("second face = %v, want offset by first primitive", got)
	}
	if _, err := mesh.Geometry(); err != nil {
		t.Errorf("Geometry() error = %v", err)
	}
}

func TestFromDocumentErrors(t *testing.T) {
	t.Run("no triangles", func(t *testing.T) {
		_, err := NewGLTFLoader().FromDocument(newDocBuilder().build(), "empty")
		if !errors.Is(err, ErrNoTriangles) {
			t.Errorf("err = %v, want ErrNoTriangles", err)
		}
	})

	t.Run("index out of range", func(t *testing.T) {
		b := newDocBuilder()
		pos := b.vec3(unitTriangle...)
		idx := b.indices16(0, 1, 9)
		b.primitive(&gltf.Primitive{
			Attributes: map[string]int{gltf.POSITION: pos},
			Indices:    gltf.Index(idx),
		})
		if _, err := NewGLTFLoader().FromDocument(b.build(), "bad"); err == nil {
			t.Error("expected error for out-of-range index")
		}
	})

	t.Run("truncated buffer", func(t *testing.T) {
		b := newDocBuilder()
		pos := b.vec3(unitTriangle...)
		b.doc.Accessors[pos].Count = 30
		b.primitive(&gltf.Primitive{Attributes: map[string]int{gltf.POSITION: pos}})
		if _, err := NewGLTFLoader().FromDocument(b.build(), "short"); err == nil {
			t.Error("expected error for accessor past end of buffer")
		}
	})

	t.Run("wrong position type", func(t *testing.T) {
		b := newDocBuilder()
		col := b.rgba8([4]uint8{1, 2, 3, 4}, [4]uint8{1, 2, 3, 4}, [4]uint8{1, 2, 3, 4})
		b.primitive(&gltf.Primitive{Attributes: map[string]int{gltf.POSITION: col}})
		if _, err := NewGLTFLoader().FromDocument(b.build(), "typ"); err == nil {
			t.Error("expected error for VEC4 positions")
		}
	})
}
