package models

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"path/filepath"

	"github.com/qmuntal/gltf"
	"github.com/taigrr/scanline/pkg/math3d"
)

// ErrNoTriangles is returned when a document holds no triangle primitives.
var ErrNoTriangles = errors.New("gltf: no triangle primitives")

// GLTFLoader loads GLTF/GLB files into Mesh format.
type GLTFLoader struct {
	// Options
	CalculateNormals bool
	SmoothNormals    bool
}

// NewGLTFLoader creates a new GLTF loader with default options.
func NewGLTFLoader() *GLTFLoader {
	return &GLTFLoader{
		CalculateNormals: true,
		SmoothNormals:    true,
	}
}

// LoadGLB loads a binary GLTF (.glb) file.
func LoadGLB(path string) (*Mesh, error) {
	loader := NewGLTFLoader()
	return loader.Load(path)
}

// Load loads a GLTF or GLB file and returns a Mesh.
func (l *GLTFLoader) Load(path string) (*Mesh, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gltf: %w", err)
	}
	return l.FromDocument(doc, filepath.Base(path))
}

// FromDocument converts every triangle primitive in doc into one mesh.
// Per-vertex COLOR_0 wins over the material base color; vertices with
// neither get DefaultColor.
func (l *GLTFLoader) FromDocument(doc *gltf.Document, name string) (*Mesh, error) {
	mesh := NewMesh(name)

	for _, mat := range doc.Materials {
		m := Material{Name: mat.Name, BaseColor: [4]float64{1, 1, 1, 1}}
		if pbr := mat.PBRMetallicRoughness; pbr != nil && pbr.BaseColorFactor != nil {
			m.BaseColor = *pbr.BaseColorFactor
		}
		mesh.Materials = append(mesh.Materials, m)
	}

	hasNormals := true
	for _, m := range doc.Meshes {
		withNormals, err := l.processMesh(doc, m, mesh)
		if err != nil {
			return nil, fmt.Errorf("process mesh %q: %w", m.Name, err)
		}
		hasNormals = hasNormals && withNormals
	}
	if len(mesh.Faces) == 0 {
		return nil, ErrNoTriangles
	}

	if l.CalculateNormals && !hasNormals {
		if l.SmoothNormals {
			mesh.CalculateSmoothNormals()
		} else {
			mesh.CalculateNormals()
		}
	}

	mesh.CalculateBounds()

	return mesh, nil
}

// processMesh appends the triangle primitives of m to mesh and reports
// whether all of them carried normals.
func (l *GLTFLoader) processMesh(doc *gltf.Document, m *gltf.Mesh, mesh *Mesh) (bool, error) {
	hasNormals := true
	for _, prim := range m.Primitives {
		if prim.Mode != gltf.PrimitiveTriangles {
			// Skip non-triangle primitives (lines, points, strips)
			continue
		}

		posIdx, ok := prim.Attributes[gltf.POSITION]
		if !ok {
			continue
		}
		positions, err := readVec3Accessor(doc, posIdx)
		if err != nil {
			return false, fmt.Errorf("read positions: %w", err)
		}

		var normals []math3d.Vec3
		if normIdx, ok := prim.Attributes[gltf.NORMAL]; ok {
			normals, err = readVec3Accessor(doc, normIdx)
			if err != nil {
				return false, fmt.Errorf("read normals: %w", err)
			}
		}
		if len(normals) < len(positions) {
			hasNormals = false
		}

		var colors []math3d.Vec3
		if colIdx, ok := prim.Attributes[gltf.COLOR_0]; ok {
			colors, err = readColorAccessor(doc, colIdx)
			if err != nil {
				return false, fmt.Errorf("read colors: %w", err)
			}
		}

		fallback := DefaultColor
		material := -1
		if prim.Material != nil && *prim.Material < len(mesh.Materials) {
			material = *prim.Material
			bc := mesh.Materials[material].BaseColor
			fallback = math3d.V3(bc[0], bc[1], bc[2])
		}

		baseVertex := len(mesh.Vertices)
		for i := range positions {
			v := MeshVertex{Position: positions[i], Color: fallback}
			if i < len(normals) {
				v.Normal = normals[i]
			}
			if i < len(colors) {
				v.Color = colors[i]
			}
			mesh.Vertices = append(mesh.Vertices, v)
		}

		var indices []int
		if prim.Indices != nil {
			indices, err = readIndices(doc, *prim.Indices)
			if err != nil {
				return false, fmt.Errorf("read indices: %w", err)
			}
		} else {
			// No indices, assume sequential triangles
			indices = make([]int, len(positions))
			for i := range indices {
				indices[i] = i
			}
		}

		// Winding is kept as authored; the rasterizer does not cull.
		for i := 0; i+2 < len(indices); i += 3 {
			f := Face{Material: material}
			for j := range 3 {
				idx := indices[i+j]
				if idx >= len(positions) {
					return false, fmt.Errorf("index %d out of range (%d vertices)", idx, len(positions))
				}
				f.V[j] = baseVertex + idx
			}
			mesh.Faces = append(mesh.Faces, f)
		}
	}

	return hasNormals, nil
}

// readVec3Accessor reads float Vec3 data from a GLTF accessor.
func readVec3Accessor(doc *gltf.Document, accessorIdx int) ([]math3d.Vec3, error) {
	accessor, err := accessorAt(doc, accessorIdx)
	if err != nil {
		return nil, err
	}
	if accessor.Type != gltf.AccessorVec3 {
		return nil, fmt.Errorf("expected VEC3, got %v", accessor.Type)
	}

	data, err := readComponents(doc, accessor, 3)
	if err != nil {
		return nil, err
	}

	result := make([]math3d.Vec3, accessor.Count)
	for i := range result {
		result[i] = math3d.V3(data[i*3], data[i*3+1], data[i*3+2])
	}
	return result, nil
}

// readColorAccessor reads COLOR_0 as RGB, dropping alpha from VEC4 data.
func readColorAccessor(doc *gltf.Document, accessorIdx int) ([]math3d.Vec3, error) {
	accessor, err := accessorAt(doc, accessorIdx)
	if err != nil {
		return nil, err
	}

	var n int
	switch accessor.Type {
	case gltf.AccessorVec3:
		n = 3
	case gltf.AccessorVec4:
		n = 4
	default:
		return nil, fmt.Errorf("expected VEC3 or VEC4 color, got %v", accessor.Type)
	}

	data, err := readComponents(doc, accessor, n)
	if err != nil {
		return nil, err
	}

	result := make([]math3d.Vec3, accessor.Count)
	for i := range result {
		result[i] = math3d.V3(data[i*n], data[i*n+1], data[i*n+2])
	}
	return result, nil
}

// readIndices reads index data from a GLTF accessor.
func readIndices(doc *gltf.Document, accessorIdx int) ([]int, error) {
	accessor, err := accessorAt(doc, accessorIdx)
	if err != nil {
		return nil, err
	}
	if accessor.Type != gltf.AccessorScalar {
		return nil, fmt.Errorf("expected SCALAR indices, got %v", accessor.Type)
	}

	raw, stride, err := accessorBytes(doc, accessor, 1)
	if err != nil {
		return nil, err
	}

	result := make([]int, accessor.Count)
	for i := range result {
		b := raw[i*stride:]
		switch accessor.ComponentType {
		case gltf.ComponentUbyte:
			result[i] = int(b[0])
		case gltf.ComponentUshort:
			result[i] = int(binary.LittleEndian.Uint16(b))
		case gltf.ComponentUint:
			result[i] = int(binary.LittleEndian.Uint32(b))
		default:
			return nil, fmt.Errorf("unexpected index type: %v", accessor.ComponentType)
		}
	}
	return result, nil
}

func accessorAt(doc *gltf.Document, idx int) (*gltf.Accessor, error) {
	if idx < 0 || idx >= len(doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range", idx)
	}
	return doc.Accessors[idx], nil
}

// readComponents reads n components per element as float64. Float data is
// taken as is; unsigned integer data is normalized to [0, 1].
func readComponents(doc *gltf.Document, accessor *gltf.Accessor, n int) ([]float64, error) {
	raw, stride, err := accessorBytes(doc, accessor, n)
	if err != nil {
		return nil, err
	}

	size := componentSize(accessor.ComponentType)
	result := make([]float64, accessor.Count*n)
	for i := range accessor.Count {
		elem := raw[i*stride:]
		for j := range n {
			b := elem[j*size:]
			var v float64
			switch accessor.ComponentType {
			case gltf.ComponentFloat:
				v = float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
			case gltf.ComponentUbyte:
				v = float64(b[0]) / math.MaxUint8
			case gltf.ComponentUshort:
				v = float64(binary.LittleEndian.Uint16(b)) / math.MaxUint16
			default:
				return nil, fmt.Errorf("unsupported component type: %v", accessor.ComponentType)
			}
			result[i*n+j] = v
		}
	}
	return result, nil
}

// accessorBytes returns the bytes from the accessor's first element to the
// end of its buffer view along with the element stride. The slice is checked
// to hold every element.
func accessorBytes(doc *gltf.Document, accessor *gltf.Accessor, n int) ([]byte, int, error) {
	if accessor.BufferView == nil {
		return nil, 0, fmt.Errorf("accessor has no buffer view")
	}
	if *accessor.BufferView >= len(doc.BufferViews) {
		return nil, 0, fmt.Errorf("buffer view %d out of range", *accessor.BufferView)
	}
	bufferView := doc.BufferViews[*accessor.BufferView]
	if bufferView.Buffer >= len(doc.Buffers) {
		return nil, 0, fmt.Errorf("buffer %d out of range", bufferView.Buffer)
	}

	// gltf.Open resolves both embedded and external buffers into Data.
	bufData := doc.Buffers[bufferView.Buffer].Data
	if bufData == nil {
		return nil, 0, fmt.Errorf("buffer has no data")
	}

	size := componentSize(accessor.ComponentType)
	if size == 0 {
		return nil, 0, fmt.Errorf("unsupported component type: %v", accessor.ComponentType)
	}
	elemSize := size * n
	stride := bufferView.ByteStride
	if stride == 0 {
		stride = elemSize
	}

	viewEnd := bufferView.ByteOffset + bufferView.ByteLength
	start := bufferView.ByteOffset + accessor.ByteOffset
	if accessor.Count == 0 {
		return nil, stride, nil
	}
	need := start + (accessor.Count-1)*stride + elemSize
	if viewEnd > len(bufData) || need > viewEnd {
		return nil, 0, fmt.Errorf("accessor reads past end of buffer (%d > %d)", need, min(viewEnd, len(bufData)))
	}
	return bufData[start:viewEnd], stride, nil
}

func componentSize(t gltf.ComponentType) int {
	switch t {
	case gltf.ComponentUbyte, gltf.ComponentByte:
		return 1
	case gltf.ComponentUshort, gltf.ComponentShort:
		return 2
	case gltf.ComponentUint, gltf.ComponentFloat:
		return 4
	}
	return 0
}
