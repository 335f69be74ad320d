package render

import (
	"github.com/taigrr/scanline/pkg/math3d"
)

// TransformedVertex is a vertex after the model-view-projection transform.
type TransformedVertex struct {
	Position math3d.Vec3 // Normalized device coordinates (after the w divide)
	W        float64     // Clip-space w before the divide
	Normal   math3d.Vec3 // Passed through unmodified
	Color    math3d.Vec3 // Passed through unmodified
}

// transformVertex maps one vertex through mvp. Normals are deliberately not
// corrected with a normal matrix.
func transformVertex(v Vertex, mvp math3d.Mat4) TransformedVertex {
	clip := mvp.MulPoint(v.Position)
	return TransformedVertex{
		Position: clip.PerspectiveDivide(),
		W:        clip.W,
		Normal:   v.Normal,
		Color:    v.Color,
	}
}

// TransformVertices runs the vertex stage over in, writing out[i] for every
// in[i]. out must be at least len(in) long. Each vertex is independent work.
func TransformVertices(workers int, in []Vertex, mvp math3d.Mat4, out []TransformedVertex) error {
	return transformVertices(workers, nil, in, mvp, out)
}

func transformVertices(workers int, hook func(string), in []Vertex, mvp math3d.Mat4, out []TransformedVertex) error {
	return parallelFor(workers, len(in), vertexChunk, StageVertex, hook, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			out[i] = transformVertex(in[i], mvp)
		}
	})
}
