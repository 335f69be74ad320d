package render

import (
	"fmt"

	"github.com/taigrr/scanline/pkg/math3d"
)

// Triangle is an assembled primitive ready for rasterization. The three slots
// keep the order of the index triplet.
type Triangle struct {
	Index    int            // Position in the index buffer, divided by 3
	Position [3]math3d.Vec3 // NDC positions
	Normal   [3]math3d.Vec3
	Color    [3]math3d.Vec3
}

// AssemblePrimitives builds len(indices)/3 triangles from the transformed
// vertices. out must be at least that long. An index outside verts returns
// ErrIndexOutOfRange; the triangles written before it are unspecified.
func AssemblePrimitives(workers int, indices []uint32, verts []TransformedVertex, out []Triangle) error {
	return assemblePrimitives(workers, nil, indices, verts, out)
}

func assemblePrimitives(workers int, hook func(string), indices []uint32, verts []TransformedVertex, out []Triangle) error {
	if len(indices)%3 != 0 {
		return fmt.Errorf("%w: index count %d is not a multiple of 3", ErrInvalidGeometry, len(indices))
	}
	// Bounds are checked up front so no worker can read past verts.
	for i, idx := range indices {
		if int64(idx) >= int64(len(verts)) {
			return fmt.Errorf("index %d at position %d (vertex count %d): %w", idx, i, len(verts), ErrIndexOutOfRange)
		}
	}

	return parallelFor(workers, len(indices)/3, triangleChunk*16, StageAssemble, hook, func(lo, hi int) {
		for k := lo; k < hi; k++ {
			tri := &out[k]
			tri.Index = k
			for j := range 3 {
				v := verts[indices[3*k+j]]
				tri.Position[j] = v.Position
				tri.Normal[j] = v.Normal
				tri.Color[j] = v.Color
			}
		}
	})
}
