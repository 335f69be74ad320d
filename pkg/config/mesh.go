package config

import (
	"fmt"
	"log/slog"

	"github.com/taigrr/scanline/pkg/models"
)

// Load returns the mesh the source names, fitted to the unit view unless
// Fit is false.
func (m MeshSource) Load() (*models.Mesh, error) {
	var (
		mesh *models.Mesh
		err  error
	)
	if m.Path != "" {
		mesh, err = models.LoadGLB(m.Path)
	} else {
		mesh, err = models.Builtin(m.Builtin)
	}
	if err != nil {
		return nil, fmt.Errorf("load mesh: %w", err)
	}

	if m.ShouldFit() {
		mesh.FitUnit()
	}
	slog.Debug("loaded mesh", "name", mesh.Name, "vertices", mesh.VertexCount(), "triangles", mesh.TriangleCount())
	return mesh, nil
}
