package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/taigrr/scanline/pkg/config"
	"github.com/taigrr/scanline/pkg/models"
	"github.com/taigrr/scanline/pkg/render"
)

// sceneFlags are shared by every subcommand. Flags that were set on the
// command line override the scene file.
type sceneFlags struct {
	scenePath  string
	mesh       string
	width      int
	height     int
	background string
	workers    int
	depth      string
	shade      string
	noFit      bool
}

func (f *sceneFlags) register(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.StringVarP(&f.scenePath, "scene", "s", "", "YAML scene file")
	pf.StringVarP(&f.mesh, "mesh", "m", "", "Built-in mesh ("+strings.Join(models.BuiltinNames(), ", ")+") or .glb/.gltf path")
	pf.IntVar(&f.width, "width", 0, "Viewport width in pixels")
	pf.IntVar(&f.height, "height", 0, "Viewport height in pixels")
	pf.StringVar(&f.background, "bg", "", "Background color as #rrggbb")
	pf.IntVarP(&f.workers, "workers", "j", 0, "Goroutines per stage (0 = GOMAXPROCS, <0 = unlimited)")
	pf.StringVar(&f.depth, "depth", "", "Depth resolution: nearest or off")
	pf.StringVar(&f.shade, "shade", "", "Fragment color: normal or color")
	pf.BoolVar(&f.noFit, "no-fit", false, "Keep the mesh's own coordinates instead of fitting it to the view")
}

// scene loads the scene file (or the default scene) and applies flag
// overrides.
func (f *sceneFlags) scene(cmd *cobra.Command) (config.Scene, error) {
	s := config.Default()
	if f.scenePath != "" {
		var err error
		if s, err = config.Load(f.scenePath); err != nil {
			return config.Scene{}, err
		}
	}

	changed := cmd.Flags().Changed
	if f.mesh != "" {
		if isMeshFile(f.mesh) {
			s.Mesh.Path, s.Mesh.Builtin = f.mesh, ""
		} else {
			s.Mesh.Builtin, s.Mesh.Path = f.mesh, ""
		}
	}
	if changed("width") {
		s.Width = f.width
	}
	if changed("height") {
		s.Height = f.height
	}
	if changed("bg") {
		s.Background = f.background
	}
	if changed("workers") {
		s.Workers = f.workers
	}
	if changed("depth") {
		s.Depth = f.depth
	}
	if changed("shade") {
		s.Shade = f.shade
	}
	if f.noFit {
		fit := false
		s.Mesh.Fit = &fit
	}

	if err := s.Validate(); err != nil {
		return config.Scene{}, err
	}
	return s, nil
}

func isMeshFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".glb", ".gltf":
		return true
	}
	_, err := os.Stat(name)
	return err == nil
}

// session is a ready-to-render pipeline with its mesh.
type session struct {
	scene    config.Scene
	mesh     *models.Mesh
	pipeline *render.Pipeline
}

// newSession builds the pipeline for s at the given viewport, which may
// differ from the scene's own size (the terminal viewer sizes to the window).
func newSession(s config.Scene, width, height int) (*session, error) {
	mesh, err := s.Mesh.Load()
	if err != nil {
		return nil, err
	}
	g, err := mesh.Geometry()
	if err != nil {
		return nil, err
	}

	p := render.NewPipeline(s.Options()...)
	if err := p.Init(width, height); err != nil {
		return nil, fmt.Errorf("init %dx%d: %w", width, height, err)
	}
	if err := p.SetGeometry(g); err != nil {
		p.Teardown()
		return nil, err
	}
	p.SetModel(s.ModelMatrix())

	slog.Info("scene ready",
		"mesh", mesh.Name,
		"vertices", mesh.VertexCount(),
		"triangles", mesh.TriangleCount(),
		"viewport", fmt.Sprintf("%dx%d", width, height),
		"depth", s.Depth,
		"shade", s.Shade,
	)
	return &session{scene: s, mesh: mesh, pipeline: p}, nil
}

func (s *session) Close() {
	s.pipeline.Teardown()
}
