// Package config loads scene files: what to draw, from where, and with which
// pipeline settings.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/taigrr/scanline/pkg/math3d"
	"github.com/taigrr/scanline/pkg/render"
	"gopkg.in/yaml.v3"
)

// maxConfigSize caps scene files so a stray path cannot pull in a huge file.
const maxConfigSize = 1 << 20

// Scene holds everything needed to set up a pipeline and its geometry.
type Scene struct {
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Background string `yaml:"background"` // hex, e.g. "#1e1e28"
	Workers    int    `yaml:"workers"`    // 0 = GOMAXPROCS, <0 = unlimited
	Depth      string `yaml:"depth"`      // nearest | off
	Shade      string `yaml:"shade"`      // normal | color

	Mesh   MeshSource `yaml:"mesh"`
	Camera Camera     `yaml:"camera"`
	Model  Transform  `yaml:"model"`
}

// MeshSource names either a built-in mesh or a glTF file. Path wins when
// both are set.
type MeshSource struct {
	Builtin string `yaml:"builtin"`
	Path    string `yaml:"path"`
	Fit     *bool  `yaml:"fit"` // recenter and scale to the unit view; defaults to true
}

// Camera mirrors render.Camera with the field of view in degrees.
type Camera struct {
	Position [3]float64 `yaml:"position"`
	Target   [3]float64 `yaml:"target"`
	Up       [3]float64 `yaml:"up"`
	Light    [3]float64 `yaml:"light"`
	FOV      float64    `yaml:"fov"`
	Near     float64    `yaml:"near"`
	Far      float64    `yaml:"far"`
}

// Transform is applied to the model as translate * rotate * scale.
// Rotation is pitch, yaw, roll in degrees.
type Transform struct {
	Scale       float64    `yaml:"scale"`
	Rotation    [3]float64 `yaml:"rotation"`
	Translation [3]float64 `yaml:"translation"`
}

// Default returns the scene used when no file is given: the built-in cube
// seen from the default camera.
func Default() Scene {
	cam := render.DefaultCamera()
	return Scene{
		Width:      320,
		Height:     240,
		Background: "#1e1e28",
		Depth:      render.DepthNearest.String(),
		Shade:      render.ShadeNormal.String(),
		Mesh:       MeshSource{Builtin: "cube"},
		Camera: Camera{
			Position: vecArray(cam.Position),
			Target:   vecArray(cam.Position.Add(cam.ViewDir)),
			Up:       vecArray(cam.Up),
			Light:    vecArray(cam.Light),
			FOV:      cam.FOV * 180 / math.Pi,
			Near:     cam.Near,
			Far:      cam.Far,
		},
		Model: Transform{Scale: 1, Rotation: [3]float64{25, 35, 0}},
	}
}

// Load reads a YAML scene file on top of Default, so a file only needs the
// fields it changes.
func Load(path string) (Scene, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Scene{}, fmt.Errorf("stat scene: %w", err)
	}
	if info.Size() > maxConfigSize {
		return Scene{}, fmt.Errorf("scene %s is %d bytes, limit is %d", path, info.Size(), maxConfigSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Scene{}, fmt.Errorf("read scene: %w", err)
	}

	s, err := Parse(data)
	if err != nil {
		return Scene{}, fmt.Errorf("%s: %w", path, err)
	}
	slog.Debug("loaded scene", "path", path, "width", s.Width, "height", s.Height, "mesh", s.Mesh.describe())
	return s, nil
}

// Parse decodes YAML scene data on top of Default and validates it.
func Parse(data []byte) (Scene, error) {
	s := Default()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Scene{}, fmt.Errorf("parse scene: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Scene{}, err
	}
	return s, nil
}

// Validate reports every problem with the scene at once.
func (s Scene) Validate() error {
	var errs []error
	if s.Width <= 0 || s.Height <= 0 {
		errs = append(errs, fmt.Errorf("viewport %dx%d must be positive", s.Width, s.Height))
	}
	if _, err := colorful.Hex(s.Background); err != nil {
		errs = append(errs, fmt.Errorf("background %q: %w", s.Background, err))
	}
	if _, err := render.ParseDepthMode(s.Depth); err != nil {
		errs = append(errs, err)
	}
	if _, err := render.ParseShadeMode(s.Shade); err != nil {
		errs = append(errs, err)
	}
	if s.Mesh.Builtin == "" && s.Mesh.Path == "" {
		errs = append(errs, errors.New("mesh: set builtin or path"))
	}
	if s.Camera.FOV <= 0 || s.Camera.FOV >= 180 {
		errs = append(errs, fmt.Errorf("camera fov %g must be in (0, 180) degrees", s.Camera.FOV))
	}
	if s.Camera.Near <= 0 || s.Camera.Far <= s.Camera.Near {
		errs = append(errs, fmt.Errorf("camera near %g / far %g must satisfy 0 < near < far", s.Camera.Near, s.Camera.Far))
	}
	if s.Camera.Position == s.Camera.Target {
		errs = append(errs, errors.New("camera position and target coincide"))
	}
	if s.Model.Scale <= 0 {
		errs = append(errs, fmt.Errorf("model scale %g must be positive", s.Model.Scale))
	}
	return errors.Join(errs...)
}

// BackgroundColor returns the background as linear 0-1 RGB.
func (s Scene) BackgroundColor() (math3d.Vec3, error) {
	c, err := colorful.Hex(s.Background)
	if err != nil {
		return math3d.Vec3{}, fmt.Errorf("background %q: %w", s.Background, err)
	}
	return math3d.V3(c.R, c.G, c.B), nil
}

// RenderCamera converts the camera section to a render.Camera.
func (s Scene) RenderCamera() render.Camera {
	pos := arrayVec(s.Camera.Position)
	up := arrayVec(s.Camera.Up)
	if up.Len() == 0 {
		up = math3d.V3(0, 1, 0)
	}
	return render.Camera{
		Position: pos,
		ViewDir:  arrayVec(s.Camera.Target).Sub(pos).Normalize(),
		Up:       up,
		Light:    arrayVec(s.Camera.Light),
		FOV:      s.Camera.FOV * math.Pi / 180,
		Near:     s.Camera.Near,
		Far:      s.Camera.Far,
	}
}

// ModelMatrix returns the model transform.
func (s Scene) ModelMatrix() math3d.Mat4 {
	r := s.Model.Rotation
	rot := math3d.Euler(r[0]*math.Pi/180, r[1]*math.Pi/180, r[2]*math.Pi/180)
	return math3d.Translate(arrayVec(s.Model.Translation)).
		Mul(rot).
		Mul(math3d.Scale(math3d.Splat3(s.Model.Scale)))
}

// Options returns the pipeline options the scene describes. Call Validate
// first; unparseable modes fall back to the defaults.
func (s Scene) Options() []render.Option {
	depth, _ := render.ParseDepthMode(s.Depth)
	shade, _ := render.ParseShadeMode(s.Shade)
	bg, _ := s.BackgroundColor()
	return []render.Option{
		render.WithWorkers(s.Workers),
		render.WithDepthMode(depth),
		render.WithShadeMode(shade),
		render.WithBackground(bg),
		render.WithCamera(s.RenderCamera()),
	}
}

// ShouldFit reports whether the mesh should be normalized to the unit view.
func (m MeshSource) ShouldFit() bool {
	return m.Fit == nil || *m.Fit
}

func (m MeshSource) describe() string {
	if m.Path != "" {
		return m.Path
	}
	return m.Builtin
}

func vecArray(v math3d.Vec3) [3]float64 { return [3]float64{v.X, v.Y, v.Z} }

func arrayVec(a [3]float64) math3d.Vec3 { return math3d.V3(a[0], a[1], a[2]) }
