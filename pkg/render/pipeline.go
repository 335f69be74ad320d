package render

import (
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/taigrr/scanline/pkg/math3d"
)

// MaxPixels is the largest viewport Init accepts (8192x8192).
const MaxPixels = 1 << 26

// Pipeline stage names, as reported in FaultError.Stage.
const (
	StageVertex   = "vertex"
	StageAssemble = "assemble"
	StageClear    = "clear"
	StageDepth    = "depth"
	StageShade    = "shade"
	StageCompose  = "compose"
)

// FrameStats reports the work done by the last successful frame.
type FrameStats struct {
	Frame      uint64        // Frames rendered since Init, starting at 1
	Vertices   int           // Vertices transformed
	Triangles  int           // Triangles assembled
	Candidates int           // Pixel centers tested against a triangle
	Covered    int           // Candidates inside a triangle
	Shaded     int           // Fragments written after depth resolution
	Culled     bool          // Geometry was entirely off screen and skipped
	Duration   time.Duration // Wall time of RenderFrame
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithWorkers caps the number of goroutines per stage. 0 uses GOMAXPROCS,
// a negative value starts one goroutine per work chunk.
func WithWorkers(n int) Option {
	return func(p *Pipeline) { p.workers = n }
}

// WithDepthMode selects how overlapping fragments are resolved.
func WithDepthMode(m DepthMode) Option {
	return func(p *Pipeline) { p.depth = m }
}

// WithShadeMode selects the fragment color source.
func WithShadeMode(m ShadeMode) Option {
	return func(p *Pipeline) { p.shade = m }
}

// WithBackground sets the clear color, RGB in [0,1].
func WithBackground(c math3d.Vec3) Option {
	return func(p *Pipeline) { p.background = c }
}

// WithCamera sets the initial camera.
func WithCamera(c Camera) Option {
	return func(p *Pipeline) { p.camera = c }
}

// WithLogger sets the logger for this pipeline instead of the package logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// Pipeline owns all state for rendering frames: the viewport, the current
// geometry, and the per-frame buffers. It replaces process-wide state, so
// several pipelines can render independently.
//
// A Pipeline is not safe for concurrent use; the parallelism is inside
// RenderFrame.
type Pipeline struct {
	workers    int
	depth      DepthMode
	shade      ShadeMode
	background math3d.Vec3
	camera     Camera
	model      math3d.Mat4
	transform  *math3d.Mat4 // Overrides camera and model when set
	logger     *slog.Logger

	initialized bool
	fault       error
	width       int
	height      int
	geometry    *Geometry
	store       *FragmentStore
	raster      *Rasterizer
	fb          *Framebuffer

	// Scratch reused across frames
	transformed []TransformedVertex
	triangles   []Triangle

	stats FrameStats
	frame uint64

	// stageHook runs at the start of every work chunk. Tests use it to
	// inject faults.
	stageHook func(stage string)
}

// NewPipeline creates an uninitialized pipeline. Call Init before rendering.
func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{
		camera: DefaultCamera(),
		model:  math3d.Identity(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) log() *slog.Logger {
	if p.logger != nil {
		return p.logger
	}
	return Logger()
}

// Init allocates the fragment store and framebuffer for a width x height
// viewport. Calling it again releases the previous buffers first, so it
// doubles as resize. Init also clears a previous fault. Geometry, camera
// and model transform are kept.
func (p *Pipeline) Init(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidViewport, width, height)
	}
	if width > MaxPixels || height > MaxPixels || width*height > MaxPixels {
		return fmt.Errorf("%w: viewport %dx%d exceeds %d pixels", ErrResourceExhausted, width, height, MaxPixels)
	}

	p.release()
	p.width, p.height = width, height
	p.store = NewFragmentStore(width, height)
	p.raster = NewRasterizer(p.store)
	p.fb = NewFramebuffer(width, height)
	p.initialized = true
	p.fault = nil
	p.frame = 0
	p.stats = FrameStats{}

	p.log().Info("render: init", "width", width, "height", height, "workers", normalizeWorkers(p.workers))
	return nil
}

// Size returns the viewport dimensions, or zeros before Init.
func (p *Pipeline) Size() (width, height int) {
	return p.width, p.height
}

// SetBuffers validates and uploads new geometry, replacing the previous
// geometry wholesale. Malformed input returns ErrInvalidGeometry or
// ErrIndexOutOfRange and leaves the current geometry in place.
func (p *Pipeline) SetBuffers(indices []uint32, positions, normals, colors []float32) error {
	if !p.initialized {
		return ErrNotInitialized
	}
	g, err := NewGeometry(indices, positions, normals, colors)
	if err != nil {
		p.log().Warn("render: rejected geometry", "error", err)
		return err
	}
	p.setGeometry(g)
	return nil
}

// SetGeometry uploads geometry that was already validated by NewGeometry.
// A nil geometry renders only the background.
func (p *Pipeline) SetGeometry(g *Geometry) error {
	if !p.initialized {
		return ErrNotInitialized
	}
	p.setGeometry(g)
	return nil
}

func (p *Pipeline) setGeometry(g *Geometry) {
	p.geometry = g
	p.log().Info("render: geometry uploaded", "vertices", g.VertexCount(), "triangles", g.TriangleCount())
}

// Geometry returns the current geometry, which may be nil.
func (p *Pipeline) Geometry() *Geometry {
	return p.geometry
}

// SetCamera replaces the camera used from the next frame on.
func (p *Pipeline) SetCamera(c Camera) {
	p.camera = c
	p.transform = nil
}

// Camera returns the current camera.
func (p *Pipeline) Camera() Camera {
	return p.camera
}

// SetModel sets the model transform applied before the camera.
func (p *Pipeline) SetModel(m math3d.Mat4) {
	p.model = m
	p.transform = nil
}

// SetTransform renders with m as the full model-view-projection matrix,
// ignoring camera and model until the next SetCamera or SetModel. With the
// identity matrix, vertex positions are taken as NDC directly.
func (p *Pipeline) SetTransform(m math3d.Mat4) {
	p.transform = &m
}

// SetDepthMode changes depth resolution from the next frame on.
func (p *Pipeline) SetDepthMode(m DepthMode) {
	p.depth = m
}

// SetShadeMode changes the fragment color source from the next frame on.
func (p *Pipeline) SetShadeMode(m ShadeMode) {
	p.shade = m
}

// SetBackground sets the clear color used from the next frame on.
func (p *Pipeline) SetBackground(c math3d.Vec3) {
	p.background = c
}

// MVP returns the combined model-view-projection matrix for the current
// camera, model and viewport.
func (p *Pipeline) MVP() math3d.Mat4 {
	if p.transform != nil {
		return *p.transform
	}
	aspect := 1.0
	if p.height > 0 {
		aspect = float64(p.width) / float64(p.height)
	}
	return p.camera.ViewProjection(aspect).Mul(p.model)
}

// RenderFrame renders the current geometry and returns the pipeline-owned
// framebuffer. The framebuffer is overwritten by the next frame; Clone it
// to keep a copy.
//
// On a stage fault the frame is abandoned, no framebuffer is returned, and
// every later call returns ErrFaulted until Init.
func (p *Pipeline) RenderFrame() (*Framebuffer, error) {
	if err := p.renderInto(nil); err != nil {
		return nil, err
	}
	return p.fb, nil
}

// RenderFrameInto renders like RenderFrame but composes into dst, which
// must hold exactly width*height pixels.
func (p *Pipeline) RenderFrameInto(dst []color.RGBA) error {
	if p.initialized && len(dst) != p.width*p.height {
		return fmt.Errorf("%w: %d pixels for %dx%d viewport", ErrSurfaceSize, len(dst), p.width, p.height)
	}
	return p.renderInto(dst)
}

func (p *Pipeline) renderInto(dst []color.RGBA) error {
	if !p.initialized {
		return ErrNotInitialized
	}
	if p.fault != nil {
		return fmt.Errorf("%w: %w", ErrFaulted, p.fault)
	}
	if dst == nil {
		dst = p.fb.Pixels
	}

	start := time.Now()
	stats, err := p.runStages(dst)
	if err != nil {
		var fault *FaultError
		if errors.As(err, &fault) {
			p.fault = err
			p.log().Warn("render: frame abandoned", "stage", fault.Stage, "error", err)
		}
		return err
	}

	p.frame++
	stats.Frame = p.frame
	stats.Duration = time.Since(start)
	p.stats = stats
	p.log().Debug("render: frame",
		"frame", stats.Frame,
		"triangles", stats.Triangles,
		"candidates", stats.Candidates,
		"shaded", stats.Shaded,
		"culled", stats.Culled,
		"duration", stats.Duration)
	return nil
}

// runStages executes the stages in order. Each parallelFor returns only
// after all of its chunks finish, which is the barrier between stages.
func (p *Pipeline) runStages(dst []color.RGBA) (FrameStats, error) {
	var stats FrameStats
	g := p.geometry
	nv, nt := g.VertexCount(), g.TriangleCount()
	mvp := p.MVP()
	if nt > 0 && !NewFrustumFromMatrix(mvp).IntersectAABB(g.Bounds()) {
		stats.Culled = true
		nv, nt = 0, 0
	}
	stats.Vertices, stats.Triangles = nv, nt

	p.transformed = grow(p.transformed, nv)
	p.triangles = grow(p.triangles, nt)

	if nv > 0 {
		if err := transformVertices(p.workers, p.stageHook, g.vertices, mvp, p.transformed); err != nil {
			return stats, err
		}
	}
	if nt > 0 {
		if err := assemblePrimitives(p.workers, p.stageHook, g.indices, p.transformed, p.triangles); err != nil {
			return stats, err
		}
	}

	w := p.width
	bg := p.background
	err := parallelFor(p.workers, p.height, rowChunk, StageClear, p.stageHook, func(lo, hi int) {
		p.store.clearRange(lo*w, hi*w, bg)
	})
	if err != nil {
		return stats, err
	}

	p.raster.Depth = p.depth
	p.raster.Shade = p.shade
	var candidates, covered, shaded atomic.Int64

	err = parallelFor(p.workers, nt, triangleChunk, StageDepth, p.stageHook, func(lo, hi int) {
		var s RasterStats
		for i := lo; i < hi; i++ {
			s.Add(p.raster.DepthPass(&p.triangles[i]))
		}
		candidates.Add(int64(s.Candidates))
		covered.Add(int64(s.Covered))
	})
	if err != nil {
		return stats, err
	}

	err = parallelFor(p.workers, nt, triangleChunk, StageShade, p.stageHook, func(lo, hi int) {
		var s RasterStats
		for i := lo; i < hi; i++ {
			s.Add(p.raster.ShadePass(&p.triangles[i]))
		}
		shaded.Add(int64(s.Shaded))
	})
	if err != nil {
		return stats, err
	}

	err = parallelFor(p.workers, p.height, rowChunk, StageCompose, p.stageHook, func(lo, hi int) {
		p.store.composeRange(dst, lo*w, hi*w)
	})
	if err != nil {
		return stats, err
	}

	stats.Candidates = int(candidates.Load())
	stats.Covered = int(covered.Load())
	stats.Shaded = int(shaded.Load())
	return stats, nil
}

// Triangles returns the triangles assembled by the last frame. The slice is
// reused by the next frame.
func (p *Pipeline) Triangles() []Triangle {
	return p.triangles
}

// Fragments returns the fragment store of the last frame, or nil before Init.
func (p *Pipeline) Fragments() *FragmentStore {
	return p.store
}

// Stats returns the counters of the last successful frame.
func (p *Pipeline) Stats() FrameStats {
	return p.stats
}

// Teardown releases all buffers and the geometry. Every later call that
// can fail returns ErrNotInitialized until Init.
func (p *Pipeline) Teardown() {
	if p.initialized {
		p.log().Info("render: teardown", "frames", p.frame)
	}
	p.release()
	p.geometry = nil
	p.initialized = false
	p.fault = nil
	p.width, p.height = 0, 0
}

func (p *Pipeline) release() {
	p.store = nil
	p.raster = nil
	p.fb = nil
	p.transformed = nil
	p.triangles = nil
}

// grow returns s resized to n, reusing its backing array when possible.
func grow[T any](s []T, n int) []T {
	if cap(s) >= n {
		return s[:n]
	}
	return make([]T, n)
}
