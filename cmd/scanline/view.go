package main

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"time"

	"github.com/charmbracelet/harmonica"
	uv "github.com/charmbracelet/ultraviolet"
	"github.com/spf13/cobra"
	"github.com/taigrr/scanline/pkg/config"
	"github.com/taigrr/scanline/pkg/math3d"
	"github.com/taigrr/scanline/pkg/render"
)

const viewHelp = `Controls:
  Mouse drag  - Rotate model
  Scroll, +/- - Zoom in/out
  W/S/A/D     - Pitch and yaw
  Q/E         - Roll left/right
  Space       - Random spin
  R           - Reset view
  C           - Toggle normal / vertex color shading
  Z           - Toggle depth test
  X           - Toggle wireframe overlay
  B           - Toggle bounding box
  ?           - Toggle HUD overlay
  Esc         - Quit`

func newViewCmd(flags *sceneFlags) *cobra.Command {
	var fps int

	cmd := &cobra.Command{
		Use:   "view",
		Short: "Interactive terminal viewer",
		Long:  "Render the scene into the terminal with half-block cells.\n\n" + viewHelp,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if fps <= 0 {
				return fmt.Errorf("fps must be positive, got %d", fps)
			}
			s, err := flags.scene(cmd)
			if err != nil {
				return err
			}
			return runView(cmd.Context(), s, fps)
		},
	}

	cmd.Flags().IntVar(&fps, "fps", 60, "Target FPS")
	return cmd
}

// RotationAxis tracks position and velocity for one rotation axis with spring decay
type RotationAxis struct {
	Position  float64
	Velocity  float64
	velSpring harmonica.Spring
	velAccel  float64 // internal spring velocity (for animating Velocity toward 0)
}

// NewRotationAxis creates an axis with harmonica spring for smooth velocity decay
func NewRotationAxis(fps int) RotationAxis {
	return RotationAxis{
		// Frequency 4.0 = moderate speed, damping 1.0 = critically damped (no overshoot)
		velSpring: harmonica.NewSpring(harmonica.FPS(fps), 4.0, 1.0),
	}
}

// Update applies velocity to position and decays velocity toward 0 using spring
func (a *RotationAxis) Update() {
	a.Position += a.Velocity
	a.Velocity, a.velAccel = a.velSpring.Update(a.Velocity, a.velAccel, 0)
}

// RotationState holds rotation with harmonica spring physics
type RotationState struct {
	Pitch, Yaw, Roll RotationAxis
	fps              int
}

func NewRotationState(fps int) *RotationState {
	return &RotationState{
		Pitch: NewRotationAxis(fps),
		Yaw:   NewRotationAxis(fps),
		Roll:  NewRotationAxis(fps),
		fps:   fps,
	}
}

func (r *RotationState) Update() {
	r.Pitch.Update()
	r.Yaw.Update()
	r.Roll.Update()
}

func (r *RotationState) ApplyImpulse(pitch, yaw, roll float64) {
	r.Pitch.Velocity += pitch
	r.Yaw.Velocity += yaw
	r.Roll.Velocity += roll
}

func (r *RotationState) Reset() {
	r.Pitch = NewRotationAxis(r.fps)
	r.Yaw = NewRotationAxis(r.fps)
	r.Roll = NewRotationAxis(r.fps)
}

// Matrix returns the current rotation as pitch * yaw * roll.
func (r *RotationState) Matrix() math3d.Mat4 {
	return math3d.Euler(r.Pitch.Position, r.Yaw.Position, r.Roll.Position)
}

// ViewState holds UI toggles for the viewer.
type ViewState struct {
	Wireframe bool
	Bounds    bool
	ShowHUD   bool
	Shade     render.ShadeMode
	Depth     render.DepthMode
	Distance  float64 // camera distance from its target
}

// Zoom moves the camera by delta, clamped to [1, 20].
func (v *ViewState) Zoom(delta float64) {
	v.Distance = math.Min(20, math.Max(1, v.Distance+delta))
}

// HUD renders an overlay with model info and frame stats
type HUD struct {
	name      string
	fps       float64
	fpsFrames int
	fpsTime   time.Time
}

// NewHUD creates a new HUD
func NewHUD(name string) *HUD {
	return &HUD{name: name, fpsTime: time.Now()}
}

// UpdateFPS updates the FPS counter (call once per frame)
func (h *HUD) UpdateFPS() {
	h.fpsFrames++
	elapsed := time.Since(h.fpsTime)
	if elapsed >= time.Second {
		h.fps = float64(h.fpsFrames) / elapsed.Seconds()
		h.fpsFrames = 0
		h.fpsTime = time.Now()
	}
}

// Draw writes the HUD into the top and bottom rows of the screen.
func (h *HUD) Draw(scr uv.Screen, area uv.Rectangle, st render.FrameStats, vs *ViewState) {
	if !vs.ShowHUD || area.Dy() < 2 {
		return
	}
	top := fmt.Sprintf(" %.0f FPS  %s  %d tris  %d px  %s ", h.fps, h.name, st.Triangles, st.Shaded, st.Duration.Round(10*time.Microsecond))
	bottom := fmt.Sprintf(" shade:%s  depth:%s  [x] wire:%v  [b] bounds:%v ", vs.Shade, vs.Depth, vs.Wireframe, vs.Bounds)
	drawText(scr, area.Min.X, area.Min.Y, area.Dx(), top)
	drawText(scr, area.Min.X, area.Max.Y-1, area.Dx(), bottom)
}

var hudStyle = uv.Style{Fg: render.RGB(255, 255, 255), Bg: render.RGB(0, 0, 0)}

func drawText(scr uv.Screen, x, y, maxWidth int, s string) {
	for i, r := range []rune(s) {
		if i >= maxWidth {
			return
		}
		scr.SetCell(x+i, y, &uv.Cell{Content: string(r), Width: 1, Style: hudStyle})
	}
}

func runView(ctx context.Context, s config.Scene, fps int) error {
	term := uv.DefaultTerminal()

	width, height, err := term.GetSize()
	if err != nil {
		return fmt.Errorf("get terminal size: %w", err)
	}

	fbWidth, fbHeight := render.TerminalViewport(width, height)
	sess, err := newSession(s, fbWidth, fbHeight)
	if err != nil {
		return err
	}
	defer sess.Close()
	p := sess.pipeline

	if err := term.Start(); err != nil {
		return fmt.Errorf("start terminal: %w", err)
	}

	term.EnterAltScreen()
	term.HideCursor()
	term.Resize(width, height)

	// Enable mouse mode
	fmt.Fprint(os.Stdout, "\x1b[?1003h") // Enable any-event mouse tracking
	fmt.Fprint(os.Stdout, "\x1b[?1006h") // Enable SGR extended mouse mode

	cleanup := func() {
		fmt.Fprint(os.Stdout, "\x1b[?1003l")
		fmt.Fprint(os.Stdout, "\x1b[?1006l")
		term.ExitAltScreen()
		term.ShowCursor()
		term.Shutdown(context.Background())
	}
	defer cleanup()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rotation := NewRotationState(fps)
	cam := p.Camera()
	target := math3d.V3(s.Camera.Target[0], s.Camera.Target[1], s.Camera.Target[2])
	homeDistance := target.Sub(cam.Position).Len()
	vs := &ViewState{
		ShowHUD:  true,
		Shade:    render.ShadeNormal,
		Depth:    render.DepthNearest,
		Distance: homeDistance,
	}
	if mode, err := render.ParseShadeMode(s.Shade); err == nil {
		vs.Shade = mode
	}
	if mode, err := render.ParseDepthMode(s.Depth); err == nil {
		vs.Depth = mode
	}
	hud := NewHUD(sess.mesh.Name)
	baseModel := s.ModelMatrix()

	// Events are handled on the render goroutine so the pipeline has one caller.
	events := make(chan uv.Event, 64)
	go func() {
		for ev := range term.Events() {
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	inputTorque := struct{ pitch, yaw, roll float64 }{}
	const torqueStrength = 3.0

	var mouseDown bool
	var lastMouseX, lastMouseY int

	handle := func(ev uv.Event) error {
		switch ev := ev.(type) {
		case uv.WindowSizeEvent:
			width, height = ev.Width, ev.Height
			term.Erase()
			term.Resize(width, height)
			fbWidth, fbHeight = render.TerminalViewport(width, height)
			if err := p.Init(fbWidth, fbHeight); err != nil {
				return fmt.Errorf("resize: %w", err)
			}

		case uv.KeyPressEvent:
			switch {
			case ev.MatchString("escape", "ctrl+c"):
				cancel()
			case ev.MatchString("q"):
				inputTorque.roll = -torqueStrength
			case ev.MatchString("e"):
				inputTorque.roll = torqueStrength
			case ev.MatchString("w", "up"):
				inputTorque.pitch = -torqueStrength
			case ev.MatchString("s", "down"):
				inputTorque.pitch = torqueStrength
			case ev.MatchString("a", "left"):
				inputTorque.yaw = -torqueStrength
			case ev.MatchString("d", "right"):
				inputTorque.yaw = torqueStrength
			case ev.MatchString("space"):
				rotation.ApplyImpulse(
					(rand.Float64()-0.5)*1.5,
					(rand.Float64()-0.5)*1.5,
					(rand.Float64()-0.5)*1.5,
				)
			case ev.MatchString("r"):
				rotation.Reset()
				vs.Distance = homeDistance
			case ev.MatchString("+", "="):
				vs.Zoom(-0.5)
			case ev.MatchString("-", "_"):
				vs.Zoom(0.5)
			case ev.MatchString("c"):
				if vs.Shade == render.ShadeNormal {
					vs.Shade = render.ShadeVertexColor
				} else {
					vs.Shade = render.ShadeNormal
				}
			case ev.MatchString("z"):
				if vs.Depth == render.DepthNearest {
					vs.Depth = render.DepthOff
				} else {
					vs.Depth = render.DepthNearest
				}
			case ev.MatchString("x"):
				vs.Wireframe = !vs.Wireframe
			case ev.MatchString("b"):
				vs.Bounds = !vs.Bounds
			case ev.MatchString("?", "shift+/"):
				vs.ShowHUD = !vs.ShowHUD
			}

		case uv.KeyReleaseEvent:
			switch {
			case ev.MatchString("w", "up", "s", "down"):
				inputTorque.pitch = 0
			case ev.MatchString("a", "left", "d", "right"):
				inputTorque.yaw = 0
			case ev.MatchString("q", "e"):
				inputTorque.roll = 0
			}

		case uv.MouseClickEvent:
			mouseDown = true
			lastMouseX, lastMouseY = ev.X, ev.Y

		case uv.MouseReleaseEvent:
			mouseDown = false

		case uv.MouseMotionEvent:
			if mouseDown {
				dx := ev.X - lastMouseX
				dy := ev.Y - lastMouseY
				rotation.ApplyImpulse(float64(dy)*0.03, float64(dx)*0.03, 0)
				lastMouseX, lastMouseY = ev.X, ev.Y
			}

		case uv.MouseWheelEvent:
			switch ev.Button {
			case uv.MouseWheelUp:
				vs.Zoom(-0.5)
			case uv.MouseWheelDown:
				vs.Zoom(0.5)
			}
		}
		return nil
	}

	targetDuration := time.Second / time.Duration(fps)
	lastFrame := time.Now()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

	drain:
		for {
			select {
			case ev := <-events:
				if err := handle(ev); err != nil {
					return err
				}
			default:
				break drain
			}
		}

		now := time.Now()
		dt := math.Min(now.Sub(lastFrame).Seconds(), 0.1)
		lastFrame = now

		// Apply input torque and decay it (key release events unreliable)
		rotation.ApplyImpulse(
			inputTorque.pitch*dt,
			inputTorque.yaw*dt,
			inputTorque.roll*dt,
		)
		inputTorque.pitch *= 0.9
		inputTorque.yaw *= 0.9
		inputTorque.roll *= 0.9

		rotation.Update()

		viewCam := cam
		viewCam.Position = target.Sub(cam.ViewDir.Scale(vs.Distance))
		p.SetCamera(viewCam)
		p.SetModel(rotation.Matrix().Mul(baseModel))
		p.SetShadeMode(vs.Shade)
		p.SetDepthMode(vs.Depth)

		fb, err := p.RenderFrame()
		if err != nil {
			return fmt.Errorf("render: %w", err)
		}
		if vs.Wireframe {
			render.DrawWireframe(fb, p.Triangles(), wireColor)
		}
		if vs.Bounds {
			render.DrawBox(fb, p.Geometry().Bounds(), p.MVP(), boundColor)
		}

		area := term.Bounds()
		fb.Draw(term, area)
		hud.UpdateFPS()
		hud.Draw(term, area, p.Stats(), vs)
		if err := term.Display(); err != nil {
			return fmt.Errorf("display: %w", err)
		}

		// Frame timing
		elapsed := time.Since(now)
		if elapsed < targetDuration {
			time.Sleep(targetDuration - elapsed)
		}
	}
}
