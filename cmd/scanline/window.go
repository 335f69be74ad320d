package main

import (
	"context"
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/spf13/cobra"
	"github.com/taigrr/scanline/pkg/math3d"
	"github.com/taigrr/scanline/pkg/render"
)

const windowTPS = 60

func newWindowCmd(flags *sceneFlags) *cobra.Command {
	var (
		zoom int
		spin float64
	)

	cmd := &cobra.Command{
		Use:   "window",
		Short: "Show the scene in a desktop window",
		Long: "Open a desktop window that renders the scene every tick.\n\n" +
			"Arrow keys spin the model, C toggles shading, Z toggles the depth test, Esc quits.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.scene(cmd)
			if err != nil {
				return err
			}
			sess, err := newSession(s, s.Width, s.Height)
			if err != nil {
				return err
			}
			defer sess.Close()

			g := newWindowGame(cmd.Context(), sess, spin)
			ebiten.SetWindowTitle("scanline - " + sess.mesh.Name)
			ebiten.SetWindowSize(s.Width*zoom, s.Height*zoom)
			ebiten.SetTPS(windowTPS)
			return ebiten.RunGame(g)
		},
	}

	cmd.Flags().IntVar(&zoom, "zoom", 2, "Window pixels per framebuffer pixel")
	cmd.Flags().Float64Var(&spin, "spin", 0.6, "Idle yaw speed in radians per second")
	return cmd
}

// windowGame drives the pipeline from ebiten's update loop and uploads the
// composed frame to a texture on draw.
type windowGame struct {
	ctx      context.Context
	sess     *session
	rotation *RotationState
	model    math3d.Mat4
	spin     float64

	shade render.ShadeMode
	depth render.DepthMode
	keys  map[ebiten.Key]bool

	frame []byte
	img   *ebiten.Image
}

func newWindowGame(ctx context.Context, sess *session, spin float64) *windowGame {
	g := &windowGame{
		ctx:      ctx,
		sess:     sess,
		rotation: NewRotationState(windowTPS),
		model:    sess.scene.ModelMatrix(),
		spin:     spin,
		keys:     make(map[ebiten.Key]bool),
	}
	if mode, err := render.ParseShadeMode(sess.scene.Shade); err == nil {
		g.shade = mode
	}
	if mode, err := render.ParseDepthMode(sess.scene.Depth); err == nil {
		g.depth = mode
	}
	return g
}

// pressed reports a key going down this tick.
func (g *windowGame) pressed(k ebiten.Key) bool {
	down := ebiten.IsKeyPressed(k)
	was := g.keys[k]
	g.keys[k] = down
	return down && !was
}

func (g *windowGame) Update() error {
	if g.ctx.Err() != nil || ebiten.IsKeyPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}

	const impulse = 0.02
	if ebiten.IsKeyPressed(ebiten.KeyArrowLeft) {
		g.rotation.ApplyImpulse(0, -impulse, 0)
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowRight) {
		g.rotation.ApplyImpulse(0, impulse, 0)
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowUp) {
		g.rotation.ApplyImpulse(-impulse, 0, 0)
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowDown) {
		g.rotation.ApplyImpulse(impulse, 0, 0)
	}
	if g.pressed(ebiten.KeyC) {
		if g.shade == render.ShadeNormal {
			g.shade = render.ShadeVertexColor
		} else {
			g.shade = render.ShadeNormal
		}
	}
	if g.pressed(ebiten.KeyZ) {
		if g.depth == render.DepthNearest {
			g.depth = render.DepthOff
		} else {
			g.depth = render.DepthNearest
		}
	}
	g.rotation.Yaw.Position += g.spin / windowTPS
	g.rotation.Update()

	p := g.sess.pipeline
	p.SetModel(g.rotation.Matrix().Mul(g.model))
	p.SetShadeMode(g.shade)
	p.SetDepthMode(g.depth)

	fb, err := p.RenderFrame()
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	g.frame = rgbaBytes(g.frame, fb)
	return nil
}

func (g *windowGame) Draw(screen *ebiten.Image) {
	w, h := g.sess.pipeline.Size()
	if g.img == nil || g.img.Bounds().Dx() != w || g.img.Bounds().Dy() != h {
		if g.img != nil {
			g.img.Deallocate()
		}
		g.img = ebiten.NewImage(w, h)
	}
	if len(g.frame) == 4*w*h {
		g.img.WritePixels(g.frame)
	}
	screen.DrawImage(g.img, nil)
}

func (g *windowGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.sess.pipeline.Size()
}

// rgbaBytes packs the framebuffer into dst as RGBA8, reusing dst's storage.
func rgbaBytes(dst []byte, fb *render.Framebuffer) []byte {
	n := 4 * len(fb.Pixels)
	if cap(dst) < n {
		dst = make([]byte, n)
	}
	dst = dst[:n]
	for i, c := range fb.Pixels {
		j := i * 4
		dst[j+0] = c.R
		dst[j+1] = c.G
		dst[j+2] = c.B
		dst[j+3] = c.A
	}
	return dst
}

var _ ebiten.Game = (*windowGame)(nil)
