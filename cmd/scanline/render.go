package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/taigrr/scanline/pkg/render"
)

var (
	wireColor  = render.RGB(0, 255, 128)
	boundColor = render.RGB(255, 200, 0)
)

func newRenderCmd(flags *sceneFlags) *cobra.Command {
	var (
		output    string
		scale     int
		wireframe bool
		bounds    bool
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render one frame to a PNG file",
		Example: "  scanline render -m cube -o cube.png --scale 2\n" +
			"  scanline render -m model.glb --shade color --wireframe",
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

			p := sess.pipeline
			fb, err := p.RenderFrame()
			if err != nil {
				return fmt.Errorf("render: %w", err)
			}
			if wireframe {
				render.DrawWireframe(fb, p.Triangles(), wireColor)
			}
			if bounds {
				render.DrawBox(fb, p.Geometry().Bounds(), p.MVP(), boundColor)
			}

			if err := fb.SavePNG(output, scale); err != nil {
				return err
			}

			st := p.Stats()
			slog.Info("wrote frame",
				"path", output,
				"triangles", st.Triangles,
				"shaded", st.Shaded,
				"culled", st.Culled,
				"duration", st.Duration,
			)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "frame.png", "Output PNG path")
	cmd.Flags().IntVar(&scale, "scale", 1, "Integer upscale factor (nearest neighbor)")
	cmd.Flags().BoolVar(&wireframe, "wireframe", false, "Outline triangles over the frame")
	cmd.Flags().BoolVar(&bounds, "bounds", false, "Draw the mesh bounding box over the frame")
	return cmd
}
