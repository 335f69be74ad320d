package main

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/taigrr/scanline/pkg/math3d"
	"github.com/taigrr/scanline/pkg/render"
)

func newBenchCmd(flags *sceneFlags) *cobra.Command {
	var (
		frames int
		spin   float64
		quiet  bool
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Render frames back to back and report throughput",
		Example: "  scanline bench -m cube --width 1920 --height 1080 -n 200\n" +
			"  scanline bench -m model.glb -j 1",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if frames <= 0 {
				return fmt.Errorf("frames must be positive, got %d", frames)
			}
			s, err := flags.scene(cmd)
			if err != nil {
				return err
			}
			sess, err := newSession(s, s.Width, s.Height)
			if err != nil {
				return err
			}
			defer sess.Close()

			var pb *progressbar.ProgressBar
			if quiet {
				pb = progressbar.DefaultSilent(int64(frames))
			} else {
				pb = progressbar.Default(int64(frames), "rendering")
			}
			defer pb.Close()

			res, err := runBench(sess.pipeline, sess.scene.ModelMatrix(), frames, spin, func() { pb.Add(1) })
			if err != nil {
				return err
			}
			pb.Finish()

			res.print(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().IntVarP(&frames, "frames", "n", 100, "Number of frames to render")
	cmd.Flags().Float64Var(&spin, "spin", 0.05, "Yaw added per frame in radians")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Hide the progress bar")
	return cmd
}

// benchResult aggregates per-frame statistics.
type benchResult struct {
	width, height int
	frames        int
	total         time.Duration
	fastest       time.Duration
	slowest       time.Duration
	triangles     int
	candidates    int
	shaded        int
}

// runBench renders frames with the model rotated a little more each frame
// and calls step after each one.
func runBench(p *render.Pipeline, model math3d.Mat4, frames int, spin float64, step func()) (benchResult, error) {
	res := benchResult{frames: frames}
	res.width, res.height = p.Size()

	for i := range frames {
		p.SetModel(math3d.RotateY(float64(i) * spin).Mul(model))
		if _, err := p.RenderFrame(); err != nil {
			return res, fmt.Errorf("frame %d: %w", i, err)
		}

		st := p.Stats()
		res.total += st.Duration
		if i == 0 || st.Duration < res.fastest {
			res.fastest = st.Duration
		}
		res.slowest = max(res.slowest, st.Duration)
		res.triangles += st.Triangles
		res.candidates += st.Candidates
		res.shaded += st.Shaded

		if step != nil {
			step()
		}
	}
	return res, nil
}

func (r benchResult) fps() float64 {
	if r.total <= 0 {
		return 0
	}
	return float64(r.frames) / r.total.Seconds()
}

func (r benchResult) print(w io.Writer) {
	avg := r.total / time.Duration(max(r.frames, 1))
	fmt.Fprintf(w, "viewport   %dx%d\n", r.width, r.height)
	fmt.Fprintf(w, "frames     %d\n", r.frames)
	fmt.Fprintf(w, "fps        %.1f\n", r.fps())
	fmt.Fprintf(w, "frame      avg %s  min %s  max %s\n", avg, r.fastest, r.slowest)
	fmt.Fprintf(w, "per frame  %d triangles  %d candidates  %d shaded\n",
		r.triangles/max(r.frames, 1), r.candidates/max(r.frames, 1), r.shaded/max(r.frames, 1))
}
