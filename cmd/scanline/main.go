// scanline - parallel software rasterizer
// Render meshes to PNG, the terminal, or a desktop window.
//
// Commands:
//
//	render  - Render one frame to a PNG file
//	view    - Interactive terminal viewer with spring rotation
//	window  - Desktop window viewer
//	bench   - Render N frames and report throughput
package main

import (
	"context"
	"log/slog"
	"os"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"github.com/taigrr/scanline/pkg/render"
)

var version = "dev"

func main() {
	if err := fang.Execute(
		context.Background(),
		newRootCmd(),
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM),
	); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &sceneFlags{}
	var verbose bool

	root := &cobra.Command{
		Use:   "scanline",
		Short: "Parallel software rasterizer",
		Long: "scanline transforms, rasterizes and depth-resolves triangle meshes on the CPU,\n" +
			"fanning each pipeline stage out across goroutines.",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
			slog.SetDefault(logger)
			if verbose {
				render.SetLogger(logger)
			}
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log pipeline activity to stderr")
	flags.register(root)

	root.AddCommand(
		newRenderCmd(flags),
		newViewCmd(flags),
		newWindowCmd(flags),
		newBenchCmd(flags),
	)
	return root
}
