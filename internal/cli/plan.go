package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stitchlab/mosaic/pkg/array"
	"github.com/stitchlab/mosaic/pkg/compose"
	mosio "github.com/stitchlab/mosaic/pkg/io"
	"github.com/stitchlab/mosaic/pkg/stitch"
)

// planOpts holds the command-line flags for the plan command.
type planOpts struct {
	mode       string // overlap resolution mode override: auto, grid, free, none
	graph      string // optional output path for the task graph visualization
	placements string // optional output path for resolved placements JSON
}

// newPlanCmd creates the plan command. It resolves tile placements from a
// manifest and summarizes the compositing plan without loading any pixel
// data.
func newPlanCmd() *cobra.Command {
	var opts planOpts

	cmd := &cobra.Command{
		Use:   "plan [manifest]",
		Short: "Resolve tile placements and summarize the compositing plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd.Context(), args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.mode, "mode", "m", "", "overlap resolution mode: auto (default), grid, free, none")
	cmd.Flags().StringVarP(&opts.graph, "graph", "g", "", "write the task graph as SVG (or DOT with a .dot extension) to this path")
	cmd.Flags().StringVarP(&opts.placements, "placements", "p", "", "write resolved placements as JSON to this path")

	return cmd
}

// runPlan loads the manifest, resolves placements, builds the compositing
// plan, and prints a summary.
func runPlan(ctx context.Context, manifestPath string, opts *planOpts) error {
	logger := loggerFromContext(ctx)

	plan, result, err := buildPlan(ctx, manifestPath, opts.mode)
	if err != nil {
		return err
	}

	printSuccess("plan ready")
	printKeyValue("tiles", fmt.Sprint(len(result.Tiles)))
	printKeyValue("mode", string(result.ResolvedMode))
	printKeyValue("canvas", shapeString(plan.Shape()))
	printKeyValue("chunk size", shapeString(plan.ChunkSize()))
	printKeyValue("chunks", fmt.Sprint(plan.NumChunks()))
	printKeyValue("graph nodes", fmt.Sprint(plan.Graph().NodeCount()))
	printKeyValue("dtype", string(plan.Dtype()))

	if opts.placements != "" {
		if err := mosio.ExportJSON(result.Tiles, opts.placements); err != nil {
			return err
		}
		printFile(opts.placements)
	}

	if opts.graph == "" {
		return nil
	}

	var data []byte
	if strings.EqualFold(filepath.Ext(opts.graph), ".dot") {
		data = []byte(plan.ToDOT())
	} else {
		data, err = plan.RenderSVG(ctx)
		if err != nil {
			return err
		}
	}
	if err := os.WriteFile(opts.graph, data, 0o644); err != nil {
		return err
	}
	logger.Debugf("wrote task graph: %d bytes", len(data))
	printFile(opts.graph)
	return nil
}

// buildPlan is the shared front half of the plan and compose commands: it
// parses the manifest, resolves placements, and builds the chunk task graph.
// modeOverride, when non-empty, takes precedence over the manifest mode.
func buildPlan(ctx context.Context, manifestPath, modeOverride string) (*compose.Plan, *stitch.Result, error) {
	logger := loggerFromContext(ctx)

	m, err := loadManifest(manifestPath)
	if err != nil {
		return nil, nil, err
	}
	logger.Infof("loaded manifest: %d tiles", len(m.Tiles))

	tiles, err := m.tiles(filepath.Dir(manifestPath))
	if err != nil {
		return nil, nil, err
	}

	stitchOpts := m.options()
	if modeOverride != "" {
		stitchOpts.Mode = stitch.Mode(modeOverride)
	}
	stitchOpts.Logger = logger

	result, err := stitch.Resolve(tiles, stitchOpts)
	if err != nil {
		return nil, nil, err
	}

	regions, err := compose.RegionsFromTiles(result.Tiles, logger)
	if err != nil {
		return nil, nil, err
	}
	shape, err := compose.CanvasShape(result.Tiles)
	if err != nil {
		return nil, nil, err
	}

	plan, err := compose.NewPlan(regions, shape, m.chunks(), array.Dtype(m.Converter.Dtype), m.Converter.Fill)
	if err != nil {
		return nil, nil, err
	}
	logger.Infof("built plan: %d chunks, %d graph nodes", plan.NumChunks(), plan.Graph().NodeCount())

	return plan, result, nil
}
