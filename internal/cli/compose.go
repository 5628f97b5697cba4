package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/stitchlab/mosaic/pkg/array"
	"github.com/stitchlab/mosaic/pkg/compose"
	"github.com/stitchlab/mosaic/pkg/taskgraph"
)

// composeOpts holds the command-line flags for the compose command.
type composeOpts struct {
	output  string // output directory for chunk files
	mode    string // overlap resolution mode override
	workers int    // parallel chunk evaluation workers; <=1 runs sequentially
}

// newComposeCmd creates the compose command. It resolves placements, then
// materializes every chunk of the composited canvas to raw files.
func newComposeCmd() *cobra.Command {
	opts := composeOpts{workers: 1}

	cmd := &cobra.Command{
		Use:   "compose [manifest]",
		Short: "Materialize the composited canvas chunk by chunk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompose(cmd.Context(), args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output directory for chunk files (default: manifest name without extension)")
	cmd.Flags().StringVarP(&opts.mode, "mode", "m", "", "overlap resolution mode: auto (default), grid, free, none")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", opts.workers, "parallel chunk workers (1 = sequential)")

	return cmd
}

// runCompose builds the plan and writes every chunk into the output
// directory as little-endian raw files.
func runCompose(ctx context.Context, manifestPath string, opts *composeOpts) error {
	logger := loggerFromContext(ctx)

	plan, result, err := buildPlan(ctx, manifestPath, opts.mode)
	if err != nil {
		return err
	}

	outDir := opts.output
	if outDir == "" {
		base := filepath.Base(manifestPath)
		outDir = base[:len(base)-len(filepath.Ext(base))]
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	var exec taskgraph.Executor
	if opts.workers > 1 {
		exec = taskgraph.NewPool(opts.workers)
		logger.Debugf("using %d workers", opts.workers)
	} else {
		exec = taskgraph.NewSequential()
	}

	track := newProgress(logger)
	writer := &chunkFileWriter{dir: outDir, logger: logger}
	if err := plan.Materialize(ctx, exec, writer); err != nil {
		return err
	}
	track.done(fmt.Sprintf("composited %d chunks", writer.written))

	printSuccess("composited %s canvas (mode %s, %d tiles)",
		shapeString(plan.Shape()), result.ResolvedMode, len(result.Tiles))
	printFile(outDir)
	return nil
}

// chunkFileWriter persists chunks as raw little-endian files named after
// their per-axis chunk index, e.g. chunk_0_0_0_1_2.raw.
type chunkFileWriter struct {
	dir     string
	logger  *charmlog.Logger
	written int
}

func (w *chunkFileWriter) WriteChunk(ctx context.Context, index []int, bounds [][2]int, data *array.Array) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := filepath.Join(w.dir, "chunk_"+indexName(index)+".raw")
	if err := os.WriteFile(path, data.Data, 0o644); err != nil {
		return err
	}
	w.written++
	w.logger.Debugf("wrote %s: shape %v, %d bytes", path, data.Shape, len(data.Data))
	return nil
}

// indexName joins a chunk index into an underscore-separated name.
func indexName(index []int) string {
	s := ""
	for i, v := range index {
		if i > 0 {
			s += "_"
		}
		s += fmt.Sprint(v)
	}
	return s
}

var _ compose.ChunkWriter = (*chunkFileWriter)(nil)
