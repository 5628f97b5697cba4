// Package compose builds lazy chunked composites from placed tiles. A plan
// partitions the output canvas into chunks and wires a deferred task graph in
// which every tile is loaded at most once, no matter how many chunks its
// region spans. Uncovered areas are filled with a constant; overlapping
// regions follow a last-writer-wins policy in region order.
package compose

import (
	"context"
	"time"

	charmlog "github.com/charmbracelet/log"

	"github.com/stitchlab/mosaic/pkg/array"
	moserr "github.com/stitchlab/mosaic/pkg/errors"
	"github.com/stitchlab/mosaic/pkg/geom"
	"github.com/stitchlab/mosaic/pkg/observability"
	"github.com/stitchlab/mosaic/pkg/tile"
)

// Region is a rectangular slice of the output canvas backed by a deferred
// loader. Bounds are half-open [start, stop) per axis in canvas coordinates.
type Region struct {
	// Start and Stop bound the region per axis.
	Start []int
	Stop  []int

	// Load produces the region data. Called at most once per plan execution.
	Load func(ctx context.Context) (*array.Array, error)

	// Name identifies the region in plan graphs and errors. Optional.
	Name string
}

// Shape returns the per-axis extent of the region.
func (r Region) Shape() []int {
	shape := make([]int, len(r.Start))
	for ax := range r.Start {
		shape[ax] = r.Stop[ax] - r.Start[ax]
	}
	return shape
}

// RegionsFromTiles converts finalized pixel-space tiles into canvas regions,
// one per tile, in input order. The logger is handed to tile loading for the
// off-by-one shape warning and may be nil.
func RegionsFromTiles(tiles []*tile.Tile, logger *charmlog.Logger) ([]Region, error) {
	regions := make([]Region, len(tiles))
	for i, t := range tiles {
		if t.Space() != geom.SpacePixel {
			return nil, moserr.New(moserr.ErrCodeGeometry,
				"tile %q must be in pixel space to become a region", t.Name())
		}
		tl := t.TopLeft()
		shape := t.PixelShape()
		start := []int{tl.T, tl.C, int(tl.Z), int(tl.Y), int(tl.X)}
		stop := make([]int, len(start))
		for ax := range start {
			stop[ax] = start[ax] + shape[ax]
		}
		regions[i] = Region{
			Start: start,
			Stop:  stop,
			Name:  t.Name(),
			Load: func(ctx context.Context) (*array.Array, error) {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				start := time.Now()
				data, err := t.Load(logger)
				observability.Composite().OnTileLoad(ctx, t.Name(), time.Since(start), err)
				return data, err
			},
		}
	}
	return regions, nil
}

// CanvasShape returns the smallest canvas that holds every tile: the per-axis
// maximum of the tile extents in (T, C, Z, Y, X) order.
func CanvasShape(tiles []*tile.Tile) ([]int, error) {
	if len(tiles) == 0 {
		return nil, moserr.New(moserr.ErrCodeInvalidInput, "empty list of tiles")
	}
	shape := make([]int, 5)
	for _, t := range tiles {
		if t.Space() != geom.SpacePixel {
			return nil, moserr.New(moserr.ErrCodeGeometry,
				"tile %q must be in pixel space to size the canvas", t.Name())
		}
		br := t.BotRight()
		for ax, v := range []int{br.T, br.C, int(br.Z), int(br.Y), int(br.X)} {
			shape[ax] = max(shape[ax], v)
		}
	}
	return shape, nil
}
