package compose

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/stitchlab/mosaic/pkg/array"
	moserr "github.com/stitchlab/mosaic/pkg/errors"
	"github.com/stitchlab/mosaic/pkg/observability"
	"github.com/stitchlab/mosaic/pkg/taskgraph"
)

// Plan is a lazy chunked composite: a task graph in which each output chunk
// is a node depending on the region loaders that overlap it. Building a plan
// performs no loading; chunks are materialized through an executor, and
// shared loader nodes guarantee each region loads at most once per executor.
type Plan struct {
	shape   []int
	chunks  []int
	dtype   array.Dtype
	fill    float64
	regions []Region
	bounds  [][][2]int // clamped region bounds
	ranges  [][][2]int // chunk bounds per axis
	counts  []int      // chunk count per axis
	graph   *taskgraph.Graph
	nodes   []string // flat chunk index -> graph node ID
	token   string
}

// ChunkWriter receives materialized chunks. Implementations persist the data
// however they like (raw files, object stores, test recorders).
type ChunkWriter interface {
	// WriteChunk stores one chunk. index is the per-axis chunk index and
	// bounds the half-open canvas range the data covers.
	WriteChunk(ctx context.Context, index []int, bounds [][2]int, data *array.Array) error
}

// planToken derives a deterministic content hash for the plan inputs, so
// identical inputs produce identical graph node IDs.
func planToken(shape, chunks []int, dtype array.Dtype, fill float64, bounds [][][2]int) string {
	data, _ := json.Marshal([]any{shape, chunks, dtype, fill, bounds})
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:16]
}

// NewPlan builds the chunk task graph for compositing regions onto a canvas
// of the given shape, partitioned into chunks of the given per-axis size.
// Region bounds are clamped to the canvas. Area not covered by any region is
// filled with fill.
func NewPlan(regions []Region, shape, chunks []int, dtype array.Dtype, fill float64) (*Plan, error) {
	if len(chunks) != len(shape) {
		return nil, moserr.New(moserr.ErrCodeCompositorConfig,
			"chunks length (%d) must match shape length (%d)", len(chunks), len(shape))
	}
	if !dtype.Valid() {
		return nil, moserr.New(moserr.ErrCodeCompositorConfig, "unknown dtype %q", dtype)
	}
	for ax, c := range chunks {
		if c <= 0 {
			return nil, moserr.New(moserr.ErrCodeCompositorConfig,
				"chunk size must be positive on axis %d, got %d", ax, c)
		}
		if shape[ax] < 0 {
			return nil, moserr.New(moserr.ErrCodeCompositorConfig,
				"negative canvas extent on axis %d", ax)
		}
	}

	bounds := make([][][2]int, len(regions))
	for ri, region := range regions {
		if len(region.Start) != len(shape) || len(region.Stop) != len(shape) {
			return nil, moserr.New(moserr.ErrCodeCompositorConfig,
				"region %d rank %d does not match canvas rank %d", ri, len(region.Start), len(shape))
		}
		if region.Load == nil {
			return nil, moserr.New(moserr.ErrCodeCompositorConfig, "region %d has no loader", ri)
		}
		b := make([][2]int, len(shape))
		for ax := range shape {
			lo := max(0, region.Start[ax])
			hi := min(region.Stop[ax], shape[ax])
			if hi < lo {
				hi = lo
			}
			b[ax] = [2]int{lo, hi}
		}
		bounds[ri] = b
	}

	p := &Plan{
		shape:   slices.Clone(shape),
		chunks:  slices.Clone(chunks),
		dtype:   dtype,
		fill:    fill,
		regions: regions,
		bounds:  bounds,
		ranges:  chunkRanges(shape, chunks),
		graph:   taskgraph.New(),
		token:   planToken(shape, chunks, dtype, fill, bounds),
	}
	p.counts = make([]int, len(shape))
	total := 1
	for ax := range p.ranges {
		p.counts[ax] = len(p.ranges[ax])
		total *= p.counts[ax]
	}
	p.nodes = make([]string, total)

	if err := p.build(); err != nil {
		return nil, err
	}
	return p, nil
}

// build wires loader, fill and chunk nodes into the task graph.
func (p *Plan) build() error {
	loaderIDs := make([]string, len(p.regions))
	for ri, region := range p.regions {
		id := fmt.Sprintf("loader-%s-%d", p.token, ri)
		loaderIDs[ri] = id
		load := region.Load
		err := p.graph.AddNode(taskgraph.Node{
			ID: id,
			Run: func(ctx context.Context, _ []any) (any, error) {
				return load(ctx)
			},
		})
		if err != nil {
			return err
		}
	}

	regionIndex := chunksForRegions(p.ranges, p.bounds)

	spans := make([][2]int, len(p.counts))
	for ax, n := range p.counts {
		spans[ax] = [2]int{0, n}
	}
	var buildErr error
	forEachIndex(spans, func(idx []int) {
		if buildErr != nil {
			return
		}
		flat := flatIndex(p.counts, idx)
		chunkBounds := p.boundsForChunk(idx)
		overlapping := regionIndex[flat]

		switch {
		case len(overlapping) == 0:
			buildErr = p.addFillNode(flat, chunkBounds)
		case len(overlapping) == 1 && p.fullyCovers(overlapping[0], chunkBounds):
			buildErr = p.addViewNode(flat, idx, chunkBounds, overlapping[0], loaderIDs)
		default:
			buildErr = p.addCompositeNode(flat, idx, chunkBounds, overlapping, loaderIDs)
		}
	})
	return buildErr
}

// boundsForChunk returns the canvas bounds of the chunk at idx.
func (p *Plan) boundsForChunk(idx []int) [][2]int {
	b := make([][2]int, len(idx))
	for ax, i := range idx {
		b[ax] = p.ranges[ax][i]
	}
	return b
}

// fullyCovers reports whether the region's bounds contain the chunk bounds on
// every axis.
func (p *Plan) fullyCovers(ri int, chunkBounds [][2]int) bool {
	for ax, cb := range chunkBounds {
		lb := p.bounds[ri][ax]
		if lb[0] > cb[0] || cb[1] > lb[1] {
			return false
		}
	}
	return true
}

// addFillNode points the chunk at a constant-fill node shared by every empty
// chunk of the same shape.
func (p *Plan) addFillNode(flat int, chunkBounds [][2]int) error {
	shape := boundsShape(chunkBounds)
	id := fmt.Sprintf("fill-%s-%s", p.token, shapeKey(shape))
	if !p.graph.Has(id) {
		dtype, fill := p.dtype, p.fill
		err := p.graph.AddNode(taskgraph.Node{
			ID: id,
			Run: func(ctx context.Context, _ []any) (any, error) {
				return array.Full(dtype, shape, fill)
			},
		})
		if err != nil {
			return err
		}
	}
	p.nodes[flat] = id
	return nil
}

// addViewNode extracts the chunk directly from its single covering region,
// with no fill allocation. When the region data is exactly the chunk, the
// loaded array is passed through untouched.
func (p *Plan) addViewNode(flat int, idx []int, chunkBounds [][2]int, ri int, loaderIDs []string) error {
	id := fmt.Sprintf("chunk-%s-%s", p.token, indexKey(idx))
	lb := p.bounds[ri]
	start := make([]int, len(chunkBounds))
	stop := make([]int, len(chunkBounds))
	for ax, cb := range chunkBounds {
		start[ax] = cb[0] - lb[ax][0]
		stop[ax] = cb[1] - lb[ax][0]
	}
	err := p.graph.AddNode(taskgraph.Node{
		ID:   id,
		Deps: []string{loaderIDs[ri]},
		Run: func(ctx context.Context, deps []any) (any, error) {
			data := deps[0].(*array.Array)
			if allZero(start) && slices.Equal(stop, data.Shape) {
				return data, nil
			}
			return data.Section(start, stop)
		},
	})
	if err != nil {
		return err
	}
	p.nodes[flat] = id
	return nil
}

// addCompositeNode fills the chunk and copies every overlapping region's
// intersection onto it, in region order, so later regions win.
func (p *Plan) addCompositeNode(flat int, idx []int, chunkBounds [][2]int, overlapping []int, loaderIDs []string) error {
	id := fmt.Sprintf("chunk-%s-%s", p.token, indexKey(idx))
	deps := make([]string, len(overlapping))
	regionBounds := make([][][2]int, len(overlapping))
	for k, ri := range overlapping {
		deps[k] = loaderIDs[ri]
		regionBounds[k] = p.bounds[ri]
	}
	chunkShape := boundsShape(chunkBounds)
	dtype, fill := p.dtype, p.fill

	err := p.graph.AddNode(taskgraph.Node{
		ID:   id,
		Deps: deps,
		Run: func(ctx context.Context, depVals []any) (any, error) {
			out, err := array.Full(dtype, chunkShape, fill)
			if err != nil {
				return nil, err
			}
			for k, val := range depVals {
				data := val.(*array.Array)
				lb := regionBounds[k]
				srcOff := make([]int, len(chunkBounds))
				dstOff := make([]int, len(chunkBounds))
				size := make([]int, len(chunkBounds))
				for ax, cb := range chunkBounds {
					lo := max(cb[0], lb[ax][0])
					hi := min(cb[1], lb[ax][1])
					srcOff[ax] = lo - lb[ax][0]
					dstOff[ax] = lo - cb[0]
					size[ax] = max(0, hi-lo)
				}
				if err := array.CopyBlock(out, dstOff, data, srcOff, size); err != nil {
					return nil, err
				}
			}
			return out, nil
		},
	})
	if err != nil {
		return err
	}
	p.nodes[flat] = id
	return nil
}

// Shape returns the canvas shape.
func (p *Plan) Shape() []int { return slices.Clone(p.shape) }

// ChunkSize returns the requested per-axis chunk size.
func (p *Plan) ChunkSize() []int { return slices.Clone(p.chunks) }

// Dtype returns the output element type.
func (p *Plan) Dtype() array.Dtype { return p.dtype }

// Fill returns the background fill value.
func (p *Plan) Fill() float64 { return p.fill }

// Graph returns the underlying task graph.
func (p *Plan) Graph() *taskgraph.Graph { return p.graph }

// Regions returns the regions the plan composites.
func (p *Plan) Regions() []Region { return p.regions }

// ChunkCounts returns the number of chunks per axis.
func (p *Plan) ChunkCounts() []int { return slices.Clone(p.counts) }

// NumChunks returns the total number of output chunks.
func (p *Plan) NumChunks() int { return len(p.nodes) }

// ChunkBounds returns the canvas bounds of the chunk at the given per-axis
// index.
func (p *Plan) ChunkBounds(idx []int) [][2]int { return p.boundsForChunk(idx) }

// NodeID returns the graph node ID of the chunk at the given per-axis index.
func (p *Plan) NodeID(idx []int) string { return p.nodes[flatIndex(p.counts, idx)] }

// Chunk materializes one chunk through the executor.
func (p *Plan) Chunk(ctx context.Context, exec taskgraph.Executor, idx []int) (*array.Array, error) {
	val, err := exec.Evaluate(ctx, p.graph, p.NodeID(idx))
	if err != nil {
		return nil, err
	}
	return val.(*array.Array), nil
}

// Materialize evaluates every chunk in row-major order and hands the results
// to the writer. The executor's memoization carries across chunks, so shared
// loaders and fills run once.
func (p *Plan) Materialize(ctx context.Context, exec taskgraph.Executor, writer ChunkWriter) error {
	spans := make([][2]int, len(p.counts))
	for ax, n := range p.counts {
		spans[ax] = [2]int{0, n}
	}
	var walkErr error
	forEachIndex(spans, func(idx []int) {
		if walkErr != nil {
			return
		}
		start := time.Now()
		data, err := p.Chunk(ctx, exec, idx)
		if err != nil {
			observability.Composite().OnChunkComplete(ctx, slices.Clone(idx), 0, time.Since(start), err)
			walkErr = err
			return
		}
		walkErr = writer.WriteChunk(ctx, slices.Clone(idx), p.boundsForChunk(idx), data)
		observability.Composite().OnChunkComplete(ctx, slices.Clone(idx), len(data.Data), time.Since(start), walkErr)
	})
	return walkErr
}

func boundsShape(bounds [][2]int) []int {
	shape := make([]int, len(bounds))
	for ax, b := range bounds {
		shape[ax] = b[1] - b[0]
	}
	return shape
}

func allZero(v []int) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

func shapeKey(shape []int) string {
	parts := make([]string, len(shape))
	for i, s := range shape {
		parts[i] = fmt.Sprint(s)
	}
	return strings.Join(parts, "x")
}

func indexKey(idx []int) string {
	parts := make([]string, len(idx))
	for i, v := range idx {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, "_")
}
