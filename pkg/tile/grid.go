package tile

import (
	"math"
	"slices"
	"sort"

	"gonum.org/v1/gonum/floats/scalar"

	moserr "github.com/stitchlab/mosaic/pkg/errors"
)

// offsetEps is the threshold under which a start-coordinate difference is
// treated as zero when deriving the grid stride (tiles in the same row or
// column of the lattice).
const offsetEps = 1e-6

// GridSetup describes a detected regular lattice of tiles: the uniform tile
// size, the uniform per-axis stride between tile starts, and the lattice
// extent in tiles. Only meaningful when [CheckRegularGrid] succeeds.
type GridSetup struct {
	LengthX float64
	LengthY float64
	OffsetX float64
	OffsetY float64
	NumX    int
	NumY    int
}

// approxEqual mirrors numpy-style allclose for two scalars.
func approxEqual(a, b float64) bool {
	return scalar.EqualWithinAbsOrRel(a, b, 1e-8, 1e-5)
}

// allApproxEqual reports whether every value is approximately equal to the
// first one.
func allApproxEqual(values []float64) bool {
	for _, v := range values[1:] {
		if !approxEqual(v, values[0]) {
			return false
		}
	}
	return true
}

// distinct returns the sorted distinct values, collapsing entries closer
// than the positional tolerance. Used for failure reporting only.
func distinct(values []float64) []float64 {
	sorted := slices.Clone(values)
	sort.Float64s(sorted)
	out := sorted[:0]
	for i, v := range sorted {
		if i == 0 || v-out[len(out)-1] > 1e-9 {
			out = append(out, v)
		}
	}
	return slices.Clone(out)
}

// strideFromStarts derives the lattice stride for one axis from the tile
// start coordinates: sort, diff, drop near-zero diffs, and require the rest
// to agree. When every start collapses onto one coordinate the stride
// defaults to 1. Returns the stride and whether it is consistent, with the
// offending distinct diffs on failure.
func strideFromStarts(starts []float64) (float64, []float64, bool) {
	sorted := slices.Clone(starts)
	sort.Float64s(sorted)

	var diffs []float64
	for i := 1; i < len(sorted); i++ {
		if d := sorted[i] - sorted[i-1]; d > offsetEps {
			diffs = append(diffs, d)
		}
	}
	if len(diffs) == 0 {
		return 1.0, nil, true
	}
	if allApproxEqual(diffs) {
		return diffs[0], nil, true
	}
	return 0, distinct(diffs), false
}

// GridCounts computes the lattice extent from the maximal start coordinate
// per axis and the stride: round(max/offset)+1.
func GridCounts(tiles []*Tile, offsetX, offsetY float64) (numX, numY int) {
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, t := range tiles {
		maxX = max(maxX, t.TopLeft().X)
		maxY = max(maxY, t.TopLeft().Y)
	}
	numX = int(math.Round(maxX/offsetX)) + 1
	numY = int(math.Round(maxY/offsetY)) + 1
	return numX, numY
}

// CheckRegularGrid decides whether the tiles form a regular lattice and, if
// so, returns its geometry. Failures carry the NOT_A_REGULAR_GRID code and
// name the concrete reason (distinct sizes or strides found, slanted grid).
//
// The slant check samples tiles against the first one and accepts the grid
// as soon as one sampled displacement is degenerate on either axis. A
// configuration where every sampled tile is diagonal from the reference is
// declared slanted; configurations that are slanted but happen to place one
// tile axis-aligned with the reference pass undetected. This short-circuit
// is intentional and kept as-is.
func CheckRegularGrid(tiles []*Tile) (GridSetup, error) {
	if len(tiles) == 0 {
		return GridSetup{}, moserr.New(moserr.ErrCodeNotARegularGrid, "empty list of tiles")
	}
	if len(tiles) == 1 {
		return GridSetup{}, moserr.New(moserr.ErrCodeNotARegularGrid, "only one tile")
	}

	// Uniform tile size per axis.
	widths := make([]float64, len(tiles))
	heights := make([]float64, len(tiles))
	for i, t := range tiles {
		widths[i] = t.Diag().X
		heights[i] = t.Diag().Y
	}
	if !allApproxEqual(widths) {
		return GridSetup{}, moserr.New(moserr.ErrCodeNotARegularGrid,
			"not all tile widths are the same: %v", distinct(widths))
	}
	if !allApproxEqual(heights) {
		return GridSetup{}, moserr.New(moserr.ErrCodeNotARegularGrid,
			"not all tile heights are the same: %v", distinct(heights))
	}
	lengthX, lengthY := widths[0], heights[0]

	// Uniform stride per axis.
	startsX := make([]float64, len(tiles))
	startsY := make([]float64, len(tiles))
	for i, t := range tiles {
		startsX[i] = t.TopLeft().X
		startsY[i] = t.TopLeft().Y
	}
	offsetX, badX, okX := strideFromStarts(startsX)
	if !okX {
		return GridSetup{}, moserr.New(moserr.ErrCodeNotARegularGrid,
			"not all x offsets are the same: %v", badX)
	}
	offsetY, badY, okY := strideFromStarts(startsY)
	if !okY {
		return GridSetup{}, moserr.New(moserr.ErrCodeNotARegularGrid,
			"not all y offsets are the same: %v", badY)
	}

	// Slant check: at least one sampled tile must sit axis-aligned with the
	// reference tile.
	if len(tiles) > 2 {
		slanted := true
		for _, t := range tiles[1:] {
			vec := t.TopLeft().Sub(tiles[0].TopLeft())
			if vec.X < offsetEps || vec.Y < offsetEps {
				slanted = false
				break
			}
		}
		if slanted {
			return GridSetup{}, moserr.New(moserr.ErrCodeNotARegularGrid, "the grid is slanted")
		}
	}

	numX, numY := GridCounts(tiles, offsetX, offsetY)
	return GridSetup{
		LengthX: lengthX,
		LengthY: lengthY,
		OffsetX: offsetX,
		OffsetY: offsetY,
		NumX:    numX,
		NumY:    numY,
	}, nil
}
