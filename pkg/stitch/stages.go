// Package stitch resolves tile placements: it normalizes raw stage positions,
// removes tile overlap either by snapping to a detected regular grid or by
// iterative nudging, and produces pixel-space placements ready for
// compositing.
package stitch

import (
	"math"
	"sort"

	moserr "github.com/stitchlab/mosaic/pkg/errors"
	"github.com/stitchlab/mosaic/pkg/geom"
	"github.com/stitchlab/mosaic/pkg/tile"
)

// CheckCoplanar verifies that every tile shares the Z, C and T extent of the
// first one. An empty list passes.
func CheckCoplanar(tiles []*tile.Tile) error {
	if len(tiles) == 0 {
		return nil
	}
	for _, t := range tiles {
		if !tiles[0].IsCoplanar(t) {
			return moserr.New(moserr.ErrCodeGeometry,
				"tiles are not coplanar: all tiles in a mosaic must share the same Z, C and T coordinates")
		}
	}
	return nil
}

// minPoint returns the XY minimum corner over all tiles, with the other axes
// zeroed.
func minPoint(tiles []*tile.Tile) geom.Point {
	minX, minY := math.Inf(1), math.Inf(1)
	for _, t := range tiles {
		minX = min(minX, t.TopLeft().X)
		minY = min(minY, t.TopLeft().Y)
	}
	return geom.Point{X: minX, Y: minY}
}

// SortByDistance returns the tiles ordered by XY distance of their anchor from
// the minimum corner of the set. The sort is stable, so equidistant tiles keep
// their input order. The input slice is not modified.
func SortByDistance(tiles []*tile.Tile) []*tile.Tile {
	mp := minPoint(tiles)
	out := make([]*tile.Tile, len(tiles))
	copy(out, tiles)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TopLeft().Sub(mp).LengthXY() < out[j].TopLeft().Sub(mp).LengthXY()
	})
	return out
}

// RemoveOffsetXY shifts all tiles so the minimum XY corner of the set lands at
// the origin.
func RemoveOffsetXY(tiles []*tile.Tile) []*tile.Tile {
	mp := minPoint(tiles)
	shift := geom.Vector{X: -mp.X, Y: -mp.Y}
	out := make([]*tile.Tile, len(tiles))
	for i, t := range tiles {
		out[i] = t.MoveBy(shift)
	}
	return out
}

// RemoveOffsetZT zeroes the Z and T coordinates of every tile independently.
func RemoveOffsetZT(tiles []*tile.Tile) []*tile.Tile {
	out := make([]*tile.Tile, len(tiles))
	for i, t := range tiles {
		tl := t.TopLeft()
		out[i] = t.MoveBy(geom.Vector{Z: -tl.Z, T: -tl.T})
	}
	return out
}

// SwapXY exchanges the X and Y coordinates of every tile's anchor and size.
// Corrects acquisitions where the stage axes are transposed relative to the
// camera.
func SwapXY(tiles []*tile.Tile) []*tile.Tile {
	out := make([]*tile.Tile, len(tiles))
	for i, t := range tiles {
		tl, d := t.TopLeft(), t.Diag()
		out[i] = t.DeriveDiag(
			geom.Point{X: tl.Y, Y: tl.X, Z: tl.Z, C: tl.C, T: tl.T},
			geom.Vector{X: d.Y, Y: d.X, Z: d.Z, C: d.C, T: d.T},
		)
	}
	return out
}

// InvertX negates the X coordinate of every tile's anchor.
func InvertX(tiles []*tile.Tile) []*tile.Tile {
	out := make([]*tile.Tile, len(tiles))
	for i, t := range tiles {
		tl := t.TopLeft()
		out[i] = t.DeriveDiag(
			geom.Point{X: -tl.X, Y: tl.Y, Z: tl.Z, C: tl.C, T: tl.T}, t.Diag())
	}
	return out
}

// InvertY negates the Y coordinate of every tile's anchor.
func InvertY(tiles []*tile.Tile) []*tile.Tile {
	out := make([]*tile.Tile, len(tiles))
	for i, t := range tiles {
		tl := t.TopLeft()
		out[i] = t.DeriveDiag(
			geom.Point{X: tl.X, Y: -tl.Y, Z: tl.Z, C: tl.C, T: tl.T}, t.Diag())
	}
	return out
}

// ResetOrigins re-captures every tile's origin from its current placement.
// Applied after axis corrections so provenance reflects the corrected frame.
func ResetOrigins(tiles []*tile.Tile) []*tile.Tile {
	out := make([]*tile.Tile, len(tiles))
	for i, t := range tiles {
		out[i] = t.ResetOrigin()
	}
	return out
}

// ToPixelSpace converts every tile to pixel coordinates.
func ToPixelSpace(tiles []*tile.Tile) ([]*tile.Tile, error) {
	out := make([]*tile.Tile, len(tiles))
	for i, t := range tiles {
		pt, err := t.ToPixelSpace()
		if err != nil {
			return nil, err
		}
		out[i] = pt
	}
	return out, nil
}

// ToRealSpace converts every tile to real coordinates.
func ToRealSpace(tiles []*tile.Tile) ([]*tile.Tile, error) {
	out := make([]*tile.Tile, len(tiles))
	for i, t := range tiles {
		rt, err := t.ToRealSpace()
		if err != nil {
			return nil, err
		}
		out[i] = rt
	}
	return out, nil
}
