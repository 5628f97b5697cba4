package stitch

import (
	"math"

	moserr "github.com/stitchlab/mosaic/pkg/errors"
	"github.com/stitchlab/mosaic/pkg/geom"
	"github.com/stitchlab/mosaic/pkg/tile"
)

// overlapEps is the IoU threshold above which two tiles count as overlapping.
const overlapEps = 1e-6

// nudgeApart moves query so it no longer overlaps ref. Candidate destinations
// are the four corners of ref; among the candidates that clear the overlap,
// the shortest displacement wins, scaled by speed. A speed below 1 moves the
// query only part of the way, leaving residual overlap for later sweeps.
func nudgeApart(ref, query *tile.Tile, eps, speed float64) (*tile.Tile, error) {
	if speed <= 0 || speed > 1 {
		return nil, moserr.New(moserr.ErrCodeInvalidInput,
			"nudge speed must be in the range (0, 1], got %v", speed)
	}

	var best geom.Vector
	bestLen := math.Inf(1)
	for _, corner := range ref.CornersXY() {
		vec := corner.Sub(query.TopLeft())
		iou, err := query.MoveBy(vec).IoUXY(ref)
		if err != nil {
			return nil, err
		}
		if iou < eps && vec.LengthXY() < bestLen {
			best = vec
			bestLen = vec.LengthXY()
		}
	}
	if math.IsInf(bestLen, 1) {
		return nil, moserr.New(moserr.ErrCodeGeometry,
			"no corner of tile %q clears the overlap with tile %q", ref.Name(), query.Name())
	}
	return query.MoveBy(best.Scale(speed)), nil
}

// ResolveFree removes overlap from an arbitrary tile arrangement by repeated
// sweeps: tiles are sorted by distance from the minimum corner, and for each
// overlapping pair the farther tile is nudged onto a corner of the nearer
// one. Sweeps repeat until no pair overlaps.
func ResolveFree(tiles []*tile.Tile) ([]*tile.Tile, error) {
	out := make([]*tile.Tile, len(tiles))
	copy(out, tiles)

	for moved := -1; moved != 0; {
		out = SortByDistance(out)
		moved = 0
		for i := range out {
			for j := i + 1; j < len(out); j++ {
				overlaps, err := out[i].OverlapsXY(out[j], overlapEps)
				if err != nil {
					return nil, err
				}
				if !overlaps {
					continue
				}
				nudged, err := nudgeApart(out[i], out[j], overlapEps, 1)
				if err != nil {
					return nil, err
				}
				out[j] = nudged
				moved++
				break
			}
		}
	}
	return out, nil
}

// ResolveGrid snaps tiles that follow a regular (possibly overlapping) grid
// onto an exact edge-to-edge lattice. Each lattice anchor claims its nearest
// tile when that tile sits within 1% of the tile size; the claimed tile is
// relabeled to the gap-free output position. Every input tile must be claimed
// by exactly one anchor, otherwise the arrangement is inconsistent with the
// detected grid.
func ResolveGrid(tiles []*tile.Tile, setup tile.GridSetup) ([]*tile.Tile, error) {
	sorted := SortByDistance(tiles)

	first := sorted[0].TopLeft()
	tolerance := min(setup.LengthX, setup.LengthY) / 100

	out := make([]*tile.Tile, 0, len(sorted))
	for i := 0; i < setup.NumX; i++ {
		for j := 0; j < setup.NumY; j++ {
			anchor := geom.Point{
				X: float64(i) * setup.OffsetX,
				Y: float64(j) * setup.OffsetY,
				Z: first.Z, C: first.C, T: first.T,
			}
			closest, dist := nearestTile(sorted, anchor)
			if dist >= tolerance {
				continue
			}
			target := geom.Point{
				X: float64(i) * setup.LengthX,
				Y: float64(j) * setup.LengthY,
				Z: first.Z, C: first.C, T: first.T,
			}
			out = append(out, closest.DeriveDiag(target, closest.Diag()))
		}
	}

	if len(out) != len(sorted) {
		return nil, moserr.New(moserr.ErrCodeOverlapInconsistency,
			"grid snapping matched %d of %d tiles to lattice anchors", len(out), len(sorted))
	}
	return out, nil
}

// nearestTile returns the tile whose anchor is closest to point, with the
// distance. Ties go to the earlier tile.
func nearestTile(tiles []*tile.Tile, point geom.Point) (*tile.Tile, float64) {
	var closest *tile.Tile
	best := math.Inf(1)
	for _, t := range tiles {
		if d := point.Sub(t.TopLeft()).LengthXY(); d < best {
			closest = t
			best = d
		}
	}
	return closest, best
}

// ClosePixelGaps absorbs sub-pixel gaps left by real-to-pixel truncation on a
// snapped grid. Tiles must be in pixel space. The lattice stride is the first
// tile's size; a tile within one diagonal pixel of a lattice anchor is pinned
// exactly onto it. Tiles farther out are dropped from the result, matching
// the anchor-claims-tile scan of [ResolveGrid] without its count check.
func ClosePixelGaps(tiles []*tile.Tile) ([]*tile.Tile, error) {
	if len(tiles) == 0 {
		return nil, moserr.New(moserr.ErrCodeInvalidInput, "empty list of tiles")
	}
	if tiles[0].Space() != geom.SpacePixel {
		return nil, moserr.New(moserr.ErrCodeGeometry, "tiles must be in pixel space to close pixel gaps")
	}

	offsetX := tiles[0].Diag().X
	offsetY := tiles[0].Diag().Y
	numX, numY := tile.GridCounts(tiles, offsetX, offsetY)

	first := tiles[0].TopLeft()
	// One pixel of play on each axis, so the cutoff is the unit diagonal.
	maxGap := math.Sqrt(2) + 1e-6

	out := make([]*tile.Tile, 0, len(tiles))
	for i := 0; i < numX; i++ {
		for j := 0; j < numY; j++ {
			anchor := geom.Point{
				X: float64(i) * offsetX,
				Y: float64(j) * offsetY,
				Z: first.Z, C: first.C, T: first.T,
			}
			closest, dist := nearestTile(tiles, anchor)
			if dist <= maxGap {
				out = append(out, closest.DeriveDiag(anchor, closest.Diag()))
			}
		}
	}
	return out, nil
}

// CountOverlaps returns the number of tile pairs with IoU above the overlap
// threshold. Used for reporting and tests.
func CountOverlaps(tiles []*tile.Tile) (int, error) {
	n := 0
	for i := range tiles {
		for j := i + 1; j < len(tiles); j++ {
			overlaps, err := tiles[i].OverlapsXY(tiles[j], overlapEps)
			if err != nil {
				return 0, err
			}
			if overlaps {
				n++
			}
		}
	}
	return n, nil
}
