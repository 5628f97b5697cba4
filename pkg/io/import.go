package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/stitchlab/mosaic/pkg/geom"
	"github.com/stitchlab/mosaic/pkg/tile"
)

// ReadJSON decodes tile placements from r.
//
// The input must be a JSON object with a "tiles" array as produced by
// [WriteJSON]. Each entry must carry a name, a coordinate space ("real" or
// "pixel"), a top_left position, a 5-entry shape and a pixel_size; origin is
// optional and defaults to the top-left position.
//
// The returned tiles are geometry-only: no data loader is attached. Errors
// are wrapped with the name of the placement that caused the problem.
func ReadJSON(r io.Reader) ([]*tile.Tile, error) {
	var data document
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	tiles := make([]*tile.Tile, len(data.Tiles))
	for i, p := range data.Tiles {
		space := geom.Space(p.Space)
		if space != geom.SpaceReal && space != geom.SpacePixel {
			return nil, fmt.Errorf("tile %s: unknown space %q", p.Name, p.Space)
		}
		shape := tile.Shape(p.Shape)
		origin := tile.Origin{X: p.Origin[0], Y: p.Origin[1], Z: p.Origin[2]}
		t, err := tile.New(tile.Params{
			Name:      p.Name,
			TopLeft:   geom.Point{X: p.TopLeft[0], Y: p.TopLeft[1], Z: p.TopLeft[2]},
			PixelSize: geom.PixelSize{X: p.PixelSize[0], Y: p.PixelSize[1], Z: p.PixelSize[2]},
			Space:     space,
			Origin:    &origin,
			Shape:     &shape,
		})
		if err != nil {
			return nil, fmt.Errorf("tile %s: %w", p.Name, err)
		}
		tiles[i] = t
	}
	return tiles, nil
}

// ImportJSON reads a JSON file at path and returns the decoded placements.
//
// ImportJSON opens the file, decodes it using [ReadJSON], and closes the
// file. The error wraps the underlying cause with the file path for context.
func ImportJSON(path string) ([]*tile.Tile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadJSON(f)
}
