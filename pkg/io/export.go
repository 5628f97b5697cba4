package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/stitchlab/mosaic/pkg/tile"
)

type document struct {
	Tiles []placement `json:"tiles"`
}

type placement struct {
	Name      string     `json:"name"`
	Space     string     `json:"space"`
	TopLeft   [3]float64 `json:"top_left"`
	Shape     [5]int     `json:"shape"`
	PixelSize [3]float64 `json:"pixel_size"`
	Origin    [3]float64 `json:"origin"`
}

// WriteJSON encodes resolved tile placements as JSON and writes them to w.
// The output can be re-imported with [ReadJSON] for round-trip processing.
func WriteJSON(tiles []*tile.Tile, w io.Writer) error {
	out := document{Tiles: make([]placement, len(tiles))}

	for i, t := range tiles {
		tl := t.TopLeft()
		ps := t.PixelSize()
		origin := t.Origin()
		out.Tiles[i] = placement{
			Name:      t.Name(),
			Space:     string(t.Space()),
			TopLeft:   [3]float64{tl.X, tl.Y, tl.Z},
			Shape:     [5]int(t.PixelShape()),
			PixelSize: [3]float64{ps.X, ps.Y, ps.Z},
			Origin:    [3]float64{origin.X, origin.Y, origin.Z},
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportJSON writes tile placements to a JSON file at path.
// This is a convenience wrapper around [WriteJSON] for file-based output.
func ExportJSON(tiles []*tile.Tile, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteJSON(tiles, f)
}
