package compose

import (
	"context"
	"slices"
	"testing"

	"github.com/stitchlab/mosaic/pkg/array"
	"github.com/stitchlab/mosaic/pkg/geom"
	"github.com/stitchlab/mosaic/pkg/tile"
)

type fixedLoader struct {
	data *array.Array
}

func (l *fixedLoader) Load() (*array.Array, error) { return l.data, nil }
func (l *fixedLoader) Dtype() array.Dtype          { return l.data.Dtype }

func pixelTile(t *testing.T, name string, x, y float64, shape tile.Shape) *tile.Tile {
	t.Helper()
	data, err := array.New(array.Uint16, shape[:])
	if err != nil {
		t.Fatalf("array.New: %v", err)
	}
	tl, err := tile.New(tile.Params{
		Name:      name,
		TopLeft:   geom.Point{X: x, Y: y},
		PixelSize: geom.PixelSize{X: 1, Y: 1, Z: 1},
		Space:     geom.SpacePixel,
		Shape:     &shape,
		Loader:    &fixedLoader{data: data},
	})
	if err != nil {
		t.Fatalf("tile.New: %v", err)
	}
	return tl
}

func TestRegionsFromTiles(t *testing.T) {
	tiles := []*tile.Tile{
		pixelTile(t, "t00", 0, 0, tile.Shape{1, 2, 1, 10, 10}),
		pixelTile(t, "t10", 10, 0, tile.Shape{1, 2, 1, 10, 10}),
	}
	regions, err := RegionsFromTiles(tiles, nil)
	if err != nil {
		t.Fatalf("RegionsFromTiles: %v", err)
	}
	if len(regions) != 2 {
		t.Fatalf("region count = %d, want 2", len(regions))
	}

	if !slices.Equal(regions[0].Start, []int{0, 0, 0, 0, 0}) {
		t.Errorf("region 0 start = %v", regions[0].Start)
	}
	if !slices.Equal(regions[0].Stop, []int{1, 2, 1, 10, 10}) {
		t.Errorf("region 0 stop = %v", regions[0].Stop)
	}
	if !slices.Equal(regions[1].Start, []int{0, 0, 0, 0, 10}) {
		t.Errorf("region 1 start = %v", regions[1].Start)
	}
	if regions[1].Name != "t10" {
		t.Errorf("region 1 name = %q", regions[1].Name)
	}

	data, err := regions[0].Load(context.Background())
	if err != nil {
		t.Fatalf("region load: %v", err)
	}
	if !slices.Equal(data.Shape, []int{1, 2, 1, 10, 10}) {
		t.Errorf("loaded shape = %v", data.Shape)
	}
}

func TestRegionsFromTilesRejectsRealSpace(t *testing.T) {
	tl, err := tile.New(tile.Params{
		Name:      "real",
		TopLeft:   geom.Point{},
		Diag:      geom.Vector{X: 10, Y: 10, Z: 1, C: 1, T: 1},
		PixelSize: geom.PixelSize{X: 1, Y: 1, Z: 1},
	})
	if err != nil {
		t.Fatalf("tile.New: %v", err)
	}
	if _, err := RegionsFromTiles([]*tile.Tile{tl}, nil); err == nil {
		t.Error("real-space tile accepted")
	}
}

func TestCanvasShape(t *testing.T) {
	tiles := []*tile.Tile{
		pixelTile(t, "t00", 0, 0, tile.Shape{1, 2, 1, 10, 10}),
		pixelTile(t, "t11", 10, 10, tile.Shape{1, 2, 1, 10, 10}),
	}
	shape, err := CanvasShape(tiles)
	if err != nil {
		t.Fatalf("CanvasShape: %v", err)
	}
	if !slices.Equal(shape, []int{1, 2, 1, 20, 20}) {
		t.Errorf("shape = %v, want [1 2 1 20 20]", shape)
	}

	if _, err := CanvasShape(nil); err == nil {
		t.Error("empty list accepted")
	}
}
