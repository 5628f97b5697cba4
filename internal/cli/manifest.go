package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/stitchlab/mosaic/pkg/array"
	moserr "github.com/stitchlab/mosaic/pkg/errors"
	"github.com/stitchlab/mosaic/pkg/geom"
	"github.com/stitchlab/mosaic/pkg/stitch"
	"github.com/stitchlab/mosaic/pkg/tile"
)

// manifest describes one compositing job: converter settings plus the tiles
// to place. Tile data paths are resolved relative to the manifest file.
type manifest struct {
	Converter converterConfig `toml:"converter"`
	Tiles     []tileEntry     `toml:"tiles"`
}

// converterConfig mirrors the [converter] table of the manifest.
type converterConfig struct {
	Mode      string          `toml:"mode"`
	SwapXY    bool            `toml:"swap_xy"`
	InvertX   bool            `toml:"invert_x"`
	InvertY   bool            `toml:"invert_y"`
	Dtype     string          `toml:"dtype"`
	Fill      float64         `toml:"fill"`
	Chunks    []int           `toml:"chunks"`
	PixelSize pixelSizeConfig `toml:"pixel_size"`
}

type pixelSizeConfig struct {
	X float64 `toml:"x"`
	Y float64 `toml:"y"`
	Z float64 `toml:"z"`
}

// tileEntry mirrors one [[tiles]] table. Position is the real-space stage
// placement [x, y, z]; Shape is the discrete (T, C, Z, Y, X) extent; Data is
// the path to a raw little-endian pixel file.
type tileEntry struct {
	Name     string    `toml:"name"`
	Position []float64 `toml:"position"`
	Shape    []int     `toml:"shape"`
	Data     string    `toml:"data"`
}

// loadManifest parses and validates the manifest at path.
func loadManifest(path string) (*manifest, error) {
	var m manifest
	meta, err := toml.DecodeFile(path, &m)
	if err != nil {
		return nil, moserr.Wrap(moserr.ErrCodeInvalidInput, err, "parsing manifest %s", path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, moserr.New(moserr.ErrCodeInvalidInput,
			"manifest %s has unknown keys: %v", path, undecoded)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *manifest) validate() error {
	if m.Converter.Dtype == "" {
		m.Converter.Dtype = string(array.Uint16)
	}
	if !array.Dtype(m.Converter.Dtype).Valid() {
		return moserr.New(moserr.ErrCodeInvalidInput, "unknown dtype %q", m.Converter.Dtype)
	}
	ps := m.Converter.PixelSize
	if ps.X <= 0 || ps.Y <= 0 || ps.Z <= 0 {
		return moserr.New(moserr.ErrCodeInvalidInput,
			"pixel size must be positive on all axes, got x=%g y=%g z=%g", ps.X, ps.Y, ps.Z)
	}
	if len(m.Converter.Chunks) != 0 && len(m.Converter.Chunks) != 5 {
		return moserr.New(moserr.ErrCodeInvalidInput,
			"chunks must have 5 entries (t, c, z, y, x), got %d", len(m.Converter.Chunks))
	}
	if len(m.Tiles) == 0 {
		return moserr.New(moserr.ErrCodeInvalidInput, "manifest has no tiles")
	}
	for i, te := range m.Tiles {
		if te.Name == "" {
			return moserr.New(moserr.ErrCodeInvalidInput, "tile %d has no name", i)
		}
		if len(te.Position) != 2 && len(te.Position) != 3 {
			return moserr.New(moserr.ErrCodeInvalidInput,
				"tile %q position must be [x, y] or [x, y, z], got %d entries", te.Name, len(te.Position))
		}
		if len(te.Shape) != 5 {
			return moserr.New(moserr.ErrCodeInvalidInput,
				"tile %q shape must have 5 entries (t, c, z, y, x), got %d", te.Name, len(te.Shape))
		}
		if te.Data == "" {
			return moserr.New(moserr.ErrCodeInvalidInput, "tile %q has no data path", te.Name)
		}
	}
	return nil
}

// options translates the converter settings into placement options.
func (m *manifest) options() stitch.Options {
	return stitch.Options{
		Mode:    stitch.Mode(m.Converter.Mode),
		SwapXY:  m.Converter.SwapXY,
		InvertX: m.Converter.InvertX,
		InvertY: m.Converter.InvertY,
	}
}

// chunks returns the chunk shape, defaulting to whole planes of 256x256.
func (m *manifest) chunks() []int {
	if len(m.Converter.Chunks) == 5 {
		return m.Converter.Chunks
	}
	return []int{1, 1, 1, 256, 256}
}

// tiles builds the tile list with lazy raw-file loaders. dir is the directory
// the manifest was loaded from.
func (m *manifest) tiles(dir string) ([]*tile.Tile, error) {
	dtype := array.Dtype(m.Converter.Dtype)
	ps := geom.PixelSize{
		X: m.Converter.PixelSize.X,
		Y: m.Converter.PixelSize.Y,
		Z: m.Converter.PixelSize.Z,
	}

	out := make([]*tile.Tile, 0, len(m.Tiles))
	for _, te := range m.Tiles {
		pos := geom.Point{X: te.Position[0], Y: te.Position[1]}
		if len(te.Position) == 3 {
			pos.Z = te.Position[2]
		}
		shape := tile.Shape(te.Shape)

		path := te.Data
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}

		tl, err := tile.New(tile.Params{
			Name:      te.Name,
			TopLeft:   pos,
			PixelSize: ps,
			Shape:     &shape,
			Loader: &rawLoader{
				path:  path,
				dtype: dtype,
				shape: te.Shape,
			},
		})
		if err != nil {
			return nil, moserr.Wrap(moserr.ErrCodeInvalidInput, err, "tile %q", te.Name)
		}
		out = append(out, tl)
	}
	return out, nil
}

// rawLoader reads tile pixels from a raw little-endian file. The file must
// hold exactly the bytes implied by the declared shape and dtype.
type rawLoader struct {
	path  string
	dtype array.Dtype
	shape []int
}

func (l *rawLoader) Dtype() array.Dtype { return l.dtype }

func (l *rawLoader) Load() (*array.Array, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, moserr.Wrap(moserr.ErrCodeInvalidInput, err, "reading tile data %s", l.path)
	}
	want := array.NumElems(l.shape) * l.dtype.Size()
	if len(data) != want {
		return nil, moserr.New(moserr.ErrCodeInvalidInput,
			"tile data %s has %d bytes, expected %d for shape %v %s",
			l.path, len(data), want, l.shape, l.dtype)
	}
	return &array.Array{Dtype: l.dtype, Shape: l.shape, Data: data}, nil
}

// shapeString formats a shape as "TxCxZxYxX".
func shapeString(shape []int) string {
	s := ""
	for i, v := range shape {
		if i > 0 {
			s += "x"
		}
		s += fmt.Sprintf("%d", v)
	}
	return s
}
