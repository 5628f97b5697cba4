// Package tile models a 5D microscope tile: an axis-aligned box defined by a
// top-left corner and a diagonal size vector, together with a coordinate
// space tag, origin provenance, an optional known discrete shape, and a lazy
// data loader.
//
// Tiles are immutable. Every geometric operation derives a new tile; the
// origin (the pre-correction placement) is carried along by default and
// cleared only by [Tile.ResetOrigin]. This lets downstream consumers map
// corrected placements back to the raw acquisition positions.
package tile

import (
	"math"

	charmlog "github.com/charmbracelet/log"

	"github.com/stitchlab/mosaic/pkg/array"
	moserr "github.com/stitchlab/mosaic/pkg/errors"
	"github.com/stitchlab/mosaic/pkg/geom"
)

// Loader produces the pixel data for one tile on demand. Implementations
// wrap whatever resource resolution is needed (files, object stores, test
// stubs); the core never retries or decodes.
type Loader interface {
	// Load returns the tile data as a (T, C, Z, Y, X) array.
	Load() (*array.Array, error)
	// Dtype returns the element type of the data without loading it.
	Dtype() array.Dtype
}

// Shape is the discrete extent of a tile in (T, C, Z, Y, X) order.
type Shape [5]int

// Origin records the original, pre-correction placement of a tile in real
// space. It survives relocation and space conversion until explicitly reset.
type Origin struct {
	X float64
	Y float64
	Z float64
}

// Tile is an axis-aligned 5D box with lazy data access.
type Tile struct {
	name      string
	topLeft   geom.Point
	diag      geom.Vector
	pixelSize geom.PixelSize
	space     geom.Space
	origin    Origin
	shape     *Shape
	loader    Loader
	attrs     Attributes
}

// Params collects the inputs for [New]. TopLeft and Diag are required;
// everything else has usable defaults.
type Params struct {
	// Name identifies the tile (typically the field-of-view name).
	Name string
	// TopLeft is the anchor corner of the box.
	TopLeft geom.Point
	// Diag is the size vector from TopLeft to the opposite corner.
	Diag geom.Vector
	// PixelSize relates real and pixel coordinates for this tile.
	PixelSize geom.PixelSize
	// Space tags the coordinates; defaults to real space.
	Space geom.Space
	// Origin is the provenance placement. When nil, it is captured from
	// TopLeft.
	Origin *Origin
	// Shape is the known discrete (T, C, Z, Y, X) extent. When set, the
	// diagonal is re-derived from it, which protects against off-by-one
	// rounding when converting between spaces.
	Shape *Shape
	// Loader provides the pixel data. May be nil for geometry-only tiles.
	Loader Loader
	// Attrs carries extra acquisition metadata columns.
	Attrs Attributes
}

// New validates p and builds a tile.
func New(p Params) (*Tile, error) {
	space := p.Space
	if space == "" {
		space = geom.SpaceReal
	}

	origin := Origin{X: p.TopLeft.X, Y: p.TopLeft.Y, Z: p.TopLeft.Z}
	if p.Origin != nil {
		origin = *p.Origin
	}

	t := &Tile{
		name:      p.Name,
		topLeft:   p.TopLeft,
		diag:      p.Diag,
		pixelSize: p.PixelSize,
		space:     space,
		origin:    origin,
		shape:     p.Shape,
		loader:    p.Loader,
		attrs:     p.Attrs,
	}
	if p.Shape != nil {
		t.diag = diagFromShape(*p.Shape, space, p.PixelSize)
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// diagFromShape derives the size vector implied by a discrete shape in the
// given space.
func diagFromShape(s Shape, space geom.Space, ps geom.PixelSize) geom.Vector {
	if space == geom.SpaceReal {
		return geom.Vector{
			X: float64(s[4]) * ps.X,
			Y: float64(s[3]) * ps.Y,
			Z: float64(s[2]) * ps.Z,
			C: s[1],
			T: s[0],
		}
	}
	return geom.Vector{
		X: float64(s[4]),
		Y: float64(s[3]),
		Z: float64(s[2]),
		C: s[1],
		T: s[0],
	}
}

func (t *Tile) validate() error {
	if t.topLeft.C != 0 {
		return moserr.New(moserr.ErrCodeInvalidInput, "tile top-left corner must have channel c=0")
	}
	if !t.diag.AllNonNegative() {
		return moserr.New(moserr.ErrCodeInvalidInput,
			"tile size vector must have all components non-negative, got %+v", t.diag)
	}
	if err := t.attrs.Validate(); err != nil {
		return err
	}
	return nil
}

// Name returns the tile identifier.
func (t *Tile) Name() string { return t.name }

// TopLeft returns the anchor corner.
func (t *Tile) TopLeft() geom.Point { return t.topLeft }

// Diag returns the size vector.
func (t *Tile) Diag() geom.Vector { return t.diag }

// BotRight returns the corner opposite the anchor.
func (t *Tile) BotRight() geom.Point { return t.topLeft.Add(t.diag) }

// Space returns the coordinate space tag.
func (t *Tile) Space() geom.Space { return t.space }

// PixelSize returns the pixel size the tile was created with.
func (t *Tile) PixelSize() geom.PixelSize { return t.pixelSize }

// Origin returns the provenance placement.
func (t *Tile) Origin() Origin { return t.origin }

// KnownShape returns the declared discrete shape, or nil when none was given.
func (t *Tile) KnownShape() *Shape { return t.shape }

// Loader returns the data loader handle, which may be nil.
func (t *Tile) Loader() Loader { return t.loader }

// Attrs returns the attribute bag.
func (t *Tile) Attrs() Attributes { return t.attrs }

// derive builds a tile at a new placement, carrying everything else over.
// Origin provenance is preserved; the known shape keeps the diagonal pinned.
func (t *Tile) derive(topLeft geom.Point, diag geom.Vector, space geom.Space) *Tile {
	nt := &Tile{
		name:      t.name,
		topLeft:   topLeft,
		diag:      diag,
		pixelSize: t.pixelSize,
		space:     space,
		origin:    t.origin,
		shape:     t.shape,
		loader:    t.loader,
		attrs:     t.attrs,
	}
	if t.shape != nil {
		nt.diag = diagFromShape(*t.shape, space, t.pixelSize)
	}
	return nt
}

// DeriveDiag returns a tile at topLeft with the given size, keeping the
// origin, loader and space of the receiver.
func (t *Tile) DeriveDiag(topLeft geom.Point, diag geom.Vector) *Tile {
	return t.derive(topLeft, diag, t.space)
}

// DerivePoints returns a tile spanning topLeft to botRight, keeping the
// origin, loader and space of the receiver.
func (t *Tile) DerivePoints(topLeft, botRight geom.Point) *Tile {
	return t.derive(topLeft, botRight.Sub(topLeft), t.space)
}

// MoveBy returns the tile displaced by vec, keeping the origin reference.
func (t *Tile) MoveBy(vec geom.Vector) *Tile {
	return t.DeriveDiag(t.topLeft.Add(vec), t.diag)
}

// MoveTo returns the tile anchored at point, keeping the origin reference.
func (t *Tile) MoveTo(point geom.Point) *Tile {
	return t.DeriveDiag(point, t.diag)
}

// ResetOrigin returns a copy whose origin is re-captured from the current
// placement, discarding the previous provenance.
func (t *Tile) ResetOrigin() *Tile {
	nt := t.derive(t.topLeft, t.diag, t.space)
	nt.origin = Origin{X: t.topLeft.X, Y: t.topLeft.Y, Z: t.topLeft.Z}
	return nt
}

// ToPixelSpace converts the tile to pixel coordinates.
func (t *Tile) ToPixelSpace() (*Tile, error) {
	if t.space == geom.SpacePixel {
		return nil, moserr.New(moserr.ErrCodeGeometry, "tile %q is already in pixel space", t.name)
	}
	return t.derive(
		t.topLeft.ToPixelSpace(t.pixelSize),
		t.diag.ToPixelSpace(t.pixelSize),
		geom.SpacePixel,
	), nil
}

// ToRealSpace converts the tile to real coordinates.
func (t *Tile) ToRealSpace() (*Tile, error) {
	if t.space == geom.SpaceReal {
		return nil, moserr.New(moserr.ErrCodeGeometry, "tile %q is already in real space", t.name)
	}
	return t.derive(
		t.topLeft.ToRealSpace(t.pixelSize),
		t.diag.ToRealSpace(t.pixelSize),
		geom.SpaceReal,
	), nil
}

// Equal reports whether two tiles occupy the same box within the positional
// tolerance. Tiles in different spaces are compared after converting the
// other tile into the receiver's space.
func (t *Tile) Equal(o *Tile) bool {
	if o == nil {
		return false
	}
	if o.space != t.space {
		var err error
		if t.space == geom.SpaceReal {
			o, err = o.ToRealSpace()
		} else {
			o, err = o.ToPixelSpace()
		}
		if err != nil {
			return false
		}
	}
	if t.topLeft.Sub(o.topLeft).LengthXY() > geom.PositionTol {
		return false
	}
	return t.diag.Sub(o.diag).LengthXY() <= geom.PositionTol
}

// IsCoplanar reports whether t and o share the same Z, C and T extent, i.e.
// they live on the same XY plane of the acquisition.
func (t *Tile) IsCoplanar(o *Tile) bool {
	const zTol = 1e-6
	if math.Abs(t.topLeft.Z-o.topLeft.Z) > zTol || math.Abs(t.diag.Z-o.diag.Z) > zTol {
		return false
	}
	if t.topLeft.C != o.topLeft.C || t.diag.C != o.diag.C {
		return false
	}
	return t.topLeft.T == o.topLeft.T && t.diag.T == o.diag.T
}

// CornersXY returns the four corners of the box on the top XY plane, starting
// at the top-left and winding through bottom-left, bottom-right, top-right.
func (t *Tile) CornersXY() [4]geom.Point {
	tl, br := t.topLeft, t.BotRight()
	mk := func(x, y float64) geom.Point {
		return geom.Point{X: x, Y: y, Z: tl.Z, C: tl.C, T: tl.T}
	}
	return [4]geom.Point{
		mk(tl.X, tl.Y),
		mk(tl.X, br.Y),
		mk(br.X, br.Y),
		mk(br.X, tl.Y),
	}
}

// AreaXY returns the box area on the XY plane.
func (t *Tile) AreaXY() float64 { return t.diag.X * t.diag.Y }

// IntersectionAreaXY returns the overlap area of two coplanar boxes on the
// XY plane, or zero when they are disjoint.
func (t *Tile) IntersectionAreaXY(o *Tile) (float64, error) {
	if !t.IsCoplanar(o) {
		return 0, moserr.New(moserr.ErrCodeGeometry,
			"tiles %q and %q are not coplanar", t.name, o.name)
	}
	minX := max(t.topLeft.X, o.topLeft.X)
	minY := max(t.topLeft.Y, o.topLeft.Y)
	maxX := min(t.BotRight().X, o.BotRight().X)
	maxY := min(t.BotRight().Y, o.BotRight().Y)
	if minX > maxX || minY > maxY {
		return 0, nil
	}
	return (maxX - minX) * (maxY - minY), nil
}

// IoUXY returns the intersection-over-union of two boxes on the XY plane.
func (t *Tile) IoUXY(o *Tile) (float64, error) {
	if !t.boundsOverlapXY(o) {
		return 0, nil
	}
	inter, err := t.IntersectionAreaXY(o)
	if err != nil {
		return 0, err
	}
	if inter <= 0 {
		return 0, nil
	}
	union := t.AreaXY() + o.AreaXY() - inter
	if union <= 0 {
		return 0, moserr.New(moserr.ErrCodeGeometry, "union of tile areas is not positive")
	}
	return inter / union, nil
}

func (t *Tile) boundsOverlapXY(o *Tile) bool {
	if t.topLeft.X > o.BotRight().X || t.BotRight().X < o.topLeft.X {
		return false
	}
	if t.topLeft.Y > o.BotRight().Y || t.BotRight().Y < o.topLeft.Y {
		return false
	}
	return true
}

// OverlapsXY reports whether two boxes overlap with IoU above eps.
func (t *Tile) OverlapsXY(o *Tile, eps float64) (bool, error) {
	if !t.boundsOverlapXY(o) {
		return false, nil
	}
	iou, err := t.IoUXY(o)
	if err != nil {
		return false, err
	}
	return iou > eps, nil
}

// PixelShape returns the discrete (T, C, Z, Y, X) extent of the tile. The
// declared shape wins when present; otherwise the extent is derived from the
// diagonal, converting to pixel space first when needed.
func (t *Tile) PixelShape() Shape {
	if t.shape != nil {
		return *t.shape
	}
	diag := t.diag
	if t.space == geom.SpaceReal {
		diag = diag.ToPixelSpace(t.pixelSize)
	}
	return Shape{diag.T, diag.C, int(diag.Z), int(diag.Y), int(diag.X)}
}

// Load pulls the tile data through the loader and verifies its shape against
// the tile geometry. A per-axis deviation of exactly one pixel is tolerated
// with a warning (rounding in pixel size or stage position); anything larger
// fails. A nil logger suppresses the warning.
func (t *Tile) Load(logger *charmlog.Logger) (*array.Array, error) {
	if t.loader == nil {
		return nil, moserr.New(moserr.ErrCodeInvalidInput, "tile %q has no data loader", t.name)
	}
	data, err := t.loader.Load()
	if err != nil {
		return nil, err
	}

	expected := t.PixelShape()
	maxDiff := 0
	mismatch := len(data.Shape) != len(expected)
	if !mismatch {
		for ax := range expected {
			d := expected[ax] - data.Shape[ax]
			if d < 0 {
				d = -d
			}
			if d > maxDiff {
				maxDiff = d
			}
		}
	}
	switch {
	case mismatch || maxDiff > 1:
		return nil, moserr.New(moserr.ErrCodeGeometry,
			"tile %q data shape %v does not match expected shape %v", t.name, data.Shape, expected)
	case maxDiff == 1:
		if logger != nil {
			logger.Warn("tile data shape off by one from tile geometry",
				"tile", t.name, "data", data.Shape, "expected", expected)
		}
	}
	return data, nil
}
