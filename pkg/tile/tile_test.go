package tile

import (
	"strings"
	"testing"

	"github.com/stitchlab/mosaic/pkg/array"
	moserr "github.com/stitchlab/mosaic/pkg/errors"
	"github.com/stitchlab/mosaic/pkg/geom"
)

func mustTile(t *testing.T, p Params) *Tile {
	t.Helper()
	tl, err := New(p)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tl
}

func simpleTile(t *testing.T, x, y float64) *Tile {
	t.Helper()
	return mustTile(t, Params{
		TopLeft:   geom.Point{X: x, Y: y},
		Diag:      geom.Vector{X: 10, Y: 10, Z: 1, C: 1, T: 1},
		PixelSize: geom.PixelSize{X: 1, Y: 1, Z: 1},
	})
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		wantErr bool
	}{
		{
			name: "valid",
			params: Params{
				TopLeft: geom.Point{X: 0, Y: 0},
				Diag:    geom.Vector{X: 10, Y: 10, Z: 1, C: 1, T: 1},
			},
		},
		{
			name: "nonzero channel on top-left",
			params: Params{
				TopLeft: geom.Point{C: 2},
				Diag:    geom.Vector{X: 10, Y: 10},
			},
			wantErr: true,
		},
		{
			name: "negative size component",
			params: Params{
				TopLeft: geom.Point{},
				Diag:    geom.Vector{X: -1, Y: 10},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.params)
			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestDefaults(t *testing.T) {
	tl := simpleTile(t, 3, 4)
	if tl.Space() != geom.SpaceReal {
		t.Errorf("default space = %q, want real", tl.Space())
	}
	org := tl.Origin()
	if org.X != 3 || org.Y != 4 {
		t.Errorf("origin = %+v, want captured from top-left", org)
	}
}

func TestShapeDerivesDiag(t *testing.T) {
	shape := Shape{2, 3, 4, 100, 200}
	tl := mustTile(t, Params{
		TopLeft:   geom.Point{},
		Diag:      geom.Vector{X: 1, Y: 1},
		PixelSize: geom.PixelSize{X: 0.5, Y: 0.25, Z: 2},
		Shape:     &shape,
	})
	diag := tl.Diag()
	if diag.X != 100 || diag.Y != 25 || diag.Z != 8 || diag.C != 3 || diag.T != 2 {
		t.Errorf("diag = %+v", diag)
	}
}

func TestMoveKeepsOrigin(t *testing.T) {
	tl := simpleTile(t, 5, 5)
	moved := tl.MoveBy(geom.Vector{X: 2, Y: -1})
	if got := moved.TopLeft(); got.X != 7 || got.Y != 4 {
		t.Errorf("top-left after move = %+v", got)
	}
	if org := moved.Origin(); org.X != 5 || org.Y != 5 {
		t.Errorf("origin after move = %+v, want (5, 5)", org)
	}

	reset := moved.ResetOrigin()
	if org := reset.Origin(); org.X != 7 || org.Y != 4 {
		t.Errorf("origin after reset = %+v, want (7, 4)", org)
	}
}

func TestMoveTo(t *testing.T) {
	tl := simpleTile(t, 0, 0)
	moved := tl.MoveTo(geom.Point{X: 30, Y: 40})
	if got := moved.TopLeft(); got.X != 30 || got.Y != 40 {
		t.Errorf("top-left = %+v", got)
	}
	if !moved.Diag().Sub(tl.Diag()).AllNonNegative() {
		t.Error("size changed by MoveTo")
	}
}

func TestSpaceConversion(t *testing.T) {
	tl := mustTile(t, Params{
		TopLeft:   geom.Point{X: 10, Y: 20, Z: 2},
		Diag:      geom.Vector{X: 5, Y: 5, Z: 2, C: 1, T: 1},
		PixelSize: geom.PixelSize{X: 0.5, Y: 0.5, Z: 2},
	})

	px, err := tl.ToPixelSpace()
	if err != nil {
		t.Fatalf("ToPixelSpace: %v", err)
	}
	if got := px.TopLeft(); got.X != 20 || got.Y != 40 || got.Z != 1 {
		t.Errorf("pixel top-left = %+v", got)
	}
	if px.Space() != geom.SpacePixel {
		t.Errorf("space = %q", px.Space())
	}

	if _, err := px.ToPixelSpace(); err == nil {
		t.Error("converting pixel tile to pixel space should fail")
	}

	back, err := px.ToRealSpace()
	if err != nil {
		t.Fatalf("ToRealSpace: %v", err)
	}
	if !back.Equal(tl) {
		t.Errorf("round-trip tile differs: %+v vs %+v", back.TopLeft(), tl.TopLeft())
	}
}

func TestEqualAcrossSpaces(t *testing.T) {
	tl := mustTile(t, Params{
		TopLeft:   geom.Point{X: 10, Y: 10},
		Diag:      geom.Vector{X: 4, Y: 4},
		PixelSize: geom.PixelSize{X: 2, Y: 2, Z: 1},
	})
	px, err := tl.ToPixelSpace()
	if err != nil {
		t.Fatalf("ToPixelSpace: %v", err)
	}
	if !tl.Equal(px) {
		t.Error("real tile should equal its pixel-space conversion")
	}
	if !px.Equal(tl) {
		t.Error("pixel tile should equal its real-space source")
	}
	if tl.Equal(nil) {
		t.Error("tile should not equal nil")
	}
}

func TestIsCoplanar(t *testing.T) {
	base := simpleTile(t, 0, 0)
	same := simpleTile(t, 5, 5)
	if !base.IsCoplanar(same) {
		t.Error("tiles at same Z should be coplanar")
	}

	raised := mustTile(t, Params{
		TopLeft:   geom.Point{X: 0, Y: 0, Z: 3},
		Diag:      geom.Vector{X: 10, Y: 10, Z: 1, C: 1, T: 1},
		PixelSize: geom.PixelSize{X: 1, Y: 1, Z: 1},
	})
	if base.IsCoplanar(raised) {
		t.Error("tiles at different Z should not be coplanar")
	}

	later := mustTile(t, Params{
		TopLeft:   geom.Point{X: 0, Y: 0, T: 1},
		Diag:      geom.Vector{X: 10, Y: 10, Z: 1, C: 1, T: 1},
		PixelSize: geom.PixelSize{X: 1, Y: 1, Z: 1},
	})
	if base.IsCoplanar(later) {
		t.Error("tiles at different T should not be coplanar")
	}
}

func TestIoUXY(t *testing.T) {
	tests := []struct {
		name string
		ax   float64
		ay   float64
		bx   float64
		by   float64
		want float64
	}{
		{name: "identical", ax: 0, ay: 0, bx: 0, by: 0, want: 1},
		{name: "half overlap in x", ax: 0, ay: 0, bx: 5, by: 0, want: 50.0 / 150.0},
		{name: "disjoint", ax: 0, ay: 0, bx: 20, by: 0, want: 0},
		{name: "touching edges", ax: 0, ay: 0, bx: 10, by: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := simpleTile(t, tt.ax, tt.ay)
			b := simpleTile(t, tt.bx, tt.by)
			got, err := a.IoUXY(b)
			if err != nil {
				t.Fatalf("IoUXY: %v", err)
			}
			if diff := got - tt.want; diff > 1e-12 || diff < -1e-12 {
				t.Errorf("IoUXY = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCornersXY(t *testing.T) {
	tl := simpleTile(t, 2, 3)
	corners := tl.CornersXY()
	want := [4][2]float64{{2, 3}, {2, 13}, {12, 13}, {12, 3}}
	for i, c := range corners {
		if c.X != want[i][0] || c.Y != want[i][1] {
			t.Errorf("corner %d = (%v, %v), want %v", i, c.X, c.Y, want[i])
		}
	}
}

type stubLoader struct {
	data *array.Array
	err  error
	n    int
}

func (s *stubLoader) Load() (*array.Array, error) {
	s.n++
	return s.data, s.err
}

func (s *stubLoader) Dtype() array.Dtype {
	if s.data != nil {
		return s.data.Dtype
	}
	return array.Uint16
}

func TestLoadShapeCheck(t *testing.T) {
	newTile := func(t *testing.T, dataShape []int) *Tile {
		t.Helper()
		data, err := array.New(array.Uint16, dataShape)
		if err != nil {
			t.Fatalf("array.New: %v", err)
		}
		shape := Shape{1, 1, 1, 10, 10}
		return mustTile(t, Params{
			Name:      "fov0",
			TopLeft:   geom.Point{},
			PixelSize: geom.PixelSize{X: 1, Y: 1, Z: 1},
			Shape:     &shape,
			Loader:    &stubLoader{data: data},
		})
	}

	t.Run("exact shape", func(t *testing.T) {
		tl := newTile(t, []int{1, 1, 1, 10, 10})
		if _, err := tl.Load(nil); err != nil {
			t.Fatalf("Load: %v", err)
		}
	})

	t.Run("off by one tolerated", func(t *testing.T) {
		tl := newTile(t, []int{1, 1, 1, 9, 10})
		if _, err := tl.Load(nil); err != nil {
			t.Fatalf("Load: %v", err)
		}
	})

	t.Run("off by two fails", func(t *testing.T) {
		tl := newTile(t, []int{1, 1, 1, 8, 10})
		_, err := tl.Load(nil)
		if err == nil {
			t.Fatal("expected shape mismatch error")
		}
		if moserr.GetCode(err) != moserr.ErrCodeGeometry {
			t.Errorf("code = %q, want %q", moserr.GetCode(err), moserr.ErrCodeGeometry)
		}
		if !strings.Contains(err.Error(), "fov0") {
			t.Errorf("error should name the tile: %v", err)
		}
	})

	t.Run("no loader", func(t *testing.T) {
		tl := simpleTile(t, 0, 0)
		if _, err := tl.Load(nil); err == nil {
			t.Fatal("expected error for tile without loader")
		}
	})
}

func TestPixelShape(t *testing.T) {
	tl := mustTile(t, Params{
		TopLeft:   geom.Point{},
		Diag:      geom.Vector{X: 6, Y: 4, Z: 2, C: 3, T: 1},
		PixelSize: geom.PixelSize{X: 0.5, Y: 0.5, Z: 1},
	})
	got := tl.PixelShape()
	want := Shape{1, 3, 2, 8, 12}
	if got != want {
		t.Errorf("PixelShape = %v, want %v", got, want)
	}
}
