package stitch

import (
	"io"
	"time"

	charmlog "github.com/charmbracelet/log"

	moserr "github.com/stitchlab/mosaic/pkg/errors"
	"github.com/stitchlab/mosaic/pkg/observability"
	"github.com/stitchlab/mosaic/pkg/tile"
)

// Mode selects the overlap resolution strategy.
type Mode string

// Overlap resolution modes.
const (
	// ModeAuto tries grid snapping and falls back to free nudging when the
	// tiles do not form a regular grid.
	ModeAuto Mode = "auto"
	// ModeGrid requires a regular grid and fails otherwise.
	ModeGrid Mode = "grid"
	// ModeFree always uses iterative nudging.
	ModeFree Mode = "free"
	// ModeNone leaves placements untouched.
	ModeNone Mode = "none"
)

// ValidModes is the set of supported overlap resolution modes.
var ValidModes = map[Mode]bool{
	ModeAuto: true,
	ModeGrid: true,
	ModeFree: true,
	ModeNone: true,
}

// Options configures a placement resolution run.
type Options struct {
	// Mode selects the overlap resolution strategy. Defaults to auto.
	Mode Mode `json:"mode,omitempty"`

	// Axis corrections applied before anything else. When any of them is
	// set, tile origins are re-captured afterwards so provenance reflects
	// the corrected frame.
	SwapXY  bool `json:"swap_xy,omitempty"`
	InvertX bool `json:"invert_x,omitempty"`
	InvertY bool `json:"invert_y,omitempty"`

	// Logger receives stage progress. Defaults to a discard logger.
	Logger *charmlog.Logger `json:"-"`

	validated bool `json:"-"`
}

// ValidateAndSetDefaults checks the options and applies defaults. Idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Mode == "" {
		o.Mode = ModeAuto
	}
	if !ValidModes[o.Mode] {
		return moserr.New(moserr.ErrCodeInvalidInput,
			"invalid mode %q (must be one of: auto, grid, free, none)", o.Mode)
	}
	if o.Logger == nil {
		o.Logger = charmlog.NewWithOptions(io.Discard, charmlog.Options{})
	}
	o.validated = true
	return nil
}

// Result holds the resolved placements and run statistics.
type Result struct {
	// Tiles are the resolved placements in pixel space.
	Tiles []*tile.Tile

	// ResolvedMode is the strategy that actually ran: under auto it reports
	// whether the grid or the free path was taken.
	ResolvedMode Mode

	// Stats contains timing information.
	Stats Stats
}

// Stats contains placement resolution timing.
type Stats struct {
	NormalizeTime time.Duration
	ResolveTime   time.Duration
}

// Resolve runs the full placement pipeline: coplanarity check, axis
// corrections, normalization to the origin, overlap resolution, conversion to
// pixel space, and pixel-gap closing when a grid was used.
func Resolve(tiles []*tile.Tile, opts Options) (res *Result, err error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	logger := opts.Logger

	observability.Placement().OnResolveStart(len(tiles))
	start := time.Now()
	defer func() {
		mode := ""
		if res != nil {
			mode = string(res.ResolvedMode)
		}
		observability.Placement().OnResolveComplete(mode, len(tiles), time.Since(start), err)
	}()

	if err := CheckCoplanar(tiles); err != nil {
		return nil, err
	}

	normalizeStart := time.Now()
	if opts.SwapXY {
		tiles = SwapXY(tiles)
	}
	if opts.InvertX {
		tiles = InvertX(tiles)
	}
	if opts.InvertY {
		tiles = InvertY(tiles)
	}
	if opts.SwapXY || opts.InvertX || opts.InvertY {
		tiles = ResetOrigins(tiles)
	}

	tiles = SortByDistance(tiles)
	tiles = RemoveOffsetXY(tiles)
	tiles = RemoveOffsetZT(tiles)

	result := &Result{}
	result.Stats.NormalizeTime = time.Since(normalizeStart)
	logger.Info("normalized tile placements",
		"tiles", len(tiles),
		"duration", result.Stats.NormalizeTime)

	resolveStart := time.Now()
	tiles, resolvedMode, err := resolveOverlap(tiles, opts.Mode, logger)
	if err != nil {
		return nil, err
	}

	tiles, err = ToPixelSpace(tiles)
	if err != nil {
		return nil, err
	}
	if resolvedMode == ModeGrid {
		tiles, err = ClosePixelGaps(tiles)
		if err != nil {
			return nil, err
		}
	}

	result.Tiles = tiles
	result.ResolvedMode = resolvedMode
	result.Stats.ResolveTime = time.Since(resolveStart)
	logger.Info("resolved tile overlap",
		"mode", resolvedMode,
		"tiles", len(tiles),
		"duration", result.Stats.ResolveTime)

	return result, nil
}

// resolveOverlap dispatches to the strategy for the requested mode and
// reports which one ran.
func resolveOverlap(tiles []*tile.Tile, mode Mode, logger *charmlog.Logger) ([]*tile.Tile, Mode, error) {
	switch mode {
	case ModeAuto:
		setup, err := tile.CheckRegularGrid(tiles)
		if err == nil {
			out, err := ResolveGrid(tiles, setup)
			return out, ModeGrid, err
		}
		if !moserr.Is(err, moserr.ErrCodeNotARegularGrid) {
			return nil, "", err
		}
		logger.Debug("tiles are not on a regular grid, falling back to free mode", "reason", err)
		out, err := ResolveFree(tiles)
		return out, ModeFree, err
	case ModeGrid:
		setup, err := tile.CheckRegularGrid(tiles)
		if err != nil {
			return nil, "", moserr.Wrap(moserr.ErrCodeNotARegularGrid, err,
				"the input tiles are not on a regular grid; use the free mode")
		}
		out, err := ResolveGrid(tiles, setup)
		return out, ModeGrid, err
	case ModeFree:
		out, err := ResolveFree(tiles)
		return out, ModeFree, err
	case ModeNone:
		return tiles, ModeNone, nil
	}
	return nil, "", moserr.New(moserr.ErrCodeInvalidInput, "invalid mode %q", mode)
}
