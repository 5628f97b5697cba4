// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about placement resolution, tile loading, and chunk
// materialization.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// This approach:
//   - Avoids import cycles (hooks are registered by main, not by libraries)
//   - Keeps the core library dependency-free from observability frameworks
//   - Allows different backends (OpenTelemetry, Prometheus, DataDog, etc.)
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetPlacementHooks(&myPlacementHooks{})
//	    observability.SetCompositeHooks(&myCompositeHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Placement().OnResolveStart(tileCount)
//	// ... resolve placements ...
//	observability.Placement().OnResolveComplete(mode, tileCount, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// PlacementHooks receives events from placement resolution.
type PlacementHooks interface {
	// OnResolveStart records the beginning of a resolution run.
	OnResolveStart(tileCount int)

	// OnResolveComplete records the end of a resolution run with the
	// strategy that actually ran.
	OnResolveComplete(mode string, tileCount int, duration time.Duration, err error)
}

// CompositeHooks receives events from chunk materialization.
type CompositeHooks interface {
	// OnTileLoad records one tile data load.
	OnTileLoad(ctx context.Context, tile string, duration time.Duration, err error)

	// OnChunkComplete records one materialized chunk. size is the chunk
	// payload in bytes.
	OnChunkComplete(ctx context.Context, index []int, size int, duration time.Duration, err error)
}

// NoopPlacementHooks is a no-op implementation of PlacementHooks.
type NoopPlacementHooks struct{}

func (NoopPlacementHooks) OnResolveStart(int)                                  {}
func (NoopPlacementHooks) OnResolveComplete(string, int, time.Duration, error) {}

// NoopCompositeHooks is a no-op implementation of CompositeHooks.
type NoopCompositeHooks struct{}

func (NoopCompositeHooks) OnTileLoad(context.Context, string, time.Duration, error) {}
func (NoopCompositeHooks) OnChunkComplete(context.Context, []int, int, time.Duration, error) {
}

var (
	placementHooks PlacementHooks = NoopPlacementHooks{}
	compositeHooks CompositeHooks = NoopCompositeHooks{}
	hooksMu        sync.RWMutex
)

// SetPlacementHooks registers custom placement hooks.
// This should be called once at application startup before any resolution runs.
func SetPlacementHooks(h PlacementHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		placementHooks = h
	}
}

// SetCompositeHooks registers custom composite hooks.
// This should be called once at application startup before any materialization.
func SetCompositeHooks(h CompositeHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		compositeHooks = h
	}
}

// Placement returns the registered placement hooks.
func Placement() PlacementHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return placementHooks
}

// Composite returns the registered composite hooks.
func Composite() CompositeHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return compositeHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	placementHooks = NoopPlacementHooks{}
	compositeHooks = NoopCompositeHooks{}
}
