package observability

import (
	"context"
	"testing"
	"time"
)

type recordingPlacement struct {
	starts    int
	completes int
	lastMode  string
}

func (r *recordingPlacement) OnResolveStart(int) { r.starts++ }
func (r *recordingPlacement) OnResolveComplete(mode string, _ int, _ time.Duration, _ error) {
	r.completes++
	r.lastMode = mode
}

type recordingComposite struct {
	loads  int
	chunks int
}

func (r *recordingComposite) OnTileLoad(context.Context, string, time.Duration, error) { r.loads++ }
func (r *recordingComposite) OnChunkComplete(context.Context, []int, int, time.Duration, error) {
	r.chunks++
}

func TestSetPlacementHooks(t *testing.T) {
	t.Cleanup(Reset)

	rec := &recordingPlacement{}
	SetPlacementHooks(rec)

	Placement().OnResolveStart(4)
	Placement().OnResolveComplete("grid", 4, time.Millisecond, nil)

	if rec.starts != 1 || rec.completes != 1 {
		t.Errorf("starts = %d, completes = %d, want 1 each", rec.starts, rec.completes)
	}
	if rec.lastMode != "grid" {
		t.Errorf("mode = %q, want grid", rec.lastMode)
	}
}

func TestSetCompositeHooks(t *testing.T) {
	t.Cleanup(Reset)

	rec := &recordingComposite{}
	SetCompositeHooks(rec)

	Composite().OnTileLoad(context.Background(), "fov0", time.Millisecond, nil)
	Composite().OnChunkComplete(context.Background(), []int{0, 0}, 1024, time.Millisecond, nil)

	if rec.loads != 1 || rec.chunks != 1 {
		t.Errorf("loads = %d, chunks = %d, want 1 each", rec.loads, rec.chunks)
	}
}

func TestSetHooksNilKeepsCurrent(t *testing.T) {
	t.Cleanup(Reset)

	rec := &recordingPlacement{}
	SetPlacementHooks(rec)
	SetPlacementHooks(nil)

	Placement().OnResolveStart(1)
	if rec.starts != 1 {
		t.Error("nil registration should keep the current hooks")
	}
}

func TestReset(t *testing.T) {
	rec := &recordingPlacement{}
	SetPlacementHooks(rec)
	Reset()

	Placement().OnResolveStart(1)
	if rec.starts != 0 {
		t.Error("Reset should restore no-op hooks")
	}
}
