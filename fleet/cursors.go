package fleet

import (
	"context"

	"github.com/fleettools/fleetcore/internal/event"
)

// AdvanceCursor moves consumer's cursor over (streamKind, streamID) to
// position, clamped forward-only (spec §4.7).
func (f *Fleet) AdvanceCursor(ctx context.Context, consumer, streamKind, streamID string, position int64) error {
	start := f.clock.Now()
	err := translateContextErr(ctx, f.cursors.Advance(ctx, f.project, consumer, streamKind, streamID, position))
	f.logOp(ctx, "AdvanceCursor", consumer, start, err, false)
	return err
}

// GetCursor returns consumer's current position over (streamKind, streamID).
func (f *Fleet) GetCursor(ctx context.Context, consumer, streamKind, streamID string) (int64, error) {
	return f.cursors.Position(ctx, f.project, consumer, streamKind, streamID)
}

// TailCursor reads up to limit events past consumer's cursor and
// advances it to the max sequence returned, inside one transaction
// (spec §4.7 "at-least-once, never loses events").
func (f *Fleet) TailCursor(ctx context.Context, consumer, streamKind, streamID string, limit int) ([]event.Event, error) {
	start := f.clock.Now()
	events, err := f.cursors.Tail(ctx, f.project, consumer, streamKind, streamID, limit)
	f.logOp(ctx, "TailCursor", consumer, start, err, false)
	return events, err
}
