package fleet

import (
	"context"

	"github.com/fleettools/fleetcore/internal/event"
	"github.com/fleettools/fleetcore/internal/eventstore"
)

// ReplayEvents returns events matching opts for inspection or tooling
// (spec §4.4 query surface, exposed read-only through the façade).
func (f *Fleet) ReplayEvents(ctx context.Context, opts eventstore.QueryOptions) ([]event.Event, error) {
	return f.store.Query(ctx, f.project, opts)
}

// RebuildAllProjections truncates and replays every projection table
// from the event log, in ascending sequence order (spec §4.4, §9 "the
// log is the source of truth; projections are disposable").
func (f *Fleet) RebuildAllProjections(ctx context.Context) error {
	start := f.clock.Now()
	err := f.store.Rebuild(ctx, f.project)
	f.logOp(ctx, "RebuildAllProjections", "", start, err, false)
	return err
}
