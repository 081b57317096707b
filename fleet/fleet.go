package fleet

import (
	"context"
	"time"

	"github.com/fleettools/fleetcore/internal/checkpoint"
	"github.com/fleettools/fleetcore/internal/clock"
	"github.com/fleettools/fleetcore/internal/cursor"
	"github.com/fleettools/fleetcore/internal/eventstore"
	"github.com/fleettools/fleetcore/internal/lock"
	"github.com/fleettools/fleetcore/internal/projection"
	"github.com/fleettools/fleetcore/internal/storage"
	"github.com/fleettools/fleetcore/internal/telemetry"
)

// Fleet is one project's coordination engine: the event store plus
// every service built on top of it (spec §6, the whole of C9).
type Fleet struct {
	project    string
	db         *storage.DB
	store      *eventstore.Store
	locks      *lock.Manager
	cursors    *cursor.Service
	checkpoint *checkpoint.Service
	clock      clock.Clock
	telemetry  telemetry.Telemetry

	reservationTTL time.Duration
	lockTTL        time.Duration
	stallThreshold time.Duration
}

// Open builds a Fleet from opts, opening (and migrating) its database.
func Open(ctx context.Context, opts ...Option) (*Fleet, error) {
	o := newOptions(opts...)
	if err := o.Validate(); err != nil {
		return nil, err
	}

	db, err := storage.Open(ctx, storage.Config{
		ProjectPath:      o.projectPath,
		DatabaseFilename: o.databaseFilename,
		InMemory:         o.inMemory,
	})
	if err != nil {
		return nil, err
	}

	dispatcher := projection.New(o.clock, o.telemetry)
	store := eventstore.New(db, dispatcher, o.clock, o.telemetry)
	locks := lock.New(store, o.clock)
	cursors := cursor.New(db, o.clock)
	ckpt := checkpoint.New(store, db, locks, o.clock, o.telemetry, o.checkpointsDir)

	return &Fleet{
		project:        o.project,
		db:             db,
		store:          store,
		locks:          locks,
		cursors:        cursors,
		checkpoint:     ckpt,
		clock:          o.clock,
		telemetry:      o.telemetry,
		reservationTTL: o.reservationTTL,
		lockTTL:        o.lockTTL,
		stallThreshold: o.stallThreshold,
	}, nil
}

// Close releases the underlying database connection.
func (f *Fleet) Close() error {
	return f.db.Close()
}

// logOp emits the one-line-per-call structured log every C9 façade
// operation produces: operation, project, callsign, outcome, duration.
// Conflicts and violations (including any error) log at warn level
// since they're the cases an operator watching the log wants to
// notice; everything else is debug noise.
func (f *Fleet) logOp(ctx context.Context, op, callsign string, start time.Time, err error, conflict bool) {
	duration := f.clock.Now().Sub(start)
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case conflict:
		outcome = "conflict"
	}
	keyvals := []any{"op", op, "project", f.project, "callsign", callsign, "outcome", outcome, "duration_ms", duration.Milliseconds()}
	if err != nil {
		f.telemetry.Warn(ctx, "fleet operation failed", append(keyvals, "error", err.Error())...)
		return
	}
	if conflict {
		f.telemetry.Warn(ctx, "fleet operation conflicted", keyvals...)
		return
	}
	f.telemetry.Debug(ctx, "fleet operation completed", keyvals...)
}
