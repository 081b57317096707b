// Package projection folds the event log into the queryable tables
// spec §4.2 lists, one handler per event type, all running inside the
// transaction eventstore.Store.Append already opened (spec §4.5,
// §9 "pseudo-async handler chains" -> explicit transactional scope over
// synchronous calls).
package projection

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/fleettools/fleetcore/internal/clock"
	"github.com/fleettools/fleetcore/internal/event"
	"github.com/fleettools/fleetcore/internal/telemetry"
)

// Dispatcher routes an appended event to every handler whose domain it
// touches. It structurally satisfies eventstore.Dispatcher without
// importing that package, keeping the dependency one-directional
// (eventstore -> nothing, projection -> event/clock/telemetry only).
type Dispatcher struct {
	clock     clock.Clock
	telemetry telemetry.Telemetry
}

// New builds a Dispatcher.
func New(c clock.Clock, t telemetry.Telemetry) *Dispatcher {
	if c == nil {
		c = clock.System{}
	}
	if t == nil {
		t = telemetry.NoOp()
	}
	return &Dispatcher{clock: c, telemetry: t}
}

// Dispatch applies ev's projection mutation(s). Event types with no
// projection effect (diagnostic/coordination-only records) fall
// through to the default no-op.
func (d *Dispatcher) Dispatch(ctx context.Context, tx *sql.Tx, ev event.Event) error {
	switch ev.Type {
	case event.PilotRegistered:
		return d.handlePilotRegistered(ctx, tx, ev)
	case event.PilotActive:
		return d.handlePilotActive(ctx, tx, ev)
	case event.PilotDeregistered:
		return d.handlePilotDeregistered(ctx, tx, ev)

	case event.MessageSent:
		return d.handleMessageSent(ctx, tx, ev)
	case event.MessageRead:
		return d.handleMessageRead(ctx, tx, ev)
	case event.MessageAcked:
		return d.handleMessageAcked(ctx, tx, ev)

	case event.FileReserved:
		return d.handleFileReserved(ctx, tx, ev)
	case event.FileReleased:
		return d.handleFileReleased(ctx, tx, ev)

	case event.LockAcquired:
		return d.handleLockAcquired(ctx, tx, ev)
	case event.LockReleased:
		return d.handleLockReleased(ctx, tx, ev)

	case event.SortieCreated:
		return d.handleSortieCreated(ctx, tx, ev)
	case event.SortieStarted:
		return d.handleSortieStarted(ctx, tx, ev)
	case event.SortieBlocked:
		return d.handleSortieBlocked(ctx, tx, ev)
	case event.SortieCompleted:
		return d.handleSortieCompleted(ctx, tx, ev)
	case event.SortieProgress:
		return d.handleSortieProgress(ctx, tx, ev)
	case event.SortieStatusChanged:
		return d.handleSortieStatusChanged(ctx, tx, ev)

	case event.WorkOrderCreated:
		return d.handleWorkOrderCreated(ctx, tx, ev)
	case event.WorkOrderStarted:
		return d.handleWorkOrderStarted(ctx, tx, ev)
	case event.WorkOrderBlocked:
		return d.handleWorkOrderBlocked(ctx, tx, ev)
	case event.WorkOrderCompleted:
		return d.handleWorkOrderCompleted(ctx, tx, ev)
	case event.WorkOrderProgress:
		return d.handleWorkOrderProgress(ctx, tx, ev)
	case event.WorkOrderStatusChanged:
		return d.handleWorkOrderStatusChanged(ctx, tx, ev)

	case event.MissionCreated:
		return d.handleMissionCreated(ctx, tx, ev)
	case event.MissionStarted:
		return d.handleMissionStarted(ctx, tx, ev)
	case event.MissionCompleted:
		return d.handleMissionCompleted(ctx, tx, ev)
	case event.MissionSynced:
		return d.handleMissionSynced(ctx, tx, ev)

	case event.CheckpointCreated:
		return d.handleCheckpointCreated(ctx, tx, ev)
	case event.ContextCompacted:
		return d.handleContextCompacted(ctx, tx, ev)

	default:
		// Diagnostic/coordination-only: thread_created, thread_activity,
		// file_conflict, lock_conflict, lock_reacquired, fleet_recovered,
		// context_injected, coordinator_decision, coordinator_violation,
		// pilot_spawned, pilot_completed, review_started, review_completed. These are
		// recorded by virtue of being in the event log itself; none of
		// them has a dedicated projection table.
		return nil
	}
}

// appendWithinTx inserts a compensating event (e.g. coordinator_violation,
// file_conflict) using the caller's already-open transaction. It
// duplicates eventstore.Store.Append's insert rather than calling back
// into it, since Append always opens its own transaction and nesting
// would either deadlock (in-memory, one connection) or silently use a
// second connection (file-backed, breaking atomicity with the handler's
// own mutation).
func appendWithinTx(ctx context.Context, tx *sql.Tx, c clock.Clock, project string, body event.Body) (event.Event, error) {
	ev, err := event.New(project, c.Now(), body)
	if err != nil {
		return event.Event{}, err
	}
	raw, err := event.EncodeBody(ev.Body)
	if err != nil {
		return event.Event{}, fmt.Errorf("encode compensating event body: %w", err)
	}
	streamKind, streamID, _ := event.StreamID(ev)

	res, err := tx.ExecContext(ctx, `
		INSERT INTO events (sequence, project, type, timestamp_ms, stream_kind, stream_id, body)
		VALUES (0, ?, ?, ?, ?, ?, ?)
	`, ev.Project, string(ev.Type), ev.Timestamp.UnixMilli(), streamKind, streamID, string(raw))
	if err != nil {
		return event.Event{}, fmt.Errorf("insert compensating event: %w", err)
	}
	lastID, err := res.LastInsertId()
	if err != nil {
		return event.Event{}, err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE events SET sequence = ? WHERE id = ?`, lastID, lastID); err != nil {
		return event.Event{}, err
	}
	ev.ID, ev.Sequence = lastID, lastID
	return ev, nil
}

func marshalJSON(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
