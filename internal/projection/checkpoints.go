package projection

import (
	"context"
	"database/sql"

	"github.com/fleettools/fleetcore/internal/event"
)

func (d *Dispatcher) handleCheckpointCreated(ctx context.Context, tx *sql.Tx, ev event.Event) error {
	b, ok := event.IsEventType[event.CheckpointCreatedBody](ev)
	if !ok {
		return nil
	}
	recovery, err := marshalJSON(b.RecoveryContext)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO checkpoints (id, project, mission_id, callsign, trigger, progress_percent, summary, recovery_context, created_at_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, b.CheckpointID, ev.Project, b.MissionID, b.Callsign, string(b.Trigger), b.ProgressPercent, b.Summary, recovery, ev.Timestamp.UnixMilli())
	return err
}

// handleContextCompacted records the compaction as a checkpoint row of
// its own (spec §4.8 "a compaction is a checkpoint the coordinator took
// on the pilot's behalf"), owned by the system rather than a callsign.
func (d *Dispatcher) handleContextCompacted(ctx context.Context, tx *sql.Tx, ev event.Event) error {
	b, ok := event.IsEventType[event.ContextCompactedBody](ev)
	if !ok {
		return nil
	}
	recovery, err := marshalJSON(event.RecoveryContext{LastAction: "context_compacted"})
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO checkpoints (id, project, mission_id, callsign, trigger, progress_percent, summary, recovery_context, created_at_ms)
		VALUES (?, ?, ?, 'system', ?, 0, ?, ?, ?)
	`, b.CheckpointID, ev.Project, b.MissionID, string(event.TriggerContextLimit), b.Summary, recovery, ev.Timestamp.UnixMilli())
	return err
}
