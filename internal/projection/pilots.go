package projection

import (
	"context"
	"database/sql"

	"github.com/fleettools/fleetcore/internal/event"
)

func (d *Dispatcher) handlePilotRegistered(ctx context.Context, tx *sql.Tx, ev event.Event) error {
	b, ok := event.IsEventType[event.PilotRegisteredBody](ev)
	if !ok {
		return nil
	}
	ts := ev.Timestamp.UnixMilli()
	_, err := tx.ExecContext(ctx, `
		INSERT INTO pilots (project, callsign, program, model, task_description, registered_at_ms, last_active_at_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project, callsign) DO UPDATE SET
			program = excluded.program, model = excluded.model,
			task_description = excluded.task_description, last_active_at_ms = excluded.last_active_at_ms
	`, ev.Project, b.Callsign, b.Program, b.Model, b.TaskDescription, ts, ts)
	return err
}

func (d *Dispatcher) handlePilotActive(ctx context.Context, tx *sql.Tx, ev event.Event) error {
	b, ok := event.IsEventType[event.PilotActiveBody](ev)
	if !ok {
		return nil
	}
	_, err := tx.ExecContext(ctx, `
		UPDATE pilots SET last_active_at_ms = ? WHERE project = ? AND callsign = ?
	`, ev.Timestamp.UnixMilli(), ev.Project, b.Callsign)
	return err
}

func (d *Dispatcher) handlePilotDeregistered(ctx context.Context, tx *sql.Tx, ev event.Event) error {
	b, ok := event.IsEventType[event.PilotDeregisteredBody](ev)
	if !ok {
		return nil
	}
	_, err := tx.ExecContext(ctx, `
		UPDATE pilots SET deregistered_at_ms = ?, deregister_reason = ? WHERE project = ? AND callsign = ?
	`, ev.Timestamp.UnixMilli(), b.Reason, ev.Project, b.Callsign)
	return err
}
