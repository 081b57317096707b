package projection

import (
	"context"
	"database/sql"

	"github.com/fleettools/fleetcore/internal/event"
	"github.com/fleettools/fleetcore/internal/projection/statusmachine"
)

func (d *Dispatcher) handleMissionCreated(ctx context.Context, tx *sql.Tx, ev event.Event) error {
	b, ok := event.IsEventType[event.MissionCreatedBody](ev)
	if !ok {
		return nil
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO missions (id, project, title, description, status, priority, creator, created_at_ms)
		VALUES (?, ?, ?, ?, 'pending', ?, ?, ?)
	`, b.MissionID, ev.Project, b.Title, b.Description, b.Priority, b.Creator, ev.Timestamp.UnixMilli())
	return err
}

func (d *Dispatcher) handleMissionStarted(ctx context.Context, tx *sql.Tx, ev event.Event) error {
	b, ok := event.IsEventType[event.MissionStartedBody](ev)
	if !ok {
		return nil
	}
	return d.handleMissionTransition(ctx, tx, ev, "in_progress", b.MissionID)
}

func (d *Dispatcher) handleMissionCompleted(ctx context.Context, tx *sql.Tx, ev event.Event) error {
	b, ok := event.IsEventType[event.MissionCompletedBody](ev)
	if !ok {
		return nil
	}
	return d.handleMissionTransition(ctx, tx, ev, "completed", b.MissionID)
}

func (d *Dispatcher) handleMissionTransition(ctx context.Context, tx *sql.Tx, ev event.Event, to, missionID string) error {
	current, err := currentStatus(ctx, tx, "missions", ev.Project, missionID)
	if err != nil {
		return err
	}
	if !statusmachine.Mission.Allowed(current, to) {
		return d.recordTransitionViolation(ctx, tx, ev, "mission", missionID, current, to)
	}

	ts := ev.Timestamp.UnixMilli()
	switch to {
	case "in_progress":
		_, err = tx.ExecContext(ctx, `UPDATE missions SET status = 'in_progress', started_at_ms = COALESCE(started_at_ms, ?) WHERE project = ? AND id = ?`, ts, ev.Project, missionID)
	case "completed":
		_, err = tx.ExecContext(ctx, `UPDATE missions SET status = 'completed', completed_at_ms = ? WHERE project = ? AND id = ?`, ts, ev.Project, missionID)
	default:
		_, err = tx.ExecContext(ctx, `UPDATE missions SET status = ? WHERE project = ? AND id = ?`, to, ev.Project, missionID)
	}
	if err != nil {
		return err
	}
	if !event.IsReplay(ctx) {
		gaugeActiveTransition(d.telemetry.Gauges().ActiveMissions, current, to, "in_progress")
	}
	return nil
}

// handleMissionSynced recomputes the mission's sortie tallies from a
// caller-supplied count rather than a live COUNT(*) over sorties, since
// the sync is itself an event (spec §4.2, replay must reproduce it from
// the log alone without a cross-table aggregate query at apply time).
func (d *Dispatcher) handleMissionSynced(ctx context.Context, tx *sql.Tx, ev event.Event) error {
	b, ok := event.IsEventType[event.MissionSyncedBody](ev)
	if !ok {
		return nil
	}
	_, err := tx.ExecContext(ctx, `
		UPDATE missions SET total_sorties = ?, completed_sorties = ? WHERE project = ? AND id = ?
	`, b.TotalSorties, b.CompletedSorties, ev.Project, b.MissionID)
	return err
}
