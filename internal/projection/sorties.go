package projection

import (
	"context"
	"database/sql"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fleettools/fleetcore/internal/event"
	"github.com/fleettools/fleetcore/internal/projection/statusmachine"
)

func (d *Dispatcher) handleSortieCreated(ctx context.Context, tx *sql.Tx, ev event.Event) error {
	b, ok := event.IsEventType[event.SortieCreatedBody](ev)
	if !ok {
		return nil
	}
	files, err := marshalJSON(b.Files)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO sorties (id, project, mission_id, title, description, status, priority, assignee, files, created_at_ms)
		VALUES (?, ?, ?, ?, ?, 'open', ?, ?, ?, ?)
	`, b.SortieID, ev.Project, b.MissionID, b.Title, b.Description, b.Priority, b.Assignee, files, ev.Timestamp.UnixMilli())
	return err
}

func (d *Dispatcher) handleSortieStarted(ctx context.Context, tx *sql.Tx, ev event.Event) error {
	b, ok := event.IsEventType[event.SortieStartedBody](ev)
	if !ok {
		return nil
	}
	return d.handleSortieTransition(ctx, tx, ev, "in_progress", b.SortieID, "")
}

func (d *Dispatcher) handleSortieCompleted(ctx context.Context, tx *sql.Tx, ev event.Event) error {
	b, ok := event.IsEventType[event.SortieCompletedBody](ev)
	if !ok {
		return nil
	}
	return d.handleSortieTransition(ctx, tx, ev, "closed", b.SortieID, "")
}

// handleSortieTransition applies a sortie status change, guarded by
// statusmachine.Sortie. On a disallowed transition it records a
// coordinator_violation event in the same transaction and leaves the
// row untouched (spec §4.5, §3 "REJECTS an event... by not applying
// the update").
func (d *Dispatcher) handleSortieTransition(ctx context.Context, tx *sql.Tx, ev event.Event, to, sortieID, blockedReason string) error {
	current, err := currentStatus(ctx, tx, "sorties", ev.Project, sortieID)
	if err != nil {
		return err
	}
	if !statusmachine.Sortie.Allowed(current, to) {
		return d.recordTransitionViolation(ctx, tx, ev, "sortie", sortieID, current, to)
	}

	ts := ev.Timestamp.UnixMilli()
	switch to {
	case "in_progress":
		_, err = tx.ExecContext(ctx, `UPDATE sorties SET status = 'in_progress', started_at_ms = COALESCE(started_at_ms, ?), blocked_reason = '' WHERE project = ? AND id = ?`, ts, ev.Project, sortieID)
	case "blocked":
		_, err = tx.ExecContext(ctx, `UPDATE sorties SET status = 'blocked', blocked_reason = ? WHERE project = ? AND id = ?`, blockedReason, ev.Project, sortieID)
	case "closed":
		_, err = tx.ExecContext(ctx, `UPDATE sorties SET status = 'closed', completed_at_ms = ?, progress_percent = 100 WHERE project = ? AND id = ?`, ts, ev.Project, sortieID)
	default:
		_, err = tx.ExecContext(ctx, `UPDATE sorties SET status = ? WHERE project = ? AND id = ?`, to, ev.Project, sortieID)
	}
	if err != nil {
		return err
	}
	if !event.IsReplay(ctx) {
		gaugeActiveTransition(d.telemetry.Gauges().ActiveSorties, current, to, "in_progress")
	}
	return nil
}

// gaugeActiveTransition adjusts gauge by one in the direction current
// -> to crosses the "currently active" boundary (active meaning
// status == activeStatus): entering active increments, leaving it
// decrements, anything else leaves it untouched.
func gaugeActiveTransition(gauge prometheus.Gauge, current, to, activeStatus string) {
	switch {
	case to == activeStatus && current != activeStatus:
		gauge.Inc()
	case current == activeStatus && to != activeStatus:
		gauge.Dec()
	}
}

func (d *Dispatcher) handleSortieBlocked(ctx context.Context, tx *sql.Tx, ev event.Event) error {
	b, ok := event.IsEventType[event.SortieBlockedBody](ev)
	if !ok {
		return nil
	}
	return d.handleSortieTransition(ctx, tx, ev, "blocked", b.SortieID, b.Reason)
}

func (d *Dispatcher) handleSortieProgress(ctx context.Context, tx *sql.Tx, ev event.Event) error {
	b, ok := event.IsEventType[event.SortieProgressBody](ev)
	if !ok {
		return nil
	}
	_, err := tx.ExecContext(ctx, `
		UPDATE sorties SET progress_percent = ? WHERE project = ? AND id = ?
	`, b.ProgressPercent, ev.Project, b.SortieID)
	return err
}

func (d *Dispatcher) handleSortieStatusChanged(ctx context.Context, tx *sql.Tx, ev event.Event) error {
	b, ok := event.IsEventType[event.SortieStatusChangedBody](ev)
	if !ok {
		return nil
	}
	current, err := currentStatus(ctx, tx, "sorties", ev.Project, b.SortieID)
	if err != nil {
		return err
	}
	if current != b.From || !statusmachine.Sortie.Allowed(b.From, b.To) {
		return d.recordTransitionViolation(ctx, tx, ev, "sortie", b.SortieID, current, b.To)
	}
	_, err = tx.ExecContext(ctx, `UPDATE sorties SET status = ? WHERE project = ? AND id = ?`, b.To, ev.Project, b.SortieID)
	return err
}

// currentStatus returns the status column for one row, or "" if the
// row doesn't exist (treated as a transition from the empty state,
// which no machine allows, so a create-before-transition bug surfaces
// as a coordinator_violation rather than a silent no-op).
func currentStatus(ctx context.Context, tx *sql.Tx, table, project, id string) (string, error) {
	row := tx.QueryRowContext(ctx, `SELECT status FROM `+table+` WHERE project = ? AND id = ?`, project, id)
	var status string
	switch err := row.Scan(&status); err {
	case nil:
		return status, nil
	case sql.ErrNoRows:
		return "", nil
	default:
		return "", err
	}
}

// recordTransitionViolation records the rejection as a
// coordinator_violation event and leaves the target row unchanged. On
// a live append this appends a fresh compensating event; on replay
// (event.IsReplay(ctx)) the triggering event already produced that
// compensating event the first time it was applied, so only the
// projection row — truncated by Rebuild along with every other
// projection table — is reconstructed. Re-appending it on every
// Rebuild would grow the event log without bound and break replay
// determinism (spec §3, §4.5, §8 property 3).
func (d *Dispatcher) recordTransitionViolation(ctx context.Context, tx *sql.Tx, ev event.Event, entity, entityID, from, to string) error {
	if !event.IsReplay(ctx) {
		body := event.CoordinatorViolationBody{
			Entity: entity, EntityID: entityID, FromStatus: from, ToStatus: to,
			Reason: "invalid status transition",
		}
		if _, err := appendWithinTx(ctx, tx, d.clock, ev.Project, body); err != nil {
			return err
		}
		d.telemetry.Gauges().Violations.Inc()
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO coordinator_violations (project, entity, entity_id, from_status, to_status, reason, occurred_at_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, ev.Project, entity, entityID, from, to, "invalid status transition", ev.Timestamp.UnixMilli())
	return err
}
