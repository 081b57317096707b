package projection

import (
	"context"
	"database/sql"

	"github.com/fleettools/fleetcore/internal/event"
	"github.com/fleettools/fleetcore/internal/projection/statusmachine"
)

// Work orders share the sortie status machine (spec §4.2 "a work order
// is shaped exactly like a sortie, one level down").

func (d *Dispatcher) handleWorkOrderCreated(ctx context.Context, tx *sql.Tx, ev event.Event) error {
	b, ok := event.IsEventType[event.WorkOrderCreatedBody](ev)
	if !ok {
		return nil
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO work_orders (id, project, sortie_id, title, description, status, priority, assignee, created_at_ms)
		VALUES (?, ?, ?, ?, ?, 'open', ?, ?, ?)
	`, b.WorkOrderID, ev.Project, b.SortieID, b.Title, b.Description, b.Priority, b.Assignee, ev.Timestamp.UnixMilli())
	return err
}

func (d *Dispatcher) handleWorkOrderStarted(ctx context.Context, tx *sql.Tx, ev event.Event) error {
	b, ok := event.IsEventType[event.WorkOrderStartedBody](ev)
	if !ok {
		return nil
	}
	return d.handleWorkOrderTransition(ctx, tx, ev, "in_progress", b.WorkOrderID, "")
}

func (d *Dispatcher) handleWorkOrderCompleted(ctx context.Context, tx *sql.Tx, ev event.Event) error {
	b, ok := event.IsEventType[event.WorkOrderCompletedBody](ev)
	if !ok {
		return nil
	}
	return d.handleWorkOrderTransition(ctx, tx, ev, "closed", b.WorkOrderID, "")
}

func (d *Dispatcher) handleWorkOrderBlocked(ctx context.Context, tx *sql.Tx, ev event.Event) error {
	b, ok := event.IsEventType[event.WorkOrderBlockedBody](ev)
	if !ok {
		return nil
	}
	return d.handleWorkOrderTransition(ctx, tx, ev, "blocked", b.WorkOrderID, b.Reason)
}

func (d *Dispatcher) handleWorkOrderTransition(ctx context.Context, tx *sql.Tx, ev event.Event, to, workOrderID, blockedReason string) error {
	current, err := currentStatus(ctx, tx, "work_orders", ev.Project, workOrderID)
	if err != nil {
		return err
	}
	if !statusmachine.Sortie.Allowed(current, to) {
		return d.recordTransitionViolation(ctx, tx, ev, "work_order", workOrderID, current, to)
	}

	ts := ev.Timestamp.UnixMilli()
	switch to {
	case "in_progress":
		_, err = tx.ExecContext(ctx, `UPDATE work_orders SET status = 'in_progress', started_at_ms = COALESCE(started_at_ms, ?), blocked_reason = '' WHERE project = ? AND id = ?`, ts, ev.Project, workOrderID)
	case "blocked":
		_, err = tx.ExecContext(ctx, `UPDATE work_orders SET status = 'blocked', blocked_reason = ? WHERE project = ? AND id = ?`, blockedReason, ev.Project, workOrderID)
	case "closed":
		_, err = tx.ExecContext(ctx, `UPDATE work_orders SET status = 'closed', completed_at_ms = ?, progress_percent = 100 WHERE project = ? AND id = ?`, ts, ev.Project, workOrderID)
	default:
		_, err = tx.ExecContext(ctx, `UPDATE work_orders SET status = ? WHERE project = ? AND id = ?`, to, ev.Project, workOrderID)
	}
	return err
}

func (d *Dispatcher) handleWorkOrderProgress(ctx context.Context, tx *sql.Tx, ev event.Event) error {
	b, ok := event.IsEventType[event.WorkOrderProgressBody](ev)
	if !ok {
		return nil
	}
	_, err := tx.ExecContext(ctx, `
		UPDATE work_orders SET progress_percent = ? WHERE project = ? AND id = ?
	`, b.ProgressPercent, ev.Project, b.WorkOrderID)
	return err
}

func (d *Dispatcher) handleWorkOrderStatusChanged(ctx context.Context, tx *sql.Tx, ev event.Event) error {
	b, ok := event.IsEventType[event.WorkOrderStatusChangedBody](ev)
	if !ok {
		return nil
	}
	current, err := currentStatus(ctx, tx, "work_orders", ev.Project, b.WorkOrderID)
	if err != nil {
		return err
	}
	if current != b.From || !statusmachine.Sortie.Allowed(b.From, b.To) {
		return d.recordTransitionViolation(ctx, tx, ev, "work_order", b.WorkOrderID, current, b.To)
	}
	_, err = tx.ExecContext(ctx, `UPDATE work_orders SET status = ? WHERE project = ? AND id = ?`, b.To, ev.Project, b.WorkOrderID)
	return err
}
