package fleet

import (
	"context"
	"database/sql"

	"github.com/fleettools/fleetcore/internal/event"
	"github.com/fleettools/fleetcore/internal/id"
)

// WorkOrder is the projected view of one work order (spec §4.2: a
// sortie-shaped unit one level down, scoped to a single sortie).
type WorkOrder struct {
	WorkOrderID     string
	SortieID        string
	Title           string
	Description     string
	Status          string
	Priority        int
	Assignee        string
	ProgressPercent int
	BlockedReason   string
	CreatedAt       int64
	StartedAt       int64
	CompletedAt     int64
}

// CreateWorkOrderInput mirrors spec §6's createWorkOrder parameter object.
type CreateWorkOrderInput struct {
	SortieID    string
	Title       string
	Description string
	Priority    int
	Assignee    string
}

// CreateWorkOrder appends work_order_created and returns the new id.
func (f *Fleet) CreateWorkOrder(ctx context.Context, in CreateWorkOrderInput) (string, error) {
	start := f.clock.Now()
	workOrderID := id.New(id.WorkOrder)
	_, err := f.store.Append(ctx, f.project, event.WorkOrderCreatedBody{
		WorkOrderID: workOrderID, SortieID: in.SortieID, Title: in.Title, Description: in.Description,
		Priority: in.Priority, Assignee: in.Assignee,
	})
	if err != nil {
		err = translateContextErr(ctx, err)
		f.logOp(ctx, "CreateWorkOrder", in.Assignee, start, err, false)
		return "", err
	}
	f.logOp(ctx, "CreateWorkOrder", in.Assignee, start, nil, false)
	return workOrderID, nil
}

// StartWorkOrder transitions a work order from open to in_progress.
func (f *Fleet) StartWorkOrder(ctx context.Context, workOrderID string) error {
	return f.guardedTransition(ctx, "StartWorkOrder", "work_order", workOrderID, func() error {
		_, err := f.store.Append(ctx, f.project, event.WorkOrderStartedBody{WorkOrderID: workOrderID})
		return err
	})
}

// CompleteWorkOrder transitions a work order from in_progress to closed.
func (f *Fleet) CompleteWorkOrder(ctx context.Context, workOrderID string) error {
	return f.guardedTransition(ctx, "CompleteWorkOrder", "work_order", workOrderID, func() error {
		_, err := f.store.Append(ctx, f.project, event.WorkOrderCompletedBody{WorkOrderID: workOrderID})
		return err
	})
}

// BlockWorkOrder marks a work order blocked with a reason.
func (f *Fleet) BlockWorkOrder(ctx context.Context, workOrderID, reason string) error {
	return f.guardedTransition(ctx, "BlockWorkOrder", "work_order", workOrderID, func() error {
		_, err := f.store.Append(ctx, f.project, event.WorkOrderBlockedBody{WorkOrderID: workOrderID, Reason: reason})
		return err
	})
}

// ChangeWorkOrderStatus applies an explicit from->to transition.
func (f *Fleet) ChangeWorkOrderStatus(ctx context.Context, workOrderID, from, to string) error {
	return f.guardedTransition(ctx, "ChangeWorkOrderStatus", "work_order", workOrderID, func() error {
		_, err := f.store.Append(ctx, f.project, event.WorkOrderStatusChangedBody{WorkOrderID: workOrderID, From: from, To: to})
		return err
	})
}

// ProgressWorkOrder records a progress percentage update.
func (f *Fleet) ProgressWorkOrder(ctx context.Context, workOrderID string, percent int) error {
	start := f.clock.Now()
	_, err := f.store.Append(ctx, f.project, event.WorkOrderProgressBody{WorkOrderID: workOrderID, ProgressPercent: percent})
	err = translateContextErr(ctx, err)
	f.logOp(ctx, "ProgressWorkOrder", "", start, err, false)
	return err
}

// GetWorkOrder returns the projected row for workOrderID.
func (f *Fleet) GetWorkOrder(ctx context.Context, workOrderID string) (WorkOrder, error) {
	row := f.db.QueryRowContext(ctx, `
		SELECT id, sortie_id, title, description, status, priority, assignee, progress_percent, blocked_reason, created_at_ms, started_at_ms, completed_at_ms
		FROM work_orders WHERE project = ? AND id = ?
	`, f.project, workOrderID)
	w, err := scanWorkOrder(row)
	if nf, ok := err.(*NotFoundError); ok {
		nf.ID = workOrderID
	}
	return w, err
}

// ListWorkOrdersBySortie returns every work order belonging to sortieID.
func (f *Fleet) ListWorkOrdersBySortie(ctx context.Context, sortieID string) ([]WorkOrder, error) {
	rows, err := f.db.QueryContext(ctx, `
		SELECT id, sortie_id, title, description, status, priority, assignee, progress_percent, blocked_reason, created_at_ms, started_at_ms, completed_at_ms
		FROM work_orders WHERE project = ? AND sortie_id = ? ORDER BY created_at_ms ASC
	`, f.project, sortieID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []WorkOrder
	for rows.Next() {
		w, err := scanWorkOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func scanWorkOrder(row rowScanner) (WorkOrder, error) {
	var w WorkOrder
	var startedAt, completedAt sql.NullInt64
	switch err := row.Scan(&w.WorkOrderID, &w.SortieID, &w.Title, &w.Description, &w.Status, &w.Priority, &w.Assignee, &w.ProgressPercent, &w.BlockedReason, &w.CreatedAt, &startedAt, &completedAt); err {
	case nil:
		w.StartedAt = startedAt.Int64
		w.CompletedAt = completedAt.Int64
		return w, nil
	case sql.ErrNoRows:
		return WorkOrder{}, &NotFoundError{Entity: "work_order", ID: ""}
	default:
		return WorkOrder{}, err
	}
}
