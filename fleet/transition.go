package fleet

import (
	"context"
	"database/sql"
)

// violationWatermark returns the current max rowid in
// coordinator_violations for (entity, entityID), to be compared after
// an append via violatedSince.
func (f *Fleet) violationWatermark(ctx context.Context, entity, entityID string) (int64, error) {
	var mark int64
	row := f.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(id), 0) FROM coordinator_violations WHERE project = ? AND entity = ? AND entity_id = ?
	`, f.project, entity, entityID)
	if err := row.Scan(&mark); err != nil {
		return 0, err
	}
	return mark, nil
}

// violatedSince reports whether a coordinator_violation row for
// (entity, entityID) was recorded after mark, returning its from/to
// statuses if so.
func (f *Fleet) violatedSince(ctx context.Context, entity, entityID string, mark int64) (from, to string, violated bool, err error) {
	row := f.db.QueryRowContext(ctx, `
		SELECT from_status, to_status FROM coordinator_violations
		WHERE project = ? AND entity = ? AND entity_id = ? AND id > ?
		ORDER BY id DESC LIMIT 1
	`, f.project, entity, entityID, mark)
	switch err := row.Scan(&from, &to); err {
	case nil:
		return from, to, true, nil
	case sql.ErrNoRows:
		return "", "", false, nil
	default:
		return "", "", false, err
	}
}

// guardedTransition appends body via appendFn, then checks whether it
// landed as a coordinator_violation instead of the intended status
// change, translating that case into an InvalidTransitionError (spec
// §7 "the façade operation returns InvalidTransition"). op names the
// calling façade method for the per-call log entry.
func (f *Fleet) guardedTransition(ctx context.Context, op, entity, entityID string, appendFn func() error) error {
	start := f.clock.Now()
	mark, err := f.violationWatermark(ctx, entity, entityID)
	if err != nil {
		f.logOp(ctx, op, "", start, err, false)
		return err
	}
	if err := appendFn(); err != nil {
		err = translateContextErr(ctx, err)
		f.logOp(ctx, op, "", start, err, false)
		return err
	}
	from, to, violated, err := f.violatedSince(ctx, entity, entityID, mark)
	if err != nil {
		f.logOp(ctx, op, "", start, err, false)
		return err
	}
	if violated {
		err := &InvalidTransitionError{Entity: entity, From: from, To: to}
		f.logOp(ctx, op, "", start, nil, true)
		return err
	}
	f.logOp(ctx, op, "", start, nil, false)
	return nil
}
