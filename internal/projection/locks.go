package projection

import (
	"context"
	"database/sql"

	"github.com/fleettools/fleetcore/internal/event"
)

// sweepExpiredLocks marks locks whose TTL has passed as released,
// opportunistically, on every acquisition attempt (spec §5, §4.6).
func sweepExpiredLocks(ctx context.Context, tx *sql.Tx, project string, nowMillis int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE locks SET status = 'released', released_at_ms = ?
		WHERE project = ? AND status = 'active' AND expires_at_ms <= ?
	`, nowMillis, project, nowMillis)
	return err
}

func (d *Dispatcher) handleLockAcquired(ctx context.Context, tx *sql.Tx, ev event.Event) error {
	b, ok := event.IsEventType[event.LockAcquiredBody](ev)
	if !ok {
		return nil
	}
	now := ev.Timestamp.UnixMilli()
	if err := sweepExpiredLocks(ctx, tx, ev.Project, now); err != nil {
		return err
	}

	row := tx.QueryRowContext(ctx, `
		SELECT holder, expires_at_ms FROM locks
		WHERE project = ? AND normalized_path = ? AND status = 'active' AND expires_at_ms > ?
		LIMIT 1
	`, ev.Project, b.NormalizedPath, now)
	var holder string
	var expiresAt int64
	switch err := row.Scan(&holder, &expiresAt); err {
	case nil:
		return &LockConflictError{Holder: holder, Path: b.NormalizedPath, ExpiresAt: expiresAt}
	case sql.ErrNoRows:
		// no conflict
	default:
		return err
	}

	expiresAt = now + b.TTLMillis
	_, err := tx.ExecContext(ctx, `
		INSERT INTO locks (project, lock_id, normalized_path, holder, purpose, checksum, status, acquired_at_ms, expires_at_ms)
		VALUES (?, ?, ?, ?, ?, ?, 'active', ?, ?)
	`, ev.Project, b.LockID, b.NormalizedPath, b.Callsign, string(b.Purpose), b.Checksum, now, expiresAt)
	if err != nil {
		return err
	}
	// Gauges track live operator-visible state, not log history: a
	// replay already happened once live, so counting it again here
	// would double the gauge every time the project is rebuilt.
	if !event.IsReplay(ctx) {
		d.telemetry.Gauges().ActiveLocks.Inc()
	}
	return nil
}

func (d *Dispatcher) handleLockReleased(ctx context.Context, tx *sql.Tx, ev event.Event) error {
	b, ok := event.IsEventType[event.LockReleasedBody](ev)
	if !ok {
		return nil
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE locks SET status = 'released', released_at_ms = ?
		WHERE project = ? AND lock_id = ? AND status = 'active'
	`, ev.Timestamp.UnixMilli(), ev.Project, b.LockID)
	if err != nil {
		return err
	}
	if affected, err := res.RowsAffected(); err == nil && affected > 0 && !event.IsReplay(ctx) {
		d.telemetry.Gauges().ActiveLocks.Dec()
	}
	return nil
}
