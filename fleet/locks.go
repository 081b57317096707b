package fleet

import (
	"context"
	"database/sql"
	"time"

	"github.com/fleettools/fleetcore/internal/event"
	"github.com/fleettools/fleetcore/internal/lock"
)

// Lock is the projected view of one active or past path lock.
type Lock struct {
	LockID         string
	NormalizedPath string
	Holder         string
	Purpose        string
	Status         string
	AcquiredAt     int64
	ExpiresAt      int64
	ReleasedAt     int64
	SupersededBy   string
}

// AcquireLockInput mirrors spec §6's acquireLock parameter object.
type AcquireLockInput struct {
	Path     string
	Callsign string
	Purpose  event.LockPurpose
	Checksum string
	TTL      time.Duration
}

// AcquireLock takes an exclusive, mandatory hold on a path, returning a
// structured conflict instead of an error when another pilot already
// holds it (spec §7).
func (f *Fleet) AcquireLock(ctx context.Context, in AcquireLockInput) (lock.AcquireLockResult, error) {
	start := f.clock.Now()
	ttl := in.TTL
	if ttl <= 0 {
		ttl = f.lockTTL
	}
	result, err := f.locks.AcquireLock(ctx, f.project, in.Path, in.Callsign, in.Purpose, ttl, in.Checksum)
	if err != nil {
		err = translateContextErr(ctx, err)
		f.logOp(ctx, "AcquireLock", in.Callsign, start, err, false)
		return lock.AcquireLockResult{}, err
	}
	f.logOp(ctx, "AcquireLock", in.Callsign, start, nil, result.Conflict != nil)
	return result, nil
}

// ReleaseLock voluntarily releases a held lock.
func (f *Fleet) ReleaseLock(ctx context.Context, lockID, callsign string) error {
	start := f.clock.Now()
	err := translateContextErr(ctx, f.locks.ReleaseLock(ctx, f.project, lockID, callsign))
	f.logOp(ctx, "ReleaseLock", callsign, start, err, false)
	return err
}

// ForceReleaseLock releases another pilot's lock on an operator's behalf.
func (f *Fleet) ForceReleaseLock(ctx context.Context, lockID, actingCallsign, reason string) error {
	start := f.clock.Now()
	err := translateContextErr(ctx, f.locks.ForceReleaseLock(ctx, f.project, lockID, actingCallsign, reason))
	f.logOp(ctx, "ForceReleaseLock", actingCallsign, start, err, false)
	return err
}

// ListActiveLocks returns locks not yet released or superseded.
func (f *Fleet) ListActiveLocks(ctx context.Context) ([]Lock, error) {
	rows, err := f.db.QueryContext(ctx, `
		SELECT lock_id, normalized_path, holder, purpose, status, acquired_at_ms, expires_at_ms, released_at_ms, superseded_by
		FROM locks WHERE project = ? AND status = 'active'
		ORDER BY acquired_at_ms ASC
	`, f.project)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Lock
	for rows.Next() {
		var l Lock
		var releasedAt sql.NullInt64
		if err := rows.Scan(&l.LockID, &l.NormalizedPath, &l.Holder, &l.Purpose, &l.Status, &l.AcquiredAt, &l.ExpiresAt, &releasedAt, &l.SupersededBy); err != nil {
			return nil, err
		}
		l.ReleasedAt = releasedAt.Int64
		out = append(out, l)
	}
	return out, rows.Err()
}
