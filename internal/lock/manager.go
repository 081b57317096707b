// Package lock implements the two levels of mutual exclusion spec §4.6
// describes: coarse, declarative reservations and fine, mandatory
// locks. Both are event-sourced: every state change is an append to
// the event log, and conflicts are detected inside the projection
// handler that would otherwise apply the append (internal/projection),
// so the manager never does a check-then-write across two
// transactions.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/fleettools/fleetcore/internal/clock"
	"github.com/fleettools/fleetcore/internal/event"
	"github.com/fleettools/fleetcore/internal/eventstore"
	"github.com/fleettools/fleetcore/internal/id"
	"github.com/fleettools/fleetcore/internal/projection"
)

// Manager is the façade C6 exposes over the event store: acquire,
// release, forceRelease, re-acquire for locks, and acquire/release for
// reservations.
type Manager struct {
	store *eventstore.Store
	clock clock.Clock
}

// New builds a Manager over store.
func New(store *eventstore.Store, c clock.Clock) *Manager {
	if c == nil {
		c = clock.System{}
	}
	return &Manager{store: store, clock: c}
}

// AcquiredLock is the handle returned by a successful acquire.
type AcquiredLock struct {
	LockID         string
	Path           string
	NormalizedPath string
	Callsign       string
	Purpose        event.LockPurpose
	AcquiredAt     time.Time
	ExpiresAt      time.Time
}

// AcquireLockResult carries exactly one of Lock or Conflict, matching
// the façade's "structured result, not an exception" contract (spec §7).
type AcquireLockResult struct {
	Lock     *AcquiredLock
	Conflict *ConflictError
}

// AcquireLock normalizes path and attempts to take an exclusive hold
// on it. On conflict it records a diagnostic lock_conflict event
// alongside the rejected attempt and returns the holder's identity
// instead of an error (spec §4.6, §7).
func (m *Manager) AcquireLock(ctx context.Context, project, path, callsign string, purpose event.LockPurpose, ttl time.Duration, checksum string) (AcquireLockResult, error) {
	normalized := NormalizePath(path)
	lockID := id.New(id.Lock)
	now := m.clock.Now()

	ev, err := m.store.Append(ctx, project, event.LockAcquiredBody{
		LockID:         lockID,
		Path:           path,
		NormalizedPath: normalized,
		Callsign:       callsign,
		Purpose:        purpose,
		Checksum:       checksum,
		TTLMillis:      ttl.Milliseconds(),
	})
	if err != nil {
		var conflict *projection.LockConflictError
		if errors.As(err, &conflict) {
			expiresAt := time.UnixMilli(conflict.ExpiresAt).UTC()
			if _, appendErr := m.store.Append(ctx, project, event.LockConflictBody{
				Path:            normalized,
				Callsign:        callsign,
				HolderCallsign:  conflict.Holder,
				ExpiresAtMillis: conflict.ExpiresAt,
			}); appendErr != nil {
				return AcquireLockResult{}, appendErr
			}
			return AcquireLockResult{Conflict: &ConflictError{
				Kind: "lock", Holder: conflict.Holder, Paths: []string{normalized}, ExpiresAt: expiresAt,
			}}, nil
		}
		return AcquireLockResult{}, err
	}

	return AcquireLockResult{Lock: &AcquiredLock{
		LockID:         lockID,
		Path:           path,
		NormalizedPath: normalized,
		Callsign:       callsign,
		Purpose:        purpose,
		AcquiredAt:     ev.Timestamp,
		ExpiresAt:      now.Add(ttl),
	}}, nil
}

// ReleaseLock voluntarily releases a held lock.
func (m *Manager) ReleaseLock(ctx context.Context, project, lockID, callsign string) error {
	_, err := m.store.Append(ctx, project, event.LockReleasedBody{LockID: lockID, Callsign: callsign})
	return err
}

// ForceReleaseLock releases a lock on another pilot's behalf (e.g. a
// human operator breaking a stuck hold). It emits both the release and
// an administrative coordinator_decision event recording why (spec
// §4.6 "emits an administrative event").
func (m *Manager) ForceReleaseLock(ctx context.Context, project, lockID, actingCallsign, reason string) error {
	if _, err := m.store.Append(ctx, project, event.LockReleasedBody{LockID: lockID, Callsign: actingCallsign, Forced: true}); err != nil {
		return err
	}
	_, err := m.store.Append(ctx, project, event.CoordinatorDecisionBody{
		Callsign: actingCallsign, Decision: "force_release_lock", Rationale: reason,
	})
	return err
}

// ReacquireLock is used during recovery (spec §4.8): it attempts to
// take the same normalized path under a possibly new callsign and
// records the outcome as a lock_reacquired diagnostic event regardless
// of success, so a restore report can be built purely from the event
// log.
func (m *Manager) ReacquireLock(ctx context.Context, project, oldLockID, path, newCallsign string, purpose event.LockPurpose, ttl time.Duration) (AcquireLockResult, error) {
	result, err := m.AcquireLock(ctx, project, path, newCallsign, purpose, ttl, "")
	if err != nil {
		return result, err
	}

	outcome := event.LockReacquiredBody{
		OldLockID: oldLockID,
		Callsign:  newCallsign,
		Path:      NormalizePath(path),
		Succeeded: result.Conflict == nil,
	}
	if result.Lock != nil {
		outcome.NewLockID = result.Lock.LockID
	}
	if _, err := m.store.Append(ctx, project, outcome); err != nil {
		return result, err
	}
	return result, nil
}
