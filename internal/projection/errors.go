package projection

import "fmt"

// ReservationConflictError is returned by the file_reserved handler
// when an overlapping exclusive reservation is already active (spec
// §4.6, §7 ReservationConflict). eventstore.Append surfaces it
// unchanged (it rolls back the attempted file_reserved append); the
// lock manager then records the rejection with a file_conflict event.
type ReservationConflictError struct {
	Holder    string
	Paths     []string
	ExpiresAt int64
}

func (e *ReservationConflictError) Error() string {
	return fmt.Sprintf("reservation conflict: %s holds an overlapping exclusive reservation until %d", e.Holder, e.ExpiresAt)
}

// LockConflictError is returned by the lock_acquired handler when an
// active lock already covers the normalized path (spec §4.6, §7
// LockConflict).
type LockConflictError struct {
	Holder    string
	Path      string
	ExpiresAt int64
}

func (e *LockConflictError) Error() string {
	return fmt.Sprintf("lock conflict: %s holds %s until %d", e.Holder, e.Path, e.ExpiresAt)
}
