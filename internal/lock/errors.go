package lock

import (
	"fmt"
	"time"
)

// ConflictError is returned by Manager's acquire operations when the
// race was lost. Callers may wait and retry; the manager never retries
// on their behalf (spec §7 LockConflict/ReservationConflict).
type ConflictError struct {
	Kind      string // "lock" or "reservation"
	Holder    string
	Paths     []string
	ExpiresAt time.Time
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s conflict: %s holds %v until %s", e.Kind, e.Holder, e.Paths, e.ExpiresAt)
}
