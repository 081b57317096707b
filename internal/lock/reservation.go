package lock

import (
	"context"
	"errors"
	"time"

	"github.com/fleettools/fleetcore/internal/event"
	"github.com/fleettools/fleetcore/internal/id"
	"github.com/fleettools/fleetcore/internal/projection"
)

// AcquiredReservation is the handle returned by a successful reserve.
type AcquiredReservation struct {
	ReservationIDs []string
	Paths          []string
	Callsign       string
	Exclusive      bool
	ExpiresAt      time.Time
}

// ReserveResult carries exactly one of Reservation or Conflict.
type ReserveResult struct {
	Reservation *AcquiredReservation
	Conflict    *ConflictError
}

// Reserve announces intent to work on paths (spec §4.6 "coarse,
// declarative, visible"). On conflict it records a diagnostic
// file_conflict event in place of file_reserved and returns the
// holder's identity rather than an error.
func (m *Manager) Reserve(ctx context.Context, project string, paths []string, callsign string, ttl time.Duration, exclusive bool, reason, sortieID, missionID string) (ReserveResult, error) {
	ids := make([]string, len(paths))
	for i := range paths {
		ids[i] = id.New(id.Reservation)
	}

	_, err := m.store.Append(ctx, project, event.FileReservedBody{
		ReservationIDs: ids,
		Callsign:       callsign,
		Paths:          paths,
		Exclusive:      exclusive,
		Reason:         reason,
		TTLMillis:      ttl.Milliseconds(),
		SortieID:       sortieID,
		MissionID:      missionID,
	})
	if err != nil {
		var conflict *projection.ReservationConflictError
		if errors.As(err, &conflict) {
			expiresAt := time.UnixMilli(conflict.ExpiresAt).UTC()
			if _, appendErr := m.store.Append(ctx, project, event.FileConflictBody{
				Callsign:        callsign,
				Paths:           conflict.Paths,
				HolderCallsign:  conflict.Holder,
				ExpiresAtMillis: conflict.ExpiresAt,
			}); appendErr != nil {
				return ReserveResult{}, appendErr
			}
			return ReserveResult{Conflict: &ConflictError{
				Kind: "reservation", Holder: conflict.Holder, Paths: conflict.Paths, ExpiresAt: expiresAt,
			}}, nil
		}
		return ReserveResult{}, err
	}

	return ReserveResult{Reservation: &AcquiredReservation{
		ReservationIDs: ids,
		Paths:          paths,
		Callsign:       callsign,
		Exclusive:      exclusive,
		ExpiresAt:      m.clock.Now().Add(ttl),
	}}, nil
}

// Release ends a reservation by id (preferred) or by (callsign, path) pairs.
func (m *Manager) Release(ctx context.Context, project, callsign string, paths, reservationIDs []string) error {
	_, err := m.store.Append(ctx, project, event.FileReleasedBody{
		Callsign:       callsign,
		Paths:          paths,
		ReservationIDs: reservationIDs,
	})
	return err
}
