package fleet

import (
	"context"
	"database/sql"
	"time"

	"github.com/fleettools/fleetcore/internal/lock"
)

// Reservation is the projected view of one active or past file reservation.
type Reservation struct {
	ReservationID string
	Callsign      string
	Path          string
	Exclusive     bool
	Reason        string
	SortieID      string
	MissionID     string
	ReservedAt    int64
	ExpiresAt     int64
	ReleasedAt    int64
}

// ReserveFilesInput mirrors spec §6's reserveFiles parameter object.
type ReserveFilesInput struct {
	Paths     []string
	Callsign  string
	Exclusive bool
	Reason    string
	SortieID  string
	MissionID string
	TTL       time.Duration
}

// ReserveFiles announces intent to work on paths, returning a
// structured conflict instead of an error when another pilot already
// holds an overlapping exclusive reservation (spec §7).
func (f *Fleet) ReserveFiles(ctx context.Context, in ReserveFilesInput) (lock.ReserveResult, error) {
	start := f.clock.Now()
	ttl := in.TTL
	if ttl <= 0 {
		ttl = f.reservationTTL
	}
	result, err := f.locks.Reserve(ctx, f.project, in.Paths, in.Callsign, ttl, in.Exclusive, in.Reason, in.SortieID, in.MissionID)
	if err != nil {
		err = translateContextErr(ctx, err)
		f.logOp(ctx, "ReserveFiles", in.Callsign, start, err, false)
		return lock.ReserveResult{}, err
	}
	f.logOp(ctx, "ReserveFiles", in.Callsign, start, nil, result.Conflict != nil)
	return result, nil
}

// ReleaseFiles ends a reservation by id or by (callsign, path) pairs.
func (f *Fleet) ReleaseFiles(ctx context.Context, callsign string, paths, reservationIDs []string) error {
	start := f.clock.Now()
	err := translateContextErr(ctx, f.locks.Release(ctx, f.project, callsign, paths, reservationIDs))
	f.logOp(ctx, "ReleaseFiles", callsign, start, err, false)
	return err
}

// ListActiveReservations returns reservations not yet released.
func (f *Fleet) ListActiveReservations(ctx context.Context) ([]Reservation, error) {
	rows, err := f.db.QueryContext(ctx, `
		SELECT reservation_id, callsign, path, exclusive, reason, sortie_id, mission_id, reserved_at_ms, expires_at_ms, released_at_ms
		FROM reservations WHERE project = ? AND released_at_ms IS NULL
		ORDER BY reserved_at_ms ASC
	`, f.project)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Reservation
	for rows.Next() {
		var r Reservation
		var exclusive int
		var releasedAt sql.NullInt64
		if err := rows.Scan(&r.ReservationID, &r.Callsign, &r.Path, &exclusive, &r.Reason, &r.SortieID, &r.MissionID, &r.ReservedAt, &r.ExpiresAt, &releasedAt); err != nil {
			return nil, err
		}
		r.Exclusive = exclusive != 0
		r.ReleasedAt = releasedAt.Int64
		out = append(out, r)
	}
	return out, rows.Err()
}
