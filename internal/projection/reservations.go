package projection

import (
	"context"
	"database/sql"

	"github.com/fleettools/fleetcore/internal/event"
)

// sweepExpiredReservations marks reservations whose TTL has passed as
// released, opportunistically, on every acquisition attempt (spec §5,
// §4.6 "TTL sweep").
func sweepExpiredReservations(ctx context.Context, tx *sql.Tx, project string, nowMillis int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE reservations SET released_at_ms = ?
		WHERE project = ? AND released_at_ms IS NULL AND expires_at_ms <= ?
	`, nowMillis, project, nowMillis)
	return err
}

func (d *Dispatcher) handleFileReserved(ctx context.Context, tx *sql.Tx, ev event.Event) error {
	b, ok := event.IsEventType[event.FileReservedBody](ev)
	if !ok {
		return nil
	}
	now := ev.Timestamp.UnixMilli()
	if err := sweepExpiredReservations(ctx, tx, ev.Project, now); err != nil {
		return err
	}

	for _, path := range b.Paths {
		row := tx.QueryRowContext(ctx, `
			SELECT callsign, expires_at_ms FROM reservations
			WHERE project = ? AND path = ? AND exclusive = 1 AND released_at_ms IS NULL AND expires_at_ms > ?
			LIMIT 1
		`, ev.Project, path, now)
		var holder string
		var expiresAt int64
		switch err := row.Scan(&holder, &expiresAt); err {
		case nil:
			return &ReservationConflictError{Holder: holder, Paths: b.Paths, ExpiresAt: expiresAt}
		case sql.ErrNoRows:
			// no conflict on this path
		default:
			return err
		}
	}

	expiresAt := now + b.TTLMillis
	exclusive := 1
	if !b.Exclusive {
		exclusive = 0
	}
	for i, path := range b.Paths {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO reservations (project, reservation_id, callsign, path, exclusive, reason, sortie_id, mission_id, reserved_at_ms, expires_at_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, ev.Project, b.ReservationIDs[i], b.Callsign, path, exclusive, b.Reason, b.SortieID, b.MissionID, now, expiresAt); err != nil {
			return err
		}
	}
	if !event.IsReplay(ctx) {
		d.telemetry.Gauges().ActiveReservations.Add(float64(len(b.Paths)))
	}
	return nil
}

func (d *Dispatcher) handleFileReleased(ctx context.Context, tx *sql.Tx, ev event.Event) error {
	b, ok := event.IsEventType[event.FileReleasedBody](ev)
	if !ok {
		return nil
	}
	now := ev.Timestamp.UnixMilli()
	var released int64
	if len(b.ReservationIDs) > 0 {
		for _, id := range b.ReservationIDs {
			res, err := tx.ExecContext(ctx, `
				UPDATE reservations SET released_at_ms = ? WHERE project = ? AND reservation_id = ? AND released_at_ms IS NULL
			`, now, ev.Project, id)
			if err != nil {
				return err
			}
			if affected, err := res.RowsAffected(); err == nil {
				released += affected
			}
		}
	} else {
		for _, path := range b.Paths {
			res, err := tx.ExecContext(ctx, `
				UPDATE reservations SET released_at_ms = ? WHERE project = ? AND callsign = ? AND path = ? AND released_at_ms IS NULL
			`, now, ev.Project, b.Callsign, path)
			if err != nil {
				return err
			}
			if affected, err := res.RowsAffected(); err == nil {
				released += affected
			}
		}
	}
	if released > 0 && !event.IsReplay(ctx) {
		d.telemetry.Gauges().ActiveReservations.Sub(float64(released))
	}
	return nil
}
