package fleet

import (
	"context"
	"database/sql"

	"github.com/fleettools/fleetcore/internal/event"
)

// Pilot is the projected view of a registered pilot.
type Pilot struct {
	Callsign         string
	Program          string
	Model            string
	TaskDescription  string
	RegisteredAt     int64
	LastActiveAt     int64
	Deregistered     bool
	DeregisterAt     int64
	DeregisterReason string
}

// RegisterPilot appends pilot_registered.
func (f *Fleet) RegisterPilot(ctx context.Context, callsign, program, model, taskDescription string) (Pilot, error) {
	start := f.clock.Now()
	_, err := f.store.Append(ctx, f.project, event.PilotRegisteredBody{
		Callsign: callsign, Program: program, Model: model, TaskDescription: taskDescription,
	})
	if err != nil {
		err = translateContextErr(ctx, err)
		f.logOp(ctx, "RegisterPilot", callsign, start, err, false)
		return Pilot{}, err
	}
	p, err := f.GetPilot(ctx, callsign)
	f.logOp(ctx, "RegisterPilot", callsign, start, err, false)
	return p, err
}

// PilotHeartbeat appends pilot_active, refreshing last_active_at.
func (f *Fleet) PilotHeartbeat(ctx context.Context, callsign string) error {
	start := f.clock.Now()
	_, err := f.store.Append(ctx, f.project, event.PilotActiveBody{Callsign: callsign})
	err = translateContextErr(ctx, err)
	f.logOp(ctx, "PilotHeartbeat", callsign, start, err, false)
	return err
}

// DeregisterPilot appends pilot_deregistered.
func (f *Fleet) DeregisterPilot(ctx context.Context, callsign, reason string) error {
	start := f.clock.Now()
	_, err := f.store.Append(ctx, f.project, event.PilotDeregisteredBody{Callsign: callsign, Reason: reason})
	err = translateContextErr(ctx, err)
	f.logOp(ctx, "DeregisterPilot", callsign, start, err, false)
	return err
}

// GetPilot returns the projected row for callsign.
func (f *Fleet) GetPilot(ctx context.Context, callsign string) (Pilot, error) {
	row := f.db.QueryRowContext(ctx, `
		SELECT callsign, program, model, task_description, registered_at_ms, last_active_at_ms, deregistered_at_ms, deregister_reason
		FROM pilots WHERE project = ? AND callsign = ?
	`, f.project, callsign)
	var p Pilot
	var deregAt sql.NullInt64
	switch err := row.Scan(&p.Callsign, &p.Program, &p.Model, &p.TaskDescription, &p.RegisteredAt, &p.LastActiveAt, &deregAt, &p.DeregisterReason); err {
	case nil:
		if deregAt.Valid {
			p.Deregistered = true
			p.DeregisterAt = deregAt.Int64
		}
		return p, nil
	case sql.ErrNoRows:
		return Pilot{}, &NotFoundError{Entity: "pilot", ID: callsign}
	default:
		return Pilot{}, err
	}
}
