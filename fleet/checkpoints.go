package fleet

import (
	"context"
	"database/sql"
	"time"

	"github.com/fleettools/fleetcore/internal/checkpoint"
	"github.com/fleettools/fleetcore/internal/event"
)

// CreateCheckpointInput mirrors spec §6's createCheckpoint parameter object.
type CreateCheckpointInput struct {
	MissionID       string
	Callsign        string
	Trigger         event.CheckpointTrigger
	ProgressPercent int
	Summary         string
	LastAction      string
}

// CreateCheckpoint snapshots the mission's sorties, locks, and pending
// messages into a checkpoint_created event (spec §4.8).
func (f *Fleet) CreateCheckpoint(ctx context.Context, in CreateCheckpointInput) (string, error) {
	start := f.clock.Now()
	ev, err := f.checkpoint.Create(ctx, f.project, in.MissionID, in.Callsign, in.Trigger, in.ProgressPercent, in.Summary, in.LastAction)
	if err != nil {
		err = translateContextErr(ctx, err)
		f.logOp(ctx, "CreateCheckpoint", in.Callsign, start, err, false)
		return "", err
	}
	body, ok := event.IsEventType[event.CheckpointCreatedBody](ev)
	f.logOp(ctx, "CreateCheckpoint", in.Callsign, start, nil, false)
	if !ok {
		return "", nil
	}
	return body.CheckpointID, nil
}

// GetLatestCheckpoint returns the most recently created checkpoint for
// missionID, or a NotFoundError if none exists.
func (f *Fleet) GetLatestCheckpoint(ctx context.Context, missionID string) (string, error) {
	var checkpointID string
	row := f.db.QueryRowContext(ctx, `
		SELECT id FROM checkpoints WHERE project = ? AND mission_id = ? ORDER BY created_at_ms DESC LIMIT 1
	`, f.project, missionID)
	switch err := row.Scan(&checkpointID); err {
	case nil:
		return checkpointID, nil
	case sql.ErrNoRows:
		return "", &NotFoundError{Entity: "checkpoint", ID: missionID}
	default:
		return "", err
	}
}

// ListCheckpoints returns every checkpoint id recorded for missionID,
// newest first.
func (f *Fleet) ListCheckpoints(ctx context.Context, missionID string) ([]string, error) {
	rows, err := f.db.QueryContext(ctx, `
		SELECT id FROM checkpoints WHERE project = ? AND mission_id = ? ORDER BY created_at_ms DESC
	`, f.project, missionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Restore re-acquires every lock captured by checkpointID and emits a
// fleet_recovered event regardless of how many locks conflicted (spec §4.8).
func (f *Fleet) Restore(ctx context.Context, checkpointID string) error {
	start := f.clock.Now()
	_, err := f.checkpoint.Restore(ctx, f.project, checkpointID)
	err = translateContextErr(ctx, err)
	f.logOp(ctx, "Restore", "", start, err, false)
	return err
}

// DetectRecoveryCandidates returns missions that look stalled: no event
// activity within threshold of now, alongside their latest checkpoint.
// A zero threshold falls back to the Fleet's configured stall window.
func (f *Fleet) DetectRecoveryCandidates(ctx context.Context, threshold time.Duration) ([]checkpoint.RecoveryCandidate, error) {
	if threshold <= 0 {
		threshold = f.stallThreshold
	}
	return f.checkpoint.DetectRecoveryCandidates(ctx, f.project, threshold)
}
