package fleet

import (
	"context"
	"database/sql"

	"github.com/fleettools/fleetcore/internal/event"
	"github.com/fleettools/fleetcore/internal/id"
)

// Mission is the projected view of one mission.
type Mission struct {
	MissionID        string
	Title            string
	Description      string
	Status           string
	Priority         int
	Creator          string
	TotalSorties     int
	CompletedSorties int
	CreatedAt        int64
	StartedAt        int64
	CompletedAt      int64
}

// CreateMissionInput mirrors spec §6's createMission parameter object.
type CreateMissionInput struct {
	Title       string
	Description string
	Priority    int
	Creator     string
}

// CreateMission appends mission_created and returns the new mission's id.
func (f *Fleet) CreateMission(ctx context.Context, in CreateMissionInput) (string, error) {
	start := f.clock.Now()
	missionID := id.New(id.Mission)
	_, err := f.store.Append(ctx, f.project, event.MissionCreatedBody{
		MissionID: missionID, Title: in.Title, Description: in.Description, Priority: in.Priority, Creator: in.Creator,
	})
	if err != nil {
		err = translateContextErr(ctx, err)
		f.logOp(ctx, "CreateMission", in.Creator, start, err, false)
		return "", err
	}
	f.logOp(ctx, "CreateMission", in.Creator, start, nil, false)
	return missionID, nil
}

// StartMission transitions a mission from pending to in_progress.
func (f *Fleet) StartMission(ctx context.Context, missionID string) error {
	return f.guardedTransition(ctx, "StartMission", "mission", missionID, func() error {
		_, err := f.store.Append(ctx, f.project, event.MissionStartedBody{MissionID: missionID})
		return err
	})
}

// CompleteMission transitions a mission from in_progress to completed.
func (f *Fleet) CompleteMission(ctx context.Context, missionID string) error {
	return f.guardedTransition(ctx, "CompleteMission", "mission", missionID, func() error {
		_, err := f.store.Append(ctx, f.project, event.MissionCompletedBody{MissionID: missionID})
		return err
	})
}

// SyncMission records a caller-computed sortie tally (spec §4.2
// mission_synced: the caller, not the projection, counts sorties).
func (f *Fleet) SyncMission(ctx context.Context, missionID string, total, completed int) error {
	start := f.clock.Now()
	_, err := f.store.Append(ctx, f.project, event.MissionSyncedBody{
		MissionID: missionID, TotalSorties: total, CompletedSorties: completed,
	})
	err = translateContextErr(ctx, err)
	f.logOp(ctx, "SyncMission", "", start, err, false)
	return err
}

// GetMission returns the projected row for missionID.
func (f *Fleet) GetMission(ctx context.Context, missionID string) (Mission, error) {
	row := f.db.QueryRowContext(ctx, `
		SELECT id, title, description, status, priority, creator, total_sorties, completed_sorties, created_at_ms, started_at_ms, completed_at_ms
		FROM missions WHERE project = ? AND id = ?
	`, f.project, missionID)
	m, err := scanMission(row)
	if nf, ok := err.(*NotFoundError); ok {
		nf.ID = missionID
	}
	return m, err
}

// ListMissionsByStatus returns every mission in the given status.
func (f *Fleet) ListMissionsByStatus(ctx context.Context, status string) ([]Mission, error) {
	rows, err := f.db.QueryContext(ctx, `
		SELECT id, title, description, status, priority, creator, total_sorties, completed_sorties, created_at_ms, started_at_ms, completed_at_ms
		FROM missions WHERE project = ? AND status = ? ORDER BY created_at_ms ASC
	`, f.project, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Mission
	for rows.Next() {
		m, err := scanMission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanMission(row rowScanner) (Mission, error) {
	var m Mission
	var startedAt, completedAt sql.NullInt64
	switch err := row.Scan(&m.MissionID, &m.Title, &m.Description, &m.Status, &m.Priority, &m.Creator, &m.TotalSorties, &m.CompletedSorties, &m.CreatedAt, &startedAt, &completedAt); err {
	case nil:
		m.StartedAt = startedAt.Int64
		m.CompletedAt = completedAt.Int64
		return m, nil
	case sql.ErrNoRows:
		return Mission{}, &NotFoundError{Entity: "mission", ID: ""}
	default:
		return Mission{}, err
	}
}
