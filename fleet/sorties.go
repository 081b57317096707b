package fleet

import (
	"context"
	"database/sql"

	"github.com/fleettools/fleetcore/internal/event"
	"github.com/fleettools/fleetcore/internal/id"
)

// Sortie is the projected view of one sortie.
type Sortie struct {
	SortieID        string
	MissionID       string
	Title           string
	Description     string
	Status          string
	Priority        int
	Assignee        string
	Files           []string
	ProgressPercent int
	BlockedReason   string
	CreatedAt       int64
	StartedAt       int64
	CompletedAt     int64
}

// CreateSortieInput mirrors spec §6's createSortie parameter object.
type CreateSortieInput struct {
	MissionID   string
	Title       string
	Description string
	Priority    int
	Assignee    string
	Files       []string
}

// CreateSortie appends sortie_created and returns the new sortie's id.
func (f *Fleet) CreateSortie(ctx context.Context, in CreateSortieInput) (string, error) {
	start := f.clock.Now()
	sortieID := id.New(id.Sortie)
	_, err := f.store.Append(ctx, f.project, event.SortieCreatedBody{
		SortieID: sortieID, MissionID: in.MissionID, Title: in.Title, Description: in.Description,
		Priority: in.Priority, Assignee: in.Assignee, Files: in.Files,
	})
	if err != nil {
		err = translateContextErr(ctx, err)
		f.logOp(ctx, "CreateSortie", in.Assignee, start, err, false)
		return "", err
	}
	f.logOp(ctx, "CreateSortie", in.Assignee, start, nil, false)
	return sortieID, nil
}

// StartSortie transitions a sortie from open to in_progress.
func (f *Fleet) StartSortie(ctx context.Context, sortieID string) error {
	return f.guardedTransition(ctx, "StartSortie", "sortie", sortieID, func() error {
		_, err := f.store.Append(ctx, f.project, event.SortieStartedBody{SortieID: sortieID})
		return err
	})
}

// CompleteSortie transitions a sortie from in_progress to closed.
func (f *Fleet) CompleteSortie(ctx context.Context, sortieID string) error {
	return f.guardedTransition(ctx, "CompleteSortie", "sortie", sortieID, func() error {
		_, err := f.store.Append(ctx, f.project, event.SortieCompletedBody{SortieID: sortieID})
		return err
	})
}

// BlockSortie marks a sortie blocked with a reason.
func (f *Fleet) BlockSortie(ctx context.Context, sortieID, reason string) error {
	return f.guardedTransition(ctx, "BlockSortie", "sortie", sortieID, func() error {
		_, err := f.store.Append(ctx, f.project, event.SortieBlockedBody{SortieID: sortieID, Reason: reason})
		return err
	})
}

// ChangeSortieStatus applies an explicit from->to transition.
func (f *Fleet) ChangeSortieStatus(ctx context.Context, sortieID, from, to string) error {
	return f.guardedTransition(ctx, "ChangeSortieStatus", "sortie", sortieID, func() error {
		_, err := f.store.Append(ctx, f.project, event.SortieStatusChangedBody{SortieID: sortieID, From: from, To: to})
		return err
	})
}

// ProgressSortie records a progress percentage update; it never
// participates in the status machine, so it cannot be rejected as an
// InvalidTransition.
func (f *Fleet) ProgressSortie(ctx context.Context, sortieID string, percent int) error {
	start := f.clock.Now()
	_, err := f.store.Append(ctx, f.project, event.SortieProgressBody{SortieID: sortieID, ProgressPercent: percent})
	err = translateContextErr(ctx, err)
	f.logOp(ctx, "ProgressSortie", "", start, err, false)
	return err
}

// GetSortie returns the projected row for sortieID.
func (f *Fleet) GetSortie(ctx context.Context, sortieID string) (Sortie, error) {
	row := f.db.QueryRowContext(ctx, `
		SELECT id, mission_id, title, description, status, priority, assignee, files, progress_percent, blocked_reason, created_at_ms, started_at_ms, completed_at_ms
		FROM sorties WHERE project = ? AND id = ?
	`, f.project, sortieID)
	s, err := scanSortie(row)
	if nf, ok := err.(*NotFoundError); ok {
		nf.ID = sortieID
	}
	return s, err
}

// ListSortiesByMission returns every sortie belonging to missionID.
func (f *Fleet) ListSortiesByMission(ctx context.Context, missionID string) ([]Sortie, error) {
	rows, err := f.db.QueryContext(ctx, `
		SELECT id, mission_id, title, description, status, priority, assignee, files, progress_percent, blocked_reason, created_at_ms, started_at_ms, completed_at_ms
		FROM sorties WHERE project = ? AND mission_id = ? ORDER BY created_at_ms ASC
	`, f.project, missionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSorties(rows)
}

// ListSortiesByAssignee returns every sortie currently assigned to callsign.
func (f *Fleet) ListSortiesByAssignee(ctx context.Context, callsign string) ([]Sortie, error) {
	rows, err := f.db.QueryContext(ctx, `
		SELECT id, mission_id, title, description, status, priority, assignee, files, progress_percent, blocked_reason, created_at_ms, started_at_ms, completed_at_ms
		FROM sorties WHERE project = ? AND assignee = ? ORDER BY created_at_ms ASC
	`, f.project, callsign)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSorties(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSortie(row rowScanner) (Sortie, error) {
	var s Sortie
	var filesJSON string
	var startedAt, completedAt sql.NullInt64
	switch err := row.Scan(&s.SortieID, &s.MissionID, &s.Title, &s.Description, &s.Status, &s.Priority, &s.Assignee, &filesJSON, &s.ProgressPercent, &s.BlockedReason, &s.CreatedAt, &startedAt, &completedAt); err {
	case nil:
		if err := unmarshalJSON(filesJSON, &s.Files); err != nil {
			return Sortie{}, err
		}
		s.StartedAt = startedAt.Int64
		s.CompletedAt = completedAt.Int64
		return s, nil
	case sql.ErrNoRows:
		return Sortie{}, &NotFoundError{Entity: "sortie", ID: ""}
	default:
		return Sortie{}, err
	}
}

func scanSorties(rows *sql.Rows) ([]Sortie, error) {
	var out []Sortie
	for rows.Next() {
		s, err := scanSortie(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
