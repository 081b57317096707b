// Package checkpoint implements C8: mission-state snapshots written
// both to the database and to disk, stall detection, and event-sourced
// restoration (spec §4.8).
package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/fleettools/fleetcore/internal/clock"
	"github.com/fleettools/fleetcore/internal/event"
	"github.com/fleettools/fleetcore/internal/eventstore"
	"github.com/fleettools/fleetcore/internal/id"
	"github.com/fleettools/fleetcore/internal/lock"
	"github.com/fleettools/fleetcore/internal/storage"
	"github.com/fleettools/fleetcore/internal/telemetry"
)

// Service is the checkpoint & recovery façade over one project's store.
type Service struct {
	store     *eventstore.Store
	db        *storage.DB
	locks     *lock.Manager
	clock     clock.Clock
	telemetry telemetry.Telemetry
	fleetDir  string // checkpoints directory, holding <id>.json and latest.json
}

// New builds a Service. fleetDir is the checkpoints directory itself
// (by default <project>/.fleet/checkpoints); each checkpoint is written
// to <fleetDir>/<id>.json.
func New(store *eventstore.Store, db *storage.DB, locks *lock.Manager, c clock.Clock, t telemetry.Telemetry, fleetDir string) *Service {
	if c == nil {
		c = clock.System{}
	}
	if t == nil {
		t = telemetry.NoOp()
	}
	return &Service{store: store, db: db, locks: locks, clock: c, telemetry: t, fleetDir: fleetDir}
}

// Create captures mission missionID's current state, appends
// checkpoint_created, and dual-writes the snapshot to disk (spec §4.8
// "Checkpoint creation", "dual write is redundant by design").
func (s *Service) Create(ctx context.Context, project, missionID, callsign string, trigger event.CheckpointTrigger, progressPercent int, summary, lastAction string) (event.Event, error) {
	recovery, err := s.captureRecoveryContext(ctx, project, missionID, lastAction)
	if err != nil {
		return event.Event{}, err
	}

	checkpointID := id.New(id.Checkpoint)
	body := event.CheckpointCreatedBody{
		CheckpointID:    checkpointID,
		MissionID:       missionID,
		Callsign:        callsign,
		Trigger:         trigger,
		ProgressPercent: progressPercent,
		Summary:         summary,
		RecoveryContext: recovery,
	}
	ev, err := s.store.Append(ctx, project, body)
	if err != nil {
		return event.Event{}, err
	}

	if err := s.writeCheckpointFile(project, checkpointID, body); err != nil {
		// best-effort: the event already committed, so the DB remains
		// the source of truth even if the file mirror fails (spec §9
		// "failure is a warning, does not roll back the DB").
		s.telemetry.Warn(ctx, "checkpoint file write failed", "checkpoint_id", checkpointID, "error", err.Error())
	}
	return ev, nil
}

func (s *Service) captureRecoveryContext(ctx context.Context, project, missionID, lastAction string) (event.RecoveryContext, error) {
	sorties, err := s.sortieSnapshots(ctx, project, missionID)
	if err != nil {
		return event.RecoveryContext{}, err
	}
	locks, err := s.lockSnapshots(ctx, project, missionID)
	if err != nil {
		return event.RecoveryContext{}, err
	}
	messages, err := s.pendingMessageSnapshots(ctx, project, missionID)
	if err != nil {
		return event.RecoveryContext{}, err
	}
	return event.RecoveryContext{
		SortieSnapshots: sorties,
		ActiveLocks:     locks,
		PendingMessages: messages,
		LastAction:      lastAction,
	}, nil
}

func (s *Service) sortieSnapshots(ctx context.Context, project, missionID string) ([]event.SortieSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, status, assignee, progress_percent, files FROM sorties WHERE project = ? AND mission_id = ?
	`, project, missionID)
	if err != nil {
		return nil, &storage.UnavailableError{Cause: err}
	}
	defer rows.Close()

	var out []event.SortieSnapshot
	for rows.Next() {
		var snap event.SortieSnapshot
		var filesJSON string
		if err := rows.Scan(&snap.SortieID, &snap.Status, &snap.Assignee, &snap.ProgressPercent, &filesJSON); err != nil {
			return nil, &storage.UnavailableError{Cause: err}
		}
		_ = json.Unmarshal([]byte(filesJSON), &snap.Files)
		out = append(out, snap)
	}
	return out, rows.Err()
}

// lockSnapshots returns active locks held by callsigns assigned to one
// of the mission's sorties (spec §4.8 "every active lock held by
// pilots belonging to the mission").
func (s *Service) lockSnapshots(ctx context.Context, project, missionID string) ([]event.LockSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT l.lock_id, l.normalized_path, l.holder, l.acquired_at_ms, l.purpose, l.expires_at_ms - l.acquired_at_ms
		FROM locks l
		WHERE l.project = ? AND l.status = 'active' AND l.holder IN (
			SELECT DISTINCT assignee FROM sorties WHERE project = ? AND mission_id = ? AND assignee <> ''
		)
	`, project, project, missionID)
	if err != nil {
		return nil, &storage.UnavailableError{Cause: err}
	}
	defer rows.Close()

	var out []event.LockSnapshot
	for rows.Next() {
		var snap event.LockSnapshot
		var purpose string
		if err := rows.Scan(&snap.LockID, &snap.Path, &snap.Holder, &snap.AcquiredAt, &purpose, &snap.TTLMillis); err != nil {
			return nil, &storage.UnavailableError{Cause: err}
		}
		snap.Purpose = event.LockPurpose(purpose)
		out = append(out, snap)
	}
	return out, rows.Err()
}

func (s *Service) pendingMessageSnapshots(ctx context.Context, project, missionID string) ([]event.MessageSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.message_id, m.from_callsign, m.subject, m.created_at_ms, r.callsign
		FROM messages m
		JOIN message_recipients r ON r.message_id = m.message_id
		WHERE m.project = ? AND m.mission_id = ? AND r.acked_at_ms IS NULL
		ORDER BY m.message_id
	`, project, missionID)
	if err != nil {
		return nil, &storage.UnavailableError{Cause: err}
	}
	defer rows.Close()

	byID := make(map[string]*event.MessageSnapshot)
	var order []string
	for rows.Next() {
		var msgID, from, subject, recipient string
		var sentAt int64
		if err := rows.Scan(&msgID, &from, &subject, &sentAt, &recipient); err != nil {
			return nil, &storage.UnavailableError{Cause: err}
		}
		snap, ok := byID[msgID]
		if !ok {
			snap = &event.MessageSnapshot{MessageID: msgID, From: from, Subject: subject, SentAt: sentAt}
			byID[msgID] = snap
			order = append(order, msgID)
		}
		snap.To = append(snap.To, recipient)
	}
	if err := rows.Err(); err != nil {
		return nil, &storage.UnavailableError{Cause: err}
	}

	out := make([]event.MessageSnapshot, 0, len(order))
	for _, msgID := range order {
		out = append(out, *byID[msgID])
	}
	return out, nil
}

func (s *Service) writeCheckpointFile(project, checkpointID string, body event.CheckpointCreatedBody) error {
	dir := s.fleetDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		return err
	}

	final := filepath.Join(dir, checkpointID+".json")
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, final); err != nil {
		return err
	}

	latest := filepath.Join(dir, "latest.json")
	_ = os.Remove(latest)
	if err := os.Symlink(final, latest); err != nil {
		// symlinks aren't available on every filesystem (e.g. some
		// Windows configurations); fall back to a plain copy.
		_ = os.WriteFile(latest, raw, 0o644)
	}
	return nil
}

// RecoveryCandidate is one stalled mission reported by DetectRecoveryCandidates.
type RecoveryCandidate struct {
	MissionID          string
	Title              string
	InactiveFor        time.Duration
	LatestCheckpointID string
}

// DetectRecoveryCandidates finds in_progress missions whose most recent
// event is older than threshold (spec §4.8 "Stall detection").
func (s *Service) DetectRecoveryCandidates(ctx context.Context, project string, threshold time.Duration) ([]RecoveryCandidate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.title,
			(SELECT MAX(timestamp_ms) FROM events e WHERE e.project = m.project AND e.stream_kind = 'mission' AND e.stream_id = m.id) AS last_event_ms,
			(SELECT c.id FROM checkpoints c WHERE c.project = m.project AND c.mission_id = m.id ORDER BY c.created_at_ms DESC LIMIT 1) AS latest_checkpoint
		FROM missions m
		WHERE m.project = ? AND m.status = 'in_progress'
	`, project)
	if err != nil {
		return nil, &storage.UnavailableError{Cause: err}
	}
	defer rows.Close()

	now := s.clock.Now()
	var out []RecoveryCandidate
	for rows.Next() {
		var missionID, title string
		var lastEventMs sql.NullInt64
		var latestCheckpoint sql.NullString
		if err := rows.Scan(&missionID, &title, &lastEventMs, &latestCheckpoint); err != nil {
			return nil, &storage.UnavailableError{Cause: err}
		}
		if !lastEventMs.Valid {
			continue
		}
		inactiveFor := now.Sub(time.UnixMilli(lastEventMs.Int64).UTC())
		if inactiveFor <= threshold {
			continue
		}
		out = append(out, RecoveryCandidate{
			MissionID:          missionID,
			Title:              title,
			InactiveFor:        inactiveFor,
			LatestCheckpointID: latestCheckpoint.String,
		})
	}
	return out, rows.Err()
}

// NotFoundError reports a checkpoint absent from both the database and disk.
type NotFoundError struct {
	CheckpointID string
}

func (e *NotFoundError) Error() string { return "checkpoint not found: " + e.CheckpointID }

// Restore reconstructs checkpointID's recorded state, re-acquiring each
// active lock it captured and reporting conflicts rather than failing
// outright (spec §4.8 "State restoration"). It is idempotent: a second
// call against the same checkpoint re-attempts every lock and emits a
// second fleet_recovered event, never a duplicate message_sent.
func (s *Service) Restore(ctx context.Context, project, checkpointID string) (event.Event, error) {
	body, err := s.loadCheckpoint(ctx, project, checkpointID)
	if err != nil {
		return event.Event{}, err
	}

	outcomes := make([]event.ReacquisitionOutcome, 0, len(body.RecoveryContext.ActiveLocks))
	for _, l := range body.RecoveryContext.ActiveLocks {
		ttl := time.Duration(l.TTLMillis) * time.Millisecond
		if ttl <= 0 {
			ttl = time.Minute
		}
		res, err := s.locks.ReacquireLock(ctx, project, l.LockID, l.Path, l.Holder, l.Purpose, ttl)
		if err != nil {
			return event.Event{}, err
		}
		outcome := event.ReacquisitionOutcome{Path: l.Path, Succeeded: res.Lock != nil}
		if res.Conflict != nil {
			outcome.Holder = res.Conflict.Holder
		}
		outcomes = append(outcomes, outcome)
	}

	return s.store.Append(ctx, project, event.FleetRecoveredBody{
		CheckpointID: checkpointID,
		Outcomes:     outcomes,
	})
}

func (s *Service) loadCheckpoint(ctx context.Context, project, checkpointID string) (event.CheckpointCreatedBody, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT mission_id, callsign, trigger, progress_percent, summary, recovery_context
		FROM checkpoints WHERE project = ? AND id = ?
	`, project, checkpointID)
	var body event.CheckpointCreatedBody
	var trigger, recoveryJSON string
	switch err := row.Scan(&body.MissionID, &body.Callsign, &trigger, &body.ProgressPercent, &body.Summary, &recoveryJSON); err {
	case nil:
		body.CheckpointID = checkpointID
		body.Trigger = event.CheckpointTrigger(trigger)
		if err := json.Unmarshal([]byte(recoveryJSON), &body.RecoveryContext); err != nil {
			return event.CheckpointCreatedBody{}, err
		}
		return body, nil
	case sql.ErrNoRows:
		return s.loadCheckpointFromFile(project, checkpointID)
	default:
		return event.CheckpointCreatedBody{}, &storage.UnavailableError{Cause: err}
	}
}

func (s *Service) loadCheckpointFromFile(project, checkpointID string) (event.CheckpointCreatedBody, error) {
	raw, err := os.ReadFile(filepath.Join(s.fleetDir, checkpointID+".json"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return event.CheckpointCreatedBody{}, &NotFoundError{CheckpointID: checkpointID}
		}
		return event.CheckpointCreatedBody{}, err
	}
	var body event.CheckpointCreatedBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return event.CheckpointCreatedBody{}, err
	}
	return body, nil
}
