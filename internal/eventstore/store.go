// Package eventstore implements the append-only event log (spec §4.4):
// validated appends inside the same transaction as their projection
// mutations, and typed queries over the log.
package eventstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fleettools/fleetcore/internal/clock"
	"github.com/fleettools/fleetcore/internal/event"
	"github.com/fleettools/fleetcore/internal/storage"
	"github.com/fleettools/fleetcore/internal/telemetry"
)

// ProjectionConflictError reports that a projection handler refused an
// otherwise-valid event; the whole append transaction rolls back
// (spec §4.4, §7).
type ProjectionConflictError struct {
	Handler string
	Reason  string
}

func (e *ProjectionConflictError) Error() string {
	return fmt.Sprintf("projection conflict in %s: %s", e.Handler, e.Reason)
}

// Dispatcher applies an event's projection mutations inside the same
// transaction as its append. Implemented by internal/projection so
// eventstore never imports projection directly (projection satisfies
// this interface structurally without importing eventstore either).
type Dispatcher interface {
	Dispatch(ctx context.Context, tx *sql.Tx, ev event.Event) error
}

// Store is the append-only event log for one project database.
type Store struct {
	db         *storage.DB
	dispatcher Dispatcher
	clock      clock.Clock
	telemetry  telemetry.Telemetry
}

// New builds a Store over db, dispatching projections through d.
func New(db *storage.DB, d Dispatcher, c clock.Clock, t telemetry.Telemetry) *Store {
	if c == nil {
		c = clock.System{}
	}
	if t == nil {
		t = telemetry.NoOp()
	}
	return &Store{db: db, dispatcher: d, clock: c, telemetry: t}
}

// Append validates body, assigns a monotonic sequence, persists the
// event, and applies its projection mutations, all inside one
// transaction. It returns the hydrated event including the assigned
// id/sequence, or a typed error (InvalidEventError, StorageUnavailable,
// ProjectionConflictError).
func (s *Store) Append(ctx context.Context, project string, body event.Body) (event.Event, error) {
	stop := s.telemetry.StartSpan(ctx, "eventstore.append")
	defer stop()
	start := s.clock.Now()

	ev, err := event.New(project, start, body)
	if err != nil {
		return event.Event{}, err
	}

	raw, err := event.EncodeBody(ev.Body)
	if err != nil {
		return event.Event{}, fmt.Errorf("encode event body: %w", err)
	}
	streamKind, streamID, _ := event.StreamID(ev)

	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO events (sequence, project, type, timestamp_ms, stream_kind, stream_id, body)
			VALUES (0, ?, ?, ?, ?, ?, ?)
		`, ev.Project, string(ev.Type), ev.Timestamp.UnixMilli(), streamKind, streamID, string(raw))
		if err != nil {
			return &storage.UnavailableError{Cause: err}
		}
		lastID, err := res.LastInsertId()
		if err != nil {
			return &storage.UnavailableError{Cause: err}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE events SET sequence = ? WHERE id = ?`, lastID, lastID); err != nil {
			return &storage.UnavailableError{Cause: err}
		}
		ev.ID = lastID
		ev.Sequence = lastID

		if s.dispatcher != nil {
			if err := s.dispatcher.Dispatch(ctx, tx, ev); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return event.Event{}, err
	}

	s.telemetry.RecordAppendLatency(ctx, ev.Type, s.clock.Now().Sub(start))
	return ev, nil
}

// QueryOptions filters Query's result set. Project is not an option:
// Query and Count take it as a separate, required argument, so every
// query is scoped to one project.
type QueryOptions struct {
	Types         []event.Type
	StreamKind    string
	StreamID      string
	Since         time.Time
	Until         time.Time
	AfterSequence int64
	Limit         int
	Descending    bool
}

// Query returns events matching opts, always scoped to project.
func (s *Store) Query(ctx context.Context, project string, opts QueryOptions) ([]event.Event, error) {
	query, args := buildQuery(project, opts)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &storage.UnavailableError{Cause: err}
	}
	defer rows.Close()
	return scanEvents(rows)
}

// GetLatest returns the most recently appended event in project, or
// ok=false if the project has no events yet.
func (s *Store) GetLatest(ctx context.Context, project string) (event.Event, bool, error) {
	events, err := s.Query(ctx, project, QueryOptions{Limit: 1, Descending: true})
	if err != nil {
		return event.Event{}, false, err
	}
	if len(events) == 0 {
		return event.Event{}, false, nil
	}
	return events[0], true, nil
}

// GetLatestSequence returns the highest sequence number in project, or
// 0 if the project has no events yet.
func (s *Store) GetLatestSequence(ctx context.Context, project string) (int64, error) {
	row := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(sequence), 0) FROM events WHERE project = ?`, project)
	var seq int64
	if err := row.Scan(&seq); err != nil {
		return 0, &storage.UnavailableError{Cause: err}
	}
	return seq, nil
}

// Count returns the number of events in project matching opts
// (Limit/Descending are ignored).
func (s *Store) Count(ctx context.Context, project string, opts QueryOptions) (int64, error) {
	opts.Limit = 0
	query, args := buildCountQuery(project, opts)
	row := s.db.QueryRowContext(ctx, query, args...)
	var n int64
	if err := row.Scan(&n); err != nil {
		return 0, &storage.UnavailableError{Cause: err}
	}
	return n, nil
}

func scanEvents(rows *sql.Rows) ([]event.Event, error) {
	var out []event.Event
	for rows.Next() {
		var (
			id, sequence, tsMillis int64
			project, typ           string
			streamKind, streamID   sql.NullString
			body                   string
		)
		if err := rows.Scan(&id, &sequence, &project, &typ, &tsMillis, &streamKind, &streamID, &body); err != nil {
			return nil, &storage.UnavailableError{Cause: err}
		}
		b, err := event.DecodeBody(event.Type(typ), []byte(body))
		if err != nil {
			return nil, err
		}
		out = append(out, event.Event{
			ID:        id,
			Sequence:  sequence,
			Type:      event.Type(typ),
			Project:   project,
			Timestamp: time.UnixMilli(tsMillis).UTC(),
			Body:      b,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, &storage.UnavailableError{Cause: err}
	}
	return out, nil
}
