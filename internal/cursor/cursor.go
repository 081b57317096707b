// Package cursor implements the per-consumer read position spec §4.7
// describes: a (project, consumer, stream-kind, stream-id) tuple
// tracking how far that consumer has read the event log.
package cursor

import (
	"context"
	"database/sql"
	"time"

	"github.com/fleettools/fleetcore/internal/clock"
	"github.com/fleettools/fleetcore/internal/event"
	"github.com/fleettools/fleetcore/internal/storage"
)

// Service is the cursor store for one database.
type Service struct {
	db    *storage.DB
	clock clock.Clock
}

// New builds a Service over db.
func New(db *storage.DB, c clock.Clock) *Service {
	if c == nil {
		c = clock.System{}
	}
	return &Service{db: db, clock: c}
}

// Advance upserts (project, consumer, streamKind, streamID) to
// position, but only forward: if the stored position already meets or
// exceeds position, the call is a no-op (spec §4.7, §8 property 8
// "cursor idempotence").
func (s *Service) Advance(ctx context.Context, project, consumer, streamKind, streamID string, position int64) error {
	now := s.clock.Now().UnixMilli()
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		return advanceTx(ctx, tx, project, consumer, streamKind, streamID, position, now)
	})
}

func advanceTx(ctx context.Context, tx *sql.Tx, project, consumer, streamKind, streamID string, position, nowMillis int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO cursors (project, consumer, stream_kind, stream_id, position, updated_at_ms)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(project, consumer, stream_kind, stream_id) DO UPDATE SET
			position = CASE WHEN excluded.position > cursors.position THEN excluded.position ELSE cursors.position END,
			updated_at_ms = CASE WHEN excluded.position > cursors.position THEN excluded.updated_at_ms ELSE cursors.updated_at_ms END
	`, project, consumer, streamKind, streamID, position, nowMillis)
	if err != nil {
		return &storage.UnavailableError{Cause: err}
	}
	return nil
}

// Position returns the stored position for the tuple, or 0 if the
// consumer has never advanced against this stream.
func (s *Service) Position(ctx context.Context, project, consumer, streamKind, streamID string) (int64, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT position FROM cursors WHERE project = ? AND consumer = ? AND stream_kind = ? AND stream_id = ?
	`, project, consumer, streamKind, streamID)
	var pos int64
	switch err := row.Scan(&pos); err {
	case nil:
		return pos, nil
	case sql.ErrNoRows:
		return 0, nil
	default:
		return 0, &storage.UnavailableError{Cause: err}
	}
}

// Tail reads up to limit events past the consumer's current position
// on (streamKind, streamID) and advances the cursor to the highest
// sequence returned, all inside one transaction, so a crash between
// the read and the advance can never cause the same event to be both
// skipped and unacknowledged (spec §4.7 "guarantee at-least-once
// without loss").
func (s *Service) Tail(ctx context.Context, project, consumer, streamKind, streamID string, limit int) ([]event.Event, error) {
	var out []event.Event
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			SELECT position FROM cursors WHERE project = ? AND consumer = ? AND stream_kind = ? AND stream_id = ?
		`, project, consumer, streamKind, streamID)
		var position int64
		switch err := row.Scan(&position); err {
		case nil, sql.ErrNoRows:
		default:
			return &storage.UnavailableError{Cause: err}
		}

		rows, err := tx.QueryContext(ctx, `
			SELECT id, sequence, project, type, timestamp_ms, stream_kind, stream_id, body
			FROM events
			WHERE project = ? AND stream_kind = ? AND stream_id = ? AND sequence > ?
			ORDER BY sequence ASC
			LIMIT ?
		`, project, streamKind, streamID, position, limit)
		if err != nil {
			return &storage.UnavailableError{Cause: err}
		}
		events, err := scanEventRows(rows)
		rows.Close()
		if err != nil {
			return err
		}
		out = events

		if len(events) == 0 {
			return nil
		}
		maxSeq := events[len(events)-1].Sequence
		return advanceTx(ctx, tx, project, consumer, streamKind, streamID, maxSeq, s.clock.Now().UnixMilli())
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func scanEventRows(rows *sql.Rows) ([]event.Event, error) {
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
