package projection

import (
	"context"
	"database/sql"

	"github.com/fleettools/fleetcore/internal/event"
)

func (d *Dispatcher) handleMessageSent(ctx context.Context, tx *sql.Tx, ev event.Event) error {
	b, ok := event.IsEventType[event.MessageSentBody](ev)
	if !ok {
		return nil
	}
	importance := string(b.Importance)
	if importance == "" {
		importance = string(event.ImportanceNormal)
	}
	ts := ev.Timestamp.UnixMilli()
	_, err := tx.ExecContext(ctx, `
		INSERT INTO messages (project, message_id, from_callsign, subject, body, thread_id, importance, ack_required, sortie_id, mission_id, created_at_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ev.Project, b.MessageID, b.From, b.Subject, b.Body, b.ThreadID, importance, boolToInt(b.AckRequired), b.SortieID, b.MissionID, ts)
	if err != nil {
		return err
	}
	for _, to := range b.To {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO message_recipients (message_id, callsign) VALUES (?, ?)
		`, b.MessageID, to); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) handleMessageRead(ctx context.Context, tx *sql.Tx, ev event.Event) error {
	b, ok := event.IsEventType[event.MessageReadBody](ev)
	if !ok {
		return nil
	}
	_, err := tx.ExecContext(ctx, `
		UPDATE message_recipients SET read_at_ms = ? WHERE message_id = ? AND callsign = ?
	`, ev.Timestamp.UnixMilli(), b.MessageID, b.Callsign)
	return err
}

func (d *Dispatcher) handleMessageAcked(ctx context.Context, tx *sql.Tx, ev event.Event) error {
	b, ok := event.IsEventType[event.MessageAckedBody](ev)
	if !ok {
		return nil
	}
	_, err := tx.ExecContext(ctx, `
		UPDATE message_recipients SET acked_at_ms = ? WHERE message_id = ? AND callsign = ?
	`, ev.Timestamp.UnixMilli(), b.MessageID, b.Callsign)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
