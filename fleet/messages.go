package fleet

import (
	"context"
	"database/sql"
	"time"

	"github.com/fleettools/fleetcore/internal/event"
	"github.com/fleettools/fleetcore/internal/id"
)

// Message is the projected view of one delivered message plus its
// recipient's read/ack state (one row per recipient, matching the
// underlying message_recipients join — spec §3).
type Message struct {
	MessageID  string
	From       string
	Subject    string
	Body       string
	ThreadID   string
	Importance string
	SentAt     int64
	ReadAt     int64
	AckedAt    int64
}

// SendMessageInput mirrors spec §6's sendMessage parameter object.
type SendMessageInput struct {
	From        string
	To          []string
	Subject     string
	Body        string
	ThreadID    string
	Importance  event.Importance
	AckRequired bool
	SortieID    string
	MissionID   string
}

// SendMessage appends message_sent, fanning out to every recipient.
func (f *Fleet) SendMessage(ctx context.Context, in SendMessageInput) (string, error) {
	start := f.clock.Now()
	messageID := id.New(id.Message)
	_, err := f.store.Append(ctx, f.project, event.MessageSentBody{
		MessageID:   messageID,
		From:        in.From,
		To:          in.To,
		Subject:     in.Subject,
		Body:        in.Body,
		ThreadID:    in.ThreadID,
		Importance:  in.Importance,
		AckRequired: in.AckRequired,
		SortieID:    in.SortieID,
		MissionID:   in.MissionID,
	})
	if err != nil {
		err = translateContextErr(ctx, err)
		f.logOp(ctx, "SendMessage", in.From, start, err, false)
		return "", err
	}
	f.logOp(ctx, "SendMessage", in.From, start, nil, false)
	return messageID, nil
}

// MarkRead appends message_read for (messageID, callsign).
func (f *Fleet) MarkRead(ctx context.Context, messageID, callsign string) error {
	start := f.clock.Now()
	_, err := f.store.Append(ctx, f.project, event.MessageReadBody{MessageID: messageID, Callsign: callsign})
	err = translateContextErr(ctx, err)
	f.logOp(ctx, "MarkRead", callsign, start, err, false)
	return err
}

// MarkAcked appends message_acked for (messageID, callsign).
func (f *Fleet) MarkAcked(ctx context.Context, messageID, callsign string) error {
	start := f.clock.Now()
	_, err := f.store.Append(ctx, f.project, event.MessageAckedBody{MessageID: messageID, Callsign: callsign})
	err = translateContextErr(ctx, err)
	f.logOp(ctx, "MarkAcked", callsign, start, err, false)
	return err
}

// ListInboxOptions filters ListInbox.
type ListInboxOptions struct {
	UnreadOnly bool
	Since      time.Time
}

// ListInbox returns callsign's messages, newest first.
func (f *Fleet) ListInbox(ctx context.Context, callsign string, opts ListInboxOptions) ([]Message, error) {
	query := `
		SELECT m.message_id, m.from_callsign, m.subject, m.body, m.thread_id, m.importance, m.created_at_ms, r.read_at_ms, r.acked_at_ms
		FROM messages m JOIN message_recipients r ON r.message_id = m.message_id
		WHERE m.project = ? AND r.callsign = ?`
	args := []any{f.project, callsign}
	if opts.UnreadOnly {
		query += " AND r.read_at_ms IS NULL"
	}
	if !opts.Since.IsZero() {
		query += " AND m.created_at_ms >= ?"
		args = append(args, opts.Since.UnixMilli())
	}
	query += " ORDER BY m.created_at_ms DESC"

	rows, err := f.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var msg Message
		var readAt, ackedAt sql.NullInt64
		if err := rows.Scan(&msg.MessageID, &msg.From, &msg.Subject, &msg.Body, &msg.ThreadID, &msg.Importance, &msg.SentAt, &readAt, &ackedAt); err != nil {
			return nil, err
		}
		msg.ReadAt = readAt.Int64
		msg.AckedAt = ackedAt.Int64
		out = append(out, msg)
	}
	return out, rows.Err()
}
