package event

import (
	"fmt"
	"time"
)

// InvalidEventError reports that a candidate event failed validation
// (spec §7 InvalidEvent(field, reason)).
type InvalidEventError struct {
	Type  Type
	Field string
	Cause error
}

func (e *InvalidEventError) Error() string {
	return fmt.Sprintf("invalid event %q: %s", e.Type, e.Cause)
}

func (e *InvalidEventError) Unwrap() error { return e.Cause }

// New builds a validated, stamped Event. It does not assign ID/Sequence —
// those are set by the store on append. occurredAt is normalized to UTC
// millisecond precision, matching the DB's storage granularity.
func New(project string, occurredAt time.Time, body Body) (Event, error) {
	if project == "" {
		return Event{}, &InvalidEventError{Type: body.EventType(), Field: "project", Cause: fmt.Errorf("project is required")}
	}
	if !IsKnownType(body.EventType()) {
		return Event{}, &InvalidEventError{Type: body.EventType(), Field: "type", Cause: fmt.Errorf("not a known event type")}
	}
	if err := body.Validate(); err != nil {
		field := ""
		var fe *FieldError
		if asFieldError(err, &fe) {
			field = fe.Field
		}
		return Event{}, &InvalidEventError{Type: body.EventType(), Field: field, Cause: err}
	}
	return Event{
		Type:      body.EventType(),
		Project:   project,
		Timestamp: occurredAt.UTC().Truncate(time.Millisecond),
		Body:      body,
	}, nil
}

func asFieldError(err error, target **FieldError) bool {
	if fe, ok := err.(*FieldError); ok {
		*target = fe
		return true
	}
	return false
}
