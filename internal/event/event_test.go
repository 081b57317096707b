package event_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fleettools/fleetcore/internal/event"
)

func TestNewValidatesBody(t *testing.T) {
	_, err := event.New("/p1", time.Now(), event.PilotRegisteredBody{})
	require.Error(t, err)
	var ive *event.InvalidEventError
	require.ErrorAs(t, err, &ive)
}

func TestNewStampsUTCMillis(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 123456789, time.FixedZone("X", 3600))
	ev, err := event.New("/p1", at, event.PilotActiveBody{Callsign: "callsign-abc"})
	require.NoError(t, err)
	require.Equal(t, time.UTC, ev.Timestamp.Location())
	require.Equal(t, 0, ev.Timestamp.Nanosecond()%int(time.Millisecond))
}

func TestIsEventType(t *testing.T) {
	ev, err := event.New("/p1", time.Now(), event.SortieStartedBody{SortieID: "sortie-a"})
	require.NoError(t, err)
	body, ok := event.IsEventType[event.SortieStartedBody](ev)
	require.True(t, ok)
	require.Equal(t, "sortie-a", body.SortieID)

	_, ok = event.IsEventType[event.SortieCompletedBody](ev)
	require.False(t, ok)
}

func TestStreamIDExtractsHeterogeneousKinds(t *testing.T) {
	ev, err := event.New("/p1", time.Now(), event.MessageSentBody{
		MessageID: "message-1", From: "callsign-a", To: []string{"callsign-b"},
		SortieID: "sortie-z",
	})
	require.NoError(t, err)
	kind, id, ok := event.StreamID(ev)
	require.True(t, ok)
	require.Equal(t, "sortie", kind)
	require.Equal(t, "sortie-z", id)
}

func TestCodecRoundTrip(t *testing.T) {
	body := event.MessageSentBody{
		MessageID: "message-1", From: "callsign-a", To: []string{"callsign-b", "callsign-c"},
		Subject: "hi", Body: "there", Importance: event.ImportanceHigh,
	}
	raw, err := event.EncodeBody(body)
	require.NoError(t, err)

	decoded, err := event.DecodeBody(event.MessageSent, raw)
	require.NoError(t, err)
	require.Equal(t, body, decoded)
}

func TestValidateJSONRejectsMissingFields(t *testing.T) {
	raw, err := json.Marshal(map[string]any{"callsign": "callsign-a"})
	require.NoError(t, err)
	err = event.ValidateJSON(event.PilotRegistered, raw)
	require.Error(t, err)
}

func TestValidateAndDecodeBodyAcceptsWellFormed(t *testing.T) {
	raw, err := json.Marshal(map[string]any{
		"callsign": "callsign-a", "program": "opencode", "model": "claude-sonnet",
	})
	require.NoError(t, err)
	body, err := event.ValidateAndDecodeBody(event.PilotRegistered, raw)
	require.NoError(t, err)
	reg, ok := body.(event.PilotRegisteredBody)
	require.True(t, ok)
	require.Equal(t, "callsign-a", reg.Callsign)
}

func TestAllKnownTypesHaveSchemas(t *testing.T) {
	// compileSchemas is exercised indirectly through ValidateJSON: an
	// empty object must be rejected as an InvalidEventError, which only
	// happens when a schema with required fields is registered for ty.
	types := []event.Type{
		event.PilotRegistered, event.PilotActive, event.PilotDeregistered,
		event.MessageSent, event.MessageRead, event.MessageAcked,
		event.ThreadCreated, event.ThreadActivity,
		event.FileReserved, event.FileReleased, event.FileConflict,
		event.LockAcquired, event.LockReleased, event.LockConflict, event.LockReacquired,
		event.SortieCreated, event.SortieStarted, event.SortieProgress,
		event.SortieCompleted, event.SortieBlocked, event.SortieStatusChanged,
		event.MissionCreated, event.MissionStarted, event.MissionCompleted, event.MissionSynced,
		event.CheckpointCreated, event.ContextCompacted, event.FleetRecovered, event.ContextInjected,
		event.CoordinatorDecision, event.CoordinatorViolation,
		event.PilotSpawned, event.PilotCompleted, event.ReviewStarted, event.ReviewCompleted,
	}
	for _, ty := range types {
		require.True(t, event.IsKnownType(ty), "%s should be known", ty)
		var invalid *event.InvalidEventError
		require.ErrorAs(t, event.ValidateJSON(ty, []byte("{}")), &invalid, "%s should have a schema", ty)
	}
}
