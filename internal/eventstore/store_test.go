package eventstore_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fleettools/fleetcore/internal/event"
	"github.com/fleettools/fleetcore/internal/eventstore"
	"github.com/fleettools/fleetcore/internal/storage"
	"github.com/fleettools/fleetcore/internal/telemetry"
)

type recordingDispatcher struct {
	dispatched []event.Event
	rejectType event.Type
}

func (d *recordingDispatcher) Dispatch(_ context.Context, _ *sql.Tx, ev event.Event) error {
	if d.rejectType != "" && ev.Type == d.rejectType {
		return &eventstore.ProjectionConflictError{Handler: "test", Reason: "rejected"}
	}
	d.dispatched = append(d.dispatched, ev)
	return nil
}

func openTestDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(context.Background(), storage.Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestAppendAssignsSequenceAndDispatches(t *testing.T) {
	db := openTestDB(t)
	dispatcher := &recordingDispatcher{}
	store := eventstore.New(db, dispatcher, nil, telemetry.NoOp())

	ev1, err := store.Append(context.Background(), "/p", event.PilotRegisteredBody{Callsign: "viper-1", Program: "core", Model: "sonnet"})
	require.NoError(t, err)
	require.Equal(t, int64(1), ev1.ID)
	require.Equal(t, int64(1), ev1.Sequence)

	ev2, err := store.Append(context.Background(), "/p", event.PilotRegisteredBody{Callsign: "viper-2", Program: "core", Model: "sonnet"})
	require.NoError(t, err)
	require.Equal(t, int64(2), ev2.Sequence)

	require.Len(t, dispatcher.dispatched, 2)
}

func TestAppendRejectsInvalidBody(t *testing.T) {
	db := openTestDB(t)
	store := eventstore.New(db, &recordingDispatcher{}, nil, telemetry.NoOp())

	_, err := store.Append(context.Background(), "/p", event.PilotRegisteredBody{Callsign: "", Program: "core", Model: "sonnet"})
	var invalid *event.InvalidEventError
	require.ErrorAs(t, err, &invalid)
}

func TestAppendRollsBackOnProjectionConflict(t *testing.T) {
	db := openTestDB(t)
	dispatcher := &recordingDispatcher{rejectType: event.PilotRegistered}
	store := eventstore.New(db, dispatcher, nil, telemetry.NoOp())

	_, err := store.Append(context.Background(), "/p", event.PilotRegisteredBody{Callsign: "viper-1", Program: "core", Model: "sonnet"})
	var conflict *eventstore.ProjectionConflictError
	require.ErrorAs(t, err, &conflict)

	seq, err := store.GetLatestSequence(context.Background(), "/p")
	require.NoError(t, err)
	require.Equal(t, int64(0), seq, "rejected append must not persist a row")
}

func TestQueryFiltersByTypeAndOrdersBySequence(t *testing.T) {
	db := openTestDB(t)
	store := eventstore.New(db, &recordingDispatcher{}, nil, telemetry.NoOp())
	ctx := context.Background()

	_, err := store.Append(ctx, "/p", event.PilotRegisteredBody{Callsign: "viper-1", Program: "core", Model: "sonnet"})
	require.NoError(t, err)
	_, err = store.Append(ctx, "/p", event.PilotDeregisteredBody{Callsign: "viper-1", Reason: "done"})
	require.NoError(t, err)
	_, err = store.Append(ctx, "/p", event.PilotRegisteredBody{Callsign: "viper-2", Program: "core", Model: "sonnet"})
	require.NoError(t, err)

	events, err := store.Query(ctx, "/p", eventstore.QueryOptions{Types: []event.Type{event.PilotRegistered}})
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, int64(1), events[0].Sequence)
	require.Equal(t, int64(3), events[1].Sequence)

	latest, ok, err := store.GetLatest(ctx, "/p")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(3), latest.Sequence)

	count, err := store.Count(ctx, "/p", eventstore.QueryOptions{Types: []event.Type{event.PilotRegistered}})
	require.NoError(t, err)
	require.Equal(t, int64(2), count)
}

func TestQueryScopedToProject(t *testing.T) {
	db := openTestDB(t)
	store := eventstore.New(db, &recordingDispatcher{}, nil, telemetry.NoOp())
	ctx := context.Background()

	_, err := store.Append(ctx, "/a", event.PilotRegisteredBody{Callsign: "viper-1", Program: "core", Model: "sonnet"})
	require.NoError(t, err)
	_, err = store.Append(ctx, "/b", event.PilotRegisteredBody{Callsign: "viper-2", Program: "core", Model: "sonnet"})
	require.NoError(t, err)

	events, err := store.Query(ctx, "/a", eventstore.QueryOptions{})
	require.NoError(t, err)
	require.Len(t, events, 1)

	_, ok, err := store.GetLatest(ctx, "/empty-project")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestGetLatestSequenceZeroWhenEmpty(t *testing.T) {
	db := openTestDB(t)
	store := eventstore.New(db, &recordingDispatcher{}, nil, telemetry.NoOp())

	seq, err := store.GetLatestSequence(context.Background(), "/p")
	require.NoError(t, err)
	require.Equal(t, int64(0), seq)
}

func TestAppendTimestampsAreUTCAndMillisTruncated(t *testing.T) {
	db := openTestDB(t)
	store := eventstore.New(db, &recordingDispatcher{}, nil, telemetry.NoOp())

	ev, err := store.Append(context.Background(), "/p", event.PilotRegisteredBody{Callsign: "viper-1", Program: "core", Model: "sonnet"})
	require.NoError(t, err)
	require.Equal(t, time.UTC, ev.Timestamp.Location())
	require.Zero(t, ev.Timestamp.Nanosecond()%int(time.Millisecond))
}
