package cursor_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fleettools/fleetcore/internal/clock"
	"github.com/fleettools/fleetcore/internal/cursor"
	"github.com/fleettools/fleetcore/internal/event"
	"github.com/fleettools/fleetcore/internal/eventstore"
	"github.com/fleettools/fleetcore/internal/projection"
	"github.com/fleettools/fleetcore/internal/storage"
	"github.com/fleettools/fleetcore/internal/telemetry"
)

func newTestFixtures(t *testing.T) (*storage.DB, *eventstore.Store, clock.Clock) {
	t.Helper()
	db, err := storage.Open(context.Background(), storage.Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	c := clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	store := eventstore.New(db, projection.New(c, telemetry.NoOp()), c, telemetry.NoOp())
	return db, store, c
}

func TestAdvanceIsIdempotentAndMonotonic(t *testing.T) {
	db, _, c := newTestFixtures(t)
	svc := cursor.New(db, c)
	ctx := context.Background()

	require.NoError(t, svc.Advance(ctx, "/p1", "consumer-a", "callsign", "viper-1", 5))
	pos, err := svc.Position(ctx, "/p1", "consumer-a", "callsign", "viper-1")
	require.NoError(t, err)
	require.Equal(t, int64(5), pos)

	require.NoError(t, svc.Advance(ctx, "/p1", "consumer-a", "callsign", "viper-1", 5))
	pos, err = svc.Position(ctx, "/p1", "consumer-a", "callsign", "viper-1")
	require.NoError(t, err)
	require.Equal(t, int64(5), pos)

	require.NoError(t, svc.Advance(ctx, "/p1", "consumer-a", "callsign", "viper-1", 2))
	pos, err = svc.Position(ctx, "/p1", "consumer-a", "callsign", "viper-1")
	require.NoError(t, err)
	require.Equal(t, int64(5), pos, "advancing backward must be a no-op")
}

func TestTailAdvancesCursorToMaxSequence(t *testing.T) {
	db, store, c := newTestFixtures(t)
	svc := cursor.New(db, c)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := store.Append(ctx, "/p1", event.PilotRegisteredBody{Callsign: "viper-1", Program: "core", Model: "sonnet"})
		require.NoError(t, err)
	}

	events, err := svc.Tail(ctx, "/p1", "consumer-a", "callsign", "viper-1", 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, int64(1), events[0].Sequence)
	require.Equal(t, int64(2), events[1].Sequence)

	pos, err := svc.Position(ctx, "/p1", "consumer-a", "callsign", "viper-1")
	require.NoError(t, err)
	require.Equal(t, int64(2), pos)

	events, err = svc.Tail(ctx, "/p1", "consumer-a", "callsign", "viper-1", 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, int64(3), events[0].Sequence)
}
