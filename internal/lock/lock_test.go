package lock_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fleettools/fleetcore/internal/clock"
	"github.com/fleettools/fleetcore/internal/event"
	"github.com/fleettools/fleetcore/internal/eventstore"
	"github.com/fleettools/fleetcore/internal/lock"
	"github.com/fleettools/fleetcore/internal/projection"
	"github.com/fleettools/fleetcore/internal/storage"
	"github.com/fleettools/fleetcore/internal/telemetry"
)

func newManager(t *testing.T, c clock.Clock) *lock.Manager {
	t.Helper()
	db, err := storage.Open(context.Background(), storage.Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	dispatcher := projection.New(c, telemetry.NoOp())
	store := eventstore.New(db, dispatcher, c, telemetry.NoOp())
	return lock.New(store, c)
}

func TestNormalizePathCollapsesVariants(t *testing.T) {
	require.Equal(t, lock.NormalizePath("src/Main.go"), lock.NormalizePath("./src/Main.go"))
	require.Equal(t, lock.NormalizePath("src/main.go"), lock.NormalizePath("src//Main.go"))
}

func TestAcquireLockSucceedsThenConflicts(t *testing.T) {
	c := clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	m := newManager(t, c)
	ctx := context.Background()

	res, err := m.AcquireLock(ctx, "/p1", "/p1/src/x.ts", "viper-a", event.PurposeEdit, time.Minute, "")
	require.NoError(t, err)
	require.Nil(t, res.Conflict)
	require.NotNil(t, res.Lock)

	res2, err := m.AcquireLock(ctx, "/p1", "/p1/src/x.ts", "viper-b", event.PurposeEdit, time.Minute, "")
	require.NoError(t, err)
	require.Nil(t, res2.Lock)
	require.NotNil(t, res2.Conflict)
	require.Equal(t, "viper-a", res2.Conflict.Holder)
}

func TestReleaseLockAllowsReacquisition(t *testing.T) {
	c := clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	m := newManager(t, c)
	ctx := context.Background()

	res, err := m.AcquireLock(ctx, "/p1", "src/x.ts", "viper-a", event.PurposeEdit, time.Minute, "")
	require.NoError(t, err)
	require.NoError(t, m.ReleaseLock(ctx, "/p1", res.Lock.LockID, "viper-a"))

	res2, err := m.AcquireLock(ctx, "/p1", "src/x.ts", "viper-b", event.PurposeEdit, time.Minute, "")
	require.NoError(t, err)
	require.NotNil(t, res2.Lock)
}

func TestLockExpiresByTTL(t *testing.T) {
	c := clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	m := newManager(t, c)
	ctx := context.Background()

	_, err := m.AcquireLock(ctx, "/p1", "src/x.ts", "viper-a", event.PurposeEdit, time.Minute, "")
	require.NoError(t, err)

	c.Advance(2 * time.Minute)

	res, err := m.AcquireLock(ctx, "/p1", "src/x.ts", "viper-b", event.PurposeEdit, time.Minute, "")
	require.NoError(t, err)
	require.NotNil(t, res.Lock, "expired lock must not block a fresh acquire")
}

func TestReserveExclusiveConflictsOnOverlap(t *testing.T) {
	c := clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	m := newManager(t, c)
	ctx := context.Background()

	res, err := m.Reserve(ctx, "/p1", []string{"a.go", "b.go"}, "viper-a", time.Minute, true, "editing", "", "")
	require.NoError(t, err)
	require.NotNil(t, res.Reservation)

	res2, err := m.Reserve(ctx, "/p1", []string{"b.go", "c.go"}, "viper-b", time.Minute, true, "editing", "", "")
	require.NoError(t, err)
	require.NotNil(t, res2.Conflict)
	require.Equal(t, "viper-a", res2.Conflict.Holder)
}

func TestReleaseReservationByID(t *testing.T) {
	c := clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	m := newManager(t, c)
	ctx := context.Background()

	res, err := m.Reserve(ctx, "/p1", []string{"a.go"}, "viper-a", time.Minute, true, "editing", "", "")
	require.NoError(t, err)
	require.NoError(t, m.Release(ctx, "/p1", "viper-a", nil, res.Reservation.ReservationIDs))

	res2, err := m.Reserve(ctx, "/p1", []string{"a.go"}, "viper-b", time.Minute, true, "editing", "", "")
	require.NoError(t, err)
	require.NotNil(t, res2.Reservation)
}

func TestReacquireLockRecordsOutcome(t *testing.T) {
	c := clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	m := newManager(t, c)
	ctx := context.Background()

	first, err := m.AcquireLock(ctx, "/p1", "src/x.ts", "viper-a", event.PurposeEdit, time.Minute, "")
	require.NoError(t, err)
	require.NoError(t, m.ReleaseLock(ctx, "/p1", first.Lock.LockID, "viper-a"))

	res, err := m.ReacquireLock(ctx, "/p1", first.Lock.LockID, "src/x.ts", "viper-a", event.PurposeEdit, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, res.Lock)
}
