package checkpoint_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fleettools/fleetcore/internal/checkpoint"
	"github.com/fleettools/fleetcore/internal/clock"
	"github.com/fleettools/fleetcore/internal/event"
	"github.com/fleettools/fleetcore/internal/eventstore"
	"github.com/fleettools/fleetcore/internal/lock"
	"github.com/fleettools/fleetcore/internal/projection"
	"github.com/fleettools/fleetcore/internal/storage"
	"github.com/fleettools/fleetcore/internal/telemetry"
)

func newService(t *testing.T) (*checkpoint.Service, *eventstore.Store, clock.Clock) {
	t.Helper()
	db, err := storage.Open(context.Background(), storage.Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	c := clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	store := eventstore.New(db, projection.New(c, telemetry.NoOp()), c, telemetry.NoOp())
	locks := lock.New(store, c)
	svc := checkpoint.New(store, db, locks, c, telemetry.NoOp(), t.TempDir())
	return svc, store, c
}

func TestCreateCapturesSortiesLocksAndMessages(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()
	project := "/p1"

	_, err := store.Append(ctx, project, event.MissionCreatedBody{MissionID: "mission-1", Title: "M1", Creator: "viper-a"})
	require.NoError(t, err)
	_, err = store.Append(ctx, project, event.SortieCreatedBody{SortieID: "sortie-1", MissionID: "mission-1", Title: "S1", Assignee: "viper-a"})
	require.NoError(t, err)
	_, err = store.Append(ctx, project, event.LockAcquiredBody{
		LockID: "lock-1", Path: "a.go", NormalizedPath: "a.go", Callsign: "viper-a", Purpose: event.PurposeEdit, TTLMillis: 60000,
	})
	require.NoError(t, err)
	_, err = store.Append(ctx, project, event.MessageSentBody{
		MessageID: "message-1", From: "viper-b", To: []string{"viper-a"}, Subject: "hi", SortieID: "sortie-1", MissionID: "mission-1",
	})
	require.NoError(t, err)

	ev, err := svc.Create(ctx, project, "mission-1", "viper-a", event.TriggerManual, 50, "halfway", "wrote a.go")
	require.NoError(t, err)

	body, ok := event.IsEventType[event.CheckpointCreatedBody](ev)
	require.True(t, ok)
	require.Len(t, body.RecoveryContext.SortieSnapshots, 1)
	require.Len(t, body.RecoveryContext.ActiveLocks, 1)
	require.Len(t, body.RecoveryContext.PendingMessages, 1)
	require.Equal(t, []string{"viper-a"}, body.RecoveryContext.PendingMessages[0].To)
}

func TestRestoreReacquiresLocksAndEmitsFleetRecovered(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()
	project := "/p1"

	_, err := store.Append(ctx, project, event.MissionCreatedBody{MissionID: "mission-1", Title: "M1", Creator: "viper-a"})
	require.NoError(t, err)
	_, err = store.Append(ctx, project, event.SortieCreatedBody{SortieID: "sortie-1", MissionID: "mission-1", Title: "S1", Assignee: "viper-a"})
	require.NoError(t, err)
	_, err = store.Append(ctx, project, event.LockAcquiredBody{
		LockID: "lock-1", Path: "a.go", NormalizedPath: "a.go", Callsign: "viper-a", Purpose: event.PurposeEdit, TTLMillis: 60000,
	})
	require.NoError(t, err)

	created, err := svc.Create(ctx, project, "mission-1", "viper-a", event.TriggerManual, 50, "halfway", "wrote a.go")
	require.NoError(t, err)
	checkpointBody, _ := event.IsEventType[event.CheckpointCreatedBody](created)

	// simulate a crash: the lock row disappears from the live projection.
	_, err = store.Append(ctx, project, event.LockReleasedBody{LockID: "lock-1", Callsign: "viper-a", Forced: true})
	require.NoError(t, err)

	recovered, err := svc.Restore(ctx, project, checkpointBody.CheckpointID)
	require.NoError(t, err)
	outcome, ok := event.IsEventType[event.FleetRecoveredBody](recovered)
	require.True(t, ok)
	require.Equal(t, checkpointBody.CheckpointID, outcome.CheckpointID)
	require.Len(t, outcome.Outcomes, 1)
	require.True(t, outcome.Outcomes[0].Succeeded)
}

func TestDetectRecoveryCandidatesFindsStalledMissions(t *testing.T) {
	svc, store, c := newService(t)
	ctx := context.Background()
	project := "/p1"

	_, err := store.Append(ctx, project, event.MissionCreatedBody{MissionID: "mission-1", Title: "M1", Creator: "viper-a"})
	require.NoError(t, err)
	_, err = store.Append(ctx, project, event.MissionStartedBody{MissionID: "mission-1"})
	require.NoError(t, err)

	fixed := c.(*clock.Fixed)
	fixed.Advance(2 * time.Hour)

	candidates, err := svc.DetectRecoveryCandidates(ctx, project, time.Hour)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.Equal(t, "mission-1", candidates[0].MissionID)
}
