package fleet_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fleettools/fleetcore/fleet"
	"github.com/fleettools/fleetcore/internal/clock"
	"github.com/fleettools/fleetcore/internal/event"
)

func openFleet(t *testing.T, c clock.Clock) *fleet.Fleet {
	t.Helper()
	f, err := fleet.Open(context.Background(), fleet.WithInMemory(), fleet.WithProject("p1"), fleet.WithClock(c))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestRegisterPilotAndHeartbeat(t *testing.T) {
	c := clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	f := openFleet(t, c)
	ctx := context.Background()

	pilot, err := f.RegisterPilot(ctx, "viper-1", "claude-code", "opus", "fix the parser")
	require.NoError(t, err)
	require.Equal(t, "viper-1", pilot.Callsign)

	require.NoError(t, f.PilotHeartbeat(ctx, "viper-1"))

	got, err := f.GetPilot(ctx, "viper-1")
	require.NoError(t, err)
	require.Equal(t, "claude-code", got.Program)
}

func TestGetPilotNotFound(t *testing.T) {
	f := openFleet(t, clock.System{})
	_, err := f.GetPilot(context.Background(), "ghost")
	require.Error(t, err)
	var nf *fleet.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestSortieLifecycleAndInvalidTransition(t *testing.T) {
	f := openFleet(t, clock.System{})
	ctx := context.Background()

	missionID, err := f.CreateMission(ctx, fleet.CreateMissionInput{Title: "ship v2", Creator: "viper-1"})
	require.NoError(t, err)

	sortieID, err := f.CreateSortie(ctx, fleet.CreateSortieInput{MissionID: missionID, Title: "wire the parser", Assignee: "viper-1"})
	require.NoError(t, err)

	sortie, err := f.GetSortie(ctx, sortieID)
	require.NoError(t, err)
	require.Equal(t, "open", sortie.Status)

	// completing before starting skips a state the machine doesn't allow
	err = f.CompleteSortie(ctx, sortieID)
	require.Error(t, err)
	var invalid *fleet.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, "sortie", invalid.Entity)

	require.NoError(t, f.StartSortie(ctx, sortieID))
	require.NoError(t, f.CompleteSortie(ctx, sortieID))

	sortie, err = f.GetSortie(ctx, sortieID)
	require.NoError(t, err)
	require.Equal(t, "closed", sortie.Status)
}

func TestReserveFilesConflictIsStructuredNotError(t *testing.T) {
	f := openFleet(t, clock.System{})
	ctx := context.Background()

	res, err := f.ReserveFiles(ctx, fleet.ReserveFilesInput{
		Paths: []string{"a.go"}, Callsign: "viper-1", Exclusive: true, Reason: "editing",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Reservation)

	conflict, err := f.ReserveFiles(ctx, fleet.ReserveFilesInput{
		Paths: []string{"a.go"}, Callsign: "viper-2", Exclusive: true, Reason: "editing",
	})
	require.NoError(t, err)
	require.Nil(t, conflict.Reservation)
	require.NotNil(t, conflict.Conflict)
	require.Equal(t, "viper-1", conflict.Conflict.Holder)
}

func TestSendMessageAndListInbox(t *testing.T) {
	f := openFleet(t, clock.System{})
	ctx := context.Background()

	messageID, err := f.SendMessage(ctx, fleet.SendMessageInput{
		From: "viper-1", To: []string{"viper-2"}, Subject: "status", Body: "almost done", Importance: event.ImportanceNormal,
	})
	require.NoError(t, err)
	require.NotEmpty(t, messageID)

	inbox, err := f.ListInbox(ctx, "viper-2", fleet.ListInboxOptions{UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	require.Equal(t, "status", inbox[0].Subject)

	require.NoError(t, f.MarkRead(ctx, messageID, "viper-2"))

	inbox, err = f.ListInbox(ctx, "viper-2", fleet.ListInboxOptions{UnreadOnly: true})
	require.NoError(t, err)
	require.Empty(t, inbox)
}

func TestCheckpointCreateAndRestore(t *testing.T) {
	f := openFleet(t, clock.System{})
	ctx := context.Background()

	missionID, err := f.CreateMission(ctx, fleet.CreateMissionInput{Title: "ship v2", Creator: "viper-1"})
	require.NoError(t, err)

	_, err = f.AcquireLock(ctx, fleet.AcquireLockInput{Path: "a.go", Callsign: "viper-1", Purpose: event.PurposeEdit})
	require.NoError(t, err)

	checkpointID, err := f.CreateCheckpoint(ctx, fleet.CreateCheckpointInput{
		MissionID: missionID, Callsign: "viper-1", Trigger: event.TriggerManual, Summary: "midway",
	})
	require.NoError(t, err)
	require.NotEmpty(t, checkpointID)

	latest, err := f.GetLatestCheckpoint(ctx, missionID)
	require.NoError(t, err)
	require.Equal(t, checkpointID, latest)

	require.NoError(t, f.Restore(ctx, checkpointID))
}
