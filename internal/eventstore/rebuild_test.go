package eventstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fleettools/fleetcore/internal/event"
	"github.com/fleettools/fleetcore/internal/eventstore"
	"github.com/fleettools/fleetcore/internal/projection"
	"github.com/fleettools/fleetcore/internal/storage"
	"github.com/fleettools/fleetcore/internal/telemetry"
)

// TestRebuildIsIdempotentAcrossViolations exercises spec §8 property 3
// (replay determinism) and scenario S5 (replay equivalence) against
// the exact bug a naive replay risks: a historical rejected transition
// re-emitting its compensating coordinator_violation event on every
// Rebuild, growing the log each time it's called.
func TestRebuildIsIdempotentAcrossViolations(t *testing.T) {
	db, err := storage.Open(context.Background(), storage.Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	dispatcher := projection.New(nil, telemetry.NoOp())
	store := eventstore.New(db, dispatcher, nil, telemetry.NoOp())
	ctx := context.Background()
	const project = "/p1"

	_, err = store.Append(ctx, project, event.SortieCreatedBody{SortieID: "sortie-1", Title: "wire the parser"})
	require.NoError(t, err)

	// completing an open sortie with no in_progress step first is
	// rejected by the status machine and recorded as a
	// coordinator_violation instead of applied.
	_, err = store.Append(ctx, project, event.SortieCompletedBody{SortieID: "sortie-1"})
	require.NoError(t, err)

	countBefore, err := store.Count(ctx, project, eventstore.QueryOptions{})
	require.NoError(t, err)
	violationsBefore := countRows(t, db, "coordinator_violations", project)
	require.Equal(t, 1, violationsBefore)

	require.NoError(t, store.Rebuild(ctx, project))

	countAfterFirst, err := store.Count(ctx, project, eventstore.QueryOptions{})
	require.NoError(t, err)
	require.Equal(t, countBefore, countAfterFirst, "rebuild must not append new events to the log")
	require.Equal(t, 1, countRows(t, db, "coordinator_violations", project), "rebuild must reconstruct exactly the one violation row, not duplicate it")

	// a second rebuild must be just as inert as the first.
	require.NoError(t, store.Rebuild(ctx, project))

	countAfterSecond, err := store.Count(ctx, project, eventstore.QueryOptions{})
	require.NoError(t, err)
	require.Equal(t, countBefore, countAfterSecond)
	require.Equal(t, 1, countRows(t, db, "coordinator_violations", project))

	sortie, err := store.Query(ctx, project, eventstore.QueryOptions{})
	require.NoError(t, err)
	require.Len(t, sortie, int(countBefore), "replayed log contents must match what was appended")
}

func countRows(t *testing.T, db *storage.DB, table, project string) int {
	t.Helper()
	var n int
	row := db.QueryRowContext(context.Background(), `SELECT COUNT(*) FROM `+table+` WHERE project = ?`, project)
	require.NoError(t, row.Scan(&n))
	return n
}
