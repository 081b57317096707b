package storage_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fleettools/fleetcore/internal/storage"
)

func TestOpenInMemoryAppliesMigrations(t *testing.T) {
	ctx := context.Background()
	db, err := storage.Open(ctx, storage.Config{InMemory: true})
	require.NoError(t, err)
	defer db.Close()

	var version int
	row := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	require.NoError(t, row.Scan(&version))
	require.Equal(t, storage.CurrentSchemaVersion, version)

	for _, table := range []string{"events", "pilots", "messages", "message_recipients",
		"reservations", "locks", "cursors", "missions", "sorties", "work_orders",
		"checkpoints", "coordinator_violations"} {
		var name string
		row := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name=?", table)
		require.NoError(t, row.Scan(&name), "table %s should exist", table)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	db, err := storage.Open(ctx, storage.Config{InMemory: true})
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("boom")
	err = db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, execErr := tx.ExecContext(ctx, "INSERT INTO cursors (project, consumer, stream_kind, stream_id, position, updated_at_ms) VALUES ('/p', 'c', 'mission', 'm', 1, 0)"); execErr != nil {
			return execErr
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int
	row := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cursors")
	require.NoError(t, row.Scan(&count))
	require.Equal(t, 0, count)
}

func TestLoadManifestMatchesCurrentVersion(t *testing.T) {
	m, err := storage.LoadManifest()
	require.NoError(t, err)
	require.Len(t, m.Versions, storage.CurrentSchemaVersion)
	require.Equal(t, storage.CurrentSchemaVersion, m.Versions[len(m.Versions)-1].Version)
}
