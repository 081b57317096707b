// Package storage owns schema creation, migration, and the pooled
// connection to a project's embedded SQLite database (spec §4.2),
// following the Open/PRAGMA/migrate shape worked out in
// other_examples/3589cc20_madhatter5501-Factory__internal-db-sqlite.go.go.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

// memoryDBSeq names each in-memory database so separate Opens never share one.
var memoryDBSeq atomic.Int64

// Config selects where and how a project's database is opened.
type Config struct {
	// ProjectPath is the absolute project directory; the database lives
	// at ProjectPath/.fleet/DatabaseFilename.
	ProjectPath string
	// DatabaseFilename names the file under .fleet/. Defaults to "fleet.db".
	DatabaseFilename string
	// InMemory opens a throwaway in-memory database, private to the
	// returned DB, instead of a file.
	InMemory bool
}

func (c Config) dbPath() string {
	name := c.DatabaseFilename
	if name == "" {
		name = "fleet.db"
	}
	return filepath.Join(c.ProjectPath, ".fleet", name)
}

// DB wraps the pooled SQL connection for one project's database.
type DB struct {
	*sql.DB
	path string // empty when InMemory
}

// Open opens (creating if necessary) the project's database, applies
// PRAGMAs for WAL-mode concurrency, and runs any pending migrations.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	var dsn string
	var path string
	if cfg.InMemory {
		dsn = fmt.Sprintf("file:fleet-mem-%d?mode=memory&cache=shared&_pragma=foreign_keys(1)", memoryDBSeq.Add(1))
	} else {
		path = cfg.dbPath()
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &UnavailableError{Path: path, Cause: fmt.Errorf("create directory: %w", err)}
		}
		dsn = path
	}

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &UnavailableError{Path: path, Cause: err}
	}
	if cfg.InMemory {
		// A shared in-memory database only stays alive as long as at
		// least one connection is open; cap the pool at one connection
		// so SQLite's single-writer semantics hold the same way they
		// would against a file.
		sqlDB.SetMaxOpenConns(1)
	}

	if _, err := sqlDB.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		sqlDB.Close()
		return nil, &UnavailableError{Path: path, Cause: fmt.Errorf("enable WAL: %w", err)}
	}
	if _, err := sqlDB.ExecContext(ctx, "PRAGMA synchronous=NORMAL"); err != nil {
		sqlDB.Close()
		return nil, &UnavailableError{Path: path, Cause: fmt.Errorf("set synchronous: %w", err)}
	}
	if _, err := sqlDB.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		sqlDB.Close()
		return nil, &UnavailableError{Path: path, Cause: fmt.Errorf("enable foreign keys: %w", err)}
	}

	db := &DB{DB: sqlDB, path: path}
	if err := db.migrate(ctx); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) migrate(ctx context.Context) error {
	if _, err := d.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at_ms INTEGER NOT NULL
		)
	`); err != nil {
		return &UnavailableError{Path: d.path, Cause: fmt.Errorf("create migrations table: %w", err)}
	}

	var version int
	row := d.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&version); err != nil {
		return &UnavailableError{Path: d.path, Cause: fmt.Errorf("read schema version: %w", err)}
	}
	if version > CurrentSchemaVersion {
		return &SchemaMismatchError{OnDisk: version, Expected: CurrentSchemaVersion}
	}

	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		if _, err := d.ExecContext(ctx, m.sql); err != nil {
			return &UnavailableError{Path: d.path, Cause: fmt.Errorf("apply migration %d: %w", m.version, err)}
		}
		if _, err := d.ExecContext(ctx, "INSERT INTO schema_migrations (version, applied_at_ms) VALUES (?, ?)", m.version, nowMillis()); err != nil {
			return &UnavailableError{Path: d.path, Cause: fmt.Errorf("record migration %d: %w", m.version, err)}
		}
	}
	return nil
}

// WithTx runs fn inside a single transaction, committing on success and
// rolling back on error or panic. Every multi-row mutation in this
// module goes through WithTx so an append and its projection mutations
// land atomically (spec §4.2, §5).
func (d *DB) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return &UnavailableError{Path: d.path, Cause: err}
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return &UnavailableError{Path: d.path, Cause: fmt.Errorf("commit: %w", err)}
	}
	return nil
}

func nowMillis() int64 {
	return time.Now().UTC().UnixMilli()
}
