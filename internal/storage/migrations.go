package storage

// migration pairs an ordered schema version with the SQL that brings
// the database from version-1 to version, following the versioned
// migrations-table pattern worked out in
// other_examples/3589cc20_madhatter5501-Factory__internal-db-sqlite.go.go.
type migration struct {
	version int
	sql     string
}

// CurrentSchemaVersion is the schema version this driver builds and expects.
const CurrentSchemaVersion = 2

var migrations = []migration{
	{1, migration1},
	{2, migration2},
}

// migration1 creates the event log and every projection table named in
// spec §4.2's table list.
const migration1 = `
CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	sequence INTEGER NOT NULL,
	project TEXT NOT NULL,
	type TEXT NOT NULL,
	timestamp_ms INTEGER NOT NULL,
	stream_kind TEXT,
	stream_id TEXT,
	body TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_project_type ON events(project, type);
CREATE INDEX IF NOT EXISTS idx_events_project_ts ON events(project, timestamp_ms);
CREATE INDEX IF NOT EXISTS idx_events_project_type_ts ON events(project, type, timestamp_ms);
CREATE INDEX IF NOT EXISTS idx_events_project_stream ON events(project, stream_kind, stream_id);

CREATE TABLE IF NOT EXISTS pilots (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	project TEXT NOT NULL,
	callsign TEXT NOT NULL,
	program TEXT NOT NULL,
	model TEXT NOT NULL,
	task_description TEXT NOT NULL DEFAULT '',
	registered_at_ms INTEGER NOT NULL,
	last_active_at_ms INTEGER NOT NULL,
	deregistered_at_ms INTEGER,
	deregister_reason TEXT NOT NULL DEFAULT '',
	UNIQUE(project, callsign)
);
CREATE INDEX IF NOT EXISTS idx_pilots_project ON pilots(project);
CREATE INDEX IF NOT EXISTS idx_pilots_callsign ON pilots(callsign);

CREATE TABLE IF NOT EXISTS messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	project TEXT NOT NULL,
	message_id TEXT NOT NULL UNIQUE,
	from_callsign TEXT NOT NULL,
	subject TEXT NOT NULL DEFAULT '',
	body TEXT NOT NULL DEFAULT '',
	thread_id TEXT NOT NULL DEFAULT '',
	importance TEXT NOT NULL DEFAULT 'normal',
	ack_required INTEGER NOT NULL DEFAULT 0,
	sortie_id TEXT NOT NULL DEFAULT '',
	mission_id TEXT NOT NULL DEFAULT '',
	created_at_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_project ON messages(project);
CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages(thread_id);
CREATE INDEX IF NOT EXISTS idx_messages_created ON messages(created_at_ms);

CREATE TABLE IF NOT EXISTS message_recipients (
	message_id TEXT NOT NULL,
	callsign TEXT NOT NULL,
	read_at_ms INTEGER,
	acked_at_ms INTEGER,
	PRIMARY KEY (message_id, callsign),
	FOREIGN KEY (message_id) REFERENCES messages(message_id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_recipients_callsign ON message_recipients(callsign);

CREATE TABLE IF NOT EXISTS reservations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	project TEXT NOT NULL,
	reservation_id TEXT NOT NULL UNIQUE,
	callsign TEXT NOT NULL,
	path TEXT NOT NULL,
	exclusive INTEGER NOT NULL DEFAULT 1,
	reason TEXT NOT NULL DEFAULT '',
	sortie_id TEXT NOT NULL DEFAULT '',
	mission_id TEXT NOT NULL DEFAULT '',
	reserved_at_ms INTEGER NOT NULL,
	expires_at_ms INTEGER NOT NULL,
	released_at_ms INTEGER
);
CREATE INDEX IF NOT EXISTS idx_reservations_project ON reservations(project);
CREATE INDEX IF NOT EXISTS idx_reservations_callsign ON reservations(callsign);
CREATE INDEX IF NOT EXISTS idx_reservations_expires ON reservations(expires_at_ms);
CREATE INDEX IF NOT EXISTS idx_reservations_path ON reservations(project, path);

CREATE TABLE IF NOT EXISTS locks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	project TEXT NOT NULL,
	lock_id TEXT NOT NULL UNIQUE,
	normalized_path TEXT NOT NULL,
	holder TEXT NOT NULL,
	purpose TEXT NOT NULL,
	checksum TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'active',
	acquired_at_ms INTEGER NOT NULL,
	expires_at_ms INTEGER NOT NULL,
	released_at_ms INTEGER,
	superseded_by TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_locks_project_path_active ON locks(project, normalized_path) WHERE status = 'active';
CREATE INDEX IF NOT EXISTS idx_locks_project ON locks(project);

CREATE TABLE IF NOT EXISTS cursors (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	project TEXT NOT NULL,
	consumer TEXT NOT NULL,
	stream_kind TEXT NOT NULL,
	stream_id TEXT NOT NULL,
	position INTEGER NOT NULL DEFAULT 0,
	updated_at_ms INTEGER NOT NULL,
	UNIQUE(project, consumer, stream_kind, stream_id)
);

CREATE TABLE IF NOT EXISTS missions (
	id TEXT PRIMARY KEY,
	project TEXT NOT NULL,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending',
	priority INTEGER NOT NULL DEFAULT 2,
	creator TEXT NOT NULL,
	total_sorties INTEGER NOT NULL DEFAULT 0,
	completed_sorties INTEGER NOT NULL DEFAULT 0,
	created_at_ms INTEGER NOT NULL,
	started_at_ms INTEGER,
	completed_at_ms INTEGER
);
CREATE INDEX IF NOT EXISTS idx_missions_project ON missions(project);
CREATE INDEX IF NOT EXISTS idx_missions_status ON missions(status);

CREATE TABLE IF NOT EXISTS sorties (
	id TEXT PRIMARY KEY,
	project TEXT NOT NULL,
	mission_id TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'open',
	priority INTEGER NOT NULL DEFAULT 2,
	assignee TEXT NOT NULL DEFAULT '',
	files TEXT NOT NULL DEFAULT '[]',
	progress_percent INTEGER NOT NULL DEFAULT 0,
	blocked_reason TEXT NOT NULL DEFAULT '',
	created_at_ms INTEGER NOT NULL,
	started_at_ms INTEGER,
	completed_at_ms INTEGER
);
CREATE INDEX IF NOT EXISTS idx_sorties_project ON sorties(project);
CREATE INDEX IF NOT EXISTS idx_sorties_mission ON sorties(mission_id);
CREATE INDEX IF NOT EXISTS idx_sorties_status ON sorties(status);
CREATE INDEX IF NOT EXISTS idx_sorties_assignee ON sorties(assignee);

CREATE TABLE IF NOT EXISTS work_orders (
	id TEXT PRIMARY KEY,
	project TEXT NOT NULL,
	sortie_id TEXT NOT NULL,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'open',
	priority INTEGER NOT NULL DEFAULT 2,
	assignee TEXT NOT NULL DEFAULT '',
	progress_percent INTEGER NOT NULL DEFAULT 0,
	blocked_reason TEXT NOT NULL DEFAULT '',
	created_at_ms INTEGER NOT NULL,
	started_at_ms INTEGER,
	completed_at_ms INTEGER
);
CREATE INDEX IF NOT EXISTS idx_work_orders_sortie ON work_orders(sortie_id);
CREATE INDEX IF NOT EXISTS idx_work_orders_status ON work_orders(status);

CREATE TABLE IF NOT EXISTS checkpoints (
	id TEXT PRIMARY KEY,
	project TEXT NOT NULL,
	mission_id TEXT NOT NULL DEFAULT '',
	callsign TEXT NOT NULL,
	trigger TEXT NOT NULL,
	progress_percent INTEGER NOT NULL DEFAULT 0,
	summary TEXT NOT NULL DEFAULT '',
	recovery_context TEXT NOT NULL,
	created_at_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_checkpoints_mission ON checkpoints(mission_id);
CREATE INDEX IF NOT EXISTS idx_checkpoints_callsign ON checkpoints(callsign);
`

// migration2 records coordinator violations as their own queryable
// table so detectRecoveryCandidates-style diagnostics don't need to
// scan the full event log body column.
const migration2 = `
CREATE TABLE IF NOT EXISTS coordinator_violations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	project TEXT NOT NULL,
	entity TEXT NOT NULL,
	entity_id TEXT NOT NULL,
	from_status TEXT NOT NULL DEFAULT '',
	to_status TEXT NOT NULL DEFAULT '',
	reason TEXT NOT NULL,
	occurred_at_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_violations_entity ON coordinator_violations(project, entity, entity_id);
`
