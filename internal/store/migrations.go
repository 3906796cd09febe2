package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS notifications (
	id                 TEXT PRIMARY KEY,
	message            TEXT NOT NULL,
	category           TEXT NOT NULL DEFAULT 'info',
	progress_update_id INTEGER,
	read               INTEGER NOT NULL DEFAULT 0 CHECK(read IN (0, 1)),
	read_at            DATETIME,
	created_at         DATETIME NOT NULL,
	position           INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS progress_updates (
	id           INTEGER PRIMARY KEY,
	student_id   INTEGER NOT NULL DEFAULT 0,
	student_name TEXT NOT NULL DEFAULT '',
	title        TEXT NOT NULL DEFAULT '',
	description  TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL DEFAULT 'pending',
	submitted_at DATETIME NOT NULL,
	updated_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS semesters (
	id            INTEGER PRIMARY KEY,
	academic_year TEXT NOT NULL,
	name          TEXT NOT NULL,
	start_date    DATETIME NOT NULL,
	end_date      DATETIME NOT NULL,
	is_current    INTEGER NOT NULL DEFAULT 0 CHECK(is_current IN (0, 1))
);

CREATE INDEX IF NOT EXISTS idx_notifications_read ON notifications(read);
CREATE INDEX IF NOT EXISTS idx_progress_updates_status ON progress_updates(status);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
