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
	id             TEXT PRIMARY KEY,
	dedup_key      TEXT NOT NULL,
	kind           TEXT NOT NULL,
	title          TEXT NOT NULL DEFAULT '',
	message        TEXT NOT NULL DEFAULT '',
	subject_id     TEXT NOT NULL DEFAULT '',
	recipient_id   INTEGER NOT NULL,
	recipient_role TEXT NOT NULL,
	variant        TEXT NOT NULL DEFAULT 'info',
	status         TEXT NOT NULL DEFAULT 'unread',
	created_at     DATETIME NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_notifications_dedup
	ON notifications(recipient_id, recipient_role, dedup_key);
CREATE INDEX IF NOT EXISTS idx_notifications_recipient
	ON notifications(recipient_id, recipient_role, status);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
