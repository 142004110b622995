package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/craftlink/craftlink/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db   *sqlx.DB
	path string
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, path: dbPath}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Path returns the database file path, or "" for an in-memory store.
func (s *SQLiteStore) Path() string {
	if s.path == ":memory:" {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// AppendNotification inserts a notification unless one with the same
// dedup key already exists for the recipient. Returns true when a row was
// inserted.
func (s *SQLiteStore) AppendNotification(
	ctx context.Context,
	n model.Notification,
) (bool, error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	// A chat dedup key collapses deliveries only while the previous
	// notification is unread. Once it is read, the next message from the
	// same contact must notify again, so the stale read entry is replaced.
	if n.Kind == model.KindChat {
		_, err := s.db.ExecContext(ctx, `
			DELETE FROM notifications
			WHERE recipient_id = ? AND recipient_role = ? AND dedup_key = ? AND status = ?`,
			n.RecipientID, string(model.NormalizeRole(n.RecipientRole)),
			n.DedupKey, string(model.StatusRead),
		)
		if err != nil {
			return false, fmt.Errorf("replacing read chat notification: %w", err)
		}
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO notifications (
			id, dedup_key, kind, title, message, subject_id,
			recipient_id, recipient_role, variant, status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.DedupKey, string(n.Kind), n.Title, n.Message, n.SubjectID,
		n.RecipientID, string(model.NormalizeRole(n.RecipientRole)),
		string(n.Variant), string(n.Status), n.CreatedAt.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("appending notification: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading append result: %w", err)
	}
	return inserted > 0, nil
}

// Notifications retrieves the identity's entries in insertion order, most
// recent first.
func (s *SQLiteStore) Notifications(
	ctx context.Context,
	id model.Identity,
) ([]model.Notification, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT id, dedup_key, kind, title, message, subject_id,
			recipient_id, recipient_role, variant, status, created_at
		FROM notifications
		WHERE recipient_id = ? AND recipient_role = ?
		ORDER BY rowid DESC`,
		id.UserID, string(model.NormalizeRole(id.Role)),
	)
	if err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}

	return notifications, rows.Err()
}

// MarkRead marks a single notification as read. The read transition is
// monotonic; there is no way back to unread.
func (s *SQLiteStore) MarkRead(
	ctx context.Context,
	id model.Identity,
	notificationID string,
) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET status = ?
		WHERE id = ? AND recipient_id = ? AND recipient_role = ?`,
		string(model.StatusRead), notificationID,
		id.UserID, string(model.NormalizeRole(id.Role)),
	)
	if err != nil {
		return fmt.Errorf("marking notification %s as read: %w", notificationID, err)
	}
	return nil
}

// MarkAllRead marks every one of the identity's notifications as read.
func (s *SQLiteStore) MarkAllRead(ctx context.Context, id model.Identity) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET status = ?
		WHERE recipient_id = ? AND recipient_role = ?`,
		string(model.StatusRead),
		id.UserID, string(model.NormalizeRole(id.Role)),
	)
	if err != nil {
		return fmt.Errorf("marking all notifications as read: %w", err)
	}
	return nil
}

// MarkKindRead marks the identity's notifications of one kind as read.
func (s *SQLiteStore) MarkKindRead(
	ctx context.Context,
	id model.Identity,
	kind model.Kind,
) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET status = ?
		WHERE recipient_id = ? AND recipient_role = ? AND kind = ?`,
		string(model.StatusRead),
		id.UserID, string(model.NormalizeRole(id.Role)), string(kind),
	)
	if err != nil {
		return fmt.Errorf("marking %s notifications as read: %w", kind, err)
	}
	return nil
}

// Clear removes all of the identity's notifications.
func (s *SQLiteStore) Clear(ctx context.Context, id model.Identity) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM notifications
		WHERE recipient_id = ? AND recipient_role = ?`,
		id.UserID, string(model.NormalizeRole(id.Role)),
	)
	if err != nil {
		return fmt.Errorf("clearing notifications: %w", err)
	}
	return nil
}

// UnreadCount returns the number of unread notifications for the identity.
func (s *SQLiteStore) UnreadCount(ctx context.Context, id model.Identity) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM notifications
		WHERE recipient_id = ? AND recipient_role = ? AND status = ?`,
		id.UserID, string(model.NormalizeRole(id.Role)), string(model.StatusUnread),
	)
	if err != nil {
		return 0, fmt.Errorf("counting unread notifications: %w", err)
	}
	return count, nil
}

// scanNotification scans a notification row from a sqlx.Rows result set.
func scanNotification(rows *sqlx.Rows) (model.Notification, error) {
	var (
		n         model.Notification
		kind      string
		role      string
		variant   string
		status    string
		createdAt time.Time
	)

	err := rows.Scan(
		&n.ID, &n.DedupKey, &kind, &n.Title, &n.Message, &n.SubjectID,
		&n.RecipientID, &role, &variant, &status, &createdAt,
	)
	if err != nil {
		return model.Notification{}, fmt.Errorf("scanning notification row: %w", err)
	}

	n.Kind = model.Kind(kind)
	n.RecipientRole = model.Role(role)
	n.Variant = model.Variant(variant)
	n.Status = model.Status(status)
	n.CreatedAt = createdAt
	return n, nil
}
