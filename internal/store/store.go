package store

import (
	"context"

	"github.com/craftlink/craftlink/internal/model"
)

// Store defines the persistence interface for the local notification
// ledger. Every operation is scoped to a recipient identity; rows written
// for one identity are invisible to every other.
type Store interface {
	// AppendNotification inserts a notification unless an entry with the
	// same (identity, dedup key) already exists. It reports whether a row
	// was actually inserted, so callers can distinguish a fresh event
	// from a repeated delivery. For chat entries the collapse only spans
	// the unread window: a read entry with the same key is replaced, so a
	// later message from the same contact notifies again.
	AppendNotification(ctx context.Context, n model.Notification) (bool, error)

	// Notifications returns the identity's entries, most recent first.
	Notifications(ctx context.Context, id model.Identity) ([]model.Notification, error)

	// MarkRead sets a single entry to read. Marking an already-read or
	// unknown entry is a no-op.
	MarkRead(ctx context.Context, id model.Identity, notificationID string) error

	// MarkAllRead sets every one of the identity's entries to read.
	MarkAllRead(ctx context.Context, id model.Identity) error

	// MarkKindRead sets the identity's entries of one kind to read.
	MarkKindRead(ctx context.Context, id model.Identity, kind model.Kind) error

	// Clear removes all of the identity's entries. Used only for the
	// explicit user-initiated clear.
	Clear(ctx context.Context, id model.Identity) error

	// UnreadCount returns the number of unread entries for the identity.
	UnreadCount(ctx context.Context, id model.Identity) (int, error)

	// Path returns the on-disk location of the store, or "" when the
	// store is not file-backed.
	Path() string

	Close() error
}
