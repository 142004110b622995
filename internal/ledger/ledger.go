// Package ledger maintains the canonical, deduplicated notification list
// for the active identity. Every delivery path (push, polling, user
// actions) funnels through it, and the dedup key is the only mutual
// exclusion the interleaving needs.
package ledger

import (
	"context"
	"fmt"
	"hash/fnv"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/craftlink/craftlink/internal/effects"
	"github.com/craftlink/craftlink/internal/event"
	"github.com/craftlink/craftlink/internal/model"
	"github.com/craftlink/craftlink/internal/store"
)

// DedupKey derives the identifier that collapses repeated deliveries of
// the same logical event. Every write path must compute it identically:
// kind plus subject ID, falling back to a content hash when the subject
// is unknown.
func DedupKey(ev event.Event) string {
	if ev.Payload.SubjectID != "" {
		return fmt.Sprintf("%s:%s", ev.Kind, ev.Payload.SubjectID)
	}
	h := fnv.New64a()
	h.Write([]byte(ev.Payload.Title))
	h.Write([]byte{'|'})
	h.Write([]byte(ev.Payload.Message))
	return fmt.Sprintf("%s:h%x", ev.Kind, h.Sum64())
}

// Ledger is the identity-scoped view over the persisted notification
// store. Mutations notify subscribers so unread counts are recomputed from
// storage rather than cached independently.
type Ledger struct {
	store    store.Store
	identity model.Identity
	notifier effects.Notifier
	logger   *log.Logger

	mu     sync.Mutex
	subs   map[int]func()
	nextID int
}

// New creates a ledger for the given identity. The notifier receives each
// freshly inserted entry; pass effects.Discard for silent operation.
func New(s store.Store, identity model.Identity, notifier effects.Notifier, logger *log.Logger) *Ledger {
	if notifier == nil {
		notifier = effects.Discard{}
	}
	return &Ledger{
		store:    s,
		identity: identity,
		notifier: notifier,
		logger:   logger,
		subs:     make(map[int]func()),
	}
}

// Identity returns the recipient identity this ledger is scoped to.
func (l *Ledger) Identity() model.Identity {
	return l.identity
}

// Append records a guarded event as an unread notification. Delivering the
// same logical event again, from either channel, is a no-op.
func (l *Ledger) Append(ctx context.Context, ev event.Event) error {
	createdAt := ev.Payload.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	n := model.Notification{
		ID:            uuid.New().String(),
		DedupKey:      DedupKey(ev),
		Kind:          ev.Kind,
		Title:         ev.Payload.Title,
		Message:       ev.Payload.Message,
		SubjectID:     ev.Payload.SubjectID,
		RecipientID:   l.identity.UserID,
		RecipientRole: model.NormalizeRole(l.identity.Role),
		Variant:       ev.Payload.Variant,
		Status:        model.StatusUnread,
		CreatedAt:     createdAt,
	}

	inserted, err := l.store.AppendNotification(ctx, n)
	if err != nil {
		return fmt.Errorf("appending to ledger: %w", err)
	}
	if !inserted {
		return nil
	}

	l.notifier.Deliver(n)
	l.notifySubscribers()
	return nil
}

// MarkAsRead sets a single entry to read.
func (l *Ledger) MarkAsRead(ctx context.Context, notificationID string) error {
	if err := l.store.MarkRead(ctx, l.identity, notificationID); err != nil {
		return err
	}
	l.notifySubscribers()
	return nil
}

// MarkAllAsRead sets every entry for the identity to read.
func (l *Ledger) MarkAllAsRead(ctx context.Context) error {
	if err := l.store.MarkAllRead(ctx, l.identity); err != nil {
		return err
	}
	l.notifySubscribers()
	return nil
}

// MarkKindAsRead sets every entry of the given kind to read.
func (l *Ledger) MarkKindAsRead(ctx context.Context, kind model.Kind) error {
	if err := l.store.MarkKindRead(ctx, l.identity, kind); err != nil {
		return err
	}
	l.notifySubscribers()
	return nil
}

// Clear removes every entry for the identity. This is the explicit
// user-initiated clear, not a logout reset.
func (l *Ledger) Clear(ctx context.Context) error {
	if err := l.store.Clear(ctx, l.identity); err != nil {
		return err
	}
	l.notifySubscribers()
	return nil
}

// Query returns the identity's notifications, most recent first. A store
// read failure degrades to an empty list so the host never crashes on a
// corrupt local database.
func (l *Ledger) Query(ctx context.Context) []model.Notification {
	notifications, err := l.store.Notifications(ctx, l.identity)
	if err != nil {
		if l.logger != nil {
			l.logger.Printf("ledger: query failed, treating as empty: %v", err)
		}
		return nil
	}
	return notifications
}

// UnreadCount recomputes the unread total from storage.
func (l *Ledger) UnreadCount(ctx context.Context) int {
	count, err := l.store.UnreadCount(ctx, l.identity)
	if err != nil {
		if l.logger != nil {
			l.logger.Printf("ledger: unread count failed, treating as zero: %v", err)
		}
		return 0
	}
	return count
}

// Subscribe registers a callback invoked after every ledger change,
// including changes observed from sibling processes. The returned function
// removes the subscription.
func (l *Ledger) Subscribe(fn func()) (cancel func()) {
	l.mu.Lock()
	id := l.nextID
	l.nextID++
	l.subs[id] = fn
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		delete(l.subs, id)
		l.mu.Unlock()
	}
}

// notifySubscribers invokes every subscriber outside the lock.
func (l *Ledger) notifySubscribers() {
	l.mu.Lock()
	fns := make([]func(), 0, len(l.subs))
	for _, fn := range l.subs {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
