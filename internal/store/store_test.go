package store_test

import (
	"context"
	"testing"

	"github.com/craftlink/craftlink/internal/model"
	"github.com/craftlink/craftlink/tests/testutil"
)

func sampleNotification(dedup string) model.Notification {
	return model.Notification{
		DedupKey:      dedup,
		Kind:          model.KindOrderRequest,
		Title:         "New service request",
		Message:       "Alice placed a service request",
		SubjectID:     "15",
		RecipientID:   7,
		RecipientRole: model.RoleCraftsman,
		Variant:       model.VariantInfo,
		Status:        model.StatusUnread,
	}
}

func TestAppendNotificationDeduplicates(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	inserted, err := s.AppendNotification(ctx, sampleNotification("order_request:15"))
	if err != nil {
		t.Fatalf("first append failed: %v", err)
	}
	if !inserted {
		t.Fatalf("expected first append to insert")
	}

	inserted, err = s.AppendNotification(ctx, sampleNotification("order_request:15"))
	if err != nil {
		t.Fatalf("second append failed: %v", err)
	}
	if inserted {
		t.Fatalf("expected repeated dedup key to be ignored")
	}

	list, err := s.Notifications(ctx, model.Identity{Role: model.RoleCraftsman, UserID: 7})
	if err != nil {
		t.Fatalf("querying notifications: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected exactly 1 entry, got %d", len(list))
	}
}

func TestAppendChatNotifiesAgainAfterRead(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	ident := model.Identity{Role: model.RoleCraftsman, UserID: 7}

	chat := sampleNotification("chat:9")
	chat.Kind = model.KindChat

	if _, err := s.AppendNotification(ctx, chat); err != nil {
		t.Fatalf("first append: %v", err)
	}

	// While unread, redelivery still collapses.
	inserted, err := s.AppendNotification(ctx, chat)
	if err != nil {
		t.Fatalf("unread redelivery: %v", err)
	}
	if inserted {
		t.Fatalf("expected unread chat redelivery to be ignored")
	}

	if err := s.MarkAllRead(ctx, ident); err != nil {
		t.Fatalf("mark all read: %v", err)
	}

	// A newer message from the same contact replaces the read entry.
	inserted, err = s.AppendNotification(ctx, chat)
	if err != nil {
		t.Fatalf("post-read append: %v", err)
	}
	if !inserted {
		t.Fatalf("expected a chat message after read to insert a fresh entry")
	}

	list, err := s.Notifications(ctx, ident)
	if err != nil {
		t.Fatalf("querying notifications: %v", err)
	}
	if len(list) != 1 || !list[0].Unread() {
		t.Fatalf("expected one fresh unread entry, got %+v", list)
	}

	// Non-chat kinds stay collapsed even after read.
	request := sampleNotification("order_request:15")
	if _, err := s.AppendNotification(ctx, request); err != nil {
		t.Fatalf("append request: %v", err)
	}
	if err := s.MarkAllRead(ctx, ident); err != nil {
		t.Fatalf("mark all read: %v", err)
	}
	inserted, err = s.AppendNotification(ctx, request)
	if err != nil {
		t.Fatalf("post-read request redelivery: %v", err)
	}
	if inserted {
		t.Fatalf("expected read request redelivery to stay collapsed")
	}
}

func TestNotificationsScopedToIdentity(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	if _, err := s.AppendNotification(ctx, sampleNotification("order_request:15")); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	other, err := s.Notifications(ctx, model.Identity{Role: model.RoleUser, UserID: 7})
	if err != nil {
		t.Fatalf("querying other identity: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("expected other role to see nothing, got %d entries", len(other))
	}

	// The company synonym resolves to the user scope, not the craftsman's.
	n := sampleNotification("chat:3")
	n.RecipientRole = model.RoleCompany
	if _, err := s.AppendNotification(ctx, n); err != nil {
		t.Fatalf("append company notification: %v", err)
	}

	asUser, err := s.Notifications(ctx, model.Identity{Role: model.RoleUser, UserID: 7})
	if err != nil {
		t.Fatalf("querying as user: %v", err)
	}
	if len(asUser) != 1 {
		t.Fatalf("expected company entry visible to user scope, got %d", len(asUser))
	}
}

func TestNotificationsMostRecentFirst(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		n := sampleNotification("order_request:" + key)
		n.SubjectID = key
		if _, err := s.AppendNotification(ctx, n); err != nil {
			t.Fatalf("append %s: %v", key, err)
		}
	}

	list, err := s.Notifications(ctx, model.Identity{Role: model.RoleCraftsman, UserID: 7})
	if err != nil {
		t.Fatalf("querying notifications: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(list))
	}
	if list[0].SubjectID != "c" || list[2].SubjectID != "a" {
		t.Fatalf("expected insertion order newest first, got %s..%s", list[0].SubjectID, list[2].SubjectID)
	}
}

func TestMarkReadOperations(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	ident := model.Identity{Role: model.RoleCraftsman, UserID: 7}

	chat := sampleNotification("chat:9")
	chat.Kind = model.KindChat
	request := sampleNotification("order_request:15")

	if _, err := s.AppendNotification(ctx, chat); err != nil {
		t.Fatalf("append chat: %v", err)
	}
	if _, err := s.AppendNotification(ctx, request); err != nil {
		t.Fatalf("append request: %v", err)
	}

	if err := s.MarkKindRead(ctx, ident, model.KindChat); err != nil {
		t.Fatalf("mark kind read: %v", err)
	}

	count, err := s.UnreadCount(ctx, ident)
	if err != nil {
		t.Fatalf("unread count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 unread after marking chat kind, got %d", count)
	}

	if err := s.MarkAllRead(ctx, ident); err != nil {
		t.Fatalf("mark all read: %v", err)
	}
	count, err = s.UnreadCount(ctx, ident)
	if err != nil {
		t.Fatalf("unread count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 unread after mark all, got %d", count)
	}
}

func TestClearRemovesOnlyIdentity(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	mine := sampleNotification("order_request:15")
	theirs := sampleNotification("order_request:16")
	theirs.RecipientID = 8

	if _, err := s.AppendNotification(ctx, mine); err != nil {
		t.Fatalf("append mine: %v", err)
	}
	if _, err := s.AppendNotification(ctx, theirs); err != nil {
		t.Fatalf("append theirs: %v", err)
	}

	if err := s.Clear(ctx, model.Identity{Role: model.RoleCraftsman, UserID: 7}); err != nil {
		t.Fatalf("clear: %v", err)
	}

	left, err := s.Notifications(ctx, model.Identity{Role: model.RoleCraftsman, UserID: 8})
	if err != nil {
		t.Fatalf("querying survivor: %v", err)
	}
	if len(left) != 1 {
		t.Fatalf("expected the other identity's entry to survive, got %d", len(left))
	}
}
