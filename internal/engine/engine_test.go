package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/craftlink/craftlink/internal/event"
	"github.com/craftlink/craftlink/internal/model"
)

// newTestSession opens a session against a stub REST backend serving empty
// lists. The push broker URL points nowhere; dial failures stay internal to
// the transport.
func newTestSession(t *testing.T, identity model.Identity) *Session {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)

	cfg := &model.AppConfig{
		API:     model.APIConfig{BaseURL: srv.URL, TimeoutSec: 5},
		Push:    model.PushConfig{URL: "ws://127.0.0.1:1/ws"},
		Poll:    model.PollConfig{RequestIntervalSec: 3600, ChatIntervalSec: 3600},
		DataDir: t.TempDir(),
	}

	s, err := Open(cfg, identity, "tok", nil, nil)
	if err != nil {
		t.Fatalf("opening session: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestPushAndPollDuplicateCollapses(t *testing.T) {
	identity := model.Identity{Role: model.RoleUser, UserID: 2}
	s := newTestSession(t, identity)
	ctx := context.Background()

	// The same message arrives over the push socket first...
	raw := json.RawMessage(`{
		"id": 1001,
		"sender_id": 3,
		"sender_name": "Bob",
		"message": "New message from Bob",
		"recipient_id": 2,
		"recipient_type": "user"
	}`)
	s.handleRaw("notifications.user.2", "chat.message.created", raw)

	// ...and again as a poll-synthesized delta for the same contact.
	s.Apply(event.Event{
		Kind: model.KindChat,
		Payload: event.Payload{
			SubjectID:     "3",
			Title:         "New message",
			Message:       "New message from Bob",
			RecipientID:   2,
			RecipientRole: model.RoleUser,
			SenderID:      3,
			CreatedAt:     time.Now(),
		},
	})

	if got := len(s.Ledger().Query(ctx)); got != 1 {
		t.Fatalf("expected the duplicate to collapse into one entry, got %d", got)
	}
	if got := s.Ledger().UnreadCount(ctx); got != 1 {
		t.Fatalf("expected one unread notification, got %d", got)
	}
}

func TestGuardFiltersForeignEvents(t *testing.T) {
	identity := model.Identity{Role: model.RoleCompany, UserID: 2}
	s := newTestSession(t, identity)
	ctx := context.Background()

	// Addressed to another account entirely.
	s.Apply(event.Event{
		Kind: model.KindOrderRequest,
		Payload: event.Payload{
			SubjectID:     "5",
			RecipientID:   9,
			RecipientRole: model.RoleUser,
		},
	})
	// Right account, wrong role family.
	s.Apply(event.Event{
		Kind: model.KindOrderRequest,
		Payload: event.Payload{
			SubjectID:     "6",
			RecipientID:   2,
			RecipientRole: model.RoleCraftsman,
		},
	})
	// Role synonym of the session's own role.
	s.Apply(event.Event{
		Kind: model.KindOrderRequest,
		Payload: event.Payload{
			SubjectID:     "7",
			RecipientID:   2,
			RecipientRole: model.RoleUser,
		},
	})

	entries := s.Ledger().Query(ctx)
	if len(entries) != 1 {
		t.Fatalf("expected only the synonym-addressed event, got %d entries", len(entries))
	}
	if entries[0].SubjectID != "7" {
		t.Fatalf("unexpected surviving entry: %+v", entries[0])
	}
}

func TestUnrecognizedPushEventsDropped(t *testing.T) {
	identity := model.Identity{Role: model.RoleUser, UserID: 2}
	s := newTestSession(t, identity)

	s.handleRaw("notifications.user.2", "totally.unknown", json.RawMessage(`{"id": 1}`))
	s.handleRaw("notifications.user.2", "review.created", json.RawMessage(`not json`))

	if got := len(s.Ledger().Query(context.Background())); got != 0 {
		t.Fatalf("expected malformed events to leave no trace, got %d entries", got)
	}
}

func TestChatEventReachesConversationEngine(t *testing.T) {
	identity := model.Identity{Role: model.RoleUser, UserID: 2}
	s := newTestSession(t, identity)

	// No contact cache is loaded, so the counter bump is a no-op, but the
	// ledger entry must still appear: ledger and chat consume independently.
	s.Apply(event.Event{
		Kind: model.KindChat,
		Payload: event.Payload{
			SubjectID:     "3",
			RecipientID:   2,
			RecipientRole: model.RoleUser,
			SenderID:      3,
		},
	})

	if got := s.Ledger().UnreadCount(context.Background()); got != 1 {
		t.Fatalf("expected chat event in the ledger, got %d unread", got)
	}
}

func TestEventsAfterCloseDiscarded(t *testing.T) {
	identity := model.Identity{Role: model.RoleUser, UserID: 2}
	s := newTestSession(t, identity)

	s.Close()

	// A straggler from a slow fetch lands after logout.
	s.Apply(event.Event{
		Kind: model.KindOrderRequest,
		Payload: event.Payload{
			SubjectID:     "5",
			RecipientID:   2,
			RecipientRole: model.RoleUser,
		},
	})

	// Closing twice is safe.
	s.Close()
}

func TestLedgerPersistsAcrossSessions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	identity := model.Identity{Role: model.RoleUser, UserID: 2}
	cfg := &model.AppConfig{
		API:     model.APIConfig{BaseURL: srv.URL, TimeoutSec: 5},
		Push:    model.PushConfig{URL: "ws://127.0.0.1:1/ws"},
		Poll:    model.PollConfig{RequestIntervalSec: 3600, ChatIntervalSec: 3600},
		DataDir: t.TempDir(),
	}

	first, err := Open(cfg, identity, "tok", nil, nil)
	if err != nil {
		t.Fatalf("opening first session: %v", err)
	}
	first.Apply(event.Event{
		Kind: model.KindOrderRequest,
		Payload: event.Payload{
			SubjectID:     "5",
			Title:         "New service request",
			RecipientID:   2,
			RecipientRole: model.RoleUser,
		},
	})
	first.Close()

	second, err := Open(cfg, identity, "tok", nil, nil)
	if err != nil {
		t.Fatalf("opening second session: %v", err)
	}
	defer second.Close()

	entries := second.Ledger().Query(context.Background())
	if len(entries) != 1 || entries[0].SubjectID != "5" {
		t.Fatalf("expected the entry to survive the session boundary, got %+v", entries)
	}

	// The dedup key survives too: redelivery into the new session is a
	// no-op.
	second.Apply(event.Event{
		Kind: model.KindOrderRequest,
		Payload: event.Payload{
			SubjectID:     "5",
			Title:         "New service request",
			RecipientID:   2,
			RecipientRole: model.RoleUser,
		},
	})
	if got := len(second.Ledger().Query(context.Background())); got != 1 {
		t.Fatalf("expected redelivery to collapse, got %d entries", got)
	}
}
