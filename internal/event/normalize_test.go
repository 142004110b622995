package event

import (
	"encoding/json"
	"testing"

	"github.com/craftlink/craftlink/internal/model"
)

func TestNormalizeCanonicalName(t *testing.T) {
	raw := json.RawMessage(`{
		"id": 42,
		"title": "Service request updated",
		"message": "Request moved",
		"recipient_id": 7,
		"recipient_type": "craftsman",
		"old_status": "pending",
		"new_status": "accepted"
	}`)

	ev, ok := Normalize("order.status.updated", raw)
	if !ok {
		t.Fatalf("expected canonical event name to normalize")
	}
	if ev.Kind != model.KindOrderStatus {
		t.Fatalf("expected kind %s, got %s", model.KindOrderStatus, ev.Kind)
	}
	if ev.Payload.SubjectID != "42" {
		t.Fatalf("expected subject 42, got %q", ev.Payload.SubjectID)
	}
	if ev.Payload.RecipientID != 7 || ev.Payload.RecipientRole != model.RoleCraftsman {
		t.Fatalf("unexpected recipient: %+v", ev.Payload)
	}
	if ev.Payload.OldStatus != "pending" || ev.Payload.NewStatus != "accepted" {
		t.Fatalf("unexpected status transition: %+v", ev.Payload)
	}
}

func TestNormalizeLegacyAliasesMapToSameKind(t *testing.T) {
	raw := json.RawMessage(`{"id": 1, "recipient_id": 2, "recipient_type": "user"}`)

	aliases := []string{"chat.message.created", "message.sent", "new_message"}
	for _, name := range aliases {
		ev, ok := Normalize(name, raw)
		if !ok {
			t.Fatalf("alias %q was not recognized", name)
		}
		if ev.Kind != model.KindChat {
			t.Fatalf("alias %q: expected kind %s, got %s", name, model.KindChat, ev.Kind)
		}
	}
}

func TestNormalizeUnwrapsNestedEnvelopes(t *testing.T) {
	raw := json.RawMessage(`{"data": {"notification": {
		"id": 9,
		"title": "New review",
		"recipient_id": 3,
		"recipient_type": "company"
	}}}`)

	ev, ok := Normalize("review.created", raw)
	if !ok {
		t.Fatalf("expected wrapped payload to normalize")
	}
	if ev.Payload.SubjectID != "9" {
		t.Fatalf("expected unwrapped subject 9, got %q", ev.Payload.SubjectID)
	}
	if ev.Payload.RecipientRole != model.RoleCompany {
		t.Fatalf("expected company recipient, got %s", ev.Payload.RecipientRole)
	}
}

func TestNormalizeUnknownNameDropped(t *testing.T) {
	if _, ok := Normalize("totally.unknown", json.RawMessage(`{"id": 1}`)); ok {
		t.Fatalf("expected unknown event name to be dropped")
	}
}

func TestNormalizeBroadcastClassifiedBySubstring(t *testing.T) {
	cases := []struct {
		message string
		want    model.Kind
	}{
		{"You have a new message from Alice", model.KindChat},
		{"A review was left on your profile page", model.KindReview},
		{"Your request was declined", model.KindOrderRequest},
		{"Account suspended pending verification", model.KindAccountStatus},
	}

	for _, tc := range cases {
		raw, _ := json.Marshal(map[string]interface{}{
			"message":        tc.message,
			"recipient_id":   5,
			"recipient_type": "user",
		})
		ev, ok := Normalize("notification.broadcast", raw)
		if !ok {
			t.Fatalf("broadcast %q was dropped", tc.message)
		}
		if ev.Kind != tc.want {
			t.Fatalf("broadcast %q: expected %s, got %s", tc.message, tc.want, ev.Kind)
		}
	}
}

func TestNormalizeBroadcastWithoutRecognizableContentDropped(t *testing.T) {
	raw := json.RawMessage(`{"message": "lorem ipsum dolor", "recipient_id": 5, "recipient_type": "user"}`)
	if _, ok := Normalize("notification.broadcast", raw); ok {
		t.Fatalf("expected unclassifiable broadcast to be dropped")
	}
}

func TestNormalizeChatSubjectIsSender(t *testing.T) {
	raw := json.RawMessage(`{
		"id": 1001,
		"sender_id": 7,
		"sender_name": "Bob",
		"recipient_id": 2,
		"recipient_type": "user"
	}`)

	ev, ok := Normalize("chat.message.created", raw)
	if !ok {
		t.Fatalf("expected chat event to normalize")
	}
	// The polling fallback only sees unread counters per contact, so both
	// paths key chat events by the counterparty, not the message.
	if ev.Payload.SubjectID != "7" {
		t.Fatalf("expected chat subject to be sender 7, got %q", ev.Payload.SubjectID)
	}
}

func TestNormalizeStringNumericIDs(t *testing.T) {
	raw := json.RawMessage(`{"id": "15", "recipient_id": "3", "recipient_type": "worker"}`)

	ev, ok := Normalize("service_request.created", raw)
	if !ok {
		t.Fatalf("expected event with string IDs to normalize")
	}
	if ev.Payload.SubjectID != "15" || ev.Payload.RecipientID != 3 {
		t.Fatalf("unexpected IDs: %+v", ev.Payload)
	}
}

func TestNormalizeUndecodablePayloadDropped(t *testing.T) {
	if _, ok := Normalize("review.created", json.RawMessage(`"just a string"`)); ok {
		t.Fatalf("expected undecodable payload to be dropped silently")
	}
}
