package event

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/craftlink/craftlink/internal/model"
)

// wrapperKeys are the envelope fields the broker has historically nested
// payloads under.
var wrapperKeys = []string{"data", "notification", "payload"}

// flexID decodes a numeric identifier that may arrive as a JSON number or
// a JSON string, a drift the broker never settled.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" {
		s = ""
	}
	*f = flexID(s)
	return nil
}

// wirePayload is the union of field spellings observed on the wire.
type wirePayload struct {
	ID        flexID `json:"id"`
	SubjectID flexID `json:"subject_id"`

	Title   string `json:"title"`
	Message string `json:"message"`
	Body    string `json:"body"`

	RecipientID   flexID `json:"recipient_id"`
	UserID        flexID `json:"user_id"`
	RecipientType string `json:"recipient_type"`
	Role          string `json:"role"`

	SenderID   flexID `json:"sender_id"`
	SenderName string `json:"sender_name"`
	Variant    string `json:"variant"`

	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
	Status    string `json:"status"`

	CreatedAt string `json:"created_at"`
}

// Normalize unwraps a raw event delivered under the given name into the
// canonical {kind, payload} shape. The boolean result reports whether the
// event was recognized; unrecognized or undecodable events are dropped
// silently, never surfaced as errors.
func Normalize(name string, raw json.RawMessage) (Event, bool) {
	kind, known := kindAliases[name]
	broadcast := broadcastAliases[name]
	if !known && !broadcast {
		return Event{}, false
	}

	body := unwrap(raw)

	var wire wirePayload
	if err := json.Unmarshal(body, &wire); err != nil {
		return Event{}, false
	}

	p := Payload{
		SubjectID:     firstFlexID(wire.SubjectID, wire.ID),
		Title:         wire.Title,
		Message:       firstString(wire.Message, wire.Body),
		RecipientID:   parseID(wire.RecipientID, wire.UserID),
		RecipientRole: model.Role(firstString(wire.RecipientType, wire.Role)),
		SenderID:      parseID(wire.SenderID),
		SenderName:    wire.SenderName,
		Variant:       parseVariant(wire.Variant),
		OldStatus:     wire.OldStatus,
		NewStatus:     firstString(wire.NewStatus, wire.Status),
		CreatedAt:     parseTime(wire.CreatedAt),
	}

	if broadcast {
		resolved, ok := classifyBroadcast(p.Title + " " + p.Message)
		if !ok {
			return Event{}, false
		}
		kind = resolved
	}

	// Chat events are deduplicated per counterparty, because the polling
	// fallback observes only unread counters, never message IDs. Both
	// delivery paths must agree on the subject.
	if kind == model.KindChat && p.SenderID != 0 {
		p.SubjectID = fmt.Sprintf("%d", p.SenderID)
	}

	return Event{Kind: kind, Payload: p}, true
}

// unwrap descends through known envelope keys until the innermost object
// is reached. A payload that is not wrapped passes through unchanged.
func unwrap(raw json.RawMessage) json.RawMessage {
	for depth := 0; depth < 3; depth++ {
		var outer map[string]json.RawMessage
		if err := json.Unmarshal(raw, &outer); err != nil {
			return raw
		}

		descended := false
		for _, key := range wrapperKeys {
			inner, ok := outer[key]
			if !ok || len(inner) == 0 || inner[0] != '{' {
				continue
			}
			raw = inner
			descended = true
			break
		}
		if !descended {
			return raw
		}
	}
	return raw
}

// broadcastPatterns map a recognizable substring of a broadcast's free text
// to the kind it implies. Order matters: the first match wins, and more
// specific phrases come before generic ones.
var broadcastPatterns = []struct {
	substr string
	kind   model.Kind
}{
	{"message", model.KindChat},
	{"review", model.KindReview},
	{"registration", model.KindRegistration},
	{"registered", model.KindRegistration},
	{"request", model.KindOrderRequest},
	{"status", model.KindOrderStatus},
	{"product", model.KindProduct},
	{"profile", model.KindProfileUpdate},
	{"account", model.KindAccountStatus},
}

// classifyBroadcast recovers a canonical kind from a generic broadcast's
// free text. Unmatched broadcasts are dropped.
func classifyBroadcast(text string) (model.Kind, bool) {
	lower := strings.ToLower(text)
	for _, p := range broadcastPatterns {
		if strings.Contains(lower, p.substr) {
			return p.kind, true
		}
	}
	return "", false
}

func firstString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstFlexID(values ...flexID) string {
	for _, v := range values {
		if v != "" {
			return string(v)
		}
	}
	return ""
}

func parseID(values ...flexID) int64 {
	for _, v := range values {
		if v == "" {
			continue
		}
		if id, err := strconv.ParseInt(string(v), 10, 64); err == nil {
			return id
		}
	}
	return 0
}

func parseVariant(v string) model.Variant {
	switch model.Variant(v) {
	case model.VariantSuccess, model.VariantWarning, model.VariantError:
		return model.Variant(v)
	default:
		return model.VariantInfo
	}
}

func parseTime(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}
