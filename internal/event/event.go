// Package event converts raw push-channel and polled payloads into a single
// canonical event shape and guards them against the active session identity,
// so downstream stages never see transport- or tenant-specific detail.
package event

import (
	"time"

	"github.com/craftlink/craftlink/internal/model"
)

// Payload is the canonical payload shared by push-delivered and
// poll-synthesized events.
type Payload struct {
	// SubjectID references the domain object the event is about. Empty
	// for free-text broadcasts.
	SubjectID string

	Title   string
	Message string

	RecipientID   int64
	RecipientRole model.Role

	// SenderID and SenderName identify the counterparty, when known.
	SenderID   int64
	SenderName string

	Variant model.Variant

	// OldStatus and NewStatus carry the tracked-field transition for
	// "updated" events synthesized by the polling reconciler.
	OldStatus string
	NewStatus string

	CreatedAt time.Time
}

// Event is the canonical {kind, payload} shape produced by the normalizer
// and consumed by the ledger and the conversation sync engines.
type Event struct {
	Kind    model.Kind
	Payload Payload
}

// kindAliases maps every event name the broker is known to publish,
// canonical and legacy, to its canonical kind. Names missing from this
// table are dropped unless they resolve through the broadcast fallback.
var kindAliases = map[string]model.Kind{
	"chat.message.created": model.KindChat,
	"message.sent":         model.KindChat,
	"new_message":          model.KindChat,

	"order.request.created":   model.KindOrderRequest,
	"service_request.created": model.KindOrderRequest,
	"request.created":         model.KindOrderRequest,

	"order.status.updated":    model.KindOrderStatus,
	"service_request.updated": model.KindOrderStatus,
	"order.updated":           model.KindOrderStatus,

	"review.created":   model.KindReview,
	"review.submitted": model.KindReview,

	"registration.completed": model.KindRegistration,
	"product.created":        model.KindProduct,
	"profile.updated":        model.KindProfileUpdate,
	"account.status.changed": model.KindAccountStatus,
}

// broadcastAliases are the generic fallback event names whose kind must be
// recovered from the payload's free-text content.
var broadcastAliases = map[string]bool{
	"notification.broadcast": true,
	"notification.created":   true,
	"broadcast":              true,
}

// CanonicalNames returns the event names a subscriber should register for,
// covering every alias of every known kind.
func CanonicalNames() []string {
	names := make([]string, 0, len(kindAliases)+len(broadcastAliases))
	for name := range kindAliases {
		names = append(names, name)
	}
	for name := range broadcastAliases {
		names = append(names, name)
	}
	return names
}
