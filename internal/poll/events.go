package poll

import (
	"fmt"
	"time"

	"github.com/craftlink/craftlink/internal/event"
	"github.com/craftlink/craftlink/internal/model"
)

// requestCreatedEvent synthesizes the notification event for a service
// request that appeared since the previous snapshot.
func requestCreatedEvent(req model.ServiceRequest, id model.Identity) event.Event {
	title := "New service request"
	message := fmt.Sprintf("Service request #%d was placed", req.ID)
	if req.CustomerName != "" {
		message = fmt.Sprintf("%s placed a service request", req.CustomerName)
	}
	return event.Event{
		Kind: model.KindOrderRequest,
		Payload: event.Payload{
			SubjectID:     fmt.Sprintf("%d", req.ID),
			Title:         title,
			Message:       message,
			RecipientID:   id.UserID,
			RecipientRole: model.NormalizeRole(id.Role),
			SenderName:    req.CustomerName,
			Variant:       model.VariantInfo,
			NewStatus:     req.Status,
			CreatedAt:     time.Now(),
		},
	}
}

// requestUpdatedEvent synthesizes the notification event for a tracked
// status transition observed between snapshots.
func requestUpdatedEvent(prev, curr model.ServiceRequest, id model.Identity) event.Event {
	return event.Event{
		Kind: model.KindOrderStatus,
		Payload: event.Payload{
			SubjectID: fmt.Sprintf("%d", curr.ID),
			Title:     "Service request updated",
			Message: fmt.Sprintf(
				"Request #%d moved from %s to %s", curr.ID, prev.Status, curr.Status,
			),
			RecipientID:   id.UserID,
			RecipientRole: model.NormalizeRole(id.Role),
			Variant:       statusVariant(curr.Status),
			OldStatus:     prev.Status,
			NewStatus:     curr.Status,
			CreatedAt:     time.Now(),
		},
	}
}

// chatDeltaEvent synthesizes the chat notification for a contact whose
// unread counter grew. The subject is the contact ID, matching how the
// normalizer keys push-delivered chat events, so a message already seen on
// the push channel collapses on the dedup key.
func chatDeltaEvent(c model.Contact, id model.Identity) event.Event {
	return event.Event{
		Kind: model.KindChat,
		Payload: event.Payload{
			SubjectID:     fmt.Sprintf("%d", c.ID),
			Title:         "New message",
			Message:       fmt.Sprintf("New message from %s", c.Name),
			RecipientID:   id.UserID,
			RecipientRole: model.NormalizeRole(id.Role),
			SenderID:      c.ID,
			SenderName:    c.Name,
			Variant:       model.VariantInfo,
			CreatedAt:     time.Now(),
		},
	}
}

// statusVariant maps a service-request status to a presentation tone.
func statusVariant(status string) model.Variant {
	switch status {
	case "accepted", "completed", "done":
		return model.VariantSuccess
	case "rejected", "cancelled":
		return model.VariantError
	default:
		return model.VariantInfo
	}
}
