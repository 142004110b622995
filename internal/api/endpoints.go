package api

import (
	"context"
	"fmt"
	"time"

	"github.com/craftlink/craftlink/internal/model"
)

// chatScope returns the legacy path segment the backend uses for a role's
// chat resources: craftsman conversations live under "worker".
func chatScope(role model.Role) string {
	if model.NormalizeRole(role) == model.RoleCraftsman {
		return "worker"
	}
	return "user"
}

// wireContact is the contact record as returned by the chats endpoints.
type wireContact struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Avatar      string `json:"avatar"`
	UnreadCount int    `json:"unread_count"`
}

// wireMessage is the message record as returned by the messages endpoint.
type wireMessage struct {
	ID         int64  `json:"id"`
	SenderID   int64  `json:"sender_id"`
	ReceiverID int64  `json:"receiver_id"`
	Kind       string `json:"kind"`
	Body       string `json:"body"`
	MediaRef   string `json:"media_ref"`
	IsRead     bool   `json:"is_read"`
	CreatedAt  string `json:"created_at"`
}

// OutgoingMessage is the payload for sending a chat message. Exactly one of
// Body or MediaRef is set, depending on Kind.
type OutgoingMessage struct {
	ReceiverID int64             `json:"receiver_id"`
	Kind       model.MessageKind `json:"kind"`
	Body       string            `json:"body,omitempty"`
	MediaRef   string            `json:"media_ref,omitempty"`
}

// MyServiceRequests fetches the service requests the current identity has
// placed (the customer-side list).
func (c *Client) MyServiceRequests(ctx context.Context) ([]model.ServiceRequest, error) {
	var out []model.ServiceRequest
	if err := c.get(ctx, "/api/service-requests/mine", &out); err != nil {
		return nil, fmt.Errorf("fetching my service requests: %w", err)
	}
	return out, nil
}

// IncomingServiceRequests fetches the service requests addressed to the
// current identity (the craftsman-side list).
func (c *Client) IncomingServiceRequests(ctx context.Context) ([]model.ServiceRequest, error) {
	var out []model.ServiceRequest
	if err := c.get(ctx, "/api/service-requests/incoming", &out); err != nil {
		return nil, fmt.Errorf("fetching incoming service requests: %w", err)
	}
	return out, nil
}

// Contacts fetches the role-scoped conversation partner list with per
// contact unread counts.
func (c *Client) Contacts(ctx context.Context, role model.Role) ([]model.Contact, error) {
	var wire []wireContact
	path := fmt.Sprintf("/api/chats/%s", chatScope(role))
	if err := c.get(ctx, path, &wire); err != nil {
		return nil, fmt.Errorf("fetching %s contacts: %w", chatScope(role), err)
	}

	contacts := make([]model.Contact, 0, len(wire))
	for _, w := range wire {
		contacts = append(contacts, model.Contact{
			ID:          w.ID,
			Name:        w.Name,
			Avatar:      w.Avatar,
			UnreadCount: w.UnreadCount,
		})
	}
	return contacts, nil
}

// Messages fetches the conversation between the current identity and the
// given contact.
func (c *Client) Messages(
	ctx context.Context,
	role model.Role,
	contactID int64,
) ([]model.Message, error) {
	var wire []wireMessage
	path := fmt.Sprintf("/api/chats/%s/%d/messages", chatScope(role), contactID)
	if err := c.get(ctx, path, &wire); err != nil {
		return nil, fmt.Errorf("fetching messages for contact %d: %w", contactID, err)
	}

	messages := make([]model.Message, 0, len(wire))
	for _, w := range wire {
		messages = append(messages, model.Message{
			ID:         w.ID,
			SenderID:   w.SenderID,
			ReceiverID: w.ReceiverID,
			Kind:       parseMessageKind(w.Kind),
			Body:       w.Body,
			MediaRef:   w.MediaRef,
			IsRead:     w.IsRead,
			CreatedAt:  parseWireTime(w.CreatedAt),
		})
	}
	return messages, nil
}

// MarkMessagesRead asks the server to mark every message from the contact
// to the current identity as read.
func (c *Client) MarkMessagesRead(
	ctx context.Context,
	role model.Role,
	contactID int64,
) error {
	path := fmt.Sprintf("/api/chats/%s/%d/read", chatScope(role), contactID)
	if err := c.post(ctx, path, nil, nil); err != nil {
		return fmt.Errorf("marking contact %d messages read: %w", contactID, err)
	}
	return nil
}

// SendMessage submits a text, image, or audio message to the contact.
func (c *Client) SendMessage(
	ctx context.Context,
	role model.Role,
	out OutgoingMessage,
) (model.Message, error) {
	var wire wireMessage
	path := fmt.Sprintf("/api/chats/%s/%d/messages", chatScope(role), out.ReceiverID)
	if err := c.post(ctx, path, out, &wire); err != nil {
		return model.Message{}, fmt.Errorf("sending message to contact %d: %w", out.ReceiverID, err)
	}

	return model.Message{
		ID:         wire.ID,
		SenderID:   wire.SenderID,
		ReceiverID: wire.ReceiverID,
		Kind:       parseMessageKind(wire.Kind),
		Body:       wire.Body,
		MediaRef:   wire.MediaRef,
		IsRead:     wire.IsRead,
		CreatedAt:  parseWireTime(wire.CreatedAt),
	}, nil
}

func parseMessageKind(v string) model.MessageKind {
	switch model.MessageKind(v) {
	case model.MessageImage, model.MessageAudio:
		return model.MessageKind(v)
	default:
		return model.MessageText
	}
}

func parseWireTime(v string) time.Time {
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
