package api

import (
	"context"

	"github.com/craftlink/craftlink/internal/model"
)

// RoleBinding fixes the role-specific chat endpoints of a Client, so the
// conversation sync engine can be written once and instantiated per role.
type RoleBinding struct {
	client *Client
	role   model.Role
}

// BindingFor returns the chat endpoint binding for the given role.
func (c *Client) BindingFor(role model.Role) *RoleBinding {
	return &RoleBinding{client: c, role: role}
}

// Contacts fetches the role's contact list with unread counters.
func (b *RoleBinding) Contacts(ctx context.Context) ([]model.Contact, error) {
	return b.client.Contacts(ctx, b.role)
}

// Messages fetches the conversation with one contact.
func (b *RoleBinding) Messages(ctx context.Context, contactID int64) ([]model.Message, error) {
	return b.client.Messages(ctx, b.role, contactID)
}

// MarkRead marks the contact's messages to us as read on the server.
func (b *RoleBinding) MarkRead(ctx context.Context, contactID int64) error {
	return b.client.MarkMessagesRead(ctx, b.role, contactID)
}

// Send submits an outgoing message.
func (b *RoleBinding) Send(ctx context.Context, out OutgoingMessage) (model.Message, error) {
	return b.client.SendMessage(ctx, b.role, out)
}
