package model

import "time"

// MessageKind distinguishes the content carried by a chat message.
type MessageKind string

const (
	MessageText  MessageKind = "text"
	MessageImage MessageKind = "image"
	MessageAudio MessageKind = "audio"
)

// Contact is one conversation partner in a role-scoped contact list.
type Contact struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`

	// UnreadCount is the number of messages from this contact that the
	// current identity has not read. It is zeroed optimistically when the
	// conversation is opened and reconciled against server truth on the
	// next refetch.
	UnreadCount int `json:"unread_count"`
}

// Message is a single chat message between the current identity and a
// contact. The per-conversation message cache is owned exclusively by the
// sync engine of the role it was fetched for.
type Message struct {
	ID         int64       `json:"id"`
	SenderID   int64       `json:"sender_id"`
	ReceiverID int64       `json:"receiver_id"`
	Kind       MessageKind `json:"kind"`

	// Body holds the text content for text messages; MediaRef holds the
	// uploaded media location for image and audio messages.
	Body     string `json:"body"`
	MediaRef string `json:"media_ref"`

	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// ServiceRequest is the polled snapshot record for a service request. Only
// Status is tracked as mutable for diffing purposes.
type ServiceRequest struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	Status       string `json:"status"`
	CustomerName string `json:"customer_name"`
	CraftsmanID  int64  `json:"craftsman_id"`
	UserID       int64  `json:"user_id"`
}
