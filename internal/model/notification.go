package model

import "time"

// Kind classifies the domain event a notification describes.
type Kind string

const (
	KindChat          Kind = "chat"
	KindOrderRequest  Kind = "order_request"
	KindOrderStatus   Kind = "order_status"
	KindRegistration  Kind = "registration"
	KindReview        Kind = "review"
	KindProduct       Kind = "product"
	KindProfileUpdate Kind = "profile_update"
	KindAccountStatus Kind = "account_status"
	KindSystem        Kind = "system"
)

// Variant selects the presentation tone for a notification.
type Variant string

const (
	VariantInfo    Variant = "info"
	VariantSuccess Variant = "success"
	VariantWarning Variant = "warning"
	VariantError   Variant = "error"
)

// Status is the read state of a single notification. Transitions are
// monotonic: unread → read, never back.
type Status string

const (
	StatusUnread Status = "unread"
	StatusRead   Status = "read"
)

// Notification is one entry in the local notification ledger, scoped to the
// recipient identity it was addressed to.
type Notification struct {
	// ID is the locally generated unique identifier.
	ID string `db:"id" json:"id"`

	// DedupKey collapses repeated deliveries of the same logical event.
	// It is derived from Kind and SubjectID (or a content hash when the
	// subject is unknown) and must be computed identically on every
	// delivery path.
	DedupKey string `db:"dedup_key" json:"-"`

	Kind    Kind   `db:"kind" json:"kind"`
	Title   string `db:"title" json:"title"`
	Message string `db:"message" json:"message"`

	// SubjectID references the domain object the event is about
	// (a message, service request, review, ...). May be empty for
	// free-text broadcasts.
	SubjectID string `db:"subject_id" json:"subject_id"`

	RecipientID   int64   `db:"recipient_id" json:"recipient_id"`
	RecipientRole Role    `db:"recipient_role" json:"recipient_type"`
	Variant       Variant `db:"variant" json:"variant"`
	Status        Status  `db:"status" json:"status"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Unread reports whether the notification has not been read yet.
func (n Notification) Unread() bool {
	return n.Status == StatusUnread
}
