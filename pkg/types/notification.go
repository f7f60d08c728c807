package types

import "time"

type NotificationType string

const (
	NotificationRequestMatch      NotificationType = "request_match"
	NotificationRequestAccepted   NotificationType = "request_accepted"
	NotificationDonationCompleted NotificationType = "donation_completed"
	NotificationRequestExpired    NotificationType = "request_expired"
)

// Realtime event names pushed to connected clients.
const (
	EventNewRequest        = "newRequest"
	EventRequestAccepted   = "requestAccepted"
	EventDonationCompleted = "donationCompleted"
	EventRequestExpired    = "requestExpired"
)

type Notification struct {
	ID        string           `db:"id" json:"id"`
	UserID    string           `db:"user_id" json:"userId"`
	Type      NotificationType `db:"type" json:"type"`
	Title     string           `db:"title" json:"title"`
	Body      string           `db:"body" json:"body"`
	Meta      NotificationMeta `db:"meta" json:"meta"`
	Read      bool             `db:"read" json:"read"`
	CreatedAt time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time        `db:"updated_at" json:"updatedAt"`
}

// NotificationMeta carries the references a notification points at.
// Stored as jsonb.
type NotificationMeta struct {
	RequestID  string     `json:"requestId"`
	DonorID    string     `json:"donorId,omitempty"`
	BloodGroup BloodGroup `json:"bloodGroup,omitempty"`
}
