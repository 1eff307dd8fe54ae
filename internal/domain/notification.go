package domain

import "time"

// NotificationLevel is the display severity of an inbox entry.
type NotificationLevel string

const (
	NotificationInfo    NotificationLevel = "info"
	NotificationSuccess NotificationLevel = "success"
	NotificationWarning NotificationLevel = "warning"
	NotificationError   NotificationLevel = "error"
)

// InboxEntry is the durable, per-recipient record of one notification event.
// The ID is derived deterministically from the originating event and the
// recipient, so repeated delivery attempts collapse onto a single row. Read
// transitions false -> true only.
type InboxEntry struct {
	ID          string
	RecipientID string
	TicketID    string
	EventID     string
	Title       string
	Message     string
	Level       NotificationLevel
	Read        bool
	CreatedAt   time.Time
}
