package dto

import (
	"time"

	"github.com/plantops/escalation-service/internal/domain"
)

// InboxEntryResponse represents one delivered notification.
type InboxEntryResponse struct {
	ID        string                   `json:"id"`
	TicketID  string                   `json:"ticket_id"`
	Title     string                   `json:"title"`
	Message   string                   `json:"message"`
	Level     domain.NotificationLevel `json:"level"`
	Read      bool                     `json:"read"`
	CreatedAt time.Time                `json:"created_at"`
}

// InboxListResponse pairs entries with the unread count.
type InboxListResponse struct {
	Items       []InboxEntryResponse `json:"items"`
	UnreadCount int64                `json:"unread_count"`
}
