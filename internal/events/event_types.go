package events

import (
	"time"

	"github.com/plantops/escalation-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketCommented     EventType = "ticket_commented"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketForwarded     EventType = "ticket_forwarded"
	EventTicketUpdated       EventType = "ticket_updated"

	EventTicketAttachmentAdded EventType = "ticket_attachment_added"
)

// TicketScope carries the post-mutation scope of the ticket so fanout can
// compute the notify-set without re-reading the store.
type TicketScope struct {
	Level     domain.TicketLevel `json:"level"`
	PlantID   string             `json:"plant_id"`
	CompanyID *string            `json:"company_id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	ActorID   string      `json:"actor_id"`
	Scope     TicketScope `json:"scope"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title     string                `json:"title"`
	Priority  domain.TicketPriority `json:"priority"`
	IsGeneral bool                  `json:"is_general"`
}

// TicketCommentedPayload payload.
type TicketCommentedPayload struct {
	CommentID   string `json:"comment_id"`
	BodyPreview string `json:"body_preview"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketForwardedPayload payload.
type TicketForwardedPayload struct {
	FromLevel domain.TicketLevel `json:"from_level"`
	ToLevel   domain.TicketLevel `json:"to_level"`
}

// TicketAttachmentAddedPayload payload.
type TicketAttachmentAddedPayload struct {
	AttachmentID string `json:"attachment_id"`
	FileName     string `json:"file_name"`
}

// TicketUpdatedPayload payload.
type TicketUpdatedPayload struct {
	ChangedFields []string `json:"changed_fields"`
}
