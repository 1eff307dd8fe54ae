package dto

import (
	"time"

	"github.com/plantops/escalation-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	PlantID     string                `json:"plant_id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	IsGeneral   bool                  `json:"is_general"`
	Priority    domain.TicketPriority `json:"priority"`
	Tags        []string              `json:"tags"`
}

// PatchTicketRequest updates display fields. Absent fields stay untouched.
type PatchTicketRequest struct {
	Title       *string                `json:"title"`
	Description *string                `json:"description"`
	Priority    *domain.TicketPriority `json:"priority"`
	Tags        []string               `json:"tags"`
}

// SetStatusRequest payload.
type SetStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Body string `json:"body"`
}

// TicketSummary response.
type TicketSummary struct {
	ID                    string                `json:"id"`
	PlantID               string                `json:"plant_id"`
	CompanyID             *string               `json:"company_id"`
	CreatedBy             string                `json:"created_by"`
	Title                 string                `json:"title"`
	IsGeneral             bool                  `json:"is_general"`
	Level                 domain.TicketLevel    `json:"level"`
	Status                domain.TicketStatus   `json:"status"`
	Priority              domain.TicketPriority `json:"priority"`
	Tags                  []string              `json:"tags"`
	CreatedAt             time.Time             `json:"created_at"`
	LastActivityAt        time.Time             `json:"last_activity_at"`
	SLAResponseDeadline   time.Time             `json:"sla_response_deadline"`
	SLAResolutionDeadline time.Time             `json:"sla_resolution_deadline"`
}

// TicketDetailResponse provides full ticket info with thread and timeline.
type TicketDetailResponse struct {
	TicketSummary
	Description     string                  `json:"description"`
	FirstResponseAt *time.Time              `json:"first_response_at"`
	ResolvedAt      *time.Time              `json:"resolved_at"`
	ClosedAt        *time.Time              `json:"closed_at"`
	Comments        []CommentResponse       `json:"comments"`
	Timeline        []TimelineEventResponse `json:"timeline"`
}

// CommentResponse represents a thread entry.
type CommentResponse struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// TimelineEventResponse represents one timeline record.
type TimelineEventResponse struct {
	ID        string                   `json:"id"`
	Seq       int64                    `json:"seq"`
	EventType domain.TimelineEventType `json:"event_type"`
	ActorID   string                   `json:"actor_id"`
	Message   *string                  `json:"message,omitempty"`
	CreatedAt time.Time                `json:"created_at"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID         string    `json:"id"`
	FileName   string    `json:"file_name"`
	UploadedBy string    `json:"uploaded_by"`
	URL        string    `json:"url"`
	SizeBytes  int64     `json:"size_bytes"`
	CreatedAt  time.Time `json:"created_at"`
}
