package domain

import "time"

// TimelineEventType captures what happened to a ticket.
type TimelineEventType string

const (
	EventTypeCreated               TimelineEventType = "created"
	EventTypeCommented             TimelineEventType = "commented"
	EventTypeStatusChanged         TimelineEventType = "status_changed"
	EventTypeForwardedToCompany    TimelineEventType = "forwarded_to_company"
	EventTypeForwardedToSuperadmin TimelineEventType = "forwarded_to_superadmin"
	EventTypeUpdated               TimelineEventType = "updated"
)

// ForwardEventType maps an escalation target to its timeline event type.
func ForwardEventType(target TicketLevel) TimelineEventType {
	if target == LevelSuperadmin {
		return EventTypeForwardedToSuperadmin
	}
	return EventTypeForwardedToCompany
}

// TimelineEvent is an immutable audit trail entry. Entries are never mutated
// or deleted; ordering is CreatedAt then insertion sequence.
type TimelineEvent struct {
	ID        string
	Seq       int64
	TicketID  string
	EventType TimelineEventType
	ActorID   string
	Message   *string
	CreatedAt time.Time
}

// Comment is a ticket thread entry authored by an actor. Lifetime equals the
// ticket's lifetime.
type Comment struct {
	ID        string
	TicketID  string
	AuthorID  string
	Body      string
	CreatedAt time.Time
}

// Attachment references a file held by the external blob store. Attachments
// are retained with the ticket and never deleted independently.
type Attachment struct {
	ID         string
	TicketID   string
	UploadedBy string
	FileName   string
	URL        string
	SizeBytes  int64
	CreatedAt  time.Time
}
