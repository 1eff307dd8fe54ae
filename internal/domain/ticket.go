package domain

import "time"

// TicketLevel is the organizational tier currently owning a ticket.
type TicketLevel string

const (
	LevelPlant      TicketLevel = "plant"
	LevelCompany    TicketLevel = "company"
	LevelSuperadmin TicketLevel = "superadmin"
)

var levelRank = map[TicketLevel]int{
	LevelPlant:      0,
	LevelCompany:    1,
	LevelSuperadmin: 2,
}

// Rank orders tiers; higher means closer to superadmin.
func (l TicketLevel) Rank() int {
	return levelRank[l]
}

// Valid reports whether the level is a known tier.
func (l TicketLevel) Valid() bool {
	_, ok := levelRank[l]
	return ok
}

// Next returns the escalation target for the level. Superadmin is terminal.
func (l TicketLevel) Next() (TicketLevel, bool) {
	switch l {
	case LevelPlant:
		return LevelCompany, true
	case LevelCompany:
		return LevelSuperadmin, true
	default:
		return "", false
	}
}

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// allowedTransitions encodes the status machine. Closed is terminal:
// reopening a closed ticket requires a new ticket. Closing is only permitted
// from resolved so resolution is acknowledged before closure.
var allowedTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusOpen:       {TicketStatusInProgress},
	TicketStatusInProgress: {TicketStatusResolved},
	TicketStatusResolved:   {TicketStatusInProgress, TicketStatusClosed},
	TicketStatusClosed:     {},
}

// ValidStatus reports whether s is a known status.
func ValidStatus(s TicketStatus) bool {
	_, ok := allowedTransitions[s]
	return ok
}

// CanTransition reports whether current -> next is a legal status change.
func CanTransition(current, next TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "low"
	TicketPriorityMedium   TicketPriority = "medium"
	TicketPriorityHigh     TicketPriority = "high"
	TicketPriorityCritical TicketPriority = "critical"
)

// ValidPriority reports whether p is a known priority.
func ValidPriority(p TicketPriority) bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityCritical:
		return true
	}
	return false
}

// Ticket is the aggregate for support requests. Level only ever increases
// (plant -> company -> superadmin); a general ticket enters directly at
// superadmin. FirstResponseAt, ResolvedAt and ClosedAt are each set at most
// once.
type Ticket struct {
	ID            string
	PlantID       string
	CompanyID     *string
	CreatedBy     string
	CreatedByTier TicketLevel
	Title         string
	Description   string
	IsGeneral     bool
	Level         TicketLevel
	Status        TicketStatus
	Priority      TicketPriority
	Tags          []string

	CreatedAt             time.Time
	LastActivityAt        time.Time
	SLAResponseDeadline   time.Time
	SLAResolutionDeadline time.Time
	FirstResponseAt       *time.Time
	ResolvedAt            *time.Time
	ClosedAt              *time.Time
}
