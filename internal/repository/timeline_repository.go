package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/plantops/escalation-service/internal/domain"
)

// TimelineRepository persists the append-only event ledger. Entries are never
// updated or deleted; the serial seq column fixes ordering among events with
// equal timestamps.
type TimelineRepository interface {
	Append(ctx context.Context, event *domain.TimelineEvent) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TimelineEvent, error)
	// HasActor reports whether the actor appears anywhere in the ticket's
	// timeline, which makes them a participant for scope purposes.
	HasActor(ctx context.Context, ticketID, actorID string) (bool, error)
}

type timelineRepository struct {
	q Querier
}

// NewTimelineRepository instantiates repository.
func NewTimelineRepository(q Querier) TimelineRepository {
	return &timelineRepository{q: q}
}

func (r *timelineRepository) Append(ctx context.Context, event *domain.TimelineEvent) error {
	const query = `
        INSERT INTO timeline_events (ticket_id, event_type, actor_id, message, created_at)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, seq`
	return r.q.QueryRow(ctx, query,
		event.TicketID,
		event.EventType,
		event.ActorID,
		event.Message,
		event.CreatedAt,
	).Scan(&event.ID, &event.Seq)
}

func (r *timelineRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TimelineEvent, error) {
	const query = `
        SELECT id, seq, ticket_id, event_type, actor_id, message, created_at
        FROM timeline_events WHERE ticket_id=$1
        ORDER BY created_at ASC, seq ASC`
	rows, err := r.q.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTimelineEvents(rows)
}

func (r *timelineRepository) HasActor(ctx context.Context, ticketID, actorID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM timeline_events WHERE ticket_id=$1 AND actor_id=$2)`
	var exists bool
	if err := r.q.QueryRow(ctx, query, ticketID, actorID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func scanTimelineEvents(rows pgx.Rows) ([]domain.TimelineEvent, error) {
	var result []domain.TimelineEvent
	for rows.Next() {
		var event domain.TimelineEvent
		if err := rows.Scan(
			&event.ID,
			&event.Seq,
			&event.TicketID,
			&event.EventType,
			&event.ActorID,
			&event.Message,
			&event.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, event)
	}
	return result, rows.Err()
}
