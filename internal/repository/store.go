package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/plantops/escalation-service/internal/domain"
)

// Store aggregates the repositories and provides the per-ticket transaction
// boundary. WithTicket loads the ticket under its row lock and runs fn with a
// transaction-scoped Store: ticket update, timeline append and inbox writes
// either all commit or none do, and concurrent mutations of the same ticket
// serialize behind the lock. Different tickets proceed in parallel.
type Store interface {
	Tickets() TicketRepository
	Timeline() TimelineRepository
	Comments() CommentRepository
	Attachments() AttachmentRepository
	Inbox() InboxRepository
	WithTicket(ctx context.Context, ticketID string, fn func(ctx context.Context, s Store, t *domain.Ticket) error) error
	WithTx(ctx context.Context, fn func(ctx context.Context, s Store) error) error
}

type pgStore struct {
	q    Querier
	pool *pgxpool.Pool
}

// NewStore builds a pool-backed Store.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{q: pool, pool: pool}
}

func (s *pgStore) Tickets() TicketRepository         { return NewTicketRepository(s.q) }
func (s *pgStore) Timeline() TimelineRepository      { return NewTimelineRepository(s.q) }
func (s *pgStore) Comments() CommentRepository       { return NewCommentRepository(s.q) }
func (s *pgStore) Attachments() AttachmentRepository { return NewAttachmentRepository(s.q) }
func (s *pgStore) Inbox() InboxRepository            { return NewInboxRepository(s.q) }

func (s *pgStore) WithTx(ctx context.Context, fn func(ctx context.Context, s Store) error) error {
	if s.pool == nil {
		// already inside a transaction
		return fn(ctx, s)
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &pgStore{q: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *pgStore) WithTicket(ctx context.Context, ticketID string, fn func(ctx context.Context, s Store, t *domain.Ticket) error) error {
	return s.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		ticket, err := txStore.Tickets().GetForUpdate(ctx, ticketID)
		if err != nil {
			return err
		}
		return fn(ctx, txStore, ticket)
	})
}
