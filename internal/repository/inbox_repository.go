package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/plantops/escalation-service/internal/domain"
)

// InboxRepository persists per-recipient notification entries. Insert is
// idempotent on the entry id so retried fanout never duplicates rows, and
// the unread count is always computed, never cached.
type InboxRepository interface {
	Insert(ctx context.Context, entry *domain.InboxEntry) (inserted bool, err error)
	ListByRecipient(ctx context.Context, recipientID string, limit, offset int) ([]domain.InboxEntry, error)
	CountUnread(ctx context.Context, recipientID string) (int64, error)
	MarkRead(ctx context.Context, recipientID, entryID string) error
	MarkAllRead(ctx context.Context, recipientID string) error
	Delete(ctx context.Context, recipientID, entryID string) error
	Clear(ctx context.Context, recipientID string) error
}

type inboxRepository struct {
	q Querier
}

// NewInboxRepository instantiates repository.
func NewInboxRepository(q Querier) InboxRepository {
	return &inboxRepository{q: q}
}

func (r *inboxRepository) Insert(ctx context.Context, entry *domain.InboxEntry) (bool, error) {
	const query = `
        INSERT INTO notification_inbox (id, recipient_id, ticket_id, event_id, title, message, level, read, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,FALSE,$8)
        ON CONFLICT (id) DO NOTHING`
	cmd, err := r.q.Exec(ctx, query,
		entry.ID,
		entry.RecipientID,
		entry.TicketID,
		entry.EventID,
		entry.Title,
		entry.Message,
		entry.Level,
		entry.CreatedAt,
	)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *inboxRepository) ListByRecipient(ctx context.Context, recipientID string, limit, offset int) ([]domain.InboxEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, recipient_id, ticket_id, event_id, title, message, level, read, created_at
        FROM notification_inbox WHERE recipient_id=$1
        ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, recipientID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.InboxEntry
	for rows.Next() {
		var entry domain.InboxEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.RecipientID,
			&entry.TicketID,
			&entry.EventID,
			&entry.Title,
			&entry.Message,
			&entry.Level,
			&entry.Read,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

func (r *inboxRepository) CountUnread(ctx context.Context, recipientID string) (int64, error) {
	const query = `SELECT COUNT(*) FROM notification_inbox WHERE recipient_id=$1 AND read=FALSE`
	var count int64
	if err := r.q.QueryRow(ctx, query, recipientID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// MarkRead flips read to true. The false->true direction is the only legal
// one, enforced by never writing FALSE here.
func (r *inboxRepository) MarkRead(ctx context.Context, recipientID, entryID string) error {
	const query = `UPDATE notification_inbox SET read=TRUE WHERE id=$1 AND recipient_id=$2`
	cmd, err := r.q.Exec(ctx, query, entryID, recipientID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *inboxRepository) MarkAllRead(ctx context.Context, recipientID string) error {
	const query = `UPDATE notification_inbox SET read=TRUE WHERE recipient_id=$1 AND read=FALSE`
	_, err := r.q.Exec(ctx, query, recipientID)
	return err
}

func (r *inboxRepository) Delete(ctx context.Context, recipientID, entryID string) error {
	const query = `DELETE FROM notification_inbox WHERE id=$1 AND recipient_id=$2`
	cmd, err := r.q.Exec(ctx, query, entryID, recipientID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *inboxRepository) Clear(ctx context.Context, recipientID string) error {
	const query = `DELETE FROM notification_inbox WHERE recipient_id=$1`
	_, err := r.q.Exec(ctx, query, recipientID)
	return err
}
