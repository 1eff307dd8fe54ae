package repository

import (
	"context"

	"github.com/plantops/escalation-service/internal/domain"
)

// AttachmentRepository persists attachment metadata. Rows are soft-retained
// with the ticket; there is no delete.
type AttachmentRepository interface {
	Create(ctx context.Context, attachment *domain.Attachment) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Attachment, error)
}

type attachmentRepository struct {
	q Querier
}

// NewAttachmentRepository instantiates repository.
func NewAttachmentRepository(q Querier) AttachmentRepository {
	return &attachmentRepository{q: q}
}

func (r *attachmentRepository) Create(ctx context.Context, attachment *domain.Attachment) error {
	const query = `
        INSERT INTO attachments (ticket_id, uploaded_by, file_name, url, size_bytes, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id`
	return r.q.QueryRow(ctx, query,
		attachment.TicketID,
		attachment.UploadedBy,
		attachment.FileName,
		attachment.URL,
		attachment.SizeBytes,
		attachment.CreatedAt,
	).Scan(&attachment.ID)
}

func (r *attachmentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Attachment, error) {
	const query = `
        SELECT id, ticket_id, uploaded_by, file_name, url, size_bytes, created_at
        FROM attachments WHERE ticket_id=$1
        ORDER BY created_at ASC, id ASC`
	rows, err := r.q.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Attachment
	for rows.Next() {
		var attachment domain.Attachment
		if err := rows.Scan(
			&attachment.ID,
			&attachment.TicketID,
			&attachment.UploadedBy,
			&attachment.FileName,
			&attachment.URL,
			&attachment.SizeBytes,
			&attachment.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, attachment)
	}
	return result, rows.Err()
}
