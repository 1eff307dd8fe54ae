package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/plantops/escalation-service/internal/domain"
	"github.com/plantops/escalation-service/internal/repository"
	apperrors "github.com/plantops/escalation-service/pkg/util"
)

// InboxService exposes the per-user notification inbox. The unread count is
// always computed from the store; clients may cache it but never own it.
type InboxService struct {
	store repository.Store
}

// NewInboxService constructs the service.
func NewInboxService(store repository.Store) *InboxService {
	return &InboxService{store: store}
}

// List returns a page of entries plus the authoritative unread count.
func (s *InboxService) List(ctx context.Context, userID string, limit, offset int) ([]domain.InboxEntry, int64, error) {
	items, err := s.store.Inbox().ListByRecipient(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, apperrors.MapError(err)
	}
	unread, err := s.store.Inbox().CountUnread(ctx, userID)
	if err != nil {
		return nil, 0, apperrors.MapError(err)
	}
	return items, unread, nil
}

// MarkRead flips one entry to read.
func (s *InboxService) MarkRead(ctx context.Context, userID, entryID string) error {
	if err := s.store.Inbox().MarkRead(ctx, userID, entryID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("notification", nil)
		}
		return apperrors.MapError(err)
	}
	return nil
}

// MarkAllRead flips every unread entry for the user.
func (s *InboxService) MarkAllRead(ctx context.Context, userID string) error {
	if err := s.store.Inbox().MarkAllRead(ctx, userID); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// Delete removes one entry.
func (s *InboxService) Delete(ctx context.Context, userID, entryID string) error {
	if err := s.store.Inbox().Delete(ctx, userID, entryID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("notification", nil)
		}
		return apperrors.MapError(err)
	}
	return nil
}

// Clear removes every entry for the user.
func (s *InboxService) Clear(ctx context.Context, userID string) error {
	if err := s.store.Inbox().Clear(ctx, userID); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}
