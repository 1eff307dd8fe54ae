package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/plantops/escalation-service/internal/directory"
	"github.com/plantops/escalation-service/internal/domain"
	"github.com/plantops/escalation-service/internal/events"
	"github.com/plantops/escalation-service/internal/realtime"
	"github.com/plantops/escalation-service/internal/repository"
	apperrors "github.com/plantops/escalation-service/pkg/util"
)

// notificationNamespace seeds the deterministic inbox entry ids. One event
// delivered twice to the same recipient collapses onto one row.
var notificationNamespace = uuid.MustParse("7c9e4b2a-3f1d-4e8a-9c6b-2d5f8a1e4b7c")

// StableNotificationID derives the idempotent inbox entry id for an
// event/recipient pair.
func StableNotificationID(eventID, recipientID string) string {
	return uuid.NewSHA1(notificationNamespace, []byte(eventID+":"+recipientID)).String()
}

// NotificationService is the fanout engine: for each state-changing ticket
// event it computes the notify-set, persists one inbox row per recipient
// (at-least-once, idempotent) and attempts a best-effort realtime push. Push
// failures degrade delivery but never fail the triggering write.
type NotificationService struct {
	store  repository.Store
	dir    directory.Directory
	pusher realtime.Pusher
	logger *zap.Logger
	now    func() time.Time
}

// NewNotificationService creates the service.
func NewNotificationService(store repository.Store, dir directory.Directory, pusher realtime.Pusher, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		store:  store,
		dir:    dir,
		pusher: pusher,
		logger: logger,
		now:    time.Now,
	}
}

// RegisterHandlers subscribes the fanout to each trigger point: creation,
// comment, attachment, status change, forward.
func (n *NotificationService) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.Subscribe(events.EventTicketCreated, n.Fanout)
	dispatcher.Subscribe(events.EventTicketCommented, n.Fanout)
	dispatcher.Subscribe(events.EventTicketAttachmentAdded, n.Fanout)
	dispatcher.Subscribe(events.EventTicketStatusChanged, n.Fanout)
	dispatcher.Subscribe(events.EventTicketForwarded, n.Fanout)
}

// pushMessage is the wire shape of a realtime notification.
type pushMessage struct {
	ID       string                   `json:"id"`
	TicketID string                   `json:"ticket_id"`
	EventID  string                   `json:"event_id"`
	Type     events.EventType         `json:"type"`
	Title    string                   `json:"title"`
	Message  string                   `json:"message"`
	Level    domain.NotificationLevel `json:"level"`
}

// Fanout delivers one event to its notify-set. Failures for one recipient
// never block delivery to the others.
func (n *NotificationService) Fanout(ctx context.Context, event events.Event) error {
	title, message, level := renderNotification(event)

	recipients, err := n.dir.NotifySet(ctx, event.Scope.Level, event.Scope.PlantID, event.Scope.CompanyID)
	if err != nil {
		n.logger.Error("notify-set lookup failed",
			zap.String("ticket_id", event.TicketID),
			zap.String("event_id", event.ID),
			zap.Error(err))
		return err
	}

	for _, recipientID := range recipients {
		if recipientID == event.ActorID {
			continue
		}
		entry := &domain.InboxEntry{
			ID:          StableNotificationID(event.ID, recipientID),
			RecipientID: recipientID,
			TicketID:    event.TicketID,
			EventID:     event.ID,
			Title:       title,
			Message:     message,
			Level:       level,
			CreatedAt:   n.now(),
		}
		if _, err := n.store.Inbox().Insert(ctx, entry); err != nil {
			n.logger.Error("inbox write failed",
				zap.String("recipient_id", recipientID),
				zap.String("event_id", event.ID),
				zap.Error(err))
			continue
		}

		payload, err := json.Marshal(pushMessage{
			ID:       entry.ID,
			TicketID: event.TicketID,
			EventID:  event.ID,
			Type:     event.Type,
			Title:    title,
			Message:  message,
			Level:    level,
		})
		if err != nil {
			continue
		}
		if err := n.pusher.Push(ctx, recipientID, payload); err != nil {
			// inbox row is durable; the client re-hydrates on reconnect
			n.logger.Warn("realtime push failed",
				zap.String("recipient_id", recipientID),
				zap.String("event_id", event.ID),
				zap.NamedError("reason", apperrors.ErrDeliveryDegraded),
				zap.Error(err))
		}
	}
	return nil
}

func renderNotification(event events.Event) (title, message string, level domain.NotificationLevel) {
	switch event.Type {
	case events.EventTicketCreated:
		payload, _ := event.Payload.(events.TicketCreatedPayload)
		return "New support ticket", payload.Title, domain.NotificationInfo
	case events.EventTicketCommented:
		payload, _ := event.Payload.(events.TicketCommentedPayload)
		return "New comment", payload.BodyPreview, domain.NotificationInfo
	case events.EventTicketStatusChanged:
		payload, _ := event.Payload.(events.TicketStatusChangedPayload)
		message := fmt.Sprintf("Status changed: %s -> %s", payload.OldStatus, payload.NewStatus)
		if payload.NewStatus == domain.TicketStatusResolved {
			return "Ticket resolved", message, domain.NotificationSuccess
		}
		return "Ticket status changed", message, domain.NotificationInfo
	case events.EventTicketAttachmentAdded:
		payload, _ := event.Payload.(events.TicketAttachmentAddedPayload)
		return "New attachment", payload.FileName, domain.NotificationInfo
	case events.EventTicketForwarded:
		payload, _ := event.Payload.(events.TicketForwardedPayload)
		return "Ticket escalated",
			fmt.Sprintf("Ticket escalated to %s tier", payload.ToLevel),
			domain.NotificationWarning
	default:
		return "Ticket activity", "", domain.NotificationInfo
	}
}
