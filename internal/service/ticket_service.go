package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/plantops/escalation-service/internal/blob"
	"github.com/plantops/escalation-service/internal/directory"
	"github.com/plantops/escalation-service/internal/domain"
	"github.com/plantops/escalation-service/internal/events"
	"github.com/plantops/escalation-service/internal/repository"
	"github.com/plantops/escalation-service/internal/sla"
	apperrors "github.com/plantops/escalation-service/pkg/util"
)

// TicketService coordinates ticket workflows: creation, the status state
// machine, level escalation, and the comment/attachment timeline. Every
// mutation runs under the ticket row lock and appends exactly one timeline
// event before it commits; rejected calls append nothing.
type TicketService struct {
	store      repository.Store
	dir        directory.Directory
	perms      directory.PermissionChecker
	sla        *sla.Calculator
	blobs      blob.Store
	dispatcher events.Dispatcher

	recomputeSLAOnPriorityChange bool
	now                          func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Store             repository.Store
	Directory         directory.Directory
	PermissionChecker directory.PermissionChecker
	SLACalculator     *sla.Calculator
	BlobStore         blob.Store
	Dispatcher        events.Dispatcher

	RecomputeSLAOnPriorityChange bool
	Now                          func() time.Time
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &TicketService{
		store:                        deps.Store,
		dir:                          deps.Directory,
		perms:                        deps.PermissionChecker,
		sla:                          deps.SLACalculator,
		blobs:                        deps.BlobStore,
		dispatcher:                   deps.Dispatcher,
		recomputeSLAOnPriorityChange: deps.RecomputeSLAOnPriorityChange,
		now:                          now,
	}
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	PlantID     string
	Title       string
	Description string
	IsGeneral   bool
	Priority    domain.TicketPriority
	Tags        []string
}

// TicketListInput describes listing filters.
type TicketListInput struct {
	Status     *domain.TicketStatus
	SearchTerm *string
	Limit      int
	Offset     int
}

// TicketPatchInput updates display fields. Nil means unchanged.
type TicketPatchInput struct {
	Title       *string
	Description *string
	Priority    *domain.TicketPriority
	Tags        []string
}

// Create opens a ticket at plant level, or directly at superadmin when
// general. SLA deadlines are computed here, once, from the priority.
func (s *TicketService) Create(ctx context.Context, actor *domain.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, apperrors.NewValidationError("title and description required", nil)
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !domain.ValidPriority(priority) {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": priority})
	}
	plantID := input.PlantID
	if plantID == "" && actor.PlantID != nil {
		plantID = *actor.PlantID
	}
	if plantID == "" {
		return nil, apperrors.NewValidationError("plant scope required", nil)
	}

	level := domain.LevelPlant
	if input.IsGeneral {
		level = domain.LevelSuperadmin
	}

	now := s.now()
	deadlines := s.sla.Deadlines(priority, now)
	ticket := &domain.Ticket{
		PlantID:               plantID,
		CompanyID:             actor.CompanyID,
		CreatedBy:             actor.ID,
		CreatedByTier:         actor.Tier,
		Title:                 title,
		Description:           description,
		IsGeneral:             input.IsGeneral,
		Level:                 level,
		Status:                domain.TicketStatusOpen,
		Priority:              priority,
		Tags:                  input.Tags,
		CreatedAt:             now,
		LastActivityAt:        now,
		SLAResponseDeadline:   deadlines.Response,
		SLAResolutionDeadline: deadlines.Resolution,
	}

	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		if err := tx.Tickets().Create(ctx, ticket); err != nil {
			return err
		}
		return tx.Timeline().Append(ctx, &domain.TimelineEvent{
			TicketID:  ticket.ID,
			EventType: domain.EventTypeCreated,
			ActorID:   actor.ID,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Scope:    ticketScope(ticket),
		Payload: events.TicketCreatedPayload{
			Title:     ticket.Title,
			Priority:  ticket.Priority,
			IsGeneral: ticket.IsGeneral,
		},
	})
	return ticket, nil
}

// List returns tickets visible to the actor, newest activity first. A full
// page signals that more may exist at the next offset.
func (s *TicketService) List(ctx context.Context, actor *domain.Actor, input TicketListInput) ([]domain.Ticket, error) {
	if input.Status != nil && !domain.ValidStatus(*input.Status) {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": *input.Status})
	}
	tickets, err := s.store.Tickets().ListInScope(ctx, actorScope(actor), repository.TicketFilter{
		Status:     input.Status,
		SearchTerm: input.SearchTerm,
		Limit:      input.Limit,
		Offset:     input.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// Get fetches a ticket with its comments and timeline, scope-filtered.
func (s *TicketService) Get(ctx context.Context, actor *domain.Actor, ticketID string) (*domain.Ticket, []domain.Comment, []domain.TimelineEvent, error) {
	ticket, err := s.store.Tickets().GetInScope(ctx, ticketID, actorScope(actor))
	if err != nil {
		return nil, nil, nil, mapTicketErr(err)
	}
	comments, err := s.store.Comments().ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, nil, nil, apperrors.MapError(err)
	}
	timeline, err := s.store.Timeline().ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, nil, nil, apperrors.MapError(err)
	}
	return ticket, comments, timeline, nil
}

// Patch edits display fields. Priority changes do not touch the running SLA
// window unless the recompute policy is enabled, in which case both deadlines
// are recomputed from the original creation time.
func (s *TicketService) Patch(ctx context.Context, actor *domain.Actor, ticketID string, input TicketPatchInput) (*domain.Ticket, error) {
	var result *domain.Ticket
	var pending *events.Event
	err := s.store.WithTicket(ctx, ticketID, func(ctx context.Context, tx repository.Store, ticket *domain.Ticket) error {
		if err := s.requireVisible(ctx, tx, actor, ticket); err != nil {
			return err
		}
		if !canWrite(actor, ticket) {
			return apperrors.NewForbidden("ticket is owned by a higher tier")
		}

		var changed []string
		if input.Title != nil && strings.TrimSpace(*input.Title) != "" && *input.Title != ticket.Title {
			ticket.Title = strings.TrimSpace(*input.Title)
			changed = append(changed, "title")
		}
		if input.Description != nil && strings.TrimSpace(*input.Description) != "" && *input.Description != ticket.Description {
			ticket.Description = strings.TrimSpace(*input.Description)
			changed = append(changed, "description")
		}
		if input.Priority != nil && *input.Priority != ticket.Priority {
			if !domain.ValidPriority(*input.Priority) {
				return apperrors.NewValidationError("unknown priority", map[string]any{"priority": *input.Priority})
			}
			ticket.Priority = *input.Priority
			changed = append(changed, "priority")
			if s.recomputeSLAOnPriorityChange {
				deadlines := s.sla.Deadlines(ticket.Priority, ticket.CreatedAt)
				ticket.SLAResponseDeadline = deadlines.Response
				ticket.SLAResolutionDeadline = deadlines.Resolution
			}
		}
		if input.Tags != nil {
			ticket.Tags = input.Tags
			changed = append(changed, "tags")
		}
		if len(changed) == 0 {
			result = ticket
			return nil
		}

		now := s.now()
		ticket.LastActivityAt = now
		if err := tx.Tickets().Update(ctx, ticket); err != nil {
			return err
		}
		message := "updated: " + strings.Join(changed, ", ")
		if err := tx.Timeline().Append(ctx, &domain.TimelineEvent{
			TicketID:  ticket.ID,
			EventType: domain.EventTypeUpdated,
			ActorID:   actor.ID,
			Message:   &message,
			CreatedAt: now,
		}); err != nil {
			return err
		}
		result = ticket
		pending = &events.Event{
			Type:     events.EventTicketUpdated,
			TicketID: ticket.ID,
			ActorID:  actor.ID,
			Scope:    ticketScope(ticket),
			Payload:  events.TicketUpdatedPayload{ChangedFields: changed},
		}
		return nil
	})
	if err != nil {
		return nil, mapTicketErr(err)
	}
	s.publishPending(ctx, pending)
	return result, nil
}

// AddComment appends a comment and its timeline event. The first comment
// from a tier above the creator sets first_response_at, once.
func (s *TicketService) AddComment(ctx context.Context, actor *domain.Actor, ticketID, body string) (*domain.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("body required", nil)
	}

	var comment *domain.Comment
	var pending *events.Event
	err := s.store.WithTicket(ctx, ticketID, func(ctx context.Context, tx repository.Store, ticket *domain.Ticket) error {
		if err := s.requireVisible(ctx, tx, actor, ticket); err != nil {
			return err
		}

		now := s.now()
		comment = &domain.Comment{
			TicketID:  ticket.ID,
			AuthorID:  actor.ID,
			Body:      body,
			CreatedAt: now,
		}
		if err := tx.Comments().Create(ctx, comment); err != nil {
			return err
		}
		if err := tx.Timeline().Append(ctx, &domain.TimelineEvent{
			TicketID:  ticket.ID,
			EventType: domain.EventTypeCommented,
			ActorID:   actor.ID,
			CreatedAt: now,
		}); err != nil {
			return err
		}

		ticket.LastActivityAt = now
		if ticket.FirstResponseAt == nil && actor.Tier.Rank() > ticket.CreatedByTier.Rank() {
			ticket.FirstResponseAt = &now
		}
		if err := tx.Tickets().Update(ctx, ticket); err != nil {
			return err
		}

		pending = &events.Event{
			Type:     events.EventTicketCommented,
			TicketID: ticket.ID,
			ActorID:  actor.ID,
			Scope:    ticketScope(ticket),
			Payload: events.TicketCommentedPayload{
				CommentID:   comment.ID,
				BodyPreview: stringPreview(body, 120),
			},
		}
		return nil
	})
	if err != nil {
		return nil, mapTicketErr(err)
	}
	s.publishPending(ctx, pending)
	return comment, nil
}

// AddAttachment stores the file with the blob collaborator and records its
// reference on the ticket timeline. The blob write happens after the
// visibility check so a rejected upload leaves nothing on disk.
func (s *TicketService) AddAttachment(ctx context.Context, actor *domain.Actor, ticketID, fileName string, r io.Reader) (*domain.Attachment, error) {
	if strings.TrimSpace(fileName) == "" {
		return nil, apperrors.NewValidationError("file name required", nil)
	}

	var attachment *domain.Attachment
	var pending *events.Event
	err := s.store.WithTicket(ctx, ticketID, func(ctx context.Context, tx repository.Store, ticket *domain.Ticket) error {
		if err := s.requireVisible(ctx, tx, actor, ticket); err != nil {
			return err
		}

		url, size, err := s.blobs.Put(ctx, fileName, r)
		if err != nil {
			return apperrors.NewInternalError(fmt.Errorf("store attachment: %w", err))
		}

		now := s.now()
		attachment = &domain.Attachment{
			TicketID:   ticket.ID,
			UploadedBy: actor.ID,
			FileName:   fileName,
			URL:        url,
			SizeBytes:  size,
			CreatedAt:  now,
		}
		if err := tx.Attachments().Create(ctx, attachment); err != nil {
			return err
		}
		message := "attachment added: " + fileName
		if err := tx.Timeline().Append(ctx, &domain.TimelineEvent{
			TicketID:  ticket.ID,
			EventType: domain.EventTypeUpdated,
			ActorID:   actor.ID,
			Message:   &message,
			CreatedAt: now,
		}); err != nil {
			return err
		}
		ticket.LastActivityAt = now
		if err := tx.Tickets().Update(ctx, ticket); err != nil {
			return err
		}

		pending = &events.Event{
			Type:     events.EventTicketAttachmentAdded,
			TicketID: ticket.ID,
			ActorID:  actor.ID,
			Scope:    ticketScope(ticket),
			Payload: events.TicketAttachmentAddedPayload{
				AttachmentID: attachment.ID,
				FileName:     fileName,
			},
		}
		return nil
	})
	if err != nil {
		return nil, mapTicketErr(err)
	}
	s.publishPending(ctx, pending)
	return attachment, nil
}

// ListAttachments returns attachment metadata for a visible ticket.
func (s *TicketService) ListAttachments(ctx context.Context, actor *domain.Actor, ticketID string) ([]domain.Attachment, error) {
	ticket, err := s.store.Tickets().GetInScope(ctx, ticketID, actorScope(actor))
	if err != nil {
		return nil, mapTicketErr(err)
	}
	attachments, err := s.store.Attachments().ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return attachments, nil
}

// SetStatus applies a status transition. resolved_at and closed_at are set
// the first time their state is entered and never cleared; a retried
// transition lands on already-set fields as a no-op.
func (s *TicketService) SetStatus(ctx context.Context, actor *domain.Actor, ticketID string, next domain.TicketStatus) (*domain.Ticket, error) {
	if !domain.ValidStatus(next) {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": next})
	}

	var result *domain.Ticket
	var pending *events.Event
	err := s.store.WithTicket(ctx, ticketID, func(ctx context.Context, tx repository.Store, ticket *domain.Ticket) error {
		if err := s.requireVisible(ctx, tx, actor, ticket); err != nil {
			return err
		}
		if !canWrite(actor, ticket) {
			return apperrors.NewForbidden("ticket is owned by a higher tier")
		}
		if !domain.CanTransition(ticket.Status, next) {
			return apperrors.NewInvalidTransition(
				fmt.Sprintf("cannot change status from %s to %s", ticket.Status, next),
				map[string]any{"current_status": ticket.Status},
			)
		}

		now := s.now()
		oldStatus := ticket.Status
		ticket.Status = next
		ticket.LastActivityAt = now
		switch next {
		case domain.TicketStatusResolved:
			if ticket.ResolvedAt == nil {
				ticket.ResolvedAt = &now
			}
		case domain.TicketStatusClosed:
			if ticket.ClosedAt == nil {
				ticket.ClosedAt = &now
			}
		}
		if err := tx.Tickets().Update(ctx, ticket); err != nil {
			return err
		}
		message := fmt.Sprintf("%s -> %s", oldStatus, next)
		if err := tx.Timeline().Append(ctx, &domain.TimelineEvent{
			TicketID:  ticket.ID,
			EventType: domain.EventTypeStatusChanged,
			ActorID:   actor.ID,
			Message:   &message,
			CreatedAt: now,
		}); err != nil {
			return err
		}
		result = ticket
		pending = &events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: ticket.ID,
			ActorID:  actor.ID,
			Scope:    ticketScope(ticket),
			Payload: events.TicketStatusChangedPayload{
				OldStatus: oldStatus,
				NewStatus: next,
			},
		}
		return nil
	})
	if err != nil {
		return nil, mapTicketErr(err)
	}
	s.publishPending(ctx, pending)
	return result, nil
}

// Forward escalates the ticket to the next tier. Strictly forward: plant ->
// company -> superadmin. Requires the forwarding capability for the ticket's
// current level; general tickets are already at the top.
func (s *TicketService) Forward(ctx context.Context, actor *domain.Actor, ticketID string) (*domain.Ticket, error) {
	var result *domain.Ticket
	var pending *events.Event
	err := s.store.WithTicket(ctx, ticketID, func(ctx context.Context, tx repository.Store, ticket *domain.Ticket) error {
		if err := s.requireVisible(ctx, tx, actor, ticket); err != nil {
			return err
		}

		target, ok := ticket.Level.Next()
		if !ok {
			return apperrors.NewInvalidTransition("ticket is already at the top tier",
				map[string]any{"level": ticket.Level})
		}
		permission, _ := directory.ForwardPermission(ticket.Level)
		if !s.perms.Has(ctx, actor, permission) {
			return apperrors.NewForbidden(fmt.Sprintf("forwarding from %s requires %s", ticket.Level, permission))
		}

		now := s.now()
		fromLevel := ticket.Level
		ticket.Level = target
		ticket.LastActivityAt = now
		if err := tx.Tickets().Update(ctx, ticket); err != nil {
			return err
		}
		if err := tx.Timeline().Append(ctx, &domain.TimelineEvent{
			TicketID:  ticket.ID,
			EventType: domain.ForwardEventType(target),
			ActorID:   actor.ID,
			CreatedAt: now,
		}); err != nil {
			return err
		}
		result = ticket

		// notify-set recomputed for the destination tier only
		pending = &events.Event{
			Type:     events.EventTicketForwarded,
			TicketID: ticket.ID,
			ActorID:  actor.ID,
			Scope:    ticketScope(ticket),
			Payload: events.TicketForwardedPayload{
				FromLevel: fromLevel,
				ToLevel:   target,
			},
		}
		return nil
	})
	if err != nil {
		return nil, mapTicketErr(err)
	}
	s.publishPending(ctx, pending)
	return result, nil
}

// requireVisible enforces scope on a row loaded under lock (the lock query
// itself cannot scope-filter without weakening the NotFound masking).
func (s *TicketService) requireVisible(ctx context.Context, tx repository.Store, actor *domain.Actor, ticket *domain.Ticket) error {
	switch actor.Tier {
	case domain.LevelSuperadmin:
		return nil
	case domain.LevelCompany:
		if actor.CompanyID != nil && ticket.CompanyID != nil &&
			*actor.CompanyID == *ticket.CompanyID && ticket.Level != domain.LevelSuperadmin {
			return nil
		}
	default:
		if actor.PlantID == nil || *actor.PlantID != ticket.PlantID {
			break
		}
		if ticket.Level == domain.LevelPlant || ticket.CreatedBy == actor.ID {
			return nil
		}
		participant, err := tx.Timeline().HasActor(ctx, ticket.ID, actor.ID)
		if err != nil {
			return err
		}
		if participant {
			return nil
		}
	}
	return apperrors.NewNotFound("ticket", nil)
}

// canWrite gates status and field changes: the actor's tier must cover the
// ticket's current level. Forwarding is stricter and role-gated separately.
func canWrite(actor *domain.Actor, ticket *domain.Ticket) bool {
	return actor.Tier.Rank() >= ticket.Level.Rank()
}

func actorScope(actor *domain.Actor) repository.Scope {
	return repository.Scope{
		ActorID:   actor.ID,
		Tier:      actor.Tier,
		PlantID:   actor.PlantID,
		CompanyID: actor.CompanyID,
	}
}

func ticketScope(ticket *domain.Ticket) events.TicketScope {
	return events.TicketScope{
		Level:     ticket.Level,
		PlantID:   ticket.PlantID,
		CompanyID: ticket.CompanyID,
	}
}

func mapTicketErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("ticket", nil)
	}
	return apperrors.MapError(err)
}

// publish dispatches the event after the transaction committed, so fanout
// never observes uncommitted state.
func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func (s *TicketService) publishPending(ctx context.Context, event *events.Event) {
	if event == nil {
		return
	}
	s.publish(ctx, *event)
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
