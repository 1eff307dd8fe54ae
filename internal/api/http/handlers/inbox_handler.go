package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/plantops/escalation-service/internal/api/dto"
	"github.com/plantops/escalation-service/internal/auth"
	"github.com/plantops/escalation-service/internal/domain"
	"github.com/plantops/escalation-service/internal/service"
	apperrors "github.com/plantops/escalation-service/pkg/util"
)

// InboxHandler manages the per-actor notification inbox.
type InboxHandler struct {
	service *service.InboxService
}

// NewInboxHandler constructs handler.
func NewInboxHandler(inboxService *service.InboxService) *InboxHandler {
	return &InboxHandler{service: inboxService}
}

// List GET /inbox.
func (h *InboxHandler) List(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("actor required")
	}
	limit := parseInt(c.Query("limit"), 20)
	offset := parseOffset(c.Query("offset"))

	items, unread, err := h.service.List(c.UserContext(), actor.ID, limit, offset)
	if err != nil {
		return err
	}
	resp := dto.InboxListResponse{
		Items:       make([]dto.InboxEntryResponse, 0, len(items)),
		UnreadCount: unread,
	}
	for i := range items {
		resp.Items = append(resp.Items, inboxEntryResponse(&items[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// MarkRead POST /inbox/read/:id.
func (h *InboxHandler) MarkRead(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("actor required")
	}
	if err := h.service.MarkRead(c.UserContext(), actor.ID, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"read": true}})
}

// MarkAllRead POST /inbox/read-all.
func (h *InboxHandler) MarkAllRead(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("actor required")
	}
	if err := h.service.MarkAllRead(c.UserContext(), actor.ID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"read": true}})
}

// Delete DELETE /inbox/:id.
func (h *InboxHandler) Delete(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("actor required")
	}
	if err := h.service.Delete(c.UserContext(), actor.ID, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Clear POST /inbox/clear.
func (h *InboxHandler) Clear(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("actor required")
	}
	if err := h.service.Clear(c.UserContext(), actor.ID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func inboxEntryResponse(entry *domain.InboxEntry) dto.InboxEntryResponse {
	return dto.InboxEntryResponse{
		ID:        entry.ID,
		TicketID:  entry.TicketID,
		Title:     entry.Title,
		Message:   entry.Message,
		Level:     entry.Level,
		Read:      entry.Read,
		CreatedAt: entry.CreatedAt,
	}
}
