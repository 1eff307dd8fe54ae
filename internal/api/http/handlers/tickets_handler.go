package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/plantops/escalation-service/internal/api/dto"
	"github.com/plantops/escalation-service/internal/auth"
	"github.com/plantops/escalation-service/internal/domain"
	"github.com/plantops/escalation-service/internal/service"
	apperrors "github.com/plantops/escalation-service/pkg/util"
)

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("actor required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.TicketCreateInput{
		PlantID:     req.PlantID,
		Title:       req.Title,
		Description: req.Description,
		IsGeneral:   req.IsGeneral,
		Priority:    req.Priority,
		Tags:        req.Tags,
	}
	ticket, err := h.service.Create(c.UserContext(), actor, input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("actor required")
	}
	input := parseTicketQuery(c)
	tickets, err := h.service.List(c.UserContext(), actor, input)
	if err != nil {
		return err
	}
	summaries := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		summaries = append(summaries, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": summaries})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("actor required")
	}
	ticket, comments, timeline, err := h.service.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket, comments, timeline)})
}

// PatchTicket PATCH /tickets/:id.
func (h *TicketsHandler) PatchTicket(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("actor required")
	}
	var req dto.PatchTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	input := service.TicketPatchInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Tags:        req.Tags,
	}
	ticket, err := h.service.Patch(c.UserContext(), actor, c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// AddComment POST /tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("actor required")
	}
	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	comment, err := h.service.AddComment(c.UserContext(), actor, c.Params("id"), req.Body)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": commentResponse(comment)})
}

// UploadAttachment POST /tickets/:id/attachments. Multipart form with a
// "file" part.
func (h *TicketsHandler) UploadAttachment(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("actor required")
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return apperrors.NewValidationError("file part required", nil)
	}
	file, err := fileHeader.Open()
	if err != nil {
		return apperrors.NewValidationError("unreadable file part", nil)
	}
	defer file.Close()

	attachment, err := h.service.AddAttachment(c.UserContext(), actor, c.Params("id"), fileHeader.Filename, file)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": attachmentResponse(attachment)})
}

// ListAttachments GET /tickets/:id/attachments.
func (h *TicketsHandler) ListAttachments(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("actor required")
	}
	attachments, err := h.service.ListAttachments(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	resp := make([]dto.AttachmentResponse, 0, len(attachments))
	for i := range attachments {
		resp = append(resp, attachmentResponse(&attachments[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// SetStatus POST /tickets/:id/status.
func (h *TicketsHandler) SetStatus(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("actor required")
	}
	var req dto.SetStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.SetStatus(c.UserContext(), actor, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// ForwardTicket POST /tickets/:id/forward.
func (h *TicketsHandler) ForwardTicket(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("actor required")
	}
	ticket, err := h.service.Forward(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

func parseTicketQuery(c *fiber.Ctx) service.TicketListInput {
	input := service.TicketListInput{}
	if statusStr := strings.TrimSpace(c.Query("status")); statusStr != "" {
		status := domain.TicketStatus(statusStr)
		input.Status = &status
	}
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		input.SearchTerm = &q
	}
	input.Limit = parseInt(c.Query("limit"), 20)
	input.Offset = parseOffset(c.Query("offset"))
	return input
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func parseOffset(val string) int {
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed < 0 {
		return 0
	}
	return parsed
}

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:                    ticket.ID,
		PlantID:               ticket.PlantID,
		CompanyID:             ticket.CompanyID,
		CreatedBy:             ticket.CreatedBy,
		Title:                 ticket.Title,
		IsGeneral:             ticket.IsGeneral,
		Level:                 ticket.Level,
		Status:                ticket.Status,
		Priority:              ticket.Priority,
		Tags:                  ticket.Tags,
		CreatedAt:             ticket.CreatedAt,
		LastActivityAt:        ticket.LastActivityAt,
		SLAResponseDeadline:   ticket.SLAResponseDeadline,
		SLAResolutionDeadline: ticket.SLAResolutionDeadline,
	}
}

func ticketDetail(ticket *domain.Ticket, comments []domain.Comment, timeline []domain.TimelineEvent) dto.TicketDetailResponse {
	commentResp := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		commentResp = append(commentResp, commentResponse(&comments[i]))
	}
	timelineResp := make([]dto.TimelineEventResponse, 0, len(timeline))
	for _, entry := range timeline {
		timelineResp = append(timelineResp, dto.TimelineEventResponse{
			ID:        entry.ID,
			Seq:       entry.Seq,
			EventType: entry.EventType,
			ActorID:   entry.ActorID,
			Message:   entry.Message,
			CreatedAt: entry.CreatedAt,
		})
	}
	return dto.TicketDetailResponse{
		TicketSummary:   ticketSummary(ticket),
		Description:     ticket.Description,
		FirstResponseAt: ticket.FirstResponseAt,
		ResolvedAt:      ticket.ResolvedAt,
		ClosedAt:        ticket.ClosedAt,
		Comments:        commentResp,
		Timeline:        timelineResp,
	}
}

func commentResponse(comment *domain.Comment) dto.CommentResponse {
	return dto.CommentResponse{
		ID:        comment.ID,
		AuthorID:  comment.AuthorID,
		Body:      comment.Body,
		CreatedAt: comment.CreatedAt,
	}
}

func attachmentResponse(att *domain.Attachment) dto.AttachmentResponse {
	return dto.AttachmentResponse{
		ID:         att.ID,
		FileName:   att.FileName,
		UploadedBy: att.UploadedBy,
		URL:        att.URL,
		SizeBytes:  att.SizeBytes,
		CreatedAt:  att.CreatedAt,
	}
}
