package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/meetly/messagebox/middleware"
	"github.com/meetly/messagebox/models"
	"github.com/meetly/messagebox/services"
	"github.com/meetly/messagebox/utils"
	"go.uber.org/zap"
)

type MessagingHandler struct {
	svc             *services.MessageboxService
	log             *zap.Logger
	defaultPageSize int
	maxPageSize     int
}

func NewMessagingHandler(svc *services.MessageboxService, log *zap.Logger, defaultPageSize, maxPageSize int) *MessagingHandler {
	return &MessagingHandler{
		svc:             svc,
		log:             log,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
	}
}

type sendMessageRequest struct {
	ReceiverID *uuid.UUID `json:"receiver_id"`
	ThreadID   *uuid.UUID `json:"thread_id"`
	Content    string     `json:"content" validate:"required"`
}

type editMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

type createThreadRequest struct {
	Name         string      `json:"name" validate:"required"`
	Participants []uuid.UUID `json:"participants"`
}

type updateThreadRequest struct {
	Name         *string      `json:"name"`
	Participants *[]uuid.UUID `json:"participants"`
}

// ThreadResponse is a thread as its viewer sees it.
type ThreadResponse struct {
	ID           uuid.UUID        `json:"id"`
	Name         string           `json:"name"`
	Participants []uuid.UUID      `json:"participants"`
	Messages     []models.Message `json:"messages"`
	CreatedAt    time.Time        `json:"created_at"`
}

func newThreadResponse(t *models.Thread) ThreadResponse {
	messages := t.Messages
	if messages == nil {
		messages = []models.Message{}
	}
	return ThreadResponse{
		ID:           t.ID,
		Name:         t.Name,
		Participants: t.ParticipantIDs(),
		Messages:     messages,
		CreatedAt:    t.CreatedAt,
	}
}

func (h *MessagingHandler) pageRequest(c *fiber.Ctx) utils.PageRequest {
	return utils.ParsePageRequest(c.Query("page"), c.Query("page_size"), h.defaultPageSize, h.maxPageSize)
}

// pathID parses a path id. Malformed ids are reported exactly like missing ones.
func pathID(c *fiber.Ctx, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params(name))
	return id, err == nil
}

func notFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
}

func (h *MessagingHandler) ListMessages(c *fiber.Ctx) error {
	viewer := middleware.CurrentUserID(c)
	direction := services.ParseDirection(c.Query("msg_direction"))

	page, err := h.svc.ListMessages(c.UserContext(), viewer, direction, h.pageRequest(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(page)
}

func (h *MessagingHandler) SendMessage(c *fiber.Ctx) error {
	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return badJSON(c)
	}
	if fields := invalidFields(req); fields != nil {
		return validationFailed(c, fields)
	}

	msg, err := h.svc.SendMessage(c.UserContext(), middleware.CurrentUserID(c), services.SendMessageInput{
		ReceiverID: req.ReceiverID,
		ThreadID:   req.ThreadID,
		Content:    req.Content,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

func (h *MessagingHandler) GetMessage(c *fiber.Ctx) error {
	id, ok := pathID(c, "messageId")
	if !ok {
		return notFound(c)
	}
	msg, err := h.svc.GetMessage(c.UserContext(), middleware.CurrentUserID(c), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(msg)
}

func (h *MessagingHandler) EditMessage(c *fiber.Ctx) error {
	id, ok := pathID(c, "messageId")
	if !ok {
		return notFound(c)
	}
	var req editMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return badJSON(c)
	}
	if fields := invalidFields(req); fields != nil {
		return validationFailed(c, fields)
	}

	msg, err := h.svc.EditMessageContent(c.UserContext(), middleware.CurrentUserID(c), id, req.Content)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(msg)
}

func (h *MessagingHandler) DeleteMessage(c *fiber.Ctx) error {
	id, ok := pathID(c, "messageId")
	if !ok {
		return notFound(c)
	}
	if err := h.svc.SoftDeleteMessage(c.UserContext(), middleware.CurrentUserID(c), id); err != nil {
		return respondError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *MessagingHandler) ListThreads(c *fiber.Ctx) error {
	page, err := h.svc.ListThreads(c.UserContext(), middleware.CurrentUserID(c), h.pageRequest(c))
	if err != nil {
		return respondError(c, h.log, err)
	}

	resp := utils.Page[ThreadResponse]{
		Count:    page.Count,
		Page:     page.Page,
		PageSize: page.PageSize,
		Results:  make([]ThreadResponse, 0, len(page.Results)),
	}
	for i := range page.Results {
		resp.Results = append(resp.Results, newThreadResponse(&page.Results[i]))
	}
	return c.JSON(resp)
}

func (h *MessagingHandler) CreateThread(c *fiber.Ctx) error {
	var req createThreadRequest
	if err := c.BodyParser(&req); err != nil {
		return badJSON(c)
	}
	if fields := invalidFields(req); fields != nil {
		return validationFailed(c, fields)
	}

	thread, err := h.svc.CreateThread(c.UserContext(), middleware.CurrentUserID(c), req.Participants, req.Name)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(newThreadResponse(thread))
}

func (h *MessagingHandler) GetThread(c *fiber.Ctx) error {
	id, ok := pathID(c, "threadId")
	if !ok {
		return notFound(c)
	}
	thread, err := h.svc.GetThread(c.UserContext(), middleware.CurrentUserID(c), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(newThreadResponse(thread))
}

// UpdateThread serves PUT, which must carry the full participant list, and
// PATCH, where every field is optional.
func (h *MessagingHandler) UpdateThread(c *fiber.Ctx) error {
	id, ok := pathID(c, "threadId")
	if !ok {
		return notFound(c)
	}
	var req updateThreadRequest
	if err := c.BodyParser(&req); err != nil {
		return badJSON(c)
	}
	if c.Method() == fiber.MethodPut && req.Participants == nil {
		return validationFailed(c, map[string]string{"participants": "this field is required"})
	}

	upd := services.ThreadUpdate{Name: req.Name}
	if req.Participants != nil {
		upd.Participants = *req.Participants
		if upd.Participants == nil {
			upd.Participants = []uuid.UUID{}
		}
	}
	thread, err := h.svc.UpdateThread(c.UserContext(), middleware.CurrentUserID(c), id, upd)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(newThreadResponse(thread))
}

func (h *MessagingHandler) DeleteThread(c *fiber.Ctx) error {
	id, ok := pathID(c, "threadId")
	if !ok {
		return notFound(c)
	}
	if err := h.svc.SoftDeleteThread(c.UserContext(), middleware.CurrentUserID(c), id); err != nil {
		return respondError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
