package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"vehicle_import/internal/domain"
	"vehicle_import/internal/service"
	"vehicle_import/pkg/logger"
)

type MessageHandler struct {
	messageService service.MessageService
	readTracker    service.ReadTracker
	log            logger.Logger
}

func NewMessageHandler(messageService service.MessageService, readTracker service.ReadTracker, log logger.Logger) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
		readTracker:    readTracker,
		log:            log,
	}
}

type SendMessageRequest struct {
	ClientMessageID *string             `json:"client_message_id,omitempty"`
	MessageType     string              `json:"message_type,omitempty"`
	Message         string              `json:"message" binding:"required"`
	Attachments     []domain.Attachment `json:"attachments,omitempty"`
}

// Send answers 201 for a stored message and 200 for a replayed
// client_message_id.
func (h *MessageHandler) Send(c *gin.Context) {
	p, err := principal(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	inquiryID, err := parseIDParam(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError(err))
		return
	}
	msgType := domain.MessageTypeText
	if req.MessageType != "" {
		msgType = domain.MessageType(req.MessageType)
	}

	msg, created, err := h.messageService.SendMessage(c.Request.Context(), p, inquiryID, domain.SendMessageParams{
		ClientMessageID: req.ClientMessageID,
		Type:            msgType,
		Message:         req.Message,
		Attachments:     req.Attachments,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, msg)
}

func (h *MessageHandler) List(c *gin.Context) {
	p, err := principal(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	inquiryID, err := parseIDParam(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}

	page := domain.MessagePage{Direction: domain.PageDirection(c.Query("direction"))}
	if page.Cursor, err = queryInt64(c, "cursor"); err != nil {
		_ = c.Error(err)
		return
	}
	if page.Limit, err = queryInt(c, "limit"); err != nil {
		_ = c.Error(err)
		return
	}

	result, err := h.messageService.GetMessages(c.Request.Context(), p, inquiryID, page)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *MessageHandler) MarkRead(c *gin.Context) {
	p, err := principal(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	inquiryID, err := parseIDParam(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}

	participant, err := h.readTracker.MarkAsRead(c.Request.Context(), p, inquiryID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, participant)
}

func (h *MessageHandler) UnreadCount(c *gin.Context) {
	p, err := principal(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	inquiryID, err := parseIDParam(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}

	count, err := h.readTracker.UnreadCount(c.Request.Context(), p, inquiryID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"inquiry_id": inquiryID, "unread_count": count})
}

func (h *MessageHandler) ReadReceipts(c *gin.Context) {
	p, err := principal(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	inquiryID, err := parseIDParam(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}

	participants, err := h.readTracker.GetReadWatermarks(c.Request.Context(), p, inquiryID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"participants": participants})
}
