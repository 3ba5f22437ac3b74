package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"vehicle_import/internal/domain"
	"vehicle_import/internal/service"
	apperrors "vehicle_import/pkg/errors"
	"vehicle_import/pkg/logger"
)

type InquiryHandler struct {
	inquiryService service.InquiryService
	log            logger.Logger
}

func NewInquiryHandler(inquiryService service.InquiryService, log logger.Logger) *InquiryHandler {
	return &InquiryHandler{
		inquiryService: inquiryService,
		log:            log,
	}
}

type CreateInquiryRequest struct {
	CompanyID       int64               `json:"company_id" binding:"required"`
	VehicleID       int64               `json:"vehicle_id" binding:"required"`
	QuoteID         *int64              `json:"quote_id,omitempty"`
	Subject         *string             `json:"subject,omitempty"`
	Message         string              `json:"message" binding:"required"`
	ClientMessageID *string             `json:"client_message_id,omitempty"`
	Attachments     []domain.Attachment `json:"attachments,omitempty"`
	QuotedPrice     *domain.Money       `json:"quoted_price,omitempty"`
}

// Create answers 201 for a new inquiry and 200 when the message was appended
// to an inquiry that was already open.
func (h *InquiryHandler) Create(c *gin.Context) {
	p, err := principal(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if !p.Role.Can(domain.CapCreateInquiry) {
		_ = c.Error(apperrors.Forbidden("role %s cannot open inquiries", p.Role))
		return
	}

	var req CreateInquiryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError(err))
		return
	}

	result, err := h.inquiryService.CreateInquiry(c.Request.Context(), domain.CreateInquiryParams{
		UserID:          p.UserID,
		CompanyID:       req.CompanyID,
		VehicleID:       req.VehicleID,
		QuoteID:         req.QuoteID,
		Subject:         req.Subject,
		Message:         req.Message,
		ClientMessageID: req.ClientMessageID,
		Attachments:     req.Attachments,
		QuotedPrice:     req.QuotedPrice,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	c.JSON(status, result)
}

func (h *InquiryHandler) List(c *gin.Context) {
	p, err := principal(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	filter := domain.InquiryFilter{}
	if filter.CompanyID, err = queryInt64(c, "company_id"); err != nil {
		_ = c.Error(err)
		return
	}
	if filter.VehicleID, err = queryInt64(c, "vehicle_id"); err != nil {
		_ = c.Error(err)
		return
	}
	if filter.Limit, err = queryInt(c, "limit"); err != nil {
		_ = c.Error(err)
		return
	}
	if filter.Offset, err = queryInt(c, "offset"); err != nil {
		_ = c.Error(err)
		return
	}
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			status, ok := domain.ParseInquiryStatus(strings.TrimSpace(s))
			if !ok {
				_ = c.Error(apperrors.Validation("unknown status %q", s))
				return
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}

	inquiries, err := h.inquiryService.ListInquiries(c.Request.Context(), p, filter)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"inquiries": inquiries})
}

func (h *InquiryHandler) GetByID(c *gin.Context) {
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

	inquiry, err := h.inquiryService.GetInquiry(c.Request.Context(), p, inquiryID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, inquiry)
}

type UpdateInquiryRequest struct {
	Status     string        `json:"status" binding:"required"`
	FinalPrice *domain.Money `json:"final_price,omitempty"`
}

func (h *InquiryHandler) Update(c *gin.Context) {
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

	var req UpdateInquiryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError(err))
		return
	}
	status, ok := domain.ParseInquiryStatus(req.Status)
	if !ok {
		_ = c.Error(apperrors.Validation("unknown status %q", req.Status))
		return
	}

	inquiry, err := h.inquiryService.UpdateStatus(c.Request.Context(), p, inquiryID, domain.UpdateStatusParams{
		Status:     status,
		FinalPrice: req.FinalPrice,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, inquiry)
}

// Expire runs the stale-inquiry sweep inline. The scheduler does the same on
// its cron; this is for operators.
func (h *InquiryHandler) Expire(c *gin.Context) {
	expired, err := h.inquiryService.ExpireStale(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	h.log.Info("Manual expiry sweep finished", "expired", expired)
	c.JSON(http.StatusOK, gin.H{"expired": expired})
}
