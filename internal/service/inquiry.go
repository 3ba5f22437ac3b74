package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"vehicle_import/internal/config"
	"vehicle_import/internal/domain"
	"vehicle_import/internal/repository"
	apperrors "vehicle_import/pkg/errors"
	"vehicle_import/pkg/logger"
)

type InquiryService interface {
	// CreateInquiry opens a negotiation or, when one is already open for the
	// same user, company and vehicle, appends the message to it.
	CreateInquiry(ctx context.Context, params domain.CreateInquiryParams) (*domain.CreateInquiryResult, error)
	ListInquiries(ctx context.Context, principal domain.Principal, filter domain.InquiryFilter) ([]*domain.InquiryView, error)
	GetInquiry(ctx context.Context, principal domain.Principal, inquiryID int64) (*domain.InquiryView, error)
	UpdateStatusByUser(ctx context.Context, inquiryID, userID int64, status domain.InquiryStatus) (*domain.Inquiry, error)
	UpdateStatusByCompany(ctx context.Context, inquiryID, companyID, actorUserID int64, status domain.InquiryStatus, finalPrice *domain.Money) (*domain.Inquiry, error)
	// UpdateStatus routes to the user or company variant depending on how the
	// principal relates to the inquiry.
	UpdateStatus(ctx context.Context, principal domain.Principal, inquiryID int64, params domain.UpdateStatusParams) (*domain.Inquiry, error)
	ExpireStale(ctx context.Context) (int, error)
}

type inquiryService struct {
	inquiryRepo     repository.InquiryRepository
	messageRepo     repository.MessageRepository
	participantRepo repository.ParticipantRepository
	gate            AccessGate
	catalog         CatalogService
	audit           AuditService
	notifier        Notifier
	cfg             config.InquiryConfig
	now             func() time.Time
	log             logger.Logger
}

func NewInquiryService(
	inquiryRepo repository.InquiryRepository,
	messageRepo repository.MessageRepository,
	participantRepo repository.ParticipantRepository,
	gate AccessGate,
	catalog CatalogService,
	audit AuditService,
	notifier Notifier,
	cfg config.InquiryConfig,
	log logger.Logger,
) InquiryService {
	return &inquiryService{
		inquiryRepo:     inquiryRepo,
		messageRepo:     messageRepo,
		participantRepo: participantRepo,
		gate:            gate,
		catalog:         catalog,
		audit:           audit,
		notifier:        notifier,
		cfg:             cfg,
		now:             func() time.Time { return time.Now().UTC() },
		log:             log,
	}
}

func (s *inquiryService) limits() messageLimits {
	return messageLimits{maxLength: s.cfg.MaxMessageLength, maxAttachments: s.cfg.MaxAttachments}
}

func (s *inquiryService) CreateInquiry(ctx context.Context, params domain.CreateInquiryParams) (*domain.CreateInquiryResult, error) {
	if params.UserID <= 0 || params.CompanyID <= 0 || params.VehicleID <= 0 {
		return nil, apperrors.Validation("user, company and vehicle are required")
	}
	body, err := s.limits().validateBody(params.Message)
	if err != nil {
		return nil, err
	}
	if err := s.limits().validateAttachments(params.Attachments); err != nil {
		return nil, err
	}
	if err := validateClientMessageID(params.ClientMessageID); err != nil {
		return nil, err
	}
	if err := validateMoney("quoted_price", params.QuotedPrice); err != nil {
		return nil, err
	}
	if params.Subject != nil {
		subject := strings.TrimSpace(*params.Subject)
		if len(subject) > 255 {
			return nil, apperrors.Validation("subject exceeds 255 characters")
		}
		params.Subject = &subject
	}

	quoted := params.QuotedPrice
	if quoted == nil && params.QuoteID != nil {
		if quoted, err = s.catalog.QuotePrice(ctx, *params.QuoteID); err != nil {
			return nil, err
		}
	}

	now := s.now()
	inq := &domain.Inquiry{
		UserID:    params.UserID,
		CompanyID: params.CompanyID,
		VehicleID: params.VehicleID,
		QuoteID:   params.QuoteID,
		Subject:   params.Subject,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.PendingTTL),
	}
	if quoted != nil {
		inq.QuotedTotalPrice = &quoted.Amount
		inq.QuotedCurrency = &quoted.Currency
	}

	msg := &domain.Message{
		SenderID:        params.UserID,
		ClientMessageID: params.ClientMessageID,
		MessageType:     domain.MessageTypeText,
		Message:         body,
		Attachments:     params.Attachments,
		CreatedAt:       now,
	}

	created, err := s.inquiryRepo.CreateOrAppend(ctx, inq, msg)
	if err != nil {
		return nil, err
	}

	eventType := domain.EventTypeInquiryAppended
	if created {
		eventType = domain.EventTypeInquiryCreated
		s.log.Info("Inquiry created", "inquiry_id", inq.ID, "user_id", inq.UserID, "company_id", inq.CompanyID, "vehicle_id", inq.VehicleID)
	}
	logAudit(ctx, s.audit, s.log, &params.UserID, domain.ActorUser, inq.ID, eventType, map[string]interface{}{
		"message_id": msg.ID,
	})

	messageID := msg.ID
	notifyCounterparty(ctx, s.notifier, s.log, inq, domain.ParticipantRoleUser, domain.Notification{
		Kind:        domain.NotificationMessageCreated,
		ActorUserID: &params.UserID,
		MessageID:   &messageID,
		Status:      inq.Status,
	})

	return &domain.CreateInquiryResult{Inquiry: inq, Message: msg, Created: created}, nil
}

func (s *inquiryService) ListInquiries(ctx context.Context, principal domain.Principal, filter domain.InquiryFilter) ([]*domain.InquiryView, error) {
	if filter.Offset < 0 {
		return nil, apperrors.Validation("offset must not be negative")
	}

	if companyID := principal.ActingCompanyID(); companyID != nil {
		if filter.CompanyID != nil && *filter.CompanyID != *companyID {
			return nil, apperrors.Forbidden("cannot list inquiries of company %d", *filter.CompanyID)
		}
		filter.CompanyID = companyID
		filter.UserID = nil
	} else {
		userID := principal.UserID
		filter.UserID = &userID
	}
	filter.ViewerID = principal.UserID
	filter.Limit = clampLimit(filter.Limit, s.cfg.DefaultPageSize, s.cfg.MaxPageSize)

	views, err := s.inquiryRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	for _, view := range views {
		decorate(ctx, s.catalog, view, s.log)
	}

	return views, nil
}

func (s *inquiryService) GetInquiry(ctx context.Context, principal domain.Principal, inquiryID int64) (*domain.InquiryView, error) {
	decision, err := s.gate.Authorize(ctx, principal, inquiryID)
	if err != nil {
		return nil, err
	}

	unread, err := unreadFor(ctx, s.participantRepo, s.messageRepo, inquiryID, principal.UserID)
	if err != nil {
		return nil, err
	}

	view := &domain.InquiryView{Inquiry: *decision.Inquiry, UnreadCount: unread}
	decorate(ctx, s.catalog, view, s.log)

	return view, nil
}

func (s *inquiryService) UpdateStatusByUser(ctx context.Context, inquiryID, userID int64, status domain.InquiryStatus) (*domain.Inquiry, error) {
	if !allowedTarget(domain.ActorUser, status) {
		return nil, apperrors.Validation("a user cannot set status %q", status)
	}

	inq, err := s.inquiryRepo.GetByID(ctx, inquiryID)
	if err != nil {
		return nil, err
	}
	if inq.UserID != userID {
		return nil, apperrors.Forbidden("inquiry %d belongs to another user", inquiryID)
	}

	return s.transition(ctx, inq, domain.ActorUser, userID, status, nil)
}

func (s *inquiryService) UpdateStatusByCompany(ctx context.Context, inquiryID, companyID, actorUserID int64, status domain.InquiryStatus, finalPrice *domain.Money) (*domain.Inquiry, error) {
	if !allowedTarget(domain.ActorCompany, status) {
		return nil, apperrors.Validation("a company cannot set status %q", status)
	}
	if finalPrice != nil && status != domain.InquiryStatusActive {
		return nil, apperrors.Validation("final_price can only be set when moving to active")
	}
	if err := validateMoney("final_price", finalPrice); err != nil {
		return nil, err
	}

	inq, err := s.inquiryRepo.GetByID(ctx, inquiryID)
	if err != nil {
		return nil, err
	}
	if inq.CompanyID != companyID {
		return nil, apperrors.Forbidden("inquiry %d belongs to another company", inquiryID)
	}

	return s.transition(ctx, inq, domain.ActorCompany, actorUserID, status, finalPrice)
}

func (s *inquiryService) UpdateStatus(ctx context.Context, principal domain.Principal, inquiryID int64, params domain.UpdateStatusParams) (*domain.Inquiry, error) {
	decision, err := s.gate.Authorize(ctx, principal, inquiryID)
	if err != nil {
		return nil, err
	}

	switch decision.Role {
	case domain.ParticipantRoleUser:
		if params.FinalPrice != nil {
			return nil, apperrors.Validation("only the company can set final_price")
		}
		return s.UpdateStatusByUser(ctx, inquiryID, principal.UserID, params.Status)
	case domain.ParticipantRoleCompany:
		return s.UpdateStatusByCompany(ctx, inquiryID, *principal.ActingCompanyID(), principal.UserID, params.Status, params.FinalPrice)
	}
	return nil, apperrors.Forbidden("not a participant of inquiry %d", inquiryID)
}

func allowedTarget(actor domain.Actor, status domain.InquiryStatus) bool {
	for _, target := range domain.TargetsFor(actor) {
		if target == status {
			return true
		}
	}
	return false
}

// transition validates against the status observed in inq and applies the
// change as a compare-and-swap. A concurrent writer that moved the row first
// makes the swap miss and the caller gets InvalidTransition.
func (s *inquiryService) transition(ctx context.Context, inq *domain.Inquiry, actor domain.Actor, actorUserID int64, to domain.InquiryStatus, finalPrice *domain.Money) (*domain.Inquiry, error) {
	if err := domain.ValidateTransition(inq.Status, to, actor); err != nil {
		return nil, err
	}

	now := s.now()
	change := domain.StatusChange{
		InquiryID:  inq.ID,
		From:       inq.Status,
		To:         to,
		FinalPrice: finalPrice,
		SystemMessage: &domain.Message{
			SenderID:    actorUserID,
			MessageType: domain.MessageTypeSystem,
			Message:     systemMessageText(actor, to, finalPrice),
			CreatedAt:   now,
		},
	}
	if to == domain.InquiryStatusActive {
		expiresAt := now.Add(s.cfg.ActiveTTL)
		change.ExpiresAt = &expiresAt
	}

	updated, err := s.inquiryRepo.Transition(ctx, change)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidTransition) {
			s.log.Info("Inquiry transition lost a race", "inquiry_id", inq.ID, "from", inq.Status, "to", to)
		}
		return nil, err
	}

	s.log.Info("Inquiry status changed", "inquiry_id", updated.ID, "from", inq.Status, "to", updated.Status, "actor", actor)

	payload := map[string]interface{}{
		"from": string(inq.Status),
		"to":   string(updated.Status),
	}
	if finalPrice != nil {
		payload["final_price"] = finalPrice.Amount
		payload["final_currency"] = finalPrice.Currency
	}
	logAudit(ctx, s.audit, s.log, &actorUserID, actor, updated.ID, domain.EventTypeStatusChanged, payload)

	actorRole := domain.ParticipantRoleUser
	if actor == domain.ActorCompany {
		actorRole = domain.ParticipantRoleCompany
	}
	messageID := change.SystemMessage.ID
	notifyCounterparty(ctx, s.notifier, s.log, updated, actorRole, domain.Notification{
		Kind:        domain.NotificationStatusChanged,
		ActorUserID: &actorUserID,
		MessageID:   &messageID,
		Status:      updated.Status,
	})

	return updated, nil
}

func systemMessageText(actor domain.Actor, to domain.InquiryStatus, finalPrice *domain.Money) string {
	switch to {
	case domain.InquiryStatusActive:
		if finalPrice != nil {
			return fmt.Sprintf("The company responded with a price of %s %s.", finalPrice.Amount, finalPrice.Currency)
		}
		return "The company responded to the inquiry."
	case domain.InquiryStatusAccepted:
		return "The user accepted the offer."
	case domain.InquiryStatusDeclined:
		return "The company declined the inquiry."
	case domain.InquiryStatusCancelled:
		return "The user cancelled the inquiry."
	}
	return fmt.Sprintf("Inquiry moved to %s by %s.", to, actor)
}

// ExpireStale expires overdue open inquiries batch by batch until a short
// batch comes back. Rows already moved by a concurrent user or company action
// are not touched. A failed batch stops the sweep; the next scheduled run
// picks the remaining rows up.
func (s *inquiryService) ExpireStale(ctx context.Context) (int, error) {
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		expired, err := s.inquiryRepo.ExpireStale(ctx, s.now(), s.cfg.SweepBatchSize)
		if err != nil {
			s.log.Error("Expiry sweep batch failed", "error", err, "expired_so_far", total)
			return total, err
		}

		for _, inq := range expired {
			s.afterExpire(ctx, inq)
		}
		total += len(expired)

		if len(expired) < s.cfg.SweepBatchSize {
			break
		}
	}

	if total > 0 {
		s.log.Info("Expired stale inquiries", "count", total)
	}
	return total, nil
}

func (s *inquiryService) afterExpire(ctx context.Context, inq *domain.Inquiry) {
	logAudit(ctx, s.audit, s.log, nil, domain.ActorSystem, inq.ID, domain.EventTypeInquiryExpired, nil)

	userID, companyID := inq.UserID, inq.CompanyID
	for _, n := range []*domain.Notification{
		{RecipientUserID: &userID},
		{RecipientCompanyID: &companyID},
	} {
		n.Kind = domain.NotificationInquiryExpired
		n.InquiryID = inq.ID
		n.Status = domain.InquiryStatusExpired
		n.CreatedAt = s.now()
		if err := s.notifier.Notify(ctx, n); err != nil {
			s.log.Error("Failed to enqueue notification", "error", err, "inquiry_id", inq.ID, "kind", n.Kind)
		}
	}
}

// unreadFor counts messages the user has not acknowledged. A user without a
// participant row has a watermark of 0.
func unreadFor(ctx context.Context, participants repository.ParticipantRepository, messages repository.MessageRepository, inquiryID, userID int64) (int64, error) {
	var watermark int64
	p, err := participants.Get(ctx, inquiryID, userID)
	switch {
	case err == nil:
		watermark = p.LastReadMessageID
	case !errors.Is(err, apperrors.ErrNotFound):
		return 0, err
	}
	return messages.CountUnread(ctx, inquiryID, userID, watermark)
}
