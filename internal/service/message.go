package service

import (
	"context"
	"errors"
	"time"

	"vehicle_import/internal/config"
	"vehicle_import/internal/domain"
	"vehicle_import/internal/repository"
	apperrors "vehicle_import/pkg/errors"
	"vehicle_import/pkg/logger"
)

type MessageService interface {
	// SendMessage appends a message. A replayed client message id returns the
	// stored message with created set to false and is not counted against the
	// sender's rate limit.
	SendMessage(ctx context.Context, principal domain.Principal, inquiryID int64, params domain.SendMessageParams) (msg *domain.Message, created bool, err error)
	GetMessages(ctx context.Context, principal domain.Principal, inquiryID int64, page domain.MessagePage) (*domain.MessagePageResult, error)
}

type messageService struct {
	messageRepo     repository.MessageRepository
	participantRepo repository.ParticipantRepository
	gate            AccessGate
	limiter         RateLimitService
	notifier        Notifier
	cfg             config.InquiryConfig
	log             logger.Logger
}

func NewMessageService(
	messageRepo repository.MessageRepository,
	participantRepo repository.ParticipantRepository,
	gate AccessGate,
	limiter RateLimitService,
	notifier Notifier,
	cfg config.InquiryConfig,
	log logger.Logger,
) MessageService {
	return &messageService{
		messageRepo:     messageRepo,
		participantRepo: participantRepo,
		gate:            gate,
		limiter:         limiter,
		notifier:        notifier,
		cfg:             cfg,
		log:             log,
	}
}

func (s *messageService) SendMessage(ctx context.Context, principal domain.Principal, inquiryID int64, params domain.SendMessageParams) (*domain.Message, bool, error) {
	msgType := params.Type
	if msgType == "" {
		msgType = domain.MessageTypeText
	}
	if msgType != domain.MessageTypeText && msgType != domain.MessageTypeOffer {
		return nil, false, apperrors.Validation("message_type must be text or offer")
	}

	limits := messageLimits{maxLength: s.cfg.MaxMessageLength, maxAttachments: s.cfg.MaxAttachments}
	body, err := limits.validateBody(params.Message)
	if err != nil {
		return nil, false, err
	}
	if err := limits.validateAttachments(params.Attachments); err != nil {
		return nil, false, err
	}
	if err := validateClientMessageID(params.ClientMessageID); err != nil {
		return nil, false, err
	}

	decision, err := s.gate.Authorize(ctx, principal, inquiryID)
	if err != nil {
		return nil, false, err
	}
	if params.ClientMessageID != nil {
		prior, err := s.messageRepo.FindByClientID(ctx, inquiryID, *params.ClientMessageID)
		if err == nil {
			s.log.Debug("Replayed message", "inquiry_id", inquiryID, "message_id", prior.ID)
			return prior, false, nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, false, err
		}
	}

	// Fast path only. The store re-checks under a row lock.
	if !decision.Inquiry.Status.IsOpen() {
		return nil, false, apperrors.InvalidState("inquiry %d is %s, messaging is closed", inquiryID, decision.Inquiry.Status)
	}

	if err := s.checkRate(ctx, principal.UserID); err != nil {
		return nil, false, err
	}

	msg := &domain.Message{
		InquiryID:       inquiryID,
		SenderID:        principal.UserID,
		ClientMessageID: params.ClientMessageID,
		MessageType:     msgType,
		Message:         body,
		Attachments:     params.Attachments,
		CreatedAt:       time.Now().UTC(),
	}

	created, err := s.messageRepo.Create(ctx, msg)
	if err != nil {
		return nil, false, err
	}
	if !created {
		s.log.Debug("Replayed message", "inquiry_id", inquiryID, "message_id", msg.ID)
		return msg, false, nil
	}

	if _, err := s.participantRepo.Ensure(ctx, inquiryID, principal.UserID, decision.Role); err != nil {
		s.log.Warn("Failed to register participant", "error", err, "inquiry_id", inquiryID, "user_id", principal.UserID)
	}

	messageID := msg.ID
	actorID := principal.UserID
	notifyCounterparty(ctx, s.notifier, s.log, decision.Inquiry, decision.Role, domain.Notification{
		Kind:        domain.NotificationMessageCreated,
		ActorUserID: &actorID,
		MessageID:   &messageID,
		Status:      decision.Inquiry.Status,
	})

	return msg, true, nil
}

// checkRate lets the send through when the limiter itself fails.
func (s *messageService) checkRate(ctx context.Context, userID int64) error {
	allowed, err := s.limiter.AllowMessage(ctx, userID)
	if err != nil {
		s.log.Error("Rate limit check failed", "error", err, "user_id", userID)
		return nil
	}
	if !allowed {
		return apperrors.New(apperrors.ErrRateLimited, "too many messages, slow down")
	}
	return nil
}

func (s *messageService) GetMessages(ctx context.Context, principal domain.Principal, inquiryID int64, page domain.MessagePage) (*domain.MessagePageResult, error) {
	switch page.Direction {
	case "":
		page.Direction = domain.PageOlder
	case domain.PageOlder, domain.PageNewer:
	default:
		return nil, apperrors.Validation("direction must be older or newer")
	}
	if page.Cursor != nil && *page.Cursor < 0 {
		return nil, apperrors.Validation("cursor must not be negative")
	}
	page.Limit = clampLimit(page.Limit, s.cfg.DefaultPageSize, s.cfg.MaxPageSize)

	if _, err := s.gate.Authorize(ctx, principal, inquiryID); err != nil {
		return nil, err
	}

	messages, hasMore, err := s.messageRepo.List(ctx, inquiryID, page)
	if err != nil {
		return nil, err
	}

	return &domain.MessagePageResult{
		Messages:   messages,
		HasMore:    hasMore,
		NextCursor: nextCursor(page, messages),
	}, nil
}

// nextCursor is the id to pass back for the following page in the same
// direction: the oldest id when paging back in time, the newest id when
// polling forward. Polling forward past an empty page keeps the old cursor.
func nextCursor(page domain.MessagePage, messages []*domain.Message) *int64 {
	if len(messages) == 0 {
		return page.Cursor
	}
	var id int64
	if page.Direction == domain.PageNewer {
		id = messages[len(messages)-1].ID
	} else {
		id = messages[0].ID
	}
	return &id
}
