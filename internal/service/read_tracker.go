package service

import (
	"context"
	"time"

	"vehicle_import/internal/domain"
	"vehicle_import/internal/repository"
	"vehicle_import/pkg/logger"
)

type ReadTracker interface {
	// MarkAsRead moves the caller's watermark up to the newest message. It
	// never moves it down.
	MarkAsRead(ctx context.Context, principal domain.Principal, inquiryID int64) (*domain.Participant, error)
	UnreadCount(ctx context.Context, principal domain.Principal, inquiryID int64) (int64, error)
	CountUnread(ctx context.Context, inquiryID, userID, watermark int64) (int64, error)
	GetReadWatermarks(ctx context.Context, principal domain.Principal, inquiryID int64) ([]*domain.Participant, error)
}

type readTracker struct {
	participantRepo repository.ParticipantRepository
	messageRepo     repository.MessageRepository
	gate            AccessGate
	log             logger.Logger
}

func NewReadTracker(participantRepo repository.ParticipantRepository, messageRepo repository.MessageRepository, gate AccessGate, log logger.Logger) ReadTracker {
	return &readTracker{
		participantRepo: participantRepo,
		messageRepo:     messageRepo,
		gate:            gate,
		log:             log,
	}
}

func (t *readTracker) MarkAsRead(ctx context.Context, principal domain.Principal, inquiryID int64) (*domain.Participant, error) {
	decision, err := t.gate.Authorize(ctx, principal, inquiryID)
	if err != nil {
		return nil, err
	}

	p, err := t.participantRepo.MarkRead(ctx, inquiryID, principal.UserID, decision.Role, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	t.log.Debug("Inquiry marked as read", "inquiry_id", inquiryID, "user_id", principal.UserID, "watermark", p.LastReadMessageID)
	return p, nil
}

func (t *readTracker) UnreadCount(ctx context.Context, principal domain.Principal, inquiryID int64) (int64, error) {
	if _, err := t.gate.Authorize(ctx, principal, inquiryID); err != nil {
		return 0, err
	}
	return unreadFor(ctx, t.participantRepo, t.messageRepo, inquiryID, principal.UserID)
}

func (t *readTracker) CountUnread(ctx context.Context, inquiryID, userID, watermark int64) (int64, error) {
	if watermark < 0 {
		watermark = 0
	}
	return t.messageRepo.CountUnread(ctx, inquiryID, userID, watermark)
}

func (t *readTracker) GetReadWatermarks(ctx context.Context, principal domain.Principal, inquiryID int64) ([]*domain.Participant, error) {
	if _, err := t.gate.Authorize(ctx, principal, inquiryID); err != nil {
		return nil, err
	}
	return t.participantRepo.ListByInquiry(ctx, inquiryID)
}
