package service

import (
	"context"

	"vehicle_import/internal/domain"
	"vehicle_import/internal/repository"
	"vehicle_import/pkg/logger"
)

const defaultInboxPage = 50

type NotificationService interface {
	// Inbox returns the newest notifications first. Principals acting for a
	// company read the company inbox, everyone else their own.
	Inbox(ctx context.Context, principal domain.Principal, limit int) ([]*domain.Notification, error)
}

type notificationService struct {
	inboxRepo repository.NotificationRepository
	log       logger.Logger
}

func NewNotificationService(inboxRepo repository.NotificationRepository, log logger.Logger) NotificationService {
	return &notificationService{inboxRepo: inboxRepo, log: log}
}

func (s *notificationService) Inbox(ctx context.Context, principal domain.Principal, limit int) ([]*domain.Notification, error) {
	owner := &domain.Notification{}
	if companyID := principal.ActingCompanyID(); companyID != nil {
		owner.RecipientCompanyID = companyID
	} else {
		userID := principal.UserID
		owner.RecipientUserID = &userID
	}

	key, err := repository.InboxKey(owner)
	if err != nil {
		return nil, err
	}

	return s.inboxRepo.List(ctx, key, clampLimit(limit, defaultInboxPage, repository.InboxMaxSize))
}
