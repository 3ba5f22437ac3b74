package service

import (
	"vehicle_import/internal/config"
	"vehicle_import/internal/repository"
	"vehicle_import/pkg/logger"
)

type Services struct {
	Access       AccessGate
	Catalog      CatalogService
	Inquiry      InquiryService
	Message      MessageService
	ReadTracker  ReadTracker
	RateLimit    RateLimitService
	Audit        AuditService
	Notification NotificationService
}

func NewServices(repos *repository.Repositories, cfg *config.Config, notifier Notifier, log logger.Logger) *Services {
	if notifier == nil {
		log.Warn("No notifier configured, notifications are dropped")
		notifier = NopNotifier()
	}

	access := NewAccessGate(repos.Inquiry, log)
	catalog := NewCatalogService(repos.Catalog, cfg.Cache.DisplayTTL, log)
	audit := NewAuditService(repos.Audit, log)
	limiter := NewRateLimitService(repos.RateLimit, cfg.RateLimit.MessagesPerMinute, log)

	services := &Services{
		Access:       access,
		Catalog:      catalog,
		Audit:        audit,
		RateLimit:    limiter,
		Inquiry:      NewInquiryService(repos.Inquiry, repos.Message, repos.Participant, access, catalog, audit, notifier, cfg.Inquiry, log),
		Message:      NewMessageService(repos.Message, repos.Participant, access, limiter, notifier, cfg.Inquiry, log),
		ReadTracker:  NewReadTracker(repos.Participant, repos.Message, access, log),
		Notification: NewNotificationService(repos.Notification, log),
	}

	log.Info("Services initialized")

	return services
}
