package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"vehicle_import/pkg/logger"
)

type Repositories struct {
	Inquiry      InquiryRepository
	Message      MessageRepository
	Participant  ParticipantRepository
	Catalog      CatalogRepository
	Audit        AuditRepository
	RateLimit    RateLimitRepository
	Notification NotificationRepository
}

func NewRepositories(db *pgxpool.Pool, redis *redis.Client, log logger.Logger) *Repositories {
	repos := &Repositories{
		Inquiry:      NewInquiryRepository(db, log),
		Message:      NewMessageRepository(db, log),
		Participant:  NewParticipantRepository(db, log),
		Catalog:      NewCatalogRepository(db, log),
		Audit:        NewAuditRepository(db, log),
		RateLimit:    NewRateLimitRepository(redis, log),
		Notification: NewNotificationRepository(redis, log),
	}

	log.Info("Repositories initialized")

	return repos
}
