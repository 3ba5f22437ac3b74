package handler

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"vehicle_import/internal/service"
	"vehicle_import/pkg/logger"
)

type Handlers struct {
	Health       *HealthHandler
	Inquiry      *InquiryHandler
	Message      *MessageHandler
	Notification *NotificationHandler
}

func NewHandlers(services *service.Services, db *pgxpool.Pool, rdb *redis.Client, log logger.Logger) *Handlers {
	return &Handlers{
		Health:       NewHealthHandler(db, rdb),
		Inquiry:      NewInquiryHandler(services.Inquiry, log),
		Message:      NewMessageHandler(services.Message, services.ReadTracker, log),
		Notification: NewNotificationHandler(services.Notification, log),
	}
}
