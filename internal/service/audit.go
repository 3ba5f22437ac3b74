package service

import (
	"context"
	"time"

	"vehicle_import/internal/domain"
	"vehicle_import/internal/repository"
	"vehicle_import/pkg/logger"
)

type AuditService interface {
	LogEvent(ctx context.Context, actorUserID *int64, actorRole domain.Actor, inquiryID int64, eventType string, payload map[string]interface{}) error
}

type auditService struct {
	auditRepo repository.AuditRepository
	log       logger.Logger
}

func NewAuditService(auditRepo repository.AuditRepository, log logger.Logger) AuditService {
	return &auditService{
		auditRepo: auditRepo,
		log:       log,
	}
}

func (s *auditService) LogEvent(ctx context.Context, actorUserID *int64, actorRole domain.Actor, inquiryID int64, eventType string, payload map[string]interface{}) error {
	if payload == nil {
		payload = make(map[string]interface{})
	}

	auditLog := &domain.AuditLog{
		EventTime:   time.Now().UTC(),
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		InquiryID:   inquiryID,
		EventType:   eventType,
		Payload:     payload,
	}

	return s.auditRepo.CreateLog(ctx, auditLog)
}

// logAudit writes an audit entry without failing the caller.
func logAudit(ctx context.Context, audit AuditService, log logger.Logger, actorUserID *int64, actorRole domain.Actor, inquiryID int64, eventType string, payload map[string]interface{}) {
	if err := audit.LogEvent(ctx, actorUserID, actorRole, inquiryID, eventType, payload); err != nil {
		log.Warn("Failed to write audit log", "error", err, "inquiry_id", inquiryID, "event_type", eventType)
	}
}
