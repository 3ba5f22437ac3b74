package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"
	"vehicle_import/internal/domain"
	"vehicle_import/pkg/logger"
)

type AuditRepository interface {
	CreateLog(ctx context.Context, log *domain.AuditLog) error
}

type auditRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewAuditRepository(db *pgxpool.Pool, log logger.Logger) AuditRepository {
	return &auditRepository{db: db, log: log}
}

func (r *auditRepository) CreateLog(ctx context.Context, auditLog *domain.AuditLog) error {
	payload, err := json.Marshal(auditLog.Payload)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO inquiry_audit_log (event_time, actor_user_id, actor_role, inquiry_id, event_type, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err = r.db.QueryRow(ctx, query,
		auditLog.EventTime, auditLog.ActorUserID, string(auditLog.ActorRole),
		auditLog.InquiryID, auditLog.EventType, payload,
	).Scan(&auditLog.ID)

	if err != nil {
		r.log.Error("Failed to create audit log", "error", err, "inquiry_id", auditLog.InquiryID)
		return translateError("create audit log", err)
	}

	return nil
}
