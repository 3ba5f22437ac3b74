package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"vehicle_import/internal/domain"
	apperrors "vehicle_import/pkg/errors"
	"vehicle_import/pkg/logger"
)

type ParticipantRepository interface {
	Ensure(ctx context.Context, inquiryID, userID int64, role domain.ParticipantRole) (*domain.Participant, error)
	Get(ctx context.Context, inquiryID, userID int64) (*domain.Participant, error)
	// MarkRead raises the watermark to the inquiry's current max message id.
	// It never lowers an existing watermark.
	MarkRead(ctx context.Context, inquiryID, userID int64, role domain.ParticipantRole, at time.Time) (*domain.Participant, error)
	ListByInquiry(ctx context.Context, inquiryID int64) ([]*domain.Participant, error)
}

type participantRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewParticipantRepository(db *pgxpool.Pool, log logger.Logger) ParticipantRepository {
	return &participantRepository{db: db, log: log}
}

const participantColumns = `inquiry_id, user_id, role, last_read_message_id, last_read_at, created_at`

func scanParticipant(row pgx.Row) (*domain.Participant, error) {
	p := &domain.Participant{}
	var role string
	err := row.Scan(&p.InquiryID, &p.UserID, &role, &p.LastReadMessageID, &p.LastReadAt, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.Role = domain.ParticipantRole(role)
	return p, nil
}

func (r *participantRepository) Ensure(ctx context.Context, inquiryID, userID int64, role domain.ParticipantRole) (*domain.Participant, error) {
	// The no-op update makes RETURNING yield the existing row on conflict.
	query := `
		INSERT INTO inquiry_participants (inquiry_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (inquiry_id, user_id) DO UPDATE SET role = inquiry_participants.role
		RETURNING ` + participantColumns

	p, err := scanParticipant(r.db.QueryRow(ctx, query, inquiryID, userID, string(role)))
	if err != nil {
		r.log.Error("Failed to ensure participant", "error", err, "inquiry_id", inquiryID, "user_id", userID)
		return nil, translateError("ensure participant", err)
	}

	return p, nil
}

func (r *participantRepository) Get(ctx context.Context, inquiryID, userID int64) (*domain.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM inquiry_participants WHERE inquiry_id = $1 AND user_id = $2`

	p, err := scanParticipant(r.db.QueryRow(ctx, query, inquiryID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("participant %d not found in inquiry %d", userID, inquiryID)
		}
		r.log.Error("Failed to get participant", "error", err, "inquiry_id", inquiryID)
		return nil, translateError("get participant", err)
	}

	return p, nil
}

func (r *participantRepository) MarkRead(ctx context.Context, inquiryID, userID int64, role domain.ParticipantRole, at time.Time) (*domain.Participant, error) {
	query := `
		INSERT INTO inquiry_participants (inquiry_id, user_id, role, last_read_message_id, last_read_at)
		SELECT $1::bigint, $2::bigint, $3::varchar, COALESCE(MAX(m.id), 0), $4::timestamptz
		FROM inquiry_messages m
		WHERE m.inquiry_id = $1::bigint
		ON CONFLICT (inquiry_id, user_id) DO UPDATE
		SET last_read_message_id = GREATEST(inquiry_participants.last_read_message_id, EXCLUDED.last_read_message_id),
		    last_read_at = EXCLUDED.last_read_at
		RETURNING ` + participantColumns

	p, err := scanParticipant(r.db.QueryRow(ctx, query, inquiryID, userID, string(role), at))
	if err != nil {
		r.log.Error("Failed to mark inquiry as read", "error", err, "inquiry_id", inquiryID, "user_id", userID)
		return nil, translateError("mark read", err)
	}

	return p, nil
}

func (r *participantRepository) ListByInquiry(ctx context.Context, inquiryID int64) ([]*domain.Participant, error) {
	query := `
		SELECT ` + participantColumns + `
		FROM inquiry_participants
		WHERE inquiry_id = $1
		ORDER BY created_at ASC, user_id ASC
	`

	rows, err := r.db.Query(ctx, query, inquiryID)
	if err != nil {
		r.log.Error("Failed to list participants", "error", err, "inquiry_id", inquiryID)
		return nil, translateError("list participants", err)
	}
	defer rows.Close()

	participants := []*domain.Participant{}
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			r.log.Error("Failed to scan participant", "error", err)
			return nil, translateError("list participants", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError("list participants", err)
	}

	return participants, nil
}
