package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"vehicle_import/internal/domain"
	apperrors "vehicle_import/pkg/errors"
	"vehicle_import/pkg/logger"
)

type MessageRepository interface {
	// Create appends msg to an open inquiry. When msg carries a client message
	// id that was already stored, msg is overwritten with the stored row and
	// created is false.
	Create(ctx context.Context, msg *domain.Message) (created bool, err error)
	// FindByClientID returns the message stored under a client message id, or
	// a not-found error.
	FindByClientID(ctx context.Context, inquiryID int64, clientMessageID string) (*domain.Message, error)
	List(ctx context.Context, inquiryID int64, page domain.MessagePage) ([]*domain.Message, bool, error)
	CountUnread(ctx context.Context, inquiryID, userID, watermark int64) (int64, error)
}

type messageRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewMessageRepository(db *pgxpool.Pool, log logger.Logger) MessageRepository {
	return &messageRepository{db: db, log: log}
}

const messageColumns = `id, inquiry_id, sender_id, client_message_id, message_type, message, attachments, created_at`

func scanMessage(row pgx.Row) (*domain.Message, error) {
	msg := &domain.Message{}
	var msgType string
	var attachments []byte
	err := row.Scan(
		&msg.ID, &msg.InquiryID, &msg.SenderID, &msg.ClientMessageID,
		&msgType, &msg.Message, &attachments, &msg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	msg.MessageType = domain.MessageType(msgType)
	msg.Attachments = []domain.Attachment{}
	if len(attachments) > 0 {
		if err := json.Unmarshal(attachments, &msg.Attachments); err != nil {
			return nil, err
		}
	}
	return msg, nil
}

func (r *messageRepository) Create(ctx context.Context, msg *domain.Message) (bool, error) {
	var created bool
	err := WithRetries(ctx, func() error {
		return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
			var err error
			created, err = createMessageTx(ctx, tx, msg)
			return err
		})
	}, DefaultMaxRetries, IsTransientConflict)

	if err != nil {
		if apperrors.KindOf(err) == apperrors.ErrInternalServer {
			r.log.Error("Failed to create message", "error", err, "inquiry_id", msg.InquiryID)
		}
		return false, translateError("create message", err)
	}

	return created, nil
}

// createMessageTx takes the inquiry row lock before touching messages, the
// same order CreateOrAppend and Transition use. FOR NO KEY UPDATE serializes
// concurrent sends on one inquiry and blocks a status change until commit, so
// a message never lands after the inquiry turned terminal.
func createMessageTx(ctx context.Context, tx pgx.Tx, msg *domain.Message) (bool, error) {
	var status string
	err := tx.QueryRow(ctx, `SELECT status FROM inquiries WHERE id = $1 FOR NO KEY UPDATE`, msg.InquiryID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, apperrors.NotFound("inquiry %d not found", msg.InquiryID)
	}
	if err != nil {
		return false, err
	}

	// A replay is answered even after the inquiry closed.
	if msg.ClientMessageID != nil {
		prior, err := findByClientID(ctx, tx, msg.InquiryID, *msg.ClientMessageID)
		if err == nil {
			*msg = *prior
			return false, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return false, err
		}
	}

	if !domain.InquiryStatus(status).IsOpen() {
		return false, apperrors.InvalidState("inquiry %d is %s, messaging is closed", msg.InquiryID, status)
	}

	created, err := insertMessage(ctx, tx, msg)
	if err != nil {
		return false, err
	}
	if created {
		if _, err := touchLastMessage(ctx, tx, msg.InquiryID, msg.CreatedAt); err != nil {
			return false, err
		}
	}
	return created, nil
}

// insertMessage inserts msg, or loads the prior row on a client message id
// collision.
func insertMessage(ctx context.Context, q querier, msg *domain.Message) (bool, error) {
	if msg.Attachments == nil {
		msg.Attachments = []domain.Attachment{}
	}
	attachments, err := json.Marshal(msg.Attachments)
	if err != nil {
		return false, err
	}

	query := `
		INSERT INTO inquiry_messages (inquiry_id, sender_id, client_message_id, message_type, message, attachments, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT ON CONSTRAINT ux_inquiry_messages_client_id DO NOTHING
		RETURNING id, created_at
	`

	err = q.QueryRow(ctx, query,
		msg.InquiryID, msg.SenderID, msg.ClientMessageID, string(msg.MessageType),
		msg.Message, attachments, msg.CreatedAt,
	).Scan(&msg.ID, &msg.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) && msg.ClientMessageID != nil {
		prior, err := findByClientID(ctx, q, msg.InquiryID, *msg.ClientMessageID)
		if err != nil {
			return false, err
		}
		*msg = *prior
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

func (r *messageRepository) FindByClientID(ctx context.Context, inquiryID int64, clientMessageID string) (*domain.Message, error) {
	msg, err := findByClientID(ctx, r.db, inquiryID, clientMessageID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("message with client id %q not found", clientMessageID)
	}
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func findByClientID(ctx context.Context, q querier, inquiryID int64, clientMessageID string) (*domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM inquiry_messages
		WHERE inquiry_id = $1 AND client_message_id = $2
	`
	return scanMessage(q.QueryRow(ctx, query, inquiryID, clientMessageID))
}

// touchLastMessage never moves last_message_at backwards.
func touchLastMessage(ctx context.Context, q querier, inquiryID int64, at time.Time) (*time.Time, error) {
	query := `
		UPDATE inquiries
		SET last_message_at = GREATEST(COALESCE(last_message_at, $2), $2), updated_at = $2
		WHERE id = $1
		RETURNING last_message_at
	`
	var lastMessageAt time.Time
	if err := q.QueryRow(ctx, query, inquiryID, at).Scan(&lastMessageAt); err != nil {
		return nil, err
	}
	return &lastMessageAt, nil
}

func (r *messageRepository) List(ctx context.Context, inquiryID int64, page domain.MessagePage) ([]*domain.Message, bool, error) {
	var rows pgx.Rows
	var err error
	ascending := false

	switch {
	case page.Cursor == nil:
		query := `SELECT ` + messageColumns + ` FROM inquiry_messages WHERE inquiry_id = $1 ORDER BY id DESC LIMIT $2`
		rows, err = r.db.Query(ctx, query, inquiryID, page.Limit+1)
	case page.Direction == domain.PageNewer:
		ascending = true
		query := `SELECT ` + messageColumns + ` FROM inquiry_messages WHERE inquiry_id = $1 AND id > $2 ORDER BY id ASC LIMIT $3`
		rows, err = r.db.Query(ctx, query, inquiryID, *page.Cursor, page.Limit+1)
	default:
		query := `SELECT ` + messageColumns + ` FROM inquiry_messages WHERE inquiry_id = $1 AND id < $2 ORDER BY id DESC LIMIT $3`
		rows, err = r.db.Query(ctx, query, inquiryID, *page.Cursor, page.Limit+1)
	}
	if err != nil {
		r.log.Error("Failed to get messages", "error", err, "inquiry_id", inquiryID)
		return nil, false, translateError("list messages", err)
	}
	defer rows.Close()

	messages := make([]*domain.Message, 0, page.Limit+1)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			r.log.Error("Failed to scan message", "error", err)
			return nil, false, translateError("list messages", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, false, translateError("list messages", err)
	}

	hasMore := len(messages) > page.Limit
	if hasMore {
		messages = messages[:page.Limit]
	}

	if !ascending {
		for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
			messages[i], messages[j] = messages[j], messages[i]
		}
	}

	return messages, hasMore, nil
}

func (r *messageRepository) CountUnread(ctx context.Context, inquiryID, userID, watermark int64) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM inquiry_messages
		WHERE inquiry_id = $1 AND id > $2 AND sender_id <> $3
	`

	var count int64
	if err := r.db.QueryRow(ctx, query, inquiryID, watermark, userID).Scan(&count); err != nil {
		r.log.Error("Failed to count unread messages", "error", err, "inquiry_id", inquiryID)
		return 0, translateError("count unread", err)
	}

	return count, nil
}
