package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"vehicle_import/internal/domain"
	apperrors "vehicle_import/pkg/errors"
	"vehicle_import/pkg/logger"
)

type InquiryRepository interface {
	// CreateOrAppend inserts inq together with its first message, or appends
	// first to the already open inquiry for the same triple. On return inq and
	// first hold the stored rows.
	CreateOrAppend(ctx context.Context, inq *domain.Inquiry, first *domain.Message) (created bool, err error)
	GetByID(ctx context.Context, id int64) (*domain.Inquiry, error)
	List(ctx context.Context, filter domain.InquiryFilter) ([]*domain.InquiryView, error)
	// Transition moves the inquiry only if its status still equals change.From.
	Transition(ctx context.Context, change domain.StatusChange) (*domain.Inquiry, error)
	// ExpireStale claims up to batchSize overdue open inquiries and expires
	// them, returning the moved rows. Rows locked by a concurrent writer are
	// skipped and picked up by a later run.
	ExpireStale(ctx context.Context, now time.Time, batchSize int) ([]*domain.Inquiry, error)
}

var errOpenInquiryVanished = errors.New("open inquiry closed during create")

type inquiryRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewInquiryRepository(db *pgxpool.Pool, log logger.Logger) InquiryRepository {
	return &inquiryRepository{db: db, log: log}
}

func inquiryColumns(alias string) string {
	cols := []string{
		"id", "user_id", "company_id", "vehicle_id", "quote_id", "status", "subject",
		"quoted_total_price", "quoted_currency", "final_price", "final_currency",
		"last_message_at", "created_at", "updated_at", "expires_at", "closed_at",
	}
	if alias == "" {
		return strings.Join(cols, ", ")
	}
	for i, c := range cols {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

func inquiryScanTargets(inq *domain.Inquiry, status *string) []any {
	return []any{
		&inq.ID, &inq.UserID, &inq.CompanyID, &inq.VehicleID, &inq.QuoteID, status, &inq.Subject,
		&inq.QuotedTotalPrice, &inq.QuotedCurrency, &inq.FinalPrice, &inq.FinalCurrency,
		&inq.LastMessageAt, &inq.CreatedAt, &inq.UpdatedAt, &inq.ExpiresAt, &inq.ClosedAt,
	}
}

func scanInquiry(row pgx.Row) (*domain.Inquiry, error) {
	inq := &domain.Inquiry{}
	var status string
	if err := row.Scan(inquiryScanTargets(inq, &status)...); err != nil {
		return nil, err
	}
	inq.Status = domain.InquiryStatus(status)
	return inq, nil
}

func (r *inquiryRepository) CreateOrAppend(ctx context.Context, inq *domain.Inquiry, first *domain.Message) (bool, error) {
	var created bool
	err := WithRetries(ctx, func() error {
		return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
			var err error
			created, err = r.createOrAppendTx(ctx, tx, inq, first)
			return err
		})
	}, DefaultMaxRetries, IsTransientConflict)

	if err != nil {
		if errors.Is(err, errOpenInquiryVanished) {
			r.log.Error("Open inquiry kept closing during create", "user_id", inq.UserID, "company_id", inq.CompanyID, "vehicle_id", inq.VehicleID)
			return false, apperrors.New(apperrors.ErrConflict, "inquiry is changing, retry later")
		}
		if apperrors.KindOf(err) == apperrors.ErrInternalServer {
			r.log.Error("Failed to create inquiry", "error", err, "user_id", inq.UserID)
		}
		return false, translateError("create inquiry", err)
	}

	return created, nil
}

func (r *inquiryRepository) createOrAppendTx(ctx context.Context, tx pgx.Tx, inq *domain.Inquiry, first *domain.Message) (bool, error) {
	insert := `
		INSERT INTO inquiries (user_id, company_id, vehicle_id, quote_id, status, subject,
		                       quoted_total_price, quoted_currency, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9, $10)
		ON CONFLICT (user_id, company_id, vehicle_id) WHERE status IN ('pending', 'active')
		DO NOTHING
		RETURNING ` + inquiryColumns("")

	now := inq.CreatedAt
	stored, err := scanInquiry(tx.QueryRow(ctx, insert,
		inq.UserID, inq.CompanyID, inq.VehicleID, inq.QuoteID, string(domain.InquiryStatusPending), inq.Subject,
		inq.QuotedTotalPrice, inq.QuotedCurrency, now, inq.ExpiresAt,
	))

	created := true
	if errors.Is(err, pgx.ErrNoRows) {
		// Lost the race (or a prior open inquiry exists): lock the winner.
		created = false
		lookup := `
			SELECT ` + inquiryColumns("") + `
			FROM inquiries
			WHERE user_id = $1 AND company_id = $2 AND vehicle_id = $3 AND status IN ('pending', 'active')
			FOR UPDATE
		`
		stored, err = scanInquiry(tx.QueryRow(ctx, lookup, inq.UserID, inq.CompanyID, inq.VehicleID))
		if errors.Is(err, pgx.ErrNoRows) {
			return false, errOpenInquiryVanished
		}
	}
	if err != nil {
		return false, err
	}

	first.InquiryID = stored.ID
	msgCreated, err := insertMessage(ctx, tx, first)
	if err != nil {
		return false, err
	}
	if msgCreated {
		if stored.LastMessageAt, err = touchLastMessage(ctx, tx, stored.ID, first.CreatedAt); err != nil {
			return false, err
		}
		stored.UpdatedAt = *stored.LastMessageAt
	}

	participant := `
		INSERT INTO inquiry_participants (inquiry_id, user_id, role, last_read_message_id, last_read_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (inquiry_id, user_id) DO UPDATE
		SET last_read_message_id = GREATEST(inquiry_participants.last_read_message_id, EXCLUDED.last_read_message_id),
		    last_read_at = EXCLUDED.last_read_at
	`
	if _, err := tx.Exec(ctx, participant, stored.ID, stored.UserID, string(domain.ParticipantRoleUser), first.ID, now); err != nil {
		return false, err
	}

	*inq = *stored
	return created, nil
}

func (r *inquiryRepository) GetByID(ctx context.Context, id int64) (*domain.Inquiry, error) {
	query := `SELECT ` + inquiryColumns("") + ` FROM inquiries WHERE id = $1`

	inq, err := scanInquiry(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("inquiry %d not found", id)
		}
		r.log.Error("Failed to get inquiry", "error", err, "inquiry_id", id)
		return nil, translateError("get inquiry", err)
	}

	return inq, nil
}

func (r *inquiryRepository) List(ctx context.Context, filter domain.InquiryFilter) ([]*domain.InquiryView, error) {
	args := []any{filter.ViewerID}
	where := []string{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.UserID != nil {
		where = append(where, "i.user_id = "+arg(*filter.UserID))
	}
	if filter.CompanyID != nil {
		where = append(where, "i.company_id = "+arg(*filter.CompanyID))
	}
	if filter.VehicleID != nil {
		where = append(where, "i.vehicle_id = "+arg(*filter.VehicleID))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		where = append(where, "i.status = ANY("+arg(statuses)+")")
	}
	if len(where) == 0 {
		return nil, apperrors.Validation("inquiry list must be scoped to a user or company")
	}

	query := `
		SELECT ` + inquiryColumns("i") + `,
		       (SELECT COUNT(*) FROM inquiry_messages m
		         WHERE m.inquiry_id = i.id
		           AND m.sender_id <> $1
		           AND m.id > COALESCE(p.last_read_message_id, 0)) AS unread_count
		FROM inquiries i
		LEFT JOIN inquiry_participants p ON p.inquiry_id = i.id AND p.user_id = $1
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY i.last_message_at DESC NULLS LAST, i.id DESC
		LIMIT ` + arg(filter.Limit) + ` OFFSET ` + arg(filter.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to list inquiries", "error", err)
		return nil, translateError("list inquiries", err)
	}
	defer rows.Close()

	views := []*domain.InquiryView{}
	for rows.Next() {
		view := &domain.InquiryView{}
		var status string
		targets := append(inquiryScanTargets(&view.Inquiry, &status), &view.UnreadCount)
		if err := rows.Scan(targets...); err != nil {
			r.log.Error("Failed to scan inquiry", "error", err)
			return nil, translateError("list inquiries", err)
		}
		view.Status = domain.InquiryStatus(status)
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError("list inquiries", err)
	}

	return views, nil
}

func (r *inquiryRepository) Transition(ctx context.Context, change domain.StatusChange) (*domain.Inquiry, error) {
	var updated *domain.Inquiry
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		var finalPrice *domain.Amount
		var finalCurrency *string
		if change.FinalPrice != nil {
			finalPrice = &change.FinalPrice.Amount
			finalCurrency = &change.FinalPrice.Currency
		}

		now := time.Now().UTC()
		var closedAt *time.Time
		if change.To.IsTerminal() {
			closedAt = &now
		}

		query := `
			UPDATE inquiries
			SET status = $3,
			    final_price = COALESCE($4, final_price),
			    final_currency = COALESCE($5, final_currency),
			    expires_at = COALESCE($6, expires_at),
			    closed_at = COALESCE($7, closed_at),
			    updated_at = $8
			WHERE id = $1 AND status = $2
			RETURNING ` + inquiryColumns("")

		inq, err := scanInquiry(tx.QueryRow(ctx, query,
			change.InquiryID, string(change.From), string(change.To),
			finalPrice, finalCurrency, change.ExpiresAt, closedAt, now,
		))
		if errors.Is(err, pgx.ErrNoRows) {
			return r.explainMissedTransition(ctx, tx, change)
		}
		if err != nil {
			return err
		}

		if change.SystemMessage != nil {
			change.SystemMessage.InquiryID = inq.ID
			if _, err := insertMessage(ctx, tx, change.SystemMessage); err != nil {
				return err
			}
			if inq.LastMessageAt, err = touchLastMessage(ctx, tx, inq.ID, change.SystemMessage.CreatedAt); err != nil {
				return err
			}
		}

		updated = inq
		return nil
	})

	if err != nil {
		if apperrors.KindOf(err) == apperrors.ErrInternalServer {
			r.log.Error("Failed to transition inquiry", "error", err, "inquiry_id", change.InquiryID, "to", change.To)
		}
		return nil, translateError("transition inquiry", err)
	}

	return updated, nil
}

// explainMissedTransition runs after the conditional update matched no row.
func (r *inquiryRepository) explainMissedTransition(ctx context.Context, tx pgx.Tx, change domain.StatusChange) error {
	var current string
	err := tx.QueryRow(ctx, `SELECT status FROM inquiries WHERE id = $1`, change.InquiryID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NotFound("inquiry %d not found", change.InquiryID)
	}
	if err != nil {
		return err
	}
	return apperrors.InvalidTransition(current, string(change.To))
}

func (r *inquiryRepository) ExpireStale(ctx context.Context, now time.Time, batchSize int) ([]*domain.Inquiry, error) {
	query := `
		UPDATE inquiries
		SET status = 'expired', closed_at = $1, updated_at = $1
		WHERE id IN (
			SELECT id FROM inquiries
			WHERE status IN ('pending', 'active') AND expires_at < $1
			ORDER BY id
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		AND status IN ('pending', 'active')
		RETURNING ` + inquiryColumns("")

	rows, err := r.db.Query(ctx, query, now, batchSize)
	if err != nil {
		r.log.Error("Failed to expire inquiries", "error", err)
		return nil, translateError("expire inquiries", err)
	}
	defer rows.Close()

	expired := []*domain.Inquiry{}
	for rows.Next() {
		inq, err := scanInquiry(rows)
		if err != nil {
			return nil, translateError("expire inquiries", err)
		}
		expired = append(expired, inq)
	}
	if err := rows.Err(); err != nil {
		r.log.Error("Failed to expire inquiries", "error", err)
		return nil, translateError("expire inquiries", err)
	}

	return expired, nil
}
