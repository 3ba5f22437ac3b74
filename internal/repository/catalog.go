package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"vehicle_import/internal/domain"
	apperrors "vehicle_import/pkg/errors"
	"vehicle_import/pkg/logger"
)

// CatalogRepository reads display fields owned by the vehicle catalog,
// company directory and shipping calculator. It never writes.
type CatalogRepository interface {
	GetVehicle(ctx context.Context, id int64) (*domain.VehicleSummary, error)
	GetCompany(ctx context.Context, id int64) (*domain.CompanySummary, error)
	GetQuotePrice(ctx context.Context, quoteID int64) (*domain.Money, error)
}

type catalogRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewCatalogRepository(db *pgxpool.Pool, log logger.Logger) CatalogRepository {
	return &catalogRepository{db: db, log: log}
}

func (r *catalogRepository) GetVehicle(ctx context.Context, id int64) (*domain.VehicleSummary, error) {
	query := `SELECT id, make, model, year, vin FROM vehicles WHERE id = $1`

	v := &domain.VehicleSummary{}
	err := r.db.QueryRow(ctx, query, id).Scan(&v.ID, &v.Make, &v.Model, &v.Year, &v.VIN)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("vehicle %d not found", id)
		}
		r.log.Error("Failed to get vehicle", "error", err, "vehicle_id", id)
		return nil, translateError("get vehicle", err)
	}

	return v, nil
}

func (r *catalogRepository) GetCompany(ctx context.Context, id int64) (*domain.CompanySummary, error) {
	query := `SELECT id, name FROM companies WHERE id = $1`

	c := &domain.CompanySummary{}
	err := r.db.QueryRow(ctx, query, id).Scan(&c.ID, &c.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("company %d not found", id)
		}
		r.log.Error("Failed to get company", "error", err, "company_id", id)
		return nil, translateError("get company", err)
	}

	return c, nil
}

func (r *catalogRepository) GetQuotePrice(ctx context.Context, quoteID int64) (*domain.Money, error) {
	query := `SELECT total_price, currency FROM quotes WHERE id = $1`

	m := &domain.Money{}
	err := r.db.QueryRow(ctx, query, quoteID).Scan(&m.Amount, &m.Currency)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("quote %d not found", quoteID)
		}
		r.log.Error("Failed to get quote price", "error", err, "quote_id", quoteID)
		return nil, translateError("get quote", err)
	}

	return m, nil
}
