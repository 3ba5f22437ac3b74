package service

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"vehicle_import/internal/domain"
	"vehicle_import/internal/repository"
	"vehicle_import/pkg/logger"
)

// CatalogService serves read-only display fields owned by other services.
// Vehicle and company summaries are cached for ttl; writers elsewhere call the
// Invalidate methods when they change a record.
type CatalogService interface {
	Vehicle(ctx context.Context, id int64) (*domain.VehicleSummary, error)
	Company(ctx context.Context, id int64) (*domain.CompanySummary, error)
	QuotePrice(ctx context.Context, quoteID int64) (*domain.Money, error)
	InvalidateVehicle(id int64)
	InvalidateCompany(id int64)
	Stop()
}

type catalogService struct {
	catalogRepo  repository.CatalogRepository
	vehicleCache *ttlcache.Cache[int64, *domain.VehicleSummary]
	companyCache *ttlcache.Cache[int64, *domain.CompanySummary]
	log          logger.Logger
}

func NewCatalogService(catalogRepo repository.CatalogRepository, ttl time.Duration, log logger.Logger) CatalogService {
	s := &catalogService{
		catalogRepo:  catalogRepo,
		vehicleCache: ttlcache.New(ttlcache.WithTTL[int64, *domain.VehicleSummary](ttl)),
		companyCache: ttlcache.New(ttlcache.WithTTL[int64, *domain.CompanySummary](ttl)),
		log:          log,
	}

	go s.vehicleCache.Start()
	go s.companyCache.Start()

	return s
}

func (s *catalogService) Vehicle(ctx context.Context, id int64) (*domain.VehicleSummary, error) {
	if item := s.vehicleCache.Get(id); item != nil {
		return item.Value(), nil
	}
	v, err := s.catalogRepo.GetVehicle(ctx, id)
	if err != nil {
		return nil, err
	}
	s.vehicleCache.Set(id, v, ttlcache.DefaultTTL)
	return v, nil
}

func (s *catalogService) Company(ctx context.Context, id int64) (*domain.CompanySummary, error) {
	if item := s.companyCache.Get(id); item != nil {
		return item.Value(), nil
	}
	c, err := s.catalogRepo.GetCompany(ctx, id)
	if err != nil {
		return nil, err
	}
	s.companyCache.Set(id, c, ttlcache.DefaultTTL)
	return c, nil
}

// QuotePrice is read through on every call: it is snapshotted once per
// inquiry and must reflect the quote as stored at that moment.
func (s *catalogService) QuotePrice(ctx context.Context, quoteID int64) (*domain.Money, error) {
	return s.catalogRepo.GetQuotePrice(ctx, quoteID)
}

func (s *catalogService) InvalidateVehicle(id int64) {
	s.vehicleCache.Delete(id)
}

func (s *catalogService) InvalidateCompany(id int64) {
	s.companyCache.Delete(id)
}

func (s *catalogService) Stop() {
	s.vehicleCache.Stop()
	s.companyCache.Stop()
}

// decorate fills display fields on view. Lookup failures leave the field
// empty; the inquiry itself is still returned.
func decorate(ctx context.Context, catalog CatalogService, view *domain.InquiryView, log logger.Logger) {
	if v, err := catalog.Vehicle(ctx, view.VehicleID); err == nil {
		view.Vehicle = v
	} else {
		log.Warn("Failed to load vehicle summary", "error", err, "vehicle_id", view.VehicleID)
	}
	if c, err := catalog.Company(ctx, view.CompanyID); err == nil {
		view.Company = c
	} else {
		log.Warn("Failed to load company summary", "error", err, "company_id", view.CompanyID)
	}
}
