package service

import (
	"context"

	"vehicle_import/internal/domain"
	"vehicle_import/internal/repository"
	apperrors "vehicle_import/pkg/errors"
	"vehicle_import/pkg/logger"
)

// AccessGate decides whether a principal may read or write an inquiry. The
// inquiry is loaded from the store on every call; decisions are never cached.
type AccessGate interface {
	CanAccess(ctx context.Context, inquiryID, userID int64, companyID *int64) (*domain.AccessDecision, error)
	// Authorize is CanAccess for a principal, turning a denial into an
	// authorization error.
	Authorize(ctx context.Context, principal domain.Principal, inquiryID int64) (*domain.AccessDecision, error)
}

type accessGate struct {
	inquiryRepo repository.InquiryRepository
	log         logger.Logger
}

func NewAccessGate(inquiryRepo repository.InquiryRepository, log logger.Logger) AccessGate {
	return &accessGate{
		inquiryRepo: inquiryRepo,
		log:         log,
	}
}

func (g *accessGate) CanAccess(ctx context.Context, inquiryID, userID int64, companyID *int64) (*domain.AccessDecision, error) {
	inq, err := g.inquiryRepo.GetByID(ctx, inquiryID)
	if err != nil {
		return nil, err
	}

	decision := &domain.AccessDecision{Inquiry: inq}
	switch {
	case inq.UserID == userID:
		decision.CanAccess = true
		decision.Role = domain.ParticipantRoleUser
	case companyID != nil && *companyID == inq.CompanyID:
		decision.CanAccess = true
		decision.Role = domain.ParticipantRoleCompany
	}

	return decision, nil
}

func (g *accessGate) Authorize(ctx context.Context, principal domain.Principal, inquiryID int64) (*domain.AccessDecision, error) {
	decision, err := g.CanAccess(ctx, inquiryID, principal.UserID, principal.ActingCompanyID())
	if err != nil {
		return nil, err
	}
	if !decision.CanAccess {
		g.log.Warn("Inquiry access denied", "inquiry_id", inquiryID, "user_id", principal.UserID, "role", principal.Role)
		return nil, apperrors.Forbidden("not a participant of inquiry %d", inquiryID)
	}
	return decision, nil
}
