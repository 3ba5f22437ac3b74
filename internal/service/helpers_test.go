package service

import (
	"context"
	"testing"
	"time"

	"vehicle_import/internal/config"
	"vehicle_import/internal/domain"
	"vehicle_import/pkg/logger"
)

type testDeps struct {
	inquiries    *MockInquiryRepository
	messages     *MockMessageRepository
	participants *MockParticipantRepository
	catalogRepo  *MockCatalogRepository
	auditRepo    *MockAuditRepository
	notifier     *MockNotifier
	limiter      RateLimitService
	cfg          config.InquiryConfig
}

func newTestDeps() *testDeps {
	return &testDeps{
		inquiries:    new(MockInquiryRepository),
		messages:     new(MockMessageRepository),
		participants: new(MockParticipantRepository),
		catalogRepo:  new(MockCatalogRepository),
		auditRepo:    new(MockAuditRepository),
		notifier:     new(MockNotifier),
		limiter:      allowAll{},
		cfg: config.InquiryConfig{
			PendingTTL:       14 * 24 * time.Hour,
			ActiveTTL:        30 * 24 * time.Hour,
			SweepBatchSize:   2,
			MaxAttachments:   10,
			MaxMessageLength: 50,
			DefaultPageSize:  20,
			MaxPageSize:      100,
		},
	}
}

func (d *testDeps) inquiryService(t *testing.T) *inquiryService {
	log := logger.Nop()
	catalog := NewCatalogService(d.catalogRepo, time.Minute, log)
	t.Cleanup(catalog.Stop)
	gate := NewAccessGate(d.inquiries, log)
	return NewInquiryService(d.inquiries, d.messages, d.participants, gate, catalog, NewAuditService(d.auditRepo, log), d.notifier, d.cfg, log).(*inquiryService)
}

func (d *testDeps) messageService() MessageService {
	log := logger.Nop()
	return NewMessageService(d.messages, d.participants, NewAccessGate(d.inquiries, log), d.limiter, d.notifier, d.cfg, log)
}

func (d *testDeps) readTracker() ReadTracker {
	log := logger.Nop()
	return NewReadTracker(d.participants, d.messages, NewAccessGate(d.inquiries, log), log)
}

type allowAll struct{}

func (allowAll) AllowMessage(context.Context, int64) (bool, error) {
	return true, nil
}

func int64Ptr(v int64) *int64 {
	return &v
}

func strPtr(v string) *string {
	return &v
}

const (
	testUserID        int64 = 10
	testCompanyID     int64 = 7
	testCompanyUserID int64 = 70
	testVehicleID     int64 = 42
)

func testInquiry(status domain.InquiryStatus) *domain.Inquiry {
	now := time.Now().UTC()
	return &domain.Inquiry{
		ID:        100,
		UserID:    testUserID,
		CompanyID: testCompanyID,
		VehicleID: testVehicleID,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
}

func userPrincipal() domain.Principal {
	return domain.Principal{UserID: testUserID, Role: domain.RoleUser}
}

func companyPrincipal() domain.Principal {
	return domain.Principal{UserID: testCompanyUserID, CompanyID: int64Ptr(testCompanyID), Role: domain.RoleCompany}
}
