package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"vehicle_import/internal/domain"
)

type MockInquiryRepository struct {
	mock.Mock
}

func (m *MockInquiryRepository) CreateOrAppend(ctx context.Context, inq *domain.Inquiry, first *domain.Message) (bool, error) {
	args := m.Called(ctx, inq, first)
	return args.Bool(0), args.Error(1)
}

func (m *MockInquiryRepository) GetByID(ctx context.Context, id int64) (*domain.Inquiry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Inquiry), args.Error(1)
}

func (m *MockInquiryRepository) List(ctx context.Context, filter domain.InquiryFilter) ([]*domain.InquiryView, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.InquiryView), args.Error(1)
}

func (m *MockInquiryRepository) Transition(ctx context.Context, change domain.StatusChange) (*domain.Inquiry, error) {
	args := m.Called(ctx, change)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Inquiry), args.Error(1)
}

func (m *MockInquiryRepository) ExpireStale(ctx context.Context, now time.Time, batchSize int) ([]*domain.Inquiry, error) {
	args := m.Called(ctx, now, batchSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Inquiry), args.Error(1)
}

type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Create(ctx context.Context, msg *domain.Message) (bool, error) {
	args := m.Called(ctx, msg)
	return args.Bool(0), args.Error(1)
}

func (m *MockMessageRepository) FindByClientID(ctx context.Context, inquiryID int64, clientMessageID string) (*domain.Message, error) {
	args := m.Called(ctx, inquiryID, clientMessageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

func (m *MockMessageRepository) List(ctx context.Context, inquiryID int64, page domain.MessagePage) ([]*domain.Message, bool, error) {
	args := m.Called(ctx, inquiryID, page)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]*domain.Message), args.Bool(1), args.Error(2)
}

func (m *MockMessageRepository) CountUnread(ctx context.Context, inquiryID, userID, watermark int64) (int64, error) {
	args := m.Called(ctx, inquiryID, userID, watermark)
	return args.Get(0).(int64), args.Error(1)
}

type MockParticipantRepository struct {
	mock.Mock
}

func (m *MockParticipantRepository) Ensure(ctx context.Context, inquiryID, userID int64, role domain.ParticipantRole) (*domain.Participant, error) {
	args := m.Called(ctx, inquiryID, userID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Participant), args.Error(1)
}

func (m *MockParticipantRepository) Get(ctx context.Context, inquiryID, userID int64) (*domain.Participant, error) {
	args := m.Called(ctx, inquiryID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Participant), args.Error(1)
}

func (m *MockParticipantRepository) MarkRead(ctx context.Context, inquiryID, userID int64, role domain.ParticipantRole, at time.Time) (*domain.Participant, error) {
	args := m.Called(ctx, inquiryID, userID, role, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Participant), args.Error(1)
}

func (m *MockParticipantRepository) ListByInquiry(ctx context.Context, inquiryID int64) ([]*domain.Participant, error) {
	args := m.Called(ctx, inquiryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Participant), args.Error(1)
}

type MockCatalogRepository struct {
	mock.Mock
}

func (m *MockCatalogRepository) GetVehicle(ctx context.Context, id int64) (*domain.VehicleSummary, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VehicleSummary), args.Error(1)
}

func (m *MockCatalogRepository) GetCompany(ctx context.Context, id int64) (*domain.CompanySummary, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CompanySummary), args.Error(1)
}

func (m *MockCatalogRepository) GetQuotePrice(ctx context.Context, quoteID int64) (*domain.Money, error) {
	args := m.Called(ctx, quoteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Money), args.Error(1)
}

type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) CreateLog(ctx context.Context, log *domain.AuditLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

type MockRateLimitService struct {
	mock.Mock
}

func (m *MockRateLimitService) AllowMessage(ctx context.Context, userID int64) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

type MockRateLimitRepository struct {
	mock.Mock
}

func (m *MockRateLimitRepository) CheckLimit(ctx context.Context, key string, limit int) (bool, error) {
	args := m.Called(ctx, key, limit)
	return args.Bool(0), args.Error(1)
}

func (m *MockRateLimitRepository) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	args := m.Called(ctx, key, window)
	return args.Get(0).(int64), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, n *domain.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Push(ctx context.Context, n *domain.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *MockNotificationRepository) List(ctx context.Context, key string, limit int) ([]*domain.Notification, error) {
	args := m.Called(ctx, key, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Notification), args.Error(1)
}
