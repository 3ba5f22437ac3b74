package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"vehicle_import/internal/domain"
	apperrors "vehicle_import/pkg/errors"
)

func createParams() domain.CreateInquiryParams {
	return domain.CreateInquiryParams{
		UserID:    testUserID,
		CompanyID: testCompanyID,
		VehicleID: testVehicleID,
		Message:   "Interested in shipping cost.",
	}
}

// storeInquiry mimics the store filling in generated fields.
func storeInquiry(id int64, status domain.InquiryStatus, messageID int64) func(mock.Arguments) {
	return func(args mock.Arguments) {
		inq := args.Get(1).(*domain.Inquiry)
		inq.ID = id
		inq.Status = status
		msg := args.Get(2).(*domain.Message)
		msg.ID = messageID
		msg.InquiryID = id
	}
}

func TestCreateInquiry_NewInquiry(t *testing.T) {
	deps := newTestDeps()
	svc := deps.inquiryService(t)

	deps.inquiries.On("CreateOrAppend", mock.Anything,
		mock.MatchedBy(func(inq *domain.Inquiry) bool {
			ttl := inq.ExpiresAt.Sub(inq.CreatedAt)
			return inq.UserID == testUserID && inq.VehicleID == testVehicleID && ttl == deps.cfg.PendingTTL
		}),
		mock.MatchedBy(func(msg *domain.Message) bool {
			return msg.SenderID == testUserID && msg.MessageType == domain.MessageTypeText && msg.Message == "Interested in shipping cost."
		}),
	).Run(storeInquiry(100, domain.InquiryStatusPending, 1)).Return(true, nil)
	deps.auditRepo.On("CreateLog", mock.Anything, mock.MatchedBy(func(l *domain.AuditLog) bool {
		return l.EventType == domain.EventTypeInquiryCreated && l.InquiryID == 100
	})).Return(nil)
	deps.notifier.On("Notify", mock.Anything, mock.MatchedBy(func(n *domain.Notification) bool {
		return n.RecipientCompanyID != nil && *n.RecipientCompanyID == testCompanyID && n.RecipientUserID == nil &&
			n.Kind == domain.NotificationMessageCreated && *n.MessageID == 1
	})).Return(nil)

	result, err := svc.CreateInquiry(context.Background(), createParams())

	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.Equal(t, int64(100), result.Inquiry.ID)
	assert.Equal(t, domain.InquiryStatusPending, result.Inquiry.Status)
	assert.Equal(t, int64(1), result.Message.ID)
	deps.inquiries.AssertExpectations(t)
	deps.auditRepo.AssertExpectations(t)
	deps.notifier.AssertExpectations(t)
}

func TestCreateInquiry_AppendsToOpenInquiry(t *testing.T) {
	deps := newTestDeps()
	svc := deps.inquiryService(t)

	deps.inquiries.On("CreateOrAppend", mock.Anything, mock.Anything, mock.Anything).
		Run(storeInquiry(100, domain.InquiryStatusPending, 2)).Return(false, nil)
	deps.auditRepo.On("CreateLog", mock.Anything, mock.MatchedBy(func(l *domain.AuditLog) bool {
		return l.EventType == domain.EventTypeInquiryAppended
	})).Return(nil)
	deps.notifier.On("Notify", mock.Anything, mock.Anything).Return(nil)

	params := createParams()
	params.Message = "Any update?"
	result, err := svc.CreateInquiry(context.Background(), params)

	require.NoError(t, err)
	assert.False(t, result.Created)
	assert.Equal(t, int64(100), result.Inquiry.ID)
	assert.Equal(t, int64(2), result.Message.ID)
}

func TestCreateInquiry_SnapshotsQuotePrice(t *testing.T) {
	deps := newTestDeps()
	svc := deps.inquiryService(t)

	deps.catalogRepo.On("GetQuotePrice", mock.Anything, int64(5)).Return(&domain.Money{Amount: domain.MustParseAmount("2450.50"), Currency: "USD"}, nil)
	deps.inquiries.On("CreateOrAppend", mock.Anything,
		mock.MatchedBy(func(inq *domain.Inquiry) bool {
			return inq.QuotedTotalPrice != nil && *inq.QuotedTotalPrice == domain.MustParseAmount("2450.50") &&
				inq.QuotedCurrency != nil && *inq.QuotedCurrency == "USD"
		}),
		mock.Anything,
	).Run(storeInquiry(100, domain.InquiryStatusPending, 1)).Return(true, nil)
	deps.auditRepo.On("CreateLog", mock.Anything, mock.Anything).Return(nil)
	deps.notifier.On("Notify", mock.Anything, mock.Anything).Return(nil)

	params := createParams()
	params.QuoteID = int64Ptr(5)
	_, err := svc.CreateInquiry(context.Background(), params)

	require.NoError(t, err)
	deps.catalogRepo.AssertExpectations(t)
}

func TestCreateInquiry_ExplicitPriceWinsOverQuote(t *testing.T) {
	deps := newTestDeps()
	svc := deps.inquiryService(t)

	deps.inquiries.On("CreateOrAppend", mock.Anything,
		mock.MatchedBy(func(inq *domain.Inquiry) bool {
			return *inq.QuotedTotalPrice == domain.MustParseAmount("1999") && *inq.QuotedCurrency == "EUR"
		}),
		mock.Anything,
	).Run(storeInquiry(100, domain.InquiryStatusPending, 1)).Return(true, nil)
	deps.auditRepo.On("CreateLog", mock.Anything, mock.Anything).Return(nil)
	deps.notifier.On("Notify", mock.Anything, mock.Anything).Return(nil)

	params := createParams()
	params.QuoteID = int64Ptr(5)
	params.QuotedPrice = &domain.Money{Amount: domain.MustParseAmount("1999"), Currency: "eur"}
	_, err := svc.CreateInquiry(context.Background(), params)

	require.NoError(t, err)
	deps.catalogRepo.AssertNotCalled(t, "GetQuotePrice", mock.Anything, mock.Anything)
}

func TestCreateInquiry_NotifierFailureDoesNotFailWrite(t *testing.T) {
	deps := newTestDeps()
	svc := deps.inquiryService(t)

	deps.inquiries.On("CreateOrAppend", mock.Anything, mock.Anything, mock.Anything).
		Run(storeInquiry(100, domain.InquiryStatusPending, 1)).Return(true, nil)
	deps.auditRepo.On("CreateLog", mock.Anything, mock.Anything).Return(errors.New("audit down"))
	deps.notifier.On("Notify", mock.Anything, mock.Anything).Return(errors.New("redis down"))

	result, err := svc.CreateInquiry(context.Background(), createParams())

	require.NoError(t, err)
	assert.True(t, result.Created)
}

func TestCreateInquiry_Validation(t *testing.T) {
	tooMany := make([]domain.Attachment, 11)
	for i := range tooMany {
		tooMany[i] = domain.Attachment{URL: "https://cdn.example/a.jpg", Name: "a.jpg", MimeType: "image/jpeg", Size: 10}
	}

	tests := []struct {
		name   string
		mutate func(p *domain.CreateInquiryParams)
	}{
		{"missing message", func(p *domain.CreateInquiryParams) { p.Message = "   " }},
		{"message too long", func(p *domain.CreateInquiryParams) { p.Message = strings.Repeat("x", 51) }},
		{"too many attachments", func(p *domain.CreateInquiryParams) { p.Attachments = tooMany }},
		{"attachment without url", func(p *domain.CreateInquiryParams) { p.Attachments = []domain.Attachment{{Name: "a.jpg"}} }},
		{"missing vehicle", func(p *domain.CreateInquiryParams) { p.VehicleID = 0 }},
		{"negative price", func(p *domain.CreateInquiryParams) { p.QuotedPrice = &domain.Money{Amount: domain.MustParseAmount("-1"), Currency: "USD"} }},
		{"bad currency", func(p *domain.CreateInquiryParams) { p.QuotedPrice = &domain.Money{Amount: domain.MustParseAmount("1"), Currency: "DOLLAR"} }},
		{"blank client id", func(p *domain.CreateInquiryParams) { p.ClientMessageID = strPtr(" ") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := newTestDeps()
			svc := deps.inquiryService(t)

			params := createParams()
			tt.mutate(&params)
			_, err := svc.CreateInquiry(context.Background(), params)

			assert.ErrorIs(t, err, apperrors.ErrValidation)
			deps.inquiries.AssertNotCalled(t, "CreateOrAppend", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestUpdateStatusByCompany_ActivateWithFinalPrice(t *testing.T) {
	deps := newTestDeps()
	svc := deps.inquiryService(t)

	activated := testInquiry(domain.InquiryStatusActive)
	deps.inquiries.On("GetByID", mock.Anything, int64(100)).Return(testInquiry(domain.InquiryStatusPending), nil)
	deps.inquiries.On("Transition", mock.Anything, mock.MatchedBy(func(c domain.StatusChange) bool {
		if c.ExpiresAt == nil || c.SystemMessage == nil || c.FinalPrice == nil {
			return false
		}
		ttl := time.Until(*c.ExpiresAt)
		return c.From == domain.InquiryStatusPending && c.To == domain.InquiryStatusActive &&
			c.FinalPrice.Amount == domain.MustParseAmount("1200") &&
			c.SystemMessage.MessageType == domain.MessageTypeSystem &&
			c.SystemMessage.SenderID == testCompanyUserID &&
			ttl > deps.cfg.ActiveTTL-time.Minute && ttl <= deps.cfg.ActiveTTL
	})).Return(activated, nil)
	deps.auditRepo.On("CreateLog", mock.Anything, mock.MatchedBy(func(l *domain.AuditLog) bool {
		return l.EventType == domain.EventTypeStatusChanged && l.ActorRole == domain.ActorCompany
	})).Return(nil)
	deps.notifier.On("Notify", mock.Anything, mock.MatchedBy(func(n *domain.Notification) bool {
		return n.RecipientUserID != nil && *n.RecipientUserID == testUserID && n.Status == domain.InquiryStatusActive
	})).Return(nil)

	updated, err := svc.UpdateStatusByCompany(context.Background(), 100, testCompanyID, testCompanyUserID,
		domain.InquiryStatusActive, &domain.Money{Amount: domain.MustParseAmount("1200"), Currency: "usd"})

	require.NoError(t, err)
	assert.Equal(t, domain.InquiryStatusActive, updated.Status)
	deps.inquiries.AssertExpectations(t)
	deps.notifier.AssertExpectations(t)
}

func TestUpdateStatusByCompany_ActiveAgainIsInvalidTransition(t *testing.T) {
	deps := newTestDeps()
	svc := deps.inquiryService(t)

	deps.inquiries.On("GetByID", mock.Anything, int64(100)).Return(testInquiry(domain.InquiryStatusActive), nil)

	_, err := svc.UpdateStatusByCompany(context.Background(), 100, testCompanyID, testCompanyUserID, domain.InquiryStatusActive, nil)

	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	deps.inquiries.AssertNotCalled(t, "Transition", mock.Anything, mock.Anything)
}

func TestUpdateStatusByCompany_FinalPriceOnlyWhenActivating(t *testing.T) {
	deps := newTestDeps()
	svc := deps.inquiryService(t)

	_, err := svc.UpdateStatusByCompany(context.Background(), 100, testCompanyID, testCompanyUserID,
		domain.InquiryStatusDeclined, &domain.Money{Amount: domain.MustParseAmount("1200"), Currency: "USD"})

	assert.ErrorIs(t, err, apperrors.ErrValidation)
	deps.inquiries.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestUpdateStatusByCompany_WrongCompany(t *testing.T) {
	deps := newTestDeps()
	svc := deps.inquiryService(t)

	deps.inquiries.On("GetByID", mock.Anything, int64(100)).Return(testInquiry(domain.InquiryStatusPending), nil)

	_, err := svc.UpdateStatusByCompany(context.Background(), 100, 99, 990, domain.InquiryStatusActive, nil)

	assert.ErrorIs(t, err, apperrors.ErrAuthorization)
}

func TestUpdateStatusByCompany_UserStatusRejected(t *testing.T) {
	deps := newTestDeps()
	svc := deps.inquiryService(t)

	_, err := svc.UpdateStatusByCompany(context.Background(), 100, testCompanyID, testCompanyUserID, domain.InquiryStatusAccepted, nil)

	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestUpdateStatusByUser(t *testing.T) {
	tests := []struct {
		name    string
		current domain.InquiryStatus
		target  domain.InquiryStatus
		userID  int64
		wantErr error
	}{
		{"accept active", domain.InquiryStatusActive, domain.InquiryStatusAccepted, testUserID, nil},
		{"cancel pending", domain.InquiryStatusPending, domain.InquiryStatusCancelled, testUserID, nil},
		{"cancel active", domain.InquiryStatusActive, domain.InquiryStatusCancelled, testUserID, nil},
		{"accept pending", domain.InquiryStatusPending, domain.InquiryStatusAccepted, testUserID, apperrors.ErrInvalidTransition},
		{"cancel declined", domain.InquiryStatusDeclined, domain.InquiryStatusCancelled, testUserID, apperrors.ErrInvalidTransition},
		{"other user", domain.InquiryStatusActive, domain.InquiryStatusAccepted, 555, apperrors.ErrAuthorization},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := newTestDeps()
			svc := deps.inquiryService(t)

			deps.inquiries.On("GetByID", mock.Anything, int64(100)).Return(testInquiry(tt.current), nil)
			updated := testInquiry(tt.target)
			deps.inquiries.On("Transition", mock.Anything, mock.MatchedBy(func(c domain.StatusChange) bool {
				return c.From == tt.current && c.To == tt.target && c.FinalPrice == nil && c.ExpiresAt == nil
			})).Return(updated, nil)
			deps.auditRepo.On("CreateLog", mock.Anything, mock.Anything).Return(nil)
			deps.notifier.On("Notify", mock.Anything, mock.MatchedBy(func(n *domain.Notification) bool {
				return n.RecipientCompanyID != nil && *n.RecipientCompanyID == testCompanyID
			})).Return(nil)

			got, err := svc.UpdateStatusByUser(context.Background(), 100, tt.userID, tt.target)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				deps.inquiries.AssertNotCalled(t, "Transition", mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.target, got.Status)
		})
	}
}

func TestUpdateStatusByUser_CompanyStatusRejected(t *testing.T) {
	deps := newTestDeps()
	svc := deps.inquiryService(t)

	_, err := svc.UpdateStatusByUser(context.Background(), 100, testUserID, domain.InquiryStatusActive)

	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestUpdateStatus_LostRaceSurfacesInvalidTransition(t *testing.T) {
	deps := newTestDeps()
	svc := deps.inquiryService(t)

	deps.inquiries.On("GetByID", mock.Anything, int64(100)).Return(testInquiry(domain.InquiryStatusActive), nil)
	deps.inquiries.On("Transition", mock.Anything, mock.Anything).
		Return(nil, apperrors.InvalidTransition("declined", "accepted"))

	_, err := svc.UpdateStatusByUser(context.Background(), 100, testUserID, domain.InquiryStatusAccepted)

	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	deps.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

func TestUpdateStatus_DispatchesByRole(t *testing.T) {
	deps := newTestDeps()
	svc := deps.inquiryService(t)

	deps.inquiries.On("GetByID", mock.Anything, int64(100)).Return(testInquiry(domain.InquiryStatusActive), nil)
	deps.inquiries.On("Transition", mock.Anything, mock.MatchedBy(func(c domain.StatusChange) bool {
		return c.To == domain.InquiryStatusDeclined && c.SystemMessage.SenderID == testCompanyUserID
	})).Return(testInquiry(domain.InquiryStatusDeclined), nil)
	deps.auditRepo.On("CreateLog", mock.Anything, mock.Anything).Return(nil)
	deps.notifier.On("Notify", mock.Anything, mock.Anything).Return(nil)

	updated, err := svc.UpdateStatus(context.Background(), companyPrincipal(), 100, domain.UpdateStatusParams{Status: domain.InquiryStatusDeclined})
	require.NoError(t, err)
	assert.Equal(t, domain.InquiryStatusDeclined, updated.Status)

	_, err = svc.UpdateStatus(context.Background(), userPrincipal(), 100, domain.UpdateStatusParams{
		Status:     domain.InquiryStatusAccepted,
		FinalPrice: &domain.Money{Amount: domain.MustParseAmount("1"), Currency: "USD"},
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.UpdateStatus(context.Background(), domain.Principal{UserID: 555, Role: domain.RoleUser}, 100, domain.UpdateStatusParams{Status: domain.InquiryStatusCancelled})
	assert.ErrorIs(t, err, apperrors.ErrAuthorization)
}

func TestExpireStale_LoopsUntilShortBatch(t *testing.T) {
	deps := newTestDeps()
	svc := deps.inquiryService(t)

	first := []*domain.Inquiry{testInquiry(domain.InquiryStatusExpired), testInquiry(domain.InquiryStatusExpired)}
	second := []*domain.Inquiry{testInquiry(domain.InquiryStatusExpired)}
	deps.inquiries.On("ExpireStale", mock.Anything, mock.Anything, 2).Return(first, nil).Once()
	deps.inquiries.On("ExpireStale", mock.Anything, mock.Anything, 2).Return(second, nil).Once()
	deps.auditRepo.On("CreateLog", mock.Anything, mock.MatchedBy(func(l *domain.AuditLog) bool {
		return l.EventType == domain.EventTypeInquiryExpired && l.ActorRole == domain.ActorSystem && l.ActorUserID == nil
	})).Return(nil)
	deps.notifier.On("Notify", mock.Anything, mock.MatchedBy(func(n *domain.Notification) bool {
		return n.Kind == domain.NotificationInquiryExpired
	})).Return(nil)

	count, err := svc.ExpireStale(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, count)
	deps.inquiries.AssertNumberOfCalls(t, "ExpireStale", 2)
	deps.auditRepo.AssertNumberOfCalls(t, "CreateLog", 3)
	// User and company are both told.
	deps.notifier.AssertNumberOfCalls(t, "Notify", 6)
}

func TestExpireStale_NothingToDo(t *testing.T) {
	deps := newTestDeps()
	svc := deps.inquiryService(t)

	deps.inquiries.On("ExpireStale", mock.Anything, mock.Anything, 2).Return([]*domain.Inquiry{}, nil)

	count, err := svc.ExpireStale(context.Background())

	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestExpireStale_BatchFailure(t *testing.T) {
	deps := newTestDeps()
	svc := deps.inquiryService(t)

	deps.inquiries.On("ExpireStale", mock.Anything, mock.Anything, 2).Return(nil, errors.New("connection reset"))

	count, err := svc.ExpireStale(context.Background())

	assert.Error(t, err)
	assert.Zero(t, count)
}

func TestListInquiries_ScopesToCompany(t *testing.T) {
	deps := newTestDeps()
	svc := deps.inquiryService(t)

	views := []*domain.InquiryView{
		{Inquiry: *testInquiry(domain.InquiryStatusPending), UnreadCount: 1},
		{Inquiry: *testInquiry(domain.InquiryStatusActive)},
	}
	deps.inquiries.On("List", mock.Anything, mock.MatchedBy(func(f domain.InquiryFilter) bool {
		return f.UserID == nil && f.CompanyID != nil && *f.CompanyID == testCompanyID &&
			f.ViewerID == testCompanyUserID && f.Limit == deps.cfg.DefaultPageSize
	})).Return(views, nil)
	deps.catalogRepo.On("GetVehicle", mock.Anything, testVehicleID).Return(&domain.VehicleSummary{ID: testVehicleID, Make: "Ford", Model: "Mustang", Year: 2019}, nil).Once()
	deps.catalogRepo.On("GetCompany", mock.Anything, testCompanyID).Return(&domain.CompanySummary{ID: testCompanyID, Name: "Atlantic Shipping"}, nil).Once()

	got, err := svc.ListInquiries(context.Background(), companyPrincipal(), domain.InquiryFilter{})

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Ford", got[1].Vehicle.Make)
	assert.Equal(t, "Atlantic Shipping", got[0].Company.Name)
	// Second view is served from the cache.
	deps.catalogRepo.AssertNumberOfCalls(t, "GetVehicle", 1)
}

func TestListInquiries_ScopesToUser(t *testing.T) {
	deps := newTestDeps()
	svc := deps.inquiryService(t)

	deps.inquiries.On("List", mock.Anything, mock.MatchedBy(func(f domain.InquiryFilter) bool {
		return f.UserID != nil && *f.UserID == testUserID && f.CompanyID != nil && *f.CompanyID == 3 &&
			f.Limit == deps.cfg.MaxPageSize && len(f.Statuses) == 1
	})).Return([]*domain.InquiryView{}, nil)

	got, err := svc.ListInquiries(context.Background(), userPrincipal(), domain.InquiryFilter{
		CompanyID: int64Ptr(3),
		Statuses:  []domain.InquiryStatus{domain.InquiryStatusPending},
		Limit:     1000,
	})

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestListInquiries_CompanyCannotListOtherCompany(t *testing.T) {
	deps := newTestDeps()
	svc := deps.inquiryService(t)

	_, err := svc.ListInquiries(context.Background(), companyPrincipal(), domain.InquiryFilter{CompanyID: int64Ptr(99)})

	assert.ErrorIs(t, err, apperrors.ErrAuthorization)
}

func TestGetInquiry_WithUnreadAndDisplayFields(t *testing.T) {
	deps := newTestDeps()
	svc := deps.inquiryService(t)

	deps.inquiries.On("GetByID", mock.Anything, int64(100)).Return(testInquiry(domain.InquiryStatusActive), nil)
	deps.participants.On("Get", mock.Anything, int64(100), testUserID).Return(nil, apperrors.NotFound("participant not found"))
	deps.messages.On("CountUnread", mock.Anything, int64(100), testUserID, int64(0)).Return(int64(2), nil)
	deps.catalogRepo.On("GetVehicle", mock.Anything, testVehicleID).Return(nil, apperrors.NotFound("vehicle not found"))
	deps.catalogRepo.On("GetCompany", mock.Anything, testCompanyID).Return(&domain.CompanySummary{ID: testCompanyID, Name: "Atlantic Shipping"}, nil)

	view, err := svc.GetInquiry(context.Background(), userPrincipal(), 100)

	require.NoError(t, err)
	assert.Equal(t, int64(2), view.UnreadCount)
	assert.Nil(t, view.Vehicle)
	assert.Equal(t, "Atlantic Shipping", view.Company.Name)
}
