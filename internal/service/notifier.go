package service

import (
	"context"
	"time"

	"vehicle_import/internal/domain"
	"vehicle_import/pkg/logger"
)

// Notifier hands a notification to the delivery pipeline. Implementations
// must not block on the actual delivery.
type Notifier interface {
	Notify(ctx context.Context, n *domain.Notification) error
}

type nopNotifier struct{}

// NopNotifier drops every notification.
func NopNotifier() Notifier {
	return nopNotifier{}
}

func (nopNotifier) Notify(context.Context, *domain.Notification) error {
	return nil
}

// notifyCounterparty addresses n to whoever did not act: the company when the
// user acted, the user otherwise. Failures are logged and swallowed so the
// write that triggered the notification stands.
func notifyCounterparty(ctx context.Context, notifier Notifier, log logger.Logger, inq *domain.Inquiry, actorRole domain.ParticipantRole, n domain.Notification) {
	n.InquiryID = inq.ID
	n.CreatedAt = time.Now().UTC()
	if actorRole == domain.ParticipantRoleUser {
		companyID := inq.CompanyID
		n.RecipientCompanyID = &companyID
	} else {
		userID := inq.UserID
		n.RecipientUserID = &userID
	}

	if err := notifier.Notify(ctx, &n); err != nil {
		log.Error("Failed to enqueue notification", "error", err, "inquiry_id", inq.ID, "kind", n.Kind)
	}
}
