package domain

import (
	"time"
)

type NotificationKind string

const (
	NotificationMessageCreated NotificationKind = "message_created"
	NotificationStatusChanged  NotificationKind = "status_changed"
	NotificationInquiryExpired NotificationKind = "inquiry_expired"
)

// Notification is addressed to the counterparty of ActorUserID: either a user
// or a company inbox.
type Notification struct {
	Kind               NotificationKind `json:"kind"`
	InquiryID          int64            `json:"inquiry_id"`
	ActorUserID        *int64           `json:"actor_user_id,omitempty"`
	RecipientUserID    *int64           `json:"recipient_user_id,omitempty"`
	RecipientCompanyID *int64           `json:"recipient_company_id,omitempty"`
	MessageID          *int64           `json:"message_id,omitempty"`
	Status             InquiryStatus    `json:"status,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
}
