package domain

import (
	"time"
)

type AuditLog struct {
	ID          int64                  `json:"id"`
	EventTime   time.Time              `json:"event_time"`
	ActorUserID *int64                 `json:"actor_user_id,omitempty"`
	ActorRole   Actor                  `json:"actor_role"`
	InquiryID   int64                  `json:"inquiry_id"`
	EventType   string                 `json:"event_type"`
	Payload     map[string]interface{} `json:"payload"`
}

const (
	EventTypeInquiryCreated  = "INQUIRY_CREATED"
	EventTypeInquiryAppended = "INQUIRY_APPENDED"
	EventTypeStatusChanged   = "INQUIRY_STATUS_CHANGED"
	EventTypeInquiryExpired  = "INQUIRY_EXPIRED"
)
