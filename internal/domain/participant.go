package domain

import (
	"time"
)

type ParticipantRole string

const (
	ParticipantRoleUser    ParticipantRole = "user"
	ParticipantRoleCompany ParticipantRole = "company"
)

// Participant holds one user's read watermark in an inquiry.
type Participant struct {
	InquiryID         int64           `json:"inquiry_id"`
	UserID            int64           `json:"user_id"`
	Role              ParticipantRole `json:"role"`
	LastReadMessageID int64           `json:"last_read_message_id"`
	LastReadAt        *time.Time      `json:"last_read_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// AccessDecision is the outcome of the per-request access check. Role is
// empty when CanAccess is false.
type AccessDecision struct {
	CanAccess bool            `json:"can_access"`
	Role      ParticipantRole `json:"role,omitempty"`
	Inquiry   *Inquiry        `json:"-"`
}
