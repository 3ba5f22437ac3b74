package domain

import (
	"time"

	apperrors "vehicle_import/pkg/errors"
)

type InquiryStatus string

const (
	InquiryStatusPending   InquiryStatus = "pending"
	InquiryStatusActive    InquiryStatus = "active"
	InquiryStatusAccepted  InquiryStatus = "accepted"
	InquiryStatusDeclined  InquiryStatus = "declined"
	InquiryStatusExpired   InquiryStatus = "expired"
	InquiryStatusCancelled InquiryStatus = "cancelled"
)

// OpenStatuses are the statuses counted by the one-open-inquiry-per-triple rule.
var OpenStatuses = []InquiryStatus{InquiryStatusPending, InquiryStatusActive}

func ParseInquiryStatus(s string) (InquiryStatus, bool) {
	switch st := InquiryStatus(s); st {
	case InquiryStatusPending, InquiryStatusActive, InquiryStatusAccepted,
		InquiryStatusDeclined, InquiryStatusExpired, InquiryStatusCancelled:
		return st, true
	}
	return "", false
}

func (s InquiryStatus) IsOpen() bool {
	return s == InquiryStatusPending || s == InquiryStatusActive
}

func (s InquiryStatus) IsTerminal() bool {
	_, known := ParseInquiryStatus(string(s))
	return known && !s.IsOpen()
}

// Actor is the party allowed to drive a transition.
type Actor string

const (
	ActorUser    Actor = "user"
	ActorCompany Actor = "company"
	ActorSystem  Actor = "system"
)

var transitions = map[InquiryStatus]map[InquiryStatus]Actor{
	InquiryStatusPending: {
		InquiryStatusActive:    ActorCompany,
		InquiryStatusCancelled: ActorUser,
		InquiryStatusExpired:   ActorSystem,
	},
	InquiryStatusActive: {
		InquiryStatusAccepted:  ActorUser,
		InquiryStatusDeclined:  ActorCompany,
		InquiryStatusCancelled: ActorUser,
		InquiryStatusExpired:   ActorSystem,
	},
}

// CanTransition reports whether from -> to is in the transition table.
func CanTransition(from, to InquiryStatus) bool {
	_, ok := transitions[from][to]
	return ok
}

// ValidateTransition checks both the table and the actor bound to the edge.
func ValidateTransition(from, to InquiryStatus, actor Actor) error {
	allowed, ok := transitions[from][to]
	if !ok || allowed != actor {
		return apperrors.InvalidTransition(string(from), string(to))
	}
	return nil
}

// TargetsFor lists the statuses an actor may ever request.
func TargetsFor(actor Actor) []InquiryStatus {
	switch actor {
	case ActorUser:
		return []InquiryStatus{InquiryStatusAccepted, InquiryStatusCancelled}
	case ActorCompany:
		return []InquiryStatus{InquiryStatusActive, InquiryStatusDeclined}
	case ActorSystem:
		return []InquiryStatus{InquiryStatusExpired}
	}
	return nil
}

type Inquiry struct {
	ID               int64         `json:"id"`
	UserID           int64         `json:"user_id"`
	CompanyID        int64         `json:"company_id"`
	VehicleID        int64         `json:"vehicle_id"`
	QuoteID          *int64        `json:"quote_id,omitempty"`
	Status           InquiryStatus `json:"status"`
	Subject          *string       `json:"subject,omitempty"`
	QuotedTotalPrice *Amount       `json:"quoted_total_price,omitempty"`
	QuotedCurrency   *string       `json:"quoted_currency,omitempty"`
	FinalPrice       *Amount       `json:"final_price,omitempty"`
	FinalCurrency    *string       `json:"final_currency,omitempty"`
	LastMessageAt    *time.Time    `json:"last_message_at,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
	ExpiresAt        time.Time     `json:"expires_at"`
	ClosedAt         *time.Time    `json:"closed_at,omitempty"`
}

// InquiryView is an inquiry as returned to one principal.
type InquiryView struct {
	Inquiry
	Vehicle     *VehicleSummary `json:"vehicle,omitempty"`
	Company     *CompanySummary `json:"company,omitempty"`
	UnreadCount int64           `json:"unread_count"`
}

// InquiryFilter scopes a list query. Exactly one of UserID / CompanyID is
// set by the service from the caller's principal.
type InquiryFilter struct {
	UserID    *int64
	CompanyID *int64
	VehicleID *int64
	Statuses  []InquiryStatus
	ViewerID  int64
	Limit     int
	Offset    int
}

type CreateInquiryParams struct {
	UserID          int64
	CompanyID       int64
	VehicleID       int64
	QuoteID         *int64
	Subject         *string
	Message         string
	ClientMessageID *string
	Attachments     []Attachment
	QuotedPrice     *Money
}

type CreateInquiryResult struct {
	Inquiry *Inquiry `json:"inquiry"`
	Message *Message `json:"message"`
	Created bool     `json:"created"`
}

// StatusChange is applied by the store as a compare-and-swap on From.
type StatusChange struct {
	InquiryID     int64
	From          InquiryStatus
	To            InquiryStatus
	FinalPrice    *Money
	ExpiresAt     *time.Time
	SystemMessage *Message
}

type UpdateStatusParams struct {
	Status     InquiryStatus
	FinalPrice *Money
}
