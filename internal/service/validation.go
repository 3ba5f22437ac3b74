package service

import (
	"strings"
	"unicode/utf8"

	"vehicle_import/internal/domain"
	apperrors "vehicle_import/pkg/errors"
)

const maxClientMessageIDLength = 128

type messageLimits struct {
	maxLength      int
	maxAttachments int
}

func (l messageLimits) validateBody(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", apperrors.Validation("message is required")
	}
	if l.maxLength > 0 && utf8.RuneCountInString(body) > l.maxLength {
		return "", apperrors.Validation("message exceeds %d characters", l.maxLength)
	}
	return body, nil
}

func (l messageLimits) validateAttachments(attachments []domain.Attachment) error {
	limit := l.maxAttachments
	if limit <= 0 || limit > domain.MaxAttachments {
		limit = domain.MaxAttachments
	}
	if len(attachments) > limit {
		return apperrors.Validation("at most %d attachments are allowed", limit)
	}
	for i, a := range attachments {
		if strings.TrimSpace(a.URL) == "" {
			return apperrors.Validation("attachment %d: url is required", i)
		}
		if a.Size < 0 {
			return apperrors.Validation("attachment %d: size must not be negative", i)
		}
	}
	return nil
}

func validateClientMessageID(id *string) error {
	if id == nil {
		return nil
	}
	if strings.TrimSpace(*id) == "" {
		return apperrors.Validation("client_message_id must not be blank")
	}
	if len(*id) > maxClientMessageIDLength {
		return apperrors.Validation("client_message_id exceeds %d bytes", maxClientMessageIDLength)
	}
	return nil
}

func validateMoney(field string, m *domain.Money) error {
	if m == nil {
		return nil
	}
	if m.Amount <= 0 {
		return apperrors.Validation("%s must be positive", field)
	}
	if len(m.Currency) != 3 {
		return apperrors.Validation("%s currency must be a 3-letter code", field)
	}
	m.Currency = strings.ToUpper(m.Currency)
	return nil
}

// clampLimit applies the default page size to non-positive values and caps
// the rest at max.
func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
