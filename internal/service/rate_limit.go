package service

import (
	"context"
	"fmt"
	"time"

	"vehicle_import/internal/repository"
	"vehicle_import/pkg/logger"
)

const messageRateWindow = time.Minute

type RateLimitService interface {
	// AllowMessage counts one send attempt for userID and reports whether it
	// fits in the per-minute budget.
	AllowMessage(ctx context.Context, userID int64) (bool, error)
}

type rateLimitService struct {
	rateLimitRepo     repository.RateLimitRepository
	messagesPerMinute int
	log               logger.Logger
}

func NewRateLimitService(rateLimitRepo repository.RateLimitRepository, messagesPerMinute int, log logger.Logger) RateLimitService {
	return &rateLimitService{
		rateLimitRepo:     rateLimitRepo,
		messagesPerMinute: messagesPerMinute,
		log:               log,
	}
}

func messageRateKey(userID int64) string {
	return fmt.Sprintf("ratelimit:messages:user:%d", userID)
}

func (s *rateLimitService) AllowMessage(ctx context.Context, userID int64) (bool, error) {
	if s.messagesPerMinute <= 0 {
		return true, nil
	}

	key := messageRateKey(userID)
	allowed, err := s.rateLimitRepo.CheckLimit(ctx, key, s.messagesPerMinute)
	if err != nil {
		return false, err
	}
	if !allowed {
		return false, nil
	}

	count, err := s.rateLimitRepo.Increment(ctx, key, messageRateWindow)
	if err != nil {
		return false, err
	}
	return count <= int64(s.messagesPerMinute), nil
}
