package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"vehicle_import/internal/domain"
	"vehicle_import/pkg/logger"
)

const (
	UserInboxKeyPrefix    = "notifications:user:%d"
	CompanyInboxKeyPrefix = "notifications:company:%d"

	InboxTTL     = 7 * 24 * time.Hour
	InboxMaxSize = 200
)

// NotificationRepository keeps a capped, expiring inbox per recipient that
// clients poll.
type NotificationRepository interface {
	Push(ctx context.Context, n *domain.Notification) error
	List(ctx context.Context, key string, limit int) ([]*domain.Notification, error)
}

type notificationRepository struct {
	rdb *redis.Client
	log logger.Logger
}

func NewNotificationRepository(rdb *redis.Client, log logger.Logger) NotificationRepository {
	return &notificationRepository{rdb: rdb, log: log}
}

func InboxKey(n *domain.Notification) (string, error) {
	switch {
	case n.RecipientUserID != nil:
		return fmt.Sprintf(UserInboxKeyPrefix, *n.RecipientUserID), nil
	case n.RecipientCompanyID != nil:
		return fmt.Sprintf(CompanyInboxKeyPrefix, *n.RecipientCompanyID), nil
	}
	return "", fmt.Errorf("notification for inquiry %d has no recipient", n.InquiryID)
}

func (r *notificationRepository) Push(ctx context.Context, n *domain.Notification) error {
	key, err := InboxKey(n)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	pipe := r.rdb.TxPipeline()
	pipe.LPush(ctx, key, payload)
	pipe.LTrim(ctx, key, 0, InboxMaxSize-1)
	pipe.Expire(ctx, key, InboxTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		r.log.Error("Failed to push notification", "error", err, "key", key)
		return fmt.Errorf("failed to push notification: %w", err)
	}

	return nil
}

func (r *notificationRepository) List(ctx context.Context, key string, limit int) ([]*domain.Notification, error) {
	raw, err := r.rdb.LRange(ctx, key, 0, int64(limit-1)).Result()
	if err != nil {
		if err == redis.Nil {
			return []*domain.Notification{}, nil
		}
		r.log.Error("Failed to list notifications", "error", err, "key", key)
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	notifications := make([]*domain.Notification, 0, len(raw))
	for _, item := range raw {
		var n domain.Notification
		if err := json.Unmarshal([]byte(item), &n); err != nil {
			r.log.Warn("Failed to unmarshal notification", "error", err)
			continue
		}
		notifications = append(notifications, &n)
	}

	return notifications, nil
}
