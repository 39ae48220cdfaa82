package repository

import (
	"context"
	"time"

	"brokerdesk/internal/domain/notification"
	apperrors "brokerdesk/pkg/errors"

	"gorm.io/gorm"
)

type GormNotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &GormNotificationRepository{db: db}
}

func (r *GormNotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	return apperrors.FromDB(r.db.WithContext(ctx).Create(n).Error)
}

func (r *GormNotificationRepository) MarkDelivered(ctx context.Context, id uint, channel string, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&notification.Notification{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"channel":      channel,
			"delivered_at": at,
		})
	if res.Error != nil {
		return apperrors.FromDB(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *GormNotificationRepository) ListForUser(ctx context.Context, userID uint, limit int) ([]notification.Notification, error) {
	var items []notification.Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, apperrors.FromDB(err)
	}
	return items, nil
}
