package notifications

import (
	"context"
	"time"

	"github.com/angelmondragon/rosterhub-backend/pkg/db/models"
	"github.com/angelmondragon/rosterhub-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes persistence helpers for notifications.
type Repository interface {
	Insert(ctx context.Context, notification *models.Notification) error
	ListByOwner(ctx context.Context, params listNotificationsParams) ([]models.Notification, *pagination.Cursor, error)
	SetRead(ctx context.Context, ownerID string, notificationID uuid.UUID, readAt *time.Time) (bool, error)
	SetAllRead(ctx context.Context, ownerID string, now time.Time) (int64, error)
	Delete(ctx context.Context, ownerID string, notificationID uuid.UUID) (bool, error)
	CountUnread(ctx context.Context, ownerID string) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a notifications repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listNotificationsParams struct {
	OwnerID    string
	Limit      int
	Cursor     *pagination.Cursor
	UnreadOnly bool
}

func (r *repositoryImpl) Insert(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

// ListByOwner orders by created_at then id, both descending. IDs are UUIDv7 so equal
// timestamps fall back to insertion order.
func (r *repositoryImpl) ListByOwner(ctx context.Context, params listNotificationsParams) ([]models.Notification, *pagination.Cursor, error) {
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.Notification{}).Where("owner_id = ?", params.OwnerID)
	if params.UnreadOnly {
		query = query.Where("read_at IS NULL")
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var notifications []models.Notification
	if err := query.Order("created_at DESC, id DESC").Limit(normalized + 1).Find(&notifications).Error; err != nil {
		return nil, nil, err
	}

	if len(notifications) > normalized {
		notifications = notifications[:normalized]
		last := notifications[normalized-1]
		return notifications, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return notifications, nil, nil
}

// SetRead writes readAt (nil marks unread) and reports whether the row exists for the owner.
func (r *repositoryImpl) SetRead(ctx context.Context, ownerID string, notificationID uuid.UUID, readAt *time.Time) (bool, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND owner_id = ?", notificationID, ownerID)
	if readAt != nil {
		// keep the first read timestamp on repeated mark-read
		query = query.Where("read_at IS NULL")
	}
	result := query.UpdateColumn("read_at", readAt)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND owner_id = ?", notificationID, ownerID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repositoryImpl) SetAllRead(ctx context.Context, ownerID string, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("owner_id = ? AND read_at IS NULL", ownerID).
		UpdateColumn("read_at", now)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repositoryImpl) Delete(ctx context.Context, ownerID string, notificationID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", notificationID, ownerID).
		Delete(&models.Notification{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) CountUnread(ctx context.Context, ownerID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("owner_id = ? AND read_at IS NULL", ownerID).
		Count(&count).Error
	return count, err
}
