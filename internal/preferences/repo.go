package preferences

import (
	"context"
	"time"

	"github.com/angelmondragon/rosterhub-backend/pkg/db"
	"github.com/angelmondragon/rosterhub-backend/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists per-user notification toggles.
type Repository interface {
	Find(ctx context.Context, userID string) (*models.NotificationPreference, error)
	Upsert(ctx context.Context, row models.NotificationPreference, columns []string) error
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a preferences repository bound to the provided database.
func NewRepository(conn *gorm.DB) Repository {
	return &repositoryImpl{db: conn}
}

// Find returns nil without error when the user has no stored row.
func (r *repositoryImpl) Find(ctx context.Context, userID string) (*models.NotificationPreference, error) {
	var row models.NotificationPreference
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&row).Error
	if db.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Upsert inserts row, or on conflict overwrites only the listed columns plus updated_at.
func (r *repositoryImpl) Upsert(ctx context.Context, row models.NotificationPreference, columns []string) error {
	now := time.Now().UTC()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now

	update := append([]string{"updated_at"}, columns...)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns(update),
		}).
		Create(&row).Error
}
