package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/rosterhub-backend/pkg/enums"
)

// ActivityLog is an append-only audit line. EntityName is captured at write time so the
// line stays readable after the entity row is gone. There is no foreign key to the entity table.
type ActivityLog struct {
	ID          uuid.UUID            `gorm:"type:uuid;primaryKey"`
	TeamID      string               `gorm:"type:text;not null"`
	EntityType  enums.EntityType     `gorm:"type:text;not null"`
	EntityID    *string              `gorm:"type:text"`
	EntityName  string               `gorm:"type:text;not null"`
	Action      enums.ActivityAction `gorm:"type:text;not null"`
	PerformedBy string               `gorm:"type:text;not null"`
	PerformedAt time.Time            `gorm:"type:timestamptz;not null"`
	Details     string               `gorm:"type:text;not null;default:''"`
}
