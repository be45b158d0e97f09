package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/angelmondragon/rosterhub-backend/pkg/enums"
)

// Notification is one entry in a user's in-app feed.
type Notification struct {
	ID        uuid.UUID                  `gorm:"type:uuid;primaryKey"`
	OwnerID   string                     `gorm:"type:text;not null"`
	Category  enums.NotificationCategory `gorm:"type:text;not null"`
	Title     string                     `gorm:"type:text;not null"`
	Body      string                     `gorm:"type:text;not null"`
	Metadata  datatypes.JSONMap          `gorm:"type:jsonb"`
	ReadAt    *time.Time                 `gorm:"type:timestamptz"`
	CreatedAt time.Time                  `gorm:"type:timestamptz;not null"`
}

// IsRead reports the mutable read flag; ReadAt carries when it flipped.
func (n Notification) IsRead() bool {
	return n.ReadAt != nil
}

// MetadataString returns a string metadata value, or "" when the key is absent or not a string.
func (n Notification) MetadataString(key string) string {
	if n.Metadata == nil {
		return ""
	}
	if v, ok := n.Metadata[key].(string); ok {
		return v
	}
	return ""
}
