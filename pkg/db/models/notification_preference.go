package models

import "time"

// NotificationPreference holds the per-user toggles. A missing row means every flag is on.
type NotificationPreference struct {
	UserID                 string    `gorm:"type:text;primaryKey"`
	TransferUpdates        bool      `gorm:"not null"`
	MessageNotifications   bool      `gorm:"not null"`
	ProfileChanges         bool      `gorm:"not null"`
	LoginNotifications     bool      `gorm:"not null"`
	EmailNotifications     bool      `gorm:"not null"`
	InAppNotifications     bool      `gorm:"not null"`
	NewsletterSubscription bool      `gorm:"not null"`
	CreatedAt              time.Time `gorm:"type:timestamptz;not null"`
	UpdatedAt              time.Time `gorm:"type:timestamptz;not null"`
}

// DefaultNotificationPreference returns the fail-open set for a user with no stored row.
func DefaultNotificationPreference(userID string) NotificationPreference {
	return NotificationPreference{
		UserID:                 userID,
		TransferUpdates:        true,
		MessageNotifications:   true,
		ProfileChanges:         true,
		LoginNotifications:     true,
		EmailNotifications:     true,
		InAppNotifications:     true,
		NewsletterSubscription: true,
	}
}
