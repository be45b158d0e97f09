package notifications

import (
	"time"

	"github.com/angelmondragon/rosterhub-backend/pkg/db/models"
	"github.com/angelmondragon/rosterhub-backend/pkg/enums"
	"github.com/google/uuid"
)

// Item is the wire form of a notification, shared by the HTTP API, the realtime stream
// and the feed client.
type Item struct {
	ID           uuid.UUID                  `json:"id"`
	OwnerID      string                     `json:"ownerId"`
	Category     enums.NotificationCategory `json:"category"`
	Title        string                     `json:"title"`
	Body         string                     `json:"body"`
	Metadata     map[string]any             `json:"metadata,omitempty"`
	Read         bool                       `json:"read"`
	ReadAt       *time.Time                 `json:"readAt,omitempty"`
	CreatedAt    time.Time                  `json:"createdAt"`
	Presentation enums.Presentation         `json:"presentation"`
}

// ItemFromModel converts a stored row.
func ItemFromModel(n models.Notification) Item {
	var metadata map[string]any
	if len(n.Metadata) > 0 {
		metadata = map[string]any(n.Metadata)
	}
	return Item{
		ID:           n.ID,
		OwnerID:      n.OwnerID,
		Category:     n.Category,
		Title:        n.Title,
		Body:         n.Body,
		Metadata:     metadata,
		Read:         n.IsRead(),
		ReadAt:       n.ReadAt,
		CreatedAt:    n.CreatedAt,
		Presentation: n.Category.Presentation(),
	}
}

// MetadataString returns a string metadata value, or "" when absent.
func (i Item) MetadataString(key string) string {
	if v, ok := i.Metadata[key].(string); ok {
		return v
	}
	return ""
}

// ItemsFromModels converts rows in order.
func ItemsFromModels(rows []models.Notification) []Item {
	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, ItemFromModel(row))
	}
	return items
}
