package payloads

import (
	"github.com/angelmondragon/rosterhub-backend/pkg/enums"
)

// NotificationRequestedEvent asks for a feed entry for one user, e.g. "new message"
// or "transfer interest expressed".
type NotificationRequestedEvent struct {
	Category enums.NotificationCategory `json:"category"`
	OwnerID  string                     `json:"ownerId"`
	Title    string                     `json:"title"`
	Body     string                     `json:"body"`
	Metadata map[string]any             `json:"metadata,omitempty"`
}

// EntityChangedEvent reports a completed create/update/delete on a tracked entity.
// For deletes the producer sends the snapshot it read before removing the row.
type EntityChangedEvent struct {
	Action      enums.ActivityAction `json:"action"`
	EntityType  enums.EntityType     `json:"entityType"`
	EntityID    string               `json:"entityId"`
	EntityName  string               `json:"entityName"`
	TeamID      string               `json:"teamId"`
	PerformedBy string               `json:"performedBy"`
	Details     string               `json:"details,omitempty"`

	// Notify optionally asks for a notification alongside the audit line.
	Notify *NotificationRequestedEvent `json:"notify,omitempty"`
}
