package audit

import (
	"time"

	"github.com/angelmondragon/rosterhub-backend/pkg/db/models"
	"github.com/angelmondragon/rosterhub-backend/pkg/enums"
	"github.com/google/uuid"
)

// Snapshot is the state of an entity captured when it is created or before it is deleted.
type Snapshot struct {
	EntityType enums.EntityType
	EntityID   string
	EntityName string
	Details    string
}

// EntityRef points at an entity that was updated. EntityName is optional.
type EntityRef struct {
	EntityType enums.EntityType
	EntityID   string
	EntityName string
}

// Record is an audit line as returned to history views.
type Record struct {
	ID           uuid.UUID            `json:"id"`
	TeamID       string               `json:"teamId"`
	EntityType   enums.EntityType     `json:"entityType"`
	EntityID     *string              `json:"entityId"`
	EntityName   string               `json:"entityName"`
	Action       enums.ActivityAction `json:"action"`
	PerformedBy  string               `json:"performedBy"`
	PerformedAt  time.Time            `json:"performedAt"`
	Details      string               `json:"details"`
	IsOrphaned   bool                 `json:"isOrphaned"`
	Presentation enums.Presentation   `json:"presentation"`
}

func recordFromModel(row models.ActivityLog) Record {
	return Record{
		ID:           row.ID,
		TeamID:       row.TeamID,
		EntityType:   row.EntityType,
		EntityID:     row.EntityID,
		EntityName:   row.EntityName,
		Action:       row.Action,
		PerformedBy:  row.PerformedBy,
		PerformedAt:  row.PerformedAt,
		Details:      row.Details,
		IsOrphaned:   row.EntityID == nil,
		Presentation: row.Action.Presentation(),
	}
}
