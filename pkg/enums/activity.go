package enums

import "fmt"

// ActivityAction is the verb recorded on an audit line.
type ActivityAction string

const (
	ActivityActionCreated ActivityAction = "created"
	ActivityActionUpdated ActivityAction = "updated"
	ActivityActionDeleted ActivityAction = "deleted"
)

var validActivityActions = []ActivityAction{
	ActivityActionCreated,
	ActivityActionUpdated,
	ActivityActionDeleted,
}

// String implements fmt.Stringer.
func (a ActivityAction) String() string {
	return string(a)
}

// IsValid reports whether the action is a known value.
func (a ActivityAction) IsValid() bool {
	for _, candidate := range validActivityActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseActivityAction converts raw input into an ActivityAction.
func ParseActivityAction(value string) (ActivityAction, error) {
	for _, candidate := range validActivityActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid activity action %q", value)
}

// Presentation maps the action to a tone and icon, falling back to info.
func (a ActivityAction) Presentation() Presentation {
	switch a {
	case ActivityActionCreated:
		return Presentation{Tone: ToneSuccess, Icon: "plus-circle"}
	case ActivityActionUpdated:
		return Presentation{Tone: ToneInfo, Icon: "pencil"}
	case ActivityActionDeleted:
		return Presentation{Tone: ToneError, Icon: "trash"}
	default:
		return Presentation{Tone: ToneInfo, Icon: "clock"}
	}
}

// EntityType names the kind of tracked entity an audit line describes.
type EntityType string

const (
	EntityTypePlayer  EntityType = "player"
	EntityTypeTeam    EntityType = "team"
	EntityTypeProfile EntityType = "profile"
)

// String implements fmt.Stringer.
func (e EntityType) String() string {
	return string(e)
}

// ParseEntityType accepts any non-empty identifier; the directory decides whether it resolves.
func ParseEntityType(value string) (EntityType, error) {
	if value == "" {
		return "", fmt.Errorf("invalid entity type %q", value)
	}
	return EntityType(value), nil
}
