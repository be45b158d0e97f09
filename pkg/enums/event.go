package enums

import "fmt"

// DomainEventType is carried in the event_type attribute of domain event messages.
type DomainEventType string

const (
	EventNotificationRequested DomainEventType = "notification_requested"
	EventEntityChanged         DomainEventType = "entity_changed"
)

var validDomainEventTypes = []DomainEventType{
	EventNotificationRequested,
	EventEntityChanged,
}

// IsValid reports whether the event type is handled by this service.
func (e DomainEventType) IsValid() bool {
	for _, candidate := range validDomainEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseDomainEventType converts raw input into DomainEventType.
func ParseDomainEventType(value string) (DomainEventType, error) {
	for _, candidate := range validDomainEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid domain event type %q", value)
}
