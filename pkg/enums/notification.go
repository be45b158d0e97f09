package enums

import (
	"fmt"
	"strings"
)

// NotificationCategory labels a feed entry. The set is open: unknown values are stored
// as-is and render with the info tone.
type NotificationCategory string

const (
	NotificationCategoryTransfer NotificationCategory = "transfer"
	NotificationCategoryMessage  NotificationCategory = "message"
	NotificationCategoryProfile  NotificationCategory = "profile"
	NotificationCategoryLogin    NotificationCategory = "login"
	NotificationCategorySystem   NotificationCategory = "system"
	NotificationCategorySuccess  NotificationCategory = "success"
	NotificationCategoryWarning  NotificationCategory = "warning"
	NotificationCategoryError    NotificationCategory = "error"
)

var knownNotificationCategories = []NotificationCategory{
	NotificationCategoryTransfer,
	NotificationCategoryMessage,
	NotificationCategoryProfile,
	NotificationCategoryLogin,
	NotificationCategorySystem,
	NotificationCategorySuccess,
	NotificationCategoryWarning,
	NotificationCategoryError,
}

// KnownNotificationCategories lists the categories with dedicated presentation.
func KnownNotificationCategories() []NotificationCategory {
	out := make([]NotificationCategory, len(knownNotificationCategories))
	copy(out, knownNotificationCategories)
	return out
}

// String implements fmt.Stringer.
func (c NotificationCategory) String() string {
	return string(c)
}

// IsKnown reports whether the category is one of the closed set.
func (c NotificationCategory) IsKnown() bool {
	for _, candidate := range knownNotificationCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseNotificationCategory normalizes raw input. Any non-empty token is accepted.
func ParseNotificationCategory(value string) (NotificationCategory, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "", fmt.Errorf("invalid notification category %q", value)
	}
	if len(normalized) > 64 || strings.ContainsAny(normalized, " \t\r\n") {
		return "", fmt.Errorf("invalid notification category %q", value)
	}
	return NotificationCategory(normalized), nil
}

// Tone is the rendering style shared by notifications and activity rows.
type Tone string

const (
	ToneInfo    Tone = "info"
	ToneSuccess Tone = "success"
	ToneWarning Tone = "warning"
	ToneError   Tone = "error"
)

// Presentation is what a renderer needs to draw an entry.
type Presentation struct {
	Tone Tone   `json:"tone"`
	Icon string `json:"icon"`
}

// Presentation maps the category to a tone and icon. Unknown categories get the info
// presentation.
func (c NotificationCategory) Presentation() Presentation {
	switch c {
	case NotificationCategoryTransfer:
		return Presentation{Tone: ToneInfo, Icon: "arrows-right-left"}
	case NotificationCategoryMessage:
		return Presentation{Tone: ToneInfo, Icon: "chat-bubble"}
	case NotificationCategoryProfile:
		return Presentation{Tone: ToneInfo, Icon: "user-circle"}
	case NotificationCategoryLogin:
		return Presentation{Tone: ToneWarning, Icon: "key"}
	case NotificationCategorySystem:
		return Presentation{Tone: ToneInfo, Icon: "cog"}
	case NotificationCategorySuccess:
		return Presentation{Tone: ToneSuccess, Icon: "check-circle"}
	case NotificationCategoryWarning:
		return Presentation{Tone: ToneWarning, Icon: "exclamation-triangle"}
	case NotificationCategoryError:
		return Presentation{Tone: ToneError, Icon: "x-circle"}
	default:
		return Presentation{Tone: ToneInfo, Icon: "bell"}
	}
}
