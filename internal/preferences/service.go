package preferences

import (
	"context"
	"strings"

	"github.com/angelmondragon/rosterhub-backend/pkg/db/models"
	"github.com/angelmondragon/rosterhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rosterhub-backend/pkg/errors"
	"github.com/angelmondragon/rosterhub-backend/pkg/logger"
)

// Set is the caller-facing view of one user's toggles.
type Set struct {
	UserID                 string `json:"userId"`
	TransferUpdates        bool   `json:"transferUpdates"`
	MessageNotifications   bool   `json:"messageNotifications"`
	ProfileChanges         bool   `json:"profileChanges"`
	LoginNotifications     bool   `json:"loginNotifications"`
	EmailNotifications     bool   `json:"emailNotifications"`
	InAppNotifications     bool   `json:"inAppNotifications"`
	NewsletterSubscription bool   `json:"newsletterSubscription"`
	// Stored is false when the values are the fail-open defaults.
	Stored bool `json:"stored"`
}

// Patch carries only the flags the caller wants to change.
type Patch struct {
	TransferUpdates        *bool `json:"transferUpdates,omitempty"`
	MessageNotifications   *bool `json:"messageNotifications,omitempty"`
	ProfileChanges         *bool `json:"profileChanges,omitempty"`
	LoginNotifications     *bool `json:"loginNotifications,omitempty"`
	EmailNotifications     *bool `json:"emailNotifications,omitempty"`
	InAppNotifications     *bool `json:"inAppNotifications,omitempty"`
	NewsletterSubscription *bool `json:"newsletterSubscription,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return len(p.apply(&models.NotificationPreference{})) == 0
}

// apply writes the set fields onto row and returns the touched column names.
func (p Patch) apply(row *models.NotificationPreference) []string {
	fields := []struct {
		value  *bool
		target *bool
		column string
	}{
		{p.TransferUpdates, &row.TransferUpdates, "transfer_updates"},
		{p.MessageNotifications, &row.MessageNotifications, "message_notifications"},
		{p.ProfileChanges, &row.ProfileChanges, "profile_changes"},
		{p.LoginNotifications, &row.LoginNotifications, "login_notifications"},
		{p.EmailNotifications, &row.EmailNotifications, "email_notifications"},
		{p.InAppNotifications, &row.InAppNotifications, "in_app_notifications"},
		{p.NewsletterSubscription, &row.NewsletterSubscription, "newsletter_subscription"},
	}
	columns := []string{}
	for _, f := range fields {
		if f.value == nil {
			continue
		}
		*f.target = *f.value
		columns = append(columns, f.column)
	}
	return columns
}

// Service reads and updates preference sets.
type Service interface {
	Get(ctx context.Context, userID string) (Set, error)
	Update(ctx context.Context, userID string, patch Patch) (Set, error)
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService wires preferences dependencies.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "preferences repository required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, logg: logg}, nil
}

// Get never writes. A missing row yields every flag enabled.
func (s *service) Get(ctx context.Context, userID string) (Set, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Set{}, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	row, err := s.repo.Find(ctx, userID)
	if err != nil {
		return Set{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load preferences")
	}
	if row == nil {
		return Defaults(userID), nil
	}
	return fromModel(*row, true), nil
}

func (s *service) Update(ctx context.Context, userID string, patch Patch) (Set, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Set{}, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if patch.IsEmpty() {
		return s.Get(ctx, userID)
	}

	row := models.DefaultNotificationPreference(userID)
	columns := patch.apply(&row)
	if err := s.repo.Upsert(ctx, row, columns); err != nil {
		return Set{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save preferences")
	}

	stored, err := s.repo.Find(ctx, userID)
	if err != nil {
		return Set{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload preferences")
	}
	if stored == nil {
		return Set{}, pkgerrors.New(pkgerrors.CodeInternal, "preferences missing after save")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"user_id": userID,
		"columns": columns,
	}), "notification preferences updated")
	return fromModel(*stored, true), nil
}

// Defaults is the fail-open set used when nothing is stored.
func Defaults(userID string) Set {
	return fromModel(models.DefaultNotificationPreference(userID), false)
}

func fromModel(row models.NotificationPreference, stored bool) Set {
	return Set{
		UserID:                 row.UserID,
		TransferUpdates:        row.TransferUpdates,
		MessageNotifications:   row.MessageNotifications,
		ProfileChanges:         row.ProfileChanges,
		LoginNotifications:     row.LoginNotifications,
		EmailNotifications:     row.EmailNotifications,
		InAppNotifications:     row.InAppNotifications,
		NewsletterSubscription: row.NewsletterSubscription,
		Stored:                 stored,
	}
}

// Allows reports whether the owner wants notifications of this category. Categories
// without a dedicated flag, system included, are always allowed. The channel flags
// (in-app, email) are stored for delivery layers and never gate the feed.
func (s Set) Allows(category enums.NotificationCategory) bool {
	switch category {
	case enums.NotificationCategoryTransfer:
		return s.TransferUpdates
	case enums.NotificationCategoryMessage:
		return s.MessageNotifications
	case enums.NotificationCategoryProfile:
		return s.ProfileChanges
	case enums.NotificationCategoryLogin:
		return s.LoginNotifications
	default:
		return true
	}
}
