package notifications

import (
	"context"
	"strings"
	"time"

	"github.com/angelmondragon/rosterhub-backend/pkg/db"
	"github.com/angelmondragon/rosterhub-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/rosterhub-backend/pkg/errors"
	"github.com/angelmondragon/rosterhub-backend/pkg/pagination"
	"github.com/google/uuid"
)

// Service is the owner-scoped store surface for notifications. Mutations on ids that no
// longer exist succeed without effect.
type Service interface {
	Insert(ctx context.Context, notification *models.Notification) (*models.Notification, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	UnreadCount(ctx context.Context, ownerID string) (int64, error)
	SetRead(ctx context.Context, ownerID string, notificationID uuid.UUID, read bool) error
	SetAllRead(ctx context.Context, ownerID string) (int64, error)
	Delete(ctx context.Context, ownerID string, notificationID uuid.UUID) error
}

type service struct {
	repo  Repository
	clock func() time.Time
}

// ListParams configures pagination for notifications.
type ListParams struct {
	OwnerID    string
	Limit      int
	Cursor     string
	UnreadOnly bool
}

// ListResult wraps returned notifications and the cursor for the next page.
type ListResult struct {
	Items  []Item `json:"items"`
	Cursor string `json:"cursor"`
}

// NewService wires notifications dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	return &service{repo: repo, clock: now}, nil
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func (s *service) Insert(ctx context.Context, notification *models.Notification) (*models.Notification, error) {
	if notification == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "notification required")
	}
	if strings.TrimSpace(notification.OwnerID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	if notification.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate notification id")
		}
		notification.ID = id
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = s.clock()
	}
	if err := s.repo.Insert(ctx, notification); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "notification already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert notification")
	}
	return notification, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if strings.TrimSpace(params.OwnerID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}

	query := listNotificationsParams{
		OwnerID:    params.OwnerID,
		Limit:      pagination.NormalizeLimit(params.Limit),
		UnreadOnly: params.UnreadOnly,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.ListByOwner(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}

	return &ListResult{
		Items:  ItemsFromModels(rows),
		Cursor: cursor,
	}, nil
}

func (s *service) UnreadCount(ctx context.Context, ownerID string) (int64, error) {
	if strings.TrimSpace(ownerID) == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	count, err := s.repo.CountUnread(ctx, ownerID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread notifications")
	}
	return count, nil
}

func (s *service) SetRead(ctx context.Context, ownerID string, notificationID uuid.UUID, read bool) error {
	if err := validateTarget(ownerID, notificationID); err != nil {
		return err
	}

	var readAt *time.Time
	if read {
		at := s.clock()
		readAt = &at
	}
	// a missing row is the intended end state for a raced delete
	if _, err := s.repo.SetRead(ctx, ownerID, notificationID, readAt); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set notification read state")
	}
	return nil
}

func (s *service) SetAllRead(ctx context.Context, ownerID string) (int64, error) {
	if strings.TrimSpace(ownerID) == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}

	count, err := s.repo.SetAllRead(ctx, ownerID, s.clock())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return count, nil
}

func (s *service) Delete(ctx context.Context, ownerID string, notificationID uuid.UUID) error {
	if err := validateTarget(ownerID, notificationID); err != nil {
		return err
	}
	if _, err := s.repo.Delete(ctx, ownerID, notificationID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete notification")
	}
	return nil
}

func validateTarget(ownerID string, notificationID uuid.UUID) error {
	if strings.TrimSpace(ownerID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}
	return nil
}
