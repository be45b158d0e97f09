package notifications

import (
	"context"
	"strings"

	"github.com/angelmondragon/rosterhub-backend/internal/preferences"
	"github.com/angelmondragon/rosterhub-backend/pkg/db/models"
	"github.com/angelmondragon/rosterhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rosterhub-backend/pkg/errors"
	"github.com/angelmondragon/rosterhub-backend/pkg/logger"
	"github.com/angelmondragon/rosterhub-backend/pkg/metrics"
	"gorm.io/datatypes"
)

// PreferenceReader resolves an owner's toggles.
type PreferenceReader interface {
	Get(ctx context.Context, userID string) (preferences.Set, error)
}

// Inserter persists a new notification.
type Inserter interface {
	Insert(ctx context.Context, notification *models.Notification) (*models.Notification, error)
}

// Publisher fans a freshly stored notification out to live subscribers.
type Publisher interface {
	Publish(ctx context.Context, item Item) error
}

// EmitRequest describes one notification a domain action wants to deliver.
type EmitRequest struct {
	Category enums.NotificationCategory
	OwnerID  string
	Title    string
	Body     string
	Metadata map[string]any
}

// Outcome is the result of Emit: exactly one of Item or Suppressed is set.
type Outcome struct {
	Item       *Item
	Suppressed bool
}

// Emitter is the single write path for new notifications.
type Emitter struct {
	prefs     PreferenceReader
	store     Inserter
	publisher Publisher
	metrics   *metrics.NotificationMetrics
	logg      *logger.Logger
}

// EmitterOption customises optional collaborators.
type EmitterOption func(*Emitter)

// WithPublisher enables realtime fan-out after each insert.
func WithPublisher(p Publisher) EmitterOption {
	return func(e *Emitter) { e.publisher = p }
}

// WithMetrics records emit outcomes.
func WithMetrics(m *metrics.NotificationMetrics) EmitterOption {
	return func(e *Emitter) { e.metrics = m }
}

// NewEmitter wires an emitter.
func NewEmitter(prefs PreferenceReader, store Inserter, logg *logger.Logger, opts ...EmitterOption) (*Emitter, error) {
	if prefs == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "preference reader required")
	}
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notification store required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	e := &Emitter{prefs: prefs, store: store, logg: logg}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Emit checks the owner's preferences and either stores the notification or reports it
// as suppressed. Suppression is not an error and writes nothing.
func (e *Emitter) Emit(ctx context.Context, req EmitRequest) (Outcome, error) {
	category, err := enums.ParseNotificationCategory(string(req.Category))
	if err != nil {
		return Outcome{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category")
	}
	ownerID := strings.TrimSpace(req.OwnerID)
	if ownerID == "" {
		return Outcome{}, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return Outcome{}, pkgerrors.New(pkgerrors.CodeValidation, "title required")
	}

	logCtx := e.logg.WithFields(ctx, map[string]any{
		"owner_id": ownerID,
		"category": string(category),
	})

	set, err := e.prefs.Get(ctx, ownerID)
	if err != nil {
		// preferences fail open
		e.logg.Warn(e.logg.WithField(logCtx, "error", err.Error()), "preference lookup failed; using defaults")
		set = preferences.Defaults(ownerID)
	}
	if !set.Allows(category) {
		e.metrics.IncSuppressed(string(category))
		e.logg.Info(e.logg.WithField(logCtx, "suppressed", true), "notification suppressed by preferences")
		return Outcome{Suppressed: true}, nil
	}

	row := &models.Notification{
		OwnerID:  ownerID,
		Category: category,
		Title:    title,
		Body:     req.Body,
	}
	if len(req.Metadata) > 0 {
		row.Metadata = datatypes.JSONMap(req.Metadata)
	}

	stored, err := e.store.Insert(ctx, row)
	if err != nil {
		e.metrics.IncFailed(string(category))
		e.logg.Error(logCtx, "failed to store notification", err)
		return Outcome{}, err
	}
	e.metrics.IncEmitted(string(category))

	item := ItemFromModel(*stored)
	if e.publisher != nil {
		if err := e.publisher.Publish(ctx, item); err != nil {
			// the row is durable; clients catch up on their next page load
			e.logg.Error(e.logg.WithField(logCtx, "notification_id", item.ID.String()), "realtime publish failed", err)
		}
	}
	return Outcome{Item: &item}, nil
}
