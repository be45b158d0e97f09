package activity

import (
	"context"

	"github.com/angelmondragon/rosterhub-backend/internal/audit"
	"github.com/angelmondragon/rosterhub-backend/internal/notifications"
	"github.com/angelmondragon/rosterhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rosterhub-backend/pkg/errors"
	"github.com/angelmondragon/rosterhub-backend/pkg/logger"
)

// AuditLogger is the append side of the activity log.
type AuditLogger interface {
	LogCreated(ctx context.Context, snapshot audit.Snapshot, scope, actor string) (*audit.Record, error)
	LogUpdated(ctx context.Context, ref audit.EntityRef, scope, actor, summary string) (*audit.Record, error)
	LogDeleted(ctx context.Context, snapshot audit.Snapshot, scope, actor string) (*audit.Record, error)
}

// Notifier emits a notification for a completed action.
type Notifier interface {
	Emit(ctx context.Context, req notifications.EmitRequest) (notifications.Outcome, error)
}

// Mutation carries who performed a change, where, and whom to tell.
type Mutation struct {
	Scope  string
	Actor  string
	Notify *notifications.EmitRequest
}

// Change describes an applied update.
type Change struct {
	Ref     audit.EntityRef
	Summary string
}

// Tracker records audit lines and notifications around entity mutations. Neither side
// effect can fail the mutation itself.
type Tracker struct {
	audit    AuditLogger
	notifier Notifier
	logg     *logger.Logger
}

// NewTracker wires a tracker. notifier may be nil when no notification is ever sent.
func NewTracker(auditLog AuditLogger, notifier Notifier, logg *logger.Logger) (*Tracker, error) {
	if auditLog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "audit logger required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Tracker{audit: auditLog, notifier: notifier, logg: logg}, nil
}

// Create runs create and, on success, records the returned snapshot.
func (t *Tracker) Create(ctx context.Context, m Mutation, create func(context.Context) (audit.Snapshot, error)) error {
	snapshot, err := create(ctx)
	if err != nil {
		return err
	}
	t.logAudit(ctx, enums.ActivityActionCreated, snapshot, m)
	t.notify(ctx, m)
	return nil
}

// Update runs update and, on success, records the change.
func (t *Tracker) Update(ctx context.Context, m Mutation, update func(context.Context) (Change, error)) error {
	change, err := update(ctx)
	if err != nil {
		return err
	}
	t.logAudit(ctx, enums.ActivityActionUpdated, audit.Snapshot{
		EntityType: change.Ref.EntityType,
		EntityID:   change.Ref.EntityID,
		EntityName: change.Ref.EntityName,
		Details:    change.Summary,
	}, m)
	t.notify(ctx, m)
	return nil
}

// Delete logs the snapshot while the row still exists, then runs remove. The
// notification is sent only when remove succeeds.
func (t *Tracker) Delete(ctx context.Context, m Mutation, snapshot audit.Snapshot, remove func(context.Context) error) error {
	t.logAudit(ctx, enums.ActivityActionDeleted, snapshot, m)
	if err := remove(ctx); err != nil {
		return err
	}
	t.notify(ctx, m)
	return nil
}

// Record writes the audit line for a change applied elsewhere, then the notification.
// An audit failure is returned and skips the notification so a retry does not send it twice.
// Notification failures are only logged.
func (t *Tracker) Record(ctx context.Context, action enums.ActivityAction, snapshot audit.Snapshot, m Mutation) error {
	if err := t.writeAudit(ctx, action, snapshot, m); err != nil {
		t.logFailure(ctx, "audit "+string(action)+" failed", snapshot.EntityType, snapshot.EntityID, err)
		return err
	}
	t.notify(ctx, m)
	return nil
}

// logAudit writes the audit line for a local mutation. Failures are logged only.
func (t *Tracker) logAudit(ctx context.Context, action enums.ActivityAction, snapshot audit.Snapshot, m Mutation) {
	if err := t.writeAudit(ctx, action, snapshot, m); err != nil {
		t.logFailure(ctx, "audit "+string(action)+" failed", snapshot.EntityType, snapshot.EntityID, err)
	}
}

func (t *Tracker) writeAudit(ctx context.Context, action enums.ActivityAction, snapshot audit.Snapshot, m Mutation) error {
	var err error
	switch action {
	case enums.ActivityActionCreated:
		_, err = t.audit.LogCreated(ctx, snapshot, m.Scope, m.Actor)
	case enums.ActivityActionUpdated:
		ref := audit.EntityRef{EntityType: snapshot.EntityType, EntityID: snapshot.EntityID, EntityName: snapshot.EntityName}
		_, err = t.audit.LogUpdated(ctx, ref, m.Scope, m.Actor, snapshot.Details)
	case enums.ActivityActionDeleted:
		_, err = t.audit.LogDeleted(ctx, snapshot, m.Scope, m.Actor)
	default:
		err = pkgerrors.New(pkgerrors.CodeValidation, "unknown activity action "+string(action))
	}
	return err
}

func (t *Tracker) notify(ctx context.Context, m Mutation) {
	if m.Notify == nil || t.notifier == nil {
		return
	}
	if _, err := t.notifier.Emit(ctx, *m.Notify); err != nil {
		logCtx := t.logg.WithFields(ctx, map[string]any{
			"owner_id": m.Notify.OwnerID,
			"category": string(m.Notify.Category),
		})
		t.logg.Error(logCtx, "activity notification failed", err)
	}
}

func (t *Tracker) logFailure(ctx context.Context, msg string, entityType enums.EntityType, entityID string, err error) {
	logCtx := t.logg.WithFields(ctx, map[string]any{
		"entity_type": string(entityType),
		"entity_id":   entityID,
	})
	t.logg.Error(logCtx, msg, err)
}
