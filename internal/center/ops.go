package center

import (
	"context"
	"time"

	"github.com/angelmondragon/rosterhub-backend/internal/notifications"
	pkgerrors "github.com/angelmondragon/rosterhub-backend/pkg/errors"
	"github.com/google/uuid"
)

// undo restores one record if no later operation has touched it.
type undo struct {
	id      uuid.UUID
	seq     uint64
	item    notifications.Item
	existed bool
	deleted bool
}

// MarkRead marks one notification read.
func (c *Center) MarkRead(ctx context.Context, id uuid.UUID) error {
	return c.setRead(ctx, id, true)
}

// MarkUnread marks one notification unread.
func (c *Center) MarkUnread(ctx context.Context, id uuid.UUID) error {
	return c.setRead(ctx, id, false)
}

func (c *Center) setRead(ctx context.Context, id uuid.UUID, read bool) error {
	op := OpMarkUnread
	if read {
		op = OpMarkRead
	}
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}

	c.mu.Lock()
	u := c.beginLocked(id)
	if idx := c.indexLocked(id); idx >= 0 {
		applyRead(&c.items[idx], read)
	}
	c.mu.Unlock()
	c.changed()

	if err := c.store.SetRead(ctx, id, read); err != nil {
		c.fail(ctx, op, id, err, []undo{u})
		return err
	}
	return nil
}

// MarkAllRead marks every loaded notification read and confirms once against the store.
// A second call while one is in flight fails with CodeInFlight.
func (c *Center) MarkAllRead(ctx context.Context) (int64, error) {
	c.mu.Lock()
	if c.markAllBusy {
		c.mu.Unlock()
		return 0, pkgerrors.New(pkgerrors.CodeInFlight, "mark all read already in progress")
	}
	c.markAllBusy = true
	var undos []undo
	for i := range c.items {
		if c.items[i].Read {
			continue
		}
		undos = append(undos, c.beginLocked(c.items[i].ID))
		applyRead(&c.items[i], true)
	}
	c.mu.Unlock()
	if len(undos) > 0 {
		c.changed()
	}

	affected, err := c.store.SetAllRead(ctx)

	c.mu.Lock()
	c.markAllBusy = false
	c.mu.Unlock()

	if err != nil {
		c.fail(ctx, OpMarkAllRead, uuid.Nil, err, undos)
		return 0, err
	}
	return affected, nil
}

// Delete removes one notification.
func (c *Center) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}

	c.mu.Lock()
	u := c.beginLocked(id)
	u.deleted = true
	c.deleted[id] = struct{}{}
	if idx := c.indexLocked(id); idx >= 0 {
		c.items = append(c.items[:idx], c.items[idx+1:]...)
	}
	c.mu.Unlock()
	c.changed()

	if err := c.store.Delete(ctx, id); err != nil {
		c.fail(ctx, OpDelete, id, err, []undo{u})
		return err
	}
	return nil
}

// beginLocked snapshots a record and makes this operation the latest for its id.
func (c *Center) beginLocked(id uuid.UUID) undo {
	c.opSeq++
	c.latestOp[id] = c.opSeq
	u := undo{id: id, seq: c.opSeq}
	if idx := c.indexLocked(id); idx >= 0 {
		u.item = c.items[idx]
		u.existed = true
	}
	return u
}

// fail rolls back every undo that is still the latest operation on its record, then
// surfaces the failure.
func (c *Center) fail(ctx context.Context, op string, id uuid.UUID, err error, undos []undo) {
	c.mu.Lock()
	rolled := 0
	for _, u := range undos {
		if c.latestOp[u.id] != u.seq {
			continue
		}
		if u.deleted {
			delete(c.deleted, u.id)
		}
		if !u.existed {
			continue
		}
		idx := c.indexLocked(u.id)
		switch {
		case u.deleted && idx < 0:
			c.insertLocked(u.item)
		case !u.deleted && idx >= 0:
			c.items[idx].Read = u.item.Read
			c.items[idx].ReadAt = u.item.ReadAt
		default:
			continue
		}
		rolled++
	}
	c.mu.Unlock()

	logCtx := c.logg.WithFields(ctx, map[string]any{"operation": op, "rolled_back": rolled})
	if id != uuid.Nil {
		logCtx = c.logg.WithField(logCtx, "notification_id", id.String())
	}
	c.logg.Error(logCtx, "notification center mutation failed", err)

	if rolled > 0 {
		c.changed()
	}
	c.raise(Notice{Operation: op, ID: id, Err: err})
}

func applyRead(item *notifications.Item, read bool) {
	if item.Read == read {
		return
	}
	item.Read = read
	if read {
		at := time.Now().UTC()
		item.ReadAt = &at
	} else {
		item.ReadAt = nil
	}
}
