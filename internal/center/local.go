package center

import (
	"context"

	"github.com/angelmondragon/rosterhub-backend/internal/notifications"
	"github.com/angelmondragon/rosterhub-backend/internal/realtime"
	"github.com/google/uuid"
)

// LocalStore binds a notifications.Service to one owner.
type LocalStore struct {
	Service notifications.Service
	OwnerID string
}

func (s LocalStore) List(ctx context.Context, limit int, cursor string) (Page, error) {
	result, err := s.Service.List(ctx, notifications.ListParams{OwnerID: s.OwnerID, Limit: limit, Cursor: cursor})
	if err != nil {
		return Page{}, err
	}
	return Page{Items: result.Items, Cursor: result.Cursor}, nil
}

func (s LocalStore) SetRead(ctx context.Context, id uuid.UUID, read bool) error {
	return s.Service.SetRead(ctx, s.OwnerID, id, read)
}

func (s LocalStore) SetAllRead(ctx context.Context) (int64, error) {
	return s.Service.SetAllRead(ctx, s.OwnerID)
}

func (s LocalStore) Delete(ctx context.Context, id uuid.UUID) error {
	return s.Service.Delete(ctx, s.OwnerID, id)
}

// LocalChannel binds a realtime.Subscriber to one owner.
type LocalChannel struct {
	Subscriber realtime.Subscriber
	OwnerID    string
}

func (c LocalChannel) Subscribe(_ context.Context, onInsert func(notifications.Item)) (realtime.Subscription, error) {
	return c.Subscriber.Subscribe(c.OwnerID, onInsert)
}
