package realtime

import (
	"context"
	"strings"
	"sync"

	"github.com/angelmondragon/rosterhub-backend/internal/notifications"
	pkgerrors "github.com/angelmondragon/rosterhub-backend/pkg/errors"
	"github.com/angelmondragon/rosterhub-backend/pkg/logger"
	"github.com/angelmondragon/rosterhub-backend/pkg/metrics"
)

const (
	// EventInserted is the only event the channel carries.
	EventInserted = "notification.inserted"

	sourceLocal = "local"
	sourceRedis = "redis"
)

// Event is the payload pushed to stream clients.
type Event struct {
	Type string             `json:"type"`
	Data notifications.Item `json:"data"`
}

// Subscription is a live registration. Unsubscribe is safe to call more than once and
// after the underlying connection is gone.
type Subscription interface {
	Unsubscribe()
}

// Subscriber registers insert callbacks per owner.
type Subscriber interface {
	Subscribe(ownerID string, onInsert func(notifications.Item)) (Subscription, error)
}

// Hub fans inserts out to the subscriptions held by this process. Callbacks run on the
// publishing goroutine and must not block.
type Hub struct {
	mu      sync.RWMutex
	subs    map[string]map[uint64]func(notifications.Item)
	nextID  uint64
	metrics *metrics.NotificationMetrics
	logg    *logger.Logger
}

// NewHub builds an empty hub.
func NewHub(logg *logger.Logger, m *metrics.NotificationMetrics) *Hub {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Hub{
		subs:    make(map[string]map[uint64]func(notifications.Item)),
		metrics: m,
		logg:    logg,
	}
}

type subscription struct {
	once    sync.Once
	hub     *Hub
	ownerID string
	id      uint64
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.hub.remove(s.ownerID, s.id)
	})
}

// Subscribe registers onInsert for every notification inserted for ownerID from now on.
// Nothing created earlier is replayed.
func (h *Hub) Subscribe(ownerID string, onInsert func(notifications.Item)) (Subscription, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	if onInsert == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "callback required")
	}

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	set, ok := h.subs[ownerID]
	if !ok {
		set = make(map[uint64]func(notifications.Item))
		h.subs[ownerID] = set
	}
	set[id] = onInsert
	h.mu.Unlock()

	h.metrics.SubscriberAdded()
	return &subscription{hub: h, ownerID: ownerID, id: id}, nil
}

func (h *Hub) remove(ownerID string, id uint64) {
	h.mu.Lock()
	set, ok := h.subs[ownerID]
	_, present := set[id]
	if ok && present {
		delete(set, id)
		if len(set) == 0 {
			delete(h.subs, ownerID)
		}
	}
	h.mu.Unlock()

	if present {
		h.metrics.SubscriberRemoved()
	}
}

// Publish delivers to local subscribers only.
func (h *Hub) Publish(_ context.Context, item notifications.Item) error {
	h.deliver(item, sourceLocal)
	return nil
}

// Subscribers reports how many live subscriptions the owner has on this process.
func (h *Hub) Subscribers(ownerID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[ownerID])
}

func (h *Hub) deliver(item notifications.Item, source string) int {
	h.mu.RLock()
	callbacks := make([]func(notifications.Item), 0, len(h.subs[item.OwnerID]))
	for _, cb := range h.subs[item.OwnerID] {
		callbacks = append(callbacks, cb)
	}
	h.mu.RUnlock()

	for _, cb := range callbacks {
		h.invoke(cb, item)
	}
	h.metrics.IncDelivered(source, len(callbacks))
	return len(callbacks)
}

func (h *Hub) invoke(cb func(notifications.Item), item notifications.Item) {
	defer func() {
		if r := recover(); r != nil {
			h.logg.Warn(h.logg.WithFields(context.Background(), map[string]any{
				"owner_id":        item.OwnerID,
				"notification_id": item.ID.String(),
				"panic":           r,
			}), "realtime subscriber panicked")
		}
	}()
	cb(item)
}
