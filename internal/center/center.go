// Package center keeps one owner's notification feed in memory. It merges the initial page
// load with realtime pushes and applies mutations optimistically, rolling back and raising
// a Notice when the store rejects them.
package center

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/angelmondragon/rosterhub-backend/internal/notifications"
	"github.com/angelmondragon/rosterhub-backend/internal/realtime"
	"github.com/angelmondragon/rosterhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rosterhub-backend/pkg/errors"
	"github.com/angelmondragon/rosterhub-backend/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

// State is the lifecycle of the feed.
type State int

const (
	StateLoading State = iota
	StateReady
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Page is one listing response from the store.
type Page struct {
	Items  []notifications.Item
	Cursor string
}

// Store is the owner-bound notification store the center confirms against.
type Store interface {
	List(ctx context.Context, limit int, cursor string) (Page, error)
	SetRead(ctx context.Context, id uuid.UUID, read bool) error
	SetAllRead(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Channel delivers inserts for the bound owner.
type Channel interface {
	Subscribe(ctx context.Context, onInsert func(notifications.Item)) (realtime.Subscription, error)
}

// Notice is the user-facing report of a failed operation.
type Notice struct {
	Operation string
	ID        uuid.UUID
	Err       error
}

func (n Notice) Message() string {
	switch n.Operation {
	case OpMarkRead:
		return "Could not mark notification as read"
	case OpMarkUnread:
		return "Could not mark notification as unread"
	case OpMarkAllRead:
		return "Could not mark all notifications as read"
	case OpDelete:
		return "Could not delete notification"
	case OpLoad:
		return "Could not load notifications"
	default:
		return "Something went wrong"
	}
}

const (
	OpLoad        = "load"
	OpMarkRead    = "mark_read"
	OpMarkUnread  = "mark_unread"
	OpMarkAllRead = "mark_all_read"
	OpDelete      = "delete"
)

// FilterKind selects which slice of the feed Items returns.
type FilterKind int

const (
	FilterAll FilterKind = iota
	FilterUnread
	FilterCategory
)

// Filter is the current view over the feed. It never changes the underlying set.
type Filter struct {
	Kind     FilterKind
	Category enums.NotificationCategory
}

// ParseFilter accepts "all", "unread" or a category name.
func ParseFilter(value string) (Filter, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "all":
		return Filter{Kind: FilterAll}, nil
	case "unread":
		return Filter{Kind: FilterUnread}, nil
	}
	category, err := enums.ParseNotificationCategory(value)
	if err != nil {
		return Filter{}, err
	}
	return Filter{Kind: FilterCategory, Category: category}, nil
}

func (f Filter) matches(item notifications.Item) bool {
	switch f.Kind {
	case FilterUnread:
		return !item.Read
	case FilterCategory:
		return item.Category == f.Category
	default:
		return true
	}
}

// Center is safe for concurrent use. Callbacks run outside the lock.
type Center struct {
	store   Store
	channel Channel
	logg    *logger.Logger

	onNotice func(Notice)
	onChange func()
	pageSize int

	mu          sync.Mutex
	state       State
	loadErr     error
	items       []notifications.Item
	cursor      string
	pending     []notifications.Item
	filter      Filter
	loadGen     uint64
	opSeq       uint64
	latestOp    map[uuid.UUID]uint64
	deleted     map[uuid.UUID]struct{}
	markAllBusy bool
	sub         realtime.Subscription
	closed      bool
}

// Option customises a Center.
type Option func(*Center)

// WithNotice receives every surfaced failure.
func WithNotice(fn func(Notice)) Option {
	return func(c *Center) { c.onNotice = fn }
}

// WithChange is called after every state change.
func WithChange(fn func()) Option {
	return func(c *Center) { c.onChange = fn }
}

// WithPageSize sets the listing page size.
func WithPageSize(n int) Option {
	return func(c *Center) { c.pageSize = n }
}

// WithLogger sets the logger.
func WithLogger(logg *logger.Logger) Option {
	return func(c *Center) { c.logg = logg }
}

// New builds a center in the Loading state. Call Start to subscribe and load.
func New(store Store, channel Channel, opts ...Option) (*Center, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notification store required")
	}
	c := &Center{
		store:    store,
		channel:  channel,
		state:    StateLoading,
		latestOp: make(map[uuid.UUID]uint64),
		deleted:  make(map[uuid.UUID]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logg == nil {
		c.logg = logger.Nop()
	}
	return c, nil
}

// Start subscribes before loading so that no insert falls between the two. Pushes that
// overlap the first page are dropped by id.
func (c *Center) Start(ctx context.Context) error {
	if c.channel != nil {
		sub, err := c.channel.Subscribe(ctx, c.push)
		if err != nil {
			c.logg.Error(ctx, "notification center subscribe failed", err)
			c.raise(Notice{Operation: OpLoad, Err: err})
		} else {
			c.mu.Lock()
			c.sub = sub
			c.mu.Unlock()
		}
	}
	return c.Refresh(ctx)
}

// Refresh reloads the first page. A result from an older refresh is discarded.
func (c *Center) Refresh(ctx context.Context) error {
	c.mu.Lock()
	c.loadGen++
	gen := c.loadGen
	c.state = StateLoading
	c.loadErr = nil
	c.mu.Unlock()
	c.changed()

	page, err := c.store.List(ctx, c.pageSize, "")

	c.mu.Lock()
	if gen != c.loadGen {
		c.mu.Unlock()
		return err
	}
	if err != nil {
		c.state = StateError
		c.loadErr = err
		c.pending = nil
		c.mu.Unlock()
		c.logg.Error(ctx, "notification center load failed", err)
		c.raise(Notice{Operation: OpLoad, Err: err})
		c.changed()
		return err
	}
	c.items = dedupe(page.Items)
	c.cursor = page.Cursor
	for _, item := range c.pending {
		c.insertLocked(item)
	}
	c.pending = nil
	c.deleted = make(map[uuid.UUID]struct{})
	c.state = StateReady
	c.mu.Unlock()
	c.changed()
	return nil
}

// LoadMore appends the next page, if any.
func (c *Center) LoadMore(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateReady || c.cursor == "" {
		c.mu.Unlock()
		return nil
	}
	cursor, gen := c.cursor, c.loadGen
	c.mu.Unlock()

	page, err := c.store.List(ctx, c.pageSize, cursor)
	if err != nil {
		c.logg.Error(ctx, "notification center load more failed", err)
		c.raise(Notice{Operation: OpLoad, Err: err})
		return err
	}

	c.mu.Lock()
	if gen != c.loadGen {
		c.mu.Unlock()
		return nil
	}
	for _, item := range page.Items {
		if _, gone := c.deleted[item.ID]; gone {
			continue
		}
		if c.indexLocked(item.ID) < 0 {
			c.items = append(c.items, item)
		}
	}
	c.cursor = page.Cursor
	c.mu.Unlock()
	c.changed()
	return nil
}

// push merges one realtime insert.
func (c *Center) push(item notifications.Item) {
	c.mu.Lock()
	switch c.state {
	case StateReady:
		if !c.insertLocked(item) {
			c.mu.Unlock()
			return
		}
	case StateLoading:
		c.pending = append(c.pending, item)
		c.mu.Unlock()
		return
	default:
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.changed()
}

// insertLocked adds item unless its id is present or was deleted since the last load.
// New items land at the head; an older item arriving late is placed by (createdAt, id)
// so the feed stays newest first.
func (c *Center) insertLocked(item notifications.Item) bool {
	if _, gone := c.deleted[item.ID]; gone {
		return false
	}
	if c.indexLocked(item.ID) >= 0 {
		return false
	}
	pos := sort.Search(len(c.items), func(i int) bool {
		return newer(item, c.items[i])
	})
	c.items = append(c.items, notifications.Item{})
	copy(c.items[pos+1:], c.items[pos:])
	c.items[pos] = item
	return true
}

func newer(a, b notifications.Item) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return strings.Compare(a.ID.String(), b.ID.String()) > 0
	}
	return a.CreatedAt.After(b.CreatedAt)
}

func (c *Center) indexLocked(id uuid.UUID) int {
	for i := range c.items {
		if c.items[i].ID == id {
			return i
		}
	}
	return -1
}

// State returns the lifecycle state and the last load error.
func (c *Center) State() (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.loadErr
}

// SetFilter changes the view.
func (c *Center) SetFilter(filter Filter) {
	c.mu.Lock()
	c.filter = filter
	c.mu.Unlock()
	c.changed()
}

// Filter returns the current view.
func (c *Center) Filter() Filter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

// Items returns a copy of the filtered feed, newest first.
func (c *Center) Items() []notifications.Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]notifications.Item, 0, len(c.items))
	for _, item := range c.items {
		if c.filter.matches(item) {
			out = append(out, item)
		}
	}
	return out
}

// All returns a copy of the whole feed regardless of filter.
func (c *Center) All() []notifications.Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]notifications.Item(nil), c.items...)
}

// UnreadCount is computed from the current set on every call.
func (c *Center) UnreadCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for _, item := range c.items {
		if !item.Read {
			count++
		}
	}
	return count
}

// HasMore reports whether LoadMore has another page.
func (c *Center) HasMore() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor != ""
}

// Close drops the subscription and closes the store and channel when they hold
// connections. It is safe to call more than once.
func (c *Center) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	sub := c.sub
	c.sub = nil
	c.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	var err error
	if closer, ok := c.store.(io.Closer); ok {
		err = multierr.Append(err, wrapClose("store", closer.Close()))
	}
	if closer, ok := c.channel.(io.Closer); ok && any(c.channel) != any(c.store) {
		err = multierr.Append(err, wrapClose("channel", closer.Close()))
	}
	return err
}

func wrapClose(name string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("close %s: %w", name, err)
}

func (c *Center) raise(n Notice) {
	if c.onNotice != nil {
		c.onNotice(n)
	}
}

func (c *Center) changed() {
	if c.onChange != nil {
		c.onChange()
	}
}

func dedupe(items []notifications.Item) []notifications.Item {
	seen := make(map[uuid.UUID]struct{}, len(items))
	out := make([]notifications.Item, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ID]; ok {
			continue
		}
		seen[item.ID] = struct{}{}
		out = append(out, item)
	}
	return out
}
