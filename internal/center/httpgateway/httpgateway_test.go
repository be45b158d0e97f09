package httpgateway

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/rosterhub-backend/api/routes"
	"github.com/angelmondragon/rosterhub-backend/internal/center"
	"github.com/angelmondragon/rosterhub-backend/internal/notifications"
	"github.com/angelmondragon/rosterhub-backend/internal/realtime"
	"github.com/angelmondragon/rosterhub-backend/pkg/auth"
	"github.com/angelmondragon/rosterhub-backend/pkg/config"
	"github.com/angelmondragon/rosterhub-backend/pkg/db/models"
	"github.com/angelmondragon/rosterhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rosterhub-backend/pkg/errors"
	"github.com/angelmondragon/rosterhub-backend/pkg/logger"
)

var seedBase = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type apiHarness struct {
	cfg    *config.Config
	svc    notifications.Service
	hub    *realtime.Hub
	server *httptest.Server
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	ddl := `
CREATE TABLE IF NOT EXISTS notifications (
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL,
  category TEXT NOT NULL,
  title TEXT NOT NULL,
  body TEXT NOT NULL,
  metadata TEXT,
  read_at DATETIME,
  created_at DATETIME NOT NULL
);`
	require.NoError(t, conn.Exec(ddl).Error)

	svc, err := notifications.NewService(notifications.NewRepository(conn))
	require.NoError(t, err)

	cfg := &config.Config{
		App:      config.AppConfig{Env: "dev"},
		JWT:      config.JWTConfig{Secret: "gateway-secret", Issuer: "rosterhub-identity", ExpirationMinutes: 5},
		Realtime: config.RealtimeConfig{PingInterval: time.Minute, SendBuffer: 8},
	}
	hub := realtime.NewHub(logger.Nop(), nil)
	router := routes.NewRouter(cfg, logger.Nop(), nil, nil, nil, svc, nil, nil, hub)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &apiHarness{cfg: cfg, svc: svc, hub: hub, server: server}
}

func (h *apiHarness) token(t *testing.T, userID string) string {
	t.Helper()
	token, err := auth.MintIdentityToken(h.cfg.JWT, time.Now(), auth.Identity{UserID: userID})
	require.NoError(t, err)
	return token
}

func (h *apiHarness) seed(t *testing.T, owner string, n int) []*models.Notification {
	t.Helper()
	rows := make([]*models.Notification, 0, n)
	for i := 1; i <= n; i++ {
		row, err := h.svc.Insert(context.Background(), &models.Notification{
			OwnerID:   owner,
			Category:  enums.NotificationCategoryTransfer,
			Title:     fmt.Sprintf("n%d", i),
			Body:      "body",
			CreatedAt: seedBase.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
		rows = append(rows, row)
	}
	return rows
}

func newCenter(t *testing.T, h *apiHarness, userID string, opts ...center.Option) (*center.Center, *Client) {
	t.Helper()
	client, err := NewClient(h.server.URL, h.token(t, userID))
	require.NoError(t, err)
	c, err := center.New(client, NewStream(client, logger.Nop()), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, client
}

func titles(items []notifications.Item) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Title)
	}
	return out
}

func TestCenterLoadsPagesOverHTTP(t *testing.T) {
	h := newAPIHarness(t)
	h.seed(t, "user-1", 5)
	h.seed(t, "user-2", 2)

	c, _ := newCenter(t, h, "user-1", center.WithPageSize(3))
	require.NoError(t, c.Start(context.Background()))

	state, err := c.State()
	require.NoError(t, err)
	assert.Equal(t, center.StateReady, state)
	assert.Equal(t, []string{"n5", "n4", "n3"}, titles(c.Items()))
	assert.True(t, c.HasMore())

	require.NoError(t, c.LoadMore(context.Background()))
	assert.Equal(t, []string{"n5", "n4", "n3", "n2", "n1"}, titles(c.Items()))
	assert.False(t, c.HasMore())
}

func TestCenterReceivesStreamPushes(t *testing.T) {
	h := newAPIHarness(t)
	c, _ := newCenter(t, h, "user-1")
	require.NoError(t, c.Start(context.Background()))
	require.Eventually(t, func() bool { return h.hub.Subscribers("user-1") == 1 }, 2*time.Second, 10*time.Millisecond)

	stored, err := h.svc.Insert(context.Background(), &models.Notification{
		OwnerID:  "user-1",
		Category: enums.NotificationCategoryMessage,
		Title:    "new message",
		Body:     "hi",
	})
	require.NoError(t, err)
	require.NoError(t, h.hub.Publish(context.Background(), notifications.ItemFromModel(*stored)))

	require.Eventually(t, func() bool { return len(c.Items()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "new message", c.Items()[0].Title)
	assert.Equal(t, 1, c.UnreadCount())

	require.NoError(t, c.Close())
	require.Eventually(t, func() bool { return h.hub.Subscribers("user-1") == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestCenterMutationsReachServer(t *testing.T) {
	h := newAPIHarness(t)
	rows := h.seed(t, "user-1", 3)
	c, client := newCenter(t, h, "user-1")
	ctx := context.Background()
	require.NoError(t, c.Start(ctx))

	require.NoError(t, c.MarkRead(ctx, rows[0].ID))
	unread, err := client.UnreadCount(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, unread)

	require.NoError(t, c.MarkUnread(ctx, rows[0].ID))
	unread, err = client.UnreadCount(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, unread)

	require.NoError(t, c.Delete(ctx, rows[1].ID))
	affected, err := c.MarkAllRead(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, affected)

	count, err := h.svc.UnreadCount(ctx, "user-1")
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
	assert.Len(t, c.All(), 2)
}

func TestClientMapsErrorEnvelope(t *testing.T) {
	h := newAPIHarness(t)
	client, err := NewClient(h.server.URL, "not-a-token")
	require.NoError(t, err)

	_, err = client.List(context.Background(), 10, "")
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeUnauthorized))

	_, err = NewStream(client, nil).Subscribe(context.Background(), func(notifications.Item) {})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeUnauthorized))
}

func TestNewClientValidates(t *testing.T) {
	_, err := NewClient("", "token")
	require.Error(t, err)
	_, err = NewClient("http://localhost:8080", " ")
	require.Error(t, err)
}

func TestWebsocketURL(t *testing.T) {
	assert.Equal(t, "wss://api.example.com", websocketURL("https://api.example.com"))
	assert.Equal(t, "ws://localhost:8080", websocketURL("http://localhost:8080"))
}
