package center

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/rosterhub-backend/internal/notifications"
	"github.com/angelmondragon/rosterhub-backend/internal/realtime"
	"github.com/angelmondragon/rosterhub-backend/pkg/db/models"
	"github.com/angelmondragon/rosterhub-backend/pkg/enums"
	"github.com/angelmondragon/rosterhub-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupCenterTestDB(t *testing.T) *gorm.DB {
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
	return conn
}

func TestMarkAllReadAgainstStore(t *testing.T) {
	conn := setupCenterTestDB(t)
	svc, err := notifications.NewService(notifications.NewRepository(conn))
	require.NoError(t, err)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		_, err := svc.Insert(ctx, &models.Notification{
			OwnerID:   "user-1",
			Category:  enums.NotificationCategorySystem,
			Title:     fmt.Sprintf("n%d", i),
			Body:      "body",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	hub := realtime.NewHub(logger.Nop(), nil)
	c, err := New(LocalStore{Service: svc, OwnerID: "user-1"}, LocalChannel{Subscriber: hub, OwnerID: "user-1"})
	require.NoError(t, err)
	require.NoError(t, c.Start(ctx))
	t.Cleanup(func() { _ = c.Close() })
	require.Equal(t, 5, c.UnreadCount())

	affected, err := c.MarkAllRead(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 5, affected)
	assert.Equal(t, 0, c.UnreadCount())
	stored, err := svc.UnreadCount(ctx, "user-1")
	require.NoError(t, err)
	assert.EqualValues(t, 0, stored)

	before := c.All()
	affected, err = c.MarkAllRead(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, affected)
	assert.Equal(t, before, c.All())
}

func TestHubPushReachesCenter(t *testing.T) {
	conn := setupCenterTestDB(t)
	svc, err := notifications.NewService(notifications.NewRepository(conn))
	require.NoError(t, err)
	ctx := context.Background()

	hub := realtime.NewHub(logger.Nop(), nil)
	c, err := New(LocalStore{Service: svc, OwnerID: "user-1"}, LocalChannel{Subscriber: hub, OwnerID: "user-1"})
	require.NoError(t, err)
	require.NoError(t, c.Start(ctx))

	stored, err := svc.Insert(ctx, &models.Notification{OwnerID: "user-1", Category: enums.NotificationCategoryMessage, Title: "hello", Body: "b"})
	require.NoError(t, err)
	pushed := notifications.ItemFromModel(*stored)
	require.NoError(t, hub.Publish(ctx, pushed))
	require.NoError(t, hub.Publish(ctx, pushed))

	assert.Equal(t, []string{"hello"}, titles(c.Items()))
	assert.Equal(t, 1, hub.Subscribers("user-1"))

	require.NoError(t, c.Close())
	assert.Equal(t, 0, hub.Subscribers("user-1"))
	assert.NoError(t, c.Close())
}
