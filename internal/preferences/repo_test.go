package preferences

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/angelmondragon/rosterhub-backend/pkg/db/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupPreferencesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	ddl := `
CREATE TABLE IF NOT EXISTS notification_preferences (
  user_id TEXT PRIMARY KEY,
  transfer_updates INTEGER NOT NULL DEFAULT 1,
  message_notifications INTEGER NOT NULL DEFAULT 1,
  profile_changes INTEGER NOT NULL DEFAULT 1,
  login_notifications INTEGER NOT NULL DEFAULT 1,
  email_notifications INTEGER NOT NULL DEFAULT 1,
  in_app_notifications INTEGER NOT NULL DEFAULT 1,
  newsletter_subscription INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME NOT NULL,
  updated_at DATETIME NOT NULL
);`
	require.NoError(t, conn.Exec(ddl).Error)
	return conn
}

func countPreferenceRows(t *testing.T, conn *gorm.DB) int64 {
	t.Helper()
	var count int64
	require.NoError(t, conn.Model(&models.NotificationPreference{}).Count(&count).Error)
	return count
}

func TestRepository_FindMissingReturnsNil(t *testing.T) {
	conn := setupPreferencesTestDB(t)
	repo := NewRepository(conn)

	row, err := repo.Find(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Nil(t, row)
	assert.Zero(t, countPreferenceRows(t, conn))
}

func TestRepository_UpsertOnlyTouchesListedColumns(t *testing.T) {
	conn := setupPreferencesTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	first := models.DefaultNotificationPreference("user-1")
	first.TransferUpdates = false
	require.NoError(t, repo.Upsert(ctx, first, []string{"transfer_updates"}))

	second := models.DefaultNotificationPreference("user-1")
	second.MessageNotifications = false
	require.NoError(t, repo.Upsert(ctx, second, []string{"message_notifications"}))

	row, err := repo.Find(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.False(t, row.TransferUpdates, "earlier patch must survive")
	assert.False(t, row.MessageNotifications)
	assert.True(t, row.ProfileChanges)
	assert.True(t, row.InAppNotifications)
	assert.EqualValues(t, 1, countPreferenceRows(t, conn))
}
