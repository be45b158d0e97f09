package preferences

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/rosterhub-backend/pkg/db/models"
	"github.com/angelmondragon/rosterhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rosterhub-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepository struct {
	findFn   func(ctx context.Context, userID string) (*models.NotificationPreference, error)
	upsertFn func(ctx context.Context, row models.NotificationPreference, columns []string) error
}

func (f *fakeRepository) Find(ctx context.Context, userID string) (*models.NotificationPreference, error) {
	if f.findFn != nil {
		return f.findFn(ctx, userID)
	}
	return nil, nil
}

func (f *fakeRepository) Upsert(ctx context.Context, row models.NotificationPreference, columns []string) error {
	if f.upsertFn != nil {
		return f.upsertFn(ctx, row, columns)
	}
	return nil
}

func newServiceWithRepo(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo, nil)
	require.NoError(t, err)
	return svc
}

func boolPtr(v bool) *bool {
	return &v
}

func TestService_GetDefaultsWithoutPersisting(t *testing.T) {
	repo := &fakeRepository{
		upsertFn: func(context.Context, models.NotificationPreference, []string) error {
			t.Fatal("Get must not write")
			return nil
		},
	}
	svc := newServiceWithRepo(t, repo)

	set, err := svc.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.False(t, set.Stored)
	for _, category := range enums.KnownNotificationCategories() {
		assert.True(t, set.Allows(category), "category %s should be enabled by default", category)
	}
}

func TestService_GetRequiresUser(t *testing.T) {
	svc := newServiceWithRepo(t, &fakeRepository{})
	_, err := svc.Get(context.Background(), " ")
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestService_GetWrapsStoreFailure(t *testing.T) {
	svc := newServiceWithRepo(t, &fakeRepository{
		findFn: func(context.Context, string) (*models.NotificationPreference, error) {
			return nil, errors.New("connection refused")
		},
	})
	_, err := svc.Get(context.Background(), "user-1")
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeDependency))
}

func TestService_UpdateMergesPatch(t *testing.T) {
	stored := map[string]models.NotificationPreference{}
	repo := &fakeRepository{
		findFn: func(_ context.Context, userID string) (*models.NotificationPreference, error) {
			row, ok := stored[userID]
			if !ok {
				return nil, nil
			}
			return &row, nil
		},
		upsertFn: func(_ context.Context, row models.NotificationPreference, columns []string) error {
			existing, ok := stored[row.UserID]
			if !ok {
				stored[row.UserID] = row
				return nil
			}
			for _, column := range columns {
				switch column {
				case "transfer_updates":
					existing.TransferUpdates = row.TransferUpdates
				case "login_notifications":
					existing.LoginNotifications = row.LoginNotifications
				}
			}
			stored[row.UserID] = existing
			return nil
		},
	}
	svc := newServiceWithRepo(t, repo)
	ctx := context.Background()

	set, err := svc.Update(ctx, "user-1", Patch{TransferUpdates: boolPtr(false)})
	require.NoError(t, err)
	assert.True(t, set.Stored)
	assert.False(t, set.TransferUpdates)
	assert.True(t, set.LoginNotifications)

	set, err = svc.Update(ctx, "user-1", Patch{LoginNotifications: boolPtr(false)})
	require.NoError(t, err)
	assert.False(t, set.TransferUpdates)
	assert.False(t, set.LoginNotifications)
}

func TestService_UpdateEmptyPatchIsRead(t *testing.T) {
	repo := &fakeRepository{
		upsertFn: func(context.Context, models.NotificationPreference, []string) error {
			t.Fatal("empty patch must not write")
			return nil
		},
	}
	set, err := newServiceWithRepo(t, repo).Update(context.Background(), "user-1", Patch{})
	require.NoError(t, err)
	assert.False(t, set.Stored)
}

func TestService_UpdateAgainstSQLite(t *testing.T) {
	conn := setupPreferencesTestDB(t)
	svc := newServiceWithRepo(t, NewRepository(conn))
	ctx := context.Background()

	_, err := svc.Update(ctx, "user-1", Patch{MessageNotifications: boolPtr(false)})
	require.NoError(t, err)
	set, err := svc.Update(ctx, "user-1", Patch{NewsletterSubscription: boolPtr(false)})
	require.NoError(t, err)

	assert.False(t, set.MessageNotifications)
	assert.False(t, set.NewsletterSubscription)
	assert.True(t, set.TransferUpdates)

	got, err := svc.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, set, got)
}

func TestSet_AllowsGatesMappedCategories(t *testing.T) {
	set := Set{
		TransferUpdates:      false,
		MessageNotifications: true,
		ProfileChanges:       false,
		LoginNotifications:   true,
		InAppNotifications:   true,
	}
	assert.False(t, set.Allows(enums.NotificationCategoryTransfer))
	assert.True(t, set.Allows(enums.NotificationCategoryMessage))
	assert.False(t, set.Allows(enums.NotificationCategoryProfile))
	assert.True(t, set.Allows(enums.NotificationCategoryLogin))
	assert.True(t, set.Allows(enums.NotificationCategorySystem))
	assert.True(t, set.Allows(enums.NotificationCategory("scouting_report")))

}

func TestSet_ChannelFlagsDoNotGateUnmappedCategories(t *testing.T) {
	set := Defaults("user-1")
	set.InAppNotifications = false
	set.EmailNotifications = false

	assert.True(t, set.Allows(enums.NotificationCategorySystem))
	assert.True(t, set.Allows(enums.NotificationCategory("scouting_report")))
	assert.True(t, set.Allows(enums.NotificationCategoryTransfer))

	set.TransferUpdates = false
	assert.False(t, set.Allows(enums.NotificationCategoryTransfer))
}
