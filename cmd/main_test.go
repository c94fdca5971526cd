package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fieldops/internal/auth"
	"github.com/ukydev/fieldops/internal/config"
	"github.com/ukydev/fieldops/internal/db"
	"github.com/ukydev/fieldops/internal/events"
	"github.com/ukydev/fieldops/internal/models"
)

// userStore covers the two lookups bootstrapAdmin performs; the embedded
// interface panics if anything else is called.
type userStore struct {
	db.UserCollection
	mock.Mock
}

func (m *userStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *userStore) InsertUser(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func testAuth(t *testing.T) *auth.Service {
	t.Helper()
	svc, err := auth.NewService("test-secret", time.Hour)
	require.NoError(t, err)
	return svc
}

func TestBootstrapAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("no email configured", func(t *testing.T) {
		users := new(userStore)
		require.NoError(t, bootstrapAdmin(ctx, users, testAuth(t), "", ""))
		users.AssertNotCalled(t, "FindUserByEmail", mock.Anything, mock.Anything)
	})

	t.Run("admin already present", func(t *testing.T) {
		users := new(userStore)
		users.On("FindUserByEmail", mock.Anything, "root@example.com").Return(&models.User{Role: models.RoleAdministrator}, nil)

		require.NoError(t, bootstrapAdmin(ctx, users, testAuth(t), "root@example.com", "password123"))
		users.AssertNotCalled(t, "InsertUser", mock.Anything, mock.Anything)
	})

	t.Run("admin created", func(t *testing.T) {
		svc := testAuth(t)
		users := new(userStore)
		users.On("FindUserByEmail", mock.Anything, "root@example.com").Return(nil, db.ErrNotFound)
		users.On("InsertUser", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
			return u.Email == "root@example.com" &&
				u.Role == models.RoleAdministrator &&
				svc.CheckPassword("password123", u.PasswordHash)
		})).Return(nil)

		require.NoError(t, bootstrapAdmin(ctx, users, svc, "root@example.com", "password123"))
		users.AssertExpectations(t)
	})

	t.Run("weak password", func(t *testing.T) {
		users := new(userStore)
		users.On("FindUserByEmail", mock.Anything, "root@example.com").Return(nil, db.ErrNotFound)

		err := bootstrapAdmin(ctx, users, testAuth(t), "root@example.com", "123")
		assert.ErrorContains(t, err, "ADMIN_PASSWORD")
		users.AssertNotCalled(t, "InsertUser", mock.Anything, mock.Anything)
	})

	t.Run("lookup failure", func(t *testing.T) {
		users := new(userStore)
		users.On("FindUserByEmail", mock.Anything, "root@example.com").Return(nil, assert.AnError)

		err := bootstrapAdmin(ctx, users, testAuth(t), "root@example.com", "password123")
		assert.ErrorIs(t, err, assert.AnError)
	})
}

func TestNewPublisher(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		assert.Equal(t, events.Noop{}, newPublisher(config.Config{}))
	})

	t.Run("unreachable broker", func(t *testing.T) {
		cfg := config.Config{
			MQTTEnabled: true,
			MQTT:        events.Config{Broker: "tcp://127.0.0.1:1", ClientID: "fieldops-test"},
		}
		assert.Equal(t, events.Noop{}, newPublisher(cfg))
	})
}
