package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fieldops/internal/db"
	"github.com/ukydev/fieldops/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestAuthHandler_Login(t *testing.T) {
	authService := newTestAuthService(t)
	passwordHash, err := authService.HashPassword("password123")
	require.NoError(t, err)

	t.Run("successful login", func(t *testing.T) {
		mockUserCollection := new(MockUserCollection)
		handler := NewAuthHandler(authService, mockUserCollection)

		user := &models.User{
			ID:           primitive.NewObjectID(),
			Name:         "Ana",
			Email:        "ana@example.com",
			PasswordHash: passwordHash,
			Role:         models.RoleScheduling,
			IsActive:     true,
		}
		mockUserCollection.On("FindUserByEmail", mock.Anything, "ana@example.com").Return(user, nil)
		mockUserCollection.On("UpdateLastLogin", mock.Anything, user.ID.Hex()).Return(nil)

		w := httptest.NewRecorder()
		handler.Login(w, jsonRequest(http.MethodPost, "/api/auth/login", models.LoginRequest{
			Email:    "ana@example.com",
			Password: "password123",
		}, nil, nil))

		assert.Equal(t, http.StatusOK, w.Code)
		response := decodeBody[models.LoginResponse](t, w)
		assert.NotEmpty(t, response.Token)
		assert.NotContains(t, w.Body.String(), "refreshToken")
		assert.Equal(t, user.Email, response.User.Email)
		assert.NotContains(t, w.Body.String(), passwordHash)

		claims, err := authService.ValidateToken(response.Token)
		require.NoError(t, err)
		assert.Equal(t, user.ID.Hex(), claims.UserID)
		assert.Equal(t, models.RoleScheduling, claims.Role)
		mockUserCollection.AssertExpectations(t)
	})

	t.Run("unknown email", func(t *testing.T) {
		mockUserCollection := new(MockUserCollection)
		handler := NewAuthHandler(authService, mockUserCollection)
		mockUserCollection.On("FindUserByEmail", mock.Anything, "nobody@example.com").Return(nil, db.ErrNotFound)

		w := httptest.NewRecorder()
		handler.Login(w, jsonRequest(http.MethodPost, "/api/auth/login", models.LoginRequest{
			Email:    "nobody@example.com",
			Password: "password123",
		}, nil, nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		mockUserCollection.AssertExpectations(t)
	})

	t.Run("wrong password", func(t *testing.T) {
		mockUserCollection := new(MockUserCollection)
		handler := NewAuthHandler(authService, mockUserCollection)
		user := &models.User{ID: primitive.NewObjectID(), Email: "ana@example.com", PasswordHash: passwordHash, IsActive: true}
		mockUserCollection.On("FindUserByEmail", mock.Anything, "ana@example.com").Return(user, nil)

		w := httptest.NewRecorder()
		handler.Login(w, jsonRequest(http.MethodPost, "/api/auth/login", models.LoginRequest{
			Email:    "ana@example.com",
			Password: "wrongpassword",
		}, nil, nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		mockUserCollection.AssertNotCalled(t, "UpdateLastLogin", mock.Anything, mock.Anything)
	})

	t.Run("inactive user", func(t *testing.T) {
		mockUserCollection := new(MockUserCollection)
		handler := NewAuthHandler(authService, mockUserCollection)
		user := &models.User{ID: primitive.NewObjectID(), Email: "ana@example.com", PasswordHash: passwordHash, IsActive: false}
		mockUserCollection.On("FindUserByEmail", mock.Anything, "ana@example.com").Return(user, nil)

		w := httptest.NewRecorder()
		handler.Login(w, jsonRequest(http.MethodPost, "/api/auth/login", models.LoginRequest{
			Email:    "ana@example.com",
			Password: "password123",
		}, nil, nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "user is inactive", decodeBody[ErrorResponse](t, w).Error)
	})

	t.Run("missing fields", func(t *testing.T) {
		handler := NewAuthHandler(authService, new(MockUserCollection))
		w := httptest.NewRecorder()
		handler.Login(w, jsonRequest(http.MethodPost, "/api/auth/login", models.LoginRequest{Email: "ana@example.com"}, nil, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		handler := NewAuthHandler(authService, new(MockUserCollection))
		w := httptest.NewRecorder()
		handler.Login(w, jsonRequest(http.MethodPost, "/api/auth/login", "not an object", nil, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAuthHandler_Me(t *testing.T) {
	authService := newTestAuthService(t)
	mockUserCollection := new(MockUserCollection)
	handler := NewAuthHandler(authService, mockUserCollection)

	user := &models.User{Name: "Ops", Email: operator.Email, Role: operator.Role}
	mockUserCollection.On("FindUserByID", mock.Anything, operator.UserID).Return(user, nil)

	w := httptest.NewRecorder()
	handler.Me(w, jsonRequest(http.MethodGet, "/api/auth/me", nil, nil, operator))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Ops", decodeBody[models.User](t, w).Name)

	w = httptest.NewRecorder()
	handler.Me(w, jsonRequest(http.MethodGet, "/api/auth/me", nil, nil, nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_ChangePassword(t *testing.T) {
	authService := newTestAuthService(t)
	currentHash, err := authService.HashPassword("password123")
	require.NoError(t, err)

	t.Run("success", func(t *testing.T) {
		mockUserCollection := new(MockUserCollection)
		handler := NewAuthHandler(authService, mockUserCollection)
		mockUserCollection.On("FindUserByID", mock.Anything, operator.UserID).Return(&models.User{PasswordHash: currentHash}, nil)
		mockUserCollection.On("UpdateUser", mock.Anything, operator.UserID, mock.MatchedBy(func(u models.User) bool {
			return authService.CheckPassword("newpassword1", u.PasswordHash)
		})).Return(nil)

		w := httptest.NewRecorder()
		handler.ChangePassword(w, jsonRequest(http.MethodPost, "/api/auth/change-password", map[string]string{
			"currentPassword": "password123",
			"newPassword":     "newpassword1",
		}, nil, operator))

		assert.Equal(t, http.StatusOK, w.Code)
		mockUserCollection.AssertExpectations(t)
	})

	t.Run("wrong current password", func(t *testing.T) {
		mockUserCollection := new(MockUserCollection)
		handler := NewAuthHandler(authService, mockUserCollection)
		mockUserCollection.On("FindUserByID", mock.Anything, operator.UserID).Return(&models.User{PasswordHash: currentHash}, nil)

		w := httptest.NewRecorder()
		handler.ChangePassword(w, jsonRequest(http.MethodPost, "/api/auth/change-password", map[string]string{
			"currentPassword": "nope-nope",
			"newPassword":     "newpassword1",
		}, nil, operator))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		mockUserCollection.AssertNotCalled(t, "UpdateUser", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("weak new password", func(t *testing.T) {
		handler := NewAuthHandler(authService, new(MockUserCollection))
		w := httptest.NewRecorder()
		handler.ChangePassword(w, jsonRequest(http.MethodPost, "/api/auth/change-password", map[string]string{
			"currentPassword": "password123",
			"newPassword":     "short",
		}, nil, operator))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
