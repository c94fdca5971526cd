package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/ukydev/fieldops/internal/db"
	"github.com/ukydev/fieldops/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var admin = &models.Claims{UserID: primitive.NewObjectID().Hex(), Email: "admin@example.com", Role: models.RoleAdministrator}

func TestUserHandler_Create(t *testing.T) {
	authService := newTestAuthService(t)

	tests := []struct {
		name       string
		body       models.UserRequest
		insertErr  error
		wantInsert bool
		wantStatus int
	}{
		{
			name:       "created",
			body:       models.UserRequest{Name: "Bia", Email: "bia@example.com", Password: "password123", Role: models.RoleValidation},
			wantInsert: true,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "duplicate email",
			body:       models.UserRequest{Name: "Bia", Email: "bia@example.com", Password: "password123", Role: models.RoleValidation},
			insertErr:  db.ErrDuplicateEmail,
			wantInsert: true,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "unknown role",
			body:       models.UserRequest{Name: "Bia", Email: "bia@example.com", Password: "password123", Role: "manager"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "bad email",
			body:       models.UserRequest{Name: "Bia", Email: "bia", Password: "password123", Role: models.RoleBilling},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "short password",
			body:       models.UserRequest{Name: "Bia", Email: "bia@example.com", Password: "1234", Role: models.RoleBilling},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing name",
			body:       models.UserRequest{Email: "bia@example.com", Password: "password123", Role: models.RoleBilling},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(MockUserCollection)
			if tt.wantInsert {
				users.On("InsertUser", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
					return u.Role == tt.body.Role && authService.CheckPassword(tt.body.Password, u.PasswordHash)
				})).Return(tt.insertErr)
			}
			handler := NewUserHandler(authService, users)

			w := httptest.NewRecorder()
			handler.Create(w, jsonRequest(http.MethodPost, "/api/users", tt.body, nil, admin))

			assert.Equal(t, tt.wantStatus, w.Code)
			users.AssertExpectations(t)
		})
	}
}

func TestUserHandler_Update(t *testing.T) {
	authService := newTestAuthService(t)
	id := primitive.NewObjectID().Hex()

	t.Run("partial update keeps password", func(t *testing.T) {
		users := new(MockUserCollection)
		users.On("FindUserByID", mock.Anything, id).Return(&models.User{Name: "Old", Email: "old@example.com", PasswordHash: "hash", Role: models.RoleSupport, IsActive: true}, nil)
		users.On("UpdateUser", mock.Anything, id, mock.MatchedBy(func(u models.User) bool {
			return u.Name == "New" && u.PasswordHash == "hash" && u.Role == models.RoleSupport && !u.IsActive
		})).Return(nil)
		handler := NewUserHandler(authService, users)

		inactive := false
		w := httptest.NewRecorder()
		handler.Update(w, jsonRequest(http.MethodPut, "/api/users/"+id, models.UserRequest{Name: "New", IsActive: &inactive}, map[string]string{"id": id}, admin))

		assert.Equal(t, http.StatusOK, w.Code)
		users.AssertExpectations(t)
	})

	t.Run("missing user", func(t *testing.T) {
		users := new(MockUserCollection)
		users.On("FindUserByID", mock.Anything, id).Return(nil, db.ErrNotFound)
		handler := NewUserHandler(authService, users)

		w := httptest.NewRecorder()
		handler.Update(w, jsonRequest(http.MethodPut, "/api/users/"+id, models.UserRequest{Name: "New"}, map[string]string{"id": id}, admin))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestUserHandler_Delete(t *testing.T) {
	authService := newTestAuthService(t)

	t.Run("self", func(t *testing.T) {
		users := new(MockUserCollection)
		handler := NewUserHandler(authService, users)
		w := httptest.NewRecorder()
		handler.Delete(w, jsonRequest(http.MethodDelete, "/api/users/"+admin.UserID, nil, map[string]string{"id": admin.UserID}, admin))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		users.AssertNotCalled(t, "DeleteUser", mock.Anything, mock.Anything)
	})

	t.Run("other", func(t *testing.T) {
		id := primitive.NewObjectID().Hex()
		users := new(MockUserCollection)
		users.On("DeleteUser", mock.Anything, id).Return(nil)
		handler := NewUserHandler(authService, users)
		w := httptest.NewRecorder()
		handler.Delete(w, jsonRequest(http.MethodDelete, "/api/users/"+id, nil, map[string]string{"id": id}, admin))
		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}
