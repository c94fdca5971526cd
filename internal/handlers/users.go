package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ukydev/fieldops/internal/auth"
	"github.com/ukydev/fieldops/internal/db"
	"github.com/ukydev/fieldops/internal/models"
)

// UserHandler serves user administration.
type UserHandler struct {
	authService    *auth.Service
	userCollection db.UserCollection
}

func NewUserHandler(authService *auth.Service, userCollection db.UserCollection) *UserHandler {
	return &UserHandler{authService: authService, userCollection: userCollection}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.userCollection.FindUsers(r.Context())
	if err != nil {
		writeStoreError(w, r, err, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.userCollection.FindUserByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, r, err, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Create adds an active user. Name, email, password and role are required.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.UserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}
	if err := h.authService.ValidateEmail(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.authService.ValidatePassword(req.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !models.IsValidRole(req.Role) {
		writeError(w, http.StatusBadRequest, "Invalid role")
		return
	}

	hash, err := h.authService.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to hash password")
		return
	}
	user := models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         req.Role,
	}
	if err := h.userCollection.InsertUser(r.Context(), &user); err != nil {
		h.writeUserError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// Update applies the supplied fields; an empty password keeps the current one.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req models.UserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	user, err := h.userCollection.FindUserByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err, "User not found")
		return
	}
	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Email != "" {
		if err := h.authService.ValidateEmail(req.Email); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		user.Email = req.Email
	}
	if req.Role != "" {
		if !models.IsValidRole(req.Role) {
			writeError(w, http.StatusBadRequest, "Invalid role")
			return
		}
		user.Role = req.Role
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	if req.Password != "" {
		if err := h.authService.ValidatePassword(req.Password); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		hash, err := h.authService.HashPassword(req.Password)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to hash password")
			return
		}
		user.PasswordHash = hash
	}

	if err := h.userCollection.UpdateUser(r.Context(), id, *user); err != nil {
		h.writeUserError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == currentUser(r).UserID {
		writeError(w, http.StatusBadRequest, "Cannot delete your own user")
		return
	}
	if err := h.userCollection.DeleteUser(r.Context(), id); err != nil {
		writeStoreError(w, r, err, "User not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) writeUserError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, db.ErrDuplicateEmail) {
		writeError(w, http.StatusConflict, "Email already exists")
		return
	}
	writeStoreError(w, r, err, "User not found")
}
