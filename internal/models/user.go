package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role represents user roles in the system
type Role string

const (
	RoleAdministrator Role = "administrator"
	RoleScheduling    Role = "scheduling"
	RoleSupport       Role = "support"
	RoleValidation    Role = "validation"
	RoleBilling       Role = "billing"
)

// User represents a user in the system
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	Role         Role               `bson:"role" json:"role"`
	IsActive     bool               `bson:"is_active" json:"isActive"`
	LastLogin    *time.Time         `bson:"last_login,omitempty" json:"lastLogin,omitempty"`
	CreatedAt    time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updatedAt"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserRequest is the payload for creating or updating a user.
// Empty fields are left untouched on update.
type UserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
	IsActive *bool  `json:"isActive,omitempty"`
}

// LoginResponse represents a successful login response. The token is the
// only credential; clients log in again once it expires.
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Claims represents JWT claims
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	Exp    int64  `json:"exp"`
}

// IsValidRole checks if a role is valid
func IsValidRole(role Role) bool {
	switch role {
	case RoleAdministrator, RoleScheduling, RoleSupport, RoleValidation, RoleBilling:
		return true
	default:
		return false
	}
}

// HasRole reports whether the role is one of allowed. Administrators pass every check.
func (r Role) HasRole(allowed ...Role) bool {
	if r == RoleAdministrator {
		return true
	}
	for _, a := range allowed {
		if r == a {
			return true
		}
	}
	return false
}
