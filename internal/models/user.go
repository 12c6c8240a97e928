package models

import (
	"fmt"
	"time"
)

// UserRole defines allowed user roles.
type UserRole string

const (
	RoleAdmin    UserRole = "admin"
	RoleEngineer UserRole = "engineer"
	RoleViewer   UserRole = "viewer"
)

var validUserRoles = map[UserRole]struct{}{
	RoleAdmin:    {},
	RoleEngineer: {},
	RoleViewer:   {},
}

// ParseUserRole validates a raw role string.
func ParseUserRole(raw string) (UserRole, error) {
	role := UserRole(raw)
	if _, ok := validUserRoles[role]; !ok {
		return "", fmt.Errorf("invalid role %q", raw)
	}
	return role, nil
}

// User identifies an actor for authorship and audit attribution.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Notification is one queued message for a user.
type Notification struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Message   string         `json:"message"`
	Payload   map[string]any `json:"payload,omitempty"`
	IsRead    bool           `json:"is_read"`
	CreatedAt time.Time      `json:"created_at"`
}

// AuditEntry is one recorded action.
type AuditEntry struct {
	ID        string         `json:"id"`
	ActorID   string         `json:"actor_id"`
	Action    string         `json:"action"`
	Payload   map[string]any `json:"payload,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
