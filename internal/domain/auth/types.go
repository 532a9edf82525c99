package auth

// Package auth contains domain-level types for authentication and sessions.
// It is pure and free of framework/adapter concerns.

import (
	"fmt"
	"strings"
	"time"
)

// Role represents an application's authorization role.
// Keep string form for easy persistence and cookies.
// Valid values are defined as constants below.
type Role string

const (
	RoleDriver      Role = "driver"
	RoleSchoolAdmin Role = "school-admin"
	RoleSuperAdmin  Role = "super-admin"
)

// Valid reports whether the role is one of the closed set.
func (r Role) Valid() bool {
	switch r {
	case RoleDriver, RoleSchoolAdmin, RoleSuperAdmin:
		return true
	default:
		return false
	}
}

// SchoolScoped reports whether the role is scoped to a single school.
// Drivers and school admins carry a school ID; super admins are unscoped.
func (r Role) SchoolScoped() bool {
	switch r {
	case RoleDriver, RoleSchoolAdmin:
		return true
	case RoleSuperAdmin:
		return false
	default:
		return false
	}
}

// ParseRole normalizes a role string and reports whether it is supported.
func ParseRole(value string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(value)))
	if r.Valid() {
		return r, true
	}
	return "", false
}

// UnmarshalText implements encoding.TextUnmarshaler so roles load from env and JSON safely.
func (r *Role) UnmarshalText(text []byte) error {
	role, ok := ParseRole(string(text))
	if !ok {
		return fmt.Errorf("invalid role: %q (valid options: driver, school-admin, super-admin)", string(text))
	}
	*r = role
	return nil
}

// Identity represents a resolved, authenticated user record.
// An Identity is immutable once issued for a session; a new login produces a
// new value, it is never mutated in place.
type Identity struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	SchoolID  *string   `json:"school_id,omitempty"` // set only for school-scoped roles
	CreatedAt time.Time `json:"created_at"`
}

// Session is the server-side record we persist for an authenticated user.
// ID is an opaque session identifier (e.g., random URL-safe string).
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	SchoolID  *string   `json:"school_id,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Identity reconstructs the Identity carried by the session.
func (s Session) Identity() Identity {
	return Identity{
		ID:       s.UserID,
		Name:     s.Name,
		Email:    s.Email,
		Role:     s.Role,
		SchoolID: s.SchoolID,
	}
}

// IsSuperAdmin returns true if the session role is super-admin.
func (s Session) IsSuperAdmin() bool { return s.Role == RoleSuperAdmin }

// SameSchool reports whether the session is scoped to the given school.
func (s Session) SameSchool(schoolID string) bool {
	return s.SchoolID != nil && *s.SchoolID == schoolID
}
