//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	domainauth "github.com/buswatch/buswatch-api/internal/domain/auth"
)

const (
	maxUserNameLen  = 255
	minPasswordLen  = 8
	maxPasswordLen  = 72 // bcrypt input limit
	maxUserEmailLen = 320
)

// User represents an application account.
type User struct {
	ID        string          `json:"id"                  db:"id"`
	Name      string          `json:"name"                db:"name"`
	Email     string          `json:"email"               db:"email"`
	Role      domainauth.Role `json:"role"                db:"role"`
	SchoolID  *string         `json:"school_id,omitempty" db:"school_id"`
	CreatedAt time.Time       `json:"created_at"          db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"          db:"updated_at"`
}

// Identity maps the user row into the domain identity shape.
func (u *User) Identity() domainauth.Identity {
	return domainauth.Identity{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		SchoolID:  u.SchoolID,
		CreatedAt: u.CreatedAt,
	}
}

// CreateUserRequest represents parameters to create a User.
// Password is used to provision a credential and is never stored in clear.
type CreateUserRequest struct {
	Name     string          `json:"name"`
	Email    string          `json:"email"`
	Role     domainauth.Role `json:"role"`
	SchoolID *string         `json:"school_id,omitempty"`
	Password string          `json:"password"`
}

// UpdateUserRequest represents parameters to update a User.
type UpdateUserRequest struct {
	Name     *string          `json:"name,omitempty"`
	Email    *string          `json:"email,omitempty"`
	Role     *domainauth.Role `json:"role,omitempty"`
	SchoolID *string          `json:"school_id,omitempty"`
}

// UsersListOptions controls paging and filtering for listing users.
type UsersListOptions struct {
	Limit    int
	Offset   int
	Q        *string          // substring match on name or email (ILIKE)
	Role     *domainauth.Role // exact match
	SchoolID *string          // exact match
	Sort     string           // allowed: "created_at", "name", "email"
	Dir      string           // allowed: "asc", "desc"
}

// Validate validates CreateUserRequest.
func (r *CreateUserRequest) Validate() error {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return errors.New("name is required and cannot be empty")
	}
	if utf8.RuneCountInString(name) > maxUserNameLen {
		return errors.New("name cannot exceed 255 characters")
	}
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	if !r.Role.Valid() {
		return errors.New("role must be one of: driver, school-admin, super-admin")
	}
	if err := validateRoleScope(r.Role, r.SchoolID); err != nil {
		return err
	}
	pwLen := len(r.Password)
	if pwLen < minPasswordLen {
		return errors.New("password must be at least 8 characters")
	}
	if pwLen > maxPasswordLen {
		return errors.New("password cannot exceed 72 characters")
	}
	return nil
}

// HasUpdates reports whether any field is set in UpdateUserRequest.
func (r *UpdateUserRequest) HasUpdates() bool {
	return r.Name != nil || r.Email != nil || r.Role != nil || r.SchoolID != nil
}

// Validate validates UpdateUserRequest, ensuring at least one field is set and values are sane.
func (r *UpdateUserRequest) Validate() error {
	if !r.HasUpdates() {
		return errors.New("at least one field must be updated")
	}
	if r.Name != nil {
		n := strings.TrimSpace(*r.Name)
		if n == "" {
			return errors.New("name cannot be empty")
		}
		if utf8.RuneCountInString(n) > maxUserNameLen {
			return errors.New("name cannot exceed 255 characters")
		}
	}
	if r.Email != nil {
		if err := validateEmail(*r.Email); err != nil {
			return err
		}
	}
	if r.Role != nil {
		if !r.Role.Valid() {
			return errors.New("role must be one of: driver, school-admin, super-admin")
		}
		// The school scope of a role change is validated against the merged
		// row by the service, which sees the current school assignment.
	}
	return nil
}

func validateEmail(email string) error {
	e := strings.TrimSpace(email)
	if e == "" {
		return errors.New("email is required and cannot be empty")
	}
	if len(e) > maxUserEmailLen {
		return errors.New("email cannot exceed 320 characters")
	}
	if _, err := mail.ParseAddress(e); err != nil {
		return errors.New("email must be a valid address")
	}
	return nil
}

// validateRoleScope enforces the school-scope invariant: school-scoped roles
// require a school assignment, the unscoped role must not carry one.
func validateRoleScope(role domainauth.Role, schoolID *string) error {
	scoped := role.SchoolScoped()
	hasSchool := schoolID != nil && strings.TrimSpace(*schoolID) != ""
	if scoped && !hasSchool {
		return errors.New("school_id is required and cannot be empty for school-scoped roles")
	}
	if !scoped && hasSchool {
		return errors.New("school_id must be empty for super-admin")
	}
	return nil
}

// ValidateRoleScope is the exported form used by services when merging updates.
func ValidateRoleScope(role domainauth.Role, schoolID *string) error {
	return validateRoleScope(role, schoolID)
}
