package model

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

const maxSchoolNameLen = 255

// School represents a school served by the bus fleet.
type School struct {
	ID        string    `json:"id"                db:"id"`
	Name      string    `json:"name"              db:"name"`
	Address   *string   `json:"address,omitempty" db:"address"`
	City      *string   `json:"city,omitempty"    db:"city"`
	State     *string   `json:"state,omitempty"   db:"state"`
	Zip       *string   `json:"zip,omitempty"     db:"zip"`
	Phone     *string   `json:"phone,omitempty"   db:"phone"`
	CreatedAt time.Time `json:"created_at"        db:"created_at"`
	UpdatedAt time.Time `json:"updated_at"        db:"updated_at"`
}

// CreateSchoolRequest represents parameters to create a School.
type CreateSchoolRequest struct {
	Name    string  `json:"name"`
	Address *string `json:"address,omitempty"`
	City    *string `json:"city,omitempty"`
	State   *string `json:"state,omitempty"`
	Zip     *string `json:"zip,omitempty"`
	Phone   *string `json:"phone,omitempty"`
}

// UpdateSchoolRequest represents parameters to update a School.
type UpdateSchoolRequest struct {
	Name    *string `json:"name,omitempty"`
	Address *string `json:"address,omitempty"`
	City    *string `json:"city,omitempty"`
	State   *string `json:"state,omitempty"`
	Zip     *string `json:"zip,omitempty"`
	Phone   *string `json:"phone,omitempty"`
}

// SchoolsListOptions controls paging and filtering for listing schools.
type SchoolsListOptions struct {
	Limit  int
	Offset int
	Q      *string // substring match on name (ILIKE)
	Sort   string  // allowed: "created_at", "name"
	Dir    string  // allowed: "asc", "desc"
}

// Validate validates CreateSchoolRequest.
func (r *CreateSchoolRequest) Validate() error {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return errors.New("name is required and cannot be empty")
	}
	if utf8.RuneCountInString(name) > maxSchoolNameLen {
		return errors.New("name cannot exceed 255 characters")
	}
	return nil
}

// HasUpdates reports whether any field is set in UpdateSchoolRequest.
func (r *UpdateSchoolRequest) HasUpdates() bool {
	return r.Name != nil || r.Address != nil || r.City != nil || r.State != nil || r.Zip != nil || r.Phone != nil
}

// Validate validates UpdateSchoolRequest.
func (r *UpdateSchoolRequest) Validate() error {
	if !r.HasUpdates() {
		return errors.New("at least one field must be updated")
	}
	if r.Name != nil {
		n := strings.TrimSpace(*r.Name)
		if n == "" {
			return errors.New("name cannot be empty")
		}
		if utf8.RuneCountInString(n) > maxSchoolNameLen {
			return errors.New("name cannot exceed 255 characters")
		}
	}
	return nil
}
