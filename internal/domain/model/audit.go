package model

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	domainauth "github.com/buswatch/buswatch-api/internal/domain/auth"
)

// AuditEntityType identifies which kind of record an audit entry refers to.
type AuditEntityType string

const (
	AuditEntityReport  AuditEntityType = "report"
	AuditEntityUser    AuditEntityType = "user"
	AuditEntitySchool  AuditEntityType = "school"
	AuditEntityComment AuditEntityType = "comment"
	AuditEntitySystem  AuditEntityType = "system"
)

// Valid reports whether the entity type is supported.
func (t AuditEntityType) Valid() bool {
	switch t {
	case AuditEntityReport, AuditEntityUser, AuditEntitySchool, AuditEntityComment, AuditEntitySystem:
		return true
	default:
		return false
	}
}

// ParseAuditEntityType normalizes an entity type string and reports whether it is supported.
func ParseAuditEntityType(value string) (AuditEntityType, bool) {
	t := AuditEntityType(strings.ToLower(strings.TrimSpace(value)))
	if t.Valid() {
		return t, true
	}
	return "", false
}

// AuditLog is an append-only record of a mutation performed by a user.
// Details carries action-specific structured data as JSON.
type AuditLog struct {
	ID         string          `json:"id"          db:"id"`
	UserID     string          `json:"user_id"     db:"user_id"`
	UserName   string          `json:"user_name"   db:"user_name"`
	UserRole   domainauth.Role `json:"user_role"   db:"user_role"`
	Action     string          `json:"action"      db:"action"`
	EntityType AuditEntityType `json:"entity_type" db:"entity_type"`
	EntityID   string          `json:"entity_id"   db:"entity_id"`
	Details    json.RawMessage `json:"details"     db:"details"`
	CreatedAt  time.Time       `json:"created_at"  db:"created_at"`
}

// RecordAuditRequest represents parameters to append an audit entry.
type RecordAuditRequest struct {
	UserID     string          `json:"user_id"`
	UserName   string          `json:"user_name"`
	UserRole   domainauth.Role `json:"user_role"`
	Action     string          `json:"action"`
	EntityType AuditEntityType `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	Details    json.RawMessage `json:"details,omitempty"`
}

// AuditListOptions controls paging and filtering for listing audit entries.
// DetailsQuery holds an optional JMESPath expression evaluated against the
// Details document of each row; rows where it yields a falsy result are
// dropped from the page.
type AuditListOptions struct {
	Limit        int
	Offset       int
	UserID       *string
	Action       *string
	EntityType   *AuditEntityType
	EntityID     *string
	DetailsQuery string
	Sort         string // allowed: "created_at"
	Dir          string // allowed: "asc", "desc"
}

// Validate validates RecordAuditRequest.
func (r *RecordAuditRequest) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return errors.New("user_id is required and cannot be empty")
	}
	if strings.TrimSpace(r.Action) == "" {
		return errors.New("action is required and cannot be empty")
	}
	if !r.EntityType.Valid() {
		return errors.New("entity_type must be one of: report, user, school, comment, system")
	}
	if strings.TrimSpace(r.EntityID) == "" {
		return errors.New("entity_id is required and cannot be empty")
	}
	if len(r.Details) > 0 && !json.Valid(r.Details) {
		return errors.New("details must be valid JSON")
	}
	return nil
}
