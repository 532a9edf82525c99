package model

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	domainauth "github.com/buswatch/buswatch-api/internal/domain/auth"
)

const (
	maxStudentNameLen = 255
	maxBusRouteLen    = 64
	maxDescriptionLen = 4000
	maxCommentLen     = 2000
)

// ReportStatus tracks a misconduct report through triage.
type ReportStatus string

const (
	ReportStatusPending  ReportStatus = "pending"
	ReportStatusReviewed ReportStatus = "reviewed"
	ReportStatusResolved ReportStatus = "resolved"
)

// Valid reports whether the status is supported.
func (s ReportStatus) Valid() bool {
	switch s {
	case ReportStatusPending, ReportStatusReviewed, ReportStatusResolved:
		return true
	default:
		return false
	}
}

// ParseReportStatus normalizes a status string and reports whether it is supported.
func ParseReportStatus(value string) (ReportStatus, bool) {
	s := ReportStatus(strings.ToLower(strings.TrimSpace(value)))
	if s.Valid() {
		return s, true
	}
	return "", false
}

// CanTransitionTo enforces the triage flow pending -> reviewed -> resolved.
// Moving backwards is allowed only from resolved to reviewed (reopen).
func (s ReportStatus) CanTransitionTo(next ReportStatus) bool {
	switch s {
	case ReportStatusPending:
		return next == ReportStatusReviewed || next == ReportStatusResolved
	case ReportStatusReviewed:
		return next == ReportStatusResolved
	case ReportStatusResolved:
		return next == ReportStatusReviewed
	default:
		return false
	}
}

// Report represents a misconduct report filed by a driver.
type Report struct {
	ID            string       `json:"id"                       db:"id"`
	DriverID      string       `json:"driver_id"                db:"driver_id"`
	DriverName    string       `json:"driver_name"              db:"driver_name"`
	StudentName   string       `json:"student_name"             db:"student_name"`
	BusRoute      string       `json:"bus_route"                db:"bus_route"`
	SchoolID      string       `json:"school_id"                db:"school_id"`
	SchoolName    string       `json:"school_name"              db:"school_name"`
	IncidentDate  time.Time    `json:"incident_date"            db:"incident_date"`
	Description   string       `json:"description"              db:"description"`
	Status        ReportStatus `json:"status"                   db:"status"`
	AttachmentURL *string      `json:"attachment_url,omitempty" db:"attachment_url"`
	CreatedAt     time.Time    `json:"created_at"               db:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"               db:"updated_at"`
}

// Comment is a triage note attached to a report.
type Comment struct {
	ID        string          `json:"id"         db:"id"`
	ReportID  string          `json:"report_id"  db:"report_id"`
	UserID    string          `json:"user_id"    db:"user_id"`
	UserName  string          `json:"user_name"  db:"user_name"`
	UserRole  domainauth.Role `json:"user_role"  db:"user_role"`
	Content   string          `json:"content"    db:"content"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// ReportWithComments bundles a report and its comment thread for detail views.
type ReportWithComments struct {
	Report
	Comments []*Comment `json:"comments"`
}

// CreateReportRequest represents parameters to create a Report.
// The reporting driver is taken from the authenticated session, never from
// the request body.
type CreateReportRequest struct {
	StudentName   string    `json:"student_name"`
	BusRoute      string    `json:"bus_route"`
	SchoolID      string    `json:"school_id"`
	IncidentDate  time.Time `json:"incident_date"`
	Description   string    `json:"description"`
	AttachmentURL *string   `json:"attachment_url,omitempty"`
}

// AddCommentRequest represents parameters to attach a comment to a report.
type AddCommentRequest struct {
	Content string `json:"content"`
}

// ReportsListOptions controls paging and filtering for listing reports.
// Role scoping (driver/school) is applied on top of these by the service.
type ReportsListOptions struct {
	Limit    int
	Offset   int
	Q        *string       // substring match on student name or description (ILIKE)
	Status   *ReportStatus // exact match
	BusRoute *string       // exact match
	DriverID *string       // exact match; set by the service for driver scoping
	SchoolID *string       // exact match; set by the service for school scoping
	Sort     string        // allowed: "created_at", "incident_date", "student_name"
	Dir      string        // allowed: "asc", "desc"
}

// Validate validates CreateReportRequest.
func (r *CreateReportRequest) Validate() error {
	student := strings.TrimSpace(r.StudentName)
	if student == "" {
		return errors.New("student_name is required and cannot be empty")
	}
	if utf8.RuneCountInString(student) > maxStudentNameLen {
		return errors.New("student_name cannot exceed 255 characters")
	}
	route := strings.TrimSpace(r.BusRoute)
	if route == "" {
		return errors.New("bus_route is required and cannot be empty")
	}
	if utf8.RuneCountInString(route) > maxBusRouteLen {
		return errors.New("bus_route cannot exceed 64 characters")
	}
	if strings.TrimSpace(r.SchoolID) == "" {
		return errors.New("school_id is required and cannot be empty")
	}
	if r.IncidentDate.IsZero() {
		return errors.New("incident_date is required and cannot be empty")
	}
	desc := strings.TrimSpace(r.Description)
	if desc == "" {
		return errors.New("description is required and cannot be empty")
	}
	if utf8.RuneCountInString(desc) > maxDescriptionLen {
		return errors.New("description cannot exceed 4000 characters")
	}
	return nil
}

// Validate validates AddCommentRequest.
func (r *AddCommentRequest) Validate() error {
	content := strings.TrimSpace(r.Content)
	if content == "" {
		return errors.New("content is required and cannot be empty")
	}
	if utf8.RuneCountInString(content) > maxCommentLen {
		return errors.New("content cannot exceed 2000 characters")
	}
	return nil
}
