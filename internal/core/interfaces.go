package core

import (
	"context"

	"github.com/buswatch/buswatch-api/internal/domain/model"
)

// This file contains repository interface definitions (ports in hexagonal architecture).
// These interfaces define the contracts between the service layer and data layer.
// Service implementations should depend on these interfaces, not concrete implementations.

// CreateUserParams groups parameters for UserRepository.Create.
type CreateUserParams struct {
	Request      *model.CreateUserRequest
	PasswordHash []byte
}

// UserRepository defines the interface for user data operations.
type UserRepository interface {
	Create(ctx context.Context, params CreateUserParams) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context, opts model.UsersListOptions) ([]*model.User, error)
	Update(ctx context.Context, id string, req model.UpdateUserRequest) (*model.User, error)
	Delete(ctx context.Context, id string) (bool, error)

	// GetPasswordHash returns the stored credential for the given email.
	GetPasswordHash(ctx context.Context, email string) (userID string, hash []byte, err error)
	// SetPasswordHash replaces the stored credential for the given user.
	SetPasswordHash(ctx context.Context, userID string, hash []byte) error
}

// SchoolRepository defines the interface for school data operations.
type SchoolRepository interface {
	Create(ctx context.Context, req *model.CreateSchoolRequest) (*model.School, error)
	GetByID(ctx context.Context, id string) (*model.School, error)
	List(ctx context.Context, opts model.SchoolsListOptions) ([]*model.School, error)
	Update(ctx context.Context, id string, req model.UpdateSchoolRequest) (*model.School, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// CreateReportParams groups parameters for ReportRepository.Create.
// Driver fields come from the authenticated session, not the request body.
type CreateReportParams struct {
	Request    *model.CreateReportRequest
	DriverID   string
	DriverName string
}

// AddCommentParams groups parameters for ReportRepository.AddComment.
type AddCommentParams struct {
	ReportID string
	Author   model.Comment // UserID, UserName, UserRole taken from the session
	Content  string
}

// ReportRepository defines the interface for misconduct report data operations.
type ReportRepository interface {
	Create(ctx context.Context, params CreateReportParams) (*model.Report, error)
	GetByID(ctx context.Context, id string) (*model.Report, error)
	GetWithComments(ctx context.Context, id string) (*model.ReportWithComments, error)
	List(ctx context.Context, opts model.ReportsListOptions) ([]*model.Report, error)
	UpdateStatus(ctx context.Context, id string, status model.ReportStatus) (*model.Report, error)
	AddComment(ctx context.Context, params AddCommentParams) (*model.Comment, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// AuditLogRepository defines the interface for append-only audit data.
type AuditLogRepository interface {
	Record(ctx context.Context, req *model.RecordAuditRequest) (*model.AuditLog, error)
	List(ctx context.Context, opts model.AuditListOptions) ([]*model.AuditLog, error)
}
