package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/buswatch/buswatch-api/internal/core"
	domainauth "github.com/buswatch/buswatch-api/internal/domain/auth"
	"github.com/buswatch/buswatch-api/internal/domain/model"
	apperrors "github.com/buswatch/buswatch-api/internal/errors"
)

// ReportServiceOptions groups dependencies for ReportService.
type ReportServiceOptions struct {
	Reports core.ReportRepository
	Audit   *AuditService // optional; nil disables audit recording
	Logger  *slog.Logger
}

// ReportService orchestrates report CRUD with role-based visibility scoping.
//
// Visibility rules: drivers see only their own reports, school admins see
// their school's reports, super admins see everything.
type ReportService struct {
	reports core.ReportRepository
	audit   *AuditService
	logger  *slog.Logger
}

// NewReportService constructs a new ReportService.
func NewReportService(opts ReportServiceOptions) *ReportService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportService{
		reports: opts.Reports,
		audit:   opts.Audit,
		logger:  logger.With("component", "reports"),
	}
}

// Create files a new report. Only drivers submit reports, and the reporting
// driver always comes from the session.
func (s *ReportService) Create(
	ctx context.Context,
	sess domainauth.Session,
	req *model.CreateReportRequest,
) (*model.Report, error) {
	if sess.Role != domainauth.RoleDriver {
		return nil, apperrors.Forbidden("only drivers can submit reports")
	}
	if req == nil {
		return nil, apperrors.Validation("create report request is required")
	}
	// A driver reports within their own school; an omitted school defaults
	// to the driver's, a mismatched one is rejected.
	if sess.SchoolID != nil {
		if req.SchoolID == "" {
			req.SchoolID = *sess.SchoolID
		} else if req.SchoolID != *sess.SchoolID {
			return nil, apperrors.Forbidden("reports can only be filed for your own school")
		}
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	report, err := s.reports.Create(ctx, core.CreateReportParams{
		Request:    req,
		DriverID:   sess.UserID,
		DriverName: sess.Name,
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, sess, "report.create", model.AuditEntityReport, report.ID, map[string]any{
		"student_name": report.StudentName,
		"bus_route":    report.BusRoute,
		"school_id":    report.SchoolID,
	})
	return report, nil
}

// Get retrieves a report with its comment thread, enforcing visibility.
func (s *ReportService) Get(
	ctx context.Context,
	sess domainauth.Session,
	id string,
) (*model.ReportWithComments, error) {
	report, err := s.reports.GetWithComments(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.canView(sess, &report.Report); err != nil {
		return nil, err
	}
	return report, nil
}

// List returns reports visible to the session, with the caller's filters
// applied on top of the role scope.
func (s *ReportService) List(
	ctx context.Context,
	sess domainauth.Session,
	opts model.ReportsListOptions,
) ([]*model.Report, error) {
	scoped, err := scopeListOptions(sess, opts)
	if err != nil {
		return nil, err
	}
	return s.reports.List(ctx, scoped)
}

// UpdateStatus moves a report through triage. School admins act on their own
// school's reports; super admins on any.
func (s *ReportService) UpdateStatus(
	ctx context.Context,
	sess domainauth.Session,
	id string,
	status model.ReportStatus,
) (*model.Report, error) {
	if !status.Valid() {
		return nil, apperrors.Validation("status must be one of: pending, reviewed, resolved")
	}

	current, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.canTriage(sess, current); err != nil {
		return nil, err
	}
	if !current.Status.CanTransitionTo(status) {
		return nil, apperrors.Validationf(
			"cannot change status from %s to %s", current.Status, status,
		)
	}

	updated, err := s.reports.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, sess, "report.status", model.AuditEntityReport, id, map[string]any{
		"from": current.Status,
		"to":   status,
	})
	return updated, nil
}

// AddComment attaches a triage note. Same access rules as status changes.
func (s *ReportService) AddComment(
	ctx context.Context,
	sess domainauth.Session,
	id string,
	req *model.AddCommentRequest,
) (*model.Comment, error) {
	if req == nil {
		return nil, apperrors.Validation("add comment request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.canTriage(sess, report); err != nil {
		return nil, err
	}

	comment, err := s.reports.AddComment(ctx, core.AddCommentParams{
		ReportID: id,
		Author: model.Comment{
			UserID:   sess.UserID,
			UserName: sess.Name,
			UserRole: sess.Role,
		},
		Content: req.Content,
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, sess, "report.comment", model.AuditEntityComment, comment.ID, map[string]any{
		"report_id": id,
	})
	return comment, nil
}

// Delete removes a report. Super admins only.
func (s *ReportService) Delete(
	ctx context.Context,
	sess domainauth.Session,
	id string,
) (bool, error) {
	if !sess.IsSuperAdmin() {
		return false, apperrors.Forbidden("only super admins can delete reports")
	}
	ok, err := s.reports.Delete(ctx, id)
	if err != nil || !ok {
		return ok, err
	}
	s.recordAudit(ctx, sess, "report.delete", model.AuditEntityReport, id, nil)
	return true, nil
}

// canView enforces read visibility for a single report.
func (s *ReportService) canView(sess domainauth.Session, report *model.Report) error {
	switch sess.Role {
	case domainauth.RoleDriver:
		if report.DriverID != sess.UserID {
			return apperrors.Forbidden("drivers can only view their own reports")
		}
	case domainauth.RoleSchoolAdmin:
		if !sess.SameSchool(report.SchoolID) {
			return apperrors.Forbidden("school admins can only view their school's reports")
		}
	case domainauth.RoleSuperAdmin:
		// unrestricted
	default:
		return apperrors.Forbidden("unknown role")
	}
	return nil
}

// canTriage enforces write access for status changes and comments.
func (s *ReportService) canTriage(sess domainauth.Session, report *model.Report) error {
	switch sess.Role {
	case domainauth.RoleSchoolAdmin:
		if !sess.SameSchool(report.SchoolID) {
			return apperrors.Forbidden("school admins can only triage their school's reports")
		}
	case domainauth.RoleSuperAdmin:
		// unrestricted
	case domainauth.RoleDriver:
		return apperrors.Forbidden("drivers cannot triage reports")
	default:
		return apperrors.Forbidden("unknown role")
	}
	return nil
}

// scopeListOptions injects the session's visibility scope into list options.
func scopeListOptions(
	sess domainauth.Session,
	opts model.ReportsListOptions,
) (model.ReportsListOptions, error) {
	switch sess.Role {
	case domainauth.RoleDriver:
		driverID := sess.UserID
		opts.DriverID = &driverID
	case domainauth.RoleSchoolAdmin:
		if sess.SchoolID == nil {
			return opts, apperrors.Forbidden("school admin session has no school scope")
		}
		opts.SchoolID = sess.SchoolID
	case domainauth.RoleSuperAdmin:
		// unrestricted; caller-provided filters stand as-is
	default:
		return opts, apperrors.Forbidden("unknown role")
	}
	return opts, nil
}

// recordAudit appends an audit entry; failures are logged, never surfaced.
func (s *ReportService) recordAudit(
	ctx context.Context,
	sess domainauth.Session,
	action string,
	entityType model.AuditEntityType,
	entityID string,
	details map[string]any,
) {
	if s.audit == nil {
		return
	}
	var payload json.RawMessage
	if details != nil {
		if b, err := json.Marshal(details); err == nil {
			payload = b
		}
	}
	if err := s.audit.Record(ctx, &model.RecordAuditRequest{
		UserID:     sess.UserID,
		UserName:   sess.Name,
		UserRole:   sess.Role,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    payload,
	}); err != nil {
		s.logger.WarnContext(ctx, "audit record failed", "action", action, "error", err)
	}
}
