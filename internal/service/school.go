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

// SchoolServiceOptions groups dependencies for SchoolService.
type SchoolServiceOptions struct {
	Schools core.SchoolRepository
	Audit   *AuditService // optional; nil disables audit recording
	Logger  *slog.Logger
}

// SchoolService handles school administration. Mutations are super-admin
// only; reads are open to any authenticated session since reports and user
// forms reference school names.
type SchoolService struct {
	schools core.SchoolRepository
	audit   *AuditService
	logger  *slog.Logger
}

// NewSchoolService constructs a new SchoolService.
func NewSchoolService(opts SchoolServiceOptions) *SchoolService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SchoolService{
		schools: opts.Schools,
		audit:   opts.Audit,
		logger:  logger.With("component", "schools"),
	}
}

// Create registers a new school.
func (s *SchoolService) Create(
	ctx context.Context,
	sess domainauth.Session,
	req *model.CreateSchoolRequest,
) (*model.School, error) {
	if !sess.IsSuperAdmin() {
		return nil, apperrors.Forbidden("only super admins can manage schools")
	}
	school, err := s.schools.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, sess, "school.create", school.ID, map[string]any{"name": school.Name})
	return school, nil
}

// Get retrieves a school by ID.
func (s *SchoolService) Get(ctx context.Context, id string) (*model.School, error) {
	return s.schools.GetByID(ctx, id)
}

// List returns a page of schools.
func (s *SchoolService) List(
	ctx context.Context,
	opts model.SchoolsListOptions,
) ([]*model.School, error) {
	return s.schools.List(ctx, opts)
}

// Update modifies a school.
func (s *SchoolService) Update(
	ctx context.Context,
	sess domainauth.Session,
	id string,
	req model.UpdateSchoolRequest,
) (*model.School, error) {
	if !sess.IsSuperAdmin() {
		return nil, apperrors.Forbidden("only super admins can manage schools")
	}
	school, err := s.schools.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, sess, "school.update", id, nil)
	return school, nil
}

// Delete removes a school. The database rejects deletion while users or
// reports still reference it.
func (s *SchoolService) Delete(
	ctx context.Context,
	sess domainauth.Session,
	id string,
) (bool, error) {
	if !sess.IsSuperAdmin() {
		return false, apperrors.Forbidden("only super admins can manage schools")
	}
	ok, err := s.schools.Delete(ctx, id)
	if err != nil || !ok {
		return ok, err
	}
	s.recordAudit(ctx, sess, "school.delete", id, nil)
	return true, nil
}

func (s *SchoolService) recordAudit(
	ctx context.Context,
	sess domainauth.Session,
	action string,
	entityID string,
	details map[string]any,
) {
	if s.audit == nil {
		return
	}
	req := &model.RecordAuditRequest{
		UserID:     sess.UserID,
		UserName:   sess.Name,
		UserRole:   sess.Role,
		Action:     action,
		EntityType: model.AuditEntitySchool,
		EntityID:   entityID,
	}
	if details != nil {
		if b, err := json.Marshal(details); err == nil {
			req.Details = b
		}
	}
	if err := s.audit.Record(ctx, req); err != nil {
		s.logger.WarnContext(ctx, "audit record failed", "action", action, "error", err)
	}
}
