package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/buswatch/buswatch-api/internal/core"
	domainauth "github.com/buswatch/buswatch-api/internal/domain/auth"
	"github.com/buswatch/buswatch-api/internal/domain/model"
	apperrors "github.com/buswatch/buswatch-api/internal/errors"
)

// PasswordHasher derives a storable hash from a clear-text password.
type PasswordHasher func(password string) ([]byte, error)

// UserServiceOptions groups dependencies for UserService.
type UserServiceOptions struct {
	Users  core.UserRepository
	Hasher PasswordHasher
	Audit  *AuditService // optional; nil disables audit recording
	Logger *slog.Logger
}

// UserService handles account administration. Route guards restrict these
// operations to super admins; the service re-checks the session anyway so a
// wiring mistake cannot silently open them up.
type UserService struct {
	users  core.UserRepository
	hasher PasswordHasher
	audit  *AuditService
	logger *slog.Logger
}

// NewUserService constructs a new UserService.
func NewUserService(opts UserServiceOptions) *UserService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{
		users:  opts.Users,
		hasher: opts.Hasher,
		audit:  opts.Audit,
		logger: logger.With("component", "users"),
	}
}

// Create provisions a new account with a hashed credential.
func (s *UserService) Create(
	ctx context.Context,
	sess domainauth.Session,
	req *model.CreateUserRequest,
) (*model.User, error) {
	if !sess.IsSuperAdmin() {
		return nil, apperrors.Forbidden("only super admins can manage users")
	}
	if req == nil {
		return nil, apperrors.Validation("create user request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	var hash []byte
	if s.hasher != nil {
		var err error
		hash, err = s.hasher(req.Password)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "hash password")
		}
	}

	user, err := s.users.Create(ctx, core.CreateUserParams{Request: req, PasswordHash: hash})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, sess, "user.create", user.ID, map[string]any{
		"email": user.Email,
		"role":  user.Role,
	})
	return user, nil
}

// Get retrieves an account by ID.
func (s *UserService) Get(
	ctx context.Context,
	sess domainauth.Session,
	id string,
) (*model.User, error) {
	if !sess.IsSuperAdmin() {
		return nil, apperrors.Forbidden("only super admins can manage users")
	}
	return s.users.GetByID(ctx, id)
}

// List returns a page of accounts.
func (s *UserService) List(
	ctx context.Context,
	sess domainauth.Session,
	opts model.UsersListOptions,
) ([]*model.User, error) {
	if !sess.IsSuperAdmin() {
		return nil, apperrors.Forbidden("only super admins can manage users")
	}
	return s.users.List(ctx, opts)
}

// Update modifies an account. Role and school changes are validated against
// the merged row so a partial update cannot break the school-scope rule.
func (s *UserService) Update(
	ctx context.Context,
	sess domainauth.Session,
	id string,
	req model.UpdateUserRequest,
) (*model.User, error) {
	if !sess.IsSuperAdmin() {
		return nil, apperrors.Forbidden("only super admins can manage users")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	current, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	mergedRole := current.Role
	if req.Role != nil {
		mergedRole = *req.Role
	}
	mergedSchool := current.SchoolID
	if req.SchoolID != nil {
		if *req.SchoolID == "" {
			mergedSchool = nil
		} else {
			mergedSchool = req.SchoolID
		}
	}
	if err := model.ValidateRoleScope(mergedRole, mergedSchool); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	updated, err := s.users.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, sess, "user.update", id, map[string]any{
		"role": updated.Role,
	})
	return updated, nil
}

// Delete removes an account. Deleting your own account is rejected so a
// deployment always keeps at least the acting super admin.
func (s *UserService) Delete(
	ctx context.Context,
	sess domainauth.Session,
	id string,
) (bool, error) {
	if !sess.IsSuperAdmin() {
		return false, apperrors.Forbidden("only super admins can manage users")
	}
	if id == sess.UserID {
		return false, apperrors.Validation("cannot delete your own account")
	}

	ok, err := s.users.Delete(ctx, id)
	if err != nil || !ok {
		return ok, err
	}
	s.recordAudit(ctx, sess, "user.delete", id, nil)
	return true, nil
}

// ResetPassword replaces an account's credential.
func (s *UserService) ResetPassword(
	ctx context.Context,
	sess domainauth.Session,
	id string,
	password string,
) error {
	if !sess.IsSuperAdmin() {
		return apperrors.Forbidden("only super admins can manage users")
	}
	if s.hasher == nil {
		return errors.New("password hasher not configured")
	}
	if len(password) < 8 {
		return apperrors.Validation("password must be at least 8 characters")
	}
	if len(password) > 72 {
		return apperrors.Validation("password cannot exceed 72 characters")
	}

	// Confirm the account exists before touching credentials.
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}

	hash, err := s.hasher(password)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "hash password")
	}
	if err := s.users.SetPasswordHash(ctx, user.ID, hash); err != nil {
		return err
	}

	s.recordAudit(ctx, sess, "user.reset_password", id, nil)
	return nil
}

func (s *UserService) recordAudit(
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
		EntityType: model.AuditEntityUser,
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
