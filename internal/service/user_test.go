package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"

	"github.com/buswatch/buswatch-api/internal/core"
	domainauth "github.com/buswatch/buswatch-api/internal/domain/auth"
	"github.com/buswatch/buswatch-api/internal/domain/model"
	apperrors "github.com/buswatch/buswatch-api/internal/errors"
	"github.com/buswatch/buswatch-api/internal/mocks"
)

func fakeHasher(password string) ([]byte, error) {
	return []byte("hashed:" + password), nil
}

func newUserService(t *testing.T) (*UserService, *mocks.MockUserRepository) {
	t.Helper()
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockUserRepository(ctrl)
	svc := NewUserService(UserServiceOptions{Users: repo, Hasher: fakeHasher})
	return svc, repo
}

func TestUserService_Create(t *testing.T) {
	svc, repo := newUserService(t)
	schoolID := testSchoolID

	req := &model.CreateUserRequest{
		Name:     "New Driver",
		Email:    "new.driver@example.com",
		Role:     domainauth.RoleDriver,
		SchoolID: &schoolID,
		Password: "correct horse battery",
	}

	repo.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, params core.CreateUserParams) (*model.User, error) {
			assert.Equal(t, []byte("hashed:correct horse battery"), params.PasswordHash)
			return &model.User{
				ID:       "user-9",
				Name:     params.Request.Name,
				Email:    params.Request.Email,
				Role:     params.Request.Role,
				SchoolID: params.Request.SchoolID,
			}, nil
		})

	user, err := svc.Create(context.Background(), superAdminSession(), req)
	require.NoError(t, err)
	assert.Equal(t, "user-9", user.ID)
}

func TestUserService_Create_Validation(t *testing.T) {
	svc, _ := newUserService(t)
	sess := superAdminSession()

	// Missing school scope for a school-scoped role.
	_, err := svc.Create(context.Background(), sess, &model.CreateUserRequest{
		Name:     "New Driver",
		Email:    "new.driver@example.com",
		Role:     domainauth.RoleDriver,
		Password: "correct horse battery",
	})
	assert.Equal(t, apperrors.ErrCodeValidation, apperrors.GetCode(err))

	_, err = svc.Create(context.Background(), sess, nil)
	assert.Equal(t, apperrors.ErrCodeValidation, apperrors.GetCode(err))
}

func TestUserService_NonSuperAdminForbidden(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	for _, sess := range []domainauth.Session{driverSession(), schoolAdminSession()} {
		_, err := svc.Create(ctx, sess, &model.CreateUserRequest{})
		assert.True(t, apperrors.IsForbidden(err))

		_, err = svc.Get(ctx, sess, "user-1")
		assert.True(t, apperrors.IsForbidden(err))

		_, err = svc.List(ctx, sess, model.UsersListOptions{})
		assert.True(t, apperrors.IsForbidden(err))

		_, err = svc.Update(ctx, sess, "user-1", model.UpdateUserRequest{})
		assert.True(t, apperrors.IsForbidden(err))

		_, err = svc.Delete(ctx, sess, "user-1")
		assert.True(t, apperrors.IsForbidden(err))

		err = svc.ResetPassword(ctx, sess, "user-1", "new password 123")
		assert.True(t, apperrors.IsForbidden(err))
	}
}

func TestUserService_Update_MergedScopeValidation(t *testing.T) {
	schoolID := testSchoolID

	t.Run("role change to super-admin keeps school", func(t *testing.T) {
		svc, repo := newUserService(t)
		current := &model.User{ID: "user-1", Role: domainauth.RoleDriver, SchoolID: &schoolID}
		repo.EXPECT().GetByID(gomock.Any(), "user-1").Return(current, nil)

		role := domainauth.RoleSuperAdmin
		// Promoting without clearing the school scope violates the rule.
		_, err := svc.Update(context.Background(), superAdminSession(), "user-1", model.UpdateUserRequest{
			Role: &role,
		})
		assert.Equal(t, apperrors.ErrCodeValidation, apperrors.GetCode(err))
	})

	t.Run("role change with cleared school succeeds", func(t *testing.T) {
		svc, repo := newUserService(t)
		current := &model.User{ID: "user-1", Role: domainauth.RoleDriver, SchoolID: &schoolID}
		repo.EXPECT().GetByID(gomock.Any(), "user-1").Return(current, nil)

		role := domainauth.RoleSuperAdmin
		cleared := ""
		req := model.UpdateUserRequest{Role: &role, SchoolID: &cleared}
		repo.EXPECT().
			Update(gomock.Any(), "user-1", req).
			Return(&model.User{ID: "user-1", Role: role}, nil)

		updated, err := svc.Update(context.Background(), superAdminSession(), "user-1", req)
		require.NoError(t, err)
		assert.Equal(t, domainauth.RoleSuperAdmin, updated.Role)
	})

	t.Run("school change alone keeps scoped role valid", func(t *testing.T) {
		svc, repo := newUserService(t)
		current := &model.User{ID: "user-1", Role: domainauth.RoleSchoolAdmin, SchoolID: &schoolID}
		repo.EXPECT().GetByID(gomock.Any(), "user-1").Return(current, nil)

		other := "school-2"
		req := model.UpdateUserRequest{SchoolID: &other}
		repo.EXPECT().
			Update(gomock.Any(), "user-1", req).
			Return(&model.User{ID: "user-1", Role: domainauth.RoleSchoolAdmin, SchoolID: &other}, nil)

		_, err := svc.Update(context.Background(), superAdminSession(), "user-1", req)
		require.NoError(t, err)
	})
}

func TestUserService_Delete_SelfDeleteRejected(t *testing.T) {
	svc, _ := newUserService(t)
	sess := superAdminSession()

	_, err := svc.Delete(context.Background(), sess, sess.UserID)
	assert.Equal(t, apperrors.ErrCodeValidation, apperrors.GetCode(err))
}

func TestUserService_Delete(t *testing.T) {
	svc, repo := newUserService(t)
	repo.EXPECT().Delete(gomock.Any(), "user-2").Return(true, nil)

	ok, err := svc.Delete(context.Background(), superAdminSession(), "user-2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUserService_ResetPassword(t *testing.T) {
	svc, repo := newUserService(t)

	repo.EXPECT().GetByID(gomock.Any(), "user-2").Return(&model.User{ID: "user-2"}, nil)
	repo.EXPECT().
		SetPasswordHash(gomock.Any(), "user-2", []byte("hashed:fresh password 1")).
		Return(nil)

	err := svc.ResetPassword(context.Background(), superAdminSession(), "user-2", "fresh password 1")
	require.NoError(t, err)
}

func TestUserService_ResetPassword_Validation(t *testing.T) {
	svc, _ := newUserService(t)
	sess := superAdminSession()

	err := svc.ResetPassword(context.Background(), sess, "user-2", "short")
	assert.Equal(t, apperrors.ErrCodeValidation, apperrors.GetCode(err))

	long := make([]byte, 80)
	for i := range long {
		long[i] = 'a'
	}
	err = svc.ResetPassword(context.Background(), sess, "user-2", string(long))
	assert.Equal(t, apperrors.ErrCodeValidation, apperrors.GetCode(err))
}
