package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"

	domainauth "github.com/buswatch/buswatch-api/internal/domain/auth"
	"github.com/buswatch/buswatch-api/internal/domain/model"
	apperrors "github.com/buswatch/buswatch-api/internal/errors"
	"github.com/buswatch/buswatch-api/internal/mocks"
)

func newSchoolService(t *testing.T) (*SchoolService, *mocks.MockSchoolRepository) {
	t.Helper()
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockSchoolRepository(ctrl)
	svc := NewSchoolService(SchoolServiceOptions{Schools: repo})
	return svc, repo
}

func TestSchoolService_Create(t *testing.T) {
	svc, repo := newSchoolService(t)

	city := "Springfield"
	req := &model.CreateSchoolRequest{Name: "Lincoln Elementary", City: &city}
	repo.EXPECT().
		Create(gomock.Any(), req).
		Return(&model.School{ID: "school-9", Name: "Lincoln Elementary"}, nil)

	school, err := svc.Create(context.Background(), superAdminSession(), req)
	require.NoError(t, err)
	assert.Equal(t, "school-9", school.ID)
}

func TestSchoolService_MutationsRequireSuperAdmin(t *testing.T) {
	svc, _ := newSchoolService(t)
	ctx := context.Background()

	for _, sess := range []domainauth.Session{driverSession(), schoolAdminSession()} {
		_, err := svc.Create(ctx, sess, &model.CreateSchoolRequest{})
		assert.True(t, apperrors.IsForbidden(err))

		_, err = svc.Update(ctx, sess, "school-1", model.UpdateSchoolRequest{})
		assert.True(t, apperrors.IsForbidden(err))

		_, err = svc.Delete(ctx, sess, "school-1")
		assert.True(t, apperrors.IsForbidden(err))
	}
}

func TestSchoolService_ReadsAreOpen(t *testing.T) {
	svc, repo := newSchoolService(t)

	repo.EXPECT().GetByID(gomock.Any(), "school-1").Return(&model.School{ID: "school-1"}, nil)
	repo.EXPECT().List(gomock.Any(), gomock.Any()).Return([]*model.School{}, nil)

	_, err := svc.Get(context.Background(), "school-1")
	require.NoError(t, err)

	_, err = svc.List(context.Background(), model.SchoolsListOptions{})
	require.NoError(t, err)
}

func TestSchoolService_Delete(t *testing.T) {
	svc, repo := newSchoolService(t)
	repo.EXPECT().Delete(gomock.Any(), "school-1").Return(true, nil)

	ok, err := svc.Delete(context.Background(), superAdminSession(), "school-1")
	require.NoError(t, err)
	assert.True(t, ok)
}
