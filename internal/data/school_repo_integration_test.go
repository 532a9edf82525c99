package data

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	domainauth "github.com/buswatch/buswatch-api/internal/domain/auth"
	"github.com/buswatch/buswatch-api/internal/domain/model"
	apperrors "github.com/buswatch/buswatch-api/internal/errors"
	"github.com/buswatch/buswatch-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchoolRepo_Create_Success(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewSchoolRepo(db)
		school, err := repo.Create(context.Background(), &model.CreateSchoolRequest{
			Name:    "Lincoln Elementary",
			Address: testutil.StringPtr("100 Main St"),
			City:    testutil.StringPtr("Springfield"),
			State:   testutil.StringPtr("IL"),
			Zip:     testutil.StringPtr("62701"),
			Phone:   testutil.StringPtr("555-0100"),
		})
		require.NoError(t, err)

		assert.NotEmpty(t, school.ID)
		assert.Equal(t, "Lincoln Elementary", school.Name)
		require.NotNil(t, school.City)
		assert.Equal(t, "Springfield", *school.City)
		assert.False(t, school.CreatedAt.IsZero())
	})
}

func TestSchoolRepo_Create_DuplicateName(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewSchoolRepo(db)
		_, err := repo.Create(ctx, &model.CreateSchoolRequest{Name: "Lincoln Elementary"})
		require.NoError(t, err)

		_, err = repo.Create(ctx, &model.CreateSchoolRequest{Name: "Lincoln Elementary"})
		require.ErrorIs(t, err, ErrSchoolNameExists)
	})
}

func TestSchoolRepo_Update(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewSchoolRepo(db)
		school := createTestSchool(t, db, "Lincoln Elementary")

		updated, err := repo.Update(ctx, school.ID, model.UpdateSchoolRequest{
			Name:  testutil.StringPtr("Lincoln K-8"),
			Phone: testutil.StringPtr("555-0199"),
		})
		require.NoError(t, err)
		assert.Equal(t, "Lincoln K-8", updated.Name)
		require.NotNil(t, updated.Phone)
		assert.Equal(t, "555-0199", *updated.Phone)
		// City from the fixture is untouched
		require.NotNil(t, updated.City)
		assert.Equal(t, "Springfield", *updated.City)

		_, err = repo.Update(ctx, "00000000-0000-0000-0000-000000000000", model.UpdateSchoolRequest{
			Name: testutil.StringPtr("Ghost School"),
		})
		require.ErrorIs(t, err, ErrSchoolNotFound)
	})
}

func TestSchoolRepo_List_SearchAndSort(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewSchoolRepo(db)
		createTestSchool(t, db, "Lincoln Elementary")
		createTestSchool(t, db, "Roosevelt Middle")
		createTestSchool(t, db, "Lincoln High")

		q := "lincoln"
		got, err := repo.List(ctx, model.SchoolsListOptions{Q: &q, Sort: "name", Dir: "asc"})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "Lincoln Elementary", got[0].Name)
		assert.Equal(t, "Lincoln High", got[1].Name)
	})
}

func TestSchoolRepo_Delete(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewSchoolRepo(db)
		school := createTestSchool(t, db, "Lincoln Elementary")

		deleted, err := repo.Delete(ctx, school.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = repo.Delete(ctx, school.ID)
		require.NoError(t, err)
		assert.False(t, deleted)
	})
}

func TestSchoolRepo_Delete_StillReferenced(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewSchoolRepo(db)
		school := createTestSchool(t, db, "Lincoln Elementary")
		createTestUser(t, db, "driver@example.com", domainauth.RoleDriver, &school.ID)

		_, err := repo.Delete(ctx, school.ID)
		require.Error(t, err)

		var appErr *apperrors.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, apperrors.ErrCodeForeignKey, appErr.Code)
	})
}
