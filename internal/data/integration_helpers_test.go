package data

import (
	"context"
	"database/sql"
	"testing"
	"time"

	domainauth "github.com/buswatch/buswatch-api/internal/domain/auth"
	"github.com/buswatch/buswatch-api/internal/domain/model"
	"github.com/buswatch/buswatch-api/internal/core"
	"github.com/buswatch/buswatch-api/internal/testutil"
	"github.com/stretchr/testify/require"
)

// Shared fixtures for repository integration tests. Schools and users are
// created through the repos themselves so DB defaults (UUIDs, timestamps)
// apply the same way they do in production.

func createTestSchool(t *testing.T, db *sql.DB, name string) *model.School {
	t.Helper()
	repo := NewSchoolRepo(db)
	school, err := repo.Create(context.Background(), &model.CreateSchoolRequest{
		Name: name,
		City: testutil.StringPtr("Springfield"),
	})
	require.NoError(t, err)
	return school
}

func createTestUser(
	t *testing.T,
	db *sql.DB,
	email string,
	role domainauth.Role,
	schoolID *string,
) *model.User {
	t.Helper()
	repo := NewUserRepo(db)
	user, err := repo.Create(context.Background(), core.CreateUserParams{
		Request: &model.CreateUserRequest{
			Name:     "Test " + string(role),
			Email:    email,
			Role:     role,
			SchoolID: schoolID,
			Password: "correct-horse-battery",
		},
		PasswordHash: []byte("$2a$10$test-hash"),
	})
	require.NoError(t, err)
	return user
}

func createTestReport(
	t *testing.T,
	db *sql.DB,
	driver *model.User,
	school *model.School,
) *model.Report {
	t.Helper()
	repo := NewReportRepo(db)
	report, err := repo.Create(context.Background(), core.CreateReportParams{
		Request: &model.CreateReportRequest{
			StudentName:  "Alex Johnson",
			BusRoute:     "Route 12",
			SchoolID:     school.ID,
			IncidentDate: time.Date(2024, 3, 15, 7, 45, 0, 0, time.UTC),
			Description:  "Student was standing in the aisle while the bus was moving.",
		},
		DriverID:   driver.ID,
		DriverName: driver.Name,
	})
	require.NoError(t, err)
	return report
}
