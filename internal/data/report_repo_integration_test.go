package data

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/buswatch/buswatch-api/internal/core"
	domainauth "github.com/buswatch/buswatch-api/internal/domain/auth"
	"github.com/buswatch/buswatch-api/internal/domain/model"
	"github.com/buswatch/buswatch-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportRepo_Create_Success(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		school := createTestSchool(t, db, "Lincoln Elementary")
		driver := createTestUser(t, db, "driver@example.com", domainauth.RoleDriver, &school.ID)

		repo := NewReportRepo(db)
		report, err := repo.Create(ctx, core.CreateReportParams{
			Request: &model.CreateReportRequest{
				StudentName:   "Alex Johnson",
				BusRoute:      "Route 12",
				SchoolID:      school.ID,
				IncidentDate:  time.Date(2024, 3, 15, 7, 45, 0, 0, time.UTC),
				Description:   "Standing in the aisle while the bus was moving.",
				AttachmentURL: testutil.StringPtr("https://files.example.com/incident.jpg"),
			},
			DriverID:   driver.ID,
			DriverName: driver.Name,
		})
		require.NoError(t, err)

		assert.NotEmpty(t, report.ID)
		assert.Equal(t, driver.ID, report.DriverID)
		assert.Equal(t, driver.Name, report.DriverName)
		assert.Equal(t, "Alex Johnson", report.StudentName)
		assert.Equal(t, model.ReportStatusPending, report.Status)
		// School name is denormalized onto the row at insert time
		assert.Equal(t, "Lincoln Elementary", report.SchoolName)
		require.NotNil(t, report.AttachmentURL)
		assert.Equal(t, "https://files.example.com/incident.jpg", *report.AttachmentURL)
	})
}

func TestReportRepo_Create_UsesClock(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		school := createTestSchool(t, db, "Lincoln Elementary")
		driver := createTestUser(t, db, "driver@example.com", domainauth.RoleDriver, &school.ID)

		pinned := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)
		repo := NewReportRepoWithClock(db, testutil.NewFixedClock(pinned))
		report, err := repo.Create(ctx, core.CreateReportParams{
			Request: &model.CreateReportRequest{
				StudentName:  "Alex Johnson",
				BusRoute:     "Route 12",
				SchoolID:     school.ID,
				IncidentDate: pinned.Add(-15 * time.Minute),
				Description:  "Standing in the aisle while the bus was moving.",
			},
			DriverID:   driver.ID,
			DriverName: driver.Name,
		})
		require.NoError(t, err)
		assert.True(t, report.CreatedAt.Equal(pinned), "created_at should come from the injected clock")
	})
}

func TestReportRepo_Create_UnknownSchool(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		school := createTestSchool(t, db, "Lincoln Elementary")
		driver := createTestUser(t, db, "driver@example.com", domainauth.RoleDriver, &school.ID)

		repo := NewReportRepo(db)
		_, err := repo.Create(ctx, core.CreateReportParams{
			Request: &model.CreateReportRequest{
				StudentName:  "Alex Johnson",
				BusRoute:     "Route 12",
				SchoolID:     "00000000-0000-0000-0000-000000000000",
				IncidentDate: time.Now().UTC(),
				Description:  "Incident description.",
			},
			DriverID:   driver.ID,
			DriverName: driver.Name,
		})
		require.ErrorIs(t, err, ErrSchoolNotFound)
	})
}

func TestReportRepo_GetByID_NotFound(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewReportRepo(db)
		_, err := repo.GetByID(context.Background(), "00000000-0000-0000-0000-000000000000")
		require.ErrorIs(t, err, ErrReportNotFound)
	})
}

func TestReportRepo_UpdateStatus(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		school := createTestSchool(t, db, "Lincoln Elementary")
		driver := createTestUser(t, db, "driver@example.com", domainauth.RoleDriver, &school.ID)
		report := createTestReport(t, db, driver, school)

		repo := NewReportRepo(db)
		updated, err := repo.UpdateStatus(ctx, report.ID, model.ReportStatusReviewed)
		require.NoError(t, err)
		assert.Equal(t, model.ReportStatusReviewed, updated.Status)
		assert.True(t, updated.UpdatedAt.After(report.UpdatedAt) || updated.UpdatedAt.Equal(report.UpdatedAt))

		_, err = repo.UpdateStatus(ctx, "00000000-0000-0000-0000-000000000000", model.ReportStatusResolved)
		require.ErrorIs(t, err, ErrReportNotFound)
	})
}

func TestReportRepo_AddComment_And_GetWithComments(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		school := createTestSchool(t, db, "Lincoln Elementary")
		driver := createTestUser(t, db, "driver@example.com", domainauth.RoleDriver, &school.ID)
		admin := createTestUser(t, db, "admin@example.com", domainauth.RoleSchoolAdmin, &school.ID)
		report := createTestReport(t, db, driver, school)

		repo := NewReportRepo(db)
		first, err := repo.AddComment(ctx, core.AddCommentParams{
			ReportID: report.ID,
			Author: model.Comment{
				UserID:   admin.ID,
				UserName: admin.Name,
				UserRole: admin.Role,
			},
			Content: "Spoke with the student this morning.",
		})
		require.NoError(t, err)
		assert.Equal(t, report.ID, first.ReportID)
		assert.Equal(t, admin.ID, first.UserID)

		_, err = repo.AddComment(ctx, core.AddCommentParams{
			ReportID: report.ID,
			Author: model.Comment{
				UserID:   admin.ID,
				UserName: admin.Name,
				UserRole: admin.Role,
			},
			Content: "Parent has been notified.",
		})
		require.NoError(t, err)

		got, err := repo.GetWithComments(ctx, report.ID)
		require.NoError(t, err)
		assert.Equal(t, report.ID, got.ID)
		require.Len(t, got.Comments, 2)
		// Oldest first
		assert.Equal(t, "Spoke with the student this morning.", got.Comments[0].Content)
		assert.Equal(t, "Parent has been notified.", got.Comments[1].Content)
	})
}

func TestReportRepo_List_Filters(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		school := createTestSchool(t, db, "Lincoln Elementary")
		otherSchool := createTestSchool(t, db, "Roosevelt Middle")
		driver := createTestUser(t, db, "driver@example.com", domainauth.RoleDriver, &school.ID)
		otherDriver := createTestUser(t, db, "driver2@example.com", domainauth.RoleDriver, &otherSchool.ID)

		repo := NewReportRepo(db)
		mine := createTestReport(t, db, driver, school)
		createTestReport(t, db, otherDriver, otherSchool)

		reviewed, err := repo.UpdateStatus(ctx, mine.ID, model.ReportStatusReviewed)
		require.NoError(t, err)

		// Driver scoping
		byDriver, err := repo.List(ctx, model.ReportsListOptions{DriverID: &driver.ID})
		require.NoError(t, err)
		require.Len(t, byDriver, 1)
		assert.Equal(t, mine.ID, byDriver[0].ID)

		// School scoping
		bySchool, err := repo.List(ctx, model.ReportsListOptions{SchoolID: &otherSchool.ID})
		require.NoError(t, err)
		require.Len(t, bySchool, 1)
		assert.Equal(t, otherSchool.ID, bySchool[0].SchoolID)

		// Status filter
		byStatus, err := repo.List(ctx, model.ReportsListOptions{Status: &reviewed.Status})
		require.NoError(t, err)
		require.Len(t, byStatus, 1)
		assert.Equal(t, mine.ID, byStatus[0].ID)

		// Substring search on student name
		q := "alex"
		byQuery, err := repo.List(ctx, model.ReportsListOptions{Q: &q})
		require.NoError(t, err)
		assert.Len(t, byQuery, 2)
	})
}

func TestReportRepo_Delete_CascadesComments(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		school := createTestSchool(t, db, "Lincoln Elementary")
		driver := createTestUser(t, db, "driver@example.com", domainauth.RoleDriver, &school.ID)
		report := createTestReport(t, db, driver, school)

		repo := NewReportRepo(db)
		_, err := repo.AddComment(ctx, core.AddCommentParams{
			ReportID: report.ID,
			Author: model.Comment{
				UserID:   driver.ID,
				UserName: driver.Name,
				UserRole: driver.Role,
			},
			Content: "Adding context to my own report.",
		})
		require.NoError(t, err)

		deleted, err := repo.Delete(ctx, report.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		var count int
		require.NoError(t, db.QueryRow(
			"SELECT COUNT(*) FROM report_comments WHERE report_id = $1", report.ID,
		).Scan(&count))
		assert.Zero(t, count)

		deleted, err = repo.Delete(ctx, report.ID)
		require.NoError(t, err)
		assert.False(t, deleted)
	})
}
