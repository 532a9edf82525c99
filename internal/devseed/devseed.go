// Package devseed provisions demo data for local development: a pair of
// schools, one account per role, and a few reports in different triage
// states. Seeding is idempotent; existing rows are left alone.
package devseed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/buswatch/buswatch-api/internal/adapters/pgcreds"
	"github.com/buswatch/buswatch-api/internal/core"
	"github.com/buswatch/buswatch-api/internal/data"
	domainauth "github.com/buswatch/buswatch-api/internal/domain/auth"
	"github.com/buswatch/buswatch-api/internal/domain/model"
)

// DemoPassword is the clear-text password provisioned for every demo account.
const DemoPassword = "buswatch-demo"

// DemoSchoolName is the school the demo driver and school admin belong to.
const DemoSchoolName = "Lincoln Elementary"

// Services bundles the dependencies needed for development seeding.
type Services struct {
	DB      *sql.DB
	schools *data.SchoolRepo
	users   *data.UserRepo
	reports *data.ReportRepo
}

// NewServices constructs the repositories used for seeding from the provided DB.
func NewServices(db *sql.DB) Services {
	return Services{
		DB:      db,
		schools: data.NewSchoolRepo(db),
		users:   data.NewUserRepo(db),
		reports: data.NewReportRepo(db),
	}
}

// Run executes the full development seeding workflow against the provided DB.
// It returns the ID of the demo school so callers can scope the fixture
// fallback directory to it.
func Run(ctx context.Context, svcs Services, logger *slog.Logger) (string, error) {
	schoolIDs, err := seedSchools(ctx, svcs.schools, logger)
	if err != nil {
		return "", err
	}
	demoSchoolID := schoolIDs[DemoSchoolName]

	users, failures := seedUsers(ctx, svcs.users, demoSchoolID, logger)
	if reportErr := seedReports(ctx, svcs.reports, users, schoolIDs, logger); reportErr != nil {
		if logger != nil {
			logger.WarnContext(ctx, "failed to seed reports", "error", reportErr)
		}
		failures++
	}

	if failures > 0 {
		return demoSchoolID, fmt.Errorf("%d seed errors; check logs", failures)
	}
	return demoSchoolID, nil
}

func defaultSchools() []*model.CreateSchoolRequest {
	return []*model.CreateSchoolRequest{
		{
			Name:    DemoSchoolName,
			Address: stringPtr("100 Main St"),
			City:    stringPtr("Springfield"),
			State:   stringPtr("IL"),
			Zip:     stringPtr("62701"),
			Phone:   stringPtr("555-0100"),
		},
		{
			Name:  "Roosevelt Middle",
			City:  stringPtr("Springfield"),
			State: stringPtr("IL"),
			Phone: stringPtr("555-0150"),
		},
	}
}

func seedSchools(
	ctx context.Context,
	repo *data.SchoolRepo,
	logger *slog.Logger,
) (map[string]string, error) {
	ids := make(map[string]string)
	for _, req := range defaultSchools() {
		school, created, err := createSchool(ctx, repo, req)
		if err != nil {
			return nil, fmt.Errorf("seed school %q: %w", req.Name, err)
		}
		ids[school.Name] = school.ID
		if logger != nil {
			msg := "school already exists"
			if created {
				msg = "created school"
			}
			logger.InfoContext(ctx, msg, "name", school.Name)
		}
	}
	return ids, nil
}

func createSchool(
	ctx context.Context,
	repo *data.SchoolRepo,
	req *model.CreateSchoolRequest,
) (*model.School, bool, error) {
	school, err := repo.Create(ctx, req)
	if err == nil {
		return school, true, nil
	}
	if !errors.Is(err, data.ErrSchoolNameExists) {
		return nil, false, err
	}

	existing, err := findSchoolByName(ctx, repo, req.Name)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func findSchoolByName(ctx context.Context, repo *data.SchoolRepo, name string) (*model.School, error) {
	list, err := repo.List(ctx, model.SchoolsListOptions{Q: &name})
	if err != nil {
		return nil, err
	}
	for _, s := range list {
		if s.Name == name {
			return s, nil
		}
	}
	return nil, data.ErrSchoolNotFound
}

type userSeedSpec struct {
	name     string
	email    string
	role     domainauth.Role
	schooled bool
}

func defaultUserSeedSpecs() []userSeedSpec {
	// Emails match the fixture fallback directory so the demo accounts work
	// through both sign-in paths.
	return []userSeedSpec{
		{name: "John Driver", email: "driver@buswatch.com", role: domainauth.RoleDriver, schooled: true},
		{name: "Sarah Admin", email: "schooladmin@buswatch.com", role: domainauth.RoleSchoolAdmin, schooled: true},
		{name: "Mike Super", email: "superadmin@buswatch.com", role: domainauth.RoleSuperAdmin},
	}
}

func seedUsers(
	ctx context.Context,
	repo *data.UserRepo,
	demoSchoolID string,
	logger *slog.Logger,
) (map[string]*model.User, int) {
	users := make(map[string]*model.User)
	failures := 0
	for _, spec := range defaultUserSeedSpecs() {
		user, created, err := createUser(ctx, repo, spec, demoSchoolID)
		if err != nil {
			if logger != nil {
				logger.ErrorContext(ctx, "failed to create user", "email", spec.email, "error", err)
			}
			failures++
			continue
		}
		users[spec.email] = user
		if logger != nil {
			msg := "user already exists"
			if created {
				msg = "created user"
			}
			logger.InfoContext(ctx, msg, "email", spec.email, "role", spec.role)
		}
	}
	return users, failures
}

func createUser(
	ctx context.Context,
	repo *data.UserRepo,
	spec userSeedSpec,
	demoSchoolID string,
) (*model.User, bool, error) {
	existing, err := repo.GetByEmail(ctx, spec.email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, data.ErrUserNotFound) {
		return nil, false, err
	}

	hash, err := pgcreds.HashPassword(DemoPassword)
	if err != nil {
		return nil, false, fmt.Errorf("hash demo password: %w", err)
	}

	var schoolID *string
	if spec.schooled {
		schoolID = &demoSchoolID
	}
	user, err := repo.Create(ctx, core.CreateUserParams{
		Request: &model.CreateUserRequest{
			Name:     spec.name,
			Email:    spec.email,
			Role:     spec.role,
			SchoolID: schoolID,
			Password: DemoPassword,
		},
		PasswordHash: hash,
	})
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

type reportSeedSpec struct {
	studentName string
	busRoute    string
	description string
	daysAgo     int
	status      model.ReportStatus
	comment     string
}

func defaultReportSeedSpecs() []reportSeedSpec {
	return []reportSeedSpec{
		{
			studentName: "Alex Johnson",
			busRoute:    "Route 12",
			description: "Student was standing in the aisle while the bus was moving and ignored two requests to sit down.",
			daysAgo:     1,
			status:      model.ReportStatusPending,
		},
		{
			studentName: "Jamie Rivera",
			busRoute:    "Route 12",
			description: "Repeated shouting and throwing paper at other students during the afternoon route.",
			daysAgo:     3,
			status:      model.ReportStatusReviewed,
			comment:     "Spoke with the student this morning; parent will be notified.",
		},
		{
			studentName: "Casey Smith",
			busRoute:    "Route 7",
			description: "Student opened the emergency window latch at a stop. No injury, latch resecured.",
			daysAgo:     7,
			status:      model.ReportStatusResolved,
			comment:     "Met with parents; student moved to the front seat for two weeks.",
		},
	}
}

func seedReports(
	ctx context.Context,
	repo *data.ReportRepo,
	users map[string]*model.User,
	schoolIDs map[string]string,
	logger *slog.Logger,
) error {
	driver := users["driver@buswatch.com"]
	admin := users["schooladmin@buswatch.com"]
	if driver == nil || admin == nil {
		return errors.New("demo driver or school admin missing; skipping report seed")
	}
	schoolID := schoolIDs[DemoSchoolName]
	if schoolID == "" {
		return errors.New("demo school missing; skipping report seed")
	}

	existing, err := repo.List(ctx, model.ReportsListOptions{DriverID: &driver.ID, Limit: 1})
	if err != nil {
		return fmt.Errorf("list reports: %w", err)
	}
	if len(existing) > 0 {
		if logger != nil {
			logger.InfoContext(ctx, "demo reports already exist")
		}
		return nil
	}

	for _, spec := range defaultReportSeedSpecs() {
		if seedErr := seedReport(ctx, repo, spec, driver, admin, schoolID); seedErr != nil {
			return fmt.Errorf("seed report for %q: %w", spec.studentName, seedErr)
		}
		if logger != nil {
			logger.InfoContext(ctx, "created report", "student", spec.studentName, "status", spec.status)
		}
	}
	return nil
}

func seedReport(
	ctx context.Context,
	repo *data.ReportRepo,
	spec reportSeedSpec,
	driver *model.User,
	admin *model.User,
	schoolID string,
) error {
	report, err := repo.Create(ctx, core.CreateReportParams{
		Request: &model.CreateReportRequest{
			StudentName:  spec.studentName,
			BusRoute:     spec.busRoute,
			SchoolID:     schoolID,
			IncidentDate: time.Now().UTC().AddDate(0, 0, -spec.daysAgo),
			Description:  spec.description,
		},
		DriverID:   driver.ID,
		DriverName: driver.Name,
	})
	if err != nil {
		return err
	}

	if spec.status != model.ReportStatusPending {
		if _, err := repo.UpdateStatus(ctx, report.ID, spec.status); err != nil {
			return err
		}
	}
	if spec.comment != "" {
		if _, err := repo.AddComment(ctx, core.AddCommentParams{
			ReportID: report.ID,
			Author: model.Comment{
				UserID:   admin.ID,
				UserName: admin.Name,
				UserRole: admin.Role,
			},
			Content: spec.comment,
		}); err != nil {
			return err
		}
	}
	return nil
}

func stringPtr(s string) *string { return &s }
