package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/buswatch/buswatch-api/internal/core"
	"github.com/buswatch/buswatch-api/internal/data/database"
	"github.com/buswatch/buswatch-api/internal/data/pgxutil"
	"github.com/buswatch/buswatch-api/internal/domain/model"
	"github.com/jackc/pgx/v5"
)

// ReportRepo provides database operations for misconduct reports and their comments.
type ReportRepo struct {
	DB           *sql.DB
	clock        Clock
}

// NewReportRepo creates a ReportRepo backed by the system clock.
func NewReportRepo(db *sql.DB) *ReportRepo {
	return &ReportRepo{DB: db, clock: systemClock{}}
}

// NewReportRepoWithClock creates a ReportRepo whose timestamps come from the given clock.
func NewReportRepoWithClock(db *sql.DB, clock Clock) *ReportRepo {
	return &ReportRepo{DB: db, clock: clock}
}

// Create inserts a new report. The school name is snapshotted onto the row so
// report listings survive later school renames.
func (r *ReportRepo) Create(
	ctx context.Context,
	params core.CreateReportParams,
) (*model.Report, error) {
	req := params.Request
	if req == nil {
		return nil, errors.New("create report request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(params.DriverID) == "" {
		return nil, errors.New("driver id is required")
	}

	createdAt := r.clock.Now().UTC()
	var out model.Report
	if err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{Fn: func(tx pgx.Tx) error {
		var schoolName string
		if err := tx.QueryRow(ctx,
			`SELECT name FROM schools WHERE id = $1`, req.SchoolID,
		).Scan(&schoolName); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrSchoolNotFound
			}
			return err
		}

		rows, err := tx.Query(ctx, `
			INSERT INTO reports (
				driver_id, driver_name, student_name, bus_route, school_id, school_name,
				incident_date, description, status, attachment_url, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING id, driver_id, driver_name, student_name, bus_route, school_id, school_name,
			          incident_date, description, status, attachment_url, created_at, updated_at
		`,
			params.DriverID,
			strings.TrimSpace(params.DriverName),
			strings.TrimSpace(req.StudentName),
			strings.TrimSpace(req.BusRoute),
			req.SchoolID,
			schoolName,
			req.IncidentDate.UTC(),
			strings.TrimSpace(req.Description),
			model.ReportStatusPending,
			req.AttachmentURL,
			createdAt,
		)
		if err != nil {
			return err
		}
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Report])
		return err
	}}); err != nil {
		if errors.Is(err, ErrSchoolNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create report: %w", err)
	}
	return &out, nil
}

// GetByID retrieves a report by ID.
func (r *ReportRepo) GetByID(ctx context.Context, id string) (*model.Report, error) {
	var report model.Report
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, reportGetByIDQuery, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		report, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Report])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to get report by ID: %w", err)
	}
	return &report, nil
}

// GetWithComments retrieves a report and its full comment thread, oldest first.
func (r *ReportRepo) GetWithComments(
	ctx context.Context,
	id string,
) (*model.ReportWithComments, error) {
	var report model.Report
	var comments []model.Comment
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, reportGetByIDQuery, id)
		if err != nil {
			return err
		}
		report, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Report])
		if err != nil {
			return err
		}

		commentRows, err := conn.Query(ctx, `
			SELECT id, report_id, user_id, user_name, user_role, content, created_at
			FROM report_comments
			WHERE report_id = $1
			ORDER BY created_at ASC
		`, id)
		if err != nil {
			return err
		}
		comments, err = pgx.CollectRows(commentRows, pgx.RowToStructByName[model.Comment])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to get report with comments: %w", err)
	}

	out := &model.ReportWithComments{
		Report:   report,
		Comments: make([]*model.Comment, len(comments)),
	}
	for i := range comments {
		out.Comments[i] = &comments[i]
	}
	return out, nil
}

// List retrieves reports with optional filters and sorting.
func (r *ReportRepo) List(
	ctx context.Context,
	opts model.ReportsListOptions,
) ([]*model.Report, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := max(opts.Offset, 0)

	queryOpts := r.buildReportQueryOptions(opts, limit, offset)
	query, args := database.BuildListQuery(queryOpts)

	var rowsOut []model.Report
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.Report])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	res := make([]*model.Report, len(rowsOut))
	for i := range rowsOut {
		res[i] = &rowsOut[i]
	}
	return res, nil
}

// UpdateStatus sets the triage status of a report. Transition rules are
// enforced by the service layer, which sees the current row.
func (r *ReportRepo) UpdateStatus(
	ctx context.Context,
	id string,
	status model.ReportStatus,
) (*model.Report, error) {
	if !status.Valid() {
		return nil, errors.New("status must be one of: pending, reviewed, resolved")
	}

	var out model.Report
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			UPDATE reports SET status = $1, updated_at = $2
			WHERE id = $3
			RETURNING id, driver_id, driver_name, student_name, bus_route, school_id, school_name,
			          incident_date, description, status, attachment_url, created_at, updated_at
		`, status, r.clock.Now().UTC(), id)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Report])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to update report status: %w", err)
	}
	return &out, nil
}

// AddComment appends a comment to a report.
func (r *ReportRepo) AddComment(
	ctx context.Context,
	params core.AddCommentParams,
) (*model.Comment, error) {
	content := strings.TrimSpace(params.Content)
	if content == "" {
		return nil, errors.New("content is required and cannot be empty")
	}

	createdAt := r.clock.Now().UTC()
	var out model.Comment
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO report_comments (report_id, user_id, user_name, user_role, content, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, report_id, user_id, user_name, user_role, content, created_at
		`,
			params.ReportID,
			params.Author.UserID,
			params.Author.UserName,
			params.Author.UserRole,
			content,
			createdAt,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Comment])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}
	return &out, nil
}

// Delete deletes a report by ID. Comments follow via ON DELETE CASCADE.
func (r *ReportRepo) Delete(ctx context.Context, id string) (bool, error) {
	var rows int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx, `DELETE FROM reports WHERE id = $1`, id)
		if err != nil {
			return err
		}
		rows = ct.RowsAffected()
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete report: %w", err)
	}
	return rows > 0, nil
}

// --- helpers ---

const reportGetByIDQuery = `
	SELECT id, driver_id, driver_name, student_name, bus_route, school_id, school_name,
	       incident_date, description, status, attachment_url, created_at, updated_at
	FROM reports
	WHERE id = $1`

// reportColumns returns the standard column list for report queries.
func reportColumns() []string {
	return []string{
		"id",
		"driver_id",
		"driver_name",
		"student_name",
		"bus_route",
		"school_id",
		"school_name",
		"incident_date",
		"description",
		"status",
		"attachment_url",
		"created_at",
		"updated_at",
	}
}

// buildReportQueryOptions builds query options for report listing with filters and sorting.
func (r *ReportRepo) buildReportQueryOptions(
	opts model.ReportsListOptions,
	limit, offset int,
) *database.ListQueryOptions {
	queryOpts := []database.ListQueryOption{
		database.WithColumns(reportColumns()...),
		database.WithLimit(limit),
		database.WithOffset(offset),
	}

	if opts.Q != nil && strings.TrimSpace(*opts.Q) != "" {
		needle := "%" + strings.TrimSpace(*opts.Q) + "%"
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereRawCond("(student_name ILIKE $1 OR description ILIKE $1)", needle),
		))
	}
	if opts.Status != nil {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("status", database.Equal, *opts.Status),
		))
	}
	if opts.BusRoute != nil && strings.TrimSpace(*opts.BusRoute) != "" {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("bus_route", database.Equal, strings.TrimSpace(*opts.BusRoute)),
		))
	}
	if opts.DriverID != nil && strings.TrimSpace(*opts.DriverID) != "" {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("driver_id", database.Equal, strings.TrimSpace(*opts.DriverID)),
		))
	}
	if opts.SchoolID != nil && strings.TrimSpace(*opts.SchoolID) != "" {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("school_id", database.Equal, strings.TrimSpace(*opts.SchoolID)),
		))
	}

	sortCol, sortDir := validateReportSortOptions(opts.Sort, opts.Dir)
	queryOpts = append(queryOpts, database.WithOrderBy(sortCol, sortDir))

	return database.NewListQueryOptions("reports", queryOpts...)
}

// validateReportSortOptions validates and returns safe sort column and direction.
func validateReportSortOptions(sort, dir string) (string, string) {
	sortCol := "created_at"
	sortDir := sortDirDesc

	if sort != "" {
		allowedSorts := map[string]string{
			"created_at":    "created_at",
			"incident_date": "incident_date",
			"student_name":  "student_name",
		}
		if validSort, ok := allowedSorts[strings.ToLower(strings.TrimSpace(sort))]; ok {
			sortCol = validSort
		}
	}
	if dir != "" {
		allowedDirs := map[string]string{
			"asc":  sortDirAsc,
			"desc": sortDirDesc,
		}
		if validDir, ok := allowedDirs[strings.ToLower(strings.TrimSpace(dir))]; ok {
			sortDir = validDir
		}
	}
	return sortCol, sortDir
}
