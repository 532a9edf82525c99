package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/buswatch/buswatch-api/internal/data/database"
	"github.com/buswatch/buswatch-api/internal/data/pgxutil"
	"github.com/buswatch/buswatch-api/internal/domain/model"
	apperrors "github.com/buswatch/buswatch-api/internal/errors"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// SchoolRepo provides database operations for schools.
type SchoolRepo struct {
	DB           *sql.DB
	clock        Clock
}

// NewSchoolRepo creates a SchoolRepo backed by the system clock.
func NewSchoolRepo(db *sql.DB) *SchoolRepo {
	return &SchoolRepo{DB: db, clock: systemClock{}}
}

// NewSchoolRepoWithClock creates a SchoolRepo whose timestamps come from the given clock.
func NewSchoolRepoWithClock(db *sql.DB, clock Clock) *SchoolRepo {
	return &SchoolRepo{DB: db, clock: clock}
}

// Create inserts a new school.
func (r *SchoolRepo) Create(
	ctx context.Context,
	req *model.CreateSchoolRequest,
) (*model.School, error) {
	if req == nil {
		return nil, errors.New("create school request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	createdAt := r.clock.Now().UTC()
	var out model.School
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO schools (name, address, city, state, zip, phone, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, name, address, city, state, zip, phone, created_at, updated_at
		`,
			strings.TrimSpace(req.Name),
			req.Address,
			req.City,
			req.State,
			req.Zip,
			req.Phone,
			createdAt,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.School])
		return err
	}); err != nil {
		return nil, r.mapWriteErr(err, false)
	}
	return &out, nil
}

// GetByID retrieves a school by ID.
func (r *SchoolRepo) GetByID(ctx context.Context, id string) (*model.School, error) {
	var school model.School
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, schoolGetByIDQuery, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		school, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.School])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSchoolNotFound
		}
		return nil, fmt.Errorf("failed to get school by ID: %w", err)
	}
	return &school, nil
}

// List retrieves schools with optional filters and sorting.
func (r *SchoolRepo) List(
	ctx context.Context,
	opts model.SchoolsListOptions,
) ([]*model.School, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := max(opts.Offset, 0)

	queryOpts := r.buildSchoolQueryOptions(opts, limit, offset)
	query, args := database.BuildListQuery(queryOpts)

	var rowsOut []model.School
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.School])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list schools: %w", err)
	}
	res := make([]*model.School, len(rowsOut))
	for i := range rowsOut {
		res[i] = &rowsOut[i]
	}
	return res, nil
}

// Update updates fields of a school.
func (r *SchoolRepo) Update(
	ctx context.Context,
	id string,
	req model.UpdateSchoolRequest,
) (*model.School, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var out model.School
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		setClause, args := r.buildUpdateClause(req)
		if setClause == "" {
			rows, err := conn.Query(ctx, schoolGetByIDQuery, id)
			if err != nil {
				return err
			}
			defer rows.Close()
			var e error
			out, e = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.School])
			return e
		}
		args = append(args, id)
		query := "UPDATE schools SET " + setClause + " WHERE id = $" + strconv.Itoa(
			len(args),
		) + " RETURNING id, name, address, city, state, zip, phone, created_at, updated_at"
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		var e error
		out, e = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.School])
		return e
	})
	if err != nil {
		return nil, r.mapWriteErr(err, true)
	}
	return &out, nil
}

// Delete deletes a school by ID. Fails with a foreign key violation when
// users or reports still reference it.
func (r *SchoolRepo) Delete(ctx context.Context, id string) (bool, error) {
	var rows int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx, `DELETE FROM schools WHERE id = $1`, id)
		if err != nil {
			return err
		}
		rows = ct.RowsAffected()
		return nil
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return false, apperrors.MapDBError(err)
		}
		return false, fmt.Errorf("failed to delete school: %w", err)
	}
	return rows > 0, nil
}

// --- helpers ---

const schoolGetByIDQuery = `
	SELECT id, name, address, city, state, zip, phone, created_at, updated_at
	FROM schools
	WHERE id = $1`

// schoolColumns returns the standard column list for school queries.
func schoolColumns() []string {
	return []string{
		"id",
		"name",
		"address",
		"city",
		"state",
		"zip",
		"phone",
		"created_at",
		"updated_at",
	}
}

// buildUpdateClause builds the SQL SET clause and args for updating a school.
func (r *SchoolRepo) buildUpdateClause(req model.UpdateSchoolRequest) (string, []any) {
	setParts := make([]string, 0, 6)
	args := make([]any, 0, 7)
	nextIdx := func() int { return len(args) + 1 }

	if req.Name != nil {
		setParts = append(setParts, fmt.Sprintf("name = $%d", nextIdx()))
		args = append(args, strings.TrimSpace(*req.Name))
	}
	optional := []struct {
		col string
		val *string
	}{
		{"address", req.Address},
		{"city", req.City},
		{"state", req.State},
		{"zip", req.Zip},
		{"phone", req.Phone},
	}
	for _, f := range optional {
		if f.val == nil {
			continue
		}
		if strings.TrimSpace(*f.val) == "" {
			setParts = append(setParts, f.col+" = NULL")
		} else {
			setParts = append(setParts, fmt.Sprintf("%s = $%d", f.col, nextIdx()))
			args = append(args, *f.val)
		}
	}

	if len(setParts) == 0 {
		return "", nil
	}
	return strings.Join(setParts, ", "), args
}

// buildSchoolQueryOptions builds query options for school listing with filters and sorting.
func (r *SchoolRepo) buildSchoolQueryOptions(
	opts model.SchoolsListOptions,
	limit, offset int,
) *database.ListQueryOptions {
	queryOpts := []database.ListQueryOption{
		database.WithColumns(schoolColumns()...),
		database.WithLimit(limit),
		database.WithOffset(offset),
	}

	if opts.Q != nil && strings.TrimSpace(*opts.Q) != "" {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("name", database.ILike, "%"+strings.TrimSpace(*opts.Q)+"%"),
		))
	}

	sortCol, sortDir := validateSchoolSortOptions(opts.Sort, opts.Dir)
	queryOpts = append(queryOpts, database.WithOrderBy(sortCol, sortDir))

	return database.NewListQueryOptions("schools", queryOpts...)
}

// validateSchoolSortOptions validates and returns safe sort column and direction.
func validateSchoolSortOptions(sort, dir string) (string, string) {
	sortCol := "name"
	sortDir := sortDirAsc

	if sort != "" {
		allowedSorts := map[string]string{
			"name":       "name",
			"created_at": "created_at",
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

func (r *SchoolRepo) mapWriteErr(err error, includeNotFound bool) error {
	if err == nil {
		return nil
	}
	if includeNotFound && errors.Is(err, pgx.ErrNoRows) {
		return ErrSchoolNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrSchoolNameExists
	}
	return err
}
