package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/buswatch/buswatch-api/internal/data/database"
	"github.com/buswatch/buswatch-api/internal/data/pgxutil"
	"github.com/buswatch/buswatch-api/internal/domain/model"
	"github.com/jackc/pgx/v5"
)

// AuditRepo provides append-only database operations for audit log entries.
type AuditRepo struct {
	DB           *sql.DB
	clock        Clock
}

// NewAuditRepo creates an AuditRepo backed by the system clock.
func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{DB: db, clock: systemClock{}}
}

// NewAuditRepoWithClock creates an AuditRepo whose timestamps come from the given clock.
func NewAuditRepoWithClock(db *sql.DB, clock Clock) *AuditRepo {
	return &AuditRepo{DB: db, clock: clock}
}

// Record appends an audit entry. Entries are never updated or deleted.
func (r *AuditRepo) Record(
	ctx context.Context,
	req *model.RecordAuditRequest,
) (*model.AuditLog, error) {
	if req == nil {
		return nil, errors.New("record audit request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	details := req.Details
	if len(details) == 0 {
		details = json.RawMessage(`{}`)
	}

	createdAt := r.clock.Now().UTC()
	var out model.AuditLog
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO audit_logs (user_id, user_name, user_role, action, entity_type, entity_id, details, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id, user_id, user_name, user_role, action, entity_type, entity_id, details, created_at
		`,
			req.UserID,
			strings.TrimSpace(req.UserName),
			req.UserRole,
			strings.TrimSpace(req.Action),
			req.EntityType,
			req.EntityID,
			details,
			createdAt,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.AuditLog])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record audit entry: %w", err)
	}
	return &out, nil
}

// List retrieves audit entries with optional filters. The DetailsQuery
// expression in opts is evaluated by the service layer, not here.
func (r *AuditRepo) List(
	ctx context.Context,
	opts model.AuditListOptions,
) ([]*model.AuditLog, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := max(opts.Offset, 0)

	queryOpts := r.buildAuditQueryOptions(opts, limit, offset)
	query, args := database.BuildListQuery(queryOpts)

	var rowsOut []model.AuditLog
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.AuditLog])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	res := make([]*model.AuditLog, len(rowsOut))
	for i := range rowsOut {
		res[i] = &rowsOut[i]
	}
	return res, nil
}

// --- helpers ---

// auditColumns returns the standard column list for audit queries.
func auditColumns() []string {
	return []string{
		"id",
		"user_id",
		"user_name",
		"user_role",
		"action",
		"entity_type",
		"entity_id",
		"details",
		"created_at",
	}
}

// buildAuditQueryOptions builds query options for audit listing with filters and sorting.
func (r *AuditRepo) buildAuditQueryOptions(
	opts model.AuditListOptions,
	limit, offset int,
) *database.ListQueryOptions {
	queryOpts := []database.ListQueryOption{
		database.WithColumns(auditColumns()...),
		database.WithLimit(limit),
		database.WithOffset(offset),
	}

	if opts.UserID != nil && strings.TrimSpace(*opts.UserID) != "" {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("user_id", database.Equal, strings.TrimSpace(*opts.UserID)),
		))
	}
	if opts.Action != nil && strings.TrimSpace(*opts.Action) != "" {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("action", database.Equal, strings.TrimSpace(*opts.Action)),
		))
	}
	if opts.EntityType != nil {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("entity_type", database.Equal, *opts.EntityType),
		))
	}
	if opts.EntityID != nil && strings.TrimSpace(*opts.EntityID) != "" {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("entity_id", database.Equal, strings.TrimSpace(*opts.EntityID)),
		))
	}

	sortDir := sortDirDesc
	if strings.EqualFold(strings.TrimSpace(opts.Dir), "asc") {
		sortDir = sortDirAsc
	}
	queryOpts = append(queryOpts, database.WithOrderBy("created_at", sortDir))

	return database.NewListQueryOptions("audit_logs", queryOpts...)
}
