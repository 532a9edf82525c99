// Package database builds the parameterized list queries shared by the
// repository layer. Every repo listing (reports, users, schools, audit
// logs) is the same shape: SELECT columns FROM table WHERE filters ORDER BY
// column LIMIT/OFFSET, with identifiers sanitized and values passed as
// positional parameters.
package database

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
)

// ConditionType is the comparison operator of a filter condition.
type ConditionType string

const (
	Equal    ConditionType = "="
	NotEqual ConditionType = "!="
	ILike    ConditionType = "ILIKE"
	Custom   ConditionType = "CUSTOM"
)

// unset marks limit/offset as not provided, so 0 stays a valid value.
const unset = -1

// Condition is a single WHERE predicate. Field/Type/Value conditions are
// fully sanitized; Custom conditions carry raw SQL from WhereRawCond.
type Condition struct {
	Field    string
	Type     ConditionType
	Value    any
	rawQuery *string
}

// WhereCond builds a sanitized field comparison condition.
func WhereCond(field string, condType ConditionType, value any) Condition {
	if condType == Custom {
		//nolint:forbidigo // panic prevents misuse; custom conditions must provide raw SQL via WhereRawCond.
		panic("Use WhereRawCond for Custom type")
	}
	return Condition{Field: field, Type: condType, Value: value}
}

// WhereRawCond builds a condition from a raw SQL fragment with $n
// placeholders. The fragment is emitted as written; placeholders are
// renumbered to fit the final query. A placeholder may repeat (search
// filters reuse $1 across several columns).
func WhereRawCond(rawQuery string, params ...any) Condition {
	return Condition{Type: Custom, rawQuery: &rawQuery, Value: params}
}

// ListQueryOptions collects the pieces of a list query.
type ListQueryOptions struct {
	Table      string
	Columns    []string
	Conditions []Condition
	OrderBy    string
	OrderDir   string
	Limit      int
	Offset     int
}

// ListQueryOption mutates ListQueryOptions during construction.
type ListQueryOption func(*ListQueryOptions)

// NewListQueryOptions builds options for a list query against table.
func NewListQueryOptions(table string, opts ...ListQueryOption) *ListQueryOptions {
	options := &ListQueryOptions{
		Table:  table,
		Limit:  unset,
		Offset: unset,
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// WithColumns sets the columns to select.
func WithColumns(cols ...string) ListQueryOption {
	return func(o *ListQueryOptions) {
		o.Columns = cols
	}
}

// WithCondition adds a single condition.
func WithCondition(cond Condition) ListQueryOption {
	return func(o *ListQueryOptions) {
		o.Conditions = append(o.Conditions, cond)
	}
}

// WithOrderBy sets the ordering column and direction.
func WithOrderBy(column, direction string) ListQueryOption {
	return func(o *ListQueryOptions) {
		o.OrderBy = column
		o.OrderDir = direction
	}
}

// WithLimit sets the limit. Accepts 0.
func WithLimit(limit int) ListQueryOption {
	return func(o *ListQueryOptions) {
		if limit >= 0 {
			o.Limit = limit
		}
	}
}

// WithOffset sets the offset. Accepts 0.
func WithOffset(offset int) ListQueryOption {
	return func(o *ListQueryOptions) {
		if offset >= 0 {
			o.Offset = offset
		}
	}
}

// BuildListQuery constructs the SQL string and argument slice from options.
//
//	opts := NewListQueryOptions("reports",
//		WithColumns("id", "student_name", "status"),
//		WithCondition(WhereCond("school_id", Equal, schoolID)),
//		WithOrderBy("created_at", "desc"),
//		WithLimit(50),
//		WithOffset(0),
//	)
//	query, args := BuildListQuery(opts)
func BuildListQuery(options *ListQueryOptions) (string, []any) {
	if options == nil {
		return "", nil
	}

	var query strings.Builder
	query.WriteString("SELECT ")
	query.WriteString(selectColumns(options.Columns))
	query.WriteString(" FROM ")
	query.WriteString(sanitizeIdentifier(options.Table))

	whereClause, args, nextParam := buildWhereClause(options.Conditions)
	if whereClause != "" {
		query.WriteString(" ")
		query.WriteString(whereClause)
	}

	if options.OrderBy != "" {
		query.WriteString(" ORDER BY ")
		query.WriteString(sanitizeQualifiedIdentifier(options.OrderBy))
		if dir := strings.ToUpper(options.OrderDir); dir == "ASC" || dir == "DESC" {
			query.WriteString(" ")
			query.WriteString(dir)
		}
	}

	if options.Limit != unset {
		query.WriteString(fmt.Sprintf(" LIMIT $%d", nextParam))
		args = append(args, options.Limit)
		nextParam++
	}
	if options.Offset != unset {
		query.WriteString(fmt.Sprintf(" OFFSET $%d", nextParam))
		args = append(args, options.Offset)
	}

	return query.String(), args
}

func selectColumns(cols []string) string {
	if len(cols) == 0 {
		return "*"
	}
	sanitized := make([]string, len(cols))
	for i, col := range cols {
		sanitized[i] = sanitizeQualifiedIdentifier(col)
	}
	return strings.Join(sanitized, ", ")
}

// sanitizeIdentifier quotes a single identifier.
func sanitizeIdentifier(ident string) string {
	return pgx.Identifier{ident}.Sanitize()
}

// sanitizeQualifiedIdentifier quotes identifiers like "column" or
// "table.column", splitting on '.'.
func sanitizeQualifiedIdentifier(ident string) string {
	return pgx.Identifier(strings.Split(ident, ".")).Sanitize()
}

// buildWhereClause renders conditions joined with AND, numbering parameters
// from $1. Returns the clause, the arguments, and the next free parameter
// index.
func buildWhereClause(inputConditions []Condition) (string, []any, int) {
	rendered := make([]string, 0, len(inputConditions))
	var args []any
	paramCount := 1

	for _, cond := range inputConditions {
		var conditionStr string
		var condArgs []any
		if cond.Type == Custom {
			conditionStr, condArgs, paramCount = renderRawCondition(cond, paramCount)
		} else {
			conditionStr, condArgs, paramCount = renderFieldCondition(cond, paramCount)
		}
		if conditionStr == "" {
			continue
		}
		rendered = append(rendered, conditionStr)
		args = append(args, condArgs...)
	}

	if len(rendered) == 0 {
		return "", args, paramCount
	}
	return "WHERE " + strings.Join(rendered, " AND "), args, paramCount
}

func renderFieldCondition(cond Condition, paramCount int) (string, []any, int) {
	if cond.Field == "" {
		return "", nil, paramCount
	}
	switch cond.Type {
	case Equal, NotEqual, ILike:
	default:
		return "", nil, paramCount
	}
	conditionStr := fmt.Sprintf("%s %s $%d", sanitizeIdentifier(cond.Field), cond.Type, paramCount)
	return conditionStr, []any{cond.Value}, paramCount + 1
}

var placeholderRe = regexp.MustCompile(`\$(\d+)`)

// renderRawCondition renumbers the fragment's $n placeholders into the
// query's parameter sequence. Each distinct placeholder binds one parameter;
// repeats of the same placeholder reuse it.
func renderRawCondition(cond Condition, paramCount int) (string, []any, int) {
	if cond.rawQuery == nil || *cond.rawQuery == "" {
		return "", nil, paramCount
	}

	params, _ := cond.Value.([]any)
	var args []any
	seen := make(map[int]int)

	renumbered := placeholderRe.ReplaceAllStringFunc(*cond.rawQuery, func(m string) string {
		n, err := strconv.Atoi(m[1:])
		if err != nil || n < 1 || n > len(params) {
			return m
		}
		if _, ok := seen[n]; !ok {
			seen[n] = paramCount
			args = append(args, params[n-1])
			paramCount++
		}
		return fmt.Sprintf("$%d", seen[n])
	})

	return renumbered, args, paramCount
}
