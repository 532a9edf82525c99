package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/buswatch/buswatch-api/internal/core"
	"github.com/buswatch/buswatch-api/internal/domain/model"
	apperrors "github.com/buswatch/buswatch-api/internal/errors"
	jmespath "github.com/jmespath-community/go-jmespath"
)

// JMESPathEvaluator abstracts JMESPath compile/eval for testability.
type JMESPathEvaluator interface {
	Validate(expr string) error
	Evaluate(expr string, data any) (any, error)
}

// jmespathLibEvaluator implements JMESPathEvaluator using go-jmespath.
type jmespathLibEvaluator struct{}

func (j jmespathLibEvaluator) Validate(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return errors.New("expression cannot be empty")
	}
	_, err := jmespath.Compile(expr)
	return err
}

func (j jmespathLibEvaluator) Evaluate(expr string, data any) (any, error) {
	return jmespath.Search(expr, data)
}

// AuditServiceOptions groups dependencies for AuditService.
type AuditServiceOptions struct {
	Repo core.AuditLogRepository
	// Evaluator is optional; defaults to the go-jmespath implementation.
	Evaluator JMESPathEvaluator
}

// AuditService records and queries the append-only audit trail.
type AuditService struct {
	repo core.AuditLogRepository
	jems JMESPathEvaluator
}

// NewAuditService constructs a new AuditService.
func NewAuditService(opts AuditServiceOptions) *AuditService {
	jems := opts.Evaluator
	if jems == nil {
		jems = jmespathLibEvaluator{}
	}
	return &AuditService{repo: opts.Repo, jems: jems}
}

// Record appends an audit entry.
func (s *AuditService) Record(ctx context.Context, req *model.RecordAuditRequest) error {
	_, err := s.repo.Record(ctx, req)
	return err
}

// List returns audit entries matching the filters. When DetailsQuery is set
// it is compiled as a JMESPath expression and evaluated against each row's
// Details document; rows with a falsy result are dropped from the page.
func (s *AuditService) List(
	ctx context.Context,
	opts model.AuditListOptions,
) ([]*model.AuditLog, error) {
	expr := strings.TrimSpace(opts.DetailsQuery)
	if expr != "" {
		if err := s.jems.Validate(expr); err != nil {
			return nil, apperrors.Validationf("invalid details query: %v", err)
		}
	}

	entries, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, err
	}
	if expr == "" {
		return entries, nil
	}

	filtered := make([]*model.AuditLog, 0, len(entries))
	for _, entry := range entries {
		match, evalErr := s.matchesDetails(expr, entry.Details)
		if evalErr != nil {
			return nil, fmt.Errorf("evaluate details query: %w", evalErr)
		}
		if match {
			filtered = append(filtered, entry)
		}
	}
	return filtered, nil
}

// matchesDetails evaluates the expression against one Details document.
func (s *AuditService) matchesDetails(expr string, details json.RawMessage) (bool, error) {
	if len(details) == 0 {
		return false, nil
	}
	var doc any
	if err := json.Unmarshal(details, &doc); err != nil {
		return false, fmt.Errorf("decode details: %w", err)
	}
	result, err := s.jems.Evaluate(expr, doc)
	if err != nil {
		return false, err
	}
	return isTruthy(result), nil
}

// isTruthy follows JMESPath truthiness: null, false, empty string, empty
// array, and empty object are falsy.
func isTruthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case []any:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	default:
		return true
	}
}
