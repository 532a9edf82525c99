package httpx

import (
	"errors"
	"net/http"

	"github.com/buswatch/buswatch-api/internal/domain/model"
	"github.com/buswatch/buswatch-api/internal/service"
)

// AuditHandlers provides HTTP handlers for browsing the audit log.
type AuditHandlers struct {
	Svc *service.AuditService
}

const (
	maxAuditListLimit = 200 // Maximum number of audit entries that can be requested in one call
)

// List handles HTTP requests to page through audit entries. Filters arrive as
// query parameters; details_query takes a JMESPath expression evaluated
// against each entry's details document.
func (h *AuditHandlers) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := ParseLimitOffset(r, 50, maxAuditListLimit)
	opts := model.AuditListOptions{
		Limit:        limit,
		Offset:       offset,
		UserID:       queryStringPtr(r, "user_id"),
		Action:       queryStringPtr(r, "action"),
		EntityID:     queryStringPtr(r, "entity_id"),
		DetailsQuery: r.URL.Query().Get("details_query"),
		Sort:         r.URL.Query().Get("sort"),
		Dir:          r.URL.Query().Get("dir"),
	}
	if raw := r.URL.Query().Get("entity_type"); raw != "" {
		entityType, valid := model.ParseAuditEntityType(raw)
		if !valid {
			WriteError(w, ErrorParams{
				Code:    http.StatusBadRequest,
				ErrCode: "invalid_entity_type",
				Err:     errors.New("entity_type must be one of: report, user, school, comment, system"),
			})
			return
		}
		opts.EntityType = &entityType
	}

	entries, err := h.Svc.List(r.Context(), opts)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"limit":   limit,
		"offset":  offset,
	})
}
