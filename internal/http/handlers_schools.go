package httpx

import (
	"errors"
	"net/http"

	"github.com/buswatch/buswatch-api/internal/data"
	"github.com/buswatch/buswatch-api/internal/domain/model"
	apperrors "github.com/buswatch/buswatch-api/internal/errors"
	"github.com/buswatch/buswatch-api/internal/service"
)

// SchoolHandlers provides HTTP handlers for school administration.
type SchoolHandlers struct {
	Svc *service.SchoolService
}

const (
	maxSchoolListLimit = 100 // Maximum number of schools that can be requested in one call
)

// Create handles HTTP requests to register a new school.
func (h *SchoolHandlers) Create(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	var req model.CreateSchoolRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	school, err := h.Svc.Create(r.Context(), sess, &req)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrSchoolNameExists):
			WriteError(w, ErrorParams{Code: http.StatusConflict, ErrCode: "name_conflict", Err: err})
		case apperrors.IsForbidden(err):
			WriteError(w, ErrorParams{Code: http.StatusForbidden, ErrCode: "forbidden", Err: err})
		case apperrors.IsValidation(err):
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "validation_failed", Err: err})
		default:
			WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "create_failed", Err: err})
		}
		return
	}

	WriteJSON(w, http.StatusCreated, school)
}

// List handles HTTP requests to list schools with pagination.
// Open to any authenticated session since reports and forms reference schools.
func (h *SchoolHandlers) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := ParseLimitOffset(r, 50, maxSchoolListLimit)
	opts := model.SchoolsListOptions{
		Limit:  limit,
		Offset: offset,
		Q:      queryStringPtr(r, "q"),
		Sort:   r.URL.Query().Get("sort"),
		Dir:    r.URL.Query().Get("dir"),
	}

	schools, err := h.Svc.List(r.Context(), opts)
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "list_failed", Err: err})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"schools": schools,
		"limit":   limit,
		"offset":  offset,
	})
}

// GetByID handles HTTP requests to fetch a school by ID.
func (h *SchoolHandlers) GetByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(
			w,
			ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("school id is required")},
		)
		return
	}

	school, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, data.ErrSchoolNotFound) {
			WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "school_not_found", Err: err})
			return
		}
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "get_failed", Err: err})
		return
	}

	WriteJSON(w, http.StatusOK, school)
}

// Update handles HTTP requests to modify a school.
func (h *SchoolHandlers) Update(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if id == "" {
		WriteError(
			w,
			ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("school id is required")},
		)
		return
	}

	var req model.UpdateSchoolRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	school, err := h.Svc.Update(r.Context(), sess, id, req)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrSchoolNotFound):
			WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "school_not_found", Err: err})
		case errors.Is(err, data.ErrSchoolNameExists):
			WriteError(w, ErrorParams{Code: http.StatusConflict, ErrCode: "name_conflict", Err: err})
		case apperrors.IsForbidden(err):
			WriteError(w, ErrorParams{Code: http.StatusForbidden, ErrCode: "forbidden", Err: err})
		case apperrors.IsValidation(err):
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "validation_failed", Err: err})
		default:
			WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "update_failed", Err: err})
		}
		return
	}

	WriteJSON(w, http.StatusOK, school)
}

// Delete handles HTTP requests to remove a school.
func (h *SchoolHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if id == "" {
		WriteError(
			w,
			ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("school id is required")},
		)
		return
	}

	deleted, err := h.Svc.Delete(r.Context(), sess, id)
	if err != nil {
		switch {
		case apperrors.IsForbidden(err):
			WriteError(w, ErrorParams{Code: http.StatusForbidden, ErrCode: "forbidden", Err: err})
		case apperrors.GetCode(err) == apperrors.ErrCodeForeignKey:
			// Users or reports still reference this school.
			WriteError(w, ErrorParams{Code: http.StatusConflict, ErrCode: "school_in_use", Err: err})
		default:
			WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "delete_failed", Err: err})
		}
		return
	}
	if !deleted {
		WriteError(w, ErrorParams{
			Code:    http.StatusNotFound,
			ErrCode: "school_not_found",
			Err:     errors.New("school not found"),
		})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
