// Package httpx provides HTTP handlers and utilities for the BusWatch API.
package httpx

import (
	"errors"
	"net/http"

	"github.com/buswatch/buswatch-api/internal/data"
	domainauth "github.com/buswatch/buswatch-api/internal/domain/auth"
	"github.com/buswatch/buswatch-api/internal/domain/model"
	apperrors "github.com/buswatch/buswatch-api/internal/errors"
	"github.com/buswatch/buswatch-api/internal/service"
)

// ReportHandlers provides HTTP handlers for misconduct report operations.
type ReportHandlers struct {
	Svc *service.ReportService
}

const (
	maxReportListLimit = 100 // Maximum number of reports that can be requested in one call
)

// requireSession pulls the authenticated session placed by the middleware.
// A missing session here means a route was wired without a guard.
func requireSession(w http.ResponseWriter, r *http.Request) (domainauth.Session, bool) {
	sess, ok := GetUserSessionFromContext(r.Context())
	if !ok {
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "authentication_required",
			Err:     errors.New("authentication required"),
		})
		return domainauth.Session{}, false
	}
	return *sess, true
}

// Create handles HTTP requests to file a new report.
func (h *ReportHandlers) Create(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	var req model.CreateReportRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	report, err := h.Svc.Create(r.Context(), sess, &req)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrSchoolNotFound):
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "unknown_school", Err: err})
		case apperrors.IsForbidden(err):
			WriteError(w, ErrorParams{Code: http.StatusForbidden, ErrCode: "forbidden", Err: err})
		case apperrors.IsValidation(err):
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "validation_failed", Err: err})
		default:
			WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "create_failed", Err: err})
		}
		return
	}

	WriteJSON(w, http.StatusCreated, report)
}

// List handles HTTP requests to list reports visible to the caller.
func (h *ReportHandlers) List(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	limit, offset := ParseLimitOffset(r, 50, maxReportListLimit)
	opts := model.ReportsListOptions{
		Limit:    limit,
		Offset:   offset,
		Q:        queryStringPtr(r, "q"),
		BusRoute: queryStringPtr(r, "bus_route"),
		Sort:     r.URL.Query().Get("sort"),
		Dir:      r.URL.Query().Get("dir"),
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, valid := model.ParseReportStatus(raw)
		if !valid {
			WriteError(w, ErrorParams{
				Code:    http.StatusBadRequest,
				ErrCode: "invalid_status",
				Err:     errors.New("status must be one of: pending, reviewed, resolved"),
			})
			return
		}
		opts.Status = &status
	}

	reports, err := h.Svc.List(r.Context(), sess, opts)
	if err != nil {
		if apperrors.IsForbidden(err) {
			WriteError(w, ErrorParams{Code: http.StatusForbidden, ErrCode: "forbidden", Err: err})
			return
		}
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "list_failed", Err: err})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"reports": reports,
		"limit":   limit,
		"offset":  offset,
	})
}

// GetByID handles HTTP requests to fetch a report with its comment thread.
func (h *ReportHandlers) GetByID(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if id == "" {
		WriteError(
			w,
			ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("report id is required")},
		)
		return
	}

	report, err := h.Svc.Get(r.Context(), sess, id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrReportNotFound):
			WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "report_not_found", Err: err})
		case apperrors.IsForbidden(err):
			WriteError(w, ErrorParams{Code: http.StatusForbidden, ErrCode: "forbidden", Err: err})
		default:
			WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "get_failed", Err: err})
		}
		return
	}

	WriteJSON(w, http.StatusOK, report)
}

// updateStatusRequest is the PUT /api/reports/{id}/status body.
type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus handles HTTP requests to move a report through triage.
func (h *ReportHandlers) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if id == "" {
		WriteError(
			w,
			ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("report id is required")},
		)
		return
	}

	var req updateStatusRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	status, valid := model.ParseReportStatus(req.Status)
	if !valid {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_status",
			Err:     errors.New("status must be one of: pending, reviewed, resolved"),
		})
		return
	}

	report, err := h.Svc.UpdateStatus(r.Context(), sess, id, status)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrReportNotFound):
			WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "report_not_found", Err: err})
		case apperrors.IsForbidden(err):
			WriteError(w, ErrorParams{Code: http.StatusForbidden, ErrCode: "forbidden", Err: err})
		case apperrors.IsValidation(err):
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_transition", Err: err})
		default:
			WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "update_failed", Err: err})
		}
		return
	}

	WriteJSON(w, http.StatusOK, report)
}

// AddComment handles HTTP requests to attach a triage note to a report.
func (h *ReportHandlers) AddComment(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if id == "" {
		WriteError(
			w,
			ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("report id is required")},
		)
		return
	}

	var req model.AddCommentRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	comment, err := h.Svc.AddComment(r.Context(), sess, id, &req)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrReportNotFound):
			WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "report_not_found", Err: err})
		case apperrors.IsForbidden(err):
			WriteError(w, ErrorParams{Code: http.StatusForbidden, ErrCode: "forbidden", Err: err})
		case apperrors.IsValidation(err):
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "validation_failed", Err: err})
		default:
			WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "comment_failed", Err: err})
		}
		return
	}

	WriteJSON(w, http.StatusCreated, comment)
}

// Delete handles HTTP requests to remove a report.
func (h *ReportHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if id == "" {
		WriteError(
			w,
			ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("report id is required")},
		)
		return
	}

	deleted, err := h.Svc.Delete(r.Context(), sess, id)
	if err != nil {
		if apperrors.IsForbidden(err) {
			WriteError(w, ErrorParams{Code: http.StatusForbidden, ErrCode: "forbidden", Err: err})
			return
		}
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "delete_failed", Err: err})
		return
	}
	if !deleted {
		WriteError(w, ErrorParams{
			Code:    http.StatusNotFound,
			ErrCode: "report_not_found",
			Err:     errors.New("report not found"),
		})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
