package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/buswatch/buswatch-api/internal/data"
	domainauth "github.com/buswatch/buswatch-api/internal/domain/auth"
	"github.com/buswatch/buswatch-api/internal/domain/model"
	"github.com/buswatch/buswatch-api/internal/mocks"
	"github.com/buswatch/buswatch-api/internal/service"
)

func driverTestSession() domainauth.Session {
	schoolID := "school-1"
	return domainauth.Session{
		ID:        "sess-1",
		UserID:    "driver-1",
		Name:      "Dana Driver",
		Email:     "dana@buswatch.com",
		Role:      domainauth.RoleDriver,
		SchoolID:  &schoolID,
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func schoolAdminTestSession() domainauth.Session {
	schoolID := "school-1"
	return domainauth.Session{
		ID:        "sess-2",
		UserID:    "admin-1",
		Name:      "Alex Admin",
		Email:     "alex@buswatch.com",
		Role:      domainauth.RoleSchoolAdmin,
		SchoolID:  &schoolID,
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

// withSession attaches a session the way the route guard does.
func withSession(r *http.Request, sess domainauth.Session) *http.Request {
	ctx := SetSessionInContext(r.Context(), &sess)
	return r.WithContext(ctx)
}

func newReportHandlers(t *testing.T) (*ReportHandlers, *mocks.MockReportRepository) {
	t.Helper()
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockReportRepository(ctrl)
	svc := service.NewReportService(service.ReportServiceOptions{Reports: repo})
	return &ReportHandlers{Svc: svc}, repo
}

func testReport(status model.ReportStatus) *model.Report {
	return &model.Report{
		ID:           "report-1",
		DriverID:     "driver-1",
		DriverName:   "Dana Driver",
		StudentName:  "Sam Student",
		BusRoute:     "42",
		SchoolID:     "school-1",
		SchoolName:   "Springfield Elementary",
		IncidentDate: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		Description:  "Standing while the bus was moving",
		Status:       status,
	}
}

func TestReportHandlers_Create(t *testing.T) {
	h, repo := newReportHandlers(t)

	repo.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ any, params any) (*model.Report, error) {
			return testReport(model.ReportStatusPending), nil
		})

	body := `{
		"student_name": "Sam Student",
		"bus_route": "42",
		"school_id": "school-1",
		"incident_date": "2026-03-10T00:00:00Z",
		"description": "Standing while the bus was moving"
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/reports", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = withSession(req, driverTestSession())
	w := httptest.NewRecorder()

	h.Create(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var got model.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "report-1", got.ID)
	assert.Equal(t, model.ReportStatusPending, got.Status)
}

func TestReportHandlers_Create_NoSession(t *testing.T) {
	h, _ := newReportHandlers(t)

	req := httptest.NewRequest(http.MethodPost, "/api/reports", strings.NewReader(`{}`))
	w := httptest.NewRecorder()

	h.Create(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestReportHandlers_Create_ValidationFailure(t *testing.T) {
	h, _ := newReportHandlers(t)

	// Missing student name and description.
	body := `{"school_id": "school-1", "bus_route": "42", "incident_date": "2026-03-10T00:00:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/api/reports", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = withSession(req, driverTestSession())
	w := httptest.NewRecorder()

	h.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "validation_failed")
}

func TestReportHandlers_Create_NonDriverForbidden(t *testing.T) {
	h, _ := newReportHandlers(t)

	body := `{
		"student_name": "Sam Student",
		"bus_route": "42",
		"school_id": "school-1",
		"incident_date": "2026-03-10T00:00:00Z",
		"description": "Standing while the bus was moving"
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/reports", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = withSession(req, schoolAdminTestSession())
	w := httptest.NewRecorder()

	h.Create(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestReportHandlers_List(t *testing.T) {
	h, repo := newReportHandlers(t)

	repo.EXPECT().
		List(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ any, opts model.ReportsListOptions) ([]*model.Report, error) {
			// Driver scoping is applied by the service before the repo call.
			require.NotNil(t, opts.DriverID)
			assert.Equal(t, "driver-1", *opts.DriverID)
			assert.Equal(t, 25, opts.Limit)
			require.NotNil(t, opts.Status)
			assert.Equal(t, model.ReportStatusPending, *opts.Status)
			return []*model.Report{testReport(model.ReportStatusPending)}, nil
		})

	req := httptest.NewRequest(http.MethodGet, "/api/reports?limit=25&status=pending", nil)
	req = withSession(req, driverTestSession())
	w := httptest.NewRecorder()

	h.List(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var payload struct {
		Reports []*model.Report `json:"reports"`
		Limit   int             `json:"limit"`
		Offset  int             `json:"offset"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Len(t, payload.Reports, 1)
	assert.Equal(t, 25, payload.Limit)
}

func TestReportHandlers_List_InvalidStatus(t *testing.T) {
	h, _ := newReportHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/api/reports?status=bogus", nil)
	req = withSession(req, driverTestSession())
	w := httptest.NewRecorder()

	h.List(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_status")
}

func TestReportHandlers_GetByID(t *testing.T) {
	h, repo := newReportHandlers(t)

	repo.EXPECT().
		GetWithComments(gomock.Any(), "report-1").
		Return(&model.ReportWithComments{
			Report:   *testReport(model.ReportStatusPending),
			Comments: []*model.Comment{},
		}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/reports/report-1", nil)
	req.SetPathValue("id", "report-1")
	req = withSession(req, driverTestSession())
	w := httptest.NewRecorder()

	h.GetByID(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var got model.ReportWithComments
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "report-1", got.ID)
	assert.NotNil(t, got.Comments)
}

func TestReportHandlers_GetByID_NotFound(t *testing.T) {
	h, repo := newReportHandlers(t)

	repo.EXPECT().
		GetWithComments(gomock.Any(), "missing").
		Return(nil, data.ErrReportNotFound)

	req := httptest.NewRequest(http.MethodGet, "/api/reports/missing", nil)
	req.SetPathValue("id", "missing")
	req = withSession(req, driverTestSession())
	w := httptest.NewRecorder()

	h.GetByID(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "report_not_found")
}

func TestReportHandlers_GetByID_OtherDriverForbidden(t *testing.T) {
	h, repo := newReportHandlers(t)

	other := testReport(model.ReportStatusPending)
	other.DriverID = "driver-2"
	repo.EXPECT().
		GetWithComments(gomock.Any(), "report-1").
		Return(&model.ReportWithComments{Report: *other}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/reports/report-1", nil)
	req.SetPathValue("id", "report-1")
	req = withSession(req, driverTestSession())
	w := httptest.NewRecorder()

	h.GetByID(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestReportHandlers_UpdateStatus(t *testing.T) {
	h, repo := newReportHandlers(t)

	repo.EXPECT().
		GetByID(gomock.Any(), "report-1").
		Return(testReport(model.ReportStatusPending), nil)
	repo.EXPECT().
		UpdateStatus(gomock.Any(), "report-1", model.ReportStatusReviewed).
		Return(testReport(model.ReportStatusReviewed), nil)

	req := httptest.NewRequest(
		http.MethodPut,
		"/api/reports/report-1/status",
		strings.NewReader(`{"status":"reviewed"}`),
	)
	req.Header.Set("Content-Type", "application/json")
	req.SetPathValue("id", "report-1")
	req = withSession(req, schoolAdminTestSession())
	w := httptest.NewRecorder()

	h.UpdateStatus(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var got model.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, model.ReportStatusReviewed, got.Status)
}

func TestReportHandlers_UpdateStatus_InvalidTransition(t *testing.T) {
	h, repo := newReportHandlers(t)

	repo.EXPECT().
		GetByID(gomock.Any(), "report-1").
		Return(testReport(model.ReportStatusReviewed), nil)

	req := httptest.NewRequest(
		http.MethodPut,
		"/api/reports/report-1/status",
		strings.NewReader(`{"status":"pending"}`),
	)
	req.Header.Set("Content-Type", "application/json")
	req.SetPathValue("id", "report-1")
	req = withSession(req, schoolAdminTestSession())
	w := httptest.NewRecorder()

	h.UpdateStatus(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_transition")
}

func TestReportHandlers_UpdateStatus_UnknownStatus(t *testing.T) {
	h, _ := newReportHandlers(t)

	req := httptest.NewRequest(
		http.MethodPut,
		"/api/reports/report-1/status",
		strings.NewReader(`{"status":"escalated"}`),
	)
	req.Header.Set("Content-Type", "application/json")
	req.SetPathValue("id", "report-1")
	req = withSession(req, schoolAdminTestSession())
	w := httptest.NewRecorder()

	h.UpdateStatus(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_status")
}

func TestReportHandlers_AddComment(t *testing.T) {
	h, repo := newReportHandlers(t)

	repo.EXPECT().
		GetByID(gomock.Any(), "report-1").
		Return(testReport(model.ReportStatusPending), nil)
	repo.EXPECT().
		AddComment(gomock.Any(), gomock.Any()).
		Return(&model.Comment{
			ID:       "comment-1",
			ReportID: "report-1",
			UserID:   "admin-1",
			UserName: "Alex Admin",
			UserRole: domainauth.RoleSchoolAdmin,
			Content:  "Spoke with the driver",
		}, nil)

	req := httptest.NewRequest(
		http.MethodPost,
		"/api/reports/report-1/comments",
		strings.NewReader(`{"content":"Spoke with the driver"}`),
	)
	req.Header.Set("Content-Type", "application/json")
	req.SetPathValue("id", "report-1")
	req = withSession(req, schoolAdminTestSession())
	w := httptest.NewRecorder()

	h.AddComment(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var got model.Comment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "comment-1", got.ID)
}

func TestReportHandlers_Delete(t *testing.T) {
	h, repo := newReportHandlers(t)

	repo.EXPECT().Delete(gomock.Any(), "report-1").Return(true, nil)

	superAdmin := domainauth.Session{
		ID:        "sess-3",
		UserID:    "root-1",
		Name:      "Sup Admin",
		Email:     "sup@buswatch.com",
		Role:      domainauth.RoleSuperAdmin,
		ExpiresAt: time.Now().Add(time.Hour),
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/reports/report-1", nil)
	req.SetPathValue("id", "report-1")
	req = withSession(req, superAdmin)
	w := httptest.NewRecorder()

	h.Delete(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestReportHandlers_Delete_NotFound(t *testing.T) {
	h, repo := newReportHandlers(t)

	repo.EXPECT().Delete(gomock.Any(), "missing").Return(false, nil)

	superAdmin := domainauth.Session{
		ID:        "sess-3",
		UserID:    "root-1",
		Role:      domainauth.RoleSuperAdmin,
		ExpiresAt: time.Now().Add(time.Hour),
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/reports/missing", nil)
	req.SetPathValue("id", "missing")
	req = withSession(req, superAdmin)
	w := httptest.NewRecorder()

	h.Delete(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
