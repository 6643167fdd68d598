package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/vidyalaya-labs/vidyalaya-api/internal/middleware"
	"github.com/vidyalaya-labs/vidyalaya-api/internal/models"
	"github.com/vidyalaya-labs/vidyalaya-api/internal/service"
	"github.com/vidyalaya-labs/vidyalaya-api/pkg/response"
)

type attendanceRepoStub struct {
	record *models.TeacherAttendance
	ranged []models.TeacherAttendance
}

func (s *attendanceRepoStub) FindForDate(ctx context.Context, teacherID string, date time.Time) (*models.TeacherAttendance, error) {
	if s.record == nil {
		return nil, sql.ErrNoRows
	}
	return s.record, nil
}

func (s *attendanceRepoStub) Create(ctx context.Context, record *models.TeacherAttendance) error {
	record.ID = "att-1"
	s.record = record
	return nil
}

func (s *attendanceRepoStub) AppendSubject(ctx context.Context, recordID string, entry models.SubjectEntry, coord models.Coordinate, expectedEntries int) error {
	return nil
}

func (s *attendanceRepoStub) List(ctx context.Context, filter models.TeacherAttendanceFilter) ([]models.TeacherAttendanceRecord, int, error) {
	return nil, 0, nil
}

func (s *attendanceRepoStub) ListForRange(ctx context.Context, teacherID string, from, to time.Time) ([]models.TeacherAttendance, error) {
	return s.ranged, nil
}

type locationListerStub struct {
	locations []models.InstituteLocation
}

func (s *locationListerStub) List(ctx context.Context) ([]models.InstituteLocation, error) {
	return s.locations, nil
}

type teacherFinderStub struct {
	teacher *models.Teacher
}

func (s *teacherFinderStub) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	if s.teacher == nil {
		return nil, sql.ErrNoRows
	}
	return s.teacher, nil
}

func campusLister() *locationListerStub {
	return &locationListerStub{locations: []models.InstituteLocation{{
		ID:           "loc-1",
		Name:         "Main Campus",
		Latitude:     25.2,
		Longitude:    85.5,
		RadiusMeters: 200,
	}}}
}

func newAttendanceHandler(repo *attendanceRepoStub, lister *locationListerStub) *AttendanceHandler {
	attendanceSvc := service.NewAttendanceService(repo, lister, nil, nil)
	reportSvc := service.NewReportService(repo, &teacherFinderStub{teacher: &models.Teacher{ID: "t-1", FullName: "Asha Verma"}}, nil)
	return NewAttendanceHandler(attendanceSvc, reportSvc)
}

func newRequestContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return envelope
}

func TestAttendanceHandlerSubmitFullDay(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &attendanceRepoStub{}
	h := newAttendanceHandler(repo, campusLister())

	payload, _ := json.Marshal(service.SubmitAttendanceRequest{
		IsFullDay: true,
		Location:  &models.Coordinate{Latitude: 25.2, Longitude: 85.5},
	})
	c, w := newRequestContext(http.MethodPost, "/attendance", payload)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "t-1", Role: models.RoleTeacher})

	h.Submit(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, repo.record)
	require.True(t, repo.record.IsFullDay)
}

func TestAttendanceHandlerSubmitOutsideGeofence(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &attendanceRepoStub{}
	h := newAttendanceHandler(repo, campusLister())

	payload, _ := json.Marshal(service.SubmitAttendanceRequest{
		IsFullDay: true,
		Location:  &models.Coordinate{Latitude: 26.0, Longitude: 86.0},
	})
	c, w := newRequestContext(http.MethodPost, "/attendance", payload)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "t-1", Role: models.RoleTeacher})

	h.Submit(c)

	require.Equal(t, http.StatusForbidden, w.Code)
	envelope := decodeEnvelope(t, w)
	require.NotNil(t, envelope.Error)
	require.Equal(t, "OUTSIDE_GEOFENCE", envelope.Error.Code)
	require.Contains(t, envelope.Error.Message, "Main Campus")
	require.Nil(t, repo.record)
}

func TestAttendanceHandlerSubmitWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newAttendanceHandler(&attendanceRepoStub{}, campusLister())

	payload, _ := json.Marshal(service.SubmitAttendanceRequest{IsFullDay: true})
	c, w := newRequestContext(http.MethodPost, "/attendance", payload)

	h.Submit(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAttendanceHandlerTodayUnmarked(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newAttendanceHandler(&attendanceRepoStub{}, campusLister())

	c, w := newRequestContext(http.MethodGet, "/attendance/today", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "t-1", Role: models.RoleTeacher})

	h.Today(c)

	require.Equal(t, http.StatusOK, w.Code)
	envelope := decodeEnvelope(t, w)
	data, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, false, data["already_marked"])
}

func TestAttendanceHandlerReportForbiddenForOtherTeacher(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newAttendanceHandler(&attendanceRepoStub{}, campusLister())

	c, w := newRequestContext(http.MethodGet, "/attendance/reports/t-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "t-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "t-2", Role: models.RoleTeacher})

	h.Report(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestAttendanceHandlerReportAllowedForAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &attendanceRepoStub{ranged: []models.TeacherAttendance{{
		ID:        "att-1",
		TeacherID: "t-1",
		Date:      time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC),
		IsFullDay: true,
	}}}
	h := newAttendanceHandler(repo, campusLister())

	c, w := newRequestContext(http.MethodGet, "/attendance/reports/t-1?month=2025-03", nil)
	c.Params = gin.Params{{Key: "id", Value: "t-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	h.Report(c)

	require.Equal(t, http.StatusOK, w.Code)
	envelope := decodeEnvelope(t, w)
	data, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "Asha Verma", data["teacher_name"])
	require.Equal(t, float64(1), data["full_days"])
}
