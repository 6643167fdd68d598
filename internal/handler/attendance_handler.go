package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vidyalaya-labs/vidyalaya-api/internal/models"
	"github.com/vidyalaya-labs/vidyalaya-api/internal/service"
	appErrors "github.com/vidyalaya-labs/vidyalaya-api/pkg/errors"
	"github.com/vidyalaya-labs/vidyalaya-api/pkg/response"
)

// AttendanceHandler wires geofenced attendance endpoints to HTTP routes.
type AttendanceHandler struct {
	attendance *service.AttendanceService
	reports    *service.ReportService
}

// NewAttendanceHandler constructs a new AttendanceHandler.
func NewAttendanceHandler(attendance *service.AttendanceService, reports *service.ReportService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance, reports: reports}
}

// Submit godoc
// @Summary Mark attendance
// @Description Submit full-day or subject-wise attendance. Position is verified against the institute locations on every call.
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.SubmitAttendanceRequest true "Attendance payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /attendance [post]
func (h *AttendanceHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.SubmitAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid attendance payload"))
		return
	}

	result, err := h.attendance.Submit(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusCreated, result, nil)
}

// Today godoc
// @Summary Today's attendance status
// @Description Returns whether the caller has marked attendance today and whether another subject can be added.
// @Tags Attendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /attendance/today [get]
func (h *AttendanceHandler) Today(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	status, err := h.attendance.TodayStatus(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, status, nil)
}

// List godoc
// @Summary List attendance records
// @Tags Attendance
// @Produce json
// @Param teacher_id query string false "Filter by teacher"
// @Param date_from query string false "Start date (YYYY-MM-DD)"
// @Param date_to query string false "End date (YYYY-MM-DD)"
// @Param full_day query bool false "Filter by full-day flag"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param sort query string false "Sort field (date,created_at,updated_at)"
// @Param order query string false "Sort order (asc/desc)"
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	filter := models.TeacherAttendanceFilter{
		TeacherID: c.Query("teacher_id"),
		FullDay:   queryBool(c, "full_day"),
		Page:      queryInt(c, "page", 1),
		PageSize:  queryInt(c, "limit", 20),
		SortBy:    c.Query("sort"),
		SortOrder: c.Query("order"),
	}
	if raw := c.Query("date_from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date_from must be in YYYY-MM-DD format"))
			return
		}
		filter.DateFrom = &parsed
	}
	if raw := c.Query("date_to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date_to must be in YYYY-MM-DD format"))
			return
		}
		filter.DateTo = &parsed
	}

	records, pagination, err := h.attendance.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// Report godoc
// @Summary Monthly attendance report
// @Tags Attendance
// @Produce json
// @Param id path string true "Teacher ID"
// @Param month query string true "Month (YYYY-MM)"
// @Success 200 {object} response.Envelope
// @Router /attendance/reports/{id} [get]
func (h *AttendanceHandler) Report(c *gin.Context) {
	teacherID := c.Param("id")
	if !h.canViewReport(c, teacherID) {
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	report, err := h.reports.Monthly(c.Request.Context(), teacherID, c.Query("month"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// ExportReport godoc
// @Summary Export monthly attendance report
// @Tags Attendance
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Teacher ID"
// @Param month query string true "Month (YYYY-MM)"
// @Param format query string true "Export format (csv or pdf)"
// @Success 200 {file} binary
// @Router /attendance/reports/{id}/export [get]
func (h *AttendanceHandler) ExportReport(c *gin.Context) {
	teacherID := c.Param("id")
	if !h.canViewReport(c, teacherID) {
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	format := service.ExportFormat(c.DefaultQuery("format", "csv"))
	exported, err := h.reports.Export(c.Request.Context(), teacherID, c.Query("month"), format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+exported.FileName+`"`)
	c.Data(http.StatusOK, exported.ContentType, exported.Content)
}

// canViewReport allows admins to view any report and teachers their own.
func (h *AttendanceHandler) canViewReport(c *gin.Context, teacherID string) bool {
	claims := claimsFromContext(c)
	if claims == nil {
		return false
	}
	if claims.Role == models.RoleAdmin {
		return true
	}
	return claims.UserID == teacherID
}
