package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/vidyalaya-labs/vidyalaya-api/internal/geofence"
	"github.com/vidyalaya-labs/vidyalaya-api/internal/models"
	"github.com/vidyalaya-labs/vidyalaya-api/internal/repository"
	appErrors "github.com/vidyalaya-labs/vidyalaya-api/pkg/errors"
)

// subjectCooldown is the minimum gap between two successive subject entries
// on the same day. Fixed design parameter, not configuration.
const subjectCooldown = 25 * time.Minute

type attendanceRepository interface {
	FindForDate(ctx context.Context, teacherID string, date time.Time) (*models.TeacherAttendance, error)
	Create(ctx context.Context, record *models.TeacherAttendance) error
	AppendSubject(ctx context.Context, recordID string, entry models.SubjectEntry, coord models.Coordinate, expectedEntries int) error
	List(ctx context.Context, filter models.TeacherAttendanceFilter) ([]models.TeacherAttendanceRecord, int, error)
	ListForRange(ctx context.Context, teacherID string, from, to time.Time) ([]models.TeacherAttendance, error)
}

type locationLister interface {
	List(ctx context.Context) ([]models.InstituteLocation, error)
}

type attendanceMetrics interface {
	RecordAttendanceSubmission(fullDay bool, outcome string)
	RecordGeofenceRejection()
}

// AttendanceService orchestrates geofenced attendance submission: verify the
// caller's position against the registry, evaluate the day's state machine,
// persist exactly one mutation on success and none on any failure.
type AttendanceService struct {
	repo      attendanceRepository
	locations locationLister
	validator *validator.Validate
	logger    *zap.Logger
	metrics   attendanceMetrics
	now       func() time.Time
}

// WithMetrics attaches submission instrumentation.
func (s *AttendanceService) WithMetrics(m attendanceMetrics) *AttendanceService {
	s.metrics = m
	return s
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(repo attendanceRepository, locations locationLister, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &AttendanceService{repo: repo, locations: locations, validator: validate, logger: logger, now: time.Now}
	svc.validator.RegisterValidation("subject_status", func(fl validator.FieldLevel) bool {
		return models.SubjectStatus(fl.Field().String()).Valid()
	})
	return svc
}

// SubjectEntryInput is one subject in a submission payload.
type SubjectEntryInput struct {
	Class       string `json:"class" validate:"required"`
	Section     string `json:"section" validate:"required"`
	SubjectName string `json:"subject_name" validate:"required"`
	Status      string `json:"status" validate:"required,subject_status"`
}

// SubmitAttendanceRequest is the attendance submission payload. Clients that
// failed to acquire a device position send LocationError instead of Location.
type SubmitAttendanceRequest struct {
	IsFullDay     bool                `json:"is_full_day"`
	Location      *models.Coordinate  `json:"location"`
	LocationError string              `json:"location_error" validate:"omitempty,oneof=permission_denied timeout unsupported"`
	Subjects      []SubjectEntryInput `json:"subjects" validate:"omitempty,dive"`
	Remarks       *string             `json:"remarks"`
	AddToExisting bool                `json:"add_to_existing"`
}

// SubmitResult carries the outcome of a successful submission.
type SubmitResult struct {
	Message    string                    `json:"message"`
	Attendance *models.TeacherAttendance `json:"attendance"`
}

// Submit runs the full submission pipeline for one teacher on one day.
// Validation happens before any geofence or state work; the geofence is
// re-verified server-side on every call regardless of what the client claims.
func (s *AttendanceService) Submit(ctx context.Context, teacherID string, req SubmitAttendanceRequest) (*SubmitResult, error) {
	if teacherID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher id required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	if !req.IsFullDay && len(req.Subjects) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one subject entry is required for subject-wise attendance")
	}
	if req.IsFullDay && len(req.Subjects) > 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "full-day attendance does not accept subject entries")
	}

	if req.LocationError != "" {
		return nil, locationAcquisitionError(req.LocationError)
	}
	if req.Location == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "location is required")
	}

	locations, err := s.locations.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load institute locations")
	}
	match, err := geofence.Verify(*req.Location, locations)
	if err != nil {
		if s.metrics != nil && appErrors.Is(err, appErrors.ErrOutsideGeofence) {
			s.metrics.RecordGeofenceRejection()
			s.metrics.RecordAttendanceSubmission(req.IsFullDay, "rejected")
		}
		return nil, err
	}

	now := s.now().UTC()
	today := dateOnly(now)

	record, err := s.repo.FindForDate(ctx, teacherID, today)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance record")
		}
		return s.createRecord(ctx, teacherID, today, now, req, match)
	}

	if record.IsFullDay || req.IsFullDay {
		return nil, appErrors.ErrDayAlreadyMarked
	}
	return s.appendEntry(ctx, record, now, req)
}

// createRecord handles the Unmarked state: first submission of the day.
func (s *AttendanceService) createRecord(ctx context.Context, teacherID string, today, now time.Time, req SubmitAttendanceRequest, match *geofence.Match) (*SubmitResult, error) {
	record := &models.TeacherAttendance{
		TeacherID: teacherID,
		Date:      today,
		IsFullDay: req.IsFullDay,
		Latitude:  req.Location.Latitude,
		Longitude: req.Location.Longitude,
		Remarks:   req.Remarks,
	}
	if !req.IsFullDay {
		entries := make(models.SubjectEntryList, len(req.Subjects))
		for i, in := range req.Subjects {
			entries[i] = models.SubjectEntry{
				Class:       strings.TrimSpace(in.Class),
				Section:     strings.TrimSpace(in.Section),
				SubjectName: strings.TrimSpace(in.SubjectName),
				Status:      models.SubjectStatus(in.Status),
				MarkedAt:    now,
			}
		}
		record.Subjects = entries
	}

	if err := s.repo.Create(ctx, record); err != nil {
		if errors.Is(err, repository.ErrDuplicateDay) {
			// Lost the creation race against a concurrent submission.
			return nil, appErrors.ErrDayAlreadyMarked
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save attendance")
	}

	s.logger.Info("attendance_marked",
		zap.String("teacher_id", teacherID),
		zap.Bool("full_day", req.IsFullDay),
		zap.String("verified_at", match.Location.Name),
		zap.Float64("distance_m", match.DistanceMeters),
	)

	if s.metrics != nil {
		s.metrics.RecordAttendanceSubmission(req.IsFullDay, "marked")
	}

	message := "Full-day attendance marked successfully"
	if !req.IsFullDay {
		message = "Subject attendance marked successfully"
	}
	return &SubmitResult{Message: message, Attendance: record}, nil
}

// appendEntry handles the SubjectWiseMarked state: add one more subject after
// the cooldown window has passed.
func (s *AttendanceService) appendEntry(ctx context.Context, record *models.TeacherAttendance, now time.Time, req SubmitAttendanceRequest) (*SubmitResult, error) {
	if len(req.Subjects) != 1 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "exactly one subject entry can be added at a time")
	}

	if last, ok := record.LastEntryAt(); ok {
		if remaining := remainingCooldownMinutes(last, now); remaining > 0 {
			return nil, appErrors.CooldownActive(remaining)
		}
	}

	in := req.Subjects[0]
	entry := models.SubjectEntry{
		Class:       strings.TrimSpace(in.Class),
		Section:     strings.TrimSpace(in.Section),
		SubjectName: strings.TrimSpace(in.SubjectName),
		Status:      models.SubjectStatus(in.Status),
		MarkedAt:    now,
	}

	if err := s.repo.AppendSubject(ctx, record.ID, entry, *req.Location, len(record.Subjects)); err != nil {
		if errors.Is(err, repository.ErrStaleAppend) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "attendance was updated concurrently; check today's record and try again")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add subject attendance")
	}

	record.Subjects = append(record.Subjects, entry)
	record.Latitude = req.Location.Latitude
	record.Longitude = req.Location.Longitude
	record.UpdatedAt = now

	s.logger.Info("attendance_subject_added",
		zap.String("teacher_id", record.TeacherID),
		zap.String("subject", entry.SubjectName),
		zap.Int("entries", len(record.Subjects)),
	)

	if s.metrics != nil {
		s.metrics.RecordAttendanceSubmission(false, "appended")
	}

	return &SubmitResult{Message: "Subject attendance added successfully", Attendance: record}, nil
}

// TodayStatus reports the state machine position for a teacher's current day:
// whether attendance exists, and if subject-wise, whether another entry can be
// added now or how long the cooldown still has to run.
func (s *AttendanceService) TodayStatus(ctx context.Context, teacherID string) (*models.TodayAttendanceStatus, error) {
	if teacherID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher id required")
	}

	now := s.now().UTC()
	record, err := s.repo.FindForDate(ctx, teacherID, dateOnly(now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.TodayAttendanceStatus{}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance record")
	}

	status := &models.TodayAttendanceStatus{AlreadyMarked: true, Attendance: record}
	if record.IsFullDay {
		return status, nil
	}

	if last, ok := record.LastEntryAt(); ok {
		status.RemainingMinutes = remainingCooldownMinutes(last, now)
	}
	status.CanAddSubject = status.RemainingMinutes == 0
	return status, nil
}

// List returns attendance records for admin views.
func (s *AttendanceService) List(ctx context.Context, filter models.TeacherAttendanceFilter) ([]models.TeacherAttendanceRecord, *models.Pagination, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	filter.Page = page
	filter.PageSize = size

	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return rows, pagination, nil
}

// remainingCooldownMinutes returns the whole minutes still to wait before the
// next subject entry. Rounding never under-reports the wait.
func remainingCooldownMinutes(lastEntry, now time.Time) int {
	remaining := subjectCooldown - now.Sub(lastEntry)
	if remaining <= 0 {
		return 0
	}
	return int(math.Ceil(remaining.Minutes()))
}

// dateOnly truncates a timestamp to its UTC calendar date.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func locationAcquisitionError(code string) *appErrors.Error {
	switch code {
	case "permission_denied":
		return appErrors.ErrLocationPermissionDenied
	case "timeout":
		return appErrors.ErrLocationTimeout
	default:
		return appErrors.ErrLocationUnsupported
	}
}
