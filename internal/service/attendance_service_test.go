package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidyalaya-labs/vidyalaya-api/internal/models"
	"github.com/vidyalaya-labs/vidyalaya-api/internal/repository"
	appErrors "github.com/vidyalaya-labs/vidyalaya-api/pkg/errors"
)

type mockAttendanceRepo struct {
	records     map[string]*models.TeacherAttendance
	createErr   error
	appendErr   error
	createCalls int
	appendCalls int
}

func attendanceKey(teacherID string, date time.Time) string {
	return teacherID + "|" + date.Format("2006-01-02")
}

func (m *mockAttendanceRepo) FindForDate(ctx context.Context, teacherID string, date time.Time) (*models.TeacherAttendance, error) {
	if record, ok := m.records[attendanceKey(teacherID, date)]; ok {
		cp := *record
		cp.Subjects = append(models.SubjectEntryList{}, record.Subjects...)
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAttendanceRepo) Create(ctx context.Context, record *models.TeacherAttendance) error {
	m.createCalls++
	if m.createErr != nil {
		return m.createErr
	}
	if m.records == nil {
		m.records = make(map[string]*models.TeacherAttendance)
	}
	key := attendanceKey(record.TeacherID, record.Date)
	if _, exists := m.records[key]; exists {
		return repository.ErrDuplicateDay
	}
	if record.ID == "" {
		record.ID = "att-generated"
	}
	cp := *record
	m.records[key] = &cp
	return nil
}

func (m *mockAttendanceRepo) AppendSubject(ctx context.Context, recordID string, entry models.SubjectEntry, coord models.Coordinate, expectedEntries int) error {
	m.appendCalls++
	if m.appendErr != nil {
		return m.appendErr
	}
	for _, record := range m.records {
		if record.ID == recordID {
			if len(record.Subjects) != expectedEntries {
				return repository.ErrStaleAppend
			}
			record.Subjects = append(record.Subjects, entry)
			record.Latitude = coord.Latitude
			record.Longitude = coord.Longitude
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *mockAttendanceRepo) List(ctx context.Context, filter models.TeacherAttendanceFilter) ([]models.TeacherAttendanceRecord, int, error) {
	return nil, 0, nil
}

func (m *mockAttendanceRepo) ListForRange(ctx context.Context, teacherID string, from, to time.Time) ([]models.TeacherAttendance, error) {
	var out []models.TeacherAttendance
	for _, record := range m.records {
		if record.TeacherID == teacherID && !record.Date.Before(from) && !record.Date.After(to) {
			out = append(out, *record)
		}
	}
	return out, nil
}

type mockLocationLister struct {
	locations []models.InstituteLocation
	calls     int
}

func (m *mockLocationLister) List(ctx context.Context) ([]models.InstituteLocation, error) {
	m.calls++
	return m.locations, nil
}

func mainCampus() []models.InstituteLocation {
	return []models.InstituteLocation{
		{ID: "loc-1", Name: "Main Campus", Latitude: 25.2, Longitude: 85.5005, RadiusMeters: 150},
	}
}

// onCampus is ~50m from Main Campus, inside the 150m radius.
func onCampus() *models.Coordinate {
	return &models.Coordinate{Latitude: 25.2, Longitude: 85.5}
}

func newTestService(repo *mockAttendanceRepo, lister *mockLocationLister, now time.Time) *AttendanceService {
	svc := NewAttendanceService(repo, lister, nil, nil)
	svc.now = func() time.Time { return now }
	return svc
}

func TestSubmitFullDaySuccess(t *testing.T) {
	repo := &mockAttendanceRepo{}
	svc := newTestService(repo, &mockLocationLister{locations: mainCampus()}, time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC))

	result, err := svc.Submit(context.Background(), "teacher-1", SubmitAttendanceRequest{
		IsFullDay: true,
		Location:  onCampus(),
	})
	require.NoError(t, err)
	require.NotNil(t, result.Attendance)
	assert.True(t, result.Attendance.IsFullDay)
	assert.Empty(t, result.Attendance.Subjects)
	assert.Equal(t, 1, repo.createCalls)
}

func TestSubmitFullDayTwiceRejected(t *testing.T) {
	repo := &mockAttendanceRepo{}
	svc := newTestService(repo, &mockLocationLister{locations: mainCampus()}, time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC))

	_, err := svc.Submit(context.Background(), "teacher-1", SubmitAttendanceRequest{IsFullDay: true, Location: onCampus()})
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), "teacher-1", SubmitAttendanceRequest{IsFullDay: true, Location: onCampus()})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrDayAlreadyMarked))
	assert.Len(t, repo.records, 1)
}

func TestSubmitSubjectAfterFullDayRejected(t *testing.T) {
	repo := &mockAttendanceRepo{}
	svc := newTestService(repo, &mockLocationLister{locations: mainCampus()}, time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC))

	_, err := svc.Submit(context.Background(), "teacher-1", SubmitAttendanceRequest{IsFullDay: true, Location: onCampus()})
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), "teacher-1", SubmitAttendanceRequest{
		Location: onCampus(),
		Subjects: []SubjectEntryInput{{Class: "10", Section: "A", SubjectName: "Math", Status: "Present"}},
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrDayAlreadyMarked))
	assert.Equal(t, 0, repo.appendCalls)
}

func TestSubmitSubjectCooldown(t *testing.T) {
	repo := &mockAttendanceRepo{}
	lister := &mockLocationLister{locations: mainCampus()}
	base := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)

	svc := newTestService(repo, lister, base)
	_, err := svc.Submit(context.Background(), "teacher-1", SubmitAttendanceRequest{
		Location: onCampus(),
		Subjects: []SubjectEntryInput{{Class: "10", Section: "A", SubjectName: "Math", Status: "Present"}},
	})
	require.NoError(t, err)

	// 10 minutes later: 15 minutes of cooldown remain.
	svc.now = func() time.Time { return base.Add(10 * time.Minute) }
	_, err = svc.Submit(context.Background(), "teacher-1", SubmitAttendanceRequest{
		Location: onCampus(),
		Subjects: []SubjectEntryInput{{Class: "10", Section: "B", SubjectName: "Physics", Status: "Present"}},
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrCooldownActive))
	assert.Contains(t, err.Error(), "15 more minute")

	// 26 minutes after the first entry: eligible again.
	svc.now = func() time.Time { return base.Add(26 * time.Minute) }
	result, err := svc.Submit(context.Background(), "teacher-1", SubmitAttendanceRequest{
		Location: onCampus(),
		Subjects: []SubjectEntryInput{{Class: "10", Section: "B", SubjectName: "Physics", Status: "Present"}},
	})
	require.NoError(t, err)
	assert.Len(t, result.Attendance.Subjects, 2)
}

func TestSubmitCooldownNeverUnderReported(t *testing.T) {
	repo := &mockAttendanceRepo{}
	base := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	svc := newTestService(repo, &mockLocationLister{locations: mainCampus()}, base)

	_, err := svc.Submit(context.Background(), "teacher-1", SubmitAttendanceRequest{
		Location: onCampus(),
		Subjects: []SubjectEntryInput{{Class: "10", Section: "A", SubjectName: "Math", Status: "Present"}},
	})
	require.NoError(t, err)

	// 10m30s elapsed leaves 14m30s; the teacher must be told 15.
	svc.now = func() time.Time { return base.Add(10*time.Minute + 30*time.Second) }
	_, err = svc.Submit(context.Background(), "teacher-1", SubmitAttendanceRequest{
		Location: onCampus(),
		Subjects: []SubjectEntryInput{{Class: "10", Section: "B", SubjectName: "Physics", Status: "Present"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "15 more minute")
}

func TestSubmitOutsideGeofenceNeverMutates(t *testing.T) {
	repo := &mockAttendanceRepo{}
	svc := newTestService(repo, &mockLocationLister{locations: mainCampus()}, time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC))

	// ~5.5km east of campus.
	_, err := svc.Submit(context.Background(), "teacher-1", SubmitAttendanceRequest{
		IsFullDay: true,
		Location:  &models.Coordinate{Latitude: 25.2, Longitude: 85.55},
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrOutsideGeofence))
	assert.Contains(t, err.Error(), "Main Campus")
	assert.Equal(t, 0, repo.createCalls)
	assert.Equal(t, 0, repo.appendCalls)
}

func TestSubmitEmptyRegistry(t *testing.T) {
	repo := &mockAttendanceRepo{}
	svc := newTestService(repo, &mockLocationLister{}, time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC))

	_, err := svc.Submit(context.Background(), "teacher-1", SubmitAttendanceRequest{IsFullDay: true, Location: onCampus()})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNoLocationsConfigured))
	assert.Equal(t, 0, repo.createCalls)
}

func TestSubmitValidationBeforeGeofence(t *testing.T) {
	repo := &mockAttendanceRepo{}
	lister := &mockLocationLister{locations: mainCampus()}
	svc := newTestService(repo, lister, time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC))

	// Missing subject name: rejected before any registry read.
	_, err := svc.Submit(context.Background(), "teacher-1", SubmitAttendanceRequest{
		Location: onCampus(),
		Subjects: []SubjectEntryInput{{Class: "10", Section: "A", Status: "Present"}},
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	assert.Equal(t, 0, lister.calls)
}

func TestSubmitLocationAcquisitionFailures(t *testing.T) {
	repo := &mockAttendanceRepo{}
	svc := newTestService(repo, &mockLocationLister{locations: mainCampus()}, time.Now())

	cases := map[string]*appErrors.Error{
		"permission_denied": appErrors.ErrLocationPermissionDenied,
		"timeout":           appErrors.ErrLocationTimeout,
		"unsupported":       appErrors.ErrLocationUnsupported,
	}
	for code, expected := range cases {
		_, err := svc.Submit(context.Background(), "teacher-1", SubmitAttendanceRequest{IsFullDay: true, LocationError: code})
		require.Error(t, err, code)
		assert.True(t, appErrors.Is(err, expected), code)
	}
	assert.Equal(t, 0, repo.createCalls)
}

func TestSubmitLostCreationRace(t *testing.T) {
	repo := &mockAttendanceRepo{createErr: repository.ErrDuplicateDay}
	svc := newTestService(repo, &mockLocationLister{locations: mainCampus()}, time.Now())

	_, err := svc.Submit(context.Background(), "teacher-1", SubmitAttendanceRequest{IsFullDay: true, Location: onCampus()})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrDayAlreadyMarked))
}

func TestSubmitLostAppendRace(t *testing.T) {
	repo := &mockAttendanceRepo{}
	base := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	svc := newTestService(repo, &mockLocationLister{locations: mainCampus()}, base)

	_, err := svc.Submit(context.Background(), "teacher-1", SubmitAttendanceRequest{
		Location: onCampus(),
		Subjects: []SubjectEntryInput{{Class: "10", Section: "A", SubjectName: "Math", Status: "Present"}},
	})
	require.NoError(t, err)

	repo.appendErr = repository.ErrStaleAppend
	svc.now = func() time.Time { return base.Add(30 * time.Minute) }
	_, err = svc.Submit(context.Background(), "teacher-1", SubmitAttendanceRequest{
		Location: onCampus(),
		Subjects: []SubjectEntryInput{{Class: "10", Section: "B", SubjectName: "Physics", Status: "Present"}},
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestTodayStatusUnmarked(t *testing.T) {
	repo := &mockAttendanceRepo{}
	svc := newTestService(repo, &mockLocationLister{}, time.Now())

	status, err := svc.TodayStatus(context.Background(), "teacher-1")
	require.NoError(t, err)
	assert.False(t, status.AlreadyMarked)
	assert.Nil(t, status.Attendance)
	assert.False(t, status.CanAddSubject)
	assert.Zero(t, status.RemainingMinutes)
}

func TestTodayStatusSubjectWise(t *testing.T) {
	repo := &mockAttendanceRepo{}
	base := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	svc := newTestService(repo, &mockLocationLister{locations: mainCampus()}, base)

	_, err := svc.Submit(context.Background(), "teacher-1", SubmitAttendanceRequest{
		Location: onCampus(),
		Subjects: []SubjectEntryInput{{Class: "10", Section: "A", SubjectName: "Math", Status: "Present"}},
	})
	require.NoError(t, err)

	svc.now = func() time.Time { return base.Add(10 * time.Minute) }
	status, err := svc.TodayStatus(context.Background(), "teacher-1")
	require.NoError(t, err)
	assert.True(t, status.AlreadyMarked)
	assert.False(t, status.CanAddSubject)
	assert.Equal(t, 15, status.RemainingMinutes)

	svc.now = func() time.Time { return base.Add(26 * time.Minute) }
	status, err = svc.TodayStatus(context.Background(), "teacher-1")
	require.NoError(t, err)
	assert.True(t, status.CanAddSubject)
	assert.Zero(t, status.RemainingMinutes)
}

func TestTodayStatusFullDayTerminal(t *testing.T) {
	repo := &mockAttendanceRepo{}
	svc := newTestService(repo, &mockLocationLister{locations: mainCampus()}, time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC))

	_, err := svc.Submit(context.Background(), "teacher-1", SubmitAttendanceRequest{IsFullDay: true, Location: onCampus()})
	require.NoError(t, err)

	status, err := svc.TodayStatus(context.Background(), "teacher-1")
	require.NoError(t, err)
	assert.True(t, status.AlreadyMarked)
	assert.False(t, status.CanAddSubject)
}

func TestRemainingCooldownMinutes(t *testing.T) {
	base := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, 25, remainingCooldownMinutes(base, base))
	assert.Equal(t, 15, remainingCooldownMinutes(base, base.Add(10*time.Minute)))
	assert.Equal(t, 15, remainingCooldownMinutes(base, base.Add(10*time.Minute+30*time.Second)))
	assert.Equal(t, 1, remainingCooldownMinutes(base, base.Add(24*time.Minute+59*time.Second)))
	assert.Equal(t, 0, remainingCooldownMinutes(base, base.Add(25*time.Minute)))
	assert.Equal(t, 0, remainingCooldownMinutes(base, base.Add(2*time.Hour)))
}
