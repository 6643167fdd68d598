package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidyalaya-labs/vidyalaya-api/internal/models"
)

func newAttendanceRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAttendanceRepositoryFindForDate(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	date := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	subjects := `[{"class":"10","section":"A","subject_name":"Math","status":"Present","marked_at":"2026-08-30T09:00:00Z"}]`
	rows := sqlmock.NewRows([]string{"id", "teacher_id", "date", "is_full_day", "subjects", "latitude", "longitude", "remarks", "created_at", "updated_at"}).
		AddRow("att-1", "teacher-1", date, false, []byte(subjects), 25.2, 85.5, nil, time.Now(), time.Now())
	mock.ExpectQuery("SELECT id, teacher_id, date, is_full_day, subjects").
		WithArgs("teacher-1", date).
		WillReturnRows(rows)

	record, err := repo.FindForDate(context.Background(), "teacher-1", date)
	require.NoError(t, err)
	require.Len(t, record.Subjects, 1)
	assert.Equal(t, "Math", record.Subjects[0].SubjectName)
	assert.Equal(t, models.SubjectStatusPresent, record.Subjects[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectExec("INSERT INTO teacher_attendance").
		WithArgs(sqlmock.AnyArg(), "teacher-1", sqlmock.AnyArg(), true, sqlmock.AnyArg(), 25.2, 85.5, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	record := &models.TeacherAttendance{
		TeacherID: "teacher-1",
		Date:      time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC),
		IsFullDay: true,
		Latitude:  25.2,
		Longitude: 85.5,
	}
	require.NoError(t, repo.Create(context.Background(), record))
	assert.NotEmpty(t, record.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryCreateDuplicateDay(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectExec("INSERT INTO teacher_attendance").
		WillReturnError(&pq.Error{Code: "23505"})

	record := &models.TeacherAttendance{
		TeacherID: "teacher-1",
		Date:      time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC),
		IsFullDay: true,
	}
	err := repo.Create(context.Background(), record)
	assert.ErrorIs(t, err, ErrDuplicateDay)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryAppendSubject(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE teacher_attendance")).
		WithArgs("att-1", sqlmock.AnyArg(), 25.2, 85.5, sqlmock.AnyArg(), 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	entry := models.SubjectEntry{Class: "10", Section: "A", SubjectName: "Physics", Status: models.SubjectStatusPresent, MarkedAt: time.Now().UTC()}
	err := repo.AppendSubject(context.Background(), "att-1", entry, models.Coordinate{Latitude: 25.2, Longitude: 85.5}, 1)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryAppendSubjectLostRace(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	// Guarded update matches no rows when another append committed first.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE teacher_attendance")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	entry := models.SubjectEntry{Class: "10", Section: "A", SubjectName: "Physics", Status: models.SubjectStatusPresent, MarkedAt: time.Now().UTC()}
	err := repo.AppendSubject(context.Background(), "att-1", entry, models.Coordinate{}, 1)
	assert.ErrorIs(t, err, ErrStaleAppend)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryList(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "teacher_id", "date", "is_full_day", "subjects", "latitude", "longitude", "remarks", "created_at", "updated_at", "teacher_name", "teacher_email"}).
		AddRow("att-1", "teacher-1", now, true, []byte("[]"), 25.2, 85.5, nil, now, now, "Teacher A", "a@example.com")
	mock.ExpectQuery("SELECT ta.id, ta.teacher_id, ta.date").
		WithArgs("teacher-1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("teacher-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.TeacherAttendanceFilter{TeacherID: "teacher-1"})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Teacher A", list[0].TeacherName)
	assert.NoError(t, mock.ExpectationsWereMet())
}
