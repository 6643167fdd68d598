package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/vidyalaya-labs/vidyalaya-api/internal/models"
)

// ErrDuplicateDay signals that a record already exists for the (teacher, date)
// pair. The unique index serialises record creation across concurrent requests.
var ErrDuplicateDay = errors.New("attendance record already exists for this date")

// ErrStaleAppend signals that a concurrent append won the race; the guarded
// update matched no rows.
var ErrStaleAppend = errors.New("attendance record changed concurrently")

// AttendanceRepository handles persistence for teacher attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// FindForDate loads the record for a teacher on a calendar date. Returns
// sql.ErrNoRows when the day is still unmarked.
func (r *AttendanceRepository) FindForDate(ctx context.Context, teacherID string, date time.Time) (*models.TeacherAttendance, error) {
	const query = `SELECT id, teacher_id, date, is_full_day, subjects, latitude, longitude, remarks, created_at, updated_at
FROM teacher_attendance WHERE teacher_id = $1 AND date = $2`
	var record models.TeacherAttendance
	if err := r.db.GetContext(ctx, &record, query, teacherID, date); err != nil {
		return nil, err
	}
	return &record, nil
}

// Create inserts the first record of the day. A unique violation on
// (teacher_id, date) is mapped to ErrDuplicateDay so the service can reject
// the losing submission without a second lookup.
func (r *AttendanceRepository) Create(ctx context.Context, record *models.TeacherAttendance) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	if record.Subjects == nil {
		record.Subjects = models.SubjectEntryList{}
	}

	const query = `INSERT INTO teacher_attendance (id, teacher_id, date, is_full_day, subjects, latitude, longitude, remarks, created_at, updated_at)
		VALUES (:id, :teacher_id, :date, :is_full_day, :subjects, :latitude, :longitude, :remarks, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ErrDuplicateDay
		}
		return fmt.Errorf("create attendance record: %w", err)
	}
	return nil
}

// AppendSubject appends one subject entry and refreshes the location snapshot.
// The update is guarded with the expected entry count so two concurrent
// appends cannot both commit; the loser gets ErrStaleAppend.
func (r *AttendanceRepository) AppendSubject(ctx context.Context, recordID string, entry models.SubjectEntry, coord models.Coordinate, expectedEntries int) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode subject entry: %w", err)
	}

	const query = `UPDATE teacher_attendance
SET subjects = subjects || $2::jsonb, latitude = $3, longitude = $4, updated_at = $5
WHERE id = $1 AND is_full_day = FALSE AND jsonb_array_length(subjects) = $6`
	res, err := r.db.ExecContext(ctx, query, recordID, payload, coord.Latitude, coord.Longitude, time.Now().UTC(), expectedEntries)
	if err != nil {
		return fmt.Errorf("append subject entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("append subject entry: %w", err)
	}
	if affected == 0 {
		return ErrStaleAppend
	}
	return nil
}

// List returns attendance records with teacher metadata for admin views.
func (r *AttendanceRepository) List(ctx context.Context, filter models.TeacherAttendanceFilter) ([]models.TeacherAttendanceRecord, int, error) {
	base := `FROM teacher_attendance ta
JOIN teachers t ON t.id = ta.teacher_id`
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.TeacherID != "" {
		where = append(where, fmt.Sprintf("ta.teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("ta.date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("ta.date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	if filter.FullDay != nil {
		where = append(where, fmt.Sprintf("ta.is_full_day = $%d", len(args)+1))
		args = append(args, *filter.FullDay)
	}
	whereClause := strings.Join(where, " AND ")

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"date":       "ta.date",
		"created_at": "ta.created_at",
		"teacher":    "t.full_name",
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "ta.date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT ta.id, ta.teacher_id, ta.date, ta.is_full_day, ta.subjects, ta.latitude, ta.longitude, ta.remarks, ta.created_at, ta.updated_at,
t.full_name AS teacher_name, t.email AS teacher_email
%s WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d`, base, whereClause, column, order, size, offset)
	var rows []models.TeacherAttendanceRecord
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance records: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance records: %w", err)
	}

	return rows, total, nil
}

// ListForRange returns a teacher's records inside a date range, oldest first.
func (r *AttendanceRepository) ListForRange(ctx context.Context, teacherID string, from, to time.Time) ([]models.TeacherAttendance, error) {
	const query = `SELECT id, teacher_id, date, is_full_day, subjects, latitude, longitude, remarks, created_at, updated_at
FROM teacher_attendance WHERE teacher_id = $1 AND date >= $2 AND date <= $3 ORDER BY date ASC`
	var records []models.TeacherAttendance
	if err := r.db.SelectContext(ctx, &records, query, teacherID, from, to); err != nil {
		return nil, fmt.Errorf("attendance range: %w", err)
	}
	return records, nil
}
