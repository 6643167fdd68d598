package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// SubjectStatus is the per-subject attendance status for a teacher.
type SubjectStatus string

const (
	SubjectStatusPresent SubjectStatus = "Present"
	SubjectStatusAbsent  SubjectStatus = "Absent"
	SubjectStatusLeave   SubjectStatus = "Leave"
)

// Valid returns true when the status is a supported value.
func (s SubjectStatus) Valid() bool {
	switch s {
	case SubjectStatusPresent, SubjectStatusAbsent, SubjectStatusLeave:
		return true
	default:
		return false
	}
}

// SubjectEntry is one subject-wise attendance entry. MarkedAt anchors the
// cooldown window for the next entry.
type SubjectEntry struct {
	Class       string        `json:"class"`
	Section     string        `json:"section"`
	SubjectName string        `json:"subject_name"`
	Status      SubjectStatus `json:"status"`
	MarkedAt    time.Time     `json:"marked_at"`
}

// SubjectEntryList stores the ordered subject entries as a JSONB column.
type SubjectEntryList []SubjectEntry

// Value implements driver.Valuer for JSONB storage.
func (l SubjectEntryList) Value() (driver.Value, error) {
	if l == nil {
		l = SubjectEntryList{}
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner for JSONB retrieval.
func (l *SubjectEntryList) Scan(src interface{}) error {
	if src == nil {
		*l = SubjectEntryList{}
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported subject entry list source %T", src)
	}
	return json.Unmarshal(data, l)
}

// TeacherAttendance is the single per-(teacher, date) attendance record. A
// full-day record carries no subject entries; a subject-wise record grows its
// entry list across the day.
type TeacherAttendance struct {
	ID        string           `db:"id" json:"id"`
	TeacherID string           `db:"teacher_id" json:"teacher_id"`
	Date      time.Time        `db:"date" json:"date"`
	IsFullDay bool             `db:"is_full_day" json:"is_full_day"`
	Subjects  SubjectEntryList `db:"subjects" json:"subjects"`
	Latitude  float64          `db:"latitude" json:"latitude"`
	Longitude float64          `db:"longitude" json:"longitude"`
	Remarks   *string          `db:"remarks" json:"remarks,omitempty"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// LastEntryAt returns when the most recent subject entry was added.
func (a *TeacherAttendance) LastEntryAt() (time.Time, bool) {
	if a == nil || len(a.Subjects) == 0 {
		return time.Time{}, false
	}
	return a.Subjects[len(a.Subjects)-1].MarkedAt, true
}

// TeacherAttendanceRecord extends the record with teacher metadata for lists.
type TeacherAttendanceRecord struct {
	TeacherAttendance
	TeacherName  string  `db:"teacher_name" json:"teacher_name"`
	TeacherEmail *string `db:"teacher_email" json:"teacher_email,omitempty"`
}

// TeacherAttendanceFilter defines query filters for admin listings.
type TeacherAttendanceFilter struct {
	TeacherID string
	DateFrom  *time.Time
	DateTo    *time.Time
	FullDay   *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// TodayAttendanceStatus is the pre-check contract for the teacher UI.
type TodayAttendanceStatus struct {
	AlreadyMarked    bool               `json:"already_marked"`
	Attendance       *TeacherAttendance `json:"attendance"`
	CanAddSubject    bool               `json:"can_add_subject"`
	RemainingMinutes int                `json:"remaining_minutes"`
}

// AttendanceReportRow is one line of the monthly per-teacher report.
type AttendanceReportRow struct {
	Date         time.Time `json:"date"`
	IsFullDay    bool      `json:"is_full_day"`
	SubjectCount int       `json:"subject_count"`
	Status       string    `json:"status"`
	Remarks      string    `json:"remarks"`
}
