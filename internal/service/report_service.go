package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/vidyalaya-labs/vidyalaya-api/internal/models"
	appErrors "github.com/vidyalaya-labs/vidyalaya-api/pkg/errors"
	"github.com/vidyalaya-labs/vidyalaya-api/pkg/export"
)

type attendanceRangeLister interface {
	ListForRange(ctx context.Context, teacherID string, from, to time.Time) ([]models.TeacherAttendance, error)
}

type reportTeacherFinder interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

// ExportFormat selects a rendering for attendance reports.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// MonthlyReport is the assembled per-teacher attendance report for one month.
type MonthlyReport struct {
	TeacherID     string                      `json:"teacher_id"`
	TeacherName   string                      `json:"teacher_name"`
	Month         string                      `json:"month"`
	FullDays      int                         `json:"full_days"`
	SubjectDays   int                         `json:"subject_days"`
	TotalSubjects int                         `json:"total_subjects"`
	Rows          []models.AttendanceReportRow `json:"rows"`
}

// ExportedReport carries rendered report bytes plus HTTP metadata.
type ExportedReport struct {
	FileName    string
	ContentType string
	Content     []byte
}

// ReportService assembles and exports teacher attendance reports.
type ReportService struct {
	attendance attendanceRangeLister
	teachers   reportTeacherFinder
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	logger     *zap.Logger
}

// NewReportService constructs a ReportService.
func NewReportService(attendance attendanceRangeLister, teachers reportTeacherFinder, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		attendance: attendance,
		teachers:   teachers,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		logger:     logger,
	}
}

// Monthly builds the report for one teacher and month ("2006-01").
func (s *ReportService) Monthly(ctx context.Context, teacherID, month string) (*MonthlyReport, error) {
	start, err := time.Parse("2006-01", month)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "month must be in YYYY-MM format")
	}
	end := start.AddDate(0, 1, -1)

	teacher, err := s.teachers.FindByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch teacher")
	}

	records, err := s.attendance.ListForRange(ctx, teacherID, start, end)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}

	report := &MonthlyReport{
		TeacherID:   teacher.ID,
		TeacherName: teacher.FullName,
		Month:       month,
		Rows:        make([]models.AttendanceReportRow, 0, len(records)),
	}
	for _, record := range records {
		row := models.AttendanceReportRow{
			Date:         record.Date,
			IsFullDay:    record.IsFullDay,
			SubjectCount: len(record.Subjects),
		}
		if record.IsFullDay {
			row.Status = "Full Day"
			report.FullDays++
		} else {
			row.Status = fmt.Sprintf("Subject Wise (%d)", len(record.Subjects))
			report.SubjectDays++
			report.TotalSubjects += len(record.Subjects)
		}
		if record.Remarks != nil {
			row.Remarks = *record.Remarks
		}
		report.Rows = append(report.Rows, row)
	}

	return report, nil
}

// Export renders the monthly report as CSV or PDF bytes.
func (s *ReportService) Export(ctx context.Context, teacherID, month string, format ExportFormat) (*ExportedReport, error) {
	report, err := s.Monthly(ctx, teacherID, month)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{
		Headers: []string{"Date", "Mode", "Subjects", "Remarks"},
		Rows:    make([]map[string]string, 0, len(report.Rows)),
	}
	for _, row := range report.Rows {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Date":     row.Date.Format("2006-01-02"),
			"Mode":     row.Status,
			"Subjects": strconv.Itoa(row.SubjectCount),
			"Remarks":  row.Remarks,
		})
	}

	fileBase := fmt.Sprintf("attendance-%s-%s", report.TeacherID, report.Month)
	switch format {
	case ExportFormatCSV:
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportedReport{
			FileName:    fileBase + ".csv",
			ContentType: "text/csv",
			Content:     content,
		}, nil
	case ExportFormatPDF:
		title := fmt.Sprintf("Attendance Report - %s (%s)", report.TeacherName, report.Month)
		content, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportedReport{
			FileName:    fileBase + ".pdf",
			ContentType: "application/pdf",
			Content:     content,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}
