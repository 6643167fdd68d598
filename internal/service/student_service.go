package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/vidyalaya-labs/vidyalaya-api/internal/models"
	appErrors "github.com/vidyalaya-labs/vidyalaya-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Deactivate(ctx context.Context, id string) error
}

// StudentRequest is the payload for creating or updating a student.
type StudentRequest struct {
	RollNo    string `json:"roll_no" validate:"required,max=32"`
	FullName  string `json:"full_name" validate:"required,min=2,max=128"`
	Class     string `json:"class" validate:"required,max=16"`
	Section   string `json:"section" validate:"required,max=8"`
	Gender    string `json:"gender" validate:"required,oneof=male female other"`
	BirthDate string `json:"birth_date" validate:"required,datetime=2006-01-02"`
	Address   string `json:"address" validate:"max=256"`
	Phone     string `json:"phone" validate:"omitempty,max=20"`
	Active    *bool  `json:"active"`
}

// StudentListResult bundles a page of students with pagination metadata.
type StudentListResult struct {
	Students   []models.Student  `json:"students"`
	Pagination models.Pagination `json:"pagination"`
}

// StudentService implements student management use cases.
type StudentService struct {
	repo      studentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs a StudentService.
func NewStudentService(repo studentRepository, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &StudentService{repo: repo, validator: validate, logger: logger}
}

// List returns students matching the filter.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) (*StudentListResult, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	if students == nil {
		students = []models.Student{}
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}

	return &StudentListResult{
		Students: students,
		Pagination: models.Pagination{
			Page:       page,
			PageSize:   size,
			TotalCount: total,
		},
	}, nil
}

// Get fetches a single student by ID.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
	}
	return student, nil
}

// Create registers a new student.
func (s *StudentService) Create(ctx context.Context, req StudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	birthDate, err := time.Parse("2006-01-02", req.BirthDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "birth_date must be in YYYY-MM-DD format")
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	student := &models.Student{
		RollNo:    req.RollNo,
		FullName:  req.FullName,
		Class:     req.Class,
		Section:   req.Section,
		Gender:    req.Gender,
		BirthDate: birthDate,
		Address:   req.Address,
		Phone:     req.Phone,
		Active:    active,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}

	s.logger.Info("student created", zap.String("student_id", student.ID), zap.String("roll_no", student.RollNo))
	return student, nil
}

// Update modifies an existing student.
func (s *StudentService) Update(ctx context.Context, id string, req StudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
	}

	birthDate, err := time.Parse("2006-01-02", req.BirthDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "birth_date must be in YYYY-MM-DD format")
	}

	student.RollNo = req.RollNo
	student.FullName = req.FullName
	student.Class = req.Class
	student.Section = req.Section
	student.Gender = req.Gender
	student.BirthDate = birthDate
	student.Address = req.Address
	student.Phone = req.Phone
	if req.Active != nil {
		student.Active = *req.Active
	}
	student.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return student, nil
}

// Deactivate disables a student record.
func (s *StudentService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate student")
	}
	s.logger.Info("student deactivated", zap.String("student_id", id))
	return nil
}
