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

type teacherRepository interface {
	List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	ExistsByEmail(ctx context.Context, email string, excludeID string) (bool, error)
	Create(ctx context.Context, teacher *models.Teacher) error
	Update(ctx context.Context, teacher *models.Teacher) error
	Deactivate(ctx context.Context, id string) error
}

// TeacherRequest is the payload for creating or updating a teacher.
type TeacherRequest struct {
	EmployeeNo *string `json:"employee_no" validate:"omitempty,max=32"`
	Email      string  `json:"email" validate:"required,email"`
	FullName   string  `json:"full_name" validate:"required,min=2,max=128"`
	Phone      *string `json:"phone" validate:"omitempty,max=20"`
	Subject    *string `json:"subject" validate:"omitempty,max=64"`
	Active     *bool   `json:"active"`
}

// TeacherListResult bundles a page of teachers with pagination metadata.
type TeacherListResult struct {
	Teachers   []models.Teacher  `json:"teachers"`
	Pagination models.Pagination `json:"pagination"`
}

// TeacherService implements teacher management use cases.
type TeacherService struct {
	repo      teacherRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService constructs a TeacherService.
func NewTeacherService(repo teacherRepository, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &TeacherService{repo: repo, validator: validate, logger: logger}
}

// List returns teachers matching the filter.
func (s *TeacherService) List(ctx context.Context, filter models.TeacherFilter) (*TeacherListResult, error) {
	teachers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	if teachers == nil {
		teachers = []models.Teacher{}
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}

	return &TeacherListResult{
		Teachers: teachers,
		Pagination: models.Pagination{
			Page:       page,
			PageSize:   size,
			TotalCount: total,
		},
	}, nil
}

// Get fetches a single teacher by ID.
func (s *TeacherService) Get(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch teacher")
	}
	return teacher, nil
}

// Create registers a new teacher.
func (s *TeacherService) Create(ctx context.Context, req TeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}

	exists, err := s.repo.ExistsByEmail(ctx, req.Email, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teacher email")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a teacher with this email already exists")
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	teacher := &models.Teacher{
		EmployeeNo: req.EmployeeNo,
		Email:      req.Email,
		FullName:   req.FullName,
		Phone:      req.Phone,
		Subject:    req.Subject,
		Active:     active,
	}
	if err := s.repo.Create(ctx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create teacher")
	}

	s.logger.Info("teacher created", zap.String("teacher_id", teacher.ID), zap.String("email", teacher.Email))
	return teacher, nil
}

// Update modifies an existing teacher.
func (s *TeacherService) Update(ctx context.Context, id string, req TeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}

	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch teacher")
	}

	exists, err := s.repo.ExistsByEmail(ctx, req.Email, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teacher email")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a teacher with this email already exists")
	}

	teacher.EmployeeNo = req.EmployeeNo
	teacher.Email = req.Email
	teacher.FullName = req.FullName
	teacher.Phone = req.Phone
	teacher.Subject = req.Subject
	if req.Active != nil {
		teacher.Active = *req.Active
	}
	teacher.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update teacher")
	}
	return teacher, nil
}

// Deactivate disables a teacher's account.
func (s *TeacherService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch teacher")
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate teacher")
	}
	s.logger.Info("teacher deactivated", zap.String("teacher_id", id))
	return nil
}
