package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-enrollment-api/internal/models"
	"github.com/noah-isme/school-enrollment-api/internal/repository"
	appErrors "github.com/noah-isme/school-enrollment-api/pkg/errors"
)

const msgTeacherDuplicate = "A teacher with this national ID already exists"

type teacherRepository interface {
	List(ctx context.Context, search string) ([]models.Teacher, error)
	FindByID(ctx context.Context, id int64) (*models.Teacher, error)
	ExistsByNationalID(ctx context.Context, nationalID string, excludeID int64) (bool, error)
	Create(ctx context.Context, teacher *models.Teacher) error
	Update(ctx context.Context, teacher *models.Teacher) error
	CountSections(ctx context.Context, id int64) (int, error)
	Delete(ctx context.Context, id int64) error
}

// TeacherRequest is the payload for creating or updating a teacher.
type TeacherRequest struct {
	Names      string `json:"names" validate:"required,max=100"`
	Surnames   string `json:"surnames" validate:"required,max=100"`
	NationalID string `json:"national_id" validate:"required,max=20"`
	Specialty  string `json:"specialty" validate:"required,max=100"`
	Phone      string `json:"phone" validate:"required,max=20"`
	Email      string `json:"email" validate:"required,email,max=150"`
}

func (r *TeacherRequest) normalize() {
	r.Names = strings.TrimSpace(r.Names)
	r.Surnames = strings.TrimSpace(r.Surnames)
	r.NationalID = strings.TrimSpace(r.NationalID)
	r.Specialty = strings.TrimSpace(r.Specialty)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

// TeacherService manages teacher records.
type TeacherService struct {
	repo        teacherRepository
	validator   *validator.Validate
	invalidator statsInvalidator
	logger      *zap.Logger
}

// NewTeacherService constructs TeacherService.
func NewTeacherService(repo teacherRepository, validate *validator.Validate, invalidator statsInvalidator, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{repo: repo, validator: validate, invalidator: invalidatorOrNoop(invalidator), logger: logger}
}

// List returns teachers, optionally filtered by a search term.
func (s *TeacherService) List(ctx context.Context, search string) ([]models.Teacher, error) {
	teachers, err := s.repo.List(ctx, search)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list teachers")
	}
	return teachers, nil
}

// Get returns a teacher by id.
func (s *TeacherService) Get(ctx context.Context, id int64) (*models.Teacher, error) {
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, msgTeacherNotFound, "failed to load teacher")
	}
	return teacher, nil
}

// Create registers a teacher with a unique national id.
func (s *TeacherService) Create(ctx context.Context, req TeacherRequest) (*models.Teacher, error) {
	req.normalize()
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid teacher payload")
	}
	if err := s.ensureUnique(ctx, req.NationalID, 0); err != nil {
		return nil, err
	}
	teacher := &models.Teacher{
		Names:      req.Names,
		Surnames:   req.Surnames,
		NationalID: req.NationalID,
		Specialty:  req.Specialty,
		Phone:      req.Phone,
		Email:      req.Email,
	}
	if err := s.repo.Create(ctx, teacher); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, msgTeacherDuplicate)
		}
		return nil, appErrors.Internal(err, "failed to create teacher")
	}
	s.invalidator.InvalidateStatistics(ctx, "teacher created")
	return teacher, nil
}

// Update modifies a teacher. National id uniqueness is re-checked only when it changes.
func (s *TeacherService) Update(ctx context.Context, id int64, req TeacherRequest) (*models.Teacher, error) {
	req.normalize()
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid teacher payload")
	}
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, msgTeacherNotFound, "failed to load teacher")
	}
	if req.NationalID != teacher.NationalID {
		if err := s.ensureUnique(ctx, req.NationalID, id); err != nil {
			return nil, err
		}
	}
	teacher.Names = req.Names
	teacher.Surnames = req.Surnames
	teacher.NationalID = req.NationalID
	teacher.Specialty = req.Specialty
	teacher.Phone = req.Phone
	teacher.Email = req.Email
	if err := s.repo.Update(ctx, teacher); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, msgTeacherDuplicate)
		}
		return nil, appErrors.Internal(err, "failed to update teacher")
	}
	return teacher, nil
}

// Delete removes a teacher who does not lead any section.
func (s *TeacherService) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return lookupError(err, msgTeacherNotFound, "failed to load teacher")
	}
	sections, err := s.repo.CountSections(ctx, id)
	if err != nil {
		return appErrors.Internal(err, "failed to check teacher sections")
	}
	if sections > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "Cannot delete a teacher assigned to sections")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if repository.IsForeignKeyViolation(err) {
			return appErrors.Clone(appErrors.ErrConflict, "Cannot delete a teacher assigned to sections")
		}
		return appErrors.Internal(err, "failed to delete teacher")
	}
	s.invalidator.InvalidateStatistics(ctx, "teacher deleted")
	return nil
}

func (s *TeacherService) ensureUnique(ctx context.Context, nationalID string, excludeID int64) error {
	exists, err := s.repo.ExistsByNationalID(ctx, nationalID, excludeID)
	if err != nil {
		return appErrors.Internal(err, "failed to validate national id")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, msgTeacherDuplicate)
	}
	return nil
}
