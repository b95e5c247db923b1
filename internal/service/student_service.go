package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-enrollment-api/internal/models"
	"github.com/noah-isme/school-enrollment-api/internal/repository"
	appErrors "github.com/noah-isme/school-enrollment-api/pkg/errors"
)

const msgStudentDuplicate = "A student with this national ID already exists"

type studentRepository interface {
	List(ctx context.Context, search string) ([]models.Student, error)
	FindByID(ctx context.Context, id int64) (*models.Student, error)
	ExistsByNationalID(ctx context.Context, nationalID string, excludeID int64) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id int64) error
}

// StudentRequest is the payload for creating or updating a student.
// BirthDate uses the YYYY-MM-DD layout.
type StudentRequest struct {
	Names      string `json:"names" validate:"required,max=100"`
	Surnames   string `json:"surnames" validate:"required,max=100"`
	NationalID string `json:"national_id" validate:"required,max=20"`
	BirthDate  string `json:"birth_date" validate:"required,datetime=2006-01-02"`
	Address    string `json:"address" validate:"required,max=255"`
	Phone      string `json:"phone" validate:"required,max=20"`
}

func (r *StudentRequest) normalize() {
	r.Names = strings.TrimSpace(r.Names)
	r.Surnames = strings.TrimSpace(r.Surnames)
	r.NationalID = strings.TrimSpace(r.NationalID)
	r.BirthDate = strings.TrimSpace(r.BirthDate)
	r.Address = strings.TrimSpace(r.Address)
	r.Phone = strings.TrimSpace(r.Phone)
}

// StudentService exposes business logic for students.
type StudentService struct {
	repo        studentRepository
	validator   *validator.Validate
	invalidator statsInvalidator
	logger      *zap.Logger
	now         func() time.Time
}

// NewStudentService constructs a StudentService.
func NewStudentService(repo studentRepository, validate *validator.Validate, invalidator statsInvalidator, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, validator: validate, invalidator: invalidatorOrNoop(invalidator), logger: logger, now: time.Now}
}

// List returns students, optionally filtered by a search term.
func (s *StudentService) List(ctx context.Context, search string) ([]models.Student, error) {
	students, err := s.repo.List(ctx, search)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list students")
	}
	return students, nil
}

// Get returns a student by id.
func (s *StudentService) Get(ctx context.Context, id int64) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, msgStudentNotFound, "failed to load student")
	}
	return student, nil
}

// Create registers a student with a unique national id.
func (s *StudentService) Create(ctx context.Context, req StudentRequest) (*models.Student, error) {
	birth, err := s.validate(&req)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, req.NationalID, 0); err != nil {
		return nil, err
	}
	student := &models.Student{
		Names:      req.Names,
		Surnames:   req.Surnames,
		NationalID: req.NationalID,
		BirthDate:  birth,
		Address:    req.Address,
		Phone:      req.Phone,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, msgStudentDuplicate)
		}
		return nil, appErrors.Internal(err, "failed to create student")
	}
	s.invalidator.InvalidateStatistics(ctx, "student created")
	return student, nil
}

// Update modifies a student. National id uniqueness is re-checked only when it changes.
func (s *StudentService) Update(ctx context.Context, id int64, req StudentRequest) (*models.Student, error) {
	birth, err := s.validate(&req)
	if err != nil {
		return nil, err
	}
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, msgStudentNotFound, "failed to load student")
	}
	if req.NationalID != student.NationalID {
		if err := s.ensureUnique(ctx, req.NationalID, id); err != nil {
			return nil, err
		}
	}
	student.Names = req.Names
	student.Surnames = req.Surnames
	student.NationalID = req.NationalID
	student.BirthDate = birth
	student.Address = req.Address
	student.Phone = req.Phone
	if err := s.repo.Update(ctx, student); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, msgStudentDuplicate)
		}
		return nil, appErrors.Internal(err, "failed to update student")
	}
	return student, nil
}

// Delete removes a student and, through the schema, their enrollments.
func (s *StudentService) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return lookupError(err, msgStudentNotFound, "failed to load student")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Internal(err, "failed to delete student")
	}
	s.invalidator.InvalidateStatistics(ctx, "student deleted")
	return nil
}

func (s *StudentService) validate(req *StudentRequest) (time.Time, error) {
	req.normalize()
	if err := s.validator.Struct(req); err != nil {
		return time.Time{}, validationError(err, "invalid student payload")
	}
	birth, err := time.Parse(dateLayout, req.BirthDate)
	if err != nil {
		return time.Time{}, validationError(err, "invalid birth date")
	}
	if birth.After(s.now().UTC()) {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "Birth date cannot be in the future")
	}
	return birth, nil
}

func (s *StudentService) ensureUnique(ctx context.Context, nationalID string, excludeID int64) error {
	exists, err := s.repo.ExistsByNationalID(ctx, nationalID, excludeID)
	if err != nil {
		return appErrors.Internal(err, "failed to validate national id")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, msgStudentDuplicate)
	}
	return nil
}
