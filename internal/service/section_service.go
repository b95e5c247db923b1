package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-enrollment-api/internal/models"
	"github.com/noah-isme/school-enrollment-api/internal/repository"
	appErrors "github.com/noah-isme/school-enrollment-api/pkg/errors"
)

const msgTeacherNotFound = "Teacher not found"

type sectionRepository interface {
	List(ctx context.Context) ([]models.SectionDetail, error)
	ListByGrade(ctx context.Context, gradeID int64) ([]models.SectionDetail, error)
	ListWithVacancies(ctx context.Context) ([]models.SectionDetail, error)
	FindByID(ctx context.Context, id int64) (*models.Section, error)
	FindDetailByID(ctx context.Context, id int64) (*models.SectionDetail, error)
	ExistsByGradeAndName(ctx context.Context, gradeID int64, name string, excludeID int64) (bool, error)
	Create(ctx context.Context, section *models.Section) error
	UpdateGuarded(ctx context.Context, section *models.Section, guard func(activeCount int) error) error
	DeleteGuarded(ctx context.Context, id int64, guard func(activeCount int) error) error
}

type gradeReader interface {
	FindByID(ctx context.Context, id int64) (*models.GradeDetail, error)
}

type teacherReader interface {
	FindByID(ctx context.Context, id int64) (*models.Teacher, error)
}

// SectionRequest is the payload for creating or updating a section.
type SectionRequest struct {
	GradeID     int64  `json:"grade_id" validate:"required,gt=0"`
	Name        string `json:"name" validate:"required,max=50"`
	MaxCapacity int    `json:"max_capacity" validate:"required,gt=0"`
	Shift       string `json:"shift" validate:"required"`
	TeacherID   *int64 `json:"teacher_id" validate:"omitempty,gt=0"`
}

// SectionService manages sections and their capacity.
type SectionService struct {
	repo        sectionRepository
	grades      gradeReader
	teachers    teacherReader
	validator   *validator.Validate
	invalidator statsInvalidator
	logger      *zap.Logger
}

// NewSectionService constructs SectionService.
func NewSectionService(repo sectionRepository, grades gradeReader, teachers teacherReader, validate *validator.Validate, invalidator statsInvalidator, logger *zap.Logger) *SectionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SectionService{
		repo:        repo,
		grades:      grades,
		teachers:    teachers,
		validator:   validate,
		invalidator: invalidatorOrNoop(invalidator),
		logger:      logger,
	}
}

// List returns every section with occupancy.
func (s *SectionService) List(ctx context.Context) ([]models.SectionDetail, error) {
	sections, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list sections")
	}
	return sections, nil
}

// ListByGrade returns the sections of an existing grade.
func (s *SectionService) ListByGrade(ctx context.Context, gradeID int64) ([]models.SectionDetail, error) {
	if _, err := s.grades.FindByID(ctx, gradeID); err != nil {
		return nil, lookupError(err, msgGradeNotFound, "failed to load grade")
	}
	sections, err := s.repo.ListByGrade(ctx, gradeID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list sections")
	}
	return sections, nil
}

// ListWithVacancies returns sections with free seats, most free first.
func (s *SectionService) ListWithVacancies(ctx context.Context) ([]models.SectionDetail, error) {
	sections, err := s.repo.ListWithVacancies(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list sections with vacancies")
	}
	return sections, nil
}

// Get returns a section with occupancy.
func (s *SectionService) Get(ctx context.Context, id int64) (*models.SectionDetail, error) {
	section, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, msgSectionNotFound, "failed to load section")
	}
	return section, nil
}

// Create registers a section after checking grade, teacher and name uniqueness.
func (s *SectionService) Create(ctx context.Context, req SectionRequest) (*models.SectionDetail, error) {
	section, err := s.prepare(ctx, 0, req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, section); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, duplicateSection(section)
		}
		return nil, appErrors.Internal(err, "failed to create section")
	}
	s.invalidator.InvalidateStatistics(ctx, "section created")
	return s.Get(ctx, section.ID)
}

// Update modifies a section. Capacity may not drop below the number of
// active enrollments.
func (s *SectionService) Update(ctx context.Context, id int64, req SectionRequest) (*models.SectionDetail, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, lookupError(err, msgSectionNotFound, "failed to load section")
	}
	section, err := s.prepare(ctx, id, req)
	if err != nil {
		return nil, err
	}
	section.ID = id

	err = s.repo.UpdateGuarded(ctx, section, func(active int) error {
		if section.MaxCapacity < active {
			return appErrors.Clone(appErrors.ErrConflict,
				fmt.Sprintf("Max capacity cannot be lower than the %d active enrollments", active))
		}
		return nil
	})
	if err != nil {
		switch {
		case isNoRows(err):
			return nil, appErrors.Clone(appErrors.ErrNotFound, msgSectionNotFound)
		case repository.IsUniqueViolation(err):
			return nil, duplicateSection(section)
		}
		return nil, passThrough(err, "failed to update section")
	}
	s.invalidator.InvalidateStatistics(ctx, "section updated")
	return s.Get(ctx, id)
}

// Delete removes a section that has no active enrollments.
func (s *SectionService) Delete(ctx context.Context, id int64) error {
	err := s.repo.DeleteGuarded(ctx, id, func(active int) error {
		if active > 0 {
			return appErrors.Clone(appErrors.ErrConflict, "Cannot delete a section with active enrollments")
		}
		return nil
	})
	if err != nil {
		switch {
		case isNoRows(err):
			return appErrors.Clone(appErrors.ErrNotFound, msgSectionNotFound)
		case repository.IsForeignKeyViolation(err):
			return appErrors.Clone(appErrors.ErrConflict, "Section still has enrollment history")
		}
		return passThrough(err, "failed to delete section")
	}
	s.invalidator.InvalidateStatistics(ctx, "section deleted")
	return nil
}

func (s *SectionService) prepare(ctx context.Context, id int64, req SectionRequest) (*models.Section, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid section payload")
	}
	shift, ok := NormalizeShift(req.Shift)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Invalid shift")
	}
	if _, err := s.grades.FindByID(ctx, req.GradeID); err != nil {
		return nil, lookupError(err, msgGradeNotFound, "failed to load grade")
	}
	if req.TeacherID != nil {
		if _, err := s.teachers.FindByID(ctx, *req.TeacherID); err != nil {
			return nil, lookupError(err, msgTeacherNotFound, "failed to load teacher")
		}
	}
	exists, err := s.repo.ExistsByGradeAndName(ctx, req.GradeID, req.Name, id)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to validate section name")
	}
	section := &models.Section{
		GradeID:     req.GradeID,
		Name:        req.Name,
		MaxCapacity: req.MaxCapacity,
		Shift:       shift,
		TeacherID:   req.TeacherID,
	}
	if exists {
		return nil, duplicateSection(section)
	}
	return section, nil
}

func duplicateSection(section *models.Section) error {
	return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("Section %q already exists in this grade", section.Name))
}
