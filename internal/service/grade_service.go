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

const msgGradeNotFound = "Grade not found"

type gradeRepository interface {
	List(ctx context.Context) ([]models.GradeDetail, error)
	ListByLevel(ctx context.Context, levelID int64) ([]models.GradeDetail, error)
	FindByID(ctx context.Context, id int64) (*models.GradeDetail, error)
	Create(ctx context.Context, grade *models.Grade) error
	Update(ctx context.Context, grade *models.Grade) error
	Delete(ctx context.Context, id int64) error
}

type levelReader interface {
	FindByID(ctx context.Context, id int64) (*models.Level, error)
}

// GradeRequest is the payload for creating or updating a grade.
type GradeRequest struct {
	LevelID int64  `json:"level_id" validate:"required,gt=0"`
	Name    string `json:"name" validate:"required,max=100"`
}

// GradeService manages grades inside levels.
type GradeService struct {
	repo        gradeRepository
	levels      levelReader
	validator   *validator.Validate
	invalidator statsInvalidator
	logger      *zap.Logger
}

// NewGradeService constructs GradeService.
func NewGradeService(repo gradeRepository, levels levelReader, validate *validator.Validate, invalidator statsInvalidator, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{repo: repo, levels: levels, validator: validate, invalidator: invalidatorOrNoop(invalidator), logger: logger}
}

// List returns every grade.
func (s *GradeService) List(ctx context.Context) ([]models.GradeDetail, error) {
	grades, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list grades")
	}
	return grades, nil
}

// ListByLevel returns the grades of an existing level.
func (s *GradeService) ListByLevel(ctx context.Context, levelID int64) ([]models.GradeDetail, error) {
	if _, err := s.levels.FindByID(ctx, levelID); err != nil {
		return nil, lookupError(err, msgLevelNotFound, "failed to load level")
	}
	grades, err := s.repo.ListByLevel(ctx, levelID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list grades")
	}
	return grades, nil
}

// Get returns a grade by id.
func (s *GradeService) Get(ctx context.Context, id int64) (*models.GradeDetail, error) {
	grade, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, msgGradeNotFound, "failed to load grade")
	}
	return grade, nil
}

// Create registers a grade under an existing level.
func (s *GradeService) Create(ctx context.Context, req GradeRequest) (*models.GradeDetail, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid grade payload")
	}
	if _, err := s.levels.FindByID(ctx, req.LevelID); err != nil {
		return nil, lookupError(err, msgLevelNotFound, "failed to load level")
	}
	grade := &models.Grade{LevelID: req.LevelID, Name: req.Name}
	if err := s.repo.Create(ctx, grade); err != nil {
		return nil, appErrors.Internal(err, "failed to create grade")
	}
	return s.Get(ctx, grade.ID)
}

// Update renames a grade or moves it to another level.
func (s *GradeService) Update(ctx context.Context, id int64, req GradeRequest) (*models.GradeDetail, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid grade payload")
	}
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, msgGradeNotFound, "failed to load grade")
	}
	if req.LevelID != current.LevelID {
		if _, err := s.levels.FindByID(ctx, req.LevelID); err != nil {
			return nil, lookupError(err, msgLevelNotFound, "failed to load level")
		}
	}
	grade := current.Grade
	grade.LevelID, grade.Name = req.LevelID, req.Name
	if err := s.repo.Update(ctx, &grade); err != nil {
		return nil, appErrors.Internal(err, "failed to update grade")
	}
	s.invalidator.InvalidateStatistics(ctx, "grade updated")
	return s.Get(ctx, id)
}

// Delete removes a grade and its sections unless enrollments reference them.
func (s *GradeService) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return lookupError(err, msgGradeNotFound, "failed to load grade")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if repository.IsForeignKeyViolation(err) {
			return appErrors.Clone(appErrors.ErrConflict, "Grade has sections with enrollments")
		}
		return appErrors.Internal(err, "failed to delete grade")
	}
	s.invalidator.InvalidateStatistics(ctx, "grade deleted")
	return nil
}
