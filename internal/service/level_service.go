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

const msgLevelNotFound = "Level not found"

type levelRepository interface {
	List(ctx context.Context) ([]models.Level, error)
	FindByID(ctx context.Context, id int64) (*models.Level, error)
	Create(ctx context.Context, level *models.Level) error
	Update(ctx context.Context, level *models.Level) error
	Delete(ctx context.Context, id int64) error
}

// LevelRequest is the payload for creating or renaming a level.
type LevelRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// LevelService manages education levels.
type LevelService struct {
	repo        levelRepository
	validator   *validator.Validate
	invalidator statsInvalidator
	logger      *zap.Logger
}

// NewLevelService constructs LevelService.
func NewLevelService(repo levelRepository, validate *validator.Validate, invalidator statsInvalidator, logger *zap.Logger) *LevelService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LevelService{repo: repo, validator: validate, invalidator: invalidatorOrNoop(invalidator), logger: logger}
}

// List returns every level.
func (s *LevelService) List(ctx context.Context) ([]models.Level, error) {
	levels, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list levels")
	}
	return levels, nil
}

// Get returns a level by id.
func (s *LevelService) Get(ctx context.Context, id int64) (*models.Level, error) {
	level, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, msgLevelNotFound, "failed to load level")
	}
	return level, nil
}

// Create registers a level.
func (s *LevelService) Create(ctx context.Context, req LevelRequest) (*models.Level, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid level payload")
	}
	level := &models.Level{Name: req.Name}
	if err := s.repo.Create(ctx, level); err != nil {
		return nil, appErrors.Internal(err, "failed to create level")
	}
	return level, nil
}

// Update renames a level.
func (s *LevelService) Update(ctx context.Context, id int64, req LevelRequest) (*models.Level, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid level payload")
	}
	level, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, msgLevelNotFound, "failed to load level")
	}
	level.Name = req.Name
	if err := s.repo.Update(ctx, level); err != nil {
		return nil, appErrors.Internal(err, "failed to update level")
	}
	s.invalidator.InvalidateStatistics(ctx, "level updated")
	return level, nil
}

// Delete removes a level together with its grades and sections. Sections
// that still hold enrollments block the delete.
func (s *LevelService) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return lookupError(err, msgLevelNotFound, "failed to load level")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if repository.IsForeignKeyViolation(err) {
			return appErrors.Clone(appErrors.ErrConflict, "Level has sections with enrollments")
		}
		return appErrors.Internal(err, "failed to delete level")
	}
	s.invalidator.InvalidateStatistics(ctx, "level deleted")
	return nil
}
