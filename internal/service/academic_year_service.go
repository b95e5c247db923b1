package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-enrollment-api/internal/models"
	"github.com/noah-isme/school-enrollment-api/internal/repository"
	appErrors "github.com/noah-isme/school-enrollment-api/pkg/errors"
)

type academicYearRepository interface {
	List(ctx context.Context) ([]models.AcademicYear, error)
	FindByID(ctx context.Context, id int64) (*models.AcademicYear, error)
	FindActive(ctx context.Context) (*models.AcademicYear, error)
	ExistsByYear(ctx context.Context, year int, excludeID int64) (bool, error)
	Create(ctx context.Context, year *models.AcademicYear) error
	Update(ctx context.Context, year *models.AcademicYear) error
	SetActive(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}

// AcademicYearRequest is the payload for creating or updating an academic year.
type AcademicYearRequest struct {
	Year     int  `json:"year" validate:"required,gte=2000,lte=2100"`
	IsActive bool `json:"is_active"`
}

// AcademicYearService manages academic years and the active-year singleton.
type AcademicYearService struct {
	repo        academicYearRepository
	validator   *validator.Validate
	invalidator statsInvalidator
	logger      *zap.Logger
}

// NewAcademicYearService constructs AcademicYearService.
func NewAcademicYearService(repo academicYearRepository, validate *validator.Validate, invalidator statsInvalidator, logger *zap.Logger) *AcademicYearService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AcademicYearService{repo: repo, validator: validate, invalidator: invalidatorOrNoop(invalidator), logger: logger}
}

// List returns academic years, most recent first.
func (s *AcademicYearService) List(ctx context.Context) ([]models.AcademicYear, error) {
	years, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list academic years")
	}
	return years, nil
}

// Get returns an academic year by id.
func (s *AcademicYearService) Get(ctx context.Context, id int64) (*models.AcademicYear, error) {
	year, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, msgAcademicYearNotFound, "failed to load academic year")
	}
	return year, nil
}

// GetActive returns the active academic year.
func (s *AcademicYearService) GetActive(ctx context.Context) (*models.AcademicYear, error) {
	year, err := s.repo.FindActive(ctx)
	if err != nil {
		return nil, lookupError(err, "No active academic year", "failed to load active academic year")
	}
	return year, nil
}

// Create registers a year. An active year replaces the current one atomically.
func (s *AcademicYearService) Create(ctx context.Context, req AcademicYearRequest) (*models.AcademicYear, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid academic year payload")
	}
	if err := s.ensureUnique(ctx, req.Year, 0); err != nil {
		return nil, err
	}
	year := &models.AcademicYear{Year: req.Year, IsActive: req.IsActive}
	if err := s.repo.Create(ctx, year); err != nil {
		if repository.IsActiveYearConflict(err) {
			return nil, concurrentActivation()
		}
		if repository.IsUniqueViolation(err) {
			return nil, duplicateYear(req.Year)
		}
		return nil, appErrors.Internal(err, "failed to create academic year")
	}
	if year.IsActive {
		s.activated(ctx, year)
	}
	return year, nil
}

// Update changes the calendar year and optionally activates it. Clearing the
// flag on the active year leaves the system without an active year.
func (s *AcademicYearService) Update(ctx context.Context, id int64, req AcademicYearRequest) (*models.AcademicYear, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid academic year payload")
	}
	year, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, msgAcademicYearNotFound, "failed to load academic year")
	}
	if req.Year != year.Year {
		if err := s.ensureUnique(ctx, req.Year, id); err != nil {
			return nil, err
		}
	}
	wasActive := year.IsActive
	year.Year, year.IsActive = req.Year, req.IsActive
	if err := s.repo.Update(ctx, year); err != nil {
		if repository.IsActiveYearConflict(err) {
			return nil, concurrentActivation()
		}
		if repository.IsUniqueViolation(err) {
			return nil, duplicateYear(req.Year)
		}
		return nil, appErrors.Internal(err, "failed to update academic year")
	}
	if year.IsActive || wasActive {
		s.activated(ctx, year)
	}
	return year, nil
}

// Activate makes id the only active academic year.
func (s *AcademicYearService) Activate(ctx context.Context, id int64) (*models.AcademicYear, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, lookupError(err, msgAcademicYearNotFound, "failed to load academic year")
	}
	if err := s.repo.SetActive(ctx, id); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, concurrentActivation()
		}
		return nil, lookupError(err, msgAcademicYearNotFound, "failed to activate academic year")
	}
	year, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, msgAcademicYearNotFound, "failed to load academic year")
	}
	s.activated(ctx, year)
	return year, nil
}

// Delete removes an academic year and its enrollments.
func (s *AcademicYearService) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return lookupError(err, msgAcademicYearNotFound, "failed to load academic year")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Internal(err, "failed to delete academic year")
	}
	s.invalidator.InvalidateStatistics(ctx, "academic year deleted")
	return nil
}

func (s *AcademicYearService) activated(ctx context.Context, year *models.AcademicYear) {
	s.logger.Info("active academic year changed", zap.Int64("academic_year_id", year.ID), zap.Int("year", year.Year), zap.Bool("is_active", year.IsActive))
	s.invalidator.InvalidateStatistics(ctx, "active academic year changed")
}

func (s *AcademicYearService) ensureUnique(ctx context.Context, year int, excludeID int64) error {
	exists, err := s.repo.ExistsByYear(ctx, year, excludeID)
	if err != nil {
		return appErrors.Internal(err, "failed to validate academic year")
	}
	if exists {
		return duplicateYear(year)
	}
	return nil
}

func duplicateYear(year int) error {
	return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("Academic year %d already exists", year))
}

func concurrentActivation() error {
	return appErrors.Clone(appErrors.ErrConflict, "Another academic year was activated concurrently")
}
