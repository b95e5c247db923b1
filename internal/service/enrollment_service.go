package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-enrollment-api/internal/models"
	"github.com/noah-isme/school-enrollment-api/internal/repository"
	appErrors "github.com/noah-isme/school-enrollment-api/pkg/errors"
)

const (
	msgStudentNotFound      = "Student not found"
	msgSectionNotFound      = "Section not found"
	msgAcademicYearNotFound = "Academic year not found"
	msgEnrollmentNotFound   = "Enrollment not found"
	msgAlreadyEnrolled      = "Student already enrolled in this section for this academic year"
	msgSectionFull          = "Section has reached maximum capacity"
	msgInvalidStatus        = "Invalid status"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	ListByStudent(ctx context.Context, studentID int64) ([]models.EnrollmentDetail, error)
	ListBySection(ctx context.Context, sectionID int64) ([]models.EnrollmentDetail, error)
	FindByID(ctx context.Context, id int64) (*models.Enrollment, error)
	FindDetailByID(ctx context.Context, id int64) (*models.EnrollmentDetail, error)
	Delete(ctx context.Context, id int64) error
	WithinTx(ctx context.Context, fn func(repository.EnrollmentWriter) error) error
}

type studentReader interface {
	FindByID(ctx context.Context, id int64) (*models.Student, error)
}

type sectionReader interface {
	FindByID(ctx context.Context, id int64) (*models.Section, error)
}

type academicYearReader interface {
	FindByID(ctx context.Context, id int64) (*models.AcademicYear, error)
}

// CreateEnrollmentRequest describes enrollment creation request.
type CreateEnrollmentRequest struct {
	StudentID      int64 `json:"student_id" validate:"required,gt=0"`
	SectionID      int64 `json:"section_id" validate:"required,gt=0"`
	AcademicYearID int64 `json:"academic_year_id" validate:"required,gt=0"`
}

// UpdateEnrollmentStatusRequest carries the raw status label.
type UpdateEnrollmentStatusRequest struct {
	Status string `json:"status"`
}

// EnrollmentService orchestrates enrollment workflows.
type EnrollmentService struct {
	repo        enrollmentRepository
	students    studentReader
	sections    sectionReader
	years       academicYearReader
	validator   *validator.Validate
	metrics     *MetricsService
	invalidator statsInvalidator
	logger      *zap.Logger
	now         func() time.Time
}

// EnrollmentServiceParams groups constructor dependencies.
type EnrollmentServiceParams struct {
	Repo        enrollmentRepository
	Students    studentReader
	Sections    sectionReader
	Years       academicYearReader
	Validator   *validator.Validate
	Metrics     *MetricsService
	Invalidator statsInvalidator
	Logger      *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(params EnrollmentServiceParams) *EnrollmentService {
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		repo:        params.Repo,
		students:    params.Students,
		sections:    params.Sections,
		years:       params.Years,
		validator:   validate,
		metrics:     params.Metrics,
		invalidator: invalidatorOrNoop(params.Invalidator),
		logger:      logger,
		now:         time.Now,
	}
}

// List returns enrollments with pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	if filter.Status != "" {
		status, ok := NormalizeStatus(string(filter.Status))
		if !ok {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, msgInvalidStatus)
		}
		filter.Status = status
	}
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list enrollments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return enrollments, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one enrollment with its context.
func (s *EnrollmentService) Get(ctx context.Context, id int64) (*models.EnrollmentDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, msgEnrollmentNotFound, "failed to load enrollment")
	}
	return detail, nil
}

// ListByStudent returns every enrollment of an existing student.
func (s *EnrollmentService) ListByStudent(ctx context.Context, studentID int64) ([]models.EnrollmentDetail, error) {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		return nil, lookupError(err, msgStudentNotFound, "failed to load student")
	}
	enrollments, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list student enrollments")
	}
	return enrollments, nil
}

// ListBySection returns the roster of an existing section.
func (s *EnrollmentService) ListBySection(ctx context.Context, sectionID int64) ([]models.EnrollmentDetail, error) {
	if _, err := s.sections.FindByID(ctx, sectionID); err != nil {
		return nil, lookupError(err, msgSectionNotFound, "failed to load section")
	}
	enrollments, err := s.repo.ListBySection(ctx, sectionID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list section enrollments")
	}
	return enrollments, nil
}

// Create enrolls a student. Checks run in order: student, section and year
// exist, no duplicate triple, free capacity. The last two run under a lock on
// the section row together with the insert.
func (s *EnrollmentService) Create(ctx context.Context, req CreateEnrollmentRequest) (*models.EnrollmentDetail, error) {
	const op = "create"
	if err := s.validator.Struct(req); err != nil {
		s.metrics.RecordEnrollment(op, OutcomeInvalid)
		return nil, validationError(err, "invalid enrollment payload")
	}

	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		return nil, s.reject(op, lookupError(err, msgStudentNotFound, "failed to load student"), req)
	}
	if _, err := s.sections.FindByID(ctx, req.SectionID); err != nil {
		return nil, s.reject(op, lookupError(err, msgSectionNotFound, "failed to load section"), req)
	}
	if _, err := s.years.FindByID(ctx, req.AcademicYearID); err != nil {
		return nil, s.reject(op, lookupError(err, msgAcademicYearNotFound, "failed to load academic year"), req)
	}

	enrollment := &models.Enrollment{
		StudentID:      req.StudentID,
		SectionID:      req.SectionID,
		AcademicYearID: req.AcademicYearID,
		EnrollmentDate: s.now().UTC(),
		Status:         models.EnrollmentStatusActive,
	}
	err := s.repo.WithinTx(ctx, func(w repository.EnrollmentWriter) error {
		section, err := w.LockSection(ctx, req.SectionID)
		if err != nil {
			return lookupError(err, msgSectionNotFound, "failed to lock section")
		}
		existing, err := w.FindExisting(ctx, req.StudentID, req.SectionID, req.AcademicYearID)
		if err != nil {
			return appErrors.Internal(err, "failed to check existing enrollment")
		}
		if existing != nil {
			return appErrors.Clone(appErrors.ErrConflict, msgAlreadyEnrolled)
		}
		if err := ensureCapacity(ctx, w, section); err != nil {
			return err
		}
		if err := w.Create(ctx, enrollment); err != nil {
			if repository.IsUniqueViolation(err) {
				return appErrors.Clone(appErrors.ErrConflict, msgAlreadyEnrolled)
			}
			return appErrors.Internal(err, "failed to create enrollment")
		}
		return nil
	})
	if err != nil {
		return nil, s.reject(op, passThrough(err, "failed to create enrollment"), req)
	}

	s.metrics.RecordEnrollment(op, OutcomeSuccess)
	s.invalidator.InvalidateStatistics(ctx, "enrollment created")
	s.logger.Info("enrollment created",
		zap.Int64("enrollment_id", enrollment.ID),
		zap.Int64("student_id", req.StudentID),
		zap.Int64("section_id", req.SectionID),
		zap.Int64("academic_year_id", req.AcademicYearID),
	)
	return s.detailOrBare(ctx, enrollment)
}

// UpdateStatus moves an enrollment to another status. Moving back into
// active re-checks section capacity.
func (s *EnrollmentService) UpdateStatus(ctx context.Context, id int64, req UpdateEnrollmentStatusRequest) (*models.EnrollmentDetail, error) {
	const op = "update_status"
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.rejectStatus(op, lookupError(err, msgEnrollmentNotFound, "failed to load enrollment"), id)
	}
	status, ok := NormalizeStatus(req.Status)
	if !ok {
		return nil, s.rejectStatus(op, appErrors.Clone(appErrors.ErrValidation, msgInvalidStatus), id)
	}
	if err := validateStatusTransition(current.Status, status); err != nil {
		return nil, s.rejectStatus(op, err, id)
	}

	err = s.repo.WithinTx(ctx, func(w repository.EnrollmentWriter) error {
		locked, err := w.LockEnrollment(ctx, id)
		if err != nil {
			return lookupError(err, msgEnrollmentNotFound, "failed to lock enrollment")
		}
		if status == models.EnrollmentStatusActive && locked.Status != models.EnrollmentStatusActive {
			section, err := w.LockSection(ctx, locked.SectionID)
			if err != nil {
				return lookupError(err, msgSectionNotFound, "failed to lock section")
			}
			if err := ensureCapacity(ctx, w, section); err != nil {
				return err
			}
		}
		if err := w.UpdateStatus(ctx, id, status); err != nil {
			return appErrors.Internal(err, "failed to update enrollment status")
		}
		return nil
	})
	if err != nil {
		return nil, s.rejectStatus(op, passThrough(err, "failed to update enrollment status"), id)
	}

	s.metrics.RecordEnrollment(op, OutcomeSuccess)
	if status != current.Status {
		s.invalidator.InvalidateStatistics(ctx, "enrollment status changed")
	}
	current.Status = status
	return s.detailOrBare(ctx, current)
}

// Delete removes an enrollment and returns the record as it was.
func (s *EnrollmentService) Delete(ctx context.Context, id int64) (*models.EnrollmentDetail, error) {
	const op = "delete"
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		return nil, s.rejectStatus(op, lookupError(err, msgEnrollmentNotFound, "failed to load enrollment"), id)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		s.metrics.RecordEnrollment(op, OutcomeError)
		return nil, appErrors.Internal(err, "failed to delete enrollment")
	}
	s.metrics.RecordEnrollment(op, OutcomeSuccess)
	s.invalidator.InvalidateStatistics(ctx, "enrollment deleted")
	return detail, nil
}

func ensureCapacity(ctx context.Context, w repository.EnrollmentWriter, section *models.Section) error {
	active, err := w.CountActiveBySection(ctx, section.ID)
	if err != nil {
		return appErrors.Internal(err, "failed to count active enrollments")
	}
	if active >= section.MaxCapacity {
		return appErrors.Clone(appErrors.ErrConflict, msgSectionFull)
	}
	return nil
}

func (s *EnrollmentService) detailOrBare(ctx context.Context, e *models.Enrollment) (*models.EnrollmentDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, e.ID)
	if err != nil {
		s.logger.Warn("enrollment detail unavailable", zap.Int64("enrollment_id", e.ID), zap.Error(err))
		return &models.EnrollmentDetail{Enrollment: *e}, nil
	}
	return detail, nil
}

func (s *EnrollmentService) reject(op string, err error, req CreateEnrollmentRequest) error {
	outcome := outcomeFor(err)
	s.metrics.RecordEnrollment(op, outcome)
	fields := []zap.Field{
		zap.String("outcome", outcome),
		zap.Int64("student_id", req.StudentID),
		zap.Int64("section_id", req.SectionID),
		zap.Int64("academic_year_id", req.AcademicYearID),
		zap.Error(err),
	}
	if outcome == OutcomeError {
		s.logger.Error("enrollment rejected", fields...)
	} else {
		s.logger.Info("enrollment rejected", fields...)
	}
	return err
}

func (s *EnrollmentService) rejectStatus(op string, err error, id int64) error {
	outcome := outcomeFor(err)
	s.metrics.RecordEnrollment(op, outcome)
	if outcome == OutcomeError {
		s.logger.Error("enrollment operation failed", zap.String("operation", op), zap.Int64("enrollment_id", id), zap.Error(err))
	}
	return err
}

func outcomeFor(err error) string {
	appErr := appErrors.FromError(err)
	switch {
	case appErr.Code == appErrors.ErrNotFound.Code:
		return OutcomeNotFound
	case appErr.Code == appErrors.ErrValidation.Code:
		return OutcomeInvalid
	case appErr.Message == msgAlreadyEnrolled:
		return OutcomeDuplicate
	case appErr.Message == msgSectionFull:
		return OutcomeCapacity
	default:
		return OutcomeError
	}
}
