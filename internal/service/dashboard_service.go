package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/school-enrollment-api/internal/dto"
	"github.com/noah-isme/school-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/school-enrollment-api/pkg/errors"
)

const topSectionsLimit = 5

type statisticsRepository interface {
	CountStudents(ctx context.Context) (int, error)
	CountTeachers(ctx context.Context) (int, error)
	CountActiveEnrollments(ctx context.Context, academicYearID int64) (int, error)
	ActiveEnrollmentsByLevel(ctx context.Context, academicYearID int64) ([]models.LevelEnrollmentCount, error)
	SectionOccupancy(ctx context.Context) ([]models.SectionOccupancy, error)
}

type activeYearReader interface {
	FindActive(ctx context.Context) (*models.AcademicYear, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL time.Duration
	TopN     int
}

// DashboardService computes the enrollment statistics shown on the panel.
type DashboardService struct {
	stats   statisticsRepository
	years   activeYearReader
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	cfg     DashboardServiceConfig
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Stats   statisticsRepository
	Years   activeYearReader
	Cache   *CacheService
	Metrics *MetricsService
	Logger  *zap.Logger
	Config  DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.TopN <= 0 {
		cfg.TopN = topSectionsLimit
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		stats:   params.Stats,
		years:   params.Years,
		cache:   params.Cache,
		metrics: params.Metrics,
		logger:  logger,
		cfg:     cfg,
	}
}

// Statistics returns the figures for the active academic year and whether
// they were served from cache. The version is read before computing, so a
// result raced by an invalidation is stored under a key no later read uses.
func (s *DashboardService) Statistics(ctx context.Context) (*dto.StatisticsResponse, bool, error) {
	year, err := s.years.FindActive(ctx)
	if err != nil {
		return nil, false, lookupError(err, "No active academic year", "failed to load active academic year")
	}

	version, cacheable := s.cache.Version(ctx, statisticsVersionKey)
	cacheKey := statisticsCacheKey(year.ID, version)
	if cacheable {
		var cached dto.StatisticsResponse
		if s.cache.Get(ctx, cacheKey, &cached) {
			return &cached, true, nil
		}
	}

	start := time.Now()
	summary, err := s.compute(ctx, year)
	if err != nil {
		return nil, false, err
	}
	s.metrics.ObserveQuery("statistics", time.Since(start))

	if cacheable {
		s.cache.Set(ctx, cacheKey, summary, s.cfg.CacheTTL)
	}
	return summary, false, nil
}

func (s *DashboardService) compute(ctx context.Context, year *models.AcademicYear) (*dto.StatisticsResponse, error) {
	students, err := s.stats.CountStudents(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to count students")
	}
	teachers, err := s.stats.CountTeachers(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to count teachers")
	}
	enrolled, err := s.stats.CountActiveEnrollments(ctx, year.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to count enrollments")
	}
	byLevel, err := s.stats.ActiveEnrollmentsByLevel(ctx, year.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to group enrollments by level")
	}
	occupancy, err := s.stats.SectionOccupancy(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load section occupancy")
	}

	levels := make([]dto.LevelCount, 0, len(byLevel))
	for _, row := range byLevel {
		levels = append(levels, dto.LevelCount{Level: row.LevelName, Count: row.Count})
	}

	top, vacant := rankSections(occupancy, s.cfg.TopN)
	return &dto.StatisticsResponse{
		AcademicYear:          dto.AcademicYearRef{ID: year.ID, Year: year.Year},
		TotalStudents:         students,
		TotalTeachers:         teachers,
		TotalEnrolled:         enrolled,
		StudentsByLevel:       levels,
		TopSections:           top,
		SectionsWithVacancies: vacant,
	}, nil
}

// rankSections returns the limit busiest sections (stable, descending by
// active count) and every section with free seats (stable, descending by
// vacancies). Input order breaks ties.
func rankSections(rows []models.SectionOccupancy, limit int) ([]dto.SectionEnrollment, []dto.SectionVacancy) {
	ranked := make([]dto.SectionEnrollment, 0, len(rows))
	vacant := make([]dto.SectionVacancy, 0, len(rows))
	for _, row := range rows {
		entry := dto.SectionEnrollment{
			SectionID:   row.SectionID,
			Section:     row.SectionName,
			Grade:       row.GradeName,
			Level:       row.LevelName,
			Enrolled:    row.ActiveCount,
			MaxCapacity: row.MaxCapacity,
		}
		ranked = append(ranked, entry)
		if row.ActiveCount < row.MaxCapacity {
			vacant = append(vacant, dto.SectionVacancy{SectionEnrollment: entry, Vacancies: row.MaxCapacity - row.ActiveCount})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Enrolled > ranked[j].Enrolled })
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	sort.SliceStable(vacant, func(i, j int) bool { return vacant[i].Vacancies > vacant[j].Vacancies })
	return ranked, vacant
}
