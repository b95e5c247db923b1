package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-enrollment-api/internal/dto"
	"github.com/noah-isme/school-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/school-enrollment-api/pkg/errors"
)

type fakeStatisticsRepo struct {
	students  int
	teachers  int
	enrolled  int
	byLevel   []models.LevelEnrollmentCount
	occupancy []models.SectionOccupancy
	err       error
	calls     int
	yearIDs   []int64
}

func (f *fakeStatisticsRepo) CountStudents(ctx context.Context) (int, error) {
	f.calls++
	return f.students, f.err
}

func (f *fakeStatisticsRepo) CountTeachers(ctx context.Context) (int, error) {
	return f.teachers, nil
}

func (f *fakeStatisticsRepo) CountActiveEnrollments(ctx context.Context, academicYearID int64) (int, error) {
	f.yearIDs = append(f.yearIDs, academicYearID)
	return f.enrolled, nil
}

func (f *fakeStatisticsRepo) ActiveEnrollmentsByLevel(ctx context.Context, academicYearID int64) ([]models.LevelEnrollmentCount, error) {
	return f.byLevel, nil
}

func (f *fakeStatisticsRepo) SectionOccupancy(ctx context.Context) ([]models.SectionOccupancy, error) {
	return f.occupancy, nil
}

func occupancy(name string, active, capacity int) models.SectionOccupancy {
	return models.SectionOccupancy{SectionID: int64(name[0]), SectionName: name, GradeName: "1st", LevelName: "Primary", ActiveCount: active, MaxCapacity: capacity}
}

func newStatisticsFixture() *fakeStatisticsRepo {
	return &fakeStatisticsRepo{
		students: 12,
		teachers: 4,
		enrolled: 12,
		byLevel: []models.LevelEnrollmentCount{
			{LevelID: 1, LevelName: "Primary", Count: 9},
			{LevelID: 2, LevelName: "Secondary", Count: 3},
		},
		occupancy: []models.SectionOccupancy{
			occupancy("A", 5, 5),
			occupancy("B", 3, 5),
			occupancy("C", 3, 10),
			occupancy("D", 1, 2),
		},
	}
}

func TestDashboardStatisticsRequiresActiveYear(t *testing.T) {
	stats := newStatisticsFixture()
	svc := NewDashboardService(DashboardServiceParams{Stats: stats, Years: &fakeYears{}})

	_, _, err := svc.Statistics(context.Background())
	assertAppError(t, err, appErrors.ErrNotFound, "No active academic year")
	assert.Zero(t, stats.calls)
}

func TestDashboardStatisticsComputesSummary(t *testing.T) {
	stats := newStatisticsFixture()
	years := &fakeYears{active: &models.AcademicYear{ID: 7, Year: 2025, IsActive: true}}
	svc := NewDashboardService(DashboardServiceParams{Stats: stats, Years: years, Metrics: NewMetricsService()})

	summary, hit, err := svc.Statistics(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, dto.AcademicYearRef{ID: 7, Year: 2025}, summary.AcademicYear)
	assert.Equal(t, 12, summary.TotalStudents)
	assert.Equal(t, 4, summary.TotalTeachers)
	assert.Equal(t, 12, summary.TotalEnrolled)
	assert.Equal(t, []dto.LevelCount{{Level: "Primary", Count: 9}, {Level: "Secondary", Count: 3}}, summary.StudentsByLevel)
	assert.Equal(t, []int64{7}, stats.yearIDs)
	assert.Len(t, summary.TopSections, 4)
	assert.Len(t, summary.SectionsWithVacancies, 3)
}

func TestDashboardStatisticsCaches(t *testing.T) {
	stats := newStatisticsFixture()
	years := &fakeYears{active: &models.AcademicYear{ID: 7, Year: 2025, IsActive: true}}
	repo := newMemoryCache()
	cache := NewCacheService(repo, nil, time.Minute, nil, true)
	svc := NewDashboardService(DashboardServiceParams{Stats: stats, Years: years, Cache: cache})

	first, hit, err := svc.Statistics(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Contains(t, repo.items, "dash:stats:7:0")

	second, hit, err := svc.Statistics(context.Background())
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, stats.calls)

	require.NoError(t, cache.Invalidate(context.Background(), statisticsCachePattern))
	_, hit, err = svc.Statistics(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, stats.calls)
}

func TestDashboardStatisticsCacheFailureFallsThrough(t *testing.T) {
	stats := newStatisticsFixture()
	years := &fakeYears{active: &models.AcademicYear{ID: 7, Year: 2025, IsActive: true}}
	repo := newMemoryCache()
	repo.getErr = errors.New("redis down")
	svc := NewDashboardService(DashboardServiceParams{Stats: stats, Years: years, Cache: NewCacheService(repo, nil, 0, nil, true)})

	summary, hit, err := svc.Statistics(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 12, summary.TotalStudents)
}

func TestDashboardStatisticsQueryFailure(t *testing.T) {
	stats := newStatisticsFixture()
	stats.err = errors.New("boom")
	years := &fakeYears{active: &models.AcademicYear{ID: 7, Year: 2025}}
	svc := NewDashboardService(DashboardServiceParams{Stats: stats, Years: years})

	_, _, err := svc.Statistics(context.Background())
	assertAppError(t, err, appErrors.ErrInternal, "failed to count students")
}

func TestRankSections(t *testing.T) {
	rows := newStatisticsFixture().occupancy

	top, vacant := rankSections(rows, 5)
	names := func(entries []dto.SectionEnrollment) []string {
		out := make([]string, 0, len(entries))
		for _, e := range entries {
			out = append(out, e.Section)
		}
		return out
	}
	assert.Equal(t, []string{"A", "B", "C", "D"}, names(top))

	require.Len(t, vacant, 3)
	assert.Equal(t, "C", vacant[0].Section)
	assert.Equal(t, 7, vacant[0].Vacancies)
	assert.Equal(t, "B", vacant[1].Section)
	assert.Equal(t, 2, vacant[1].Vacancies)
	assert.Equal(t, "D", vacant[2].Section)
	assert.Equal(t, 1, vacant[2].Vacancies)

	limited, _ := rankSections(rows, 2)
	assert.Equal(t, []string{"A", "B"}, names(limited))

	emptyTop, emptyVacant := rankSections(nil, 5)
	assert.Empty(t, emptyTop)
	assert.Empty(t, emptyVacant)
}

func TestRankSectionsKeepsInputOrderOnTies(t *testing.T) {
	rows := []models.SectionOccupancy{
		{SectionID: 30, SectionName: "Z", ActiveCount: 4, MaxCapacity: 6},
		{SectionID: 10, SectionName: "X", ActiveCount: 4, MaxCapacity: 6},
		{SectionID: 20, SectionName: "Y", ActiveCount: 5, MaxCapacity: 7},
		{SectionID: 5, SectionName: "W", ActiveCount: 4, MaxCapacity: 6},
	}

	top, vacant := rankSections(rows, 3)
	ids := make([]int64, 0, len(top))
	for _, e := range top {
		ids = append(ids, e.SectionID)
	}
	assert.Equal(t, []int64{20, 30, 10}, ids)

	vacantIDs := make([]int64, 0, len(vacant))
	for _, v := range vacant {
		assert.Equal(t, 2, v.Vacancies)
		vacantIDs = append(vacantIDs, v.SectionID)
	}
	assert.Equal(t, []int64{30, 10, 20, 5}, vacantIDs)
}

func TestRankSectionsEmpty(t *testing.T) {
	emptyTop, emptyVacant := rankSections(nil, 5)
	assert.Empty(t, emptyTop)
	assert.Empty(t, emptyVacant)
}

// racingStatisticsRepo commits an enrollment and invalidates while the
// occupancy query is in flight.
type racingStatisticsRepo struct {
	*fakeStatisticsRepo
	onOccupancy func()
}

func (r *racingStatisticsRepo) SectionOccupancy(ctx context.Context) ([]models.SectionOccupancy, error) {
	if r.onOccupancy != nil {
		hook := r.onOccupancy
		r.onOccupancy = nil
		hook()
	}
	return r.fakeStatisticsRepo.SectionOccupancy(ctx)
}

func TestDashboardStatisticsInvalidationDuringCompute(t *testing.T) {
	for _, full := range []bool{false, true} {
		t.Run(fmt.Sprintf("queue_full=%v", full), func(t *testing.T) {
			ctx := context.Background()
			cache := NewCacheService(newMemoryCache(), nil, time.Minute, nil, true)
			queue := newFakeQueue()
			queue.full = full
			inv := NewCacheInvalidator(queue, cache, nil, nil)

			stats := &racingStatisticsRepo{fakeStatisticsRepo: newStatisticsFixture()}
			stats.onOccupancy = func() {
				stats.enrolled++
				inv.InvalidateStatistics(ctx, "enrollment created")
				require.NoError(t, queue.drain(ctx))
			}
			years := &fakeYears{active: &models.AcademicYear{ID: 7, Year: 2025, IsActive: true}}
			svc := NewDashboardService(DashboardServiceParams{Stats: stats, Years: years, Cache: cache})

			first, hit, err := svc.Statistics(ctx)
			require.NoError(t, err)
			assert.False(t, hit)
			assert.Equal(t, 12, first.TotalEnrolled)

			second, hit, err := svc.Statistics(ctx)
			require.NoError(t, err)
			assert.False(t, hit)
			assert.Equal(t, 13, second.TotalEnrolled)

			third, hit, err := svc.Statistics(ctx)
			require.NoError(t, err)
			assert.True(t, hit)
			assert.Equal(t, 13, third.TotalEnrolled)
		})
	}
}

func TestDashboardStatisticsSkipsCacheWhenVersionUnreadable(t *testing.T) {
	stats := newStatisticsFixture()
	years := &fakeYears{active: &models.AcademicYear{ID: 7, Year: 2025, IsActive: true}}
	repo := newMemoryCache()
	repo.getErr = errors.New("redis down")
	svc := NewDashboardService(DashboardServiceParams{Stats: stats, Years: years, Cache: NewCacheService(repo, nil, 0, nil, true)})

	_, hit, err := svc.Statistics(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Zero(t, repo.setCalls)
}
