package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/school-enrollment-api/pkg/errors"
)

type fakeAcademicYearRepo struct {
	years    map[int64]*models.AcademicYear
	writeErr error
}

func (f *fakeAcademicYearRepo) List(ctx context.Context) ([]models.AcademicYear, error) {
	return nil, nil
}

func (f *fakeAcademicYearRepo) FindByID(ctx context.Context, id int64) (*models.AcademicYear, error) {
	if y, ok := f.years[id]; ok {
		clone := *y
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAcademicYearRepo) FindActive(ctx context.Context) (*models.AcademicYear, error) {
	for _, y := range f.years {
		if y.IsActive {
			clone := *y
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAcademicYearRepo) ExistsByYear(ctx context.Context, year int, excludeID int64) (bool, error) {
	for id, y := range f.years {
		if id != excludeID && y.Year == year {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAcademicYearRepo) Create(ctx context.Context, year *models.AcademicYear) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	year.ID = int64(len(f.years) + 1)
	f.store(year)
	return nil
}

func (f *fakeAcademicYearRepo) Update(ctx context.Context, year *models.AcademicYear) error {
	f.store(year)
	return nil
}

func (f *fakeAcademicYearRepo) SetActive(ctx context.Context, id int64) error {
	y, ok := f.years[id]
	if !ok {
		return sql.ErrNoRows
	}
	if f.writeErr != nil {
		return f.writeErr
	}
	clone := *y
	clone.IsActive = true
	f.store(&clone)
	return nil
}

func (f *fakeAcademicYearRepo) Delete(ctx context.Context, id int64) error {
	delete(f.years, id)
	return nil
}

// store mirrors the repository: activating one year clears the flag elsewhere.
func (f *fakeAcademicYearRepo) store(year *models.AcademicYear) {
	if year.IsActive {
		for _, other := range f.years {
			other.IsActive = false
		}
	}
	clone := *year
	f.years[year.ID] = &clone
}

func activeCount(years map[int64]*models.AcademicYear) int {
	n := 0
	for _, y := range years {
		if y.IsActive {
			n++
		}
	}
	return n
}

func TestAcademicYearServiceSingleActive(t *testing.T) {
	repo := &fakeAcademicYearRepo{years: map[int64]*models.AcademicYear{}}
	inv := &recordingInvalidator{}
	svc := NewAcademicYearService(repo, nil, inv, nil)
	ctx := context.Background()

	y2024, err := svc.Create(ctx, AcademicYearRequest{Year: 2024, IsActive: true})
	require.NoError(t, err)
	y2025, err := svc.Create(ctx, AcademicYearRequest{Year: 2025, IsActive: true})
	require.NoError(t, err)
	assert.Equal(t, 1, activeCount(repo.years))

	active, err := svc.GetActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, y2025.ID, active.ID)

	activated, err := svc.Activate(ctx, y2024.ID)
	require.NoError(t, err)
	assert.True(t, activated.IsActive)
	assert.Equal(t, 1, activeCount(repo.years))
	assert.False(t, repo.years[y2025.ID].IsActive)
	assert.Len(t, inv.reasons, 3)
}

func TestAcademicYearServiceValidation(t *testing.T) {
	repo := &fakeAcademicYearRepo{years: map[int64]*models.AcademicYear{1: {ID: 1, Year: 2024}}}
	svc := NewAcademicYearService(repo, nil, nil, nil)

	_, err := svc.Create(context.Background(), AcademicYearRequest{Year: 1999})
	assertAppError(t, err, appErrors.ErrValidation, "")

	_, err = svc.Create(context.Background(), AcademicYearRequest{Year: 2024})
	assertAppError(t, err, appErrors.ErrConflict, "Academic year 2024 already exists")

	_, err = svc.Activate(context.Background(), 42)
	assertAppError(t, err, appErrors.ErrNotFound, msgAcademicYearNotFound)
}

func TestAcademicYearServiceNoActive(t *testing.T) {
	svc := NewAcademicYearService(&fakeAcademicYearRepo{years: map[int64]*models.AcademicYear{}}, nil, nil, nil)

	_, err := svc.GetActive(context.Background())
	assertAppError(t, err, appErrors.ErrNotFound, "No active academic year")
}

func TestAcademicYearServiceConcurrentActivation(t *testing.T) {
	repo := &fakeAcademicYearRepo{years: map[int64]*models.AcademicYear{
		1: {ID: 1, Year: 2024, IsActive: true},
		2: {ID: 2, Year: 2025},
	}}
	repo.writeErr = fmt.Errorf("commit set active tx: %w", &pq.Error{Code: "23505", Constraint: "uq_academic_years_single_active"})
	inv := &recordingInvalidator{}
	svc := NewAcademicYearService(repo, nil, inv, nil)

	_, err := svc.Activate(context.Background(), 2)
	assertAppError(t, err, appErrors.ErrConflict, "Another academic year was activated concurrently")

	_, err = svc.Create(context.Background(), AcademicYearRequest{Year: 2026, IsActive: true})
	assertAppError(t, err, appErrors.ErrConflict, "Another academic year was activated concurrently")

	assert.True(t, repo.years[1].IsActive)
	assert.Empty(t, inv.reasons)
}
