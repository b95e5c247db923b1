package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/school-enrollment-api/pkg/errors"
)

type fakeLevelRepo struct {
	levels    map[int64]*models.Level
	deleteErr error
}

func (f *fakeLevelRepo) List(ctx context.Context) ([]models.Level, error) { return nil, nil }

func (f *fakeLevelRepo) FindByID(ctx context.Context, id int64) (*models.Level, error) {
	if l, ok := f.levels[id]; ok {
		clone := *l
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeLevelRepo) Create(ctx context.Context, level *models.Level) error {
	level.ID = int64(len(f.levels) + 1)
	f.levels[level.ID] = level
	return nil
}

func (f *fakeLevelRepo) Update(ctx context.Context, level *models.Level) error {
	f.levels[level.ID] = level
	return nil
}

func (f *fakeLevelRepo) Delete(ctx context.Context, id int64) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.levels, id)
	return nil
}

type fakeGradeRepo struct {
	grades map[int64]*models.GradeDetail
}

func (f *fakeGradeRepo) List(ctx context.Context) ([]models.GradeDetail, error) { return nil, nil }

func (f *fakeGradeRepo) ListByLevel(ctx context.Context, levelID int64) ([]models.GradeDetail, error) {
	var out []models.GradeDetail
	for _, g := range f.grades {
		if g.LevelID == levelID {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (f *fakeGradeRepo) FindByID(ctx context.Context, id int64) (*models.GradeDetail, error) {
	if g, ok := f.grades[id]; ok {
		clone := *g
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeGradeRepo) Create(ctx context.Context, grade *models.Grade) error {
	grade.ID = int64(len(f.grades) + 1)
	f.grades[grade.ID] = &models.GradeDetail{Grade: *grade, LevelName: "Primary"}
	return nil
}

func (f *fakeGradeRepo) Update(ctx context.Context, grade *models.Grade) error {
	f.grades[grade.ID] = &models.GradeDetail{Grade: *grade, LevelName: "Primary"}
	return nil
}

func (f *fakeGradeRepo) Delete(ctx context.Context, id int64) error {
	delete(f.grades, id)
	return nil
}

func TestGradeServiceCreate(t *testing.T) {
	levels := &fakeLevelRepo{levels: map[int64]*models.Level{1: {ID: 1, Name: "Primary"}}}
	svc := NewGradeService(&fakeGradeRepo{grades: map[int64]*models.GradeDetail{}}, levels, nil, nil, nil)

	grade, err := svc.Create(context.Background(), GradeRequest{LevelID: 1, Name: " 1st Grade "})
	require.NoError(t, err)
	assert.Equal(t, "1st Grade", grade.Name)
	assert.Equal(t, "Primary", grade.LevelName)

	_, err = svc.Create(context.Background(), GradeRequest{LevelID: 8, Name: "2nd"})
	assertAppError(t, err, appErrors.ErrNotFound, msgLevelNotFound)

	_, err = svc.Create(context.Background(), GradeRequest{LevelID: 1})
	assertAppError(t, err, appErrors.ErrValidation, "")
}

func TestGradeServiceListByLevel(t *testing.T) {
	levels := &fakeLevelRepo{levels: map[int64]*models.Level{1: {ID: 1, Name: "Primary"}}}
	repo := &fakeGradeRepo{grades: map[int64]*models.GradeDetail{
		1: {Grade: models.Grade{ID: 1, LevelID: 1, Name: "1st"}},
	}}
	svc := NewGradeService(repo, levels, nil, nil, nil)

	grades, err := svc.ListByLevel(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, grades, 1)

	_, err = svc.ListByLevel(context.Background(), 2)
	assertAppError(t, err, appErrors.ErrNotFound, msgLevelNotFound)
}

func TestLevelServiceDeleteBlockedByEnrollments(t *testing.T) {
	levels := &fakeLevelRepo{levels: map[int64]*models.Level{1: {ID: 1, Name: "Primary"}}, deleteErr: &pq.Error{Code: "23503"}}
	svc := NewLevelService(levels, nil, nil, nil)

	assertAppError(t, svc.Delete(context.Background(), 1), appErrors.ErrConflict, "Level has sections with enrollments")
	assertAppError(t, svc.Delete(context.Background(), 5), appErrors.ErrNotFound, msgLevelNotFound)
}

func TestLevelServiceUpdate(t *testing.T) {
	levels := &fakeLevelRepo{levels: map[int64]*models.Level{1: {ID: 1, Name: "Primary"}}}
	inv := &recordingInvalidator{}
	svc := NewLevelService(levels, nil, inv, nil)

	level, err := svc.Update(context.Background(), 1, LevelRequest{Name: "Elementary"})
	require.NoError(t, err)
	assert.Equal(t, "Elementary", level.Name)
	assert.Equal(t, []string{"level updated"}, inv.reasons)
}
