package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatisticsRepositorySectionOccupancy(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStatisticsRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("LEFT JOIN enrollments e ON e.section_id = s.id AND e.status = $1")).
		WithArgs("active").
		WillReturnRows(sqlmock.NewRows([]string{"section_id", "section_name", "grade_name", "level_name", "max_capacity", "active_count"}).
			AddRow(1, "A", "1ro", "Primaria", 5, 5).
			AddRow(2, "B", "1ro", "Primaria", 5, 0))

	rows, err := repo.SectionOccupancy(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 0, rows[1].ActiveCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatisticsRepositoryActiveEnrollmentsByLevel(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStatisticsRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE e.academic_year_id = $1 AND e.status = $2")).
		WithArgs(int64(4), "active").
		WillReturnRows(sqlmock.NewRows([]string{"level_id", "level_name", "count"}).
			AddRow(1, "Primaria", 12).
			AddRow(2, "Secundaria", 8))

	rows, err := repo.ActiveEnrollmentsByLevel(context.Background(), 4)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 12, rows[0].Count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatisticsRepositoryCounts(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStatisticsRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(120))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM teachers")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(14))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments WHERE academic_year_id = $1 AND status = $2")).
		WithArgs(int64(4), "active").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(98))

	students, err := repo.CountStudents(context.Background())
	require.NoError(t, err)
	teachers, err := repo.CountTeachers(context.Background())
	require.NoError(t, err)
	enrolled, err := repo.CountActiveEnrollments(context.Background(), 4)
	require.NoError(t, err)

	assert.Equal(t, []int{120, 14, 98}, []int{students, teachers, enrolled})
	assert.NoError(t, mock.ExpectationsWereMet())
}
