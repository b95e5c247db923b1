package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-enrollment-api/internal/models"
)

// StatisticsRepository runs the read-only aggregates behind the dashboard.
type StatisticsRepository struct {
	db *sqlx.DB
}

// NewStatisticsRepository constructs the repository.
func NewStatisticsRepository(db *sqlx.DB) *StatisticsRepository {
	return &StatisticsRepository{db: db}
}

// CountStudents returns the number of registered students.
func (r *StatisticsRepository) CountStudents(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM students`); err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return count, nil
}

// CountTeachers returns the number of registered teachers.
func (r *StatisticsRepository) CountTeachers(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM teachers`); err != nil {
		return 0, fmt.Errorf("count teachers: %w", err)
	}
	return count, nil
}

// CountActiveEnrollments counts active enrollments of an academic year.
func (r *StatisticsRepository) CountActiveEnrollments(ctx context.Context, academicYearID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE academic_year_id = $1 AND status = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, academicYearID, models.EnrollmentStatusActive); err != nil {
		return 0, fmt.Errorf("count active enrollments: %w", err)
	}
	return count, nil
}

// ActiveEnrollmentsByLevel groups active enrollments of an academic year by
// level through section and grade.
func (r *StatisticsRepository) ActiveEnrollmentsByLevel(ctx context.Context, academicYearID int64) ([]models.LevelEnrollmentCount, error) {
	const query = `SELECT l.id AS level_id, l.name AS level_name, COUNT(e.id) AS count
        FROM enrollments e
        JOIN sections s ON s.id = e.section_id
        JOIN grades g ON g.id = s.grade_id
        JOIN levels l ON l.id = g.level_id
        WHERE e.academic_year_id = $1 AND e.status = $2
        GROUP BY l.id, l.name
        ORDER BY l.name ASC`
	var rows []models.LevelEnrollmentCount
	if err := r.db.SelectContext(ctx, &rows, query, academicYearID, models.EnrollmentStatusActive); err != nil {
		return nil, fmt.Errorf("count enrollments by level: %w", err)
	}
	return rows, nil
}

// SectionOccupancy returns every section with its active enrollment count in
// section id order. Ranking is left to the caller.
func (r *StatisticsRepository) SectionOccupancy(ctx context.Context) ([]models.SectionOccupancy, error) {
	const query = `SELECT s.id AS section_id, s.name AS section_name, g.name AS grade_name, l.name AS level_name,
        s.max_capacity, COUNT(e.id) AS active_count
        FROM sections s
        JOIN grades g ON g.id = s.grade_id
        JOIN levels l ON l.id = g.level_id
        LEFT JOIN enrollments e ON e.section_id = s.id AND e.status = $1
        GROUP BY s.id, s.name, g.name, l.name, s.max_capacity
        ORDER BY s.id ASC`
	var rows []models.SectionOccupancy
	if err := r.db.SelectContext(ctx, &rows, query, models.EnrollmentStatusActive); err != nil {
		return nil, fmt.Errorf("section occupancy: %w", err)
	}
	return rows, nil
}
