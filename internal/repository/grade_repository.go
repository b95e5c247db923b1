package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-enrollment-api/internal/models"
)

const gradeDetailSelect = `SELECT g.id, g.level_id, g.name, g.created_at, g.updated_at, l.name AS level_name
        FROM grades g
        JOIN levels l ON l.id = g.level_id`

// GradeRepository persists grades.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository constructs the repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// List returns all grades with their level name.
func (r *GradeRepository) List(ctx context.Context) ([]models.GradeDetail, error) {
	var grades []models.GradeDetail
	if err := r.db.SelectContext(ctx, &grades, gradeDetailSelect+` ORDER BY l.name ASC, g.name ASC`); err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}
	return grades, nil
}

// ListByLevel returns the grades of one level.
func (r *GradeRepository) ListByLevel(ctx context.Context, levelID int64) ([]models.GradeDetail, error) {
	var grades []models.GradeDetail
	if err := r.db.SelectContext(ctx, &grades, gradeDetailSelect+` WHERE g.level_id = $1 ORDER BY g.name ASC`, levelID); err != nil {
		return nil, fmt.Errorf("list level grades: %w", err)
	}
	return grades, nil
}

// FindByID returns a grade or sql.ErrNoRows.
func (r *GradeRepository) FindByID(ctx context.Context, id int64) (*models.GradeDetail, error) {
	var grade models.GradeDetail
	if err := r.db.GetContext(ctx, &grade, gradeDetailSelect+` WHERE g.id = $1`, id); err != nil {
		return nil, err
	}
	return &grade, nil
}

// Create inserts a grade and assigns its generated ID.
func (r *GradeRepository) Create(ctx context.Context, grade *models.Grade) error {
	now := time.Now().UTC()
	grade.CreatedAt, grade.UpdatedAt = now, now
	const query = `INSERT INTO grades (level_id, name, created_at, updated_at) VALUES ($1, $2, $3, $4) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query, grade.LevelID, grade.Name, grade.CreatedAt, grade.UpdatedAt).Scan(&grade.ID); err != nil {
		return fmt.Errorf("create grade: %w", err)
	}
	return nil
}

// Update modifies name and level.
func (r *GradeRepository) Update(ctx context.Context, grade *models.Grade) error {
	grade.UpdatedAt = time.Now().UTC()
	const query = `UPDATE grades SET level_id = $2, name = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, grade.ID, grade.LevelID, grade.Name, grade.UpdatedAt); err != nil {
		return fmt.Errorf("update grade: %w", err)
	}
	return nil
}

// Delete removes a grade; its sections cascade.
func (r *GradeRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM grades WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete grade: %w", err)
	}
	return nil
}
