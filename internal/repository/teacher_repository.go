package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-enrollment-api/internal/models"
)

const teacherColumns = `id, names, surnames, national_id, specialty, phone, email, created_at, updated_at`

// TeacherRepository persists teachers.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs the repository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// List returns teachers ordered by surname, optionally matching search against
// names, surnames, national id and email.
func (r *TeacherRepository) List(ctx context.Context, search string) ([]models.Teacher, error) {
	query := `SELECT ` + teacherColumns + ` FROM teachers`
	var args []interface{}
	if term := strings.TrimSpace(search); term != "" {
		query += ` WHERE LOWER(names) LIKE $1 OR LOWER(surnames) LIKE $1 OR national_id LIKE $1 OR LOWER(email) LIKE $1`
		args = append(args, "%"+strings.ToLower(term)+"%")
	}
	query += ` ORDER BY surnames ASC, names ASC`

	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query, args...); err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}
	return teachers, nil
}

// FindByID returns a teacher or sql.ErrNoRows.
func (r *TeacherRepository) FindByID(ctx context.Context, id int64) (*models.Teacher, error) {
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, `SELECT `+teacherColumns+` FROM teachers WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// ExistsByNationalID checks whether another teacher already uses nationalID.
// Pass excludeID = 0 to check against every row.
func (r *TeacherRepository) ExistsByNationalID(ctx context.Context, nationalID string, excludeID int64) (bool, error) {
	query := "SELECT 1 FROM teachers WHERE national_id = $1"
	args := []interface{}{nationalID}
	if excludeID != 0 {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check teacher national id: %w", err)
	}
	return true, nil
}

// Create inserts a teacher and assigns its generated ID.
func (r *TeacherRepository) Create(ctx context.Context, t *models.Teacher) error {
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	const query = `INSERT INTO teachers (names, surnames, national_id, specialty, phone, email, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	err := r.db.QueryRowxContext(ctx, query, t.Names, t.Surnames, t.NationalID, t.Specialty, t.Phone, t.Email, t.CreatedAt, t.UpdatedAt).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("create teacher: %w", err)
	}
	return nil
}

// Update overwrites every mutable column.
func (r *TeacherRepository) Update(ctx context.Context, t *models.Teacher) error {
	t.UpdatedAt = time.Now().UTC()
	const query = `UPDATE teachers SET names = $2, surnames = $3, national_id = $4, specialty = $5, phone = $6, email = $7, updated_at = $8 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, t.ID, t.Names, t.Surnames, t.NationalID, t.Specialty, t.Phone, t.Email, t.UpdatedAt); err != nil {
		return fmt.Errorf("update teacher: %w", err)
	}
	return nil
}

// CountSections returns the number of sections the teacher leads.
func (r *TeacherRepository) CountSections(ctx context.Context, id int64) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM sections WHERE teacher_id = $1`, id); err != nil {
		return 0, fmt.Errorf("count teacher sections: %w", err)
	}
	return count, nil
}

// Delete removes a teacher.
func (r *TeacherRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM teachers WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete teacher: %w", err)
	}
	return nil
}
