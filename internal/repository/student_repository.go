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

const studentColumns = `id, names, surnames, national_id, birth_date, address, phone, created_at, updated_at`

// StudentRepository handles persistence for students.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a new repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students ordered by surname, optionally filtered by a search
// term matched against names, surnames and national id.
func (r *StudentRepository) List(ctx context.Context, search string) ([]models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students`
	var args []interface{}
	if term := strings.TrimSpace(search); term != "" {
		query += ` WHERE LOWER(names) LIKE $1 OR LOWER(surnames) LIKE $1 OR national_id LIKE $1`
		args = append(args, "%"+strings.ToLower(term)+"%")
	}
	query += ` ORDER BY surnames ASC, names ASC`

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// FindByID returns a student or sql.ErrNoRows.
func (r *StudentRepository) FindByID(ctx context.Context, id int64) (*models.Student, error) {
	var student models.Student
	if err := r.db.GetContext(ctx, &student, `SELECT `+studentColumns+` FROM students WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// ExistsByNationalID checks if a student with the national id exists optionally excluding an ID.
func (r *StudentRepository) ExistsByNationalID(ctx context.Context, nationalID string, excludeID int64) (bool, error) {
	query := "SELECT 1 FROM students WHERE national_id = $1"
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
		return false, fmt.Errorf("check student national id: %w", err)
	}
	return true, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, s *models.Student) error {
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now
	const query = `INSERT INTO students (names, surnames, national_id, birth_date, address, phone, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	err := r.db.QueryRowxContext(ctx, query, s.Names, s.Surnames, s.NationalID, s.BirthDate, s.Address, s.Phone, s.CreatedAt, s.UpdatedAt).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update modifies an existing student.
func (r *StudentRepository) Update(ctx context.Context, s *models.Student) error {
	s.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET names = $2, surnames = $3, national_id = $4, birth_date = $5, address = $6, phone = $7, updated_at = $8 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, s.ID, s.Names, s.Surnames, s.NationalID, s.BirthDate, s.Address, s.Phone, s.UpdatedAt); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// Delete removes a student; their enrollments cascade.
func (r *StudentRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return nil
}
