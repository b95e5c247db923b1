package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-enrollment-api/internal/models"
)

const academicYearColumns = `id, year, is_active, created_at, updated_at`

// AcademicYearRepository persists academic years and owns the single-active invariant.
type AcademicYearRepository struct {
	db *sqlx.DB
}

// NewAcademicYearRepository constructs the repository.
func NewAcademicYearRepository(db *sqlx.DB) *AcademicYearRepository {
	return &AcademicYearRepository{db: db}
}

// List returns academic years, most recent first.
func (r *AcademicYearRepository) List(ctx context.Context) ([]models.AcademicYear, error) {
	var years []models.AcademicYear
	if err := r.db.SelectContext(ctx, &years, `SELECT `+academicYearColumns+` FROM academic_years ORDER BY year DESC`); err != nil {
		return nil, fmt.Errorf("list academic years: %w", err)
	}
	return years, nil
}

// FindByID returns an academic year or sql.ErrNoRows.
func (r *AcademicYearRepository) FindByID(ctx context.Context, id int64) (*models.AcademicYear, error) {
	var year models.AcademicYear
	if err := r.db.GetContext(ctx, &year, `SELECT `+academicYearColumns+` FROM academic_years WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &year, nil
}

// FindActive returns the active academic year or sql.ErrNoRows.
func (r *AcademicYearRepository) FindActive(ctx context.Context) (*models.AcademicYear, error) {
	var year models.AcademicYear
	if err := r.db.GetContext(ctx, &year, `SELECT `+academicYearColumns+` FROM academic_years WHERE is_active = TRUE LIMIT 1`); err != nil {
		return nil, err
	}
	return &year, nil
}

// ExistsByYear checks whether the calendar year is already registered.
func (r *AcademicYearRepository) ExistsByYear(ctx context.Context, year int, excludeID int64) (bool, error) {
	query := "SELECT 1 FROM academic_years WHERE year = $1"
	args := []interface{}{year}
	if excludeID != 0 {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check academic year: %w", err)
	}
	return true, nil
}

// Create inserts an academic year. When it is flagged active every other
// year is deactivated in the same transaction.
func (r *AcademicYearRepository) Create(ctx context.Context, year *models.AcademicYear) (err error) {
	now := time.Now().UTC()
	year.CreatedAt, year.UpdatedAt = now, now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create academic year tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if year.IsActive {
		if err = deactivateYears(ctx, tx, 0, now); err != nil {
			return err
		}
	}

	const query = `INSERT INTO academic_years (year, is_active, created_at, updated_at) VALUES ($1, $2, $3, $4) RETURNING id`
	if err = tx.QueryRowxContext(ctx, query, year.Year, year.IsActive, year.CreatedAt, year.UpdatedAt).Scan(&year.ID); err != nil {
		return fmt.Errorf("create academic year: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create academic year tx: %w", err)
	}
	return nil
}

// Update overwrites year and flag, clearing the flag elsewhere when set.
func (r *AcademicYearRepository) Update(ctx context.Context, year *models.AcademicYear) (err error) {
	year.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update academic year tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if year.IsActive {
		if err = deactivateYears(ctx, tx, year.ID, year.UpdatedAt); err != nil {
			return err
		}
	}

	const query = `UPDATE academic_years SET year = $2, is_active = $3, updated_at = $4 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, query, year.ID, year.Year, year.IsActive, year.UpdatedAt); err != nil {
		return fmt.Errorf("update academic year: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update academic year tx: %w", err)
	}
	return nil
}

// SetActive marks the provided year as active and deactivates the rest.
func (r *AcademicYearRepository) SetActive(ctx context.Context, id int64) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set active tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if err = deactivateYears(ctx, tx, id, now); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `UPDATE academic_years SET is_active = TRUE, updated_at = $2 WHERE id = $1`, id, now)
	if err != nil {
		return fmt.Errorf("activate academic year: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = sql.ErrNoRows
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit set active tx: %w", err)
	}
	return nil
}

// Delete removes an academic year; its enrollments cascade.
func (r *AcademicYearRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM academic_years WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete academic year: %w", err)
	}
	return nil
}

func deactivateYears(ctx context.Context, tx *sqlx.Tx, keepID int64, now time.Time) error {
	const query = `UPDATE academic_years SET is_active = FALSE, updated_at = $1 WHERE is_active = TRUE AND id <> $2`
	if _, err := tx.ExecContext(ctx, query, now, keepID); err != nil {
		return fmt.Errorf("deactivate academic years: %w", err)
	}
	return nil
}
