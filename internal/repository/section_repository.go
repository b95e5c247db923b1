package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-enrollment-api/internal/models"
)

const sectionColumns = `id, grade_id, name, max_capacity, shift, teacher_id, created_at, updated_at`

const sectionDetailSelect = `SELECT s.id, s.grade_id, s.name, s.max_capacity, s.shift, s.teacher_id, s.created_at, s.updated_at,
        g.name AS grade_name, l.name AS level_name,
        CASE WHEN t.id IS NULL THEN NULL ELSE t.surnames || ', ' || t.names END AS teacher_name,
        COALESCE(ac.active_count, 0) AS active_count
        FROM sections s
        JOIN grades g ON g.id = s.grade_id
        JOIN levels l ON l.id = g.level_id
        LEFT JOIN teachers t ON t.id = s.teacher_id
        LEFT JOIN (SELECT section_id, COUNT(*) AS active_count FROM enrollments WHERE status = 'active' GROUP BY section_id) ac ON ac.section_id = s.id`

// SectionRepository persists sections and exposes occupancy views.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository constructs the repository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

// List returns every section with hierarchy names and active counts.
func (r *SectionRepository) List(ctx context.Context) ([]models.SectionDetail, error) {
	var sections []models.SectionDetail
	if err := r.db.SelectContext(ctx, &sections, sectionDetailSelect+` ORDER BY l.name ASC, g.name ASC, s.name ASC`); err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	return sections, nil
}

// ListByGrade returns the sections of one grade.
func (r *SectionRepository) ListByGrade(ctx context.Context, gradeID int64) ([]models.SectionDetail, error) {
	var sections []models.SectionDetail
	if err := r.db.SelectContext(ctx, &sections, sectionDetailSelect+` WHERE s.grade_id = $1 ORDER BY s.name ASC`, gradeID); err != nil {
		return nil, fmt.Errorf("list grade sections: %w", err)
	}
	return sections, nil
}

// ListWithVacancies returns sections whose active count is below capacity,
// most free seats first.
func (r *SectionRepository) ListWithVacancies(ctx context.Context) ([]models.SectionDetail, error) {
	const filter = ` WHERE COALESCE(ac.active_count, 0) < s.max_capacity
        ORDER BY (s.max_capacity - COALESCE(ac.active_count, 0)) DESC, s.id ASC`
	var sections []models.SectionDetail
	if err := r.db.SelectContext(ctx, &sections, sectionDetailSelect+filter); err != nil {
		return nil, fmt.Errorf("list sections with vacancies: %w", err)
	}
	return sections, nil
}

// FindByID returns the bare section row or sql.ErrNoRows.
func (r *SectionRepository) FindByID(ctx context.Context, id int64) (*models.Section, error) {
	var section models.Section
	if err := r.db.GetContext(ctx, &section, `SELECT `+sectionColumns+` FROM sections WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &section, nil
}

// FindDetailByID returns the enriched section or sql.ErrNoRows.
func (r *SectionRepository) FindDetailByID(ctx context.Context, id int64) (*models.SectionDetail, error) {
	var section models.SectionDetail
	if err := r.db.GetContext(ctx, &section, sectionDetailSelect+` WHERE s.id = $1`, id); err != nil {
		return nil, err
	}
	return &section, nil
}

// ExistsByGradeAndName checks the (grade, name) natural key.
func (r *SectionRepository) ExistsByGradeAndName(ctx context.Context, gradeID int64, name string, excludeID int64) (bool, error) {
	query := "SELECT 1 FROM sections WHERE grade_id = $1 AND LOWER(name) = LOWER($2)"
	args := []interface{}{gradeID, name}
	if excludeID != 0 {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check section name: %w", err)
	}
	return true, nil
}

// Create inserts a section and assigns its generated ID.
func (r *SectionRepository) Create(ctx context.Context, s *models.Section) error {
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now
	const query = `INSERT INTO sections (grade_id, name, max_capacity, shift, teacher_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query, s.GradeID, s.Name, s.MaxCapacity, s.Shift, s.TeacherID, s.CreatedAt, s.UpdatedAt).Scan(&s.ID); err != nil {
		return fmt.Errorf("create section: %w", err)
	}
	return nil
}

// UpdateGuarded locks the section row, hands the current active count to
// guard and applies the update only when guard returns nil. Returns
// sql.ErrNoRows when the section no longer exists.
func (r *SectionRepository) UpdateGuarded(ctx context.Context, s *models.Section, guard func(activeCount int) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update section tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = r.checkLocked(ctx, tx, s.ID, guard); err != nil {
		return err
	}

	s.UpdatedAt = time.Now().UTC()
	const query = `UPDATE sections SET grade_id = $2, name = $3, max_capacity = $4, shift = $5, teacher_id = $6, updated_at = $7 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, query, s.ID, s.GradeID, s.Name, s.MaxCapacity, s.Shift, s.TeacherID, s.UpdatedAt); err != nil {
		return fmt.Errorf("update section: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update section tx: %w", err)
	}
	return nil
}

// DeleteGuarded removes the section when guard accepts its active count.
func (r *SectionRepository) DeleteGuarded(ctx context.Context, id int64, guard func(activeCount int) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete section tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = r.checkLocked(ctx, tx, id, guard); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM sections WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete section: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete section tx: %w", err)
	}
	return nil
}

func (r *SectionRepository) checkLocked(ctx context.Context, tx *sqlx.Tx, id int64, guard func(int) error) error {
	if _, err := lockSection(ctx, tx, id); err != nil {
		return err
	}
	count, err := countActiveBySection(ctx, tx, id)
	if err != nil {
		return err
	}
	if guard != nil {
		return guard(count)
	}
	return nil
}

func lockSection(ctx context.Context, tx *sqlx.Tx, id int64) (*models.Section, error) {
	var section models.Section
	if err := tx.GetContext(ctx, &section, `SELECT `+sectionColumns+` FROM sections WHERE id = $1 FOR UPDATE`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock section: %w", err)
	}
	return &section, nil
}

func countActiveBySection(ctx context.Context, q sqlx.QueryerContext, sectionID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE section_id = $1 AND status = $2`
	var count int
	if err := sqlx.GetContext(ctx, q, &count, query, sectionID, models.EnrollmentStatusActive); err != nil {
		return 0, fmt.Errorf("count active enrollments: %w", err)
	}
	return count, nil
}
