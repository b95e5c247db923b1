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

const enrollmentColumns = `id, student_id, section_id, academic_year_id, enrollment_date, status, created_at, updated_at`

const enrollmentDetailFrom = `FROM enrollments e
JOIN students st ON st.id = e.student_id
JOIN sections s ON s.id = e.section_id
JOIN grades g ON g.id = s.grade_id
JOIN levels l ON l.id = g.level_id
JOIN academic_years ay ON ay.id = e.academic_year_id`

const enrollmentDetailColumns = `e.id, e.student_id, e.section_id, e.academic_year_id, e.enrollment_date, e.status, e.created_at, e.updated_at,
        st.names AS student_names, st.surnames AS student_surnames, st.national_id AS student_national_id,
        s.name AS section_name, g.name AS grade_name, l.name AS level_name, ay.year`

// EnrollmentWriter is the set of operations available inside an enrollment
// transaction. Every read takes row locks so that guard checks and the write
// that follows them observe the same state.
type EnrollmentWriter interface {
	LockSection(ctx context.Context, sectionID int64) (*models.Section, error)
	LockEnrollment(ctx context.Context, id int64) (*models.Enrollment, error)
	FindExisting(ctx context.Context, studentID, sectionID, academicYearID int64) (*models.Enrollment, error)
	CountActiveBySection(ctx context.Context, sectionID int64) (int, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	UpdateStatus(ctx context.Context, id int64, status models.EnrollmentStatus) error
}

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// WithinTx runs fn inside one transaction, committing when fn returns nil.
func (r *EnrollmentRepository) WithinTx(ctx context.Context, fn func(EnrollmentWriter) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin enrollment tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(&enrollmentTx{tx: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit enrollment tx: %w", err)
	}
	return nil
}

// List returns enrollments filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	var conditions []string
	var args []interface{}

	if filter.StudentID != 0 {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.SectionID != 0 {
		conditions = append(conditions, fmt.Sprintf("e.section_id = $%d", len(args)+1))
		args = append(args, filter.SectionID)
	}
	if filter.AcademicYearID != 0 {
		conditions = append(conditions, fmt.Sprintf("e.academic_year_id = $%d", len(args)+1))
		args = append(args, filter.AcademicYearID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"enrollment_date": "e.enrollment_date",
		"student_name":    "st.surnames",
		"section_name":    "s.name",
		"year":            "ay.year",
	}
	orderBy, ok := allowedSorts[filter.SortBy]
	if !ok {
		orderBy = "e.enrollment_date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s %s ORDER BY %s %s, e.id ASC LIMIT %d OFFSET %d`,
		enrollmentDetailColumns, enrollmentDetailFrom+clause, orderBy, order, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+enrollmentDetailFrom+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// ListByStudent returns every enrollment of a student, newest first.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID int64) ([]models.EnrollmentDetail, error) {
	query := `SELECT ` + enrollmentDetailColumns + ` ` + enrollmentDetailFrom + ` WHERE e.student_id = $1 ORDER BY ay.year DESC, e.id DESC`
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, studentID); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return enrollments, nil
}

// ListBySection returns the roster of a section ordered by student surname.
func (r *EnrollmentRepository) ListBySection(ctx context.Context, sectionID int64) ([]models.EnrollmentDetail, error) {
	query := `SELECT ` + enrollmentDetailColumns + ` ` + enrollmentDetailFrom + ` WHERE e.section_id = $1 ORDER BY st.surnames ASC, st.names ASC, e.id ASC`
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, sectionID); err != nil {
		return nil, fmt.Errorf("list section enrollments: %w", err)
	}
	return enrollments, nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id int64) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, `SELECT `+enrollmentColumns+` FROM enrollments WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindDetailByID returns an enrollment with contextual info.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id int64) (*models.EnrollmentDetail, error) {
	var detail models.EnrollmentDetail
	query := `SELECT ` + enrollmentDetailColumns + ` ` + enrollmentDetailFrom + ` WHERE e.id = $1`
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Delete removes an enrollment.
func (r *EnrollmentRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM enrollments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	return nil
}

type enrollmentTx struct {
	tx *sqlx.Tx
}

func (t *enrollmentTx) LockSection(ctx context.Context, sectionID int64) (*models.Section, error) {
	return lockSection(ctx, t.tx, sectionID)
}

func (t *enrollmentTx) LockEnrollment(ctx context.Context, id int64) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	if err := t.tx.GetContext(ctx, &enrollment, `SELECT `+enrollmentColumns+` FROM enrollments WHERE id = $1 FOR UPDATE`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock enrollment: %w", err)
	}
	return &enrollment, nil
}

func (t *enrollmentTx) FindExisting(ctx context.Context, studentID, sectionID, academicYearID int64) (*models.Enrollment, error) {
	return findExisting(ctx, t.tx, studentID, sectionID, academicYearID)
}

func (t *enrollmentTx) CountActiveBySection(ctx context.Context, sectionID int64) (int, error) {
	return countActiveBySection(ctx, t.tx, sectionID)
}

func (t *enrollmentTx) Create(ctx context.Context, e *models.Enrollment) error {
	now := time.Now().UTC()
	if e.EnrollmentDate.IsZero() {
		e.EnrollmentDate = now
	}
	if e.Status == "" {
		e.Status = models.EnrollmentStatusActive
	}
	e.CreatedAt, e.UpdatedAt = now, now
	const query = `INSERT INTO enrollments (student_id, section_id, academic_year_id, enrollment_date, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	err := t.tx.QueryRowxContext(ctx, query, e.StudentID, e.SectionID, e.AcademicYearID, e.EnrollmentDate, e.Status, e.CreatedAt, e.UpdatedAt).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

func (t *enrollmentTx) UpdateStatus(ctx context.Context, id int64, status models.EnrollmentStatus) error {
	const query = `UPDATE enrollments SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := t.tx.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	return nil
}

func findExisting(ctx context.Context, q sqlx.QueryerContext, studentID, sectionID, academicYearID int64) (*models.Enrollment, error) {
	const query = `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE student_id = $1 AND section_id = $2 AND academic_year_id = $3 LIMIT 1`
	var enrollment models.Enrollment
	if err := sqlx.GetContext(ctx, q, &enrollment, query, studentID, sectionID, academicYearID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find existing enrollment: %w", err)
	}
	return &enrollment, nil
}
