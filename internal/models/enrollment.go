package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusActive    EnrollmentStatus = "active"
	EnrollmentStatusWithdrawn EnrollmentStatus = "withdrawn"
	EnrollmentStatusCompleted EnrollmentStatus = "completed"
)

// Enrollment binds a student to a section within an academic year.
type Enrollment struct {
	ID             int64            `db:"id" json:"id"`
	StudentID      int64            `db:"student_id" json:"student_id"`
	SectionID      int64            `db:"section_id" json:"section_id"`
	AcademicYearID int64            `db:"academic_year_id" json:"academic_year_id"`
	EnrollmentDate time.Time        `db:"enrollment_date" json:"enrollment_date"`
	Status         EnrollmentStatus `db:"status" json:"status"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// EnrollmentDetail enriches Enrollment with student, section and year info.
type EnrollmentDetail struct {
	Enrollment
	StudentNames      string `db:"student_names" json:"student_names"`
	StudentSurnames   string `db:"student_surnames" json:"student_surnames"`
	StudentNationalID string `db:"student_national_id" json:"student_national_id"`
	SectionName       string `db:"section_name" json:"section_name"`
	GradeName         string `db:"grade_name" json:"grade_name"`
	LevelName         string `db:"level_name" json:"level_name"`
	Year              int    `db:"year" json:"year"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID      int64
	SectionID      int64
	AcademicYearID int64
	Status         EnrollmentStatus
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}
