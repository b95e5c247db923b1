package models

import "time"

// Shift is the part of the day a section meets.
type Shift string

const (
	ShiftMorning   Shift = "morning"
	ShiftAfternoon Shift = "afternoon"
)

// Section is a group of students inside a grade with a fixed capacity.
type Section struct {
	ID          int64     `db:"id" json:"id"`
	GradeID     int64     `db:"grade_id" json:"grade_id"`
	Name        string    `db:"name" json:"name"`
	MaxCapacity int       `db:"max_capacity" json:"max_capacity"`
	Shift       Shift     `db:"shift" json:"shift"`
	TeacherID   *int64    `db:"teacher_id" json:"teacher_id,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// SectionDetail enriches Section with its hierarchy, teacher and occupancy.
type SectionDetail struct {
	Section
	GradeName   string  `db:"grade_name" json:"grade_name"`
	LevelName   string  `db:"level_name" json:"level_name"`
	TeacherName *string `db:"teacher_name" json:"teacher_name,omitempty"`
	ActiveCount int     `db:"active_count" json:"active_count"`
}

// Vacancies is the number of free seats, never negative.
func (d SectionDetail) Vacancies() int {
	if v := d.MaxCapacity - d.ActiveCount; v > 0 {
		return v
	}
	return 0
}

// SectionOccupancy is one row of the statistics occupancy scan.
type SectionOccupancy struct {
	SectionID   int64  `db:"section_id" json:"section_id"`
	SectionName string `db:"section_name" json:"section_name"`
	GradeName   string `db:"grade_name" json:"grade_name"`
	LevelName   string `db:"level_name" json:"level_name"`
	MaxCapacity int    `db:"max_capacity" json:"max_capacity"`
	ActiveCount int    `db:"active_count" json:"active_count"`
}
