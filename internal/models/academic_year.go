package models

import "time"

// AcademicYear is a school year. At most one is active at any time.
type AcademicYear struct {
	ID        int64     `db:"id" json:"id"`
	Year      int       `db:"year" json:"year"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
