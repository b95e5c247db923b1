package models

import "time"

// Teacher represents an instructor who may own sections.
type Teacher struct {
	ID         int64     `db:"id" json:"id"`
	Names      string    `db:"names" json:"names"`
	Surnames   string    `db:"surnames" json:"surnames"`
	NationalID string    `db:"national_id" json:"national_id"`
	Specialty  string    `db:"specialty" json:"specialty"`
	Phone      string    `db:"phone" json:"phone"`
	Email      string    `db:"email" json:"email"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
