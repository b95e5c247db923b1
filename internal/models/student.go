package models

import "time"

// Student represents a learner registered in the institution.
type Student struct {
	ID         int64     `db:"id" json:"id"`
	Names      string    `db:"names" json:"names"`
	Surnames   string    `db:"surnames" json:"surnames"`
	NationalID string    `db:"national_id" json:"national_id"`
	BirthDate  time.Time `db:"birth_date" json:"birth_date"`
	Address    string    `db:"address" json:"address"`
	Phone      string    `db:"phone" json:"phone"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// FullName renders "Surnames, Names".
func (s Student) FullName() string {
	return s.Surnames + ", " + s.Names
}
