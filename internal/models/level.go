package models

import "time"

// Level is the root of the Level > Grade > Section hierarchy (e.g. primary, secondary).
type Level struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
