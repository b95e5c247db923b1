package models

import "time"

// Grade belongs to exactly one Level.
type Grade struct {
	ID        int64     `db:"id" json:"id"`
	LevelID   int64     `db:"level_id" json:"level_id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// GradeDetail adds the owning level name.
type GradeDetail struct {
	Grade
	LevelName string `db:"level_name" json:"level_name"`
}
