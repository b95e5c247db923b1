package models

// LevelEnrollmentCount is the number of active enrollments under one level.
type LevelEnrollmentCount struct {
	LevelID   int64  `db:"level_id" json:"level_id"`
	LevelName string `db:"level_name" json:"level_name"`
	Count     int    `db:"count" json:"count"`
}
