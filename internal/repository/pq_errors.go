package repository

import (
	"errors"

	"github.com/lib/pq"
)

const (
	pqUniqueViolation     = pq.ErrorCode("23505")
	pqForeignKeyViolation = pq.ErrorCode("23503")

	singleActiveYearIndex = "uq_academic_years_single_active"
)

// IsUniqueViolation reports whether err carries a PostgreSQL unique-constraint failure.
func IsUniqueViolation(err error) bool {
	return hasPQCode(err, pqUniqueViolation)
}

// IsForeignKeyViolation reports whether err carries a PostgreSQL foreign-key failure.
func IsForeignKeyViolation(err error) bool {
	return hasPQCode(err, pqForeignKeyViolation)
}

// IsActiveYearConflict reports whether err was raised by the index allowing a
// single active academic year, which happens when two activations commit
// concurrently.
func IsActiveYearConflict(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation && pqErr.Constraint == singleActiveYearIndex
}

func hasPQCode(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == code
}
