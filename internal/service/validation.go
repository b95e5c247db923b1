package service

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/noah-isme/school-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/school-enrollment-api/pkg/errors"
)

const dateLayout = "2006-01-02"

// Legacy panel clients still send Spanish labels.
var statusAliases = map[string]models.EnrollmentStatus{
	"active":    models.EnrollmentStatusActive,
	"activa":    models.EnrollmentStatusActive,
	"activo":    models.EnrollmentStatusActive,
	"withdrawn": models.EnrollmentStatusWithdrawn,
	"retirado":  models.EnrollmentStatusWithdrawn,
	"retirada":  models.EnrollmentStatusWithdrawn,
	"completed": models.EnrollmentStatusCompleted,
	"culminado": models.EnrollmentStatusCompleted,
	"culminada": models.EnrollmentStatusCompleted,
}

var shiftAliases = map[string]models.Shift{
	"morning":   models.ShiftMorning,
	"mañana":    models.ShiftMorning,
	"manana":    models.ShiftMorning,
	"afternoon": models.ShiftAfternoon,
	"tarde":     models.ShiftAfternoon,
}

// NormalizeStatus maps raw input onto an enrollment status, ignoring case and
// surrounding whitespace.
func NormalizeStatus(raw string) (models.EnrollmentStatus, bool) {
	status, ok := statusAliases[strings.ToLower(strings.TrimSpace(raw))]
	return status, ok
}

// NormalizeShift maps raw input onto a section shift.
func NormalizeShift(raw string) (models.Shift, bool) {
	shift, ok := shiftAliases[strings.ToLower(strings.TrimSpace(raw))]
	return shift, ok
}

// validateStatusTransition is the single place enrollment transitions are
// decided. Every status may currently move to every other, including itself.
func validateStatusTransition(from, to models.EnrollmentStatus) error {
	if _, ok := statusAliases[string(to)]; !ok {
		return appErrors.Clone(appErrors.ErrValidation, "Invalid status")
	}
	return nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// lookupError converts a repository lookup failure into NotFound or Internal.
func lookupError(err error, notFound, failure string) error {
	if isNoRows(err) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return appErrors.Internal(err, failure)
}

func validationError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

// passThrough returns typed domain errors unchanged and wraps the rest.
func passThrough(err error, failure string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Internal(err, failure)
}
