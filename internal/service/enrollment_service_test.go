package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/school-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/school-enrollment-api/pkg/errors"
)

type enrollmentFixture struct {
	svc         *EnrollmentService
	store       *fakeEnrollmentStore
	students    fakeStudents
	years       *fakeYears
	invalidator *recordingInvalidator
	metrics     *MetricsService
}

func newEnrollmentFixture(capacity int) *enrollmentFixture {
	store := newFakeEnrollmentStore(&models.Section{ID: 10, GradeID: 1, Name: "A", MaxCapacity: capacity, Shift: models.ShiftMorning})
	students := fakeStudents{}
	for id := int64(1); id <= 5; id++ {
		students[id] = &models.Student{ID: id, Names: "Student", Surnames: "Test"}
	}
	years := &fakeYears{years: map[int64]*models.AcademicYear{2025: {ID: 2025, Year: 2025, IsActive: true}}}
	inv := &recordingInvalidator{}
	metrics := NewMetricsService()
	svc := NewEnrollmentService(EnrollmentServiceParams{
		Repo:        store,
		Students:    students,
		Sections:    fakeSectionReader{store: store},
		Years:       years,
		Metrics:     metrics,
		Invalidator: inv,
		Logger:      zap.NewNop(),
	})
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC) }
	return &enrollmentFixture{svc: svc, store: store, students: students, years: years, invalidator: inv, metrics: metrics}
}

func enrollReq(studentID int64) CreateEnrollmentRequest {
	return CreateEnrollmentRequest{StudentID: studentID, SectionID: 10, AcademicYearID: 2025}
}

func assertAppError(t *testing.T, err error, target *appErrors.Error, message string) {
	t.Helper()
	require.Error(t, err)
	assert.ErrorIs(t, err, target)
	if message != "" {
		assert.Equal(t, message, appErrors.FromError(err).Message)
	}
}

func TestEnrollmentServiceCreate(t *testing.T) {
	f := newEnrollmentFixture(2)

	detail, err := f.svc.Create(context.Background(), enrollReq(1))
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusActive, detail.Status)
	assert.Equal(t, "A", detail.SectionName)
	assert.Equal(t, time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC), detail.EnrollmentDate)
	assert.Equal(t, []string{"enrollment created"}, f.invalidator.reasons)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.enrollmentOps.WithLabelValues("create", OutcomeSuccess)))
}

func TestEnrollmentServiceCreateValidation(t *testing.T) {
	f := newEnrollmentFixture(2)

	_, err := f.svc.Create(context.Background(), CreateEnrollmentRequest{StudentID: 1})
	assertAppError(t, err, appErrors.ErrValidation, "")
	assert.Empty(t, f.store.enrollments)
}

func TestEnrollmentServiceCreateCheckOrder(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateEnrollmentRequest
		message string
	}{
		{name: "student first", req: CreateEnrollmentRequest{StudentID: 99, SectionID: 99, AcademicYearID: 99}, message: msgStudentNotFound},
		{name: "then section", req: CreateEnrollmentRequest{StudentID: 1, SectionID: 99, AcademicYearID: 99}, message: msgSectionNotFound},
		{name: "then year", req: CreateEnrollmentRequest{StudentID: 1, SectionID: 10, AcademicYearID: 99}, message: msgAcademicYearNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newEnrollmentFixture(0)
			_, err := f.svc.Create(context.Background(), tc.req)
			assertAppError(t, err, appErrors.ErrNotFound, tc.message)
			assert.Zero(t, f.store.countCalls, "capacity must not be consulted")
			assert.Empty(t, f.invalidator.reasons)
		})
	}
}

func TestEnrollmentServiceCreateDuplicateBeforeCapacity(t *testing.T) {
	f := newEnrollmentFixture(1)
	f.store.seed(models.Enrollment{StudentID: 1, SectionID: 10, AcademicYearID: 2025, Status: models.EnrollmentStatusWithdrawn})

	_, err := f.svc.Create(context.Background(), enrollReq(1))
	assertAppError(t, err, appErrors.ErrConflict, msgAlreadyEnrolled)
	assert.Zero(t, f.store.countCalls)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.enrollmentOps.WithLabelValues("create", OutcomeDuplicate)))
}

func TestEnrollmentServiceCreateUniqueViolation(t *testing.T) {
	f := newEnrollmentFixture(5)
	f.store.createErr = &pq.Error{Code: "23505"}

	_, err := f.svc.Create(context.Background(), enrollReq(1))
	assertAppError(t, err, appErrors.ErrConflict, msgAlreadyEnrolled)
}

func TestEnrollmentServiceCreateRepositoryFailure(t *testing.T) {
	f := newEnrollmentFixture(5)
	f.store.createErr = errors.New("connection reset")

	_, err := f.svc.Create(context.Background(), enrollReq(1))
	assertAppError(t, err, appErrors.ErrInternal, "")
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.enrollmentOps.WithLabelValues("create", OutcomeError)))
}

func TestEnrollmentServiceCapacityLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newEnrollmentFixture(2)

	first, err := f.svc.Create(ctx, enrollReq(1))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, enrollReq(2))
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, enrollReq(3))
	assertAppError(t, err, appErrors.ErrConflict, msgSectionFull)
	assert.Len(t, f.store.enrollments, 2)

	withdrawn, err := f.svc.UpdateStatus(ctx, first.ID, UpdateEnrollmentStatusRequest{Status: "retirado"})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusWithdrawn, withdrawn.Status)

	third, err := f.svc.Create(ctx, enrollReq(3))
	require.NoError(t, err)
	assert.Equal(t, int64(3), third.StudentID)

	// Reactivating the withdrawn enrollment would exceed capacity again.
	_, err = f.svc.UpdateStatus(ctx, first.ID, UpdateEnrollmentStatusRequest{Status: "active"})
	assertAppError(t, err, appErrors.ErrConflict, msgSectionFull)
	assert.Equal(t, models.EnrollmentStatusWithdrawn, f.store.enrollments[first.ID].Status)
}

func TestEnrollmentServiceUpdateStatusNormalization(t *testing.T) {
	for _, raw := range []string{"ACTIVA", " Active ", "activo"} {
		t.Run(raw, func(t *testing.T) {
			f := newEnrollmentFixture(3)
			e := f.store.seed(models.Enrollment{StudentID: 1, SectionID: 10, AcademicYearID: 2025, Status: models.EnrollmentStatusCompleted})

			detail, err := f.svc.UpdateStatus(context.Background(), e.ID, UpdateEnrollmentStatusRequest{Status: raw})
			require.NoError(t, err)
			assert.Equal(t, models.EnrollmentStatusActive, detail.Status)
			assert.Equal(t, models.EnrollmentStatusActive, f.store.enrollments[e.ID].Status)
			assert.Equal(t, 1, f.store.countCalls)
		})
	}
}

func TestEnrollmentServiceUpdateStatusSkipsCapacityWhenLeavingActive(t *testing.T) {
	f := newEnrollmentFixture(1)
	e := f.store.seed(models.Enrollment{StudentID: 1, SectionID: 10, AcademicYearID: 2025, Status: models.EnrollmentStatusActive})

	detail, err := f.svc.UpdateStatus(context.Background(), e.ID, UpdateEnrollmentStatusRequest{Status: "Culminado"})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusCompleted, detail.Status)
	assert.Zero(t, f.store.countCalls)
	assert.Equal(t, []string{"enrollment status changed"}, f.invalidator.reasons)
}

func TestEnrollmentServiceUpdateStatusInvalid(t *testing.T) {
	f := newEnrollmentFixture(3)
	e := f.store.seed(models.Enrollment{StudentID: 1, SectionID: 10, AcademicYearID: 2025, Status: models.EnrollmentStatusActive})

	_, err := f.svc.UpdateStatus(context.Background(), e.ID, UpdateEnrollmentStatusRequest{Status: "suspended"})
	assertAppError(t, err, appErrors.ErrValidation, msgInvalidStatus)
	assert.Equal(t, models.EnrollmentStatusActive, f.store.enrollments[e.ID].Status)
	assert.Empty(t, f.invalidator.reasons)
}

func TestEnrollmentServiceUpdateStatusNotFound(t *testing.T) {
	f := newEnrollmentFixture(3)

	_, err := f.svc.UpdateStatus(context.Background(), 42, UpdateEnrollmentStatusRequest{Status: "active"})
	assertAppError(t, err, appErrors.ErrNotFound, msgEnrollmentNotFound)
}

func TestEnrollmentServiceDelete(t *testing.T) {
	f := newEnrollmentFixture(3)
	e := f.store.seed(models.Enrollment{StudentID: 1, SectionID: 10, AcademicYearID: 2025, Status: models.EnrollmentStatusActive})

	deleted, err := f.svc.Delete(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.ID, deleted.ID)
	assert.Empty(t, f.store.enrollments)
	assert.Equal(t, []string{"enrollment deleted"}, f.invalidator.reasons)

	_, err = f.svc.Delete(context.Background(), e.ID)
	assertAppError(t, err, appErrors.ErrNotFound, msgEnrollmentNotFound)
}

func TestEnrollmentServiceList(t *testing.T) {
	f := newEnrollmentFixture(3)
	f.store.seed(models.Enrollment{StudentID: 1, SectionID: 10, AcademicYearID: 2025, Status: models.EnrollmentStatusActive})
	f.store.seed(models.Enrollment{StudentID: 2, SectionID: 10, AcademicYearID: 2025, Status: models.EnrollmentStatusWithdrawn})

	items, pagination, err := f.svc.List(context.Background(), models.EnrollmentFilter{Status: "Retirada", PageSize: 500})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.EnrollmentStatusWithdrawn, f.store.lastFilter.Status)
	assert.Equal(t, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1}, pagination)

	_, _, err = f.svc.List(context.Background(), models.EnrollmentFilter{Status: "unknown"})
	assertAppError(t, err, appErrors.ErrValidation, msgInvalidStatus)
}

func TestEnrollmentServiceListByStudentAndSection(t *testing.T) {
	f := newEnrollmentFixture(3)
	f.store.seed(models.Enrollment{StudentID: 1, SectionID: 10, AcademicYearID: 2025, Status: models.EnrollmentStatusActive})

	byStudent, err := f.svc.ListByStudent(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, byStudent, 1)

	_, err = f.svc.ListByStudent(context.Background(), 77)
	assertAppError(t, err, appErrors.ErrNotFound, msgStudentNotFound)

	bySection, err := f.svc.ListBySection(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, bySection, 1)

	_, err = f.svc.ListBySection(context.Background(), 77)
	assertAppError(t, err, appErrors.ErrNotFound, msgSectionNotFound)
}

func TestNormalizeStatus(t *testing.T) {
	cases := map[string]models.EnrollmentStatus{
		"ACTIVA":     models.EnrollmentStatusActive,
		"activo":     models.EnrollmentStatusActive,
		"Withdrawn":  models.EnrollmentStatusWithdrawn,
		"retirada":   models.EnrollmentStatusWithdrawn,
		" completed": models.EnrollmentStatusCompleted,
		"culminado":  models.EnrollmentStatusCompleted,
	}
	for raw, want := range cases {
		got, ok := NormalizeStatus(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}
	_, ok := NormalizeStatus("expelled")
	assert.False(t, ok)
}

func TestNormalizeShift(t *testing.T) {
	shift, ok := NormalizeShift("Mañana")
	assert.True(t, ok)
	assert.Equal(t, models.ShiftMorning, shift)

	shift, ok = NormalizeShift("TARDE")
	assert.True(t, ok)
	assert.Equal(t, models.ShiftAfternoon, shift)

	_, ok = NormalizeShift("night")
	assert.False(t, ok)
}
