package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/school-enrollment-api/pkg/errors"
)

type fakeStudentRepo struct {
	students map[int64]*models.Student
	updated  *models.Student
}

func (f *fakeStudentRepo) List(ctx context.Context, search string) ([]models.Student, error) {
	return nil, nil
}

func (f *fakeStudentRepo) FindByID(ctx context.Context, id int64) (*models.Student, error) {
	if s, ok := f.students[id]; ok {
		clone := *s
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStudentRepo) ExistsByNationalID(ctx context.Context, nationalID string, excludeID int64) (bool, error) {
	for id, s := range f.students {
		if id != excludeID && s.NationalID == nationalID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStudentRepo) Create(ctx context.Context, s *models.Student) error {
	s.ID = int64(len(f.students) + 1)
	f.students[s.ID] = s
	return nil
}

func (f *fakeStudentRepo) Update(ctx context.Context, s *models.Student) error {
	f.updated = s
	f.students[s.ID] = s
	return nil
}

func (f *fakeStudentRepo) Delete(ctx context.Context, id int64) error {
	delete(f.students, id)
	return nil
}

func validStudentRequest() StudentRequest {
	return StudentRequest{
		Names:      "Lucia",
		Surnames:   "Paredes",
		NationalID: "70112233",
		BirthDate:  "2012-05-14",
		Address:    "Av. Central 123",
		Phone:      "999888777",
	}
}

func newStudentService(repo *fakeStudentRepo, inv statsInvalidator) *StudentService {
	svc := NewStudentService(repo, nil, inv, nil)
	svc.now = func() time.Time { return time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC) }
	return svc
}

func TestStudentServiceCreate(t *testing.T) {
	repo := &fakeStudentRepo{students: map[int64]*models.Student{}}
	inv := &recordingInvalidator{}
	svc := newStudentService(repo, inv)

	student, err := svc.Create(context.Background(), validStudentRequest())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2012, 5, 14, 0, 0, 0, 0, time.UTC), student.BirthDate)
	assert.Equal(t, "Paredes, Lucia", student.FullName())
	assert.Equal(t, []string{"student created"}, inv.reasons)

	_, err = svc.Create(context.Background(), validStudentRequest())
	assertAppError(t, err, appErrors.ErrConflict, msgStudentDuplicate)
}

func TestStudentServiceRejectsBirthDates(t *testing.T) {
	svc := newStudentService(&fakeStudentRepo{students: map[int64]*models.Student{}}, nil)

	future := validStudentRequest()
	future.BirthDate = "2030-01-01"
	_, err := svc.Create(context.Background(), future)
	assertAppError(t, err, appErrors.ErrValidation, "Birth date cannot be in the future")

	malformed := validStudentRequest()
	malformed.BirthDate = "14/05/2012"
	_, err = svc.Create(context.Background(), malformed)
	assertAppError(t, err, appErrors.ErrValidation, "")
}

func TestStudentServiceUpdateKeepsOwnNationalID(t *testing.T) {
	repo := &fakeStudentRepo{students: map[int64]*models.Student{
		1: {ID: 1, NationalID: "70112233"},
		2: {ID: 2, NationalID: "80000000"},
	}}
	svc := newStudentService(repo, nil)

	req := validStudentRequest()
	updated, err := svc.Update(context.Background(), 1, req)
	require.NoError(t, err)
	assert.Equal(t, "Lucia", updated.Names)

	req.NationalID = "80000000"
	_, err = svc.Update(context.Background(), 1, req)
	assertAppError(t, err, appErrors.ErrConflict, msgStudentDuplicate)

	_, err = svc.Update(context.Background(), 9, validStudentRequest())
	assertAppError(t, err, appErrors.ErrNotFound, msgStudentNotFound)
}

func TestStudentServiceDelete(t *testing.T) {
	repo := &fakeStudentRepo{students: map[int64]*models.Student{1: {ID: 1}}}
	inv := &recordingInvalidator{}
	svc := newStudentService(repo, inv)

	require.NoError(t, svc.Delete(context.Background(), 1))
	assert.Empty(t, repo.students)
	assert.Equal(t, []string{"student deleted"}, inv.reasons)
	assertAppError(t, svc.Delete(context.Background(), 1), appErrors.ErrNotFound, msgStudentNotFound)
}
