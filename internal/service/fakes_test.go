package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/school-enrollment-api/internal/models"
	"github.com/noah-isme/school-enrollment-api/internal/repository"
	appErrors "github.com/noah-isme/school-enrollment-api/pkg/errors"
	"github.com/noah-isme/school-enrollment-api/pkg/jobs"
)

// fakeEnrollmentStore backs both the enrollment repository and the
// transactional writer with in-memory maps.
type fakeEnrollmentStore struct {
	sections    map[int64]*models.Section
	enrollments map[int64]*models.Enrollment
	nextID      int64
	countCalls  int
	createErr   error
	lastFilter  models.EnrollmentFilter
}

func newFakeEnrollmentStore(sections ...*models.Section) *fakeEnrollmentStore {
	store := &fakeEnrollmentStore{
		sections:    make(map[int64]*models.Section),
		enrollments: make(map[int64]*models.Enrollment),
	}
	for _, s := range sections {
		store.sections[s.ID] = s
	}
	return store
}

func (f *fakeEnrollmentStore) seed(e models.Enrollment) *models.Enrollment {
	f.nextID++
	e.ID = f.nextID
	f.enrollments[e.ID] = &e
	return &e
}

func (f *fakeEnrollmentStore) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	f.lastFilter = filter
	var out []models.EnrollmentDetail
	for _, id := range f.sortedIDs() {
		e := f.enrollments[id]
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		out = append(out, models.EnrollmentDetail{Enrollment: *e})
	}
	return out, len(out), nil
}

func (f *fakeEnrollmentStore) ListByStudent(ctx context.Context, studentID int64) ([]models.EnrollmentDetail, error) {
	var out []models.EnrollmentDetail
	for _, id := range f.sortedIDs() {
		if e := f.enrollments[id]; e.StudentID == studentID {
			out = append(out, models.EnrollmentDetail{Enrollment: *e})
		}
	}
	return out, nil
}

func (f *fakeEnrollmentStore) ListBySection(ctx context.Context, sectionID int64) ([]models.EnrollmentDetail, error) {
	var out []models.EnrollmentDetail
	for _, id := range f.sortedIDs() {
		if e := f.enrollments[id]; e.SectionID == sectionID {
			out = append(out, models.EnrollmentDetail{Enrollment: *e})
		}
	}
	return out, nil
}

func (f *fakeEnrollmentStore) FindByID(ctx context.Context, id int64) (*models.Enrollment, error) {
	e, ok := f.enrollments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *e
	return &clone, nil
}

func (f *fakeEnrollmentStore) FindDetailByID(ctx context.Context, id int64) (*models.EnrollmentDetail, error) {
	e, ok := f.enrollments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	detail := models.EnrollmentDetail{Enrollment: *e}
	if s, ok := f.sections[e.SectionID]; ok {
		detail.SectionName = s.Name
	}
	return &detail, nil
}

func (f *fakeEnrollmentStore) Delete(ctx context.Context, id int64) error {
	if _, ok := f.enrollments[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.enrollments, id)
	return nil
}

func (f *fakeEnrollmentStore) WithinTx(ctx context.Context, fn func(repository.EnrollmentWriter) error) error {
	return fn(f)
}

func (f *fakeEnrollmentStore) LockSection(ctx context.Context, sectionID int64) (*models.Section, error) {
	s, ok := f.sections[sectionID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *s
	return &clone, nil
}

func (f *fakeEnrollmentStore) LockEnrollment(ctx context.Context, id int64) (*models.Enrollment, error) {
	return f.FindByID(ctx, id)
}

func (f *fakeEnrollmentStore) FindExisting(ctx context.Context, studentID, sectionID, academicYearID int64) (*models.Enrollment, error) {
	for _, e := range f.enrollments {
		if e.StudentID == studentID && e.SectionID == sectionID && e.AcademicYearID == academicYearID {
			clone := *e
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeEnrollmentStore) CountActiveBySection(ctx context.Context, sectionID int64) (int, error) {
	f.countCalls++
	count := 0
	for _, e := range f.enrollments {
		if e.SectionID == sectionID && e.Status == models.EnrollmentStatusActive {
			count++
		}
	}
	return count, nil
}

func (f *fakeEnrollmentStore) Create(ctx context.Context, e *models.Enrollment) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	e.ID = f.nextID
	clone := *e
	f.enrollments[e.ID] = &clone
	return nil
}

func (f *fakeEnrollmentStore) UpdateStatus(ctx context.Context, id int64, status models.EnrollmentStatus) error {
	e, ok := f.enrollments[id]
	if !ok {
		return sql.ErrNoRows
	}
	e.Status = status
	return nil
}

func (f *fakeEnrollmentStore) sortedIDs() []int64 {
	ids := make([]int64, 0, len(f.enrollments))
	for id := range f.enrollments {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

type fakeStudents map[int64]*models.Student

func (f fakeStudents) FindByID(ctx context.Context, id int64) (*models.Student, error) {
	if s, ok := f[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

type fakeSectionReader struct{ store *fakeEnrollmentStore }

func (f fakeSectionReader) FindByID(ctx context.Context, id int64) (*models.Section, error) {
	return f.store.LockSection(ctx, id)
}

func (f fakeSectionReader) FindDetailByID(ctx context.Context, id int64) (*models.SectionDetail, error) {
	s, err := f.store.LockSection(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.SectionDetail{Section: *s, GradeName: "1st Grade", LevelName: "Primary"}, nil
}

type fakeYears struct {
	years  map[int64]*models.AcademicYear
	active *models.AcademicYear
}

func (f *fakeYears) FindByID(ctx context.Context, id int64) (*models.AcademicYear, error) {
	if y, ok := f.years[id]; ok {
		clone := *y
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeYears) FindActive(ctx context.Context) (*models.AcademicYear, error) {
	if f.active == nil {
		return nil, sql.ErrNoRows
	}
	return f.active, nil
}

type recordingInvalidator struct {
	reasons []string
}

func (r *recordingInvalidator) InvalidateStatistics(_ context.Context, reason string) {
	r.reasons = append(r.reasons, reason)
}

// memoryCache mimics the Redis repository by round-tripping JSON.
type memoryCache struct {
	mu       sync.Mutex
	items    map[string][]byte
	getErr   error
	deleted  []string
	setCalls int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: make(map[string][]byte)}
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return m.getErr
	}
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.setCalls++
	m.items[key] = raw
	return nil
}

func (m *memoryCache) Incr(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	if raw, ok := m.items[key]; ok {
		if err := json.Unmarshal(raw, &n); err != nil {
			return 0, err
		}
	}
	n++
	m.items[key] = []byte(strconv.FormatInt(n, 10))
	return n, nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.items {
		if strings.HasPrefix(key, prefix) {
			delete(m.items, key)
		}
	}
	return nil
}

type fakeQueue struct {
	handlers map[string]jobs.Handler
	jobs     []jobs.Job
	full     bool
	waited   int
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{handlers: make(map[string]jobs.Handler)}
}

func (q *fakeQueue) Handle(jobType string, handler jobs.Handler) {
	q.handlers[jobType] = handler
}

func (q *fakeQueue) TryEnqueue(job jobs.Job) error {
	if q.full {
		return jobs.ErrQueueFull
	}
	q.jobs = append(q.jobs, job)
	return nil
}

// Enqueue stands in for the blocking path; a full fake never frees up.
func (q *fakeQueue) Enqueue(ctx context.Context, job jobs.Job) error {
	q.waited++
	if q.full {
		return context.DeadlineExceeded
	}
	q.jobs = append(q.jobs, job)
	return nil
}

// drain runs every queued job synchronously.
func (q *fakeQueue) drain(ctx context.Context) error {
	pending := q.jobs
	q.jobs = nil
	for _, job := range pending {
		if err := q.handlers[job.Type](ctx, job); err != nil {
			return err
		}
	}
	return nil
}
