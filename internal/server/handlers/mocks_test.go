package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/iudanet/gradesubmission/internal/models"
	"github.com/iudanet/gradesubmission/internal/server/storage"
)

var errDatabaseDown = errors.New("database connection refused")

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// serve регистрирует handler на pattern и выполняет запрос через mux,
// чтобы r.PathValue работал как в сервере
func serve(t *testing.T, pattern string, h HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	mux := http.NewServeMux()
	mux.Handle(pattern, Handle(setupTestLogger(), h))

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	return w
}

// mockUserStorage is a mock implementation of UserStorage for testing
type mockUserStorage struct {
	users        map[string]*models.User // username -> User
	createError  error
	getUserError error
	lookups      int
	nextID       int64
}

func newMockUserStorage() *mockUserStorage {
	return &mockUserStorage{users: make(map[string]*models.User)}
}

func (m *mockUserStorage) CreateUser(ctx context.Context, user *models.User) error {
	if m.createError != nil {
		return m.createError
	}
	if _, exists := m.users[user.Username]; exists {
		return storage.ErrUserAlreadyExists
	}
	m.nextID++
	user.ID = m.nextID
	m.users[user.Username] = user
	return nil
}

func (m *mockUserStorage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	m.lookups++
	if m.getUserError != nil {
		return nil, m.getUserError
	}
	user, ok := m.users[username]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserStorage) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	if m.getUserError != nil {
		return nil, m.getUserError
	}
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, storage.ErrUserNotFound
}

// mockSchoolStorage in-memory implementation of student, course and grade storages
type mockSchoolStorage struct {
	failWith error
	students map[int64]*models.Student
	courses  map[int64]*models.Course
	enrolled map[[2]int64]bool // {courseID, studentID}
	grades   map[[2]int64]*models.Grade
	mu       sync.Mutex
	nextID   int64
}

func newMockSchoolStorage() *mockSchoolStorage {
	return &mockSchoolStorage{
		students: make(map[int64]*models.Student),
		courses:  make(map[int64]*models.Course),
		enrolled: make(map[[2]int64]bool),
		grades:   make(map[[2]int64]*models.Grade),
	}
}

func (m *mockSchoolStorage) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *mockSchoolStorage) CreateStudent(ctx context.Context, s *models.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	s.ID = m.id()
	cp := *s
	m.students[s.ID] = &cp
	return nil
}

func (m *mockSchoolStorage) GetStudent(ctx context.Context, id int64) (*models.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	s, ok := m.students[id]
	if !ok {
		return nil, storage.ErrStudentNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *mockSchoolStorage) ListStudents(ctx context.Context) ([]models.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	out := make([]models.Student, 0, len(m.students))
	for _, s := range m.students {
		out = append(out, *s)
	}
	slices.SortFunc(out, func(a, b models.Student) int { return int(a.ID - b.ID) })
	return out, nil
}

func (m *mockSchoolStorage) UpdateStudent(ctx context.Context, s *models.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.students[s.ID]; !ok {
		return storage.ErrStudentNotFound
	}
	cp := *s
	m.students[s.ID] = &cp
	return nil
}

func (m *mockSchoolStorage) DeleteStudent(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.students[id]; !ok {
		return storage.ErrStudentNotFound
	}
	delete(m.students, id)
	for key := range m.enrolled {
		if key[1] == id {
			delete(m.enrolled, key)
		}
	}
	for key := range m.grades {
		if key[1] == id {
			delete(m.grades, key)
		}
	}
	return nil
}

func (m *mockSchoolStorage) StudentCourses(ctx context.Context, id int64) ([]models.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.students[id]; !ok {
		return nil, storage.ErrStudentNotFound
	}
	out := make([]models.Course, 0)
	for key := range m.enrolled {
		if key[1] == id {
			out = append(out, *m.courses[key[0]])
		}
	}
	slices.SortFunc(out, func(a, b models.Course) int { return int(a.ID - b.ID) })
	return out, nil
}

func (m *mockSchoolStorage) CreateCourse(ctx context.Context, c *models.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.courses {
		if existing.Code == c.Code {
			return storage.ErrCourseCodeTaken
		}
	}
	c.ID = m.id()
	cp := *c
	m.courses[c.ID] = &cp
	return nil
}

func (m *mockSchoolStorage) GetCourse(ctx context.Context, id int64) (*models.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[id]
	if !ok {
		return nil, storage.ErrCourseNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockSchoolStorage) ListCourses(ctx context.Context) ([]models.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Course, 0, len(m.courses))
	for _, c := range m.courses {
		out = append(out, *c)
	}
	slices.SortFunc(out, func(a, b models.Course) int { return int(a.ID - b.ID) })
	return out, nil
}

func (m *mockSchoolStorage) UpdateCourse(ctx context.Context, c *models.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.courses[c.ID]; !ok {
		return storage.ErrCourseNotFound
	}
	for id, existing := range m.courses {
		if id != c.ID && existing.Code == c.Code {
			return storage.ErrCourseCodeTaken
		}
	}
	cp := *c
	m.courses[c.ID] = &cp
	return nil
}

func (m *mockSchoolStorage) DeleteCourse(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.courses[id]; !ok {
		return storage.ErrCourseNotFound
	}
	delete(m.courses, id)
	for key := range m.enrolled {
		if key[0] == id {
			delete(m.enrolled, key)
		}
	}
	for key := range m.grades {
		if key[0] == id {
			delete(m.grades, key)
		}
	}
	return nil
}

func (m *mockSchoolStorage) CourseStudents(ctx context.Context, id int64) ([]models.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.courses[id]; !ok {
		return nil, storage.ErrCourseNotFound
	}
	out := make([]models.Student, 0)
	for key := range m.enrolled {
		if key[0] == id {
			out = append(out, *m.students[key[1]])
		}
	}
	slices.SortFunc(out, func(a, b models.Student) int { return int(a.ID - b.ID) })
	return out, nil
}

func (m *mockSchoolStorage) EnrollStudent(ctx context.Context, courseID, studentID int64) (*models.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[courseID]
	if !ok {
		return nil, storage.ErrCourseNotFound
	}
	if _, ok := m.students[studentID]; !ok {
		return nil, storage.ErrStudentNotFound
	}
	key := [2]int64{courseID, studentID}
	if m.enrolled[key] {
		return nil, storage.ErrAlreadyEnrolled
	}
	m.enrolled[key] = true
	cp := *c
	return &cp, nil
}

func (m *mockSchoolStorage) CreateGrade(ctx context.Context, courseID, studentID int64, score string) (*models.Grade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[courseID]
	if !ok {
		return nil, storage.ErrCourseNotFound
	}
	s, ok := m.students[studentID]
	if !ok {
		return nil, storage.ErrStudentNotFound
	}
	key := [2]int64{courseID, studentID}
	if !m.enrolled[key] {
		return nil, storage.ErrNotEnrolled
	}
	if _, exists := m.grades[key]; exists {
		return nil, storage.ErrGradeAlreadyExists
	}
	g := &models.Grade{ID: m.id(), Score: score, Course: *c, Student: *s}
	m.grades[key] = g
	cp := *g
	return &cp, nil
}

func (m *mockSchoolStorage) GetGrade(ctx context.Context, courseID, studentID int64) (*models.Grade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.grades[[2]int64{courseID, studentID}]
	if !ok {
		return nil, storage.ErrGradeNotFound
	}
	cp := *g
	return &cp, nil
}

func (m *mockSchoolStorage) ListGrades(ctx context.Context) ([]models.Grade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filterGrades(func([2]int64) bool { return true }), nil
}

func (m *mockSchoolStorage) UpdateGrade(ctx context.Context, courseID, studentID int64, score string) (*models.Grade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.grades[[2]int64{courseID, studentID}]
	if !ok {
		return nil, storage.ErrGradeNotFound
	}
	g.Score = score
	cp := *g
	return &cp, nil
}

func (m *mockSchoolStorage) DeleteGrade(ctx context.Context, courseID, studentID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]int64{courseID, studentID}
	if _, ok := m.grades[key]; !ok {
		return storage.ErrGradeNotFound
	}
	delete(m.grades, key)
	return nil
}

func (m *mockSchoolStorage) CourseGrades(ctx context.Context, courseID int64) ([]models.Grade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.courses[courseID]; !ok {
		return nil, storage.ErrCourseNotFound
	}
	return m.filterGrades(func(key [2]int64) bool { return key[0] == courseID }), nil
}

func (m *mockSchoolStorage) StudentGrades(ctx context.Context, studentID int64) ([]models.Grade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.students[studentID]; !ok {
		return nil, storage.ErrStudentNotFound
	}
	return m.filterGrades(func(key [2]int64) bool { return key[1] == studentID }), nil
}

func (m *mockSchoolStorage) filterGrades(keep func([2]int64) bool) []models.Grade {
	out := make([]models.Grade, 0)
	for key, g := range m.grades {
		if keep(key) {
			out = append(out, *g)
		}
	}
	slices.SortFunc(out, func(a, b models.Grade) int { return int(a.ID - b.ID) })
	return out
}
