package cli

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/iudanet/gradesubmission/internal/client/iocli"
	"github.com/iudanet/gradesubmission/internal/client/storage"
	"github.com/iudanet/gradesubmission/internal/models"
	pkgapi "github.com/iudanet/gradesubmission/pkg/api"
)

// fakeAPI сервер в памяти; ошибки задаются полями *Err
type fakeAPI struct {
	health      *pkgapi.HealthResponse
	registerErr error
	loginErr    error
	meErr       error
	browseErr   error
	healthErr   error
	lastToken   string
	token       string
	baseURL     string
	students    []models.Student
	courses     []models.Course
	grades      []models.Grade
	registered  []pkgapi.Credentials
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		baseURL: "http://grades.test",
		health:  &pkgapi.HealthResponse{Status: "ok", Version: "1.2.3"},
	}
}

func (f *fakeAPI) BaseURL() string { return f.baseURL }

func (f *fakeAPI) Register(_ context.Context, creds pkgapi.Credentials) error {
	if f.registerErr != nil {
		return f.registerErr
	}
	f.registered = append(f.registered, creds)
	return nil
}

func (f *fakeAPI) Login(_ context.Context, creds pkgapi.Credentials) (string, error) {
	if f.loginErr != nil {
		return "", f.loginErr
	}
	return f.token, nil
}

func (f *fakeAPI) Me(_ context.Context, token string) (string, error) {
	f.lastToken = token
	if f.meErr != nil {
		return "", f.meErr
	}
	return "alice", nil
}

func (f *fakeAPI) Students(_ context.Context, token string) ([]models.Student, error) {
	f.lastToken = token
	return f.students, f.browseErr
}

func (f *fakeAPI) Student(_ context.Context, token string, id int64) (*models.Student, error) {
	f.lastToken = token
	if f.browseErr != nil {
		return nil, f.browseErr
	}
	for _, s := range f.students {
		if s.ID == id {
			return &s, nil
		}
	}
	return nil, &notFoundError{}
}

func (f *fakeAPI) Courses(_ context.Context, token string) ([]models.Course, error) {
	f.lastToken = token
	return f.courses, f.browseErr
}

func (f *fakeAPI) Course(_ context.Context, token string, id int64) (*models.Course, error) {
	f.lastToken = token
	if f.browseErr != nil {
		return nil, f.browseErr
	}
	for _, c := range f.courses {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, &notFoundError{}
}

func (f *fakeAPI) Grades(_ context.Context, token string) ([]models.Grade, error) {
	f.lastToken = token
	return f.grades, f.browseErr
}

func (f *fakeAPI) Grade(_ context.Context, token string, courseID, studentID int64) (*models.Grade, error) {
	f.lastToken = token
	if f.browseErr != nil {
		return nil, f.browseErr
	}
	for _, g := range f.grades {
		if g.Course.ID == courseID && g.Student.ID == studentID {
			return &g, nil
		}
	}
	return nil, &notFoundError{}
}

func (f *fakeAPI) Health(_ context.Context) (*pkgapi.HealthResponse, error) {
	if f.healthErr != nil {
		return nil, f.healthErr
	}
	return f.health, nil
}

type notFoundError struct{}

func (e *notFoundError) Error() string { return "server error (404): not found" }

// fakeStore хранилище сессий в памяти, ключ - адрес сервера
type fakeStore struct {
	sessions map[string]storage.AuthData
	mu       sync.Mutex
}

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: map[string]storage.AuthData{}}
}

func (s *fakeStore) SaveAuth(_ context.Context, auth *storage.AuthData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if auth.ServerURL == "" {
		return storage.ErrNoServerURL
	}
	s.sessions[auth.ServerURL] = *auth
	return nil
}

func (s *fakeStore) GetAuth(_ context.Context, serverURL string) (*storage.AuthData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	auth, ok := s.sessions[serverURL]
	if !ok {
		return nil, storage.ErrAuthNotFound
	}
	return &auth, nil
}

func (s *fakeStore) DeleteAuth(_ context.Context, serverURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[serverURL]; !ok {
		return storage.ErrAuthNotFound
	}
	delete(s.sessions, serverURL)
	return nil
}

func (s *fakeStore) ListAuth(_ context.Context) ([]storage.AuthData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]storage.AuthData, 0, len(s.sessions))
	for _, auth := range s.sessions {
		list = append(list, auth)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ServerURL < list[j].ServerURL })
	return list, nil
}

// get возвращает сессию сервера или nil
func (s *fakeStore) get(serverURL string) *storage.AuthData {
	auth, err := s.GetAuth(context.Background(), serverURL)
	if err != nil {
		return nil
	}
	return auth
}

type testCli struct {
	cli    *Cli
	api    *fakeAPI
	store  *fakeStore
	out    *bytes.Buffer
	env    map[string]string
	opened []string
	closed int
}

// newTestCli собирает CLI с фейковым backend; input подается на stdin
func newTestCli(t *testing.T, input string) *testCli {
	t.Helper()

	tc := &testCli{
		api:   newFakeAPI(),
		store: newFakeStore(),
		out:   &bytes.Buffer{},
		env:   map[string]string{},
	}

	open := func(_ context.Context, serverURL, dbPath string) (*Backend, error) {
		tc.opened = append(tc.opened, serverURL, dbPath)
		return &Backend{
			API:   tc.api,
			Store: tc.store,
			Close: func() error {
				tc.closed++
				return nil
			},
		}, nil
	}

	tc.cli = New(iocli.NewStream(strings.NewReader(input), tc.out), open, "1.0.0")
	tc.cli.getenv = func(key string) string { return tc.env[key] }
	tc.cli.now = func() time.Time { return testNow }

	return tc
}

func (tc *testCli) run(t *testing.T, args ...string) error {
	t.Helper()
	return tc.cli.Execute(t.Context(), args)
}

func (tc *testCli) login(username string, expiresAt time.Time) {
	tc.store.sessions[tc.api.baseURL] = storage.AuthData{
		Username:  username,
		Token:     "stored-token",
		ServerURL: tc.api.baseURL,
		ExpiresAt: expiresAt.Unix(),
	}
}

// saved сессия текущего сервера
func (tc *testCli) saved() *storage.AuthData {
	return tc.store.get(tc.api.baseURL)
}

var testNow = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
