package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iudanet/gradesubmission/internal/server/apidoc"
	"github.com/iudanet/gradesubmission/internal/server/config"
	"github.com/iudanet/gradesubmission/internal/server/storage/sqlstore"
	"github.com/iudanet/gradesubmission/pkg/api"
)

const testKey = "server-test-signing-key-0123456789"

func setupTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SecretKey = testKey
	cfg.DatabaseDSN = ":memory:"
	cfg.BcryptCost = bcrypt.MinCost
	require.NoError(t, cfg.Validate())

	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

	store, err := sqlstore.New(t.Context(), cfg.DBDriver, cfg.DatabaseDSN)
	require.NoError(t, err)

	srv, err := NewWithStorage(t.Context(), cfg, logger, store, "test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })

	return srv
}

// do выполняет запрос через весь конвейер
func do(t *testing.T, srv *Server, method, target, body, bearer string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.RemoteAddr = "203.0.113.7:40000"
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set(api.HeaderAuthorization, api.BearerPrefix+bearer)
	}

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func messages(t *testing.T, w *httptest.ResponseRecorder) []string {
	t.Helper()

	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	require.NotEmpty(t, resp.Message)
	return resp.Message
}

// login регистрирует пользователя и возвращает токен
func login(t *testing.T, srv *Server, username, password string) string {
	t.Helper()

	creds := `{"username":"` + username + `","password":"` + password + `"}`
	w := do(t, srv, http.MethodPost, "/user/register", creds, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(t, srv, http.MethodPost, "/authenticate", creds, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	header := w.Header().Get(api.HeaderAuthorization)
	require.True(t, strings.HasPrefix(header, api.BearerPrefix), header)
	return strings.TrimPrefix(header, api.BearerPrefix)
}

func TestAuthenticate_Success(t *testing.T) {
	srv := setupTestServer(t)

	tok := login(t, srv, "User", "password123")
	assert.NotEmpty(t, tok)
}

func TestAuthenticate_UnknownUser(t *testing.T) {
	srv := setupTestServer(t)

	w := do(t, srv, http.MethodPost, "/authenticate", `{"username":"ghost","password":"password123"}`, "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, []string{"Username doesn't exist"}, messages(t, w))
	assert.Empty(t, w.Header().Get(api.HeaderAuthorization))
}

func TestAuthenticate_WrongPassword(t *testing.T) {
	srv := setupTestServer(t)
	login(t, srv, "User", "password123")

	w := do(t, srv, http.MethodPost, "/authenticate", `{"username":"User","password":"wrong-password"}`, "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, messages(t, w)[0], "incorrect password")
	assert.Equal(t, `Bearer realm="grades"`, w.Header().Get("WWW-Authenticate"))
	assert.Empty(t, w.Header().Get(api.HeaderAuthorization))
}

func TestAuthenticate_LongPasswordSuffix(t *testing.T) {
	srv := setupTestServer(t)
	password := strings.Repeat("p", 72)
	login(t, srv, "longpw", password)

	w := do(t, srv, http.MethodPost, "/authenticate", `{"username":"longpw","password":"`+password+`WRONG"}`, "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, []string{"You provided an incorrect password."}, messages(t, w))
	assert.Empty(t, w.Header().Get(api.HeaderAuthorization))
}

func TestAuthorization_TamperedToken(t *testing.T) {
	srv := setupTestServer(t)
	tok := login(t, srv, "User", "password123")

	// Подменяем payload, подпись остается прежней
	parts := strings.Split(tok, ".")
	require.Len(t, parts, 3)
	parts[1] = strings.Repeat("A", len(parts[1]))
	tampered := strings.Join(parts, ".")

	w := do(t, srv, http.MethodGet, "/student/1", "", tampered)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, []string{"Access Denied"}, messages(t, w))
}

func TestAuthorization_ValidTokenReachesHandler(t *testing.T) {
	srv := setupTestServer(t)
	tok := login(t, srv, "User", "password123")

	w := do(t, srv, http.MethodPost, "/student", `{"name":"Harry Potter","birthDate":"1980-07-31"}`, tok)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(t, srv, http.MethodGet, "/student/1", "", tok)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "Harry Potter")
}

func TestRegister_NoTokenRequired(t *testing.T) {
	srv := setupTestServer(t)

	w := do(t, srv, http.MethodPost, "/user/register", `{"username":"newbie","password":"password123"}`, "")
	assert.Equal(t, http.StatusCreated, w.Code)

	w = do(t, srv, http.MethodPost, "/user/register", `{"username":"newbie","password":"password123"}`, "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, []string{"Username already exists"}, messages(t, w))
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv := setupTestServer(t)

	tests := []struct {
		method string
		target string
	}{
		{method: http.MethodGet, target: "/student/1"},
		{method: http.MethodGet, target: "/student/all"},
		{method: http.MethodPost, target: "/course"},
		{method: http.MethodGet, target: "/grade/all"},
		{method: http.MethodGet, target: "/user/me"},
		{method: http.MethodGet, target: "/authenticate"},
		{method: http.MethodGet, target: "/no/such/route"},
		{method: http.MethodGet, target: "/v3/api-docs.yaml"},
		{method: http.MethodGet, target: "/health/../student/all"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			w := do(t, srv, tt.method, tt.target, "", "")
			assert.Equal(t, http.StatusForbidden, w.Code)
			assert.Equal(t, []string{"Access Denied"}, messages(t, w))
		})
	}
}

func TestPublicRoutes(t *testing.T) {
	srv := setupTestServer(t)

	tests := []struct {
		target      string
		contentType string
	}{
		{target: "/health", contentType: "application/json"},
		{target: apidoc.PathJSON, contentType: "application/json"},
		{target: apidoc.PathYAML, contentType: "application/yaml"},
		{target: apidoc.PathUI, contentType: "text/html"},
		{target: "/swagger-ui/index.html", contentType: "text/html"},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			w := do(t, srv, http.MethodGet, tt.target, "", "")
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Header().Get("Content-Type"), tt.contentType)
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		})
	}
}

func TestAuthenticate_MalformedBody(t *testing.T) {
	srv := setupTestServer(t)

	for _, body := range []string{`{"username":"x"`, `{"user":"x","password":"y"}`, `{"username":"","password":""}`} {
		w := do(t, srv, http.MethodPost, "/authenticate", body, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, []string{"BAD REQUEST"}, messages(t, w))
	}
}

func TestAuthenticate_RateLimited(t *testing.T) {
	srv := setupTestServer(t)

	var last *httptest.ResponseRecorder
	for range srv.cfg.LoginRate + 1 {
		last = do(t, srv, http.MethodPost, "/authenticate", `{"username":"ghost","password":"password123"}`, "")
	}

	assert.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.NotEmpty(t, last.Header().Get("Retry-After"))
}

func TestUnknownRouteWithToken(t *testing.T) {
	srv := setupTestServer(t)
	tok := login(t, srv, "User", "password123")

	w := do(t, srv, http.MethodGet, "/nowhere", "", tok)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, []string{"No endpoint GET /nowhere."}, messages(t, w))
}

func TestKnownRouteWrongMethod(t *testing.T) {
	srv := setupTestServer(t)
	tok := login(t, srv, "User", "password123")

	w := do(t, srv, http.MethodPatch, "/student/1", "", tok)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "GET, PUT, DELETE", w.Header().Get("Allow"))
	assert.Equal(t, []string{"Method PATCH is not supported for /student/1."}, messages(t, w))

	// Без токена ответ прежний: 403
	w = do(t, srv, http.MethodPatch, "/student/1", "", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCurrentUser(t *testing.T) {
	srv := setupTestServer(t)
	tok := login(t, srv, "hermione", "password123")

	w := do(t, srv, http.MethodGet, "/user/me", "", tok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hermione", w.Body.String())

	w = do(t, srv, http.MethodGet, "/user/1", "", tok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hermione", w.Body.String())
}

func TestGradeWorkflow(t *testing.T) {
	srv := setupTestServer(t)
	tok := login(t, srv, "User", "password123")

	require.Equal(t, http.StatusCreated,
		do(t, srv, http.MethodPost, "/student", `{"name":"Neville","birthDate":"1980-07-30"}`, tok).Code)
	require.Equal(t, http.StatusCreated,
		do(t, srv, http.MethodPost, "/course", `{"subject":"Herbology","code":"HB101","description":"Plants"}`, tok).Code)

	w := do(t, srv, http.MethodPost, "/grade/course/1/student/1", `{"score":"A"}`, tok)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, []string{"The student with id: '1' is not enrolled in the course with id: '1'"}, messages(t, w))

	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPut, "/course/1/student/1", "", tok).Code)

	w = do(t, srv, http.MethodPost, "/grade/course/1/student/1", `{"score":"A"}`, tok)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(t, srv, http.MethodGet, "/student/1/grades", "", tok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"score":"A"`)

	require.Equal(t, http.StatusNoContent, do(t, srv, http.MethodDelete, "/student/1", "", tok).Code)

	w = do(t, srv, http.MethodGet, "/grade/all", "", tok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

var pathParam = regexp.MustCompile(`\{[^}]+\}`)

// Каждая операция из OpenAPI документа должна быть зарегистрирована в mux
func TestRoutesMatchAPIDoc(t *testing.T) {
	srv := setupTestServer(t)

	docs, err := apidoc.Load(t.Context(), "")
	require.NoError(t, err)

	for _, op := range docs.Operations() {
		req := httptest.NewRequest(op.Method, pathParam.ReplaceAllString(op.Path, "1"), nil)
		_, pattern := srv.mux.Handler(req)
		assert.Equal(t, op.Method+" "+op.Path, pattern)
	}
}
