package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gradesubmission/pkg/api"
)

func TestTranslate(t *testing.T) {
	cause := errors.New("database is locked: /var/lib/grades.db")

	tests := []struct {
		err          error
		name         string
		wantMessages []string
		wantStatus   int
	}{
		{
			name:         "bad request fallback",
			err:          BadRequest(cause),
			wantStatus:   http.StatusBadRequest,
			wantMessages: []string{MsgBadRequest},
		},
		{
			name:         "validation keeps all messages",
			err:          Validation("Name cannot be blank", "The birth date must be in the past"),
			wantStatus:   http.StatusBadRequest,
			wantMessages: []string{"Name cannot be blank", "The birth date must be in the past"},
		},
		{
			name:         "not found",
			err:          NotFound(cause, "The student with id '7' does not exist in our records"),
			wantStatus:   http.StatusNotFound,
			wantMessages: []string{"The student with id '7' does not exist in our records"},
		},
		{
			name:         "account not found",
			err:          AccountNotFound(cause),
			wantStatus:   http.StatusNotFound,
			wantMessages: []string{MsgAccountNotFound},
		},
		{
			name:         "invalid credential",
			err:          InvalidCredential(),
			wantStatus:   http.StatusUnauthorized,
			wantMessages: []string{MsgInvalidCredential},
		},
		{
			name:         "unauthenticated hides reason",
			err:          Unauthenticated(errors.New("token is expired")),
			wantStatus:   http.StatusForbidden,
			wantMessages: []string{MsgAccessDenied},
		},
		{
			name:         "conflict",
			err:          Conflict(cause, "Username already exists"),
			wantStatus:   http.StatusConflict,
			wantMessages: []string{"Username already exists"},
		},
		{
			name:         "rate limited",
			err:          RateLimited(),
			wantStatus:   http.StatusTooManyRequests,
			wantMessages: []string{MsgTooManyRequests},
		},
		{
			name:         "internal hides detail",
			err:          Internal(cause),
			wantStatus:   http.StatusBadRequest,
			wantMessages: []string{MsgBadRequest},
		},
		{
			name:         "plain error is internal",
			err:          cause,
			wantStatus:   http.StatusBadRequest,
			wantMessages: []string{MsgBadRequest},
		},
		{
			name:         "wrapped api error",
			err:          fmt.Errorf("handler: %w", Conflict(nil, "Course code already exists")),
			wantStatus:   http.StatusConflict,
			wantMessages: []string{"Course code already exists"},
		},
		{
			name:         "blank messages replaced",
			err:          Validation("", "  "),
			wantStatus:   http.StatusBadRequest,
			wantMessages: []string{"Validation failed"},
		},
		{
			name:         "path param",
			err:          InvalidPathParam("id", "a", cause),
			wantStatus:   http.StatusBadRequest,
			wantMessages: []string{"Failed to convert 'id' with value: 'a'"},
		},
		{
			name:         "method not allowed",
			err:          MethodNotAllowed(http.MethodPatch, "/student/1"),
			wantStatus:   http.StatusMethodNotAllowed,
			wantMessages: []string{"Method PATCH is not supported for /student/1."},
		},
		{
			name:         "unknown kind",
			err:          New(Kind(99), "secret detail"),
			wantStatus:   http.StatusBadRequest,
			wantMessages: []string{MsgBadRequest},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := Translate(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, http.StatusText(tt.wantStatus), body.Error)
			assert.Equal(t, tt.wantMessages, body.Message)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestWrite(t *testing.T) {
	rec := httptest.NewRecorder()

	status := Write(rec, Internal(errors.New("sql: connection refused")))

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotContains(t, rec.Body.String(), "connection refused")
	assert.Empty(t, rec.Header().Get("WWW-Authenticate"))

	var body api.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Bad Request", body.Error)
	assert.Equal(t, []string{MsgBadRequest}, body.Message)
}

func TestWrite_Challenge(t *testing.T) {
	tests := []struct {
		err           error
		name          string
		wantChallenge string
	}{
		{name: "invalid credential", err: InvalidCredential(), wantChallenge: BearerChallenge},
		{name: "access denied", err: Unauthenticated(errors.New("no token"))},
		{name: "account not found", err: AccountNotFound(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Write(rec, tt.err)
			assert.Equal(t, tt.wantChallenge, rec.Header().Get("WWW-Authenticate"))
		})
	}
}

func TestError_UnwrapAndKindOf(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("outer: %w", Wrap(KindNotFound, cause, "missing"))

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, KindInternal, KindOf(cause))
	assert.Contains(t, err.Error(), "not_found: missing: boom")
}
