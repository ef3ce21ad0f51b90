package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gradesubmission/internal/models"
	"github.com/iudanet/gradesubmission/internal/validation"
)

func setupStudentHandler() (*StudentHandler, *mockSchoolStorage) {
	school := newMockSchoolStorage()
	return NewStudentHandler(setupTestLogger(), school, school), school
}

func TestStudentHandler_CreateAndGet(t *testing.T) {
	h, _ := setupStudentHandler()

	w := serve(t, "POST /student", h.Create, http.MethodPost, "/student",
		`{"name":"Harry Potter","birthDate":"1980-07-31"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var created models.Student
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, "Harry Potter", created.Name)

	w = serve(t, "GET /student/{id}", h.Get, http.MethodGet, "/student/1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":1,"name":"Harry Potter","birthDate":"1980-07-31"}`, w.Body.String())
}

func TestStudentHandler_CreateValidation(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		wantMessages []string
	}{
		{
			name:         "blank name",
			body:         `{"name":" ","birthDate":"1980-07-31"}`,
			wantMessages: []string{validation.MsgNameBlank},
		},
		{
			name:         "future birth date",
			body:         `{"name":"Harry","birthDate":"2999-01-01"}`,
			wantMessages: []string{validation.MsgBirthDatePast},
		},
		{
			name:         "both",
			body:         `{"name":"","birthDate":"2999-01-01"}`,
			wantMessages: []string{validation.MsgNameBlank, validation.MsgBirthDatePast},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, school := setupStudentHandler()

			w := serve(t, "POST /student", h.Create, http.MethodPost, "/student", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.ElementsMatch(t, tt.wantMessages, decodeError(t, w.Body.String()).Message)
			assert.Empty(t, school.students)
		})
	}
}

func TestStudentHandler_BadDate(t *testing.T) {
	h, _ := setupStudentHandler()

	w := serve(t, "POST /student", h.Create, http.MethodPost, "/student", `{"name":"Harry","birthDate":"31/07/1980"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStudentHandler_NotFoundAndBadID(t *testing.T) {
	h, _ := setupStudentHandler()

	w := serve(t, "GET /student/{id}", h.Get, http.MethodGet, "/student/42", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t,
		[]string{"The student with id '42' does not exist in our records"},
		decodeError(t, w.Body.String()).Message)

	w = serve(t, "GET /student/{id}", h.Get, http.MethodGet, "/student/a", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"Failed to convert 'id' with value: 'a'"}, decodeError(t, w.Body.String()).Message)
}

func TestStudentHandler_UpdateListDelete(t *testing.T) {
	h, school := setupStudentHandler()

	serve(t, "POST /student", h.Create, http.MethodPost, "/student", `{"name":"Ron","birthDate":"1980-03-01"}`)
	serve(t, "POST /student", h.Create, http.MethodPost, "/student", `{"name":"Ginny","birthDate":"1981-08-11"}`)

	w := serve(t, "PUT /student/{id}", h.Update, http.MethodPut, "/student/1", `{"name":"Ronald","birthDate":"1980-03-01"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Ronald", school.students[1].Name)

	w = serve(t, "PUT /student/{id}", h.Update, http.MethodPut, "/student/9", `{"name":"Nobody","birthDate":"1980-03-01"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(t, "GET /student/all", h.List, http.MethodGet, "/student/all", "")
	require.Equal(t, http.StatusOK, w.Code)
	var all []models.Student
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
	require.Len(t, all, 2)
	assert.Equal(t, "Ronald", all[0].Name)

	w = serve(t, "DELETE /student/{id}", h.Delete, http.MethodDelete, "/student/1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = serve(t, "DELETE /student/{id}", h.Delete, http.MethodDelete, "/student/1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStudentHandler_CoursesAndGrades(t *testing.T) {
	h, school := setupStudentHandler()
	ctx := t.Context()

	student := &models.Student{Name: "Hermione", BirthDate: models.NewDate(1979, 9, 19)}
	require.NoError(t, school.CreateStudent(ctx, student))
	course := &models.Course{Subject: "Arithmancy", Code: "AR301", Description: "Numbers"}
	require.NoError(t, school.CreateCourse(ctx, course))
	_, err := school.EnrollStudent(ctx, course.ID, student.ID)
	require.NoError(t, err)
	_, err = school.CreateGrade(ctx, course.ID, student.ID, "A+")
	require.NoError(t, err)

	w := serve(t, "GET /student/{id}/courses", h.Courses, http.MethodGet, "/student/1/courses", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"AR301"`)

	w = serve(t, "GET /student/{id}/grades", h.Grades, http.MethodGet, "/student/1/grades", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"score":"A+"`)

	w = serve(t, "GET /student/{id}/grades", h.Grades, http.MethodGet, "/student/99/grades", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStudentHandler_StorageFailureIsGeneric(t *testing.T) {
	h, school := setupStudentHandler()
	school.failWith = errDatabaseDown

	w := serve(t, "GET /student/all", h.List, http.MethodGet, "/student/all", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"BAD REQUEST"}, decodeError(t, w.Body.String()).Message)
	assert.NotContains(t, w.Body.String(), "refused")
}
