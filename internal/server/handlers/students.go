package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/iudanet/gradesubmission/internal/models"
	"github.com/iudanet/gradesubmission/internal/server/apierror"
	"github.com/iudanet/gradesubmission/internal/server/storage"
	"github.com/iudanet/gradesubmission/internal/validation"
	"github.com/iudanet/gradesubmission/pkg/api"
)

// StudentHandler обрабатывает запросы /student
type StudentHandler struct {
	logger   *slog.Logger
	students storage.StudentStorage
	grades   storage.GradeStorage
	now      func() time.Time
}

// NewStudentHandler создает новый handler студентов
func NewStudentHandler(logger *slog.Logger, students storage.StudentStorage, grades storage.GradeStorage) *StudentHandler {
	return &StudentHandler{
		logger:   logger,
		students: students,
		grades:   grades,
		now:      time.Now,
	}
}

// Get обрабатывает GET /student/{id}
func (h *StudentHandler) Get(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}

	student, err := h.students.GetStudent(r.Context(), id)
	if err != nil {
		return storageError(err, 0, id)
	}

	return sendJSON(w, student, http.StatusOK)
}

// List обрабатывает GET /student/all
func (h *StudentHandler) List(w http.ResponseWriter, r *http.Request) error {
	students, err := h.students.ListStudents(r.Context())
	if err != nil {
		return apierror.Internal(err)
	}

	return sendJSON(w, students, http.StatusOK)
}

// Create обрабатывает POST /student
func (h *StudentHandler) Create(w http.ResponseWriter, r *http.Request) error {
	student, err := h.decodeStudent(w, r)
	if err != nil {
		return err
	}

	if err := h.students.CreateStudent(r.Context(), student); err != nil {
		return apierror.Internal(err)
	}

	h.logger.InfoContext(r.Context(), "student created", slog.Int64("student_id", student.ID))

	return sendJSON(w, student, http.StatusCreated)
}

// Update обрабатывает PUT /student/{id}
func (h *StudentHandler) Update(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}

	student, err := h.decodeStudent(w, r)
	if err != nil {
		return err
	}
	student.ID = id

	if err := h.students.UpdateStudent(r.Context(), student); err != nil {
		return storageError(err, 0, id)
	}

	return sendJSON(w, student, http.StatusOK)
}

// Delete обрабатывает DELETE /student/{id}
// Вместе со студентом удаляются его оценки и записи на курсы
func (h *StudentHandler) Delete(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}

	if err := h.students.DeleteStudent(r.Context(), id); err != nil {
		return storageError(err, 0, id)
	}

	h.logger.InfoContext(r.Context(), "student deleted", slog.Int64("student_id", id))

	w.WriteHeader(http.StatusNoContent)
	return nil
}

// Courses обрабатывает GET /student/{id}/courses
func (h *StudentHandler) Courses(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}

	courses, err := h.students.StudentCourses(r.Context(), id)
	if err != nil {
		return storageError(err, 0, id)
	}

	return sendJSON(w, courses, http.StatusOK)
}

// Grades обрабатывает GET /student/{id}/grades
func (h *StudentHandler) Grades(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}

	grades, err := h.grades.StudentGrades(r.Context(), id)
	if err != nil {
		return storageError(err, 0, id)
	}

	return sendJSON(w, grades, http.StatusOK)
}

// decodeStudent парсит и валидирует тело запроса
func (h *StudentHandler) decodeStudent(w http.ResponseWriter, r *http.Request) (*models.Student, error) {
	var req api.StudentRequest
	if err := decodeBody(w, r, &req); err != nil {
		return nil, err
	}

	student := &models.Student{Name: req.Name, BirthDate: req.BirthDate}
	if messages := validation.ValidateStudent(*student, h.now()); len(messages) > 0 {
		return nil, apierror.Validation(messages...)
	}

	return student, nil
}
