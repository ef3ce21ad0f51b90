package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/iudanet/gradesubmission/internal/models"
	"github.com/iudanet/gradesubmission/internal/server/apierror"
	"github.com/iudanet/gradesubmission/internal/server/storage"
	"github.com/iudanet/gradesubmission/internal/validation"
	"github.com/iudanet/gradesubmission/pkg/api"
)

// CourseHandler обрабатывает запросы /course
type CourseHandler struct {
	logger  *slog.Logger
	courses storage.CourseStorage
}

// NewCourseHandler создает новый handler курсов
func NewCourseHandler(logger *slog.Logger, courses storage.CourseStorage) *CourseHandler {
	return &CourseHandler{
		logger:  logger,
		courses: courses,
	}
}

// Get обрабатывает GET /course/{id}
func (h *CourseHandler) Get(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}

	course, err := h.courses.GetCourse(r.Context(), id)
	if err != nil {
		return storageError(err, id, 0)
	}

	return sendJSON(w, course, http.StatusOK)
}

// List обрабатывает GET /course/all
func (h *CourseHandler) List(w http.ResponseWriter, r *http.Request) error {
	courses, err := h.courses.ListCourses(r.Context())
	if err != nil {
		return apierror.Internal(err)
	}

	return sendJSON(w, courses, http.StatusOK)
}

// Create обрабатывает POST /course
func (h *CourseHandler) Create(w http.ResponseWriter, r *http.Request) error {
	course, err := decodeCourse(w, r)
	if err != nil {
		return err
	}

	if err := h.courses.CreateCourse(r.Context(), course); err != nil {
		return courseWriteError(err, course)
	}

	h.logger.InfoContext(r.Context(), "course created",
		slog.Int64("course_id", course.ID),
		slog.String("code", course.Code))

	return sendJSON(w, course, http.StatusCreated)
}

// Update обрабатывает PUT /course/{id}
func (h *CourseHandler) Update(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}

	course, err := decodeCourse(w, r)
	if err != nil {
		return err
	}
	course.ID = id

	if err := h.courses.UpdateCourse(r.Context(), course); err != nil {
		return courseWriteError(err, course)
	}

	return sendJSON(w, course, http.StatusOK)
}

// Delete обрабатывает DELETE /course/{id}
func (h *CourseHandler) Delete(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}

	if err := h.courses.DeleteCourse(r.Context(), id); err != nil {
		return storageError(err, id, 0)
	}

	h.logger.InfoContext(r.Context(), "course deleted", slog.Int64("course_id", id))

	w.WriteHeader(http.StatusNoContent)
	return nil
}

// Students обрабатывает GET /course/{id}/students
func (h *CourseHandler) Students(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}

	students, err := h.courses.CourseStudents(r.Context(), id)
	if err != nil {
		return storageError(err, id, 0)
	}

	return sendJSON(w, students, http.StatusOK)
}

// Enroll обрабатывает PUT /course/{courseId}/student/{studentId}
func (h *CourseHandler) Enroll(w http.ResponseWriter, r *http.Request) error {
	courseID, err := pathID(r, "courseId")
	if err != nil {
		return err
	}
	studentID, err := pathID(r, "studentId")
	if err != nil {
		return err
	}

	course, err := h.courses.EnrollStudent(r.Context(), courseID, studentID)
	if err != nil {
		return storageError(err, courseID, studentID)
	}

	h.logger.InfoContext(r.Context(), "student enrolled",
		slog.Int64("course_id", courseID),
		slog.Int64("student_id", studentID))

	return sendJSON(w, course, http.StatusOK)
}

func decodeCourse(w http.ResponseWriter, r *http.Request) (*models.Course, error) {
	var req api.CourseRequest
	if err := decodeBody(w, r, &req); err != nil {
		return nil, err
	}

	course := &models.Course{Subject: req.Subject, Code: req.Code, Description: req.Description}
	if messages := validation.ValidateCourse(*course); len(messages) > 0 {
		return nil, apierror.Validation(messages...)
	}

	return course, nil
}

func courseWriteError(err error, course *models.Course) error {
	if errors.Is(err, storage.ErrCourseCodeTaken) {
		return apierror.Conflict(err, fmt.Sprintf("A course with code '%s' already exists", course.Code))
	}
	return storageError(err, course.ID, 0)
}
