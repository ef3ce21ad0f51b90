package handlers

import (
	"log/slog"
	"net/http"

	"github.com/iudanet/gradesubmission/internal/server/apierror"
	"github.com/iudanet/gradesubmission/internal/server/storage"
	"github.com/iudanet/gradesubmission/internal/validation"
	"github.com/iudanet/gradesubmission/pkg/api"
)

// GradeHandler обрабатывает запросы /grade
type GradeHandler struct {
	logger *slog.Logger
	grades storage.GradeStorage
}

// NewGradeHandler создает новый handler оценок
func NewGradeHandler(logger *slog.Logger, grades storage.GradeStorage) *GradeHandler {
	return &GradeHandler{
		logger: logger,
		grades: grades,
	}
}

// gradeIDs извлекает courseId и studentId из пути
func gradeIDs(r *http.Request) (courseID, studentID int64, err error) {
	if courseID, err = pathID(r, "courseId"); err != nil {
		return 0, 0, err
	}
	if studentID, err = pathID(r, "studentId"); err != nil {
		return 0, 0, err
	}
	return courseID, studentID, nil
}

// Get обрабатывает GET /grade/course/{courseId}/student/{studentId}
func (h *GradeHandler) Get(w http.ResponseWriter, r *http.Request) error {
	courseID, studentID, err := gradeIDs(r)
	if err != nil {
		return err
	}

	grade, err := h.grades.GetGrade(r.Context(), courseID, studentID)
	if err != nil {
		return storageError(err, courseID, studentID)
	}

	return sendJSON(w, grade, http.StatusOK)
}

// List обрабатывает GET /grade/all
func (h *GradeHandler) List(w http.ResponseWriter, r *http.Request) error {
	grades, err := h.grades.ListGrades(r.Context())
	if err != nil {
		return apierror.Internal(err)
	}

	return sendJSON(w, grades, http.StatusOK)
}

// Create обрабатывает POST /grade/course/{courseId}/student/{studentId}
// Оценку можно выставить только студенту, записанному на курс
func (h *GradeHandler) Create(w http.ResponseWriter, r *http.Request) error {
	courseID, studentID, err := gradeIDs(r)
	if err != nil {
		return err
	}

	score, err := decodeScore(w, r)
	if err != nil {
		return err
	}

	grade, err := h.grades.CreateGrade(r.Context(), courseID, studentID, score)
	if err != nil {
		return storageError(err, courseID, studentID)
	}

	h.logger.InfoContext(r.Context(), "grade created",
		slog.Int64("course_id", courseID),
		slog.Int64("student_id", studentID))

	return sendJSON(w, grade, http.StatusCreated)
}

// Update обрабатывает PUT /grade/course/{courseId}/student/{studentId}
func (h *GradeHandler) Update(w http.ResponseWriter, r *http.Request) error {
	courseID, studentID, err := gradeIDs(r)
	if err != nil {
		return err
	}

	score, err := decodeScore(w, r)
	if err != nil {
		return err
	}

	grade, err := h.grades.UpdateGrade(r.Context(), courseID, studentID, score)
	if err != nil {
		return storageError(err, courseID, studentID)
	}

	return sendJSON(w, grade, http.StatusOK)
}

// Delete обрабатывает DELETE /grade/course/{courseId}/student/{studentId}
func (h *GradeHandler) Delete(w http.ResponseWriter, r *http.Request) error {
	courseID, studentID, err := gradeIDs(r)
	if err != nil {
		return err
	}

	if err := h.grades.DeleteGrade(r.Context(), courseID, studentID); err != nil {
		return storageError(err, courseID, studentID)
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

// CourseGrades обрабатывает GET /grade/course/{courseId}
func (h *GradeHandler) CourseGrades(w http.ResponseWriter, r *http.Request) error {
	courseID, err := pathID(r, "courseId")
	if err != nil {
		return err
	}

	grades, err := h.grades.CourseGrades(r.Context(), courseID)
	if err != nil {
		return storageError(err, courseID, 0)
	}

	return sendJSON(w, grades, http.StatusOK)
}

func decodeScore(w http.ResponseWriter, r *http.Request) (string, error) {
	var req api.GradeRequest
	if err := decodeBody(w, r, &req); err != nil {
		return "", err
	}

	if messages := validation.ValidateScore(req.Score); len(messages) > 0 {
		return "", apierror.Validation(messages...)
	}

	return req.Score, nil
}
