package handlers

import (
	"errors"
	"fmt"

	"github.com/iudanet/gradesubmission/internal/server/apierror"
	"github.com/iudanet/gradesubmission/internal/server/storage"
)

// storageError переводит ошибки хранилища в ошибки API.
// courseID и studentID используются только в тексте сообщений.
func storageError(err error, courseID, studentID int64) error {
	switch {
	case errors.Is(err, storage.ErrStudentNotFound):
		return apierror.NotFound(err, fmt.Sprintf("The student with id '%d' does not exist in our records", studentID))
	case errors.Is(err, storage.ErrCourseNotFound):
		return apierror.NotFound(err, fmt.Sprintf("The course with id '%d' does not exist in our records", courseID))
	case errors.Is(err, storage.ErrGradeNotFound):
		return apierror.NotFound(err, fmt.Sprintf(
			"The grade with courseId '%d' and studentId '%d' does not exist in our records", courseID, studentID))
	case errors.Is(err, storage.ErrNotEnrolled):
		return apierror.NotFound(err, fmt.Sprintf(
			"The student with id: '%d' is not enrolled in the course with id: '%d'", studentID, courseID))
	case errors.Is(err, storage.ErrAlreadyEnrolled):
		return apierror.Conflict(err, fmt.Sprintf(
			"The student with id '%d' is already enrolled in the course with id '%d'", studentID, courseID))
	case errors.Is(err, storage.ErrGradeAlreadyExists):
		return apierror.Conflict(err, fmt.Sprintf(
			"The student with id '%d' already has a grade in the course with id '%d'", studentID, courseID))
	case errors.Is(err, storage.ErrUserNotFound):
		return apierror.NotFound(err, "The user does not exist in our records")
	default:
		return apierror.Internal(err)
	}
}
