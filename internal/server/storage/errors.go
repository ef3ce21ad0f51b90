package storage

import "errors"

// Common storage errors
var (
	// ErrUserNotFound indicates that user was not found in storage
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates that user with this username already exists
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrStudentNotFound indicates that student was not found in storage
	ErrStudentNotFound = errors.New("student not found")

	// ErrCourseNotFound indicates that course was not found in storage
	ErrCourseNotFound = errors.New("course not found")

	// ErrCourseCodeTaken indicates that another course already uses this code
	ErrCourseCodeTaken = errors.New("course code already exists")

	// ErrAlreadyEnrolled indicates that student is already enrolled in the course
	ErrAlreadyEnrolled = errors.New("student already enrolled")

	// ErrNotEnrolled indicates that student is not enrolled in the course
	ErrNotEnrolled = errors.New("student not enrolled")

	// ErrGradeNotFound indicates that grade was not found for (course, student)
	ErrGradeNotFound = errors.New("grade not found")

	// ErrGradeAlreadyExists indicates that (course, student) already has a grade
	ErrGradeAlreadyExists = errors.New("grade already exists")
)
