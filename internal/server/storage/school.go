package storage

import (
	"context"

	"github.com/iudanet/gradesubmission/internal/models"
)

// StudentStorage defines interface for student persistence
type StudentStorage interface {
	// CreateStudent stores a new student and sets student.ID
	CreateStudent(ctx context.Context, student *models.Student) error

	// GetStudent returns ErrStudentNotFound if student doesn't exist
	GetStudent(ctx context.Context, id int64) (*models.Student, error)

	ListStudents(ctx context.Context) ([]models.Student, error)

	// UpdateStudent replaces name and birth date
	// Returns ErrStudentNotFound if student doesn't exist
	UpdateStudent(ctx context.Context, student *models.Student) error

	// DeleteStudent removes the student together with its grades and enrollments
	// Returns ErrStudentNotFound if student doesn't exist
	DeleteStudent(ctx context.Context, id int64) error

	// StudentCourses lists courses the student is enrolled in
	// Returns ErrStudentNotFound if student doesn't exist
	StudentCourses(ctx context.Context, id int64) ([]models.Course, error)
}

// CourseStorage defines interface for course persistence and enrollment
type CourseStorage interface {
	// CreateCourse stores a new course and sets course.ID
	// Returns ErrCourseCodeTaken if code is already used
	CreateCourse(ctx context.Context, course *models.Course) error

	// GetCourse returns ErrCourseNotFound if course doesn't exist
	GetCourse(ctx context.Context, id int64) (*models.Course, error)

	ListCourses(ctx context.Context) ([]models.Course, error)

	// UpdateCourse replaces subject, code and description
	// Returns ErrCourseNotFound or ErrCourseCodeTaken
	UpdateCourse(ctx context.Context, course *models.Course) error

	// DeleteCourse removes the course together with its grades and enrollments
	// Returns ErrCourseNotFound if course doesn't exist
	DeleteCourse(ctx context.Context, id int64) error

	// CourseStudents lists students enrolled in the course
	// Returns ErrCourseNotFound if course doesn't exist
	CourseStudents(ctx context.Context, id int64) ([]models.Student, error)

	// EnrollStudent adds student to the course and returns the course
	// Returns ErrCourseNotFound, ErrStudentNotFound or ErrAlreadyEnrolled
	EnrollStudent(ctx context.Context, courseID, studentID int64) (*models.Course, error)
}

// GradeStorage defines interface for grade persistence.
// A grade is identified by the (course, student) pair.
type GradeStorage interface {
	// CreateGrade stores a grade for an enrolled student
	// Returns ErrCourseNotFound, ErrStudentNotFound, ErrNotEnrolled or ErrGradeAlreadyExists
	CreateGrade(ctx context.Context, courseID, studentID int64, score string) (*models.Grade, error)

	// GetGrade returns ErrGradeNotFound if there is no grade for the pair
	GetGrade(ctx context.Context, courseID, studentID int64) (*models.Grade, error)

	ListGrades(ctx context.Context) ([]models.Grade, error)

	// UpdateGrade changes the score
	// Returns ErrGradeNotFound if there is no grade for the pair
	UpdateGrade(ctx context.Context, courseID, studentID int64, score string) (*models.Grade, error)

	// DeleteGrade returns ErrGradeNotFound if there is no grade for the pair
	DeleteGrade(ctx context.Context, courseID, studentID int64) error

	// CourseGrades returns ErrCourseNotFound if course doesn't exist
	CourseGrades(ctx context.Context, courseID int64) ([]models.Grade, error)

	// StudentGrades returns ErrStudentNotFound if student doesn't exist
	StudentGrades(ctx context.Context, studentID int64) ([]models.Grade, error)
}
