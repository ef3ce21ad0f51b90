package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iudanet/gradesubmission/internal/dbx"
	"github.com/iudanet/gradesubmission/internal/models"
	"github.com/iudanet/gradesubmission/internal/server/storage"
)

const courseColumns = `c.id, c.subject, c.code, c.description`

// CreateCourse stores a new course
func (s *Storage) CreateCourse(ctx context.Context, course *models.Course) error {
	query := s.rebind(`INSERT INTO courses (subject, code, description) VALUES (?, ?, ?) RETURNING id`)

	err := s.db.QueryRowContext(ctx, query, course.Subject, course.Code, course.Description).Scan(&course.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrCourseCodeTaken
		}
		return fmt.Errorf("failed to insert course: %w", err)
	}

	return nil
}

// GetCourse retrieves course by ID
func (s *Storage) GetCourse(ctx context.Context, id int64) (*models.Course, error) {
	return s.getCourse(ctx, s.db, id)
}

func (s *Storage) getCourse(ctx context.Context, q dbx.DBTX, id int64) (*models.Course, error) {
	query := s.rebind(`SELECT ` + courseColumns + ` FROM courses c WHERE c.id = ?`)

	course, err := scanCourse(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}

	return course, nil
}

// ListCourses returns all courses ordered by ID
func (s *Storage) ListCourses(ctx context.Context) ([]models.Course, error) {
	return queryCourses(ctx, s.db, `SELECT `+courseColumns+` FROM courses c ORDER BY c.id`)
}

// UpdateCourse replaces subject, code and description
func (s *Storage) UpdateCourse(ctx context.Context, course *models.Course) error {
	query := s.rebind(`UPDATE courses SET subject = ?, code = ?, description = ? WHERE id = ?`)

	result, err := s.db.ExecContext(ctx, query, course.Subject, course.Code, course.Description, course.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrCourseCodeTaken
		}
		return fmt.Errorf("failed to update course: %w", err)
	}

	return affectedOrNotFound(result, storage.ErrCourseNotFound)
}

// DeleteCourse removes course with its grades and enrollments
func (s *Storage) DeleteCourse(ctx context.Context, id int64) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, query := range []string{
			`DELETE FROM grades WHERE course_id = ?`,
			`DELETE FROM course_student WHERE course_id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, s.rebind(query), id); err != nil {
				return fmt.Errorf("failed to delete course relations: %w", err)
			}
		}

		result, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM courses WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("failed to delete course: %w", err)
		}

		return affectedOrNotFound(result, storage.ErrCourseNotFound)
	})
}

// CourseStudents lists students enrolled in the course
func (s *Storage) CourseStudents(ctx context.Context, id int64) ([]models.Student, error) {
	var students []models.Student

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.getCourse(ctx, tx, id); err != nil {
			return err
		}

		query := s.rebind(`
			SELECT ` + studentColumns + `
			FROM students s
			JOIN course_student cs ON cs.student_id = s.id
			WHERE cs.course_id = ?
			ORDER BY s.id
		`)

		var err error
		students, err = queryStudents(ctx, tx, query, id)
		return err
	})

	return students, err
}

// EnrollStudent adds student to the course
func (s *Storage) EnrollStudent(ctx context.Context, courseID, studentID int64) (*models.Course, error) {
	var course *models.Course

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		if course, err = s.getCourse(ctx, tx, courseID); err != nil {
			return err
		}
		if _, err = s.getStudent(ctx, tx, studentID); err != nil {
			return err
		}

		query := s.rebind(`INSERT INTO course_student (course_id, student_id) VALUES (?, ?)`)
		if _, err = tx.ExecContext(ctx, query, courseID, studentID); err != nil {
			if isUniqueViolation(err) {
				return storage.ErrAlreadyEnrolled
			}
			return fmt.Errorf("failed to enroll student: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return course, nil
}

// isEnrolled проверяет запись студента на курс
func (s *Storage) isEnrolled(ctx context.Context, q dbx.DBTX, courseID, studentID int64) (bool, error) {
	query := s.rebind(`SELECT 1 FROM course_student WHERE course_id = ? AND student_id = ?`)

	var one int
	err := q.QueryRowContext(ctx, query, courseID, studentID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check enrollment: %w", err)
	}

	return true, nil
}

func scanCourse(row rowScanner) (*models.Course, error) {
	var course models.Course
	if err := row.Scan(&course.ID, &course.Subject, &course.Code, &course.Description); err != nil {
		return nil, err
	}
	return &course, nil
}

func queryCourses(ctx context.Context, q dbx.DBTX, query string, args ...any) ([]models.Course, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query courses: %w", err)
	}
	defer rows.Close()

	courses := make([]models.Course, 0)
	for rows.Next() {
		course, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan course: %w", err)
		}
		courses = append(courses, *course)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return courses, nil
}
