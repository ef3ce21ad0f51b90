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

const studentColumns = `s.id, s.name, s.birth_date`

// CreateStudent stores a new student
func (s *Storage) CreateStudent(ctx context.Context, student *models.Student) error {
	query := s.rebind(`INSERT INTO students (name, birth_date) VALUES (?, ?) RETURNING id`)

	if err := s.db.QueryRowContext(ctx, query, student.Name, student.BirthDate.String()).Scan(&student.ID); err != nil {
		return fmt.Errorf("failed to insert student: %w", err)
	}

	return nil
}

// GetStudent retrieves student by ID
func (s *Storage) GetStudent(ctx context.Context, id int64) (*models.Student, error) {
	return s.getStudent(ctx, s.db, id)
}

func (s *Storage) getStudent(ctx context.Context, q dbx.DBTX, id int64) (*models.Student, error) {
	query := s.rebind(`SELECT ` + studentColumns + ` FROM students s WHERE s.id = ?`)

	student, err := scanStudent(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}

	return student, nil
}

// ListStudents returns all students ordered by ID
func (s *Storage) ListStudents(ctx context.Context) ([]models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students s ORDER BY s.id`

	return queryStudents(ctx, s.db, query)
}

// UpdateStudent replaces name and birth date
func (s *Storage) UpdateStudent(ctx context.Context, student *models.Student) error {
	query := s.rebind(`UPDATE students SET name = ?, birth_date = ? WHERE id = ?`)

	result, err := s.db.ExecContext(ctx, query, student.Name, student.BirthDate.String(), student.ID)
	if err != nil {
		return fmt.Errorf("failed to update student: %w", err)
	}

	return affectedOrNotFound(result, storage.ErrStudentNotFound)
}

// DeleteStudent removes student with its grades and enrollments
func (s *Storage) DeleteStudent(ctx context.Context, id int64) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		// Каскад выполняем явно, не полагаясь на foreign_keys
		for _, query := range []string{
			`DELETE FROM grades WHERE student_id = ?`,
			`DELETE FROM course_student WHERE student_id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, s.rebind(query), id); err != nil {
				return fmt.Errorf("failed to delete student relations: %w", err)
			}
		}

		result, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM students WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("failed to delete student: %w", err)
		}

		return affectedOrNotFound(result, storage.ErrStudentNotFound)
	})
}

// StudentCourses lists courses the student is enrolled in
func (s *Storage) StudentCourses(ctx context.Context, id int64) ([]models.Course, error) {
	var courses []models.Course

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.getStudent(ctx, tx, id); err != nil {
			return err
		}

		query := s.rebind(`
			SELECT ` + courseColumns + `
			FROM courses c
			JOIN course_student cs ON cs.course_id = c.id
			WHERE cs.student_id = ?
			ORDER BY c.id
		`)

		var err error
		courses, err = queryCourses(ctx, tx, query, id)
		return err
	})

	return courses, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStudent(row rowScanner) (*models.Student, error) {
	var (
		student   models.Student
		birthDate string
	)

	if err := row.Scan(&student.ID, &student.Name, &birthDate); err != nil {
		return nil, err
	}

	date, err := models.ParseDate(birthDate)
	if err != nil {
		return nil, fmt.Errorf("student %d: %w", student.ID, err)
	}
	student.BirthDate = date

	return &student, nil
}

func queryStudents(ctx context.Context, q dbx.DBTX, query string, args ...any) ([]models.Student, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query students: %w", err)
	}
	defer rows.Close()

	students := make([]models.Student, 0)
	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		students = append(students, *student)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return students, nil
}
