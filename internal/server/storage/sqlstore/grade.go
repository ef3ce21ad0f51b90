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

// gradeSelect выбирает оценку вместе со студентом и курсом
const gradeSelect = `
	SELECT g.id, g.score, ` + studentColumns + `, ` + courseColumns + `
	FROM grades g
	JOIN students s ON s.id = g.student_id
	JOIN courses c ON c.id = g.course_id
`

// CreateGrade stores a grade for an enrolled student
func (s *Storage) CreateGrade(ctx context.Context, courseID, studentID int64, score string) (*models.Grade, error) {
	var grade *models.Grade

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		course, err := s.getCourse(ctx, tx, courseID)
		if err != nil {
			return err
		}
		student, err := s.getStudent(ctx, tx, studentID)
		if err != nil {
			return err
		}

		// Оценку можно поставить только записанному на курс студенту
		enrolled, err := s.isEnrolled(ctx, tx, courseID, studentID)
		if err != nil {
			return err
		}
		if !enrolled {
			return storage.ErrNotEnrolled
		}

		grade = &models.Grade{Score: score, Course: *course, Student: *student}

		query := s.rebind(`INSERT INTO grades (score, course_id, student_id) VALUES (?, ?, ?) RETURNING id`)
		if err := tx.QueryRowContext(ctx, query, score, courseID, studentID).Scan(&grade.ID); err != nil {
			if isUniqueViolation(err) {
				return storage.ErrGradeAlreadyExists
			}
			return fmt.Errorf("failed to insert grade: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return grade, nil
}

// GetGrade retrieves grade by (course, student)
func (s *Storage) GetGrade(ctx context.Context, courseID, studentID int64) (*models.Grade, error) {
	return s.getGrade(ctx, s.db, courseID, studentID)
}

func (s *Storage) getGrade(ctx context.Context, q dbx.DBTX, courseID, studentID int64) (*models.Grade, error) {
	query := s.rebind(gradeSelect + `WHERE g.course_id = ? AND g.student_id = ?`)

	grade, err := scanGrade(q.QueryRowContext(ctx, query, courseID, studentID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrGradeNotFound
		}
		return nil, fmt.Errorf("failed to get grade: %w", err)
	}

	return grade, nil
}

// ListGrades returns all grades ordered by ID
func (s *Storage) ListGrades(ctx context.Context) ([]models.Grade, error) {
	return queryGrades(ctx, s.db, gradeSelect+`ORDER BY g.id`)
}

// UpdateGrade changes the score of an existing grade
func (s *Storage) UpdateGrade(ctx context.Context, courseID, studentID int64, score string) (*models.Grade, error) {
	var grade *models.Grade

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		query := s.rebind(`UPDATE grades SET score = ? WHERE course_id = ? AND student_id = ?`)

		result, err := tx.ExecContext(ctx, query, score, courseID, studentID)
		if err != nil {
			return fmt.Errorf("failed to update grade: %w", err)
		}
		if err := affectedOrNotFound(result, storage.ErrGradeNotFound); err != nil {
			return err
		}

		grade, err = s.getGrade(ctx, tx, courseID, studentID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return grade, nil
}

// DeleteGrade removes grade by (course, student)
func (s *Storage) DeleteGrade(ctx context.Context, courseID, studentID int64) error {
	query := s.rebind(`DELETE FROM grades WHERE course_id = ? AND student_id = ?`)

	result, err := s.db.ExecContext(ctx, query, courseID, studentID)
	if err != nil {
		return fmt.Errorf("failed to delete grade: %w", err)
	}

	return affectedOrNotFound(result, storage.ErrGradeNotFound)
}

// CourseGrades lists grades of the course
func (s *Storage) CourseGrades(ctx context.Context, courseID int64) ([]models.Grade, error) {
	var grades []models.Grade

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.getCourse(ctx, tx, courseID); err != nil {
			return err
		}

		var err error
		grades, err = queryGrades(ctx, tx, s.rebind(gradeSelect+`WHERE g.course_id = ? ORDER BY g.id`), courseID)
		return err
	})

	return grades, err
}

// StudentGrades lists grades of the student
func (s *Storage) StudentGrades(ctx context.Context, studentID int64) ([]models.Grade, error) {
	var grades []models.Grade

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.getStudent(ctx, tx, studentID); err != nil {
			return err
		}

		var err error
		grades, err = queryGrades(ctx, tx, s.rebind(gradeSelect+`WHERE g.student_id = ? ORDER BY g.id`), studentID)
		return err
	})

	return grades, err
}

func scanGrade(row rowScanner) (*models.Grade, error) {
	var (
		grade     models.Grade
		birthDate string
	)

	err := row.Scan(
		&grade.ID,
		&grade.Score,
		&grade.Student.ID,
		&grade.Student.Name,
		&birthDate,
		&grade.Course.ID,
		&grade.Course.Subject,
		&grade.Course.Code,
		&grade.Course.Description,
	)
	if err != nil {
		return nil, err
	}

	date, err := models.ParseDate(birthDate)
	if err != nil {
		return nil, fmt.Errorf("grade %d: %w", grade.ID, err)
	}
	grade.Student.BirthDate = date

	return &grade, nil
}

func queryGrades(ctx context.Context, q dbx.DBTX, query string, args ...any) ([]models.Grade, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query grades: %w", err)
	}
	defer rows.Close()

	grades := make([]models.Grade, 0)
	for rows.Next() {
		grade, err := scanGrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan grade: %w", err)
		}
		grades = append(grades, *grade)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return grades, nil
}
