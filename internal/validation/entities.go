package validation

import (
	"slices"
	"strings"
	"time"

	"github.com/iudanet/gradesubmission/internal/models"
)

// Сообщения об ошибках валидации сущностей
const (
	MsgNameBlank        = "Name cannot be blank"
	MsgBirthDateMissing = "The birth date is required"
	MsgBirthDatePast    = "The birth date must be in the past"
	MsgSubjectBlank     = "Subject cannot be blank"
	MsgCodeBlank        = "Course code cannot be blank"
	MsgDescriptionBlank = "Description cannot be blank"
	MsgScoreInvalid     = "Score must be a letter grade"
)

// Scores допустимые оценки
var Scores = []string{"A+", "A", "A-", "B+", "B", "B-", "C+", "C", "C-", "D+", "D", "D-", "F"}

// ValidateStudent проверяет студента. now задает "сегодня" для проверки даты рождения.
func ValidateStudent(s models.Student, now time.Time) []string {
	var messages []string

	if strings.TrimSpace(s.Name) == "" {
		messages = append(messages, MsgNameBlank)
	}

	switch {
	case s.BirthDate.IsZero():
		messages = append(messages, MsgBirthDateMissing)
	case !s.BirthDate.Before(today(now)):
		// Дата рождения сегодня или позже
		messages = append(messages, MsgBirthDatePast)
	}

	return messages
}

// ValidateCourse проверяет курс
func ValidateCourse(c models.Course) []string {
	var messages []string

	if strings.TrimSpace(c.Subject) == "" {
		messages = append(messages, MsgSubjectBlank)
	}
	if strings.TrimSpace(c.Code) == "" {
		messages = append(messages, MsgCodeBlank)
	}
	if strings.TrimSpace(c.Description) == "" {
		messages = append(messages, MsgDescriptionBlank)
	}

	return messages
}

// ValidateScore проверяет, что оценка входит в допустимый набор
func ValidateScore(score string) []string {
	if slices.Contains(Scores, score) {
		return nil
	}
	return []string{MsgScoreInvalid + " (" + strings.Join(Scores, ", ") + ")"}
}

// today начало текущего дня в UTC: даты хранятся без времени
func today(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
