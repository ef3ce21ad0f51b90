package api

import "github.com/iudanet/gradesubmission/internal/models"

// StudentRequest представляет тело запроса на создание или обновление студента
type StudentRequest struct {
	BirthDate models.Date `json:"birthDate"` // дата рождения (YYYY-MM-DD)
	Name      string      `json:"name"`      // имя студента
}

// CourseRequest представляет тело запроса на создание или обновление курса
type CourseRequest struct {
	Subject     string `json:"subject"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

// GradeRequest представляет тело запроса на выставление оценки
type GradeRequest struct {
	Score string `json:"score"` // оценка (A+ ... F)
}
