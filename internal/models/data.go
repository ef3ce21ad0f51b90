package models

// Student представляет студента.
// Связан с курсами через запись (enrollment) и владеет оценками.
type Student struct {
	BirthDate Date   `json:"birthDate"` // дата рождения (YYYY-MM-DD)
	Name      string `json:"name"`      // имя студента
	ID        int64  `json:"id"`        // идентификатор
}

// Course представляет учебный курс.
// Code уникален среди всех курсов.
type Course struct {
	Subject     string `json:"subject"`     // название предмета
	Code        string `json:"code"`        // уникальный код курса (например, "CS101")
	Description string `json:"description"` // описание курса
	ID          int64  `json:"id"`          // идентификатор
}

// Grade представляет оценку студента по курсу.
// Для пары (course, student) существует не более одной оценки.
type Grade struct {
	Student Student `json:"student"` // студент, получивший оценку
	Course  Course  `json:"course"`  // курс, по которому выставлена оценка
	Score   string  `json:"score"`   // оценка (A+ ... F)
	ID      int64   `json:"id"`      // идентификатор
}
