package models

import "time"

// User представляет учетную запись пользователя API
type User struct {
	CreatedAt    time.Time `json:"created_at"` // время регистрации
	Username     string    `json:"username"`   // уникальный username
	PasswordHash string    `json:"-"`          // bcrypt хеш пароля, никогда не сериализуется
	ID           int64     `json:"id"`         // идентификатор пользователя
}
