package storage

import (
	"context"
	"time"
)

// AuthStorage хранит сессии клиента, по одной на адрес сервера.
// Повторный вход на тот же сервер заменяет его сессию.
type AuthStorage interface {
	// SaveAuth сохраняет сессию под ключом auth.ServerURL
	SaveAuth(ctx context.Context, auth *AuthData) error

	// GetAuth возвращает сессию для сервера.
	// Returns ErrAuthNotFound if no session exists
	GetAuth(ctx context.Context, serverURL string) (*AuthData, error)

	// DeleteAuth удаляет сессию сервера (logout).
	// Returns ErrAuthNotFound if no session exists
	DeleteAuth(ctx context.Context, serverURL string) error

	// ListAuth возвращает все сессии, упорядоченные по адресу сервера
	ListAuth(ctx context.Context) ([]AuthData, error)
}

// AuthData represents a saved login session.
// Token is the raw bearer token as issued by the server.
type AuthData struct {
	Username  string `json:"username"`
	Token     string `json:"token"`
	ServerURL string `json:"server_url"`
	ExpiresAt int64  `json:"expires_at"` // unix seconds, 0 if the token carries no exp
}

// Expired reports whether the token is past its expiry at the given time
func (a *AuthData) Expired(now time.Time) bool {
	if a.ExpiresAt == 0 {
		return false
	}
	return !now.Before(time.Unix(a.ExpiresAt, 0))
}
