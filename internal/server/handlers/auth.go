package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/iudanet/gradesubmission/internal/server/apierror"
	"github.com/iudanet/gradesubmission/internal/server/storage"
	"github.com/iudanet/gradesubmission/pkg/api"
)

// PasswordHasher хеширует и проверяет пароли
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// TokenIssuer выпускает bearer токены
type TokenIssuer interface {
	Issue(subject string, ttl time.Duration) (string, time.Time, error)
	TTL() time.Duration
}

// AuthHandler обрабатывает вход пользователя
type AuthHandler struct {
	logger      *slog.Logger
	userStorage storage.UserStorage
	hasher      PasswordHasher
	tokens      TokenIssuer
}

// NewAuthHandler создает новый handler для аутентификации
func NewAuthHandler(logger *slog.Logger, userStorage storage.UserStorage, hasher PasswordHasher, tokens TokenIssuer) *AuthHandler {
	return &AuthHandler{
		logger:      logger,
		userStorage: userStorage,
		hasher:      hasher,
		tokens:      tokens,
	}
}

// Authenticate обрабатывает POST /authenticate
// При успехе возвращает 200 без тела и токен в заголовке Authorization
func (h *AuthHandler) Authenticate(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	// 1. Парсим request body, хранилище при ошибке не вызывается
	var creds api.Credentials
	if err := decodeJSON(w, r, &creds); err != nil {
		h.logger.WarnContext(ctx, "login failed: malformed request", slog.Any("error", err))
		return apierror.BadRequest(err)
	}
	if creds.Username == "" || creds.Password == "" {
		h.logger.WarnContext(ctx, "login failed: missing credentials")
		return apierror.BadRequest(errors.New("username and password are required"))
	}

	// 2. Ищем пользователя
	user, err := h.userStorage.GetUserByUsername(ctx, creds.Username)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			h.logger.WarnContext(ctx, "login failed: user not found", slog.String("username", creds.Username))
			return apierror.AccountNotFound(err)
		}
		return apierror.Internal(err)
	}

	// 3. Проверяем пароль
	if !h.hasher.Verify(creds.Password, user.PasswordHash) {
		h.logger.WarnContext(ctx, "login failed: invalid password", slog.String("username", creds.Username))
		return apierror.InvalidCredential()
	}

	// 4. Выпускаем токен
	token, expiresAt, err := h.tokens.Issue(user.Username, h.tokens.TTL())
	if err != nil {
		return apierror.Internal(err)
	}

	h.logger.InfoContext(ctx, "user logged in successfully",
		slog.String("username", user.Username),
		slog.Time("expires_at", expiresAt))

	w.Header().Set(api.HeaderAuthorization, api.BearerPrefix+token)
	w.WriteHeader(http.StatusOK)

	return nil
}
