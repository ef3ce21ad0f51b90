package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/iudanet/gradesubmission/internal/models"
	"github.com/iudanet/gradesubmission/internal/server/apierror"
	"github.com/iudanet/gradesubmission/internal/server/storage"
	"github.com/iudanet/gradesubmission/internal/validation"
	"github.com/iudanet/gradesubmission/pkg/api"
)

// UserHandler обрабатывает регистрацию и запросы пользователей
type UserHandler struct {
	logger      *slog.Logger
	userStorage storage.UserStorage
	hasher      PasswordHasher
	now         func() time.Time
}

// NewUserHandler создает новый handler пользователей
func NewUserHandler(logger *slog.Logger, userStorage storage.UserStorage, hasher PasswordHasher) *UserHandler {
	return &UserHandler{
		logger:      logger,
		userStorage: userStorage,
		hasher:      hasher,
		now:         time.Now,
	}
}

// Register обрабатывает POST /user/register
// Регистрация нового пользователя, доступна без токена
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	var creds api.Credentials
	if err := decodeBody(w, r, &creds); err != nil {
		return err
	}

	if messages := validation.ValidateCredentials(creds.Username, creds.Password); len(messages) > 0 {
		h.logger.WarnContext(ctx, "invalid registration", slog.String("username", creds.Username))
		return apierror.Validation(messages...)
	}

	hash, err := h.hasher.Hash(creds.Password)
	if err != nil {
		return apierror.Internal(err)
	}

	user := &models.User{
		Username:     creds.Username,
		PasswordHash: hash,
		CreatedAt:    h.now(),
	}

	if err := h.userStorage.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrUserAlreadyExists) {
			h.logger.WarnContext(ctx, "user already exists", slog.String("username", creds.Username))
			return apierror.Conflict(err, "Username already exists")
		}
		return apierror.Internal(err)
	}

	h.logger.InfoContext(ctx, "user registered successfully",
		slog.String("username", user.Username),
		slog.Int64("user_id", user.ID))

	w.WriteHeader(http.StatusCreated)
	return nil
}

// Get обрабатывает GET /user/{id}
// Возвращает username как text/plain
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}

	user, err := h.userStorage.GetUserByID(r.Context(), id)
	if err != nil {
		return storageError(err, 0, 0)
	}

	return sendText(w, user.Username)
}

// Me обрабатывает GET /user/me
// Возвращает username из токена текущего запроса
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) error {
	subject, ok := IdentityFromContext(r.Context())
	if !ok {
		return apierror.Unauthenticated(errors.New("no identity in request context"))
	}

	// Аккаунт мог быть удален после выпуска токена
	if _, err := h.userStorage.GetUserByUsername(r.Context(), subject); err != nil {
		return storageError(err, 0, 0)
	}

	return sendText(w, subject)
}

func sendText(w http.ResponseWriter, text string) error {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(text))
	return nil
}
