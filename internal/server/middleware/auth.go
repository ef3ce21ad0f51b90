package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/iudanet/gradesubmission/internal/server/apierror"
	"github.com/iudanet/gradesubmission/internal/server/handlers"
	"github.com/iudanet/gradesubmission/internal/server/policy"
	"github.com/iudanet/gradesubmission/internal/server/token"
	"github.com/iudanet/gradesubmission/pkg/api"
)

var (
	errMissingToken    = errors.New("missing Authorization header")
	errMalformedHeader = errors.New("malformed Authorization header")
)

// TokenParser проверяет подпись и срок действия токена
type TokenParser interface {
	Parse(tokenString string) (*token.Claims, error)
}

// Authorization создает middleware для проверки bearer токена.
// Публичные маршруты (по classifier) пропускаются без проверки.
// Любая ошибка токена дает 403 без подробностей, причина пишется только в лог.
func Authorization(logger *slog.Logger, classifier *policy.Classifier, tokens TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if classifier.IsPublic(r) {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()

			tokenString, err := bearerToken(r)
			if err != nil {
				logger.WarnContext(ctx, "request rejected",
					slog.String("reason", reason(err)),
					slog.String("method", r.Method),
					slog.String("path", sanitizePath(r.URL.Path)))
				apierror.Write(w, apierror.Unauthenticated(err))
				return
			}

			claims, err := tokens.Parse(tokenString)
			if err != nil {
				logger.WarnContext(ctx, "request rejected",
					slog.String("reason", reason(err)),
					slog.String("method", r.Method),
					slog.String("path", sanitizePath(r.URL.Path)),
					slog.Any("error", err))
				apierror.Write(w, apierror.Unauthenticated(err))
				return
			}

			logger.DebugContext(ctx, "request authenticated", slog.String("subject", claims.Subject))

			// Передаем запрос дальше с идентичностью в контексте
			next.ServeHTTP(w, r.WithContext(handlers.WithIdentity(ctx, claims.Subject)))
		})
	}
}

// bearerToken извлекает токен из заголовка "Authorization: Bearer <token>"
func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get(api.HeaderAuthorization)
	if header == "" {
		return "", errMissingToken
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], strings.TrimSpace(api.BearerPrefix)) {
		return "", errMalformedHeader
	}

	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		return "", errMalformedHeader
	}

	return tokenString, nil
}

// reason короткое имя причины отказа для логов
func reason(err error) string {
	switch {
	case errors.Is(err, errMissingToken):
		return "missing"
	case errors.Is(err, errMalformedHeader):
		return "malformed"
	case errors.Is(err, token.ErrTokenExpired):
		return "expired"
	default:
		return "invalid"
	}
}
