package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/iudanet/gradesubmission/internal/server/apierror"
)

// FaultTranslation создает внешний middleware конвейера.
// Перехватывает panic из любого внутреннего обработчика, логирует стек
// и отвечает обобщенной ошибкой без внутренних подробностей.
func FaultTranslation(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tracked := &headerTracker{ResponseWriter: w}

			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				// Обрыв соединения сервер обрабатывает сам
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}

				logger.ErrorContext(r.Context(), "panic recovered",
					slog.Any("panic", rec),
					slog.String("method", r.Method),
					slog.String("path", sanitizePath(r.URL.Path)),
					slog.String("stack", string(debug.Stack())))

				if tracked.wroteHeader {
					// Ответ уже начат, заменить его нельзя
					return
				}
				apierror.Write(w, apierror.Internal(panicError(rec)))
			}()

			next.ServeHTTP(tracked, r)
		})
	}
}

// headerTracker запоминает, были ли уже отправлены заголовки ответа
type headerTracker struct {
	http.ResponseWriter
	wroteHeader bool
}

func (t *headerTracker) WriteHeader(code int) {
	t.wroteHeader = true
	t.ResponseWriter.WriteHeader(code)
}

func (t *headerTracker) Write(b []byte) (int, error) {
	t.wroteHeader = true
	return t.ResponseWriter.Write(b)
}

func (t *headerTracker) Unwrap() http.ResponseWriter {
	return t.ResponseWriter
}

func panicError(rec any) error {
	if err, ok := rec.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return errors.New(fmt.Sprint("panic: ", rec))
}
