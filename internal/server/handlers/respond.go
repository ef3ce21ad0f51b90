package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/iudanet/gradesubmission/internal/server/apierror"
)

// maxBodyBytes ограничение размера тела запроса
const maxBodyBytes = 1 << 20

// HandlerFunc обработчик, который возвращает ошибку вместо записи ответа
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Handle адаптирует HandlerFunc к http.Handler.
// Ошибка логируется и отправляется клиенту через apierror.
func Handle(logger *slog.Logger, fn HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := fn(w, r)
		if err == nil {
			return
		}

		ctx := r.Context()
		kind := apierror.KindOf(err)
		if kind == apierror.KindInternal {
			// Детали внутренней ошибки остаются только в логах
			logger.ErrorContext(ctx, "request failed",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Any("error", err))
		} else {
			logger.DebugContext(ctx, "request rejected",
				slog.String("kind", kind.String()),
				slog.Any("error", err))
		}

		apierror.Write(w, err)
	})
}

// sendJSON отправляет JSON ответ
// Сериализация выполняется до записи заголовков, чтобы ошибку можно было вернуть клиенту
func sendJSON(w http.ResponseWriter, data any, statusCode int) error {
	body, err := json.Marshal(data)
	if err != nil {
		return apierror.Internal(fmt.Errorf("failed to encode JSON response: %w", err))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(append(body, '\n'))
	return nil
}

// decodeJSON разбирает тело запроса в dst.
// Неизвестные поля и данные после JSON объекта считаются ошибкой.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("request body must contain a single JSON object")
	}

	return nil
}

// decodeBody как decodeJSON, но сразу возвращает ошибку API
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := decodeJSON(w, r, dst); err != nil {
		return apierror.BadRequest(err, "Malformed JSON request: "+err.Error())
	}
	return nil
}

// pathID извлекает числовой параметр пути (Go 1.22+)
func pathID(r *http.Request, name string) (int64, error) {
	value := r.PathValue(name)

	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, apierror.InvalidPathParam(name, value, err)
	}

	return id, nil
}

// NotFound обработчик для маршрутов без handler
func NotFound(w http.ResponseWriter, r *http.Request) error {
	return apierror.NotFound(nil, fmt.Sprintf("No endpoint %s %s.", r.Method, r.URL.Path))
}

// routeMethods методы, которые используют маршруты API
var routeMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete}

// Fallback регистрируется на "/" в mux. Если путь известен с другим методом,
// отвечает 405 с заголовком Allow, иначе 404.
func Fallback(mux *http.ServeMux) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		var allowed []string
		for _, method := range routeMethods {
			if method == r.Method {
				continue
			}
			alt := r.Clone(r.Context())
			alt.Method = method
			if _, pattern := mux.Handler(alt); pattern != "" && pattern != "/" {
				allowed = append(allowed, method)
			}
		}

		if len(allowed) == 0 {
			return NotFound(w, r)
		}

		w.Header().Set("Allow", strings.Join(allowed, ", "))
		return apierror.MethodNotAllowed(r.Method, r.URL.Path)
	}
}
