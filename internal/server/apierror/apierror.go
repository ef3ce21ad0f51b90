// Package apierror описывает ошибки API и единственную таблицу их отображения
// в HTTP ответы.
package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/iudanet/gradesubmission/pkg/api"
)

// Kind категория ошибки, определяющая HTTP статус
type Kind int

const (
	// KindInternal внутренняя ошибка, детали только в логах
	KindInternal Kind = iota
	KindBadRequest
	KindValidation
	KindNotFound
	KindAccountNotFound
	KindInvalidCredential
	KindUnauthenticated
	KindConflict
	KindRateLimited
	KindMethodNotAllowed
)

// Сообщения, которые клиент видит вместо деталей
const (
	MsgBadRequest        = "BAD REQUEST"
	MsgAccountNotFound   = "Username doesn't exist"
	MsgInvalidCredential = "You provided an incorrect password."
	MsgAccessDenied      = "Access Denied"
	MsgTooManyRequests   = "Too many requests, please try again later"
)

// BearerChallenge значение WWW-Authenticate для ответов 401
const BearerChallenge = `Bearer realm="grades"`

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindAccountNotFound:
		return "account_not_found"
	case KindInvalidCredential:
		return "invalid_credential"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindConflict:
		return "conflict"
	case KindRateLimited:
		return "rate_limited"
	case KindMethodNotAllowed:
		return "method_not_allowed"
	default:
		return "internal"
	}
}

// Error ошибка API: категория, сообщения для клиента и причина для логов
type Error struct {
	Err      error
	Messages []string
	Kind     Kind
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if len(e.Messages) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Messages, "; "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New создает ошибку заданной категории
func New(kind Kind, messages ...string) *Error {
	return &Error{Kind: kind, Messages: messages}
}

// Wrap создает ошибку заданной категории с причиной
func Wrap(kind Kind, err error, messages ...string) *Error {
	return &Error{Kind: kind, Err: err, Messages: messages}
}

// BadRequest некорректный запрос
func BadRequest(err error, messages ...string) *Error {
	return Wrap(KindBadRequest, err, messages...)
}

// Validation нарушены правила валидации сущности
func Validation(messages ...string) *Error {
	return New(KindValidation, messages...)
}

// NotFound сущность не найдена
func NotFound(err error, message string) *Error {
	return Wrap(KindNotFound, err, message)
}

// Conflict нарушена уникальность
func Conflict(err error, message string) *Error {
	return Wrap(KindConflict, err, message)
}

// AccountNotFound пользователь с таким username не существует
func AccountNotFound(err error) *Error {
	return Wrap(KindAccountNotFound, err)
}

// InvalidCredential пароль не совпал
func InvalidCredential() *Error {
	return New(KindInvalidCredential)
}

// Unauthenticated запрос к защищенному маршруту без валидного токена.
// reason попадает только в логи.
func Unauthenticated(reason error) *Error {
	return Wrap(KindUnauthenticated, reason)
}

// RateLimited превышен лимит запросов
func RateLimited() *Error {
	return New(KindRateLimited)
}

// MethodNotAllowed путь существует, но не для этого метода
func MethodNotAllowed(method, path string) *Error {
	return New(KindMethodNotAllowed, fmt.Sprintf("Method %s is not supported for %s.", method, path))
}

// Internal внутренняя ошибка
func Internal(err error) *Error {
	return Wrap(KindInternal, err)
}

// InvalidPathParam путь содержит нечисловой идентификатор
func InvalidPathParam(name, value string, err error) *Error {
	return BadRequest(err, fmt.Sprintf("Failed to convert '%s' with value: '%s'", name, value))
}

// KindOf возвращает категорию ошибки; ошибки без категории считаются внутренними
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindInternal
}

type mapping struct {
	// fixed сообщение, которое всегда заменяет сообщения ошибки
	fixed string
	// fallback сообщение, если ошибка не содержит своих
	fallback string
	status   int
}

// table единственное место, где категории ошибок отображаются в HTTP
var table = map[Kind]mapping{
	KindBadRequest:        {status: http.StatusBadRequest, fallback: MsgBadRequest},
	KindValidation:        {status: http.StatusBadRequest, fallback: "Validation failed"},
	KindNotFound:          {status: http.StatusNotFound, fallback: "The requested resource does not exist"},
	KindAccountNotFound:   {status: http.StatusNotFound, fixed: MsgAccountNotFound},
	KindInvalidCredential: {status: http.StatusUnauthorized, fixed: MsgInvalidCredential},
	KindUnauthenticated:   {status: http.StatusForbidden, fixed: MsgAccessDenied},
	KindConflict:          {status: http.StatusConflict, fallback: "The resource already exists"},
	KindRateLimited:       {status: http.StatusTooManyRequests, fixed: MsgTooManyRequests},
	KindMethodNotAllowed:  {status: http.StatusMethodNotAllowed, fallback: "Method not allowed"},
	KindInternal:          {status: http.StatusBadRequest, fixed: MsgBadRequest},
}

// Translate отображает ошибку в HTTP статус и тело ответа.
// Список сообщений никогда не пуст.
func Translate(err error) (int, api.ErrorResponse) {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		apiErr = Internal(err)
	}

	m, ok := table[apiErr.Kind]
	if !ok {
		m = table[KindInternal]
	}

	var messages []string
	switch {
	case m.fixed != "":
		messages = []string{m.fixed}
	case len(nonEmpty(apiErr.Messages)) > 0:
		messages = nonEmpty(apiErr.Messages)
	default:
		messages = []string{m.fallback}
	}

	return m.status, api.ErrorResponse{
		Error:   http.StatusText(m.status),
		Message: messages,
	}
}

// Write отправляет JSON ответ с ошибкой
func Write(w http.ResponseWriter, err error) int {
	status, body := Translate(err)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", BearerChallenge)
	}
	w.WriteHeader(status)
	// Ошибку записи клиенту обработать уже нельзя
	_ = json.NewEncoder(w).Encode(body)

	return status
}

func nonEmpty(messages []string) []string {
	out := make([]string, 0, len(messages))
	for _, m := range messages {
		if strings.TrimSpace(m) != "" {
			out = append(out, m)
		}
	}
	return out
}
