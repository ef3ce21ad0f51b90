package handlers

import "context"

// contextKey тип для ключей контекста
type contextKey string

// IdentityKey ключ для хранения subject токена в контексте
const IdentityKey contextKey = "identity"

// WithIdentity возвращает контекст с аутентифицированным subject
func WithIdentity(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, IdentityKey, subject)
}

// IdentityFromContext извлекает subject из контекста запроса
func IdentityFromContext(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(IdentityKey).(string)
	return subject, ok && subject != ""
}
