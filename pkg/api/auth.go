package api

const (
	// HeaderAuthorization заголовок, в котором передается bearer token
	HeaderAuthorization = "Authorization"
	// BearerPrefix префикс значения заголовка Authorization
	BearerPrefix = "Bearer "
)

// Credentials представляет тело запроса на аутентификацию (POST /authenticate)
// и регистрацию (POST /user/register)
type Credentials struct {
	Username string `json:"username"` // username пользователя
	Password string `json:"password"` // пароль в открытом виде, никогда не логируется
}

// ErrorResponse представляет ответ с ошибкой.
// Message всегда содержит хотя бы одно сообщение.
type ErrorResponse struct {
	Error   string   `json:"error"`   // текст HTTP статуса
	Message []string `json:"message"` // человекочитаемые сообщения об ошибке
}

// HealthResponse представляет ответ health check (GET /health)
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}
