package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/iudanet/gradesubmission/internal/models"
	"github.com/iudanet/gradesubmission/pkg/api"
)

// ErrSessionExpired возвращается, когда сервер отклонил bearer токен (403)
var ErrSessionExpired = errors.New("session expired, please login again")

// ErrNoToken возвращается, когда сервер не прислал токен после успешного входа
var ErrNoToken = errors.New("server returned no bearer token")

// APIError ошибка, которую вернул сервер в теле ErrorResponse
type APIError struct {
	Messages []string
	Status   int
}

func (e *APIError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("server error (%d)", e.Status)
	}
	return fmt.Sprintf("server error (%d): %s", e.Status, strings.Join(e.Messages, "; "))
}

// Client представляет HTTP клиент для взаимодействия с сервером
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient создает новый API клиент
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Токен уходит только на тот же host:port, что и исходный запрос
				if len(via) == 0 {
					return nil
				}
				if req.URL.Host != via[0].URL.Host {
					req.Header.Del(api.HeaderAuthorization)
					return nil
				}
				if auth := via[0].Header.Get(api.HeaderAuthorization); auth != "" {
					req.Header.Set(api.HeaderAuthorization, auth)
				}
				return nil
			},
		},
	}
}

// BaseURL возвращает адрес сервера
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Register регистрирует нового пользователя
func (c *Client) Register(ctx context.Context, creds api.Credentials) error {
	if _, err := c.doRequest(ctx, http.MethodPost, "/user/register", "", creds, nil); err != nil {
		return fmt.Errorf("register request failed: %w", err)
	}
	return nil
}

// Login выполняет аутентификацию и возвращает токен из заголовка Authorization
func (c *Client) Login(ctx context.Context, creds api.Credentials) (string, error) {
	header, err := c.doRequest(ctx, http.MethodPost, "/authenticate", "", creds, nil)
	if err != nil {
		return "", fmt.Errorf("login request failed: %w", err)
	}

	value := header.Get(api.HeaderAuthorization)
	token, ok := strings.CutPrefix(value, api.BearerPrefix)
	if !ok || strings.TrimSpace(token) == "" {
		return "", ErrNoToken
	}
	return strings.TrimSpace(token), nil
}

// Me возвращает username владельца токена
func (c *Client) Me(ctx context.Context, token string) (string, error) {
	var buf bytes.Buffer
	if _, err := c.doRequest(ctx, http.MethodGet, "/user/me", token, nil, &buf); err != nil {
		return "", fmt.Errorf("whoami request failed: %w", err)
	}
	return buf.String(), nil
}

// Students возвращает всех студентов
func (c *Client) Students(ctx context.Context, token string) ([]models.Student, error) {
	var students []models.Student
	if _, err := c.doRequest(ctx, http.MethodGet, "/student/all", token, nil, &students); err != nil {
		return nil, fmt.Errorf("list students request failed: %w", err)
	}
	return students, nil
}

// Student возвращает студента по id
func (c *Client) Student(ctx context.Context, token string, id int64) (*models.Student, error) {
	var student models.Student
	if _, err := c.doRequest(ctx, http.MethodGet, "/student/"+formatID(id), token, nil, &student); err != nil {
		return nil, fmt.Errorf("get student request failed: %w", err)
	}
	return &student, nil
}

// Courses возвращает все курсы
func (c *Client) Courses(ctx context.Context, token string) ([]models.Course, error) {
	var courses []models.Course
	if _, err := c.doRequest(ctx, http.MethodGet, "/course/all", token, nil, &courses); err != nil {
		return nil, fmt.Errorf("list courses request failed: %w", err)
	}
	return courses, nil
}

// Course возвращает курс по id
func (c *Client) Course(ctx context.Context, token string, id int64) (*models.Course, error) {
	var course models.Course
	if _, err := c.doRequest(ctx, http.MethodGet, "/course/"+formatID(id), token, nil, &course); err != nil {
		return nil, fmt.Errorf("get course request failed: %w", err)
	}
	return &course, nil
}

// Grades возвращает все оценки
func (c *Client) Grades(ctx context.Context, token string) ([]models.Grade, error) {
	var grades []models.Grade
	if _, err := c.doRequest(ctx, http.MethodGet, "/grade/all", token, nil, &grades); err != nil {
		return nil, fmt.Errorf("list grades request failed: %w", err)
	}
	return grades, nil
}

// Grade возвращает оценку студента по курсу
func (c *Client) Grade(ctx context.Context, token string, courseID, studentID int64) (*models.Grade, error) {
	var grade models.Grade
	path := "/grade/course/" + formatID(courseID) + "/student/" + formatID(studentID)
	if _, err := c.doRequest(ctx, http.MethodGet, path, token, nil, &grade); err != nil {
		return nil, fmt.Errorf("get grade request failed: %w", err)
	}
	return &grade, nil
}

// Health запрашивает состояние сервера
func (c *Client) Health(ctx context.Context) (*api.HealthResponse, error) {
	var resp api.HealthResponse
	if _, err := c.doRequest(ctx, http.MethodGet, "/health", "", nil, &resp); err != nil {
		return nil, fmt.Errorf("health request failed: %w", err)
	}
	return &resp, nil
}

// doRequest выполняет HTTP запрос и возвращает заголовки успешного ответа.
// result может быть *bytes.Buffer для text/plain ответов.
func (c *Client) doRequest(ctx context.Context, method, path, token string, body, result any) (http.Header, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(api.HeaderAuthorization, api.BearerPrefix+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, responseError(resp.StatusCode, respBody)
	}

	switch dst := result.(type) {
	case nil:
	case *bytes.Buffer:
		dst.Write(respBody)
	default:
		if err := json.Unmarshal(respBody, dst); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return resp.Header, nil
}

// responseError преобразует ответ с ошибкой в APIError.
// 403 на защищенном маршруте означает отсутствующий, просроченный или поддельный токен.
func responseError(status int, body []byte) error {
	apiErr := &APIError{Status: status}

	var errResp api.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		apiErr.Messages = errResp.Message
	} else if text := strings.TrimSpace(string(body)); text != "" {
		apiErr.Messages = []string{text}
	}

	if status == http.StatusForbidden {
		return fmt.Errorf("%w: %w", ErrSessionExpired, apiErr)
	}
	return apiErr
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
