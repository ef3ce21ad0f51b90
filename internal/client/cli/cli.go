package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iudanet/gradesubmission/internal/client/api"
	"github.com/iudanet/gradesubmission/internal/client/iocli"
	"github.com/iudanet/gradesubmission/internal/client/storage"
	"github.com/iudanet/gradesubmission/internal/client/storage/boltdb"
	"github.com/iudanet/gradesubmission/internal/models"
	pkgapi "github.com/iudanet/gradesubmission/pkg/api"
)

const (
	// EnvPassword переменная окружения с паролем пользователя
	EnvPassword = "GRADES_PASSWORD"
	// DefaultServerURL адрес сервера по умолчанию
	DefaultServerURL = "http://localhost:8080"
	// DefaultDBPath путь к локальной БД сессии по умолчанию
	DefaultDBPath = "gradectl.db"
)

// ErrNotLoggedIn возвращается защищенными командами без сохраненной сессии
var ErrNotLoggedIn = errors.New("not logged in, please run 'gradectl login' first")

// APIClient операции сервера, которые использует CLI
type APIClient interface {
	BaseURL() string
	Register(ctx context.Context, creds pkgapi.Credentials) error
	Login(ctx context.Context, creds pkgapi.Credentials) (string, error)
	Me(ctx context.Context, token string) (string, error)
	Students(ctx context.Context, token string) ([]models.Student, error)
	Student(ctx context.Context, token string, id int64) (*models.Student, error)
	Courses(ctx context.Context, token string) ([]models.Course, error)
	Course(ctx context.Context, token string, id int64) (*models.Course, error)
	Grades(ctx context.Context, token string) ([]models.Grade, error)
	Grade(ctx context.Context, token string, courseID, studentID int64) (*models.Grade, error)
	Health(ctx context.Context) (*pkgapi.HealthResponse, error)
}

// Backend зависимости, которые открываются перед выполнением команды
type Backend struct {
	API   APIClient
	Store storage.AuthStorage
	Close func() error
}

// OpenFunc открывает Backend для адреса сервера и пути к БД
type OpenFunc func(ctx context.Context, serverURL, dbPath string) (*Backend, error)

// OpenBackend открывает BoltDB хранилище сессии и создает HTTP клиент
func OpenBackend(ctx context.Context, serverURL, dbPath string) (*Backend, error) {
	boltStorage, err := boltdb.New(ctx, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Backend{
		API:   api.NewClient(serverURL),
		Store: boltStorage,
		Close: boltStorage.Close,
	}, nil
}

// Cli выполняет команды gradectl
type Cli struct {
	io      iocli.IO
	open    OpenFunc
	getenv  func(string) string
	now     func() time.Time
	backend *Backend
	version string

	serverURL string
	dbPath    string
	jsonOut   bool
}

// New создает CLI поверх io; open вызывается один раз перед первой командой
func New(io iocli.IO, open OpenFunc, version string) *Cli {
	return &Cli{
		io:      io,
		open:    open,
		getenv:  os.Getenv,
		now:     time.Now,
		version: version,
	}
}

// Execute разбирает аргументы и выполняет команду
func (c *Cli) Execute(ctx context.Context, args []string) error {
	root := c.RootCommand()
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if closeErr := c.disconnect(); closeErr != nil {
		err = errors.Join(err, fmt.Errorf("failed to close database: %w", closeErr))
	}
	return err
}

func (c *Cli) connect(ctx context.Context) error {
	if c.backend != nil {
		return nil
	}

	backend, err := c.open(ctx, c.serverURL, c.dbPath)
	if err != nil {
		return err
	}
	c.backend = backend
	return nil
}

func (c *Cli) disconnect() error {
	if c.backend == nil || c.backend.Close == nil {
		return nil
	}
	err := c.backend.Close()
	c.backend = nil
	return err
}

// session возвращает сессию текущего сервера, если токен еще не истек
func (c *Cli) session(ctx context.Context) (*storage.AuthData, error) {
	auth, err := c.backend.Store.GetAuth(ctx, c.backend.API.BaseURL())
	if err != nil {
		if errors.Is(err, storage.ErrAuthNotFound) {
			return nil, ErrNotLoggedIn
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if auth.Expired(c.now()) {
		return nil, api.ErrSessionExpired
	}
	return auth, nil
}

// protected сводит отказ сервера по токену к одному сообщению
func protected(err error) error {
	if errors.Is(err, api.ErrSessionExpired) {
		return api.ErrSessionExpired
	}
	return err
}

// readUsername берет username из флага или спрашивает у пользователя
func (c *Cli) readUsername(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}

	username, err := c.io.ReadInput("Username: ")
	if err != nil {
		return "", fmt.Errorf("failed to read username: %w", err)
	}
	if username == "" {
		return "", fmt.Errorf("username cannot be empty")
	}
	return username, nil
}

// readPassword retrieves the password from various sources with priority:
// 1. Environment variable GRADES_PASSWORD
// 2. File given by --password-file
// 3. Interactive prompt (fallback), with confirmation when confirm is set
func (c *Cli) readPassword(passwordFile string, confirm bool) (string, error) {
	if envPassword := c.getenv(EnvPassword); envPassword != "" {
		return envPassword, nil
	}

	if passwordFile != "" {
		content, err := os.ReadFile(passwordFile)
		if err != nil {
			return "", fmt.Errorf("failed to read password file: %w", err)
		}
		// Убираем trailing newline/whitespace
		password := strings.TrimSpace(string(content))
		if password == "" {
			return "", fmt.Errorf("password file is empty")
		}
		return password, nil
	}

	password, err := c.io.ReadPassword("Password: ")
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}

	if confirm {
		again, err := c.io.ReadPassword("Confirm password: ")
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		if again != password {
			return "", fmt.Errorf("passwords do not match")
		}
	}

	return password, nil
}

// tokenExpiry читает exp из токена без проверки подписи (ключ есть только у сервера).
// Возвращает 0, если exp отсутствует или токен не разбирается.
func tokenExpiry(token string) int64 {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return 0
	}
	if claims.ExpiresAt == nil {
		return 0
	}
	return claims.ExpiresAt.Unix()
}
