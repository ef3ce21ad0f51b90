// Package server собирает HTTP сервер: хранилище, конвейер безопасности и маршруты.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/iudanet/gradesubmission/internal/crypto"
	"github.com/iudanet/gradesubmission/internal/server/apidoc"
	"github.com/iudanet/gradesubmission/internal/server/config"
	"github.com/iudanet/gradesubmission/internal/server/handlers"
	"github.com/iudanet/gradesubmission/internal/server/middleware"
	"github.com/iudanet/gradesubmission/internal/server/policy"
	"github.com/iudanet/gradesubmission/internal/server/storage/sqlstore"
	"github.com/iudanet/gradesubmission/internal/server/token"
)

// Server HTTP сервер сервиса оценок
type Server struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *sqlstore.Storage
	limiter *middleware.RateLimiter
	mux     *http.ServeMux
	handler http.Handler
}

// New открывает хранилище по конфигурации и собирает сервер
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, version string) (*Server, error) {
	store, err := sqlstore.New(ctx, cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	srv, err := NewWithStorage(ctx, cfg, logger, store, version)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return srv, nil
}

// NewWithStorage собирает сервер поверх уже открытого хранилища
func NewWithStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger, store *sqlstore.Storage, version string) (*Server, error) {
	codec, err := token.NewCodec(token.Config{
		Issuer: cfg.TokenIssuer,
		Secret: []byte(cfg.SecretKey),
		TTL:    cfg.TokenTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create token codec: %w", err)
	}

	docs, err := apidoc.Load(ctx, version)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		limiter: middleware.NewRateLimiter(cfg.LoginRate, cfg.LoginWindow),
		mux:     http.NewServeMux(),
	}

	hasher := crypto.NewPasswordHasher(cfg.BcryptCost)
	logger.Debug("Password hasher ready", slog.Int("bcrypt_cost", hasher.Cost()))

	s.routes(hasher, codec, docs, version)

	// Порядок стадий фиксирован: первая стадия внешняя
	s.handler = middleware.Chain(s.mux,
		middleware.FaultTranslation(logger),
		middleware.RequestID,
		middleware.LoggingWithSkip(logger, []string{"/health"}),
		middleware.RateLimit(s.limiter, logger, middleware.RateLimitOptions{
			Applies:    middleware.LoginAttempts,
			TrustProxy: cfg.TrustProxy,
		}),
		middleware.Authorization(logger, policy.MustDefault(), codec),
	)

	return s, nil
}

// routes регистрирует все endpoints (Go 1.22+ patterns)
func (s *Server) routes(hasher *crypto.PasswordHasher, codec *token.Codec, docs *apidoc.Doc, version string) {
	auth := handlers.NewAuthHandler(s.logger, s.store, hasher, codec)
	users := handlers.NewUserHandler(s.logger, s.store, hasher)
	students := handlers.NewStudentHandler(s.logger, s.store, s.store)
	courses := handlers.NewCourseHandler(s.logger, s.store)
	grades := handlers.NewGradeHandler(s.logger, s.store)
	health := handlers.NewHealthHandler(s.logger, s.store, version)

	handle := func(pattern string, fn handlers.HandlerFunc) {
		s.mux.Handle(pattern, handlers.Handle(s.logger, fn))
	}

	handle("POST /authenticate", auth.Authenticate)

	handle("POST /user/register", users.Register)
	handle("GET /user/me", users.Me)
	handle("GET /user/{id}", users.Get)

	handle("GET /student/all", students.List)
	handle("POST /student", students.Create)
	handle("GET /student/{id}", students.Get)
	handle("PUT /student/{id}", students.Update)
	handle("DELETE /student/{id}", students.Delete)
	handle("GET /student/{id}/courses", students.Courses)
	handle("GET /student/{id}/grades", students.Grades)

	handle("GET /course/all", courses.List)
	handle("POST /course", courses.Create)
	handle("GET /course/{id}", courses.Get)
	handle("PUT /course/{id}", courses.Update)
	handle("DELETE /course/{id}", courses.Delete)
	handle("GET /course/{id}/students", courses.Students)
	handle("PUT /course/{courseId}/student/{studentId}", courses.Enroll)

	handle("GET /grade/all", grades.List)
	handle("GET /grade/course/{courseId}", grades.CourseGrades)
	handle("GET /grade/course/{courseId}/student/{studentId}", grades.Get)
	handle("POST /grade/course/{courseId}/student/{studentId}", grades.Create)
	handle("PUT /grade/course/{courseId}/student/{studentId}", grades.Update)
	handle("DELETE /grade/course/{courseId}/student/{studentId}", grades.Delete)

	handle("GET /health", health.Health)

	s.mux.HandleFunc("GET "+apidoc.PathJSON, docs.JSON)
	s.mux.HandleFunc("GET "+apidoc.PathYAML, docs.YAML)
	s.mux.HandleFunc("GET "+apidoc.PathUI, docs.UI)
	s.mux.HandleFunc("GET "+apidoc.PathUIIndex, docs.UI)

	handle("/", handlers.Fallback(s.mux))
}

// Handler возвращает собранный конвейер
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run запускает HTTP сервер и останавливает его при отмене ctx
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       s.cfg.IdleTimeout,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	errC := make(chan error, 1)
	go func() {
		s.logger.Info("Server listening", slog.String("addr", s.cfg.Addr))
		errC <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errC:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server", slog.Duration("timeout", s.cfg.ShutdownTimeout))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// Close освобождает ресурсы сервера
func (s *Server) Close() error {
	s.limiter.Stop()
	return s.store.Close()
}
