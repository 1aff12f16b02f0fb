// Package server собирает HTTP сервер прогресса: маршруты, middleware,
// хранилище и graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iudanet/gophprogress/internal/server/handlers"
	"github.com/iudanet/gophprogress/internal/server/ledger"
	"github.com/iudanet/gophprogress/internal/server/middleware"
	"github.com/iudanet/gophprogress/internal/server/storage"
)

// Маршруты сервера
const (
	RouteRegister      = "/api/v1/auth/register"
	RouteLogin         = "/api/v1/auth/login"
	RouteHealth        = "/api/v1/health"
	RouteQueryProgress = "/game/queryGameProgress"
	RouteSaveProgress  = "/game/saveGameProgress"
	RouteMetrics       = "/metrics"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// Deps зависимости роутера
type Deps struct {
	Logger      *slog.Logger
	Users       storage.UserStorage
	Progress    storage.ProgressStorage
	DB          handlers.Pinger
	RateLimiter *middleware.RateLimiter
	JWT         handlers.JWTConfig
	Rules       ledger.Rules
	Version     string
}

// NewRouter собирает http.Handler со всеми маршрутами.
// Порядок: recovery, metrics, logging, rate limit, затем маршрут.
// Маршруты /game/* дополнительно требуют bearer токен.
func NewRouter(deps Deps) http.Handler {
	authHandler := handlers.NewAuthHandler(deps.Logger, deps.Users, deps.JWT)
	progressHandler := handlers.NewProgressHandler(deps.Logger, deps.Progress, deps.Rules)
	healthHandler := handlers.NewHealthHandler(deps.Logger, deps.DB, deps.Version)
	requireAuth := middleware.AuthMiddleware(deps.Logger, deps.JWT)

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+RouteRegister, authHandler.Register)
	mux.HandleFunc("POST "+RouteLogin, authHandler.Login)
	mux.HandleFunc("GET "+RouteHealth, healthHandler.Health)
	mux.Handle("GET "+RouteQueryProgress, requireAuth(http.HandlerFunc(progressHandler.QueryProgress)))
	mux.Handle("POST "+RouteSaveProgress, requireAuth(http.HandlerFunc(progressHandler.SaveProgress)))
	mux.Handle("GET "+RouteMetrics, promhttp.Handler())

	var h http.Handler = mux
	if deps.RateLimiter != nil {
		h = deps.RateLimiter.Middleware(h)
	}
	h = middleware.LoggingMiddleware(deps.Logger, RouteHealth, RouteMetrics)(h)
	h = middleware.MetricsMiddleware(
		RouteRegister, RouteLogin, RouteHealth, RouteQueryProgress, RouteSaveProgress, RouteMetrics,
	)(h)
	h = middleware.RecoveryMiddleware(deps.Logger)(h)

	return h
}

// Server HTTP сервер прогресса
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// New создает сервер на addr
func New(addr string, handler http.Handler, logger *slog.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
		},
		logger: logger,
	}
}

// ListenAndServe обслуживает запросы до отмены ctx, затем дожидается
// завершения активных запросов не дольше shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	s.logger.Info("Server listening", slog.String("addr", s.httpServer.Addr))

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}
