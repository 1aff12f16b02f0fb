package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iudanet/gophprogress/internal/client/api"
	"github.com/iudanet/gophprogress/internal/client/storage"
	"github.com/iudanet/gophprogress/internal/validation"
	pkgapi "github.com/iudanet/gophprogress/pkg/api"
)

// ErrSessionExpired access token сохранён, но его срок истёк
var ErrSessionExpired = errors.New("session expired, please login again")

// Service предоставляет функции авторизации и выдаёт токен текущей сессии
type Service struct {
	apiClient api.ClientAPI
	authStore storage.AuthStorage
	logger    *slog.Logger
	now       func() time.Time
}

// NewService создает новый сервис авторизации
func NewService(apiClient api.ClientAPI, authStore storage.AuthStorage, logger *slog.Logger) *Service {
	return &Service{
		apiClient: apiClient,
		authStore: authStore,
		logger:    logger,
		now:       time.Now,
	}
}

// RegisterResult содержит результат регистрации
type RegisterResult struct {
	UserID   string
	Username string
}

// Register регистрирует нового игрока. Сессию не открывает, нужен Login.
func (s *Service) Register(ctx context.Context, username, password string) (*RegisterResult, error) {
	if err := validation.ValidateUsername(username); err != nil {
		return nil, fmt.Errorf("invalid username: %w", err)
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, fmt.Errorf("invalid password: %w", err)
	}

	resp, err := s.apiClient.Register(ctx, pkgapi.RegisterRequest{
		Username: username,
		Password: password,
	})
	if err != nil {
		return nil, fmt.Errorf("registration failed: %w", err)
	}

	s.logger.Info("User registered", "username", username, "user_id", resp.UserID)

	return &RegisterResult{
		UserID:   resp.UserID,
		Username: username,
	}, nil
}

// Login выполняет аутентификацию и сохраняет сессию локально
func (s *Service) Login(ctx context.Context, username, password string) (*storage.AuthData, error) {
	if err := validation.ValidateUsername(username); err != nil {
		return nil, fmt.Errorf("invalid username: %w", err)
	}
	if password == "" {
		return nil, fmt.Errorf("invalid password: password cannot be empty")
	}

	resp, err := s.apiClient.Login(ctx, pkgapi.LoginRequest{
		Username: username,
		Password: password,
	})
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	session := &storage.AuthData{
		Username:    username,
		AccessToken: resp.AccessToken,
	}
	if resp.ExpiresIn > 0 {
		session.ExpiresAt = s.now().Add(time.Duration(resp.ExpiresIn) * time.Second).Unix()
	}

	if err := s.authStore.SaveAuth(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	s.logger.Info("User logged in", "username", username, "token", tokenPrefix(resp.AccessToken))
	return session, nil
}

// Logout удаляет локальную сессию. Отсутствие сессии не ошибка.
func (s *Service) Logout(ctx context.Context) error {
	err := s.authStore.DeleteAuth(ctx)
	if err != nil && !errors.Is(err, storage.ErrAuthNotFound) {
		return fmt.Errorf("failed to delete local auth data: %w", err)
	}
	return nil
}

// Session возвращает текущую сессию
func (s *Service) Session(ctx context.Context) (*storage.AuthData, error) {
	return s.authStore.GetAuth(ctx)
}

// AccessToken реализует sync.TokenProvider
func (s *Service) AccessToken(ctx context.Context) (string, error) {
	session, err := s.authStore.GetAuth(ctx)
	if err != nil {
		return "", err
	}
	if session.ExpiresAt > 0 && s.now().Unix() >= session.ExpiresAt {
		return "", ErrSessionExpired
	}
	return session.AccessToken, nil
}

// tokenPrefix обрезает токен для логов
func tokenPrefix(token string) string {
	const n = 10
	if len(token) <= n {
		return token
	}
	return token[:n] + "..."
}
