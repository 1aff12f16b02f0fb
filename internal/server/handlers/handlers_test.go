package handlers

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/iudanet/gophprogress/internal/models"
	"github.com/iudanet/gophprogress/internal/server/storage"
)

var testJWTConfig = JWTConfig{
	Secret:         []byte("test-secret-key-at-least-32-bytes!!"),
	AccessTokenTTL: 15 * time.Minute,
}

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func withUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// mockUserStorage хранит пользователей в памяти
type mockUserStorage struct {
	mu              sync.Mutex
	users           map[string]*models.User // username -> User
	createError     error
	getUserError    error
	updateLastLogin func(ctx context.Context, userID string, loginTime time.Time) error
	lastLogins      map[string]time.Time
}

func newMockUserStorage() *mockUserStorage {
	return &mockUserStorage{
		users:      make(map[string]*models.User),
		lastLogins: make(map[string]time.Time),
	}
}

func (m *mockUserStorage) CreateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createError != nil {
		return m.createError
	}
	if _, exists := m.users[user.Username]; exists {
		return storage.ErrUserAlreadyExists
	}
	m.users[user.Username] = user
	return nil
}

func (m *mockUserStorage) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getUserError != nil {
		return nil, m.getUserError
	}
	user, ok := m.users[username]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserStorage) GetUserByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, storage.ErrUserNotFound
}

func (m *mockUserStorage) UpdateLastLogin(ctx context.Context, userID string, loginTime time.Time) error {
	if m.updateLastLogin != nil {
		return m.updateLastLogin(ctx, userID, loginTime)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLogins[userID] = loginTime
	return nil
}

// mockProgressStorage повторяет семантику ApplySave sqlite-хранилища в памяти
type mockProgressStorage struct {
	mu        sync.Mutex
	ledgers   map[string]models.Ledger
	processed map[string]bool
	getError  error
	saveError error
}

func newMockProgressStorage() *mockProgressStorage {
	return &mockProgressStorage{
		ledgers:   make(map[string]models.Ledger),
		processed: make(map[string]bool),
	}
}

func (m *mockProgressStorage) GetLedger(_ context.Context, userID string) (*models.Ledger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getError != nil {
		return nil, m.getError
	}
	l, ok := m.ledgers[userID]
	if !ok {
		return nil, storage.ErrLedgerNotFound
	}
	return &l, nil
}

func (m *mockProgressStorage) ApplySave(_ context.Context, userID, requestID string, apply storage.ApplyFunc) (models.Ledger, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return models.Ledger{}, false, m.saveError
	}

	current, ok := m.ledgers[userID]
	if !ok {
		current = models.NewLedger(userID, time.Now())
	}
	key := userID + "/" + requestID
	if requestID != "" && m.processed[key] {
		return current, true, nil
	}

	updated, err := apply(current)
	if err != nil {
		return models.Ledger{}, false, err
	}
	m.ledgers[userID] = updated
	if requestID != "" {
		m.processed[key] = true
	}
	return updated, false, nil
}

var testNow = time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
