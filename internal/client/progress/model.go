// Package progress владеет локальной записью прогресса игрока.
//
// Model - единственный владелец записи на устройство: все мутации идут через
// него и сериализуются одним мьютексом. Экземпляр создаётся при старте и
// передаётся зависимым компонентам явно.
package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/iudanet/gophprogress/internal/client/storage"
	"github.com/iudanet/gophprogress/internal/models"
)

// Listener получает копию записи после каждого изменения
type Listener func(record models.ProgressRecord)

// Model хранит запись прогресса в памяти и сохраняет её в ProgressStorage
type Model struct {
	store     storage.ProgressStorage
	logger    *slog.Logger
	now       func() time.Time
	listeners map[int]Listener
	record    models.ProgressRecord
	nextID    int
	mu        sync.Mutex
	persistMu sync.Mutex
}

// Option настраивает Model
type Option func(*Model)

// WithClock подменяет источник времени
func WithClock(now func() time.Time) Option {
	return func(m *Model) {
		m.now = now
	}
}

// NewModel создаёт модель с записью по умолчанию. Для чтения с диска вызовите Load.
func NewModel(store storage.ProgressStorage, logger *slog.Logger, opts ...Option) *Model {
	m := &Model{
		store:     store,
		logger:    logger,
		now:       time.Now,
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.record = models.InitializeDefault(m.now())
	return m
}

// Load читает запись из хранилища. Если записи нет, остаётся запись по умолчанию.
// При ошибке чтения модель также остаётся с записью по умолчанию, ошибка возвращается.
func (m *Model) Load(ctx context.Context) error {
	loaded, err := m.store.LoadProgress(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		m.record = models.InitializeDefault(m.now())
		if errors.Is(err, storage.ErrProgressNotFound) {
			m.logger.Info("No local progress found, starting from defaults")
			return nil
		}
		m.logger.Warn("Failed to load local progress, starting from defaults", "error", err)
		return fmt.Errorf("failed to load progress: %w", err)
	}

	record := *loaded
	// запись из старой версии или повреждённая вручную
	if record.Level < models.DefaultLevel {
		record.Level = models.DefaultLevel
	}
	m.record = record
	m.logger.Debug("Local progress loaded",
		"gold_composed", record.GoldComposed,
		"red_bag_composed", record.RedBagComposed,
		"compose_events", record.ComposeEventCount,
	)
	return nil
}

// Snapshot возвращает копию текущей записи
func (m *Model) Snapshot() models.ProgressRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.record
}

// ApplyCompose применяет оптимистичную награду за compose-событие
func (m *Model) ApplyCompose(gold, redBag, wealth int64) models.ProgressRecord {
	m.mu.Lock()
	m.record = models.ApplyComposeReward(m.record, gold, redBag, wealth)
	updated := m.record
	listeners := m.listenersLocked()
	m.mu.Unlock()

	notify(listeners, updated)
	return updated
}

// ApplyServer сливает серверный снимок в текущую запись
func (m *Model) ApplyServer(snapshot models.ServerSnapshot) models.ProgressRecord {
	m.mu.Lock()
	m.record = models.MergeServerSnapshot(m.record, snapshot, m.now())
	updated := m.record
	listeners := m.listenersLocked()
	m.mu.Unlock()

	notify(listeners, updated)
	return updated
}

// Persist сохраняет текущую запись. Ошибка логируется и возвращается,
// запись в памяти остаётся авторитетной.
func (m *Model) Persist(ctx context.Context) error {
	// сериализуем сохранения, чтобы более старый снимок не перезаписал новый
	m.persistMu.Lock()
	defer m.persistMu.Unlock()

	record := m.Snapshot()
	if err := m.store.SaveProgress(ctx, &record); err != nil {
		m.logger.Error("Failed to persist progress", "error", err)
		return fmt.Errorf("failed to persist progress: %w", err)
	}
	return nil
}

// Subscribe регистрирует слушателя изменений. Возвращает функцию отписки.
func (m *Model) Subscribe(listener Listener) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.listeners[id] = listener

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

func (m *Model) listenersLocked() []Listener {
	if len(m.listeners) == 0 {
		return nil
	}
	out := make([]Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		out = append(out, l)
	}
	return out
}

func notify(listeners []Listener, record models.ProgressRecord) {
	for _, l := range listeners {
		l(record)
	}
}
