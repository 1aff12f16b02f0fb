// Package sync связывает модель прогресса, агрегатор compose-событий и
// клиент сервера прогресса.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	httpClient "github.com/iudanet/gophprogress/internal/client/api"
	"github.com/iudanet/gophprogress/internal/client/batch"
	"github.com/iudanet/gophprogress/internal/client/progress"
	"github.com/iudanet/gophprogress/internal/client/storage"
	"github.com/iudanet/gophprogress/internal/models"
	"github.com/iudanet/gophprogress/internal/validation"
)

// DefaultPremiumItem код премиального предмета, считается в composeTgcfNum
const DefaultPremiumItem = "GOD_OF_WEALTH"

//go:generate moq -out token_mock.go . TokenProvider

// TokenProvider выдаёт bearer-токен текущей сессии. Пустая строка означает,
// что пользователь не вошёл.
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

// Config параметры движка синхронизации
type Config struct {
	PackageName      string
	PremiumItem      string
	FlushWindow      time.Duration
	RequeueOnFailure bool
}

// Reward оптимистичная награда за одно compose-событие
type Reward struct {
	Gold   int64
	RedBag int64
}

// Engine оркестрирует: compose -> батч -> saveGameProgress -> merge -> persist
type Engine struct {
	client     httpClient.ClientAPI
	tokens     TokenProvider
	model      *progress.Model
	metadata   storage.MetadataStorage
	aggregator *batch.Aggregator
	logger     *slog.Logger
	now        func() time.Time
	requestID  func() string
	cfg        Config
	deviceID   string
}

// NewEngine создаёт движок. Start должен быть вызван до Compose.
func NewEngine(
	cfg Config,
	client httpClient.ClientAPI,
	tokens TokenProvider,
	model *progress.Model,
	metadata storage.MetadataStorage,
	logger *slog.Logger,
) *Engine {
	if cfg.PremiumItem == "" {
		cfg.PremiumItem = DefaultPremiumItem
	}

	e := &Engine{
		cfg:       cfg,
		client:    client,
		tokens:    tokens,
		model:     model,
		metadata:  metadata,
		logger:    logger,
		now:       time.Now,
		requestID: NewRequestID,
	}
	e.aggregator = batch.New(batch.Config{
		Window:           cfg.FlushWindow,
		RequeueOnFailure: cfg.RequeueOnFailure,
	}, e.flushBatch, logger)

	return e
}

// Start загружает локальную запись и подтягивает серверный снимок.
// Ошибка сети возвращается, но кешированная запись остаётся рабочей.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.model.Load(ctx); err != nil {
		e.logger.Warn("Continuing with default progress", "error", err)
	}

	deviceID, err := e.metadata.GetDeviceID(ctx)
	if err != nil {
		deviceID = uuid.NewString()
		e.logger.Warn("Failed to load device id, using ephemeral one", "error", err, "device_id", deviceID)
	}
	e.deviceID = deviceID

	if _, err := e.Refresh(ctx); err != nil {
		return fmt.Errorf("initial progress query failed: %w", err)
	}
	return nil
}

// Refresh запрашивает серверный снимок, сливает его и сохраняет запись
func (e *Engine) Refresh(ctx context.Context) (models.ProgressRecord, error) {
	token := e.accessToken(ctx)

	snapshot, err := e.client.QueryProgress(ctx, token)
	if err != nil {
		e.logger.Warn("Failed to query server progress, keeping cached record", "error", err)
		return e.model.Snapshot(), err
	}

	merged := e.model.ApplyServer(toServerSnapshot(snapshot))
	_ = e.model.Persist(ctx)
	e.markSynced(ctx)

	e.logger.Info("Server progress merged",
		"gold_total", merged.GoldTotal(),
		"red_bag_total", merged.RedBagTotal(),
		"level", merged.Level,
	)
	return merged, nil
}

// Compose применяет оптимистичную награду и ставит событие в батч
func (e *Engine) Compose(itemCode string, reward Reward) (models.ProgressRecord, error) {
	if err := validation.ValidateItemCode(itemCode); err != nil {
		return e.model.Snapshot(), err
	}

	var wealth int64
	if itemCode == e.cfg.PremiumItem {
		wealth = 1
	}

	// сначала проверяем, что агрегатор принимает события, иначе награда не дойдёт до сервера
	if err := e.aggregator.Record(itemCode); err != nil {
		return e.model.Snapshot(), err
	}
	return e.model.ApplyCompose(reward.Gold, reward.RedBag, wealth), nil
}

// Flush немедленно отправляет накопленный батч
func (e *Engine) Flush(ctx context.Context) error {
	return e.aggregator.Flush(ctx)
}

// Close отправляет остаток батча и сохраняет запись
func (e *Engine) Close(ctx context.Context) error {
	err := e.aggregator.Close(ctx)
	_ = e.model.Persist(ctx)
	return err
}

// Snapshot возвращает текущую запись для UI
func (e *Engine) Snapshot() models.ProgressRecord {
	return e.model.Snapshot()
}

// Subscribe подписывает UI на изменения записи
func (e *Engine) Subscribe(listener progress.Listener) func() {
	return e.model.Subscribe(listener)
}

// Pending количество событий, ожидающих отправки
func (e *Engine) Pending() int {
	return e.aggregator.Pending()
}

// flushBatch вызывается агрегатором; батч уже изъят из буфера
func (e *Engine) flushBatch(ctx context.Context, items []string) error {
	req, err := BuildSaveRequest(e.model.Snapshot(), items, RequestMeta{
		RequestID:   e.requestID(),
		DeviceID:    e.deviceID,
		PackageName: e.cfg.PackageName,
		PremiumItem: e.cfg.PremiumItem,
		Timestamp:   e.now().UnixMilli(),
	})
	if err != nil {
		return err
	}

	e.logger.Debug("Saving compose batch",
		"request_id", req.RequestID,
		"times", req.Times,
		"premium", req.PremiumCount,
	)

	snapshot, err := e.client.SaveProgress(ctx, e.accessToken(ctx), req)
	if err != nil {
		// оптимистичные награды остаются в записи, серверная часть не меняется
		_ = e.model.Persist(ctx)
		return fmt.Errorf("save progress %s: %w", req.RequestID, err)
	}

	e.model.ApplyServer(toServerSnapshot(snapshot))
	_ = e.model.Persist(ctx)
	e.markSynced(ctx)
	return nil
}

func (e *Engine) accessToken(ctx context.Context) string {
	token, err := e.tokens.AccessToken(ctx)
	if err != nil {
		e.logger.Debug("No access token available", "error", err)
		return ""
	}
	return token
}

func (e *Engine) markSynced(ctx context.Context) {
	if err := e.metadata.SaveLastSyncTimestamp(ctx, e.now().UnixMilli()); err != nil {
		e.logger.Warn("Failed to save last sync timestamp", "error", err)
	}
}
