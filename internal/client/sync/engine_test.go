package sync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpClient "github.com/iudanet/gophprogress/internal/client/api"
	"github.com/iudanet/gophprogress/internal/client/progress"
	"github.com/iudanet/gophprogress/internal/client/storage"
	"github.com/iudanet/gophprogress/internal/models"
	"github.com/iudanet/gophprogress/pkg/api"
)

var engineNow = time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)

type engineFixture struct {
	engine   *Engine
	model    *progress.Model
	client   *httpClient.ClientAPIMock
	tokens   *TokenProviderMock
	store    *storage.ProgressStorageMock
	metadata *storage.MetadataStorageMock
}

func newEngineFixture(t *testing.T, cfg Config, client *httpClient.ClientAPIMock) *engineFixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := func() time.Time { return engineNow }

	store := &storage.ProgressStorageMock{
		LoadProgressFunc: func(ctx context.Context) (*models.ProgressRecord, error) {
			return nil, storage.ErrProgressNotFound
		},
		SaveProgressFunc: func(ctx context.Context, record *models.ProgressRecord) error {
			return nil
		},
	}
	metadata := &storage.MetadataStorageMock{
		GetDeviceIDFunc: func(ctx context.Context) (string, error) {
			return "device-1", nil
		},
		SaveLastSyncTimestampFunc: func(ctx context.Context, timestamp int64) error {
			return nil
		},
		GetLastSyncTimestampFunc: func(ctx context.Context) (int64, error) {
			return 0, nil
		},
	}
	tokens := &TokenProviderMock{
		AccessTokenFunc: func(ctx context.Context) (string, error) {
			return "token-1", nil
		},
	}

	model := progress.NewModel(store, logger, progress.WithClock(clock))
	engine := NewEngine(cfg, client, tokens, model, metadata, logger)
	engine.now = clock
	engine.requestID = func() string { return "progress_test" }

	return &engineFixture{
		engine:   engine,
		model:    model,
		client:   client,
		tokens:   tokens,
		store:    store,
		metadata: metadata,
	}
}

func TestEngine_Start_MergesServerSnapshot(t *testing.T) {
	client := &httpClient.ClientAPIMock{
		QueryProgressFunc: func(ctx context.Context, token string) (*api.ProgressSnapshot, error) {
			assert.Equal(t, "token-1", token)
			return &api.ProgressSnapshot{
				GoldNum:        api.Int64(200),
				GoldNumCompose: api.Int64(30),
				Level:          api.Int64(4),
			}, nil
		},
	}
	f := newEngineFixture(t, Config{}, client)

	require.NoError(t, f.engine.Start(context.Background()))

	record := f.engine.Snapshot()
	assert.Equal(t, int64(30), record.GoldComposed)
	assert.Equal(t, int64(170), record.GoldOther)
	assert.Equal(t, int64(4), record.Level)
	assert.Equal(t, engineNow, record.LastServerSyncAt)

	assert.Len(t, f.store.SaveProgressCalls(), 1)
	require.Len(t, f.metadata.SaveLastSyncTimestampCalls(), 1)
	assert.Equal(t, engineNow.UnixMilli(), f.metadata.SaveLastSyncTimestampCalls()[0].Timestamp)
}

func TestEngine_Start_LocalComposeSurvivesStaleServer(t *testing.T) {
	client := &httpClient.ClientAPIMock{
		QueryProgressFunc: func(ctx context.Context, token string) (*api.ProgressSnapshot, error) {
			return &api.ProgressSnapshot{GoldNum: api.Int64(200), GoldNumCompose: api.Int64(30)}, nil
		},
	}
	f := newEngineFixture(t, Config{}, client)

	cached := models.InitializeDefault(engineNow.Add(-time.Hour))
	cached.GoldComposed = 50
	f.store.LoadProgressFunc = func(ctx context.Context) (*models.ProgressRecord, error) {
		return &cached, nil
	}

	require.NoError(t, f.engine.Start(context.Background()))

	record := f.engine.Snapshot()
	assert.Equal(t, int64(50), record.GoldComposed)
	assert.Equal(t, int64(170), record.GoldOther)
	assert.Equal(t, int64(20), record.UnconfirmedGold())
}

func TestEngine_Start_QueryFailureKeepsCache(t *testing.T) {
	client := &httpClient.ClientAPIMock{
		QueryProgressFunc: func(ctx context.Context, token string) (*api.ProgressSnapshot, error) {
			return nil, &httpClient.SyncError{Kind: httpClient.KindNetwork, Err: errors.New("offline")}
		},
	}
	f := newEngineFixture(t, Config{}, client)

	cached := models.InitializeDefault(engineNow)
	cached.RedBagComposed = 7
	f.store.LoadProgressFunc = func(ctx context.Context) (*models.ProgressRecord, error) {
		return &cached, nil
	}

	err := f.engine.Start(context.Background())
	assert.ErrorIs(t, err, httpClient.ErrNetwork)
	assert.Equal(t, int64(7), f.engine.Snapshot().RedBagComposed)
	assert.Empty(t, f.metadata.SaveLastSyncTimestampCalls())
}

func TestEngine_Start_DeviceIDFallback(t *testing.T) {
	client := &httpClient.ClientAPIMock{
		QueryProgressFunc: func(ctx context.Context, token string) (*api.ProgressSnapshot, error) {
			return &api.ProgressSnapshot{}, nil
		},
	}
	f := newEngineFixture(t, Config{}, client)
	f.metadata.GetDeviceIDFunc = func(ctx context.Context) (string, error) {
		return "", storage.ErrStorageClosed
	}

	require.NoError(t, f.engine.Start(context.Background()))
	assert.NotEmpty(t, f.engine.deviceID)
}

func TestEngine_QueryWithoutToken_NoTransportCalls(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer server.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := &storage.ProgressStorageMock{
		LoadProgressFunc: func(ctx context.Context) (*models.ProgressRecord, error) {
			return nil, storage.ErrProgressNotFound
		},
		SaveProgressFunc: func(ctx context.Context, record *models.ProgressRecord) error {
			return nil
		},
	}
	metadata := &storage.MetadataStorageMock{
		GetDeviceIDFunc: func(ctx context.Context) (string, error) { return "d", nil },
	}
	tokens := &TokenProviderMock{
		AccessTokenFunc: func(ctx context.Context) (string, error) {
			return "", storage.ErrAuthNotFound
		},
	}

	engine := NewEngine(Config{}, httpClient.NewClient(server.URL), tokens, progress.NewModel(store, logger), metadata, logger)

	err := engine.Start(context.Background())
	assert.ErrorIs(t, err, httpClient.ErrAuthMissing)
	assert.Zero(t, requests)
}

func TestEngine_ComposeBatch_PremiumCount(t *testing.T) {
	saved := make(chan api.SaveProgressRequest, 1)
	client := &httpClient.ClientAPIMock{
		SaveProgressFunc: func(ctx context.Context, token string, req api.SaveProgressRequest) (*api.ProgressSnapshot, error) {
			saved <- req
			return &api.ProgressSnapshot{WealthNum: api.Int64(3), GoldNumCompose: api.Int64(30)}, nil
		},
	}
	f := newEngineFixture(t, Config{FlushWindow: 30 * time.Millisecond}, client)

	for i := 0; i < 3; i++ {
		_, err := f.engine.Compose(DefaultPremiumItem, Reward{Gold: 10})
		require.NoError(t, err)
	}

	var req api.SaveProgressRequest
	select {
	case req = <-saved:
	case <-time.After(2 * time.Second):
		t.Fatal("batch was not flushed")
	}

	assert.Equal(t, 3, req.Times)
	assert.Equal(t, 3, req.PremiumCount)
	assert.Equal(t, []string{DefaultPremiumItem, DefaultPremiumItem, DefaultPremiumItem}, req.ItemCodes)
	assert.Equal(t, "progress_test", req.RequestID)
	assert.Equal(t, engineNow.UnixMilli(), req.Timestamp)

	require.Eventually(t, func() bool {
		return f.engine.Snapshot().ServerGoldComposed == 30
	}, time.Second, 5*time.Millisecond)

	record := f.engine.Snapshot()
	assert.Equal(t, int64(30), record.GoldComposed)
	assert.Equal(t, int64(3), record.WealthCount)
	assert.Equal(t, int64(3), record.ComposeEventCount)
	assert.Len(t, client.SaveProgressCalls(), 1)
	require.NoError(t, f.engine.Close(context.Background()))
}

func TestEngine_Flush_Timeout(t *testing.T) {
	client := &httpClient.ClientAPIMock{
		SaveProgressFunc: func(ctx context.Context, token string, req api.SaveProgressRequest) (*api.ProgressSnapshot, error) {
			return nil, &httpClient.SyncError{Kind: httpClient.KindTimeout, Err: context.DeadlineExceeded}
		},
	}
	f := newEngineFixture(t, Config{FlushWindow: time.Hour}, client)

	_, err := f.engine.Compose("LUCKY_CAT", Reward{Gold: 5, RedBag: 1})
	require.NoError(t, err)
	before := f.engine.Snapshot()

	err = f.engine.Flush(context.Background())
	assert.ErrorIs(t, err, httpClient.ErrTimeout)

	// запись не изменилась, буфер уже очищен
	assert.Equal(t, before, f.engine.Snapshot())
	assert.Zero(t, f.engine.Pending())
	assert.Empty(t, f.metadata.SaveLastSyncTimestampCalls())
}

func TestEngine_Flush_RequeueOnFailure(t *testing.T) {
	fail := true
	client := &httpClient.ClientAPIMock{
		SaveProgressFunc: func(ctx context.Context, token string, req api.SaveProgressRequest) (*api.ProgressSnapshot, error) {
			if fail {
				return nil, &httpClient.SyncError{Kind: httpClient.KindHTTP, StatusCode: 502}
			}
			return &api.ProgressSnapshot{}, nil
		},
	}
	f := newEngineFixture(t, Config{FlushWindow: time.Hour, RequeueOnFailure: true}, client)

	_, err := f.engine.Compose("A", Reward{})
	require.NoError(t, err)

	assert.ErrorIs(t, f.engine.Flush(context.Background()), httpClient.ErrHTTP)
	assert.Equal(t, 1, f.engine.Pending())

	fail = false
	require.NoError(t, f.engine.Flush(context.Background()))
	assert.Zero(t, f.engine.Pending())

	calls := client.SaveProgressCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, []string{"A"}, calls[1].Req.ItemCodes)
}

func TestEngine_Compose_InvalidItem(t *testing.T) {
	f := newEngineFixture(t, Config{}, &httpClient.ClientAPIMock{})

	_, err := f.engine.Compose("bad item", Reward{Gold: 1})
	assert.Error(t, err)
	assert.Zero(t, f.engine.Snapshot().GoldComposed)
	assert.Zero(t, f.engine.Pending())
}

func TestEngine_Close_FlushesAndRejects(t *testing.T) {
	client := &httpClient.ClientAPIMock{
		SaveProgressFunc: func(ctx context.Context, token string, req api.SaveProgressRequest) (*api.ProgressSnapshot, error) {
			return &api.ProgressSnapshot{}, nil
		},
	}
	f := newEngineFixture(t, Config{FlushWindow: time.Hour}, client)

	var notified int
	unsubscribe := f.engine.Subscribe(func(models.ProgressRecord) { notified++ })
	defer unsubscribe()

	_, err := f.engine.Compose("A", Reward{Gold: 1})
	require.NoError(t, err)
	require.NoError(t, f.engine.Close(context.Background()))

	assert.Len(t, client.SaveProgressCalls(), 1)
	assert.Equal(t, 2, notified) // compose + merge

	_, err = f.engine.Compose("A", Reward{Gold: 1})
	assert.Error(t, err)
	assert.Equal(t, int64(1), f.engine.Snapshot().GoldComposed)
}
