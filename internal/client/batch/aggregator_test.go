package batch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTimer таймер, который срабатывает только вручную
type fakeTimer struct {
	fn      func()
	delay   time.Duration
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	wasActive := !t.stopped
	t.stopped = true
	return wasActive
}

type fakeScheduler struct {
	timers []*fakeTimer
	mu     sync.Mutex
}

func (s *fakeScheduler) afterFunc(d time.Duration, f func()) stopper {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{fn: f, delay: d}
	s.timers = append(s.timers, t)
	return t
}

func (s *fakeScheduler) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// fire вызывает callback i-го таймера синхронно, как будто он сработал
func (s *fakeScheduler) fire(i int) {
	s.mu.Lock()
	t := s.timers[i]
	s.mu.Unlock()
	t.fn()
}

type recorder struct {
	err     error
	batches [][]string
	mu      sync.Mutex
}

func (r *recorder) flush(ctx context.Context, batch []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, batch)
	return r.err
}

func (r *recorder) got() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.batches...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAggregator(cfg Config, flush FlushFunc) (*Aggregator, *fakeScheduler) {
	sched := &fakeScheduler{}
	agg := New(cfg, flush, discardLogger())
	agg.afterFunc = sched.afterFunc
	return agg, sched
}

func TestAggregator_SingleTimerPerWindow(t *testing.T) {
	rec := &recorder{}
	agg, sched := newTestAggregator(Config{Window: 2 * time.Second}, rec.flush)

	require.NoError(t, agg.Record("GOD_OF_WEALTH"))
	require.NoError(t, agg.Record("GOD_OF_WEALTH"))
	require.NoError(t, agg.Record("GOD_OF_WEALTH"))

	assert.Equal(t, 1, sched.count())
	assert.Equal(t, 2*time.Second, sched.timers[0].delay)
	assert.True(t, agg.Armed())
	assert.Equal(t, 3, agg.Pending())

	sched.fire(0)

	require.Len(t, rec.got(), 1)
	assert.Equal(t, []string{"GOD_OF_WEALTH", "GOD_OF_WEALTH", "GOD_OF_WEALTH"}, rec.got()[0])
	assert.False(t, agg.Armed())
	assert.Zero(t, agg.Pending())
}

func TestAggregator_DefaultWindow(t *testing.T) {
	agg, sched := newTestAggregator(Config{}, (&recorder{}).flush)

	require.NoError(t, agg.Record("A"))
	assert.Equal(t, DefaultWindow, sched.timers[0].delay)
}

func TestAggregator_BatchIsolation(t *testing.T) {
	var agg *Aggregator
	var flushed [][]string

	agg, sched := newTestAggregator(Config{Window: time.Second}, func(ctx context.Context, batch []string) error {
		// событие, пришедшее во время отправки, попадает в следующий батч
		require.NoError(t, agg.Record("LATE"))
		flushed = append(flushed, batch)
		return nil
	})

	require.NoError(t, agg.Record("A"))
	require.NoError(t, agg.Record("B"))
	sched.fire(0)

	require.Len(t, flushed, 1)
	assert.Equal(t, []string{"A", "B"}, flushed[0])

	// LATE взвёл новый таймер
	assert.Equal(t, 2, sched.count())
	assert.True(t, agg.Armed())
	assert.Equal(t, 1, agg.Pending())
}

func TestAggregator_FailureDropsBatch(t *testing.T) {
	rec := &recorder{err: errors.New("timeout")}
	agg, sched := newTestAggregator(Config{Window: time.Second}, rec.flush)

	require.NoError(t, agg.Record("A"))
	sched.fire(0)

	assert.Len(t, rec.got(), 1)
	assert.Zero(t, agg.Pending())
	assert.False(t, agg.Armed())
	assert.Equal(t, 1, sched.count())
}

func TestAggregator_RequeueOnFailure(t *testing.T) {
	var agg *Aggregator
	calls := 0

	agg, sched := newTestAggregator(Config{Window: time.Second, RequeueOnFailure: true}, func(ctx context.Context, batch []string) error {
		calls++
		if calls == 1 {
			require.NoError(t, agg.Record("C"))
			return errors.New("network down")
		}
		assert.Equal(t, []string{"A", "B", "C"}, batch)
		return nil
	})

	require.NoError(t, agg.Record("A"))
	require.NoError(t, agg.Record("B"))
	sched.fire(0)

	// батч вернулся в начало буфера перед C, таймер взведён один раз
	assert.Equal(t, 3, agg.Pending())
	assert.True(t, agg.Armed())
	assert.Equal(t, 2, sched.count())

	sched.fire(1)
	assert.Equal(t, 2, calls)
	assert.Zero(t, agg.Pending())
}

func TestAggregator_ManualFlushCancelsTimer(t *testing.T) {
	rec := &recorder{}
	agg, sched := newTestAggregator(Config{Window: time.Second}, rec.flush)

	require.NoError(t, agg.Record("A"))
	require.NoError(t, agg.Flush(context.Background()))

	assert.True(t, sched.timers[0].stopped)
	assert.False(t, agg.Armed())

	// запоздавший callback старого таймера ничего не делает
	sched.fire(0)
	assert.Len(t, rec.got(), 1)

	// пустой flush ничего не отправляет
	require.NoError(t, agg.Flush(context.Background()))
	assert.Len(t, rec.got(), 1)
}

func TestAggregator_FlushReturnsError(t *testing.T) {
	flushErr := errors.New("boom")
	agg, _ := newTestAggregator(Config{}, (&recorder{err: flushErr}).flush)

	require.NoError(t, agg.Record("A"))
	assert.ErrorIs(t, agg.Flush(context.Background()), flushErr)
}

func TestAggregator_Close(t *testing.T) {
	rec := &recorder{}
	agg, sched := newTestAggregator(Config{Window: time.Second, RequeueOnFailure: true}, rec.flush)

	require.NoError(t, agg.Record("A"))
	require.NoError(t, agg.Close(context.Background()))

	assert.Equal(t, [][]string{{"A"}}, rec.got())
	assert.True(t, sched.timers[0].stopped)
	assert.ErrorIs(t, agg.Record("B"), ErrClosed)
	assert.NoError(t, agg.Close(context.Background()))
}

func TestAggregator_CloseDropsFailedBatch(t *testing.T) {
	rec := &recorder{err: errors.New("offline")}
	agg, _ := newTestAggregator(Config{RequeueOnFailure: true}, rec.flush)

	require.NoError(t, agg.Record("A"))
	assert.Error(t, agg.Close(context.Background()))
	assert.Zero(t, agg.Pending())
}

func TestAggregator_FlushesAreSerialized(t *testing.T) {
	var active, maxActive atomic.Int32
	flush := func(ctx context.Context, batch []string) error {
		n := active.Add(1)
		for {
			current := maxActive.Load()
			if n <= current || maxActive.CompareAndSwap(current, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		active.Add(-1)
		return nil
	}
	agg, _ := newTestAggregator(Config{}, flush)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = agg.Record("X")
			_ = agg.Flush(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxActive.Load())
}

func TestAggregator_RealTimer(t *testing.T) {
	rec := &recorder{}
	agg := New(Config{Window: 20 * time.Millisecond}, rec.flush, discardLogger())

	require.NoError(t, agg.Record("A"))
	require.NoError(t, agg.Record("B"))

	require.Eventually(t, func() bool {
		return len(rec.got()) == 1
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"A", "B"}, rec.got()[0])
	require.NoError(t, agg.Close(context.Background()))
}
