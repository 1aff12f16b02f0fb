// Package batch накапливает compose-события и отправляет их пачкой
// после окна тишины W.
//
// Состояния: Idle (таймер не взведён) и Armed (взведён ровно один таймер).
// Первое событие в Idle взводит таймер, последующие только дописываются в буфер.
package batch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// DefaultWindow окно накопления по умолчанию
const DefaultWindow = 2 * time.Second

// ErrClosed возвращается Record после Close
var ErrClosed = errors.New("aggregator is closed")

// FlushFunc отправляет батч. Батч принадлежит вызываемой функции.
type FlushFunc func(ctx context.Context, batch []string) error

// Config параметры агрегатора
type Config struct {
	Window time.Duration
	// RequeueOnFailure возвращает неотправленный батч в начало буфера
	// вместо того чтобы его отбросить
	RequeueOnFailure bool
}

type stopper interface {
	Stop() bool
}

// Aggregator буферизует события и вызывает FlushFunc не чаще одного раза за окно
type Aggregator struct {
	flush     FlushFunc
	logger    *slog.Logger
	timer     stopper
	afterFunc func(d time.Duration, f func()) stopper
	pending   []string
	cfg       Config
	inflight  sync.WaitGroup
	gen       uint64
	mu        sync.Mutex
	flushMu   sync.Mutex
	armed     bool
	closed    bool
}

// New создаёт агрегатор в состоянии Idle
func New(cfg Config, flush FlushFunc, logger *slog.Logger) *Aggregator {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	return &Aggregator{
		cfg:    cfg,
		flush:  flush,
		logger: logger,
		afterFunc: func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		},
	}
}

// Record добавляет событие в буфер и взводит таймер, если он ещё не взведён
func (a *Aggregator) Record(event string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrClosed
	}

	a.pending = append(a.pending, event)
	if !a.armed {
		a.armLocked()
	}
	return nil
}

// Flush немедленно отправляет накопленное, отменяя взведённый таймер
func (a *Aggregator) Flush(ctx context.Context) error {
	a.mu.Lock()
	a.disarmLocked()
	batch := a.takeLocked()
	a.mu.Unlock()

	return a.runFlush(ctx, batch)
}

// Close выполняет финальный flush и запрещает новые события.
// Дожидается завершения flush, запущенного таймером.
func (a *Aggregator) Close(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.disarmLocked()
	batch := a.takeLocked()
	a.mu.Unlock()

	err := a.runFlush(ctx, batch)
	a.inflight.Wait()
	return err
}

// Pending возвращает количество событий в буфере
func (a *Aggregator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

// Armed сообщает, взведён ли таймер
func (a *Aggregator) Armed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.armed
}

func (a *Aggregator) armLocked() {
	a.armed = true
	a.gen++
	gen := a.gen
	a.timer = a.afterFunc(a.cfg.Window, func() {
		a.onTimer(gen)
	})
}

func (a *Aggregator) disarmLocked() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.armed = false
	// сработавший, но ещё не захвативший mu таймер увидит другой gen
	a.gen++
}

func (a *Aggregator) takeLocked() []string {
	batch := a.pending
	a.pending = nil
	return batch
}

func (a *Aggregator) onTimer(gen uint64) {
	a.mu.Lock()
	if !a.armed || gen != a.gen {
		a.mu.Unlock()
		return
	}
	a.armed = false
	a.timer = nil
	batch := a.takeLocked()
	a.inflight.Add(1)
	a.mu.Unlock()

	defer a.inflight.Done()
	_ = a.runFlush(context.Background(), batch)
}

func (a *Aggregator) runFlush(ctx context.Context, batch []string) error {
	if len(batch) == 0 {
		return nil
	}

	a.flushMu.Lock()
	defer a.flushMu.Unlock()

	err := a.flush(ctx, batch)
	if err == nil {
		a.logger.Debug("Compose batch flushed", "size", len(batch))
		return nil
	}

	if a.cfg.RequeueOnFailure && a.requeue(batch) {
		a.logger.Warn("Compose batch flush failed, requeued", "size", len(batch), "error", err)
		return err
	}

	a.logger.Warn("Compose batch flush failed, batch dropped", "size", len(batch), "error", err)
	return err
}

// requeue возвращает батч в начало буфера, сохраняя порядок событий
func (a *Aggregator) requeue(batch []string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return false
	}

	restored := make([]string, 0, len(batch)+len(a.pending))
	restored = append(restored, batch...)
	restored = append(restored, a.pending...)
	a.pending = restored

	if !a.armed {
		a.armLocked()
	}
	return true
}
