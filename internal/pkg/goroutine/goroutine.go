// Package goroutine runs best-effort background work with a concurrency cap.
package goroutine

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/shandysiswandi/seedotp/internal/pkg/stacktrace"
)

// DefaultMaxGoroutine is multiplied by NumCPU when NewManager receives a
// non-positive limit.
const DefaultMaxGoroutine int = 100

// ErrRejected is recorded when a task is dropped because the manager is full
// or already closed.
var ErrRejected = errors.New("goroutine: task rejected")

// Manager runs functions in goroutines with a configurable concurrency limit.
//
// Tasks outlive the request that scheduled them: they inherit the caller's
// context values (correlation id, span) but not its cancellation, and are
// bounded by the manager's task timeout instead.
type Manager struct {
	mu      sync.Mutex
	errs    []error
	wg      sync.WaitGroup
	sema    chan struct{}
	timeout time.Duration

	stateMu sync.RWMutex
	closed  bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithTaskTimeout bounds every task's context. Zero means no deadline.
func WithTaskTimeout(d time.Duration) Option {
	return func(m *Manager) { m.timeout = d }
}

// NewManager creates a new Manager with the provided maximum concurrency.
func NewManager(maxGoroutine int, opts ...Option) *Manager {
	if maxGoroutine < 1 {
		maxGoroutine = runtime.NumCPU() * DefaultMaxGoroutine
	}

	m := &Manager{sema: make(chan struct{}, maxGoroutine)}
	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Go schedules f if the manager is open and has capacity; otherwise the task
// is dropped, logged, and reported by Wait as ErrRejected. It never blocks.
func (g *Manager) Go(pCtx context.Context, f func(ctx context.Context) error) {
	if g == nil {
		return
	}

	g.stateMu.RLock()
	defer g.stateMu.RUnlock()

	if g.closed {
		slog.WarnContext(pCtx, "goroutine manager is closed, skipping task")
		g.record(ErrRejected)
		return
	}

	select {
	case g.sema <- struct{}{}:
	default:
		slog.WarnContext(pCtx, "goroutine limit reached, skipping task")
		g.record(ErrRejected)
		return
	}

	ctx := context.WithoutCancel(pCtx)
	g.wg.Go(func() {
		defer func() { <-g.sema }()
		defer g.recoverTask(ctx)

		cancel := context.CancelFunc(func() {})
		if g.timeout > 0 {
			ctx, cancel = context.WithTimeout(ctx, g.timeout)
		}
		defer cancel()

		if err := f(ctx); err != nil {
			g.record(err)
		}
	})
}

// Wait closes the manager to new work, blocks until running tasks finish and
// returns their joined errors.
func (g *Manager) Wait() error {
	if g == nil {
		return nil
	}

	g.stateMu.Lock()
	g.closed = true
	g.stateMu.Unlock()

	g.wg.Wait()

	g.mu.Lock()
	defer g.mu.Unlock()
	return errors.Join(g.errs...)
}

func (g *Manager) record(err error) {
	g.mu.Lock()
	g.errs = append(g.errs, err)
	g.mu.Unlock()
}

func (g *Manager) recoverTask(ctx context.Context) {
	rvr := recover()
	if rvr == nil {
		return
	}

	stack := debug.Stack()
	if paths := stacktrace.InternalPaths(stack); len(paths) > 0 {
		slog.ErrorContext(ctx, "panic occurred in goroutine", "because", rvr, "stack", paths)
	} else {
		slog.ErrorContext(ctx, "panic occurred in goroutine", "because", rvr, "stack", string(stack))
	}
}
