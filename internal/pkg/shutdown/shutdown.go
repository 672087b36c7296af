// Package shutdown runs registered cleanup hooks when the process is asked to stop.
package shutdown

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"lipsync/internal/pkg/logger"
)

// Manager handles graceful shutdown of services.
type Manager struct {
	log      *logger.Logger
	timeout  time.Duration
	handlers []Handler
	mu       sync.Mutex
	once     sync.Once
	done     chan struct{}
}

// Handler is a named cleanup step.
type Handler struct {
	Name    string
	Cleanup func(ctx context.Context) error
}

// NewManager creates a new shutdown manager.
func NewManager(log *logger.Logger, timeout time.Duration) *Manager {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Manager{
		log:      log,
		timeout:  timeout,
		handlers: make([]Handler, 0),
		done:     make(chan struct{}),
	}
}

// Register adds a cleanup handler. Handlers run in reverse registration
// order, one at a time, so the HTTP server registered last drains before the
// stores it depends on are closed.
func (m *Manager) Register(name string, cleanup func(ctx context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, Handler{Name: name, Cleanup: cleanup})
	m.log.Debug("registered shutdown handler", "name", name)
}

// Wait blocks until a shutdown signal is received, then runs cleanup.
func (m *Manager) Wait() error {
	return m.WaitWithContext(context.Background())
}

// WaitWithContext blocks until a signal arrives or ctx is canceled.
func (m *Manager) WaitWithContext(ctx context.Context) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		m.log.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		m.log.Info("context canceled, initiating shutdown")
	}

	return m.Shutdown()
}

// Shutdown runs all cleanup handlers within the manager's timeout and
// returns every handler error joined. Calling it again is a no-op.
func (m *Manager) Shutdown() error {
	var err error
	m.once.Do(func() {
		err = m.run()
		close(m.done)
	})
	return err
}

func (m *Manager) run() error {
	m.mu.Lock()
	handlers := make([]Handler, len(m.handlers))
	copy(handlers, m.handlers)
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	m.log.Info("starting graceful shutdown", "handlers", len(handlers), "timeout", m.timeout.String())

	var (
		errsMu sync.Mutex
		errs   []error
	)
	finished := make(chan struct{})

	go func() {
		defer close(finished)
		for i := len(handlers) - 1; i >= 0; i-- {
			if ctx.Err() != nil {
				return
			}
			h := handlers[i]
			start := time.Now()
			m.log.Debug("running shutdown handler", "name", h.Name)

			if err := h.Cleanup(ctx); err != nil {
				m.log.WithError(err).Error("shutdown handler failed",
					"name", h.Name,
					"duration_ms", time.Since(start).Milliseconds(),
				)
				errsMu.Lock()
				errs = append(errs, err)
				errsMu.Unlock()
				continue
			}
			m.log.Debug("shutdown handler completed",
				"name", h.Name,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		}
	}()

	select {
	case <-finished:
		m.log.Info("graceful shutdown completed")
	case <-ctx.Done():
		m.log.Warn("shutdown timeout exceeded, forcing exit")
		errsMu.Lock()
		errs = append(errs, ctx.Err())
		errsMu.Unlock()
	}

	errsMu.Lock()
	defer errsMu.Unlock()
	return errors.Join(errs...)
}

// Done returns a channel that is closed when shutdown is complete.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Context returns a context that is canceled on shutdown.
func (m *Manager) Context() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-m.done
		cancel()
	}()
	return ctx
}
