// Package connector lazily opens one shared connection and keeps it for the
// life of the process.
package connector

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"lipsync/internal/pkg/logger"
)

// DialFunc opens a new connection.
type DialFunc[T any] func(ctx context.Context) (T, error)

// Connector memoizes the result of a successful dial. Concurrent first
// callers share a single in-flight attempt; a failed attempt is not cached,
// so the next Get dials again.
type Connector[T any] struct {
	name string
	dial DialFunc[T]
	log  *logger.Logger

	mu    sync.Mutex
	conn  T
	ready bool

	group singleflight.Group
}

func New[T any](name string, dial DialFunc[T], log *logger.Logger) *Connector[T] {
	return &Connector[T]{name: name, dial: dial, log: log.WithComponent("connector")}
}

// Get returns the cached connection, dialing on first use. The dial is not
// bound to ctx's cancellation, so one impatient caller cannot fail the
// attempt the others are waiting on; ctx only limits how long this caller waits.
func (c *Connector[T]) Get(ctx context.Context) (T, error) {
	if conn, ok := c.cached(); ok {
		return conn, nil
	}

	ch := c.group.DoChan(c.name, func() (any, error) {
		if conn, ok := c.cached(); ok {
			return conn, nil
		}

		c.log.Info("connecting", "target", c.name)
		conn, err := c.dial(context.WithoutCancel(ctx))
		if err != nil {
			c.log.WithError(err).Error("connect failed", "target", c.name)
			return nil, err
		}

		c.mu.Lock()
		c.conn = conn
		c.ready = true
		c.mu.Unlock()

		c.log.Info("connected", "target", c.name)
		return conn, nil
	})

	var zero T
	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Peek returns the cached connection without dialing.
func (c *Connector[T]) Peek() (T, bool) {
	return c.cached()
}

// Close forgets the cached connection and releases it with closeFn.
func (c *Connector[T]) Close(ctx context.Context, closeFn func(context.Context, T) error) error {
	c.mu.Lock()
	conn, ok := c.conn, c.ready
	var zero T
	c.conn, c.ready = zero, false
	c.mu.Unlock()

	if !ok {
		return nil
	}
	return closeFn(ctx, conn)
}

func (c *Connector[T]) cached() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn, c.ready
}
