package bus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
)

// WSBus is a WebSocket implementation of Bus. Connect retries on a fixed
// delay; Listen re-establishes the connection after mid-stream failures.
// No fieldnet logic belongs here.
type WSBus struct {
	url            string
	reconnectDelay time.Duration
	logger         *slog.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWSBus creates a WebSocket bus for the given ws:// or wss:// URL.
func NewWSBus(url string, reconnectDelay time.Duration, logger *slog.Logger) *WSBus {
	if reconnectDelay <= 0 {
		reconnectDelay = 2 * time.Second
	}
	return &WSBus{
		url:            url,
		reconnectDelay: reconnectDelay,
		logger:         logger,
	}
}

// Connect dials the server, retrying on the fixed reconnect delay until it
// succeeds or ctx is cancelled.
func (b *WSBus) Connect(ctx context.Context) error {
	op := func() error {
		b.logger.Info("bus: connecting", "url", b.url)
		conn, resp, err := websocket.DefaultDialer.DialContext(ctx, b.url, nil)
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		if err != nil {
			b.logger.Warn("bus: connect failed, retrying",
				"error", err, "delay", b.reconnectDelay)
			return err
		}
		b.mu.Lock()
		b.conn = conn
		b.mu.Unlock()
		b.logger.Info("bus: connected")
		return nil
	}
	bo := backoff.WithContext(backoff.NewConstantBackOff(b.reconnectDelay), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return fmt.Errorf("bus: connect %s: %w", b.url, err)
	}
	return nil
}

// Send publishes one record as a JSON text frame. The mutex serializes
// writers; gorilla connections support at most one concurrent writer.
func (b *WSBus) Send(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return ErrNotConnected
	}
	if err := b.conn.WriteJSON(rec); err != nil {
		return fmt.Errorf("bus: send: %w", err)
	}
	return nil
}

// Listen reads records and invokes h for each one until ctx is cancelled.
// Read failures drop the connection and redial via Connect, so the caller
// only ever observes a gap in callbacks, never a transport error.
func (b *WSBus) Listen(ctx context.Context, h Handler) error {
	// Unblock pending reads when the caller cancels.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = b.Close()
		case <-done:
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		b.mu.Lock()
		conn := b.conn
		b.mu.Unlock()
		if conn == nil {
			if err := b.Connect(ctx); err != nil {
				return err
			}
			continue
		}

		var rec Record
		if err := conn.ReadJSON(&rec); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.logger.Warn("bus: receive failed, reconnecting", "error", err)
			_ = b.Close()
			if err := b.Connect(ctx); err != nil {
				return err
			}
			continue
		}
		h(ctx, rec)
	}
}

// Close drops the connection. Safe to call multiple times.
func (b *WSBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return nil
	}
	err := b.conn.Close()
	b.conn = nil
	return err
}
