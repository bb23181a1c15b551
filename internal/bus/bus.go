// Package bus moves fieldnet records between a node and its peers over a
// duplex message channel. The live transport is a WebSocket client; the
// engine only depends on the Bus interface.
package bus

import (
	"context"
	"errors"
	"strconv"
	"time"
)

// ErrNotConnected is returned by Send when no connection is established.
// Callers treat this as a logic fault, not a retryable condition.
var ErrNotConnected = errors.New("bus: not connected")

// Record is the wire envelope shared by every inbound and outbound message.
// TS is decimal seconds since epoch, as a string.
type Record struct {
	Type   string         `json:"type"`
	Source string         `json:"source"`
	Data   map[string]any `json:"data"`
	TS     string         `json:"ts"`
}

// Handler is invoked once per received record.
type Handler func(ctx context.Context, rec Record)

// Bus is the duplex message channel the engine publishes through and
// receives commands from.
type Bus interface {
	// Connect establishes the connection, retrying until it succeeds or
	// ctx is cancelled.
	Connect(ctx context.Context) error
	// Send publishes one record. Returns ErrNotConnected when called
	// before Connect (or after the connection was lost and not yet
	// re-established).
	Send(ctx context.Context, rec Record) error
	// Listen blocks, invoking h for each received record, reconnecting
	// after mid-stream failures. Returns when ctx is cancelled.
	Listen(ctx context.Context, h Handler) error
	Close() error
}

// Stamp returns the current wall clock in the wire timestamp format.
func Stamp() string {
	return strconv.FormatInt(time.Now().Unix(), 10)
}

// NewRecord builds a stamped record.
func NewRecord(typ, source string, data map[string]any) Record {
	return Record{Type: typ, Source: source, Data: data, TS: Stamp()}
}
