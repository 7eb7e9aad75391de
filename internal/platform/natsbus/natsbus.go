// Package natsbus publishes workflow lifecycle events to NATS for external
// watchers (the AI-diagnosis watch loop, or any other observer) that would
// rather subscribe than poll the HTTP events endpoint. Entirely optional:
// nil-safe when no TORC_NATS_URL is configured.
package natsbus

import (
	"context"
	"fmt"
	"log/slog"

	nats "github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

var propagator = propagation.TraceContext{}

// Bus wraps an optional NATS connection. A nil *Bus (or one with a nil conn)
// makes Publish a no-op, so callers never need to check for one.
type Bus struct {
	conn *nats.Conn
}

// Connect dials url; empty url yields a no-op bus.
func Connect(url string) (*Bus, error) {
	if url == "" {
		return &Bus{}, nil
	}
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Bus{conn: nc}, nil
}

// Publish injects the trace context into NATS headers and publishes data to
// torc.events.<workflowID>. Failures are logged, never returned: event
// fan-out is best-effort and must not block the transaction that triggered it.
func (b *Bus) Publish(ctx context.Context, workflowID int64, data []byte) {
	if b == nil || b.conn == nil {
		return
	}
	subject := fmt.Sprintf("torc.events.%d", workflowID)
	hdr := nats.Header{}
	propagator.Inject(ctx, propagation.HeaderCarrier(hdr))
	msg := &nats.Msg{Subject: subject, Data: data, Header: hdr}
	if err := b.conn.PublishMsg(msg); err != nil {
		slog.Warn("nats publish failed", "subject", subject, "error", err)
	}
}

// Close drains and closes the underlying connection, if any.
func (b *Bus) Close() {
	if b != nil && b.conn != nil {
		_ = b.conn.Drain()
	}
}

func tracer() trace.Tracer { return otel.Tracer("torc-natsbus") }
