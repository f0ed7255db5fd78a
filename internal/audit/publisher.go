// Package audit captures structured audit events for the account service.
// Emission is fire-and-forget: a full buffer drops the event (and counts the
// drop) rather than slowing the request path.
package audit

import (
	"context"
	"log/slog"
	"time"
)

// Sink receives drained events. The log sink is always present; a Kafka sink
// can be layered on top when brokers are configured.
type Sink interface {
	Write(ctx context.Context, event Event) error
}

// DropCounter is the metrics hook for discarded events.
type DropCounter interface {
	Inc()
}

// Publisher buffers events and drains them on a single background worker.
type Publisher struct {
	inbox   chan Event
	sinks   []Sink
	logger  *slog.Logger
	dropped DropCounter
}

const defaultBuffer = 1024

func NewPublisher(logger *slog.Logger, dropped DropCounter, sinks ...Sink) *Publisher {
	return &Publisher{
		inbox:   make(chan Event, defaultBuffer),
		sinks:   sinks,
		logger:  logger,
		dropped: dropped,
	}
}

// Emit enqueues an event without blocking. Events are dropped when the buffer
// is full; audit must never fail or stall the primary operation.
func (p *Publisher) Emit(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	select {
	case p.inbox <- event:
	default:
		if p.dropped != nil {
			p.dropped.Inc()
		}
	}
}

// Run drains the inbox until ctx is cancelled, then flushes whatever is left.
func (p *Publisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			p.flush()
			return ctx.Err()
		case event := <-p.inbox:
			p.write(ctx, event)
		}
	}
}

func (p *Publisher) flush() {
	// Bounded by buffer size; sinks get a short grace period.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case event := <-p.inbox:
			p.write(ctx, event)
		default:
			return
		}
	}
}

func (p *Publisher) write(ctx context.Context, event Event) {
	for _, sink := range p.sinks {
		if err := sink.Write(ctx, event); err != nil {
			p.logger.WarnContext(ctx, "audit sink write failed",
				"action", event.Action,
				"error", err,
			)
		}
	}
}

// LogSink writes audit events to the structured log.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Write(ctx context.Context, event Event) error {
	attrs := []any{
		"action", event.Action,
		"success", event.Success,
		"timestamp", event.Timestamp,
	}
	if !event.UserID.IsZero() {
		attrs = append(attrs, "user_id", event.UserID.String())
	}
	if event.RequestID != "" {
		attrs = append(attrs, "request_id", event.RequestID)
	}
	for k, v := range event.Fields {
		attrs = append(attrs, k, v)
	}
	s.logger.InfoContext(ctx, "audit", attrs...)
	return nil
}
