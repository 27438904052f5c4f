// Package audit records who asked the platform to do what. Events are
// published to NATS for downstream retention and mirrored to the structured
// log; without a NATS connection the trail degrades to logs only.
package audit

import (
	"time"

	"github.com/caredraft/internal/jsonx"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// EventType classifies an audit event.
type EventType string

const (
	EventAIRequest EventType = "AI_REQUEST"
	EventResearch  EventType = "RESEARCH"
	EventDataWrite EventType = "DATA_WRITE"
	EventAuthDeny  EventType = "AUTH_DENY"
	EventRateLimit EventType = "RATE_LIMIT"
)

// Event is a single audit entry.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	EventType EventType `json:"event_type"`
	UserID    string    `json:"user_id,omitempty"`
	Operation string    `json:"operation"`
	Resource  string    `json:"resource,omitempty"`
	Outcome   string    `json:"outcome"` // ok, error, denied
	Detail    string    `json:"detail,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
	Duration  int64     `json:"duration_ms,omitempty"`
}

// Config configures the trail.
type Config struct {
	Subject    string
	BufferSize int
}

// Trail publishes audit events asynchronously.
type Trail struct {
	nc      *nats.Conn
	subject string
	logger  *zap.Logger
	events  chan Event
	done    chan struct{}
}

// New creates a trail. nc may be nil; events then only reach the log.
func New(nc *nats.Conn, cfg Config, logger *zap.Logger) *Trail {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Subject == "" {
		cfg.Subject = "caredraft.audit"
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1000
	}

	t := &Trail{
		nc:      nc,
		subject: cfg.Subject,
		logger:  logger.Named("audit"),
		events:  make(chan Event, cfg.BufferSize),
		done:    make(chan struct{}),
	}
	go t.run()
	return t
}

// Record queues an event. If the buffer is full the event is dropped with a
// warning; audit must never block request handling.
func (t *Trail) Record(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	select {
	case t.events <- event:
	default:
		t.logger.Warn("audit buffer full, dropping event",
			zap.String("event_type", string(event.EventType)),
			zap.String("operation", event.Operation))
	}
}

func (t *Trail) run() {
	defer close(t.done)
	for event := range t.events {
		t.emit(event)
	}
}

func (t *Trail) emit(event Event) {
	t.logger.Info("audit",
		zap.String("event_type", string(event.EventType)),
		zap.String("user_id", event.UserID),
		zap.String("operation", event.Operation),
		zap.String("outcome", event.Outcome),
		zap.Int64("duration_ms", event.Duration))

	if t.nc == nil {
		return
	}
	data, err := jsonx.Marshal(event)
	if err != nil {
		t.logger.Error("marshal audit event", zap.Error(err))
		return
	}
	if err := t.nc.Publish(t.subject, data); err != nil {
		t.logger.Warn("publish audit event", zap.Error(err))
	}
}

// Close drains pending events and stops the worker.
func (t *Trail) Close() {
	close(t.events)
	select {
	case <-t.done:
	case <-time.After(5 * time.Second):
		t.logger.Warn("audit drain timed out")
	}
}
