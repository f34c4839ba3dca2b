package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Publisher is the subset of *nats.Conn used for forwarding.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSForwarder republishes dispatcher events as JSON on NATS subjects.
type NATSForwarder struct {
	publisher Publisher
	prefix    string
	logger    *zap.Logger
	conn      *nats.Conn
}

// ConnectNATS dials the server and returns a forwarder that owns the connection.
func ConnectNATS(url, prefix string, logger *zap.Logger) (*NATSForwarder, error) {
	conn, err := nats.Connect(url,
		nats.Name("devlab"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	logger.Info("NATS forwarder initialized", zap.String("url", url), zap.String("prefix", prefix))
	f := NewNATSForwarder(conn, prefix, logger)
	f.conn = conn
	return f, nil
}

// NewNATSForwarder wraps an existing publisher.
func NewNATSForwarder(publisher Publisher, prefix string, logger *zap.Logger) *NATSForwarder {
	return &NATSForwarder{publisher: publisher, prefix: prefix, logger: logger}
}

// Subject returns the subject an event type is published on.
func (f *NATSForwarder) Subject(t EventType) string {
	if f.prefix == "" {
		return string(t)
	}
	return f.prefix + "." + string(t)
}

// Forward publishes one event.
func (f *NATSForwarder) Forward(_ context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.ID, err)
	}
	subject := f.Subject(event.Type)
	if err := f.publisher.Publish(subject, data); err != nil {
		f.logger.Error("failed to forward event to NATS", zap.String("subject", subject), zap.Error(err))
		return err
	}
	f.logger.Debug("event forwarded to NATS", zap.String("subject", subject), zap.String("event_id", event.ID))
	return nil
}

// Attach subscribes the forwarder to every event type.
func (f *NATSForwarder) Attach(d Dispatcher) {
	for _, t := range AllTypes {
		d.Subscribe(t, f.Forward)
	}
}

// Close drains the owned connection, if any.
func (f *NATSForwarder) Close() {
	if f.conn != nil {
		_ = f.conn.Drain()
	}
}
