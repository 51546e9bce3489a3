package event

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/ims/engine/internal/domain/shared"
)

// NATSRelayConfig holds connection settings for the NATS relay.
type NATSRelayConfig struct {
	URL           string
	ClientName    string
	SubjectPrefix string
	ConnectWait   time.Duration
}

// DefaultNATSRelayConfig returns default configuration
func DefaultNATSRelayConfig() NATSRelayConfig {
	return NATSRelayConfig{
		URL:           nats.DefaultURL,
		ClientName:    "ims-engine",
		SubjectPrefix: "ims.events",
		ConnectWait:   5 * time.Second,
	}
}

// NATSRelay forwards every domain event published on the in-process bus to a
// NATS subject of the form "{prefix}.{tenant}.{event_type}", letting external
// consumers subscribe per tenant or per event type with subject wildcards.
// It subscribes to the bus as a wildcard handler.
type NATSRelay struct {
	conn          *nats.Conn
	serializer    *EventSerializer
	subjectPrefix string
	logger        *zap.Logger
}

// NewNATSRelay connects to NATS and returns a relay ready to subscribe.
func NewNATSRelay(cfg NATSRelayConfig, serializer *EventSerializer, logger *zap.Logger) (*NATSRelay, error) {
	conn, err := nats.Connect(cfg.URL,
		nats.Name(cfg.ClientName),
		nats.Timeout(cfg.ConnectWait),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.URL, err)
	}

	return &NATSRelay{
		conn:          conn,
		serializer:    serializer,
		subjectPrefix: cfg.SubjectPrefix,
		logger:        logger,
	}, nil
}

// NewNATSRelayWithConn wraps an existing connection (useful for testing).
func NewNATSRelayWithConn(conn *nats.Conn, serializer *EventSerializer, subjectPrefix string, logger *zap.Logger) *NATSRelay {
	return &NATSRelay{
		conn:          conn,
		serializer:    serializer,
		subjectPrefix: subjectPrefix,
		logger:        logger,
	}
}

// EventTypes returns an empty slice: the relay forwards every event type.
func (r *NATSRelay) EventTypes() []string {
	return nil
}

// Subject returns the NATS subject an event is published to.
func (r *NATSRelay) Subject(event shared.DomainEvent) string {
	return fmt.Sprintf("%s.%s.%s", r.subjectPrefix, event.TenantID().String(), event.EventType())
}

// Handle publishes the event to its tenant- and type-scoped subject.
func (r *NATSRelay) Handle(ctx context.Context, event shared.DomainEvent) error {
	payload, err := r.serializer.Serialize(event)
	if err != nil {
		return fmt.Errorf("failed to serialize event for relay: %w", err)
	}

	subject := r.Subject(event)
	if err := r.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	r.logger.Debug("event relayed",
		zap.String("subject", subject),
		zap.String("event_id", event.EventID().String()),
	)
	return nil
}

// Close flushes outstanding messages and drops the connection.
func (r *NATSRelay) Close() error {
	if r.conn == nil || r.conn.IsClosed() {
		return nil
	}
	if err := r.conn.Flush(); err != nil {
		r.logger.Warn("failed to flush NATS connection", zap.Error(err))
	}
	r.conn.Close()
	return nil
}

// Ensure NATSRelay implements EventHandler
var _ shared.EventHandler = (*NATSRelay)(nil)
