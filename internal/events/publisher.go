// Package events provides NATS publishing and subscription for the
// configurator: committed configurations go out, product catalog changes
// come in to invalidate cached descriptors.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/sirupsen/logrus"

	"configurator-service/internal/models"
)

const (
	configuratorStream   = "CONFIGURATOR_EVENTS"
	subjectCommitted     = "configurator.committed"
	subjectSessionClosed = "configurator.session_closed"
)

// CommitEvent is published when a configuration is committed to the cart
type CommitEvent struct {
	EventID    string                `json:"eventId"`
	EventType  string                `json:"eventType"`
	TenantID   string                `json:"tenantId"`
	SessionID  string                `json:"sessionId"`
	ProductID  string                `json:"productId"`
	CartItemID string                `json:"cartItemId,omitempty"`
	Selections models.Selections     `json:"selections"`
	Price      models.PriceBreakdown `json:"price"`
	Timestamp  time.Time             `json:"timestamp"`
}

// SessionClosedEvent is published when a session is abandoned or expires
type SessionClosedEvent struct {
	EventID   string    `json:"eventId"`
	EventType string    `json:"eventType"`
	TenantID  string    `json:"tenantId"`
	SessionID string    `json:"sessionId"`
	ProductID string    `json:"productId"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher publishes configurator events to NATS JetStream. A nil Publisher
// is safe to use; every publish becomes a no-op, so the service runs without
// an event bus in local development.
type Publisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	logger *logrus.Entry
}

// NewPublisher connects to NATS and ensures the configurator stream exists
func NewPublisher(natsURL string, logger *logrus.Logger) (*Publisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("configurator-service"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.WithError(err).Warn("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.WithField("url", nc.ConnectedUrl()).Info("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      configuratorStream,
		Subjects:  []string{"configurator.>"},
		Retention: jetstream.LimitsPolicy,
		MaxAge:    7 * 24 * time.Hour,
		Storage:   jetstream.FileStorage,
		Replicas:  1,
	})
	if err != nil {
		logger.WithError(err).Warn("Failed to ensure configurator stream (may already exist)")
	}

	return &Publisher{
		nc:     nc,
		js:     js,
		logger: logger.WithField("component", "configurator-events"),
	}, nil
}

// Close drains the NATS connection
func (p *Publisher) Close() {
	if p != nil && p.nc != nil {
		p.nc.Close()
	}
}

// PublishCommitted publishes a configurator.committed event
func (p *Publisher) PublishCommitted(ctx context.Context, tenantID string, session *models.Session, cartItemID string) {
	if p == nil {
		return
	}
	event := CommitEvent{
		EventID:    uuid.New().String(),
		EventType:  subjectCommitted,
		TenantID:   tenantID,
		SessionID:  session.ID,
		ProductID:  session.ProductID,
		CartItemID: cartItemID,
		Selections: session.Selections,
		Price:      session.Snapshot.Price,
		Timestamp:  time.Now().UTC(),
	}
	p.publish(subjectCommitted, event, logrus.Fields{
		"sessionId": session.ID,
		"productId": session.ProductID,
		"tenantId":  tenantID,
	})
}

// PublishSessionClosed publishes a configurator.session_closed event
func (p *Publisher) PublishSessionClosed(tenantID, sessionID, productID, reason string) {
	if p == nil {
		return
	}
	event := SessionClosedEvent{
		EventID:   uuid.New().String(),
		EventType: subjectSessionClosed,
		TenantID:  tenantID,
		SessionID: sessionID,
		ProductID: productID,
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	}
	p.publish(subjectSessionClosed, event, logrus.Fields{
		"sessionId": sessionID,
		"reason":    reason,
	})
}

// publish serializes and publishes asynchronously so the request path never
// blocks on the event bus.
func (p *Publisher) publish(subject string, event interface{}, fields logrus.Fields) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.WithError(err).WithFields(fields).Error("Failed to marshal event")
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if _, err := p.js.Publish(ctx, subject, payload); err != nil {
			p.logger.WithError(err).WithFields(fields).WithField("subject", subject).Error("Failed to publish event")
			return
		}
		p.logger.WithFields(fields).WithField("subject", subject).Info("Event published")
	}()
}
