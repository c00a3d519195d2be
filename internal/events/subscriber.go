package events

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/sirupsen/logrus"
)

// CatalogInvalidator drops cached catalog state for a changed product
type CatalogInvalidator interface {
	InvalidateProduct(ctx context.Context, tenantID, productID string)
}

// ProductEvent is the subset of the products-service event payload the
// configurator cares about.
type ProductEvent struct {
	EventType string    `json:"eventType"`
	TenantID  string    `json:"tenantId"`
	ProductID string    `json:"productId"`
	Timestamp time.Time `json:"timestamp"`
}

// ProductSubscriber listens for product catalog changes and invalidates the
// cached configurator descriptors so new sessions see the updated catalog.
type ProductSubscriber struct {
	nc           *nats.Conn
	js           jetstream.JetStream
	invalidator  CatalogInvalidator
	consumerName string
	logger       *logrus.Entry
}

// NewProductSubscriber connects to NATS for product event consumption
func NewProductSubscriber(natsURL string, invalidator CatalogInvalidator, logger *logrus.Logger) (*ProductSubscriber, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("configurator-service-subscriber"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	hostname, _ := os.Hostname()
	return &ProductSubscriber{
		nc:           nc,
		js:           js,
		invalidator:  invalidator,
		consumerName: fmt.Sprintf("configurator-catalog-%s", hostname),
		logger:       logger.WithField("component", "product-subscriber"),
	}, nil
}

// Start consumes product events until ctx is cancelled
func (s *ProductSubscriber) Start(ctx context.Context) error {
	consumer, err := s.js.CreateOrUpdateConsumer(ctx, "PRODUCT_EVENTS", jetstream.ConsumerConfig{
		Durable:       s.consumerName,
		FilterSubject: "product.>",
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       30 * time.Second,
		MaxDeliver:    3,
		DeliverPolicy: jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to create product events consumer: %w", err)
	}

	msgs, err := consumer.Messages()
	if err != nil {
		return fmt.Errorf("failed to get product messages iterator: %w", err)
	}

	go func() {
		<-ctx.Done()
		msgs.Stop()
		s.nc.Close()
	}()

	go func() {
		for {
			msg, err := msgs.Next()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.logger.WithError(err).Warn("Failed to read product event")
				time.Sleep(time.Second)
				continue
			}
			if err := s.handle(ctx, msg); err != nil {
				s.logger.WithError(err).Warn("Failed to handle product event")
				msg.Nak()
			} else {
				msg.Ack()
			}
		}
	}()

	s.logger.Info("Product event subscriber started")
	return nil
}

func (s *ProductSubscriber) handle(ctx context.Context, msg jetstream.Msg) error {
	var event ProductEvent
	if err := json.Unmarshal(msg.Data(), &event); err != nil {
		return fmt.Errorf("failed to unmarshal product event: %w", err)
	}
	if event.ProductID == "" {
		return nil
	}

	switch event.EventType {
	case "product.updated", "product.deleted", "product.archived", "product.price_changed":
		s.invalidator.InvalidateProduct(ctx, event.TenantID, event.ProductID)
		s.logger.WithFields(logrus.Fields{
			"eventType": event.EventType,
			"productId": event.ProductID,
			"tenantId":  event.TenantID,
		}).Info("Invalidated cached catalog descriptor")
	}
	return nil
}
