// Package publish forwards crawl status events to Google Cloud Pub/Sub so
// out-of-process consumers (dashboards, alerting) can follow a run.
package publish

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/narabid/bid-crawler/internal/progress"
)

// PubSubSubscriber implements progress.Subscriber by publishing every event
// to one Pub/Sub topic. Delivery is best-effort: a publish failure surfaces
// as a Notify error, after which the broadcaster evicts this subscriber.
type PubSubSubscriber struct {
	topic  *pubsub.Topic
	ctx    context.Context
	logger *zap.Logger
}

// NewPubSubSubscriber wires a subscriber to the named topic. ctx bounds every
// publish issued by the subscriber.
func NewPubSubSubscriber(ctx context.Context, client *pubsub.Client, topicName string, logger *zap.Logger) (*PubSubSubscriber, error) {
	if client == nil {
		return nil, fmt.Errorf("pubsub client is required")
	}
	if topicName == "" {
		return nil, fmt.Errorf("pubsub topic name is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PubSubSubscriber{
		topic:  client.Topic(topicName),
		ctx:    ctx,
		logger: logger.Named("pubsub"),
	}, nil
}

// Notify publishes the event as a JSON message.
func (s *PubSubSubscriber) Notify(event progress.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	result := s.topic.Publish(s.ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"type": event.Type},
	})
	id, err := result.Get(s.ctx)
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	s.logger.Debug("event published", zap.String("type", event.Type), zap.String("message_id", id))
	return nil
}

// Stop flushes outstanding publishes.
func (s *PubSubSubscriber) Stop() {
	s.topic.Stop()
}
