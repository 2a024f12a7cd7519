package events

import (
	"context"

	"go.uber.org/zap"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/kafka"
)

// EventWriter is the subset of kafka.Producer the publisher needs.
type EventWriter interface {
	PublishEvent(ctx context.Context, topic string, event kafka.CloudEvent) error
}

// KafkaPublisher implements application.EventPublisher on top of a CloudEvent writer.
type KafkaPublisher struct {
	writer EventWriter
	topic  string
	logger *zap.Logger
}

// NewKafkaPublisher creates a publisher writing to TopicCouponEvents.
func NewKafkaPublisher(writer EventWriter, logger *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, topic: TopicCouponEvents, logger: logger}
}

// Publish wraps data in a CloudEvent and writes it. Failures are logged only.
func (p *KafkaPublisher) Publish(ctx context.Context, eventType, subject string, data interface{}) {
	ce, err := kafka.NewCloudEvent(Source, eventType, data)
	if err != nil {
		p.logger.Error("failed to build cloud event", zap.String("type", eventType), zap.Error(err))
		return
	}
	ce.Subject = subject

	// The request may already be finished; delivery should not depend on it.
	if err := p.writer.PublishEvent(context.WithoutCancel(ctx), p.topic, ce); err != nil {
		p.logger.Warn("failed to publish event",
			zap.String("type", eventType),
			zap.String("subject", subject),
			zap.String("event_id", ce.ID),
			zap.Error(err),
		)
		return
	}

	p.logger.Debug("event published",
		zap.String("type", eventType),
		zap.String("subject", subject),
		zap.String("event_id", ce.ID),
	)
}
