package events

import (
	"context"
	"fmt"
	"strings"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/application"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/kafka"
)

// BatchAssigner runs best-effort campaign assignment for a list of users.
type BatchAssigner interface {
	AssignCouponsToUsers(ctx context.Context, campaignID int64, userIDs []int64) ([]*application.CouponDTO, error)
}

// AssignmentCommandConsumer listens to coupon commands and triggers batch assignment.
type AssignmentCommandConsumer struct {
	consumer *kafka.Consumer
	assigner BatchAssigner
	logger   *zap.Logger
}

// NewAssignmentCommandConsumer creates a new consumer for the command topic.
func NewAssignmentCommandConsumer(
	brokers []string,
	groupID string,
	assigner BatchAssigner,
	logger *zap.Logger,
) *AssignmentCommandConsumer {
	return &AssignmentCommandConsumer{
		consumer: kafka.NewConsumer(brokers, groupID, TopicCouponCommands, logger),
		assigner: assigner,
		logger:   logger,
	}
}

// Start begins consuming commands. It blocks until the context is cancelled.
func (c *AssignmentCommandConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

func (c *AssignmentCommandConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from command topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return err
	}

	c.logger.Info("received coupon command",
		zap.String("type", cloudEvent.Type),
		zap.String("id", cloudEvent.ID),
	)

	switch {
	case strings.EqualFold(cloudEvent.Type, CommandAssignmentRequested):
		return c.handleAssignmentRequested(ctx, cloudEvent)
	default:
		c.logger.Debug("ignoring unhandled command type", zap.String("type", cloudEvent.Type))
		return nil
	}
}

func (c *AssignmentCommandConsumer) handleAssignmentRequested(ctx context.Context, ce kafka.CloudEvent) error {
	var cmd AssignmentRequestedCommand
	if err := ce.ParseData(&cmd); err != nil {
		c.logger.Error("failed to parse AssignmentRequestedCommand data", zap.Error(err))
		return err
	}
	if cmd.CampaignID <= 0 || len(cmd.UserIDs) == 0 {
		return fmt.Errorf("assignment command %s needs campaign_id and user_ids", ce.ID)
	}

	assigned, err := c.assigner.AssignCouponsToUsers(ctx, cmd.CampaignID, cmd.UserIDs)
	if err != nil {
		return fmt.Errorf("assignment command %s: %w", ce.ID, err)
	}

	c.logger.Info("assignment command processed",
		zap.String("id", ce.ID),
		zap.Int64("campaign_id", cmd.CampaignID),
		zap.Int("requested", len(cmd.UserIDs)),
		zap.Int("assigned", len(assigned)),
	)
	return nil
}

// Close closes the underlying Kafka consumer.
func (c *AssignmentCommandConsumer) Close() error {
	return c.consumer.Close()
}
