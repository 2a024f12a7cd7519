package application

import "context"

// TxManager runs fn inside a storage transaction carried by the context.
type TxManager interface {
	Transact(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher emits lifecycle events after a change has committed.
// Implementations log delivery failures; they never fail the caller.
type EventPublisher interface {
	Publish(ctx context.Context, eventType, subject string, data interface{})
}

// Lifecycle event types published on the coupon events topic.
const (
	EventCouponAssigned  = "coupon.assigned"
	EventCouponRedeemed  = "coupon.redeemed"
	EventCouponsImported = "coupon.imported"
	EventCampaignCreated = "campaign.created"
	EventCampaignDeleted = "campaign.deleted"
)

// NopPublisher discards events. Used when Kafka is not configured.
type NopPublisher struct{}

// Publish does nothing.
func (NopPublisher) Publish(context.Context, string, string, interface{}) {}

// noTx runs fn directly. Used when no TxManager is supplied.
type noTx struct{}

func (noTx) Transact(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }
