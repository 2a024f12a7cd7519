// Package events connects the coupon service to Kafka: lifecycle events out,
// assignment commands in.
package events

const (
	// TopicCouponEvents carries lifecycle events published after commits.
	TopicCouponEvents = "coupon.events"
	// TopicCouponCommands carries work requests for this service.
	TopicCouponCommands = "coupon.commands"

	// CommandAssignmentRequested asks for one coupon per listed user.
	CommandAssignmentRequested = "coupon.assignment.requested"

	// Source identifies this service in outgoing envelopes.
	Source = "service-coupon"
)

// AssignmentRequestedCommand is the payload of CommandAssignmentRequested.
type AssignmentRequestedCommand struct {
	CampaignID int64   `json:"campaign_id"`
	UserIDs    []int64 `json:"user_ids"`
}
