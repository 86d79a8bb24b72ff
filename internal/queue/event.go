// Package queue carries activity events over RabbitMQ.  Producers publish
// one ActivityEvent per state change; the consumer stores them in the
// activity_logs table.
package queue

import (
	"time"

	"github.com/iliyamo/loyalty-rewards/internal/model"
)

// ActivityQueue is the durable queue activity events travel on.
const ActivityQueue = "loyalty.activity"

// Actions recorded in the activity log.
const (
	ActionUserRegistered = "user.registered"
	ActionUserCreated    = "user.created"
	ActionUserUpdated    = "user.updated"
	ActionPurchase       = "purchase.recorded"
	ActionPointsGranted  = "points.granted"
	ActionRedeemCreated  = "redeem.created"
	ActionRedeemApproved = "redeem.approved"
	ActionRedeemRejected = "redeem.rejected"
	ActionRedeemUsed     = "redeem.used"
	ActionRewardCreated  = "reward.created"
	ActionRewardUpdated  = "reward.updated"
	ActionRewardDeleted  = "reward.deleted"
	ActionTicketCreated  = "ticket.created"
	ActionTicketUpdated  = "ticket.updated"
	ActionTicketReplied  = "ticket.replied"
)

// ActivityEvent describes who did what to which entity.
type ActivityEvent struct {
	ActorID    *uint64   `json:"actor_id,omitempty"`
	Action     string    `json:"action"`
	Entity     string    `json:"entity"`
	EntityID   *uint64   `json:"entity_id,omitempty"`
	Details    string    `json:"details,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Log converts the event into its stored form.
func (e ActivityEvent) Log() model.ActivityLog {
	at := e.OccurredAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return model.ActivityLog{
		ActorID:   e.ActorID,
		Action:    e.Action,
		Entity:    e.Entity,
		EntityID:  e.EntityID,
		Details:   e.Details,
		CreatedAt: at,
	}
}
