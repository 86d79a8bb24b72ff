package model

import "time"

// ActivityLog is an audit entry written by the activity consumer.
type ActivityLog struct {
	ID        uint64    `json:"id"`
	ActorID   *uint64   `json:"actor_id,omitempty"`
	Action    string    `json:"action"`
	Entity    string    `json:"entity"`
	EntityID  *uint64   `json:"entity_id,omitempty"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"created_at"`
}
