package model

import "time"

// Ticket statuses and priorities.
const (
	TicketOpen       = "open"
	TicketInProgress = "in_progress"
	TicketResolved   = "resolved"
	TicketClosed     = "closed"

	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

// SupportTicket is a customer or staff help request.  Reference is the
// human-facing id quoted in conversations.
type SupportTicket struct {
	ID         uint64        `json:"id"`
	Reference  string        `json:"reference"`
	UserID     uint64        `json:"user_id"`
	Subject    string        `json:"subject"`
	Message    string        `json:"message"`
	Priority   string        `json:"priority"`
	Status     string        `json:"status"`
	AssignedTo *uint64       `json:"assigned_to,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
	Replies    []TicketReply `json:"replies,omitempty"`
}

// TicketReply is one message in a ticket thread.
type TicketReply struct {
	ID        uint64    `json:"id"`
	TicketID  uint64    `json:"ticket_id"`
	AuthorID  uint64    `json:"author_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
