package models

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// TicketStatus represents the lifecycle state of a ticket.
type TicketStatus string

const (
	TicketOpen      TicketStatus = "OPEN"
	TicketEscalated TicketStatus = "ESCALATED"
	TicketResolved  TicketStatus = "RESOLVED"
)

// AssignedTo names who currently owns a ticket.
type AssignedTo string

const (
	AssignedBot   AssignedTo = "BOT"
	AssignedHuman AssignedTo = "HUMAN"
)

// Ticket is an escalated conversation as returned by GET /tickets.
type Ticket struct {
	ID         string       `json:"id"`
	ThreadID   string       `json:"thread_id,omitempty"`
	Query      string       `json:"query"`
	LLMAnswer  string       `json:"llmAnswer,omitempty"`
	Status     TicketStatus `json:"status"`
	AssignedTo AssignedTo   `json:"assignedTo,omitempty"`
	CreatedAt  time.Time    `json:"createdAt"`
	Remark     string       `json:"remark,omitempty"`
	UserName   string       `json:"userName,omitempty"`
	UserEmail  string       `json:"userEmail,omitempty"`
}

// Key returns the ticket's identity: its id, or the thread id when the
// backend has not assigned one.
func (t Ticket) Key() string {
	if t.ID != "" {
		return t.ID
	}
	return t.ThreadID
}

// IsResolved reports whether the ticket reached its terminal status.
func (t Ticket) IsResolved() bool {
	return t.Status == TicketResolved
}

// SortNewestFirst orders tickets by creation time, most recent first.
// Tickets with equal timestamps keep their relative order.
func SortNewestFirst(tickets []Ticket) {
	slices.SortStableFunc(tickets, func(a, b Ticket) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}

// TicketFilter selects a subset of tickets on the client side.
type TicketFilter string

const (
	FilterAll      TicketFilter = "all"
	FilterOpen     TicketFilter = "open"
	FilterResolved TicketFilter = "resolved"
)

// ParseTicketFilter validates a user-supplied filter name. Empty means all.
func ParseTicketFilter(s string) (TicketFilter, error) {
	switch TicketFilter(strings.ToLower(strings.TrimSpace(s))) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterOpen:
		return FilterOpen, nil
	case FilterResolved:
		return FilterResolved, nil
	default:
		return "", fmt.Errorf("unknown ticket filter %q (want all, open or resolved)", s)
	}
}

// Match reports whether t passes the filter. Open means anything not resolved.
func (f TicketFilter) Match(t Ticket) bool {
	switch f {
	case FilterOpen:
		return !t.IsResolved()
	case FilterResolved:
		return t.IsResolved()
	default:
		return true
	}
}

// ResolveRequest is the body of POST /tickets/resolve.
type ResolveRequest struct {
	TicketID     string `json:"ticket_id"`
	AdminRemarks string `json:"admin_remarks"`
}
