// Package models defines the data structures exchanged with the support backend.
package models

import "time"

// Role identifies who authored a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single entry in a chat transcript. Messages are never
// modified after they are appended.
type Message struct {
	ID          string    `json:"id"`
	Role        Role      `json:"role"`
	Content     string    `json:"content"`
	Timestamp   time.Time `json:"timestamp"`
	IsEscalated bool      `json:"isEscalated,omitempty"`
	TicketID    string    `json:"ticketId,omitempty"`
}

// ChatRequest is the body of POST /chat.
// ThreadID is nil on the first turn of a session.
type ChatRequest struct {
	Query    string  `json:"query"`
	ThreadID *string `json:"thread_id"`
	ClientID string  `json:"client_id,omitempty"`
}

// ChatResponse is the backend's answer to a chat turn.
type ChatResponse struct {
	Answer    string  `json:"answer"`
	ThreadID  string  `json:"thread_id"`
	Escalated bool    `json:"escalated"`
	TicketID  *string `json:"ticket_id"`
}

// TicketIDValue returns the ticket id or "" when the backend sent null.
func (r ChatResponse) TicketIDValue() string {
	if r.TicketID == nil {
		return ""
	}
	return *r.TicketID
}
