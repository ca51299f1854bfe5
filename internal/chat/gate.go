package chat

// GateState is the state of the escalation gate.
type GateState string

const (
	// GateOpen accepts new user turns.
	GateOpen GateState = "open"
	// GateLocked means a ticket was created; input stays disabled until reset.
	GateLocked GateState = "locked"
)

// PendingTicket is shown in the banner while the ticket id has not arrived.
const PendingTicket = "pending"

// Gate locks a conversation once the backend escalates it. Locked is
// terminal until Reset. Gate is not safe for concurrent use; Session
// guards it.
type Gate struct {
	state    GateState
	ticketID string
}

// State returns the current gate state. The zero Gate is open.
func (g *Gate) State() GateState {
	if g.state == "" {
		return GateOpen
	}
	return g.state
}

// Locked reports whether the gate rejects new user turns.
func (g *Gate) Locked() bool {
	return g.State() == GateLocked
}

// Observe evaluates one accepted turn response. Either signal locks the
// gate; a backend may set them independently. Observing a locked gate
// only fills in a ticket id that was missing.
func (g *Gate) Observe(escalated bool, ticketID string) {
	if g.Locked() {
		if g.ticketID == "" {
			g.ticketID = ticketID
		}
		return
	}
	if escalated || ticketID != "" {
		g.state = GateLocked
		g.ticketID = ticketID
	}
}

// Banner returns the ticket identifier to display while locked, or
// PendingTicket if the id is not known yet. Empty when open.
func (g *Gate) Banner() string {
	if !g.Locked() {
		return ""
	}
	if g.ticketID == "" {
		return PendingTicket
	}
	return g.ticketID
}

// TicketID returns the escalation ticket id, if any.
func (g *Gate) TicketID() string {
	return g.ticketID
}

// Reset reopens the gate.
func (g *Gate) Reset() {
	*g = Gate{}
}
