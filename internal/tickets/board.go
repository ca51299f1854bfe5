// Package tickets implements the administrator's view of the ticket
// collection: load, filter, resolve with a remark, and delete.
package tickets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/raphaelgruber/supportdesk/internal/models"
	"github.com/raphaelgruber/supportdesk/internal/toast"
)

// Sentinel errors returned before any remote call is made.
var (
	// ErrNotFound indicates the ticket is not in the loaded collection.
	ErrNotFound = errors.New("ticket not found")

	// ErrAlreadyResolved indicates a resolve on a resolved ticket.
	// Status never moves backward, and RESOLVED is not re-entered.
	ErrAlreadyResolved = errors.New("ticket already resolved")

	// ErrNotResolved indicates a delete on a ticket that is still open.
	ErrNotResolved = errors.New("only resolved tickets can be deleted")
)

// Service is the backend the board reads and writes.
type Service interface {
	ListTickets(ctx context.Context) ([]models.Ticket, error)
	ResolveTicket(ctx context.Context, ticketID, remark string) error
	DeleteTicket(ctx context.Context, ticketID string) error
}

// Counts holds the numbers shown next to each filter.
type Counts struct {
	All      int
	Open     int
	Resolved int
}

// Board is the local copy of the ticket collection. Mutations are applied
// optimistically after the backend confirms them, without a refetch.
// All methods are safe for concurrent use.
type Board struct {
	svc    Service
	toasts *toast.Store
	logger *slog.Logger

	mu      sync.Mutex
	tickets []models.Ticket
	loaded  bool
}

// NewBoard creates an empty board. toasts may be nil.
func NewBoard(svc Service, toasts *toast.Store, logger *slog.Logger) *Board {
	if logger == nil {
		logger = slog.Default()
	}
	return &Board{svc: svc, toasts: toasts, logger: logger}
}

// Load fetches the full collection and replaces local state. On failure
// the previous state is kept.
func (b *Board) Load(ctx context.Context) error {
	tickets, err := b.svc.ListTickets(ctx)
	if err != nil {
		b.logger.Error("failed to load tickets", "error", err)
		b.toasts.Error("Error", "Failed to load tickets")
		return fmt.Errorf("load tickets: %w", err)
	}

	b.mu.Lock()
	b.tickets = slices.Clone(tickets)
	b.loaded = true
	b.mu.Unlock()

	b.logger.Debug("tickets loaded", "count", len(tickets))
	return nil
}

// Loaded reports whether Load has succeeded at least once.
func (b *Board) Loaded() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loaded
}

// Tickets returns a copy of the tickets passing filter, in backend order.
func (b *Board) Tickets(filter models.TicketFilter) []models.Ticket {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]models.Ticket, 0, len(b.tickets))
	for _, t := range b.tickets {
		if filter.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

// Get returns the ticket with the given key.
func (b *Board) Get(id string) (models.Ticket, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i := b.indexLocked(id); i >= 0 {
		return b.tickets[i], true
	}
	return models.Ticket{}, false
}

// Counts returns the per-filter totals.
func (b *Board) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()

	c := Counts{All: len(b.tickets)}
	for _, t := range b.tickets {
		if t.IsResolved() {
			c.Resolved++
		} else {
			c.Open++
		}
	}
	return c
}

// Resolve sends the remark to the backend. Only after it succeeds are the
// local status and remark rewritten, both together.
func (b *Board) Resolve(ctx context.Context, id, remark string) error {
	current, ok := b.Get(id)
	if !ok {
		return fmt.Errorf("resolve %s: %w", id, ErrNotFound)
	}
	if current.IsResolved() {
		return fmt.Errorf("resolve %s: %w", id, ErrAlreadyResolved)
	}

	if err := b.svc.ResolveTicket(ctx, id, remark); err != nil {
		b.logger.Error("failed to resolve ticket", "ticket_id", id, "error", err)
		b.toasts.Error("Error", "Failed to resolve ticket")
		return fmt.Errorf("resolve %s: %w", id, err)
	}

	b.mu.Lock()
	if i := b.indexLocked(id); i >= 0 {
		t := b.tickets[i]
		t.Status = models.TicketResolved
		t.Remark = remark
		b.tickets[i] = t
	}
	b.mu.Unlock()

	b.logger.Info("ticket resolved", "ticket_id", id)
	b.toasts.Success("Ticket Resolved", fmt.Sprintf("Ticket %s marked as resolved.", id))
	return nil
}

// Delete permanently removes a resolved ticket. The local entry is removed
// only after the backend confirms.
func (b *Board) Delete(ctx context.Context, id string) error {
	current, ok := b.Get(id)
	if !ok {
		return fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}
	if !current.IsResolved() {
		return fmt.Errorf("delete %s: %w", id, ErrNotResolved)
	}

	if err := b.svc.DeleteTicket(ctx, id); err != nil {
		b.logger.Error("failed to delete ticket", "ticket_id", id, "error", err)
		b.toasts.Error("Error", "Failed to delete ticket")
		return fmt.Errorf("delete %s: %w", id, err)
	}

	b.mu.Lock()
	b.tickets = slices.DeleteFunc(b.tickets, func(t models.Ticket) bool { return t.Key() == id })
	b.mu.Unlock()

	b.logger.Info("ticket deleted", "ticket_id", id)
	b.toasts.Success("Ticket Deleted", "Ticket has been permanently deleted.")
	return nil
}

// indexLocked finds a ticket by key. Caller must hold b.mu.
func (b *Board) indexLocked(id string) int {
	return slices.IndexFunc(b.tickets, func(t models.Ticket) bool { return t.Key() == id })
}
