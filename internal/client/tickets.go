package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/raphaelgruber/supportdesk/internal/metrics"
	"github.com/raphaelgruber/supportdesk/internal/models"
)

// ListTickets fetches the full ticket collection. There is no pagination.
func (c *Client) ListTickets(ctx context.Context) ([]models.Ticket, error) {
	var tickets []models.Ticket
	if err := c.doJSON(ctx, metrics.OpTicketsList, http.MethodGet, "/tickets", nil, &tickets); err != nil {
		return nil, err
	}
	if tickets == nil {
		tickets = []models.Ticket{}
	}
	return tickets, nil
}

// TicketStats fetches the dashboard counters.
func (c *Client) TicketStats(ctx context.Context) (*models.Stats, error) {
	var stats models.Stats
	if err := c.doJSON(ctx, metrics.OpTicketsStats, http.MethodGet, "/tickets/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// ResolveTicket marks a ticket resolved with the admin's remark.
func (c *Client) ResolveTicket(ctx context.Context, ticketID, remark string) error {
	req := models.ResolveRequest{TicketID: ticketID, AdminRemarks: remark}
	return c.doJSON(ctx, metrics.OpTicketsResolve, http.MethodPost, "/tickets/resolve", req, nil)
}

// DeleteTicket permanently removes a ticket.
func (c *Client) DeleteTicket(ctx context.Context, ticketID string) error {
	return c.doJSON(ctx, metrics.OpTicketsDelete, http.MethodDelete, "/tickets/"+url.PathEscape(ticketID), nil, nil)
}
