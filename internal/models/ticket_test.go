package models

import (
	"testing"
	"time"
)

func TestTicketKey(t *testing.T) {
	tests := []struct {
		name   string
		ticket Ticket
		want   string
	}{
		{"id wins", Ticket{ID: "TKT-1", ThreadID: "th-1"}, "TKT-1"},
		{"thread fallback", Ticket{ThreadID: "th-1"}, "th-1"},
		{"empty", Ticket{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ticket.Key(); got != tt.want {
				t.Errorf("Key() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseTicketFilter(t *testing.T) {
	tests := []struct {
		in      string
		want    TicketFilter
		wantErr bool
	}{
		{"", FilterAll, false},
		{"all", FilterAll, false},
		{"OPEN", FilterOpen, false},
		{" resolved ", FilterResolved, false},
		{"closed", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTicketFilter(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTicketFilter(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseTicketFilter(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFilterMatch(t *testing.T) {
	open := Ticket{Status: TicketOpen}
	escalated := Ticket{Status: TicketEscalated}
	resolved := Ticket{Status: TicketResolved}

	tests := []struct {
		name   string
		filter TicketFilter
		ticket Ticket
		want   bool
	}{
		{"all open", FilterAll, open, true},
		{"all resolved", FilterAll, resolved, true},
		{"open open", FilterOpen, open, true},
		{"open escalated", FilterOpen, escalated, true},
		{"open resolved", FilterOpen, resolved, false},
		{"resolved open", FilterResolved, open, false},
		{"resolved resolved", FilterResolved, resolved, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Match(tt.ticket); got != tt.want {
				t.Errorf("%s.Match(%s) = %v, want %v", tt.filter, tt.ticket.Status, got, tt.want)
			}
		})
	}
}

func TestSortNewestFirst(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tickets := []Ticket{
		{ID: "T1", CreatedAt: base},
		{ID: "T3", CreatedAt: base.Add(2 * time.Minute)},
		{ID: "T2a", CreatedAt: base.Add(time.Minute)},
		{ID: "T2b", CreatedAt: base.Add(time.Minute)},
	}

	SortNewestFirst(tickets)

	want := []string{"T3", "T2a", "T2b", "T1"}
	for i, id := range want {
		if tickets[i].ID != id {
			t.Fatalf("position %d = %s, want %s (order %v)", i, tickets[i].ID, id, tickets)
		}
	}
}
