package devserver

import (
	"testing"
	"time"

	"github.com/raphaelgruber/supportdesk/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrend(t *testing.T) {
	tests := []struct {
		name     string
		this     int
		last     int
		want     float64
		positive bool
	}{
		{"flat zero", 0, 0, 0, true},
		{"from zero", 3, 0, 100, true},
		{"doubled", 4, 2, 100, true},
		{"dropped", 1, 3, 66.7, false},
		{"third up", 4, 3, 33.3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := trend(tt.this, tt.last)
			assert.InDelta(t, tt.want, got.Value, 0.001)
			assert.Equal(t, tt.positive, got.IsPositive)
		})
	}
}

func TestStatsWeekOverWeek(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	s := NewStore(nil, func() time.Time { return now })

	s.AddTicket(models.Ticket{ID: "old", Status: models.TicketOpen, CreatedAt: now.AddDate(0, 0, -10)})
	s.AddTicket(models.Ticket{ID: "a", Status: models.TicketOpen, CreatedAt: now.AddDate(0, 0, -1)})
	s.AddTicket(models.Ticket{ID: "b", Status: models.TicketOpen, CreatedAt: now.AddDate(0, 0, -2)})
	require.NoError(t, s.Resolve("b", "done"))

	stats := s.Stats()
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Open)
	assert.Equal(t, 1, stats.Resolved)
	require.NotNil(t, stats.Trends)
	assert.Equal(t, models.Trend{Value: 100, IsPositive: true}, stats.Trends.Total)
	assert.Equal(t, models.Trend{Value: 0, IsPositive: true}, stats.Trends.Open, "one open each week")
	assert.Equal(t, models.Trend{Value: 100, IsPositive: true}, stats.Trends.Resolved)
}

func TestAnswerEscalatesOnKeyword(t *testing.T) {
	s := NewStore([]string{" Refund "}, nil)

	plain := s.Answer(models.ChatRequest{Query: "opening hours?"})
	assert.False(t, plain.Escalated)
	assert.Nil(t, plain.TicketID)
	assert.NotEmpty(t, plain.ThreadID)

	thread := plain.ThreadID
	esc := s.Answer(models.ChatRequest{Query: "I need a REFUND", ThreadID: &thread})
	assert.True(t, esc.Escalated)
	require.NotNil(t, esc.TicketID)
	assert.Equal(t, "TKT-1", *esc.TicketID)
	assert.Equal(t, thread, esc.ThreadID)

	again := s.Answer(models.ChatRequest{Query: "anything", ThreadID: &thread})
	assert.True(t, again.Escalated, "an escalated thread stays escalated")
	assert.Equal(t, "TKT-1", *again.TicketID)
	assert.Len(t, s.Tickets(), 1)
}

func TestResolveByThreadID(t *testing.T) {
	s := NewStore(nil, nil)
	s.AddTicket(models.Ticket{ThreadID: "th-1", Status: models.TicketOpen})

	require.NoError(t, s.Resolve("th-1", "ok"))
	assert.Equal(t, models.TicketResolved, s.Tickets()[0].Status)
	assert.ErrorIs(t, s.Resolve("nope", ""), ErrTicketNotFound)
	assert.ErrorIs(t, s.DeleteTicket("nope"), ErrTicketNotFound)
}

func TestActivityNewestFirstAndBounded(t *testing.T) {
	s := NewStore(nil, nil)
	for range maxActivity + 20 {
		s.AddDocument("guide.pdf", 10)
	}
	assert.Len(t, s.Activity(1000), maxActivity)
	assert.Len(t, s.Activity(3), 3)

	docs := s.Documents()
	require.NoError(t, s.DeleteDocument(docs[0].DocID))
	assert.ErrorIs(t, s.DeleteDocument("missing"), ErrDocumentNotFound)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdefgh", 5))
	assert.Equal(t, "ab", truncate("abcdefgh", 2))
}
