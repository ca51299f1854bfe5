package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/raphaelgruber/supportdesk/internal/chat"
	"github.com/raphaelgruber/supportdesk/internal/models"
	"github.com/raphaelgruber/supportdesk/internal/notify"
	"github.com/raphaelgruber/supportdesk/internal/toast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type escalatingAnswerer struct{}

func (escalatingAnswerer) Chat(_ context.Context, query, threadID, clientID string) (*models.ChatResponse, error) {
	ticket := "TKT-7"
	return &models.ChatResponse{Answer: "Connecting you to an agent.", ThreadID: "th-1", Escalated: true, TicketID: &ticket}, nil
}

func TestChatModelLocksAfterEscalation(t *testing.T) {
	m := newChatModel(chat.NewSession(escalatingAnswerer{}), darkTheme)
	assert.True(t, m.state.CanSend())

	msg := m.send("I want a human")()
	next, _ := m.Update(msg)
	m = next.(chatModel)

	assert.Equal(t, chat.GateLocked, m.state.Gate)
	assert.False(t, m.state.CanSend())
	out := m.renderContent()
	assert.Contains(t, out, "Ticket created: TKT-7")
	assert.Contains(t, out, "I want a human")
	assert.NotContains(t, out, "enter send", "input hint is hidden while locked")
}

type scriptedAnswerer struct {
	resp models.ChatResponse
}

func (a scriptedAnswerer) Chat(context.Context, string, string, string) (*models.ChatResponse, error) {
	resp := a.resp
	return &resp, nil
}

func TestChatModelKeepsInputWhileTurnInFlight(t *testing.T) {
	m := newChatModel(chat.NewSession(escalatingAnswerer{}), darkTheme)

	m.input.SetValue("hello")
	m, cmd := m.submit()
	require.NotNil(t, cmd)
	assert.Empty(t, m.input.Value())
	assert.Contains(t, m.renderContent(), "Assistant is typing")

	// The session has not started the turn yet, so its snapshot still
	// allows sending.
	assert.True(t, m.state.CanSend())

	m.input.SetValue("again")
	m, cmd = m.submit()
	assert.Nil(t, cmd)
	assert.Equal(t, "again", m.input.Value(), "text typed during a turn is kept")

	next, _ := m.Update(turnDoneMsg{})
	m = next.(chatModel)
	assert.False(t, m.inFlight)
}

func TestPrintTurnBanner(t *testing.T) {
	ticket := "TKT-9"
	tests := []struct {
		name       string
		resp       models.ChatResponse
		wantBanner string
	}{
		{"not escalated", models.ChatResponse{Answer: "Try restarting.", ThreadID: "th-1"}, ""},
		{"ticket without escalated flag", models.ChatResponse{Answer: "Handing over.", ThreadID: "th-1", TicketID: &ticket}, "Ticket created: TKT-9"},
		{"escalated without ticket", models.ChatResponse{Answer: "Handing over.", ThreadID: "th-1", Escalated: true}, "Ticket created: pending"},
		{"escalated with ticket", models.ChatResponse{Answer: "Handing over.", ThreadID: "th-1", Escalated: true, TicketID: &ticket}, "Ticket created: TKT-9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := chat.NewSession(scriptedAnswerer{resp: tt.resp})
			turn, err := s.Send(context.Background(), "help")
			require.NoError(t, err)

			var buf bytes.Buffer
			printTurn(&buf, turn, s.Snapshot(), darkTheme)

			out := buf.String()
			assert.Contains(t, out, tt.resp.Answer)
			assert.Contains(t, out, "thread: th-1")
			if tt.wantBanner == "" {
				assert.NotContains(t, out, "Ticket created")
				return
			}
			assert.Contains(t, out, tt.wantBanner)
		})
	}
}

type staticLister struct {
	tickets []models.Ticket
	calls   int
}

func (l *staticLister) ListTickets(context.Context) ([]models.Ticket, error) {
	l.calls++
	return l.tickets, nil
}

func TestWatchModelShowsUnreadBadge(t *testing.T) {
	now := time.Now()
	l := &staticLister{tickets: []models.Ticket{{ID: "T1", Query: "first", CreatedAt: now.Add(-time.Hour)}}}
	toasts := toast.New()
	p := notify.NewPoller(l, notify.Options{Toasts: toasts})
	m := newWatchModel(p, toasts, darkTheme)

	assert.Contains(t, m.renderContent(), "Loading tickets")

	next, _ := m.Update(m.baseline()())
	m = next.(watchModel)

	l.tickets = append([]models.Ticket{{ID: "T2", Query: "second", CreatedAt: now}}, l.tickets...)
	next, _ = m.Update(m.poll()())
	m = next.(watchModel)

	out := m.renderContent()
	assert.Equal(t, 1, p.Unread())
	assert.Contains(t, out, "T2")
	assert.Contains(t, out, "New Ticket Received")

	p.MarkSeen()
	assert.Equal(t, 0, p.Unread())
}

func TestWatchModelKeepsSinglePollChain(t *testing.T) {
	l := &staticLister{}
	p := notify.NewPoller(l, notify.Options{Interval: time.Hour})
	m := newWatchModel(p, toast.New(), darkTheme)

	m, cmd := m.refresh()
	assert.Nil(t, cmd, "refresh waits for the baseline")

	next, _ := m.Update(m.baseline()())
	m = next.(watchModel)
	assert.Equal(t, 1, m.tickSeq)

	m, cmd = m.refresh()
	require.NotNil(t, cmd)
	_, again := m.refresh()
	assert.Nil(t, again, "refresh while a poll is running")

	next, _ = m.Update(cmd())
	m = next.(watchModel)
	assert.Equal(t, 2, m.tickSeq, "the refresh result rearms the tick")
	calls := l.calls

	tests := []struct {
		name     string
		seq      int
		wantPoll bool
	}{
		{"tick from before refresh", 1, false},
		{"current tick", 2, true},
		{"current tick while polling", 2, false},
	}

	for _, tt := range tests {
		next, cmd := m.Update(pollTickMsg{seq: tt.seq})
		m = next.(watchModel)
		assert.Equal(t, tt.wantPoll, cmd != nil, tt.name)
	}
	assert.Equal(t, calls, l.calls, "ticks do not fetch on their own")
}

func TestUnreadBadge(t *testing.T) {
	assert.Equal(t, "1", unreadBadge(1))
	assert.Equal(t, "9", unreadBadge(9))
	assert.Equal(t, "9+", unreadBadge(10))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a b", truncate("a\n  b", 10), "whitespace is collapsed")
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}

func TestLoginValidationError(t *testing.T) {
	err := validate.Struct(models.LoginRequest{Email: "nope", Password: "123"})
	require.Error(t, err)

	msg := loginValidationError(err).Error()
	assert.Contains(t, msg, "email must be a valid email address")
	assert.Contains(t, msg, "password must be at least 6 characters")

	assert.NoError(t, validate.Struct(models.LoginRequest{Email: "admin@example.com", Password: "admin123"}))
}

func TestThemeFor(t *testing.T) {
	assert.Equal(t, lightTheme, themeFor("light"))
	assert.Equal(t, darkTheme, themeFor("dark"))
}
