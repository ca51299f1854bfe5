package chat

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/raphaelgruber/supportdesk/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	query, threadID, clientID string
}

// scriptedAnswerer replays responses in order and records every call.
type scriptedAnswerer struct {
	mu        sync.Mutex
	responses []scripted
	calls     []call
}

type scripted struct {
	resp *models.ChatResponse
	err  error
}

func (a *scriptedAnswerer) Chat(_ context.Context, query, threadID, clientID string) (*models.ChatResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, call{query, threadID, clientID})
	if len(a.responses) == 0 {
		return nil, errors.New("no scripted response")
	}
	next := a.responses[0]
	a.responses = a.responses[1:]
	return next.resp, next.err
}

func reply(answer, thread string, escalated bool, ticket string) scripted {
	resp := &models.ChatResponse{Answer: answer, ThreadID: thread, Escalated: escalated}
	if ticket != "" {
		resp.TicketID = &ticket
	}
	return scripted{resp: resp}
}

func failure() scripted {
	return scripted{err: errors.New("connection refused")}
}

func TestSendNonEscalated(t *testing.T) {
	a := &scriptedAnswerer{responses: []scripted{reply("Let me check", "abc", false, "")}}
	s := NewSession(a)

	turn, err := s.Send(context.Background(), "Where is my order?")
	require.NoError(t, err)
	assert.Equal(t, "Let me check", turn.Answer)

	st := s.Snapshot()
	assert.Equal(t, GateOpen, st.Gate)
	assert.Empty(t, st.Banner, "no ticket banner")
	require.Len(t, st.Messages, 2)
	assert.Equal(t, models.RoleUser, st.Messages[0].Role)
	assert.Equal(t, "Where is my order?", st.Messages[0].Content)
	assert.Equal(t, models.RoleAssistant, st.Messages[1].Role)
	assert.False(t, st.Messages[1].IsEscalated)
	assert.Equal(t, "abc", st.ThreadID)
	assert.False(t, st.Loading)
	assert.True(t, st.CanSend())
}

func TestSendEscalatedLocksGate(t *testing.T) {
	a := &scriptedAnswerer{responses: []scripted{reply("Escalating you now", "abc", true, "TKT-42")}}
	s := NewSession(a)

	_, err := s.Send(context.Background(), "I want a human")
	require.NoError(t, err)

	st := s.Snapshot()
	assert.Equal(t, GateLocked, st.Gate)
	assert.Equal(t, "TKT-42", st.Banner)
	assert.False(t, st.CanSend(), "input surface disabled")
	assert.True(t, st.Messages[1].IsEscalated)
	assert.Equal(t, "TKT-42", st.Messages[1].TicketID)
}

func TestEscalationMonotonicity(t *testing.T) {
	// Each of these responses must lock the session on its own.
	lockers := map[string]scripted{
		"escalated flag": reply("handing over", "t", true, ""),
		"ticket id only": reply("ticket opened", "t", false, "TKT-1"),
	}

	for name, locker := range lockers {
		t.Run(name, func(t *testing.T) {
			a := &scriptedAnswerer{responses: []scripted{
				reply("hi", "t", false, ""),
				locker,
				reply("never used", "t", false, ""),
			}}
			s := NewSession(a)

			_, err := s.Send(context.Background(), "one")
			require.NoError(t, err)
			_, err = s.Send(context.Background(), "two")
			require.NoError(t, err)

			before := len(s.Snapshot().Messages)
			for range 3 {
				_, err = s.Send(context.Background(), "three")
				assert.ErrorIs(t, err, ErrLocked)
				_, err = s.Retry(context.Background())
				assert.ErrorIs(t, err, ErrLocked)
			}
			assert.Len(t, s.Snapshot().Messages, before, "no user message appended while locked")
			assert.Len(t, a.calls, 2, "answering service never called while locked")

			s.Reset()
			_, err = s.Send(context.Background(), "after reset")
			assert.NoError(t, err)
		})
	}
}

func TestPendingBannerWithoutTicketID(t *testing.T) {
	a := &scriptedAnswerer{responses: []scripted{reply("escalating", "abc", true, "")}}
	s := NewSession(a)

	_, err := s.Send(context.Background(), "help")
	require.NoError(t, err)
	assert.Equal(t, PendingTicket, s.Snapshot().Banner)
}

func TestThreadContinuity(t *testing.T) {
	a := &scriptedAnswerer{responses: []scripted{
		reply("1", "thread-a", false, ""),
		reply("2", "thread-a", false, ""),
		reply("3", "thread-b", false, ""),
		reply("4", "thread-b", false, ""),
	}}
	s := NewSession(a, WithClientID("abc1234"))

	for _, q := range []string{"q1", "q2", "q3", "q4"} {
		_, err := s.Send(context.Background(), q)
		require.NoError(t, err)
	}

	require.Len(t, a.calls, 4)
	assert.Equal(t, "", a.calls[0].threadID, "first turn has no thread")
	assert.Equal(t, "thread-a", a.calls[1].threadID)
	assert.Equal(t, "thread-a", a.calls[2].threadID)
	assert.Equal(t, "thread-b", a.calls[3].threadID, "backend reassignment is honoured")
	for _, c := range a.calls {
		assert.Equal(t, "abc1234", c.clientID)
	}
}

func TestResumeContinuesThread(t *testing.T) {
	a := &scriptedAnswerer{responses: []scripted{reply("hi", "thread-x", false, "")}}
	s := NewSession(a)
	s.Resume(" thread-x ")

	_, err := s.Send(context.Background(), "still there?")
	require.NoError(t, err)
	require.Len(t, a.calls, 1)
	assert.Equal(t, "thread-x", a.calls[0].threadID)

	s.Resume("other")
	assert.Equal(t, "thread-x", s.ThreadID(), "resume is ignored once the session has history")
}

func TestFailureSetsErrorAndKeepsState(t *testing.T) {
	a := &scriptedAnswerer{responses: []scripted{
		reply("hello", "abc", false, ""),
		failure(),
	}}
	s := NewSession(a)

	_, err := s.Send(context.Background(), "first")
	require.NoError(t, err)

	_, err = s.Send(context.Background(), "second")
	require.Error(t, err)

	st := s.Snapshot()
	assert.True(t, st.Err)
	assert.False(t, st.Loading)
	assert.Equal(t, "abc", st.ThreadID, "thread unchanged on failure")
	require.Len(t, st.Messages, 3, "user message kept, no assistant message appended")
	assert.Equal(t, "second", st.Messages[2].Content)
	assert.Equal(t, GateOpen, st.Gate)
}

func TestRetryResendsLastUserMessage(t *testing.T) {
	a := &scriptedAnswerer{responses: []scripted{
		failure(),
		reply("found it", "abc", false, ""),
	}}
	s := NewSession(a)

	_, err := s.Send(context.Background(), "  Where is my order?  ")
	require.Error(t, err)

	turn, err := s.Retry(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "found it", turn.Answer)

	require.Len(t, a.calls, 2)
	assert.Equal(t, a.calls[0].query, a.calls[1].query, "retry sends the exact same content")
	assert.Equal(t, "Where is my order?", a.calls[1].query)

	st := s.Snapshot()
	assert.False(t, st.Err, "successful retry clears the error")
	require.Len(t, st.Messages, 2, "retry does not duplicate the user message")
}

func TestRetryWithoutUserMessage(t *testing.T) {
	a := &scriptedAnswerer{}
	s := NewSession(a)

	_, err := s.Retry(context.Background())
	assert.ErrorIs(t, err, ErrNothingToRetry)
	assert.Empty(t, a.calls)
}

func TestEmptyMessageRejected(t *testing.T) {
	a := &scriptedAnswerer{}
	s := NewSession(a)

	_, err := s.Send(context.Background(), "   \n")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Empty(t, s.Snapshot().Messages)
	assert.Empty(t, a.calls)
}

func TestResetCompleteness(t *testing.T) {
	a := &scriptedAnswerer{responses: []scripted{
		reply("escalating", "abc", true, "TKT-42"),
	}}
	s := NewSession(a)

	_, err := s.Send(context.Background(), "human please")
	require.NoError(t, err)

	s.Reset()

	st := s.Snapshot()
	assert.Empty(t, st.Messages)
	assert.Empty(t, st.ThreadID)
	assert.Equal(t, GateOpen, st.Gate)
	assert.False(t, st.Err)
	assert.False(t, st.Loading)
	assert.Empty(t, st.Banner)
}

// blockingAnswerer holds every call until released.
type blockingAnswerer struct {
	started chan struct{}
	release chan struct{}
	resp    *models.ChatResponse
}

func (b *blockingAnswerer) Chat(ctx context.Context, _, _, _ string) (*models.ChatResponse, error) {
	b.started <- struct{}{}
	<-b.release
	return b.resp, nil
}

func TestBusyWhileLoading(t *testing.T) {
	b := &blockingAnswerer{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
		resp:    &models.ChatResponse{Answer: "ok", ThreadID: "abc"},
	}
	s := NewSession(b)

	done := make(chan error, 1)
	go func() {
		_, err := s.Send(context.Background(), "first")
		done <- err
	}()
	<-b.started

	assert.True(t, s.Snapshot().Loading)
	_, err := s.Send(context.Background(), "second")
	assert.ErrorIs(t, err, ErrBusy)
	assert.Len(t, s.Snapshot().Messages, 1, "busy check precedes the optimistic append")

	close(b.release)
	require.NoError(t, <-done)
	assert.False(t, s.Snapshot().Loading)
}

func TestStaleResponseAfterResetDiscarded(t *testing.T) {
	b := &blockingAnswerer{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
		resp:    &models.ChatResponse{Answer: "late", ThreadID: "old", Escalated: true},
	}
	s := NewSession(b)

	done := make(chan error, 1)
	go func() {
		_, err := s.Send(context.Background(), "before reset")
		done <- err
	}()
	<-b.started

	s.Reset()
	close(b.release)
	assert.ErrorIs(t, <-done, ErrStaleTurn)

	st := s.Snapshot()
	assert.Empty(t, st.Messages, "late response not applied")
	assert.Empty(t, st.ThreadID)
	assert.Equal(t, GateOpen, st.Gate)
}
