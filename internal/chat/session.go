// Package chat implements the visitor side of a support conversation:
// one turn at a time against the answering service, with escalation
// locking the session once a ticket exists.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/raphaelgruber/supportdesk/internal/metrics"
	"github.com/raphaelgruber/supportdesk/internal/models"
)

// Sentinel errors returned before any remote call is made.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrLocked indicates the conversation was escalated and needs a reset.
	ErrLocked = errors.New("conversation escalated to a ticket; start a new chat")

	// ErrBusy indicates a turn is already in flight.
	ErrBusy = errors.New("a message is already being answered")

	// ErrEmptyMessage indicates blank input.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrNothingToRetry indicates there is no user message to resend.
	ErrNothingToRetry = errors.New("no message to retry")

	// ErrStaleTurn indicates the session was reset while the turn was in
	// flight; the response was discarded.
	ErrStaleTurn = errors.New("response arrived after the chat was reset")
)

// Answerer is the remote answering service.
type Answerer interface {
	Chat(ctx context.Context, query, threadID, clientID string) (*models.ChatResponse, error)
}

// Turn is the outcome of one successful request/response cycle.
type Turn struct {
	Answer    string
	ThreadID  string
	Escalated bool
	TicketID  string
}

// State is a read-only copy of the session for rendering.
type State struct {
	Messages []models.Message
	ThreadID string
	Loading  bool
	Err      bool
	Gate     GateState
	Banner   string
}

// CanSend reports whether the input surface should accept a message.
func (s State) CanSend() bool {
	return s.Gate != GateLocked && !s.Loading
}

// Session is the state container for one visitor conversation.
// All methods are safe for concurrent use.
type Session struct {
	answerer Answerer
	clientID string
	logger   *slog.Logger
	metrics  *metrics.Collector
	now      func() time.Time

	mu         sync.Mutex
	messages   []models.Message
	threadID   string
	loading    bool
	err        bool
	gate       Gate
	generation uint64
}

// Option configures a Session.
type Option func(*Session)

// WithClientID tags every turn with the embedding site's client id.
func WithClientID(id string) Option {
	return func(s *Session) { s.clientID = id }
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithMetrics records stale turn counts.
func WithMetrics(m *metrics.Collector) Option {
	return func(s *Session) { s.metrics = m }
}

// WithClock overrides the message timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// NewSession creates an empty session with an open gate.
func NewSession(a Answerer, opts ...Option) *Session {
	s := &Session{
		answerer: a,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send appends content as a user message and asks the answering service.
// Gate, busy and empty checks happen before anything is appended.
func (s *Session) Send(ctx context.Context, content string) (Turn, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Turn{}, ErrEmptyMessage
	}

	s.mu.Lock()
	if err := s.checkReadyLocked(); err != nil {
		s.mu.Unlock()
		return Turn{}, err
	}
	s.messages = append(s.messages, models.Message{
		ID:        uuid.NewString(),
		Role:      models.RoleUser,
		Content:   content,
		Timestamp: s.now(),
	})
	pending := s.beginLocked()
	s.mu.Unlock()

	return s.complete(ctx, content, pending)
}

// Retry re-submits the most recent user message verbatim. The message is
// already in the transcript, so nothing new is appended before the call.
func (s *Session) Retry(ctx context.Context) (Turn, error) {
	s.mu.Lock()
	if err := s.checkReadyLocked(); err != nil {
		s.mu.Unlock()
		return Turn{}, err
	}
	content, ok := s.lastUserContentLocked()
	if !ok {
		s.mu.Unlock()
		return Turn{}, ErrNothingToRetry
	}
	pending := s.beginLocked()
	s.mu.Unlock()

	return s.complete(ctx, content, pending)
}

// checkReadyLocked rejects new turns while locked or loading.
// Caller must hold s.mu.
func (s *Session) checkReadyLocked() error {
	if s.gate.Locked() {
		return ErrLocked
	}
	if s.loading {
		return ErrBusy
	}
	return nil
}

func (s *Session) lastUserContentLocked() (string, bool) {
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].Role == models.RoleUser {
			return s.messages[i].Content, true
		}
	}
	return "", false
}

// pendingTurn captures what a turn was started with.
type pendingTurn struct {
	generation uint64
	threadID   string
}

// beginLocked marks a turn in flight. Caller must hold s.mu.
func (s *Session) beginLocked() pendingTurn {
	s.loading = true
	s.err = false
	return pendingTurn{generation: s.generation, threadID: s.threadID}
}

// complete performs the remote call and applies the outcome.
func (s *Session) complete(ctx context.Context, content string, p pendingTurn) (Turn, error) {
	threadID := p.threadID
	start := time.Now()
	resp, err := s.answerer.Chat(ctx, content, threadID, s.clientID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if p.generation != s.generation {
		s.metrics.Inc(metrics.EventTurnStale)
		s.logger.Debug("discarding response from before reset", "thread_id", threadID)
		return Turn{}, ErrStaleTurn
	}
	s.loading = false

	if err != nil {
		s.err = true
		s.logger.Warn("chat turn failed", "thread_id", threadID, "error", err)
		return Turn{}, fmt.Errorf("send message: %w", err)
	}

	turn := Turn{
		Answer:    resp.Answer,
		ThreadID:  resp.ThreadID,
		Escalated: resp.Escalated,
		TicketID:  resp.TicketIDValue(),
	}

	s.messages = append(s.messages, models.Message{
		ID:          uuid.NewString(),
		Role:        models.RoleAssistant,
		Content:     turn.Answer,
		Timestamp:   s.now(),
		IsEscalated: turn.Escalated,
		TicketID:    turn.TicketID,
	})
	// The backend owns thread continuity.
	s.threadID = turn.ThreadID
	s.gate.Observe(turn.Escalated, turn.TicketID)

	s.logger.Info("chat turn completed",
		"thread_id", turn.ThreadID,
		"escalated", turn.Escalated,
		"ticket_id", turn.TicketID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return turn, nil
}

// Reset starts a new chat: transcript, thread, loading and error flags are
// cleared and the gate reopens. Responses still in flight are discarded
// when they arrive.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = nil
	s.threadID = ""
	s.loading = false
	s.err = false
	s.gate.Reset()
	s.generation++
}

// Snapshot returns a copy of the session state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return State{
		Messages: slices.Clone(s.messages),
		ThreadID: s.threadID,
		Loading:  s.loading,
		Err:      s.err,
		Gate:     s.gate.State(),
		Banner:   s.gate.Banner(),
	}
}

// Resume continues an existing backend thread in an empty session. It has
// no effect once the session has a thread of its own.
func (s *Session) Resume(threadID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.threadID == "" && len(s.messages) == 0 {
		s.threadID = strings.TrimSpace(threadID)
	}
}

// ThreadID returns the backend-assigned thread id, "" before the first reply.
func (s *Session) ThreadID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.threadID
}
