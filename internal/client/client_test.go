package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/raphaelgruber/supportdesk/internal/client"
	"github.com/raphaelgruber/supportdesk/internal/metrics"
	"github.com/raphaelgruber/supportdesk/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memTokens is an in-memory TokenStore.
type memTokens struct {
	mu    sync.Mutex
	token string
}

func (m *memTokens) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

func (m *memTokens) ClearToken() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}

func newClient(t *testing.T, h http.Handler, tokens client.TokenStore) (*client.Client, *metrics.Collector) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	m := metrics.NewCollector()
	return client.New(client.Options{BaseURL: srv.URL + "/", Tokens: tokens, Metrics: m}), m
}

func TestChatSendsNullThreadOnFirstTurn(t *testing.T) {
	var got map[string]any
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		io.WriteString(w, `{"answer":"Let me check","thread_id":"abc","escalated":false,"ticket_id":null}`)
	}), nil)

	resp, err := c.Chat(context.Background(), "Where is my order?", "", "")
	require.NoError(t, err)

	assert.Nil(t, got["thread_id"], "first turn sends thread_id null")
	assert.Equal(t, "Where is my order?", got["query"])
	assert.NotContains(t, got, "client_id")
	assert.Equal(t, "abc", resp.ThreadID)
	assert.Equal(t, "", resp.TicketIDValue())
}

func TestChatSendsThreadAndClient(t *testing.T) {
	var got models.ChatRequest
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		io.WriteString(w, `{"answer":"ok","thread_id":"abc","escalated":true,"ticket_id":"TKT-42"}`)
	}), nil)

	resp, err := c.Chat(context.Background(), "refund please", "abc", "abc1234")
	require.NoError(t, err)

	require.NotNil(t, got.ThreadID)
	assert.Equal(t, "abc", *got.ThreadID)
	assert.Equal(t, "abc1234", got.ClientID)
	assert.True(t, resp.Escalated)
	assert.Equal(t, "TKT-42", resp.TicketIDValue())
}

func TestBearerTokenAttached(t *testing.T) {
	tokens := &memTokens{token: "secret"}
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		io.WriteString(w, `{"id":"1","email":"admin@example.com","name":"Admin"}`)
	}), tokens)

	admin, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", admin.Email)
}

func TestNoTokenNoHeader(t *testing.T) {
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		io.WriteString(w, `[]`)
	}), &memTokens{})

	tickets, err := c.ListTickets(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tickets)
}

func TestUnauthorizedClearsToken(t *testing.T) {
	tokens := &memTokens{token: "expired"}
	c, m := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"detail":"Could not validate credentials"}`)
	}), tokens)

	_, err := c.ListTickets(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, client.ErrUnauthorized)
	assert.Empty(t, tokens.Token(), "401 clears the stored token")
	assert.Equal(t, int64(1), m.Snapshot().Events[metrics.EventUnauthorized])

	var se *client.ServiceError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "Could not validate credentials", se.Detail)
}

func TestServiceErrorDetail(t *testing.T) {
	c, m := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"detail":"Ticket TKT-9 not found"}`)
	}), nil)

	err := c.ResolveTicket(context.Background(), "TKT-9", "done")
	require.Error(t, err)
	assert.ErrorIs(t, err, client.ErrNotFound)
	assert.NotErrorIs(t, err, client.ErrUnauthorized)
	assert.Contains(t, err.Error(), "Ticket TKT-9 not found")
	assert.True(t, client.IsTransient(err))

	snap := m.Snapshot()
	require.Len(t, snap.Operations, 1)
	assert.Equal(t, metrics.OpTicketsResolve, snap.Operations[0].Name)
	assert.Equal(t, int64(1), snap.Operations[0].Failures)
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := client.New(client.Options{BaseURL: url, Timeout: time.Second})
	_, err := c.Chat(context.Background(), "hello", "", "")
	require.Error(t, err)

	var te *client.TransportError
	assert.True(t, errors.As(err, &te), "unreachable backend is a transport error")
	assert.True(t, client.IsTransient(err))
}

func TestResolveAndDeleteRequests(t *testing.T) {
	var resolved models.ResolveRequest
	var deletedPath string
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/tickets/resolve":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&resolved))
			io.WriteString(w, `{"message":"Ticket resolved successfully"}`)
		case r.Method == http.MethodDelete:
			deletedPath = r.URL.EscapedPath()
			io.WriteString(w, `{"success":true}`)
		default:
			http.NotFound(w, r)
		}
	}), nil)

	require.NoError(t, c.ResolveTicket(context.Background(), "T1", "fixed"))
	assert.Equal(t, models.ResolveRequest{TicketID: "T1", AdminRemarks: "fixed"}, resolved)

	require.NoError(t, c.DeleteTicket(context.Background(), "T 1/x"))
	assert.Equal(t, "/tickets/T%201%2Fx", deletedPath)
}

func TestListTicketsNullBody(t *testing.T) {
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `null`)
	}), nil)

	tickets, err := c.ListTickets(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, tickets)
	assert.Len(t, tickets, 0)
}

func TestActivityLimitQuery(t *testing.T) {
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		io.WriteString(w, `[{"action":"New ticket received: #TKT-1","type":"info","timestamp":"2026-01-01T10:00:00Z","entity":"ticket","entityId":"TKT-1"}]`)
	}), nil)

	items, err := c.Activity(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.ActivityInfo, items[0].Type)
	assert.Equal(t, "TKT-1", items[0].EntityID)
}

func TestUploadDocument(t *testing.T) {
	var gotName, gotType, gotBody string
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		b, _ := io.ReadAll(f)
		gotName, gotType, gotBody = hdr.Filename, hdr.Header.Get("Content-Type"), string(b)
		io.WriteString(w, `{"doc_id":"d1","name":"guide.pdf","size":"0.01 MB","upload_date":"2026-01-01T10:00:00Z","message":"Document uploaded and indexing started","success":true}`)
	}), nil)

	var last, total int64
	res, err := c.UploadDocument(context.Background(), "guide.pdf", "application/pdf",
		strings.NewReader("%PDF-1.4 body"), func(sent, tot int64) { last, total = sent, tot })
	require.NoError(t, err)

	assert.Equal(t, "guide.pdf", gotName)
	assert.Equal(t, "application/pdf", gotType)
	assert.Equal(t, "%PDF-1.4 body", gotBody)
	assert.True(t, res.Success)
	assert.Equal(t, "d1", res.DocID)
	assert.Equal(t, total, last, "progress reaches the total")
	assert.Greater(t, total, int64(0))
}
