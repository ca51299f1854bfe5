package devserver

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/raphaelgruber/supportdesk/internal/models"
)

// Store errors, mapped to HTTP statuses by the handlers.
var (
	ErrTicketNotFound   = errors.New("ticket not found")
	ErrDocumentNotFound = errors.New("document not found")
)

// maxActivity bounds the activity feed kept in memory.
const maxActivity = 200

type ticketRecord struct {
	models.Ticket
	UpdatedAt time.Time
}

// Store is the in-memory state behind the development backend.
type Store struct {
	mu       sync.Mutex
	now      func() time.Time
	keywords []string

	seq      int
	tickets  []*ticketRecord
	docs     []models.Document
	activity []models.Activity
	// thread id -> ticket key of the escalation that closed it
	escalated map[string]string
}

// NewStore creates an empty store. A query containing any keyword
// (case-insensitive) escalates its thread.
func NewStore(keywords []string, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	lower := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			lower = append(lower, k)
		}
	}
	return &Store{
		now:       now,
		keywords:  lower,
		escalated: make(map[string]string),
	}
}

func (s *Store) shouldEscalate(query string) bool {
	q := strings.ToLower(query)
	return slices.ContainsFunc(s.keywords, func(k string) bool { return strings.Contains(q, k) })
}

// Answer handles one chat turn. A missing thread id starts a new thread.
func (s *Store) Answer(req models.ChatRequest) models.ChatResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	threadID := ""
	if req.ThreadID != nil {
		threadID = *req.ThreadID
	}
	if threadID == "" {
		threadID = uuid.NewString()
	}

	if key, ok := s.escalated[threadID]; ok {
		return models.ChatResponse{
			Answer:    fmt.Sprintf("Your conversation is already with our support team under ticket %s.", key),
			ThreadID:  threadID,
			Escalated: true,
			TicketID:  &key,
		}
	}

	if !s.shouldEscalate(req.Query) {
		return models.ChatResponse{
			Answer:   fmt.Sprintf("Thanks for your question about %q. Here is what I found in our help center.", req.Query),
			ThreadID: threadID,
		}
	}

	s.seq++
	key := fmt.Sprintf("TKT-%d", s.seq)
	answer := fmt.Sprintf("I've escalated your request to a human agent. Your ticket ID is %s.", key)
	now := s.now()
	s.tickets = append(s.tickets, &ticketRecord{
		Ticket: models.Ticket{
			ID:         key,
			ThreadID:   threadID,
			Query:      req.Query,
			LLMAnswer:  answer,
			Status:     models.TicketOpen,
			AssignedTo: models.AssignedHuman,
			CreatedAt:  now,
		},
		UpdatedAt: now,
	})
	s.escalated[threadID] = key
	s.recordLocked(models.Activity{
		Action:   fmt.Sprintf("New ticket received: #%s", key),
		Type:     models.ActivityInfo,
		Entity:   "ticket",
		EntityID: key,
	})

	return models.ChatResponse{
		Answer:    answer,
		ThreadID:  threadID,
		Escalated: true,
		TicketID:  &key,
	}
}

// AddTicket inserts a ticket as is. Used to seed data.
func (s *Store) AddTicket(t models.Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now()
	}
	s.tickets = append(s.tickets, &ticketRecord{Ticket: t, UpdatedAt: t.CreatedAt})
}

// Tickets returns every ticket in insertion order.
func (s *Store) Tickets() []models.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Ticket, len(s.tickets))
	for i, r := range s.tickets {
		out[i] = r.Ticket
	}
	return out
}

// findLocked matches on ticket id first, then thread id.
func (s *Store) findLocked(id string) int {
	if i := slices.IndexFunc(s.tickets, func(r *ticketRecord) bool { return r.ID == id }); i >= 0 {
		return i
	}
	return slices.IndexFunc(s.tickets, func(r *ticketRecord) bool { return r.ThreadID == id })
}

// Resolve marks a ticket resolved with the admin's remark.
func (s *Store) Resolve(id, remark string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.findLocked(id)
	if i < 0 {
		return fmt.Errorf("ticket %s: %w", id, ErrTicketNotFound)
	}
	r := s.tickets[i]
	r.Status = models.TicketResolved
	r.Remark = remark
	r.UpdatedAt = s.now()
	s.recordLocked(models.Activity{
		Action:   fmt.Sprintf("Ticket #%s resolved", r.Key()),
		Type:     models.ActivitySuccess,
		Entity:   "ticket",
		EntityID: r.Key(),
	})
	return nil
}

// DeleteTicket removes a ticket permanently.
func (s *Store) DeleteTicket(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.findLocked(id)
	if i < 0 {
		return fmt.Errorf("ticket %s: %w", id, ErrTicketNotFound)
	}
	key := s.tickets[i].Key()
	s.tickets = slices.Delete(s.tickets, i, i+1)
	s.recordLocked(models.Activity{
		Action:   fmt.Sprintf("Ticket #%s deleted", key),
		Type:     models.ActivityDefault,
		Entity:   "ticket",
		EntityID: key,
	})
	return nil
}

// AddDocument stores an uploaded document's metadata.
func (s *Store) AddDocument(name string, size int64) models.Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	doc := models.Document{
		ID:         id,
		DocID:      id,
		Name:       name,
		Filename:   name,
		Status:     models.DocumentIndexed,
		Size:       size,
		UploadDate: s.now(),
		ChunkCount: int(size/1000) + 1,
	}
	s.docs = append(s.docs, doc)
	s.recordLocked(models.Activity{
		Action:   fmt.Sprintf("Document uploaded: %s", name),
		Type:     models.ActivityDefault,
		Entity:   "document",
		EntityID: id,
	})
	return doc
}

// Documents returns all documents, newest upload first.
func (s *Store) Documents() []models.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := slices.Clone(s.docs)
	slices.SortStableFunc(out, func(a, b models.Document) int { return b.UploadDate.Compare(a.UploadDate) })
	return out
}

// DeleteDocument removes a document.
func (s *Store) DeleteDocument(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.docs, func(d models.Document) bool { return d.Key() == id || d.ID == id })
	if i < 0 {
		return fmt.Errorf("document %s: %w", id, ErrDocumentNotFound)
	}
	s.docs = slices.Delete(s.docs, i, i+1)
	return nil
}

// Activity returns up to limit entries, newest first.
func (s *Store) Activity(limit int) []models.Activity {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := min(limit, len(s.activity))
	out := make([]models.Activity, 0, n)
	for i := len(s.activity) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.activity[i])
	}
	return out
}

func (s *Store) recordLocked(a models.Activity) {
	a.Timestamp = s.now()
	s.activity = append(s.activity, a)
	if len(s.activity) > maxActivity {
		s.activity = slices.Delete(s.activity, 0, len(s.activity)-maxActivity)
	}
}

// Stats computes dashboard counters with week-over-week trends.
func (s *Store) Stats() models.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	weekAgo := now.AddDate(0, 0, -7)
	twoWeeksAgo := now.AddDate(0, 0, -14)
	thisWeek := func(t time.Time) bool { return !t.Before(weekAgo) }
	lastWeek := func(t time.Time) bool { return !t.Before(twoWeeksAgo) && t.Before(weekAgo) }

	var stats models.Stats
	var total, open, resolved, docs [2]int // this week, last week
	for _, r := range s.tickets {
		stats.Total++
		switch r.Status {
		case models.TicketOpen:
			stats.Open++
		case models.TicketResolved:
			stats.Resolved++
		}

		if thisWeek(r.CreatedAt) {
			total[0]++
			if r.Status == models.TicketOpen {
				open[0]++
			}
		} else if lastWeek(r.CreatedAt) {
			total[1]++
			if r.Status == models.TicketOpen {
				open[1]++
			}
		}
		if r.Status == models.TicketResolved {
			if thisWeek(r.UpdatedAt) {
				resolved[0]++
			} else if lastWeek(r.UpdatedAt) {
				resolved[1]++
			}
		}
	}
	for _, d := range s.docs {
		stats.Documents++
		if thisWeek(d.UploadDate) {
			docs[0]++
		} else if lastWeek(d.UploadDate) {
			docs[1]++
		}
	}

	stats.Trends = &models.Trends{
		Total:     trend(total[0], total[1]),
		Open:      trend(open[0], open[1]),
		Resolved:  trend(resolved[0], resolved[1]),
		Documents: trend(docs[0], docs[1]),
	}
	return stats
}

// trend is the percentage change from last week to this week, rounded to
// one decimal. Growth from zero counts as 100%.
func trend(thisWeek, lastWeek int) models.Trend {
	var pct float64
	switch {
	case lastWeek == 0 && thisWeek > 0:
		pct = 100
	case lastWeek == 0:
		pct = 0
	default:
		pct = float64(thisWeek-lastWeek) / float64(lastWeek) * 100
	}
	return models.Trend{
		Value:      math.Abs(math.Round(pct*10) / 10),
		IsPositive: pct >= 0,
	}
}
