// Package notify detects newly created tickets by polling the ticket
// collection and comparing the newest ticket against the last one seen.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/raphaelgruber/supportdesk/internal/metrics"
	"github.com/raphaelgruber/supportdesk/internal/models"
	"github.com/raphaelgruber/supportdesk/internal/toast"
)

// DefaultInterval is the time between polls.
const DefaultInterval = 10 * time.Second

// RecentLimit is how many tickets the notification panel lists.
const RecentLimit = 5

// Lister fetches the ticket collection.
type Lister interface {
	ListTickets(ctx context.Context) ([]models.Ticket, error)
}

// Alert reports tickets that appeared since the previous poll.
//
// Count is approximate. It is the number of tickets sorted ahead of the
// previously newest ticket; when that ticket was deleted, every fetched
// ticket is counted. Tickets created out of order can skew it either way.
type Alert struct {
	Count   int
	Tickets []models.Ticket // newest first
	At      time.Time
}

// Message is the human-readable alert text.
func (a Alert) Message() string {
	if a.Count == 1 {
		return "1 new ticket received"
	}
	return fmt.Sprintf("%d new tickets received", a.Count)
}

// Options configures a Poller.
type Options struct {
	Interval time.Duration
	Logger   *slog.Logger
	Metrics  *metrics.Collector
	Toasts   *toast.Store
	// OnAlert is called from the polling goroutine for every alert.
	OnAlert func(Alert)
}

// Poller tracks the newest ticket it has seen. Methods are safe for
// concurrent use, but Run is the only intended caller of Poll in a
// long-running process so polls never overlap.
type Poller struct {
	lister   Lister
	interval time.Duration
	logger   *slog.Logger
	metrics  *metrics.Collector
	toasts   *toast.Store
	onAlert  func(Alert)
	now      func() time.Time

	mu         sync.Mutex
	lastSeenID string
	recent     []models.Ticket
	unread     int
}

// NewPoller creates a poller. Nothing is fetched until Baseline or Run.
func NewPoller(l Lister, opts Options) *Poller {
	p := &Poller{
		lister:   l,
		interval: opts.Interval,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		toasts:   opts.Toasts,
		onAlert:  opts.OnAlert,
		now:      time.Now,
	}
	if p.interval <= 0 {
		p.interval = DefaultInterval
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Interval returns the time between polls.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// LastSeenID returns the key of the newest ticket seen so far.
func (p *Poller) LastSeenID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastSeenID
}

// Unread returns the count carried by the latest alert not yet marked seen.
func (p *Poller) Unread() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.unread
}

// MarkSeen clears the unread indicator.
func (p *Poller) MarkSeen() {
	p.mu.Lock()
	p.unread = 0
	p.mu.Unlock()
}

// Recent returns up to n tickets of the last successful fetch, newest first.
func (p *Poller) Recent(n int) []models.Ticket {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n <= 0 || n > len(p.recent) {
		n = len(p.recent)
	}
	return slices.Clone(p.recent[:n])
}

// fetch lists and sorts tickets newest first.
func (p *Poller) fetch(ctx context.Context) ([]models.Ticket, error) {
	tickets, err := p.lister.ListTickets(ctx)
	if err != nil {
		return nil, err
	}
	tickets = slices.Clone(tickets)
	models.SortNewestFirst(tickets)
	return tickets, nil
}

// Baseline records the current newest ticket without raising an alert.
func (p *Poller) Baseline(ctx context.Context) error {
	tickets, err := p.fetch(ctx)
	if err != nil {
		p.metrics.Inc(metrics.EventPollFailure)
		return fmt.Errorf("baseline tickets: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.recent = tickets
	if len(tickets) > 0 {
		p.lastSeenID = tickets[0].Key()
	}
	p.logger.Debug("poll baseline", "tickets", len(tickets), "last_seen_id", p.lastSeenID)
	return nil
}

// Poll fetches the collection once. When the newest ticket changed, the
// tickets ahead of the previously newest one are reported as new, and the
// last seen id advances to the newest ticket either way. On error
// nothing changes. Alert is nil when there is nothing to report.
func (p *Poller) Poll(ctx context.Context) (*Alert, error) {
	p.metrics.Inc(metrics.EventPoll)

	tickets, err := p.fetch(ctx)
	if err != nil {
		p.metrics.Inc(metrics.EventPollFailure)
		return nil, fmt.Errorf("poll tickets: %w", err)
	}

	p.mu.Lock()
	p.recent = tickets
	if len(tickets) == 0 {
		p.mu.Unlock()
		return nil, nil
	}

	topID := tickets[0].Key()
	previous := p.lastSeenID
	if topID == previous {
		p.mu.Unlock()
		return nil, nil
	}

	var alert *Alert
	// Without a baseline id every ticket would count as new.
	if previous != "" {
		fresh := newerThan(tickets, previous)
		if len(fresh) > 0 {
			alert = &Alert{Count: len(fresh), Tickets: fresh, At: p.now()}
			p.unread = alert.Count
		}
	}
	p.lastSeenID = topID
	p.mu.Unlock()

	p.logger.Debug("newest ticket changed", "previous", previous, "last_seen_id", topID)
	if alert != nil {
		p.raise(*alert)
	}
	return alert, nil
}

// newerThan returns the tickets sorted ahead of the one keyed previous.
// If that ticket is gone, every ticket with a different key is returned.
func newerThan(sorted []models.Ticket, previous string) []models.Ticket {
	i := slices.IndexFunc(sorted, func(t models.Ticket) bool { return t.Key() == previous })
	if i >= 0 {
		return slices.Clone(sorted[:i])
	}
	return slices.DeleteFunc(slices.Clone(sorted), func(t models.Ticket) bool {
		return t.Key() == previous
	})
}

func (p *Poller) raise(a Alert) {
	p.metrics.Inc(metrics.EventAlert)
	p.metrics.Add(metrics.EventNewTickets, int64(a.Count))
	p.logger.Info("new tickets", "count", a.Count, "newest", a.Tickets[0].Key())
	p.toasts.Success("New Ticket Received", a.Message())
	if p.onAlert != nil {
		p.onAlert(a)
	}
}

// Run takes the baseline and then polls every interval until ctx is
// cancelled. Poll errors are logged and the loop continues. Run returns
// only after any in-flight poll has finished.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("notification poller started", "interval", p.interval)

	if err := p.Baseline(ctx); err != nil {
		p.logger.Error("error fetching initial tickets", "error", err)
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("notification poller stopped")
			return ctx.Err()
		case <-ticker.C:
			// Both cases may be ready at once.
			if ctx.Err() != nil {
				continue
			}
			if _, err := p.Poll(ctx); err != nil {
				p.logger.Error("error polling for new tickets", "error", err)
			}
		}
	}
}
