// Package toast keeps short-lived notifications for the admin views.
package toast

import (
	"log/slog"
	"slices"
	"sync"
	"time"
)

// Variant controls how a toast is highlighted.
type Variant string

const (
	VariantDefault     Variant = "default"
	VariantSuccess     Variant = "success"
	VariantDestructive Variant = "destructive"
)

// DefaultTTL is how long a toast stays visible.
const DefaultTTL = 5 * time.Second

// Toast is a single notification.
type Toast struct {
	ID          int
	Title       string
	Description string
	Variant     Variant
	CreatedAt   time.Time
	TTL         time.Duration
}

// Expired reports whether the toast should no longer be shown at now.
func (t Toast) Expired(now time.Time) bool {
	return !now.Before(t.CreatedAt.Add(t.TTL))
}

// Store is the toast container. It is constructed once per process and
// handed to the components that raise notifications.
type Store struct {
	mu     sync.Mutex
	nextID int
	toasts []Toast

	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithTTL overrides DefaultTTL.
func WithTTL(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger destructive toasts are traced to.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		ttl:    DefaultTTL,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Push adds a toast and returns its id. Safe to call on a nil *Store.
func (s *Store) Push(t Toast) int {
	if s == nil {
		return 0
	}
	if t.Variant == "" {
		t.Variant = VariantDefault
	}
	if t.TTL <= 0 {
		t.TTL = s.ttl
	}

	s.mu.Lock()
	s.nextID++
	t.ID = s.nextID
	t.CreatedAt = s.now()
	s.toasts = append(s.toasts, t)
	s.mu.Unlock()

	if t.Variant == VariantDestructive {
		s.logger.Warn("toast", "title", t.Title, "description", t.Description)
	} else {
		s.logger.Debug("toast", "title", t.Title, "description", t.Description)
	}
	return t.ID
}

// Success pushes a success toast.
func (s *Store) Success(title, description string) int {
	return s.Push(Toast{Title: title, Description: description, Variant: VariantSuccess})
}

// Error pushes a destructive toast.
func (s *Store) Error(title, description string) int {
	return s.Push(Toast{Title: title, Description: description, Variant: VariantDestructive})
}

// Remove dismisses a toast early. Unknown ids are ignored.
func (s *Store) Remove(id int) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toasts = slices.DeleteFunc(s.toasts, func(t Toast) bool { return t.ID == id })
}

// Active drops toasts that expired by now and returns the rest, oldest first.
func (s *Store) Active(now time.Time) []Toast {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toasts = slices.DeleteFunc(s.toasts, func(t Toast) bool { return t.Expired(now) })
	return slices.Clone(s.toasts)
}

// Drain returns every toast still held, expired or not, and empties the
// store. One-shot commands use it to print what happened before exiting.
func (s *Store) Drain() []Toast {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.toasts
	s.toasts = nil
	return out
}
