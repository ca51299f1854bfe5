package toast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func TestPushAssignsIDsAndDefaults(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
	s := New(WithClock(clock.Now))

	id1 := s.Success("Ticket Resolved", "Ticket T1 marked as resolved.")
	id2 := s.Push(Toast{Title: "plain"})

	assert.NotEqual(t, id1, id2)

	active := s.Active(clock.t)
	require.Len(t, active, 2)
	assert.Equal(t, VariantSuccess, active[0].Variant)
	assert.Equal(t, VariantDefault, active[1].Variant)
	assert.Equal(t, DefaultTTL, active[1].TTL)
	assert.Equal(t, clock.t, active[0].CreatedAt)
}

func TestActiveExpires(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
	s := New(WithClock(clock.Now), WithTTL(5*time.Second))

	s.Error("Error", "Failed to delete ticket")
	clock.t = clock.t.Add(3 * time.Second)
	s.Success("later", "")

	assert.Len(t, s.Active(clock.t.Add(time.Second)), 2)
	active := s.Active(clock.t.Add(2 * time.Second))
	require.Len(t, active, 1, "first toast expired after five seconds")
	assert.Equal(t, "later", active[0].Title)
}

func TestRemove(t *testing.T) {
	s := New()
	id := s.Push(Toast{Title: "a"})
	s.Push(Toast{Title: "b"})

	s.Remove(id)
	s.Remove(999)

	active := s.Active(time.Now())
	require.Len(t, active, 1)
	assert.Equal(t, "b", active[0].Title)
}

func TestDrain(t *testing.T) {
	s := New()
	s.Error("Error", "Failed to load tickets")

	drained := s.Drain()
	require.Len(t, drained, 1)
	assert.Equal(t, VariantDestructive, drained[0].Variant)
	assert.Empty(t, s.Drain())
}

func TestNilStore(t *testing.T) {
	var s *Store
	assert.Zero(t, s.Success("x", "y"))
	s.Remove(1)
	assert.Nil(t, s.Active(time.Now()))
}
