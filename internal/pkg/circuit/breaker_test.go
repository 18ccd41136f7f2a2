package circuit

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreakerTripsAndRecovers(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker("store", 2, 30*time.Second)
	cb.SetClock(func() time.Time { return now })

	boom := errors.New("boom")
	assert.ErrorIs(t, cb.Guard(func() error { return boom }, nil), boom)
	assert.Equal(t, StateClosed, cb.State())
	assert.ErrorIs(t, cb.Guard(func() error { return boom }, nil), boom)
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Guard(func() error { called = true; return nil }, nil)
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)

	now = now.Add(31 * time.Second)
	assert.NoError(t, cb.Guard(func() error { return nil }, nil))
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreakerIgnoresNonFailures(t *testing.T) {
	cb := NewCircuitBreaker("store", 1, time.Minute)
	notFound := errors.New("not found")
	err := cb.Guard(func() error { return notFound }, func(err error) bool { return !errors.Is(err, notFound) })
	assert.ErrorIs(t, err, notFound)
	assert.Equal(t, StateClosed, cb.State())
}

func TestHalfOpenFailureReopens(t *testing.T) {
	now := time.Now()
	cb := NewCircuitBreaker("store", 1, time.Second)
	cb.SetClock(func() time.Time { return now })
	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State())

	now = now.Add(2 * time.Second)
	assert.True(t, cb.Allow())
	assert.Equal(t, StateHalfOpen, cb.State())
	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State())
}

func TestHalfOpenAdmitsSingleProbe(t *testing.T) {
	now := time.Now()
	cb := NewCircuitBreaker("store", 1, time.Second)
	cb.SetClock(func() time.Time { return now })
	cb.RecordFailure()

	now = now.Add(2 * time.Second)
	assert.True(t, cb.Allow())
	assert.False(t, cb.Allow())
	assert.ErrorIs(t, cb.Guard(func() error { return nil }, nil), ErrOpen)
	assert.Equal(t, StateHalfOpen, cb.State())

	cb.RecordSuccess()
	assert.Equal(t, StateClosed, cb.State())
	assert.True(t, cb.Allow())
	assert.True(t, cb.Allow())
}
