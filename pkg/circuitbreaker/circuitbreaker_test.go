package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errDown = errors.New("down")

func failing(context.Context) error { return errDown }
func ok(context.Context) error      { return nil }

func newTestBreaker(now *time.Time) *CircuitBreaker {
	cb := New(Config{Name: "llm", FailureThreshold: 2, Timeout: time.Minute})
	cb.now = func() time.Time { return *now }
	return cb
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := newTestBreaker(&now)

	assert.ErrorIs(t, cb.Execute(context.Background(), failing), errDown)
	assert.Equal(t, StateClosed, cb.State())
	assert.ErrorIs(t, cb.Execute(context.Background(), failing), errDown)
	assert.Equal(t, StateOpen, cb.State())

	assert.ErrorIs(t, cb.Execute(context.Background(), ok), ErrCircuitOpen)
}

func TestBreaker_HalfOpenProbeCloses(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := newTestBreaker(&now)
	_ = cb.Execute(context.Background(), failing)
	_ = cb.Execute(context.Background(), failing)

	now = now.Add(2 * time.Minute)
	assert.NoError(t, cb.Execute(context.Background(), ok))
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var transitions []string
	cb := newTestBreaker(&now)
	cb.config.OnStateChange = func(_ string, from, to State) {
		transitions = append(transitions, from.String()+">"+to.String())
	}
	_ = cb.Execute(context.Background(), failing)
	_ = cb.Execute(context.Background(), failing)

	now = now.Add(2 * time.Minute)
	_ = cb.Execute(context.Background(), failing)

	assert.Equal(t, StateOpen, cb.State())
	assert.Equal(t, []string{"closed>open", "open>half-open", "half-open>open"}, transitions)
}

func TestBreaker_IsFailureFilter(t *testing.T) {
	cb := New(Config{Name: "x", FailureThreshold: 1, IsFailure: func(err error) bool {
		return !errors.Is(err, context.Canceled)
	}})

	_ = cb.Execute(context.Background(), func(context.Context) error { return context.Canceled })
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreaker_Reset(t *testing.T) {
	cb := New(Config{Name: "x", FailureThreshold: 1})
	_ = cb.Execute(context.Background(), failing)
	assert.Equal(t, StateOpen, cb.State())
	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
}
