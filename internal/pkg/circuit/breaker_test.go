package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreakerOpensAfterThreshold(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := New("feed", 2, time.Minute)
	b.nowFn = func() time.Time { return now }
	var transitions []State
	b.OnStateChange(func(_ string, _, to State) { transitions = append(transitions, to) })

	assert.True(t, b.Allow())
	b.RecordFailure()
	assert.Equal(t, StateClosed, b.State())
	b.RecordFailure()
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())

	now = now.Add(time.Minute)
	assert.True(t, b.Allow(), "probe after cooldown")
	assert.False(t, b.Allow(), "only one probe while half-open")
	b.RecordSuccess()
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, []State{StateOpen, StateHalfOpen, StateClosed}, transitions)
}

func TestBreakerReopensOnFailedProbe(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := New("feed", 1, time.Second)
	b.nowFn = func() time.Time { return now }
	b.OnStateChange(func(string, State, State) {})

	b.RecordFailure()
	now = now.Add(2 * time.Second)
	assert.True(t, b.Allow())
	b.RecordFailure()
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())
}
