package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"signalbot/internal/market"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopRunsOnManualTicks(t *testing.T) {
	ticker := NewManualTicker()
	var mu sync.Mutex
	var seen []time.Time
	done := make(chan struct{}, 4)
	loop := NewLoop("test", ticker, func(_ context.Context, at time.Time) {
		mu.Lock()
		seen = append(seen, at)
		mu.Unlock()
		done <- struct{}{}
	})

	errCh := make(chan error, 1)
	go func() { errCh <- loop.Run(context.Background()) }()

	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	ticker.Tick(t0)
	<-done
	ticker.Tick(t0.Add(time.Hour))
	<-done
	ticker.Stop()

	require.NoError(t, <-errCh)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []time.Time{t0, t0.Add(time.Hour)}, seen)
}

func TestLoopStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	loop := NewLoop("cancel", NewManualTicker(), func(context.Context, time.Time) {})
	cancel()
	assert.NoError(t, loop.Run(ctx))
}

func TestLoopRunImmediatelyAndSurvivesPanic(t *testing.T) {
	calls := 0
	ticker := NewManualTicker()
	loop := NewLoop("panic", ticker, func(context.Context, time.Time) {
		calls++
		panic("boom")
	})
	loop.RunImmediately = true
	ticker.Stop()
	assert.NoError(t, loop.Run(context.Background()))
	assert.Equal(t, 1, calls)
}

func TestTickersKeepOnePendingTick(t *testing.T) {
	ch := make(chan time.Time, 1)
	t0 := time.Date(2024, 5, 1, 10, 0, 10, 0, time.UTC)

	assert.True(t, offer(ch, t0))
	assert.False(t, offer(ch, t0.Add(time.Hour)))
	assert.Equal(t, t0, <-ch)
	assert.True(t, offer(ch, t0.Add(2*time.Hour)))

	it := NewIntervalTicker(time.Hour)
	defer it.Stop()
	assert.Equal(t, 1, cap(it.C()))
	at := NewAlignedTicker(time.Hour, 10*time.Second)
	defer at.Stop()
	assert.Equal(t, 1, cap(at.C()))
}

func TestNextTimes(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 5, 0, time.UTC)
	nextClose, wakeAt, wait := nextTimes(now, time.Hour, 10*time.Second)
	assert.Equal(t, time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC), nextClose)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 10, 0, time.UTC), wakeAt)
	assert.Equal(t, 5*time.Second, wait)

	now = time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
	_, wakeAt, _ = nextTimes(now, time.Hour, 10*time.Second)
	assert.Equal(t, time.Date(2024, 5, 1, 11, 0, 10, 0, time.UTC), wakeAt)
}

func TestParseIntervalDuration(t *testing.T) {
	cases := map[string]time.Duration{"30s": 30 * time.Second, "15m": 15 * time.Minute, "1h": time.Hour, "1d": 24 * time.Hour, "1w": 7 * 24 * time.Hour}
	for raw, want := range cases {
		got, ok := ParseIntervalDuration(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}
	for _, raw := range []string{"", "h", "0h", "5x", "-1m"} {
		_, ok := ParseIntervalDuration(raw)
		assert.False(t, ok, raw)
	}
}

func TestDropUnclosedKline(t *testing.T) {
	open := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	klines := []market.Candle{{OpenTime: open.Add(-time.Hour).UnixMilli()}, {OpenTime: open.UnixMilli()}}

	got := dropUnclosedKlineAt(klines, time.Hour, open.Add(30*time.Minute), DefaultKlineGrace)
	assert.Len(t, got, 1)

	got = dropUnclosedKlineAt(klines, time.Hour, open.Add(time.Hour+DefaultKlineGrace), DefaultKlineGrace)
	assert.Len(t, got, 2)
}
