package alert

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"signalbot/internal/signal"
	"signalbot/internal/store"
	"signalbot/internal/store/sqlite"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cand(symbol string, macd, ema, vol, bb, rsi float64) signal.Candidate {
	return signal.Candidate{
		Symbol: symbol,
		Features: signal.FeatureVector{
			RSI: rsi, EMADiff: ema, MACDDiff: macd, VolumeRelative: vol, BBPosition: bb,
		},
		Score: 1,
		Price: 10,
		At:    time.Unix(1_700_000_000, 0),
	}
}

func symbols(cs []signal.Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Symbol
	}
	return out
}

func TestRankOrdering(t *testing.T) {
	cands := []signal.Candidate{
		cand("A", 0.1, 0.01, 1, 0.5, 50),
		cand("B", -0.5, 0.01, 1, 0.5, 50),
		cand("C", 0.1, 0.02, 1, 0.5, 50),
		cand("D", 0.1, 0.01, 2, 0.5, 50),
		cand("E", 0.1, 0.01, 1, -0.2, 50),
		cand("F", 0.1, 0.01, 1, 0.5, 20),
	}
	got := Rank(cands, nil, 10)
	assert.Equal(t, []string{"B", "C", "D", "E", "F", "A"}, symbols(got))
}

func TestRankCapsAndSkipsOpen(t *testing.T) {
	cands := []signal.Candidate{
		cand("A", 0.9, 0, 1, 0.5, 50),
		cand("B", 0.8, 0, 1, 0.5, 50),
		cand("C", 0.7, 0, 1, 0.5, 50),
		cand("D", 0.6, 0, 1, 0.5, 50),
	}
	open := func(s string) bool { return s == "A" }
	got := Rank(cands, open, 2)
	assert.Equal(t, []string{"B", "C"}, symbols(got))
	assert.Empty(t, Rank(cands, nil, 0))
}

func TestMemoryWindowEvicts(t *testing.T) {
	ctx := context.Background()
	w := NewMemoryWindow(time.Hour)
	t0 := time.Unix(1_700_000_000, 0)
	require.NoError(t, w.Record(ctx, "A", t0))
	require.NoError(t, w.Record(ctx, "B", t0.Add(30*time.Minute)))

	n, _ := w.Count(ctx, t0.Add(59*time.Minute))
	assert.Equal(t, 2, n)
	n, _ = w.Count(ctx, t0.Add(time.Hour))
	assert.Equal(t, 1, n)
	n, _ = w.Count(ctx, t0.Add(2*time.Hour))
	assert.Equal(t, 0, n)
}

func newSignals(t *testing.T) store.SignalRepository {
	t.Helper()
	db, err := sqlite.NewSqliteStore(filepath.Join(t.TempDir(), "alerts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db.Signals()
}

func TestSelectPersistsPendingSignals(t *testing.T) {
	ctx := context.Background()
	repo := newSignals(t)
	r := NewRanker(2, NewMemoryWindow(time.Hour), repo)
	now := time.Unix(1_700_000_000, 0)

	sigs, err := r.Select(ctx, []signal.Candidate{
		cand("A/USDT", 0.9, 0, 1, 0.5, 50),
		cand("B/USDT", 0.8, 0, 1, 0.5, 50),
		cand("C/USDT", 0.7, 0, 1, 0.5, 50),
	}, nil, now)
	require.NoError(t, err)
	require.Len(t, sigs, 2)
	for _, s := range sigs {
		assert.NotEmpty(t, s.ID)
		stored, err := repo.Get(ctx, s.ID)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Nil(t, stored.Result)
		require.NotNil(t, stored.EntryPrice)
		assert.Equal(t, 10.0, *stored.EntryPrice)
	}
}

func TestSelectThrottlesAcrossCycles(t *testing.T) {
	ctx := context.Background()
	r := NewRanker(3, NewMemoryWindow(time.Hour), nil)
	now := time.Unix(1_700_000_000, 0)
	batch := []signal.Candidate{
		cand("A", 0.9, 0, 1, 0.5, 50),
		cand("B", 0.8, 0, 1, 0.5, 50),
	}

	first, err := r.Select(ctx, batch, nil, now)
	require.NoError(t, err)
	assert.Len(t, first, 2)

	second, err := r.Select(ctx, []signal.Candidate{cand("C", 0.9, 0, 1, 0.5, 50), cand("D", 0.8, 0, 1, 0.5, 50)}, nil, now.Add(10*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, []string{"C"}, sigSymbols(second))

	third, err := r.Select(ctx, batch, nil, now.Add(20*time.Minute))
	require.NoError(t, err)
	assert.Empty(t, third)

	later, err := r.Select(ctx, batch, nil, now.Add(61*time.Minute))
	require.NoError(t, err)
	assert.Len(t, later, 2)
}

func TestSelectDropsMissingEntryPrice(t *testing.T) {
	r := NewRanker(5, nil, nil)
	c := cand("A", 0.9, 0, 1, 0.5, 50)
	c.Price = 0
	sigs, err := r.Select(context.Background(), []signal.Candidate{c}, nil, time.Now())
	require.NoError(t, err)
	assert.Empty(t, sigs)
}

func sigSymbols(sigs []signal.Signal) []string {
	out := make([]string, len(sigs))
	for i, s := range sigs {
		out[i] = s.Symbol
	}
	return out
}

func TestRedisWindow(t *testing.T) {
	addr := os.Getenv("SIGNALBOT_TEST_REDIS")
	if addr == "" {
		t.Skip("SIGNALBOT_TEST_REDIS not set")
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	key := "signalbot:test:" + t.Name()
	t.Cleanup(func() {
		client.Del(ctx, key)
		_ = client.Close()
	})
	w := NewRedisWindowFromClient(client, key, time.Hour)
	t0 := time.Unix(1_700_000_000, 0)
	require.NoError(t, w.Record(ctx, "A", t0))
	require.NoError(t, w.Record(ctx, "A", t0.Add(30*time.Minute)))

	n, err := w.Count(ctx, t0.Add(59*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = w.Count(ctx, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
