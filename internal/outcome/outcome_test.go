package outcome

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"signalbot/internal/market"
	"signalbot/internal/store/model"
	"signalbot/internal/store/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFeed struct {
	prices map[string]float64
	calls  int
}

func (f *stubFeed) FetchPrice(ctx context.Context, symbol string) (float64, error) {
	f.calls++
	p, ok := f.prices[symbol]
	if !ok {
		return 0, errors.New("unknown symbol")
	}
	return p, nil
}

func rangeSeries(t *testing.T, n int, low, spread float64) market.Series {
	t.Helper()
	candles := make([]market.Candle, n)
	for i := range candles {
		candles[i] = market.Candle{
			OpenTime: int64(i+1) * 3600_000,
			Open:     low, Close: low + spread/2,
			High: low + spread, Low: low, Volume: 1,
		}
	}
	s, err := market.NewSeries("BTC/USDT", "1h", candles)
	require.NoError(t, err)
	return s
}

func TestDeriveVolatilityTarget(t *testing.T) {
	d := TargetDeriver{Mode: TargetVolatility, MinPct: 2.5, Factor: 3}

	// mean range 2 on a low of 100: 2% * 3 = 6%
	assert.Equal(t, 6.0, d.Derive(rangeSeries(t, 40, 100, 2)))
	// calm market floors at the minimum
	assert.Equal(t, 2.5, d.Derive(rangeSeries(t, 40, 100, 0.1)))
	// too short for the window
	assert.Equal(t, 2.5, d.Derive(rangeSeries(t, 5, 100, 5)))
}

func TestDeriveFixedTarget(t *testing.T) {
	d := TargetDeriver{Mode: TargetFixed, FixedPct: 10, MinPct: 2.5, Factor: 3}
	assert.Equal(t, 10.0, d.Derive(rangeSeries(t, 40, 100, 5)))
}

func TestRealizedPct(t *testing.T) {
	assert.Equal(t, 3.2, RealizedPct(100, 103.2))
	assert.Equal(t, -6.0, RealizedPct(100, 94))
	assert.Equal(t, 0.0, RealizedPct(0, 94))
}

func newSignalStore(t *testing.T) *sqlite.SqliteStore {
	t.Helper()
	db, err := sqlite.NewSqliteStore(filepath.Join(t.TempDir(), "signals.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func addSignal(t *testing.T, db *sqlite.SqliteStore, symbol string, ts int64, entry *float64) string {
	t.Helper()
	id, err := db.Signals().Add(context.Background(), &model.SignalModel{Symbol: symbol, TimestampUnix: ts, EntryPrice: entry})
	require.NoError(t, err)
	return id
}

func ptr(v float64) *float64 { return &v }

func TestSweepResolvesPendingSignals(t *testing.T) {
	db := newSignalStore(t)
	btc := addSignal(t, db, "BTC/USDT", 1, ptr(100))
	addSignal(t, db, "ETH/USDT", 2, nil)
	addSignal(t, db, "DOGE/USDT", 3, ptr(0.1))

	feed := &stubFeed{prices: map[string]float64{"BTC/USDT": 103.2}}
	r := NewResolver(db.Signals(), feed, 24*time.Hour, 2)

	sum, err := r.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Scanned)
	assert.Equal(t, 1, sum.Updated)
	assert.Equal(t, 1, sum.Ignored)
	assert.Equal(t, 1, sum.Errors)

	got, err := db.Signals().Get(context.Background(), btc)
	require.NoError(t, err)
	require.NotNil(t, got.Result)
	assert.Equal(t, 3.2, *got.Result)
}

func TestSweepSkipsSymbolAfterPriceFailure(t *testing.T) {
	db := newSignalStore(t)
	for i := int64(1); i <= 4; i++ {
		addSignal(t, db, "DOGE/USDT", i, ptr(0.1))
	}
	addSignal(t, db, "BTC/USDT", 5, ptr(100))

	feed := &stubFeed{prices: map[string]float64{"BTC/USDT": 101}}
	r := NewResolver(db.Signals(), feed, 24*time.Hour, 2)

	sum, err := r.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, sum.Scanned)
	assert.Equal(t, 4, sum.Errors)
	assert.Equal(t, 1, sum.Updated)
	assert.Equal(t, 2, feed.calls)
}

func TestSweepTwiceWritesOnce(t *testing.T) {
	db := newSignalStore(t)
	id := addSignal(t, db, "BTC/USDT", 1, ptr(100))
	feed := &stubFeed{prices: map[string]float64{"BTC/USDT": 103.2}}
	r := NewResolver(db.Signals(), feed, 24*time.Hour, 10)
	r.nowFn = func() time.Time { return time.Now().Add(-time.Hour) }

	_, err := r.Sweep(context.Background())
	require.NoError(t, err)

	feed.prices["BTC/USDT"] = 150
	r.nowFn = time.Now
	sum, err := r.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sum.Updated)

	got, err := db.Signals().Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 3.2, *got.Result)
}
