package position

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"signalbot/internal/ledger"
	"signalbot/internal/store/sqlite"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePrices struct {
	mu     sync.Mutex
	prices map[string]float64
	fail   map[string]bool
}

func (f *fakePrices) FetchPrice(ctx context.Context, symbol string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[symbol] {
		return 0, errors.New("feed down")
	}
	return f.prices[symbol], nil
}

func newFixture(t *testing.T, balance float64) (*Store, *ledger.Ledger, *sqlite.SqliteStore) {
	t.Helper()
	db, err := sqlite.NewSqliteStore(filepath.Join(t.TempDir(), "pos.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	l, err := ledger.New(context.Background(), db.Account(), ledger.Config{
		InitialBalance: balance, Fraction: 0.05, MinTrade: 10, Basis: ledger.BasisBalance,
	})
	require.NoError(t, err)
	return NewStore(l, db, Options{MaxParallel: 2}), l, db
}

func openAt100(t *testing.T, s *Store, symbol string) Position {
	t.Helper()
	pos, err := s.Open(context.Background(), OpenRequest{
		Symbol: symbol, EntryPrice: 100, TargetPct: 10, StopLossPct: 5, At: time.Now(),
	})
	require.NoError(t, err)
	return pos
}

func TestEvaluateTransitions(t *testing.T) {
	now := time.Now()
	p := Position{EntryPrice: 100, TargetPct: 10, StopLossPct: 5, State: StateOpen, OpenedAt: now.Add(-2 * time.Hour)}

	assert.Equal(t, StateClosedTarget, Evaluate(p, 110, now, 0))
	assert.Equal(t, StateClosedTarget, Evaluate(p, 111, now, 0))
	assert.Equal(t, StateClosedStopLoss, Evaluate(p, 95, now, 0))
	assert.Equal(t, StateClosedStopLoss, Evaluate(p, 94, now, 0))
	assert.Equal(t, StateOpen, Evaluate(p, 104, now, 0))
	assert.Equal(t, StateClosedTimeout, Evaluate(p, 104, now, time.Hour))
	assert.Equal(t, StateOpen, Evaluate(p, 104, now, 3*time.Hour))

	cases := []struct {
		entry, price float64
		want         State
	}{
		{3, 3.3, StateClosedTarget},
		{3, 3.29, StateOpen},
		{3, 2.85, StateClosedStopLoss},
		{3, 2.86, StateOpen},
		{0.7, 0.665, StateClosedStopLoss},
		{0.7, 0.77, StateClosedTarget},
	}
	for _, tc := range cases {
		q := Position{EntryPrice: tc.entry, TargetPct: 10, StopLossPct: 5, State: StateOpen}
		assert.Equal(t, tc.want, Evaluate(q, tc.price, now, 0), "entry=%v price=%v", tc.entry, tc.price)
	}
	assert.InDelta(t, -5.0, Position{EntryPrice: 3}.ChangePct(2.85), 1e-12)

	closed := p
	closed.State = StateClosedTarget
	assert.Equal(t, StateClosedTarget, Evaluate(closed, 50, now, 0))
}

func TestOpenSizesFromLedger(t *testing.T) {
	s, l, db := newFixture(t, 1000)
	pos := openAt100(t, s, "BTC/USDT")

	assert.Equal(t, 50.0, pos.InvestedAmount)
	assert.InDelta(t, 0.5, pos.Quantity, 1e-12)
	assert.Equal(t, StateOpen, pos.State)
	assert.True(t, l.Balance().Equal(decimal.NewFromInt(950)))
	assert.True(t, s.IsOpen("BTC/USDT"))

	rows, err := db.Positions().ListOpen(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, pos.ID, rows[0].ID)
}

func TestOpenRejectsDuplicateAndInvalid(t *testing.T) {
	s, l, _ := newFixture(t, 1000)
	openAt100(t, s, "BTC/USDT")

	_, err := s.Open(context.Background(), OpenRequest{Symbol: "BTC/USDT", EntryPrice: 100, TargetPct: 10, StopLossPct: 5})
	assert.ErrorIs(t, err, ErrAlreadyOpen)

	_, err = s.Open(context.Background(), OpenRequest{Symbol: "ETH/USDT", EntryPrice: 0, TargetPct: 10, StopLossPct: 5})
	assert.ErrorIs(t, err, ErrInvalidPosition)
	assert.True(t, l.Balance().Equal(decimal.NewFromInt(950)))
}

func TestOpenBelowMinimumCreatesNothing(t *testing.T) {
	s, l, _ := newFixture(t, 100)
	_, err := s.Open(context.Background(), OpenRequest{Symbol: "BTC/USDT", EntryPrice: 100, TargetPct: 10, StopLossPct: 5})
	assert.ErrorIs(t, err, ledger.ErrBelowMinimum)
	assert.False(t, s.IsOpen("BTC/USDT"))
	assert.True(t, l.Balance().Equal(decimal.NewFromInt(100)))
}

func TestMonitorClosesAtTarget(t *testing.T) {
	s, l, db := newFixture(t, 1000)
	openAt100(t, s, "BTC/USDT")

	report, err := s.Monitor(context.Background(), &fakePrices{prices: map[string]float64{"BTC/USDT": 111}})
	require.NoError(t, err)
	require.Len(t, report.Closed, 1)
	trade := report.Closed[0]
	assert.Equal(t, StateClosedTarget, trade.State)
	assert.Equal(t, "target", trade.ClosedBy)
	assert.InDelta(t, 55.5, trade.FinalValue, 1e-9)
	assert.InDelta(t, 5.5, trade.PnL, 1e-9)
	assert.Equal(t, 11.0, trade.PnLPct)
	assert.True(t, l.Balance().Equal(decimal.NewFromFloat(1005.5)))
	assert.False(t, s.IsOpen("BTC/USDT"))

	trades, err := db.Trades().ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	open, err := db.Positions().ListOpen(context.Background())
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestMonitorClosesAtStopLoss(t *testing.T) {
	s, l, _ := newFixture(t, 1000)
	openAt100(t, s, "ETH/USDT")

	report, err := s.Monitor(context.Background(), &fakePrices{prices: map[string]float64{"ETH/USDT": 94}})
	require.NoError(t, err)
	require.Len(t, report.Closed, 1)
	assert.Equal(t, StateClosedStopLoss, report.Closed[0].State)
	assert.True(t, l.Balance().Equal(decimal.NewFromInt(997)))
}

func TestMonitorPriceFailureKeepsOpen(t *testing.T) {
	s, l, _ := newFixture(t, 1000)
	openAt100(t, s, "SOL/USDT")

	report, err := s.Monitor(context.Background(), &fakePrices{fail: map[string]bool{"SOL/USDT": true}})
	require.NoError(t, err)
	assert.Empty(t, report.Closed)
	assert.Equal(t, 1, report.Errors)
	assert.True(t, s.IsOpen("SOL/USDT"))
	assert.True(t, l.Balance().Equal(decimal.NewFromInt(950)))
}

func TestCloseCreditsOnce(t *testing.T) {
	s, l, _ := newFixture(t, 1000)
	pos := openAt100(t, s, "BTC/USDT")

	_, closed, err := s.Close(context.Background(), pos.ID, pos.Symbol, 111, StateClosedTarget)
	require.NoError(t, err)
	assert.True(t, closed)
	_, closed, err = s.Close(context.Background(), pos.ID, pos.Symbol, 111, StateClosedTarget)
	require.NoError(t, err)
	assert.False(t, closed)
	assert.True(t, l.Balance().Equal(decimal.NewFromFloat(1005.5)))

	report, err := s.Monitor(context.Background(), &fakePrices{prices: map[string]float64{"BTC/USDT": 200}})
	require.NoError(t, err)
	assert.Zero(t, report.Checked)
}

func TestRestoreLoadsOpenPositions(t *testing.T) {
	s, l, db := newFixture(t, 1000)
	openAt100(t, s, "BTC/USDT")

	restored := NewStore(l, db, Options{})
	n, err := restored.Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, restored.IsOpen("BTC/USDT"))
}
