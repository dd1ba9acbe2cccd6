package position

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"signalbot/internal/logger"
	"signalbot/internal/market"
	"signalbot/internal/pkg/utils"
	"signalbot/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Ledger is the capital collaborator. Reserve sizes and debits atomically.
type Ledger interface {
	Reserve(ctx context.Context) (decimal.Decimal, error)
	Credit(ctx context.Context, amount decimal.Decimal) error
}

// Persistence is the slice of store.Store used for the active set mirror.
type Persistence interface {
	Positions() store.PositionRepository
	Begin(ctx context.Context) (store.UnitOfWork, error)
}

type Options struct {
	MaxHolding  time.Duration
	MaxParallel int
}

// OpenRequest carries everything needed to open a position except its size,
// which the ledger decides.
type OpenRequest struct {
	Symbol      string
	SignalID    string
	EntryPrice  float64
	TargetPct   float64
	StopLossPct float64
	At          time.Time
}

// MonitorReport summarises one monitoring pass.
type MonitorReport struct {
	Checked int
	Closed  []Trade
	Errors  int
}

// Store owns the active position set. The map is the source of truth while the
// process runs; the repository mirrors it for restarts.
type Store struct {
	mu     sync.Mutex
	active map[string]Position
	ledger Ledger
	db     Persistence
	opts   Options
	nowFn  func() time.Time
}

func NewStore(ledger Ledger, db Persistence, opts Options) *Store {
	if opts.MaxParallel <= 0 {
		opts.MaxParallel = 4
	}
	return &Store{
		active: make(map[string]Position),
		ledger: ledger,
		db:     db,
		opts:   opts,
		nowFn:  time.Now,
	}
}

// Restore loads OPEN positions persisted by a previous run.
func (s *Store) Restore(ctx context.Context) (int, error) {
	if s.db == nil {
		return 0, nil
	}
	rows, err := s.db.Positions().ListOpen(ctx)
	if err != nil {
		return 0, fmt.Errorf("list open positions: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range rows {
		s.active[row.Symbol] = fromModel(row)
	}
	return len(rows), nil
}

func (s *Store) IsOpen(symbol string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.active[symbol]
	return ok
}

// List returns the open positions ordered by open time.
func (s *Store) List() []Position {
	s.mu.Lock()
	out := make([]Position, 0, len(s.active))
	for _, p := range s.active {
		out = append(out, p)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].OpenedAt.Equal(out[j].OpenedAt) {
			return out[i].Symbol < out[j].Symbol
		}
		return out[i].OpenedAt.Before(out[j].OpenedAt)
	})
	return out
}

// Open sizes through the ledger and creates an OPEN position. The debit
// happens before the position exists; a failed persist refunds it.
func (s *Store) Open(ctx context.Context, req OpenRequest) (Position, error) {
	if req.Symbol == "" || req.EntryPrice <= 0 || !utils.IsFinite(req.EntryPrice) {
		return Position{}, fmt.Errorf("%w: entry price %v", ErrInvalidPosition, req.EntryPrice)
	}
	if req.TargetPct <= 0 || req.StopLossPct <= 0 {
		return Position{}, fmt.Errorf("%w: target %.2f stop %.2f", ErrInvalidPosition, req.TargetPct, req.StopLossPct)
	}
	at := req.At
	if at.IsZero() {
		at = s.nowFn()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.active[req.Symbol]; ok {
		return Position{}, fmt.Errorf("%s: %w", req.Symbol, ErrAlreadyOpen)
	}
	amount, err := s.ledger.Reserve(ctx)
	if err != nil {
		return Position{}, err
	}
	invested, _ := amount.Float64()
	qty, _ := amount.Div(decimal.NewFromFloat(req.EntryPrice)).Float64()
	if qty <= 0 {
		s.refund(ctx, req.Symbol, amount)
		return Position{}, fmt.Errorf("%w: quantity %v", ErrInvalidPosition, qty)
	}
	pos := Position{
		ID:             uuid.NewString(),
		Symbol:         req.Symbol,
		SignalID:       req.SignalID,
		Quantity:       qty,
		InvestedAmount: invested,
		EntryPrice:     req.EntryPrice,
		TargetPct:      req.TargetPct,
		StopLossPct:    req.StopLossPct,
		State:          StateOpen,
		OpenedAt:       at.UTC(),
	}
	if s.db != nil {
		if err := s.db.Positions().Save(ctx, toModel(pos)); err != nil {
			s.refund(ctx, req.Symbol, amount)
			return Position{}, fmt.Errorf("persist position %s: %w", req.Symbol, err)
		}
	}
	s.active[req.Symbol] = pos
	logger.With("symbol", pos.Symbol, "invested", utils.FormatMoney(invested), "entry", pos.EntryPrice, "target_pct", pos.TargetPct).
		Info("position opened")
	return pos, nil
}

func (s *Store) refund(ctx context.Context, symbol string, amount decimal.Decimal) {
	if err := s.ledger.Credit(ctx, amount); err != nil {
		logger.Errorf("position %s: refund %s failed: %v", symbol, amount.StringFixed(2), err)
	}
}

// Monitor re-evaluates every open position against feed prices. A failed price
// fetch leaves the position OPEN for the next pass.
func (s *Store) Monitor(ctx context.Context, feed market.PriceFeed) (MonitorReport, error) {
	positions := s.List()
	var (
		mu     sync.Mutex
		report = MonitorReport{Checked: len(positions)}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.MaxParallel)
	for _, p := range positions {
		p := p
		g.Go(func() error {
			price, err := feed.FetchPrice(gctx, p.Symbol)
			if err != nil || price <= 0 || !utils.IsFinite(price) {
				logger.Warnf("position %s: price unavailable, keep open: %v", p.Symbol, err)
				mu.Lock()
				report.Errors++
				mu.Unlock()
				return nil
			}
			next := Evaluate(p, price, s.nowFn(), s.opts.MaxHolding)
			if next == StateOpen {
				return nil
			}
			trade, closed, err := s.Close(gctx, p.ID, p.Symbol, price, next)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Errorf("position %s: close failed: %v", p.Symbol, err)
				report.Errors++
				return nil
			}
			if closed {
				report.Closed = append(report.Closed, trade)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}
	sort.Slice(report.Closed, func(i, j int) bool { return report.Closed[i].Symbol < report.Closed[j].Symbol })
	return report, nil
}

// Close moves the position identified by id to a terminal state at price.
// It reports false when the position was already closed, so a position is
// credited at most once.
func (s *Store) Close(ctx context.Context, id, symbol string, price float64, state State) (Trade, bool, error) {
	if !Terminal(state) {
		return Trade{}, false, fmt.Errorf("%w: %s is not a terminal state", ErrInvalidPosition, state)
	}
	s.mu.Lock()
	p, ok := s.active[symbol]
	if !ok || p.ID != id {
		s.mu.Unlock()
		return Trade{}, false, nil
	}
	delete(s.active, symbol)
	s.mu.Unlock()

	now := s.nowFn().UTC()
	final := decimal.NewFromFloat(price).Mul(decimal.NewFromFloat(p.Quantity))
	finalValue, _ := final.Float64()
	pnl, _ := final.Sub(decimal.NewFromFloat(p.InvestedAmount)).Float64()
	pnlPct := 0.0
	if p.InvestedAmount > 0 {
		pnlPct = utils.Round(pnl/p.InvestedAmount*100, 2)
	}
	trade := Trade{
		ID:             uuid.NewString(),
		PositionID:     p.ID,
		Symbol:         p.Symbol,
		EntryPrice:     p.EntryPrice,
		ExitPrice:      price,
		Quantity:       p.Quantity,
		InvestedAmount: p.InvestedAmount,
		FinalValue:     finalValue,
		PnL:            pnl,
		PnLPct:         pnlPct,
		ClosedBy:       ClosedBy(state),
		State:          state,
		OpenedAt:       p.OpenedAt,
		ClosedAt:       now,
	}

	if err := s.persistClose(ctx, trade); err != nil {
		s.mu.Lock()
		if _, taken := s.active[symbol]; !taken {
			s.active[symbol] = p
		}
		s.mu.Unlock()
		return Trade{}, false, err
	}
	if err := s.ledger.Credit(ctx, final); err != nil {
		logger.Errorf("position %s: credit %s failed: %v", p.Symbol, final.StringFixed(2), err)
	}
	logger.With("symbol", p.Symbol, "closed_by", trade.ClosedBy, "exit", price, "pnl", utils.FormatMoney(pnl)).
		Info("position closed")
	return trade, true, nil
}

func (s *Store) persistClose(ctx context.Context, trade Trade) error {
	if s.db == nil {
		return nil
	}
	uow, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	if err := uow.Positions().Delete(ctx, trade.PositionID); err != nil {
		_ = uow.Rollback()
		return err
	}
	if err := uow.Trades().Append(ctx, tradeToModel(trade)); err != nil {
		_ = uow.Rollback()
		return err
	}
	return uow.Commit()
}
