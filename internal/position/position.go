package position

import (
	"errors"
	"time"

	"signalbot/internal/store/model"

	"github.com/shopspring/decimal"
)

var (
	ErrAlreadyOpen     = errors.New("position already open for symbol")
	ErrInvalidPosition = errors.New("invalid position")
)

type State = model.PositionState

const (
	StateOpen           = model.PositionStateOpen
	StateClosedTarget   = model.PositionStateClosedTarget
	StateClosedStopLoss = model.PositionStateClosedStopLoss
	StateClosedTimeout  = model.PositionStateClosedTimeout
)

// ClosedBy returns the short label stored on realized trades.
func ClosedBy(s State) string {
	switch s {
	case StateClosedTarget:
		return "target"
	case StateClosedStopLoss:
		return "stoploss"
	case StateClosedTimeout:
		return "timeout"
	default:
		return ""
	}
}

// Terminal reports whether s is a CLOSED_* state.
func Terminal(s State) bool {
	return s == StateClosedTarget || s == StateClosedStopLoss || s == StateClosedTimeout
}

// Position is a simulated long position. Only Store mutates it.
type Position struct {
	ID             string
	Symbol         string
	SignalID       string
	Quantity       float64
	InvestedAmount float64
	EntryPrice     float64
	TargetPct      float64
	StopLossPct    float64
	State          State
	OpenedAt       time.Time
	ClosedAt       *time.Time
}

// ChangePct is the move from entry in percentage points.
func (p Position) ChangePct(price float64) float64 {
	return p.changePct(price).InexactFloat64()
}

// changePct is computed in decimal so a price exactly on a bound, e.g. 2.85
// against an entry of 3, hits the bound.
func (p Position) changePct(price float64) decimal.Decimal {
	if p.EntryPrice <= 0 {
		return decimal.Zero
	}
	entry := decimal.NewFromFloat(p.EntryPrice)
	return decimal.NewFromFloat(price).Sub(entry).Div(entry).Mul(decimal.NewFromInt(100))
}

// Evaluate decides the next state for an OPEN position at price. Target wins
// over stop-loss, and both win over the holding timeout. maxHolding <= 0
// disables the timeout.
func Evaluate(p Position, price float64, now time.Time, maxHolding time.Duration) State {
	if p.State != StateOpen {
		return p.State
	}
	pct := p.changePct(price)
	switch {
	case pct.GreaterThanOrEqual(decimal.NewFromFloat(p.TargetPct)):
		return StateClosedTarget
	case pct.LessThanOrEqual(decimal.NewFromFloat(-p.StopLossPct)):
		return StateClosedStopLoss
	case maxHolding > 0 && !p.OpenedAt.IsZero() && now.Sub(p.OpenedAt) >= maxHolding:
		return StateClosedTimeout
	default:
		return StateOpen
	}
}

// Trade is the realized record of a closed position.
type Trade struct {
	ID             string
	PositionID     string
	Symbol         string
	EntryPrice     float64
	ExitPrice      float64
	Quantity       float64
	InvestedAmount float64
	FinalValue     float64
	PnL            float64
	PnLPct         float64
	ClosedBy       string
	State          State
	OpenedAt       time.Time
	ClosedAt       time.Time
}

func toModel(p Position) *model.PositionModel {
	return &model.PositionModel{
		ID:             p.ID,
		Symbol:         p.Symbol,
		SignalID:       p.SignalID,
		Quantity:       p.Quantity,
		InvestedAmount: p.InvestedAmount,
		EntryPrice:     p.EntryPrice,
		TargetPct:      p.TargetPct,
		StopLossPct:    p.StopLossPct,
		State:          p.State,
		OpenedAtUnix:   p.OpenedAt.UnixMilli(),
	}
}

func fromModel(m model.PositionModel) Position {
	return Position{
		ID:             m.ID,
		Symbol:         m.Symbol,
		SignalID:       m.SignalID,
		Quantity:       m.Quantity,
		InvestedAmount: m.InvestedAmount,
		EntryPrice:     m.EntryPrice,
		TargetPct:      m.TargetPct,
		StopLossPct:    m.StopLossPct,
		State:          m.State,
		OpenedAt:       time.UnixMilli(m.OpenedAtUnix).UTC(),
	}
}

func tradeToModel(t Trade) *model.RealizedTradeModel {
	return &model.RealizedTradeModel{
		ID:             t.ID,
		PositionID:     t.PositionID,
		Symbol:         t.Symbol,
		EntryPrice:     t.EntryPrice,
		ExitPrice:      t.ExitPrice,
		Quantity:       t.Quantity,
		InvestedAmount: t.InvestedAmount,
		FinalValue:     t.FinalValue,
		PnL:            t.PnL,
		PnLPct:         t.PnLPct,
		ClosedBy:       t.ClosedBy,
		State:          t.State,
		OpenedAtUnix:   t.OpenedAt.UnixMilli(),
		ClosedAtUnix:   t.ClosedAt.UnixMilli(),
	}
}

// TradeFromModel converts a stored realized trade.
func TradeFromModel(m model.RealizedTradeModel) Trade {
	return Trade{
		ID:             m.ID,
		PositionID:     m.PositionID,
		Symbol:         m.Symbol,
		EntryPrice:     m.EntryPrice,
		ExitPrice:      m.ExitPrice,
		Quantity:       m.Quantity,
		InvestedAmount: m.InvestedAmount,
		FinalValue:     m.FinalValue,
		PnL:            m.PnL,
		PnLPct:         m.PnLPct,
		ClosedBy:       m.ClosedBy,
		State:          m.State,
		OpenedAt:       time.UnixMilli(m.OpenedAtUnix).UTC(),
		ClosedAt:       time.UnixMilli(m.ClosedAtUnix).UTC(),
	}
}
