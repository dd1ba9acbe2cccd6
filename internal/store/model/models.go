package model

import (
	"gorm.io/datatypes"
)

type PositionState string

const (
	PositionStateOpen           PositionState = "OPEN"
	PositionStateClosedTarget   PositionState = "CLOSED_TARGET"
	PositionStateClosedStopLoss PositionState = "CLOSED_STOPLOSS"
	PositionStateClosedTimeout  PositionState = "CLOSED_TIMEOUT"
)

// SignalModel maps to the 'signals' collection. Result and ResolvedAtUnix stay
// NULL while the signal is pending.
type SignalModel struct {
	ID             string         `gorm:"column:id;primaryKey"`
	Symbol         string         `gorm:"column:symbol;index"`
	TimestampUnix  int64          `gorm:"column:timestamp;index:idx_signal_pending,priority:2"`
	RSI            float64        `gorm:"column:rsi"`
	EMADiff        float64        `gorm:"column:ema_diff"`
	MACDDiff       float64        `gorm:"column:macd_diff"`
	VolumeRelative float64        `gorm:"column:volume_relative"`
	BBPosition     float64        `gorm:"column:bb_position"`
	Score          float64        `gorm:"column:score"`
	EntryPrice     *float64       `gorm:"column:entry_price"`
	Reasons        datatypes.JSON `gorm:"column:reasons;type:TEXT"`
	Result         *float64       `gorm:"column:result;index:idx_signal_pending,priority:1"`
	ResolvedAtUnix *int64         `gorm:"column:resolved_at"`
	CreatedAtUnix  int64          `gorm:"column:created_at"`
}

func (SignalModel) TableName() string { return "signals" }

// PositionModel mirrors an OPEN virtual position; rows are deleted on close.
type PositionModel struct {
	ID             string        `gorm:"column:id;primaryKey"`
	Symbol         string        `gorm:"column:symbol;uniqueIndex"`
	SignalID       string        `gorm:"column:signal_id"`
	Quantity       float64       `gorm:"column:quantity"`
	InvestedAmount float64       `gorm:"column:invested_amount"`
	EntryPrice     float64       `gorm:"column:entry_price"`
	TargetPct      float64       `gorm:"column:target_pct"`
	StopLossPct    float64       `gorm:"column:stop_loss_pct"`
	State          PositionState `gorm:"column:state"`
	OpenedAtUnix   int64         `gorm:"column:opened_at"`
	UpdatedAtUnix  int64         `gorm:"column:updated_at"`
}

func (PositionModel) TableName() string { return "positions" }

// RealizedTradeModel maps to the append-only 'realized_trades' collection.
type RealizedTradeModel struct {
	ID             string        `gorm:"column:id;primaryKey"`
	PositionID     string        `gorm:"column:position_id;uniqueIndex"`
	Symbol         string        `gorm:"column:symbol;index"`
	EntryPrice     float64       `gorm:"column:entry_price"`
	ExitPrice      float64       `gorm:"column:exit_price"`
	Quantity       float64       `gorm:"column:quantity"`
	InvestedAmount float64       `gorm:"column:invested_amount"`
	FinalValue     float64       `gorm:"column:final_value"`
	PnL            float64       `gorm:"column:pnl"`
	PnLPct         float64       `gorm:"column:pnl_pct"`
	ClosedBy       string        `gorm:"column:closed_by"`
	State          PositionState `gorm:"column:state"`
	OpenedAtUnix   int64         `gorm:"column:opened_at"`
	ClosedAtUnix   int64         `gorm:"column:closed_at;index"`
}

func (RealizedTradeModel) TableName() string { return "realized_trades" }

// AccountModel is the single 'account' record. Balances are kept as decimal strings.
type AccountModel struct {
	ID            int    `gorm:"column:id;primaryKey"`
	Balance       string `gorm:"column:balance"`
	Principal     string `gorm:"column:principal"`
	UpdatedAtUnix int64  `gorm:"column:updated_at"`
}

func (AccountModel) TableName() string { return "account" }

// AccountSingletonID is the primary key of the only account row.
const AccountSingletonID = 1
