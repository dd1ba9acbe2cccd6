package apihttp

import (
	"encoding/json"
	"time"

	"signalbot/internal/position"
	"signalbot/internal/store/model"
)

type accountResponse struct {
	Balance       string `json:"balance"`
	Principal     string `json:"principal"`
	Fraction      string `json:"fraction"`
	MinTrade      string `json:"min_trade"`
	SizingBasis   string `json:"sizing_basis"`
	OpenPositions int    `json:"open_positions"`
}

type positionResponse struct {
	ID             string    `json:"id"`
	Symbol         string    `json:"symbol"`
	SignalID       string    `json:"signal_id,omitempty"`
	Quantity       float64   `json:"quantity"`
	InvestedAmount float64   `json:"invested_amount"`
	EntryPrice     float64   `json:"entry_price"`
	TargetPct      float64   `json:"target_pct"`
	StopLossPct    float64   `json:"stop_loss_pct"`
	State          string    `json:"state"`
	OpenedAt       time.Time `json:"opened_at"`
}

type tradeResponse struct {
	ID             string    `json:"id"`
	PositionID     string    `json:"position_id"`
	Symbol         string    `json:"symbol"`
	EntryPrice     float64   `json:"entry_price"`
	ExitPrice      float64   `json:"exit_price"`
	Quantity       float64   `json:"quantity"`
	InvestedAmount float64   `json:"invested_amount"`
	FinalValue     float64   `json:"final_value"`
	PnL            float64   `json:"pnl"`
	PnLPct         float64   `json:"pnl_pct"`
	ClosedBy       string    `json:"closed_by"`
	OpenedAt       time.Time `json:"opened_at"`
	ClosedAt       time.Time `json:"closed_at"`
}

type signalResponse struct {
	ID         string             `json:"id"`
	Symbol     string             `json:"symbol"`
	Timestamp  time.Time          `json:"timestamp"`
	Features   map[string]float64 `json:"features"`
	Score      float64            `json:"score"`
	EntryPrice *float64           `json:"entry_price"`
	Reasons    []string           `json:"reasons,omitempty"`
	Result     *float64           `json:"result"`
	ResolvedAt *time.Time         `json:"resolved_at,omitempty"`
}

func toPositionResponse(p position.Position) positionResponse {
	return positionResponse{
		ID:             p.ID,
		Symbol:         p.Symbol,
		SignalID:       p.SignalID,
		Quantity:       p.Quantity,
		InvestedAmount: p.InvestedAmount,
		EntryPrice:     p.EntryPrice,
		TargetPct:      p.TargetPct,
		StopLossPct:    p.StopLossPct,
		State:          string(p.State),
		OpenedAt:       p.OpenedAt,
	}
}

func toTradeResponse(t position.Trade) tradeResponse {
	return tradeResponse{
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
		OpenedAt:       t.OpenedAt,
		ClosedAt:       t.ClosedAt,
	}
}

func toSignalResponse(m model.SignalModel) signalResponse {
	var reasons []string
	if len(m.Reasons) > 0 {
		_ = json.Unmarshal(m.Reasons, &reasons)
	}
	out := signalResponse{
		ID:        m.ID,
		Symbol:    m.Symbol,
		Timestamp: time.UnixMilli(m.TimestampUnix).UTC(),
		Features: map[string]float64{
			"rsi":             m.RSI,
			"ema_diff":        m.EMADiff,
			"macd_diff":       m.MACDDiff,
			"volume_relative": m.VolumeRelative,
			"bb_position":     m.BBPosition,
		},
		Score:      m.Score,
		EntryPrice: m.EntryPrice,
		Reasons:    reasons,
		Result:     m.Result,
	}
	if m.ResolvedAtUnix != nil {
		ts := time.UnixMilli(*m.ResolvedAtUnix).UTC()
		out.ResolvedAt = &ts
	}
	return out
}
