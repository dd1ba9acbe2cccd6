// Package alert ranks admitted candidates, throttles dispatches over a rolling
// window and records a pending signal for every dispatched symbol.
package alert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"signalbot/internal/logger"
	"signalbot/internal/signal"
	"signalbot/internal/store"
	"signalbot/internal/store/model"
)

const DefaultMaxPerCycle = 5

// Less orders candidates by |macd_diff| desc, |ema_diff| desc,
// volume_relative desc, |bb_position-0.5| desc, then rsi asc. Symbol breaks
// remaining ties so the order is deterministic.
func Less(a, b signal.Candidate) bool {
	fa, fb := a.Features, b.Features
	if x, y := math.Abs(fa.MACDDiff), math.Abs(fb.MACDDiff); x != y {
		return x > y
	}
	if x, y := math.Abs(fa.EMADiff), math.Abs(fb.EMADiff); x != y {
		return x > y
	}
	if fa.VolumeRelative != fb.VolumeRelative {
		return fa.VolumeRelative > fb.VolumeRelative
	}
	if x, y := math.Abs(fa.BBPosition-0.5), math.Abs(fb.BBPosition-0.5); x != y {
		return x > y
	}
	if fa.RSI != fb.RSI {
		return fa.RSI < fb.RSI
	}
	return a.Symbol < b.Symbol
}

// Rank drops symbols for which isOpen reports true, sorts the rest and caps
// the result at max.
func Rank(cands []signal.Candidate, isOpen func(symbol string) bool, max int) []signal.Candidate {
	out := make([]signal.Candidate, 0, len(cands))
	seen := make(map[string]struct{}, len(cands))
	for _, c := range cands {
		if _, dup := seen[c.Symbol]; dup {
			continue
		}
		if isOpen != nil && isOpen(c.Symbol) {
			continue
		}
		seen[c.Symbol] = struct{}{}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return Less(out[i], out[j]) })
	if max < 0 {
		max = 0
	}
	if len(out) > max {
		out = out[:max]
	}
	return out
}

// Ranker is the per-cycle alert selector. It is the only writer of its window.
type Ranker struct {
	max     int
	window  Window
	signals store.SignalRepository
}

func NewRanker(max int, window Window, signals store.SignalRepository) *Ranker {
	if max <= 0 {
		max = DefaultMaxPerCycle
	}
	return &Ranker{max: max, window: window, signals: signals}
}

func (r *Ranker) Max() int { return r.max }

// Select ranks the cycle's complete candidate set and returns the signals that
// were dispatched. Alerts already sent within the window reduce this cycle's
// allowance; any deficit is dropped, not queued. Each dispatched signal is
// persisted as pending before it is recorded in the window.
func (r *Ranker) Select(ctx context.Context, cands []signal.Candidate, isOpen func(string) bool, now time.Time) ([]signal.Signal, error) {
	sent := 0
	if r.window != nil {
		count, err := r.window.Count(ctx, now)
		if err != nil {
			return nil, fmt.Errorf("alert window count: %w", err)
		}
		sent = count
	}
	allowed := r.max - sent
	if allowed <= 0 {
		logger.Infof("alert: window full (%d/%d), %d candidates dropped", sent, r.max, len(cands))
		return nil, nil
	}
	ranked := Rank(cands, isOpen, allowed)
	out := make([]signal.Signal, 0, len(ranked))
	for _, c := range ranked {
		sig, err := signal.NewSignal(c.Symbol, c.At, c.Features, c.Score, c.Price)
		if err != nil {
			if errors.Is(err, signal.ErrMissingEntryPrice) {
				logger.Warnf("alert: drop %s: %v", c.Symbol, err)
				continue
			}
			return out, err
		}
		if r.signals != nil {
			id, err := r.signals.Add(ctx, toModel(sig, now))
			if err != nil {
				logger.Warnf("alert: persist signal %s failed: %v", c.Symbol, err)
				continue
			}
			sig.ID = id
		}
		if r.window != nil {
			if err := r.window.Record(ctx, sig.Symbol, now); err != nil {
				logger.Warnf("alert: window record %s failed: %v", sig.Symbol, err)
			}
		}
		out = append(out, sig)
	}
	return out, nil
}

func toModel(sig signal.Signal, now time.Time) *model.SignalModel {
	reasons, _ := json.Marshal(sig.Reasons)
	entry := sig.EntryPrice
	return &model.SignalModel{
		ID:             sig.ID,
		Symbol:         sig.Symbol,
		TimestampUnix:  sig.Timestamp.UnixMilli(),
		RSI:            sig.Features.RSI,
		EMADiff:        sig.Features.EMADiff,
		MACDDiff:       sig.Features.MACDDiff,
		VolumeRelative: sig.Features.VolumeRelative,
		BBPosition:     sig.Features.BBPosition,
		Score:          sig.Score,
		EntryPrice:     &entry,
		Reasons:        reasons,
		CreatedAtUnix:  now.UnixMilli(),
	}
}
