package signal

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"signalbot/internal/pkg/utils"
)

var ErrMissingEntryPrice = errors.New("signal has no entry price")

// Signal is a scored observation that a symbol met the entry criteria. Only
// Result and ResolvedAt change after creation, and only once.
type Signal struct {
	ID         string
	Symbol     string
	Timestamp  time.Time
	Features   FeatureVector
	Score      float64
	EntryPrice float64
	Reasons    []string
	Result     *float64
	ResolvedAt *time.Time
}

// NewSignal builds a pending signal. Signals without a usable entry price are
// incomplete and must be dropped, so they are rejected here.
func NewSignal(symbol string, at time.Time, features FeatureVector, score, entryPrice float64) (Signal, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return Signal{}, fmt.Errorf("signal symbol is empty")
	}
	if entryPrice <= 0 || !utils.IsFinite(entryPrice) {
		return Signal{}, fmt.Errorf("%s: %w (got %v)", symbol, ErrMissingEntryPrice, entryPrice)
	}
	if err := features.Validate(); err != nil {
		return Signal{}, fmt.Errorf("%s: %w", symbol, err)
	}
	return Signal{
		Symbol:     symbol,
		Timestamp:  at.UTC(),
		Features:   features,
		Score:      score,
		EntryPrice: entryPrice,
		Reasons:    features.Reasons(),
	}, nil
}

func (s Signal) Pending() bool {
	return s.Result == nil
}

// Candidate is an admitted symbol waiting for ranking within one cycle.
type Candidate struct {
	Symbol   string
	Features FeatureVector
	Score    float64
	Price    float64
	At       time.Time
}
