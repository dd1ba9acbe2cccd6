package market

import (
	"fmt"
	"time"
)

type Candle struct {
	OpenTime  int64   `json:"open_time"`
	CloseTime int64   `json:"close_time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	Trades    int64   `json:"trades"`
}

// Time returns the close time, falling back to the open time for feeds that omit it.
func (c Candle) Time() time.Time {
	ts := c.CloseTime
	if ts == 0 {
		ts = c.OpenTime
	}
	return time.UnixMilli(ts).UTC()
}

// Series is an ordered OHLCV sequence for one symbol and timeframe. It is built
// once per cycle from the feed and never mutated afterwards; accessors return copies.
type Series struct {
	symbol    string
	timeframe string
	candles   []Candle
}

// NewSeries validates ordering (strictly increasing open time) and copies the input.
func NewSeries(symbol, timeframe string, candles []Candle) (Series, error) {
	for i := 1; i < len(candles); i++ {
		if candles[i].OpenTime <= candles[i-1].OpenTime {
			return Series{}, fmt.Errorf("%s %s: candle %d out of order", symbol, timeframe, i)
		}
	}
	cp := make([]Candle, len(candles))
	copy(cp, candles)
	return Series{symbol: symbol, timeframe: timeframe, candles: cp}, nil
}

func (s Series) Symbol() string    { return s.symbol }
func (s Series) Timeframe() string { return s.timeframe }
func (s Series) Len() int          { return len(s.candles) }

func (s Series) Candles() []Candle {
	out := make([]Candle, len(s.candles))
	copy(out, s.candles)
	return out
}

// Last returns the most recent completed bar.
func (s Series) Last() (Candle, bool) {
	if len(s.candles) == 0 {
		return Candle{}, false
	}
	return s.candles[len(s.candles)-1], true
}

func (s Series) Closes() []float64 {
	return s.column(func(c Candle) float64 { return c.Close })
}

func (s Series) Highs() []float64 {
	return s.column(func(c Candle) float64 { return c.High })
}

func (s Series) Lows() []float64 {
	return s.column(func(c Candle) float64 { return c.Low })
}

func (s Series) Volumes() []float64 {
	return s.column(func(c Candle) float64 { return c.Volume })
}

func (s Series) column(pick func(Candle) float64) []float64 {
	out := make([]float64, len(s.candles))
	for i, c := range s.candles {
		out[i] = pick(c)
	}
	return out
}
