package feature

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"

	"signalbot/internal/market"
	"signalbot/internal/pkg/utils"
	"signalbot/internal/signal"
)

// WarmupBars is the minimum series length: MACD(12,26,9) needs 34 bars for
// its first signal value, plus one so the last value never sits on the seed.
const WarmupBars = 35

// bandEpsilon treats a Bollinger width below this as collapsed.
const bandEpsilon = 1e-12

// Params 描述特征计算所需的指标窗口。
type Params struct {
	RSIPeriod    int
	EMAPeriod    int
	MACDFast     int
	MACDSlow     int
	MACDSignal   int
	BBPeriod     int
	BBDeviation  float64
	VolumePeriod int
}

func DefaultParams() Params {
	return Params{
		RSIPeriod:    14,
		EMAPeriod:    14,
		MACDFast:     12,
		MACDSlow:     26,
		MACDSignal:   9,
		BBPeriod:     20,
		BBDeviation:  2,
		VolumePeriod: 14,
	}
}

// Warmup returns the minimum series length these params can be evaluated on.
func (p Params) Warmup() int {
	need := p.MACDSlow + p.MACDSignal
	for _, n := range []int{p.RSIPeriod + 1, p.EMAPeriod, p.BBPeriod, p.VolumePeriod} {
		if n > need {
			need = n
		}
	}
	if need < WarmupBars {
		need = WarmupBars
	}
	return need
}

// Extractor turns a candle series into a FeatureVector. It has no state and
// is safe for concurrent use.
type Extractor struct {
	params Params
}

func NewExtractor(p Params) *Extractor {
	return &Extractor{params: p}
}

// Extract computes the vector from the last completed bar. Series shorter than
// the warm-up return market.ErrInsufficientData.
func (e *Extractor) Extract(series market.Series) (signal.FeatureVector, error) {
	p := e.params
	if series.Len() < p.Warmup() {
		return signal.FeatureVector{}, fmt.Errorf("%s: %w: have %d bars, need %d",
			series.Symbol(), market.ErrInsufficientData, series.Len(), p.Warmup())
	}
	closes := series.Closes()
	volumes := series.Volumes()
	price := closes[len(closes)-1]

	rsi := last(talib.Rsi(closes, p.RSIPeriod))
	ema := last(talib.Ema(closes, p.EMAPeriod))
	macd, macdSignal, _ := talib.Macd(closes, p.MACDFast, p.MACDSlow, p.MACDSignal)
	upper, _, lower := talib.BBands(closes, p.BBPeriod, p.BBDeviation, p.BBDeviation, talib.SMA)
	volMean := last(talib.Sma(volumes, p.VolumePeriod))

	vec := signal.FeatureVector{
		RSI:            rsi,
		EMADiff:        ratioDiff(price, ema),
		MACDDiff:       last(macd) - last(macdSignal),
		VolumeRelative: volumeRelative(volumes[len(volumes)-1], volMean),
		BBPosition:     bandPosition(price, last(upper), last(lower)),
	}
	if err := vec.Validate(); err != nil {
		return signal.FeatureVector{}, fmt.Errorf("%s: %w: %v", series.Symbol(), market.ErrInsufficientData, err)
	}
	return vec, nil
}

// ratioDiff is (price-ref)/ref, 0 when ref is zero or not finite.
func ratioDiff(price, ref float64) float64 {
	if ref == 0 || !utils.IsFinite(ref) {
		return 0
	}
	return (price - ref) / ref
}

// volumeRelative divides by 1 when the rolling mean is zero or unusable.
func volumeRelative(volume, mean float64) float64 {
	if !utils.IsFinite(volume) {
		return 0
	}
	if mean == 0 || !utils.IsFinite(mean) {
		mean = 1
	}
	return volume / mean
}

// bandPosition is 0 at the lower band and 1 at the upper band; 0.5 when the bands collapse.
func bandPosition(price, upper, lower float64) float64 {
	width := upper - lower
	if !utils.IsFinite(width) || width <= bandEpsilon*math.Max(1, math.Abs(price)) {
		return 0.5
	}
	pos := (price - lower) / width
	if !utils.IsFinite(pos) {
		return 0.5
	}
	return pos
}

func last(series []float64) float64 {
	if len(series) == 0 {
		return math.NaN()
	}
	return series[len(series)-1]
}
