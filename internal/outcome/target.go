package outcome

import (
	"math"

	"github.com/markcheno/go-talib"

	"signalbot/internal/market"
	"signalbot/internal/pkg/utils"
)

// VolatilityWindow is the number of bars averaged for the range.
const VolatilityWindow = 14

type TargetMode string

const (
	TargetVolatility TargetMode = "volatility"
	TargetFixed      TargetMode = "fixed"
)

// TargetDeriver picks the take-profit percentage for a new position.
type TargetDeriver struct {
	Mode     TargetMode
	FixedPct float64
	MinPct   float64
	Factor   float64
}

// Derive returns max(MinPct, round(mean14(high-low)/low*100*Factor, 2)) in
// volatility mode, where low is the last bar's low. Series too short for the
// window, or with a non-positive low, fall back to MinPct.
func (d TargetDeriver) Derive(series market.Series) float64 {
	if d.Mode == TargetFixed {
		return d.FixedPct
	}
	lows := series.Lows()
	if len(lows) < VolatilityWindow {
		return d.MinPct
	}
	highs := series.Highs()
	ranges := make([]float64, len(lows))
	for i := range lows {
		ranges[i] = highs[i] - lows[i]
	}
	mean := talib.Sma(ranges, VolatilityWindow)
	last := lows[len(lows)-1]
	avg := mean[len(mean)-1]
	if last <= 0 || !utils.IsFinite(avg) {
		return d.MinPct
	}
	target := utils.Round(avg/last*100*d.Factor, 2)
	return math.Max(d.MinPct, target)
}
