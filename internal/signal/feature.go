package signal

import (
	"fmt"

	"signalbot/internal/pkg/utils"
)

// FeatureVector is the fixed five-field snapshot computed from the last completed bar.
type FeatureVector struct {
	RSI            float64 `json:"rsi"`
	EMADiff        float64 `json:"ema_diff"`
	MACDDiff       float64 `json:"macd_diff"`
	VolumeRelative float64 `json:"volume_relative"`
	BBPosition     float64 `json:"bb_position"`
}

// Validate rejects NaN and infinities in any field.
func (v FeatureVector) Validate() error {
	for name, val := range v.Map() {
		if !utils.IsFinite(val) {
			return fmt.Errorf("feature %s is not finite: %v", name, val)
		}
	}
	return nil
}

// Map exposes the fields by their wire names, for model input and persistence.
func (v FeatureVector) Map() map[string]float64 {
	return map[string]float64{
		"rsi":             v.RSI,
		"ema_diff":        v.EMADiff,
		"macd_diff":       v.MACDDiff,
		"volume_relative": v.VolumeRelative,
		"bb_position":     v.BBPosition,
	}
}

// FeatureNames lists the vector fields in their canonical order.
var FeatureNames = []string{"rsi", "ema_diff", "macd_diff", "volume_relative", "bb_position"}

// Reasons lists the classic entry conditions the vector satisfies.
func (v FeatureVector) Reasons() []string {
	var out []string
	if v.RSI < 30 {
		out = append(out, "RSI<30")
	}
	if v.BBPosition < 0 {
		out = append(out, "below BB")
	}
	if v.EMADiff > 0 {
		out = append(out, "price>EMA")
	}
	if v.MACDDiff > 0 {
		out = append(out, "MACD>signal")
	}
	if v.VolumeRelative > 1 {
		out = append(out, "volume↑")
	}
	return out
}
