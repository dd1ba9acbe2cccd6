package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseFloat parses exchange decimal strings, returning 0 on malformed input.
func ParseFloat(raw string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return f
}

func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Round rounds half away from zero to the given number of decimal places.
func Round(v float64, places int) float64 {
	if !IsFinite(v) {
		return v
	}
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func FormatFloat(val float64) string {
	if val == 0 {
		return "0"
	}
	return fmt.Sprintf("%.4f", val)
}

// FormatPercent renders a value that is already in percentage points, e.g. 3.2 -> "+3.20%".
func FormatPercent(val float64) string {
	return fmt.Sprintf("%+.2f%%", val)
}

func FormatMoney(val float64) string {
	return fmt.Sprintf("%.2f", val)
}
