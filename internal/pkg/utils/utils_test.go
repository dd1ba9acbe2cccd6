package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRound(t *testing.T) {
	assert.Equal(t, 3.21, Round(3.2149, 2))
	assert.Equal(t, -1.5, Round(-1.46, 1))
	assert.True(t, math.IsNaN(Round(math.NaN(), 2)))
}

func TestParseFloat(t *testing.T) {
	assert.Equal(t, 101.25, ParseFloat(" 101.25 "))
	assert.Equal(t, 0.0, ParseFloat("n/a"))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "+3.20%", FormatPercent(3.2))
	assert.Equal(t, "-6.00%", FormatPercent(-6))
	assert.Equal(t, "12.35", FormatMoney(12.346))
	assert.Equal(t, "0", FormatFloat(0))
}
