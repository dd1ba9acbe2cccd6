package signal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"signalbot/internal/logger"
	"signalbot/internal/pkg/utils"
)

// Scorer is the pre-trained model collaborator.
type Scorer interface {
	Predict(ctx context.Context, v FeatureVector) (float64, error)
}

type Mode string

const (
	// ModeClassification admits when the model outputs exactly 1.
	ModeClassification Mode = "classification"
	// ModeRegression admits when the predicted move exceeds the threshold (percentage points).
	ModeRegression Mode = "regression"

	DefaultThreshold = 1.0
)

func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModeClassification, "":
		return ModeClassification, nil
	case ModeRegression:
		return ModeRegression, nil
	default:
		return "", fmt.Errorf("unknown gate mode %q", raw)
	}
}

// Gate wraps the scorer with the admission rule. An unavailable or failing
// scorer yields score 0 and no admission; it never surfaces an error.
type Gate struct {
	scorer    Scorer
	mode      Mode
	threshold float64
}

func NewGate(scorer Scorer, mode Mode, threshold float64) *Gate {
	if mode == "" {
		mode = ModeClassification
	}
	return &Gate{scorer: scorer, mode: mode, threshold: threshold}
}

// Score returns the model output, or 0 when the model cannot answer.
func (g *Gate) Score(ctx context.Context, v FeatureVector) (score float64, ok bool) {
	if g == nil || g.scorer == nil {
		return 0, false
	}
	s, err := g.scorer.Predict(ctx, v)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.Warnf("gate: scorer unavailable: %v", err)
		}
		return 0, false
	}
	if !utils.IsFinite(s) {
		logger.Warnf("gate: scorer returned non-finite score %v", s)
		return 0, false
	}
	return s, true
}

// Admit applies the mode rule to a score.
func (g *Gate) Admit(score float64) bool {
	switch g.mode {
	case ModeRegression:
		return score > g.threshold
	default:
		return score == 1
	}
}

// Evaluate scores v and applies the admission rule in one step.
func (g *Gate) Evaluate(ctx context.Context, v FeatureVector) (float64, bool) {
	score, ok := g.Score(ctx, v)
	if !ok {
		return 0, false
	}
	return score, g.Admit(score)
}
