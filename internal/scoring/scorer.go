package scoring

import (
	"context"
	"errors"

	"signalbot/internal/signal"
)

// ErrUnavailable is returned while no model is loaded or reachable.
var ErrUnavailable = errors.New("scoring model unavailable")

// RuleScorer is the model-free fallback: it outputs 1 when at least
// MinConfluence of the classic entry conditions hold, else 0.
type RuleScorer struct {
	MinConfluence int
}

func NewRuleScorer(minConfluence int) RuleScorer {
	if minConfluence <= 0 {
		minConfluence = 3
	}
	return RuleScorer{MinConfluence: minConfluence}
}

func (r RuleScorer) Predict(ctx context.Context, v signal.FeatureVector) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(v.Reasons()) >= r.MinConfluence {
		return 1, nil
	}
	return 0, nil
}
