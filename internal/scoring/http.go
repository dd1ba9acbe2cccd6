package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"signalbot/internal/signal"
)

// HTTPScorer asks an external model server for a prediction. The request body
// is {"features": {...}, "vector": [...]} with the vector in FeatureNames
// order; the score is read from "score", "prediction" or "predictions.0".
type HTTPScorer struct {
	endpoint string
	client   *http.Client
}

func NewHTTPScorer(endpoint string, timeout time.Duration) *HTTPScorer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPScorer{endpoint: strings.TrimSpace(endpoint), client: &http.Client{Timeout: timeout}}
}

type predictRequest struct {
	Features map[string]float64 `json:"features"`
	Vector   []float64          `json:"vector"`
}

var scorePaths = []string{"score", "prediction", "predictions.0", "0"}

func (s *HTTPScorer) Predict(ctx context.Context, v signal.FeatureVector) (float64, error) {
	values := v.Map()
	vec := make([]float64, 0, len(signal.FeatureNames))
	for _, name := range signal.FeatureNames {
		vec = append(vec, values[name])
	}
	body, err := json.Marshal(predictRequest{Features: values, Vector: vec})
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.StatusCode/100 != 2 {
		return 0, fmt.Errorf("%w: model server status=%d", ErrUnavailable, resp.StatusCode)
	}
	return parseScore(raw)
}

func parseScore(raw []byte) (float64, error) {
	if !gjson.ValidBytes(raw) {
		return 0, fmt.Errorf("%w: invalid json response", ErrUnavailable)
	}
	for _, path := range scorePaths {
		res := gjson.GetBytes(raw, path)
		switch res.Type {
		case gjson.Number:
			return res.Float(), nil
		case gjson.True:
			return 1, nil
		case gjson.False:
			return 0, nil
		}
	}
	return 0, fmt.Errorf("%w: no score in response", ErrUnavailable)
}
