package scoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"signalbot/internal/signal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const regressionModel = `
name: drift
version: 1
intercept: 0.5
weights:
  macd_diff: 2
  rsi: -0.01
`

const logisticModel = `
name: clf
version: 2
link: logistic
intercept: -2
weights:
  volume_relative: 1
  ema_diff: 100
`

func TestRuleScorer(t *testing.T) {
	r := NewRuleScorer(3)
	score, err := r.Predict(context.Background(), signal.FeatureVector{RSI: 25, EMADiff: 0.01, MACDDiff: 0.3, VolumeRelative: 0.8, BBPosition: 0.4})
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)

	score, err = r.Predict(context.Background(), signal.FeatureVector{RSI: 55, EMADiff: 0.01, BBPosition: 0.4})
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Predict(ctx, signal.FeatureVector{})
	assert.Error(t, err)
}

func TestParseModel(t *testing.T) {
	m, err := ParseModel([]byte(regressionModel))
	require.NoError(t, err)
	assert.Equal(t, LinkIdentity, m.Link)
	assert.InDelta(t, 0.5+2*1.5-0.01*40, m.Predict(signal.FeatureVector{MACDDiff: 1.5, RSI: 40}), 1e-9)

	clf, err := ParseModel([]byte(logisticModel))
	require.NoError(t, err)
	assert.Equal(t, 0.5, clf.Cutoff)
	assert.Equal(t, 1.0, clf.Predict(signal.FeatureVector{VolumeRelative: 2, EMADiff: 0.01}))
	assert.Equal(t, 0.0, clf.Predict(signal.FeatureVector{VolumeRelative: 0.5}))
}

func TestParseModelRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"unknown feature": "name: x\nweights:\n  funding: 1\n",
		"no weights":      "name: x\nweights: {}\n",
		"bad link":        "name: x\nlink: tanh\nweights:\n  rsi: 1\n",
		"extra field":     "name: x\nowner: me\nweights:\n  rsi: 1\n",
		"not yaml":        "name: [\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseModel([]byte(body))
			assert.Error(t, err)
		})
	}
}

func TestModelRegistryReloadKeepsLastGood(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.yaml")

	reg, err := NewModelRegistry(path)
	require.NoError(t, err)
	_, err = reg.Predict(context.Background(), signal.FeatureVector{})
	assert.ErrorIs(t, err, ErrUnavailable)

	require.NoError(t, os.WriteFile(path, []byte(regressionModel), 0o644))
	require.NoError(t, reg.Reload())
	score, err := reg.Predict(context.Background(), signal.FeatureVector{MACDDiff: 1})
	require.NoError(t, err)
	assert.InDelta(t, 2.5, score, 1e-9)

	require.NoError(t, os.WriteFile(path, []byte("name: broken\nweights: {}\n"), 0o644))
	assert.Error(t, reg.Reload())
	snap, ok := reg.Snapshot()
	require.True(t, ok)
	assert.Equal(t, "drift", snap.Model.Name)
	assert.Equal(t, int64(1), snap.Version)
}

func TestModelRegistryWatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.yaml")
	require.NoError(t, os.WriteFile(path, []byte(regressionModel), 0o644))
	reg, err := NewModelRegistry(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = reg.Watch(ctx) }()
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte(logisticModel), 0o644))
	assert.Eventually(t, func() bool {
		snap, ok := reg.Snapshot()
		return ok && snap.Model.Name == "clf"
	}, 5*time.Second, 50*time.Millisecond)
}

func TestHTTPScorer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req predictRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.Vector, 5)
		assert.Equal(t, 25.0, req.Features["rsi"])
		_, _ = w.Write([]byte(`{"prediction": 1.7}`))
	}))
	defer srv.Close()

	score, err := NewHTTPScorer(srv.URL, time.Second).Predict(context.Background(), signal.FeatureVector{RSI: 25})
	require.NoError(t, err)
	assert.Equal(t, 1.7, score)
}

func TestHTTPScorerFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewHTTPScorer(srv.URL, time.Second).Predict(context.Background(), signal.FeatureVector{})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestParseScore(t *testing.T) {
	for body, want := range map[string]float64{`{"score":0}`: 0, `{"predictions":[1]}`: 1, `[2.5]`: 2.5, `{"prediction":true}`: 1} {
		got, err := parseScore([]byte(body))
		require.NoError(t, err, body)
		assert.Equal(t, want, got, body)
	}
	_, err := parseScore([]byte(`{"label":"buy"}`))
	assert.ErrorIs(t, err, ErrUnavailable)
}
